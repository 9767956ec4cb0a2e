// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/authcore/internal/web"
)

func TestSchemaCommand_WritesFiles(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "schemas")

	cmd := NewRootCmd()
	out := new(bytes.Buffer)
	cmd.SetOut(out)
	cmd.SetArgs([]string{"schema", dir})
	require.NoError(t, cmd.Execute())

	for _, name := range web.SchemaNames() {
		path := filepath.Join(dir, name+".schema.json")
		data, err := os.ReadFile(path)
		require.NoError(t, err)

		var schema map[string]any
		require.NoError(t, json.Unmarshal(data, &schema))
		assert.Equal(t, web.SchemaID(name), schema["$id"])
		assert.Contains(t, out.String(), path)
	}
}

func TestSchemaCommand_Stdout(t *testing.T) {
	cmd := NewRootCmd()
	out := new(bytes.Buffer)
	cmd.SetOut(out)
	cmd.SetArgs([]string{"schema"})
	require.NoError(t, cmd.Execute())

	for _, name := range web.SchemaNames() {
		assert.Contains(t, out.String(), web.SchemaID(name))
	}
}

func TestSchemaCommand_TooManyArgs(t *testing.T) {
	cmd := NewRootCmd()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{"schema", "a", "b"})
	assert.Error(t, cmd.Execute())
}
