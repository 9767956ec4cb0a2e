// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package web

import (
	"bytes"
	"encoding/json"
	"errors"
	"sort"
	"strings"

	"github.com/invopop/jsonschema"
	jschema "github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/samber/oops"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/holomush/authcore/internal/auth"
)

// Request schema names.
const (
	SchemaRegister = "register"
	SchemaLogin    = "login"
)

// SchemaBaseURL is the base of the $id of every request schema.
const SchemaBaseURL = "https://holomush.dev/schemas/authcore/"

// RegisterRequest is the body of POST /auth/register.
type RegisterRequest struct {
	Name     string `json:"name" jsonschema:"minLength=1,maxLength=200,description=Display name"`
	Email    string `json:"email" jsonschema:"format=email,maxLength=320"`
	Password string `json:"password" jsonschema:"minLength=6,maxLength=72"`
	Role     string `json:"role,omitempty" jsonschema:"enum=user,enum=admin,description=Defaults to user"`
}

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email" jsonschema:"format=email,maxLength=320"`
	Password string `json:"password" jsonschema:"minLength=1,maxLength=72"`
}

var requestTypes = map[string]struct {
	title string
	value any
}{
	SchemaRegister: {"authcore registration request", &RegisterRequest{}},
	SchemaLogin:    {"authcore sign-in request", &LoginRequest{}},
}

// SchemaNames returns the names of all request schemas, sorted.
func SchemaNames() []string {
	names := make([]string, 0, len(requestTypes))
	for name := range requestTypes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SchemaID returns the $id of the named request schema.
func SchemaID(name string) string {
	return SchemaBaseURL + name + ".json"
}

// GenerateSchema reflects the JSON Schema of the named request type.
func GenerateSchema(name string) ([]byte, error) {
	rt, ok := requestTypes[name]
	if !ok {
		return nil, oops.With("schema", name).Errorf("unknown request schema")
	}

	r := jsonschema.Reflector{
		DoNotReference: true,
	}
	schema := r.Reflect(rt.value)
	schema.ID = jsonschema.ID(SchemaID(name))
	schema.Title = rt.title

	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, oops.With("schema", name).Wrapf(err, "marshal schema")
	}
	return data, nil
}

// RequestValidator checks request bodies against the compiled request
// schemas. It is immutable after construction and safe for concurrent use.
type RequestValidator struct {
	schemas map[string]*jschema.Schema
	printer *message.Printer
}

// NewRequestValidator compiles every request schema.
func NewRequestValidator() (*RequestValidator, error) {
	c := jschema.NewCompiler()
	c.AssertFormat()

	v := &RequestValidator{
		schemas: make(map[string]*jschema.Schema, len(requestTypes)),
		printer: message.NewPrinter(language.English),
	}
	for _, name := range SchemaNames() {
		data, err := GenerateSchema(name)
		if err != nil {
			return nil, err
		}
		doc, err := jschema.UnmarshalJSON(bytes.NewReader(data))
		if err != nil {
			return nil, oops.With("schema", name).Wrapf(err, "parse schema")
		}
		if err := c.AddResource(SchemaID(name), doc); err != nil {
			return nil, oops.With("schema", name).Wrapf(err, "add schema resource")
		}
		sch, err := c.Compile(SchemaID(name))
		if err != nil {
			return nil, oops.With("schema", name).Wrapf(err, "compile schema")
		}
		v.schemas[name] = sch
	}
	return v, nil
}

// Decode validates body against the named schema and unmarshals it into dst.
// Any rejection is INVALID_INPUT with a public message naming the first
// violation.
func (v *RequestValidator) Decode(name string, body []byte, dst any) error {
	sch, ok := v.schemas[name]
	if !ok {
		return oops.With("schema", name).Errorf("unknown request schema")
	}

	doc, err := jschema.UnmarshalJSON(bytes.NewReader(body))
	if err != nil {
		return oops.Code(auth.CodeInvalidInput).
			Public("request body is not valid JSON").
			With("schema", name).
			Wrapf(err, "parse request body")
	}

	if err := sch.Validate(doc); err != nil {
		var verr *jschema.ValidationError
		if !errors.As(err, &verr) {
			return oops.With("schema", name).Wrapf(err, "validate request body")
		}
		detail := v.describe(verr)
		return oops.Code(auth.CodeInvalidInput).
			Public(detail).
			With("schema", name).
			Errorf("request body rejected: %s", detail)
	}

	if err := json.Unmarshal(body, dst); err != nil {
		return oops.Code(auth.CodeInvalidInput).
			Public("request body does not match the expected shape").
			With("schema", name).
			Wrapf(err, "decode request body")
	}
	return nil
}

// describe renders the first leaf violation as "<pointer>: <reason>".
func (v *RequestValidator) describe(verr *jschema.ValidationError) string {
	leaf := verr
	for len(leaf.Causes) > 0 {
		leaf = leaf.Causes[0]
	}
	location := "/" + strings.Join(leaf.InstanceLocation, "/")
	return location + ": " + leaf.ErrorKind.LocalizedString(v.printer)
}
