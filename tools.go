// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

//go:build tools

// Package main pins the command-line tools used to run the test suites, so
// `go run github.com/onsi/ginkgo/v2/ginkgo -tags integration ./...` uses the
// version in go.mod.
package main

import (
	_ "github.com/onsi/ginkgo/v2/ginkgo"
)
