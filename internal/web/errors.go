// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package web

import (
	"encoding/json"
	"net/http"

	"github.com/samber/oops"

	"github.com/holomush/authcore/internal/auth"
)

// errorResponse is the body of every failed request.
type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

var statusByCode = map[string]int{
	auth.CodeInvalidInput:       http.StatusBadRequest,
	auth.CodeInvalidCredentials: http.StatusUnauthorized,
	auth.CodeTokenExpired:       http.StatusUnauthorized,
	auth.CodeTokenInvalid:       http.StatusUnauthorized,
	auth.CodeDuplicateEmail:     http.StatusConflict,
	auth.CodeStorageUnavailable: http.StatusServiceUnavailable,
}

// StatusFor returns the HTTP status for a public failure code.
func StatusFor(code string) int {
	if status, ok := statusByCode[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// writeJSON writes a JSON response with the given status code and payload.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // best-effort write; the client may have gone away
		json.NewEncoder(w).Encode(v)
	}
}

// writeFailure renders err through auth.PublicFailure. Invalid input keeps
// its own public message so the client can see which field was rejected.
func writeFailure(w http.ResponseWriter, err error) {
	failure := auth.PublicFailure(err)
	if failure.Code == auth.CodeInvalidInput {
		failure.Message = oops.GetPublic(err, failure.Message)
	}
	writeJSON(w, StatusFor(failure.Code), errorResponse{
		Code:    failure.Code,
		Message: failure.Message,
	})
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}
