// MQTT File RBAC - File-based access control for MQTT brokers
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mqtt-file-rbac

package api

import (
	"bytes"
	"errors"
	"io"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/tomtom215/mqtt-file-rbac/internal/logging"
	"github.com/tomtom215/mqtt-file-rbac/internal/validation"
)

// maxBodyBytes bounds request bodies. Hook payloads are a few hundred
// bytes.
const maxBodyBytes = 64 << 10

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// APIError describes a failed request.
type APIError struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	body, err := json.Marshal(data)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to marshal JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		logging.Debug().Err(err).Msg("Failed to write JSON response")
	}
}

func writeError(w http.ResponseWriter, status int, code, message string, fields map[string]string) {
	writeJSON(w, status, ErrorResponse{Error: APIError{Code: code, Message: message, Fields: fields}})
}

// decodeRequest reads a JSON body into dst and validates it. On failure it
// writes the error response and returns false.
func decodeRequest(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, "BODY_TOO_LARGE", "request body too large", nil)
		} else {
			writeError(w, http.StatusBadRequest, "INVALID_JSON", "request body could not be read", nil)
		}
		return false
	}
	if len(bytes.TrimSpace(body)) == 0 {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "request body is empty", nil)
		return false
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "request body is not valid JSON: "+err.Error(), nil)
		return false
	}

	if verr := validation.ValidateStruct(dst); verr != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", verr.Error(), verr.Fields())
		return false
	}
	return true
}
