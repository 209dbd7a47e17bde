package server

import (
	"encoding/json"
	"net/http"

	"github.com/kevindalmeijer/TowerBlocksOptimizer/pkg/errors"
)

// errorResponse is the JSON error envelope.
type errorResponse struct {
	Error string      `json:"error"`
	Code  errors.Code `json:"code,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// The status line is already out, so an encode failure cannot be
	// reported to the client.
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps the error's code to an HTTP status and writes the
// envelope. Validation failures are the client's fault; everything else is
// a server error.
func writeError(w http.ResponseWriter, err error) {
	code := errors.GetCode(err)
	writeJSON(w, statusFor(code), errorResponse{Error: err.Error(), Code: code})
}

func statusFor(code errors.Code) int {
	switch code {
	case errors.ErrCodeInvalidConfig, errors.ErrCodeInvalidTable,
		errors.ErrCodeInvalidMode, errors.ErrCodeInvalidPlan:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
