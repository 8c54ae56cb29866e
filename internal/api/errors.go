package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nerrad567/sdrlink/internal/fleet"
)

// Error represents a structured error response.
type Error struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Common error codes.
const (
	ErrCodeBadRequest   = "bad_request"
	ErrCodeNotFound     = "not_found"
	ErrCodeUnauthorized = "unauthorised"
	ErrCodeForbidden    = "forbidden"
	ErrCodeConflict     = "conflict"
	ErrCodeRadio        = "radio_error"
	ErrCodeInternal     = "internal_error"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	//nolint:errcheck // The client may have gone away
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, Error{Status: status, Code: code, Message: message})
}

func writeBadRequest(w http.ResponseWriter, msg string) {
	writeError(w, http.StatusBadRequest, ErrCodeBadRequest, msg)
}

func writeNotFound(w http.ResponseWriter, msg string) {
	writeError(w, http.StatusNotFound, ErrCodeNotFound, msg)
}

func writeUnauthorized(w http.ResponseWriter, msg string) {
	writeError(w, http.StatusUnauthorized, ErrCodeUnauthorized, msg)
}

func writeForbidden(w http.ResponseWriter, msg string) {
	writeError(w, http.StatusForbidden, ErrCodeForbidden, msg)
}

func writeInternalError(w http.ResponseWriter, msg string) {
	writeError(w, http.StatusInternalServerError, ErrCodeInternal, msg)
}

// fleetErrorStatus maps fleet sentinel errors to responses. Radio-side
// failures are 502: the API worked, the radio did not.
var fleetErrorStatus = []struct {
	target error
	status int
	code   string
}{
	{fleet.ErrUnknownRadio, http.StatusNotFound, ErrCodeNotFound},
	{fleet.ErrUnknownComponent, http.StatusNotFound, ErrCodeNotFound},
	{fleet.ErrInvalidPayload, http.StatusBadRequest, ErrCodeBadRequest},
	{fleet.ErrNotConnected, http.StatusConflict, ErrCodeConflict},
	{fleet.ErrConnectFailed, http.StatusBadGateway, ErrCodeRadio},
	{fleet.ErrCommandFailed, http.StatusBadGateway, ErrCodeRadio},
}

func writeFleetError(w http.ResponseWriter, err error) {
	for _, m := range fleetErrorStatus {
		if errors.Is(err, m.target) {
			writeError(w, m.status, m.code, err.Error())
			return
		}
	}
	writeInternalError(w, err.Error())
}
