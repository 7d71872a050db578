package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/cloneforge/cloneforge-engine/pkg/apperrors"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error    string `json:"error"`
	Message  string `json:"message"`
	Internal string `json:"internal,omitempty"`
}

// WriteJSON writes a JSON response and returns any encoding error.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	if statusCode != http.StatusOK {
		w.WriteHeader(statusCode)
	}
	return json.NewEncoder(w).Encode(data)
}

// ErrorResponse writes a JSON error response and returns any encoding error.
func ErrorResponse(w http.ResponseWriter, statusCode int, errorCode, message string) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(errorBody{
		Error:   errorCode,
		Message: message,
	})
}

// WriteAppError maps an error onto the HTTP boundary: machine code, user
// message, and status from the error taxonomy. The internal diagnostic is
// exposed only when exposeInternal is set (development mode).
func WriteAppError(w http.ResponseWriter, err error, exposeInternal bool) error {
	appErr := apperrors.AsAppError(err)

	body := errorBody{
		Error:   string(appErr.Code),
		Message: appErr.Message,
	}
	if exposeInternal {
		body.Internal = appErr.Internal
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(appErr.Code.HTTPStatus())
	return json.NewEncoder(w).Encode(body)
}
