package httputil

import (
	"encoding/json"
	"net/http"

	dErrors "navmenus/pkg/domain-errors"
)

// WriteJSON writes v as a JSON body with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// InternalErrorMessage replaces the description of every internal error.
const InternalErrorMessage = "There was an error while processing the request. Check that the URL is correct and try again."

// WriteError translates err into a JSON error envelope. Internal errors carry
// a generic description instead of their own.
func WriteError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	code := dErrors.CodeInternal
	description := ""
	if de, ok := dErrors.As(err); ok {
		status = dErrors.ToHTTPStatus(de.Code)
		code = de.Code
		description = de.Message
	}

	if status == http.StatusInternalServerError {
		description = InternalErrorMessage
	}

	body := map[string]string{"error": string(code)}
	if description != "" {
		body["error_description"] = description
	}
	WriteJSON(w, status, body)
}
