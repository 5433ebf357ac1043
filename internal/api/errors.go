package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"deskloop/internal/lifecycle"
)

// writeJSON marshals v as the response body with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes a {"error": msg} body at status.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeLifecycleError maps the Suggestion Lifecycle Manager's sentinel
// errors to the HTTP statuses spec §7 requires: NotFoundError -> 404,
// InvalidTransitionError -> 409. Anything else is a 500.
func writeLifecycleError(w http.ResponseWriter, err error) {
	var notFound *lifecycle.NotFoundError
	var invalidTransition *lifecycle.InvalidTransitionError
	switch {
	case errors.As(err, &notFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &invalidTransition):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func decodeJSON(r *http.Request, v any) error {
	if r.Body == nil {
		return errors.New("empty request body")
	}
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}
