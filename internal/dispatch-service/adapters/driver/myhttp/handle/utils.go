package handle

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"fleet-dispatch/internal/dispatch-service/core/myerrors"
	"fleet-dispatch/internal/mylogger"
)

// jsonResponse writes the given data as a JSON-encoded HTTP response.
func jsonResponse(w http.ResponseWriter, code int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if data == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(data)
}

// jsonError writes an error response as JSON with the specified HTTP status code.
func jsonError(w http.ResponseWriter, code int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err == nil {
		return
	}
	body := map[string]interface{}{
		"error": err.Error(),
		"code":  code,
	}
	if reason := errorCode(err); reason != "" {
		body["reason"] = reason
	}
	_ = json.NewEncoder(w).Encode(body)
}

// writeError maps a domain error onto its HTTP status.
func writeError(w http.ResponseWriter, log mylogger.Logger, err error) {
	code := errorStatus(err)
	if code == http.StatusInternalServerError {
		log.Error("request failed", err)
	}
	jsonError(w, code, err)
}

func errorStatus(err error) int {
	switch {
	case errors.Is(err, myerrors.ErrValidationFailed):
		return http.StatusBadRequest
	case errors.Is(err, myerrors.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, myerrors.ErrInvalidTransition),
		errors.Is(err, myerrors.ErrInvalidState),
		errors.Is(err, myerrors.ErrAlreadySet),
		errors.Is(err, myerrors.ErrVersionConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// errorCode is the machine-readable reason clients branch on.
func errorCode(err error) string {
	switch {
	case errors.Is(err, myerrors.ErrValidationFailed):
		return "validation_failed"
	case errors.Is(err, myerrors.ErrNotFound):
		return "not_found"
	case errors.Is(err, myerrors.ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, myerrors.ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, myerrors.ErrAlreadySet):
		return "already_set"
	case errors.Is(err, myerrors.ErrVersionConflict):
		return "version_conflict"
	case errors.Is(err, myerrors.ErrCouplingSkipped):
		return "coupling_skipped"
	}
	return ""
}

func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", myerrors.ErrValidationFailed, err)
	}
	return nil
}
