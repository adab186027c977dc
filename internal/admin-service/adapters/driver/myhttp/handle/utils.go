package handle

import (
	"encoding/json"
	"errors"
	"net/http"

	"fleet-dispatch/internal/admin-service/core/myerrors"
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
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"error": err.Error(),
		"code":  code,
	})
}

func writeError(w http.ResponseWriter, log mylogger.Logger, err error) {
	if errors.Is(err, myerrors.ErrValidationFailed) {
		jsonError(w, http.StatusBadRequest, err)
		return
	}
	log.Error("request failed", err)
	jsonError(w, http.StatusInternalServerError, err)
}
