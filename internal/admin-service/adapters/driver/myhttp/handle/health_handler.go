package handle

import (
	"context"
	"net/http"
	"time"
)

type DBProbe interface {
	IsAlive(ctx context.Context) error
}

type HealthHandler struct {
	db DBProbe
}

func NewHealthHandler(db DBProbe) *HealthHandler {
	return &HealthHandler{db: db}
}

func (hh *HealthHandler) Health() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := hh.db.IsAlive(ctx); err != nil {
			jsonResponse(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded", "database": err.Error()})
			return
		}
		jsonResponse(w, http.StatusOK, map[string]string{"status": "ok", "database": "ok"})
	}
}
