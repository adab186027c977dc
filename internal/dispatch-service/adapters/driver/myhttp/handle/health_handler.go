package handle

import (
	"context"
	"net/http"
	"time"
)

type StoreProbe interface {
	IsAlive(ctx context.Context) error
}

type BrokerProbe interface {
	IsAlive() bool
}

type HealthHandler struct {
	store  StoreProbe
	broker BrokerProbe
}

// NewHealthHandler accepts a nil broker when messaging is disabled.
func NewHealthHandler(store StoreProbe, broker BrokerProbe) *HealthHandler {
	return &HealthHandler{
		store:  store,
		broker: broker,
	}
}

func (hh *HealthHandler) Health() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		res := map[string]string{"status": "ok", "database": "ok", "broker": "disabled"}
		code := http.StatusOK

		if err := hh.store.IsAlive(ctx); err != nil {
			res["database"] = err.Error()
			res["status"] = "degraded"
			code = http.StatusServiceUnavailable
		}
		if hh.broker != nil {
			res["broker"] = "ok"
			if !hh.broker.IsAlive() {
				res["broker"] = "down"
				res["status"] = "degraded"
				code = http.StatusServiceUnavailable
			}
		}

		jsonResponse(w, code, res)
	}
}
