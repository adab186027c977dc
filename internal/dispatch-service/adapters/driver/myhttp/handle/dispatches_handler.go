package handle

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"fleet-dispatch/internal/dispatch-service/core/domain/dto"
	"fleet-dispatch/internal/dispatch-service/core/domain/model"
	"fleet-dispatch/internal/dispatch-service/core/myerrors"
	"fleet-dispatch/internal/dispatch-service/core/ports"
	"fleet-dispatch/internal/mylogger"
)

type DispatchesHandler struct {
	coordinator ports.IDispatchCoordinator
	log         mylogger.Logger
}

func NewDispatchesHandler(c ports.IDispatchCoordinator, log mylogger.Logger) *DispatchesHandler {
	return &DispatchesHandler{
		coordinator: c,
		log:         log,
	}
}

func (dh *DispatchesHandler) GetDispatch() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := dh.coordinator.GetDispatch(r.Context(), r.PathValue("dispatch_id"))
		if err != nil {
			writeError(w, dh.log, err)
			return
		}

		jsonResponse(w, http.StatusOK, res)
	}
}

// TransitionDispatch answers 200 even when coupling was skipped; the warning
// travels in the body.
func (dh *DispatchesHandler) TransitionDispatch() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req := dto.TransitionRequest{}
		if err := decode(r, &req); err != nil {
			writeError(w, dh.log, err)
			return
		}

		res, err := dh.coordinator.TransitionDispatch(r.Context(), r.PathValue("dispatch_id"), model.DispatchStatus(req.TargetStatus), req.FromVersion)
		if err != nil {
			writeError(w, dh.log, err)
			return
		}

		out := dto.DispatchTransitionResponse{DispatchTransitionResult: res}
		if res.Warning != nil {
			out.Warning = res.Warning.Error()
			out.WarningCode = errorCode(res.Warning)
		}
		jsonResponse(w, http.StatusOK, out)
	}
}

func (dh *DispatchesHandler) AssignDriver() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req := dto.AssignDriverRequest{}
		if err := decode(r, &req); err != nil {
			writeError(w, dh.log, err)
			return
		}

		res, err := dh.coordinator.AssignDriver(r.Context(), r.PathValue("dispatch_id"), req.DriverID)
		if err != nil {
			writeError(w, dh.log, err)
			return
		}

		jsonResponse(w, http.StatusOK, res)
	}
}

func (dh *DispatchesHandler) RecordDispatchTime() http.HandlerFunc {
	return dh.recordTime(dh.coordinator.RecordDispatchTime)
}

func (dh *DispatchesHandler) RecordArrivalTime() http.HandlerFunc {
	return dh.recordTime(dh.coordinator.RecordArrivalTime)
}

func (dh *DispatchesHandler) recordTime(record func(context.Context, string, time.Time) (model.Dispatch, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req := dto.RecordTimeRequest{}
		if err := decode(r, &req); err != nil {
			writeError(w, dh.log, err)
			return
		}
		if req.Time.IsZero() {
			writeError(w, dh.log, errMissingTime)
			return
		}

		res, err := record(r.Context(), r.PathValue("dispatch_id"), req.Time)
		if err != nil {
			writeError(w, dh.log, err)
			return
		}

		jsonResponse(w, http.StatusOK, res)
	}
}

var errMissingTime = fmt.Errorf("%w: time is required", myerrors.ErrValidationFailed)
