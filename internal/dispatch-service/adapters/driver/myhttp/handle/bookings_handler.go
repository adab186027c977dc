package handle

import (
	"net/http"

	"fleet-dispatch/internal/dispatch-service/core/domain/dto"
	"fleet-dispatch/internal/dispatch-service/core/domain/model"
	"fleet-dispatch/internal/dispatch-service/core/ports"
	"fleet-dispatch/internal/mylogger"
)

type BookingsHandler struct {
	coordinator ports.IDispatchCoordinator
	log         mylogger.Logger
}

func NewBookingsHandler(c ports.IDispatchCoordinator, log mylogger.Logger) *BookingsHandler {
	return &BookingsHandler{
		coordinator: c,
		log:         log,
	}
}

func (bh *BookingsHandler) CreateBooking() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req := dto.CreateBookingRequest{}
		if err := decode(r, &req); err != nil {
			writeError(w, bh.log, err)
			return
		}
		if req.UserID == "" {
			req.UserID = r.Header.Get("X-UserId")
		}

		res, err := bh.coordinator.CreateBooking(r.Context(), req)
		if err != nil {
			writeError(w, bh.log, err)
			return
		}

		jsonResponse(w, http.StatusCreated, res)
	}
}

func (bh *BookingsHandler) GetBooking() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := bh.coordinator.GetBooking(r.Context(), r.PathValue("booking_id"))
		if err != nil {
			writeError(w, bh.log, err)
			return
		}

		jsonResponse(w, http.StatusOK, res)
	}
}

func (bh *BookingsHandler) TransitionBooking() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req := dto.TransitionRequest{}
		if err := decode(r, &req); err != nil {
			writeError(w, bh.log, err)
			return
		}

		res, err := bh.coordinator.TransitionBooking(r.Context(), r.PathValue("booking_id"), model.BookingStatus(req.TargetStatus), req.FromVersion)
		if err != nil {
			writeError(w, bh.log, err)
			return
		}

		out := dto.BookingTransitionResponse{BookingTransitionResult: res}
		if res.Warning != nil {
			out.Warning = res.Warning.Error()
		}
		jsonResponse(w, http.StatusOK, out)
	}
}

func (bh *BookingsHandler) CreateDispatch() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := bh.coordinator.CreateDispatch(r.Context(), r.PathValue("booking_id"))
		if err != nil {
			writeError(w, bh.log, err)
			return
		}

		jsonResponse(w, http.StatusCreated, res)
	}
}
