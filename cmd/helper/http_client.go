package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

type HTTPClient struct {
	client  *http.Client
	baseURL string
	token   string
	logger  *Logger
}

func NewHTTPClient(baseURL, token string, logger *Logger) *HTTPClient {
	return &HTTPClient{
		client:  &http.Client{Timeout: 10 * time.Second},
		baseURL: baseURL,
		token:   token,
		logger:  logger,
	}
}

// APIError is a non-2xx answer from the dispatch service.
type APIError struct {
	Status int
	Body   ErrorResponse
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%d %s: %s", e.Status, e.Body.Reason, e.Body.Error)
}

// Do sends body as JSON and decodes a 2xx answer into out.
func (h *HTTPClient) Do(method, path string, body, out interface{}) error {
	time.Sleep(HTTPRequestDelay)

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return fmt.Errorf("marshaling request body: %w", err)
		}
	}

	req, err := http.NewRequest(method, h.baseURL+path, &buf)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+h.token)

	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}
	h.logger.HTTP("%s %s -> %d", method, path, resp.StatusCode)

	if resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode}
		_ = json.Unmarshal(data, &apiErr.Body)
		return apiErr
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(data, out)
}

// Request/Response models
type CreateBookingRequest struct {
	Source      string  `json:"source"`
	Destination string  `json:"destination"`
	ServiceType string  `json:"service_type"`
	Price       float64 `json:"price"`
}

type TransitionRequest struct {
	TargetStatus string `json:"target_status"`
	FromVersion  int64  `json:"from_version"`
}

type AssignDriverRequest struct {
	DriverID string `json:"driver_id"`
}

type RecordTimeRequest struct {
	Time time.Time `json:"time"`
}

type Booking struct {
	ID      string `json:"id"`
	Status  string `json:"status"`
	Version int64  `json:"version"`
}

type Dispatch struct {
	ID             string     `json:"id"`
	BookingID      string     `json:"booking_id"`
	Status         string     `json:"status"`
	AssignedDriver *string    `json:"assigned_driver"`
	DispatchTime   *time.Time `json:"dispatch_time"`
	ArrivalTime    *time.Time `json:"arrival_time"`
	Version        int64      `json:"version"`
}

type BookingTransitionResponse struct {
	Booking             Booking    `json:"booking"`
	CancelledDispatches []Dispatch `json:"cancelled_dispatches"`
	Warning             string     `json:"warning"`
}

type DispatchTransitionResponse struct {
	Dispatch    Dispatch `json:"dispatch"`
	Booking     *Booking `json:"booking"`
	Warning     string   `json:"warning"`
	WarningCode string   `json:"warning_code"`
}

type ErrorResponse struct {
	Error  string `json:"error"`
	Code   int    `json:"code"`
	Reason string `json:"reason"`
}
