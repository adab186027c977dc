package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Simulator walks one booking through its lifecycle the way a dispatcher
// console and a driver app would.
type Simulator struct {
	cfg        Config
	httpClient *HTTPClient
	amqpCh     *amqp.Channel
	logger     *Logger
	ctx        context.Context
}

func NewSimulator(ctx context.Context, cfg Config, logger *Logger) *Simulator {
	return &Simulator{
		cfg:        cfg,
		httpClient: NewHTTPClient(cfg.BaseURL, cfg.Token, logger),
		logger:     logger,
		ctx:        ctx,
	}
}

// ConnectBroker opens the channel used to publish driver.status.* messages.
func (s *Simulator) ConnectBroker() (func(), error) {
	conn, err := amqp.Dial(s.cfg.AmqpURL)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(s.cfg.Exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}
	s.amqpCh = ch
	s.logger.Broker("publishing to exchange %s", s.cfg.Exchange)
	return func() {
		ch.Close()
		conn.Close()
	}, nil
}

func (s *Simulator) Run() error {
	var booking Booking
	err := s.httpClient.Do("POST", BookingsPath, CreateBookingRequest{
		Source:      "Depot 4",
		Destination: "Northern Terminal",
		ServiceType: s.cfg.ServiceType,
		Price:       s.cfg.Price,
	}, &booking)
	if err != nil {
		return fmt.Errorf("create booking: %w", err)
	}
	s.logger.Info("booking %s created (v%d)", booking.ID, booking.Version)

	var confirmed BookingTransitionResponse
	if err := s.httpClient.Do("POST", fmt.Sprintf(BookingTransition, booking.ID), TransitionRequest{"confirmed", booking.Version}, &confirmed); err != nil {
		return fmt.Errorf("confirm booking: %w", err)
	}

	var dispatch Dispatch
	if err := s.httpClient.Do("POST", fmt.Sprintf(BookingDispatchPath, booking.ID), nil, &dispatch); err != nil {
		return fmt.Errorf("create dispatch: %w", err)
	}
	s.logger.Info("dispatch %s created for booking %s", dispatch.ID, booking.ID)

	if s.cfg.Cancel {
		return s.cancel(confirmed.Booking)
	}

	for _, status := range []string{"dispatched", "in_transit", "arrived", "completed"} {
		if err := s.sleep(StepDelay); err != nil {
			return err
		}
		if s.amqpCh != nil {
			if err := s.publish(dispatch.ID, status); err != nil {
				return err
			}
			continue
		}
		if dispatch, err = s.step(dispatch, status); err != nil {
			return err
		}
	}

	if err := s.sleep(EventSettleDelay); err != nil {
		return err
	}
	var final Booking
	if err := s.httpClient.Do("GET", fmt.Sprintf(BookingPath, booking.ID), nil, &final); err != nil {
		return fmt.Errorf("read booking: %w", err)
	}
	s.logger.Info("booking %s finished as %s (v%d)", final.ID, final.Status, final.Version)
	return nil
}

// step drives one dispatch transition over HTTP and records the fields a
// driver app would report alongside it.
func (s *Simulator) step(d Dispatch, status string) (Dispatch, error) {
	if status == "dispatched" {
		if err := s.httpClient.Do("POST", fmt.Sprintf(DispatchDriverPath, d.ID), AssignDriverRequest{s.cfg.DriverID}, &d); err != nil {
			return d, fmt.Errorf("assign driver: %w", err)
		}
	}

	var res DispatchTransitionResponse
	if err := s.httpClient.Do("POST", fmt.Sprintf(DispatchTransition, d.ID), TransitionRequest{status, d.Version}, &res); err != nil {
		return d, fmt.Errorf("transition to %s: %w", status, err)
	}
	d = res.Dispatch
	if res.Warning != "" {
		s.logger.Warn("%s: %s (%s)", status, res.Warning, res.WarningCode)
	}
	if res.Booking != nil {
		s.logger.Info("booking coupled to %s", res.Booking.Status)
	}

	var path string
	switch status {
	case "dispatched":
		path = DispatchTimePath
	case "arrived":
		path = DispatchArrivalPath
	default:
		return d, nil
	}
	if err := s.httpClient.Do("POST", fmt.Sprintf(path, d.ID), RecordTimeRequest{time.Now().UTC()}, &d); err != nil {
		return d, fmt.Errorf("record %s time: %w", status, err)
	}
	return d, nil
}

func (s *Simulator) publish(dispatchID, status string) error {
	body, err := json.Marshal(map[string]interface{}{
		"dispatch_id": dispatchID,
		"driver_id":   s.cfg.DriverID,
		"status":      status,
		"timestamp":   time.Now().UTC(),
	})
	if err != nil {
		return err
	}

	key := fmt.Sprintf(DriverStatusRouteFmt, status)
	err = s.amqpCh.PublishWithContext(s.ctx, s.cfg.Exchange, key, false, false, amqp.Publishing{
		ContentType: "application/json",
		Body:        body,
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", key, err)
	}
	s.logger.Broker("published %s for %s", key, dispatchID)
	return nil
}

func (s *Simulator) cancel(b Booking) error {
	var res BookingTransitionResponse
	if err := s.httpClient.Do("POST", fmt.Sprintf(BookingTransition, b.ID), TransitionRequest{"cancelled", b.Version}, &res); err != nil {
		return fmt.Errorf("cancel booking: %w", err)
	}
	s.logger.Info("booking %s cancelled, %d dispatch(es) cascaded", b.ID, len(res.CancelledDispatches))
	if res.Warning != "" {
		s.logger.Warn("cascade: %s", res.Warning)
	}
	return nil
}

func (s *Simulator) sleep(d time.Duration) error {
	select {
	case <-s.ctx.Done():
		return s.ctx.Err()
	case <-time.After(d):
		return nil
	}
}
