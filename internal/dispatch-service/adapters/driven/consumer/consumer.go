package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	messagebrokerdto "fleet-dispatch/internal/dispatch-service/core/domain/message_broker_dto"
	"fleet-dispatch/internal/dispatch-service/core/domain/model"
	"fleet-dispatch/internal/dispatch-service/core/ports"
	"fleet-dispatch/internal/mylogger"

	"github.com/rabbitmq/amqp091-go"
)

const handleTimeout = 10 * time.Second

// resubscribeInterval paces attempts to consume again after the delivery channel closes.
var resubscribeInterval = 5 * time.Second

type IDriverStatusSource interface {
	ConsumeDriverStatus(ctx context.Context, queue string) (<-chan amqp091.Delivery, error)
}

// DriverStatus turns driver.status.* messages into dispatch transitions.
// It is an ordinary caller: on VersionConflict the message is dropped, not retried.
type DriverStatus struct {
	ctx         context.Context
	wg          *sync.WaitGroup
	log         mylogger.Logger
	queue       string
	consumer    IDriverStatusSource
	coordinator ports.IDispatchCoordinator
}

func New(
	ctx context.Context,
	wg *sync.WaitGroup,
	log mylogger.Logger,
	queue string,
	consumer IDriverStatusSource,
	coordinator ports.IDispatchCoordinator,
) *DriverStatus {
	return &DriverStatus{
		ctx:         ctx,
		wg:          wg,
		log:         log,
		queue:       queue,
		consumer:    consumer,
		coordinator: coordinator,
	}
}

func (n *DriverStatus) Run() error {
	chDriverStatus, err := n.consumer.ConsumeDriverStatus(n.ctx, n.queue)
	if err != nil {
		return err
	}

	n.wg.Add(1)
	go n.work(n.ctx, chDriverStatus, n.DriverStatusUpdate)

	return nil
}

// work handles deliveries until ctx is done. A closed delivery channel means
// the broker connection dropped, so it subscribes again instead of exiting.
func (n *DriverStatus) work(
	ctx context.Context,
	ch <-chan amqp091.Delivery,
	Do func(msg amqp091.Delivery) error,
) {
	log := n.log.Action("work")
	defer func() {
		log.Info("driver status worker is done")
		n.wg.Done()
	}()
	for {
		if !n.drain(ctx, ch, Do) {
			return
		}
		log.Warn("delivery channel closed, subscribing again", "queue", n.queue)

		ch = n.resubscribe(ctx)
		if ch == nil {
			return
		}
		log.Info("driver status consumer resubscribed", "queue", n.queue)
	}
}

// drain reports whether the channel closed while ctx was still live.
func (n *DriverStatus) drain(ctx context.Context, ch <-chan amqp091.Delivery, Do func(msg amqp091.Delivery) error) bool {
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return ctx.Err() == nil
			}
			_ = Do(msg)
		case <-ctx.Done():
			return false
		}
	}
}

// resubscribe retries until a new delivery channel is open. It returns nil once ctx is done.
func (n *DriverStatus) resubscribe(ctx context.Context) <-chan amqp091.Delivery {
	log := n.log.Action("resubscribe")
	t := time.NewTicker(resubscribeInterval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			ch, err := n.consumer.ConsumeDriverStatus(ctx, n.queue)
			if err == nil {
				return ch
			}
			log.Warn("cannot consume yet", "queue", n.queue, "error", err)
		}
	}
}

func (n *DriverStatus) DriverStatusUpdate(msg amqp091.Delivery) error {
	log := n.log.Action("DriverStatusUpdate")

	m := messagebrokerdto.DriverStatusUpdate{}
	if err := json.Unmarshal(msg.Body, &m); err != nil {
		log.Error("cannot unmarshal", err)
		msg.Nack(false, false)
		return err
	}
	log = log.With("dispatch_id", m.DispatchID, "status", m.Status)

	target := model.DispatchStatus(m.Status)
	if m.DispatchID == "" || !target.Valid() {
		err := fmt.Errorf("bad driver status message: dispatch_id=%q status=%q", m.DispatchID, m.Status)
		log.Error("cannot handle message", err)
		msg.Nack(false, false)
		return err
	}

	ctx, cancel := context.WithTimeout(n.ctx, handleTimeout)
	defer cancel()

	cur, err := n.coordinator.GetDispatch(ctx, m.DispatchID)
	if err != nil {
		log.Error("cannot load dispatch", err)
		msg.Nack(false, false)
		return err
	}

	res, err := n.coordinator.TransitionDispatch(ctx, m.DispatchID, target, cur.Version)
	if err != nil {
		log.Error("cannot transition dispatch", err)
		msg.Nack(false, false)
		return err
	}
	if res.Warning != nil {
		log.Warn("transition applied with warning", "warning", res.Warning.Error())
	}

	n.recordFields(ctx, log, m, target, res.Dispatch)

	return msg.Ack(false)
}

// recordFields copies the driver and timestamp carried by the message. The
// transition already stands, so failures here are only logged.
func (n *DriverStatus) recordFields(ctx context.Context, log mylogger.Logger, m messagebrokerdto.DriverStatusUpdate, target model.DispatchStatus, d model.Dispatch) {
	if target == model.DispatchDispatched && m.DriverID != "" && d.AssignedDriver == nil {
		if _, err := n.coordinator.AssignDriver(ctx, d.ID, m.DriverID); err != nil {
			log.Warn("driver not recorded", "error", err)
		}
	}
	if m.Timestamp.IsZero() {
		return
	}

	var err error
	switch target {
	case model.DispatchDispatched:
		_, err = n.coordinator.RecordDispatchTime(ctx, d.ID, m.Timestamp)
	case model.DispatchArrived:
		_, err = n.coordinator.RecordArrivalTime(ctx, d.ID, m.Timestamp)
	}
	if err != nil {
		log.Warn("timestamp not recorded", "error", err)
	}
}
