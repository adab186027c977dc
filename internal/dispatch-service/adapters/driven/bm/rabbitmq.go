package bm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"fleet-dispatch/internal/config"
	messagebroker "fleet-dispatch/internal/dispatch-service/core/domain/message_broker_dto"
	"fleet-dispatch/internal/dispatch-service/core/ports"
	"fleet-dispatch/internal/mylogger"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	DriverStatusQueue = "dispatch_driver_status"
	reconnInterval    = 10
)

type RabbitMQ struct {
	ctx          context.Context
	cfg          config.RabbitMqconfig
	mylog        mylogger.Logger
	conn         *amqp.Connection
	ch           *amqp.Channel
	reconnecting bool
	mu           *sync.Mutex
}

// create RabbitMQ adapter
func New(ctx context.Context, rabbitmqCfg config.RabbitMqconfig, mylog mylogger.Logger) (*RabbitMQ, error) {
	r := &RabbitMQ{
		ctx:          ctx,
		cfg:          rabbitmqCfg,
		mylog:        mylog,
		mu:           &sync.Mutex{},
		reconnecting: false,
	}
	if err := r.connect(); err != nil {
		return nil, fmt.Errorf("failed to connect to rabbitmq: %v", err)
	}
	return r, nil
}

// Notify publishes the event so it can sit behind ports.IStatusNotifier.
func (r *RabbitMQ) Notify(ctx context.Context, evt messagebroker.StatusChanged) error {
	return r.PushStatusChanged(ctx, evt)
}

func (r *RabbitMQ) PushStatusChanged(ctx context.Context, msg messagebroker.StatusChanged) error {
	mylog := r.mylog.Action("pushStatusChanged")

	r.mu.Lock()
	conn, ch := r.conn, r.ch
	r.mu.Unlock()

	if conn == nil || conn.IsClosed() {
		mylog.Error("connection between rabbitmq is closed", fmt.Errorf("closed conn"))
		go r.reconnect(r.ctx)
		return errors.New("connection is closed")
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	confirm, err := ch.PublishWithDeferredConfirmWithContext(ctx, r.cfg.Exchange, msg.RoutingKey(), false, false, amqp.Publishing{
		ContentType:   "application/json",
		DeliveryMode:  amqp.Persistent,
		MessageId:     msg.EventID,
		CorrelationId: msg.BookingID,
		Timestamp:     msg.OccurredAt,
		Body:          body,
	})
	if err != nil {
		return err
	}

	ok, err := confirm.WaitContext(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("broker rejected %s", msg.RoutingKey())
	}
	return nil
}

func (r *RabbitMQ) ConsumeDriverStatus(ctx context.Context, queue string) (<-chan amqp.Delivery, error) {
	r.mu.Lock()
	ch := r.ch
	r.mu.Unlock()

	if ch == nil || ch.IsClosed() {
		return nil, errors.New("channel is closed")
	}

	q, err := ch.QueueDeclare(queue, true, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("declare queue %s: %w", queue, err)
	}
	if err := ch.QueueBind(q.Name, ports.DriverStatus, r.cfg.Exchange, false, nil); err != nil {
		return nil, fmt.Errorf("bind queue %s: %w", queue, err)
	}
	return ch.ConsumeWithContext(ctx, q.Name, "dispatch-service", false, false, false, false, nil)
}

func (r *RabbitMQ) IsAlive() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.conn == nil || r.conn.IsClosed() {
		return false
	}
	if r.ch == nil || r.ch.IsClosed() {
		return false
	}

	return true
}

func (r *RabbitMQ) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.ch != nil && !r.ch.IsClosed() {
		if err := r.ch.Close(); err != nil {
			return fmt.Errorf("close rabbitmq channel: %v", err)
		}
	}

	if r.conn != nil && !r.conn.IsClosed() {
		if err := r.conn.Close(); err != nil {
			return fmt.Errorf("close rabbitmq connection: %v", err)
		}
	}
	return nil
}

// connect dials, opens a confirming channel and declares the topic exchange.
func (r *RabbitMQ) connect() error {
	conn, err := amqp.Dial(fmt.Sprintf("amqp://%v:%v@%v:%v/%v",
		r.cfg.User,
		r.cfg.Password,
		r.cfg.Host,
		r.cfg.Port,
		r.cfg.VHost,
	))
	if err != nil {
		return err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return err
	}

	if err := ch.Confirm(false); err != nil {
		conn.Close()
		return err
	}

	if err := ch.ExchangeDeclare(r.cfg.Exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		conn.Close()
		return err
	}

	r.mu.Lock()
	r.conn = conn
	r.ch = ch
	r.mu.Unlock()

	go r.watch(conn.NotifyClose(make(chan *amqp.Error, 1)))
	return nil
}

// watch starts reconnecting as soon as the server or network drops the
// connection, so consumers can resubscribe without waiting for a publish.
func (r *RabbitMQ) watch(closed <-chan *amqp.Error) {
	err, ok := <-closed
	if !ok || err == nil {
		// graceful Close
		return
	}
	r.mylog.Action("mb_connection_lost").Error("rabbitmq connection closed", err)
	r.reconnect(r.ctx)
}

func (r *RabbitMQ) reconnect(ctx context.Context) {
	r.mu.Lock()
	if r.reconnecting {
		r.mu.Unlock()
		return
	}
	r.reconnecting = true
	r.mu.Unlock()

	t := time.NewTicker(time.Second * reconnInterval)
	mylog := r.mylog.Action("mb_reconnecting")
	defer func() {
		t.Stop()
		r.mu.Lock()
		r.reconnecting = false
		r.mu.Unlock()
	}()

	for {
		select {
		case <-t.C:
			if err := r.connect(); err == nil {
				mylog.Action("mb_reconnection_completed").Info("Successfully reconnected!")
				return
			}
			mylog.Info("rabbitmq failed to reconnect")

		case <-ctx.Done():
			return
		}
	}
}
