package ports

import (
	"context"

	messagebrokerdto "fleet-dispatch/internal/dispatch-service/core/domain/message_broker_dto"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	DriverStatus = "driver.status.*"
)

type IDispatchBroker interface {
	Close() error
	IsAlive() bool
	PushStatusChanged(ctx context.Context, msg messagebrokerdto.StatusChanged) error

	ConsumeDriverStatus(ctx context.Context, queue string) (<-chan amqp.Delivery, error)
}
