package ports

import (
	"context"

	messagebrokerdto "fleet-dispatch/internal/dispatch-service/core/domain/message_broker_dto"
	websocketdto "fleet-dispatch/internal/dispatch-service/core/domain/websocket_dto"
)

// IStatusNotifier is told about every committed status change. Delivery is
// best effort; a failure never rolls back the write.
type IStatusNotifier interface {
	Notify(ctx context.Context, evt messagebrokerdto.StatusChanged) error
}

type INotifyWebsocket interface {
	Broadcast(msg websocketdto.Event)
}
