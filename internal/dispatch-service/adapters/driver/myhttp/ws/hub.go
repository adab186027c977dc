package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	messagebrokerdto "fleet-dispatch/internal/dispatch-service/core/domain/message_broker_dto"
	websocketdto "fleet-dispatch/internal/dispatch-service/core/domain/websocket_dto"
	"fleet-dispatch/internal/mylogger"

	"github.com/gorilla/websocket"
)

// websocketUpgrader upgrades incoming HTTP requests into persistent websocket connections.
var websocketUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// ClientList is a map used to help manage a map of clients
type ClientList map[*Client]bool

// Hub fans status events out to every connected dispatch console.
type Hub struct {
	clients ClientList
	sync.RWMutex
	log mylogger.Logger
}

func NewHub(log mylogger.Logger) *Hub {
	return &Hub{
		clients: make(ClientList),
		log:     log,
	}
}

func (h *Hub) WsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := h.log.Action("wsHandler")

		conn, err := websocketUpgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Error("cannot upgrade", err)
			return
		}

		client := NewClient(conn, h, r.Header.Get("X-UserId"))
		h.AddClient(client)
		log.Info("console connected", "user_id", client.userId)

		go client.ReadMessage()
		go client.WriteMessage()
	}
}

// Notify lets the hub sit behind ports.IStatusNotifier.
func (h *Hub) Notify(ctx context.Context, evt messagebrokerdto.StatusChanged) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	h.Broadcast(websocketdto.Event{Type: websocketdto.EventStatusChanged, Data: payload})
	return nil
}

// Broadcast never blocks: a client whose buffer is full misses the event.
func (h *Hub) Broadcast(msg websocketdto.Event) {
	h.RLock()
	defer h.RUnlock()

	for c := range h.clients {
		select {
		case c.egress <- msg:
		default:
			h.log.Action("broadcast").Warn("client too slow, event dropped", "user_id", c.userId)
		}
	}
}

func (h *Hub) AddClient(client *Client) {
	h.Lock()
	defer h.Unlock()

	h.clients[client] = true
}

func (h *Hub) RemoveClient(client *Client) {
	h.Lock()
	defer h.Unlock()

	if _, ok := h.clients[client]; ok {
		client.conn.Close()
		close(client.egress)
		delete(h.clients, client)
	}
}

func (h *Hub) Len() int {
	h.RLock()
	defer h.RUnlock()
	return len(h.clients)
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.Lock()
	defer h.Unlock()

	for c := range h.clients {
		c.conn.Close()
		close(c.egress)
		delete(h.clients, c)
	}
}
