package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"
)

type Event struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type StatusChanged struct {
	EntityType string `json:"entity_type"`
	EntityID   string `json:"entity_id"`
	FromStatus string `json:"from_status"`
	ToStatus   string `json:"to_status"`
	Version    int64  `json:"version"`
	Cause      string `json:"cause"`
}

// WebSocketClient tails the status_changed stream of the dispatch service.
type WebSocketClient struct {
	conn   *websocket.Conn
	ctx    context.Context
	logger *Logger
}

func NewWebSocketClient(ctx context.Context, logger *Logger) *WebSocketClient {
	return &WebSocketClient{
		ctx:    ctx,
		logger: logger,
	}
}

func (w *WebSocketClient) Connect(baseURL, token string) error {
	u := strings.Replace(baseURL, "http", "ws", 1) + WSEventsPath + "?access_token=" + url.QueryEscape(token)

	conn, _, err := websocket.DefaultDialer.DialContext(w.ctx, u, nil)
	if err != nil {
		return fmt.Errorf("connecting to websocket: %w", err)
	}

	w.conn = conn
	w.logger.WebSocket("connected to %s", baseURL+WSEventsPath)
	return nil
}

func (w *WebSocketClient) Close() error {
	if w.conn != nil {
		return w.conn.Close()
	}
	return nil
}

// ReadEvents blocks until the connection drops or ctx is cancelled.
func (w *WebSocketClient) ReadEvents(handler func(StatusChanged)) error {
	go func() {
		<-w.ctx.Done()
		w.conn.Close()
	}()

	for {
		_, payload, err := w.conn.ReadMessage()
		if err != nil {
			if w.ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("reading message: %w", err)
		}

		var evt Event
		if err := json.Unmarshal(payload, &evt); err != nil {
			w.logger.Error("bad event: %v", err)
			continue
		}
		var sc StatusChanged
		if err := json.Unmarshal(evt.Data, &sc); err != nil {
			w.logger.Error("bad %s payload: %v", evt.Type, err)
			continue
		}
		handler(sc)
	}
}
