package websocketdto

import "encoding/json"

const EventStatusChanged = "status_changed"

type Event struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}
