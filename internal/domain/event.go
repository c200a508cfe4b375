package domain

import (
	"encoding/json"
)

const (
	EventChatMessage   = "chat.message"
	EventChatTyping    = "chat.typing"
	EventChatDestroy   = "chat.destroy"
	EventRandomMatched = "random.matched"
)

// Event is one broadcast on a room or session channel.
type Event struct {
	ID        string          `json:"id"`
	Channel   string          `json:"channel"`
	Name      string          `json:"event"`
	Data      json.RawMessage `json:"data"`
	Timestamp int64           `json:"timestamp"` // unix milliseconds
}

type DestroyPayload struct {
	IsDestroyed bool `json:"isDestroyed"`
}

type MatchedPayload struct {
	RoomID  string `json:"roomId"`
	Partner string `json:"partner,omitempty"`
}
