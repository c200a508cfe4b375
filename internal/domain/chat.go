package domain

// Message is stored JSON-encoded in the room's message list. Text holds the
// ciphertext at rest; Token never leaves the server unless it belongs to the viewer.
type Message struct {
	ID        string `json:"id"`
	Sender    string `json:"sender"`
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp"` // unix milliseconds
	RoomID    string `json:"roomId"`
	Token     string `json:"token,omitempty"`
}

type TypingState struct {
	Sender   string `json:"sender"`
	IsTyping bool   `json:"isTyping"`
}
