package domain

import (
	"time"
)

const (
	MinParticipants      = 2
	MaxParticipants      = 5
	PrivateRoomCapacity  = 2
	RandomRoomCapacity   = 2
	MaxSenderLength      = 100
	MaxMessageLength     = 1000
	MaxDisplayNameLength = 50
	DefaultDisplayName   = "Stranger"
)

// Room is the metadata record of an ephemeral room. Its presence in the store
// is the only proof that the room exists.
type Room struct {
	ID              string    `json:"id"`
	CreatedAt       time.Time `json:"created_at"`
	TTLMinutes      int       `json:"ttl_minutes"`
	MaxParticipants int       `json:"max_participants"`
	Random          bool      `json:"random"`
}

// RoomView is what a participant sees of a room they were admitted to.
type RoomView struct {
	ID              string `json:"roomId"`
	TTL             int64  `json:"ttl"`
	MaxParticipants int    `json:"maxParticipants"`
	Random          bool   `json:"random"`
}

func (r *Room) IsGroup() bool {
	return r.MaxParticipants > PrivateRoomCapacity
}
