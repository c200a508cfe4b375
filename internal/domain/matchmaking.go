package domain

import (
	"time"
)

type QueueState string

const (
	QueueStateQueued     QueueState = "queued"
	QueueStateMatched    QueueState = "matched"
	QueueStateNotInQueue QueueState = "not_in_queue"
)

// QueueEntry is a session waiting for a random partner.
type QueueEntry struct {
	SessionID   string    `json:"session_id"`
	DisplayName string    `json:"display_name"`
	JoinedAt    time.Time `json:"joined_at"`
}

type MatchStatus struct {
	Status QueueState `json:"status"`
	RoomID string     `json:"roomId,omitempty"`
	// Partner is the other side's display name, known only to the session
	// that completed the match.
	Partner string `json:"partner,omitempty"`
}

func Queued() *MatchStatus {
	return &MatchStatus{Status: QueueStateQueued}
}

func Matched(roomID string) *MatchStatus {
	return &MatchStatus{Status: QueueStateMatched, RoomID: roomID}
}

func NotInQueue() *MatchStatus {
	return &MatchStatus{Status: QueueStateNotInQueue}
}
