package repository

import (
	"fmt"
)

// Redis key templates
const (
	RoomMetaKeyPrefix     = "meta:%s"
	RoomTokensKeyPrefix   = "room:%s:tokens"
	RoomMessagesKeyPrefix = "messages:%s"
	ChannelHistoryPrefix  = "history:%s"

	RateLimitKeyPrefix      = "ratelimit:%s"
	RateLimitBlockKeyPrefix = "ratelimit:block:%s"

	QueueKey            = "random:queue"
	QueueSequencePrefix = "random:queue:seq:%d"
	QueueSessionPrefix  = "random:session:%s"
	MatchRecordPrefix   = "random:match:%s"
	MatchRecordPattern  = "random:match:*"
	MatchmakingLockKey  = "random:lock"

	StatsTotalRoomsKey    = "stats:total_rooms"
	StatsTotalMessagesKey = "stats:total_messages"
	StatsTotalVanishedKey = "stats:total_vanished"
)

func RoomMetaKey(roomID string) string { return fmt.Sprintf(RoomMetaKeyPrefix, roomID) }
func RoomTokensKey(roomID string) string { return fmt.Sprintf(RoomTokensKeyPrefix, roomID) }
func RoomMessagesKey(roomID string) string { return fmt.Sprintf(RoomMessagesKeyPrefix, roomID) }

// ChannelHistoryKey is the backing list of a broadcast channel; channel is a
// room ID or a matchmaking session ID.
func ChannelHistoryKey(channel string) string { return fmt.Sprintf(ChannelHistoryPrefix, channel) }

func RateLimitKey(client string) string { return fmt.Sprintf(RateLimitKeyPrefix, client) }
func RateLimitBlockKey(client string) string { return fmt.Sprintf(RateLimitBlockKeyPrefix, client) }

func QueueSessionKey(sessionID string) string { return fmt.Sprintf(QueueSessionPrefix, sessionID) }
func MatchRecordKey(sessionID string) string { return fmt.Sprintf(MatchRecordPrefix, sessionID) }

// QueueSequenceKey counts enqueues within one millisecond.
func QueueSequenceKey(ms int64) string { return fmt.Sprintf(QueueSequencePrefix, ms) }

// RoomKeyFamily lists every key owned by a room, metadata first.
func RoomKeyFamily(roomID string) []string {
	return []string{
		RoomMetaKey(roomID),
		RoomMessagesKey(roomID),
		RoomTokensKey(roomID),
		ChannelHistoryKey(roomID),
	}
}

// RoomDependentKeys lists the keys whose TTL follows the room record.
func RoomDependentKeys(roomID string) []string {
	return RoomKeyFamily(roomID)[1:]
}
