package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"vanish/internal/domain"
	apperrors "vanish/pkg/errors"
	"vanish/pkg/logger"
)

// queueScoreScale leaves room for a per-millisecond sequence in the queue
// score: score = enqueue ms * queueScoreScale + n, where n counts enqueues
// within that millisecond. Beyond queueScoreScale-1 same-millisecond joins the
// tail shares one score and falls back to member order.
const queueScoreScale = 1000

// claimScript removes a queue entry and returns its score, or nil when the
// entry was already gone.
var claimScript = redis.NewScript(`
local score = redis.call('ZSCORE', KEYS[1], ARGV[1])
if not score then
	return false
end
redis.call('ZREM', KEYS[1], ARGV[1])
return score
`)

const (
	matchScanCount   = 100
	queueSequenceTTL = time.Second
)

// MatchmakingRepository holds the random-chat waiting queue, the companion
// session records and the short-lived match records.
type MatchmakingRepository interface {
	// Enqueue adds the session to the queue. A session already queued keeps
	// its original position.
	Enqueue(ctx context.Context, entry *domain.QueueEntry, horizon time.Duration) error
	// OldestExcept peeks the longest-waiting session other than sessionID.
	OldestExcept(ctx context.Context, sessionID string) (string, bool, error)
	// Claim removes a session from the queue and returns its score; false
	// means someone else got it first.
	Claim(ctx context.Context, sessionID string) (float64, bool, error)
	// Requeue puts a claimed session back at its original position.
	Requeue(ctx context.Context, sessionID string, score float64, horizon time.Duration) error
	IsQueued(ctx context.Context, sessionID string) (bool, error)
	// Session returns the queued session's record.
	Session(ctx context.Context, sessionID string) (*domain.QueueEntry, error)
	// Leave drops the queue entry and the session record.
	Leave(ctx context.Context, sessionID string) error
	// PruneExpired drops entries that joined before now-horizon.
	PruneExpired(ctx context.Context, horizon time.Duration) (int64, error)

	SaveMatch(ctx context.Context, roomID string, ttl time.Duration, sessionIDs ...string) error
	// ConsumeMatch reads and deletes a match record along with the session's
	// buffered broadcast history. Only one caller ever sees a given record.
	ConsumeMatch(ctx context.Context, sessionID string) (string, bool, error)
	// PurgeRoomMatches deletes every match record pointing at roomID.
	PurgeRoomMatches(ctx context.Context, roomID string) (int, error)
}

type matchmakingRepository struct {
	rdb *redis.Client
	log logger.Logger
}

func NewMatchmakingRepository(rdb *redis.Client, log logger.Logger) MatchmakingRepository {
	return &matchmakingRepository{rdb: rdb, log: log}
}

func (r *matchmakingRepository) Enqueue(ctx context.Context, entry *domain.QueueEntry, horizon time.Duration) error {
	if entry.JoinedAt.IsZero() {
		entry.JoinedAt = time.Now()
	}

	ms := entry.JoinedAt.UnixMilli()
	seqKey := QueueSequenceKey(ms)
	var incr *redis.IntCmd
	_, err := r.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, seqKey)
		pipe.Expire(ctx, seqKey, queueSequenceTTL)
		return nil
	})
	if err != nil {
		r.log.Error("Failed to allocate queue sequence", "error", err, "session_id", entry.SessionID)
		return apperrors.StoreUnavailable(err)
	}
	score := queueScore(ms, incr.Val())

	sessionKey := QueueSessionKey(entry.SessionID)
	_, err = r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZAddNX(ctx, QueueKey, redis.Z{Score: score, Member: entry.SessionID})
		pipe.HSet(ctx, sessionKey, "displayName", entry.DisplayName)
		pipe.HSetNX(ctx, sessionKey, "joinedAt", entry.JoinedAt.UnixMilli())
		pipe.Expire(ctx, sessionKey, horizon)
		pipe.Expire(ctx, QueueKey, horizon)
		return nil
	})
	if err != nil {
		r.log.Error("Failed to enqueue session", "error", err, "session_id", entry.SessionID)
		return apperrors.StoreUnavailable(err)
	}

	return nil
}

// queueScore orders entries by enqueue millisecond, then by arrival within it.
func queueScore(ms, n int64) float64 {
	if n > queueScoreScale {
		n = queueScoreScale
	}
	return float64(ms*queueScoreScale + n - 1)
}

func (r *matchmakingRepository) OldestExcept(ctx context.Context, sessionID string) (string, bool, error) {
	// The excluded session can hold at most one of the first two slots.
	ids, err := r.rdb.ZRange(ctx, QueueKey, 0, 1).Result()
	if err != nil {
		r.log.Error("Failed to peek queue", "error", err)
		return "", false, apperrors.StoreUnavailable(err)
	}
	for _, id := range ids {
		if id != sessionID {
			return id, true, nil
		}
	}
	return "", false, nil
}

func (r *matchmakingRepository) Claim(ctx context.Context, sessionID string) (float64, bool, error) {
	score, err := claimScript.Run(ctx, r.rdb, []string{QueueKey}, sessionID).Text()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		r.log.Error("Failed to claim queue entry", "error", err, "session_id", sessionID)
		return 0, false, apperrors.StoreUnavailable(err)
	}

	value, err := strconv.ParseFloat(score, 64)
	if err != nil {
		return 0, false, fmt.Errorf("parse queue score %q: %w", score, err)
	}
	return value, true, nil
}

func (r *matchmakingRepository) Requeue(ctx context.Context, sessionID string, score float64, horizon time.Duration) error {
	_, err := r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZAddNX(ctx, QueueKey, redis.Z{Score: score, Member: sessionID})
		pipe.Expire(ctx, QueueKey, horizon)
		return nil
	})
	if err != nil {
		r.log.Error("Failed to requeue session", "error", err, "session_id", sessionID)
		return apperrors.StoreUnavailable(err)
	}
	return nil
}

func (r *matchmakingRepository) IsQueued(ctx context.Context, sessionID string) (bool, error) {
	err := r.rdb.ZScore(ctx, QueueKey, sessionID).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		r.log.Error("Failed to check queue entry", "error", err, "session_id", sessionID)
		return false, apperrors.StoreUnavailable(err)
	}
	return true, nil
}

func (r *matchmakingRepository) Session(ctx context.Context, sessionID string) (*domain.QueueEntry, error) {
	fields, err := r.rdb.HGetAll(ctx, QueueSessionKey(sessionID)).Result()
	if err != nil {
		r.log.Error("Failed to get queue session", "error", err, "session_id", sessionID)
		return nil, apperrors.StoreUnavailable(err)
	}
	if len(fields) == 0 {
		return nil, apperrors.ErrInvalidSession
	}

	entry := &domain.QueueEntry{SessionID: sessionID, DisplayName: fields["displayName"]}
	if ms, err := strconv.ParseInt(fields["joinedAt"], 10, 64); err == nil {
		entry.JoinedAt = time.UnixMilli(ms)
	}
	return entry, nil
}

func (r *matchmakingRepository) Leave(ctx context.Context, sessionID string) error {
	_, err := r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZRem(ctx, QueueKey, sessionID)
		pipe.Del(ctx, QueueSessionKey(sessionID))
		return nil
	})
	if err != nil {
		r.log.Error("Failed to leave queue", "error", err, "session_id", sessionID)
		return apperrors.StoreUnavailable(err)
	}
	return nil
}

func (r *matchmakingRepository) PruneExpired(ctx context.Context, horizon time.Duration) (int64, error) {
	cutoff := time.Now().Add(-horizon).UnixMilli() * queueScoreScale
	n, err := r.rdb.ZRemRangeByScore(ctx, QueueKey, "-inf", "("+strconv.FormatInt(cutoff, 10)).Result()
	if err != nil {
		r.log.Error("Failed to prune queue", "error", err)
		return 0, apperrors.StoreUnavailable(err)
	}
	return n, nil
}

func (r *matchmakingRepository) SaveMatch(ctx context.Context, roomID string, ttl time.Duration, sessionIDs ...string) error {
	_, err := r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, sid := range sessionIDs {
			pipe.Set(ctx, MatchRecordKey(sid), roomID, ttl)
			pipe.Del(ctx, QueueSessionKey(sid))
		}
		return nil
	})
	if err != nil {
		r.log.Error("Failed to save match", "error", err, "room_id", roomID)
		return apperrors.StoreUnavailable(err)
	}
	return nil
}

func (r *matchmakingRepository) ConsumeMatch(ctx context.Context, sessionID string) (string, bool, error) {
	roomID, err := r.rdb.GetDel(ctx, MatchRecordKey(sessionID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		r.log.Error("Failed to consume match", "error", err, "session_id", sessionID)
		return "", false, apperrors.StoreUnavailable(err)
	}

	if err := r.rdb.Del(ctx, ChannelHistoryKey(sessionID)).Err(); err != nil {
		r.log.Warn("Failed to clear session history", "error", err, "session_id", sessionID)
	}

	return roomID, true, nil
}

func (r *matchmakingRepository) PurgeRoomMatches(ctx context.Context, roomID string) (int, error) {
	purged := 0
	iter := r.rdb.Scan(ctx, 0, MatchRecordPattern, matchScanCount).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		val, err := r.rdb.Get(ctx, key).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			r.log.Error("Failed to read match record", "error", err, "key", key)
			return purged, apperrors.StoreUnavailable(err)
		}
		if val != roomID {
			continue
		}
		if err := r.rdb.Del(ctx, key).Err(); err != nil {
			r.log.Error("Failed to delete match record", "error", err, "key", key)
			return purged, apperrors.StoreUnavailable(err)
		}
		purged++
	}
	if err := iter.Err(); err != nil {
		r.log.Error("Failed to scan match records", "error", err, "room_id", roomID)
		return purged, apperrors.StoreUnavailable(err)
	}

	return purged, nil
}
