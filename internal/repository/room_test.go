package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"vanish/internal/domain"
	apperrors "vanish/pkg/errors"
)

func TestRoomRepository_CreateAndGet(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	mr, repos := newTestRepositories(t)

	room := &domain.Room{TTLMinutes: 5, MaxParticipants: 3}
	req.NoError(repos.Room.Create(ctx, room))
	req.Len(room.ID, IDLength)

	req.True(mr.Exists(RoomMetaKey(room.ID)))
	req.Equal(5*time.Minute, mr.TTL(RoomMetaKey(room.ID)))

	got, err := repos.Room.Get(ctx, room.ID)
	req.NoError(err)
	req.Equal(room.ID, got.ID)
	req.Equal(5, got.TTLMinutes)
	req.Equal(3, got.MaxParticipants)
	req.False(got.Random)
	req.Equal(room.CreatedAt.UnixMilli(), got.CreatedAt.UnixMilli())
}

func TestRoomRepository_GetMissing(t *testing.T) {
	req := require.New(t)
	_, repos := newTestRepositories(t)

	_, err := repos.Room.Get(context.Background(), "nope")
	req.ErrorIs(err, apperrors.ErrRoomNotFound)

	ttl, err := repos.Room.TTL(context.Background(), "nope")
	req.NoError(err)
	req.Zero(ttl)
}

func TestRoomRepository_GetDefaultsCapacity(t *testing.T) {
	req := require.New(t)
	mr, repos := newTestRepositories(t)

	mr.HSet(RoomMetaKey("legacy"), "createdAt", "1700000000000")

	got, err := repos.Room.Get(context.Background(), "legacy")
	req.NoError(err)
	req.Equal(domain.PrivateRoomCapacity, got.MaxParticipants)
}

func TestRoomRepository_TTL(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	mr, repos := newTestRepositories(t)

	room := &domain.Room{TTLMinutes: 2, MaxParticipants: 2}
	req.NoError(repos.Room.Create(ctx, room))

	mr.FastForward(30 * time.Second)
	ttl, err := repos.Room.TTL(ctx, room.ID)
	req.NoError(err)
	req.Equal(90*time.Second, ttl)

	// Expired rooms and unknown rooms look the same
	mr.FastForward(2 * time.Minute)
	ttl, err = repos.Room.TTL(ctx, room.ID)
	req.NoError(err)
	req.Zero(ttl)

	ttl, err = repos.Room.TTL(ctx, "never-existed")
	req.NoError(err)
	req.Zero(ttl)
}

func TestRoomRepository_TouchPropagatesRemainingTTL(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	mr, repos := newTestRepositories(t)

	room := &domain.Room{TTLMinutes: 10, MaxParticipants: 2}
	req.NoError(repos.Room.Create(ctx, room))

	// Given a dependent key written later with no expiry
	mr.FastForward(4 * time.Minute)
	_, err := mr.Lpush(RoomMessagesKey(room.ID), "m")
	req.NoError(err)

	// When the room TTL is propagated
	ttl, err := repos.Room.Touch(ctx, room.ID, RoomDependentKeys(room.ID)...)
	req.NoError(err)

	// Then the dependent key never outlives the room
	req.Equal(6*time.Minute, ttl)
	req.Equal(6*time.Minute, mr.TTL(RoomMessagesKey(room.ID)))
	// and keys that do not exist are not created
	req.False(mr.Exists(RoomTokensKey(room.ID)))
}

func TestRoomRepository_TouchMissingRoom(t *testing.T) {
	req := require.New(t)
	mr, repos := newTestRepositories(t)

	_, err := mr.SetAdd(RoomTokensKey("gone"), "tok")
	req.NoError(err)

	_, err = repos.Room.Touch(context.Background(), "gone", RoomTokensKey("gone"))
	req.ErrorIs(err, apperrors.ErrRoomNotFound)
	req.Zero(mr.TTL(RoomTokensKey("gone")))
}

func TestRoomRepository_Purge(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	mr, repos := newTestRepositories(t)

	room := &domain.Room{TTLMinutes: 10, MaxParticipants: 2}
	req.NoError(repos.Room.Create(ctx, room))
	_, _ = mr.Lpush(RoomMessagesKey(room.ID), "m")
	_, _ = mr.SetAdd(RoomTokensKey(room.ID), "tok")
	_, _ = mr.Lpush(ChannelHistoryKey(room.ID), "e")

	req.NoError(repos.Room.Purge(ctx, room.ID))

	for _, key := range RoomKeyFamily(room.ID) {
		req.False(mr.Exists(key), key)
	}
}
