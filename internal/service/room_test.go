package service

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"vanish/internal/domain"
	"vanish/internal/mocks"
	"vanish/internal/repository"
	apperrors "vanish/pkg/errors"
)

func TestRoomService_CreateDefaults(t *testing.T) {
	tests := []struct {
		name     string
		input    CreateRoomInput
		wantTTL  time.Duration
		wantSize int
	}{
		{"private default", CreateRoomInput{}, 10 * time.Minute, 2},
		{"group default", CreateRoomInput{MaxParticipants: 4}, 15 * time.Minute, 4},
		{"explicit", CreateRoomInput{TTLMinutes: 5, MaxParticipants: 5}, 5 * time.Minute, 5},
		{"bounds", CreateRoomInput{TTLMinutes: 20, MaxParticipants: 2}, 20 * time.Minute, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			env := newTestEnv(t)

			room, err := env.services().Room.Create(context.Background(), tt.input)
			req.NoError(err)
			req.Equal(tt.wantSize, room.MaxParticipants)
			req.False(room.Random)
			req.Equal(tt.wantTTL, env.mr.TTL(repository.RoomMetaKey(room.ID)))
		})
	}
}

func TestRoomService_CreateRejectsInvalidInput(t *testing.T) {
	inputs := []CreateRoomInput{
		{MaxParticipants: 1},
		{MaxParticipants: 6},
		{TTLMinutes: 21},
		{TTLMinutes: -1},
	}

	for _, input := range inputs {
		env := newTestEnv(t)
		_, err := env.services().Room.Create(context.Background(), input)
		require.Error(t, err)
		require.Equal(t, http.StatusBadRequest, apperrors.HTTPStatusFromError(err))
	}
}

func TestRoomService_CreateRandom(t *testing.T) {
	req := require.New(t)
	env := newTestEnv(t)

	room, err := env.services().Room.CreateRandom(context.Background())
	req.NoError(err)
	req.True(room.Random)
	req.Equal(domain.RandomRoomCapacity, room.MaxParticipants)
	req.Equal(10*time.Minute, env.mr.TTL(repository.RoomMetaKey(room.ID)))

	stats, err := env.repos.Stats.Get(context.Background())
	req.NoError(err)
	req.EqualValues(1, stats.TotalRooms)
}

func TestRoomService_TTL(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	env := newTestEnv(t)
	svc := env.services().Room

	room, err := svc.Create(ctx, CreateRoomInput{TTLMinutes: 1})
	req.NoError(err)

	env.mr.FastForward(20*time.Second + 500*time.Millisecond)
	ttl, err := svc.TTL(ctx, room.ID)
	req.NoError(err)
	req.EqualValues(40, ttl)

	ttl, err = svc.TTL(ctx, "missing")
	req.NoError(err)
	req.Zero(ttl)
}

func TestRoomService_DestroyNotifiesBeforePurging(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	env := newTestEnv(t)
	env.cfg.Room.DestroyDelay = 2 * time.Second

	ctrl := gomock.NewController(t)
	publisher := mocks.NewMockPublisher(ctrl)

	svc := NewRoomService(env.repos.Room, env.repos.Matchmaking, env.repos.Stats, publisher, env.metrics, env.cfg.Room, env.log)
	room, err := svc.Create(ctx, CreateRoomInput{TTLMinutes: 5})
	req.NoError(err)

	var steps []string
	svc.(*roomService).sleep = func(d time.Duration) {
		req.Equal(2*time.Second, d)
		// Keys are still there while subscribers get the signal
		req.True(env.mr.Exists(repository.RoomMetaKey(room.ID)))
		steps = append(steps, "wait")
	}
	req.NoError(env.repos.Token.Add(ctx, room.ID, "tok"))
	req.NoError(env.repos.Chat.Append(ctx, room.ID, &domain.Message{ID: "m"}))
	req.NoError(env.repos.Matchmaking.SaveMatch(ctx, room.ID, time.Minute, "s1"))
	req.NoError(env.repos.Matchmaking.SaveMatch(ctx, "other-room", time.Minute, "s2"))

	publisher.EXPECT().
		Publish(gomock.Any(), room.ID, domain.EventChatDestroy, domain.DestroyPayload{IsDestroyed: true}, gomock.Any()).
		DoAndReturn(func(ctx context.Context, channel, name string, payload interface{}, retain time.Duration) error {
			req.True(env.mr.Exists(repository.RoomMetaKey(room.ID)))
			req.Positive(retain)
			steps = append(steps, "publish")
			return nil
		})

	req.NoError(svc.Destroy(ctx, room.ID))
	req.Equal([]string{"publish", "wait"}, steps)

	for _, key := range repository.RoomKeyFamily(room.ID) {
		req.False(env.mr.Exists(key), key)
	}
	req.False(env.mr.Exists(repository.MatchRecordKey("s1")))
	req.True(env.mr.Exists(repository.MatchRecordKey("s2")))

	ttl, err := svc.TTL(ctx, room.ID)
	req.NoError(err)
	req.Zero(ttl)

	stats, err := env.repos.Stats.Get(ctx)
	req.NoError(err)
	req.EqualValues(1, stats.TotalVanished)
}

func TestRoomService_DestroyIgnoresBroadcastFailure(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	env := newTestEnv(t)

	ctrl := gomock.NewController(t)
	publisher := mocks.NewMockPublisher(ctrl)
	svc := NewRoomService(env.repos.Room, env.repos.Matchmaking, env.repos.Stats, publisher, env.metrics, env.cfg.Room, env.log)

	room, err := svc.Create(ctx, CreateRoomInput{})
	req.NoError(err)

	publisher.EXPECT().Publish(gomock.Any(), room.ID, domain.EventChatDestroy, gomock.Any(), gomock.Any()).
		Return(errors.New("broker down"))

	req.NoError(svc.Destroy(ctx, room.ID))
	req.False(env.mr.Exists(repository.RoomMetaKey(room.ID)))
}

func TestRoomService_DestroyMissingRoomSkipsBroadcast(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	env := newTestEnv(t)

	ctrl := gomock.NewController(t)
	publisher := mocks.NewMockPublisher(ctrl)
	svc := NewRoomService(env.repos.Room, env.repos.Matchmaking, env.repos.Stats, publisher, env.metrics, env.cfg.Room, env.log)

	// Residue of an expired room is still swept
	_, err := env.mr.Push(repository.ChannelHistoryKey("gone"), "event")
	req.NoError(err)
	req.NoError(env.repos.Matchmaking.SaveMatch(ctx, "gone", time.Minute, "s1"))

	req.NoError(svc.Destroy(ctx, "gone"))
	req.False(env.mr.Exists(repository.ChannelHistoryKey("gone")))
	req.False(env.mr.Exists(repository.MatchRecordKey("s1")))

	stats, err := env.repos.Stats.Get(ctx)
	req.NoError(err)
	req.Zero(stats.TotalVanished)
}

func TestRoomService_DestroySurvivesCancelledContext(t *testing.T) {
	req := require.New(t)
	env := newTestEnv(t)
	svc := env.services().Room

	room, err := svc.Create(context.Background(), CreateRoomInput{})
	req.NoError(err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	req.NoError(svc.Destroy(ctx, room.ID))
	req.False(env.mr.Exists(repository.RoomMetaKey(room.ID)))
}
