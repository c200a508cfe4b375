package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
	"vanish/internal/domain"
	"vanish/internal/repository"
)

func TestRoomHandler_CreateAndView(t *testing.T) {
	req := require.New(t)
	app := newTestApp(t)

	// Given a group room created through the API
	roomID, token := app.enter(t, CreateRoomRequest{TTL: 5, MaxParticipants: 4})
	req.Len(roomID, repository.IDLength)
	req.Len(token, repository.IDLength)

	// When the participant comes back with the cookie
	w := app.do(http.MethodGet, "/room/"+roomID, nil, token)
	req.Equal(http.StatusOK, w.Code)

	// Then the room view reflects the requested shape
	var view domain.RoomView
	decode(t, w, &view)
	req.Equal(roomID, view.ID)
	req.Equal(4, view.MaxParticipants)
	req.False(view.Random)
	req.EqualValues(300, view.TTL)
}

func TestRoomHandler_CreateWithoutBodyUsesDefaults(t *testing.T) {
	req := require.New(t)
	app := newTestApp(t)

	w := app.do(http.MethodPost, "/api/room/create", nil, "")
	req.Equal(http.StatusOK, w.Code)

	var created struct {
		RoomID string `json:"roomId"`
	}
	decode(t, w, &created)

	room, err := app.services.Room.Get(context.Background(), created.RoomID)
	req.NoError(err)
	req.Equal(domain.PrivateRoomCapacity, room.MaxParticipants)
	req.Equal(10, room.TTLMinutes)
}

func TestRoomHandler_CreateRejectsInvalidInput(t *testing.T) {
	tests := []struct {
		name string
		body map[string]interface{}
	}{
		{"ttl too long", map[string]interface{}{"ttl": 21}},
		{"negative ttl", map[string]interface{}{"ttl": -1}},
		{"too many participants", map[string]interface{}{"maxParticipants": 6}},
		{"single participant", map[string]interface{}{"maxParticipants": 1}},
		{"wrong type", map[string]interface{}{"ttl": "ten"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newTestApp(t)
			w := app.do(http.MethodPost, "/api/room/create", tt.body, "")
			require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
		})
	}
}

func TestRoomHandler_TTLRequiresMembership(t *testing.T) {
	req := require.New(t)
	app := newTestApp(t)
	roomID, token := app.enter(t, nil)

	w := app.do(http.MethodGet, "/api/room/ttl?roomId="+roomID, nil, "")
	req.Equal(http.StatusUnauthorized, w.Code)

	w = app.do(http.MethodGet, "/api/room/ttl?roomId="+roomID, nil, "forged")
	req.Equal(http.StatusUnauthorized, w.Code)

	w = app.do(http.MethodGet, "/api/room/ttl", nil, token)
	req.Equal(http.StatusBadRequest, w.Code)

	w = app.do(http.MethodGet, "/api/room/ttl?roomId="+roomID, nil, token)
	req.Equal(http.StatusOK, w.Code)
	var body struct {
		TTL int64 `json:"ttl"`
	}
	decode(t, w, &body)
	req.EqualValues(600, body.TTL)
}

func TestRoomHandler_DestroyRemovesEverything(t *testing.T) {
	req := require.New(t)
	app := newTestApp(t)
	roomID, token := app.enter(t, nil)

	w := app.do(http.MethodPost, "/api/messages?roomId="+roomID, SendMessageRequest{Sender: "a", Text: "bye"}, token)
	req.Equal(http.StatusOK, w.Code)

	w = app.do(http.MethodDelete, "/api/room?roomId="+roomID, nil, token)
	req.Equal(http.StatusOK, w.Code)
	req.JSONEq(`{"success":true}`, w.Body.String())

	for _, key := range repository.RoomKeyFamily(roomID) {
		req.False(app.mr.Exists(key), key)
	}

	// The token is now worthless
	w = app.do(http.MethodGet, "/api/room/ttl?roomId="+roomID, nil, token)
	req.Equal(http.StatusNotFound, w.Code)

	w = app.do(http.MethodGet, "/room/"+roomID, nil, token)
	req.Equal(http.StatusFound, w.Code)
	req.Equal("/lobby?error=room-not-found", w.Header().Get("Location"))

	var stats domain.Stats
	decode(t, app.do(http.MethodGet, "/api/stats", nil, ""), &stats)
	req.EqualValues(1, stats.TotalRooms)
	req.EqualValues(1, stats.TotalMessages)
	req.EqualValues(1, stats.TotalVanished)
}

func TestRoomHandler_CreateIsRateLimited(t *testing.T) {
	req := require.New(t)
	app := newTestApp(t)

	for i := 0; i < 5; i++ {
		req.Equal(http.StatusOK, app.do(http.MethodPost, "/api/room/create", nil, "").Code)
	}
	w := app.do(http.MethodPost, "/api/room/create", nil, "")
	req.Equal(http.StatusTooManyRequests, w.Code)
	req.Equal("60", w.Header().Get("Retry-After"))
}
