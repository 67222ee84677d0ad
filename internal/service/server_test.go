// ABOUTME: Tests for the websocket server's upgrade handling and topic router.

package service

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryangaleOF/fdc3-service/internal/config"
	"github.com/bryangaleOF/fdc3-service/protocol"
)

func startTestServer(t *testing.T) string {
	t.Helper()

	cfg := &config.Config{Channels: config.DefaultChannels()}
	srv := httptest.NewServer(NewServer(cfg, nil).Handler())
	t.Cleanup(srv.Close)
	return srv.URL
}

func dialWindow(t *testing.T, baseURL, uuid, name string) *websocket.Conn {
	t.Helper()

	wsURL := "ws" + strings.TrimPrefix(baseURL, "http") + "/fdc3?uuid=" + uuid + "&name=" + name
	ws, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { ws.Close() })
	return ws
}

// roundTrip sends one request frame and reads frames until its response
// arrives, discarding interleaved pushes.
func roundTrip(t *testing.T, ws *websocket.Conn, topic protocol.Topic, payload any) protocol.Frame {
	t.Helper()

	var raw json.RawMessage
	if payload != nil {
		data, err := json.Marshal(payload)
		require.NoError(t, err)
		raw = data
	}

	id := uuid.New().String()
	require.NoError(t, ws.WriteJSON(&protocol.Frame{ID: id, Topic: topic, Payload: raw}))

	for {
		var frame protocol.Frame
		require.NoError(t, ws.ReadJSON(&frame))
		if frame.ID == id {
			return frame
		}
	}
}

func TestServerRejectsMissingIdentity(t *testing.T) {
	baseURL := startTestServer(t)

	resp, err := http.Get(baseURL + "/fdc3")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServerHealth(t *testing.T) {
	baseURL := startTestServer(t)

	resp, err := http.Get(baseURL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
}

func TestServerGetDesktopChannels(t *testing.T) {
	baseURL := startTestServer(t)
	ws := dialWindow(t, baseURL, "uuid-a", "alice")

	frame := roundTrip(t, ws, protocol.TopicGetDesktopChannels, nil)
	require.Nil(t, frame.Error)

	var resp protocol.GetDesktopChannelsResponse
	require.NoError(t, json.Unmarshal(frame.Payload, &resp))
	require.Len(t, resp.Channels, 6)
	assert.Equal(t, protocol.ChannelID("red"), resp.Channels[0].ID)
	assert.Equal(t, protocol.ChannelTypeDesktop, resp.Channels[0].Type)
}

func TestServerErrorEnvelopes(t *testing.T) {
	baseURL := startTestServer(t)
	ws := dialWindow(t, baseURL, "uuid-a", "alice")

	tests := []struct {
		name    string
		topic   protocol.Topic
		payload any
		code    protocol.ErrorCode
	}{
		{
			name:    "unknown channel",
			topic:   protocol.TopicGetChannelByID,
			payload: protocol.GetChannelByIDRequest{ID: "chartreuse"},
			code:    protocol.ErrorChannelNotFound,
		},
		{
			name:    "empty channel id",
			topic:   protocol.TopicChannelJoin,
			payload: protocol.JoinRequest{ID: ""},
			code:    protocol.ErrorInvalidChannelID,
		},
		{
			name:    "broadcast without context type",
			topic:   protocol.TopicChannelBroadcast,
			payload: protocol.BroadcastRequest{ID: "red"},
			code:    protocol.ErrorInvalidContext,
		},
		{
			name:    "join for unconnected window",
			topic:   protocol.TopicChannelJoin,
			payload: protocol.JoinRequest{ID: "red", Identity: &protocol.Identity{UUID: "uuid-x", Name: "ghost"}},
			code:    protocol.ErrorWindowNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame := roundTrip(t, ws, tt.topic, tt.payload)
			require.NotNil(t, frame.Error)
			assert.Equal(t, tt.code, frame.Error.Code)
		})
	}
}

func TestServerJoinAndMembers(t *testing.T) {
	baseURL := startTestServer(t)
	ws := dialWindow(t, baseURL, "uuid-a", "alice")

	frame := roundTrip(t, ws, protocol.TopicChannelJoin, protocol.JoinRequest{ID: "red"})
	require.Nil(t, frame.Error)

	frame = roundTrip(t, ws, protocol.TopicChannelGetMembers, protocol.GetMembersRequest{ID: "red"})
	require.Nil(t, frame.Error)

	var resp protocol.GetMembersResponse
	require.NoError(t, json.Unmarshal(frame.Payload, &resp))
	require.Len(t, resp.Members, 1)
	assert.Equal(t, "alice", resp.Members[0].Name)

	frame = roundTrip(t, ws, protocol.TopicGetCurrentChannel, nil)
	require.Nil(t, frame.Error)

	var current protocol.ChannelTransport
	require.NoError(t, json.Unmarshal(frame.Payload, &current))
	assert.Equal(t, protocol.ChannelID("red"), current.ID)
}

func TestServerDuplicateIdentityRejected(t *testing.T) {
	baseURL := startTestServer(t)
	dialWindow(t, baseURL, "uuid-a", "alice")

	wsURL := "ws" + strings.TrimPrefix(baseURL, "http") + "/fdc3?uuid=uuid-a&name=alice"
	ws, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err == nil {
		// The upgrade may succeed before the registration check closes the
		// socket; the next read must fail either way.
		defer ws.Close()
		var frame protocol.Frame
		assert.Error(t, ws.ReadJSON(&frame))
	}
}
