// ABOUTME: End-to-end tests running the client against an in-process provider.
// ABOUTME: Exercises the full websocket round trip including push delivery.

package fdc3_test

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryangaleOF/fdc3-service/fdc3"
	"github.com/bryangaleOF/fdc3-service/internal/config"
	"github.com/bryangaleOF/fdc3-service/internal/service"
	"github.com/bryangaleOF/fdc3-service/protocol"
)

const waitTimeout = 2 * time.Second

func startProvider(t *testing.T) string {
	t.Helper()

	cfg := &config.Config{Channels: config.DefaultChannels()}
	srv := service.NewServer(cfg, nil)
	httpSrv := httptest.NewServer(srv.Handler())
	t.Cleanup(httpSrv.Close)

	return "ws" + strings.TrimPrefix(httpSrv.URL, "http") + "/fdc3"
}

func connectClient(t *testing.T, url, uuid, name string) *fdc3.Client {
	t.Helper()

	client, err := fdc3.Connect(context.Background(), url, protocol.Identity{UUID: uuid, Name: name}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return client
}

func awaitContext(t *testing.T, ch <-chan protocol.Context) protocol.Context {
	t.Helper()

	select {
	case context := <-ch:
		return context
	case <-time.After(waitTimeout):
		t.Fatal("timed out waiting for context push")
		return protocol.Context{}
	}
}

func TestIntegration_BroadcastReachesOtherMembersOnly(t *testing.T) {
	url := startProvider(t)
	ctx := context.Background()

	alice := connectClient(t, url, "uuid-a", "alice")
	bob := connectClient(t, url, "uuid-b", "bob")

	red, err := alice.GetChannelByID(ctx, "red")
	require.NoError(t, err)
	require.NoError(t, red.Join(ctx, nil))

	bobRed, err := bob.GetChannelByID(ctx, "red")
	require.NoError(t, err)
	require.NoError(t, bobRed.Join(ctx, nil))

	aliceGot := make(chan protocol.Context, 4)
	bobGot := make(chan protocol.Context, 4)
	_, err = red.AddContextListener(ctx, func(c protocol.Context) { aliceGot <- c })
	require.NoError(t, err)
	_, err = bobRed.AddContextListener(ctx, func(c protocol.Context) { bobGot <- c })
	require.NoError(t, err)

	instrument := protocol.Context{Type: "fdc3.instrument", Name: "AAPL"}
	require.NoError(t, red.Broadcast(ctx, instrument))

	got := awaitContext(t, bobGot)
	assert.Equal(t, "fdc3.instrument", got.Type)
	assert.Equal(t, "AAPL", got.Name)

	// The broadcast never reflects back to its sender.
	select {
	case c := <-aliceGot:
		t.Fatalf("sender received its own broadcast: %+v", c)
	case <-time.After(200 * time.Millisecond):
	}

	current, err := bobRed.GetCurrentContext(ctx)
	require.NoError(t, err)
	require.NotNil(t, current)
	assert.Equal(t, "AAPL", current.Name)
}

func TestIntegration_JoinDeliversCurrentContext(t *testing.T) {
	url := startProvider(t)
	ctx := context.Background()

	alice := connectClient(t, url, "uuid-a", "alice")
	bob := connectClient(t, url, "uuid-b", "bob")

	red, err := alice.GetChannelByID(ctx, "red")
	require.NoError(t, err)
	require.NoError(t, red.Join(ctx, nil))
	require.NoError(t, red.Broadcast(ctx, protocol.Context{Type: "fdc3.instrument", Name: "MSFT"}))

	bobRed, err := bob.GetChannelByID(ctx, "red")
	require.NoError(t, err)

	bobGot := make(chan protocol.Context, 4)
	_, err = bobRed.AddContextListener(ctx, func(c protocol.Context) { bobGot <- c })
	require.NoError(t, err)

	require.NoError(t, bobRed.Join(ctx, nil))

	got := awaitContext(t, bobGot)
	assert.Equal(t, "MSFT", got.Name)
}

func TestIntegration_ChannelListAndMembership(t *testing.T) {
	url := startProvider(t)
	ctx := context.Background()

	alice := connectClient(t, url, "uuid-a", "alice")

	channels, err := alice.GetDesktopChannels(ctx)
	require.NoError(t, err)
	require.Len(t, channels, 6)
	assert.Equal(t, protocol.ChannelID("red"), channels[0].ID())
	assert.NotZero(t, channels[0].Color())

	current, err := alice.GetCurrentChannel(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, protocol.DefaultChannelID, current.ID())
	assert.Same(t, alice.DefaultChannel(), current)

	require.NoError(t, channels[0].Join(ctx, nil))

	current, err = alice.GetCurrentChannel(ctx, nil)
	require.NoError(t, err)
	assert.Same(t, channels[0], current)

	members, err := channels[0].GetMembers(ctx)
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, "alice", members[0].Name)
}

func TestIntegration_ChannelChangedEvents(t *testing.T) {
	url := startProvider(t)
	ctx := context.Background()

	alice := connectClient(t, url, "uuid-a", "alice")

	events := make(chan fdc3.ChannelChangedEvent, 4)
	alice.OnChannelChanged(func(e fdc3.ChannelChangedEvent) { events <- e })

	bob := connectClient(t, url, "uuid-b", "bob")

	// Bob arriving lands him on the default channel.
	e := awaitChange(t, events)
	assert.Equal(t, "bob", e.Identity.Name)
	require.NotNil(t, e.Channel)
	assert.Equal(t, protocol.DefaultChannelID, e.Channel.ID())
	assert.Nil(t, e.PreviousChannel)

	bobRed, err := bob.GetChannelByID(ctx, "red")
	require.NoError(t, err)
	require.NoError(t, bobRed.Join(ctx, nil))

	e = awaitChange(t, events)
	assert.Equal(t, "bob", e.Identity.Name)
	require.NotNil(t, e.Channel)
	assert.Equal(t, protocol.ChannelID("red"), e.Channel.ID())
	require.NotNil(t, e.PreviousChannel)
	assert.Equal(t, protocol.DefaultChannelID, e.PreviousChannel.ID())
}

func awaitChange(t *testing.T, ch <-chan fdc3.ChannelChangedEvent) fdc3.ChannelChangedEvent {
	t.Helper()

	select {
	case e := <-ch:
		return e
	case <-time.After(waitTimeout):
		t.Fatal("timed out waiting for channel change")
		return fdc3.ChannelChangedEvent{}
	}
}

func TestIntegration_UnknownChannelID(t *testing.T) {
	url := startProvider(t)

	alice := connectClient(t, url, "uuid-a", "alice")

	_, err := alice.GetChannelByID(context.Background(), "chartreuse")
	assert.True(t, protocol.HasCode(err, protocol.ErrorChannelNotFound))
}
