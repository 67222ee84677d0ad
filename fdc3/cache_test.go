// ABOUTME: Tests for the canonical channel handle cache.
// ABOUTME: Same id must always resolve to the same handle instance.

package fdc3

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryangaleOF/fdc3-service/protocol"
)

func TestCache_ResolveIsCanonical(t *testing.T) {
	client := New(newFakeDispatcher(), nil)

	first, err := client.cache.resolve(client, desktopTransport("red", "Red", 0xFF0000))
	require.NoError(t, err)
	second, err := client.cache.resolve(client, desktopTransport("red", "Red", 0xFF0000))
	require.NoError(t, err)

	assert.Same(t, first, second, "same id must yield the same handle instance")
}

func TestCache_FirstSeenMetadataWins(t *testing.T) {
	client := New(newFakeDispatcher(), nil)

	first, err := client.cache.resolve(client, desktopTransport("red", "Red", 0xFF0000))
	require.NoError(t, err)

	// A later descriptor with different metadata is ignored entirely.
	second, err := client.cache.resolve(client, desktopTransport("red", "Crimson", 0x990000))
	require.NoError(t, err)

	assert.Same(t, first, second)
	desktop := second.(*DesktopChannel)
	assert.Equal(t, "Red", desktop.Name())
	assert.Equal(t, uint32(0xFF0000), desktop.Color())
}

func TestCache_DefaultTypeResolvesToSingleton(t *testing.T) {
	client := New(newFakeDispatcher(), nil)

	resolved, err := client.cache.resolve(client, protocol.ChannelTransport{
		ID:   protocol.DefaultChannelID,
		Type: protocol.ChannelTypeDefault,
	})
	require.NoError(t, err)

	assert.Same(t, Channel(client.DefaultChannel()), resolved)
}

func TestCache_UnknownTypeFails(t *testing.T) {
	client := New(newFakeDispatcher(), nil)

	_, err := client.cache.resolve(client, protocol.ChannelTransport{ID: "x", Type: "holographic"})
	assert.ErrorIs(t, err, ErrUnknownChannelType)

	// Nothing was cached for the id; a later valid descriptor still works.
	resolved, err := client.cache.resolve(client, desktopTransport("x", "X", 0))
	require.NoError(t, err)
	assert.Equal(t, protocol.ChannelID("x"), resolved.ID())
}

func TestClient_GetChannelByIDReturnsCanonicalHandle(t *testing.T) {
	dispatcher := newFakeDispatcher()
	dispatcher.respondWith(protocol.TopicGetChannelByID, func(payload []byte) (any, error) {
		return desktopTransport("blue", "Blue", 0x0000FF), nil
	})
	client := New(dispatcher, nil)

	first, err := client.GetChannelByID(context.Background(), "blue")
	require.NoError(t, err)
	second, err := client.GetChannelByID(context.Background(), "blue")
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 2, dispatcher.count(protocol.TopicGetChannelByID),
		"each lookup is still one round trip; only the handle is cached")
}
