// ABOUTME: Canonical channel handle cache, one entry per channel id per client.
// ABOUTME: Resolves transport descriptors to identity-equal local handles.

package fdc3

import (
	"errors"
	"fmt"
	"sync"

	"github.com/bryangaleOF/fdc3-service/protocol"
)

// ErrUnknownChannelType indicates the service returned a channel variant this
// client does not recognize.
var ErrUnknownChannelType = errors.New("unknown channel type")

// channelCache maps channel ids to their single canonical handle for the
// lifetime of the client session.
type channelCache struct {
	mu       sync.Mutex
	channels map[protocol.ChannelID]Channel
}

func newChannelCache(defaultChannel *DefaultChannel) *channelCache {
	return &channelCache{
		channels: map[protocol.ChannelID]Channel{
			defaultChannel.ID(): defaultChannel,
		},
	}
}

// resolve returns the canonical handle for a transport descriptor. An
// existing entry for the id wins unchanged; metadata on later descriptors is
// ignored. On first sight the handle is constructed per the descriptor's
// variant and cached before returning. An unrecognized variant fails with
// ErrUnknownChannelType rather than handing back a useless handle.
func (c *channelCache) resolve(client *Client, transport protocol.ChannelTransport) (Channel, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, ok := c.channels[transport.ID]; ok {
		return existing, nil
	}

	var channel Channel
	switch transport.Type {
	case protocol.ChannelTypeDefault:
		// The default channel singleton is seeded at client construction.
		channel = c.channels[protocol.DefaultChannelID]
	case protocol.ChannelTypeDesktop:
		channel = newDesktopChannel(client, transport)
	default:
		return nil, fmt.Errorf("resolving channel %q: %w: %q", transport.ID, ErrUnknownChannelType, transport.Type)
	}

	c.channels[transport.ID] = channel
	return channel, nil
}
