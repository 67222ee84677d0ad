// ABOUTME: The client session: owns the channel cache, listener registry, and dispatch hook.
// ABOUTME: Connect dials the provider; New wraps any Dispatcher for embedding and tests.

package fdc3

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/bryangaleOF/fdc3-service/internal/transport"
	"github.com/bryangaleOF/fdc3-service/internal/validate"
	"github.com/bryangaleOF/fdc3-service/protocol"
)

// Client is one window's session with the fdc3 provider. All state is owned
// by the instance; two clients in one process are fully independent.
type Client struct {
	dispatcher     Dispatcher
	logger         *slog.Logger
	defaultChannel *DefaultChannel
	cache          *channelCache
	registry       *listenerRegistry

	changed *changedListeners
}

// New wraps an existing dispatcher in a client session. If the dispatcher
// also implements EventSource, the inbound dispatch hook is installed once,
// here; otherwise a warning is logged and listener delivery stays inert —
// listeners can still be added locally and subscribed remotely, but no push
// will ever reach them. Pass nil logger for the default.
func New(dispatcher Dispatcher, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}

	c := &Client{
		dispatcher: dispatcher,
		logger:     logger.With("component", "fdc3"),
		registry:   newListenerRegistry(dispatcher, logger),
		changed:    newChangedListeners(logger),
	}
	c.defaultChannel = newDefaultChannel(c)
	c.cache = newChannelCache(c.defaultChannel)

	if events, ok := dispatcher.(EventSource); ok {
		events.OnEvent(protocol.TopicChannelContext, c.handleChannelContext)
		events.OnEvent(protocol.TopicChannelChanged, c.handleChannelChanged)
	} else {
		c.logger.Warn("dispatcher delivers no events; context listeners will never fire")
	}

	return c
}

// Connect dials the provider at serviceURL and returns a connected client
// identifying itself as the given window.
func Connect(ctx context.Context, serviceURL string, identity protocol.Identity, logger *slog.Logger) (*Client, error) {
	if err := validate.Identity(&identity); err != nil {
		return nil, err
	}

	conn, err := transport.Dial(ctx, serviceURL, identity, logger)
	if err != nil {
		return nil, fmt.Errorf("connecting to provider: %w", err)
	}
	return New(conn, logger), nil
}

// Close tears down the underlying connection when the dispatcher owns one.
func (c *Client) Close() error {
	if closer, ok := c.dispatcher.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// DefaultChannel returns the session's default channel singleton.
func (c *Client) DefaultChannel() *DefaultChannel {
	return c.defaultChannel
}

// GetDesktopChannels returns a handle for every desktop channel the service
// defines. The list is fixed at service configuration time.
func (c *Client) GetDesktopChannels(ctx context.Context) ([]*DesktopChannel, error) {
	var resp protocol.GetDesktopChannelsResponse
	if err := c.dispatcher.Dispatch(ctx, protocol.TopicGetDesktopChannels, nil, &resp); err != nil {
		return nil, err
	}

	channels := make([]*DesktopChannel, 0, len(resp.Channels))
	for _, t := range resp.Channels {
		channel, err := c.cache.resolve(c, t)
		if err != nil {
			return nil, err
		}
		desktop, ok := channel.(*DesktopChannel)
		if !ok {
			return nil, fmt.Errorf("channel %q in desktop channel list has type %q", t.ID, channel.Type())
		}
		channels = append(channels, desktop)
	}
	return channels, nil
}

// GetChannelByID returns the canonical handle for the channel with the given
// id, or a ChannelNotFound service error.
func (c *Client) GetChannelByID(ctx context.Context, id protocol.ChannelID) (Channel, error) {
	if err := validate.ChannelID(id); err != nil {
		return nil, err
	}

	var t protocol.ChannelTransport
	if err := c.dispatcher.Dispatch(ctx, protocol.TopicGetChannelByID,
		protocol.GetChannelByIDRequest{ID: id}, &t); err != nil {
		return nil, err
	}
	return c.cache.resolve(c, t)
}

// GetCurrentChannel returns the channel the given window is on. A nil
// identity means the caller's own window.
func (c *Client) GetCurrentChannel(ctx context.Context, identity *protocol.Identity) (Channel, error) {
	if err := validate.Identity(identity); err != nil {
		return nil, err
	}

	var t protocol.ChannelTransport
	if err := c.dispatcher.Dispatch(ctx, protocol.TopicGetCurrentChannel,
		protocol.GetCurrentChannelRequest{Identity: identity}, &t); err != nil {
		return nil, err
	}
	return c.cache.resolve(c, t)
}

// Broadcast publishes context on the caller's current channel, wherever that
// is right now.
func (c *Client) Broadcast(ctx context.Context, context protocol.Context) error {
	if err := validate.Context(&context); err != nil {
		return err
	}

	current, err := c.GetCurrentChannel(ctx, nil)
	if err != nil {
		return fmt.Errorf("resolving current channel: %w", err)
	}
	return current.Broadcast(ctx, context)
}

// OnChannelChanged registers handler for every channel membership change the
// service reports. Requires an EventSource dispatcher, like context listeners.
func (c *Client) OnChannelChanged(handler ChannelChangedHandler) {
	c.changed.add(handler)
}

// handleChannelContext is the inbound dispatch hook for context pushes: it
// fans each one out to the matching listeners in registration order.
func (c *Client) handleChannelContext(payload json.RawMessage) {
	var p protocol.ChannelContextPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		c.logger.Warn("discarding malformed context push", "error", err)
		return
	}
	c.registry.dispatch(p.Channel, p.Context)
}

// handleChannelChanged resolves the transports on a membership-change push to
// canonical handles and notifies the registered handlers.
func (c *Client) handleChannelChanged(payload json.RawMessage) {
	var p protocol.ChannelChangedPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		c.logger.Warn("discarding malformed channel-changed push", "error", err)
		return
	}

	event := ChannelChangedEvent{Identity: p.Identity}
	var err error
	if p.Channel != nil {
		if event.Channel, err = c.cache.resolve(c, *p.Channel); err != nil {
			c.logger.Warn("discarding channel-changed push", "error", err)
			return
		}
	}
	if p.PreviousChannel != nil {
		if event.PreviousChannel, err = c.cache.resolve(c, *p.PreviousChannel); err != nil {
			c.logger.Warn("discarding channel-changed push", "error", err)
			return
		}
	}

	c.changed.notify(event)
}
