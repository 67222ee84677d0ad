// ABOUTME: Channel handles: the contract shared by the default and desktop variants.
// ABOUTME: Every operation is a single round trip through the client's dispatcher.

package fdc3

import (
	"context"

	"github.com/bryangaleOF/fdc3-service/internal/validate"
	"github.com/bryangaleOF/fdc3-service/protocol"
)

// ContextHandler receives each context broadcast on a channel the handler is
// listening to.
type ContextHandler func(context protocol.Context)

// Channel is a named broadcast group a window can belong to. Both variants
// (default and desktop) share this contract. Handles are canonical per
// client: the same channel id always yields the same instance.
type Channel interface {
	// ID returns the channel's service-wide identifier.
	ID() protocol.ChannelID

	// Type returns the variant discriminator.
	Type() protocol.ChannelType

	// GetMembers returns the identities of the windows currently on this
	// channel, in service order. The calling window is included if it is a
	// member.
	GetMembers(ctx context.Context) ([]protocol.Identity, error)

	// GetCurrentContext returns the last context broadcast on this channel,
	// or nil if none has occurred since the channel was last emptied. Always
	// nil for the default channel.
	GetCurrentContext(ctx context.Context) (*protocol.Context, error)

	// Join moves the given window (or the caller's own window if identity is
	// nil) onto this channel, atomically removing it from its previous one.
	// If this channel has a current context, the service immediately delivers
	// it to the joining window's listeners.
	Join(ctx context.Context, identity *protocol.Identity) error

	// Broadcast publishes context to every member's listeners except the
	// broadcasting window's own. Membership of this channel is not required.
	Broadcast(ctx context.Context, context protocol.Context) error

	// AddContextListener registers handler for every context broadcast on
	// this channel, from any source. The first listener for a channel id
	// subscribes with the service before returning; if that subscription
	// fails, the listener is still registered locally and usable, and the
	// error is returned alongside it.
	AddContextListener(ctx context.Context, handler ContextHandler) (*ContextListener, error)
}

// channelBase carries the identity and operations common to both variants.
type channelBase struct {
	id     protocol.ChannelID
	client *Client
}

func (c *channelBase) ID() protocol.ChannelID { return c.id }

func (c *channelBase) GetMembers(ctx context.Context) ([]protocol.Identity, error) {
	var resp protocol.GetMembersResponse
	err := c.client.dispatcher.Dispatch(ctx, protocol.TopicChannelGetMembers,
		protocol.GetMembersRequest{ID: c.id}, &resp)
	if err != nil {
		return nil, err
	}
	return resp.Members, nil
}

func (c *channelBase) GetCurrentContext(ctx context.Context) (*protocol.Context, error) {
	var resp protocol.GetContextResponse
	err := c.client.dispatcher.Dispatch(ctx, protocol.TopicChannelGetContext,
		protocol.GetContextRequest{ID: c.id}, &resp)
	if err != nil {
		return nil, err
	}
	return resp.Context, nil
}

func (c *channelBase) Join(ctx context.Context, identity *protocol.Identity) error {
	if err := validate.Identity(identity); err != nil {
		return err
	}
	return c.client.dispatcher.Dispatch(ctx, protocol.TopicChannelJoin,
		protocol.JoinRequest{ID: c.id, Identity: identity}, nil)
}

func (c *channelBase) Broadcast(ctx context.Context, context protocol.Context) error {
	if err := validate.Context(&context); err != nil {
		return err
	}
	return c.client.dispatcher.Dispatch(ctx, protocol.TopicChannelBroadcast,
		protocol.BroadcastRequest{ID: c.id, Context: context}, nil)
}

func (c *channelBase) AddContextListener(ctx context.Context, handler ContextHandler) (*ContextListener, error) {
	return c.client.registry.subscribe(ctx, c.id, handler)
}

// DefaultChannel is the stateless channel every window occupies until it
// joins another. One instance exists per client session; its current context
// is always absent.
type DefaultChannel struct {
	channelBase
}

func newDefaultChannel(client *Client) *DefaultChannel {
	return &DefaultChannel{channelBase{id: protocol.DefaultChannelID, client: client}}
}

func (c *DefaultChannel) Type() protocol.ChannelType { return protocol.ChannelTypeDefault }

// DesktopChannel is a user-facing channel from the service's fixed list,
// carrying immutable display metadata. Instances are created lazily on first
// reference and cached for the session.
type DesktopChannel struct {
	channelBase
	name  string
	color uint32
}

func newDesktopChannel(client *Client, transport protocol.ChannelTransport) *DesktopChannel {
	return &DesktopChannel{
		channelBase: channelBase{id: transport.ID, client: client},
		name:        transport.Name,
		color:       transport.Color,
	}
}

func (c *DesktopChannel) Type() protocol.ChannelType { return protocol.ChannelTypeDesktop }

// Name returns the channel's display name.
func (c *DesktopChannel) Name() string { return c.name }

// Color returns the channel's display color as 0xRRGGBB.
func (c *DesktopChannel) Color() uint32 { return c.color }
