// ABOUTME: Wire-level types shared between the fdc3 client and the provider.
// ABOUTME: Defines topics, frames, and the JSON payload shapes for every RPC and push.

package protocol

import "encoding/json"

// Topic identifies a request/response RPC or an inbound push event.
type Topic string

// Request topics (client -> service).
const (
	TopicGetDesktopChannels    Topic = "GET_DESKTOP_CHANNELS"
	TopicGetChannelByID        Topic = "GET_CHANNEL_BY_ID"
	TopicGetCurrentChannel     Topic = "GET_CURRENT_CHANNEL"
	TopicChannelGetMembers     Topic = "CHANNEL_GET_MEMBERS"
	TopicChannelGetContext     Topic = "CHANNEL_GET_CURRENT_CONTEXT"
	TopicChannelJoin           Topic = "CHANNEL_JOIN"
	TopicChannelBroadcast      Topic = "CHANNEL_BROADCAST"
	TopicChannelAddListener    Topic = "CHANNEL_ADD_CONTEXT_LISTENER"
	TopicChannelRemoveListener Topic = "CHANNEL_REMOVE_CONTEXT_LISTENER"
)

// Push topics (service -> client). Push frames carry no request id.
const (
	TopicChannelContext Topic = "CHANNEL_CONTEXT"
	TopicChannelChanged Topic = "CHANNEL_CHANGED"
)

// ChannelID is an opaque identifier, globally unique among channels known to
// the service. Desktop channel ids are stable across sessions.
type ChannelID string

// DefaultChannelID is the well-known id of the channel every window occupies
// until it explicitly joins another.
const DefaultChannelID ChannelID = "default"

// ChannelType discriminates the channel variants on the wire.
type ChannelType string

const (
	ChannelTypeDefault ChannelType = "default"
	ChannelTypeDesktop ChannelType = "desktop"
)

// Identity names a window: the application uuid plus the window name.
type Identity struct {
	UUID string `json:"uuid" validate:"required,min=1,max=256"`
	Name string `json:"name,omitempty" validate:"max=256"`
}

// ChannelTransport is the wire representation of a channel, from which the
// client constructs its local handle. Name and Color are only populated for
// desktop channels.
type ChannelTransport struct {
	ID    ChannelID   `json:"id"`
	Type  ChannelType `json:"type"`
	Name  string      `json:"name,omitempty"`
	Color uint32      `json:"color,omitempty"`
}

// Frame is the envelope for every websocket message. Requests and responses
// are correlated by ID; pushes omit it. A response carries exactly one of
// Payload or Error.
type Frame struct {
	ID      string          `json:"id,omitempty"`
	Topic   Topic           `json:"topic"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Error   *ServiceError   `json:"error,omitempty"`
}

// GetChannelByIDRequest asks for one channel's transport descriptor.
type GetChannelByIDRequest struct {
	ID ChannelID `json:"id"`
}

// GetCurrentChannelRequest asks which channel a window is on. A nil identity
// means the requesting connection's own window.
type GetCurrentChannelRequest struct {
	Identity *Identity `json:"identity,omitempty"`
}

// GetDesktopChannelsResponse lists the service-defined desktop channels.
type GetDesktopChannelsResponse struct {
	Channels []ChannelTransport `json:"channels"`
}

// GetMembersRequest asks for the windows currently on a channel.
type GetMembersRequest struct {
	ID ChannelID `json:"id"`
}

// GetMembersResponse carries the member identities in service order.
type GetMembersResponse struct {
	Members []Identity `json:"members"`
}

// GetContextRequest asks for a channel's last broadcast context.
type GetContextRequest struct {
	ID ChannelID `json:"id"`
}

// GetContextResponse carries the context, or nil if none has been broadcast
// since the channel was last emptied.
type GetContextResponse struct {
	Context *Context `json:"context,omitempty"`
}

// JoinRequest moves a window onto a channel. A nil identity means the
// requesting connection's own window.
type JoinRequest struct {
	ID       ChannelID `json:"id"`
	Identity *Identity `json:"identity,omitempty"`
}

// BroadcastRequest publishes a context on a channel.
type BroadcastRequest struct {
	ID      ChannelID `json:"id"`
	Context Context   `json:"context"`
}

// AddListenerRequest registers the connection for context pushes on a channel.
type AddListenerRequest struct {
	ID ChannelID `json:"id"`
}

// RemoveListenerRequest drops the connection's context subscription for a channel.
type RemoveListenerRequest struct {
	ID ChannelID `json:"id"`
}

// ChannelContextPayload is the CHANNEL_CONTEXT push: a context broadcast on a
// channel the connection is subscribed to.
type ChannelContextPayload struct {
	Channel ChannelID `json:"channel"`
	Context Context   `json:"context"`
}

// ChannelChangedPayload is the CHANNEL_CHANGED push, emitted whenever a window
// moves between channels. Channel is nil if the window closed; PreviousChannel
// is nil if the window was newly created. Both are never nil together.
type ChannelChangedPayload struct {
	Identity        Identity          `json:"identity"`
	Channel         *ChannelTransport `json:"channel,omitempty"`
	PreviousChannel *ChannelTransport `json:"previousChannel,omitempty"`
}
