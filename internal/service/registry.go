// ABOUTME: The provider's channel registry: fixed channel set, window membership, contexts.
// ABOUTME: Every window is on exactly one channel; contexts clear when a channel empties.

package service

import (
	"sync"

	"github.com/samber/lo"

	"github.com/bryangaleOF/fdc3-service/protocol"
)

// Registry holds the service-side channel state. The channel set is fixed at
// construction; windows come and go, each belonging to exactly one channel at
// all times. A channel's current context exists only while the channel has
// had a broadcast since it was last empty, and the default channel never
// stores one.
type Registry struct {
	mu       sync.RWMutex
	channels map[protocol.ChannelID]protocol.ChannelTransport
	order    []protocol.ChannelID // desktop channels in configuration order

	windows     map[string]protocol.Identity  // window key -> identity
	membership  map[string]protocol.ChannelID // window key -> channel id
	memberOrder []string                      // window keys in registration order

	contexts map[protocol.ChannelID]*protocol.Context
}

// windowKey builds the membership map key for an identity.
func windowKey(identity protocol.Identity) string {
	return identity.UUID + "/" + identity.Name
}

// NewRegistry builds a registry from the configured desktop channels. The
// default channel always exists in addition to them.
func NewRegistry(desktopChannels []protocol.ChannelTransport) *Registry {
	r := &Registry{
		channels:   make(map[protocol.ChannelID]protocol.ChannelTransport, len(desktopChannels)+1),
		windows:    make(map[string]protocol.Identity),
		membership: make(map[string]protocol.ChannelID),
		contexts:   make(map[protocol.ChannelID]*protocol.Context),
	}

	r.channels[protocol.DefaultChannelID] = protocol.ChannelTransport{
		ID:   protocol.DefaultChannelID,
		Type: protocol.ChannelTypeDefault,
	}
	for _, ch := range desktopChannels {
		r.channels[ch.ID] = ch
		r.order = append(r.order, ch.ID)
	}

	return r
}

// DesktopChannels returns the desktop channel descriptors in configuration order.
func (r *Registry) DesktopChannels() []protocol.ChannelTransport {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return lo.Map(r.order, func(id protocol.ChannelID, _ int) protocol.ChannelTransport {
		return r.channels[id]
	})
}

// Get returns the descriptor for a channel id.
func (r *Registry) Get(id protocol.ChannelID) (protocol.ChannelTransport, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ch, ok := r.channels[id]
	return ch, ok
}

// AddWindow registers a newly connected window on the default channel.
func (r *Registry) AddWindow(identity protocol.Identity) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := windowKey(identity)
	if _, exists := r.windows[key]; exists {
		return
	}
	r.windows[key] = identity
	r.membership[key] = protocol.DefaultChannelID
	r.memberOrder = append(r.memberOrder, key)
}

// RemoveWindow drops a window entirely, clearing its old channel's context if
// the channel is now empty. The channel the window was on is returned for
// change notification.
func (r *Registry) RemoveWindow(identity protocol.Identity) (previous protocol.ChannelTransport, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := windowKey(identity)
	channelID, exists := r.membership[key]
	if !exists {
		return protocol.ChannelTransport{}, false
	}

	delete(r.windows, key)
	delete(r.membership, key)
	r.memberOrder = lo.Without(r.memberOrder, key)
	r.clearIfEmptyLocked(channelID)

	return r.channels[channelID], true
}

// Join moves a window to a channel, implicitly leaving its previous one. The
// previous channel's context clears if the move emptied it. Returns the old
// channel for change notification.
func (r *Registry) Join(identity protocol.Identity, channelID protocol.ChannelID) (previous protocol.ChannelTransport, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.channels[channelID]; !ok {
		return protocol.ChannelTransport{}, protocol.NewServiceError(protocol.ErrorChannelNotFound,
			"no channel with id %q", channelID)
	}

	key := windowKey(identity)
	previousID, ok := r.membership[key]
	if !ok {
		return protocol.ChannelTransport{}, protocol.NewServiceError(protocol.ErrorWindowNotFound,
			"window %s/%s is not connected", identity.UUID, identity.Name)
	}

	r.membership[key] = channelID
	if previousID != channelID {
		r.clearIfEmptyLocked(previousID)
	}

	return r.channels[previousID], nil
}

// Members returns the identities on a channel in registration order.
func (r *Registry) Members(channelID protocol.ChannelID) []protocol.Identity {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members := make([]protocol.Identity, 0)
	for _, key := range r.memberOrder {
		if r.membership[key] == channelID {
			members = append(members, r.windows[key])
		}
	}
	return members
}

// CurrentChannel returns the channel a window is on.
func (r *Registry) CurrentChannel(identity protocol.Identity) (protocol.ChannelTransport, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	channelID, ok := r.membership[windowKey(identity)]
	if !ok {
		return protocol.ChannelTransport{}, protocol.NewServiceError(protocol.ErrorWindowNotFound,
			"window %s/%s is not connected", identity.UUID, identity.Name)
	}
	return r.channels[channelID], nil
}

// Context returns the channel's current context, or nil if none is held.
// Always nil for the default channel.
func (r *Registry) Context(channelID protocol.ChannelID) *protocol.Context {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.contexts[channelID]
}

// SetContext records a broadcast context on a channel. The default channel is
// stateless and never holds one.
func (r *Registry) SetContext(channelID protocol.ChannelID, context protocol.Context) {
	if channelID == protocol.DefaultChannelID {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.contexts[channelID] = &context
}

// clearIfEmptyLocked resets a channel's context once no member remains on it.
// Must be called with mu held.
func (r *Registry) clearIfEmptyLocked(channelID protocol.ChannelID) {
	for _, id := range r.membership {
		if id == channelID {
			return
		}
	}
	delete(r.contexts, channelID)
}
