// ABOUTME: Ordered registry of active context listeners for one client session.
// ABOUTME: Collapses N local listeners per channel id into one service subscription.

package fdc3

import (
	"context"
	"log/slog"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/bryangaleOF/fdc3-service/protocol"
)

// ContextListener is one active registration created by AddContextListener.
// Multiple listeners may exist for the same channel id; each registration is
// its own record.
type ContextListener struct {
	id        string
	channelID protocol.ChannelID
	handler   ContextHandler
	registry  *listenerRegistry
}

// ChannelID returns the id of the channel this listener is registered on.
func (l *ContextListener) ChannelID() protocol.ChannelID { return l.channelID }

// Unsubscribe removes this registration. It reports whether an active
// registration was actually removed; unsubscribing twice is a no-op returning
// false. Removing the last listener for a channel id also drops the service
// subscription for that id, and a failure there surfaces as the error.
func (l *ContextListener) Unsubscribe(ctx context.Context) (bool, error) {
	return l.registry.unsubscribe(ctx, l)
}

// listenerRegistry holds the session's listeners in registration order. The
// count per channel id, not listener identity, gates the remote subscription:
// one exists iff the count is positive.
type listenerRegistry struct {
	mu         sync.Mutex
	listeners  []*ContextListener
	dispatcher Dispatcher
	logger     *slog.Logger
}

func newListenerRegistry(dispatcher Dispatcher, logger *slog.Logger) *listenerRegistry {
	return &listenerRegistry{
		dispatcher: dispatcher,
		logger:     logger.With("component", "listeners"),
	}
}

// subscribe appends a new listener record. The first record for a channel id
// issues the remote subscribe before returning; the returned listener is
// registered and usable either way, and a remote failure propagates alongside
// it.
func (r *listenerRegistry) subscribe(ctx context.Context, channelID protocol.ChannelID, handler ContextHandler) (*ContextListener, error) {
	listener := &ContextListener{
		id:        uuid.New().String(),
		channelID: channelID,
		handler:   handler,
		registry:  r,
	}

	r.mu.Lock()
	first := r.countLocked(channelID) == 0
	r.listeners = append(r.listeners, listener)
	r.mu.Unlock()

	r.logger.Debug("listener added", "channel", channelID, "listener_id", listener.id)

	if first {
		err := r.dispatcher.Dispatch(ctx, protocol.TopicChannelAddListener,
			protocol.AddListenerRequest{ID: channelID}, nil)
		if err != nil {
			return listener, err
		}
	}
	return listener, nil
}

// unsubscribe removes the record by identity, not by channel id, so multiple
// listeners on one channel stay independent. Removing the last record for the
// channel id issues the remote unsubscribe.
func (r *listenerRegistry) unsubscribe(ctx context.Context, listener *ContextListener) (bool, error) {
	r.mu.Lock()
	idx := slices.Index(r.listeners, listener)
	if idx < 0 {
		r.mu.Unlock()
		return false, nil
	}
	r.listeners = slices.Delete(r.listeners, idx, idx+1)
	last := r.countLocked(listener.channelID) == 0
	r.mu.Unlock()

	r.logger.Debug("listener removed", "channel", listener.channelID, "listener_id", listener.id)

	if last {
		err := r.dispatcher.Dispatch(ctx, protocol.TopicChannelRemoveListener,
			protocol.RemoveListenerRequest{ID: listener.channelID}, nil)
		if err != nil {
			return true, err
		}
	}
	return true, nil
}

// dispatch invokes every listener registered for channelID, in registration
// order, with the given context. A panicking handler is logged and does not
// stop delivery to the rest.
func (r *listenerRegistry) dispatch(channelID protocol.ChannelID, context protocol.Context) {
	r.mu.Lock()
	matching := make([]*ContextListener, 0, len(r.listeners))
	for _, l := range r.listeners {
		if l.channelID == channelID {
			matching = append(matching, l)
		}
	}
	r.mu.Unlock()

	for _, l := range matching {
		r.invoke(l, context)
	}
}

func (r *listenerRegistry) invoke(l *ContextListener, context protocol.Context) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("context handler panicked",
				"channel", l.channelID,
				"listener_id", l.id,
				"panic", rec)
		}
	}()
	l.handler(context)
}

// countLocked returns the number of records for a channel id. Must be called
// with mu held.
func (r *listenerRegistry) countLocked(channelID protocol.ChannelID) int {
	n := 0
	for _, l := range r.listeners {
		if l.channelID == channelID {
			n++
		}
	}
	return n
}
