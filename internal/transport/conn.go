// ABOUTME: WebSocket connection to the fdc3 provider with request correlation.
// ABOUTME: Matches responses to requests by frame id and fans pushes out to event handlers.

package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/bryangaleOF/fdc3-service/protocol"
)

// ErrConnClosed indicates the connection was closed while a call was pending.
var ErrConnClosed = errors.New("connection closed")

// eventBufferSize is the queue depth between the read loop and the event
// handlers. Pushes beyond it block the read loop rather than being dropped.
const eventBufferSize = 64

// Conn is a live connection to the provider. One request/response round trip
// per Dispatch call; inbound pushes are delivered to registered event handlers
// in arrival order on a single goroutine.
type Conn struct {
	ws      *websocket.Conn
	writeMu sync.Mutex

	mu       sync.RWMutex
	pending  map[string]chan *protocol.Frame
	handlers map[protocol.Topic][]func(json.RawMessage)

	events    chan *protocol.Frame
	closed    chan struct{}
	closeOnce sync.Once
	logger    *slog.Logger
}

// Dial connects to the provider at serviceURL, identifying the connection as
// the given window. The identity travels in the dial URL's query string.
func Dial(ctx context.Context, serviceURL string, identity protocol.Identity, logger *slog.Logger) (*Conn, error) {
	if logger == nil {
		logger = slog.Default()
	}

	u, err := url.Parse(serviceURL)
	if err != nil {
		return nil, fmt.Errorf("parsing service url: %w", err)
	}
	q := u.Query()
	q.Set("uuid", identity.UUID)
	q.Set("name", identity.Name)
	u.RawQuery = q.Encode()

	ws, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("dialing provider: %w", err)
	}

	c := &Conn{
		ws:       ws,
		pending:  make(map[string]chan *protocol.Frame),
		handlers: make(map[protocol.Topic][]func(json.RawMessage)),
		events:   make(chan *protocol.Frame, eventBufferSize),
		closed:   make(chan struct{}),
		logger:   logger.With("component", "transport"),
	}

	go c.readLoop()
	go c.eventLoop()

	return c, nil
}

// Dispatch sends one request and waits for its response. The response payload
// is decoded into result when result is non-nil. A service error on the
// response surfaces as a *protocol.ServiceError. No local timeout is applied;
// cancellation comes from ctx, and a closed connection fails the call with
// ErrConnClosed.
func (c *Conn) Dispatch(ctx context.Context, topic protocol.Topic, payload any, result any) error {
	var raw json.RawMessage
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encoding %s payload: %w", topic, err)
		}
		raw = data
	}

	id := uuid.New().String()
	respCh := make(chan *protocol.Frame, 1)

	c.mu.Lock()
	c.pending[id] = respCh
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}()

	if err := c.writeFrame(&protocol.Frame{ID: id, Topic: topic, Payload: raw}); err != nil {
		return fmt.Errorf("sending %s: %w", topic, err)
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-c.closed:
		return ErrConnClosed
	case resp := <-respCh:
		if resp.Error != nil {
			return resp.Error
		}
		if result != nil && len(resp.Payload) > 0 {
			if err := json.Unmarshal(resp.Payload, result); err != nil {
				return fmt.Errorf("decoding %s response: %w", topic, err)
			}
		}
		return nil
	}
}

// OnEvent registers a handler for inbound pushes on the given topic. Handlers
// for the same topic run in registration order; all handlers run on one
// goroutine, so pushes are observed in arrival order.
func (c *Conn) OnEvent(topic protocol.Topic, handler func(payload json.RawMessage)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[topic] = append(c.handlers[topic], handler)
}

// Close tears down the connection. All pending Dispatch calls fail with
// ErrConnClosed. Safe to call multiple times.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		close(c.closed)
	})
	return c.ws.Close()
}

// writeFrame serializes websocket writes; gorilla connections allow only one
// concurrent writer.
func (c *Conn) writeFrame(frame *protocol.Frame) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.ws.WriteJSON(frame)
}

// readLoop receives frames until the connection dies. Frames with an id are
// responses and complete their pending call; frames without one are pushes
// and queue for the event loop.
func (c *Conn) readLoop() {
	defer c.Close()

	for {
		var frame protocol.Frame
		if err := c.ws.ReadJSON(&frame); err != nil {
			select {
			case <-c.closed:
			default:
				c.logger.Warn("connection lost", "error", err)
			}
			return
		}

		if frame.ID != "" {
			c.mu.RLock()
			respCh, ok := c.pending[frame.ID]
			c.mu.RUnlock()
			if !ok {
				c.logger.Warn("response for unknown request", "id", frame.ID, "topic", frame.Topic)
				continue
			}
			respCh <- &frame
			continue
		}

		select {
		case c.events <- &frame:
		case <-c.closed:
			return
		}
	}
}

// eventLoop delivers queued pushes to their handlers.
func (c *Conn) eventLoop() {
	for {
		select {
		case <-c.closed:
			return
		case frame := <-c.events:
			c.mu.RLock()
			handlers := c.handlers[frame.Topic]
			c.mu.RUnlock()

			if len(handlers) == 0 {
				c.logger.Debug("push with no handler", "topic", frame.Topic)
				continue
			}
			for _, handler := range handlers {
				handler(frame.Payload)
			}
		}
	}
}
