// ABOUTME: HTTP/websocket server for the fdc3 provider.
// ABOUTME: Upgrades window connections and routes request frames to the registry and manager.

package service

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/samber/lo"

	"github.com/bryangaleOF/fdc3-service/internal/config"
	"github.com/bryangaleOF/fdc3-service/internal/validate"
	"github.com/bryangaleOF/fdc3-service/protocol"
)

// Server exposes the provider over HTTP: a websocket endpoint for windows and
// a health check.
type Server struct {
	registry *Registry
	manager  *Manager
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewServer builds a provider server from the configured channel list.
func NewServer(cfg *config.Config, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	channels := lo.Map(cfg.Channels, func(ch config.ChannelConfig, _ int) protocol.ChannelTransport {
		return ch.Transport()
	})
	registry := NewRegistry(channels)

	return &Server{
		registry: registry,
		manager:  NewManager(registry, logger),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger: logger.With("component", "server"),
	}
}

// Registry exposes the channel registry, for inspection endpoints and tests.
func (s *Server) Registry() *Registry {
	return s.registry
}

// Handler returns the HTTP handler for the provider endpoints.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/fdc3", s.handleConnect)
	mux.HandleFunc("/health", s.handleHealth)
	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// handleConnect upgrades a window connection. The window's identity rides the
// query string and must validate before the upgrade.
func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	identity := protocol.Identity{
		UUID: r.URL.Query().Get("uuid"),
		Name: r.URL.Query().Get("name"),
	}
	if err := validate.Identity(&identity); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	conn := NewConnection(identity, ws)
	if err := s.manager.Register(conn); err != nil {
		s.logger.Warn("registration rejected",
			"uuid", identity.UUID,
			"name", identity.Name,
			"error", err)
		ws.Close()
		return
	}

	defer func() {
		s.manager.Unregister(identity)
		ws.Close()
	}()

	for {
		var frame protocol.Frame
		if err := ws.ReadJSON(&frame); err != nil {
			return
		}
		s.handleFrame(conn, frame)
	}
}

// handleFrame routes one request frame and writes the response.
func (s *Server) handleFrame(conn *Connection, frame protocol.Frame) {
	payload, err := s.dispatch(conn, frame)
	if err != nil {
		svcErr := asServiceError(err)
		if respErr := conn.RespondError(frame.ID, frame.Topic, svcErr); respErr != nil {
			s.logger.Warn("failed to write error response", "topic", frame.Topic, "error", respErr)
		}
		return
	}
	if respErr := conn.Respond(frame.ID, frame.Topic, payload); respErr != nil {
		s.logger.Warn("failed to write response", "topic", frame.Topic, "error", respErr)
	}
}

// dispatch executes one request and returns its response payload.
func (s *Server) dispatch(conn *Connection, frame protocol.Frame) (any, error) {
	switch frame.Topic {
	case protocol.TopicGetDesktopChannels:
		return protocol.GetDesktopChannelsResponse{Channels: s.registry.DesktopChannels()}, nil

	case protocol.TopicGetChannelByID:
		var req protocol.GetChannelByIDRequest
		if err := decode(frame.Payload, &req); err != nil {
			return nil, err
		}
		if err := validate.ChannelID(req.ID); err != nil {
			return nil, err
		}
		channel, ok := s.registry.Get(req.ID)
		if !ok {
			return nil, protocol.NewServiceError(protocol.ErrorChannelNotFound, "no channel with id %q", req.ID)
		}
		return channel, nil

	case protocol.TopicGetCurrentChannel:
		var req protocol.GetCurrentChannelRequest
		if err := decode(frame.Payload, &req); err != nil {
			return nil, err
		}
		if err := validate.Identity(req.Identity); err != nil {
			return nil, err
		}
		target := conn.Identity
		if req.Identity != nil {
			target = *req.Identity
		}
		return s.registry.CurrentChannel(target)

	case protocol.TopicChannelGetMembers:
		var req protocol.GetMembersRequest
		if err := decode(frame.Payload, &req); err != nil {
			return nil, err
		}
		if err := s.requireChannel(req.ID); err != nil {
			return nil, err
		}
		return protocol.GetMembersResponse{Members: s.registry.Members(req.ID)}, nil

	case protocol.TopicChannelGetContext:
		var req protocol.GetContextRequest
		if err := decode(frame.Payload, &req); err != nil {
			return nil, err
		}
		if err := s.requireChannel(req.ID); err != nil {
			return nil, err
		}
		return protocol.GetContextResponse{Context: s.registry.Context(req.ID)}, nil

	case protocol.TopicChannelJoin:
		var req protocol.JoinRequest
		if err := decode(frame.Payload, &req); err != nil {
			return nil, err
		}
		if err := validate.ChannelID(req.ID); err != nil {
			return nil, err
		}
		if err := validate.Identity(req.Identity); err != nil {
			return nil, err
		}
		target := conn.Identity
		if req.Identity != nil {
			target = *req.Identity
		}
		return nil, s.manager.Join(target, req.ID)

	case protocol.TopicChannelBroadcast:
		var req protocol.BroadcastRequest
		if err := decode(frame.Payload, &req); err != nil {
			return nil, err
		}
		if err := validate.ChannelID(req.ID); err != nil {
			return nil, err
		}
		if err := validate.Context(&req.Context); err != nil {
			return nil, err
		}
		if err := s.requireChannel(req.ID); err != nil {
			return nil, err
		}
		s.manager.Broadcast(conn.Identity, req.ID, req.Context)
		return nil, nil

	case protocol.TopicChannelAddListener:
		var req protocol.AddListenerRequest
		if err := decode(frame.Payload, &req); err != nil {
			return nil, err
		}
		if err := s.requireChannel(req.ID); err != nil {
			return nil, err
		}
		conn.Subscribe(req.ID)
		return nil, nil

	case protocol.TopicChannelRemoveListener:
		var req protocol.RemoveListenerRequest
		if err := decode(frame.Payload, &req); err != nil {
			return nil, err
		}
		if err := s.requireChannel(req.ID); err != nil {
			return nil, err
		}
		conn.Unsubscribe(req.ID)
		return nil, nil

	default:
		return nil, protocol.NewServiceError(protocol.ErrorChannelNotFound, "unknown topic %q", frame.Topic)
	}
}

// requireChannel validates an id structurally and checks the channel exists.
func (s *Server) requireChannel(id protocol.ChannelID) error {
	if err := validate.ChannelID(id); err != nil {
		return err
	}
	if _, ok := s.registry.Get(id); !ok {
		return protocol.NewServiceError(protocol.ErrorChannelNotFound, "no channel with id %q", id)
	}
	return nil
}

// decode unmarshals a request payload, treating malformed input as an
// invalid channel id rather than closing the connection.
func decode(payload json.RawMessage, target any) error {
	if len(payload) == 0 {
		return nil
	}
	if err := json.Unmarshal(payload, target); err != nil {
		return protocol.NewServiceError(protocol.ErrorInvalidChannelID, "malformed payload: %v", err)
	}
	return nil
}

// asServiceError coerces any dispatch failure into a wire error envelope.
func asServiceError(err error) *protocol.ServiceError {
	if svcErr, ok := err.(*protocol.ServiceError); ok {
		return svcErr
	}
	return protocol.NewServiceError(protocol.ErrorChannelNotFound, "%v", err)
}
