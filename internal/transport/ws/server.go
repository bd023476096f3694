package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"

	"github.com/Rambha123/voxspace/internal/domain"
	"github.com/Rambha123/voxspace/internal/metrics"
	"github.com/Rambha123/voxspace/pkg/logger"
)

var tracer = otel.Tracer("github.com/Rambha123/voxspace/internal/transport/ws")

type ChatSvc interface {
	Send(ctx context.Context, d domain.Draft) (domain.Message, error)
	Recent(ctx context.Context, room string, limit int) ([]domain.Message, error)
	Authorize(ctx context.Context, userID, room string) error
}

type TokenVerifier interface {
	UserID(token string) (string, error)
}

type Directory interface {
	Resolve(ctx context.Context, userID string) (domain.User, error)
}

type Options struct {
	ReplayLimit    int
	SendBuffer     int
	PingInterval   time.Duration
	AllowedOrigins []string
}

type Server struct {
	upgrader websocket.Upgrader
	hub      *Hub
	chat     ChatSvc
	verifier TokenVerifier
	users    Directory

	replayLimit int
	sendBuffer  int
	pingEvery   time.Duration
}

func NewServer(hub *Hub, chat ChatSvc, verifier TokenVerifier, users Directory, opts Options) *Server {
	s := &Server{
		hub:         hub,
		chat:        chat,
		verifier:    verifier,
		users:       users,
		replayLimit: opts.ReplayLimit,
		sendBuffer:  opts.SendBuffer,
		pingEvery:   opts.PingInterval,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(opts.AllowedOrigins),
		},
	}
	if s.replayLimit <= 0 {
		s.replayLimit = 50
	}
	if s.pingEvery <= 0 {
		s.pingEvery = 15 * time.Second
	}
	return s
}

// originChecker allows every origin when the list is empty.
func originChecker(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		set[strings.ToLower(strings.TrimRight(o, "/"))] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		_, ok := set[strings.ToLower(u.Scheme+"://"+u.Host)]
		return ok
	}
}

func bearerToken(r *http.Request) string {
	if t := strings.TrimSpace(r.URL.Query().Get("access_token")); t != "" {
		return t
	}
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

// HandleWS serves GET /ws?access_token=...
func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token == "" {
		http.Error(w, "missing access_token", http.StatusUnauthorized)
		return
	}
	userID, err := s.verifier.UserID(token)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	name := ""
	if u, err := s.users.Resolve(r.Context(), userID); err == nil {
		name = u.DisplayName
	} else if errors.Is(err, domain.ErrUserNotFound) {
		http.Error(w, "unknown user", http.StatusUnauthorized)
		return
	} else {
		logger.Ctx(r.Context()).Warn("ws resolve user failed", slog.String("user", userID), slog.Any("err", err))
		http.Error(w, "user directory unavailable", http.StatusServiceUnavailable)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Ctx(r.Context()).Warn("ws upgrade failed", slog.Any("err", err))
		return
	}

	c := newWsConn(conn, uuid.NewString(), userID, name, s.sendBuffer)
	ctx := logger.WithAttrs(r.Context(), slog.String("conn", c.id), slog.String("user", userID))

	s.hub.Register(c)
	logger.Ctx(ctx).Debug("ws connected")

	go c.writeLoop(s.pingEvery)
	s.readLoop(ctx, c)

	rooms := s.hub.Rooms(c.id)
	s.hub.Unregister(c.id)
	if err := c.Close(); err != nil {
		logger.Ctx(ctx).Debug("ws close failed", slog.Any("err", err))
	}
	logger.Ctx(ctx).Debug("ws disconnected", slog.Int("rooms", len(rooms)))
}

func (s *Server) readLoop(ctx context.Context, c *wsConn) {
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(2 * s.pingEvery))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(2 * s.pingEvery))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Ctx(ctx).Debug("ws read failed", slog.Any("err", err))
			}
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(2 * s.pingEvery))

		var in struct {
			Type    string          `json:"type"`
			Payload json.RawMessage `json:"payload"`
		}
		if err := json.Unmarshal(data, &in); err != nil {
			s.reject(c, "", "", CodeBadRequest, "malformed frame")
			continue
		}
		s.dispatch(ctx, c, in.Type, in.Payload)
	}
}

func (s *Server) dispatch(ctx context.Context, c *wsConn, typ string, payload json.RawMessage) {
	switch typ {
	case TypeJoinRoom, TypeLeaveRoom, TypeSendMessage:
		metrics.WSEvents.WithLabelValues(typ).Inc()
	default:
		metrics.WSEvents.WithLabelValues("unknown").Inc()
		s.reject(c, typ, "", CodeBadRequest, "unknown event type")
		return
	}

	ctx, span := tracer.Start(ctx, "ws."+typ)
	defer span.End()

	switch typ {
	case TypeJoinRoom:
		s.handleJoin(ctx, c, payload)
	case TypeLeaveRoom:
		var p LeaveRoomPayload
		if err := json.Unmarshal(payload, &p); err != nil {
			s.reject(c, typ, "", CodeBadRequest, "malformed payload")
			return
		}
		s.hub.Leave(c.id, p.Room)
	case TypeSendMessage:
		s.handleSend(ctx, c, payload)
	}
}

func (s *Server) handleJoin(ctx context.Context, c *wsConn, raw json.RawMessage) {
	var p JoinRoomPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		s.reject(c, TypeJoinRoom, "", CodeBadRequest, "malformed payload")
		return
	}

	room := p.Room
	switch {
	case room != "":
	case p.PeerID != "":
		r, err := domain.ResolveDirectRoom(c.userID, p.PeerID)
		if err != nil {
			s.rejectErr(ctx, c, TypeJoinRoom, "", err)
			return
		}
		room = r
	case p.SpaceID != "":
		room = domain.SpaceRoom(p.SpaceID)
	}

	if err := s.chat.Authorize(ctx, c.userID, room); err != nil {
		s.rejectErr(ctx, c, TypeJoinRoom, room, err)
		return
	}

	joined, err := s.hub.Join(c.id, room)
	if err != nil || !joined {
		return
	}

	// Subscribed before replay: a message stored in between shows up both
	// live and in the replay, never in neither. Clients dedupe by id.
	msgs, err := s.chat.Recent(ctx, room, s.replayLimit)
	if err != nil {
		logger.Ctx(ctx).Warn("ws replay failed", slog.String("room", room), slog.Any("err", err))
		_ = c.Send(Message{Type: TypeWarning, Payload: ErrorPayload{
			Event:   TypeJoinRoom,
			Room:    room,
			Code:    CodeHistoryUnavailable,
			Message: "history unavailable",
		}})
		return
	}
	if msgs == nil {
		msgs = []domain.Message{}
	}
	_ = c.Send(Message{Type: TypeLoadMessages, Payload: LoadMessagesPayload{Room: room, Messages: msgs}})
}

func (s *Server) handleSend(ctx context.Context, c *wsConn, raw json.RawMessage) {
	var p SendMessagePayload
	if err := json.Unmarshal(raw, &p); err != nil {
		s.reject(c, TypeSendMessage, "", CodeBadRequest, "malformed payload")
		return
	}
	if p.Sender != nil && p.Sender.ID != "" && p.Sender.ID != c.userID {
		s.reject(c, TypeSendMessage, p.Room, CodeForbidden, "sender does not match connection")
		return
	}

	if p.Room != "" && !s.hub.Subscribed(c.id, p.Room) {
		if err := s.chat.Authorize(ctx, c.userID, p.Room); err != nil {
			s.rejectErr(ctx, c, TypeSendMessage, p.Room, err)
			return
		}
	}

	d := domain.Draft{
		Room:    p.Room,
		Sender:  domain.Sender{ID: c.userID, DisplayName: c.name},
		Content: p.Content,
		FileURL: p.FileURL,
	}
	if p.Timestamp != nil {
		d.Timestamp = *p.Timestamp
	}

	if _, err := s.chat.Send(ctx, d); err != nil {
		s.rejectErr(ctx, c, TypeSendMessage, p.Room, err)
	}
}

func (s *Server) rejectErr(ctx context.Context, c *wsConn, event, room string, err error) {
	code, msg := errorCode(err)
	if code == CodeInternal || code == CodePersistFailed {
		logger.Ctx(ctx).Error("ws request failed",
			slog.String("event", event), slog.String("room", room), slog.Any("err", err))
	}
	s.reject(c, event, room, code, msg)
}

func (s *Server) reject(c *wsConn, event, room, code, msg string) {
	_ = c.Send(Message{Type: TypeError, Payload: ErrorPayload{
		Event:   event,
		Room:    room,
		Code:    code,
		Message: msg,
	}})
}

func errorCode(err error) (string, string) {
	switch {
	case errors.Is(err, domain.ErrInvalidMessage):
		return CodeInvalidMessage, err.Error()
	case errors.Is(err, domain.ErrInvalidRoom),
		errors.Is(err, domain.ErrInvalidID),
		errors.Is(err, domain.ErrSelfRoom):
		return CodeBadRequest, err.Error()
	case errors.Is(err, domain.ErrForbidden):
		return CodeForbidden, err.Error()
	case errors.Is(err, domain.ErrPersist):
		return CodePersistFailed, "message not saved"
	default:
		return CodeInternal, "internal error"
	}
}
