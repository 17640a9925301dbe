// Package ws serves reactive dashboard sessions over websocket.
//
// On connect the server sends the filter options and the dashboard for the
// empty filter state. Every filter message from the client triggers one
// recomputation; results of requests that were superseded while computing
// are discarded so the client only ever sees the latest state.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/okian/castle/internal/adapters/mq/queue"
	"github.com/okian/castle/internal/adapters/mq/worker"
	"github.com/okian/castle/internal/domain/aggregate"
	"github.com/okian/castle/internal/domain/filter"
	"github.com/okian/castle/pkg/logger"
	"github.com/okian/castle/pkg/metrics"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	defaultReadLimit = 64 << 10
	shutdownTimeout  = 5 * time.Second
)

// Message types.
const (
	TypeOptions   = "options"
	TypeDashboard = "dashboard"
	TypeFilter    = "filter"
	TypeHeartbeat = "heartbeat"
	TypeError     = "error"
)

// Error codes sent in error frames.
const (
	CodeMalformed = "malformed"
	CodeBadFilter = "bad_filter"
	CodeFailed    = "recompute_failed"
)

// Backend answers the queries of a session.
type Backend interface {
	FilterOptions(ctx context.Context) ([]aggregate.Option, error)
	Dashboard(ctx context.Context, state filter.State) (aggregate.Dashboard, error)
}

// ClientMessage is a frame sent by the browser.
type ClientMessage struct {
	Type    string              `json:"type" validate:"required,oneof=filter heartbeat"`
	Seq     uint64              `json:"seq"`
	Filters map[string][]string `json:"filters"`
}

// ServerMessage is a frame sent to the browser.
type ServerMessage struct {
	Type      string               `json:"type"`
	Session   string               `json:"session"`
	Seq       uint64               `json:"seq"`
	Options   []aggregate.Option   `json:"options,omitempty"`
	Filters   map[string][]string  `json:"filters,omitempty"`
	Dashboard *aggregate.Dashboard `json:"dashboard,omitempty"`
	Error     *ErrorBody           `json:"error,omitempty"`
}

// ErrorBody describes a rejected or failed request.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

var validate = validator.New()

// Handler upgrades requests and runs one session per connection.
type Handler struct {
	backend   Backend
	upgrader  websocket.Upgrader
	readLimit int64
	logger    logger.Logger
}

// NewHandler creates a websocket handler.
func NewHandler(b Backend, opts ...Option) *Handler {
	h := &Handler{
		backend:   b,
		readLimit: defaultReadLimit,
		logger:    logger.Get().Named("ws"),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// ServeHTTP upgrades the connection and blocks until the session ends.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		h.logger.Warn(r.Context(), "websocket upgrade failed", logger.Error(err))
		return
	}

	s := &session{
		id:      uuid.New().String(),
		conn:    conn,
		backend: h.backend,
		mailbox: queue.NewMailbox(),
	}
	s.logger = h.logger.Named(s.id)
	s.run(r.Context(), h.readLimit)
}

type session struct {
	id      string
	conn    *websocket.Conn
	backend Backend
	mailbox *queue.Mailbox
	logger  logger.Logger

	// One writer at a time; gorilla connections allow a single concurrent writer.
	writeMu sync.Mutex
}

func (s *session) run(parent context.Context, readLimit int64) {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	metrics.UpdateWSSessions(1)
	defer metrics.UpdateWSSessions(-1)
	defer s.conn.Close()

	s.logger.Info(ctx, "session opened", logger.String("remote", s.conn.RemoteAddr().String()))

	if err := s.greet(ctx); err != nil {
		s.logger.Warn(ctx, "session greeting failed", logger.Error(err))
		return
	}

	w := worker.NewRecomputer(s.mailbox, s.backend, worker.PublisherFunc(s.publish),
		worker.WithName(s.id),
		worker.WithLogger(s.logger),
	)
	go w.Run(ctx)
	go s.ping(ctx)

	s.read(ctx, readLimit)

	_ = s.mailbox.Close()
	sctx, scancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer scancel()
	_ = w.Shutdown(sctx)

	s.logger.Info(ctx, "session closed", logger.Int("superseded", int(s.mailbox.Superseded())))
}

// greet sends the filter options and the unfiltered dashboard.
func (s *session) greet(ctx context.Context) error {
	opts, err := s.backend.FilterOptions(ctx)
	if err != nil {
		return err
	}
	if err := s.write(ServerMessage{Type: TypeOptions, Options: opts}); err != nil {
		return err
	}
	d, err := s.backend.Dashboard(ctx, filter.State{})
	if err != nil {
		return err
	}
	return s.write(ServerMessage{Type: TypeDashboard, Dashboard: &d})
}

func (s *session) read(ctx context.Context, limit int64) {
	s.conn.SetReadLimit(limit)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn(ctx, "unexpected websocket close", logger.Error(err))
			}
			return
		}
		metrics.RecordWSMessage(metrics.DirectionIn)
		_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))

		if err := s.handle(ctx, data); err != nil {
			s.logger.Warn(ctx, "write failed", logger.Error(err))
			return
		}
	}
}

// handle processes one client frame. Only write failures are returned.
func (s *session) handle(ctx context.Context, data []byte) error {
	var msg ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return s.fail(0, CodeMalformed, err)
	}
	if err := validate.Struct(msg); err != nil {
		return s.fail(msg.Seq, CodeMalformed, errors.New("type must be one of: filter, heartbeat"))
	}
	if msg.Type == TypeHeartbeat {
		return nil
	}

	state := filter.State{Selections: msg.Filters}
	if err := state.Validate(); err != nil {
		return s.fail(msg.Seq, CodeBadFilter, err)
	}
	if !s.mailbox.Enqueue(ctx, queue.Request{Seq: msg.Seq, State: state}) {
		s.logger.Debug(ctx, "ignoring stale filter request", logger.Int("seq", int(msg.Seq)))
	}
	return nil
}

func (s *session) publish(ctx context.Context, r worker.Result) error {
	if r.Err != nil {
		return s.fail(r.Seq, CodeFailed, r.Err)
	}
	d := r.Dashboard
	return s.write(ServerMessage{Type: TypeDashboard, Seq: r.Seq, Filters: r.State.Selections, Dashboard: &d})
}

func (s *session) fail(seq uint64, code string, err error) error {
	return s.write(ServerMessage{Type: TypeError, Seq: seq, Error: &ErrorBody{Code: code, Message: err.Error()}})
}

func (s *session) write(msg ServerMessage) error { //nolint:gocritic // hugeParam: frames are small and built per call
	msg.Session = s.id

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := s.conn.WriteJSON(msg); err != nil {
		return err
	}
	metrics.RecordWSMessage(metrics.DirectionOut)
	return nil
}

func (s *session) ping(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}
