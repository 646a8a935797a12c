package devtools

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	perrors "github.com/vango-dev/partition/internal/errors"
	"github.com/vango-dev/partition/pkg/part"
	"github.com/vango-dev/partition/pkg/store"
)

// Server is the inspector HTTP handler for one store.
type Server struct {
	store        *store.Store
	router       chi.Router
	logger       *slog.Logger
	metrics      http.Handler
	upgrader     websocket.Upgrader
	writeTimeout time.Duration

	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger. Defaults to the store logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// WithMetricsHandler mounts h at /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// WithWriteTimeout bounds each WebSocket frame write. Default: 10s.
func WithWriteTimeout(d time.Duration) Option {
	return func(s *Server) {
		s.writeTimeout = d
	}
}

// WithCheckOrigin sets the WebSocket origin check. All origins are allowed
// by default.
func WithCheckOrigin(fn func(r *http.Request) bool) Option {
	return func(s *Server) {
		s.upgrader.CheckOrigin = fn
	}
}

// New creates an inspector for st.
func New(st *store.Store, opts ...Option) *Server {
	s := &Server{
		store:        st,
		logger:       st.Logger(),
		writeTimeout: 10 * time.Second,
		clients:      make(map[*websocket.Conn]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/state", s.handleState)
	r.Get("/parts", s.handleParts)
	r.Route("/parts/{id}", func(r chi.Router) {
		r.Get("/", s.handlePart)
		r.Put("/", s.handleWrite)
		r.Get("/watch", s.handleWatch)
	})
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics)
	}
	s.router = r
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// StateResponse is the body of GET /state.
type StateResponse struct {
	StoreID string `json:"storeId"`
	Version uint64 `json:"version"`
	State   any    `json:"state"`
}

// PartResponse is the body of GET /parts/{id}.
type PartResponse struct {
	PartInfo
	Version uint64 `json:"version"`
	Value   any    `json:"value"`
}

// WriteRequest is the body of PUT /parts/{id}. Value sets a stateful part;
// Args are passed to a proxy writer or an update part.
type WriteRequest struct {
	Value json.RawMessage `json:"value,omitempty"`
	Args  []any           `json:"args,omitempty"`
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, StateResponse{
		StoreID: s.store.ID(),
		Version: s.store.Version(),
		State:   encodeValue(s.store.State()),
	})
}

func (s *Server) handleParts(w http.ResponseWriter, r *http.Request) {
	pt := s.store.Partitioner()
	parts := pt.Graph().Parts()
	out := make([]PartInfo, len(parts))
	for i, p := range parts {
		out[i] = Describe(p, pt)
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handlePart(w http.ResponseWriter, r *http.Request) {
	p, ok := s.lookup(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, PartResponse{
		PartInfo: Describe(p, s.store.Partitioner()),
		Version:  s.store.Version(),
		Value:    encodeValue(s.store.Get(p)),
	})
}

func (s *Server) handleWrite(w http.ResponseWriter, r *http.Request) {
	p, ok := s.lookup(w, r)
	if !ok {
		return
	}

	var req WriteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, perrors.New("P061").Wrap(err))
		return
	}

	thunk, perr := s.writeThunk(p, req)
	if perr != nil {
		status := http.StatusConflict
		if perr.Code == "P061" {
			status = http.StatusBadRequest
		}
		s.writeError(w, status, perr)
		return
	}

	s.store.Dispatch(thunk)
	s.logger.Info("devtools write",
		"store", s.store.ID(),
		"part", p.ID(),
		"kind", p.Kind().String(),
		"version", s.store.Version(),
	)

	s.writeJSON(w, http.StatusOK, PartResponse{
		PartInfo: Describe(p, s.store.Partitioner()),
		Version:  s.store.Version(),
		Value:    encodeValue(s.store.Get(p)),
	})
}

// writeThunk maps a write request to the thunk that performs it.
func (s *Server) writeThunk(p *part.Part, req WriteRequest) (part.Thunk, *perrors.PartitionError) {
	pt := s.store.Partitioner()

	switch p.Kind() {
	case part.KindPrimitive, part.KindComposed:
		if !pt.Knows(p.ID()) {
			return nil, perrors.New("P001").WithPart(p.ID(), p.Name()).Wrap(store.ErrUnknownPart)
		}
		if req.Value == nil {
			return nil, perrors.New("P061").WithDetail(`Stateful parts take a "value" field.`)
		}
		var v any
		if err := json.Unmarshal(req.Value, &v); err != nil {
			return nil, perrors.New("P061").Wrap(err)
		}
		return p.Set(v), nil

	case part.KindProxy:
		return p.Set(req.Args...), nil

	case part.KindUpdate:
		if !pt.Knows(p.Target().ID()) {
			return nil, perrors.New("P001").WithPart(p.Target().ID(), p.Target().Name()).Wrap(store.ErrUnknownPart)
		}
		return p.Call(req.Args...), nil

	default:
		return nil, perrors.New("P004").WithPart(p.ID(), p.Name()).Wrap(part.ErrReadOnly)
	}
}

// lookup resolves the {id} URL parameter, writing a 404 when it names no part.
func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (*part.Part, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseUint(raw, 10, 64)
	if err == nil {
		if p, ok := s.store.Partitioner().Graph().Lookup(id); ok {
			return p, true
		}
	}
	s.writeError(w, http.StatusNotFound, perrors.New("P060").WithDetail("No part with id "+strconv.Quote(raw)+"."))
	return nil, false
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("devtools encode failed", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	var pe *perrors.PartitionError
	if !errors.As(err, &pe) {
		pe = perrors.FromError(err, "P061")
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(pe.FormatJSON() + "\n"))
}

// ClientCount returns the number of connected watch clients.
func (s *Server) ClientCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

// Close closes all watch connections.
func (s *Server) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for conn := range s.clients {
		conn.Close()
		delete(s.clients, conn)
	}
}
