// Package lockdebug serves the state of reader/writer locks over HTTP.
package lockdebug

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/felixge/httpsnoop"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"gitlab.com/slon/reentrant-rwlock/rwlock"
)

// Snapshotter is implemented by *rwlock.RWLock.
type Snapshotter interface {
	Snapshot() rwlock.Snapshot
}

// ReaderView is one reader of a lock and its reentrant read count.
type ReaderView struct {
	Caller string `json:"caller"`
	Count  int    `json:"count"`
}

// LockView is the JSON form of a lock snapshot.
type LockView struct {
	Name          string       `json:"name"`
	State         string       `json:"state"`
	Writer        string       `json:"writer,omitempty"`
	WriteDepth    int          `json:"write_depth"`
	PendingWrites int          `json:"pending_writes"`
	Readers       []ReaderView `json:"readers"`
	Error         string       `json:"error,omitempty"`
}

// NewLockView converts s to its JSON form. Readers are sorted by caller.
func NewLockView(name string, s rwlock.Snapshot) LockView {
	v := LockView{
		Name:          name,
		State:         s.State().String(),
		WriteDepth:    s.WriteDepth,
		PendingWrites: s.PendingWrites,
		Readers:       []ReaderView{},
	}
	if !s.Writer.IsZero() {
		v.Writer = s.Writer.String()
	}
	if err := s.Check(); err != nil {
		v.Error = err.Error()
	}

	counts := make(map[string]int, len(s.Readers))
	for c, n := range s.Readers {
		counts[c.String()] = n
	}
	callers := maps.Keys(counts)
	slices.Sort(callers)
	for _, c := range callers {
		v.Readers = append(v.Readers, ReaderView{Caller: c, Count: counts[c]})
	}
	return v
}

// Server exposes registered locks and prometheus metrics.
type Server struct {
	log      *zap.Logger
	gatherer prometheus.Gatherer

	mu    sync.Mutex
	locks map[string]Snapshotter
}

// NewServer creates a Server serving metrics from gatherer. A nil log
// disables logging, a nil gatherer means prometheus.DefaultGatherer.
func NewServer(log *zap.Logger, gatherer prometheus.Gatherer) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return &Server{
		log:      log,
		gatherer: gatherer,
		locks:    make(map[string]Snapshotter),
	}
}

// Register makes lock visible under name, replacing a previous one.
func (s *Server) Register(name string, lock Snapshotter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.locks[name] = lock
}

func (s *Server) lookup(name string) (Snapshotter, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[name]
	return l, ok
}

func (s *Server) names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := maps.Keys(s.locks)
	slices.Sort(names)
	return names
}

// Handler returns the router:
//
//	GET /healthz
//	GET /metrics
//	GET /debug/rwlock
//	GET /debug/rwlock/{name}
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(s.accessLog)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})
	r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	r.Get("/debug/rwlock", s.listLocks)
	r.Get("/debug/rwlock/{name}", s.getLock)
	return r
}

func (s *Server) listLocks(w http.ResponseWriter, _ *http.Request) {
	views := []LockView{}
	for _, name := range s.names() {
		if l, ok := s.lookup(name); ok {
			views = append(views, NewLockView(name, l.Snapshot()))
		}
	}
	s.writeJSON(w, http.StatusOK, views)
}

func (s *Server) getLock(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	l, ok := s.lookup(name)
	if !ok {
		s.writeJSON(w, http.StatusNotFound, map[string]string{"error": "lock not found"})
		return
	}
	s.writeJSON(w, http.StatusOK, NewLockView(name, l.Snapshot()))
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Warn("failed to write response", zap.Error(err))
	}
}

func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m := httpsnoop.CaptureMetrics(next, w, r)
		s.log.Debug("request processed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", m.Code),
			zap.Int64("bytes", m.Written),
			zap.Duration("latency", m.Duration),
		)
	})
}
