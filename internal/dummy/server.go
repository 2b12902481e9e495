// Package dummy is a stand-in target service: a small authenticated HTTP API,
// a websocket stream and a static page for the sanity probe.
package dummy

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

type ServerConfig struct {
	Port int

	// SlowDelay is how long /api/slow takes; zero means 1-2s.
	SlowDelay time.Duration
	// TickInterval is how often the stream pushes a message.
	TickInterval time.Duration
	// RequireAuth rejects requests without a bearer token.
	RequireAuth bool
	// VerifyToken, if set, must accept the bearer token as well.
	VerifyToken func(token string) error
}

// Server counts what it served so tests can compare both sides of a run.
type Server struct {
	cfg      ServerConfig
	mux      *http.ServeMux
	upgrader websocket.Upgrader
	log      *zap.Logger

	requests      atomic.Int64
	streamsOpened atomic.Int64
	streamsActive atomic.Int64
}

func NewServer(cfg ServerConfig, log *zap.Logger) *Server {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = 500 * time.Millisecond
	}
	if log == nil {
		log = zap.NewNop()
	}

	s := &Server{
		cfg: cfg,
		mux: http.NewServeMux(),
		log: log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}

	// 1. Frontend page for the headless probe
	s.mux.HandleFunc("/", s.handleIndex)

	// 2. Representative read endpoint (5-20ms)
	s.mux.HandleFunc("/api/me", s.authed(func(w http.ResponseWriter, r *http.Request) {
		jitter := time.Duration(rand.Intn(15)+5) * time.Millisecond
		if !wait(r.Context(), jitter) {
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{
			"user":   r.Header.Get("X-Chaosq-User"),
			"status": "ok",
		})
	}))

	// 3. Always fails
	s.mux.HandleFunc("/api/fail", s.authed(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "500 Internal Server Error", http.StatusInternalServerError)
	}))

	// 4. Slow endpoint, good for aborts and timeouts
	s.mux.HandleFunc("/api/slow", s.authed(func(w http.ResponseWriter, r *http.Request) {
		d := s.cfg.SlowDelay
		if d <= 0 {
			d = time.Duration(rand.Intn(1000)+1000) * time.Millisecond
		}
		if !wait(r.Context(), d) {
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("Slow response"))
	}))

	// 5. Streaming endpoint
	s.mux.HandleFunc("/ws", s.authed(s.handleStream))

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) Requests() int64      { return s.requests.Load() }
func (s *Server) StreamsOpened() int64 { return s.streamsOpened.Load() }
func (s *Server) StreamsActive() int64 { return s.streamsActive.Load() }

func (s *Server) authed(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.requests.Add(1)
		header := r.Header.Get("Authorization")
		if s.cfg.RequireAuth && !strings.HasPrefix(header, "Bearer ") {
			http.Error(w, "401 Unauthorized", http.StatusUnauthorized)
			return
		}
		if s.cfg.VerifyToken != nil {
			if err := s.cfg.VerifyToken(strings.TrimPrefix(header, "Bearer ")); err != nil {
				s.log.Debug("rejected token", zap.Error(err))
				http.Error(w, "401 Unauthorized", http.StatusUnauthorized)
				return
			}
		}
		next(w, r)
	}
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, `<!doctype html><html><head><title>chaosq dummy</title></head>`+
		`<body><main id="app">ready</main></body></html>`)
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Debug("upgrade failed", zap.Error(err))
		return
	}
	s.streamsOpened.Add(1)
	s.streamsActive.Add(1)
	defer s.streamsActive.Add(-1)

	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(s.cfg.TickInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case t := <-ticker.C:
				conn.SetWriteDeadline(time.Now().Add(time.Second))
				if err := conn.WriteMessage(websocket.TextMessage, []byte(t.UTC().Format(time.RFC3339Nano))); err != nil {
					return
				}
			}
		}
	}()

	// the default close handler echoes the client's close frame
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Debug("stream closed", zap.Error(err))
			}
			break
		}
	}
	close(done)
	conn.Close()
}

// Start listens on cfg.Port in the background and returns the bound server.
func Start(cfg ServerConfig, log *zap.Logger) (*http.Server, net.Addr, error) {
	if log == nil {
		log = zap.NewNop()
	}
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Port))
	if err != nil {
		return nil, nil, fmt.Errorf("listen: %w", err)
	}

	server := &http.Server{
		Handler:           NewServer(cfg, log),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := server.Serve(ln); err != nil && err != http.ErrServerClosed {
			log.Error("dummy server failed", zap.Error(err))
		}
	}()
	return server, ln.Addr(), nil
}

func wait(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
