// Package api serves terms over HTTP: a websocket to play a term and
// read-only endpoints over the chronicle of past terms.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/talgya/hamurabi/internal/city"
	"github.com/talgya/hamurabi/internal/engine"
	"github.com/talgya/hamurabi/internal/entropy"
	"github.com/talgya/hamurabi/internal/llm"
	"github.com/talgya/hamurabi/internal/persistence"
	"github.com/talgya/hamurabi/internal/prompt"
)

const (
	startWait = 10 * time.Second // Time allowed for the start message
	idleWait  = 30 * time.Minute // Time allowed between client messages
)

// Server plays terms for websocket clients and reports on the chronicle.
type Server struct {
	DB         *persistence.DB // Optional chronicle
	LLM        *llm.Client     // Optional scribe
	Entropy    entropy.Source  // Used when the client asks for no seed
	ArchiveDir string          // Empty disables archives
	Port       int

	SessionsPerHour int           // New terms per client IP
	AnswerTimeout   time.Duration // 0 waits forever
	TrustedProxies  []string      // Peers whose X-Forwarded-For is believed

	active   int32
	upgrader websocket.Upgrader
}

// Handler builds the routes of the API.
func (s *Server) Handler() http.Handler {
	perHour := s.SessionsPerHour
	if perHour <= 0 {
		perHour = 30
	}
	playLimiter := NewRateLimiter(perHour, time.Hour)

	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  4 * 1024,
		WriteBufferSize: 16 * 1024,
		CheckOrigin:     func(r *http.Request) bool { return true },
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/status", s.handleStatus)
	mux.HandleFunc("/api/v1/terms/", s.handleTermDetail)
	mux.HandleFunc("/api/v1/play", RateLimitMiddleware(playLimiter, proxySet(s.TrustedProxies), s.handlePlay))
	return corsMiddleware(mux)
}

// Run serves the API until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.Port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	slog.Info("HTTP API starting", "addr", srv.Addr, "chronicle", s.DB != nil, "scribe", s.LLM.Enabled())

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Active returns the number of terms being played right now.
func (s *Server) Active() int {
	return int(atomic.LoadInt32(&s.active))
}

// corsMiddleware adds CORS headers for allowed frontend origins.
// Set CORS_ORIGINS to a comma-separated list of extra allowed origins.
func corsMiddleware(next http.Handler) http.Handler {
	allowedOrigins := map[string]bool{
		"http://localhost:5173": true,
		"http://localhost:3000": true,
	}
	if env := os.Getenv("CORS_ORIGINS"); env != "" {
		for _, origin := range strings.Split(env, ",") {
			origin = strings.TrimSpace(origin)
			if origin != "" {
				allowedOrigins[origin] = true
			}
		}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if allowedOrigins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := map[string]any{
		"name":            "Hamurabi",
		"term_years":      city.TermYears,
		"active_sessions": s.Active(),
		"chronicle":       s.DB != nil,
		"scribe":          s.LLM.Enabled(),
	}
	if s.DB != nil {
		terms, err := s.DB.RecentTerms(10)
		if err != nil {
			slog.Error("recent terms", "error", err)
		} else {
			status["recent_terms"] = terms
		}
	}
	writeJSON(w, status)
}

// handleTermDetail returns the recorded years of one term.
func (s *Server) handleTermDetail(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		http.Error(w, "no chronicle configured", http.StatusNotFound)
		return
	}
	id, err := uuid.Parse(strings.TrimPrefix(r.URL.Path, "/api/v1/terms/"))
	if err != nil {
		http.Error(w, "invalid term id", http.StatusBadRequest)
		return
	}

	years, err := s.DB.Years(id)
	if err != nil {
		slog.Error("term years", "term", id, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if len(years) == 0 {
		http.Error(w, "term not found", http.StatusNotFound)
		return
	}

	detail := map[string]any{
		"id":    id,
		"years": years,
	}
	if hardest, err := s.DB.HardestYear(id); err == nil {
		detail["hardest_year"] = hardest.Year
	}
	writeJSON(w, detail)
}

// handlePlay upgrades to a websocket and plays one term with the client.
func (s *Server) handlePlay(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	start, err := s.awaitStart(conn)
	if err != nil {
		writeClose(conn, websocket.ClosePolicyViolation, err.Error())
		return
	}

	atomic.AddInt32(&s.active, 1)
	defer atomic.AddInt32(&s.active, -1)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	sess := newSession(conn, llm.Scribe(s.LLM, 20*time.Second))
	term := engine.NewTerm(s.source(start), prompt.Timeout{In: sess, After: s.AnswerTimeout}, sess)
	var seed int64
	if start.Seed != nil {
		seed = *start.Seed
	}
	closeChronicle := persistence.Attach(term, s.DB, s.ArchiveDir, seed)
	defer closeChronicle()

	if err := sess.send(ServerMsg{Type: TypeWelcome, Term: term.ID.String()}); err != nil {
		return
	}

	// Reader loop: answers go to the session; a dead connection ends the term.
	go func() {
		defer cancel()
		defer sess.disconnect()
		for {
			_ = conn.SetReadDeadline(time.Now().Add(idleWait))
			_, raw, err := conn.ReadMessage()
			if err != nil {
				return
			}
			msg, err := DecodeClient(raw)
			if err != nil {
				sess.sendError(err.Error())
				continue
			}
			if msg.Type != TypeAnswer {
				sess.sendError("term already started")
				continue
			}
			sess.offer(msg.Text)
		}
	}()

	if _, err := term.Run(ctx); err != nil {
		if !errors.Is(err, ErrDisconnected) && !errors.Is(err, context.Canceled) {
			sess.sendError(err.Error())
		}
		writeClose(conn, websocket.CloseGoingAway, "term interrupted")
		return
	}
	writeClose(conn, websocket.CloseNormalClosure, "term over")
}

// awaitStart reads the first message, which must start a term.
func (s *Server) awaitStart(conn *websocket.Conn) (ClientMsg, error) {
	_ = conn.SetReadDeadline(time.Now().Add(startWait))
	_, raw, err := conn.ReadMessage()
	if err != nil {
		return ClientMsg{}, err
	}
	msg, err := DecodeClient(raw)
	if err != nil {
		return msg, err
	}
	if msg.Type != TypeStart {
		return msg, fmt.Errorf("expected %q, got %q", TypeStart, msg.Type)
	}
	return msg, nil
}

// source picks the randomness of a new term.
func (s *Server) source(start ClientMsg) entropy.Source {
	if start.Seed != nil {
		return entropy.NewSeeded(*start.Seed)
	}
	if s.Entropy != nil {
		return s.Entropy
	}
	return entropy.Crypto{}
}

func writeClose(conn *websocket.Conn, code int, text string) {
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, text), time.Now().Add(time.Second))
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(data)
}
