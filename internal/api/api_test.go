package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/hamurabi/internal/city"
	"github.com/talgya/hamurabi/internal/engine"
	"github.com/talgya/hamurabi/internal/persistence"
)

func TestDecodeClient(t *testing.T) {
	msg, err := DecodeClient([]byte(`{"type":"start","seed":9}`))
	require.NoError(t, err)
	assert.Equal(t, TypeStart, msg.Type)
	require.NotNil(t, msg.Seed)
	assert.Equal(t, int64(9), *msg.Seed)

	msg, err = DecodeClient([]byte(`{"type":"answer","text":"12"}`))
	require.NoError(t, err)
	assert.Equal(t, "12", msg.Text)

	for _, raw := range []string{
		`not json`,
		`{"type":"answer"}`,
		`{"type":"quit"}`,
		`{"type":"start","seed":1.5}`,
		`{"type":"start","extra":true}`,
		`{"type":"answer","text":"` + strings.Repeat("9", 65) + `"}`,
	} {
		_, err := DecodeClient([]byte(raw))
		assert.Error(t, err, raw)
	}
}

func TestRateLimiter(t *testing.T) {
	now := time.Unix(1000, 0)
	rl := NewRateLimiter(2, time.Hour)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.Allow("a"))
	assert.True(t, rl.Allow("a"))
	assert.False(t, rl.Allow("a"))
	assert.True(t, rl.Allow("b"))
	assert.Equal(t, 3600, rl.RetryAfter("a"))

	now = now.Add(90 * time.Minute / 60)
	assert.Equal(t, 3510, rl.RetryAfter("a"))
	now = now.Add(500 * time.Millisecond)
	assert.Equal(t, 3510, rl.RetryAfter("a"))

	now = time.Unix(1000, 0).Add(time.Hour)
	assert.True(t, rl.Allow("a"))
	assert.Equal(t, 0, rl.RetryAfter("nobody"))
}

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "10.0.0.7:5555"
	assert.Equal(t, "10.0.0.7", clientIP(r, nil))

	// A direct client cannot pick its own address.
	r.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	assert.Equal(t, "10.0.0.7", clientIP(r, nil))
	assert.Equal(t, "10.0.0.7", clientIP(r, proxySet([]string{"10.0.0.1"})))

	assert.Equal(t, "203.0.113.9", clientIP(r, proxySet([]string{" 10.0.0.7 ", ""})))

	r.Header.Del("X-Forwarded-For")
	assert.Equal(t, "10.0.0.7", clientIP(r, proxySet([]string{"10.0.0.7"})))
}

func TestRateLimitMiddleware_IgnoresForgedForwardedFor(t *testing.T) {
	rl := NewRateLimiter(1, time.Hour)
	h := RateLimitMiddleware(rl, nil, func(w http.ResponseWriter, r *http.Request) {})

	for i, want := range []int{http.StatusOK, http.StatusTooManyRequests, http.StatusTooManyRequests} {
		r := httptest.NewRequest(http.MethodGet, "/api/v1/play", nil)
		r.RemoteAddr = "198.51.100.4:4000"
		r.Header.Set("X-Forwarded-For", fmt.Sprintf("203.0.113.%d", i))
		w := httptest.NewRecorder()
		h(w, r)
		assert.Equal(t, want, w.Code, "request %d", i)
	}
}

func TestSession_EarlyAnswerQueued(t *testing.T) {
	s := newSession(nil, nil)
	s.offer("12")

	got, err := s.await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "12", got)
}

func newTestServer(t *testing.T, s *Server) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func dial(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/play"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func read(t *testing.T, conn *websocket.Conn) ServerMsg {
	t.Helper()
	var msg ServerMsg
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestPlay_FullTerm(t *testing.T) {
	db, err := persistence.Open("")
	require.NoError(t, err)
	defer db.Close()

	s := &Server{DB: db, SessionsPerHour: 5}
	ts := newTestServer(t, s)
	conn := dial(t, ts)

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "start", "seed": 42}))
	welcome := read(t, conn)
	require.Equal(t, TypeWelcome, welcome.Type)

	prompts, rejects, reports := 0, 0, 0
	var summary ServerMsg
	for summary.Type == "" {
		msg := read(t, conn)
		switch msg.Type {
		case TypePrompt:
			prompts++
			answer := "0"
			if prompts == 1 {
				answer = "lots"
			}
			require.NoError(t, conn.WriteJSON(map[string]any{"type": "answer", "text": answer}))
		case TypeReject:
			rejects++
			assert.Equal(t, engine.ReasonNotANumber, msg.Reject.Reason)
			assert.Contains(t, msg.Reject.Message, "PLEASE ENTER A VALID NUMBER")
		case TypeEvents:
			if msg.Events[0].Kind == engine.EventYearBegin {
				reports++
				assert.Contains(t, msg.Lines[1], "IN YEAR")
			}
		case TypeSummary:
			summary = msg
		case TypeError:
			t.Fatalf("server error: %s", msg.Error)
		}
	}

	assert.Equal(t, 1, rejects)
	assert.Equal(t, 4*(city.TermYears-1)+1, prompts)
	assert.Equal(t, city.TermYears, reports)
	assert.Equal(t, city.TermYears, summary.Summary.Years)
	assert.NotEmpty(t, summary.Verdict)

	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)

	resp, err := http.Get(ts.URL + "/api/v1/status")
	require.NoError(t, err)
	defer resp.Body.Close()
	var status struct {
		Active int                   `json:"active_sessions"`
		Terms  []persistence.TermRow `json:"recent_terms"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
	require.Len(t, status.Terms, 1)
	assert.Equal(t, welcome.Term, status.Terms[0].ID)
	assert.True(t, status.Terms[0].Finished)

	detail, err := http.Get(ts.URL + "/api/v1/terms/" + welcome.Term)
	require.NoError(t, err)
	defer detail.Body.Close()
	assert.Equal(t, http.StatusOK, detail.StatusCode)
}

func TestPlay_RequiresStart(t *testing.T) {
	ts := newTestServer(t, &Server{})
	conn := dial(t, ts)

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "answer", "text": "3"}))
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, _, err := conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.ClosePolicyViolation), "got %v", err)
}

func TestPlay_DisconnectEndsTerm(t *testing.T) {
	s := &Server{}
	ts := newTestServer(t, s)
	conn := dial(t, ts)

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "start", "seed": 1}))
	for read(t, conn).Type != TypePrompt {
	}
	assert.Equal(t, 1, s.Active())

	conn.Close()
	assert.Eventually(t, func() bool { return s.Active() == 0 }, 5*time.Second, 10*time.Millisecond)
}

func TestPlay_AnswerTimeout(t *testing.T) {
	ts := newTestServer(t, &Server{AnswerTimeout: 50 * time.Millisecond})
	conn := dial(t, ts)

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "start", "seed": 1}))
	for {
		msg := read(t, conn)
		if msg.Type == TypeError {
			assert.Contains(t, msg.Error, "deadline exceeded")
			return
		}
	}
}

func TestPlay_RateLimited(t *testing.T) {
	ts := newTestServer(t, &Server{SessionsPerHour: 1})
	dial(t, ts)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/play"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.ErrorIs(t, err, websocket.ErrBadHandshake)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("Retry-After"))
}

func TestTermDetail_Errors(t *testing.T) {
	ts := newTestServer(t, &Server{})
	resp, err := http.Get(ts.URL + "/api/v1/terms/whatever")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	db, err := persistence.Open("")
	require.NoError(t, err)
	defer db.Close()
	ts = newTestServer(t, &Server{DB: db})

	resp, err = http.Get(ts.URL + "/api/v1/terms/not-a-uuid")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = http.Get(ts.URL + "/api/v1/terms/6f1c1f5e-2a4b-4d0c-9a57-0a5c7d9b0e11")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
