package api

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/talgya/hamurabi/internal/city"
	"github.com/talgya/hamurabi/internal/display"
	"github.com/talgya/hamurabi/internal/engine"
)

// ErrDisconnected is returned by Ask once the player has gone.
var ErrDisconnected = errors.New("player disconnected")

const writeWait = 5 * time.Second

// session plays one term over a websocket. It is both the Input and the
// Display of the term; answers arrive from the connection's reader loop.
type session struct {
	conn *websocket.Conn

	mu      sync.Mutex // Serializes writes
	answers chan string
	gone    chan struct{}
	once    sync.Once

	text *display.Text
	buf  bytes.Buffer
}

func newSession(conn *websocket.Conn, scribe func([]engine.Event) string) *session {
	s := &session{
		conn:    conn,
		answers: make(chan string, 1),
		gone:    make(chan struct{}),
	}
	s.text = display.NewText(&s.buf)
	s.text.Scribe = scribe
	return s
}

func (s *session) send(msg ServerMsg) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteJSON(msg)
}

func (s *session) sendError(text string) {
	_ = s.send(ServerMsg{Type: TypeError, Error: text})
}

// disconnect marks the player as gone. Safe to call more than once.
func (s *session) disconnect() {
	s.once.Do(func() { close(s.gone) })
}

// offer hands an answer to the next Ask. Answers queue one deep, so a
// player may answer ahead of the prompt; a second early answer is dropped
// with an error.
func (s *session) offer(text string) {
	select {
	case s.answers <- text:
	default:
		s.sendError("no question is waiting for an answer")
	}
}

// Ask implements engine.Input.
func (s *session) Ask(ctx context.Context, p engine.Prompt) (string, error) {
	if err := s.send(ServerMsg{Type: TypePrompt, Prompt: &p}); err != nil {
		return "", err
	}
	return s.await(ctx)
}

// await returns the next answer, including one queued before the prompt.
func (s *session) await(ctx context.Context) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-s.gone:
		return "", ErrDisconnected
	case a := <-s.answers:
		return a, nil
	}
}

// Events implements engine.Display.
func (s *session) Events(events []engine.Event) {
	s.buf.Reset()
	s.text.Events(events)
	_ = s.send(ServerMsg{Type: TypeEvents, Events: events, Lines: lines(s.buf.String())})
}

// Status implements engine.Display.
func (s *session) Status(snap city.Snapshot) {
	_ = s.send(ServerMsg{Type: TypeStatus, Status: &snap})
}

// Reject implements engine.Display.
func (s *session) Reject(r *engine.Rejection) {
	_ = s.send(ServerMsg{Type: TypeReject, Reject: &RejectMsg{Rejection: r, Message: display.RejectLine(r)}})
}

// Summary implements engine.Display.
func (s *session) Summary(sum city.Summary) {
	_ = s.send(ServerMsg{
		Type:    TypeSummary,
		Summary: &sum,
		Verdict: city.VerdictName(sum.Verdict),
		Lines:   display.SummaryLines(sum),
	})
}

func lines(text string) []string {
	text = strings.Trim(text, "\n")
	if text == "" {
		return nil
	}
	return strings.Split(text, "\n")
}
