package prompt

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/hamurabi/internal/city"
	"github.com/talgya/hamurabi/internal/engine"
	"github.com/talgya/hamurabi/internal/entropy"
)

var buyPrompt = engine.Prompt{Year: 1, Decision: engine.DecideBuy, Text: "HOW MANY ACRES DO YOU WISH TO BUY?"}

func TestConsole_ReadsLines(t *testing.T) {
	var out bytes.Buffer
	c := NewConsole(strings.NewReader("12\n  7  \nlast"), &out)
	c.Echo = true
	ctx := context.Background()

	for _, want := range []string{"12", "7", "last"} {
		got, err := c.Ask(ctx, buyPrompt)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := c.Ask(ctx, buyPrompt)
	assert.ErrorIs(t, err, io.EOF)

	assert.Contains(t, out.String(), "\nHOW MANY ACRES DO YOU WISH TO BUY?\n> 12\n")
	assert.Contains(t, out.String(), "> 7\n")
}

func TestConsole_Cancelled(t *testing.T) {
	r, w := io.Pipe()
	defer w.Close()
	c := NewConsole(r, io.Discard)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := c.Ask(ctx, buyPrompt)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestTimeout_BoundsAnswer(t *testing.T) {
	r, w := io.Pipe()
	defer w.Close()
	in := Timeout{In: NewConsole(r, io.Discard), After: 10 * time.Millisecond}

	_, err := in.Ask(context.Background(), buyPrompt)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestTimeout_ZeroPassesThrough(t *testing.T) {
	in := Timeout{In: NewScript("3")}
	got, err := in.Ask(context.Background(), buyPrompt)
	require.NoError(t, err)
	assert.Equal(t, "3", got)
}

func TestParseScript(t *testing.T) {
	s, err := ParseScript([]byte(`
answers: ["lots", "-1"]
years:
  - {buy: 0, sell: 0, feed: 2000, plant: 1000}
  - buy: 5
    sell: 0
    feed: 1900
    plant: 900
`))
	require.NoError(t, err)
	assert.Equal(t, 10, s.Remaining())

	var got []string
	for s.Remaining() > 0 {
		a, err := s.Ask(context.Background(), buyPrompt)
		require.NoError(t, err)
		got = append(got, a)
	}
	assert.Equal(t, []string{"lots", "-1", "0", "0", "2000", "1000", "5", "0", "1900", "900"}, got)

	_, err = s.Ask(context.Background(), buyPrompt)
	assert.ErrorIs(t, err, ErrScriptExhausted)
}

func TestParseScript_BadYAML(t *testing.T) {
	_, err := ParseScript([]byte("years: [buy: {"))
	assert.Error(t, err)
}

func TestScript_DrivesTerm(t *testing.T) {
	script := NewScript("x")
	script.answers = append(script.answers, ScriptFromYears([]engine.Decisions{{Feed: 2000, Plant: 1000}}).answers...)
	term := engine.NewTerm(entropy.NewFixed(0, 0.35, 0.45, 0, 0.5), script, nopDisplay{})

	_, err := term.Run(context.Background())
	require.ErrorIs(t, err, ErrScriptExhausted)
	require.Len(t, term.Reports, 1)
	assert.Equal(t, 5300, term.Reports[0].State.Grain)
}

type nopDisplay struct{}

func (nopDisplay) Events([]engine.Event)    {}
func (nopDisplay) Status(city.Snapshot)     {}
func (nopDisplay) Reject(*engine.Rejection) {}
func (nopDisplay) Summary(city.Summary)     {}
