// Package prompt provides the sources of the player's answers: an
// interactive console, a scripted YAML file, and a per-answer deadline.
package prompt

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/talgya/hamurabi/internal/engine"
)

// Console asks questions on W and reads answers line by line from R.
// With Echo set, each answer is written back as "> answer", which keeps a
// transcript readable when input is piped in.
type Console struct {
	R    io.Reader
	W    io.Writer
	Echo bool

	once  sync.Once
	lines chan lineResult
}

type lineResult struct {
	text string
	err  error
}

// NewConsole creates a console prompt.
func NewConsole(r io.Reader, w io.Writer) *Console {
	return &Console{R: r, W: w}
}

// Ask implements engine.Input.
func (c *Console) Ask(ctx context.Context, p engine.Prompt) (string, error) {
	c.once.Do(c.startReader)

	fmt.Fprintf(c.W, "\n%s\n", p.Text)

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res, ok := <-c.lines:
		if !ok {
			return "", io.EOF
		}
		if res.err != nil {
			return "", res.err
		}
		answer := strings.TrimSpace(res.text)
		if c.Echo {
			fmt.Fprintf(c.W, "> %s\n", answer)
		}
		return answer, nil
	}
}

// startReader reads lines on its own goroutine so a blocked read never
// holds up cancellation.
func (c *Console) startReader() {
	c.lines = make(chan lineResult)
	go func() {
		defer close(c.lines)
		br := bufio.NewReader(c.R)
		for {
			line, err := br.ReadString('\n')
			if line != "" {
				c.lines <- lineResult{text: line}
			}
			if err != nil {
				if !errors.Is(err, io.EOF) {
					c.lines <- lineResult{err: err}
				}
				return
			}
		}
	}()
}

// Timeout bounds how long a single answer may take. Zero means no bound.
type Timeout struct {
	In    engine.Input
	After time.Duration
}

// Ask implements engine.Input.
func (t Timeout) Ask(ctx context.Context, p engine.Prompt) (string, error) {
	if t.After <= 0 {
		return t.In.Ask(ctx, p)
	}
	ctx, cancel := context.WithTimeout(ctx, t.After)
	defer cancel()
	return t.In.Ask(ctx, p)
}
