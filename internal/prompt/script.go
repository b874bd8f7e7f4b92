package prompt

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/talgya/hamurabi/internal/engine"
)

// ErrScriptExhausted is returned when a script has no answers left.
var ErrScriptExhausted = errors.New("script exhausted")

// ScriptFile is the YAML layout of a decision script. Years are expanded
// into answers in the order the questions are asked; Answers are raw
// lines, useful for scripting rejected attempts.
type ScriptFile struct {
	Years   []engine.Decisions `yaml:"years"`
	Answers []string           `yaml:"answers"`
}

// Script answers prompts from a fixed list.
type Script struct {
	answers []string
	next    int
}

// NewScript creates a script from raw answers.
func NewScript(answers ...string) *Script {
	return &Script{answers: answers}
}

// ScriptFromYears expands yearly decisions into answers.
func ScriptFromYears(years []engine.Decisions) *Script {
	s := &Script{}
	for _, y := range years {
		s.answers = append(s.answers,
			strconv.Itoa(y.Buy),
			strconv.Itoa(y.Sell),
			strconv.Itoa(y.Feed),
			strconv.Itoa(y.Plant),
		)
	}
	return s
}

// ParseScript decodes a YAML script. Raw answers come first, then years.
func ParseScript(raw []byte) (*Script, error) {
	var f ScriptFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("script: %w", err)
	}
	s := ScriptFromYears(f.Years)
	s.answers = append(append([]string(nil), f.Answers...), s.answers...)
	return s, nil
}

// LoadScript reads a YAML script from disk.
func LoadScript(path string) (*Script, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseScript(raw)
}

// Ask implements engine.Input.
func (s *Script) Ask(ctx context.Context, p engine.Prompt) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if s.next >= len(s.answers) {
		return "", fmt.Errorf("%w: year %d %s", ErrScriptExhausted, p.Year, p.Decision)
	}
	a := s.answers[s.next]
	s.next++
	return a, nil
}

// Remaining returns how many answers are left.
func (s *Script) Remaining() int {
	return len(s.answers) - s.next
}
