// Package advisor plays a term without a human: a rule-based steward that
// answers every prompt with a safe, deterministic choice.
package advisor

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/talgya/hamurabi/internal/engine"
)

// RationPerPerson is the grain each person needs to avoid starving.
const RationPerPerson = 20

// Advice is the steward's answer to one prompt.
type Advice struct {
	Amount    int
	Rationale string
}

// Steward answers prompts by rule. It never trades land, feeds everyone it
// can, and plants as much as land, workers and seed allow.
type Steward struct{}

// Advise decides one answer. The result is always within p.Limit.
func Advise(p engine.Prompt) Advice {
	var a Advice
	switch p.Decision {
	case engine.DecideBuy:
		a = Advice{0, "land is a gamble at this price; buy none"}
	case engine.DecideSell:
		a = Advice{0, "keep every acre for planting"}
	case engine.DecideFeed:
		a = Advice{RationPerPerson * p.City.Population, "full rations for everyone"}
	case engine.DecidePlant:
		a = Advice{p.Limit, "plant everything the workers and seed can cover"}
	}
	return clamp(a, p)
}

// clamp keeps the answer inside the bounds the engine will accept.
func clamp(a Advice, p engine.Prompt) Advice {
	if a.Amount > p.Limit {
		slog.Debug("steward advice capped", "decision", p.Decision, "requested", a.Amount, "capped", p.Limit)
		a.Amount = p.Limit
		a.Rationale += " (capped by what we have)"
	}
	if a.Amount < 0 {
		a.Amount = 0
	}
	return a
}

// Ask implements engine.Input.
func (Steward) Ask(ctx context.Context, p engine.Prompt) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	a := Advise(p)
	slog.Debug("steward decided", "year", p.Year, "decision", p.Decision, "amount", a.Amount, "rationale", a.Rationale)
	return strconv.Itoa(a.Amount), nil
}
