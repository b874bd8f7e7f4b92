// Year narration: turns a harvest report into a few lines of chronicle prose.
package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/talgya/hamurabi/internal/engine"
)

const scribeSystem = `You are the royal scribe of ancient Sumeria, keeping the chronicle of the city for its ruler Hamurabi.

Record the year in 1-2 sentences of solemn, period-appropriate prose. Use only the figures you are given. Do not address the ruler directly, give advice, or mention games or numbers of turns.`

// NarrateYear asks the scribe for prose describing one year's events.
func NarrateYear(ctx context.Context, client *Client, events []engine.Event) (string, error) {
	if !client.Enabled() {
		return "", ErrDisabled
	}
	facts := describeYear(events)
	if facts == "" {
		return "", fmt.Errorf("narrate: no events")
	}
	text, err := client.Complete(ctx, scribeSystem, facts, 160)
	if err != nil {
		return "", fmt.Errorf("narrate: %w", err)
	}
	return strings.TrimSpace(text), nil
}

// Scribe returns a narrator for the text display. Failures are logged and
// yield no prose; each call is bounded by timeout.
func Scribe(client *Client, timeout time.Duration) func([]engine.Event) string {
	if !client.Enabled() {
		return nil
	}
	return func(events []engine.Event) string {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		text, err := NarrateYear(ctx, client, events)
		if err != nil {
			slog.Warn("scribe failed", "error", err)
			return ""
		}
		return text
	}
}

// describeYear lists the facts of a year in plain words for the prompt.
func describeYear(events []engine.Event) string {
	var b strings.Builder
	for _, e := range events {
		switch e.Kind {
		case engine.EventYearBegin:
			fmt.Fprintf(&b, "Year %d of the reign.\n", e.Amount)
		case engine.EventStarved:
			fmt.Fprintf(&b, "%d people starved.\n", e.Amount)
		case engine.EventArrived:
			fmt.Fprintf(&b, "%d people came to the city.\n", e.Amount)
		case engine.EventBought:
			fmt.Fprintf(&b, "The city bought %d acres at %d bushels each.\n", e.Amount, e.Rate)
		case engine.EventSold:
			fmt.Fprintf(&b, "The city sold %d acres at %d bushels each.\n", e.Amount, e.Rate)
		case engine.EventFed:
			fmt.Fprintf(&b, "%d bushels were given to the people as food.\n", e.Amount)
		case engine.EventPlanted:
			fmt.Fprintf(&b, "%d acres were sown.\n", e.Amount)
		case engine.EventHarvest:
			fmt.Fprintf(&b, "The harvest gave %d bushels per acre, %d in all.\n", e.Rate, e.Amount)
		case engine.EventRats:
			if e.Amount > 0 {
				fmt.Fprintf(&b, "Rats ate %d bushels.\n", e.Amount)
			}
		case engine.EventPlague:
			fmt.Fprintf(&b, "A plague killed %d people.\n", e.Amount)
		case engine.EventBirths:
			fmt.Fprintf(&b, "%d children were born; the population is now %d.\n", e.Amount, e.Balance)
		case engine.EventStore:
			fmt.Fprintf(&b, "The granaries hold %d bushels.\n", e.Amount)
		case engine.EventHoldings:
			fmt.Fprintf(&b, "The city owns %d acres.\n", e.Amount)
		}
	}
	return b.String()
}
