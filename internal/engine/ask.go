package engine

import (
	"context"
	"errors"

	"github.com/talgya/hamurabi/internal/city"
)

// Prompt describes the question put to the player.
type Prompt struct {
	Year     int      `json:"year"`
	Decision Decision `json:"decision"`
	Text     string   `json:"text"`
	Limit    int      `json:"limit"` // Largest answer currently accepted
	Price    int      `json:"price"` // Land price this year

	City city.Snapshot `json:"city"` // Ledger at the time of asking
}

// Input obtains raw answers from the player. Ask blocks until an answer is
// available, the context is done, or the source has nothing more to say.
type Input interface {
	Ask(ctx context.Context, p Prompt) (string, error)
}

// Display receives everything the player should see.
type Display interface {
	Events(events []Event)
	Status(snap city.Snapshot)
	Reject(r *Rejection)
	Summary(sum city.Summary)
}

var promptText = map[Decision]string{
	DecideBuy:   "HOW MANY ACRES DO YOU WISH TO BUY?",
	DecideSell:  "HOW MANY ACRES DO YOU WISH TO SELL?",
	DecideFeed:  "HOW MANY BUSHELS DO YOU WISH TO FEED YOUR PEOPLE?",
	DecidePlant: "HOW MANY ACRES DO YOU WISH TO PLANT WITH SEED?",
}

// Prompt builds the question for a decision from the current ledger.
func (y *Year) Prompt(d Decision) Prompt {
	return Prompt{
		Year:     y.report.Year,
		Decision: d,
		Text:     promptText[d],
		Limit:    y.Limit(d),
		Price:    y.report.Price,
		City:     y.st.Snapshot(),
	}
}

// Ask repeats the prompt for d until the player supplies an acceptable
// answer. Every rejection goes to out and the same prompt is asked again;
// only the context or an error from in ends the loop early.
func Ask(ctx context.Context, in Input, out Display, y *Year, d Decision) (int, error) {
	p := y.Prompt(d)
	for {
		if err := ctx.Err(); err != nil {
			return 0, err
		}

		text, err := in.Ask(ctx, p)
		if err != nil {
			return 0, err
		}

		n, err := Parse(d, text)
		if err == nil {
			err = y.Check(d, n)
		}
		if err == nil {
			return n, nil
		}

		var r *Rejection
		if errors.As(err, &r) {
			out.Reject(r)
		}
	}
}
