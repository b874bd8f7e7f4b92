// Package display renders a term as the line-oriented text of the classic game.
package display

import (
	"fmt"
	"io"

	"github.com/dustin/go-humanize"

	"github.com/talgya/hamurabi/internal/city"
	"github.com/talgya/hamurabi/internal/engine"
)

// Banner is printed before the first year.
var Banner = []string{
	"                                HAMURABI",
	"               CREATIVE COMPUTING  MORRISTOWN, NEW JERSEY",
	"\n\n",
	"TRY YOUR HAND AT GOVERNING ANCIENT SUMERIA",
	"FOR A TEN-YEAR TERM OF OFFICE.\n",
}

// Text writes report lines to W. With ShowStatus set, the sidebar figures
// are printed after every change.
type Text struct {
	W          io.Writer
	ShowStatus bool

	// Scribe, when set, is given the whole year after each harvest and
	// asked for a line of prose.
	Scribe func(events []engine.Event) string

	starved int
	year    []engine.Event // Events since the last EventYearBegin
}

// NewText creates a text display writing to w.
func NewText(w io.Writer) *Text {
	return &Text{W: w}
}

func (t *Text) println(line string) {
	fmt.Fprintln(t.W, line)
}

// Intro prints the title banner.
func (t *Text) Intro() {
	for _, line := range Banner {
		t.println(line)
	}
}

// Events implements engine.Display.
func (t *Text) Events(events []engine.Event) {
	harvested := false
	for _, e := range events {
		if e.Kind == engine.EventYearBegin {
			t.year = t.year[:0]
		}
		t.year = append(t.year, e)
		if line, ok := t.line(e); ok {
			t.println(line)
		}
		if e.Kind == engine.EventHoldings {
			harvested = true
		}
	}
	if harvested && t.Scribe != nil {
		if prose := t.Scribe(append([]engine.Event(nil), t.year...)); prose != "" {
			t.println(prose + "\n")
		}
	}
}

// line maps one event to its report line. Decision events are the player's
// own answers and print nothing.
func (t *Text) line(e engine.Event) (string, bool) {
	switch e.Kind {
	case engine.EventYearBegin:
		return fmt.Sprintf("\nHAMURABI:  I BEG TO REPORT TO YOU,\nIN YEAR %d,", e.Amount), true
	case engine.EventStarved:
		t.starved = e.Amount
		return "", false
	case engine.EventArrived:
		return fmt.Sprintf("%d PEOPLE STARVED, %d CAME TO THE CITY,", t.starved, e.Amount), true
	case engine.EventPopulation:
		return fmt.Sprintf("POPULATION IS NOW %d", e.Amount), true
	case engine.EventAcres:
		return fmt.Sprintf("THE CITY NOW OWNS %d ACRES.", e.Amount), true
	case engine.EventYield:
		return fmt.Sprintf("YOU HARVESTED %d BUSHELS PER ACRE.", e.Rate), true
	case engine.EventRatsReported, engine.EventRats:
		return fmt.Sprintf("THE RATS ATE %d BUSHELS.", e.Amount), true
	case engine.EventGrain:
		return fmt.Sprintf("YOU NOW HAVE %d BUSHELS IN STORE.\n", e.Amount), true
	case engine.EventPrice:
		return fmt.Sprintf("LAND IS TRADING AT %d BUSHELS PER ACRE.", e.Rate), true
	case engine.EventHarvest:
		return fmt.Sprintf("YOU HARVESTED %d BUSHELS PER ACRE, FOR A TOTAL OF %d BUSHELS.", e.Rate, e.Amount), true
	case engine.EventPlague:
		return "A HORRIBLE PLAGUE STRUCK!  HALF THE PEOPLE DIED.", true
	case engine.EventBirths:
		return fmt.Sprintf("NEW BIRTHS: %d PEOPLE. POPULATION IS NOW %d.", e.Amount, e.Balance), true
	case engine.EventStore:
		return fmt.Sprintf("GRAIN IN STORE IS NOW %d BUSHELS.", e.Amount), true
	case engine.EventHoldings:
		return fmt.Sprintf("ACRES OWNED ARE NOW %d.\n", e.Amount), true
	default:
		return "", false
	}
}

// Status implements engine.Display.
func (t *Text) Status(snap city.Snapshot) {
	if !t.ShowStatus {
		return
	}
	t.println(StatusLine(snap))
}

// StatusLine formats the sidebar figures on one line.
func StatusLine(snap city.Snapshot) string {
	return fmt.Sprintf("[Population: %s | Grain Store: %s | Acres Owned: %s]",
		humanize.Comma(int64(snap.Population)),
		humanize.Comma(int64(snap.Grain)),
		humanize.Comma(int64(snap.Acres)),
	)
}

// Reject implements engine.Display.
func (t *Text) Reject(r *engine.Rejection) {
	t.println(RejectLine(r))
}

// RejectLine returns the message shown for a rejected answer.
func RejectLine(r *engine.Rejection) string {
	switch r.Reason {
	case engine.ReasonNotANumber:
		return "HAMURABI:  I CANNOT DO WHAT YOU WISH. PLEASE ENTER A VALID NUMBER."
	case engine.ReasonNegative:
		return "HAMURABI:  I CANNOT DO WHAT YOU WISH."
	case engine.ReasonShortOfGrain:
		return fmt.Sprintf("HAMURABI:  THINK AGAIN.  YOU HAVE ONLY %d BUSHELS OF GRAIN.  NOW THEN,", r.Have)
	case engine.ReasonShortOfLand:
		return fmt.Sprintf("HAMURABI:  THINK AGAIN.  YOU OWN ONLY %d ACRES.  NOW THEN,", r.Have)
	case engine.ReasonShortOfWorkers:
		return fmt.Sprintf("BUT YOU HAVE ONLY %d PEOPLE TO TEND THE FIELDS!  NOW THEN,", r.Have)
	case engine.ReasonShortOfSeed:
		return "HAMURABI:  THINK AGAIN.  YOU DON'T HAVE ENOUGH GRAIN FOR SEED."
	default:
		return "HAMURABI:  I CANNOT DO WHAT YOU WISH."
	}
}

// Summary implements engine.Display.
func (t *Text) Summary(sum city.Summary) {
	for _, line := range SummaryLines(sum) {
		t.println(line)
	}
}

// SummaryLines returns the end-of-term text.
func SummaryLines(sum city.Summary) []string {
	lines := []string{}
	if sum.Depopulated {
		lines = append(lines,
			fmt.Sprintf("\nIN YEAR %d THE LAST OF YOUR PEOPLE PERISHED.", sum.Years),
			"NOBODY IS LEFT TO GOVERN.",
		)
	} else {
		lines = append(lines, fmt.Sprintf("\nYOUR %d-YEAR TERM IS OVER.", city.TermYears))
	}

	lines = append(lines, fmt.Sprintf("FINAL POPULATION: %d", sum.Population))
	if !sum.Depopulated {
		lines = append(lines, fmt.Sprintf("ACRES PER PERSON: %d", sum.AcresPerPerson))
	}
	lines = append(lines,
		fmt.Sprintf("AVERAGE STARVATION RATE: %d per year.", sum.AverageStarved),
		verdictLine(sum.Verdict),
		"\nSO LONG FOR NOW.",
	)
	return lines
}

func verdictLine(v city.Verdict) string {
	switch v {
	case city.VerdictImpeached:
		return "DUE TO THIS EXTREME MISMANAGEMENT YOU HAVE NOT ONLY\nBEEN IMPEACHED AND THROWN OUT OF OFFICE BUT YOU HAVE\nALSO BEEN DECLARED NATIONAL FINK!!!!"
	case city.VerdictHeavyHanded:
		return "YOUR HEAVY-HANDED PERFORMANCE SMACKS OF NERO AND IVAN IV.\nTHE PEOPLE (REMAINING) FIND YOU AN UNPLEASANT RULER, AND,\nFRANKLY, HATE YOUR GUTS!!"
	case city.VerdictAdequate:
		return "YOUR PERFORMANCE COULD HAVE BEEN SOMEWHAT BETTER, BUT\nREALLY WASN'T TOO BAD AT ALL."
	default:
		return "A FANTASTIC PERFORMANCE!!!  CHARLEMANGE, DISRAELI, AND\nJEFFERSON COMBINED COULD NOT HAVE DONE BETTER!"
	}
}
