package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/talgya/hamurabi/internal/city"
	"github.com/talgya/hamurabi/internal/entropy"
)

// Term drives one ten-year term of office: it asks for each decision through
// Input, feeds it to the engine and shows the results through Display.
type Term struct {
	ID      uuid.UUID
	Engine  *Engine
	State   *city.State
	Input   Input
	Display Display
	Reports []YearReport // One per completed year

	// Callbacks populated during setup.
	OnYear func(r YearReport)     // After each completed year
	OnEnd  func(sum city.Summary) // Once, after the summary is shown
}

// NewTerm creates a term at the fixed starting state.
func NewTerm(rnd entropy.Source, in Input, out Display) *Term {
	return &Term{
		ID:      uuid.New(),
		Engine:  NewEngine(rnd),
		State:   city.New(),
		Input:   in,
		Display: out,
	}
}

// Run plays the term to its end. It returns early only when the context is
// done or the input fails; the years completed so far stay in Reports.
func (t *Term) Run(ctx context.Context) (city.Summary, error) {
	slog.Info("term started", "term", t.ID, "population", t.State.Population, "grain", t.State.Grain, "acres", t.State.Acres)
	t.Display.Status(t.State.Snapshot())

	for !t.State.Over() {
		// Arrivals and births keep a played year from emptying the city, so
		// only a ledger that starts empty stops here.
		if t.State.Depopulated() {
			slog.Warn("city depopulated, term ends early", "term", t.ID, "year", t.State.Year)
			break
		}

		report, err := t.playYear(ctx)
		if err != nil {
			slog.Warn("term interrupted", "term", t.ID, "year", t.State.Year, "error", err)
			return city.Summary{}, fmt.Errorf("year %d: %w", t.State.Year, err)
		}

		t.Reports = append(t.Reports, report)
		if t.OnYear != nil {
			t.OnYear(report)
		}

		slog.Info("year report",
			"term", t.ID,
			"year", report.Year,
			"population", report.State.Population,
			"grain", report.State.Grain,
			"acres", report.State.Acres,
			"starved", report.Starved,
			"plague", report.Plague,
		)
	}

	sum := city.Summarize(*t.State)
	t.Display.Summary(sum)
	if t.OnEnd != nil {
		t.OnEnd(sum)
	}

	slog.Info("term over",
		"term", t.ID,
		"years", sum.Years,
		"population", sum.Population,
		"acres_per_person", sum.AcresPerPerson,
		"average_starved", sum.AverageStarved,
		"verdict", city.VerdictName(sum.Verdict),
	)
	return sum, nil
}

// playYear runs one year through its report, decision and harvest phases.
func (t *Term) playYear(ctx context.Context) (YearReport, error) {
	y, err := t.Engine.Begin(t.State)
	if err != nil {
		return YearReport{}, err
	}
	shown := t.flush(y, 0)

	for d, ok := y.Next(); ok; d, ok = y.Next() {
		n, err := Ask(ctx, t.Input, t.Display, y, d)
		if err != nil {
			return y.Report(), err
		}
		if err := y.Apply(d, n); err != nil {
			return y.Report(), err
		}
		shown = t.flush(y, shown)
	}

	report, err := y.Finish()
	if err != nil {
		return report, err
	}
	t.flush(y, shown)
	return report, nil
}

// flush shows the events emitted since the last flush plus the ledger.
func (t *Term) flush(y *Year, shown int) int {
	events := y.report.Events
	if shown < len(events) {
		t.Display.Events(append([]Event(nil), events[shown:]...))
	}
	t.Display.Status(t.State.Snapshot())
	return len(events)
}
