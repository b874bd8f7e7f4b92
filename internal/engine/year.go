// Package engine advances the city one year at a time: the report phase,
// the land market, feeding, planting and the harvest.
package engine

import (
	"fmt"
	"log/slog"

	"github.com/talgya/hamurabi/internal/city"
	"github.com/talgya/hamurabi/internal/entropy"
)

// Economic rules. None of these are configurable.
const (
	Arrivals       = 5    // Newcomers every year
	PriceBase      = 17   // Cheapest land, bushels per acre
	PriceSpread    = 10   // Prices fall in [PriceBase, PriceBase+PriceSpread)
	YieldBase      = 3    // Worst harvest, bushels per acre
	YieldSpread    = 5    // Yields fall in [YieldBase, YieldBase+YieldSpread)
	RatShare       = 10   // Rats take up to one part in RatShare
	PlagueChance   = 0.15 // Chance of plague each year
	AcresPerWorker = 10   // Land one person can tend
	AcresPerBushel = 2    // Land one bushel of seed covers
	BirthDivisor   = 100  // One birth per this many bushels plus acres
)

// Engine applies the yearly rules, drawing randomness from Rand.
type Engine struct {
	Rand entropy.Source
}

// NewEngine creates an engine drawing from rnd.
func NewEngine(rnd entropy.Source) *Engine {
	return &Engine{Rand: rnd}
}

// Year is a year in progress. It is created by Begin, takes the decisions
// one at a time with Apply, and is closed by Finish.
type Year struct {
	st     *city.State
	rnd    entropy.Source
	report YearReport
	next   int // index into decisionOrder
	done   bool
}

// Begin runs the report phase of the next year: starvation and arrivals,
// the informational rat count, and (outside the final year) the land price.
func (e *Engine) Begin(st *city.State) (*Year, error) {
	if st.Over() {
		return nil, fmt.Errorf("%w: year %d", ErrTermOver, st.Year)
	}
	st.Year++
	y := &Year{
		st:     st,
		rnd:    e.Rand,
		report: YearReport{Year: st.Year},
	}

	starved := int(y.rnd.Float64() * (float64(st.Population) / 10))
	st.Population = st.Population - starved + Arrivals
	st.Starved += starved
	y.report.Starved = starved

	// Rats are reported against the store but nothing is taken from it here.
	ratsReported := st.Grain / RatShare

	y.emit(EventYearBegin, st.Year, 0, 0)
	y.emit(EventStarved, starved, 0, 0)
	y.emit(EventArrived, Arrivals, 0, 0)
	y.emit(EventPopulation, st.Population, 0, 0)
	y.emit(EventAcres, st.Acres, 0, 0)
	y.emit(EventYield, 0, st.Yield, 0)
	y.emit(EventRatsReported, ratsReported, 0, 0)
	y.emit(EventGrain, st.Grain, 0, 0)

	if y.Final() {
		y.next = len(decisionOrder)
		return y, nil
	}

	y.report.Price = int(y.rnd.Float64()*PriceSpread) + PriceBase
	y.emit(EventPrice, 0, y.report.Price, 0)
	return y, nil
}

func (y *Year) emit(kind EventKind, amount, rate, balance int) {
	y.report.Events = append(y.report.Events, Event{
		Year:    y.st.Year,
		Kind:    kind,
		Amount:  amount,
		Rate:    rate,
		Balance: balance,
	})
}

// Number returns the year being played, starting at 1.
func (y *Year) Number() int {
	return y.report.Year
}

// Final reports whether this is the last year of the term, which has no decisions.
func (y *Year) Final() bool {
	return y.report.Year >= city.TermYears
}

// Price is the land price offered this year; zero in the final year.
func (y *Year) Price() int {
	return y.report.Price
}

// Next returns the decision expected next, or false when all are taken.
func (y *Year) Next() (Decision, bool) {
	if y.next >= len(decisionOrder) {
		return 0, false
	}
	return decisionOrder[y.next], true
}

// Limit is the largest answer the given decision accepts right now.
func (y *Year) Limit(d Decision) int {
	return limit(y.st, y.report.Price, d)
}

// Check validates a candidate without applying it. The result is a
// *Rejection or nil, and is the same for the same candidate and ledger.
func (y *Year) Check(d Decision, n int) error {
	if r := check(y.st, y.report.Price, d, n); r != nil {
		return r
	}
	return nil
}

// Apply validates and commits one decision. Decisions must come in the
// order Next reports; a rejected candidate leaves the ledger untouched.
func (y *Year) Apply(d Decision, n int) error {
	want, ok := y.Next()
	if !ok || want != d || y.done {
		return fmt.Errorf("%w: got %s in year %d", ErrOutOfOrder, d, y.report.Year)
	}
	if err := y.Check(d, n); err != nil {
		return err
	}

	st := y.st
	price := y.report.Price
	switch d {
	case DecideBuy:
		st.Acres += n
		st.Grain -= price * n
		y.emit(EventBought, n, price, 0)
	case DecideSell:
		st.Acres -= n
		st.Grain += price * n
		y.emit(EventSold, n, price, 0)
	case DecideFeed:
		st.Grain -= n
		y.emit(EventFed, n, 0, 0)
	case DecidePlant:
		seed := SeedCost(n)
		st.Grain -= seed
		y.emit(EventPlanted, n, 0, seed)
	}
	y.report.Decisions.set(d, n)
	y.next++
	return nil
}

// Finish closes the year. Outside the final year it runs the harvest, rats,
// plague and births, which requires every decision to have been applied.
func (y *Year) Finish() (YearReport, error) {
	if y.done {
		return YearReport{}, fmt.Errorf("%w: year %d already finished", ErrOutOfOrder, y.report.Year)
	}
	if _, pending := y.Next(); pending {
		return YearReport{}, fmt.Errorf("%w: year %d has decisions pending", ErrOutOfOrder, y.report.Year)
	}
	y.done = true

	if !y.Final() {
		y.harvest()
	}

	y.report.State = *y.st
	slog.Debug("year complete",
		"year", y.report.Year,
		"population", y.st.Population,
		"grain", y.st.Grain,
		"acres", y.st.Acres,
		"starved", y.report.Starved,
	)
	return y.Report(), nil
}

func (y *Year) harvest() {
	st := y.st
	planted := y.report.Decisions.Plant

	st.Yield = int(y.rnd.Float64()*YieldSpread) + YieldBase
	harvest := planted * st.Yield
	y.emit(EventHarvest, harvest, st.Yield, 0)

	rats := int(y.rnd.Float64() * float64(harvest) / RatShare)
	y.emit(EventRats, rats, 0, 0)
	st.Grain += harvest - rats

	if y.rnd.Float64() < PlagueChance {
		lost := st.Population - st.Population/2
		st.Population /= 2
		y.report.Plague = true
		y.report.PlagueDeath = lost
		y.emit(EventPlague, lost, 0, 0)
	}

	births := (st.Grain+st.Acres)/BirthDivisor + 1
	st.Population += births
	y.emit(EventBirths, births, 0, st.Population)
	y.emit(EventStore, st.Grain, 0, 0)
	y.emit(EventHoldings, st.Acres, 0, 0)

	y.report.Harvest = harvest
	y.report.RatsAte = rats
	y.report.Births = births
}

// Report returns a copy of the report so far, with the current ledger.
func (y *Year) Report() YearReport {
	r := y.report
	r.Events = append([]Event(nil), y.report.Events...)
	r.State = *y.st
	return r
}

// Step plays a whole year with decisions supplied up front. If any answer
// is rejected the ledger is left as it was before the call and the
// *Rejection is returned; the random draws already taken are spent.
func (e *Engine) Step(st *city.State, d Decisions) (YearReport, error) {
	work := *st
	y, err := e.Begin(&work)
	if err != nil {
		return YearReport{}, err
	}
	for kind, ok := y.Next(); ok; kind, ok = y.Next() {
		if err := y.Apply(kind, d.Get(kind)); err != nil {
			return y.Report(), err
		}
	}
	report, err := y.Finish()
	if err != nil {
		return report, err
	}
	*st = work
	return report, nil
}
