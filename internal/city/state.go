// Package city holds the ledger of the governed city and the end-of-term summary.
package city

// Starting values for a new term.
const (
	TermYears = 10 // Length of the term of office

	StartPopulation = 95
	StartGrain      = 2800
	StartLand       = 3000 // Land under the city's influence; a third of it is owned
	StartYield      = 3
)

// State is the economic ledger carried from one year to the next.
// It is owned by a single driver and mutated only by the year engine.
type State struct {
	Year       int `json:"year" db:"year"`             // 0 before the first report, TermYears at the end
	Population int `json:"population" db:"population"` // People
	Grain      int `json:"grain" db:"grain"`           // Bushels in store
	Acres      int `json:"acres" db:"acres"`           // Acres owned
	Yield      int `json:"yield" db:"yield"`           // Bushels per acre of the most recent harvest
	Starved    int `json:"starved" db:"starved"`       // Cumulative deaths from starvation
}

// Snapshot is the part of the ledger shown in the status sidebar.
type Snapshot struct {
	Population int `json:"population"`
	Grain      int `json:"grain"`
	Acres      int `json:"acres"`
}

// New returns the state a term always starts from.
func New() *State {
	return &State{
		Population: StartPopulation,
		Grain:      StartGrain,
		Acres:      StartLand / 3,
		Yield:      StartYield,
	}
}

// Snapshot returns the sidebar view of the ledger.
func (s *State) Snapshot() Snapshot {
	return Snapshot{
		Population: s.Population,
		Grain:      s.Grain,
		Acres:      s.Acres,
	}
}

// Over reports whether the term has run its full length.
func (s *State) Over() bool {
	return s.Year >= TermYears
}

// Depopulated reports whether nobody is left to govern.
func (s *State) Depopulated() bool {
	return s.Population <= 0
}

// Valid reports whether the ledger satisfies the non-negativity invariants.
func (s *State) Valid() bool {
	return s.Year >= 0 && s.Year <= TermYears &&
		s.Population >= 0 && s.Grain >= 0 && s.Acres >= 0 && s.Starved >= 0
}
