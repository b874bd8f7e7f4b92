package engine

import "github.com/talgya/hamurabi/internal/city"

// EventKind names what happened in a report entry.
type EventKind string

// Report-phase events, emitted at the start of every year.
const (
	EventYearBegin    EventKind = "year_begin"    // Amount: year number
	EventStarved      EventKind = "starved"       // Amount: people who starved
	EventArrived      EventKind = "arrived"       // Amount: newcomers
	EventPopulation   EventKind = "population"    // Amount: population after arrivals
	EventAcres        EventKind = "acres"         // Amount: acres owned
	EventYield        EventKind = "yield"         // Rate: bushels per acre of the last harvest
	EventRatsReported EventKind = "rats_reported" // Amount: bushels reported eaten (store untouched)
	EventGrain        EventKind = "grain"         // Amount: bushels in store
	EventPrice        EventKind = "price"         // Rate: bushels per acre offered
)

// Decision-phase events.
const (
	EventBought   EventKind = "bought"   // Amount: acres, Rate: price
	EventSold     EventKind = "sold"     // Amount: acres, Rate: price
	EventFed      EventKind = "fed"      // Amount: bushels
	EventPlanted  EventKind = "planted"  // Amount: acres, Balance: seed bushels spent
	EventHarvest  EventKind = "harvest"  // Amount: bushels, Rate: bushels per acre
	EventRats     EventKind = "rats"     // Amount: bushels lost from the harvest
	EventPlague   EventKind = "plague"   // Amount: people lost
	EventBirths   EventKind = "births"   // Amount: newborns, Balance: population after
	EventStore    EventKind = "store"    // Amount: bushels in store at year end
	EventHoldings EventKind = "holdings" // Amount: acres owned at year end
)

// Event is one entry of a year's report, in the order it happened.
type Event struct {
	Year    int       `json:"year" db:"year"`
	Kind    EventKind `json:"kind" db:"kind"`
	Amount  int       `json:"amount" db:"amount"`
	Rate    int       `json:"rate,omitempty" db:"rate"`
	Balance int       `json:"balance,omitempty" db:"balance"`
}

// YearReport is everything a year produced: the ordered events plus the
// ledger after the year's last mutation.
type YearReport struct {
	Year      int        `json:"year"`
	Events    []Event    `json:"events"`
	State     city.State `json:"state"`
	Decisions Decisions  `json:"decisions"`

	// Aggregates, duplicated from Events for storage and summaries.
	Starved     int  `json:"starved"`
	Price       int  `json:"price"`
	Harvest     int  `json:"harvest"`
	RatsAte     int  `json:"rats_ate"`
	Plague      bool `json:"plague"`
	PlagueDeath int  `json:"plague_deaths"`
	Births      int  `json:"births"`
}

// Find returns the first event of the given kind.
func (r YearReport) Find(kind EventKind) (Event, bool) {
	for _, e := range r.Events {
		if e.Kind == kind {
			return e, true
		}
	}
	return Event{}, false
}
