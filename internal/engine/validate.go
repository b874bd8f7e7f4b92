// Validation of the player's yearly decisions.
package engine

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/talgya/hamurabi/internal/city"
)

// Error classes. Both are recoverable: the same decision is asked again.
var (
	ErrInvalidInput = errors.New("not a number")
	ErrConstraint   = errors.New("constraint violated")

	// ErrOutOfOrder means the caller applied decisions in the wrong sequence.
	ErrOutOfOrder = errors.New("decision out of order")

	// ErrTermOver means a year was started after the term had ended.
	ErrTermOver = errors.New("term is over")
)

// Decision identifies one of the four questions asked each year.
type Decision uint8

const (
	DecideBuy Decision = iota
	DecideSell
	DecideFeed
	DecidePlant
)

// decisionOrder is the order the questions are asked in.
var decisionOrder = [...]Decision{DecideBuy, DecideSell, DecideFeed, DecidePlant}

func (d Decision) String() string {
	switch d {
	case DecideBuy:
		return "buy"
	case DecideSell:
		return "sell"
	case DecideFeed:
		return "feed"
	case DecidePlant:
		return "plant"
	default:
		return "unknown"
	}
}

// ParseDecision maps a decision name back to its value.
func ParseDecision(name string) (Decision, bool) {
	for _, d := range decisionOrder {
		if d.String() == name {
			return d, true
		}
	}
	return 0, false
}

// Decisions are the four answers of one year.
type Decisions struct {
	Buy   int `json:"buy" yaml:"buy"`
	Sell  int `json:"sell" yaml:"sell"`
	Feed  int `json:"feed" yaml:"feed"`
	Plant int `json:"plant" yaml:"plant"`
}

// Get returns the answer for one decision.
func (d Decisions) Get(kind Decision) int {
	switch kind {
	case DecideBuy:
		return d.Buy
	case DecideSell:
		return d.Sell
	case DecideFeed:
		return d.Feed
	default:
		return d.Plant
	}
}

func (d *Decisions) set(kind Decision, n int) {
	switch kind {
	case DecideBuy:
		d.Buy = n
	case DecideSell:
		d.Sell = n
	case DecideFeed:
		d.Feed = n
	default:
		d.Plant = n
	}
}

// Reason says why a candidate answer was rejected.
type Reason uint8

const (
	ReasonNotANumber Reason = iota + 1
	ReasonNegative
	ReasonShortOfGrain
	ReasonShortOfLand
	ReasonShortOfWorkers
	ReasonShortOfSeed
)

func (r Reason) String() string {
	switch r {
	case ReasonNotANumber:
		return "not_a_number"
	case ReasonNegative:
		return "negative"
	case ReasonShortOfGrain:
		return "short_of_grain"
	case ReasonShortOfLand:
		return "short_of_land"
	case ReasonShortOfWorkers:
		return "short_of_workers"
	case ReasonShortOfSeed:
		return "short_of_seed"
	default:
		return "unknown"
	}
}

// Rejection is returned for an answer that cannot be carried out.
// Have holds the grain, acres or people the answer exceeded.
type Rejection struct {
	Decision  Decision `json:"decision"`
	Reason    Reason   `json:"reason"`
	Input     string   `json:"input,omitempty"`
	Candidate int      `json:"candidate"`
	Have      int      `json:"have"`
}

func (r *Rejection) Error() string {
	switch r.Reason {
	case ReasonNotANumber:
		return fmt.Sprintf("%s: %q is not a number", r.Decision, r.Input)
	case ReasonNegative:
		return fmt.Sprintf("%s: %d is negative", r.Decision, r.Candidate)
	default:
		return fmt.Sprintf("%s %d: %s (have %d)", r.Decision, r.Candidate, r.Reason, r.Have)
	}
}

// Unwrap classifies the rejection as ErrInvalidInput or ErrConstraint.
func (r *Rejection) Unwrap() error {
	if r.Reason == ReasonNotANumber {
		return ErrInvalidInput
	}
	return ErrConstraint
}

// Parse turns raw player text into a candidate answer.
// Anything but an optionally signed base-10 integer is rejected.
func Parse(d Decision, text string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil {
		return 0, &Rejection{Decision: d, Reason: ReasonNotANumber, Input: text}
	}
	return n, nil
}

// SeedCost is the grain needed to plant the given acres, one bushel per two acres rounded up.
func SeedCost(acres int) int {
	return acres/AcresPerBushel + acres%AcresPerBushel
}

// check validates a candidate against the ledger. It never mutates.
func check(st *city.State, price int, d Decision, n int) *Rejection {
	if n < 0 {
		return &Rejection{Decision: d, Reason: ReasonNegative, Candidate: n}
	}

	switch d {
	case DecideBuy:
		// n > grain/price is price*n > grain without the overflow.
		if price > 0 && n > st.Grain/price {
			return &Rejection{Decision: d, Reason: ReasonShortOfGrain, Candidate: n, Have: st.Grain}
		}
	case DecideSell:
		if n > st.Acres {
			return &Rejection{Decision: d, Reason: ReasonShortOfLand, Candidate: n, Have: st.Acres}
		}
	case DecideFeed:
		if n > st.Grain {
			return &Rejection{Decision: d, Reason: ReasonShortOfGrain, Candidate: n, Have: st.Grain}
		}
	case DecidePlant:
		if n > st.Acres {
			return &Rejection{Decision: d, Reason: ReasonShortOfLand, Candidate: n, Have: st.Acres}
		}
		if n > AcresPerWorker*st.Population {
			return &Rejection{Decision: d, Reason: ReasonShortOfWorkers, Candidate: n, Have: st.Population}
		}
		if SeedCost(n) > st.Grain {
			return &Rejection{Decision: d, Reason: ReasonShortOfSeed, Candidate: n, Have: st.Grain}
		}
	}
	return nil
}

// limit is the largest answer check accepts.
func limit(st *city.State, price int, d Decision) int {
	switch d {
	case DecideBuy:
		if price <= 0 {
			return 0
		}
		return st.Grain / price
	case DecideSell:
		return st.Acres
	case DecideFeed:
		return st.Grain
	default:
		return min(st.Acres, AcresPerWorker*st.Population, AcresPerBushel*st.Grain)
	}
}

// MarshalText encodes the decision by name.
func (d Decision) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText decodes a decision name.
func (d *Decision) UnmarshalText(b []byte) error {
	v, ok := ParseDecision(string(b))
	if !ok {
		return fmt.Errorf("unknown decision %q", b)
	}
	*d = v
	return nil
}

// MarshalText encodes the reason by name.
func (r Reason) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText decodes a reason name.
func (r *Reason) UnmarshalText(b []byte) error {
	for v := ReasonNotANumber; v <= ReasonShortOfSeed; v++ {
		if v.String() == string(b) {
			*r = v
			return nil
		}
	}
	return fmt.Errorf("unknown reason %q", b)
}
