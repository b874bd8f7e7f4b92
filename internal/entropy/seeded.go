package entropy

import "math/rand"

// NewSeeded returns a deterministic source. Seed 0 is treated as 1.
func NewSeeded(seed int64) Source {
	if seed == 0 {
		seed = 1
	}
	return rand.New(rand.NewSource(seed))
}

// Fixed replays a scripted sequence of draws, then yields 0 forever.
// Used for tests and for replaying a recorded term.
type Fixed struct {
	Draws []float64
	next  int
}

// NewFixed creates a scripted source from the given draws.
func NewFixed(draws ...float64) *Fixed {
	return &Fixed{Draws: draws}
}

// Float64 implements Source.
func (f *Fixed) Float64() float64 {
	if f.next >= len(f.Draws) {
		return 0
	}
	v := f.Draws[f.next]
	f.next++
	return v
}

// Used returns how many scripted draws have been consumed.
func (f *Fixed) Used() int {
	return f.next
}

// Recorder wraps a source and keeps every value it hands out, so a term can be
// replayed later through Fixed.
type Recorder struct {
	Src   Source
	Draws []float64
}

// Float64 implements Source.
func (r *Recorder) Float64() float64 {
	v := r.Src.Float64()
	r.Draws = append(r.Draws, v)
	return v
}
