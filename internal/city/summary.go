// End-of-term statistics and the judgement of the ruler's performance.
package city

// Verdict grades a finished term.
type Verdict uint8

const (
	VerdictImpeached   Verdict = iota // Driven from office
	VerdictHeavyHanded                // Survived, but the people hate you
	VerdictAdequate                   // Could have been better
	VerdictSplendid                   // A fantastic performance
)

// VerdictName returns a human-readable verdict name.
func VerdictName(v Verdict) string {
	switch v {
	case VerdictImpeached:
		return "Impeached"
	case VerdictHeavyHanded:
		return "Heavy-handed"
	case VerdictAdequate:
		return "Adequate"
	case VerdictSplendid:
		return "Splendid"
	default:
		return "Unknown"
	}
}

// Summary is computed once the term is over.
type Summary struct {
	Years          int     `json:"years"`            // Years actually governed
	Population     int     `json:"population"`       // Final population
	Acres          int     `json:"acres"`            // Final acres owned
	Grain          int     `json:"grain"`            // Final grain in store
	AcresPerPerson int     `json:"acres_per_person"` // 0 when depopulated
	TotalStarved   int     `json:"total_starved"`
	AverageStarved int     `json:"average_starved"` // Per year, over the full term
	StarvedPct     int     `json:"starved_pct"`     // Average starvation as a share of final population
	Depopulated    bool    `json:"depopulated"`
	Verdict        Verdict `json:"verdict"`
}

// Success reports whether the ruler kept office.
func (s Summary) Success() bool {
	return s.Verdict != VerdictImpeached
}

// Summarize computes the end-of-term summary from the final ledger.
// A population of zero skips the per-person ratios instead of dividing by it.
func Summarize(st State) Summary {
	sum := Summary{
		Years:          st.Year,
		Population:     st.Population,
		Acres:          st.Acres,
		Grain:          st.Grain,
		TotalStarved:   st.Starved,
		AverageStarved: st.Starved / TermYears,
		Depopulated:    st.Depopulated(),
	}

	if !sum.Depopulated {
		sum.AcresPerPerson = st.Acres / st.Population
		sum.StarvedPct = sum.AverageStarved * 100 / st.Population
	}

	sum.Verdict = judge(sum)
	return sum
}

func judge(s Summary) Verdict {
	switch {
	case s.Depopulated || s.StarvedPct > 33 || s.AcresPerPerson < 7:
		return VerdictImpeached
	case s.StarvedPct > 10 || s.AcresPerPerson < 9:
		return VerdictHeavyHanded
	case s.StarvedPct > 3 || s.AcresPerPerson < 10:
		return VerdictAdequate
	default:
		return VerdictSplendid
	}
}
