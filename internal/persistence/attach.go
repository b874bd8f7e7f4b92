package persistence

import (
	"log/slog"

	"github.com/talgya/hamurabi/internal/city"
	"github.com/talgya/hamurabi/internal/engine"
)

// Attach wires a term's callbacks to the chronicle and, when archiveDir is
// set, to a per-term archive. Either may be absent. Storage failures are
// logged and never interrupt the term. The returned func closes the archive.
func Attach(term *engine.Term, db *DB, archiveDir string, seed int64) func() {
	var archive *Archive
	if archiveDir != "" {
		a, err := NewArchive(archiveDir, term.ID)
		if err != nil {
			slog.Error("open archive", "term", term.ID, "error", err)
		} else {
			archive = a
		}
	}

	recording := false
	if db != nil {
		if err := db.BeginTerm(term.ID, seed); err != nil {
			slog.Error("chronicle term", "term", term.ID, "error", err)
		} else {
			recording = true
		}
	}

	onYear, onEnd := term.OnYear, term.OnEnd
	term.OnYear = func(r engine.YearReport) {
		if onYear != nil {
			onYear(r)
		}
		if recording {
			if err := db.RecordYear(term.ID, r); err != nil {
				slog.Error("chronicle year", "term", term.ID, "year", r.Year, "error", err)
			}
		}
		if archive != nil {
			if err := archive.WriteYear(r); err != nil {
				slog.Error("archive year", "term", term.ID, "year", r.Year, "error", err)
			}
		}
	}
	term.OnEnd = func(sum city.Summary) {
		if onEnd != nil {
			onEnd(sum)
		}
		if recording {
			if err := db.FinishTerm(term.ID, sum); err != nil {
				slog.Error("chronicle summary", "term", term.ID, "error", err)
			}
		}
		if archive != nil {
			if err := archive.WriteSummary(sum); err != nil {
				slog.Error("archive summary", "term", term.ID, "error", err)
			}
		}
	}

	return func() {
		if archive == nil {
			return
		}
		if err := archive.Close(); err != nil {
			slog.Error("close archive", "term", term.ID, "error", err)
		}
	}
}
