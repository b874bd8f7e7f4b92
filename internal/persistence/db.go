// Package persistence keeps the chronicle of terms: a SQLite record of
// every year's report and each term's outcome, plus compressed per-term
// archives. Nothing here is read back to resume a term.
package persistence

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/hamurabi/internal/city"
	"github.com/talgya/hamurabi/internal/engine"
)

// MemoryDSN keeps the chronicle in memory for the life of the process.
const MemoryDSN = ":memory:"

// ErrNotFound is returned when a lookup matches nothing.
var ErrNotFound = errors.New("not found")

// DB wraps a SQLite connection for the chronicle.
type DB struct {
	conn *sqlx.DB
}

// TermRow is one term in the chronicle. Outcome columns are zero until
// the term is finished.
type TermRow struct {
	ID             string `db:"id" json:"id"`
	Seed           int64  `db:"seed" json:"seed"`
	StartedAt      int64  `db:"started_at" json:"started_at"`
	Finished       bool   `db:"finished" json:"finished"`
	Years          int    `db:"years" json:"years"`
	Population     int    `db:"population" json:"population"`
	Acres          int    `db:"acres" json:"acres"`
	Grain          int    `db:"grain" json:"grain"`
	AcresPerPerson int    `db:"acres_per_person" json:"acres_per_person"`
	TotalStarved   int    `db:"total_starved" json:"total_starved"`
	AverageStarved int    `db:"average_starved" json:"average_starved"`
	Verdict        string `db:"verdict" json:"verdict"`
}

// Started returns the start time of the term.
func (t TermRow) Started() time.Time {
	return time.Unix(t.StartedAt, 0).UTC()
}

// YearRow is one completed year: the ledger after it plus its aggregates.
type YearRow struct {
	TermID string `db:"term_id" json:"term_id"`
	city.State

	Deaths      int  `db:"deaths" json:"deaths"` // Starved this year
	Price       int  `db:"price" json:"price"`
	Harvest     int  `db:"harvest" json:"harvest"`
	RatsAte     int  `db:"rats_ate" json:"rats_ate"`
	Plague      bool `db:"plague" json:"plague"`
	PlagueDeath int  `db:"plague_deaths" json:"plague_deaths"`
	Births      int  `db:"births" json:"births"`
	Buy         int  `db:"buy" json:"buy"`
	Sell        int  `db:"sell" json:"sell"`
	Feed        int  `db:"feed" json:"feed"`
	Plant       int  `db:"plant" json:"plant"`
}

// Open opens or creates a chronicle. An empty dsn or MemoryDSN keeps it in
// memory; anything else is a file path.
func Open(dsn string) (*DB, error) {
	if dsn == "" {
		dsn = MemoryDSN
	}

	source := dsn
	if dsn != MemoryDSN && !strings.Contains(dsn, "?") {
		source = dsn + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}

	conn, err := sqlx.Open("sqlite", source)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if dsn == MemoryDSN {
		// Each connection to :memory: is a separate database.
		conn.SetMaxOpenConns(1)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	slog.Debug("chronicle opened", "dsn", dsn)
	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS terms (
		id TEXT PRIMARY KEY,
		seed INTEGER NOT NULL,
		started_at INTEGER NOT NULL,
		finished INTEGER NOT NULL DEFAULT 0,
		years INTEGER NOT NULL DEFAULT 0,
		population INTEGER NOT NULL DEFAULT 0,
		acres INTEGER NOT NULL DEFAULT 0,
		grain INTEGER NOT NULL DEFAULT 0,
		acres_per_person INTEGER NOT NULL DEFAULT 0,
		total_starved INTEGER NOT NULL DEFAULT 0,
		average_starved INTEGER NOT NULL DEFAULT 0,
		verdict TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS years (
		term_id TEXT NOT NULL REFERENCES terms(id),
		year INTEGER NOT NULL,
		population INTEGER NOT NULL,
		grain INTEGER NOT NULL,
		acres INTEGER NOT NULL,
		yield INTEGER NOT NULL,
		starved INTEGER NOT NULL,
		deaths INTEGER NOT NULL,
		price INTEGER NOT NULL,
		harvest INTEGER NOT NULL,
		rats_ate INTEGER NOT NULL,
		plague INTEGER NOT NULL,
		plague_deaths INTEGER NOT NULL,
		births INTEGER NOT NULL,
		buy INTEGER NOT NULL,
		sell INTEGER NOT NULL,
		feed INTEGER NOT NULL,
		plant INTEGER NOT NULL,
		PRIMARY KEY (term_id, year)
	);

	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		term_id TEXT NOT NULL,
		year INTEGER NOT NULL,
		kind TEXT NOT NULL,
		amount INTEGER NOT NULL,
		rate INTEGER NOT NULL,
		balance INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_events_term_year ON events(term_id, year);
	CREATE INDEX IF NOT EXISTS idx_terms_started ON terms(started_at);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// BeginTerm registers a new term.
func (db *DB) BeginTerm(id uuid.UUID, seed int64) error {
	_, err := db.conn.Exec(
		"INSERT INTO terms (id, seed, started_at) VALUES (?, ?, ?)",
		id.String(), seed, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert term %s: %w", id, err)
	}
	return nil
}

// RecordYear stores a completed year and its events.
func (db *DB) RecordYear(id uuid.UUID, r engine.YearReport) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	row := YearRow{
		TermID:      id.String(),
		State:       r.State,
		Deaths:      r.Starved,
		Price:       r.Price,
		Harvest:     r.Harvest,
		RatsAte:     r.RatsAte,
		Plague:      r.Plague,
		PlagueDeath: r.PlagueDeath,
		Births:      r.Births,
		Buy:         r.Decisions.Buy,
		Sell:        r.Decisions.Sell,
		Feed:        r.Decisions.Feed,
		Plant:       r.Decisions.Plant,
	}
	_, err = tx.NamedExec(`INSERT INTO years
		(term_id, year, population, grain, acres, yield, starved, deaths, price,
		 harvest, rats_ate, plague, plague_deaths, births, buy, sell, feed, plant)
		VALUES (:term_id, :year, :population, :grain, :acres, :yield, :starved, :deaths, :price,
		 :harvest, :rats_ate, :plague, :plague_deaths, :births, :buy, :sell, :feed, :plant)`, row)
	if err != nil {
		return fmt.Errorf("insert year %d: %w", r.Year, err)
	}

	stmt, err := tx.Preparex(`INSERT INTO events
		(term_id, year, kind, amount, rate, balance) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, e := range r.Events {
		if _, err := stmt.Exec(id.String(), e.Year, string(e.Kind), e.Amount, e.Rate, e.Balance); err != nil {
			return fmt.Errorf("insert event %s: %w", e.Kind, err)
		}
	}

	return tx.Commit()
}

// FinishTerm stores the outcome of a term.
func (db *DB) FinishTerm(id uuid.UUID, sum city.Summary) error {
	res, err := db.conn.Exec(`UPDATE terms SET
		finished = 1, years = ?, population = ?, acres = ?, grain = ?,
		acres_per_person = ?, total_starved = ?, average_starved = ?, verdict = ?
		WHERE id = ?`,
		sum.Years, sum.Population, sum.Acres, sum.Grain,
		sum.AcresPerPerson, sum.TotalStarved, sum.AverageStarved, city.VerdictName(sum.Verdict),
		id.String(),
	)
	if err != nil {
		return fmt.Errorf("finish term %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("finish term %s: %w", id, ErrNotFound)
	}
	slog.Info("term chronicled", "term", id, "verdict", city.VerdictName(sum.Verdict))
	return nil
}

// Years returns the recorded years of a term in order.
func (db *DB) Years(id uuid.UUID) ([]YearRow, error) {
	var rows []YearRow
	err := db.conn.Select(&rows, "SELECT * FROM years WHERE term_id = ? ORDER BY year", id.String())
	return rows, err
}

// Events returns the stored events of one year in the order they happened.
func (db *DB) Events(id uuid.UUID, year int) ([]engine.Event, error) {
	var events []engine.Event
	err := db.conn.Select(&events,
		"SELECT year, kind, amount, rate, balance FROM events WHERE term_id = ? AND year = ? ORDER BY id",
		id.String(), year,
	)
	return events, err
}

// RecentTerms returns the most recently started terms.
func (db *DB) RecentTerms(limit int) ([]TermRow, error) {
	var terms []TermRow
	err := db.conn.Select(&terms,
		"SELECT * FROM terms ORDER BY started_at DESC, rowid DESC LIMIT ?",
		limit,
	)
	return terms, err
}

// HardestYear returns the year of a term in which the most people starved.
// Ties go to the earliest year.
func (db *DB) HardestYear(id uuid.UUID) (YearRow, error) {
	var row YearRow
	err := db.conn.Get(&row,
		"SELECT * FROM years WHERE term_id = ? ORDER BY deaths DESC, year ASC LIMIT 1",
		id.String(),
	)
	if errors.Is(err, sql.ErrNoRows) {
		return row, fmt.Errorf("hardest year of %s: %w", id, ErrNotFound)
	}
	return row, err
}
