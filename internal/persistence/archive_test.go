package persistence

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/hamurabi/internal/city"
	"github.com/talgya/hamurabi/internal/engine"
	"github.com/talgya/hamurabi/internal/entropy"
)

func TestArchive_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	term := playTerm(t, 11)

	a, err := NewArchive(dir, term.ID)
	require.NoError(t, err)
	assert.Equal(t, ArchivePath(dir, term.ID), a.Path())

	for _, r := range term.Reports {
		require.NoError(t, a.WriteYear(r))
	}
	sum := city.Summarize(*term.State)
	require.NoError(t, a.WriteSummary(sum))
	require.NoError(t, a.Close())
	require.NoError(t, a.Close())
	assert.Error(t, a.WriteSummary(sum))

	records, err := ReadArchive(a.Path())
	require.NoError(t, err)
	require.Len(t, records, len(term.Reports)+1)

	for i, r := range term.Reports {
		require.Equal(t, "year", records[i].Type)
		assert.Equal(t, term.ID.String(), records[i].Term)
		assert.Equal(t, r.State, records[i].Year.State)
		assert.Equal(t, r.Events, records[i].Year.Events)
	}
	last := records[len(records)-1]
	require.Equal(t, "summary", last.Type)
	assert.Equal(t, sum, *last.Summary)
}

func TestAttach_RecordsAndArchives(t *testing.T) {
	db := openMemory(t)
	dir := t.TempDir()

	var answers []string
	for i := 0; i < city.TermYears; i++ {
		answers = append(answers, "0", "0", "0", "0")
	}
	term := engine.NewTerm(entropy.NewSeeded(5), &fixedInput{answers: answers}, nopDisplay{})
	seen := 0
	term.OnYear = func(engine.YearReport) { seen++ }

	closeFn := Attach(term, db, dir, 5)
	sum, err := term.Run(context.Background())
	closeFn()
	require.NoError(t, err)
	assert.Equal(t, len(term.Reports), seen)

	years, err := db.Years(term.ID)
	require.NoError(t, err)
	assert.Len(t, years, len(term.Reports))

	terms, err := db.RecentTerms(1)
	require.NoError(t, err)
	require.Len(t, terms, 1)
	assert.True(t, terms[0].Finished)
	assert.Equal(t, int64(5), terms[0].Seed)

	records, err := ReadArchive(ArchivePath(dir, term.ID))
	require.NoError(t, err)
	require.Len(t, records, len(term.Reports)+1)
	assert.Equal(t, sum, *records[len(records)-1].Summary)
}

func TestAttach_NothingConfigured(t *testing.T) {
	term := engine.NewTerm(entropy.NewSeeded(1), &fixedInput{}, nopDisplay{})
	closeFn := Attach(term, nil, "", 0)
	term.OnYear(engine.YearReport{Year: 1})
	term.OnEnd(city.Summary{})
	closeFn()
}
