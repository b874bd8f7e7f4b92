package persistence

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"

	"github.com/talgya/hamurabi/internal/city"
	"github.com/talgya/hamurabi/internal/engine"
)

// Record is one line of a term archive.
type Record struct {
	Type    string             `json:"type"` // "year" or "summary"
	Term    string             `json:"term"`
	Year    *engine.YearReport `json:"year,omitempty"`
	Summary *city.Summary      `json:"summary,omitempty"`
}

// Archive writes a term as zstd-compressed JSON lines, one file per term.
type Archive struct {
	id   uuid.UUID
	path string

	mu  sync.Mutex
	f   *os.File
	enc *zstd.Encoder
	w   *bufio.Writer
}

// ArchivePath returns where the archive of a term lives under dir.
func ArchivePath(dir string, id uuid.UUID) string {
	return filepath.Join(dir, fmt.Sprintf("term-%s.jsonl.zst", id))
}

// NewArchive creates the archive file of a term under dir.
func NewArchive(dir string, id uuid.UUID) (*Archive, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	path := ArchivePath(dir, id)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return &Archive{
		id:   id,
		path: path,
		f:    f,
		enc:  enc,
		w:    bufio.NewWriterSize(enc, 64*1024),
	}, nil
}

// Path returns the archive file path.
func (a *Archive) Path() string {
	return a.path
}

// WriteYear appends a completed year.
func (a *Archive) WriteYear(r engine.YearReport) error {
	return a.write(Record{Type: "year", Term: a.id.String(), Year: &r})
}

// WriteSummary appends the term's outcome.
func (a *Archive) WriteSummary(sum city.Summary) error {
	return a.write(Record{Type: "summary", Term: a.id.String(), Summary: &sum})
}

func (a *Archive) write(rec Record) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.w == nil {
		return fmt.Errorf("archive %s: closed", a.path)
	}
	b, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	if _, err := a.w.Write(b); err != nil {
		return err
	}
	return a.w.WriteByte('\n')
}

// Close flushes and closes the archive.
func (a *Archive) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.w == nil {
		return nil
	}
	err := a.w.Flush()
	if cerr := a.enc.Close(); err == nil {
		err = cerr
	}
	if cerr := a.f.Close(); err == nil {
		err = cerr
	}
	a.w, a.enc, a.f = nil, nil, nil
	return err
}

// ReadArchive decodes every record of an archive file.
func ReadArchive(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	var records []Record
	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		var rec Record
		if err := json.Unmarshal(sc.Bytes(), &rec); err != nil {
			return records, fmt.Errorf("archive %s line %d: %w", path, len(records)+1, err)
		}
		records = append(records, rec)
	}
	return records, sc.Err()
}
