package resolver

import (
	"fmt"
	"io"
	"os"
)

// Journal is the append-only record of skipped entities. One record per
// dropped object or rule, flushed as written so a crash loses nothing.
// Recording never fails the pipeline.
type Journal struct {
	w     io.Writer
	f     *os.File
	count int
}

// OpenJournal creates (truncating) the journal file at path.
func OpenJournal(path string) (*Journal, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("opening journal %s: %w", path, err)
	}
	return &Journal{w: f, f: f}, nil
}

// NewJournal wraps an arbitrary writer (tests, discard).
func NewJournal(w io.Writer) *Journal {
	return &Journal{w: w}
}

// Record appends an entity header line with an indented reason.
func (j *Journal) Record(entity, reason string) {
	fmt.Fprintf(j.w, "%s\n\t- Reason: %s\n", entity, reason)
	j.flush()
	j.count++
}

// RecordInline appends the single-line form used for unprocessable rules.
func (j *Journal) RecordInline(entity, reason string) {
	fmt.Fprintf(j.w, "%s -> %s \n", entity, reason)
	j.flush()
	j.count++
}

// Count returns the number of records written.
func (j *Journal) Count() int {
	return j.count
}

func (j *Journal) flush() {
	if j.f != nil {
		j.f.Sync()
	}
}

// Close closes the underlying file, if any.
func (j *Journal) Close() error {
	if j.f != nil {
		return j.f.Close()
	}
	return nil
}
