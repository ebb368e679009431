// Package auditlog records every classification, match and posting decision
// in <repoRoot>/logs/decision-log.csv so a reviewer can see why a line was
// handled the way it was.
package auditlog

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Stage is the pipeline step that made a decision.
type Stage string

const (
	StageClassify  Stage = "classify"
	StageReconcile Stage = "reconcile"
	StagePost      Stage = "post"
)

// Entry is one row in the decision log.
type Entry struct {
	Timestamp  time.Time
	CompanyID  string
	Stage      Stage
	Decision   string // strategy name, match tier, or entry group
	Confidence int
	InputHash  string
	RecordID   string
	Reasoning  []string
}

// Header is the CSV header for decision-log.csv.
const Header = "timestamp,company_id,stage,decision,confidence,input_hash,record_id,reasoning"

const (
	numFields     = 8
	logDir        = "logs"
	logFile       = "logs/decision-log.csv"
	colTimestamp  = 0
	colCompanyID  = 1
	colStage      = 2
	colDecision   = 3
	colConfidence = 4
	colInputHash  = 5
	colRecordID   = 6
	colReasoning  = 7

	reasonSep = " | "
)

// MarshalEntry converts an Entry to a CSV row.
func MarshalEntry(e Entry) []string {
	row := make([]string, numFields)
	row[colTimestamp] = e.Timestamp.Format(time.RFC3339)
	row[colCompanyID] = e.CompanyID
	row[colStage] = string(e.Stage)
	row[colDecision] = e.Decision
	row[colConfidence] = strconv.Itoa(e.Confidence)
	row[colInputHash] = e.InputHash
	row[colRecordID] = e.RecordID
	row[colReasoning] = strings.Join(e.Reasoning, reasonSep)
	return row
}

// UnmarshalEntry converts a CSV row to an Entry.
func UnmarshalEntry(record []string) (Entry, error) {
	if len(record) != numFields {
		return Entry{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}

	ts, err := time.Parse(time.RFC3339, record[colTimestamp])
	if err != nil {
		return Entry{}, fmt.Errorf("parsing timestamp %q: %w", record[colTimestamp], err)
	}
	conf, err := strconv.Atoi(record[colConfidence])
	if err != nil {
		return Entry{}, fmt.Errorf("parsing confidence %q: %w", record[colConfidence], err)
	}

	var reasoning []string
	if record[colReasoning] != "" {
		reasoning = strings.Split(record[colReasoning], reasonSep)
	}

	return Entry{
		Timestamp:  ts,
		CompanyID:  record[colCompanyID],
		Stage:      Stage(record[colStage]),
		Decision:   record[colDecision],
		Confidence: conf,
		InputHash:  record[colInputHash],
		RecordID:   record[colRecordID],
		Reasoning:  reasoning,
	}, nil
}

// Append writes entries to the decision log, creating the file and header if needed.
func Append(repoRoot string, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}
	dir := filepath.Join(repoRoot, logDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating logs dir: %w", err)
	}

	path := filepath.Join(repoRoot, logFile)
	needsHeader := false
	if _, err := os.Stat(path); os.IsNotExist(err) {
		needsHeader = true
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening decision log: %w", err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if needsHeader {
		if err := cw.Write(strings.Split(Header, ",")); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
	}
	for i, e := range entries {
		if err := cw.Write(MarshalEntry(e)); err != nil {
			return fmt.Errorf("writing entry %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// Read returns all entries from the decision log.
// Returns an empty slice if the file does not exist.
func Read(repoRoot string) ([]Entry, error) {
	path := filepath.Join(repoRoot, logFile)
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening decision log: %w", err)
	}
	defer f.Close()

	return readEntries(f)
}

func readEntries(r io.Reader) ([]Entry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading decision log CSV: %w", err)
	}

	if len(records) <= 1 {
		return nil, nil
	}

	var entries []Entry
	for i, rec := range records[1:] {
		e, err := UnmarshalEntry(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// Recorder receives decisions as they are made.
type Recorder interface {
	Record(e Entry)
}

// Buffer is an in-memory Recorder, safe for concurrent use.
type Buffer struct {
	mu      sync.Mutex
	entries []Entry
}

func (b *Buffer) Record(e Entry) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries = append(b.entries, e)
}

// Entries returns a copy of the buffered entries.
func (b *Buffer) Entries() []Entry {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Entry(nil), b.entries...)
}

// Flush appends the buffered entries to the decision log and empties the buffer.
func (b *Buffer) Flush(repoRoot string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := Append(repoRoot, b.entries); err != nil {
		return err
	}
	b.entries = nil
	return nil
}

// Discard is a Recorder that drops everything.
type Discard struct{}

func (Discard) Record(Entry) {}
