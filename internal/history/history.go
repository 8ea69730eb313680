// Package history records one summary row per import run, so users
// can audit what each file contributed.
package history

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Entry is one row in the import history log.
type Entry struct {
	Timestamp  time.Time
	SessionID  string
	FileName   string
	Profile    string
	Staged     int
	Skipped    int
	Duplicates int
	Committed  int
}

// Header is the CSV header for import-history.csv.
const Header = "timestamp,session_id,file_name,profile,staged,skipped,duplicates,committed"

const (
	numFields     = 8
	logDir        = "logs"
	logFile       = "logs/import-history.csv"
	colTimestamp  = 0
	colSessionID  = 1
	colFileName   = 2
	colProfile    = 3
	colStaged     = 4
	colSkipped    = 5
	colDuplicates = 6
	colCommitted  = 7
)

// MarshalEntry converts an Entry to a CSV row.
func MarshalEntry(e Entry) []string {
	row := make([]string, numFields)
	row[colTimestamp] = e.Timestamp.Format(time.RFC3339)
	row[colSessionID] = e.SessionID
	row[colFileName] = e.FileName
	row[colProfile] = e.Profile
	row[colStaged] = strconv.Itoa(e.Staged)
	row[colSkipped] = strconv.Itoa(e.Skipped)
	row[colDuplicates] = strconv.Itoa(e.Duplicates)
	row[colCommitted] = strconv.Itoa(e.Committed)
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

	counts := make([]int, 4)
	for i, col := range []int{colStaged, colSkipped, colDuplicates, colCommitted} {
		n, err := strconv.Atoi(record[col])
		if err != nil {
			return Entry{}, fmt.Errorf("parsing count %q: %w", record[col], err)
		}
		counts[i] = n
	}

	return Entry{
		Timestamp:  ts,
		SessionID:  record[colSessionID],
		FileName:   record[colFileName],
		Profile:    record[colProfile],
		Staged:     counts[0],
		Skipped:    counts[1],
		Duplicates: counts[2],
		Committed:  counts[3],
	}, nil
}

// Append writes entries to <root>/logs/import-history.csv, creating
// the file and header if needed.
func Append(root string, entries []Entry) error {
	dir := filepath.Join(root, logDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating logs dir: %w", err)
	}

	path := filepath.Join(root, logFile)
	needsHeader := false
	if _, err := os.Stat(path); os.IsNotExist(err) {
		needsHeader = true
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening history log: %w", err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	defer cw.Flush()

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

	return cw.Error()
}

// Read returns all entries from <root>/logs/import-history.csv.
// Returns an empty slice if the file does not exist.
func Read(root string) ([]Entry, error) {
	path := filepath.Join(root, logFile)
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening history log: %w", err)
	}
	defer f.Close()

	return readEntries(f)
}

func readEntries(r io.Reader) ([]Entry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading history CSV: %w", err)
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
