// Package catalog parses P-wave pick catalogs and validates picks against
// trace time windows.
//
// Catalogs are CSV documents with an 'archivo' column holding integer event
// identifiers and a 'lec_p' column holding P arrival times as epoch seconds.
// Rows with a non-numeric lec_p are kept as events without a pick.
package catalog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrMissingColumns indicates the CSV lacks the archivo/lec_p header.
	ErrMissingColumns = errors.New("catalog: archivo and lec_p columns required")
	// ErrBadEventID indicates an event identifier that is not an integer.
	ErrBadEventID = errors.New("catalog: invalid event id")
)

// Entry is one catalog row.
type Entry struct {
	EventID  int64
	PArrival *time.Time // nil when lec_p is missing or non-numeric
}

// ParseResult reports what a catalog import found.
type ParseResult struct {
	Entries []Entry
	Missing int // rows without a usable P arrival
	Skipped int // rows that could not be parsed at all
}

// Parse reads a pick catalog CSV.
func Parse(r io.Reader) (*ParseResult, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("catalog: reading header: %w", err)
	}

	idCol, pCol := -1, -1
	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "archivo":
			idCol = i
		case "lec_p":
			pCol = i
		}
	}
	if idCol < 0 || pCol < 0 {
		return nil, ErrMissingColumns
	}

	res := &ParseResult{}
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			res.Skipped++
			continue
		}
		if idCol >= len(row) || pCol >= len(row) {
			res.Skipped++
			continue
		}

		eventID, err := ParseEventID(row[idCol])
		if err != nil {
			res.Skipped++
			continue
		}

		entry := Entry{EventID: eventID}
		if p, err := strconv.ParseFloat(strings.TrimSpace(row[pCol]), 64); err == nil && !math.IsNaN(p) {
			sec, frac := math.Modf(p)
			at := time.Unix(int64(sec), int64(math.Round(frac*1e9))).UTC()
			entry.PArrival = &at
		} else {
			res.Missing++
		}
		res.Entries = append(res.Entries, entry)
	}
	return res, nil
}

// ParseEventID normalizes an event identifier string: surrounding space and
// leading zeros are ignored.
func ParseEventID(s string) (int64, error) {
	s = strings.TrimSpace(s)
	trimmed := strings.TrimLeft(s, "0")
	if trimmed == "" {
		if s == "" {
			return 0, fmt.Errorf("%w: empty", ErrBadEventID)
		}
		return 0, nil // all zeros
	}
	id, err := strconv.ParseInt(trimmed, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrBadEventID, s)
	}
	return id, nil
}

// EventIDFromFilename extracts the event identifier from an MSEED file name.
// Augmented-copy suffixes ('_aug...') and the extension are stripped, and
// leading zeros ignored, e.g. "00123_aug2.mseed" -> 123.
func EventIDFromFilename(name string) (int64, error) {
	base := name
	if i := strings.LastIndexByte(base, '/'); i >= 0 {
		base = base[i+1:]
	}
	base = strings.TrimSuffix(base, ".mseed")
	if i := strings.Index(base, "_aug"); i >= 0 {
		base = base[:i]
	}
	return ParseEventID(base)
}

// Validation is the outcome of checking a pick against a trace window.
type Validation struct {
	IsValid     bool
	HasPick     bool
	Note        string
	SignalStart time.Time
	SignalEnd   time.Time
	DurationSec float64
	RelativeSec *float64
}

// Validate checks that a P arrival falls inside [start, start+duration].
// A missing arrival is reported as valid with an informational note, matching
// how operators triage catalogs with incomplete picks.
func Validate(start time.Time, durationSec float64, pArrival *time.Time) Validation {
	v := Validation{
		SignalStart: start,
		SignalEnd:   start.Add(time.Duration(durationSec * float64(time.Second))),
		DurationSec: durationSec,
	}

	if pArrival == nil {
		v.IsValid = true
		v.Note = "No P arrival time available"
		return v
	}

	v.HasPick = true
	rel := pArrival.Sub(start).Seconds()
	v.RelativeSec = &rel

	if rel < 0 || rel > durationSec {
		v.Note = fmt.Sprintf("P arrival time (%.2fs) outside signal duration (0 to %.2fs)",
			rel, durationSec)
		return v
	}
	v.IsValid = true
	return v
}
