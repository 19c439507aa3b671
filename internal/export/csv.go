// Package export renders processed traces as CSV tables and PNG figures for
// download.
package export

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"strconv"
)

// ErrLengthMismatch indicates raw and filtered traces differ in length.
var ErrLengthMismatch = errors.New("export: raw and filtered length mismatch")

// WriteCSV serializes a trace as a three-column table: relative time in
// seconds, raw amplitude and filtered amplitude.
func WriteCSV(raw, filtered []float64, sampleRate float64) ([]byte, error) {
	if len(raw) != len(filtered) {
		return nil, fmt.Errorf("%w: %d vs %d", ErrLengthMismatch, len(raw), len(filtered))
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("export: invalid sampling rate %g", sampleRate)
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write([]string{"time_s", "raw", "filtered"}); err != nil {
		return nil, fmt.Errorf("export: writing header: %w", err)
	}

	row := make([]string, 3)
	for i := range raw {
		row[0] = strconv.FormatFloat(float64(i)/sampleRate, 'f', 6, 64)
		row[1] = strconv.FormatFloat(raw[i], 'g', -1, 64)
		row[2] = strconv.FormatFloat(filtered[i], 'g', -1, 64)
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("export: writing row %d: %w", i, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("export: flushing: %w", err)
	}
	return buf.Bytes(), nil
}
