package feed

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"binary-options-lab/internal/domain"
)

// csv column order after the header row
const (
	colTimestamp = iota
	colOpen
	colHigh
	colLow
	colClose
	colVolume
)

// LoadCSV reads a bar series from a CSV file with a
// timestamp,open,high,low,close,volume header. Timestamps may be unix
// milliseconds, RFC 3339, or "2006-01-02 15:04:05" (interpreted as UTC).
func LoadCSV(path string) ([]domain.Bar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = 6

	// header
	if _, err := r.Read(); err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	var bars []domain.Bar
	for line := 2; ; line++ {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv line %d: %w", line, err)
		}

		bar, err := parseRecord(rec)
		if err != nil {
			return nil, fmt.Errorf("csv line %d: %w", line, err)
		}
		bars = append(bars, bar)
	}
	return bars, nil
}

func parseRecord(rec []string) (domain.Bar, error) {
	ts, err := parseTimestamp(rec[colTimestamp])
	if err != nil {
		return domain.Bar{}, err
	}

	vals := make([]float64, 5)
	for i, col := range []int{colOpen, colHigh, colLow, colClose, colVolume} {
		v, err := strconv.ParseFloat(rec[col], 64)
		if err != nil {
			return domain.Bar{}, fmt.Errorf("column %d: %w", col, err)
		}
		vals[i] = v
	}

	return domain.Bar{
		TimestampMs: ts,
		Open:        vals[0],
		High:        vals[1],
		Low:         vals[2],
		Close:       vals[3],
		Volume:      vals[4],
	}, nil
}

func parseTimestamp(s string) (int64, error) {
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return ms, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05"} {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.UnixMilli(), nil
		}
	}
	return 0, fmt.Errorf("unparseable timestamp %q", s)
}
