// Package feed provides bar sources: in-memory slices for backtests,
// CSV files, a seeded synthetic generator and a WebSocket stream for
// live sessions.
package feed

import (
	"context"
	"errors"

	"binary-options-lab/internal/domain"
)

// ErrEndOfData signals that a finite source has been exhausted.
var ErrEndOfData = errors.New("end of data")

// BarSource delivers bars strictly in time order. Next blocks until a
// bar is available, the source ends (ErrEndOfData) or ctx is done.
type BarSource interface {
	Next(ctx context.Context) (*domain.Bar, error)
	Close() error
}

// SliceSource serves a fixed slice of bars. Used by backtests and tests.
type SliceSource struct {
	bars []domain.Bar
	idx  int
}

var _ BarSource = (*SliceSource)(nil)

// NewSliceSource wraps the given bars without copying.
func NewSliceSource(bars []domain.Bar) *SliceSource {
	return &SliceSource{bars: bars}
}

// Next returns the next bar or ErrEndOfData.
func (s *SliceSource) Next(ctx context.Context) (*domain.Bar, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.idx >= len(s.bars) {
		return nil, ErrEndOfData
	}
	bar := s.bars[s.idx]
	s.idx++
	return &bar, nil
}

// Close is a no-op for slice sources.
func (s *SliceSource) Close() error { return nil }

// Drain consumes a finite source into a slice. Returns the bars read so
// far alongside any error other than ErrEndOfData.
func Drain(ctx context.Context, src BarSource) ([]domain.Bar, error) {
	var bars []domain.Bar
	for {
		bar, err := src.Next(ctx)
		if errors.Is(err, ErrEndOfData) {
			return bars, nil
		}
		if err != nil {
			return bars, err
		}
		bars = append(bars, *bar)
	}
}
