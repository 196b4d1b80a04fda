package feed

import (
	"math/rand"
	"time"

	"binary-options-lab/internal/domain"
)

// Synthetic generates a deterministic demo series: a gentle linear
// uptrend from 1.1000 to 1.1200 with gaussian noise, so trend strategies
// find crossovers and mean-reversion finds pullbacks. The same seed
// always yields the same series.
func Synthetic(seed int64, start time.Time, intervalMs int64, n int) []domain.Bar {
	rng := rand.New(rand.NewSource(seed))
	bars := make([]domain.Bar, 0, n)

	for i := 0; i < n; i++ {
		trend := 1.1000 + 0.0200*float64(i)/float64(max(n-1, 1))
		close := trend + rng.NormFloat64()*0.0010
		high := close + abs(rng.NormFloat64()*0.0005)
		low := close - abs(rng.NormFloat64()*0.0005)
		open := close + rng.NormFloat64()*0.0003

		if open > high {
			high = open
		}
		if open < low {
			low = open
		}

		bars = append(bars, domain.Bar{
			TimestampMs: start.UnixMilli() + int64(i)*intervalMs,
			Open:        open,
			High:        high,
			Low:         low,
			Close:       close,
			Volume:      float64(100 + rng.Intn(900)),
		})
	}
	return bars
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
