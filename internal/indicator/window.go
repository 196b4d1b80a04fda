package indicator

import "math"

// ema is an incremental exponential moving average seeded with the first
// observation (pandas ewm adjust=False semantics).
type ema struct {
	alpha  float64
	value  float64
	primed bool
}

func newEMA(period int) *ema {
	return &ema{alpha: 2.0 / (float64(period) + 1)}
}

func (e *ema) update(v float64) float64 {
	if !e.primed {
		e.value = v
		e.primed = true
		return e.value
	}
	e.value += e.alpha * (v - e.value)
	return e.value
}

// windowSum is a fixed-window running sum backed by a ring buffer.
type windowSum struct {
	buf  []float64
	head int
	n    int
	sum  float64
}

func newWindowSum(window int) *windowSum {
	return &windowSum{buf: make([]float64, window)}
}

func (w *windowSum) push(v float64) {
	if w.n == len(w.buf) {
		w.sum -= w.buf[w.head]
	} else {
		w.n++
	}
	w.buf[w.head] = v
	w.sum += v
	w.head = (w.head + 1) % len(w.buf)
}

func (w *windowSum) full() bool { return w.n == len(w.buf) }

func (w *windowSum) mean() float64 {
	if w.n == 0 {
		return 0
	}
	return w.sum / float64(w.n)
}

// windowStats tracks a fixed-window sample standard deviation.
type windowStats struct {
	buf   []float64
	head  int
	n     int
	sum   float64
	sumSq float64
}

func newWindowStats(window int) *windowStats {
	return &windowStats{buf: make([]float64, window)}
}

func (w *windowStats) push(v float64) {
	if w.n == len(w.buf) {
		old := w.buf[w.head]
		w.sum -= old
		w.sumSq -= old * old
	} else {
		w.n++
	}
	w.buf[w.head] = v
	w.sum += v
	w.sumSq += v * v
	w.head = (w.head + 1) % len(w.buf)
}

func (w *windowStats) stddev() float64 {
	if w.n < 2 {
		return 0
	}
	n := float64(w.n)
	variance := (w.sumSq - w.sum*w.sum/n) / (n - 1)
	if variance < 0 {
		// Floating-point cancellation can push a near-zero variance
		// slightly negative.
		variance = 0
	}
	return math.Sqrt(variance)
}

// monotonicDeque maintains the sliding-window maximum (or minimum) in O(1)
// amortized per push.
type monotonicDeque struct {
	window int
	max    bool
	idx    []int
	val    []float64
}

func newMonotonicDeque(window int, max bool) *monotonicDeque {
	return &monotonicDeque{window: window, max: max}
}

func (d *monotonicDeque) push(i int, v float64) {
	// Drop entries that can never be the window extreme again.
	for len(d.val) > 0 {
		last := d.val[len(d.val)-1]
		if (d.max && last <= v) || (!d.max && last >= v) {
			d.idx = d.idx[:len(d.idx)-1]
			d.val = d.val[:len(d.val)-1]
			continue
		}
		break
	}
	d.idx = append(d.idx, i)
	d.val = append(d.val, v)

	// Expire entries that fell out of the window.
	for len(d.idx) > 0 && d.idx[0] <= i-d.window {
		d.idx = d.idx[1:]
		d.val = d.val[1:]
	}
}

func (d *monotonicDeque) extreme() float64 {
	if len(d.val) == 0 {
		return 0
	}
	return d.val[0]
}
