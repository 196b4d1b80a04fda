package model

import (
	"math"
	"sort"
)

// calibrator remaps raw model probabilities onto empirical outcome
// frequencies. Implementations must be monotonic.
type calibrator interface {
	// fit refits the mapping from a window of past (raw p, outcome)
	// pairs. Called only with data observed before the current replay
	// position; there is no look-ahead by construction.
	fit(ps []float64, ys []float64)

	// apply remaps a raw probability. Only valid after a successful fit.
	apply(p float64) float64

	// fitted reports whether a mapping is available.
	fitted() bool
}

// Calibrated wraps a base model with a periodically refit calibration
// layer over a sliding buffer of recent predictions and outcomes.
type Calibrated struct {
	base       Model
	cal        calibrator
	window     int
	refitEvery int

	ps         []float64
	ys         []float64
	sinceRefit int
}

// NewCalibrated wraps base with cal, refitting every refitEvery outcomes
// from a sliding buffer of at most window pairs.
func NewCalibrated(base Model, cal calibrator, window, refitEvery int) *Calibrated {
	return &Calibrated{base: base, cal: cal, window: window, refitEvery: refitEvery}
}

// Observations returns the base model's observation count.
func (c *Calibrated) Observations() int { return c.base.Observations() }

// Predict scores a context and, when a calibration map is fitted, remaps
// the raw output.
func (c *Calibrated) Predict(features []float64) (Prediction, error) {
	pred, err := c.base.Predict(features)
	if err != nil {
		return Prediction{}, err
	}
	if !c.cal.fitted() {
		return pred, nil
	}

	p := clamp01(c.cal.apply(pred.Raw))
	if err := checkProbability(p); err != nil {
		return Prediction{}, err
	}
	pred.PWin = p
	pred.Calibrated = true
	return pred, nil
}

// Update records the raw prediction/outcome pair for calibration, updates
// the base model, and refits the calibrator on schedule.
func (c *Calibrated) Update(features []float64, win bool) error {
	// Capture the raw score before the base model moves.
	pred, err := c.base.Predict(features)
	if err != nil {
		return err
	}

	if err := c.base.Update(features, win); err != nil {
		return err
	}

	y := 0.0
	if win {
		y = 1.0
	}
	c.ps = append(c.ps, pred.Raw)
	c.ys = append(c.ys, y)
	if len(c.ps) > c.window {
		c.ps = c.ps[len(c.ps)-c.window:]
		c.ys = c.ys[len(c.ys)-c.window:]
	}

	c.sinceRefit++
	if c.sinceRefit >= c.refitEvery && len(c.ps) >= 10 {
		c.cal.fit(c.ps, c.ys)
		c.sinceRefit = 0
	}
	return nil
}

var _ Model = (*Calibrated)(nil)

// platt fits a monotonic sigmoid remapping a*logit(p)+b by gradient
// descent on the log loss. Deterministic: fixed iteration count, no
// random initialization.
type platt struct {
	a, b  float64
	isFit bool
}

func newPlatt() *platt { return &platt{a: 1} }

func (p *platt) fitted() bool { return p.isFit }

func (p *platt) fit(ps, ys []float64) {
	a, b := 1.0, 0.0
	const iters = 200
	const lr = 0.1
	n := float64(len(ps))

	for it := 0; it < iters; it++ {
		var gradA, gradB float64
		for i := range ps {
			z := a*logit(ps[i]) + b
			q := sigmoid(z)
			diff := q - ys[i]
			gradA += diff * logit(ps[i])
			gradB += diff
		}
		a -= lr * gradA / n
		b -= lr * gradB / n
	}

	// A negative slope would invert the ranking; keep the identity
	// direction in that degenerate case.
	if a <= 0 {
		a = 1e-6
	}
	p.a, p.b = a, b
	p.isFit = true
}

func (p *platt) apply(raw float64) float64 {
	return sigmoid(p.a*logit(raw) + p.b)
}

// logit is the inverse sigmoid, clamped away from 0 and 1.
func logit(p float64) float64 {
	const eps = 1e-6
	p = math.Min(math.Max(p, eps), 1-eps)
	return math.Log(p / (1 - p))
}

// isotonic fits a non-decreasing step function by pool-adjacent-violators
// and applies it with linear interpolation between block centers.
type isotonic struct {
	xs    []float64
	fs    []float64
	isFit bool
}

func newIsotonic() *isotonic { return &isotonic{} }

func (iso *isotonic) fitted() bool { return iso.isFit }

func (iso *isotonic) fit(ps, ys []float64) {
	type pair struct{ p, y float64 }
	pairs := make([]pair, len(ps))
	for i := range ps {
		pairs[i] = pair{ps[i], ys[i]}
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].p < pairs[j].p })

	// Pool adjacent violators.
	type block struct {
		sumY, sumP float64
		n          float64
	}
	var blocks []block
	for _, pr := range pairs {
		blocks = append(blocks, block{sumY: pr.y, sumP: pr.p, n: 1})
		for len(blocks) >= 2 {
			last := blocks[len(blocks)-1]
			prev := blocks[len(blocks)-2]
			if prev.sumY/prev.n <= last.sumY/last.n {
				break
			}
			blocks = blocks[:len(blocks)-2]
			blocks = append(blocks, block{
				sumY: prev.sumY + last.sumY,
				sumP: prev.sumP + last.sumP,
				n:    prev.n + last.n,
			})
		}
	}

	iso.xs = iso.xs[:0]
	iso.fs = iso.fs[:0]
	for _, b := range blocks {
		iso.xs = append(iso.xs, b.sumP/b.n)
		iso.fs = append(iso.fs, b.sumY/b.n)
	}
	iso.isFit = len(iso.xs) > 0
}

func (iso *isotonic) apply(raw float64) float64 {
	n := len(iso.xs)
	switch {
	case n == 0:
		return raw
	case raw <= iso.xs[0]:
		return iso.fs[0]
	case raw >= iso.xs[n-1]:
		return iso.fs[n-1]
	}

	i := sort.SearchFloat64s(iso.xs, raw)
	// Interpolate between the surrounding block centers.
	x0, x1 := iso.xs[i-1], iso.xs[i]
	f0, f1 := iso.fs[i-1], iso.fs[i]
	if x1 == x0 {
		return f0
	}
	t := (raw - x0) / (x1 - x0)
	return f0 + t*(f1-f0)
}

func clamp01(v float64) float64 {
	return math.Min(math.Max(v, 0), 1)
}
