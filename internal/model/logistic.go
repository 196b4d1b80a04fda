package model

import (
	"math"
)

// Logistic is an online logistic regression trained by single-example SGD
// with L2 regularization. Inputs are standardized with running per-feature
// mean/variance estimates (Welford), so raw indicator magnitudes do not
// dominate the gradient.
type Logistic struct {
	learningRate float64
	l2           float64

	weights []float64
	bias    float64

	// Running standardization state, updated only in Update.
	count int
	mean  []float64
	m2    []float64
	nObs  int
}

// NewLogistic creates an untrained logistic model. Weights are sized
// lazily on the first update so callers do not need to pre-declare the
// feature dimension.
func NewLogistic(learningRate, l2 float64) *Logistic {
	return &Logistic{learningRate: learningRate, l2: l2}
}

// Observations returns the number of labeled examples seen.
func (m *Logistic) Observations() int { return m.nObs }

// Predict scores a context. Before any update it returns the maximally
// uncertain 0.5 so the expectancy gate naturally rejects. A feature
// dimension that differs from the trained one is a wiring defect and
// reported as divergence, matching Update.
func (m *Logistic) Predict(features []float64) (Prediction, error) {
	if m.nObs == 0 {
		return Prediction{PWin: 0.5, Raw: 0.5}, nil
	}
	if len(m.weights) != len(features) {
		return Prediction{}, ErrModelDivergence
	}

	z := m.bias
	for i, v := range features {
		z += m.weights[i] * m.standardize(i, v)
	}
	p := sigmoid(z)

	if err := checkProbability(p); err != nil {
		return Prediction{}, err
	}
	return Prediction{PWin: p, Raw: p, Observations: m.nObs}, nil
}

// Update folds one labeled example into the model: one Welford pass for
// the scaler and one SGD step on the log loss.
func (m *Logistic) Update(features []float64, win bool) error {
	if m.weights == nil {
		m.weights = make([]float64, len(features))
		m.mean = make([]float64, len(features))
		m.m2 = make([]float64, len(features))
	}
	if len(features) != len(m.weights) {
		return ErrModelDivergence
	}

	// Welford update of the running scaler.
	m.count++
	scaled := make([]float64, len(features))
	for i, v := range features {
		delta := v - m.mean[i]
		m.mean[i] += delta / float64(m.count)
		m.m2[i] += delta * (v - m.mean[i])
		scaled[i] = m.standardize(i, v)
	}

	z := m.bias
	for i := range m.weights {
		z += m.weights[i] * scaled[i]
	}
	p := sigmoid(z)
	if math.IsNaN(p) || math.IsInf(p, 0) {
		return ErrModelDivergence
	}

	y := 0.0
	if win {
		y = 1.0
	}
	grad := p - y
	for i := range m.weights {
		m.weights[i] -= m.learningRate * (grad*scaled[i] + m.l2*m.weights[i])
	}
	m.bias -= m.learningRate * grad

	m.nObs++
	return nil
}

// standardize maps a raw feature to zero-mean unit-variance space using
// the running estimates. Degenerate (constant) features pass through
// centered only.
func (m *Logistic) standardize(i int, v float64) float64 {
	if m.count < 2 {
		return 0
	}
	variance := m.m2[i] / float64(m.count-1)
	if variance <= 0 {
		return 0
	}
	return (v - m.mean[i]) / math.Sqrt(variance)
}

func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}

// checkProbability guards the model output contract.
func checkProbability(p float64) error {
	if math.IsNaN(p) || p < 0 || p > 1 {
		return ErrModelDivergence
	}
	return nil
}

var _ Model = (*Logistic)(nil)
