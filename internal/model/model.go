// Package model implements the online probability model that maps a
// context vector to P(win), plus optional post-hoc calibration.
package model

import (
	"errors"
	"fmt"

	"binary-options-lab/internal/config"
)

// ErrModelDivergence is returned when the model emits NaN or a value
// outside [0,1]. It is a fatal defect: the run halts rather than trading
// on garbage.
var ErrModelDivergence = errors.New("model divergence: probability out of range")

// ErrUnknownModelType is returned for unsupported model configurations.
var ErrUnknownModelType = errors.New("unknown model type")

// Prediction is one scored context. Raw is the uncalibrated model output;
// PWin is the value the gate consumes.
type Prediction struct {
	PWin         float64
	Raw          float64
	Calibrated   bool
	Observations int
}

// Model is an incrementally-trained binary classifier.
type Model interface {
	// Predict scores a context. Pure: no internal state changes.
	Predict(features []float64) (Prediction, error)

	// Update incorporates one labeled example in O(features) time.
	Update(features []float64, win bool) error

	// Observations returns the number of labeled examples seen, used by
	// the gate's cold-start policy.
	Observations() int
}

// New builds a model from configuration, wrapping it with a calibration
// layer when one is configured.
func New(cfg config.ModelConfig) (Model, error) {
	if cfg.Type != "logistic" {
		return nil, fmt.Errorf("%w: %q", ErrUnknownModelType, cfg.Type)
	}

	base := NewLogistic(cfg.LearningRate, cfg.L2)
	switch cfg.Calibration {
	case "none":
		return base, nil
	case "platt":
		return NewCalibrated(base, newPlatt(), cfg.CalibrationWindow, cfg.CalibrationRefit), nil
	case "isotonic":
		return NewCalibrated(base, newIsotonic(), cfg.CalibrationWindow, cfg.CalibrationRefit), nil
	default:
		return nil, fmt.Errorf("%w: calibration %q", ErrUnknownModelType, cfg.Calibration)
	}
}
