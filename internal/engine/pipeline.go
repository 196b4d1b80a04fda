package engine

import (
	"github.com/rs/zerolog"

	"binary-options-lab/internal/bandit"
	"binary-options-lab/internal/config"
	"binary-options-lab/internal/domain"
	"binary-options-lab/internal/indicator"
	"binary-options-lab/internal/model"
	"binary-options-lab/internal/risk"
	"binary-options-lab/internal/strategy"
)

// Decision is the outcome of one pipeline step. Reason is RejectNone when
// the trade was accepted; otherwise it classifies the rejection.
type Decision struct {
	State    domain.IndicatorState
	Signal   *domain.Signal
	PWin     float64
	Stake    float64
	Features []float64
	Reason   domain.RejectReason
}

// Accepted reports whether the step approved opening a trade.
func (d *Decision) Accepted() bool { return d.Reason == domain.RejectNone }

// Pipeline is the shared per-bar decision path: indicators -> strategy
// signals -> arm selection -> probability -> expectancy gate. Both the
// backtest and live runners drive the same instance, so gating semantics
// cannot diverge between modes. Not safe for concurrent use.
type Pipeline struct {
	indicators *indicator.Engine
	strategies []strategy.Strategy
	selector   *bandit.Selector
	model      model.Model
	risk       *risk.Manager

	banditEnabled   bool
	minObservations int
	logger          zerolog.Logger

	opportunities []domain.Opportunity
}

// NewPipeline wires the decision components for one run.
func NewPipeline(
	cfg *config.Config,
	strategies []strategy.Strategy,
	selector *bandit.Selector,
	mdl model.Model,
	riskMgr *risk.Manager,
	logger zerolog.Logger,
) *Pipeline {
	return &Pipeline{
		indicators:      indicator.NewEngine(cfg.Strategies),
		strategies:      strategies,
		selector:        selector,
		model:           mdl,
		risk:            riskMgr,
		banditEnabled:   cfg.Bandit.Enabled,
		minObservations: cfg.Model.MinObservations,
		logger:          logger,
	}
}

// Step evaluates one bar. positionOpen tells the gate whether the
// at-most-one-open-trade invariant already blocks a new position. The
// model is only read here; learning happens in OnResolved.
func (p *Pipeline) Step(bar domain.Bar, payout float64, positionOpen bool) (*Decision, error) {
	state := p.indicators.Update(bar)
	d := &Decision{State: state, Reason: domain.RejectNoSignal}

	// Collect candidate signals. Not-ready indicator state yields none by
	// the strategy contract.
	var candidates []*domain.Signal
	for _, s := range p.strategies {
		if sig := s.ProduceSignal(&state); sig != nil {
			candidates = append(candidates, sig)
		}
	}
	if len(candidates) == 0 {
		return d, nil
	}

	// With the bandit disabled, the first candidate in registration order
	// wins deterministically.
	sig := candidates[0]
	if p.banditEnabled {
		sig = p.selector.Select(candidates)
	}
	d.Signal = sig
	d.Features = BuildContext(&state, sig.StrategyID, p.selector.Mean(sig.StrategyID))

	pred, err := p.model.Predict(d.Features)
	if err != nil {
		// Model divergence is a fatal defect; surface it instead of
		// trading on garbage.
		return nil, err
	}
	d.PWin = pred.PWin

	switch {
	case positionOpen:
		d.Reason = domain.RejectPositionOpen
	case pred.Observations < p.minObservations:
		d.Reason = domain.RejectColdStart
	default:
		d.Reason = p.risk.Evaluate(pred.PWin, payout, bar.TimestampMs)
	}

	if d.Accepted() {
		d.Stake = p.risk.Stake()
	}

	p.record(bar.TimestampMs, sig, pred.PWin, payout, d.Reason)
	return d, nil
}

// OnResolved feeds a resolved trade back into the learning components:
// the model gets the labeled context, the chosen arm gets its realized
// reward and the risk ledger books the profit. Ties carry no learning
// signal and only touch the ledger.
func (p *Pipeline) OnResolved(t *domain.Trade, context []float64, resolvedAtMs int64) error {
	if t.Outcome == domain.OutcomeWin || t.Outcome == domain.OutcomeLoss {
		if err := p.model.Update(context, t.Outcome == domain.OutcomeWin); err != nil {
			return err
		}
		if p.banditEnabled {
			p.selector.Update(t.StrategyID, rewardFor(t))
		}
	}
	p.risk.ApplyOutcome(t.Profit, resolvedAtMs)
	return nil
}

// OnShadowResolved updates only the learning components, without touching
// the risk ledger. Used by the pretraining prefix of a backtest.
func (p *Pipeline) OnShadowResolved(t *domain.Trade, context []float64) error {
	if t.Outcome != domain.OutcomeWin && t.Outcome != domain.OutcomeLoss {
		return nil
	}
	if err := p.model.Update(context, t.Outcome == domain.OutcomeWin); err != nil {
		return err
	}
	if p.banditEnabled {
		p.selector.Update(t.StrategyID, rewardFor(t))
	}
	return nil
}

// Advance rolls the indicator engine over a bar without evaluating
// signals. The live loop uses it when no payout quote is available, so a
// degraded venue does not stall the indicator stream.
func (p *Pipeline) Advance(bar domain.Bar) {
	p.indicators.Update(bar)
}

// Opportunities returns the audit log of evaluated candidate signals.
func (p *Pipeline) Opportunities() []domain.Opportunity { return p.opportunities }

// Risk exposes the risk manager for equity sampling by the runners.
func (p *Pipeline) Risk() *risk.Manager { return p.risk }

// Warmup returns the indicator warm-up requirement in bars.
func (p *Pipeline) Warmup() int { return p.indicators.WarmupBars() }

func (p *Pipeline) record(tsMs int64, sig *domain.Signal, pWin, payout float64, reason domain.RejectReason) {
	accepted := reason == domain.RejectNone
	p.opportunities = append(p.opportunities, domain.Opportunity{
		TimestampMs: tsMs,
		StrategyID:  sig.StrategyID,
		Direction:   sig.Direction,
		PWin:        pWin,
		Payout:      payout,
		Accepted:    accepted,
		Reason:      reason,
		Equity:      p.risk.Equity(),
	})
	if !accepted {
		p.logger.Debug().
			Str("strategy", sig.StrategyID).
			Str("direction", string(sig.Direction)).
			Float64("p_win", pWin).
			Float64("payout", payout).
			Str("reason", string(reason)).
			Msg("signal rejected")
	}
}

// rewardFor maps a terminal trade to the bandit reward: +payout on a win,
// -1 on a loss (stake multiples).
func rewardFor(t *domain.Trade) float64 {
	if t.Outcome == domain.OutcomeWin {
		return t.Payout
	}
	return -1
}
