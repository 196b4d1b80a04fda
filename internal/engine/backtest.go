package engine

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/rs/zerolog"

	"binary-options-lab/internal/config"
	"binary-options-lab/internal/domain"
	"binary-options-lab/internal/idhash"
	"binary-options-lab/internal/metrics"
)

// BacktestResult holds everything a report sink needs from one run.
type BacktestResult struct {
	Run           domain.RunSummary
	Trades        []*domain.Trade
	Opportunities []domain.Opportunity
	EquityCurve   []float64
}

// Backtest advances the decision pipeline bar-by-bar over a historical
// series. Deterministic: the same series and configuration produce a
// byte-identical trade sequence on every run.
type Backtest struct {
	cfg      *config.Config
	pipeline *Pipeline
	logger   zerolog.Logger

	// payoutRng simulates broker payout drift. Seeded separately from
	// the bandit's exploration draw so enabling jitter does not shift
	// the exploration sequence.
	payoutRng *rand.Rand

	// lastPayout is the quote used at the most recent Step, so an opened
	// trade records the payout it was gated against.
	lastPayout float64
}

// NewBacktest creates a backtest runner around a wired pipeline.
func NewBacktest(cfg *config.Config, pipeline *Pipeline, logger zerolog.Logger) *Backtest {
	return &Backtest{
		cfg:       cfg,
		pipeline:  pipeline,
		logger:    logger,
		payoutRng: rand.New(rand.NewSource(cfg.Seed + 1)),
	}
}

// Run replays the bars strictly in timestamp order. It aborts with
// ErrDataGap on out-of-order or missing bars, and with the model error on
// divergence.
func (b *Backtest) Run(ctx context.Context, bars []domain.Bar) (*BacktestResult, error) {
	if len(bars) == 0 {
		return nil, fmt.Errorf("%w: empty series", ErrDataGap)
	}

	interval, err := timeframeMs(b.cfg.Timeframe)
	if err != nil {
		return nil, err
	}

	runID := idhash.ComputeRunID(b.cfg.Hash(), b.cfg.Seed, bars[0].TimestampMs, bars[len(bars)-1].TimestampMs)
	book := NewBook()
	equity := make([]float64, 0, len(bars))

	// expiryIdx is the bar index at which the pending trade resolves.
	expiryIdx := -1
	shadow := false // pending trade is a pretraining shadow trade

	b.logger.Info().Str("run_id", runID).Int("bars", len(bars)).Msg("starting backtest")

	for i, bar := range bars {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if i > 0 {
			if err := checkGap(bars[i-1].TimestampMs, bar.TimestampMs, interval, b.cfg.Backtest.MaxBarGap); err != nil {
				return nil, err
			}
		}

		// Resolve the pending trade at its expiry bar before evaluating
		// new signals, so the freed slot is usable this bar.
		if book.HasOpen() && i >= expiryIdx {
			if err := b.resolve(book, bar, shadow); err != nil {
				return nil, err
			}
			expiryIdx = -1
		}

		payout := b.simulatePayout()
		decision, err := b.pipeline.Step(bar, payout, book.HasOpen())
		if err != nil {
			return nil, err
		}

		pretraining := i < b.cfg.Backtest.PretrainBars
		switch {
		case pretraining && decision.Signal != nil && !book.HasOpen():
			// Shadow trade: learn from the outcome without staking.
			if err := b.open(book, runID, decision, bar, 0); err != nil {
				return nil, err
			}
			expiryIdx = i + b.cfg.ExpiryBars
			shadow = true
		case !pretraining && decision.Accepted():
			if err := b.open(book, runID, decision, bar, decision.Stake); err != nil {
				return nil, err
			}
			expiryIdx = i + b.cfg.ExpiryBars
			shadow = false
		}

		equity = append(equity, b.pipeline.Risk().Equity())
	}

	// A trade still pending at the end of data cannot resolve.
	if book.HasOpen() {
		t := book.Abort()
		b.logger.Warn().Str("trade_id", t.TradeID).Msg("aborted trade pending at end of series")
	}

	summary := metrics.Compute(book.Trades(), equity, b.pipeline.Opportunities(), b.cfg.Backtest.InitialBalance)
	result := &BacktestResult{
		Run: domain.RunSummary{
			RunID:       runID,
			Symbol:      b.cfg.Symbol,
			Timeframe:   b.cfg.Timeframe,
			Mode:        domain.RunModeBacktest,
			ConfigHash:  b.cfg.Hash(),
			Seed:        b.cfg.Seed,
			StartMs:     bars[0].TimestampMs,
			EndMs:       bars[len(bars)-1].TimestampMs,
			BarCount:    len(bars),
			CreatedAtMs: time.Now().UnixMilli(),
			Metrics:     summary,
		},
		Trades:        book.Trades(),
		Opportunities: b.pipeline.Opportunities(),
		EquityCurve:   equity,
	}

	b.logger.Info().
		Int("trades", summary.TotalTrades).
		Float64("win_rate", summary.WinRate).
		Float64("final_equity", summary.FinalEquity).
		Msg("backtest complete")
	return result, nil
}

// open books a new trade with the simulated fill applied: entry delayed
// by the configured latency and the fill price shifted against the
// position by half the slippage spread.
func (b *Backtest) open(book *Book, runID string, d *Decision, bar domain.Bar, stake float64) error {
	entry := fillPrice(bar.Close, d.Signal.Direction, b.cfg.Backtest.SlippagePct, true)
	interval, _ := timeframeMs(b.cfg.Timeframe)

	t := &domain.Trade{
		TradeID:      idhash.ComputeTradeID(runID, b.cfg.Symbol, d.Signal.StrategyID, string(d.Signal.Direction), bar.TimestampMs),
		RunID:        runID,
		Symbol:       b.cfg.Symbol,
		StrategyID:   d.Signal.StrategyID,
		Direction:    d.Signal.Direction,
		OpenTimeMs:   bar.TimestampMs + b.cfg.Backtest.LatencyMs,
		ExpiryTimeMs: bar.TimestampMs + int64(b.cfg.ExpiryBars)*interval,
		EntryPrice:   entry,
		Stake:        stake,
		Payout:       b.lastPayout,
		PWin:         d.PWin,
	}
	return book.Open(t, d.Features)
}

// resolve terminates the pending trade against the expiry bar's close.
func (b *Backtest) resolve(book *Book, bar domain.Bar, shadow bool) error {
	t := book.Pending()
	exit := fillPrice(bar.Close, t.Direction, b.cfg.Backtest.SlippagePct, false)

	outcome := settle(t.Direction, t.EntryPrice, exit)
	profit := 0.0
	switch outcome {
	case domain.OutcomeWin:
		profit = t.Stake * t.Payout
	case domain.OutcomeLoss:
		profit = -t.Stake
	}

	features := book.Context(t.TradeID)
	resolved := book.Resolve(outcome, exit, profit)
	if shadow {
		return b.pipeline.OnShadowResolved(resolved, features)
	}
	return b.pipeline.OnResolved(resolved, features, bar.TimestampMs)
}

func (b *Backtest) simulatePayout() float64 {
	p := b.cfg.Backtest.BasePayout
	if b.cfg.Backtest.PayoutJitter {
		p += b.payoutRng.Float64()*0.10 - 0.05
		if p < 0.70 {
			p = 0.70
		}
		if p > 0.95 {
			p = 0.95
		}
	}
	b.lastPayout = p
	return p
}

// settle decides the binary outcome: a CALL wins strictly above entry, a
// PUT strictly below. An at-the-money expiry counts against the position;
// only the live venue refunds ties.
func settle(dir domain.Direction, entry, exit float64) domain.Outcome {
	if (dir == domain.DirectionCall && exit > entry) ||
		(dir == domain.DirectionPut && exit < entry) {
		return domain.OutcomeWin
	}
	return domain.OutcomeLoss
}

// fillPrice applies the slippage offset against the position: entries
// fill worse in the trade direction, exits fill back toward the market.
func fillPrice(price float64, dir domain.Direction, slippagePct float64, entry bool) float64 {
	if slippagePct == 0 {
		return price
	}
	offset := price * slippagePct / 200
	adverse := dir == domain.DirectionCall
	if !entry {
		adverse = !adverse
	}
	if adverse {
		return price + offset
	}
	return price - offset
}

// checkGap validates bar ordering and spacing.
func checkGap(prevMs, curMs, intervalMs int64, maxGap int) error {
	dt := curMs - prevMs
	if dt <= 0 {
		return fmt.Errorf("%w: timestamp %d not after %d", ErrDataGap, curMs, prevMs)
	}
	if maxGap > 0 && dt > intervalMs*int64(maxGap) {
		return fmt.Errorf("%w: %d ms between bars exceeds %d intervals", ErrDataGap, dt, maxGap)
	}
	return nil
}

// timeframeMs parses a timeframe like "30s", "1m", "1h" into
// milliseconds.
func timeframeMs(tf string) (int64, error) {
	d, err := time.ParseDuration(tf)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid timeframe %q", tf)
	}
	return d.Milliseconds(), nil
}
