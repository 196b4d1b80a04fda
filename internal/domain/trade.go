package domain

// TradeState is the lifecycle state of a trade.
// Transitions: OPEN -> PENDING -> RESOLVED, or PENDING -> ABORTED on live
// shutdown / exhausted broker retries. A trade is terminal and immutable
// once RESOLVED or ABORTED.
type TradeState string

// Trade state constants.
const (
	TradeStateOpen     TradeState = "OPEN"
	TradeStatePending  TradeState = "PENDING"
	TradeStateResolved TradeState = "RESOLVED"
	TradeStateAborted  TradeState = "ABORTED"
)

// Outcome is the terminal result of a binary-option trade.
type Outcome string

// Outcome constants. OutcomeTie occurs when the expiry price equals the
// entry price; the paper broker refunds the stake in that case.
const (
	OutcomePending Outcome = "PENDING"
	OutcomeWin     Outcome = "WIN"
	OutcomeLoss    Outcome = "LOSS"
	OutcomeTie     Outcome = "TIE"
)

// Trade represents one binary-option position. Created when the gate
// accepts a signal; its outcome is set exactly once at expiry resolution.
// Owned exclusively by the execution loop.
type Trade struct {
	TradeID    string
	RunID      string
	Symbol     string
	StrategyID string
	Direction  Direction

	// OrderID is the venue's identifier in live mode, empty in backtests.
	OrderID string

	OpenTimeMs   int64
	ExpiryTimeMs int64
	EntryPrice   float64
	ExitPrice    float64 // 0 until resolved

	Stake  float64
	Payout float64
	PWin   float64 // modeled probability at open, kept for audit/calibration

	State   TradeState
	Outcome Outcome
	Profit  float64 // signed, stake-denominated currency amount
}

// Resolved reports whether the trade has reached a terminal state.
func (t *Trade) Resolved() bool {
	return t.State == TradeStateResolved || t.State == TradeStateAborted
}
