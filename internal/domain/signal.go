package domain

// Direction is the side of a binary-option position.
type Direction string

// Direction constants.
const (
	DirectionCall Direction = "CALL"
	DirectionPut  Direction = "PUT"
)

// Strategy identifier constants.
const (
	StrategyTrend    = "trend"
	StrategyMeanRev  = "meanrev"
	StrategyBreakout = "breakout"
)

// Signal is a directional call emitted by one strategy for one bar.
// A nil *Signal means the strategy abstained. Signals are immutable.
type Signal struct {
	StrategyID  string
	Direction   Direction
	TimestampMs int64
}

// RejectReason classifies why the gate declined to open a trade.
// The classification is part of the audit surface, not just a boolean.
type RejectReason string

// Reject reason constants.
const (
	RejectNone              RejectReason = ""
	RejectNoSignal          RejectReason = "NO_SIGNAL"
	RejectColdStart         RejectReason = "COLD_START"
	RejectPayoutTooLow      RejectReason = "PAYOUT_TOO_LOW"
	RejectBelowThreshold    RejectReason = "BELOW_THRESHOLD"
	RejectDailyLossLimit    RejectReason = "DAILY_LOSS_LIMIT"
	RejectDailyProfitTarget RejectReason = "DAILY_PROFIT_TARGET"
	RejectTradeCap          RejectReason = "TRADE_CAP"
	RejectPositionOpen      RejectReason = "POSITION_OPEN"
)

// Opportunity is the audit record of one evaluated candidate signal,
// whether it was accepted or rejected.
type Opportunity struct {
	TimestampMs int64
	StrategyID  string
	Direction   Direction
	PWin        float64
	Payout      float64
	Accepted    bool
	Reason      RejectReason
	Equity      float64
}
