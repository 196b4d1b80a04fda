package domain

// RiskState is the process-scoped daily risk ledger. Mutated only by the
// risk manager, reset at day boundaries. DailyPnL always equals the signed
// sum of resolved trade profits since the last reset.
type RiskState struct {
	Equity           float64
	StartOfDayEquity float64
	HighWaterMark    float64
	DailyPnL         float64
	TradesToday      int
	Day              string // calendar date key in the configured location, YYYY-MM-DD
	LimitBreached    bool
	BreachedBy       RejectReason // DAILY_LOSS_LIMIT or DAILY_PROFIT_TARGET when breached
}
