package reporting

import (
	"fmt"
	"strings"

	"binary-options-lab/internal/domain"
)

// RenderTradesCSV renders the trade record as a CSV string.
func RenderTradesCSV(trades []*domain.Trade) string {
	var sb strings.Builder

	// Header
	sb.WriteString("trade_id,run_id,symbol,strategy_id,direction,open_time_ms,expiry_time_ms,")
	sb.WriteString("entry_price,exit_price,stake,payout,p_win,state,outcome,profit\n")

	// Rows
	for _, t := range trades {
		sb.WriteString(fmt.Sprintf("%s,%s,%s,%s,%s,%d,%d,%.6f,%.6f,%.6f,%.6f,%.6f,%s,%s,%.6f\n",
			t.TradeID,
			t.RunID,
			t.Symbol,
			t.StrategyID,
			string(t.Direction),
			t.OpenTimeMs,
			t.ExpiryTimeMs,
			t.EntryPrice,
			t.ExitPrice,
			t.Stake,
			t.Payout,
			t.PWin,
			string(t.State),
			string(t.Outcome),
			t.Profit,
		))
	}

	return sb.String()
}
