package reporting

import (
	"fmt"
	"strings"
	"time"
)

// RenderMarkdown renders the report as a Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString(fmt.Sprintf("# Run Report %s\n\n", r.Run.RunID))
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Mode: %s | Symbol: %s | Timeframe: %s | Seed: %d\n\n",
		r.Run.Mode, r.Run.Symbol, r.Run.Timeframe, r.Run.Seed))
	sb.WriteString(fmt.Sprintf("Config hash: `%s`\n\n", r.Run.ConfigHash))

	// Summary
	m := r.Run.Metrics
	sb.WriteString("## Summary\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Bars | %d |\n", r.Run.BarCount))
	sb.WriteString(fmt.Sprintf("| Trades | %d |\n", m.TotalTrades))
	sb.WriteString(fmt.Sprintf("| Wins / Losses / Ties | %d / %d / %d |\n", m.Wins, m.Losses, m.Ties))
	sb.WriteString(fmt.Sprintf("| Aborted | %d |\n", m.Aborted))
	sb.WriteString(fmt.Sprintf("| Win Rate | %.4f |\n", m.WinRate))
	sb.WriteString(fmt.Sprintf("| Total Profit | %.4f |\n", m.TotalProfit))
	sb.WriteString(fmt.Sprintf("| Total Return | %.4f |\n", m.TotalReturn))
	sb.WriteString(fmt.Sprintf("| Final Equity | %.4f |\n", m.FinalEquity))
	sb.WriteString(fmt.Sprintf("| Expectancy (stake multiples) | %.4f |\n", m.Expectancy))
	sb.WriteString(fmt.Sprintf("| Max Drawdown | %.4f |\n", m.MaxDrawdown))
	sb.WriteString(fmt.Sprintf("| Brier Score | %.4f |\n", m.BrierScore))
	sb.WriteString("\n")

	// Per-strategy breakdown
	sb.WriteString("## Strategy Breakdown\n\n")
	if len(r.PerStrategy) > 0 {
		sb.WriteString("| Strategy | Trades | Wins | Losses | Ties | WinRate | Profit | AvgPWin |\n")
		sb.WriteString("|----------|--------|------|--------|------|---------|--------|--------|\n")
		for _, row := range r.PerStrategy {
			sb.WriteString(fmt.Sprintf("| %s | %d | %d | %d | %d | %.4f | %.4f | %.4f |\n",
				row.StrategyID, row.Trades, row.Wins, row.Losses, row.Ties,
				row.WinRate, row.Profit, row.AvgPWin))
		}
	} else {
		sb.WriteString("No resolved trades.\n")
	}
	sb.WriteString("\n")

	// Rejections
	sb.WriteString("## Rejections\n\n")
	if len(r.Rejections) > 0 {
		sb.WriteString("| Reason | Count |\n")
		sb.WriteString("|--------|-------|\n")
		for _, row := range r.Rejections {
			sb.WriteString(fmt.Sprintf("| %s | %d |\n", row.Reason, row.Count))
		}
	} else {
		sb.WriteString("No rejected opportunities.\n")
	}
	sb.WriteString("\n")

	return sb.String()
}
