package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"quantbot/internal/domain"
	"quantbot/internal/store"
)

var (
	titleStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Background(lipgloss.Color("4"))
	colHeaderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	symbolStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	gainStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	lossStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	priceStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("15"))
)

const symbolWidth = 12

// signStyle picks the gain or loss colour for v.
func signStyle(v float64) lipgloss.Style {
	switch {
	case v > 0:
		return gainStyle
	case v < 0:
		return lossStyle
	default:
		return dimStyle
	}
}

// RenderRanking writes the ranked symbols, best first.
func RenderRanking(w io.Writer, scores []domain.SymbolScore) {
	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf(" Top %d ", len(scores))))
	b.WriteString("\n")
	b.WriteString(colHeaderStyle.Render(fmt.Sprintf("%4s  %s %12s", "#", padOrTrunc("SYMBOL", symbolWidth), "SCORE")))
	b.WriteString("\n")
	if len(scores) == 0 {
		b.WriteString(dimStyle.Render("  no symbols scored"))
		b.WriteString("\n")
	}
	for i, s := range scores {
		fmt.Fprintf(&b, "%4d  %s %s\n", i+1,
			symbolStyle.Render(padOrTrunc(s.Symbol, symbolWidth)),
			signStyle(s.Score).Render(padLeft(FormatScore(s.Score), 12)))
	}
	io.WriteString(w, b.String())
}

// RenderBacktest writes backtest results in the order given.
func RenderBacktest(w io.Writer, results []domain.BacktestResult) {
	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf(" Backtest: %d symbols ", len(results))))
	b.WriteString("\n")
	b.WriteString(colHeaderStyle.Render(fmt.Sprintf("%4s  %s %10s %10s %6s %6s",
		"#", padOrTrunc("SYMBOL", symbolWidth), "RETURN", "MAX DD", "LONG", "BARS")))
	b.WriteString("\n")
	if len(results) == 0 {
		b.WriteString(dimStyle.Render("  no results"))
		b.WriteString("\n")
	}
	for i, r := range results {
		fmt.Fprintf(&b, "%4d  %s %s %s %s %s\n", i+1,
			symbolStyle.Render(padOrTrunc(r.Symbol, symbolWidth)),
			signStyle(r.TotalReturn).Render(padLeft(FormatPct(r.TotalReturn), 10)),
			lossStyle.Render(padLeft(FormatPct(-r.MaxDrawdown), 10)),
			dimStyle.Render(fmt.Sprintf("%6d", r.Exposures)),
			dimStyle.Render(fmt.Sprintf("%6d", r.Bars)))
	}
	io.WriteString(w, b.String())
}

// RenderPositions writes open positions with their exit levels.
func RenderPositions(w io.Writer, positions []domain.Position) {
	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf(" Open positions: %d ", len(positions))))
	b.WriteString("\n")
	b.WriteString(colHeaderStyle.Render(fmt.Sprintf("%s %16s %16s %16s %16s  %s",
		padOrTrunc("SYMBOL", symbolWidth), "ENTRY", "QTY", "TARGET", "STOP", "OPENED")))
	b.WriteString("\n")
	for _, p := range positions {
		fmt.Fprintf(&b, "%s %s %16.8f %s %s  %s\n",
			symbolStyle.Render(padOrTrunc(p.Symbol, symbolWidth)),
			priceStyle.Render(padLeft(FormatPrice(p.EntryPrice), 16)),
			p.Qty,
			gainStyle.Render(padLeft(FormatPrice(p.TargetPrice), 16)),
			lossStyle.Render(padLeft(FormatPrice(p.StopPrice), 16)),
			dimStyle.Render(p.EntryTime.UTC().Format("2006-01-02 15:04")))
	}
	io.WriteString(w, b.String())
}

// RenderRuns writes a summary line per stored backtest run.
func RenderRuns(w io.Writer, runs []store.BacktestRun) {
	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf(" Backtest runs: %d ", len(runs))))
	b.WriteString("\n")
	b.WriteString(colHeaderStyle.Render(fmt.Sprintf("%6s  %-16s  %-8s %9s  %-4s %7s",
		"ID", "STARTED", "SCREEN", "THRESHOLD", "TF", "WINDOWS")))
	b.WriteString("\n")
	for _, r := range runs {
		fmt.Fprintf(&b, "%6d  %s  %-8s %9s  %-4s %7s\n",
			r.ID,
			dimStyle.Render(r.StartedAt.UTC().Format("2006-01-02 15:04")),
			r.Screen,
			FormatPct(r.Threshold/100),
			r.Timeframe,
			fmt.Sprintf("%d/%d", r.ShortWindow, r.LongWindow))
	}
	io.WriteString(w, b.String())
}
