package report

import (
	"context"
	"fmt"
	"sort"
	"time"

	"optexec/internal/exporter"
)

// historyHeaders are the columns of the run history file
var historyHeaders = []string{
	"generated_at", "report_id", "strategy", "order_size", "primary_cost",
	"naive_estimate", "savings", "savings_pct", "annualized_savings",
	"portfolio_cost", "best_strategy",
}

// BaseName is the file name stem shared by every export of the report
func (r *Report) BaseName() string {
	return "execution_report_" + r.GeneratedAt.Format("20060102_150405")
}

// Tables renders the report as exportable tables
func (r *Report) Tables() []exporter.Table {
	tables := []exporter.Table{r.summaryTable()}
	if r.Primary != nil {
		tables = append(tables, r.executionTable(), r.stressTable())
	}
	return append(tables,
		r.comparisonTable(),
		r.portfolioTable(),
		r.liquidityTable(),
	)
}

func (r *Report) summaryTable() exporter.Table {
	s := r.Summary
	return exporter.Table{
		Name:    "summary",
		Headers: []string{"metric", "value"},
		Rows: [][]string{
			{"primary_cost", exporter.FormatMoney(s.PrimaryCost)},
			{"naive_estimate", exporter.FormatMoney(s.NaiveEstimate)},
			{"savings", exporter.FormatMoney(s.Savings)},
			{"savings_pct", exporter.FormatPercent(s.SavingsRatio)},
			{"annualized_savings", exporter.FormatMoney(s.AnnualizedSavings)},
			{"portfolio_cost", exporter.FormatMoney(s.PortfolioCost)},
			{"best_strategy", s.BestStrategy},
			{"best_strategy_cost", exporter.FormatMoney(s.BestStrategyCost)},
		},
	}
}

func (r *Report) executionTable() exporter.Table {
	p := r.Primary
	m := p.MarketConditions
	return exporter.Table{
		Name:    "execution",
		Headers: []string{"field", "value"},
		Rows: [][]string{
			{"strategy", string(p.Strategy)},
			{"branch", string(p.Branch)},
			{"order_size", exporter.FormatShares(r.Request.OrderSize)},
			{"urgency", exporter.FormatFloat(r.Request.Urgency, 2)},
			{"slices", exporter.FormatInt(len(p.Schedule))},
			{"completion_time", exporter.FormatInt(p.CompletionTime)},
			{"permanent_cost", exporter.FormatMoney(p.Impact.PermanentCost)},
			{"temporary_cost", exporter.FormatMoney(p.Impact.TemporaryCost)},
			{"total_cost", exporter.FormatMoney(p.TotalCost)},
			{"cost_per_share", exporter.FormatFloat(p.CostPerShare, 6)},
			{"value_at_risk", exporter.FormatMoney(p.RiskMetrics.ValueAtRisk)},
			{"liquidity_adjusted_var", exporter.FormatMoney(p.RiskMetrics.LiquidityAdjustedVaR)},
			{"execution_risk", exporter.FormatFloat(p.RiskMetrics.ExecutionRisk, 4)},
			{"volatility", exporter.FormatFloat(m.Volatility, 4)},
			{"average_volume", exporter.FormatShares(m.AverageVolume)},
			{"momentum", exporter.FormatFloat(m.Momentum, 4)},
			{"fallback_used", exporter.FormatBool(p.FallbackUsed)},
			{"fallback_reason", p.FallbackReason},
		},
	}
}

func (r *Report) stressTable() exporter.Table {
	names := make([]string, 0, len(r.Primary.RiskAnalysis))
	for name := range r.Primary.RiskAnalysis {
		names = append(names, name)
	}
	sort.Strings(names)

	rows := make([][]string, 0, len(names))
	for _, name := range names {
		res := r.Primary.RiskAnalysis[name]
		rows = append(rows, []string{
			name,
			exporter.FormatMoney(res.MarketImpactCost),
			exporter.FormatMoney(res.TimingRisk),
			exporter.FormatMoney(res.TotalCost),
			exporter.FormatFloat(res.StressedVolatility, 4),
			exporter.FormatShares(res.StressedVolume),
		})
	}
	return exporter.Table{
		Name:    "stress",
		Headers: []string{"scenario", "market_impact_cost", "timing_risk", "total_cost", "stressed_volatility", "stressed_volume"},
		Rows:    rows,
	}
}

func (r *Report) comparisonTable() exporter.Table {
	rows := make([][]string, 0, len(r.Comparison.Outcomes)+1)
	for _, o := range r.Comparison.Outcomes {
		rows = append(rows, []string{
			string(o.Strategy),
			exporter.FormatMoney(o.TotalCost),
			exporter.FormatFloat(o.CostPerShare, 6),
			exporter.FormatInt(o.CompletionTime),
			exporter.FormatBool(o.FallbackUsed),
			o.Error,
		})
	}
	b := r.Benchmark
	rows = append(rows, []string{
		BenchmarkName,
		exporter.FormatMoney(b.TotalCost),
		exporter.FormatFloat(b.CostPerShare, 6),
		exporter.FormatInt(b.CompletionTime),
		exporter.FormatBool(false),
		b.Error,
	})
	return exporter.Table{
		Name:    "comparison",
		Headers: []string{"strategy", "total_cost", "cost_per_share", "completion_time", "fallback_used", "error"},
		Rows:    rows,
	}
}

func (r *Report) portfolioTable() exporter.Table {
	rows := make([][]string, 0, len(r.Portfolio.Allocations))
	for _, a := range r.Portfolio.Allocations {
		rows = append(rows, []string{
			a.Symbol,
			exporter.FormatPercent(a.Allocation),
			exporter.FormatFloat(a.ExecutionTime, 1),
			exporter.FormatMoney(a.EstimatedCost),
			exporter.FormatFloat(a.RiskContribution, 8),
		})
	}
	return exporter.Table{
		Name:    "portfolio",
		Headers: []string{"symbol", "allocation", "execution_time", "estimated_cost", "risk_contribution"},
		Rows:    rows,
	}
}

func (r *Report) liquidityTable() exporter.Table {
	l := r.Liquidity
	pressure := func(p *float64) string {
		if p == nil {
			return ""
		}
		return exporter.FormatFloat(*p, 4)
	}
	return exporter.Table{
		Name:    "liquidity",
		Headers: []string{"metric", "value"},
		Rows: [][]string{
			{"trade_count", exporter.FormatInt(l.TradeCount)},
			{"bid_volume", exporter.FormatShares(l.Book.BidVolume)},
			{"ask_volume", exporter.FormatShares(l.Book.AskVolume)},
			{"hidden_buy_pressure", pressure(l.HiddenBuyPressure)},
			{"hidden_sell_pressure", pressure(l.HiddenSellPressure)},
			{"iceberg_indication", exporter.FormatPercent(l.IcebergIndication)},
			{"large_trade_cutoff", exporter.FormatShares(l.LargeTradeCutoff)},
		},
	}
}

// HistoryRow is the report's line in the run history file
func (r *Report) HistoryRow() []string {
	s := r.Summary
	strategy := string(r.Request.Strategy)
	if r.Primary != nil {
		strategy = string(r.Primary.Strategy)
	}
	return []string{
		r.GeneratedAt.Format(time.RFC3339),
		r.ID,
		strategy,
		exporter.FormatShares(r.Request.OrderSize),
		exporter.FormatMoney(s.PrimaryCost),
		exporter.FormatMoney(s.NaiveEstimate),
		exporter.FormatMoney(s.Savings),
		exporter.FormatPercent(s.SavingsRatio),
		exporter.FormatMoney(s.AnnualizedSavings),
		exporter.FormatMoney(s.PortfolioCost),
		s.BestStrategy,
	}
}

// Export writes the report in each format and appends it to the run history.
// Files that were written are returned even when some formats fail.
func (r *Report) Export(ctx context.Context, exp *exporter.Exporter, formats []string) ([]string, error) {
	paths, err := exp.Export(ctx, r.BaseName(), formats, r.Tables(), r)
	if err != nil {
		return paths, err
	}
	history, err := exp.AppendHistory(historyHeaders, r.HistoryRow())
	if err != nil {
		return paths, fmt.Errorf("append history: %w", err)
	}
	return append(paths, history), nil
}
