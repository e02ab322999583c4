// Package report builds the offline execution report.
//
// A report runs one primary execution, a four-strategy comparison with an
// Almgren-Chriss benchmark row, a portfolio allocation and a hidden-liquidity
// scan. The independent pieces run concurrently; the result carries a business
// summary comparing the primary cost with a naive 2% impact estimate.
//
// Reports are rendered to tables and written by the exporter package:
//
//	gen := report.NewGenerator(orch, provider, estimator, logger)
//	rep, err := gen.Generate(ctx, report.DefaultRequest())
//	paths, err := rep.Export(ctx, exporter.New(dir, logger), []string{"csv", "xlsx"})
package report
