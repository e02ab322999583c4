package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"optexec/internal/app"
	"optexec/internal/config"
	"optexec/internal/execution"
	"optexec/internal/exporter"
	"optexec/internal/infrastructure"
	"optexec/internal/report"
)

// defaultPortfolio is DefaultRequest's portfolio in flag form
const defaultPortfolio = "AAPL:500000:0.02,GOOGL:300000:0.025,MSFT:200000:0.018"

// options are the command line settings of one report run
type options struct {
	request report.Request
	formats []string
	outDir  string
}

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		slog.Error("Report failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(args []string, stdout io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	opts, err := parseFlags(args, cfg.Reports)
	if err != nil {
		return err
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return err
	}
	defer infrastructure.CloseLogFile()

	otelCfg := infrastructure.OTelConfigFrom(cfg.Telemetry)
	otelCfg.EnableMetrics = false
	providers, err := infrastructure.InitializeOTel(otelCfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}
	defer providers.Shutdown(context.Background())

	engine, err := app.BuildEngine(cfg, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gen := report.NewGenerator(engine.Orchestrator, engine.Source.Provider, engine.Estimator, logger)
	rep, err := gen.Generate(ctx, opts.request)
	if err != nil {
		return err
	}

	paths, err := rep.Export(ctx, exporter.New(opts.outDir, logger), opts.formats)
	for _, p := range paths {
		logger.Info("Report file written", slog.String("path", p))
	}
	if err != nil {
		return err
	}

	printSummary(stdout, rep)
	return nil
}

// parseFlags reads the report request from args. Output settings default to
// the reports section of the configuration.
func parseFlags(args []string, defaults config.ReportsConfig) (options, error) {
	req := report.DefaultRequest()

	fs := flag.NewFlagSet("execution-report", flag.ContinueOnError)
	fs.Float64Var(&req.OrderSize, "size", req.OrderSize, "primary order size in shares")
	fs.Float64Var(&req.Urgency, "urgency", req.Urgency, "primary order urgency in [0,1]")
	strategy := fs.String("strategy", string(req.Strategy), "primary strategy: adaptive, vwap, twap or implementation_shortfall")
	fs.Float64Var(&req.CompareSize, "compare-size", req.CompareSize, "order size for the strategy comparison")
	fs.Float64Var(&req.CompareUrgency, "compare-urgency", req.CompareUrgency, "urgency for the strategy comparison")
	portfolio := fs.String("portfolio", defaultPortfolio, "portfolio orders as SYMBOL:SIZE:RISK, comma separated")
	method := fs.String("method", string(req.Method), "portfolio allocation: optimizer or proportional")
	formats := fs.String("formats", strings.Join(defaults.Formats, ","), "export formats: csv, xlsx, json")
	outDir := fs.String("out", defaults.OutputDir, "output directory")

	if err := fs.Parse(args); err != nil {
		return options{}, err
	}

	var err error
	if req.Strategy, err = execution.ParseStrategy(*strategy); err != nil {
		return options{}, err
	}
	if req.Method, err = execution.ParseAllocationMethod(*method); err != nil {
		return options{}, err
	}
	if req.Portfolio, err = parsePortfolio(*portfolio); err != nil {
		return options{}, err
	}

	return options{
		request: req,
		formats: splitList(*formats),
		outDir:  *outDir,
	}, nil
}

// parsePortfolio parses "AAPL:500000:0.02,MSFT:200000:0.018"
func parsePortfolio(s string) ([]execution.PortfolioOrder, error) {
	var orders []execution.PortfolioOrder
	for _, item := range splitList(s) {
		parts := strings.Split(item, ":")
		if len(parts) != 3 {
			return nil, fmt.Errorf("portfolio order %q: want SYMBOL:SIZE:RISK", item)
		}
		size, err := strconv.ParseFloat(parts[1], 64)
		if err != nil {
			return nil, fmt.Errorf("portfolio order %q: size: %w", item, err)
		}
		risk, err := strconv.ParseFloat(parts[2], 64)
		if err != nil {
			return nil, fmt.Errorf("portfolio order %q: risk: %w", item, err)
		}
		orders = append(orders, execution.PortfolioOrder{
			Symbol: strings.ToUpper(strings.TrimSpace(parts[0])),
			Size:   size,
			Risk:   risk,
		})
	}
	if len(orders) == 0 {
		return nil, execution.ErrNoOrders
	}
	return orders, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func printSummary(w io.Writer, rep *report.Report) {
	s := rep.Summary
	fmt.Fprintf(w, "Report %s\n", rep.ID)
	fmt.Fprintf(w, "  Primary execution cost:  $%s\n", exporter.FormatMoney(s.PrimaryCost))
	fmt.Fprintf(w, "  Portfolio cost:          $%s\n", exporter.FormatMoney(s.PortfolioCost))
	if s.BestStrategy != "" {
		fmt.Fprintf(w, "  Best strategy:           %s ($%s)\n", s.BestStrategy, exporter.FormatMoney(s.BestStrategyCost))
	}
	fmt.Fprintf(w, "  Savings vs naive:        $%s (%s)\n", exporter.FormatMoney(s.Savings), exporter.FormatPercent(s.SavingsRatio))
	fmt.Fprintf(w, "  Annualized savings:      $%s\n", exporter.FormatMoney(s.AnnualizedSavings))
}
