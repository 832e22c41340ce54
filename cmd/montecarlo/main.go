// Command montecarlo runs trade Monte Carlo simulations, sweeps and checks from the command line.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"trade-montecarlo-lab/internal/config"
	"trade-montecarlo-lab/internal/domain"
	"trade-montecarlo-lab/internal/logging"
	"trade-montecarlo-lab/internal/orchestrator"
	"trade-montecarlo-lab/internal/pipeline"
	"trade-montecarlo-lab/internal/reporting"
)

// Output formats.
const (
	formatMarkdown = "markdown"
	formatJSON     = "json"
	formatCSV      = "csv"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "montecarlo: %v\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "montecarlo",
		Usage: "Monte Carlo engine for a repeated fixed-edge trading strategy",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "YAML config file", EnvVars: []string{config.EnvConfigPath}},
			&cli.Uint64Flag{Name: "seed", Usage: "random seed, 0 derives one from the clock"},
			&cli.IntFlag{Name: "workers", Usage: "parallel workers, 0 uses every CPU"},
			&cli.StringFlag{Name: "log-level", Usage: "debug, info, warn or error"},
			&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Value: formatMarkdown, Usage: "output format: markdown, json or csv"},
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "write output to file instead of stdout"},
		},
		Commands: []*cli.Command{
			simulateCommand(),
			sweepCommand(),
			breakevenCommand(),
			verifyCommand(),
		},
	}
}

// paramFlags are shared by simulate and verify. Percent flags match how traders quote them.
func paramFlags() []cli.Flag {
	return []cli.Flag{
		&cli.Float64Flag{Name: "balance", Usage: "starting balance"},
		&cli.Float64Flag{Name: "winrate", Usage: "win probability in percent"},
		&cli.Float64Flag{Name: "rr", Usage: "reward/risk ratio"},
		&cli.Float64Flag{Name: "risk", Usage: "risk per trade in percent of the current balance"},
		&cli.IntFlag{Name: "trades", Usage: "trades per path"},
		&cli.IntFlag{Name: "sims", Usage: "number of simulated paths"},
		&cli.Float64Flag{Name: "liquidation", Usage: "liquidation threshold in percent of the starting balance"},
		&cli.Float64Flag{Name: "win-probability", Usage: "win probability as a fraction (exclusive with --winrate)"},
		&cli.Float64Flag{Name: "risk-fraction", Usage: "risk per trade as a fraction (exclusive with --risk)"},
	}
}

// env is the per-invocation state built from config and global flags.
type env struct {
	cfg    config.Config
	logger *zap.Logger
	orch   *orchestrator.Orchestrator
	format string
	output string
}

func setup(c *cli.Context) (*env, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}
	if c.IsSet("seed") {
		cfg.Engine.Seed = c.Uint64("seed")
	}
	if c.IsSet("workers") {
		cfg.Engine.Workers = c.Int("workers")
	}
	if c.IsSet("log-level") {
		cfg.Log.Level = c.String("log-level")
	}

	format := c.String("format")
	switch format {
	case formatMarkdown, formatJSON, formatCSV:
	default:
		return nil, errors.Errorf("unknown format %q (markdown, json, csv)", format)
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		return nil, err
	}

	return &env{
		cfg:    cfg,
		logger: logger,
		orch:   orchestrator.New(orchestrator.Options{Workers: cfg.Engine.Workers, Logger: logger}),
		format: format,
		output: c.String("output"),
	}, nil
}

// applyParamFlags overrides cfg.Simulation with the flags the user set.
func applyParamFlags(c *cli.Context, p *domain.SimulationParameters) error {
	if c.IsSet("winrate") && c.IsSet("win-probability") {
		return errors.New("--winrate and --win-probability are mutually exclusive")
	}
	if c.IsSet("risk") && c.IsSet("risk-fraction") {
		return errors.New("--risk and --risk-fraction are mutually exclusive")
	}
	if c.IsSet("balance") {
		p.StartingBalance = c.Float64("balance")
	}
	if c.IsSet("winrate") {
		p.WinProbability = c.Float64("winrate") / 100
	}
	if c.IsSet("rr") {
		p.RewardRiskRatio = c.Float64("rr")
	}
	if c.IsSet("risk") {
		p.RiskFraction = c.Float64("risk") / 100
	}
	if c.IsSet("trades") {
		p.TradeCount = c.Int("trades")
	}
	if c.IsSet("sims") {
		p.SimulationCount = c.Int("sims")
	}
	if c.IsSet("liquidation") {
		p.LiquidationPct = c.Float64("liquidation")
	}
	if c.IsSet("win-probability") {
		p.WinProbability = c.Float64("win-probability")
	}
	if c.IsSet("risk-fraction") {
		p.RiskFraction = c.Float64("risk-fraction")
	}
	return nil
}

func (e *env) write(s string) error {
	if e.output == "" {
		_, err := fmt.Fprint(os.Stdout, s)
		return err
	}
	if err := os.WriteFile(e.output, []byte(s), 0o644); err != nil {
		return errors.Wrapf(err, "write %s", e.output)
	}
	e.logger.Info("output written", zap.String("path", e.output))
	return nil
}

func (e *env) render(markdown func() string, csv func() string, v interface{}) error {
	switch e.format {
	case formatJSON:
		out, err := reporting.RenderJSON(v)
		if err != nil {
			return err
		}
		return e.write(out)
	case formatCSV:
		return e.write(csv())
	default:
		return e.write(markdown())
	}
}

func simulateCommand() *cli.Command {
	return &cli.Command{
		Name:  "simulate",
		Usage: "simulate a batch of equity paths and summarize it",
		Flags: append(paramFlags(),
			&cli.StringFlag{Name: "paths-csv", Usage: fmt.Sprintf("also write up to %d paths to this CSV file", reporting.MaxPathsCSV)},
			&cli.StringFlag{Name: "out-dir", Usage: "also write a report bundle with manifest to this directory"},
		),
		Action: func(c *cli.Context) error {
			e, err := setup(c)
			if err != nil {
				return err
			}
			defer e.logger.Sync()

			params := e.cfg.Simulation
			if err := applyParamFlags(c, &params); err != nil {
				return err
			}

			result, err := e.orch.Run(c.Context, params, e.cfg.Engine.Seed)
			if err != nil {
				return err
			}
			report := reporting.NewGenerator().Simulation(result)

			if path := c.String("paths-csv"); path != "" {
				if err := os.WriteFile(path, []byte(reporting.RenderPathsCSV(report)), 0o644); err != nil {
					return errors.Wrapf(err, "write %s", path)
				}
			}
			if dir := c.String("out-dir"); dir != "" {
				m, err := pipeline.NewWriter(dir).WriteSimulation(report)
				if err != nil {
					return err
				}
				e.logger.Info("bundle written", zap.String("dir", dir), zap.Int("files", len(m.Files)))
			}

			return e.render(
				func() string { return reporting.RenderMarkdown(report) },
				func() string { return reporting.RenderSummaryCSV(report) },
				report,
			)
		},
	}
}

func sweepCommand() *cli.Command {
	return &cli.Command{
		Name:  "sweep",
		Usage: "compute median final balance over a risk × winrate grid",
		Flags: []cli.Flag{
			&cli.Float64Flag{Name: "balance", Usage: "starting balance"},
			&cli.Float64Flag{Name: "rr", Usage: "reward/risk ratio"},
			&cli.Float64SliceFlag{Name: "risks", Usage: "risk levels in percent"},
			&cli.Float64SliceFlag{Name: "winrates", Usage: "winrates in percent"},
			&cli.IntFlag{Name: "trials", Usage: "paths per cell"},
			&cli.IntFlag{Name: "trades", Usage: "trades per path"},
			&cli.StringFlag{Name: "out-dir", Usage: "also write a report bundle with manifest to this directory"},
		},
		Action: func(c *cli.Context) error {
			e, err := setup(c)
			if err != nil {
				return err
			}
			defer e.logger.Sync()

			base := e.cfg.Simulation
			if c.IsSet("balance") {
				base.StartingBalance = c.Float64("balance")
			}
			if c.IsSet("rr") {
				base.RewardRiskRatio = c.Float64("rr")
			}

			grid := e.cfg.Sweep
			if c.IsSet("risks") {
				grid.RiskPcts = c.Float64Slice("risks")
			}
			if c.IsSet("winrates") {
				grid.WinratePcts = c.Float64Slice("winrates")
			}
			if c.IsSet("trials") {
				grid.TrialsPerCell = c.Int("trials")
			}
			if c.IsSet("trades") {
				grid.TradesPerCell = c.Int("trades")
			}

			result, err := e.orch.Sweep(c.Context, base, grid, e.cfg.Engine.Seed)
			if err != nil {
				return err
			}
			report := reporting.NewGenerator().Sweep(result)
			if dir := c.String("out-dir"); dir != "" {
				m, err := pipeline.NewWriter(dir).WriteSweep(report)
				if err != nil {
					return err
				}
				e.logger.Info("bundle written", zap.String("dir", dir), zap.Int("files", len(m.Files)))
			}

			return e.render(
				func() string { return reporting.RenderSweepMarkdown(report) },
				func() string { return reporting.RenderSweepCSV(report) },
				report,
			)
		},
	}
}

func breakevenCommand() *cli.Command {
	return &cli.Command{
		Name:  "breakeven",
		Usage: "print the breakeven winrate for reward/risk ratios",
		Flags: []cli.Flag{
			&cli.Float64SliceFlag{Name: "rr", Value: cli.NewFloat64Slice(1, 1.5, 2, 2.5, 3, 4, 5), Usage: "reward/risk ratios"},
		},
		Action: func(c *cli.Context) error {
			e, err := setup(c)
			if err != nil {
				return err
			}
			defer e.logger.Sync()

			ratios := c.Float64Slice("rr")
			for _, rr := range ratios {
				if rr < 0 {
					return domain.NewInvalidParameter(fmt.Sprintf("rr must be >= 0, got %v", rr))
				}
			}
			report := reporting.Breakeven(ratios)

			return e.render(
				func() string { return reporting.RenderBreakevenMarkdown(report) },
				func() string { return breakevenCSV(report) },
				report,
			)
		},
	}
}

func breakevenCSV(r *reporting.BreakevenReport) string {
	var sb strings.Builder
	sb.WriteString("reward_risk_ratio,breakeven_winrate_pct\n")
	for _, row := range r.Rows {
		sb.WriteString(fmt.Sprintf("%g,%.6f\n", row.RewardRiskRatio, row.BreakevenWinratePct))
	}
	return sb.String()
}

func verifyCommand() *cli.Command {
	return &cli.Command{
		Name:  "verify",
		Usage: "check that a batch is reproducible from its seed",
		Flags: paramFlags(),
		Action: func(c *cli.Context) error {
			e, err := setup(c)
			if err != nil {
				return err
			}
			defer e.logger.Sync()

			params := e.cfg.Simulation
			if err := applyParamFlags(c, &params); err != nil {
				return err
			}

			report, err := e.orch.Verify(c.Context, params, e.cfg.Engine.Seed)
			if err != nil {
				return err
			}

			out, err := reporting.RenderJSON(report)
			if err != nil {
				return err
			}
			if err := e.write(out); err != nil {
				return err
			}
			if !report.Passed {
				return cli.Exit(fmt.Sprintf("reproducibility check failed: %d divergences", len(report.Divergences)), 2)
			}
			return nil
		},
	}
}
