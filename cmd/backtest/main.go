package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap/zapcore"

	"github.com/quantforge/papertrade/internal/analytics"
	"github.com/quantforge/papertrade/internal/backtest"
	"github.com/quantforge/papertrade/internal/config"
	"github.com/quantforge/papertrade/internal/datasource"
	"github.com/quantforge/papertrade/internal/logger"
	"github.com/quantforge/papertrade/internal/store"
)

// backtestAction loads the configuration and data file, replays the
// window and writes the results.
func backtestAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return err
	}

	level := zapcore.WarnLevel
	if cmd.Bool("verbose") {
		level = zapcore.DebugLevel
	}

	log, err := logger.NewLoggerWithLevel(level)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer log.Sync()

	source, err := datasource.NewDuckDBSource(cmd.String("data"), log)
	if err != nil {
		return err
	}
	defer source.Close()

	engine, err := backtest.NewEngine(cfg, log)
	if err != nil {
		return err
	}

	if dbPath := cmd.String("db"); dbPath != "" {
		st, err := store.NewStore(dbPath, log)
		if err != nil {
			return err
		}
		defer st.Close()

		engine.SetRecorder(st)
	}

	bar := progressbar.Default(-1, "backtesting")
	engine.SetProgressCallback(func(current, total int) {
		bar.ChangeMax(total)
		_ = bar.Set(current)
	})

	result, err := engine.Run(ctx, source, backtest.RunParams{
		Start:     cmd.Timestamp("start"),
		End:       cmd.Timestamp("end"),
		Benchmark: cmd.String("benchmark"),
	})
	if err != nil {
		return err
	}

	_ = bar.Finish()

	printSummary(result)

	if out := cmd.String("output"); out != "" {
		if err := analytics.WriteMetrics(out, result.Metrics); err != nil {
			return err
		}

		fmt.Printf("metrics written to %s\n", out)
	}

	return nil
}

func printSummary(result backtest.Result) {
	m := result.Metrics

	fmt.Println()
	fmt.Printf("total return:      %8.2f%%\n", m.TotalReturn*100)
	fmt.Printf("annualized return: %8.2f%%\n", m.AnnualizedReturn*100)
	fmt.Printf("max drawdown:      %8.2f%%\n", m.MaxDrawdown*100)
	fmt.Printf("volatility:        %8.2f%%\n", m.Volatility*100)
	fmt.Printf("sharpe ratio:      %8.2f\n", m.SharpeRatio)
	fmt.Printf("win rate:          %8.2f%%\n", m.WinRate*100)
	fmt.Printf("profit factor:     %8.2f\n", m.ProfitFactor)
	fmt.Printf("trades:            %8d\n", m.TradeCount)

	if result.Metrics.BenchmarkReturn != 0 {
		fmt.Printf("benchmark return:  %8.2f%%\n", m.BenchmarkReturn*100)
		fmt.Printf("alpha:             %8.2f%%\n", m.Alpha*100)
	}
}

func main() {
	cmd := &cli.Command{
		Name:  "backtest",
		Usage: "Replay historical bars through the trading pipeline",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "config",
				Aliases:  []string{"c"},
				Usage:    "Path to the YAML configuration file",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "data",
				Aliases:  []string{"d"},
				Usage:    "Path to the bars file (CSV or Parquet)",
				Required: true,
			},
			&cli.TimestampFlag{
				Name:     "start",
				Aliases:  []string{"s"},
				Usage:    "Start date in `YYYY-MM-DD` format",
				Required: true,
				Config: cli.TimestampConfig{
					Layouts: []string{"2006-01-02"},
				},
			},
			&cli.TimestampFlag{
				Name:    "end",
				Aliases: []string{"e"},
				Usage:   "End date in `YYYY-MM-DD` format. Defaults to today.",
				Value:   time.Now(),
				Config: cli.TimestampConfig{
					Layouts: []string{"2006-01-02"},
				},
			},
			&cli.StringFlag{
				Name:  "benchmark",
				Usage: "Benchmark symbol for buy-and-hold comparison",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Write the metrics to this YAML file",
			},
			&cli.StringFlag{
				Name:  "db",
				Usage: "Archive trades, snapshots and signals to this DuckDB file",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Enable debug logging",
			},
		},
		Action: backtestAction,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
