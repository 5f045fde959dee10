package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap/zapcore"

	"github.com/quantforge/papertrade/internal/config"
	"github.com/quantforge/papertrade/internal/datasource"
	"github.com/quantforge/papertrade/internal/logger"
	"github.com/quantforge/papertrade/internal/simulation"
	"github.com/quantforge/papertrade/internal/store"
	"github.com/quantforge/papertrade/internal/types"
)

// simulateAction runs the live paper-trading loop until interrupted.
func simulateAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return err
	}

	level := zapcore.InfoLevel
	if cmd.Bool("verbose") {
		level = zapcore.DebugLevel
	}

	log, err := logger.NewLoggerWithLevel(level)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer log.Sync()

	apiKey := cmd.String("polygon-api-key")
	if apiKey == "" {
		apiKey = os.Getenv("POLYGON_API_KEY")
	}

	quotes, err := datasource.NewPolygonSource(apiKey)
	if err != nil {
		return err
	}

	hours, err := simulation.NewMarketHours(cmd.String("timezone"))
	if err != nil {
		return err
	}

	engine, err := simulation.NewEngine(cfg, quotes, hours, cmd.Duration("interval"), log)
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

	engine.SetTickCallback(func(snap types.Snapshot) {
		fmt.Printf("%s  total %.2f  cash %.2f  positions %.2f  pnl %+.2f\n",
			snap.Time.Format(time.RFC3339), snap.TotalValue, snap.Cash, snap.PositionsValue, snap.CumulativePnL)
	})

	// Ctrl-C stops the loop at the next tick boundary.
	runCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return engine.Run(runCtx)
}

func main() {
	cmd := &cli.Command{
		Name:  "simulate",
		Usage: "Paper-trade live quotes on a wall-clock ticker",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "config",
				Aliases:  []string{"c"},
				Usage:    "Path to the YAML configuration file",
				Required: true,
			},
			&cli.DurationFlag{
				Name:    "interval",
				Aliases: []string{"i"},
				Usage:   "Quote polling interval",
				Value:   time.Minute,
			},
			&cli.StringFlag{
				Name:  "polygon-api-key",
				Usage: "Polygon API key; falls back to POLYGON_API_KEY",
			},
			&cli.StringFlag{
				Name:  "timezone",
				Usage: "Exchange timezone for market hours",
				Value: "Asia/Shanghai",
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
		Action: simulateAction,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
