package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"

	"github.com/hetulpatel/sportsarb/internal/arb"
	"github.com/hetulpatel/sportsarb/internal/bookies"
	"github.com/hetulpatel/sportsarb/internal/config"
	"github.com/hetulpatel/sportsarb/internal/drift"
	"github.com/hetulpatel/sportsarb/internal/engine"
	"github.com/hetulpatel/sportsarb/internal/feed/oddsapi"
	"github.com/hetulpatel/sportsarb/internal/logging"
	"github.com/hetulpatel/sportsarb/internal/risk"
)

// scan_once is the on-demand trigger: it runs burst cycles for a short
// window regardless of the peak-hour schedule and prints each summary.
// Alerts are logged, not published; the daemon owns the alert pipeline.
func main() {
	godotenv.Load()
	logging.InitFromEnv()

	configPath := flag.String("config", "config.yaml", "path to the engine config file")
	burst := flag.Duration("burst", 0, "keep scanning for this long (0 = single cycle)")
	interval := flag.Duration("interval", 10*time.Second, "delay between burst cycles")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logging.Fatalf("[scan-once] load config: %v", err)
	}
	sched, err := cfg.Schedule()
	if err != nil {
		logging.Fatalf("[scan-once] schedule config: %v", err)
	}

	apiKey := os.Getenv("ODDS_API_KEY")
	if apiKey == "" {
		logging.Fatalf("[scan-once] ODDS_API_KEY is required")
	}

	classifier := bookies.NewClassifier(cfg.Bookmakers.Sharp, cfg.Bookmakers.Soft)
	eng := engine.New(engine.Config{
		Sports:          cfg.Sports,
		Regions:         cfg.Regions,
		Markets:         cfg.Markets,
		Schedule:        sched,
		PeakInterval:    cfg.Polling.PeakInterval.Std(),
		OffPeakInterval: cfg.Polling.OffPeakInterval.Std(),
		Location:        cfg.Location(),
	},
		oddsapi.NewClient(oddsapi.Config{APIKey: apiKey, StaleAfter: cfg.Polling.StaleAfter.Std()}),
		arb.NewDetector(arb.Config{
			MinROIPercent:   cfg.Arbitrage.MinROIPercent,
			MaxROIPercent:   cfg.Arbitrage.MaxROIPercent,
			TotalInvestment: cfg.Arbitrage.TotalInvestment,
			SmartRounding:   cfg.Arbitrage.SmartRounding,
		}, classifier),
		drift.NewTracker(drift.Config{
			ValueThresholdPercent: cfg.Drift.ValueThresholdPercent,
			DropEpsilon:           cfg.Drift.DropEpsilon,
			HistoryWindow:         cfg.Drift.HistoryWindow,
			EventGrace:            cfg.Drift.EventGrace.Std(),
			FallbackHorizon:       cfg.Drift.FallbackHorizon.Std(),
		}, classifier),
		risk.NewReporter(cfg.SettlementRules, cfg.Bookmakers.HighRisk),
		nil, nil, nil)

	end := time.Now().Add(*burst)
	for {
		summary, err := eng.RunOnDemand(ctx)
		if errors.Is(err, engine.ErrBusy) {
			logging.Errorf("[scan-once] %v", err)
			os.Exit(1)
		}
		if err != nil {
			logging.Fatalf("[scan-once] cycle failed: %v", err)
		}
		printSummary(summary)

		if *burst == 0 || time.Now().After(end) {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(*interval):
		}
	}
}

func printSummary(summary engine.Summary) {
	out, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		logging.Errorf("[scan-once] marshal summary: %v", err)
		return
	}
	fmt.Println(string(out))
}
