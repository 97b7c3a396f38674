package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/hetulpatel/sportsarb/internal/alerts"
	"github.com/hetulpatel/sportsarb/internal/arb"
	"github.com/hetulpatel/sportsarb/internal/bookies"
	"github.com/hetulpatel/sportsarb/internal/cache"
	"github.com/hetulpatel/sportsarb/internal/config"
	"github.com/hetulpatel/sportsarb/internal/drift"
	"github.com/hetulpatel/sportsarb/internal/engine"
	"github.com/hetulpatel/sportsarb/internal/feed/oddsapi"
	"github.com/hetulpatel/sportsarb/internal/kafka"
	"github.com/hetulpatel/sportsarb/internal/logging"
	"github.com/hetulpatel/sportsarb/internal/risk"
	"github.com/hetulpatel/sportsarb/internal/schedule"
	sqlstore "github.com/hetulpatel/sportsarb/internal/storage/sqlite"
)

func main() {
	godotenv.Load()
	logging.InitFromEnv()

	configPath := flag.String("config", "config.yaml", "path to the engine config file")
	dryRun := flag.Bool("dry-run", false, "log alerts without publishing them")
	duration := flag.Int("duration", 0, "run for this many minutes then exit (0 = forever)")
	sportFilter := flag.String("sport", "", "restrict scanning to one configured sport key")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logging.Fatalf("[monitor] load config: %v", err)
	}
	if *sportFilter != "" {
		cfg.Sports = filterSports(cfg.Sports, *sportFilter)
		if len(cfg.Sports) == 0 {
			logging.Fatalf("[monitor] sport %q is not configured", *sportFilter)
		}
	}
	sched, err := cfg.Schedule()
	if err != nil {
		logging.Fatalf("[monitor] schedule config: %v", err)
	}

	apiKey := os.Getenv("ODDS_API_KEY")
	if apiKey == "" {
		logging.Fatalf("[monitor] ODDS_API_KEY is required")
	}

	provider := oddsapi.NewClient(oddsapi.Config{
		APIKey:     apiKey,
		MaxMonthly: envInt("ODDS_API_MAX_MONTHLY", 500),
		StaleAfter: cfg.Polling.StaleAfter.Std(),
	})
	classifier := bookies.NewClassifier(cfg.Bookmakers.Sharp, cfg.Bookmakers.Soft)
	detector := arb.NewDetector(arb.Config{
		MinROIPercent:   cfg.Arbitrage.MinROIPercent,
		MaxROIPercent:   cfg.Arbitrage.MaxROIPercent,
		TotalInvestment: cfg.Arbitrage.TotalInvestment,
		SmartRounding:   cfg.Arbitrage.SmartRounding,
	}, classifier)
	tracker := drift.NewTracker(drift.Config{
		ValueThresholdPercent: cfg.Drift.ValueThresholdPercent,
		DropEpsilon:           cfg.Drift.DropEpsilon,
		HistoryWindow:         cfg.Drift.HistoryWindow,
		EventGrace:            cfg.Drift.EventGrace.Std(),
		FallbackHorizon:       cfg.Drift.FallbackHorizon.Std(),
	}, classifier)
	reporter := risk.NewReporter(cfg.SettlementRules, cfg.Bookmakers.HighRisk)

	var store engine.Store
	if sqliteStore, err := sqlstore.Open(os.Getenv("SQLITE_PATH")); err != nil {
		logging.Errorf("[monitor] sqlite unavailable, continuing without audit trail: %v", err)
	} else {
		defer sqliteStore.Close()
		if err := sqliteStore.CreateTables(ctx); err != nil {
			logging.Fatalf("[monitor] create sqlite tables: %v", err)
		}
		store = sqliteStore
	}

	var cooldown cache.AlertCache
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		cooldown, err = cache.NewRedisAlertCache(addr, os.Getenv("REDIS_PASSWORD"),
			envInt("REDIS_DB", 0), cfg.Alerts.Cooldown.Std(), "alert_sent")
		if err != nil {
			logging.Fatalf("[monitor] redis alert cache: %v", err)
		}
		defer cooldown.Close()
	} else {
		logging.Warnf("[monitor] REDIS_ADDR not set, duplicate alerts are not suppressed across cycles")
	}

	var sink alerts.Sink
	if *dryRun {
		logging.Infof("[monitor] dry run: alerts are logged only")
	} else {
		sink = buildSink(ctx)
	}

	eng := engine.New(engine.Config{
		Sports:          cfg.Sports,
		Regions:         cfg.Regions,
		Markets:         cfg.Markets,
		Schedule:        sched,
		PeakInterval:    cfg.Polling.PeakInterval.Std(),
		OffPeakInterval: cfg.Polling.OffPeakInterval.Std(),
		Location:        cfg.Location(),
	}, provider, detector, tracker, reporter, sink, store, cooldown)

	logging.Infof("[monitor] scanning %v every %s (peak) / %s (off-peak), tz=%s",
		cfg.Sports, cfg.Polling.PeakInterval.Std(), cfg.Polling.OffPeakInterval.Std(), cfg.Timezone)
	logPeakWindows(cfg.Sports, sched, cfg.Location())

	deadline := time.Time{}
	if *duration > 0 {
		deadline = time.Now().Add(time.Duration(*duration) * time.Minute)
	}
	runLoop(ctx, eng, deadline)
	logging.Infof("[monitor] shutdown complete")
}

// runLoop runs cycles sequentially, sleeping the scheduler's interval
// between them. Cycles never overlap: the next one starts only after the
// previous returned.
func runLoop(ctx context.Context, eng *engine.Engine, deadline time.Time) {
	for {
		if !deadline.IsZero() && time.Now().After(deadline) {
			logging.Infof("[monitor] timed run complete")
			return
		}

		summary, err := eng.RunCycle(ctx)
		if err != nil {
			logging.Errorf("[monitor] cycle error: %v", err)
		} else {
			logging.Infof("[monitor] cycle done: %d snapshots (%d dropped), %d opportunities, %d signals",
				summary.SnapshotsProcessed, summary.SnapshotsDropped,
				summary.OpportunitiesFound, summary.SignalsFound)
		}

		interval := eng.PollInterval(time.Now())
		logging.Debugf("[monitor] sleeping %s", interval)
		select {
		case <-ctx.Done():
			return
		case <-time.After(interval):
		}
	}
}

// buildSink wires the Kafka topics and the optional Discord webhook.
func buildSink(ctx context.Context) alerts.Sink {
	var sinks alerts.Fanout

	brokers := kafka.Brokers()
	oppTopic := kafka.TopicFromEnv("OPPORTUNITY_KAFKA_TOPIC", kafka.DefaultOpportunityTopic)
	sigTopic := kafka.TopicFromEnv("VALUE_SIGNAL_KAFKA_TOPIC", kafka.DefaultValueSignalTopic)

	waitCtx, cancel := context.WithTimeout(ctx, 45*time.Second)
	err := kafka.WaitForBroker(waitCtx, brokers)
	cancel()
	if err != nil {
		logging.Errorf("[monitor] kafka unavailable, alerts go to the webhook/log only: %v", err)
	} else {
		for _, topic := range []string{oppTopic, sigTopic} {
			ensureCtx, cancelEnsure := context.WithTimeout(ctx, 30*time.Second)
			if err := kafka.EnsureTopic(ensureCtx, brokers, topic); err != nil {
				logging.Errorf("[monitor] ensure topic %s warning: %v", topic, err)
			}
			cancelEnsure()
		}
		sinks = append(sinks, alerts.NewKafkaSink(
			kafka.NewWriter(brokers, oppTopic),
			kafka.NewWriter(brokers, sigTopic),
		))
	}

	if webhook := os.Getenv("DISCORD_WEBHOOK_URL"); webhook != "" {
		sinks = append(sinks, alerts.NewDiscordSink(webhook, 10*time.Second))
	}

	if len(sinks) == 0 {
		return nil
	}
	return sinks
}

// logPeakWindows reports where each sport stands in its weekly schedule.
func logPeakWindows(sports []string, sched schedule.Schedule, loc *time.Location) {
	now := time.Now().In(loc)
	for _, sport := range sports {
		windows := sched[sport]
		switch {
		case len(windows) == 0:
			logging.Infof("[monitor] %s: no peak schedule, always polled at peak cadence", sport)
		case schedule.InPeak(now, windows):
			logging.Infof("[monitor] %s: currently in a peak window", sport)
		default:
			if next, ok := schedule.NextWindow(now, windows); ok {
				logging.Infof("[monitor] %s: next peak window opens %s", sport, next.Format("Mon 15:04 MST"))
			}
		}
	}
}

func filterSports(sports []string, filter string) []string {
	out := make([]string, 0, 1)
	for _, s := range sports {
		if s == filter {
			out = append(out, s)
		}
	}
	return out
}

func envInt(key string, def int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return def
}
