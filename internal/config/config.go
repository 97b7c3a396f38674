package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hetulpatel/sportsarb/internal/bookies"
	"github.com/hetulpatel/sportsarb/internal/schedule"
)

// Duration wraps time.Duration so YAML values can be written as "30s",
// "30m", "2h".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config is the engine's full configuration surface. Deployment secrets
// (API key, broker addresses) come from the environment instead.
type Config struct {
	Timezone string   `yaml:"timezone"`
	Sports   []string `yaml:"sports"`
	Regions  []string `yaml:"regions"`
	Markets  []string `yaml:"markets"`

	Polling         PollingConfig              `yaml:"polling"`
	Arbitrage       ArbitrageConfig            `yaml:"arbitrage"`
	Drift           DriftConfig                `yaml:"drift"`
	Bookmakers      BookmakerConfig            `yaml:"bookmakers"`
	SettlementRules map[string]map[string]string `yaml:"settlement_rules"`
	PeakHours       map[string][]WindowConfig  `yaml:"peak_hours"`
	Alerts          AlertConfig                `yaml:"alerts"`
}

type PollingConfig struct {
	PeakInterval    Duration `yaml:"peak_interval"`
	OffPeakInterval Duration `yaml:"off_peak_interval"`
	StaleAfter      Duration `yaml:"stale_after"`
}

type ArbitrageConfig struct {
	MinROIPercent   float64 `yaml:"min_roi_percent"`
	MaxROIPercent   float64 `yaml:"max_roi_percent"`
	TotalInvestment float64 `yaml:"total_investment"`
	SmartRounding   bool    `yaml:"smart_rounding"`
}

type DriftConfig struct {
	ValueThresholdPercent float64  `yaml:"value_threshold_percent"`
	DropEpsilon           float64  `yaml:"drop_epsilon"`
	HistoryWindow         int      `yaml:"history_window"`
	EventGrace            Duration `yaml:"event_grace"`
	FallbackHorizon       Duration `yaml:"fallback_horizon"`
}

type BookmakerConfig struct {
	Sharp    []string `yaml:"sharp"`
	Soft     []string `yaml:"soft"`
	HighRisk []string `yaml:"high_risk"`
}

type WindowConfig struct {
	Days      []string `yaml:"days"`
	StartHour int      `yaml:"start_hour"`
	EndHour   int      `yaml:"end_hour"`
}

type AlertConfig struct {
	Cooldown Duration `yaml:"cooldown"`
}

// Load reads, parses, defaults and validates the YAML config file.
// Configuration errors are fatal to the caller by contract: the engine
// never starts on a contradictory config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Timezone == "" {
		c.Timezone = "UTC"
	}
	if len(c.Regions) == 0 {
		c.Regions = []string{"eu", "us"}
	}
	if len(c.Markets) == 0 {
		c.Markets = []string{"h2h"}
	}
	if c.Polling.PeakInterval == 0 {
		c.Polling.PeakInterval = Duration(60 * time.Second)
	}
	if c.Polling.OffPeakInterval == 0 {
		c.Polling.OffPeakInterval = Duration(30 * time.Minute)
	}
	if c.Polling.StaleAfter == 0 {
		c.Polling.StaleAfter = Duration(5 * time.Minute)
	}
	if c.Arbitrage.MinROIPercent == 0 {
		c.Arbitrage.MinROIPercent = 1.5
	}
	if c.Arbitrage.MaxROIPercent == 0 {
		c.Arbitrage.MaxROIPercent = 15.0
	}
	if c.Arbitrage.TotalInvestment == 0 {
		c.Arbitrage.TotalInvestment = 1000
	}
	if c.Drift.ValueThresholdPercent == 0 {
		c.Drift.ValueThresholdPercent = 5.0
	}
	if c.Alerts.Cooldown == 0 {
		c.Alerts.Cooldown = Duration(10 * time.Minute)
	}
}

// Validate rejects missing or contradictory settings.
func (c *Config) Validate() error {
	if len(c.Sports) == 0 {
		return fmt.Errorf("config: at least one sport is required")
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("config: invalid timezone %q: %w", c.Timezone, err)
	}
	if c.Arbitrage.MinROIPercent >= c.Arbitrage.MaxROIPercent {
		return fmt.Errorf("config: min_roi_percent %.2f must be below max_roi_percent %.2f",
			c.Arbitrage.MinROIPercent, c.Arbitrage.MaxROIPercent)
	}
	if c.Arbitrage.TotalInvestment <= 0 {
		return fmt.Errorf("config: total_investment must be positive")
	}
	sharp := make(map[string]struct{}, len(c.Bookmakers.Sharp))
	for _, b := range c.Bookmakers.Sharp {
		sharp[bookies.Normalize(b)] = struct{}{}
	}
	for _, b := range c.Bookmakers.Soft {
		if _, ok := sharp[bookies.Normalize(b)]; ok {
			return fmt.Errorf("config: bookmaker %q listed as both sharp and soft", b)
		}
	}
	for sport, windows := range c.PeakHours {
		for _, w := range windows {
			if w.StartHour < 0 || w.EndHour > 24 || w.StartHour >= w.EndHour {
				return fmt.Errorf("config: bad peak window for %s: start=%d end=%d", sport, w.StartHour, w.EndHour)
			}
			if len(w.Days) == 0 {
				return fmt.Errorf("config: peak window for %s has no days", sport)
			}
			for _, d := range w.Days {
				if _, err := parseWeekday(d); err != nil {
					return fmt.Errorf("config: peak window for %s: %w", sport, err)
				}
			}
		}
	}
	return nil
}

// Location resolves the reference time zone; Validate has already
// checked it.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Schedule converts the YAML peak-hours section into the scheduler's
// weekly-window form.
func (c *Config) Schedule() (schedule.Schedule, error) {
	out := make(schedule.Schedule, len(c.PeakHours))
	for sport, windows := range c.PeakHours {
		converted := make([]schedule.Window, 0, len(windows))
		for _, w := range windows {
			days := make([]time.Weekday, 0, len(w.Days))
			for _, d := range w.Days {
				day, err := parseWeekday(d)
				if err != nil {
					return nil, err
				}
				days = append(days, day)
			}
			converted = append(converted, schedule.Window{
				Days:      days,
				StartHour: w.StartHour,
				EndHour:   w.EndHour,
			})
		}
		out[sport] = converted
	}
	return out, nil
}

var weekdays = map[string]time.Weekday{
	"sun": time.Sunday, "sunday": time.Sunday,
	"mon": time.Monday, "monday": time.Monday,
	"tue": time.Tuesday, "tuesday": time.Tuesday,
	"wed": time.Wednesday, "wednesday": time.Wednesday,
	"thu": time.Thursday, "thursday": time.Thursday,
	"fri": time.Friday, "friday": time.Friday,
	"sat": time.Saturday, "saturday": time.Saturday,
}

func parseWeekday(raw string) (time.Weekday, error) {
	if day, ok := weekdays[strings.ToLower(strings.TrimSpace(raw))]; ok {
		return day, nil
	}
	return 0, fmt.Errorf("unknown weekday %q", raw)
}
