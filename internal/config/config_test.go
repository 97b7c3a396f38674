package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const sampleYAML = `
timezone: America/New_York
sports:
  - basketball_nba
  - soccer_epl
regions: [eu, us]
markets: [h2h]

polling:
  peak_interval: 45s
  off_peak_interval: 20m

arbitrage:
  min_roi_percent: 2.0
  smart_rounding: true

bookmakers:
  sharp: [pinnacle, betfair_ex_eu]
  soft: [bet365, unibet_us]
  high_risk: [shadybook]

settlement_rules:
  basketball:
    pinnacle: includes_overtime
    bet365: includes_overtime

peak_hours:
  basketball_nba:
    - days: [mon, Tuesday, wed]
      start_hour: 18
      end_hour: 23
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadSampleConfig(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleYAML))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Polling.PeakInterval.Std() != 45*time.Second {
		t.Errorf("peak_interval = %s, want 45s", cfg.Polling.PeakInterval.Std())
	}
	if cfg.Polling.OffPeakInterval.Std() != 20*time.Minute {
		t.Errorf("off_peak_interval = %s, want 20m", cfg.Polling.OffPeakInterval.Std())
	}
	if cfg.Arbitrage.MinROIPercent != 2.0 {
		t.Errorf("min_roi_percent = %.1f, want 2.0", cfg.Arbitrage.MinROIPercent)
	}

	// Unset fields get defaults.
	if cfg.Arbitrage.MaxROIPercent != 15.0 {
		t.Errorf("max_roi_percent default = %.1f, want 15.0", cfg.Arbitrage.MaxROIPercent)
	}
	if cfg.Arbitrage.TotalInvestment != 1000 {
		t.Errorf("total_investment default = %.0f, want 1000", cfg.Arbitrage.TotalInvestment)
	}
	if cfg.Drift.ValueThresholdPercent != 5.0 {
		t.Errorf("value_threshold_percent default = %.1f, want 5.0", cfg.Drift.ValueThresholdPercent)
	}
	if cfg.Alerts.Cooldown.Std() != 10*time.Minute {
		t.Errorf("alert cooldown default = %s, want 10m", cfg.Alerts.Cooldown.Std())
	}
	if cfg.Polling.StaleAfter.Std() != 5*time.Minute {
		t.Errorf("stale_after default = %s, want 5m", cfg.Polling.StaleAfter.Std())
	}

	if cfg.Location().String() != "America/New_York" {
		t.Errorf("location = %s", cfg.Location())
	}
}

func TestScheduleConversion(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleYAML))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	sched, err := cfg.Schedule()
	if err != nil {
		t.Fatalf("Schedule: %v", err)
	}

	windows := sched["basketball_nba"]
	if len(windows) != 1 {
		t.Fatalf("got %d windows, want 1", len(windows))
	}
	w := windows[0]
	if w.StartHour != 18 || w.EndHour != 23 {
		t.Errorf("hours = %d-%d, want 18-23", w.StartHour, w.EndHour)
	}
	want := []time.Weekday{time.Monday, time.Tuesday, time.Wednesday}
	if len(w.Days) != len(want) {
		t.Fatalf("days = %v, want %v", w.Days, want)
	}
	for i, d := range want {
		if w.Days[i] != d {
			t.Errorf("day %d = %v, want %v", i, w.Days[i], d)
		}
	}
}

func TestLoadRejectsBadConfigs(t *testing.T) {
	cases := []struct {
		name string
		yaml string
		want string
	}{
		{
			"no sports",
			"timezone: UTC\n",
			"at least one sport",
		},
		{
			"bad timezone",
			"timezone: Mars/Olympus\nsports: [basketball_nba]\n",
			"invalid timezone",
		},
		{
			"inverted roi band",
			"sports: [basketball_nba]\narbitrage:\n  min_roi_percent: 20\n  max_roi_percent: 5\n",
			"min_roi_percent",
		},
		{
			"sharp and soft overlap",
			"sports: [basketball_nba]\nbookmakers:\n  sharp: [pinnacle]\n  soft: [Pinnacle_us]\n",
			"both sharp and soft",
		},
		{
			"bad weekday",
			"sports: [basketball_nba]\npeak_hours:\n  basketball_nba:\n    - days: [funday]\n      start_hour: 18\n      end_hour: 22\n",
			"unknown weekday",
		},
		{
			"inverted window hours",
			"sports: [basketball_nba]\npeak_hours:\n  basketball_nba:\n    - days: [mon]\n      start_hour: 22\n      end_hour: 18\n",
			"bad peak window",
		},
		{
			"bad duration string",
			"sports: [basketball_nba]\npolling:\n  peak_interval: soonish\n",
			"parse duration",
		},
	}

	for _, tc := range cases {
		_, err := Load(writeConfig(t, tc.yaml))
		if err == nil {
			t.Errorf("%s: Load accepted a bad config", tc.name)
			continue
		}
		if !strings.Contains(err.Error(), tc.want) {
			t.Errorf("%s: error %q does not mention %q", tc.name, err, tc.want)
		}
	}
}
