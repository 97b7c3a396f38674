package schedule

import (
	"sort"
	"time"
)

// Window is one peak slot in a market's weekly schedule. The hour range
// is half-open: a time is inside iff start_hour <= hour < end_hour.
type Window struct {
	Days      []time.Weekday
	StartHour int
	EndHour   int
}

// Schedule maps a market key (e.g. "basketball_nba") to its peak windows.
// Weekdays and hours are interpreted in the caller's reference location;
// callers convert `now` before asking.
type Schedule map[string][]Window

// Contains reports whether now falls inside the window.
func (w Window) Contains(now time.Time) bool {
	hour := now.Hour()
	if hour < w.StartHour || hour >= w.EndHour {
		return false
	}
	day := now.Weekday()
	for _, d := range w.Days {
		if d == day {
			return true
		}
	}
	return false
}

// InPeak reports whether any window covers now. An empty window list
// means the market has no schedule and is always considered in peak.
func InPeak(now time.Time, windows []Window) bool {
	if len(windows) == 0 {
		return true
	}
	for _, w := range windows {
		if w.Contains(now) {
			return true
		}
	}
	return false
}

// ActiveMarkets returns the configured markets currently inside a peak
// window, sorted for stable output. Pure function of its arguments.
func ActiveMarkets(now time.Time, markets []string, sched Schedule) []string {
	active := make([]string, 0, len(markets))
	for _, m := range markets {
		if InPeak(now, sched[m]) {
			active = append(active, m)
		}
	}
	sort.Strings(active)
	return active
}

// PollInterval picks the fast interval if any configured market is in a
// peak window, else the off-peak interval.
func PollInterval(now time.Time, markets []string, sched Schedule, peak, offPeak time.Duration) time.Duration {
	if len(ActiveMarkets(now, markets, sched)) > 0 {
		return peak
	}
	return offPeak
}

// NextWindow returns the start of the next peak window for a market at or
// after now, scanning up to a week ahead. ok is false when the market has
// no windows (always in peak) or none could be found.
func NextWindow(now time.Time, windows []Window) (time.Time, bool) {
	if len(windows) == 0 {
		return time.Time{}, false
	}
	for dayOffset := 0; dayOffset < 8; dayOffset++ {
		day := now.AddDate(0, 0, dayOffset)
		var best time.Time
		for _, w := range windows {
			if !weekdayIn(day.Weekday(), w.Days) {
				continue
			}
			start := time.Date(day.Year(), day.Month(), day.Day(), w.StartHour, 0, 0, 0, now.Location())
			if start.Before(now) {
				continue
			}
			if best.IsZero() || start.Before(best) {
				best = start
			}
		}
		if !best.IsZero() {
			return best, true
		}
	}
	return time.Time{}, false
}

func weekdayIn(d time.Weekday, days []time.Weekday) bool {
	for _, candidate := range days {
		if candidate == d {
			return true
		}
	}
	return false
}
