package schedule

import (
	"reflect"
	"testing"
	"time"
)

// March 2 2026 is a Monday.
func monday(hour int) time.Time {
	return time.Date(2026, 3, 2, hour, 0, 0, 0, time.UTC)
}

func nbaEvenings() []Window {
	return []Window{
		{Days: []time.Weekday{time.Monday, time.Wednesday}, StartHour: 18, EndHour: 22},
	}
}

func TestWindowContainsHalfOpen(t *testing.T) {
	w := nbaEvenings()[0]

	if !w.Contains(monday(18)) {
		t.Error("start hour should be inside the window")
	}
	if !w.Contains(monday(21)) {
		t.Error("21:00 should be inside the window")
	}
	if w.Contains(monday(22)) {
		t.Error("end hour must be excluded")
	}
	if w.Contains(monday(17)) {
		t.Error("17:00 is before the window")
	}
	if w.Contains(monday(19).AddDate(0, 0, 1)) {
		t.Error("Tuesday is not a scheduled day")
	}
}

func TestInPeakEmptyScheduleIsAlwaysPeak(t *testing.T) {
	if !InPeak(monday(3), nil) {
		t.Error("a market with no windows must always count as in peak")
	}
}

func TestActiveMarketsIsDeterministic(t *testing.T) {
	sched := Schedule{
		"basketball_nba": nbaEvenings(),
		"soccer_epl": {
			{Days: []time.Weekday{time.Saturday}, StartHour: 12, EndHour: 18},
		},
	}
	markets := []string{"soccer_epl", "basketball_nba", "tennis_atp"}

	got := ActiveMarkets(monday(19), markets, sched)
	// tennis has no schedule so it is always active; soccer is Saturday only.
	want := []string{"basketball_nba", "tennis_atp"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ActiveMarkets = %v, want %v", got, want)
	}

	for i := 0; i < 5; i++ {
		if again := ActiveMarkets(monday(19), markets, sched); !reflect.DeepEqual(again, got) {
			t.Fatalf("same inputs gave different output: %v vs %v", again, got)
		}
	}
}

func TestPollInterval(t *testing.T) {
	sched := Schedule{"basketball_nba": nbaEvenings()}
	markets := []string{"basketball_nba"}
	peak, offPeak := time.Minute, 30*time.Minute

	if got := PollInterval(monday(19), markets, sched, peak, offPeak); got != peak {
		t.Errorf("in peak window: interval = %s, want %s", got, peak)
	}
	if got := PollInterval(monday(9), markets, sched, peak, offPeak); got != offPeak {
		t.Errorf("off peak: interval = %s, want %s", got, offPeak)
	}
}

func TestNextWindow(t *testing.T) {
	windows := nbaEvenings()

	// Monday morning: next window opens the same evening.
	next, ok := NextWindow(monday(9), windows)
	if !ok || !next.Equal(monday(18)) {
		t.Errorf("from Monday 09:00: next = %v ok=%v, want %v", next, ok, monday(18))
	}

	// Monday 23:00 is past the evening window: Wednesday is next.
	next, ok = NextWindow(monday(23), windows)
	want := monday(18).AddDate(0, 0, 2)
	if !ok || !next.Equal(want) {
		t.Errorf("from Monday 23:00: next = %v ok=%v, want %v", next, ok, want)
	}

	// Earliest start wins when several windows share a day.
	multi := append(nbaEvenings(), Window{
		Days: []time.Weekday{time.Monday}, StartHour: 12, EndHour: 14,
	})
	next, ok = NextWindow(monday(9), multi)
	if !ok || !next.Equal(monday(12)) {
		t.Errorf("earliest window: next = %v ok=%v, want %v", next, ok, monday(12))
	}

	if _, ok := NextWindow(monday(9), nil); ok {
		t.Error("no windows must report ok=false")
	}
}
