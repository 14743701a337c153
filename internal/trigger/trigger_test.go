package trigger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qurancoach/notifier/internal/prayer"
)

// localTime builds an instant whose wall clock reads hh:mm. The evaluator
// only looks at hour and minute.
func localTime(hh, mm int) time.Time {
	return time.Date(2026, 3, 15, hh, mm, 0, 0, time.UTC)
}

func dayTimes() *prayer.Times {
	return &prayer.Times{
		Fajr:    5*60 + 10,
		Sunrise: 6*60 + 45,
		Dhuhr:   13 * 60,
		Asr:     16*60 + 45,
		Maghrib: 18*60 + 40,
		Isha:    20 * 60,
	}
}

func ids(events []Event) []string {
	out := make([]string, 0, len(events))
	for _, e := range events {
		out = append(out, e.ID)
	}
	return out
}

func TestClassicPrayerReminderWindow(t *testing.T) {
	ev := Evaluator{WindowMinutes: 4, CooldownMinutes: 20}
	prefs := Prefs{Prayer: true, MinutesBefore: 10}

	// Maghrib 18:40, lead 10 → target 18:30.
	cases := []struct {
		now   time.Time
		fires bool
	}{
		{localTime(18, 26), true},  // diff -4, edge of window
		{localTime(18, 30), true},  // diff 0
		{localTime(18, 34), true},  // diff +4, edge of window
		{localTime(18, 35), false}, // diff +5, out
		{localTime(18, 25), false}, // diff -5, out
	}
	for _, tc := range cases {
		events := ev.Evaluate(prefs, nil, dayTimes(), tc.now)
		if tc.fires {
			assert.Contains(t, ids(events), "prayer-Maghrib", "at %s", tc.now.Format("15:04"))
		} else {
			assert.NotContains(t, ids(events), "prayer-Maghrib", "at %s", tc.now.Format("15:04"))
		}
		// Dhuhr's window (12:50) is hours away in every case.
		assert.NotContains(t, ids(events), "prayer-Dhuhr")
	}
}

func TestPerPrayerOverrideAndAdjustments(t *testing.T) {
	ev := Evaluator{WindowMinutes: 4, CooldownMinutes: 20}
	prefs := Prefs{
		Prayer:        true,
		MinutesBefore: 10,
		MinutesConfig: map[string]int{"Maghrib": 30},
		Settings:      prayer.Settings{Adjustments: map[string]int{"Maghrib": 5}},
	}

	// Maghrib 18:40 +5 adjust −30 lead → target 18:15.
	events := ev.Evaluate(prefs, nil, dayTimes(), localTime(18, 15))
	require.Contains(t, ids(events), "prayer-Maghrib")

	// The old 18:30 target must no longer fire.
	events = ev.Evaluate(prefs, nil, dayTimes(), localTime(18, 30))
	assert.NotContains(t, ids(events), "prayer-Maghrib")
}

func TestFixedClockTriggers(t *testing.T) {
	ev := Evaluator{WindowMinutes: 4, CooldownMinutes: 20}
	prefs := Prefs{Hadith: true, Challenge: true}

	// No prayer times needed for fixed triggers.
	events := ev.Evaluate(prefs, nil, nil, localTime(8, 2))
	assert.Equal(t, []string{DailyHadith}, ids(events))

	events = ev.Evaluate(prefs, nil, nil, localTime(12, 3))
	assert.Equal(t, []string{DailyChallenge}, ids(events))

	events = ev.Evaluate(prefs, nil, nil, localTime(9, 30))
	assert.Empty(t, events)
}

func TestDaruriSobh(t *testing.T) {
	ev := Evaluator{WindowMinutes: 4, CooldownMinutes: 20}
	prefs := Prefs{DaruriSobh: true}

	// Sunrise 06:45 → target 06:25.
	events := ev.Evaluate(prefs, nil, dayTimes(), localTime(6, 25))
	assert.Contains(t, ids(events), DaruriSobh)

	// Skipped gracefully when the provider omitted sunrise.
	times := dayTimes()
	times.Sunrise = prayer.Absent
	events = ev.Evaluate(prefs, nil, times, localTime(6, 25))
	assert.Empty(t, events)
}

func TestDaruriAsrMidpoint(t *testing.T) {
	ev := Evaluator{WindowMinutes: 4, CooldownMinutes: 20}
	prefs := Prefs{DaruriAsr: true}

	// Asr 16:45, Maghrib 18:40 → midpoint 17:42.5, rounded 17:43.
	events := ev.Evaluate(prefs, nil, dayTimes(), localTime(17, 43))
	assert.Contains(t, ids(events), DaruriAsr)

	events = ev.Evaluate(prefs, nil, dayTimes(), localTime(17, 48))
	assert.Empty(t, events)
}

func TestAkhirIshaMidnightWrap(t *testing.T) {
	ev := Evaluator{WindowMinutes: 4, CooldownMinutes: 20}
	prefs := Prefs{AkhirIsha: true}

	// High-latitude night: Maghrib 22:00, next Fajr 08:00.
	// night = 600, third = 200 → target (22:00 + 200) mod 1440 = 01:20.
	times := dayTimes()
	times.Maghrib = 22 * 60
	times.Fajr = 8 * 60

	events := ev.Evaluate(prefs, nil, times, localTime(1, 22))
	assert.Contains(t, ids(events), AkhirIsha, "two minutes past a post-midnight target must fire")

	events = ev.Evaluate(prefs, nil, times, localTime(23, 50))
	assert.Empty(t, events, "23:50 is 90 minutes before the wrapped target")

	// A same-evening night: Maghrib 18:00, Fajr 05:00 →
	// night = 660, third = 220 → target 21:40.
	times.Maghrib = 18 * 60
	times.Fajr = 5 * 60
	events = ev.Evaluate(prefs, nil, times, localTime(21, 40))
	assert.Contains(t, ids(events), AkhirIsha)
}

func TestCooldownSuppressesRefire(t *testing.T) {
	ev := Evaluator{WindowMinutes: 4, CooldownMinutes: 20}
	prefs := Prefs{Hadith: true}
	now := localTime(8, 1)

	// Fired 5 minutes ago: still cooling down.
	last := map[string]time.Time{DailyHadith: now.Add(-5 * time.Minute)}
	events := ev.Evaluate(prefs, last, nil, now)
	assert.Empty(t, events)

	// Fired 25 minutes ago: eligible again while in-window.
	last[DailyHadith] = now.Add(-25 * time.Minute)
	events = ev.Evaluate(prefs, last, nil, now)
	assert.Contains(t, ids(events), DailyHadith)

	// Never fired: cooldown always passes.
	events = ev.Evaluate(prefs, nil, nil, now)
	assert.Contains(t, ids(events), DailyHadith)
}

func TestPrayerTriggersSkippedWithoutTimes(t *testing.T) {
	ev := Evaluator{WindowMinutes: 4, CooldownMinutes: 20}
	prefs := Prefs{
		Prayer: true, DaruriSobh: true, DaruriAsr: true, AkhirIsha: true,
		MinutesBefore: 10,
	}

	events := ev.Evaluate(prefs, nil, nil, localTime(18, 30))
	assert.Empty(t, events)
}

func TestDisabledTypesNeverFire(t *testing.T) {
	ev := Evaluator{WindowMinutes: 4, CooldownMinutes: 20}

	events := ev.Evaluate(Prefs{}, nil, dayTimes(), localTime(18, 30))
	assert.Empty(t, events)
}
