// Package trigger decides, for one subscriber at one instant, which
// notification types are due. The evaluator is a pure function of the
// subscriber's preferences, their dedup timestamps, the day's prayer times,
// and the current local time — no I/O, no hidden state.
package trigger

import (
	"fmt"
	"time"

	"github.com/qurancoach/notifier/internal/prayer"
)

// Trigger identifiers. Used as dedup-timestamp keys and notification tags.
const (
	DailyHadith    = "daily-hadith"
	DailyChallenge = "daily-challenge"
	DaruriSobh     = "daruri-sobh"
	DaruriAsr      = "daruri-asr"
	AkhirIsha      = "akhir-isha"
)

// PrayerTriggerID returns the dedup key for a classic prayer reminder,
// e.g. "prayer-Fajr".
func PrayerTriggerID(name string) string {
	return "prayer-" + name
}

const (
	hadithTargetMinute    = 8 * 60  // 08:00 local
	challengeTargetMinute = 12 * 60 // 12:00 local

	// DefaultMinutesBefore is the classic-reminder lead time when a
	// subscriber has not configured one.
	DefaultMinutesBefore = 10

	// Darûrî Sobh ends this many minutes before sunrise.
	sobhSunriseLead = 20
)

// Payload is the notification content delivered to the service worker.
type Payload struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	URL   string `json:"url"`
	Tag   string `json:"tag"`
}

// Event is one due trigger for one subscriber.
type Event struct {
	ID      string
	Payload Payload
}

// Prefs are the per-subscriber settings the evaluator needs.
type Prefs struct {
	Hadith     bool
	Challenge  bool
	Prayer     bool
	DaruriSobh bool
	DaruriAsr  bool
	AkhirIsha  bool

	// MinutesBefore is the global classic-reminder lead time;
	// MinutesConfig holds per-prayer overrides.
	MinutesBefore int
	MinutesConfig map[string]int

	// Settings carries per-prayer minute adjustments applied to the
	// computed prayer time before the lead time is subtracted.
	Settings prayer.Settings
}

// prayerDisplay drives classic reminder copy, in day order.
var prayerDisplay = []struct {
	key    string
	name   string
	arabic string
	emoji  string
}{
	{"Fajr", "Fajr", "الفجر", "🌅"},
	{"Dhuhr", "Dhouhr", "الظهر", "☀️"},
	{"Asr", "Asr", "العصر", "🌤️"},
	{"Maghrib", "Maghrib", "المغرب", "🌅"},
	{"Isha", "Ishaa", "العشاء", "🌙"},
}

// Evaluator applies the window/cooldown policy. Zero values fall back to
// the documented defaults (window 4, cooldown 20).
type Evaluator struct {
	WindowMinutes   int
	CooldownMinutes int
}

// Evaluate returns the triggers due for a subscriber at localNow, which must
// already be converted into the subscriber's timezone. times may be nil when
// coordinates are missing or the prayer service is unavailable; every
// prayer-dependent trigger is then skipped, never failed.
func (e Evaluator) Evaluate(prefs Prefs, last map[string]time.Time, times *prayer.Times, localNow time.Time) []Event {
	window := e.WindowMinutes
	if window <= 0 {
		window = 4
	}
	cooldown := time.Duration(e.CooldownMinutes) * time.Minute
	if cooldown <= 0 {
		cooldown = 20 * time.Minute
	}

	current := localNow.Hour()*60 + localNow.Minute()
	var events []Event

	due := func(id string, target int) bool {
		diff := normalizeDiff(current - target)
		if diff < -window || diff > window {
			return false
		}
		if at, ok := last[id]; ok && localNow.Sub(at) < cooldown {
			return false
		}
		return true
	}

	if prefs.Hadith && due(DailyHadith, hadithTargetMinute) {
		events = append(events, Event{ID: DailyHadith, Payload: Payload{
			Title: "📖 Hadith du Jour",
			Body:  "Découvre le hadith du jour sur Quran Coach",
			URL:   "/hadiths",
			Tag:   DailyHadith,
		}})
	}

	if prefs.Challenge && due(DailyChallenge, challengeTargetMinute) {
		events = append(events, Event{ID: DailyChallenge, Payload: Payload{
			Title: "🏆 Défi du Jour",
			Body:  "Le quiz du jour t'attend ! Relève le défi et gagne des XP bonus.",
			URL:   "/quiz",
			Tag:   DailyChallenge,
		}})
	}

	if times == nil {
		return events
	}

	if prefs.Prayer {
		for _, p := range prayerDisplay {
			adjusted := times.Minute(p.key) + prefs.Settings.Adjustments[p.key]
			lead := prefs.MinutesBefore
			if override, ok := prefs.MinutesConfig[p.key]; ok {
				lead = override
			}
			if lead <= 0 {
				lead = DefaultMinutesBefore
			}

			id := PrayerTriggerID(p.key)
			if due(id, adjusted-lead) {
				events = append(events, Event{ID: id, Payload: Payload{
					Title: fmt.Sprintf("%s %s — %s", p.emoji, p.name, p.arabic),
					Body:  fmt.Sprintf("%s dans ~%d minutes (%s)", p.name, lead, prayer.FormatClock(adjusted)),
					URL:   "/prieres",
					Tag:   id,
				}})
			}
		}
	}

	// End-of-window (Darûrî) triggers. The fractions below intentionally
	// reproduce the product's historical behavior.

	if prefs.DaruriSobh && times.Sunrise != prayer.Absent {
		if due(DaruriSobh, times.Sunrise-sobhSunriseLead) {
			events = append(events, Event{ID: DaruriSobh, Payload: Payload{
				Title: "⚠️ Temps Darûrî Sobh",
				Body:  "Le temps Ikhtiyârî (recommandé) pour le Sobh est terminé. Priez avant le lever du soleil !",
				URL:   "/prieres",
				Tag:   DaruriSobh,
			}})
		}
	}

	if prefs.DaruriAsr {
		if due(DaruriAsr, midpoint(times.Asr, times.Maghrib)) {
			events = append(events, Event{ID: DaruriAsr, Payload: Payload{
				Title: "⚠️ Temps Darûrî Asr",
				Body:  "Le temps Ikhtiyârî (recommandé) pour l'Asr est terminé. Priez avant le Maghrib !",
				URL:   "/prieres",
				Tag:   DaruriAsr,
			}})
		}
	}

	if prefs.AkhirIsha {
		if due(AkhirIsha, akhirIshaMinute(times)) {
			events = append(events, Event{ID: AkhirIsha, Payload: Payload{
				Title: "🌙 Akhir Isha",
				Body:  "Le temps Ikhtiyârî (recommandé) pour l'Isha se termine. Priez avant qu'il ne soit trop tard !",
				URL:   "/prieres",
				Tag:   AkhirIsha,
			}})
		}
	}

	return events
}

// akhirIshaMinute is Maghrib plus one third of the night, where the night
// runs from Maghrib to the next day's Fajr. A Fajr clock time numerically
// below Maghrib means the night wraps past midnight.
func akhirIshaMinute(t *prayer.Times) int {
	night := t.Fajr - t.Maghrib
	if night < 0 {
		night += 1440
	}
	return (t.Maghrib + night/3) % 1440
}

// midpoint rounds to the nearest minute.
func midpoint(a, b int) int {
	return (a + b + 1) / 2
}

// normalizeDiff folds a minute difference into [-720, 720] so targets just
// after midnight are not treated as a day away.
func normalizeDiff(diff int) int {
	if diff > 720 {
		diff -= 1440
	} else if diff < -720 {
		diff += 1440
	}
	return diff
}
