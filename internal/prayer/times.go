// Package prayer provides a rate-limited client for the external prayer-time
// computation service plus a per-dispatch-run cache so nearby subscribers
// share one external call.
package prayer

import (
	"fmt"
	"strconv"
	"strings"
)

// Times holds one day's prayer times at one location as minutes from local
// midnight. Sunrise may be Absent when the provider omits it.
type Times struct {
	Fajr    int
	Sunrise int
	Dhuhr   int
	Asr     int
	Maghrib int
	Isha    int
}

// Absent marks a timing the provider did not return.
const Absent = -1

// Minute returns the minute-of-day for a prayer by provider name.
func (t *Times) Minute(name string) int {
	switch name {
	case "Fajr":
		return t.Fajr
	case "Sunrise":
		return t.Sunrise
	case "Dhuhr":
		return t.Dhuhr
	case "Asr":
		return t.Asr
	case "Maghrib":
		return t.Maghrib
	case "Isha":
		return t.Isha
	}
	return Absent
}

// Settings are the calculation-method parameters forwarded to the external
// service. Adjustments are per-prayer minute offsets applied by the trigger
// evaluator, not forwarded — the cache key deliberately excludes them.
type Settings struct {
	// FajrAngle and IshaAngle are twilight angles in degrees.
	// Zero means provider default (18 / 17).
	FajrAngle float64 `json:"fajrAngle,omitempty"`
	IshaAngle float64 `json:"ishaAngle,omitempty"`
	// AsrShadowSchool: 0 = standard (Shafi'i/Maliki/Hanbali), 1 = Hanafi.
	AsrShadowSchool int `json:"asrSchool,omitempty"`
	// Adjustments maps prayer name (Fajr, Dhuhr, Asr, Maghrib, Isha) to a
	// minute offset added to the computed time.
	Adjustments map[string]int `json:"adjustments,omitempty"`
}

// ParseClock converts "HH:MM" to minutes from midnight. Tolerates the
// "HH:MM (CET)" suffix some providers append.
func ParseClock(s string) (int, error) {
	if i := strings.IndexByte(s, ' '); i >= 0 {
		s = s[:i]
	}
	h, m, ok := strings.Cut(s, ":")
	if !ok {
		return 0, fmt.Errorf("malformed clock time %q", s)
	}
	hour, err := strconv.Atoi(h)
	if err != nil || hour < 0 || hour > 23 {
		return 0, fmt.Errorf("malformed clock time %q", s)
	}
	minute, err := strconv.Atoi(m)
	if err != nil || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("malformed clock time %q", s)
	}
	return hour*60 + minute, nil
}

// FormatClock renders a minute-of-day back to "HH:MM".
func FormatClock(minute int) string {
	minute = ((minute % 1440) + 1440) % 1440
	return fmt.Sprintf("%02d:%02d", minute/60, minute%60)
}
