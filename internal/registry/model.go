// Package registry reads and updates the persisted push-subscription table.
// Rows are created and deleted by the product's subscribe/unsubscribe flow;
// the dispatcher reads them and writes back only dedup timestamps, plus
// pruning rows whose push service reports the subscription gone.
package registry

import (
	"time"

	"github.com/qurancoach/notifier/internal/prayer"
)

// Subscription is one browser push channel with its notification settings.
// Endpoint is the identity key. The ECDH public key and auth secret are
// stored exactly as the browser provided them (base64url).
type Subscription struct {
	Endpoint   string
	KeysP256dh string
	KeysAuth   string

	// Timezone is an IANA zone name; empty means the configured default.
	Timezone string

	// Latitude/Longitude are nil for subscribers who declined geolocation;
	// prayer-dependent triggers are skipped for them.
	Latitude  *float64
	Longitude *float64

	HadithEnabled     bool
	ChallengeEnabled  bool
	PrayerEnabled     bool
	DaruriSobhEnabled bool
	DaruriAsrEnabled  bool
	AkhirIshaEnabled  bool

	// PrayerMinutesBefore is the global reminder lead time;
	// PrayerMinutesConfig holds per-prayer overrides keyed by prayer name.
	PrayerMinutesBefore int
	PrayerMinutesConfig map[string]int

	PrayerSettings prayer.Settings

	// LastNotified maps trigger id to the UTC instant it was last
	// successfully delivered. The dispatcher's only write-back.
	LastNotified map[string]time.Time
}

// HasCoordinates reports whether prayer-dependent triggers can run.
func (s *Subscription) HasCoordinates() bool {
	return s.Latitude != nil && s.Longitude != nil
}
