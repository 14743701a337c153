package registry

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Store persists subscriptions in Postgres. Queries run against prepared
// statements registered in internal/db.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a Store backed by pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// List returns every subscription. The dispatcher evaluates all of them each
// cycle; per-type filtering happens in the evaluator.
func (s *Store) List(ctx context.Context) ([]Subscription, error) {
	rows, err := s.pool.Query(ctx, "list_push_subscriptions")
	if err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []Subscription
	for rows.Next() {
		var sub Subscription
		if err := rows.Scan(
			&sub.Endpoint, &sub.KeysP256dh, &sub.KeysAuth, &sub.Timezone,
			&sub.Latitude, &sub.Longitude,
			&sub.HadithEnabled, &sub.ChallengeEnabled, &sub.PrayerEnabled,
			&sub.DaruriSobhEnabled, &sub.DaruriAsrEnabled, &sub.AkhirIshaEnabled,
			&sub.PrayerMinutesBefore, &sub.PrayerMinutesConfig,
			&sub.PrayerSettings, &sub.LastNotified,
		); err != nil {
			return nil, fmt.Errorf("scan subscription: %w", err)
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

// UpdateLastNotified records a successful delivery for one trigger.
// A targeted JSONB set — no cross-subscriber locking needed.
func (s *Store) UpdateLastNotified(ctx context.Context, endpoint, triggerID string, at time.Time) error {
	_, err := s.pool.Exec(ctx, "update_last_notified", endpoint, triggerID, at.UTC())
	if err != nil {
		return fmt.Errorf("update last notified: %w", err)
	}
	return nil
}

// Delete removes a subscription. Called when the push service reports it
// gone (404/410) and by the unsubscribe endpoint.
func (s *Store) Delete(ctx context.Context, endpoint string) error {
	_, err := s.pool.Exec(ctx, "delete_push_subscription", endpoint)
	if err != nil {
		return fmt.Errorf("delete subscription: %w", err)
	}
	return nil
}

// Upsert registers a subscription or refreshes an existing one. Key
// material is immutable per endpoint in practice, but a re-subscribe from
// the same browser replaces it wholesale.
func (s *Store) Upsert(ctx context.Context, sub *Subscription) error {
	_, err := s.pool.Exec(ctx, "upsert_push_subscription",
		sub.Endpoint, sub.KeysP256dh, sub.KeysAuth, sub.Timezone,
		sub.Latitude, sub.Longitude,
		sub.HadithEnabled, sub.ChallengeEnabled, sub.PrayerEnabled,
		sub.DaruriSobhEnabled, sub.DaruriAsrEnabled, sub.AkhirIshaEnabled,
		sub.PrayerMinutesBefore, sub.PrayerMinutesConfig, sub.PrayerSettings,
	)
	if err != nil {
		return fmt.Errorf("upsert subscription: %w", err)
	}
	return nil
}

// Preferences is a partial update; nil fields are left unchanged.
type Preferences struct {
	Hadith        *bool
	Challenge     *bool
	Prayer        *bool
	DaruriSobh    *bool
	DaruriAsr     *bool
	AkhirIsha     *bool
	MinutesBefore *int
}

// UpdatePreferences applies a partial preference change by endpoint.
func (s *Store) UpdatePreferences(ctx context.Context, endpoint string, p Preferences) (bool, error) {
	tag, err := s.pool.Exec(ctx, "update_push_preferences",
		endpoint,
		p.Hadith, p.Challenge, p.Prayer,
		p.DaruriSobh, p.DaruriAsr, p.AkhirIsha,
		p.MinutesBefore,
	)
	if err != nil {
		return false, fmt.Errorf("update preferences: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}
