// Package db provides a pgxpool-based connection pool with prepared statement
// registration and health checking.
package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/qurancoach/notifier/internal/config"
)

// Pool wraps pgxpool.Pool with application-specific helpers.
type Pool struct {
	*pgxpool.Pool
}

// New creates and validates a new connection pool.
func New(ctx context.Context, cfg *config.Config) (*Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	poolCfg.MinConns = int32(cfg.DBPoolMinConns)
	poolCfg.MaxConns = int32(cfg.DBPoolMaxConns)
	poolCfg.MaxConnLifetime = cfg.DBPoolMaxLife
	poolCfg.MaxConnIdleTime = 5 * time.Minute

	// Register prepared statements on every new connection.
	poolCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return registerPreparedStatements(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	// Verify connectivity
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Pool{Pool: pool}, nil
}

// HealthCheck runs a trivial query to verify the database is reachable.
func (p *Pool) HealthCheck(ctx context.Context) error {
	var n int
	return p.QueryRow(ctx, "health_check").Scan(&n)
}

// registerPreparedStatements registers every statement the dispatcher and
// the subscription API use. Prepared statements eliminate parse overhead on
// every dispatch cycle.
func registerPreparedStatements(ctx context.Context, conn *pgx.Conn) error {
	stmts := map[string]string{
		// Health
		"health_check": "SELECT 1",

		// Dispatch: full registry read at the start of each run
		"list_push_subscriptions": `
			SELECT endpoint, keys_p256dh, keys_auth, COALESCE(timezone, ''),
			       latitude, longitude,
			       hadith_enabled, challenge_enabled, prayer_enabled,
			       daruri_sobh_enabled, daruri_asr_enabled, akhir_isha_enabled,
			       prayer_minutes_before,
			       COALESCE(prayer_minutes_config, '{}'::jsonb),
			       COALESCE(prayer_settings, '{}'::jsonb),
			       COALESCE(last_notified, '{}'::jsonb)
			FROM push_subscriptions`,

		// Dispatch: dedup timestamp write-back, one trigger at a time
		"update_last_notified": `
			UPDATE push_subscriptions
			SET last_notified = jsonb_set(COALESCE(last_notified, '{}'::jsonb),
			                              ARRAY[$2], to_jsonb($3::timestamptz), true),
			    updated_at = NOW()
			WHERE endpoint = $1`,

		// Dispatch: prune expired subscriptions (push service said 404/410)
		"delete_push_subscription": "DELETE FROM push_subscriptions WHERE endpoint = $1",

		// Subscribe flow
		"upsert_push_subscription": `
			INSERT INTO push_subscriptions (
				endpoint, keys_p256dh, keys_auth, timezone, latitude, longitude,
				hadith_enabled, challenge_enabled, prayer_enabled,
				daruri_sobh_enabled, daruri_asr_enabled, akhir_isha_enabled,
				prayer_minutes_before, prayer_minutes_config, prayer_settings
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
			ON CONFLICT (endpoint) DO UPDATE SET
				keys_p256dh = EXCLUDED.keys_p256dh,
				keys_auth = EXCLUDED.keys_auth,
				timezone = EXCLUDED.timezone,
				latitude = EXCLUDED.latitude,
				longitude = EXCLUDED.longitude,
				hadith_enabled = EXCLUDED.hadith_enabled,
				challenge_enabled = EXCLUDED.challenge_enabled,
				prayer_enabled = EXCLUDED.prayer_enabled,
				daruri_sobh_enabled = EXCLUDED.daruri_sobh_enabled,
				daruri_asr_enabled = EXCLUDED.daruri_asr_enabled,
				akhir_isha_enabled = EXCLUDED.akhir_isha_enabled,
				prayer_minutes_before = EXCLUDED.prayer_minutes_before,
				prayer_minutes_config = EXCLUDED.prayer_minutes_config,
				prayer_settings = EXCLUDED.prayer_settings,
				updated_at = NOW()`,

		"update_push_preferences": `
			UPDATE push_subscriptions SET
				hadith_enabled = COALESCE($2, hadith_enabled),
				challenge_enabled = COALESCE($3, challenge_enabled),
				prayer_enabled = COALESCE($4, prayer_enabled),
				daruri_sobh_enabled = COALESCE($5, daruri_sobh_enabled),
				daruri_asr_enabled = COALESCE($6, daruri_asr_enabled),
				akhir_isha_enabled = COALESCE($7, akhir_isha_enabled),
				prayer_minutes_before = COALESCE($8, prayer_minutes_before),
				updated_at = NOW()
			WHERE endpoint = $1`,
	}

	for name, sql := range stmts {
		if _, err := conn.Prepare(ctx, name, sql); err != nil {
			return fmt.Errorf("prepare %q: %w", name, err)
		}
	}
	return nil
}
