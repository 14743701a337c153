// Package dispatch orchestrates one notification cycle: load subscribers,
// evaluate triggers against cached prayer times, encrypt, sign, deliver,
// and write back dedup timestamps. One Run per scheduler tick.
package dispatch

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/qurancoach/notifier/internal/prayer"
	"github.com/qurancoach/notifier/internal/registry"
	"github.com/qurancoach/notifier/internal/trigger"
	"github.com/qurancoach/notifier/internal/webpush"
)

// Store is the subscriber registry surface the dispatcher needs.
type Store interface {
	List(ctx context.Context) ([]registry.Subscription, error)
	UpdateLastNotified(ctx context.Context, endpoint, triggerID string, at time.Time) error
	Delete(ctx context.Context, endpoint string) error
}

// Signer produces VAPID tokens scoped to an endpoint's origin.
type Signer interface {
	Token(endpoint string) (string, error)
	PublicKey() string
}

// PushSender delivers one encrypted record to one endpoint.
type PushSender interface {
	Send(ctx context.Context, endpoint string, record []byte, token, serverPublicKey string) (webpush.Outcome, error)
}

// Config holds the per-run tunables.
type Config struct {
	WindowMinutes   int
	CooldownMinutes int
	Workers         int
	DefaultTimezone string
}

// Result summarizes one dispatch run.
type Result struct {
	Total   int `json:"total"`
	Sent    int `json:"sent"`
	Deleted int `json:"deleted"`
	Failed  int `json:"failed"`
}

// Runner executes dispatch cycles. Stateless between runs; the prayer-time
// cache is created fresh inside each Run and discarded with it.
type Runner struct {
	store   Store
	fetcher prayer.Fetcher
	signer  Signer
	sender  PushSender
	cfg     Config
	logger  *slog.Logger

	now func() time.Time
}

// NewRunner wires a Runner from its collaborators.
func NewRunner(store Store, fetcher prayer.Fetcher, signer Signer, sender PushSender, cfg Config, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		store:   store,
		fetcher: fetcher,
		signer:  signer,
		sender:  sender,
		cfg:     cfg,
		logger:  logger,
		now:     time.Now,
	}
}

// testPayload is sent to every subscriber in test mode, bypassing all
// window logic, to verify the encrypt/sign/deliver pipeline end to end.
var testPayload = trigger.Payload{
	Title: "🔔 Test",
	Body:  "Les notifications Quran Coach fonctionnent !",
	URL:   "/",
	Tag:   "test",
}

// Run executes one dispatch cycle over every subscription. Subscribers are
// processed by a bounded worker pool; a failure for one never aborts the
// rest. In test mode every subscriber gets one fixed notification and no
// dedup timestamps are written.
func (r *Runner) Run(ctx context.Context, testMode bool) (Result, error) {
	start := r.now()

	subs, err := r.store.List(ctx)
	if err != nil {
		return Result{}, err
	}

	result := Result{Total: len(subs)}
	if len(subs) == 0 {
		return result, nil
	}

	cache := prayer.NewCache(r.fetcher, r.logger)

	workers := r.cfg.Workers
	if workers < 1 {
		workers = 1
	}
	if workers > len(subs) {
		workers = len(subs)
	}

	ch := make(chan registry.Subscription, len(subs))
	for _, sub := range subs {
		ch <- sub
	}
	close(ch)

	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for sub := range ch {
				sent, deleted, failed := r.processSubscriber(ctx, &sub, cache, start, testMode)

				mu.Lock()
				result.Sent += sent
				result.Deleted += deleted
				result.Failed += failed
				mu.Unlock()
			}
		}()
	}

	wg.Wait()

	r.logger.Info("Dispatch run complete",
		"test", testMode,
		"total", result.Total,
		"sent", result.Sent,
		"deleted", result.Deleted,
		"failed", result.Failed,
		"duration", r.now().Sub(start).Round(time.Millisecond))
	return result, nil
}

// processSubscriber evaluates and delivers every due trigger for one
// subscriber. Errors are logged and counted, never propagated.
func (r *Runner) processSubscriber(ctx context.Context, sub *registry.Subscription, cache *prayer.Cache, now time.Time, testMode bool) (sent, deleted, failed int) {
	localNow := now.In(r.location(sub.Timezone))

	var events []trigger.Event
	if testMode {
		events = []trigger.Event{{ID: "test", Payload: testPayload}}
	} else {
		var times *prayer.Times
		if sub.HasCoordinates() {
			if t, ok := cache.Get(ctx, *sub.Latitude, *sub.Longitude, sub.PrayerSettings, localNow); ok {
				times = t
			}
		}

		ev := trigger.Evaluator{
			WindowMinutes:   r.cfg.WindowMinutes,
			CooldownMinutes: r.cfg.CooldownMinutes,
		}
		events = ev.Evaluate(trigger.Prefs{
			Hadith:        sub.HadithEnabled,
			Challenge:     sub.ChallengeEnabled,
			Prayer:        sub.PrayerEnabled,
			DaruriSobh:    sub.DaruriSobhEnabled,
			DaruriAsr:     sub.DaruriAsrEnabled,
			AkhirIsha:     sub.AkhirIshaEnabled,
			MinutesBefore: sub.PrayerMinutesBefore,
			MinutesConfig: sub.PrayerMinutesConfig,
			Settings:      sub.PrayerSettings,
		}, sub.LastNotified, times, localNow)
	}
	if len(events) == 0 {
		return 0, 0, 0
	}

	subscriberPub, err := webpush.DecodeSubscriberPublicKey(sub.KeysP256dh)
	if err != nil {
		r.logger.Warn("skipping subscriber with bad key material", "endpoint", truncate(sub.Endpoint), "error", err)
		return 0, 0, len(events)
	}
	authSecret, err := webpush.DecodeAuthSecret(sub.KeysAuth)
	if err != nil {
		r.logger.Warn("skipping subscriber with bad auth secret", "endpoint", truncate(sub.Endpoint), "error", err)
		return 0, 0, len(events)
	}

	for _, event := range events {
		plaintext, err := json.Marshal(event.Payload)
		if err != nil {
			r.logger.Warn("marshal payload", "trigger", event.ID, "error", err)
			failed++
			continue
		}

		record, err := webpush.Encrypt(plaintext, subscriberPub, authSecret)
		if err != nil {
			r.logger.Warn("encrypt payload", "endpoint", truncate(sub.Endpoint), "trigger", event.ID, "error", err)
			failed++
			continue
		}

		token, err := r.signer.Token(sub.Endpoint)
		if err != nil {
			r.logger.Warn("sign vapid token", "endpoint", truncate(sub.Endpoint), "trigger", event.ID, "error", err)
			failed++
			continue
		}

		outcome, err := r.sender.Send(ctx, sub.Endpoint, record, token, r.signer.PublicKey())
		switch outcome {
		case webpush.OutcomeSent:
			sent++
			if !testMode {
				if err := r.store.UpdateLastNotified(ctx, sub.Endpoint, event.ID, now); err != nil {
					r.logger.Warn("record dedup timestamp", "endpoint", truncate(sub.Endpoint), "trigger", event.ID, "error", err)
				}
			}
		case webpush.OutcomeGone:
			if err := r.store.Delete(ctx, sub.Endpoint); err != nil {
				r.logger.Warn("prune expired subscription", "endpoint", truncate(sub.Endpoint), "error", err)
			} else {
				r.logger.Info("pruned expired subscription", "endpoint", truncate(sub.Endpoint))
			}
			deleted++
			return sent, deleted, failed
		default:
			r.logger.Warn("push delivery failed", "endpoint", truncate(sub.Endpoint), "trigger", event.ID, "error", err)
			failed++
		}
	}
	return sent, deleted, failed
}

// location resolves a subscriber timezone with the configured default and a
// UTC last resort. A bad zone must not drop the subscriber.
func (r *Runner) location(tz string) *time.Location {
	if tz == "" {
		tz = r.cfg.DefaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		loc, err = time.LoadLocation(r.cfg.DefaultTimezone)
		if err != nil {
			return time.UTC
		}
	}
	return loc
}

// truncate keeps endpoint URLs readable in logs; the path is an opaque
// capability token hundreds of characters long.
func truncate(endpoint string) string {
	if len(endpoint) > 50 {
		return endpoint[:50] + "..."
	}
	return endpoint
}
