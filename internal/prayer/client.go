package prayer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

// Prayer names as the provider reports them, in day order.
var timingKeys = []string{"Fajr", "Sunrise", "Dhuhr", "Asr", "Maghrib", "Isha"}

// Client fetches calculated prayer times from an AlAdhan-compatible HTTP API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// NewClient creates a prayer-time API client with rate limiting and a
// bounded request timeout.
func NewClient(baseURL string, timeout time.Duration, requestsPerMinute int, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	rps := float64(requestsPerMinute) / 60.0
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		limiter:    rate.NewLimiter(rate.Limit(rps), 1),
		logger:     logger,
	}
}

// timingsResponse is the provider's response envelope.
type timingsResponse struct {
	Code int    `json:"code"`
	Data struct {
		Timings map[string]string `json:"timings"`
	} `json:"data"`
}

// Timings fetches prayer times for one location and day. Only the
// calculation-method parameters (angles, Asr school) are forwarded;
// per-prayer adjustments are applied downstream by the evaluator.
func (c *Client) Timings(ctx context.Context, lat, lng float64, at time.Time, settings Settings) (*Times, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	params := url.Values{}
	params.Set("latitude", strconv.FormatFloat(lat, 'f', -1, 64))
	params.Set("longitude", strconv.FormatFloat(lng, 'f', -1, 64))
	params.Set("school", strconv.Itoa(settings.AsrShadowSchool))
	if settings.FajrAngle > 0 || settings.IshaAngle > 0 {
		// Custom method: explicit twilight angles.
		fajr, isha := settings.FajrAngle, settings.IshaAngle
		if fajr == 0 {
			fajr = 18
		}
		if isha == 0 {
			isha = 17
		}
		params.Set("method", "99")
		params.Set("methodSettings", fmt.Sprintf("%g,null,%g", fajr, isha))
	} else {
		// ISNA — the product's historical default.
		params.Set("method", "2")
	}

	u := fmt.Sprintf("%s/v1/timings/%d?%s", c.baseURL, at.Unix(), params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("prayer api request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read prayer api response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("prayer api returned %d", resp.StatusCode)
	}

	var envelope timingsResponse
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("decode prayer api response: %w", err)
	}
	if envelope.Code != http.StatusOK {
		return nil, fmt.Errorf("prayer api status code %d", envelope.Code)
	}

	return parseTimings(envelope.Data.Timings)
}

// parseTimings converts the provider's "HH:MM" strings to minute-of-day.
// The five daily prayers are mandatory; Sunrise is optional.
func parseTimings(timings map[string]string) (*Times, error) {
	minutes := make(map[string]int, len(timingKeys))
	for _, key := range timingKeys {
		raw, ok := timings[key]
		if !ok {
			if key == "Sunrise" {
				minutes[key] = Absent
				continue
			}
			return nil, fmt.Errorf("prayer api response missing %s", key)
		}
		m, err := ParseClock(raw)
		if err != nil {
			return nil, fmt.Errorf("timing %s: %w", key, err)
		}
		minutes[key] = m
	}
	return &Times{
		Fajr:    minutes["Fajr"],
		Sunrise: minutes["Sunrise"],
		Dhuhr:   minutes["Dhuhr"],
		Asr:     minutes["Asr"],
		Maghrib: minutes["Maghrib"],
		Isha:    minutes["Isha"],
	}, nil
}
