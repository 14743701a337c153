package webpush

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

// Outcome classifies a push service response.
type Outcome int

const (
	// OutcomeSent — 2xx, the push service accepted the message.
	OutcomeSent Outcome = iota
	// OutcomeGone — 404/410, the subscription no longer exists and must be
	// pruned from the registry.
	OutcomeGone
	// OutcomeFailed — anything else; the next cycle retries via the same
	// window logic.
	OutcomeFailed
)

// Sender delivers encrypted records to push service endpoints.
type Sender struct {
	httpClient *http.Client
	ttlSeconds int
}

// NewSender creates a Sender with a bounded per-request timeout so one slow
// push service cannot stall the whole batch.
func NewSender(timeout time.Duration, ttlSeconds int) *Sender {
	return &Sender{
		httpClient: &http.Client{Timeout: timeout},
		ttlSeconds: ttlSeconds,
	}
}

// Send POSTs an aes128gcm record to a subscriber's endpoint.
func (s *Sender) Send(ctx context.Context, endpoint string, record []byte, token, serverPublicKey string) (Outcome, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(record))
	if err != nil {
		return OutcomeFailed, fmt.Errorf("create push request: %w", err)
	}
	req.Header.Set("Authorization", fmt.Sprintf("vapid t=%s, k=%s", token, serverPublicKey))
	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set("Content-Encoding", "aes128gcm")
	req.Header.Set("TTL", strconv.Itoa(s.ttlSeconds))
	req.Header.Set("Urgency", "normal")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return OutcomeFailed, fmt.Errorf("push request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return OutcomeSent, nil
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return OutcomeGone, nil
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return OutcomeFailed, fmt.Errorf("push service returned %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}
}
