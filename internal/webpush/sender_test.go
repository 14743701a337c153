package webpush

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendHeadersAndBody(t *testing.T) {
	var gotHeaders http.Header
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeaders = r.Header.Clone()
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	sender := NewSender(5*time.Second, 86400)
	record := []byte{0x01, 0x02, 0x03}

	outcome, err := sender.Send(context.Background(), srv.URL, record, "signed.jwt.token", "server-key")
	require.NoError(t, err)
	assert.Equal(t, OutcomeSent, outcome)

	assert.Equal(t, "vapid t=signed.jwt.token, k=server-key", gotHeaders.Get("Authorization"))
	assert.Equal(t, "application/octet-stream", gotHeaders.Get("Content-Type"))
	assert.Equal(t, "aes128gcm", gotHeaders.Get("Content-Encoding"))
	assert.Equal(t, "86400", gotHeaders.Get("TTL"))
	assert.Equal(t, record, gotBody)
}

func TestSendOutcomeByStatus(t *testing.T) {
	cases := []struct {
		status  int
		want    Outcome
		wantErr bool
	}{
		{http.StatusOK, OutcomeSent, false},
		{http.StatusCreated, OutcomeSent, false},
		{http.StatusNotFound, OutcomeGone, false},
		{http.StatusGone, OutcomeGone, false},
		{http.StatusBadRequest, OutcomeFailed, true},
		{http.StatusTooManyRequests, OutcomeFailed, true},
		{http.StatusInternalServerError, OutcomeFailed, true},
	}
	for _, tc := range cases {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "details from the push service", tc.status)
		}))

		outcome, err := NewSender(5*time.Second, 60).Send(context.Background(), srv.URL, []byte("x"), "t", "k")
		assert.Equal(t, tc.want, outcome, "status %d", tc.status)
		if tc.wantErr {
			assert.ErrorContains(t, err, "details from the push service", "status %d", tc.status)
		} else {
			assert.NoError(t, err, "status %d", tc.status)
		}
		srv.Close()
	}
}

func TestSendUnreachableEndpoint(t *testing.T) {
	outcome, err := NewSender(time.Second, 60).Send(context.Background(), "http://127.0.0.1:1", []byte("x"), "t", "k")
	assert.Equal(t, OutcomeFailed, outcome)
	assert.Error(t, err)
}
