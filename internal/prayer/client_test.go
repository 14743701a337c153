package prayer

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const timingsBody = `{
	"code": 200,
	"status": "OK",
	"data": {
		"timings": {
			"Fajr": "05:10",
			"Sunrise": "06:45",
			"Dhuhr": "13:00",
			"Asr": "16:45",
			"Maghrib": "18:40 (CET)",
			"Isha": "20:00"
		}
	}
}`

// fastClient builds a client pointed at a test server with a rate limit
// high enough that tests never block on the limiter.
func fastClient(baseURL string) *Client {
	return NewClient(baseURL, 5*time.Second, 60000, nil)
}

func TestTimingsRequestShape(t *testing.T) {
	var gotPath string
	var gotQuery url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.Query()
		fmt.Fprint(w, timingsBody)
	}))
	defer srv.Close()

	at := time.Date(2026, 3, 15, 9, 0, 0, 0, time.UTC)
	times, err := fastClient(srv.URL).Timings(context.Background(), 48.8566, 2.3522, at, Settings{})
	require.NoError(t, err)

	assert.Equal(t, fmt.Sprintf("/v1/timings/%d", at.Unix()), gotPath)
	assert.Equal(t, "48.8566", gotQuery.Get("latitude"))
	assert.Equal(t, "2.3522", gotQuery.Get("longitude"))
	assert.Equal(t, "2", gotQuery.Get("method"))
	assert.Equal(t, "0", gotQuery.Get("school"))
	assert.Empty(t, gotQuery.Get("methodSettings"))

	assert.Equal(t, 310, times.Fajr)
	assert.Equal(t, 1120, times.Maghrib, "timezone suffix must be tolerated")
}

func TestTimingsCustomAngles(t *testing.T) {
	var gotQuery url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		fmt.Fprint(w, timingsBody)
	}))
	defer srv.Close()

	settings := Settings{FajrAngle: 15, IshaAngle: 12, AsrShadowSchool: 1}
	_, err := fastClient(srv.URL).Timings(context.Background(), 48.8, 2.3, time.Now(), settings)
	require.NoError(t, err)

	assert.Equal(t, "99", gotQuery.Get("method"))
	assert.Equal(t, "15,null,12", gotQuery.Get("methodSettings"))
	assert.Equal(t, "1", gotQuery.Get("school"))

	// A lone Isha angle still produces a complete custom method, with the
	// Fajr angle defaulted.
	_, err = fastClient(srv.URL).Timings(context.Background(), 48.8, 2.3, time.Now(), Settings{IshaAngle: 12})
	require.NoError(t, err)
	assert.Equal(t, "18,null,12", gotQuery.Get("methodSettings"))
}

func TestTimingsErrors(t *testing.T) {
	t.Run("http error status", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "too many requests", http.StatusTooManyRequests)
		}))
		defer srv.Close()

		_, err := fastClient(srv.URL).Timings(context.Background(), 48.8, 2.3, time.Now(), Settings{})
		assert.ErrorContains(t, err, "429")
	})

	t.Run("envelope error code", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"code": 400, "status": "BAD REQUEST", "data": {}}`)
		}))
		defer srv.Close()

		_, err := fastClient(srv.URL).Timings(context.Background(), 48.8, 2.3, time.Now(), Settings{})
		assert.ErrorContains(t, err, "400")
	})

	t.Run("malformed body", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, "<html>not json</html>")
		}))
		defer srv.Close()

		_, err := fastClient(srv.URL).Timings(context.Background(), 48.8, 2.3, time.Now(), Settings{})
		assert.Error(t, err)
	})

	t.Run("context cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := fastClient("http://127.0.0.1:1").Timings(ctx, 48.8, 2.3, time.Now(), Settings{})
		assert.Error(t, err)
	})
}
