package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kilupskalvis/mosgal/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetry() RetryConfig {
	return RetryConfig{MaxRetries: 2, InitialBackoff: time.Millisecond, MaxBackoff: 5 * time.Millisecond}
}

func albums() models.Collections {
	col := models.NewCollection("album")
	for _, name := range []string{"iceland", "paris"} {
		e := models.NewElement(name, models.String(name))
		e.Append(models.NewFileRecord(name+"/a.jpg", "/pics/"+name+"/a.jpg"))
		col.Append(e)
	}
	return models.Collections{col}
}

func TestRedeliverable(t *testing.T) {
	assert.False(t, redeliverable(nil))
	assert.True(t, redeliverable(&StatusError{Status: 502}))
	assert.True(t, redeliverable(&StatusError{Status: http.StatusTooManyRequests}))
	assert.False(t, redeliverable(&StatusError{Status: 404}))
	assert.False(t, redeliverable(context.Canceled))
	assert.True(t, redeliverable(errors.New("connection refused")))
}

func TestWait(t *testing.T) {
	c := RetryConfig{InitialBackoff: 100 * time.Millisecond, MaxBackoff: 300 * time.Millisecond}
	plain := errors.New("connection reset")

	assert.Equal(t, 100*time.Millisecond, c.wait(0, plain))
	assert.Equal(t, 200*time.Millisecond, c.wait(1, plain))
	assert.Equal(t, 300*time.Millisecond, c.wait(5, plain))

	hinted := &StatusError{Status: 503, RetryAfter: 250 * time.Millisecond}
	assert.Equal(t, 250*time.Millisecond, c.wait(0, hinted))
	hinted.RetryAfter = time.Minute
	assert.Equal(t, 300*time.Millisecond, c.wait(0, hinted))
}

func TestParseRetryAfter(t *testing.T) {
	now := time.Date(2021, 7, 1, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, 3*time.Second, parseRetryAfter("3", now))
	assert.Equal(t, 90*time.Second, parseRetryAfter("Thu, 01 Jul 2021 12:01:30 GMT", now))
	assert.Zero(t, parseRetryAfter("", now))
	assert.Zero(t, parseRetryAfter("soon", now))
	assert.Zero(t, parseRetryAfter("Thu, 01 Jul 2021 11:00:00 GMT", now))
}

func TestDeliver_StopsOnRefusal(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer ts.Close()

	wh := &Webhooks{Retry: fastRetry()}
	attempts, err := wh.deliver(context.Background(), ts.URL, []byte("{}"))

	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusBadRequest, se.Status)
	assert.Equal(t, 1, attempts)
	assert.Equal(t, int32(1), calls.Load())
}

func TestDeliver_GivesUp(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "0")
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer ts.Close()

	wh := &Webhooks{Retry: fastRetry()}
	attempts, err := wh.deliver(context.Background(), ts.URL, []byte("{}"))

	require.Error(t, err)
	assert.Equal(t, 3, attempts)
	assert.Contains(t, err.Error(), "after 2 retries")
}

func TestDeliver_CancelledWhileWaiting(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "30")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	wh := &Webhooks{Retry: RetryConfig{MaxRetries: 2, InitialBackoff: time.Millisecond, MaxBackoff: time.Minute}}
	attempts, err := wh.deliver(ctx, ts.URL, []byte("{}"))

	require.Error(t, err)
	assert.Equal(t, 1, attempts)
	assert.Contains(t, err.Error(), "retry cancelled")
}

func TestWebhooks_DeliversEvent(t *testing.T) {
	var received Event
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer ts.Close()

	now := time.Date(2021, 7, 1, 12, 0, 0, 0, time.UTC)
	wh := &Webhooks{URLs: []string{ts.URL}, Site: "Gallery", RunID: "run-1", Retry: fastRetry(), Now: func() time.Time { return now }}

	require.NoError(t, wh.Write(context.Background(), albums(), "/srv/html"))

	assert.Equal(t, Event{
		Event:       EventPublish,
		Site:        "Gallery",
		RunID:       "run-1",
		Destination: "/srv/html",
		Pictures:    2,
		Collections: map[string]int{"album": 2},
		Timestamp:   "2021-07-01T12:00:00Z",
	}, received)
}

func TestWebhooks_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	wh := &Webhooks{URLs: []string{ts.URL}, Retry: fastRetry()}
	require.NoError(t, wh.Write(context.Background(), albums(), "/srv/html"))
	assert.Equal(t, int32(3), calls.Load())
}

func TestWebhooks_FailureDoesNotFailRun(t *testing.T) {
	var good atomic.Int32
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer bad.Close()
	ok := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		good.Add(1)
	}))
	defer ok.Close()

	wh := &Webhooks{URLs: []string{bad.URL, ok.URL}, Retry: fastRetry()}
	require.NoError(t, wh.Write(context.Background(), albums(), "/srv/html"))
	assert.Equal(t, int32(1), good.Load())
}

func TestWebhooks_NoURLs(t *testing.T) {
	assert.NoError(t, (&Webhooks{}).Write(context.Background(), nil, ""))
}
