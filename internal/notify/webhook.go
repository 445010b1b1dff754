// Package notify tells other systems that a gallery was published.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/kilupskalvis/mosgal/internal/models"
)

// EventPublish is sent after a site was written.
const EventPublish = "publish"

// Event is the payload posted to webhook URLs.
type Event struct {
	Event       string         `json:"event"`
	Site        string         `json:"site"`
	RunID       string         `json:"run_id"`
	Destination string         `json:"destination"`
	Pictures    int            `json:"pictures"`
	Collections map[string]int `json:"collections"`
	Timestamp   string         `json:"timestamp"`
}

// Webhooks posts a publish event to every URL. It runs as the last writer
// of an update. Delivery failures are logged and do not fail the run.
type Webhooks struct {
	URLs   []string
	Site   string
	RunID  string
	Retry  RetryConfig
	Client *http.Client
	Logger *slog.Logger
	Now    func() time.Time
}

func (wh *Webhooks) Write(ctx context.Context, collections models.Collections, destination string) error {
	if len(wh.URLs) == 0 {
		return nil
	}
	log := wh.Logger
	if log == nil {
		log = slog.Default()
	}

	data, err := json.Marshal(wh.event(collections, destination))
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	for _, url := range wh.URLs {
		attempts, err := wh.deliver(ctx, url, data)
		if err != nil {
			log.Warn("webhook delivery failed", "url", url, "attempts", attempts, "error", err)
			continue
		}
		log.Debug("webhook delivered", "url", url, "event", EventPublish, "attempts", attempts)
	}
	return ctx.Err()
}

func (wh *Webhooks) Name() string { return "webhooks" }

func (wh *Webhooks) event(collections models.Collections, destination string) *Event {
	now := time.Now
	if wh.Now != nil {
		now = wh.Now
	}

	ev := &Event{
		Event:       EventPublish,
		Site:        wh.Site,
		RunID:       wh.RunID,
		Destination: destination,
		Collections: make(map[string]int, len(collections)),
		Timestamp:   now().UTC().Format(time.RFC3339),
	}
	seen := make(map[string]bool)
	for _, c := range collections {
		ev.Collections[c.Name] = len(c.Elements)
		for _, f := range c.Files() {
			seen[f.Source] = true
		}
	}
	ev.Pictures = len(seen)
	return ev
}

// deliver posts data to url until it is accepted, refused, or the retry
// budget runs out, and returns the number of attempts made.
func (wh *Webhooks) deliver(ctx context.Context, url string, data []byte) (int, error) {
	for attempt := 0; ; attempt++ {
		err := wh.post(ctx, url, data)
		if err == nil {
			return attempt + 1, nil
		}
		if !redeliverable(err) {
			return attempt + 1, err
		}
		if attempt >= wh.Retry.MaxRetries {
			return attempt + 1, fmt.Errorf("%w (after %d retries)", err, wh.Retry.MaxRetries)
		}

		timer := time.NewTimer(wh.Retry.wait(attempt, err))
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return attempt + 1, fmt.Errorf("%w (retry cancelled)", err)
		}
	}
}

// post sends a single webhook POST.
func (wh *Webhooks) post(ctx context.Context, url string, data []byte) error {
	client := wh.Client
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "mosgal/1.0")

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusError(url, resp)
	}
	return nil
}
