package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/joescharf/reviewbot/internal/models"
)

// Payload is the JSON body posted for every notification. The text field
// makes it directly usable with chat "incoming webhook" endpoints.
type Payload struct {
	Kind      string         `json:"kind"` // channel or user
	Recipient string         `json:"recipient"`
	Variant   Variant        `json:"variant,omitempty"`
	Text      string         `json:"text"`
	Review    *models.Review `json:"review"`
	Actor     models.Party   `json:"actor"`
}

// DefaultTimeout bounds a webhook request when no timeout is configured.
const DefaultTimeout = 5 * time.Second

// Webhook posts notifications as JSON to a single URL.
type Webhook struct {
	url    string
	client *http.Client
}

// NewWebhook creates a webhook notifier. Every request is bounded by timeout.
func NewWebhook(url string, timeout time.Duration) *Webhook {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Webhook{url: url, client: &http.Client{Timeout: timeout}}
}

func (w *Webhook) NotifyChannel(ctx context.Context, channelID string, r *models.Review, actor models.Party, variant Variant) error {
	return w.post(ctx, Payload{
		Kind:      "channel",
		Recipient: channelID,
		Variant:   variant,
		Text:      Text(r, actor, variant),
		Review:    r,
		Actor:     actor,
	})
}

func (w *Webhook) NotifyUser(ctx context.Context, userID string, r *models.Review, actor models.Party, variant Variant) error {
	return w.post(ctx, Payload{
		Kind:      "user",
		Recipient: userID,
		Variant:   variant,
		Text:      Text(r, actor, variant),
		Review:    r,
		Actor:     actor,
	})
}

// NotifyReviewers posts one message per reviewer. A failed post does not
// stop the others; all failures are returned joined.
func (w *Webhook) NotifyReviewers(ctx context.Context, r *models.Review, excludeID string) error {
	var errs []error
	for _, p := range r.Reviewers {
		if p.ID == excludeID {
			continue
		}
		err := w.post(ctx, Payload{
			Kind:      "user",
			Recipient: p.ID,
			Variant:   VariantReviewRequest,
			Text:      Text(r, r.Creator, VariantReviewRequest),
			Review:    r,
			Actor:     r.Creator,
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("reviewer %s: %w", p.ID, err))
		}
	}
	return errors.Join(errs...)
}

func (w *Webhook) post(ctx context.Context, p Payload) error {
	body, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned %d", resp.StatusCode)
	}
	return nil
}
