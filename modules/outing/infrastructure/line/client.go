// Package line pushes outing notifications to a single fixed recipient over
// the messaging platform's push endpoint.
package line

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-faster/errors"

	"github.com/iota-uz/outing-approval/modules/outing/domain/entities/outingrequest"
	"github.com/iota-uz/outing-approval/pkg/composables"
	"github.com/iota-uz/outing-approval/pkg/metrics"
)

const pushPath = "/v2/bot/message/push"

type Config struct {
	BaseURL            string
	ChannelAccessToken string
	// TargetUserID receives every notification.
	TargetUserID string
	HTTPClient   *http.Client
}

type Client struct {
	baseURL   string
	token     string
	recipient string
	http      *http.Client
}

func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.line.me"
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		token:     cfg.ChannelAccessToken,
		recipient: cfg.TargetUserID,
		http:      cfg.HTTPClient,
	}
}

type pushRequest struct {
	To       string    `json:"to"`
	Messages []Message `json:"messages"`
}

// SendApprovalRequest pushes the approval card for rec. Without a configured
// recipient it does nothing.
func (c *Client) SendApprovalRequest(ctx context.Context, rec *outingrequest.Record) error {
	if c.recipient == "" {
		composables.UseLogger(ctx).WithField("outing-id", rec.ID).Debug("no notification recipient, skipping approval request")
		return nil
	}
	err := c.push(ctx, ApprovalCard(rec))
	metrics.RecordNotification("approval_request", err)
	return err
}

// SendOutcome pushes a plain text summary of a decision. Without a configured
// recipient it does nothing.
func (c *Client) SendOutcome(ctx context.Context, id string, status outingrequest.Status, comment string) error {
	if c.recipient == "" {
		return nil
	}
	err := c.push(ctx, OutcomeText(id, status, comment))
	metrics.RecordNotification("outcome", err)
	return err
}

func (c *Client) push(ctx context.Context, messages ...Message) error {
	body, err := json.Marshal(pushRequest{To: c.recipient, Messages: messages})
	if err != nil {
		return errors.Wrap(err, "failed to encode push request")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+pushPath, bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, "failed to build push request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrap(err, "push request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("push API returned %s: %s", resp.Status, strings.TrimSpace(string(msg)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
