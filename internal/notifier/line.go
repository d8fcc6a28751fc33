package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	defaultPushURL  = "https://api.line.me/v2/bot/message/push"
	defaultReplyURL = "https://api.line.me/v2/bot/message/reply"
)

// LineClient talks to the LINE Messaging API. It implements Notifier for
// scheduler pushes and additionally exposes Reply for the webhook handler.
type LineClient struct {
	http     *http.Client
	token    string
	pushURL  string
	replyURL string
}

// LineOptions configures NewLineClient. URLs default to the public API and
// are overridable for tests.
type LineOptions struct {
	AccessToken string
	PushURL     string
	ReplyURL    string
	Timeout     time.Duration
}

// NewLineClient builds a client with the channel access token.
func NewLineClient(opts LineOptions) *LineClient {
	if opts.PushURL == "" {
		opts.PushURL = defaultPushURL
	}
	if opts.ReplyURL == "" {
		opts.ReplyURL = defaultReplyURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	return &LineClient{
		http:     &http.Client{Timeout: opts.Timeout},
		token:    opts.AccessToken,
		pushURL:  opts.PushURL,
		replyURL: opts.ReplyURL,
	}
}

type textMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Push sends a text message directly to a user.
func (c *LineClient) Push(ctx context.Context, owner, text string) error {
	payload := struct {
		To       string        `json:"to"`
		Messages []textMessage `json:"messages"`
	}{
		To:       owner,
		Messages: []textMessage{{Type: "text", Text: text}},
	}
	return c.send(ctx, c.pushURL, payload)
}

// Reply answers an inbound webhook event using its reply token.
func (c *LineClient) Reply(ctx context.Context, replyToken, text string) error {
	payload := struct {
		ReplyToken string        `json:"replyToken"`
		Messages   []textMessage `json:"messages"`
	}{
		ReplyToken: replyToken,
		Messages:   []textMessage{{Type: "text", Text: text}},
	}
	return c.send(ctx, c.replyURL, payload)
}

func (c *LineClient) send(ctx context.Context, url string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDelivery, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: channel returned status %d", ErrDelivery, resp.StatusCode)
	}
	return nil
}
