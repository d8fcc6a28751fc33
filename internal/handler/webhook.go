package handler

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"io"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/example/course-watcher/internal/bot"
)

// Replier answers inbound webhook events; *notifier.LineClient satisfies it.
type Replier interface {
	Reply(ctx context.Context, replyToken, text string) error
}

// WebhookHandler receives chat events from the messaging channel, verifies
// their signature and routes text messages through the bot processor.
type WebhookHandler struct {
	secret  string
	bot     *bot.Processor
	replier Replier
}

// NewWebhookHandler wires the inbound message path.
func NewWebhookHandler(channelSecret string, processor *bot.Processor, replier Replier) *WebhookHandler {
	return &WebhookHandler{secret: channelSecret, bot: processor, replier: replier}
}

// webhookPayload mirrors the channel's event envelope; only text message
// events are acted on, everything else is ignored.
type webhookPayload struct {
	Events []struct {
		Type       string `json:"type"`
		ReplyToken string `json:"replyToken"`
		Source     struct {
			UserID string `json:"userId"`
		} `json:"source"`
		Message struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"message"`
	} `json:"events"`
}

// Callback handles POST /callback. A bad signature is a 400; everything past
// the signature check answers 200 so the channel does not retry messages we
// chose to skip.
func (h *WebhookHandler) Callback(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.String(http.StatusBadRequest, "read body")
	}
	signature := c.Request().Header.Get("X-Line-Signature")
	if !validSignature(h.secret, body, signature) {
		log.Printf("webhook: signature verification failed")
		return c.String(http.StatusBadRequest, "bad signature")
	}

	var payload webhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		log.Printf("webhook: malformed payload: %v", err)
		return c.String(http.StatusOK, "OK")
	}

	ctx := c.Request().Context()
	for _, ev := range payload.Events {
		if ev.Type != "message" || ev.Message.Type != "text" || ev.Source.UserID == "" {
			continue
		}
		reply := h.bot.Process(ctx, ev.Source.UserID, ev.Message.Text)
		if err := h.replier.Reply(ctx, ev.ReplyToken, reply); err != nil {
			log.Printf("webhook: reply to %s failed: %v", ev.Source.UserID, err)
		}
	}
	return c.String(http.StatusOK, "OK")
}

// validSignature checks the channel's HMAC-SHA256 signature over the raw
// request body.
func validSignature(secret string, body []byte, signature string) bool {
	if signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
