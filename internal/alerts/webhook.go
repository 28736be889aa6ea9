package alerts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/kalcerwatch/kalcerwatch/internal/config"
)

const defaultTelegramAPI = "https://api.telegram.org"

// deliver sends webhook notifications for a to all given targets.
// Errors are logged but do not affect the caller.
func (e *Engine) deliver(webhooks []config.WebhookConfig, a *Alert) {
	for _, wh := range webhooks {
		var err error
		switch wh.Type {
		case "slack":
			err = e.withURL(wh, a, e.sendSlack)
		case "teams":
			err = e.withURL(wh, a, e.sendTeams)
		case "pagerduty", "http":
			err = e.withURL(wh, a, e.sendHTTP)
		case "telegram":
			err = e.sendTelegram(wh, a)
		default:
			slog.Warn("alerts: unknown webhook type, skipping", "type", wh.Type)
			continue
		}

		if err != nil {
			slog.Error("alerts: webhook delivery failed",
				"type", wh.Type,
				"rule", a.RuleName,
				"err", err,
			)
		} else {
			slog.Debug("alerts: webhook delivered",
				"type", wh.Type,
				"rule", a.RuleName,
				"state", a.State,
			)
		}
	}
}

// withURL resolves the target URL and skips the target quietly when unset.
func (e *Engine) withURL(wh config.WebhookConfig, a *Alert, send func(string, *Alert) error) error {
	url := wh.URL()
	if url == "" {
		return nil
	}
	return send(url, a)
}

func (e *Engine) sendSlack(url string, a *Alert) error {
	body, _ := json.Marshal(map[string]string{
		"text": fmt.Sprintf("*%s* %s", severityLabel(a.Severity), describe(a)),
	})
	return e.post(url, body)
}

func (e *Engine) sendTeams(url string, a *Alert) error {
	payload := map[string]interface{}{
		"@type":      "MessageCard",
		"@context":   "http://schema.org/extensions",
		"themeColor": severityColor(a.Severity),
		"summary":    a.RuleName,
		"title":      fmt.Sprintf("Kalcer Watch Alert: %s", a.RuleName),
		"text":       describe(a),
	}
	body, _ := json.Marshal(payload)
	return e.post(url, body)
}

func (e *Engine) sendHTTP(url string, a *Alert) error {
	body, _ := json.Marshal(map[string]interface{}{"alert": a})
	return e.post(url, body)
}

// sendTelegram messages every emergency contact that has a chat ID through
// the Bot API. url_env, when set, overrides the API base URL.
func (e *Engine) sendTelegram(wh config.WebhookConfig, a *Alert) error {
	token := wh.Token()
	if token == "" || e.recipients == nil {
		return nil
	}
	base := e.telegramAPI
	if u := wh.URL(); u != "" {
		base = u
	}
	endpoint := strings.TrimSuffix(base, "/") + "/bot" + token + "/sendMessage"

	ctx, cancel := context.WithTimeout(context.Background(), e.client.Timeout)
	defer cancel()
	list, err := e.recipients.DeviceList(ctx)
	if err != nil {
		return fmt.Errorf("list contacts: %w", err)
	}

	text := fmt.Sprintf("%s %s", severityLabel(a.Severity), describe(a))
	var sent, failed int
	for _, c := range list {
		if c.ChatID == "" {
			continue
		}
		sent++
		body, _ := json.Marshal(map[string]string{
			"chat_id": c.ChatID,
			"text":    text,
		})
		if err := e.post(endpoint, body); err != nil {
			// The token is part of the URL; log the contact, not the error URL.
			slog.Warn("alerts: telegram message failed", "contact", c.Name, "status", statusOf(err))
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("telegram: %d of %d messages failed", failed, sent)
	}
	return nil
}

func (e *Engine) post(url string, body []byte) error {
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("http post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return &statusError{code: resp.StatusCode}
	}
	return nil
}

type statusError struct{ code int }

func (s *statusError) Error() string { return fmt.Sprintf("webhook returned HTTP %d", s.code) }

func statusOf(err error) int {
	var se *statusError
	if errors.As(err, &se) {
		return se.code
	}
	return 0
}

func describe(a *Alert) string {
	if a.State == "resolved" {
		return fmt.Sprintf("%s resolved: %s", a.RuleName, a.Condition)
	}
	return a.Message
}

func severityLabel(s string) string {
	switch s {
	case "critical":
		return "[CRITICAL]"
	case "warning":
		return "[WARNING]"
	default:
		return "[INFO]"
	}
}

func severityColor(s string) string {
	switch s {
	case "critical":
		return "FF4F6A"
	case "warning":
		return "FFAB40"
	default:
		return "00D4FF"
	}
}
