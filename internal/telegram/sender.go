package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"formazing-backend/config"
	"formazing-backend/internal/model"
)

// Sender posts HTML messages to Telegram groups through the Bot API.
type Sender struct {
	baseURL string
	token   string
	limiter *rate.Limiter
	client  *http.Client
	log     logrus.FieldLogger
}

// NewSender creates a Sender. Outgoing messages are throttled to the configured rate.
func NewSender(cfg *config.TelegramConfig, token string, log logrus.FieldLogger) *Sender {
	return &Sender{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   token,
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1),
		client:  &http.Client{Timeout: cfg.Timeout},
		log:     log,
	}
}

type sendMessageRequest struct {
	ChatID                string `json:"chat_id"`
	MessageThreadID       int64  `json:"message_thread_id,omitempty"`
	Text                  string `json:"text"`
	ParseMode             string `json:"parse_mode"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview"`
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	ErrorCode   int    `json:"error_code"`
	Description string `json:"description"`
}

// Send delivers text to one target. It returns an error on any transport or
// API failure and never panics.
func (s *Sender) Send(ctx context.Context, target model.Target, text string) error {
	if target.ChatID == "" {
		return fmt.Errorf("target %s has no chat id", target.Key)
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	body, err := json.Marshal(sendMessageRequest{
		ChatID:                target.ChatID,
		MessageThreadID:       target.TopicID,
		Text:                  text,
		ParseMode:             "HTML",
		DisableWebPagePreview: true,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/bot"+s.token+"/sendMessage", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		// The URL embeds the bot token; keep it out of the error text.
		return fmt.Errorf("telegram request to %s failed: %w", target.Key, redact(err, s.token))
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read telegram response: %w", err)
	}

	var out apiResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return fmt.Errorf("telegram returned %d with an unreadable body", resp.StatusCode)
	}
	if !out.OK {
		return fmt.Errorf("telegram rejected message to %s (%d): %s", target.Key, out.ErrorCode, out.Description)
	}

	s.log.WithFields(logrus.Fields{
		"target":   target.Key,
		"chat_id":  target.ChatID,
		"topic_id": target.TopicID,
	}).Debug("telegram message sent")
	return nil
}

func redact(err error, token string) error {
	if token == "" {
		return err
	}
	return fmt.Errorf("%s", strings.ReplaceAll(err.Error(), token, "<token>"))
}

// Targets converts the configured groups into messaging targets keyed by group name.
func Targets(groups map[string]config.TelegramGroup) map[string]model.Target {
	out := make(map[string]model.Target, len(groups))
	for key, g := range groups {
		out[key] = model.Target{Key: key, ChatID: g.ChatID, TopicID: g.TopicID}
	}
	return out
}
