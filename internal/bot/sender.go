package bot

import (
	"strings"
	"time"

	"go.uber.org/zap"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// botAPI is the outbound slice of the Bot API client the handlers use.
// *tgbotapi.BotAPI satisfies it; tests inject a fake.
type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Sender wraps outbound sends with retry handling for rate limits (429).
type Sender struct {
	api botAPI
	log *zap.Logger
}

func NewSender(api botAPI, log *zap.Logger) *Sender {
	return &Sender{api: api, log: log}
}

// maxRetries — how many attempts we make on 429.
const maxRetries = 3

// Send sends any Chattable (text, media, edits) retrying on 429.
func (s *Sender) Send(c tgbotapi.Chattable) error {
	var lastErr error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		_, err := s.api.Send(c)
		if err == nil {
			return nil
		}
		lastErr = err

		if !isRateLimited(err) {
			return err
		}

		wait := retryAfter(attempt)
		s.log.Warn("rate limited by Telegram, waiting",
			zap.Duration("wait", wait),
			zap.Int("attempt", attempt),
		)
		time.Sleep(wait)
	}
	return lastErr
}

// Text sends a plain text message, logging delivery failures.
func (s *Sender) Text(chatID int64, text string) {
	if err := s.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		s.log.Warn("failed to send text message",
			zap.Error(err),
			zap.Int64("chat_id", chatID),
		)
	}
}

// Callback answers a callback query, logging failures.
func (s *Sender) Callback(id, text string, alert bool) {
	cb := tgbotapi.NewCallback(id, text)
	if alert {
		cb = tgbotapi.NewCallbackWithAlert(id, text)
	}
	if _, err := s.api.Request(cb); err != nil {
		s.log.Warn("failed to answer callback", zap.Error(err))
	}
}

// isRateLimited reports whether the error is a 429 Too Many Requests.
func isRateLimited(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "429") || strings.Contains(msg, "Too Many Requests") || strings.Contains(msg, "retry after")
}

// retryAfter picks the wait before the next attempt. Telegram reports
// retry_after in the error, but a stepped backoff is close enough.
func retryAfter(attempt int) time.Duration {
	switch attempt {
	case 1:
		return 3 * time.Second
	case 2:
		return 10 * time.Second
	default:
		return 30 * time.Second
	}
}
