package notifier

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/mattmezza/ticketwatch/internal/config"
)

const defaultTelegramAPIBase = "https://api.telegram.org"

// TelegramNotifier posts plain-text messages through the Bot API
// sendMessage method using form-encoded fields.
type TelegramNotifier struct {
	name    string
	config  config.TelegramChannelConfig
	client  *http.Client
	limiter *rate.Limiter
}

// NewTelegramNotifier never fails on missing credentials: Send reports
// ErrMissingCredentials instead, without making a call.
func NewTelegramNotifier(name string, cfg config.TelegramChannelConfig) (*TelegramNotifier, error) {
	if cfg.APIBase == "" {
		cfg.APIBase = defaultTelegramAPIBase
	}
	if _, err := url.Parse(cfg.APIBase); err != nil {
		return nil, fmt.Errorf("telegram notifier '%s' has invalid api_base: %w", name, err)
	}
	return &TelegramNotifier{
		name:   name,
		config: cfg,
		client: &http.Client{Timeout: 10 * time.Second},
		// Telegram allows about one message per second per chat.
		limiter: rate.NewLimiter(rate.Every(time.Second), 1),
	}, nil
}

func (tn *TelegramNotifier) Name() string {
	return tn.name
}

func (tn *TelegramNotifier) Send(ctx context.Context, msg Message, templates Templates) error {
	if tn.config.BotToken == "" || tn.config.ChatID == "" {
		return fmt.Errorf("telegram channel '%s': %w (bot token and chat id are required)", tn.name, ErrMissingCredentials)
	}

	text, err := renderTemplate("telegram_message", templates.pick(msg.Event), msg)
	if err != nil {
		return fmt.Errorf("failed to render Telegram template for site '%s': %w", msg.SiteName, err)
	}

	if err := tn.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("telegram rate limiter: %w", err)
	}

	apiURL := fmt.Sprintf("%s/bot%s/sendMessage", strings.TrimRight(tn.config.APIBase, "/"), tn.config.BotToken)
	form := url.Values{}
	form.Set("chat_id", tn.config.ChatID)
	form.Set("text", text)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create Telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := tn.client.Do(req)
	if err != nil {
		// The URL embeds the token; keep it out of the error.
		return fmt.Errorf("failed to send message to Telegram API: %w", redactURLError(err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("telegram API request failed with status %d: %s", resp.StatusCode, string(bodyBytes))
	}
	return nil
}

func redactURLError(err error) error {
	if ue, ok := err.(*url.Error); ok {
		return fmt.Errorf("%s telegram sendMessage: %w", ue.Op, ue.Err)
	}
	return err
}
