package notifier

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	gotexttemplate "text/template"
	"time"

	"github.com/rs/zerolog"

	"github.com/mattmezza/ticketwatch/internal/config"
)

// ErrMissingCredentials is returned by channels that cannot send because a
// token or recipient is not configured.
var ErrMissingCredentials = errors.New("missing notification credentials")

type Event string

const (
	EventFired   Event = "FIRED"
	EventCleared Event = "CLEARED"
)

// Message is the data passed to templates.
type Message struct {
	SiteName string
	URL      string
	Keyword  string // normalized keyword that matched (or last matched, for CLEARED)
	Event    Event
	Time     time.Time
}

type Templates struct {
	FiredTemplate   string
	ClearedTemplate string
}

// Notifier is the interface for all notification channel types.
type Notifier interface {
	Send(ctx context.Context, msg Message, templates Templates) error
	Name() string // Returns the configured channel name
}

func (t Templates) pick(ev Event) string {
	if ev == EventCleared {
		return t.ClearedTemplate
	}
	return t.FiredTemplate
}

func renderTemplate(templateName string, templateStr string, msg Message) (string, error) {
	tmpl, err := gotexttemplate.New(templateName).Option("missingkey=error").Parse(templateStr)
	if err != nil {
		return "", fmt.Errorf("failed to parse notification template '%s': %w", templateName, err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, msg); err != nil {
		return "", fmt.Errorf("failed to execute notification template '%s': %w", templateName, err)
	}
	return buf.String(), nil
}

// InitializeNotifiers builds one Notifier per configured channel. Channels
// with invalid settings are logged and skipped.
func InitializeNotifiers(cfgNotifChannels []config.NotificationChannelConfig, log zerolog.Logger) (map[string]Notifier, error) {
	notifiers := make(map[string]Notifier)
	for _, ncCfg := range cfgNotifChannels {
		var instance Notifier
		var err error
		switch ncCfg.Type {
		case "email":
			emailCfg, convErr := config.GetEmailChannelConfig(ncCfg)
			if convErr != nil {
				log.Warn().Err(convErr).Str("channel", ncCfg.Name).Msg("skipping email channel due to config error")
				continue
			}
			instance, err = NewEmailNotifier(ncCfg.Name, *emailCfg)
		case "telegram":
			telegramCfg, convErr := config.GetTelegramChannelConfig(ncCfg)
			if convErr != nil {
				log.Warn().Err(convErr).Str("channel", ncCfg.Name).Msg("skipping telegram channel due to config error")
				continue
			}
			instance, err = NewTelegramNotifier(ncCfg.Name, *telegramCfg)
		case "stdout":
			instance, err = NewStdoutNotifier(ncCfg.Name)
		default:
			log.Warn().Str("channel", ncCfg.Name).Str("type", ncCfg.Type).Msg("unsupported notification channel type, skipping")
			continue
		}

		if err != nil {
			log.Warn().Err(err).Str("channel", ncCfg.Name).Str("type", ncCfg.Type).Msg("failed to initialize notifier, skipping")
			continue
		}
		if _, exists := notifiers[ncCfg.Name]; exists {
			return nil, fmt.Errorf("duplicate notification channel name defined: %s", ncCfg.Name)
		}
		notifiers[ncCfg.Name] = instance
		log.Debug().Str("channel", ncCfg.Name).Str("type", ncCfg.Type).Msg("notifier initialized")
	}
	return notifiers, nil
}

// Dispatcher delivers a message to every channel. Delivery errors are
// logged and never returned.
type Dispatcher struct {
	notifiers []Notifier
	templates Templates
	log       zerolog.Logger
}

func NewDispatcher(notifiers map[string]Notifier, templates Templates, log zerolog.Logger) *Dispatcher {
	names := make([]string, 0, len(notifiers))
	for name := range notifiers {
		names = append(names, name)
	}
	sort.Strings(names)

	d := &Dispatcher{templates: templates, log: log}
	for _, name := range names {
		d.notifiers = append(d.notifiers, notifiers[name])
	}
	return d
}

// Channels returns the channel names in dispatch order.
func (d *Dispatcher) Channels() []string {
	out := make([]string, 0, len(d.notifiers))
	for _, n := range d.notifiers {
		out = append(out, n.Name())
	}
	return out
}

// Dispatch sends msg on every channel and reports how many succeeded.
func (d *Dispatcher) Dispatch(ctx context.Context, msg Message) int {
	if len(d.notifiers) == 0 {
		d.log.Error().Str("site", msg.SiteName).Msg("no notification channel configured, alert not delivered")
		return 0
	}
	sent := 0
	for _, n := range d.notifiers {
		if err := d.SendTo(ctx, n, msg); err == nil {
			sent++
		}
	}
	return sent
}

// SendTo delivers msg on a single channel, logging the outcome.
func (d *Dispatcher) SendTo(ctx context.Context, n Notifier, msg Message) error {
	err := n.Send(ctx, msg, d.templates)
	if err != nil {
		d.log.Error().Err(err).
			Str("channel", n.Name()).
			Str("site", msg.SiteName).
			Str("event", string(msg.Event)).
			Msg("failed to send notification")
		return err
	}
	d.log.Info().
		Str("channel", n.Name()).
		Str("site", msg.SiteName).
		Str("event", string(msg.Event)).
		Msg("notification sent")
	return nil
}

// Lookup returns the notifier registered under name.
func (d *Dispatcher) Lookup(name string) (Notifier, bool) {
	for _, n := range d.notifiers {
		if n.Name() == name {
			return n, true
		}
	}
	return nil, false
}
