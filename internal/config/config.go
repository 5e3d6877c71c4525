package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"github.com/mattmezza/ticketwatch/internal/logging"
	"github.com/mattmezza/ticketwatch/internal/util"
)

const (
	DefaultInterval  = time.Hour
	DefaultStateFile = "monitor_state.json"
	DefaultTimeout   = 15 * time.Second

	// envVarPrefix namespaces per-channel secrets, e.g.
	// TICKETWATCH_TELEGRAM_TOKEN_OPS_TELEGRAM.
	envVarPrefix = "TICKETWATCH_"

	// Unprefixed variables used by single-channel deployments.
	EnvKeywords      = "KEYWORDS_ENV"
	EnvTelegramToken = "TELEGRAM_TOKEN"
	EnvChatID        = "CHAT_ID"
	EnvLogLevel      = envVarPrefix + "LOG_LEVEL"
)

type Config struct {
	IntervalStr          string                      `yaml:"interval"` // e.g. "1h", "3600"
	Schedule             string                      `yaml:"schedule"` // cron expression, replaces interval when set
	NotifyOnClear        bool                        `yaml:"notify_on_clear"`
	Sites                []SiteConfig                `yaml:"sites"`
	Keywords             []string                    `yaml:"keywords"`
	HTTP                 HTTPConfig                  `yaml:"http"`
	State                StateConfig                 `yaml:"state"`
	Log                  logging.Config              `yaml:"log"`
	NotificationChannels []NotificationChannelConfig `yaml:"notification_channels"`
	Templates            TemplateConfig              `yaml:"templates"`
	Interval             time.Duration               `yaml:"-"` // Derived
	Source               string                      `yaml:"-"` // file path, or "" when running on defaults
}

type SiteConfig struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

type HTTPConfig struct {
	TimeoutStr string        `yaml:"timeout"`
	UserAgent  string        `yaml:"user_agent"`
	Timeout    time.Duration `yaml:"-"` // Parsed
}

type StateConfig struct {
	Backend string `yaml:"backend"` // "json" or "sqlite"
	Path    string `yaml:"path"`
}

type NotificationChannelConfig struct {
	Name   string                 `yaml:"name"`
	Type   string                 `yaml:"type"` // "telegram", "email", "stdout"
	Config map[string]interface{} `yaml:"config"`
}

type EmailChannelConfig struct {
	SMTPHost     string   `yaml:"smtp_host"`
	SMTPPort     int      `yaml:"smtp_port"`
	SMTPUsername string   `yaml:"smtp_username"`
	SMTPPassword string   `yaml:"smtp_password"` // Will be populated from ENV
	SMTPFrom     string   `yaml:"smtp_from"`
	SMTPTo       []string `yaml:"smtp_to"`
	SMTPUseTLS   bool     `yaml:"smtp_use_tls"`
}

type TelegramChannelConfig struct {
	BotToken string `yaml:"bot_token"` // Will be populated from ENV
	ChatID   string `yaml:"chat_id"`
	APIBase  string `yaml:"api_base"`
}

type TemplateConfig struct {
	AlertFired   string `yaml:"alert_fired"`
	AlertCleared string `yaml:"alert_cleared"`
}

// DefaultSites are watched when the config names none.
var DefaultSites = []SiteConfig{
	{Name: "Fedefut", URL: "https://fedefutguate.gt/noticias/"},
	{Name: "Fanaticks", URL: "https://www.fanaticks.live/events"},
	{Name: "Todoticket", URL: "https://www.todoticket.com/"},
}

const (
	DefaultFiredTemplate   = "⚽ Venta de boletos detectada en {{.SiteName}}\nRevisa: {{.URL}}"
	DefaultClearedTemplate = "✅ {{.SiteName}} ya no muestra coincidencias\nRevisa: {{.URL}}"
)

// loadEnvFiles loads ENV_FILE when set, otherwise .env.local then .env.
// Missing files are not an error. Variables already set in the process
// environment win.
func loadEnvFiles() error {
	if envFile := os.Getenv("ENV_FILE"); envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("load env file %s: %w", envFile, err)
		}
		return nil
	}
	for _, f := range []string{".env.local", ".env"} {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// LoadConfig reads the YAML file at filePath, applies .env files and
// environment overrides, fills defaults and validates the result. A
// missing file is not an error: the returned config runs on defaults and
// environment values only.
func LoadConfig(filePath string) (*Config, error) {
	if err := loadEnvFiles(); err != nil {
		return nil, err
	}

	var cfg Config
	data, err := os.ReadFile(filePath)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config YAML from %s: %w", filePath, err)
		}
		cfg.Source = filePath
	case errors.Is(err, os.ErrNotExist):
		// run on defaults
	default:
		return nil, fmt.Errorf("failed to read config file %s: %w", filePath, err)
	}

	if err := cfg.finalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (cfg *Config) finalize() error {
	var err error

	cfg.Interval, err = util.ParseDurationString(cfg.IntervalStr)
	if err != nil {
		return fmt.Errorf("interval: %w", err)
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}

	cfg.Schedule = strings.TrimSpace(cfg.Schedule)
	if cfg.Schedule != "" {
		if _, err := cron.ParseStandard(cfg.Schedule); err != nil {
			return fmt.Errorf("schedule %q: %w", cfg.Schedule, err)
		}
	}

	cfg.HTTP.Timeout, err = util.ParseDurationString(cfg.HTTP.TimeoutStr)
	if err != nil {
		return fmt.Errorf("http.timeout: %w", err)
	}
	if cfg.HTTP.Timeout <= 0 {
		cfg.HTTP.Timeout = DefaultTimeout
	}

	switch strings.ToLower(strings.TrimSpace(cfg.State.Backend)) {
	case "", "json":
		cfg.State.Backend = "json"
		if strings.TrimSpace(cfg.State.Path) == "" {
			cfg.State.Path = DefaultStateFile
		}
	case "sqlite":
		cfg.State.Backend = "sqlite"
		if strings.TrimSpace(cfg.State.Path) == "" {
			cfg.State.Path = "monitor_state.db"
		}
	default:
		return fmt.Errorf("state backend '%s' is not supported (use json or sqlite)", cfg.State.Backend)
	}

	if lvl := os.Getenv(EnvLogLevel); lvl != "" {
		cfg.Log.Level = lvl
	}

	if len(cfg.Sites) == 0 {
		cfg.Sites = append([]SiteConfig(nil), DefaultSites...)
	}
	seen := make(map[string]bool, len(cfg.Sites))
	for i := range cfg.Sites {
		site := &cfg.Sites[i]
		site.Name = strings.TrimSpace(site.Name)
		site.URL = strings.TrimSpace(site.URL)
		if site.Name == "" {
			return fmt.Errorf("site at index %d missing name", i)
		}
		if seen[site.Name] {
			return fmt.Errorf("duplicate site name: %s", site.Name)
		}
		seen[site.Name] = true
		u, err := url.Parse(site.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("site '%s' has invalid url '%s'", site.Name, site.URL)
		}
	}

	cfg.Keywords = mergeKeywords(cfg.Keywords, util.ParseList(os.Getenv(EnvKeywords)))

	if len(cfg.NotificationChannels) == 0 {
		cfg.NotificationChannels = []NotificationChannelConfig{{Name: "telegram", Type: "telegram"}}
	}
	names := make(map[string]bool, len(cfg.NotificationChannels))
	for i := range cfg.NotificationChannels {
		nc := &cfg.NotificationChannels[i]
		if nc.Name == "" {
			return fmt.Errorf("notification channel at index %d missing name", i)
		}
		if names[nc.Name] {
			return fmt.Errorf("duplicate notification channel name defined: %s", nc.Name)
		}
		names[nc.Name] = true
		if nc.Config == nil {
			nc.Config = make(map[string]interface{})
		}
		if err := applyChannelSecrets(nc); err != nil {
			return err
		}
	}

	if cfg.Templates.AlertFired == "" {
		cfg.Templates.AlertFired = DefaultFiredTemplate
	}
	if cfg.Templates.AlertCleared == "" {
		cfg.Templates.AlertCleared = DefaultClearedTemplate
	}
	return nil
}

// applyChannelSecrets loads sensitive channel fields from the environment.
// Naming convention: TICKETWATCH_<FIELD>_<CHANNEL_NAME_UPPERCASE>. Telegram
// channels fall back to the unprefixed TELEGRAM_TOKEN and CHAT_ID.
func applyChannelSecrets(nc *NotificationChannelConfig) error {
	channelNameUpper := strings.ToUpper(strings.ReplaceAll(nc.Name, "-", "_"))

	switch nc.Type {
	case "telegram":
		tokenEnvKey := fmt.Sprintf("%sTELEGRAM_TOKEN_%s", envVarPrefix, channelNameUpper)
		if token := firstEnv(tokenEnvKey, EnvTelegramToken); token != "" {
			nc.Config["bot_token"] = token
		}
		if s, _ := nc.Config["chat_id"].(string); s == "" {
			chatEnvKey := fmt.Sprintf("%sTELEGRAM_CHAT_ID_%s", envVarPrefix, channelNameUpper)
			if chatID := firstEnv(chatEnvKey, EnvChatID); chatID != "" {
				nc.Config["chat_id"] = chatID
			}
		}
	case "email":
		passwordEnvKey := fmt.Sprintf("%sSMTP_PASSWORD_%s", envVarPrefix, channelNameUpper)
		if pass := os.Getenv(passwordEnvKey); pass != "" {
			nc.Config["smtp_password"] = pass
		}
	case "stdout":
		// No sensitive data
	default:
		return fmt.Errorf("notification channel '%s' has unknown type '%s'", nc.Name, nc.Type)
	}
	return nil
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(os.Getenv(k)); v != "" {
			return v
		}
	}
	return ""
}

func mergeKeywords(lists ...[]string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, list := range lists {
		for _, k := range list {
			k = strings.TrimSpace(k)
			if k == "" || seen[k] {
				continue
			}
			seen[k] = true
			out = append(out, k)
		}
	}
	return out
}

// GetEmailChannelConfig converts the generic channel map into typed email settings.
func GetEmailChannelConfig(nc NotificationChannelConfig) (*EmailChannelConfig, error) {
	if nc.Type != "email" {
		return nil, fmt.Errorf("not an email channel")
	}
	var emailCfg EmailChannelConfig
	if host, ok := nc.Config["smtp_host"].(string); ok {
		emailCfg.SMTPHost = host
	} else {
		return nil, fmt.Errorf("channel '%s': smtp_host missing or not a string", nc.Name)
	}
	if port, ok := nc.Config["smtp_port"].(int); ok {
		emailCfg.SMTPPort = port
	} else {
		return nil, fmt.Errorf("channel '%s': smtp_port missing or not an int", nc.Name)
	}
	if user, ok := nc.Config["smtp_username"].(string); ok {
		emailCfg.SMTPUsername = user
	}
	if pass, ok := nc.Config["smtp_password"].(string); ok {
		emailCfg.SMTPPassword = pass
	}
	if from, ok := nc.Config["smtp_from"].(string); ok {
		emailCfg.SMTPFrom = from
	} else {
		return nil, fmt.Errorf("channel '%s': smtp_from missing or not a string", nc.Name)
	}
	if toVal, ok := nc.Config["smtp_to"].([]interface{}); ok {
		for _, t := range toVal {
			if tStr, ok := t.(string); ok {
				emailCfg.SMTPTo = append(emailCfg.SMTPTo, tStr)
			}
		}
	} else {
		return nil, fmt.Errorf("channel '%s': smtp_to missing or not a list of strings", nc.Name)
	}
	if useTLS, ok := nc.Config["smtp_use_tls"].(bool); ok {
		emailCfg.SMTPUseTLS = useTLS
	}

	if emailCfg.SMTPHost == "" || emailCfg.SMTPPort == 0 || emailCfg.SMTPFrom == "" || len(emailCfg.SMTPTo) == 0 {
		return nil, fmt.Errorf("channel '%s': one or more required email config fields are missing (host, port, from, to)", nc.Name)
	}
	return &emailCfg, nil
}

// GetTelegramChannelConfig converts the generic channel map into typed
// Telegram settings. Missing credentials are not an error here: the
// notifier reports them when it is asked to send.
func GetTelegramChannelConfig(nc NotificationChannelConfig) (*TelegramChannelConfig, error) {
	if nc.Type != "telegram" {
		return nil, fmt.Errorf("not a telegram channel")
	}
	var telegramCfg TelegramChannelConfig
	if token, ok := nc.Config["bot_token"].(string); ok {
		telegramCfg.BotToken = token
	}
	switch chatID := nc.Config["chat_id"].(type) {
	case string:
		telegramCfg.ChatID = chatID
	case int:
		telegramCfg.ChatID = fmt.Sprint(chatID)
	case nil:
	default:
		return nil, fmt.Errorf("channel '%s': chat_id must be a string or integer", nc.Name)
	}
	if base, ok := nc.Config["api_base"].(string); ok {
		telegramCfg.APIBase = base
	}
	return &telegramCfg, nil
}
