package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// Default channel and endpoint values used when the config file and the
// environment leave them unset.
const (
	DefaultChannel      = "@anbuinfosec_official"
	DefaultChannelURL   = "https://t.me/anbuinfosec_official"
	DefaultDeveloperURL = "https://t.me/anbuinfosec"
	DefaultEndpoint     = "https://api.anbuinfosec.xyz/api/downloader/download"
	DefaultSweep        = "@every 1h"
)

// scheduleParser matches the parser the sweeper runs schedules with.
var scheduleParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

type Config struct {
	DataDir       string `json:"data_dir"`
	LogLevel      string `json:"log_level"`
	MaxConcurrent int    `json:"max_concurrent"`
	MaxTransfers  int    `json:"max_transfers"`
	AutoDelete    string `json:"auto_delete"`
	Telegram      struct {
		Token        string `json:"token"`
		Channel      string `json:"channel"`
		ChannelURL   string `json:"channel_url"`
		DeveloperURL string `json:"developer_url"`
		PollTimeout  int    `json:"poll_timeout"`
	} `json:"telegram"`
	Downloader struct {
		Endpoint string `json:"endpoint"`
		APIKey   string `json:"api_key"`
	} `json:"downloader"`
	Transient struct {
		Dir           string `json:"dir"`
		SweepSchedule string `json:"sweep_schedule"`
		MaxAge        string `json:"max_age"`
	} `json:"transient"`
	HTTP struct {
		Enabled       bool   `json:"enabled"`
		Listen        string `json:"listen"`
		WebhookSecret string `json:"webhook_secret"`
	} `json:"http"`
}

func defaults() *Config {
	cfg := &Config{
		DataDir:       filepath.Join(os.Getenv("HOME"), ".mediagate"),
		LogLevel:      "info",
		MaxConcurrent: 8,
		MaxTransfers:  4,
		AutoDelete:    "24h",
	}
	cfg.Telegram.Channel = DefaultChannel
	cfg.Telegram.ChannelURL = DefaultChannelURL
	cfg.Telegram.DeveloperURL = DefaultDeveloperURL
	cfg.Telegram.PollTimeout = 30
	cfg.Downloader.Endpoint = DefaultEndpoint
	cfg.Transient.SweepSchedule = DefaultSweep
	cfg.Transient.MaxAge = "6h"
	cfg.HTTP.Listen = "127.0.0.1:8080"
	return cfg
}

func Load(path string) (*Config, error) {
	cfg := defaults()

	// Load from file if exists, otherwise write defaults
	if _, err := os.Stat(path); err == nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	} else if os.IsNotExist(err) {
		if err := Save(path, cfg); err != nil {
			return nil, err
		}
	}

	// Override from env (highest precedence)
	if v := firstEnv("BOT_TOKEN", "TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.Token = v
	}
	if v := firstEnv("API_KEY", "DOWNLOADER_API_KEY"); v != "" {
		cfg.Downloader.APIKey = v
	}
	if v := os.Getenv("CHANNEL_USERNAME"); v != "" {
		cfg.Telegram.Channel = v
	}
	if v := os.Getenv("DOWNLOADER_ENDPOINT"); v != "" {
		cfg.Downloader.Endpoint = v
	}

	return cfg, nil
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}

// Validate reports every setting that would stop the bot from starting.
func (c *Config) Validate() error {
	var errs []error
	if c.Telegram.Token == "" {
		errs = append(errs, errors.New("telegram.token is required (or set BOT_TOKEN)"))
	}
	if c.Downloader.APIKey == "" {
		errs = append(errs, errors.New("downloader.api_key is required (or set API_KEY)"))
	}
	if c.Telegram.Channel == "" {
		errs = append(errs, errors.New("telegram.channel is required"))
	}
	if err := c.checkSettings(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// checkSettings validates the values that have a format. Secrets and the
// channel may still be unset, so config set can run before setup finishes.
func (c *Config) checkSettings() error {
	var errs []error
	if _, err := c.AutoDeleteAfter(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.TransientMaxAge(); err != nil {
		errs = append(errs, err)
	}
	if _, err := scheduleParser.Parse(c.SweepSchedule()); err != nil {
		errs = append(errs, fmt.Errorf("transient.sweep_schedule: %w", err))
	}
	switch strings.ToLower(c.LogLevel) {
	case "", "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log_level: unknown level %q", c.LogLevel))
	}
	for key, n := range map[string]int{
		"max_concurrent":        c.MaxConcurrent,
		"max_transfers":         c.MaxTransfers,
		"telegram.poll_timeout": c.Telegram.PollTimeout,
	} {
		if n < 0 {
			errs = append(errs, fmt.Errorf("%s: must not be negative", key))
		}
	}
	return errors.Join(errs...)
}

// SweepSchedule is the sweeper's cron schedule, defaulting to hourly.
func (c *Config) SweepSchedule() string {
	if c.Transient.SweepSchedule != "" {
		return c.Transient.SweepSchedule
	}
	return DefaultSweep
}

// AutoDeleteAfter is the delay before bot and user messages are removed.
func (c *Config) AutoDeleteAfter() (time.Duration, error) {
	return parseDuration("auto_delete", c.AutoDelete, 24*time.Hour)
}

// TransientMaxAge is the age after which the sweeper removes leftovers.
func (c *Config) TransientMaxAge() (time.Duration, error) {
	return parseDuration("transient.max_age", c.Transient.MaxAge, 6*time.Hour)
}

// TransientDir is the transient storage directory, defaulting to
// <data_dir>/downloads.
func (c *Config) TransientDir() string {
	if c.Transient.Dir != "" {
		return c.Transient.Dir
	}
	return filepath.Join(c.DataDir, "downloads")
}

// EnsureDirs creates the data and transient directories if they are absent.
func (c *Config) EnsureDirs() error {
	if err := os.MkdirAll(c.DataDir, 0755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	if err := os.MkdirAll(c.TransientDir(), 0755); err != nil {
		return fmt.Errorf("create transient dir: %w", err)
	}
	return nil
}

func parseDuration(key, s string, def time.Duration) (time.Duration, error) {
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s: must not be negative", key)
	}
	return d, nil
}

// Save writes cfg to path atomically, creating the parent directory.
func Save(path string, cfg *Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return writeAtomic(path, data)
}

func writeAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data = append(data, '\n')
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename config: %w", err)
	}
	return nil
}

// ToMap converts cfg into its nested JSON map form.
func ToMap(cfg *Config) (map[string]any, error) {
	data, err := json.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("unmarshal config map: %w", err)
	}
	return m, nil
}

// ListValues returns cfg as flat dot-separated keys, optionally masking
// secrets.
func ListValues(cfg *Config, mask bool) (map[string]any, error) {
	m, err := ToMap(cfg)
	if err != nil {
		return nil, err
	}
	flat := Flatten(m)
	if mask {
		flat = MaskSecrets(flat)
	}
	return flat, nil
}

// GetValue reads one dot-separated key from the config file, writing the
// defaults first when the file does not exist yet.
func GetValue(path, key string) (any, error) {
	if _, err := Load(path); err != nil {
		return nil, err
	}
	flat, err := readFlat(path)
	if err != nil {
		return nil, err
	}
	v, ok := flat[key]
	if !ok {
		return nil, fmt.Errorf("unknown config key: %s", key)
	}
	return v, nil
}

// SetValue sets one dot-separated key in an existing config file. Only keys
// of Config are accepted, and the value is converted to the key's type. The
// file is left untouched when the edited config fails checkSettings.
func SetValue(path, key, raw string) error {
	v, err := coerce(key, raw)
	if err != nil {
		return err
	}
	flat, err := readFlat(path)
	if err != nil {
		return err
	}
	flat[key] = v

	data, err := json.MarshalIndent(Unflatten(flat), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	edited := defaults()
	if err := json.Unmarshal(data, edited); err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	if err := edited.checkSettings(); err != nil {
		return err
	}
	return writeAtomic(path, data)
}

// coerce converts raw to the JSON type the default value of key has.
func coerce(key, raw string) (any, error) {
	def, ok := knownKeys()[key]
	if !ok {
		return nil, fmt.Errorf("unknown config key: %s", key)
	}
	switch def.(type) {
	case bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("%s: expected true or false, got %q", key, raw)
		}
		return b, nil
	case float64:
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("%s: expected an integer, got %q", key, raw)
		}
		return n, nil
	default:
		return raw, nil
	}
}

// knownKeys maps every settable key to its default value.
func knownKeys() map[string]any {
	flat, err := ListValues(defaults(), false)
	if err != nil {
		return map[string]any{}
	}
	return flat
}

func readFlat(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", filepath.Base(path), err)
	}
	return Flatten(m), nil
}

// MaskValue masks a single value when key is a secret.
func MaskValue(key string, v any) any {
	if s, ok := v.(string); ok && IsSecretKey(key) {
		return maskString(s)
	}
	return v
}
