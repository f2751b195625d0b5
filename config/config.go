// Package config carries the wiring configuration for the notifier CLI and
// any embedding service: which channels are enabled and the credentials each
// one needs.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/tinywideclouds/go-notify/pkg/notify"
)

type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
}

type VapidConfig struct {
	PublicKey       string
	PrivateKey      string
	SubscriberEmail string
}

type APNSConfig struct {
	KeyID        string
	TeamID       string
	BundleID     string
	P8KeyContent string
}

type SMTPConfig struct {
	Addr     string
	From     string
	Username string
	Password string
}

type SMSGatewayConfig struct {
	URL    string
	APIKey string
	Sender string
}

// Config defines the single, authoritative configuration.
type Config struct {
	ProjectID       string
	EnabledChannels []notify.Channel
	SendTimeout     time.Duration

	SMTP       SMTPConfig
	SMSGateway SMSGatewayConfig
	Redis      RedisConfig
	Vapid      VapidConfig
	APNS       APNSConfig
}

// ChannelEnabled reports whether the channel was switched on.
func (c *Config) ChannelEnabled(channel notify.Channel) bool {
	return slices.Contains(c.EnabledChannels, channel)
}

// UpdateConfigWithEnvOverrides applies environment variables and final
// validation. Environment values win over YAML.
func UpdateConfigWithEnvOverrides(cfg *Config, logger *slog.Logger) (*Config, error) {
	logger.Debug("Applying environment variable overrides...")

	if val := os.Getenv("PROJECT_ID"); val != "" {
		logger.Debug("Overriding config value", "key", "PROJECT_ID", "source", "env")
		cfg.ProjectID = val
	}
	if val := os.Getenv("ENABLED_CHANNELS"); val != "" {
		logger.Debug("Overriding config value", "key", "ENABLED_CHANNELS", "source", "env")
		channels, err := parseChannelList(val)
		if err != nil {
			return nil, err
		}
		cfg.EnabledChannels = channels
	}
	if val := os.Getenv("SEND_TIMEOUT"); val != "" {
		d, err := time.ParseDuration(val)
		if err != nil || d <= 0 {
			return nil, fmt.Errorf("SEND_TIMEOUT must be a positive duration: %q", val)
		}
		cfg.SendTimeout = d
	}

	// SMTP overrides
	if val := os.Getenv("SMTP_ADDR"); val != "" {
		cfg.SMTP.Addr = val
	}
	if val := os.Getenv("SMTP_FROM"); val != "" {
		cfg.SMTP.From = val
	}
	if val := os.Getenv("SMTP_USERNAME"); val != "" {
		cfg.SMTP.Username = val
	}
	if val := os.Getenv("SMTP_PASSWORD"); val != "" {
		cfg.SMTP.Password = val
	}

	// SMS gateway overrides
	if val := os.Getenv("SMS_GATEWAY_URL"); val != "" {
		cfg.SMSGateway.URL = val
	}
	if val := os.Getenv("SMS_GATEWAY_API_KEY"); val != "" {
		cfg.SMSGateway.APIKey = val
	}
	if val := os.Getenv("SMS_GATEWAY_SENDER"); val != "" {
		cfg.SMSGateway.Sender = val
	}

	// Redis overrides
	if val := os.Getenv("REDIS_ADDR"); val != "" {
		cfg.Redis.Addr = val
		cfg.Redis.Enabled = true
	}
	if val := os.Getenv("REDIS_PASSWORD"); val != "" {
		cfg.Redis.Password = val
	}
	if val := os.Getenv("REDIS_DB"); val != "" {
		if db, err := strconv.Atoi(val); err == nil {
			cfg.Redis.DB = db
		}
	}
	if val := os.Getenv("REDIS_ENABLED"); val != "" {
		enabled, _ := strconv.ParseBool(val)
		cfg.Redis.Enabled = enabled
	}

	// VAPID overrides
	if val := os.Getenv("VAPID_PUBLIC_KEY"); val != "" {
		cfg.Vapid.PublicKey = val
	}
	if val := os.Getenv("VAPID_PRIVATE_KEY"); val != "" {
		cfg.Vapid.PrivateKey = val
	}
	if val := os.Getenv("VAPID_SUB_EMAIL"); val != "" {
		cfg.Vapid.SubscriberEmail = val
	}

	// APNS overrides
	if val := os.Getenv("APNS_KEY_ID"); val != "" {
		cfg.APNS.KeyID = val
	}
	if val := os.Getenv("APNS_TEAM_ID"); val != "" {
		cfg.APNS.TeamID = val
	}
	if val := os.Getenv("APNS_BUNDLE_ID"); val != "" {
		cfg.APNS.BundleID = val
	}
	if val := os.Getenv("APNS_P8_KEY"); val != "" {
		cfg.APNS.P8KeyContent = val
	}

	// Final validation
	if len(cfg.EnabledChannels) == 0 {
		return nil, fmt.Errorf("at least one channel must be enabled (set via YAML or ENABLED_CHANNELS env var)")
	}
	if cfg.ChannelEnabled(notify.ChannelEmail) && (cfg.SMTP.Addr == "" || cfg.SMTP.From == "") {
		return nil, fmt.Errorf("EMAIL channel requires smtp addr and from")
	}
	if cfg.ChannelEnabled(notify.ChannelSMS) && cfg.SMSGateway.URL == "" {
		return nil, fmt.Errorf("SMS channel requires a gateway url")
	}
	if cfg.ChannelEnabled(notify.ChannelPush) {
		hasFCM := cfg.ProjectID != ""
		hasAPNS := cfg.APNS.KeyID != "" && cfg.APNS.TeamID != "" && cfg.APNS.P8KeyContent != ""
		hasWeb := cfg.Vapid.PublicKey != "" && cfg.Vapid.PrivateKey != ""
		if !hasFCM && !hasAPNS && !hasWeb {
			return nil, fmt.Errorf("PUSH channel requires at least one platform (project_id, apns or vapid)")
		}
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 30 * time.Second
	}

	logger.Debug("Configuration finalized and validated successfully")
	return cfg, nil
}

func parseChannelList(raw string) ([]notify.Channel, error) {
	var channels []notify.Channel
	for _, part := range strings.Split(raw, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		channel, err := notify.ParseChannel(part)
		if err != nil {
			return nil, fmt.Errorf("invalid channel list %q: %w", raw, err)
		}
		if !slices.Contains(channels, channel) {
			channels = append(channels, channel)
		}
	}
	return channels, nil
}
