package config

import (
	"log/slog"
	"strings"
	"time"
)

type YamlSMTPConfig struct {
	Addr     string `yaml:"addr"`
	From     string `yaml:"from"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

type YamlSMSGatewayConfig struct {
	URL    string `yaml:"url"`
	APIKey string `yaml:"api_key"`
	Sender string `yaml:"sender"`
}

type YamlRedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Enabled  bool   `yaml:"enabled"`
}

type YamlVapidConfig struct {
	PublicKey       string `yaml:"public_key"`
	PrivateKey      string `yaml:"private_key"`
	SubscriberEmail string `yaml:"subscriber_email"`
}

type YamlAPNSConfig struct {
	KeyID        string `yaml:"key_id"`
	TeamID       string `yaml:"team_id"`
	BundleID     string `yaml:"bundle_id"`
	P8KeyContent string `yaml:"p8_key"`
}

// YamlConfig is the structure that mirrors the raw config.yaml file.
type YamlConfig struct {
	ProjectID       string               `yaml:"project_id"`
	EnabledChannels []string             `yaml:"enabled_channels"`
	SendTimeout     string               `yaml:"send_timeout"`
	SMTPConfig      YamlSMTPConfig       `yaml:"smtp"`
	SMSGateway      YamlSMSGatewayConfig `yaml:"sms_gateway"`
	RedisConfig     YamlRedisConfig      `yaml:"redis"`
	VapidConfig     YamlVapidConfig      `yaml:"vapid"`
	APNSConfig      YamlAPNSConfig       `yaml:"apns"`
}

// NewConfigFromYaml converts the YamlConfig into a clean, base Config struct.
func NewConfigFromYaml(baseCfg *YamlConfig, logger *slog.Logger) (*Config, error) {
	logger.Debug("Mapping YAML config to base config struct")

	channels, err := parseChannelList(strings.Join(baseCfg.EnabledChannels, ","))
	if err != nil {
		return nil, err
	}

	var timeout time.Duration
	if baseCfg.SendTimeout != "" {
		timeout, err = time.ParseDuration(baseCfg.SendTimeout)
		if err != nil {
			return nil, err
		}
	}

	cfg := &Config{
		ProjectID:       baseCfg.ProjectID,
		EnabledChannels: channels,
		SendTimeout:     timeout,
		SMTP: SMTPConfig{
			Addr:     baseCfg.SMTPConfig.Addr,
			From:     baseCfg.SMTPConfig.From,
			Username: baseCfg.SMTPConfig.Username,
			Password: baseCfg.SMTPConfig.Password,
		},
		SMSGateway: SMSGatewayConfig{
			URL:    baseCfg.SMSGateway.URL,
			APIKey: baseCfg.SMSGateway.APIKey,
			Sender: baseCfg.SMSGateway.Sender,
		},
		Redis: RedisConfig{
			Addr:     baseCfg.RedisConfig.Addr,
			Password: baseCfg.RedisConfig.Password,
			DB:       baseCfg.RedisConfig.DB,
			Enabled:  baseCfg.RedisConfig.Enabled,
		},
		Vapid: VapidConfig{
			PublicKey:       baseCfg.VapidConfig.PublicKey,
			PrivateKey:      baseCfg.VapidConfig.PrivateKey,
			SubscriberEmail: baseCfg.VapidConfig.SubscriberEmail,
		},
		APNS: APNSConfig{
			KeyID:        baseCfg.APNSConfig.KeyID,
			TeamID:       baseCfg.APNSConfig.TeamID,
			BundleID:     baseCfg.APNSConfig.BundleID,
			P8KeyContent: baseCfg.APNSConfig.P8KeyContent,
		},
	}

	logger.Debug("YAML config mapping complete",
		"project_id", cfg.ProjectID,
		"enabled_channels", len(cfg.EnabledChannels),
	)

	return cfg, nil
}
