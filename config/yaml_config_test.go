package config_test

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/tinywideclouds/go-notify/config"
	"github.com/tinywideclouds/go-notify/pkg/notify"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewConfigFromYaml(t *testing.T) {
	logger := newTestLogger()

	t.Run("Success - maps all fields correctly", func(t *testing.T) {
		yamlCfg := &config.YamlConfig{
			ProjectID:       "yaml-project",
			EnabledChannels: []string{"email", "sms", "push"},
			SendTimeout:     "10s",
			SMTPConfig: config.YamlSMTPConfig{
				Addr:     "smtp.example.com:587",
				From:     "noreply@example.com",
				Username: "mailer",
				Password: "secret",
			},
			SMSGateway: config.YamlSMSGatewayConfig{
				URL:    "https://sms.example.com/v1/messages",
				APIKey: "sms-key",
				Sender: "Notify",
			},
			RedisConfig: config.YamlRedisConfig{
				Addr:    "localhost:6379",
				Enabled: true,
				DB:      2,
			},
			VapidConfig: config.YamlVapidConfig{
				PublicKey:       "yaml-public-key",
				PrivateKey:      "yaml-private-key",
				SubscriberEmail: "yaml@test.com",
			},
			APNSConfig: config.YamlAPNSConfig{
				KeyID:    "K1",
				TeamID:   "T1",
				BundleID: "com.example.app",
			},
		}

		cfg, err := config.NewConfigFromYaml(yamlCfg, logger)

		require.NoError(t, err)
		require.NotNil(t, cfg)

		assert.Equal(t, "yaml-project", cfg.ProjectID)
		assert.Equal(t, []notify.Channel{
			notify.ChannelEmail, notify.ChannelSMS, notify.ChannelPush,
		}, cfg.EnabledChannels)
		assert.Equal(t, 10*time.Second, cfg.SendTimeout)

		assert.Equal(t, "smtp.example.com:587", cfg.SMTP.Addr)
		assert.Equal(t, "noreply@example.com", cfg.SMTP.From)

		assert.Equal(t, "https://sms.example.com/v1/messages", cfg.SMSGateway.URL)
		assert.Equal(t, "Notify", cfg.SMSGateway.Sender)

		assert.True(t, cfg.Redis.Enabled)
		assert.Equal(t, 2, cfg.Redis.DB)

		assert.Equal(t, "yaml-public-key", cfg.Vapid.PublicKey)
		assert.Equal(t, "yaml-private-key", cfg.Vapid.PrivateKey)
		assert.Equal(t, "yaml@test.com", cfg.Vapid.SubscriberEmail)

		assert.Equal(t, "K1", cfg.APNS.KeyID)
		assert.Equal(t, "com.example.app", cfg.APNS.BundleID)
	})

	t.Run("Success - handles missing optional fields gracefully", func(t *testing.T) {
		yamlCfg := &config.YamlConfig{
			EnabledChannels: []string{"EMAIL"},
		}

		cfg, err := config.NewConfigFromYaml(yamlCfg, logger)

		require.NoError(t, err)
		assert.Equal(t, []notify.Channel{notify.ChannelEmail}, cfg.EnabledChannels)
		assert.Zero(t, cfg.SendTimeout)
		assert.False(t, cfg.Redis.Enabled)
	})

	t.Run("Failure - unknown channel name", func(t *testing.T) {
		yamlCfg := &config.YamlConfig{
			EnabledChannels: []string{"email", "pigeon"},
		}

		_, err := config.NewConfigFromYaml(yamlCfg, logger)

		require.Error(t, err)
	})

	t.Run("Failure - bad timeout", func(t *testing.T) {
		yamlCfg := &config.YamlConfig{
			EnabledChannels: []string{"email"},
			SendTimeout:     "soonish",
		}

		_, err := config.NewConfigFromYaml(yamlCfg, logger)

		require.Error(t, err)
	})

	t.Run("Unmarshals from a raw YAML document", func(t *testing.T) {
		raw := []byte(`
project_id: raw-project
enabled_channels: [email]
smtp:
  addr: smtp.example.com:25
  from: noreply@example.com
redis:
  addr: localhost:6379
  enabled: true
`)
		var yamlCfg config.YamlConfig
		require.NoError(t, yaml.Unmarshal(raw, &yamlCfg))

		cfg, err := config.NewConfigFromYaml(&yamlCfg, logger)

		require.NoError(t, err)
		assert.Equal(t, "raw-project", cfg.ProjectID)
		assert.Equal(t, "smtp.example.com:25", cfg.SMTP.Addr)
		assert.True(t, cfg.Redis.Enabled)
	})
}
