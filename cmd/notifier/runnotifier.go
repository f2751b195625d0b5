package main

import (
	"context"
	_ "embed"
	"flag"
	"log/slog"
	"os"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"gopkg.in/yaml.v3"

	"github.com/tinywideclouds/go-notify/config"
	"github.com/tinywideclouds/go-notify/internal/platform/apns"
	"github.com/tinywideclouds/go-notify/internal/platform/fcm"
	"github.com/tinywideclouds/go-notify/internal/platform/web"
	"github.com/tinywideclouds/go-notify/internal/storage/cache"
	fsStore "github.com/tinywideclouds/go-notify/internal/storage/firestore"
	"github.com/tinywideclouds/go-notify/internal/storage/memory"
	"github.com/tinywideclouds/go-notify/pkg/channel/email"
	"github.com/tinywideclouds/go-notify/pkg/channel/push"
	"github.com/tinywideclouds/go-notify/pkg/channel/sms"
	"github.com/tinywideclouds/go-notify/pkg/dispatch"
	"github.com/tinywideclouds/go-notify/pkg/notify"
)

//go:embed local.yaml
var configFile []byte

func main() {
	var (
		channelFlag   = flag.String("channel", "email", "delivery channel: email, sms or push")
		toFlag        = flag.String("to", "", "recipient address (comma-separate for a batch)")
		messageFlag   = flag.String("message", "", "message body")
		subjectFlag   = flag.String("subject", "", "optional subject / title")
		registerToken = flag.String("register-fcm", "", "register an FCM token for -to instead of sending")
	)
	flag.Parse()

	var logLevel slog.Level
	switch os.Getenv("LOG_LEVEL") {
	case "debug", "DEBUG":
		logLevel = slog.LevelDebug
	case "info", "INFO":
		logLevel = slog.LevelInfo
	case "warn", "WARN":
		logLevel = slog.LevelWarn
	case "error", "ERROR":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})).With("service", "go-notify")
	slog.SetDefault(logger)

	ctx := context.Background()

	// --- Config Loading ---
	var yamlCfg config.YamlConfig
	if err := yaml.Unmarshal(configFile, &yamlCfg); err != nil {
		logger.Error("Failed to unmarshal embedded yaml config", "err", err)
		os.Exit(1)
	}
	baseCfg, err := config.NewConfigFromYaml(&yamlCfg, logger)
	if err != nil {
		logger.Error("Config failed", "err", err)
		os.Exit(1)
	}
	cfg, err := config.UpdateConfigWithEnvOverrides(baseCfg, logger)
	if err != nil {
		logger.Error("Config failed", "err", err)
		os.Exit(1)
	}

	dispatcher := dispatch.NewDispatcher(logger)

	var tokenStore push.TokenStore

	for _, ch := range cfg.EnabledChannels {
		switch ch {
		case notify.ChannelEmail:
			mailer := email.NewSMTPMailer(email.SMTPConfig{
				Addr:     cfg.SMTP.Addr,
				From:     cfg.SMTP.From,
				Username: cfg.SMTP.Username,
				Password: cfg.SMTP.Password,
			})
			if err := dispatcher.RegisterChannel(email.NewCapability(mailer, logger)); err != nil {
				logger.Error("Failed to register email channel", "err", err)
				os.Exit(1)
			}
		case notify.ChannelSMS:
			gateway := sms.NewHTTPGateway(sms.GatewayConfig{
				URL:    cfg.SMSGateway.URL,
				APIKey: cfg.SMSGateway.APIKey,
				Sender: cfg.SMSGateway.Sender,
			})
			if err := dispatcher.RegisterChannel(sms.NewCapability(gateway, logger)); err != nil {
				logger.Error("Failed to register sms channel", "err", err)
				os.Exit(1)
			}
		case notify.ChannelPush:
			store, closeStore, err := newTokenStore(ctx, cfg, logger)
			if err != nil {
				logger.Error("Token store failed", "err", err)
				os.Exit(1)
			}
			defer closeStore()
			tokenStore = store

			capability, err := newPushCapability(ctx, cfg, store, logger)
			if err != nil {
				logger.Error("Push capability failed", "err", err)
				os.Exit(1)
			}
			if err := dispatcher.RegisterChannel(capability); err != nil {
				logger.Error("Failed to register push channel", "err", err)
				os.Exit(1)
			}
		}
	}

	// --- Register mode ---
	if *registerToken != "" {
		if tokenStore == nil {
			logger.Error("PUSH channel must be enabled to register tokens")
			os.Exit(1)
		}
		if err := tokenStore.RegisterFCM(ctx, *toFlag, *registerToken); err != nil {
			logger.Error("Token registration failed", "err", err)
			os.Exit(1)
		}
		logger.Info("Token registered", "recipient", *toFlag)
		return
	}

	// --- Send mode ---
	channel, err := notify.ParseChannel(*channelFlag)
	if err != nil {
		logger.Error("Bad channel flag", "err", err)
		os.Exit(1)
	}

	var requests []*notify.Request
	for _, recipient := range strings.Split(*toFlag, ",") {
		opts := []notify.RequestOption{}
		if *subjectFlag != "" {
			opts = append(opts, notify.WithSubject(*subjectFlag))
		}
		req, err := notify.NewRequest(channel, recipient, *messageFlag, opts...)
		if err != nil {
			logger.Error("Invalid request", "recipient", recipient, "err", err)
			os.Exit(1)
		}
		requests = append(requests, req)
	}

	async := dispatch.NewAsyncDispatcher(dispatcher, logger)

	sendCtx, cancel := context.WithTimeout(ctx, time.Duration(len(requests))*cfg.SendTimeout)
	defer cancel()

	results := async.SendBatch(sendCtx, requests)

	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 5*time.Second)
	defer shutdownCancel()
	if err := async.Shutdown(shutdownCtx); err != nil {
		logger.Warn("Dispatcher shutdown incomplete", "err", err)
	}

	failed := 0
	for i, result := range results {
		if result.Succeeded() {
			logger.Info("Delivered",
				"recipient", requests[i].Recipient(),
				"message_id", result.MessageID(),
			)
			continue
		}
		failed++
		logger.Error("Delivery failed",
			"recipient", requests[i].Recipient(),
			"reason", result.ErrorMessage(),
		)
	}
	if failed > 0 {
		os.Exit(1)
	}
}

// newTokenStore builds the device token store: Firestore when a project is
// configured, in-memory otherwise, with an optional Redis read-aside layer.
func newTokenStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (push.TokenStore, func(), error) {
	closeStore := func() {}

	var store push.TokenStore
	if cfg.ProjectID != "" {
		fsClient, err := firestore.NewClient(ctx, cfg.ProjectID)
		if err != nil {
			return nil, nil, err
		}
		closeStore = func() { _ = fsClient.Close() }
		store = fsStore.NewTokenStore(fsClient)
		logger.Info("TokenStore initialized", "type", "firestore")
	} else {
		store = memory.NewTokenStore()
		logger.Info("TokenStore initialized", "type", "memory")
	}

	if cfg.Redis.Enabled {
		logger.Info("Initializing Redis cache layer...", "addr", cfg.Redis.Addr)
		redisClient, err := cache.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			closeStore()
			return nil, nil, err
		}
		inner := closeStore
		closeStore = func() {
			_ = redisClient.Close()
			inner()
		}
		store = cache.NewCachedTokenStore(store, redisClient, 24*time.Hour)
		logger.Info("TokenStore upgraded", "type", "redis_cached")
	}

	return store, closeStore, nil
}

// newPushCapability wires whichever push platforms the config enables. Any
// platform may be absent; the capability skips nil dispatchers.
func newPushCapability(ctx context.Context, cfg *config.Config, store push.TokenStore, logger *slog.Logger) (*push.Capability, error) {
	var fcmDispatcher push.PlatformDispatcher
	if cfg.ProjectID != "" {
		fbApp, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.ProjectID})
		if err != nil {
			return nil, err
		}
		fcmMessaging, err := fbApp.Messaging(ctx)
		if err != nil {
			return nil, err
		}
		fcmDispatcher = fcm.NewDispatcher(fcmMessaging, logger)
	}

	var apnsDispatcher push.PlatformDispatcher
	if cfg.APNS.P8KeyContent != "" {
		d, err := apns.NewDispatcher(apns.Config{
			KeyID:        cfg.APNS.KeyID,
			TeamID:       cfg.APNS.TeamID,
			BundleID:     cfg.APNS.BundleID,
			P8KeyContent: cfg.APNS.P8KeyContent,
		}, logger)
		if err != nil {
			return nil, err
		}
		apnsDispatcher = d
	}

	var webDispatcher push.WebPlatformDispatcher
	if cfg.Vapid.PrivateKey == "" || cfg.Vapid.PublicKey == "" {
		logger.Warn("VAPID keys missing in configuration. Web Push disabled.")
	} else {
		webDispatcher = web.NewDispatcher(web.Config{
			PublicKey:       cfg.Vapid.PublicKey,
			PrivateKey:      cfg.Vapid.PrivateKey,
			SubscriberEmail: cfg.Vapid.SubscriberEmail,
		}, logger)
	}

	return push.NewCapability(store, fcmDispatcher, apnsDispatcher, webDispatcher, logger), nil
}
