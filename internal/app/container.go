package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/kapu/multistream-checker-go/internal/config"
	"github.com/kapu/multistream-checker-go/internal/constants"
	"github.com/kapu/multistream-checker-go/internal/metrics"
	"github.com/kapu/multistream-checker-go/internal/platform"
	"github.com/kapu/multistream-checker-go/internal/platform/facebook"
	"github.com/kapu/multistream-checker-go/internal/platform/kick"
	"github.com/kapu/multistream-checker-go/internal/platform/rest"
	"github.com/kapu/multistream-checker-go/internal/platform/twitch"
	"github.com/kapu/multistream-checker-go/internal/platform/youtube"
	"github.com/kapu/multistream-checker-go/internal/quota"
	"github.com/kapu/multistream-checker-go/internal/service/credentials"
	"github.com/kapu/multistream-checker-go/internal/service/dispatcher"
	"github.com/kapu/multistream-checker-go/internal/service/watcher"
	"github.com/kapu/multistream-checker-go/internal/store"
	"github.com/kapu/multistream-checker-go/internal/web"
	"go.uber.org/zap"
)

// Container bundles the assembled services.
type Container struct {
	Config *config.Config
	Logger *zap.Logger

	Store       store.Store
	Settings    *store.Settings
	Quota       *quota.Tracker
	Credentials *credentials.Provider
	Registry    *platform.Registry
	Metrics     *metrics.Registry

	closers []func()
}

// Close releases everything Build opened, in reverse order.
func (c *Container) Close() {
	if c == nil {
		return
	}
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	c.closers = nil
}

// Build connects the store and assembles the adapters and their shared collaborators.
// Runtime pieces bound to a sink (dispatcher, web server) are created by the New* methods.
func Build(ctx context.Context, cfg *config.Config, logger *zap.Logger) (container *Container, err error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger must not be nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	c := &Container{Config: cfg, Logger: logger}
	defer func() {
		if err != nil {
			c.Close()
		}
	}()

	st, err := store.Open(ctx, cfg.StoreConfig(), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s store: %w", cfg.Store.Driver, err)
	}
	c.closers = append(c.closers, func() {
		_ = st.Close()
	})
	c.Store = st
	c.Settings = store.NewSettings(st)
	logger.Info("Settings store ready", zap.String("driver", cfg.Store.Driver))

	c.Metrics = metrics.New()
	c.Quota = quota.NewTracker(c.Settings, cfg.YouTube.DailyQuota, logger)

	// The token source outlives Build, so it is not tied to the build deadline.
	c.Credentials = credentials.NewProvider(context.Background(), cfg.CredentialsConfig(), c.Settings, logger)

	httpClient := &http.Client{Timeout: constants.APIConfig.RequestTimeout}
	restClient := rest.NewClient(httpClient, logger)

	yt, err := youtube.NewAdapter(ctx, c.Quota, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create YouTube adapter: %w", err)
	}

	c.Registry = &platform.Registry{
		Twitch:   twitch.NewAdapter(restClient, constants.APIConfig.TwitchHelixBaseURL, logger),
		Kick:     kick.NewAdapter(restClient, constants.APIConfig.KickBaseURL, logger),
		YouTube:  yt,
		Facebook: facebook.NewAdapter(restClient, constants.APIConfig.FacebookGraphURL, cfg.Facebook.GraphVersion, logger),
	}

	logger.Info("Platform adapters ready",
		zap.Bool("youtube_key", cfg.YouTube.APIKey != ""),
		zap.Bool("twitch_client", cfg.Twitch.ClientID != ""),
		zap.Bool("facebook_token", cfg.Facebook.AccessToken != ""),
		zap.Int("youtube_daily_quota", cfg.YouTube.DailyQuota),
	)

	return c, nil
}

// NewDispatcher wires a dispatcher that reports to sink. With persistInput set, every
// loaded list is saved so the next login can restore it.
func (c *Container) NewDispatcher(sink dispatcher.Sink, persistInput bool) *dispatcher.Dispatcher {
	var saver dispatcher.InputSaver
	if persistInput {
		saver = c.Settings
	}
	return dispatcher.New(dispatcher.Options{
		Registry:    c.Registry,
		Credentials: c.Credentials,
		Quota:       c.Quota,
		Saver:       saver,
		Sink:        sink,
		Metrics:     c.Metrics,
		Logger:      c.Logger,
		Config: dispatcher.Config{
			RefreshInterval: c.Config.Scheduler.RefreshInterval,
			CheckTimeout:    c.Config.Scheduler.CheckTimeout,
			MessageTTL:      constants.SchedulerConfig.MessageTTL,
		},
	})
}

// Service is the long-running web deployment.
type Service struct {
	Hub        *web.Hub
	Dispatcher *dispatcher.Dispatcher
	Server     *web.Server
	Watcher    *watcher.Watcher
}

// NewService assembles the hub, dispatcher, access guard, HTTP server and, when a channels
// file is configured, its watcher.
func (c *Container) NewService() (*Service, error) {
	if err := c.Config.ValidateWeb(); err != nil {
		return nil, err
	}

	hub := web.NewHub(c.Metrics, c.Logger)
	d := c.NewDispatcher(hub, true)
	guard := web.NewGuard(web.GuardConfig{
		Username:       c.Config.Auth.Username,
		Password:       c.Config.Auth.Password,
		SessionTTL:     c.Config.Auth.SessionTTL,
		LoginPerMinute: c.Config.Auth.LoginPerMinute,
		SecureCookie:   c.Config.Server.SecureCookie,
		TrustProxy:     c.Config.Server.TrustProxy,
	})

	srv, err := web.NewServer(web.Options{
		Addr:       c.Config.Server.Addr,
		Dispatcher: d,
		Quota:      c.Quota,
		Settings:   c.Settings,
		Hub:        hub,
		Guard:      guard,
		Metrics:    c.Metrics,
		Logger:     c.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create web server: %w", err)
	}

	svc := &Service{Hub: hub, Dispatcher: d, Server: srv}
	if path := c.Config.Scheduler.ChannelsFile; path != "" {
		svc.Watcher = watcher.New(path, d, c.Logger)
	}
	return svc, nil
}
