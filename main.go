package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pocketmedic/triage-gateway/internal/agent"
	"github.com/pocketmedic/triage-gateway/internal/channel"
	"github.com/pocketmedic/triage-gateway/internal/channel/discord"
	"github.com/pocketmedic/triage-gateway/internal/channel/telegram"
	"github.com/pocketmedic/triage-gateway/internal/channel/webchat"
	"github.com/pocketmedic/triage-gateway/internal/config"
	"github.com/pocketmedic/triage-gateway/internal/conversation"
	"github.com/pocketmedic/triage-gateway/internal/enrichment"
	"github.com/pocketmedic/triage-gateway/internal/logging"
	"github.com/pocketmedic/triage-gateway/internal/orchestrator"
	"github.com/pocketmedic/triage-gateway/internal/provider"
	"github.com/pocketmedic/triage-gateway/internal/quickreply"
	"github.com/pocketmedic/triage-gateway/internal/scheduler"
	"github.com/pocketmedic/triage-gateway/internal/server"
	"github.com/pocketmedic/triage-gateway/internal/session"
)

const version = "1.0.0"

func main() {
	configPath := flag.String("config", "config.yaml", "Path to the configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logging.New("info").Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	rootLogger := logging.New(cfg.Logging.Level)
	logger := logging.WithComponent(rootLogger, "main")
	logger.Info("Starting triage gateway", "version", version)

	if err := cfg.Validate(); err != nil {
		logger.Error("Invalid config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Core stores
	sessions := session.NewStore(cfg.Session.GetTimeout())
	conversations := conversation.NewStore()
	matcher := quickreply.NewMatcher()

	// Remote model pool
	orch, err := orchestrator.New(orchestrator.Options{
		Credentials:    cfg.Provider.APIKeys,
		Models:         cfg.Provider.Models,
		Factory:        provider.OpenAIFactory(cfg.Provider.BaseURL),
		Cooldown:       cfg.Provider.GetCooldown(),
		MaxResponseLen: cfg.Provider.MaxResponseLength,
		RequestTimeout: cfg.Provider.GetRequestTimeout(),
		Logger:         logging.WithComponent(rootLogger, "orchestrator"),
	}, matcher, conversations, sessions)
	if err != nil {
		logger.Error("Failed to build orchestrator", "error", err)
		os.Exit(1)
	}
	logger.Info("Provider pool ready",
		"credentials", len(cfg.Provider.APIKeys), "models", len(cfg.Provider.Models))

	// Optional enrichment service with optional Redis result cache
	var enricher agent.Enricher
	if cfg.Enrichment.Enabled {
		var cache *redis.Client
		if cfg.Redis.Addr != "" {
			cache = redis.NewClient(&redis.Options{
				Addr:     cfg.Redis.Addr,
				Password: cfg.Redis.Password,
				DB:       cfg.Redis.DB,
			})
			pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
			if err := cache.Ping(pingCtx).Err(); err != nil {
				logger.Warn("Redis unreachable, enrichment cache disabled", "error", err)
				cache = nil
			}
			pingCancel()
		}

		client, err := enrichment.NewClient(enrichment.Config{
			URL:      cfg.Enrichment.URL,
			APIKey:   cfg.Enrichment.APIKey,
			Timeout:  cfg.Enrichment.GetTimeout(),
			CacheTTL: cfg.Enrichment.GetCacheTTL(),
		}, cache, logging.WithComponent(rootLogger, "enrichment"))
		if err != nil {
			logger.Error("Failed to build enrichment client", "error", err)
			os.Exit(1)
		}
		enricher = client
		logger.Info("Enrichment service enabled", "url", cfg.Enrichment.URL)
	}

	// Consultation loop
	loop := agent.NewAgentLoop(sessions, conversations, orch, enricher,
		logging.WithComponent(rootLogger, "agent"))

	// Channels
	adapters := []channel.ChannelAdapter{}
	if cfg.Channels.Telegram.Enabled {
		adapters = append(adapters, telegram.NewTelegramAdapter(
			cfg.Channels.Telegram.Token, logging.WithComponent(rootLogger, "telegram")))
	}
	if cfg.Channels.Discord.Enabled {
		adapters = append(adapters, discord.NewDiscordAdapter(
			cfg.Channels.Discord.Token, logging.WithComponent(rootLogger, "discord")))
	}
	if cfg.Channels.WebChat.Enabled {
		adapters = append(adapters, webchat.NewWebChatAdapter(
			cfg.Channels.WebChat.Port, logging.WithComponent(rootLogger, "webchat")))
	}
	if len(adapters) == 0 {
		logger.Error("No channels enabled, nothing to serve")
		os.Exit(1)
	}

	for _, adapter := range adapters {
		if err := adapter.Start(ctx); err != nil {
			logger.Error("Failed to start adapter", "adapter", adapter.Name(), "error", err)
			os.Exit(1)
		}
		go loop.Run(ctx, adapter)
		logger.Info("Adapter started", "adapter", adapter.Name())
	}

	// Maintenance jobs
	sched := scheduler.NewScheduler(sessions, cfg.Session.GetCleanupSchedule(),
		logging.WithComponent(rootLogger, "scheduler"))
	sched.Start()
	logger.Info("Scheduler started", "schedule", cfg.Session.GetCleanupSchedule())

	// Observability HTTP server
	srv := server.New(cfg.Server.Host, cfg.Server.Port, orch, sessions, conversations,
		logging.WithComponent(rootLogger, "server"))
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	for _, adapter := range adapters {
		if err := adapter.Stop(); err != nil {
			logger.Error("Failed to stop adapter", "adapter", adapter.Name(), "error", err)
		}
	}

	sched.Stop()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", "error", err)
	}

	logger.Info("Shutdown complete")
}
