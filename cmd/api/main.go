package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"

	"github.com/congo-pay/rosca_bridge/internal/bot"
	"github.com/congo-pay/rosca_bridge/internal/chain"
	"github.com/congo-pay/rosca_bridge/internal/config"
	"github.com/congo-pay/rosca_bridge/internal/conversation"
	"github.com/congo-pay/rosca_bridge/internal/identity"
	"github.com/congo-pay/rosca_bridge/internal/infra"
	"github.com/congo-pay/rosca_bridge/internal/logging"
	"github.com/congo-pay/rosca_bridge/internal/membership"
	"github.com/congo-pay/rosca_bridge/internal/notification"
	"github.com/congo-pay/rosca_bridge/internal/routes"
	"github.com/congo-pay/rosca_bridge/internal/server"
	"github.com/congo-pay/rosca_bridge/internal/txbuilder"
	"github.com/congo-pay/rosca_bridge/internal/worker"
)

func main() {
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.LogLevel)
	if envErr != nil {
		logger.Info("No .env file found, using environment variables")
	}

	if err := run(cfg, logger); err != nil {
		logger.Error("fatal", "error", err)
		os.Exit(1)
	}
	logger.Info("server exited cleanly")
}

func run(cfg config.Config, logger *slog.Logger) error {
	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	stores, err := infra.OpenStores(ctx, cfg.DatabaseURL, cfg.RedisURL, logger)
	if err != nil {
		return err
	}
	defer stores.Close()
	db, cache := stores.DB, stores.Cache

	eth, err := infra.NewChainClient(ctx, cfg.RPCURL, cfg.ChainID)
	if err != nil {
		return err
	}
	defer eth.Close()

	tg, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		return fmt.Errorf("telegram: %w", err)
	}
	logger.Info("telegram bot authorized", "username", tg.Self.UserName)

	var sender notification.Sender = notification.NewTelegramSender(tg)
	if cfg.IsDev() {
		sender = notification.NewLoggerSender(logger, sender)
	}
	dispatcher := notification.NewDispatcher(sender, logger)

	identityRepo := identity.NewMemoryRepository()
	membershipRepo := membership.NewMemoryRepository()
	if db != nil {
		identityRepo = identity.NewPostgresRepository(db)
		membershipRepo = membership.NewPostgresRepository(db)
	}
	identitySvc := identity.NewService(identityRepo, dispatcher, identity.Options{
		PublicBaseURL: cfg.PublicBaseURL,
		DeepLinkBase:  cfg.DeepLinkBase,
	}, logger)
	membershipSvc := membership.NewService(membershipRepo, logger)

	views := chain.NewAggregator(chain.NewContractReader(eth, common.HexToAddress(cfg.RegistryAddress)), logger)
	builder, err := txbuilder.NewBuilder(identitySvc, views, cfg.RegistryAddress, cfg.ChainID, logger)
	if err != nil {
		return err
	}

	var store conversation.Store = conversation.NewMemoryStore()
	if cfg.UseRedisConversations() {
		if cache == nil {
			return fmt.Errorf("CONVERSATION_STORE=redis requires REDIS_URL")
		}
		store = conversation.NewRedisStore(cache, cfg.ConversationTTL)
	}

	router := bot.NewRouter(bot.Deps{
		Messenger:     tg,
		Identity:      identitySvc,
		Views:         views,
		Composer:      builder,
		Memberships:   membershipSvc,
		Conversations: conversation.NewEngine(store, builder, logger),
		Notifier:      dispatcher,
		Logger:        logger,
	})
	jobs := worker.NewPool(ctx, cfg.WorkerConcurrency, logger)
	poller := bot.NewPoller(tg, router, jobs, logger)

	srv, err := server.New(routes.Deps{
		Cfg:      cfg,
		DB:       db,
		Cache:    cache,
		Chain:    eth,
		Identity: identitySvc,
		Logger:   logger,
	})
	if err != nil {
		return fmt.Errorf("build server: %w", err)
	}

	errCh := make(chan error, 2)
	go func() {
		errCh <- srv.Listen()
	}()
	go func() {
		errCh <- poller.Run(ctx)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	var runErr error
	select {
	case sig := <-sigCh:
		logger.Info("shutdown signal received", "signal", sig.String())
	case runErr = <-errCh:
		if runErr == nil {
			runErr = fmt.Errorf("component stopped unexpectedly")
		}
	}

	stop()
	jobs.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownPeriod)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
	return runErr
}
