package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/Jimmeey2323/referrals/internal/alert"
	"github.com/Jimmeey2323/referrals/internal/bookingapi"
	"github.com/Jimmeey2323/referrals/internal/config"
	"github.com/Jimmeey2323/referrals/internal/database"
	"github.com/Jimmeey2323/referrals/internal/ledger"
	"github.com/Jimmeey2323/referrals/internal/logging"
	"github.com/Jimmeey2323/referrals/internal/reward"
	"github.com/Jimmeey2323/referrals/internal/runlock"
	"github.com/Jimmeey2323/referrals/internal/worker"
)

func main() {
	cfg := config.LoadConfig()

	logger, err := logging.New(cfg.Production())
	if err != nil {
		log.Fatalf("Could not initialize logger: %v", err)
	}
	defer logger.Sync()

	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.ConnectPostgres(cfg)
	if err != nil {
		logger.Fatal("could not connect to database", zap.Error(err))
	}

	// Redis is optional: without it runs proceed without cross-process
	// exclusion, which is fine for a single-instance deployment.
	var lock *runlock.Lock
	if cfg.RedisAddr != "" {
		rdb, err := database.ConnectRedis(ctx, cfg)
		if err != nil {
			logger.Fatal("could not connect to redis", zap.Error(err))
		}
		lock = runlock.New(rdb, cfg.RunLockTTL, logger)
	}

	var alerts *alert.Notifier
	if cfg.TelegramBotToken != "" && cfg.TelegramChatID != 0 {
		alerts, err = alert.NewNotifier(cfg.TelegramBotToken, cfg.TelegramChatID, logger)
		if err != nil {
			logger.Fatal("could not initialize telegram notifier", zap.Error(err))
		}
	}

	api := bookingapi.NewClient(cfg, logger)
	store := ledger.NewStore(db, logger)
	issuer := reward.NewIssuer(api, cfg, logger)
	runner := worker.NewRunner(cfg, logger, api, api, store, issuer, alerts, lock)

	if cfg.MetricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			logger.Info("metrics listener started", zap.String("addr", cfg.MetricsAddr))
			if err := http.ListenAndServe(cfg.MetricsAddr, mux); err != nil {
				logger.Error("metrics listener stopped", zap.Error(err))
			}
		}()
	}

	logger.Info("referral reconciler started", zap.String("env", cfg.Env))

	if cfg.RunInterval > 0 {
		runner.Start(ctx)
		return
	}

	// One-shot mode for cron style scheduling.
	sum, err := runner.RunOnce(ctx)
	if err != nil {
		logger.Error("reconciliation run failed", zap.Error(err))
		if cfg.Production() {
			logger.Sync()
			os.Exit(1)
		}
		return
	}
	logger.Info("one-shot run done", zap.String("outcome", sum.Outcome))
}
