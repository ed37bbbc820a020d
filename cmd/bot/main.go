package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/timedealhq/creditbot/internal/app"
	"github.com/timedealhq/creditbot/internal/config"
	"github.com/timedealhq/creditbot/internal/infra/groupapi"
	botnet "github.com/timedealhq/creditbot/internal/infra/http"
	"github.com/timedealhq/creditbot/internal/infra/jobs"
	"github.com/timedealhq/creditbot/internal/infra/postgres"
	"github.com/timedealhq/creditbot/internal/infra/redis"
	"github.com/timedealhq/creditbot/pkg/audit"
	"github.com/timedealhq/creditbot/pkg/logger"
	"github.com/timedealhq/creditbot/pkg/migrations"
	"github.com/timedealhq/creditbot/pkg/validator"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		logger.NewDefault().Error("failed to load config", "error", err)
		return 1
	}

	log := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})
	log.SetDefault()

	log.Info("starting creditbot",
		"env", cfg.App.Env,
		"group_id", cfg.Group.GroupID,
		"owners", len(cfg.Access.OwnerIDs),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := postgres.New(&cfg.Database)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		return 1
	}
	defer func() { _ = db.Close() }()

	if err := migrations.NewRunner(db.DB).Up(ctx); err != nil {
		log.Error("failed to run migrations", "error", err)
		return 1
	}

	redisClient, err := redis.NewClient(&cfg.Redis)
	if err != nil {
		log.Error("failed to connect to redis", "error", err)
		return 1
	}
	defer func() { _ = redisClient.Close() }()

	groupClient := groupapi.New(cfg.Group)
	roleCache := app.NewRoleCache(groupClient, log)
	sweepStore := redis.NewSweepStore(redisClient)
	auditSink := audit.NewWebhookSink(cfg.Audit.WebhookURL, log)

	creditSvc := app.NewCreditService(postgres.NewCreditRepository(db), log)
	accessSvc := app.NewAccessService(cfg.Access.OwnerIDs, postgres.NewGrantRepository(db), log)
	rankSvc := app.NewRankService(groupClient, roleCache, sweepStore, auditSink, log)

	jobClient := jobs.NewClient(&cfg.Redis, log)
	defer func() { _ = jobClient.Close() }()

	// The platform dispatcher drives this facade; it is also what the
	// admin CLI calls.
	commands := app.NewCommandService(accessSvc, creditSvc, rankSvc, jobClient, validator.New(), log)

	// Warm the role catalog; the group service may be down at startup,
	// in which case the first rank command loads it instead.
	if err := roleCache.Load(ctx, false); err != nil {
		log.Warn("role catalog not loaded at startup", "error", err)
	}

	worker := jobs.NewWorker(&cfg.Redis, &cfg.Worker, rankSvc, log)
	opsServer := botnet.NewServer(&cfg.Server, log, db, redisClient, sweepStore, commands)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return worker.Run(gctx)
	})
	g.Go(func() error {
		return opsServer.Start()
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return opsServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && ctx.Err() == nil {
		log.Error("service failed", "error", err)
		return 1
	}

	log.Info("creditbot stopped")
	return 0
}
