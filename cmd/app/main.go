package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"scripture-export-service/internal/config"
	pg "scripture-export-service/internal/infra/db/postgres"
	"scripture-export-service/internal/infra/logging"
	"scripture-export-service/internal/infra/metrics"
	red "scripture-export-service/internal/infra/redis"
	"scripture-export-service/internal/infra/web"
	"scripture-export-service/internal/infra/worker"
	"scripture-export-service/internal/infra/zipper"
	"scripture-export-service/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, int32(cfg.Database.MaxConns))
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres")
	}
	defer pool.Close()

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis")
	}
	defer redisClient.Close()

	// ---- Repositories ----
	jobRepo := pg.NewExportJobRepo(pool)
	stepLedger := pg.NewStepLedgerRepo(pool)
	projectRepo := pg.NewProjectRepo(pool)
	verseRepo := pg.NewVerseRepo(pool)

	// ---- Export pipeline ----
	producer := zipper.NewProducer(verseRepo, zipper.NewUSFMConverter(), logger)
	steps := usecase.NewStepExecutor(stepLedger, pg.NewTxManager(pool), logger)
	workflow := usecase.NewExportWorkflow(jobRepo, projectRepo, producer, steps, logger)

	queue := red.NewExportQueue(redisClient, cfg.Export.DedupTTL, logger)
	exportUC := usecase.NewExportUseCase(jobRepo, queue, logger)

	// ---- Workers ----
	workerPool := worker.NewPool(cfg.Export.Workers, logger)
	workerPool.Start(ctx)
	defer workerPool.Stop()

	dispatcher := worker.NewDispatcher(queue, workflow, cfg.Export.QueuePollTimeout, logger)
	go dispatcher.Start(ctx, workerPool)

	reconciler := worker.NewReconciler(cfg.Export.ReconcileInterval, cfg.Export.StaleAfter, jobRepo, workflow, logger)
	go func() { _ = reconciler.Run(ctx, workerPool) }()

	// ---- HTTP ----
	metrics.MustRegister()
	srv := web.NewServer(exportUC, cfg.Server.APIKey, logger, pool, redisClient)
	go func() {
		if err := srv.Start(cfg.Server.Port); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("http server")
		}
	}()

	// ---- Shutdown ----
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig
	logger.Info().Msg("shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
}
