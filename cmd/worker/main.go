package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/atelierhq/atelier/internal/config"
	"github.com/atelierhq/atelier/internal/db"
	"github.com/atelierhq/atelier/internal/db/repos"
	"github.com/atelierhq/atelier/internal/events"
	"github.com/atelierhq/atelier/internal/logger"
	"github.com/atelierhq/atelier/internal/pipeline"
	"github.com/atelierhq/atelier/internal/queue"
	"github.com/atelierhq/atelier/internal/services"
	"github.com/atelierhq/atelier/internal/worker"
)

// Standalone worker. Runs the same loop the API binary embeds, for
// deployments that scale job processing separately from request handling.
func main() {
	_ = godotenv.Load()
	logger.Initialize()

	database, err := db.New(db.Options{
		Host:     config.GetEnv("DB_HOST", db.DefaultHost),
		Port:     config.GetEnvInt("DB_PORT", db.DefaultPort),
		User:     config.GetEnv("DB_USER", db.DefaultUser),
		Password: config.GetEnv("DB_PASSWORD", db.DefaultPassword),
		DBName:   config.GetEnv("DB_NAME", db.DefaultDBName),
	})
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}

	projectRepo := repos.NewProjectRepository(database)
	jobRepo := repos.NewJobRepository(database)
	runRepo := repos.NewRunRepository(database)
	proofRepo := repos.NewProofRepository(database)

	broadcaster := events.NewBroadcaster(events.DefaultBufferSize)
	workerCfg := config.NewWorker()
	q := queue.New(jobRepo, broadcaster, queue.Config{
		MaxAttempts: workerCfg.MaxAttempts,
		BaseBackoff: workerCfg.BaseBackoff,
		MaxBackoff:  workerCfg.MaxBackoff,
	})

	registry := pipeline.NewRegistry(pipeline.Deps{
		Tools:       pipeline.NewLocalToolchain(),
		Proofs:      proofRepo,
		Broadcaster: broadcaster,
	})

	starter := services.NewRunService(runRepo, projectRepo, q)

	w := worker.New(q, registry, runRepo, jobRepo, projectRepo, starter, broadcaster, worker.Config{
		PollInterval:  workerCfg.PollInterval,
		StaleAge:      workerCfg.StaleAge,
		StaleInterval: workerCfg.StaleInterval,
		IdleSeedAfter: workerCfg.IdleSeedAfter,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		sig := <-quit
		logger.Infof("Received %s, stopping worker", sig)
		cancel()
	}()

	logger.Infof("Worker started (poll interval %s)", workerCfg.PollInterval)
	if err := w.Run(ctx); err != nil {
		logger.Fatalf("Worker stopped: %v", err)
	}
	logger.Infof("Worker stopped")
}
