package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/atelierhq/atelier/internal/app"
	"github.com/atelierhq/atelier/internal/config"
	"github.com/atelierhq/atelier/internal/db"
	"github.com/atelierhq/atelier/internal/db/repos"
	"github.com/atelierhq/atelier/internal/events"
	"github.com/atelierhq/atelier/internal/logger"
	"github.com/atelierhq/atelier/internal/pipeline"
	"github.com/atelierhq/atelier/internal/queue"
	"github.com/atelierhq/atelier/internal/scoring"
	"github.com/atelierhq/atelier/internal/services"
	"github.com/atelierhq/atelier/internal/worker"
)

func main() {
	// A missing .env is fine; real env vars still apply.
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
	goalRepo := repos.NewGoalRepository(database)
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
	engine := scoring.NewEngine(scoring.DefaultWeights())

	projectService := services.NewProjectService(projectRepo)
	goalService := services.NewGoalService(goalRepo, projectRepo, services.NewStubPlanner(), engine, broadcaster)
	runService := services.NewRunService(runRepo, projectRepo, q)
	jobService := services.NewJobService(jobRepo, q)
	proofService := services.NewProofService(proofRepo)

	registry := pipeline.NewRegistry(pipeline.Deps{
		Tools:       pipeline.NewLocalToolchain(),
		Proofs:      proofRepo,
		Broadcaster: broadcaster,
	})

	w := worker.New(q, registry, runRepo, jobRepo, projectRepo, runService, broadcaster, worker.Config{
		PollInterval:  workerCfg.PollInterval,
		StaleAge:      workerCfg.StaleAge,
		StaleInterval: workerCfg.StaleInterval,
		IdleSeedAfter: workerCfg.IdleSeedAfter,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// In-process worker; cmd/worker runs the standalone variant for
	// multi-worker deployments.
	workerErr := make(chan error, 1)
	go func() { workerErr <- w.Run(ctx) }()

	fiberApp := app.New(app.Services{
		Projects:    projectService,
		Goals:       goalService,
		Runs:        runService,
		Jobs:        jobService,
		Proofs:      proofService,
		Broadcaster: broadcaster,
	})

	serverCfg := config.NewServer()
	serverErr := make(chan error, 1)
	go func() { serverErr <- fiberApp.Listen(serverCfg.ListenAddr()) }()
	logger.Infof("API listening on %s", serverCfg.ListenAddr())

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		logger.Infof("Received %s, shutting down", sig)
	case err := <-workerErr:
		if err != nil {
			logger.Errorf("Worker stopped: %v", err)
		}
	case err := <-serverErr:
		if err != nil {
			logger.Errorf("Server stopped: %v", err)
		}
	}

	cancel()
	if err := fiberApp.Shutdown(); err != nil {
		logger.Errorf("Failed to shut down server: %v", err)
	}
}
