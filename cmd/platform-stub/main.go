package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"

	"vision-platform-client/internal/adapters/primary/http/handlers"
	"vision-platform-client/internal/adapters/secondary/memory"
	"vision-platform-client/internal/adapters/secondary/postgres"
	"vision-platform-client/internal/config"
	output "vision-platform-client/internal/core/ports/output"
	"vision-platform-client/internal/core/services"
)

type repositories struct {
	projects    output.ProjectRepository
	media       output.MediaRepository
	annotations output.AnnotationRepository
	jobs        output.JobRepository
	models      output.ModelRepository
}

func main() {
	configPath := flag.String("config", "", "config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	initLogger(cfg)

	// ============================================================================
	// Storage
	// ============================================================================

	var (
		repos repositories
		ready func(*gin.Context) error
	)
	switch cfg.Database.Driver {
	case "postgres":
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		pool, err := postgres.NewPool(ctx, cfg.Database)
		if err != nil {
			cancel()
			log.Fatalf("connect db: %v", err)
		}
		if err := postgres.Migrate(ctx, pool); err != nil {
			cancel()
			log.Fatalf("migrate db: %v", err)
		}
		cancel()
		defer pool.Close()
		log.Info("database connection established")

		repos = postgresRepositories(pool)
		ready = func(c *gin.Context) error { return pool.Ping(c.Request.Context()) }
	case "memory", "":
		store := memory.NewStore()
		repos = repositories{
			projects:    memory.NewProjectRepository(store),
			media:       memory.NewMediaRepository(store),
			annotations: memory.NewAnnotationRepository(store),
			jobs:        memory.NewJobRepository(store),
			models:      memory.NewModelRepository(store),
		}
		log.Info("using in-memory store")
	default:
		log.Fatalf("unknown database driver %q", cfg.Database.Driver)
	}

	// ============================================================================
	// Hexagonal Architecture Wiring
	// ============================================================================

	projectSvc := services.NewProjectService(repos.projects)
	mediaSvc := services.NewMediaService(repos.projects, repos.media)
	annotationSvc := services.NewAnnotationService(repos.projects, repos.media, repos.annotations)
	jobSvc := services.NewJobService(repos.projects, repos.annotations, repos.jobs, repos.models,
		services.TrainingSimulation{ReadsPerState: cfg.Simulation.ReadsPerState})
	modelSvc := services.NewModelService(repos.projects, repos.models)

	tokenCfg := services.TokenConfig{
		Secret:         cfg.Server.TokenSecret,
		Issuer:         "platform-stub",
		AccessTokenTTL: cfg.Server.AccessTokenTTL,
		Users:          map[string]string{cfg.Server.Username: cfg.Server.Password},
	}
	if cfg.Server.AccessToken != "" {
		tokenCfg.AccessTokens = map[string]string{cfg.Server.AccessToken: cfg.Server.Username}
	}
	tokenSvc := services.NewTokenService(tokenCfg, nil)

	h := handlers.New(projectSvc, mediaSvc, annotationSvc, jobSvc, modelSvc, tokenSvc)
	router := handlers.NewRouter(h, ready)

	// Start server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		log.Infof("starting platform stub on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("server forced shutdown: %v", err)
	}

	log.Info("server stopped")
}

func postgresRepositories(pool *pgxpool.Pool) repositories {
	return repositories{
		projects:    postgres.NewProjectRepository(pool),
		media:       postgres.NewMediaRepository(pool),
		annotations: postgres.NewAnnotationRepository(pool),
		jobs:        postgres.NewJobRepository(pool),
		models:      postgres.NewModelRepository(pool),
	}
}

func initLogger(cfg *config.Config) {
	level, err := log.ParseLevel(cfg.Logger.Level)
	if err != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)

	if cfg.Logger.Format == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
}
