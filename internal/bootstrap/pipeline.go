package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/jonesrussell/jobscout/internal/config"
	"github.com/jonesrussell/jobscout/internal/dispatch"
	"github.com/jonesrussell/jobscout/internal/email"
	"github.com/jonesrussell/jobscout/internal/logger"
	"github.com/jonesrussell/jobscout/internal/oracle"
	"github.com/jonesrussell/jobscout/internal/orchestrator"
	"github.com/jonesrussell/jobscout/internal/queue"
	"github.com/jonesrussell/jobscout/internal/repository"
)

// Deps bundles the wired pipeline for the HTTP layer.
type Deps struct {
	Jobs       *repository.JobRepository
	Companies  *repository.CompanyRepository
	Profiles   *repository.ProfileRepository
	Dispatcher dispatch.Dispatcher
	Emails     *email.Generator
	Generative *oracle.Generative

	queueClient *queue.Client
}

// Close releases broker resources, if any.
func (d *Deps) Close() {
	if d.queueClient != nil {
		_ = d.queueClient.Close()
	}
}

// SetupPipeline wires oracles, repositories, the orchestrator, and a
// dispatcher. When the Redis broker is unreachable the dispatcher degrades to
// inline execution rather than failing startup.
func SetupPipeline(ctx context.Context, cfg *config.Config, db *sql.DB, log logger.Logger) *Deps {
	jobs := repository.NewJobRepository(db, log)
	companies := repository.NewCompanyRepository(db, log)
	profiles := repository.NewProfileRepository(db, log)

	generative := oracle.NewGenerative(cfg.Oracles.Anthropic, log)
	apollo := oracle.NewApollo(cfg.Oracles.Apollo, log)
	hunter := oracle.NewHunter(cfg.Oracles.Hunter, log)

	if !generative.Enabled() {
		log.Warn("Generative oracle credential missing; search submissions will be rejected")
	}

	orch := orchestrator.New(jobs, companies, profiles, generative, apollo, hunter, cfg.Search, log)

	deps := &Deps{
		Jobs:       jobs,
		Companies:  companies,
		Profiles:   profiles,
		Emails:     email.NewGenerator(generative, log),
		Generative: generative,
	}
	deps.Dispatcher = setupDispatcher(ctx, cfg, orch, deps, log)

	return deps
}

// setupDispatcher prefers the durable queue-backed dispatcher, falling back
// to inline execution when Redis is unavailable.
func setupDispatcher(ctx context.Context, cfg *config.Config, orch *orchestrator.Orchestrator, deps *Deps, log logger.Logger) dispatch.Dispatcher {
	client, err := queue.Connect(cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.Stream)
	if err != nil {
		log.Warn("Redis not available, running jobs inline", logger.Error(err))
		return dispatch.NewInlineDispatcher(orch, log)
	}

	consumer, err := queue.NewConsumer(ctx, client, queue.ConsumerConfig{
		Group:      cfg.Redis.Group,
		ConsumerID: consumerID(),
	})
	if err != nil {
		log.Warn("Queue setup failed, running jobs inline", logger.Error(err))
		_ = client.Close()
		return dispatch.NewInlineDispatcher(orch, log)
	}

	deps.queueClient = client

	queued := dispatch.NewQueuedDispatcher(
		queue.NewProducer(client),
		consumer,
		orch,
		dispatch.RetryPolicy{
			MaxAttempts:  cfg.Dispatch.MaxAttempts,
			InitialDelay: cfg.Dispatch.InitialDelay,
			Multiplier:   cfg.Dispatch.Multiplier,
		},
		log,
	)
	go queued.Run(ctx)

	log.Info("Queue dispatcher initialized",
		logger.String("redis_address", cfg.Redis.Address),
		logger.String("stream", cfg.Redis.Stream),
		logger.String("group", cfg.Redis.Group),
	)

	return queued
}

func consumerID() string {
	host, err := os.Hostname()
	if err != nil {
		host = "jobscout"
	}
	return fmt.Sprintf("%s-%d", host, os.Getpid())
}
