package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	httptransport "github.com/spec-kit/issue-service/internal/api/http"
	"github.com/spec-kit/issue-service/internal/api/http/handlers"
	"github.com/spec-kit/issue-service/internal/auth"
	"github.com/spec-kit/issue-service/internal/config"
	"github.com/spec-kit/issue-service/internal/domain"
	"github.com/spec-kit/issue-service/internal/events"
	"github.com/spec-kit/issue-service/internal/lifecycle"
	"github.com/spec-kit/issue-service/internal/observability"
	"github.com/spec-kit/issue-service/internal/persistence"
	"github.com/spec-kit/issue-service/internal/repository"
	"github.com/spec-kit/issue-service/internal/repository/memory"
	"github.com/spec-kit/issue-service/internal/service"
	"github.com/spec-kit/issue-service/internal/sla"
	"github.com/spec-kit/issue-service/internal/worker"
)

const shutdownTimeout = 10 * time.Second

type repositories struct {
	tickets      repository.TicketRepository
	projects     repository.ProjectRepository
	categories   repository.CategoryRepository
	groups       repository.GroupRepository
	history      repository.TicketHistoryRepository
	groupHistory repository.GroupHistoryRepository
	comments     repository.CommentRepository
	workNotes    repository.WorkNoteRepository
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	pool := pg.PoolHandle()
	if pool != nil && cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pool, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	var repos repositories
	if pool != nil {
		repos = postgresRepositories(pg)
	} else {
		repos = memoryRepositories(logger)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics(registry)
	metrics.RegisterPool(pool)

	dispatcher := events.NewInMemoryDispatcher()
	service.NewNotificationService(dispatcher, logger).RegisterHandlers()
	if redis.Enabled() && cfg.Events.RedisChannel != "" {
		events.NewRedisRelay(redis.Client, cfg.Events.RedisChannel, logger).Attach(dispatcher)
	}

	clock := sla.SystemClock{}
	audit := service.NewAuditTrail(repos.history, repos.groupHistory)
	assignmentService := service.NewAssignmentService(service.AssignmentDependencies{
		TicketRepo: repos.tickets,
		GroupRepo:  repos.groups,
		Audit:      audit,
		Dispatcher: dispatcher,
		Clock:      clock,
		Logger:     logger,
	})
	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:   repos.tickets,
		ProjectRepo:  repos.projects,
		CategoryRepo: repos.categories,
		CommentRepo:  repos.comments,
		WorkNoteRepo: repos.workNotes,
		Audit:        audit,
		Assignment:   assignmentService,
		Policy:       lifecycle.Policy{ClosedIsTerminal: cfg.Ticket.ClosedIsTerminal},
		Dispatcher:   dispatcher,
		Clock:        clock,
		Logger:       logger,
	})
	slaService := service.NewSLAService(service.SLADependencies{
		TicketRepo: repos.tickets,
		Audit:      audit,
		Dispatcher: dispatcher,
		Clock:      clock,
		Recorder:   metrics,
		Logger:     logger,
		BatchSize:  cfg.SLA.ScanBatchSize,
	})

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, 0)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ErrorHandler: httptransport.ErrorHandler(logger, metrics),
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	deps := map[string]handlers.Pinger{"postgres": nil, "redis": nil}
	if pool != nil {
		deps["postgres"] = pg
	}
	if redis.Enabled() {
		deps["redis"] = redis
	}
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, deps),
		Tickets:        handlers.NewTicketsHandler(ticketService, assignmentService),
		AuthMiddleware: auth.NewAuthMiddleware(tokens),
		Gatherer:       registry,
	})

	var breachWorker *worker.SLABreachWorker
	if cfg.SLA.WatcherEnabled {
		breachWorker = worker.NewSLABreachWorker(slaService, cfg.SLA.WatcherDelay(), logger)
		if err := breachWorker.Start(ctx); err != nil {
			logger.Fatal("failed to start sla breach worker", zap.Error(err))
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("http server listening", zap.String("addr", cfg.App.Addr()))
		return app.Listen(cfg.App.Addr())
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if breachWorker != nil {
			breachWorker.Stop(shutdownCtx)
		}
		return app.ShutdownWithContext(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("server stopped with error", zap.Error(err))
	}
}

func postgresRepositories(pg *persistence.Postgres) repositories {
	pool := pg.PoolHandle()
	return repositories{
		tickets:      repository.NewTicketRepository(pool),
		projects:     repository.NewProjectRepository(pool),
		categories:   repository.NewCategoryRepository(pool),
		groups:       repository.NewGroupRepository(pool),
		history:      repository.NewTicketHistoryRepository(pool),
		groupHistory: repository.NewGroupHistoryRepository(pool),
		comments:     repository.NewCommentRepository(pool),
		workNotes:    repository.NewWorkNoteRepository(pool),
	}
}

// memoryRepositories backs the service with a seeded in-memory store for
// local development.
func memoryRepositories(logger *zap.Logger) repositories {
	store := memory.NewStore(sla.SystemClock{})
	project := store.AddProject(domain.Project{OrganizationID: 1, Name: "Demo", ProjectCode: "DEMO"})
	group := store.AddGroup(domain.Group{OrganizationID: 1, Name: "Service desk", Level: domain.GroupLevelL1, Active: true})
	logger.Info("seeded in-memory store",
		zap.Int64("organization_id", project.OrganizationID),
		zap.Int64("project_id", project.ID),
		zap.Int64("group_id", group.ID),
	)
	return repositories{
		tickets:      store.Tickets(),
		projects:     store.Projects(),
		categories:   store.Categories(),
		groups:       store.Groups(),
		history:      store.History(),
		groupHistory: store.GroupHistory(),
		comments:     store.Comments(),
		workNotes:    store.WorkNotes(),
	}
}
