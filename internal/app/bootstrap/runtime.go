package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/viralforge/mesh/services/financial-rails/M46-dispute-settlement-service/internal/adapters/cache"
	eventadapter "github.com/viralforge/mesh/services/financial-rails/M46-dispute-settlement-service/internal/adapters/events"
	grpcadapter "github.com/viralforge/mesh/services/financial-rails/M46-dispute-settlement-service/internal/adapters/grpc"
	httpadapter "github.com/viralforge/mesh/services/financial-rails/M46-dispute-settlement-service/internal/adapters/http"
	"github.com/viralforge/mesh/services/financial-rails/M46-dispute-settlement-service/internal/adapters/memory"
	"github.com/viralforge/mesh/services/financial-rails/M46-dispute-settlement-service/internal/adapters/postgres"
	"github.com/viralforge/mesh/services/financial-rails/M46-dispute-settlement-service/internal/adapters/security"
	"github.com/viralforge/mesh/services/financial-rails/M46-dispute-settlement-service/internal/application"
	"github.com/viralforge/mesh/services/financial-rails/M46-dispute-settlement-service/internal/domain"
	"github.com/viralforge/mesh/services/financial-rails/M46-dispute-settlement-service/internal/ports"
	"google.golang.org/grpc"
)

type Runtime struct {
	cfg        Config
	logger     *slog.Logger
	httpServer *http.Server
	grpcServer *grpc.Server
	grpcLis    net.Listener

	outboxWorker     *eventadapter.OutboxWorker
	consumerWorker   *eventadapter.ConsumerWorker
	settlementWorker *eventadapter.SettlementWorker
}

// NewRuntime wires the full service graph. External dependencies degrade
// gracefully: without a postgres URL the service runs on in-memory
// repositories, without kafka brokers events land in the log. That keeps
// local bootstrap at zero infrastructure while production config lights up
// the real adapters.
func NewRuntime(ctx context.Context, configPath string) (*Runtime, error) {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})).With("service", cfg.ServiceID)
	slog.SetDefault(logger)

	repos, err := buildRepositories(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	if cfg.RedisURL != "" {
		client, redisErr := cache.Connect(ctx, cfg.RedisURL)
		if redisErr != nil {
			return nil, fmt.Errorf("connect redis: %w", redisErr)
		}
		repos.Control = cache.NewRedisControlStore(client)
		repos.EventDedup = cache.NewRedisEventDedupStore(client)
	}

	events, anchor, consumer, err := buildEventAdapters(cfg, logger)
	if err != nil {
		return nil, err
	}

	service := application.NewService(application.Dependencies{
		Config: application.Config{
			ServiceName: cfg.ServiceID,
			Params: domain.Params{
				MinBatchSize:    cfg.MinBatchSize,
				MaxBatchSize:    cfg.MaxBatchSize,
				BatchInterval:   cfg.BatchInterval,
				ChallengePeriod: cfg.ChallengePeriod,
				SequencerBond:   cfg.SequencerBond,
				FraudProofBond:  cfg.FraudProofBond,
			},
			IdempotencyTTL:       cfg.IdempotencyTTL,
			EventDedupTTL:        cfg.EventDedupTTL,
			OutboxFlushBatchSize: cfg.OutboxBatchSize,
			OutboxMaxAttempts:    cfg.OutboxMaxAttempts,
		},
		Disputes:    repos.Disputes,
		Pending:     repos.Pending,
		Batches:     repos.Batches,
		Proofs:      repos.Proofs,
		Sequencers:  repos.Sequencers,
		ChainState:  repos.ChainState,
		Ledger:      repos.Ledger,
		Control:     repos.Control,
		Idempotency: repos.Idempotency,
		Outbox:      repos.Outbox,
		Events:      events,
		Anchor:      anchor,
		Tx:          repos.Tx,
	})

	var verifier *security.JWTVerifier
	if cfg.JWTSecret != "" {
		verifier, err = security.NewJWTVerifier(cfg.JWTSecret)
		if err != nil {
			return nil, err
		}
	} else {
		logger.Warn("jwt secret not configured, accepting bearer subjects without verification")
	}

	handler := httpadapter.NewHandler(service)
	router := httpadapter.NewRouter(handler, verifier)
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	grpcServer := grpc.NewServer()
	grpcadapter.Register(grpcServer, grpcadapter.NewSettlementInternalServer(service))
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.GRPCPort))
	if err != nil {
		return nil, err
	}

	outboxWorker := eventadapter.NewOutboxWorker(logger, service, cfg.OutboxPollInterval)
	consumerWorker := eventadapter.NewConsumerWorker(logger, consumer, repos.EventDedup, service, events, cfg.ConsumerInterval, cfg.EventDedupTTL)

	var settlementWorker *eventadapter.SettlementWorker
	if cfg.LocalSequencerID != "" {
		settlementWorker = eventadapter.NewSettlementWorker(logger, service, cfg.LocalSequencerID, cfg.SettlementInterval)
	} else {
		logger.Info("no local sequencer configured, batch commits left to external sequencers")
	}

	return &Runtime{
		cfg:              cfg,
		logger:           logger,
		httpServer:       httpServer,
		grpcServer:       grpcServer,
		grpcLis:          lis,
		outboxWorker:     outboxWorker,
		consumerWorker:   consumerWorker,
		settlementWorker: settlementWorker,
	}, nil
}

// repositorySet is the adapter-agnostic repository wiring consumed by the
// service constructor.
type repositorySet struct {
	Disputes    ports.DisputeRepository
	Pending     ports.PendingQueueRepository
	Batches     ports.BatchRepository
	Proofs      ports.FraudProofRepository
	Sequencers  ports.SequencerRepository
	ChainState  ports.ChainStateRepository
	Ledger      ports.LedgerEntryRepository
	Control     ports.ControlRepository
	Idempotency ports.IdempotencyRepository
	Outbox      ports.OutboxRepository
	EventDedup  ports.EventDedupRepository
	Tx          ports.Transactor
}

func buildRepositories(ctx context.Context, cfg Config, logger *slog.Logger) (repositorySet, error) {
	if cfg.DatabaseURL == "" {
		logger.Warn("postgres url not configured, using in-memory repositories")
		repos := memory.NewRepositories(time.Now().UTC())
		return repositorySet{
			Disputes:    repos.Disputes,
			Pending:     repos.Pending,
			Batches:     repos.Batches,
			Proofs:      repos.Proofs,
			Sequencers:  repos.Sequencers,
			ChainState:  repos.ChainState,
			Ledger:      repos.Ledger,
			Control:     repos.Control,
			Idempotency: repos.Idempotency,
			Outbox:      repos.Outbox,
			EventDedup:  repos.EventDedup,
			Tx:          memory.NewTransactor(),
		}, nil
	}

	db, err := postgres.Connect(ctx, cfg.DatabaseURL, cfg.MaxDBConns)
	if err != nil {
		return repositorySet{}, fmt.Errorf("connect postgres: %w", err)
	}
	if err := postgres.RunMigrations(ctx, db); err != nil {
		return repositorySet{}, fmt.Errorf("run migrations: %w", err)
	}
	repos := postgres.NewRepositories(db)
	return repositorySet{
		Disputes:    repos.Disputes,
		Pending:     repos.Pending,
		Batches:     repos.Batches,
		Proofs:      repos.Proofs,
		Sequencers:  repos.Sequencers,
		ChainState:  repos.ChainState,
		Ledger:      repos.Ledger,
		Control:     repos.Control,
		Idempotency: repos.Idempotency,
		Outbox:      repos.Outbox,
		EventDedup:  repos.EventDedup,
		Tx:          postgres.NewTransactor(db),
	}, nil
}

func buildEventAdapters(cfg Config, logger *slog.Logger) (ports.EventPublisher, ports.AnchorClient, eventadapter.Consumer, error) {
	if len(cfg.KafkaBrokers) == 0 {
		logger.Warn("kafka brokers not configured, events will be logged only")
		return eventadapter.NewLoggingPublisher(logger), eventadapter.NewLoggingAnchorClient(logger), eventadapter.NewNoopConsumer(), nil
	}

	publisher, err := eventadapter.NewKafkaPublisher(cfg.KafkaBrokers, map[string]string{
		domain.EventDisputeSubmitted:   "settlement.disputes",
		domain.EventBatchCommitted:     "settlement.batches",
		domain.EventBatchChallenged:    "settlement.batches",
		domain.EventBatchRejected:      "settlement.batches",
		domain.EventBatchFinalized:     "settlement.batches",
		domain.EventFraudProofResolved: "settlement.analytics",
		domain.EventDeadLetter:         "settlement.dlq",
	})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("kafka publisher: %w", err)
	}
	anchor, err := eventadapter.NewKafkaAnchorClient(cfg.KafkaBrokers, cfg.AnchorReceivedTopic, cfg.AnchorFinalizedTopic)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("kafka anchor client: %w", err)
	}
	consumer, err := eventadapter.NewKafkaConsumer(cfg.KafkaBrokers, cfg.KafkaGroupID, []string{cfg.IntakeTopic})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return publisher, anchor, consumer, nil
}

func (r *Runtime) RunAPI(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	errCh := make(chan error, 2)

	go func() {
		if err := r.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	go func() {
		if err := r.grpcServer.Serve(r.grpcLis); err != nil {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		r.logger.ErrorContext(ctx, "runtime failure", "error", err)
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = r.httpServer.Shutdown(shutdownCtx)
	r.grpcServer.GracefulStop()
	return nil
}

func (r *Runtime) RunWorker(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	errCh := make(chan error, 3)

	go func() {
		if err := r.outboxWorker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			errCh <- err
		}
	}()
	go func() {
		if err := r.consumerWorker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			errCh <- err
		}
	}()
	if r.settlementWorker != nil {
		go func() {
			if err := r.settlementWorker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				errCh <- err
			}
		}()
	}

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}
