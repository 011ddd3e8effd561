// Package di wires the application together. The container is assembled by
// hand: construction order is explicit and there is no codegen step.
package di

import (
	"context"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"go.uber.org/zap"

	"carelink-backend/interfaces/http/rest"
	"carelink-backend/interfaces/http/rest/handlers"
	"carelink-backend/internal/assistant"
	"carelink-backend/internal/config"
	"carelink-backend/internal/domain/care"
	"carelink-backend/internal/identity"
	"carelink-backend/internal/intent"
	"carelink-backend/internal/notifications"
	"carelink-backend/internal/observability"
	"carelink-backend/internal/relationship"
	"carelink-backend/internal/schedule"
	"carelink-backend/internal/sources"
	"carelink-backend/internal/store"
	"carelink-backend/pkg/auth"
)

// Container holds every constructed component.
type Container struct {
	Config *config.Config
	Logger *zap.Logger

	Store      store.DocumentStore
	Normalizer *identity.Normalizer
	Accounts   *sources.AccountsRepository
	Aggregator *schedule.Aggregator
	Resolver   *relationship.Resolver
	Assistant  *assistant.Service
	Metrics    *observability.Collector
	Router     rest.RouterConfig

	audit        notifications.AuditPublisher
	aliasWatcher *config.AliasWatcher
}

// NewContainer builds the full dependency graph.
func NewContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	logger, err := newLogger(cfg)
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}

	c := &Container{Config: cfg, Logger: logger}

	if err := c.initIdentity(); err != nil {
		return nil, err
	}
	if err := c.initStore(ctx); err != nil {
		return nil, err
	}
	c.initCore()
	if err := c.initHTTP(); err != nil {
		return nil, err
	}
	return c, nil
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	var zapCfg zap.Config
	if cfg.IsProduction() {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}
	if err := zapCfg.Level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		zapCfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	return zapCfg.Build()
}

// initIdentity sets up the normalizer, with the file-watched alias table
// when one is configured.
func (c *Container) initIdentity() error {
	if c.Config.AliasTablePath == "" {
		c.Normalizer = identity.NewNormalizer(nil)
		return nil
	}

	watcher, err := config.NewAliasWatcher(c.Config.AliasTablePath, c.Logger)
	if err != nil {
		return fmt.Errorf("alias table watcher: %w", err)
	}
	watcher.Start()
	c.aliasWatcher = watcher
	c.Normalizer = identity.NewNormalizer(watcher.Table())
	return nil
}

func (c *Container) initStore(ctx context.Context) error {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(c.Config.AWSRegion))
	if err != nil {
		return fmt.Errorf("load aws config: %w", err)
	}

	var docs store.DocumentStore = store.NewDynamoDBStore(
		dynamodb.NewFromConfig(awsCfg),
		c.Config.DynamoDBTable,
		c.Logger,
	)
	if c.Config.EnableBreaker {
		docs = store.NewBreakerStore(docs, store.DefaultBreakerConfig("document-store"), c.Logger)
	}
	c.Store = docs

	if c.Config.EventBusName != "" {
		c.audit = notifications.NewEventBridgeAuditPublisher(
			eventbridge.NewFromConfig(awsCfg),
			c.Config.EventBusName,
			"carelink-backend",
			c.Logger,
		)
	} else {
		c.audit = notifications.NopAuditPublisher{}
	}
	return nil
}

func (c *Container) initCore() {
	if c.Config.EnableMetrics {
		c.Metrics = observability.NewCollector("carelink")
	}

	c.Accounts = sources.NewAccountsRepository(c.Store, c.Normalizer)

	history := sources.WithHistoryLimit(c.Config.HistoryLimit)
	adapters := []sources.Adapter{
		sources.NewAppointmentAdapter(c.Store, history),
		sources.NewConsultationAdapter(c.Store, history),
		sources.NewMedicationAdapter(c.Store, history),
		sources.NewReminderAdapter(c.Store, history),
		sources.NewRoutineAdapter(c.Store, history),
		sources.NewActivityAdapter(c.Store, c.Normalizer, history),
	}

	var aggOpts []schedule.Option
	if c.Metrics != nil {
		aggOpts = append(aggOpts, schedule.WithMetrics(c.Metrics))
	}
	c.Aggregator = schedule.NewAggregator(adapters, c.Logger, aggOpts...)

	enricher := relationship.NewEnricher(
		c.Aggregator.Adapter(care.SourceMedication),
		c.Aggregator.Adapter(care.SourceAppointment),
		c.Aggregator.Adapter(care.SourceConsultation),
		c.Normalizer,
		nil,
		c.Logger,
	)
	c.Resolver = relationship.NewResolver(c.Accounts, c.Normalizer, enricher, c.Logger)

	var svcOpts []assistant.Option
	if c.Metrics != nil {
		svcOpts = append(svcOpts, assistant.WithMetrics(c.Metrics))
	}
	c.Assistant = assistant.NewService(
		intent.NewClassifier(),
		c.Accounts,
		c.Normalizer,
		c.Aggregator,
		c.Resolver,
		c.audit,
		c.Config.QueryBudget,
		nil,
		c.Logger,
		svcOpts...,
	)
}

func (c *Container) initHTTP() error {
	var validator *auth.Validator
	if c.Config.JWTSecret != "" {
		v, err := auth.NewValidator(c.Config.JWTSecret, c.Config.JWTIssuer)
		if err != nil {
			return fmt.Errorf("jwt validator: %w", err)
		}
		validator = v
	}

	c.Router = rest.RouterConfig{
		Assistant:         handlers.NewAssistantHandler(c.Assistant, c.Logger),
		Health:            handlers.NewHealthHandler(c.Store, "1.0.0"),
		Metrics:           c.Metrics,
		Validator:         validator,
		HeaderPassthrough: c.Config.IsLambda,
		EnableCORS:        c.Config.EnableCORS,
		Logger:            c.Logger,
	}
	return nil
}

// Shutdown stops background work and flushes logs.
func (c *Container) Shutdown() {
	if c.aliasWatcher != nil {
		c.aliasWatcher.Stop()
	}
	_ = c.Logger.Sync()
}
