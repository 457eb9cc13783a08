package config

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/draftea/saga-coordinator/coordinator-service/application"
	"github.com/draftea/saga-coordinator/coordinator-service/handlers"
	"github.com/draftea/saga-coordinator/coordinator-service/infrastructure"
	"github.com/draftea/saga-coordinator/shared/client"
	"github.com/draftea/saga-coordinator/shared/discovery"
	sharedinfra "github.com/draftea/saga-coordinator/shared/infrastructure"
	"github.com/draftea/saga-coordinator/shared/resilience"
	"github.com/draftea/saga-coordinator/shared/saga"
	"github.com/draftea/saga-coordinator/shared/telemetry"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

type Dependencies struct {
	// Database
	DB *sqlx.DB

	// Resilience
	Resolver        *discovery.Resolver
	BreakerRegistry *resilience.Registry
	RemoteClient    *client.Client

	// Saga
	SagaStore    *infrastructure.PostgresSagaStore
	Orchestrator *saga.Orchestrator

	// Use Cases
	StartSaga  *application.StartSaga
	GetSaga    *application.GetSaga
	CancelSaga *application.CancelSaga

	// HTTP Handlers
	SagaHandlers    *handlers.SagaHandlers
	BreakerHandlers *handlers.BreakerHandlers

	// Event Handlers
	SagaEventHandlers *handlers.SagaEventHandlers

	// Infrastructure
	EventPublisher  *sharedinfra.SNSPublisherAdapter
	EventSubscriber *sharedinfra.SQSSubscriberAdapter

	// Telemetry
	Telemetry         *telemetry.Telemetry
	TelemetryShutdown func()
}

func BuildDependencies(ctx context.Context, config *Config) (*Dependencies, error) {
	deps := &Dependencies{}

	// Initialize telemetry first
	if config.Telemetry.Enabled {
		telConfig := telemetry.NewConfigForService(config.ServiceName, "1.0.0", config.Telemetry.OTLPEndpoint)
		tel, telemetryShutdown, err := telemetry.InitTelemetry(ctx, telConfig)
		if err != nil {
			log.Printf("Failed to initialize telemetry: %v", err)
			// Continue without telemetry rather than failing
		} else {
			deps.Telemetry = tel
			deps.TelemetryShutdown = telemetryShutdown
		}
	}

	// Initialize database
	db, err := sqlx.Connect("postgres", config.GetDatabaseURL())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	deps.DB = db

	// Initialize AWS infrastructure
	eventPublisher, err := sharedinfra.NewSNSPublisherAdapter(config.AWS.SNSTopicArn)
	if err != nil {
		return nil, fmt.Errorf("failed to create SNS publisher: %w", err)
	}
	deps.EventPublisher = eventPublisher

	eventSubscriber, err := sharedinfra.NewSQSSubscriberAdapter(config.AWS.SQSQueueURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create SQS subscriber: %w", err)
	}
	deps.EventSubscriber = eventSubscriber

	// Initialize service discovery and the resilient client
	deps.Resolver = discovery.NewResolver(
		infrastructure.NewStaticDiscovery(buildServiceMap(config.Discovery)),
		discovery.WithCacheTTL(config.Discovery.CacheTTL()),
	)

	deps.BreakerRegistry = resilience.NewRegistry(resilience.Config{
		FailureThreshold:       config.Resilience.FailureThreshold,
		RequestVolumeThreshold: config.Resilience.RequestVolumeThreshold,
		ErrorPercentThreshold:  float64(config.Resilience.ErrorPercentageThreshold),
		RecoveryTimeout:        config.Resilience.RecoveryTimeout(),
	})

	deps.RemoteClient = client.NewClient(
		deps.Resolver,
		deps.BreakerRegistry,
		client.NewHTTPTransport(http.DefaultClient),
		client.Config{
			AttemptTimeout: config.Client.AttemptTimeout(),
			MaxRetries:     config.Client.MaxRetries,
		},
	)

	// Initialize the saga orchestrator
	deps.SagaStore = infrastructure.NewPostgresSagaStore(db)
	deps.Orchestrator = saga.NewOrchestrator(
		saga.WithPublisher(eventPublisher),
		saga.WithStore(deps.SagaStore),
	)

	orderSaga, err := application.NewOrderSagaDefinition(deps.RemoteClient)
	if err != nil {
		return nil, fmt.Errorf("failed to build order saga definition: %w", err)
	}
	deps.Orchestrator.RegisterDefinition(orderSaga)

	// Initialize use cases
	deps.StartSaga = application.NewStartSaga(deps.Orchestrator)
	deps.GetSaga = application.NewGetSaga(deps.Orchestrator)
	deps.CancelSaga = application.NewCancelSaga(deps.Orchestrator)

	// Initialize handlers
	deps.SagaHandlers = handlers.NewSagaHandlers(deps.StartSaga, deps.GetSaga, deps.CancelSaga)
	deps.BreakerHandlers = handlers.NewBreakerHandlers(deps.BreakerRegistry)
	deps.SagaEventHandlers = handlers.NewSagaEventHandlers(deps.StartSaga, deps.CancelSaga)

	return deps, nil
}

// buildServiceMap converts config service entries into discovery instances
func buildServiceMap(cfg Discovery) map[string][]discovery.Instance {
	services := make(map[string][]discovery.Instance, len(cfg.Services))
	for name, instances := range cfg.Services {
		list := make([]discovery.Instance, len(instances))
		for i, instance := range instances {
			list[i] = discovery.Instance{
				Address: instance.Address,
				Port:    instance.Port,
			}
		}
		services[name] = list
	}
	return services
}

// Close closes all dependencies
func (d *Dependencies) Close() error {
	var errs []error

	if d.DB != nil {
		if err := d.DB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		}
	}

	if d.EventPublisher != nil {
		if err := d.EventPublisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close event publisher: %w", err))
		}
	}

	if d.EventSubscriber != nil {
		if err := d.EventSubscriber.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close event subscriber: %w", err))
		}
	}

	if d.TelemetryShutdown != nil {
		d.TelemetryShutdown()
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors closing dependencies: %v", errs)
	}

	return nil
}
