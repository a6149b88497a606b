package agent

import (
	"fmt"
	"sync"
	"time"

	"github.com/praxida/careflow/action"
	"github.com/praxida/careflow/config"
	"github.com/praxida/careflow/engine"
	"github.com/praxida/careflow/event"
	"github.com/praxida/careflow/executor"
	"github.com/praxida/careflow/logger"
	"github.com/praxida/careflow/metadata"
	"github.com/praxida/careflow/persistence"
	"github.com/praxida/careflow/persistence/inmem"
	"github.com/praxida/careflow/persistence/redis"
	"github.com/praxida/careflow/rest"
)

// Agent wires the whole node: storage, action registry, metadata service,
// enrollment runner, event intake, wakeup poller and the http server.
type Agent struct {
	Config config.Config

	workflowStorage   persistence.WorkflowStorage
	enrollmentStorage persistence.EnrollmentStorage
	delayQueue        persistence.DelayQueue
	markerStore       persistence.MarkerStore

	registry        *action.Registry
	metadataService *metadata.Service
	runner          *engine.Runner
	intake          *event.Intake
	poller          *executor.WakeupPoller
	httpServer      *rest.Server

	shutdown     bool
	shutdownLock sync.Mutex
	wg           sync.WaitGroup
}

func New(conf config.Config) (*Agent, error) {
	a := &Agent{
		Config: conf,
	}
	setup := []func() error{
		a.setupStorage,
		a.setupRegistry,
		a.setupMetadataService,
		a.setupRunner,
		a.setupIntake,
		a.setupPoller,
		a.setupHttpServer,
	}
	for _, fn := range setup {
		if err := fn(); err != nil {
			return nil, err
		}
	}
	return a, nil
}

func (a *Agent) setupStorage() error {
	switch a.Config.StorageType {
	case config.STORAGE_TYPE_REDIS:
		provider := redis.NewProvider(redis.Config{
			Addrs:      a.Config.RedisConfig.Addrs,
			Namespace:  a.Config.RedisConfig.Namespace,
			Partitions: a.Config.RedisConfig.Partitions,
		})
		a.workflowStorage = provider.WorkflowStorage()
		a.enrollmentStorage = provider.EnrollmentStorage()
		a.delayQueue = provider.DelayQueue()
		a.markerStore = provider.MarkerStore()
	case config.STORAGE_TYPE_INMEM:
		a.workflowStorage = inmem.NewWorkflowStorage()
		a.enrollmentStorage = inmem.NewEnrollmentStorage()
		a.delayQueue = inmem.NewDelayQueue(a.Config.RedisConfig.Partitions)
		a.markerStore = inmem.NewMarkerStore()
	default:
		return fmt.Errorf("unsupported storage implementation %s", a.Config.StorageType)
	}
	return nil
}

func (a *Agent) setupRegistry() error {
	a.registry = action.NewRegistry(action.NewLoggingCollaborators())
	return nil
}

func (a *Agent) setupMetadataService() error {
	a.metadataService = metadata.NewService(a.workflowStorage, a.registry)
	return nil
}

func (a *Agent) setupRunner() error {
	retryPolicy := engine.RetryPolicy{
		MaxRetries: a.Config.RetryConfig.MaxRetries,
		BaseDelay:  a.Config.RetryConfig.BaseDelay,
		MaxDelay:   a.Config.RetryConfig.MaxDelay,
	}
	if retryPolicy.MaxRetries == 0 {
		retryPolicy = engine.DefaultRetryPolicy()
	}
	a.runner = engine.NewRunner(a.metadataService, a.enrollmentStorage, a.delayQueue,
		a.markerStore, a.registry, retryPolicy)
	return nil
}

func (a *Agent) setupIntake() error {
	a.intake = event.NewIntake(a.metadataService, a.runner, a.markerStore, &a.wg, a.Config.IntakeCapacity)
	a.intake.Start()
	return nil
}

func (a *Agent) setupPoller() error {
	pollInterval := a.Config.PollInterval
	if pollInterval == 0 {
		pollInterval = 1 * time.Second
	}
	a.poller = executor.NewWakeupPoller(a.delayQueue, a.runner, a.Config.BatchSize, pollInterval, &a.wg)
	a.poller.Start()
	return nil
}

func (a *Agent) setupHttpServer() error {
	var err error
	a.httpServer, err = rest.NewServer(a.Config.HttpPort, a.metadataService, a.intake, a.enrollmentStorage)
	if err != nil {
		return err
	}
	return nil
}

func (a *Agent) Start() error {
	go func() {
		if err := a.httpServer.Start(); err != nil {
			_ = a.Shutdown()
			panic(err)
		}
	}()
	return nil
}

func (a *Agent) Shutdown() error {
	logger.Info("shutting down server")
	a.shutdownLock.Lock()
	defer a.shutdownLock.Unlock()
	if a.shutdown {
		return nil
	}
	a.shutdown = true

	shutdown := []func() error{
		a.httpServer.Stop,
		func() error {
			a.poller.Stop()
			return nil
		},
		func() error {
			a.intake.Stop()
			return nil
		},
	}
	for _, fn := range shutdown {
		if err := fn(); err != nil {
			return err
		}
	}
	logger.Info("waiting for all services to shutdown...")
	a.wg.Wait()
	return nil
}
