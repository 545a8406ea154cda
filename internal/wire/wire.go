// Package wire provides dependency injection for claimdesk.
// It creates singleton services with lazy initialization.
package wire

import (
	"io"
	"log"
	"net/http"
	"os"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	cliadapter "github.com/example/claimdesk/internal/adapters/cli"
	"github.com/example/claimdesk/internal/adapters/directory"
	"github.com/example/claimdesk/internal/adapters/messaging"
	"github.com/example/claimdesk/internal/adapters/redisqueue"
	"github.com/example/claimdesk/internal/adapters/redisstore"
	"github.com/example/claimdesk/internal/adapters/sqlite"
	"github.com/example/claimdesk/internal/app"
	"github.com/example/claimdesk/internal/config"
	"github.com/example/claimdesk/internal/core/assignment"
	"github.com/example/claimdesk/internal/core/escalation"
	"github.com/example/claimdesk/internal/core/notification"
	"github.com/example/claimdesk/internal/db"
	"github.com/example/claimdesk/internal/logging"
	"github.com/example/claimdesk/internal/ports/primary"
	"github.com/example/claimdesk/internal/ports/secondary"
)

var (
	configDir = "."

	cfg         *config.Config
	logger      *zap.Logger
	redisClient *redis.Client
	registry    *prometheus.Registry
	metrics     *redisqueue.Metrics

	notificationQueue *redisqueue.Queue
	escalationQueue   *redisqueue.Queue

	claimService      *app.ClaimServiceImpl
	escalationService *app.EscalationServiceImpl
	intakeService     *app.IntakeServiceImpl
	queueAdminService *app.QueueAdminServiceImpl
	sweepService      *app.SweepServiceImpl
	dispatcher        *app.NotificationDispatcher
	escalationJobs    *app.EscalationJobs

	once sync.Once
)

// SetConfigDir sets the directory holding .claimdesk/config.yaml.
// Must be called before any accessor.
func SetConfigDir(dir string) {
	configDir = dir
}

// Config returns the loaded configuration.
func Config() *config.Config {
	once.Do(initServices)
	return cfg
}

// Logger returns the process logger.
func Logger() *zap.Logger {
	once.Do(initServices)
	return logger
}

// ClaimService returns the singleton ClaimService instance.
func ClaimService() primary.ClaimService {
	once.Do(initServices)
	return claimService
}

// EscalationService returns the singleton EscalationService instance.
func EscalationService() primary.EscalationService {
	once.Do(initServices)
	return escalationService
}

// IntakeService returns the singleton IntakeService instance.
func IntakeService() primary.IntakeService {
	once.Do(initServices)
	return intakeService
}

// QueueAdminService returns the singleton QueueAdminService instance.
func QueueAdminService() primary.QueueAdminService {
	once.Do(initServices)
	return queueAdminService
}

// SweepService returns the singleton SweepService instance.
func SweepService() primary.SweepService {
	once.Do(initServices)
	return sweepService
}

// initServices initializes all services and their dependencies.
// This is called once via sync.Once.
func initServices() {
	var err error
	cfg, err = config.LoadConfig(configDir)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err = logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	zap.ReplaceGlobals(logger)

	if cfg.Database.Path != "" {
		db.SetPath(cfg.Database.Path)
	}
	database, err := db.GetDB()
	if err != nil {
		log.Fatalf("failed to initialize database: %v", err)
	}

	redisClient = redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	registry = prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics = redisqueue.NewMetrics(registry)

	notificationQueue = redisqueue.New(redisClient, queueConfig(notification.QueueNotifications, cfg.Queues.Notifications), metrics)
	escalationQueue = redisqueue.New(redisClient, queueConfig(escalation.QueueEscalations, cfg.Queues.Escalations), metrics)

	// Create repository adapters (secondary ports) - sqlite adapters with injected DB
	claimRepo := sqlite.NewClaimRepository(database)
	escalationRepo := sqlite.NewEscalationRepository(database)
	conversations := redisstore.NewConversationStore(redisClient, redisstore.Config{
		Prefix: cfg.Redis.Prefix + ":conversation",
		TTL:    cfg.Conversation.TTL,
	})

	// Config was validated on load
	levels, _ := cfg.LevelTable()
	strategy, _ := assignment.New(cfg.Assignment.Strategy)

	executor := app.NewEffectExecutor(logger, notificationQueue, escalationQueue)

	// Create services (primary ports implementation)
	claimService = app.NewClaimService(claimRepo)
	escalationService = app.NewEscalationService(escalationRepo, claimRepo, escalationQueue, executor, app.EscalationPolicy{
		Levels:   levels,
		Pools:    cfg.Assignment.Pools,
		Strategy: strategy,
	}, logger)
	intakeService = app.NewIntakeService(conversations, escalationService, logger)
	queueAdminService = app.NewQueueAdminService(notificationQueue, escalationQueue)
	sweepService = app.NewSweepService(escalationRepo, escalationQueue, logger)

	dir := directory.NewStatic(contacts(cfg.Agents), contacts(cfg.Management))
	dispatcher = app.NewNotificationDispatcher(claimRepo, dir, messagingProvider(cfg.Messaging, logger), logger)
	escalationJobs = app.NewEscalationJobs(escalationService, logger)
}

// NotificationWorker returns a worker for the notifications queue with
// every notification handler registered.
func NotificationWorker() *redisqueue.Worker {
	once.Do(initServices)
	w := redisqueue.NewWorker(notificationQueue, workerConfig(cfg.Queues.Notifications), logger, metrics)
	dispatcher.Register(w)
	return w
}

// EscalationWorker returns a worker for the escalations queue with every
// escalation handler registered.
func EscalationWorker() *redisqueue.Worker {
	once.Do(initServices)
	w := redisqueue.NewWorker(escalationQueue, workerConfig(cfg.Queues.Escalations), logger, metrics)
	escalationJobs.Register(w)
	return w
}

// MetricsHandler serves the process registry in the Prometheus text format.
func MetricsHandler() http.Handler {
	once.Do(initServices)
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry})
}

// Close releases the Redis and database connections and flushes the logger.
func Close() {
	if redisClient != nil {
		_ = redisClient.Close()
	}
	_ = db.Close()
	if logger != nil {
		_ = logger.Sync()
	}
}

// EscalationAdapter returns a new EscalationAdapter writing to stdout.
// Each call creates a new adapter (adapters are stateless translators).
func EscalationAdapter() *cliadapter.EscalationAdapter {
	return EscalationAdapterWithOutput(os.Stdout)
}

// EscalationAdapterWithOutput returns a new EscalationAdapter writing to the given output.
func EscalationAdapterWithOutput(out io.Writer) *cliadapter.EscalationAdapter {
	once.Do(initServices)
	return cliadapter.NewEscalationAdapter(escalationService, out)
}

// ClaimAdapter returns a new ClaimAdapter writing to stdout.
func ClaimAdapter() *cliadapter.ClaimAdapter {
	once.Do(initServices)
	return cliadapter.NewClaimAdapter(claimService, os.Stdout)
}

// QueueAdapter returns a new QueueAdapter writing to stdout.
func QueueAdapter() *cliadapter.QueueAdapter {
	once.Do(initServices)
	return cliadapter.NewQueueAdapter(queueAdminService, sweepService, os.Stdout)
}

func queueConfig(name string, q config.QueueConfig) redisqueue.Config {
	return redisqueue.Config{
		Name:         name,
		Prefix:       cfg.Redis.Prefix,
		Attempts:     q.Attempts,
		Backoff:      q.Backoff,
		LockDuration: q.LockDuration,
	}
}

func workerConfig(q config.QueueConfig) redisqueue.WorkerConfig {
	return redisqueue.WorkerConfig{
		Concurrency: q.Concurrency,
		RateLimit:   q.RateLimit,
	}
}

func messagingProvider(m config.MessagingConfig, logger *zap.Logger) secondary.MessagingProvider {
	if m.Provider == "webhook" {
		return messaging.NewWebhookProvider(messaging.WebhookConfig{
			URL:     m.WebhookURL,
			Token:   m.Token,
			Timeout: m.Timeout,
		})
	}
	return messaging.NewLogProvider(logger)
}

func contacts(in []config.Contact) []secondary.Contact {
	out := make([]secondary.Contact, 0, len(in))
	for _, c := range in {
		out = append(out, secondary.Contact{ID: c.ID, Name: c.Name, Phone: c.Phone, Channel: c.Channel})
	}
	return out
}
