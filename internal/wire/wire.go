// Package wire provides dependency injection for the robotaste application.
// It creates singleton services with lazy initialization.
package wire

import (
	"log"
	"sync"
	"time"

	"github.com/alon-nissan/robotaste-sub000/internal/adapters/dispense"
	"github.com/alon-nissan/robotaste-sub000/internal/adapters/selection"
	"github.com/alon-nissan/robotaste-sub000/internal/adapters/sqlite"
	"github.com/alon-nissan/robotaste-sub000/internal/app"
	"github.com/alon-nissan/robotaste-sub000/internal/config"
	"github.com/alon-nissan/robotaste-sub000/internal/db"
	"github.com/alon-nissan/robotaste-sub000/internal/device"
	"github.com/alon-nissan/robotaste-sub000/internal/ports/primary"
)

var (
	protocolService primary.ProtocolService
	sessionService  primary.SessionService
	cycleService    primary.CycleService
	queueService    primary.QueueService
	executor        *app.Executor
	deviceManager   *device.Manager
	once            sync.Once
)

// ProtocolService returns the singleton ProtocolService instance.
func ProtocolService() primary.ProtocolService {
	once.Do(initServices)
	return protocolService
}

// SessionService returns the singleton SessionService instance.
func SessionService() primary.SessionService {
	once.Do(initServices)
	return sessionService
}

// CycleService returns the singleton CycleService instance.
func CycleService() primary.CycleService {
	once.Do(initServices)
	return cycleService
}

// QueueService returns the singleton QueueService instance.
func QueueService() primary.QueueService {
	once.Do(initServices)
	return queueService
}

// Executor returns the singleton queue executor.
func Executor() *app.Executor {
	once.Do(initServices)
	return executor
}

// DeviceManager returns the singleton session-scoped connection registry.
func DeviceManager() *device.Manager {
	once.Do(initServices)
	return deviceManager
}

// initServices initializes all services and their dependencies.
// This is called once via sync.Once.
func initServices() {
	// Get database connection
	database, err := db.GetDB()
	if err != nil {
		log.Fatalf("failed to initialize database: %v", err)
	}

	// Create repository adapters (secondary ports) - sqlite adapters with injected DB
	protocolRepo := sqlite.NewProtocolRepository(database)
	sessionRepo := sqlite.NewSessionRepository(database)
	operationRepo := sqlite.NewOperationRepository(database)
	logRepo := sqlite.NewOperationLogRepository(database)
	sampleRepo := sqlite.NewSampleRepository(database)

	deviceManager = device.NewManager()
	dispenser := dispense.NewPassthrough()
	selector := selection.NewManualProvider()

	// Create services (primary ports implementation)
	protocolService = app.NewProtocolService(protocolRepo)
	sessionService = app.NewSessionService(sessionRepo, protocolRepo, sampleRepo, deviceManager)
	cycleService = app.NewCycleService(sessionRepo, protocolRepo, operationRepo, sampleRepo, dispenser, selector, deviceManager)
	queueService = app.NewQueueService(operationRepo, logRepo)

	executor = app.NewExecutor(sessionRepo, protocolRepo, operationRepo, logRepo, deviceManager)
	if cfg, err := config.Load(); err == nil && cfg.ExecutorPollSeconds > 0 {
		executor.SetPollInterval(time.Duration(cfg.ExecutorPollSeconds * float64(time.Second)))
	}
}
