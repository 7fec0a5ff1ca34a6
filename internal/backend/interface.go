package backend

import (
	"context"

	"expensetracker/internal/amqp"
	"expensetracker/internal/services"
	"expensetracker/internal/store"
)

// CleanupFunc releases the resources of a backend.
type CleanupFunc func() error

// Result is everything a process needs from its storage backend.
type Result struct {
	Repository store.Repository
	// Seeder supplies the initial category labels.
	Seeder services.CategorySeeder
	// Publisher is nil when AMQP is not configured or unreachable.
	Publisher *amqp.Client
	// Ping reports whether the store is reachable.
	Ping    func(ctx context.Context) error
	Cleanup CleanupFunc
}

// Factory creates backends based on configuration.
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*Result, error)
}

// Config holds configuration for backend creation.
type Config struct {
	Type BackendType

	// SQLite specific
	SQLiteDBPath string
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Directory holding the category seed files.
	DataDirectory string
}

type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

func (bt BackendType) String() string {
	return string(bt)
}

func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}

// ChangePublisher returns the publisher as a service port, or a nil
// interface when AMQP is off.
func (r *Result) ChangePublisher() services.ChangePublisher {
	if r.Publisher == nil {
		return nil
	}
	return r.Publisher
}
