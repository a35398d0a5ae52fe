package ports

import (
	"context"

	"spendlog/internal/core"
)

// Ports for outbound adapters.
type (
	// LogRepository is the remote document store holding every user's logs.
	LogRepository interface {
		// Create stores a new log for owner and returns the assigned ID.
		Create(ctx context.Context, ownerID string, l core.Log) (logID string, err error)
		// Query returns the owner's logs, newest first.
		Query(ctx context.Context, ownerID string) ([]core.Log, error)
		// Update rewrites the fields changed by an append.
		Update(ctx context.Context, logID string, u core.LogUpdate) error
		Delete(ctx context.Context, logID string) error
	}

	// LogReader fetches a single log by ID regardless of owner.
	LogReader interface {
		Get(ctx context.Context, logID string) (core.Log, error)
	}

	// Backend is what the factory hands to the binaries.
	Backend interface {
		LogRepository
		LogReader
	}

	// ChangePublisher announces persisted mutations.
	ChangePublisher interface {
		PublishLogChange(ctx context.Context, c core.LogChange) error
	}

	// LogExporter mirrors logs into an external reporting surface.
	LogExporter interface {
		ExportLog(ctx context.Context, l core.Log) error
		RemoveLog(ctx context.Context, logID, title string) error
	}
)
