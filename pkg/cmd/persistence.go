// Package cmd provides common initialization functions for command-line applications.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/outflowhq/outflow/pkg/persistence"
	"github.com/outflowhq/outflow/pkg/persistence/file"
	"github.com/outflowhq/outflow/pkg/persistence/postgresql"
	"github.com/outflowhq/outflow/pkg/persistence/rediscache"
)

// NewPersistence builds the persistence layer from a database URL.
// postgres:// URLs get the PostgreSQL backend; anything else is treated
// as a file path. A non-empty redisURL wraps the store in a Redis
// read-through cache.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL, redisURL string) (persistence.Persistence, error) {
	var (
		store persistence.Persistence
		err   error
	)

	switch {
	case strings.HasPrefix(databaseURL, "postgres://"), strings.HasPrefix(databaseURL, "postgresql://"):
		store, err = postgresql.NewPersistence(ctx, logger, databaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize postgresql persistence: %w", err)
		}
	default:
		store = file.NewPersistence(databaseURL)
	}

	if redisURL == "" {
		return store, nil
	}

	cached, err := rediscache.NewPersistence(ctx, logger, store, redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize redis cache: %w", err)
	}

	return cached, nil
}
