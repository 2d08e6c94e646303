// Package cmd provides common initialization for command-line entrypoints.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/flowdeck/flowdeck/pkg/persistence"
	"github.com/flowdeck/flowdeck/pkg/persistence/file"
	"github.com/flowdeck/flowdeck/pkg/persistence/postgresql"
)

// NewPersistence selects the storage engine from the URL scheme:
// postgres://... uses PostgreSQL, anything else is treated as a file root.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) persistence.Persistence {
	switch {
	case strings.HasPrefix(databaseURL, "postgres://"), strings.HasPrefix(databaseURL, "postgresql://"):
		p, err := postgresql.NewPersistence(ctx, logger, databaseURL)
		if err != nil {
			panic(fmt.Errorf("failed to initialize postgresql persistence: %w", err))
		}

		return p
	default:
		return file.NewPersistence(databaseURL)
	}
}
