package config

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/dealbrain-lab/dealbrain/pkg/domain/interfaces"
	"github.com/dealbrain-lab/dealbrain/pkg/repository/memory"
	"github.com/dealbrain-lab/dealbrain/pkg/repository/sqlite"
	"github.com/dealbrain-lab/dealbrain/pkg/utils/logging"
)

// Repository holds CLI flags for storage backend configuration
type Repository struct {
	backend string
	dbPath  string
}

// Flags returns CLI flags for repository configuration
func (r *Repository) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "repository-backend",
			Usage:       "Repository backend type (sqlite or memory)",
			Value:       "sqlite",
			Sources:     cli.EnvVars("DEALBRAIN_REPOSITORY_BACKEND"),
			Destination: &r.backend,
		},
		&cli.StringFlag{
			Name:        "db-path",
			Usage:       "Path to the SQLite database file",
			Value:       "dealbrain.db",
			Sources:     cli.EnvVars("DEALBRAIN_DB_PATH"),
			Destination: &r.dbPath,
		},
	}
}

// DBPath returns the configured SQLite database path
func (r *Repository) DBPath() string {
	return r.dbPath
}

// Configure initializes the repository. The caller is responsible for
// calling Close() on the returned repository.
func (r *Repository) Configure(ctx context.Context) (interfaces.Repository, error) {
	switch r.backend {
	case "sqlite":
		store, err := sqlite.Open(r.dbPath)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to open sqlite repository", goerr.V("path", r.dbPath))
		}
		logging.Default().Info("Using SQLite repository", "path", r.dbPath)
		return store, nil

	case "memory":
		logging.Default().Info("Using in-memory repository (development mode)")
		return memory.New(), nil

	default:
		return nil, goerr.New("invalid repository backend", goerr.V("backend", r.backend))
	}
}
