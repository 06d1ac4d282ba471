package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"redraft/internal/domain/repositories"
)

// RepositoryConfig holds shared dependencies for repository implementations.
type RepositoryConfig struct {
	Pool   *pgxpool.Pool
	Tables *TableNames
	Logger *slog.Logger
}

// TableNames holds environment-prefixed table names.
type TableNames struct {
	Users                 string
	Works                 string
	WorkVersions          string
	TextAnalyses          string
	SuggestionResolutions string
	WorkComments          string
}

// NewTableNames creates table names with the given prefix (dev_, test_, prod_).
func NewTableNames(prefix string) *TableNames {
	return &TableNames{
		Users:                 prefix + "users",
		Works:                 prefix + "works",
		WorkVersions:          prefix + "work_versions",
		TextAnalyses:          prefix + "text_analyses",
		SuggestionResolutions: prefix + "suggestion_resolutions",
		WorkComments:          prefix + "work_comments",
	}
}

// CreateConnectionPool creates a pgx connection pool and verifies it
// with a ping before returning.
func CreateConnectionPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse connection string: %w", err)
	}

	config.MaxConns = 25
	config.MinConns = 5

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return pool, nil
}

// GetExecutor returns the transaction bound to the context if one
// exists, otherwise the pool. Repositories call this on every query so
// they automatically participate in transactions.
func GetExecutor(ctx context.Context, pool *pgxpool.Pool) repositories.DBTX {
	if tx := repositories.GetTx(ctx); tx != nil {
		return tx
	}
	return pool
}
