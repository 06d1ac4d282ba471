package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"redraft/internal/domain/models"
	"redraft/internal/domain/repositories"
)

// PostgresCommentRepository implements the CommentRepository interface.
type PostgresCommentRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
	logger *slog.Logger
}

// NewCommentRepository creates a new comment repository.
func NewCommentRepository(config *RepositoryConfig) repositories.CommentRepository {
	return &PostgresCommentRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

// Create appends a comment to a work's conversation thread.
func (r *PostgresCommentRepository) Create(ctx context.Context, workID, userEmail, content string) (string, error) {
	query := fmt.Sprintf(`
		INSERT INTO %s (work_id, user_email, content, created_at)
		VALUES ($1, $2, $3, NOW())
		RETURNING id
	`, r.tables.WorkComments)

	var id string
	executor := GetExecutor(ctx, r.pool)
	if err := executor.QueryRow(ctx, query, workID, userEmail, content).Scan(&id); err != nil {
		return "", fmt.Errorf("create comment: %w", err)
	}
	return id, nil
}

// ListByWork returns a work's comments oldest first.
func (r *PostgresCommentRepository) ListByWork(ctx context.Context, workID string) ([]models.Comment, error) {
	query := fmt.Sprintf(`
		SELECT id, work_id, user_email, content, created_at
		FROM %s
		WHERE work_id = $1
		ORDER BY created_at
	`, r.tables.WorkComments)

	executor := GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, workID)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	defer rows.Close()

	var comments []models.Comment
	for rows.Next() {
		var c models.Comment
		if err := rows.Scan(&c.ID, &c.WorkID, &c.UserEmail, &c.Content, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		comments = append(comments, c)
	}
	return comments, rows.Err()
}
