package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"redraft/internal/domain"
	"redraft/internal/domain/models"
	"redraft/internal/domain/repositories"
)

// PostgresWorkRepository implements the WorkRepository interface.
type PostgresWorkRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
	logger *slog.Logger
}

// NewWorkRepository creates a new work repository.
func NewWorkRepository(config *RepositoryConfig) repositories.WorkRepository {
	return &PostgresWorkRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

// Create inserts an empty work and returns its generated id.
func (r *PostgresWorkRepository) Create(ctx context.Context, userEmail string) (string, error) {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, user_email, title, content, current_version, word_count, created_at, updated_at)
		VALUES (gen_random_uuid(), $1, 'Untitled', '', 0, 0, NOW(), NOW())
		RETURNING id
	`, r.tables.Works)

	var id string
	executor := GetExecutor(ctx, r.pool)
	if err := executor.QueryRow(ctx, query, userEmail).Scan(&id); err != nil {
		return "", fmt.Errorf("create work: %w", err)
	}
	return id, nil
}

// GetByID retrieves a work scoped by its owner.
func (r *PostgresWorkRepository) GetByID(ctx context.Context, id, userEmail string) (*models.Work, error) {
	query := fmt.Sprintf(`
		SELECT id, user_email, title, content, current_version, word_count,
		       essay_prompt, rubric, created_at, updated_at
		FROM %s
		WHERE id = $1 AND user_email = $2
	`, r.tables.Works)

	var work models.Work
	executor := GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query, id, userEmail).Scan(
		&work.ID,
		&work.UserEmail,
		&work.Title,
		&work.Content,
		&work.CurrentVersion,
		&work.WordCount,
		&work.EssayPrompt,
		&work.Rubric,
		&work.CreatedAt,
		&work.UpdatedAt,
	)
	if err != nil {
		if IsPgNoRowsError(err) {
			return nil, domain.NewError(domain.CodeNotFound, "work not found")
		}
		return nil, fmt.Errorf("get work: %w", err)
	}
	return &work, nil
}

// List retrieves all works of a user, most recently updated first.
func (r *PostgresWorkRepository) List(ctx context.Context, userEmail string) ([]models.Work, error) {
	query := fmt.Sprintf(`
		SELECT id, user_email, title, content, current_version, word_count,
		       essay_prompt, rubric, created_at, updated_at
		FROM %s
		WHERE user_email = $1
		ORDER BY updated_at DESC
	`, r.tables.Works)

	executor := GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, userEmail)
	if err != nil {
		return nil, fmt.Errorf("list works: %w", err)
	}
	defer rows.Close()

	var works []models.Work
	for rows.Next() {
		var work models.Work
		if err := rows.Scan(
			&work.ID,
			&work.UserEmail,
			&work.Title,
			&work.Content,
			&work.CurrentVersion,
			&work.WordCount,
			&work.EssayPrompt,
			&work.Rubric,
			&work.CreatedAt,
			&work.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan work: %w", err)
		}
		works = append(works, work)
	}
	return works, rows.Err()
}

// UpdateContent updates the live content and derived word count.
func (r *PostgresWorkRepository) UpdateContent(ctx context.Context, id, userEmail, content string, wordCount int) error {
	query := fmt.Sprintf(`
		UPDATE %s SET content = $1, word_count = $2, updated_at = NOW()
		WHERE id = $3 AND user_email = $4
	`, r.tables.Works)

	executor := GetExecutor(ctx, r.pool)
	if _, err := executor.Exec(ctx, query, content, wordCount, id, userEmail); err != nil {
		return fmt.Errorf("update work content: %w", err)
	}
	return nil
}

// UpdateEssayPrompt stores the user-supplied essay prompt.
func (r *PostgresWorkRepository) UpdateEssayPrompt(ctx context.Context, id, userEmail, essayPrompt string) error {
	query := fmt.Sprintf(`
		UPDATE %s SET essay_prompt = $1, updated_at = NOW()
		WHERE id = $2 AND user_email = $3
	`, r.tables.Works)

	executor := GetExecutor(ctx, r.pool)
	if _, err := executor.Exec(ctx, query, essayPrompt, id, userEmail); err != nil {
		return fmt.Errorf("update essay prompt: %w", err)
	}
	return nil
}

// UpdateRubric stores the rubric generated on first submission.
func (r *PostgresWorkRepository) UpdateRubric(ctx context.Context, id, userEmail, rubric string) error {
	query := fmt.Sprintf(`
		UPDATE %s SET rubric = $1, updated_at = NOW()
		WHERE id = $2 AND user_email = $3
	`, r.tables.Works)

	executor := GetExecutor(ctx, r.pool)
	if _, err := executor.Exec(ctx, query, rubric, id, userEmail); err != nil {
		return fmt.Errorf("update rubric: %w", err)
	}
	return nil
}

// UpdateTitle renames a work.
func (r *PostgresWorkRepository) UpdateTitle(ctx context.Context, id, userEmail, title string) error {
	query := fmt.Sprintf(`
		UPDATE %s SET title = $1, updated_at = NOW()
		WHERE id = $2 AND user_email = $3
	`, r.tables.Works)

	executor := GetExecutor(ctx, r.pool)
	if _, err := executor.Exec(ctx, query, title, id, userEmail); err != nil {
		return fmt.Errorf("update title: %w", err)
	}
	return nil
}

// SetCurrentVersion advances the work's version counter. Runs inside
// the same transaction as the version insert.
func (r *PostgresWorkRepository) SetCurrentVersion(ctx context.Context, id string, versionNumber int) error {
	query := fmt.Sprintf(`
		UPDATE %s SET current_version = $1, updated_at = NOW()
		WHERE id = $2
	`, r.tables.Works)

	executor := GetExecutor(ctx, r.pool)
	if _, err := executor.Exec(ctx, query, versionNumber, id); err != nil {
		return fmt.Errorf("set current version: %w", err)
	}
	return nil
}

// Delete removes a work. Versions, analyses, resolutions and comments
// go with it via ON DELETE CASCADE.
func (r *PostgresWorkRepository) Delete(ctx context.Context, id, userEmail string) error {
	query := fmt.Sprintf(`
		DELETE FROM %s WHERE id = $1 AND user_email = $2
	`, r.tables.Works)

	executor := GetExecutor(ctx, r.pool)
	if _, err := executor.Exec(ctx, query, id, userEmail); err != nil {
		return fmt.Errorf("delete work: %w", err)
	}
	return nil
}

// Stats aggregates word and project counts across a user's works.
func (r *PostgresWorkRepository) Stats(ctx context.Context, userEmail string) (*models.WorkStats, error) {
	query := fmt.Sprintf(`
		SELECT COALESCE(SUM(word_count), 0), COUNT(*)
		FROM %s
		WHERE user_email = $1
	`, r.tables.Works)

	var stats models.WorkStats
	executor := GetExecutor(ctx, r.pool)
	if err := executor.QueryRow(ctx, query, userEmail).Scan(&stats.TotalWordCount, &stats.TotalProjectCount); err != nil {
		return nil, fmt.Errorf("work stats: %w", err)
	}
	return &stats, nil
}
