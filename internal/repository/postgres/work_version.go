package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"redraft/internal/domain"
	"redraft/internal/domain/models"
	"redraft/internal/domain/repositories"
)

// PostgresVersionRepository implements the VersionRepository interface.
type PostgresVersionRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
	logger *slog.Logger
}

// NewVersionRepository creates a new version repository.
func NewVersionRepository(config *RepositoryConfig) repositories.VersionRepository {
	return &PostgresVersionRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

const versionColumns = `id, work_id, user_email, version_number, content, is_submitted,
	parent_submission_version, user_reflection, change_type, created_at`

func (r *PostgresVersionRepository) scanVersion(row interface {
	Scan(dest ...any) error
}) (*models.WorkVersion, error) {
	var v models.WorkVersion
	err := row.Scan(
		&v.ID,
		&v.WorkID,
		&v.UserEmail,
		&v.VersionNumber,
		&v.Content,
		&v.IsSubmitted,
		&v.ParentSubmissionVersion,
		&v.UserReflection,
		&v.ChangeType,
		&v.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// Create inserts an immutable version row, filling in the generated id
// and timestamp.
func (r *PostgresVersionRepository) Create(ctx context.Context, version *models.WorkVersion) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (work_id, user_email, version_number, content, is_submitted,
		                parent_submission_version, user_reflection, change_type, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
		RETURNING id, created_at
	`, r.tables.WorkVersions)

	executor := GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query,
		version.WorkID,
		version.UserEmail,
		version.VersionNumber,
		version.Content,
		version.IsSubmitted,
		version.ParentSubmissionVersion,
		version.UserReflection,
		version.ChangeType,
	).Scan(&version.ID, &version.CreatedAt)
	if err != nil {
		return fmt.Errorf("create version: %w", err)
	}
	return nil
}

// CurrentVersionNumber reads the counter on the work row. Returns 0
// when the work has no versions yet.
func (r *PostgresVersionRepository) CurrentVersionNumber(ctx context.Context, workID string) (int, error) {
	query := fmt.Sprintf(`SELECT current_version FROM %s WHERE id = $1`, r.tables.Works)

	var current int
	executor := GetExecutor(ctx, r.pool)
	if err := executor.QueryRow(ctx, query, workID).Scan(&current); err != nil {
		if IsPgNoRowsError(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("current version number: %w", err)
	}
	return current, nil
}

// LatestSubmitted returns the highest-numbered submitted version, or
// nil if the work has never been submitted.
func (r *PostgresVersionRepository) LatestSubmitted(ctx context.Context, workID string) (*models.WorkVersion, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE work_id = $1 AND is_submitted = true
		ORDER BY version_number DESC
		LIMIT 1
	`, versionColumns, r.tables.WorkVersions)

	executor := GetExecutor(ctx, r.pool)
	version, err := r.scanVersion(executor.QueryRow(ctx, query, workID))
	if err != nil {
		if IsPgNoRowsError(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("latest submitted version: %w", err)
	}
	return version, nil
}

// Get retrieves a single version by number.
func (r *PostgresVersionRepository) Get(ctx context.Context, workID string, versionNumber int) (*models.WorkVersion, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE work_id = $1 AND version_number = $2
	`, versionColumns, r.tables.WorkVersions)

	executor := GetExecutor(ctx, r.pool)
	version, err := r.scanVersion(executor.QueryRow(ctx, query, workID, versionNumber))
	if err != nil {
		if IsPgNoRowsError(err) {
			return nil, domain.NewError(domain.CodeNotFound, "version not found")
		}
		return nil, fmt.Errorf("get version: %w", err)
	}
	return version, nil
}

// List returns version rows newest first, carrying a 100-character
// content preview instead of the full text. The filter's Limit is
// passed through as-is; callers use limit+1 to detect a next page.
func (r *PostgresVersionRepository) List(ctx context.Context, workID string, filter repositories.VersionFilter) ([]models.WorkVersion, error) {
	conditions := []string{"work_id = $1"}
	args := []interface{}{workID}

	if filter.Submitted != nil {
		args = append(args, *filter.Submitted)
		conditions = append(conditions, fmt.Sprintf("is_submitted = $%d", len(args)))
	}
	if filter.ParentVersion != nil {
		args = append(args, *filter.ParentVersion)
		conditions = append(conditions, fmt.Sprintf("parent_submission_version = $%d", len(args)))
	}
	if filter.Cursor != nil {
		args = append(args, *filter.Cursor)
		conditions = append(conditions, fmt.Sprintf("created_at < $%d", len(args)))
	}

	query := fmt.Sprintf(`
		SELECT id, work_id, user_email, version_number, LEFT(content, 100), is_submitted,
		       parent_submission_version, user_reflection, change_type, created_at
		FROM %s
		WHERE %s
		ORDER BY created_at DESC, version_number DESC
	`, r.tables.WorkVersions, strings.Join(conditions, " AND "))

	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	executor := GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	defer rows.Close()

	var versions []models.WorkVersion
	for rows.Next() {
		var v models.WorkVersion
		if err := rows.Scan(
			&v.ID,
			&v.WorkID,
			&v.UserEmail,
			&v.VersionNumber,
			&v.ContentPreview,
			&v.IsSubmitted,
			&v.ParentSubmissionVersion,
			&v.UserReflection,
			&v.ChangeType,
			&v.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan version: %w", err)
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

// DeleteDraftsByParent bulk-deletes the draft lane of a superseded
// submission.
func (r *PostgresVersionRepository) DeleteDraftsByParent(ctx context.Context, workID string, parentVersion int) error {
	query := fmt.Sprintf(`
		DELETE FROM %s
		WHERE work_id = $1 AND is_submitted = false AND parent_submission_version = $2
	`, r.tables.WorkVersions)

	executor := GetExecutor(ctx, r.pool)
	tag, err := executor.Exec(ctx, query, workID, parentVersion)
	if err != nil {
		return fmt.Errorf("delete draft versions: %w", err)
	}
	r.logger.Debug("pruned draft versions",
		"work_id", workID,
		"parent_version", parentVersion,
		"deleted", tag.RowsAffected(),
	)
	return nil
}
