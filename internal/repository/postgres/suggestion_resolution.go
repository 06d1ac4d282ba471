package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"redraft/internal/domain/models"
	"redraft/internal/domain/repositories"
)

// PostgresResolutionRepository implements the ResolutionRepository interface.
type PostgresResolutionRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
	logger *slog.Logger
}

// NewResolutionRepository creates a new suggestion resolution repository.
func NewResolutionRepository(config *RepositoryConfig) repositories.ResolutionRepository {
	return &PostgresResolutionRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

// Create persists one suggestion disposition.
func (r *PostgresResolutionRepository) Create(ctx context.Context, resolution *models.SuggestionResolution) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (work_id, analysis_id, suggestion_id, from_version, to_version,
		                user_action, user_note, resolution_status, llm_feedback, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
		RETURNING id, created_at
	`, r.tables.SuggestionResolutions)

	executor := GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query,
		resolution.WorkID,
		resolution.AnalysisID,
		resolution.SuggestionID,
		resolution.FromVersion,
		resolution.ToVersion,
		resolution.UserAction,
		resolution.UserNote,
		resolution.ResolutionStatus,
		resolution.LLMFeedback,
	).Scan(&resolution.ID, &resolution.CreatedAt)
	if err != nil {
		return fmt.Errorf("create resolution: %w", err)
	}
	return nil
}

const resolutionColumns = `id, work_id, analysis_id, suggestion_id, from_version, to_version,
	user_action, user_note, resolution_status, llm_feedback, created_at`

func (r *PostgresResolutionRepository) list(ctx context.Context, query string, args ...interface{}) ([]models.SuggestionResolution, error) {
	executor := GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list resolutions: %w", err)
	}
	defer rows.Close()

	var resolutions []models.SuggestionResolution
	for rows.Next() {
		var res models.SuggestionResolution
		if err := rows.Scan(
			&res.ID,
			&res.WorkID,
			&res.AnalysisID,
			&res.SuggestionID,
			&res.FromVersion,
			&res.ToVersion,
			&res.UserAction,
			&res.UserNote,
			&res.ResolutionStatus,
			&res.LLMFeedback,
			&res.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan resolution: %w", err)
		}
		resolutions = append(resolutions, res)
	}
	return resolutions, rows.Err()
}

// ListByAnalysis returns dispositions recorded against one analysis.
func (r *PostgresResolutionRepository) ListByAnalysis(ctx context.Context, analysisID string) ([]models.SuggestionResolution, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE analysis_id = $1
		ORDER BY created_at
	`, resolutionColumns, r.tables.SuggestionResolutions)
	return r.list(ctx, query, analysisID)
}

// ListByWork returns all dispositions across a work's submission cycles.
func (r *PostgresResolutionRepository) ListByWork(ctx context.Context, workID string) ([]models.SuggestionResolution, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE work_id = $1
		ORDER BY from_version, created_at
	`, resolutionColumns, r.tables.SuggestionResolutions)
	return r.list(ctx, query, workID)
}
