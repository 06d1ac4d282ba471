package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"redraft/internal/domain/models"
	"redraft/internal/domain/repositories"
)

// PostgresAnalysisRepository implements the AnalysisRepository interface.
type PostgresAnalysisRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
	logger *slog.Logger
}

// NewAnalysisRepository creates a new analysis repository.
func NewAnalysisRepository(config *RepositoryConfig) repositories.AnalysisRepository {
	return &PostgresAnalysisRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

// Create persists a validated analysis and returns its generated id.
// Sentence comments and the rubric evaluation are stored as jsonb.
func (r *PostgresAnalysisRepository) Create(ctx context.Context, analysis *models.TextAnalysis) (string, error) {
	comments, err := json.Marshal(analysis.SentenceComments)
	if err != nil {
		return "", fmt.Errorf("marshal sentence comments: %w", err)
	}

	var rubricEval []byte
	if analysis.RubricEvaluation != nil {
		rubricEval, err = json.Marshal(analysis.RubricEvaluation)
		if err != nil {
			return "", fmt.Errorf("marshal rubric evaluation: %w", err)
		}
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (work_id, user_email, version_number, text_snapshot,
		                fao_comment, sentence_comments, reflection_comment, rubric_evaluation, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
		RETURNING id, created_at
	`, r.tables.TextAnalyses)

	executor := GetExecutor(ctx, r.pool)
	err = executor.QueryRow(ctx, query,
		analysis.WorkID,
		analysis.UserEmail,
		analysis.VersionNumber,
		analysis.TextSnapshot,
		analysis.FAOComment,
		comments,
		analysis.ReflectionComment,
		rubricEval,
	).Scan(&analysis.ID, &analysis.CreatedAt)
	if err != nil {
		return "", fmt.Errorf("create analysis: %w", err)
	}
	return analysis.ID, nil
}

func (r *PostgresAnalysisRepository) getOne(ctx context.Context, query string, args ...interface{}) (*models.TextAnalysis, error) {
	var (
		a          models.TextAnalysis
		comments   []byte
		rubricEval []byte
	)

	executor := GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query, args...).Scan(
		&a.ID,
		&a.WorkID,
		&a.UserEmail,
		&a.VersionNumber,
		&a.TextSnapshot,
		&a.FAOComment,
		&comments,
		&a.ReflectionComment,
		&rubricEval,
		&a.CreatedAt,
	)
	if err != nil {
		if IsPgNoRowsError(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get analysis: %w", err)
	}

	if err := json.Unmarshal(comments, &a.SentenceComments); err != nil {
		return nil, fmt.Errorf("unmarshal sentence comments: %w", err)
	}
	if len(rubricEval) > 0 {
		if err := json.Unmarshal(rubricEval, &a.RubricEvaluation); err != nil {
			return nil, fmt.Errorf("unmarshal rubric evaluation: %w", err)
		}
	}
	return &a, nil
}

const analysisColumns = `id, work_id, user_email, version_number, text_snapshot,
	fao_comment, sentence_comments, reflection_comment, rubric_evaluation, created_at`

// GetByVersion returns the analysis of one submitted version, or nil
// if none was recorded.
func (r *PostgresAnalysisRepository) GetByVersion(ctx context.Context, workID string, versionNumber int) (*models.TextAnalysis, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE work_id = $1 AND version_number = $2
	`, analysisColumns, r.tables.TextAnalyses)
	return r.getOne(ctx, query, workID, versionNumber)
}
