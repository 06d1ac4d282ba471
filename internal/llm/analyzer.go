package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"redraft/internal/domain"
	"redraft/internal/domain/models"
)

// AnalysisInput describes one essay submission to analyze. Previous*
// fields are nil/empty on a first submission.
type AnalysisInput struct {
	WorkID           string
	CurrentText      string
	CurrentVersion   int
	PreviousText     *string
	PreviousAnalysis *models.TextAnalysis
	UserActions      map[string]models.SuggestionAction
	UserReflection   string
	EssayPrompt      string
}

// AnalysisResult is the validated feedback parsed out of the model
// response.
type AnalysisResult struct {
	FAOComment        string                                `json:"fao_comment"`
	SentenceComments  []models.SentenceComment              `json:"sentence_comments"`
	ReflectionComment *string                               `json:"reflection_comment,omitempty"`
	RubricEvaluation  map[string]models.DimensionEvaluation `json:"rubric_evaluation,omitempty"`
}

// Analyzer builds prompts, calls the model, and validates the reply.
type Analyzer struct {
	generator StructuredGenerator
	logger    *slog.Logger
}

func NewAnalyzer(generator StructuredGenerator, logger *slog.Logger) *Analyzer {
	return &Analyzer{generator: generator, logger: logger}
}

// Generate produces the analysis for one submission. Iterative
// submissions require the previous analysis so the model can judge
// the revision against its own earlier feedback.
func (a *Analyzer) Generate(ctx context.Context, in AnalysisInput) (*AnalysisResult, error) {
	firstSubmission := in.PreviousText == nil

	var prompt string
	if firstSubmission {
		a.logger.Info("generating first-time analysis", "work_id", in.WorkID)
		prompt = BuildFirstTimePrompt(in.CurrentText, in.EssayPrompt)
	} else {
		a.logger.Info("generating iterative analysis", "work_id", in.WorkID, "version", in.CurrentVersion)
		if in.PreviousAnalysis == nil {
			return nil, domain.NewError(domain.CodeValidationFailed, "previous analysis required for iterative submission")
		}
		prompt = BuildIterativePrompt(IterativeInput{
			CurrentText:      in.CurrentText,
			PreviousText:     *in.PreviousText,
			PreviousFAO:      in.PreviousAnalysis.FAOComment,
			PreviousComments: in.PreviousAnalysis.SentenceComments,
			UserActions:      in.UserActions,
			UserReflection:   in.UserReflection,
			EssayPrompt:      in.EssayPrompt,
		})
	}

	raw, err := a.generator.GenerateStructured(ctx, prompt)
	if err != nil {
		return nil, err
	}

	result, err := ParseAnalysis(raw, firstSubmission, in.UserReflection != "")
	if err != nil {
		preview := raw
		if len(preview) > 500 {
			preview = preview[:500]
		}
		a.logger.Error("analysis response rejected", "work_id", in.WorkID, "error", err, "raw", preview)
		return nil, domain.NewError(domain.CodeLLMFailed, fmt.Sprintf("invalid llm response format: %v", err))
	}

	a.logger.Info("analysis generated", "work_id", in.WorkID, "comments", len(result.SentenceComments))
	return result, nil
}

// rawAnalysis mirrors the wire shape before validation. Pointer fields
// distinguish missing from empty.
type rawAnalysis struct {
	FAOComment        *string                               `json:"fao_comment"`
	SentenceComments  *[]rawSentenceComment                 `json:"sentence_comments"`
	ReflectionComment *string                               `json:"reflection_comment"`
	RubricEvaluation  map[string]models.DimensionEvaluation `json:"rubric_evaluation"`
}

// rawSentenceComment keeps the span indices as pointers so a comment
// that omits them reads as invalid instead of anchored at 0.
type rawSentenceComment struct {
	ID                  string  `json:"id"`
	OriginalText        string  `json:"original_text"`
	StartIndex          *int    `json:"start_index"`
	EndIndex            *int    `json:"end_index"`
	IssueType           string  `json:"issue_type"`
	Severity            string  `json:"severity"`
	Title               string  `json:"title"`
	Description         string  `json:"description"`
	Suggestion          string  `json:"suggestion"`
	ImprovementFeedback *string `json:"improvement_feedback"`
}

// ParseAnalysis parses and validates a model reply. reflection_comment
// survives only on iterative submissions where the student actually
// wrote a reflection; rubric_evaluation is optional but must be fully
// shaped when present.
func ParseAnalysis(response string, firstSubmission, reflectionProvided bool) (*AnalysisResult, error) {
	var raw rawAnalysis
	if err := json.Unmarshal([]byte(response), &raw); err != nil {
		return nil, fmt.Errorf("response is not valid JSON: %w", err)
	}

	if raw.FAOComment == nil {
		return nil, fmt.Errorf("missing required field fao_comment")
	}
	if raw.SentenceComments == nil {
		return nil, fmt.Errorf("missing required field sentence_comments")
	}

	comments := make([]models.SentenceComment, 0, len(*raw.SentenceComments))
	for i, c := range *raw.SentenceComments {
		if err := validateSentenceComment(c); err != nil {
			return nil, fmt.Errorf("comment %d: %w", i, err)
		}
		comments = append(comments, models.SentenceComment{
			ID:                  c.ID,
			OriginalText:        c.OriginalText,
			StartIndex:          *c.StartIndex,
			EndIndex:            *c.EndIndex,
			IssueType:           c.IssueType,
			Severity:            c.Severity,
			Title:               c.Title,
			Description:         c.Description,
			Suggestion:          c.Suggestion,
			ImprovementFeedback: c.ImprovementFeedback,
		})
	}

	for dimension, eval := range raw.RubricEvaluation {
		if eval.Level == "" || eval.Reasoning == "" {
			return nil, fmt.Errorf("rubric_evaluation %q: level and reasoning are required", dimension)
		}
	}

	result := &AnalysisResult{
		FAOComment:       *raw.FAOComment,
		SentenceComments: comments,
		RubricEvaluation: raw.RubricEvaluation,
	}
	if !firstSubmission && reflectionProvided {
		result.ReflectionComment = raw.ReflectionComment
	}
	return result, nil
}

func validateSentenceComment(c rawSentenceComment) error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.ID, validation.Required),
		validation.Field(&c.OriginalText, validation.Required),
		validation.Field(&c.StartIndex, validation.NotNil),
		validation.Field(&c.EndIndex, validation.NotNil),
		validation.Field(&c.IssueType,
			validation.Required,
			validation.In(toAny(models.IssueTypes)...),
		),
		validation.Field(&c.Severity,
			validation.Required,
			validation.In(toAny(models.Severities)...),
		),
		validation.Field(&c.Title, validation.Required),
		validation.Field(&c.Description, validation.Required),
		validation.Field(&c.Suggestion, validation.Required),
	)
}

func toAny(values []string) []interface{} {
	out := make([]interface{}, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
