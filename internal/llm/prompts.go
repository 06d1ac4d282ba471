package llm

import (
	"fmt"
	"sort"
	"strings"

	"redraft/internal/domain/models"
)

// BuildFirstTimePrompt builds the evaluation prompt for a work's first
// submission. essayPrompt is the optional assignment text the essay
// must respond to.
func BuildFirstTimePrompt(essayText, essayPrompt string) string {
	var b strings.Builder

	b.WriteString(`You are a strict but fair college admissions officer evaluating college application essays. Students respect and fear you because of your exceptionally high standards, but they don't hate you because you are absolutely objective and consistent. When students truly excel, you give restrained but clear praise. You never sugarcoat feedback - you tell students exactly what needs improvement.

Your task is to evaluate the following essay with brutal honesty and precision.

`)
	writeEssayPromptSection(&b, essayPrompt)

	fmt.Fprintf(&b, `ESSAY TEXT:
%s

EVALUATION REQUIREMENTS:

1. SENTENCE-LEVEL COMMENTS (Maximum 10 most critical issues):
   - Identify specific problems in the text (grammar, clarity, style, tone, logic, conciseness)
   - For each issue, provide:
     * Exact text location (start_index and end_index - character positions in the original text)
     * Issue type: "grammar", "clarity", "style", "tone", "logic", or "conciseness"
     * Severity: "high" (critical flaw), "medium" (notable weakness), or "low" (minor improvement)
     * Clear title summarizing the problem
     * Detailed description of what's wrong
     * Actionable suggestion for improvement (NOT a rewrite - guide them to fix it themselves)
   - Focus on the most impactful issues first
   - Each comment must have a unique UUID

2. OVERALL FAO COMMENT:
   - Assess the essay's overall structure, logic, and thematic development
   - Point out main strengths (if any exist - be honest)
   - Identify critical weaknesses that must be addressed
   - Keep it focused and direct - no fluff

RESPONSE FORMAT (JSON only, no markdown):
{
  "sentence_comments": [
    {
      "id": "550e8400-e29b-41d4-a716-446655440000",
      "original_text": "the exact problematic text",
      "start_index": 45,
      "end_index": 67,
      "issue_type": "clarity",
      "severity": "medium",
      "title": "Unclear pronoun reference",
      "description": "The pronoun 'it' is ambiguous here. Readers cannot determine what 'it' refers to without re-reading the previous paragraph.",
      "suggestion": "Replace the pronoun with the specific noun it represents, or restructure the sentence to make the reference clear."
    }
  ],
  "fao_comment": "Your overall assessment here. Be specific about structural issues, logical flow, and thematic coherence. If it's weak, say so clearly. If it's strong, acknowledge it."
}

IMPORTANT:
- Return ONLY valid JSON, no additional text or markdown formatting
- Be brutally honest but constructive
- Focus on substance over style (though both matter)
- Character indices must be exact positions in the original text
- Generate unique UUIDs for each sentence comment`, essayText)

	return b.String()
}

// IterativeInput carries everything the reviewer needs to judge a
// revision against the previous round of feedback.
type IterativeInput struct {
	CurrentText      string
	PreviousText     string
	PreviousFAO      string
	PreviousComments []models.SentenceComment
	UserActions      map[string]models.SuggestionAction
	UserReflection   string
	EssayPrompt      string
}

// BuildIterativePrompt builds the evaluation prompt for a second or
// later submission.
func BuildIterativePrompt(in IterativeInput) string {
	var prevComments strings.Builder
	for _, c := range in.PreviousComments {
		fmt.Fprintf(&prevComments, "- [%s] %s: %s\n", c.ID, c.Title, c.Description)
	}

	var actions strings.Builder
	for _, id := range sortedActionIDs(in.UserActions) {
		a := in.UserActions[id]
		fmt.Fprintf(&actions, "\n- Suggestion %s: %s", id, strings.ToUpper(a.Action))
		if a.UserNote != "" {
			fmt.Fprintf(&actions, " (Note: %s)", a.UserNote)
		}
	}

	reflection := in.UserReflection
	if reflection == "" {
		reflection = "No reflection provided."
	}

	var b strings.Builder
	b.WriteString(`You are a strict but fair college admissions officer evaluating college application essays. This student is submitting their essay for the SECOND (or later) time. You provided feedback before, and now you must evaluate their improvements.

`)
	writeEssayPromptSection(&b, in.EssayPrompt)

	fmt.Fprintf(&b, `PREVIOUS VERSION:
%s

YOUR PREVIOUS FEEDBACK:
Overall Assessment: %s

Specific Issues Raised:
%s
STUDENT'S REFLECTION ON YOUR FEEDBACK:
%s

STUDENT'S ACTIONS ON YOUR SUGGESTIONS:%s

CURRENT VERSION (REVISED):
%s

YOUR TASK:

1. EVALUATE IMPROVEMENTS:
   For each suggestion the student marked as "resolved":
   - Did they actually address it? Or just claim they did?
   - Rate the improvement: "excellent" (fully solved), "partial" (some progress), "unsolved" (no real change), or "new_issue" (made it worse)
   - Provide specific feedback on their improvement attempt

2. IDENTIFY NEW ISSUES:
   - Find problems in the current version (same format as before)
   - Maximum 10 most critical issues

3. NEW OVERALL FAO COMMENT:
   - Acknowledge what improved (if anything)
   - Point out what still needs work
   - Be honest about regression if it occurred
   - Keep it direct and actionable

4. EVALUATE THEIR REFLECTION (if provided):
   - Was their thinking correct? Did they understand the feedback?
   - Did they actually follow through on their stated plan?
   - Any blind spots they're missing?

RESPONSE FORMAT (JSON only, no markdown):
{
  "sentence_comments": [
    {
      "id": "550e8400-e29b-41d4-a716-446655440001",
      "original_text": "problematic text from CURRENT version",
      "start_index": 45,
      "end_index": 67,
      "issue_type": "clarity",
      "severity": "medium",
      "title": "Issue title",
      "description": "What's wrong now",
      "suggestion": "How to fix it",
      "improvement_feedback": "ONLY if this relates to a previous suggestion they tried to fix - rate their improvement: 'Excellent improvement! The meaning is now crystal clear.' OR 'Partial improvement - you addressed X but missed Y.' OR 'No real improvement - the core issue remains.' OR 'This made it worse - revert to the previous approach.'"
    }
  ],
  "fao_comment": "Your new overall assessment. Compare to previous version. Be specific about what improved and what didn't.",
  "reflection_comment": "ONLY if student provided reflection - Evaluate their thinking: 'Your approach to shorten the example was correct, and you executed it well.' OR 'You identified the right issue but your solution missed the mark because...' OR 'You completely misunderstood the feedback - the problem was not about length but about clarity.'"
}

CRITICAL NOTES:
- Return ONLY valid JSON, no markdown formatting
- Only include "improvement_feedback" for comments that relate to previous suggestions
- Only include "reflection_comment" if the student provided a reflection
- Be brutally honest about whether they actually improved
- If they made things worse, say so directly
- Character indices must match the CURRENT version text`,
		in.PreviousText, in.PreviousFAO, prevComments.String(), reflection, actions.String(), in.CurrentText)

	return b.String()
}

// BuildRubricPrompt builds the prompt that derives a reusable grading
// rubric from the essay assignment. The rubric is generated once per
// work and reused on every later submission.
func BuildRubricPrompt(essayPrompt, essayText string) string {
	assignment := strings.TrimSpace(essayPrompt)
	if assignment == "" {
		assignment = "No explicit assignment was provided. Infer the essay's purpose from the text itself."
	}

	return fmt.Sprintf(`You are a college admissions officer designing an evaluation rubric for a student essay. The rubric will be reused to grade every revision of this essay, so it must describe dimensions and levels, not this draft's specific flaws.

ESSAY ASSIGNMENT:
%s

FIRST DRAFT (for context only - do not grade it):
%s

Design a rubric with 4-6 evaluation dimensions relevant to this assignment (for example: thesis clarity, evidence, structure, voice, mechanics). For each dimension define the levels "excellent", "good", "adequate", and "poor" with one concrete sentence describing what that level looks like.

RESPONSE FORMAT (JSON only, no markdown):
{
  "dimensions": [
    {
      "name": "thesis_clarity",
      "description": "How clearly the essay states and sustains its central claim",
      "levels": {
        "excellent": "The central claim is unmistakable and every paragraph advances it.",
        "good": "The claim is clear but occasionally drifts.",
        "adequate": "A claim exists but the reader must reconstruct it.",
        "poor": "No discernible central claim."
      }
    }
  ]
}

Return ONLY valid JSON, no additional text.`, assignment, essayText)
}

func writeEssayPromptSection(b *strings.Builder, essayPrompt string) {
	trimmed := strings.TrimSpace(essayPrompt)
	if trimmed == "" {
		return
	}
	fmt.Fprintf(b, `ESSAY PROMPT/REQUIREMENTS:
%s

The student must address these requirements in their essay. Evaluate whether they successfully respond to the prompt and fulfill all requirements.

`, trimmed)
}

func sortedActionIDs(actions map[string]models.SuggestionAction) []string {
	ids := make([]string, 0, len(actions))
	for id := range actions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
