package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"docport/internal/domain"
	"docport/internal/logger"
	"docport/internal/port"
	"docport/internal/prompt"
)

// maxAnalysisChars bounds how much document text goes into one metadata
// extraction call; front matter and the opening pages carry the fields the
// schema asks for.
const maxAnalysisChars = 24000

// AnalyzeUseCase extracts structured metadata from a document through the
// generation capability. The model must return strict JSON; one repair
// attempt re-asks with the parse error attached before giving up.
type AnalyzeUseCase struct {
	generator port.Generator
}

func NewAnalyzeUseCase(generator port.Generator) *AnalyzeUseCase {
	return &AnalyzeUseCase{generator: generator}
}

func (u *AnalyzeUseCase) Analyze(ctx context.Context, doc domain.Document) (domain.Insights, error) {
	text := strings.TrimSpace(doc.Text)
	if text == "" {
		return domain.Insights{}, fmt.Errorf("analyze %s: %w: no extracted text", doc.Name, domain.ErrInvalidDocument)
	}
	if len(text) > maxAnalysisChars {
		text = text[:maxAnalysisChars]
	}

	raw, err := u.generator.GenerateWithSystem(ctx, prompt.AnalysisSystem, prompt.AnalysisPrompt(text))
	if err != nil {
		return domain.Insights{}, fmt.Errorf("analyze %s: %w", doc.Name, err)
	}

	insights, parseErr := parseInsights(raw)
	if parseErr != nil {
		logger.Warn("analysis of %s returned invalid JSON, asking for a repair: %v", doc.Name, parseErr)
		raw, err = u.generator.GenerateWithSystem(ctx, prompt.AnalysisSystem, prompt.AnalysisFixupPrompt(raw, parseErr))
		if err != nil {
			return domain.Insights{}, fmt.Errorf("analyze %s: repair attempt: %w", doc.Name, err)
		}
		insights, parseErr = parseInsights(raw)
		if parseErr != nil {
			return domain.Insights{}, fmt.Errorf("analyze %s: response is not valid JSON after repair: %w", doc.Name, parseErr)
		}
	}

	// The extractor knows the true page count; prefer it over a guess.
	if doc.Pages > 0 {
		insights.PageCount = doc.Pages
	}
	return insights, nil
}

// parseInsights tolerates fenced responses; models wrap JSON in code fences
// despite instructions.
func parseInsights(raw string) (domain.Insights, error) {
	var insights domain.Insights
	if err := json.Unmarshal([]byte(stripFences(raw)), &insights); err != nil {
		return domain.Insights{}, err
	}
	return insights, nil
}

func stripFences(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
