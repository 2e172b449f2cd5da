package usecase

import (
	"context"
	"fmt"
	"strings"

	"docport/internal/compare"
	"docport/internal/domain"
	"docport/internal/port"
	"docport/internal/prompt"
)

// CompareUseCase diffs two document versions at passage granularity. Both
// sides go through the same chunker, so identical chunking parameters make
// the comparison deterministic.
type CompareUseCase struct {
	chunker   port.Chunker
	differ    *compare.Differ
	generator port.Generator
}

func NewCompareUseCase(chunker port.Chunker, differ *compare.Differ, generator port.Generator) *CompareUseCase {
	return &CompareUseCase{chunker: chunker, differ: differ, generator: generator}
}

// Compare chunks both versions and classifies every passage. The reference
// comes first: passages only in it are removed, passages only in the
// candidate are added.
func (u *CompareUseCase) Compare(reference, candidate domain.Document) (domain.ComparisonResult, error) {
	ref, err := u.chunker.Chunk(reference)
	if err != nil {
		return domain.ComparisonResult{}, fmt.Errorf("chunk reference: %w", err)
	}
	cand, err := u.chunker.Chunk(candidate)
	if err != nil {
		return domain.ComparisonResult{}, fmt.Errorf("chunk candidate: %w", err)
	}
	if len(ref) == 0 || len(cand) == 0 {
		return domain.ComparisonResult{}, fmt.Errorf("compare: %w: a side is empty after chunking", domain.ErrInvalidDocument)
	}

	return u.differ.Diff(ref, cand), nil
}

// Summarize narrates a comparison result through the generation capability.
// Purely presentational; the structured diff is the authoritative output.
func (u *CompareUseCase) Summarize(ctx context.Context, result domain.ComparisonResult) (string, error) {
	if u.generator == nil {
		return "", fmt.Errorf("summarize: no generator configured")
	}
	if result.Modified+result.Added+result.Removed == 0 {
		return "The two versions are identical.", nil
	}

	text, err := u.generator.GenerateWithSystem(ctx,
		prompt.ComparisonSummarySystem,
		prompt.ComparisonSummaryPrompt(result))
	if err != nil {
		return "", fmt.Errorf("summarize comparison: %w", err)
	}
	return strings.TrimSpace(text), nil
}
