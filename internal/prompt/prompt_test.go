package prompt

import (
	"strings"
	"testing"

	"docport/internal/domain"
)

func scored(text string, score float64) domain.ScoredPassage {
	return domain.ScoredPassage{
		Passage: domain.Passage{Text: text},
		Score:   score,
	}
}

func TestBuildContextNumbersInOrder(t *testing.T) {
	hits := []domain.ScoredPassage{
		scored("first passage", 0.9),
		scored("second passage", 0.8),
	}

	block, used := BuildContext(hits, 0)
	if len(used) != 2 {
		t.Fatalf("used = %d, want 2", len(used))
	}
	if !strings.Contains(block, "[1] first passage") {
		t.Errorf("missing first entry: %q", block)
	}
	if !strings.Contains(block, "[2] second passage") {
		t.Errorf("missing second entry: %q", block)
	}
	if strings.Index(block, "[1]") > strings.Index(block, "[2]") {
		t.Error("entries out of order")
	}
}

func TestBuildContextBudgetSkipsOversize(t *testing.T) {
	hits := []domain.ScoredPassage{
		scored(strings.Repeat("a", 500), 0.9),
		scored("small", 0.5),
	}

	block, used := BuildContext(hits, 60)
	if len(used) != 1 {
		t.Fatalf("used = %d, want 1", len(used))
	}
	if used[0].Passage.Text != "small" {
		t.Errorf("kept %q, want the passage that fits", used[0].Passage.Text)
	}
	// Numbering restarts over included passages only.
	if !strings.Contains(block, "[1] small") {
		t.Errorf("block = %q", block)
	}
}

func TestBoundHistory(t *testing.T) {
	turns := []domain.Turn{
		{Question: "q1", Answer: "a1"},
		{Question: "q2", Answer: "a2"},
		{Question: "q3", Answer: "a3"},
	}

	got := BoundHistory(turns, 2)
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].Question != "q2" || got[1].Question != "q3" {
		t.Errorf("kept wrong turns: %+v", got)
	}

	if got := BoundHistory(turns, 0); got != nil {
		t.Errorf("max=0 should keep nothing, got %+v", got)
	}
	if got := BoundHistory(turns, 10); len(got) != 3 {
		t.Errorf("max above len should keep all, got %d", len(got))
	}
}

func TestQAPromptWithoutHistory(t *testing.T) {
	if got := QAPrompt(nil, "what is this?"); got != "what is this?" {
		t.Errorf("bare question expected, got %q", got)
	}
}

func TestAnalysisPromptCarriesSchemaKeys(t *testing.T) {
	p := AnalysisPrompt("body text")
	for _, key := range []string{"summary", "title", "author", "page_count", "sentiment_tone"} {
		if !strings.Contains(p, key) {
			t.Errorf("prompt missing schema key %q", key)
		}
	}
	if !strings.Contains(p, "body text") {
		t.Error("prompt missing document text")
	}
}

func TestComparisonSummaryPrompt(t *testing.T) {
	old := domain.Passage{Page: 2, Text: "old text"}
	upd := domain.Passage{Page: 2, Text: "new text"}
	res := domain.ComparisonResult{
		Diffs:    []domain.Diff{{Kind: domain.DiffModified, Old: &old, New: &upd, Similarity: 0.7}},
		Modified: 1,
	}

	p := ComparisonSummaryPrompt(res)
	if !strings.Contains(p, "modified (page 2)") {
		t.Errorf("prompt = %q", p)
	}
	if !strings.Contains(p, "1 modified") {
		t.Errorf("totals missing: %q", p)
	}
}
