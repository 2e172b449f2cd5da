package usecase

import (
	"context"
	"errors"
	"testing"

	"docport/internal/adapter/generation"
	"docport/internal/domain"
)

const validInsightsJSON = `{
  "summary": ["Revenue grew", "Costs fell"],
  "title": "Annual Report 2024",
  "author": ["J. Smith"],
  "date_created": "2024-03-01",
  "last_modified_date": "Not Available",
  "publisher": "Acme Corp",
  "language": "English",
  "page_count": 2,
  "sentiment_tone": "neutral"
}`

func analyzedDoc() domain.Document {
	return domain.Document{
		Checksum: "sum1",
		Name:     "report.pdf",
		Pages:    12,
		Text:     "--- Page 1 ---\nAnnual Report 2024 by J. Smith.",
	}
}

func TestAnalyzeParsesSchema(t *testing.T) {
	gen := generation.NewMockGenerator(validInsightsJSON)
	u := NewAnalyzeUseCase(gen)

	insights, err := u.Analyze(context.Background(), analyzedDoc())
	if err != nil {
		t.Fatal(err)
	}
	if insights.Title != "Annual Report 2024" {
		t.Errorf("title = %q", insights.Title)
	}
	if len(insights.Summary) != 2 {
		t.Errorf("summary entries = %d", len(insights.Summary))
	}
	if insights.PageCount != 12 {
		t.Errorf("page count = %d, want the extractor's 12", insights.PageCount)
	}
	if len(gen.Calls) != 1 {
		t.Errorf("generator called %d times", len(gen.Calls))
	}
}

func TestAnalyzeStripsCodeFences(t *testing.T) {
	gen := generation.NewMockGenerator("```json\n" + validInsightsJSON + "\n```")
	u := NewAnalyzeUseCase(gen)

	insights, err := u.Analyze(context.Background(), analyzedDoc())
	if err != nil {
		t.Fatal(err)
	}
	if insights.Title != "Annual Report 2024" {
		t.Errorf("title = %q", insights.Title)
	}
}

func TestAnalyzeRepairsInvalidJSONOnce(t *testing.T) {
	gen := generation.NewMockGenerator("Sure! Here is the JSON you asked for.", validInsightsJSON)
	u := NewAnalyzeUseCase(gen)

	insights, err := u.Analyze(context.Background(), analyzedDoc())
	if err != nil {
		t.Fatal(err)
	}
	if insights.Title != "Annual Report 2024" {
		t.Errorf("title = %q", insights.Title)
	}
	if len(gen.Calls) != 2 {
		t.Fatalf("generator called %d times, want original + repair", len(gen.Calls))
	}
}

func TestAnalyzeGivesUpAfterFailedRepair(t *testing.T) {
	gen := generation.NewMockGenerator("not json", "still not json")
	u := NewAnalyzeUseCase(gen)

	if _, err := u.Analyze(context.Background(), analyzedDoc()); err == nil {
		t.Fatal("persistent invalid JSON accepted")
	}
	if len(gen.Calls) != 2 {
		t.Errorf("generator called %d times, want exactly 2", len(gen.Calls))
	}
}

func TestAnalyzeEmptyDocument(t *testing.T) {
	u := NewAnalyzeUseCase(generation.NewMockGenerator(validInsightsJSON))
	_, err := u.Analyze(context.Background(), domain.Document{Name: "blank.pdf"})
	if !errors.Is(err, domain.ErrInvalidDocument) {
		t.Errorf("err = %v, want ErrInvalidDocument", err)
	}
}
