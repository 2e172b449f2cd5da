// Package prompt holds the prompt templates and the helpers that render
// retrieved passages and conversation history into them.
package prompt

import (
	"fmt"
	"strings"

	"docport/internal/domain"
)

// ContextQASystem instructs the model to answer only from retrieved context.
const ContextQASystem = "You are an assistant designed to answer questions using the provided context. " +
	"Rely only on the retrieved information to form your response. If the answer is not found in the context, " +
	"respond with 'I don't know.' Keep your answer concise and no longer than three sentences. " +
	"Cite the passages you used by their bracketed numbers.\n\nContext:\n%s"

// ContextualizeSystem instructs the model to rewrite a follow-up question
// so it stands alone without the conversation history.
const ContextualizeSystem = "Given a conversation history and the most recent user query, rewrite the query " +
	"as a standalone question that makes sense without relying on the previous context. Do not provide an " +
	"answer. Only reformulate the question if necessary; otherwise, return it unchanged."

// AnalysisSystem instructs the model to extract document metadata as JSON.
const AnalysisSystem = "You are a highly capable assistant trained to analyze and summarize documents. " +
	"Return ONLY valid JSON matching the exact schema below. No prose, no code fences."

// ComparisonSummarySystem instructs the model to narrate a precomputed diff.
const ComparisonSummarySystem = "You will be given a list of differences between two versions of a document. " +
	"Write a short page-wise summary of what changed. If a page has no changes, do not mention it."

const analysisSchema = `{
  "summary": ["list of key highlights"],
  "title": "document title",
  "author": ["list of authors"],
  "date_created": "original creation date or Not Available",
  "last_modified_date": "last modified date or Not Available",
  "publisher": "publisher name or Not Available",
  "language": "document language",
  "page_count": 0,
  "sentiment_tone": "overall tone of the document"
}`

// BuildContext renders hits into a numbered context block, keeping the
// descending-similarity order and skipping passages that would exceed the
// character budget. It returns the block and the passages actually included.
func BuildContext(hits []domain.ScoredPassage, budget int) (string, []domain.ScoredPassage) {
	var b strings.Builder
	used := make([]domain.ScoredPassage, 0, len(hits))

	for _, h := range hits {
		entry := fmt.Sprintf("[%d] %s\n\n", len(used)+1, strings.TrimSpace(h.Passage.Text))
		if budget > 0 && b.Len()+len(entry) > budget {
			continue
		}
		b.WriteString(entry)
		used = append(used, h)
	}

	return strings.TrimRight(b.String(), "\n"), used
}

// BoundHistory returns at most the last max turns.
func BoundHistory(turns []domain.Turn, max int) []domain.Turn {
	if max <= 0 || len(turns) <= max {
		if max <= 0 {
			return nil
		}
		return turns
	}
	return turns[len(turns)-max:]
}

// RenderHistory flattens turns into a transcript block.
func RenderHistory(turns []domain.Turn) string {
	if len(turns) == 0 {
		return ""
	}
	var b strings.Builder
	for _, t := range turns {
		fmt.Fprintf(&b, "User: %s\nAssistant: %s\n", t.Question, t.Answer)
	}
	return b.String()
}

// ContextualizePrompt builds the user prompt for the rewrite stage.
func ContextualizePrompt(history []domain.Turn, question string) string {
	return fmt.Sprintf("Conversation so far:\n%s\nMost recent user query: %s", RenderHistory(history), question)
}

// QAPrompt builds the user prompt for the answer stage.
func QAPrompt(history []domain.Turn, question string) string {
	transcript := RenderHistory(history)
	if transcript == "" {
		return question
	}
	return fmt.Sprintf("Conversation so far:\n%s\nQuestion: %s", transcript, question)
}

// AnalysisPrompt builds the metadata extraction prompt for a document.
func AnalysisPrompt(text string) string {
	return fmt.Sprintf("Schema:\n%s\n\nAnalyze this document:\n%s", analysisSchema, text)
}

// AnalysisFixupPrompt asks the model to repair an invalid metadata response.
func AnalysisFixupPrompt(raw string, parseErr error) string {
	return fmt.Sprintf("Your previous response was not valid JSON for the schema:\n%s\n\nParse error: %v\n\nPrevious response:\n%s\n\nReturn the corrected JSON only.",
		analysisSchema, parseErr, raw)
}

// ComparisonSummaryPrompt renders a diff list for narrative summarization.
func ComparisonSummaryPrompt(result domain.ComparisonResult) string {
	var b strings.Builder
	b.WriteString("Differences:\n")
	for _, d := range result.Diffs {
		switch d.Kind {
		case domain.DiffModified:
			fmt.Fprintf(&b, "- modified (page %d): %q became %q\n", pageOf(d.Old), clip(d.Old.Text), clip(d.New.Text))
		case domain.DiffAdded:
			fmt.Fprintf(&b, "- added (page %d): %q\n", pageOf(d.New), clip(d.New.Text))
		case domain.DiffRemoved:
			fmt.Fprintf(&b, "- removed (page %d): %q\n", pageOf(d.Old), clip(d.Old.Text))
		}
	}
	fmt.Fprintf(&b, "\nTotals: %d unchanged, %d modified, %d added, %d removed.\n",
		result.Unchanged, result.Modified, result.Added, result.Removed)
	return b.String()
}

func pageOf(p *domain.Passage) int {
	if p == nil {
		return 0
	}
	return p.Page
}

func clip(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 120 {
		return s[:120] + "..."
	}
	return s
}
