package chunker

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"docport/internal/domain"
)

func testDoc(text string) domain.Document {
	return domain.Document{
		Checksum: "85f2c8e6b1a44d07",
		Name:     "report.pdf",
		Text:     text,
	}
}

// tenPageText builds extracted text in the extractor's page-marker format,
// each page carrying roughly 3500 characters of sentences.
func tenPageText() string {
	var pages []string
	for p := 1; p <= 10; p++ {
		var body strings.Builder
		for s := 0; body.Len() < 3500; s++ {
			fmt.Fprintf(&body, "Page %d sentence %d describes the quarterly results in some detail. ", p, s)
		}
		pages = append(pages, fmt.Sprintf("\n--- Page %d ---\n%s", p, body.String()))
	}
	return strings.Join(pages, "\n")
}

func TestChunkBasic(t *testing.T) {
	c, err := NewPassageChunker(200, 40)
	if err != nil {
		t.Fatal(err)
	}

	passages, err := c.Chunk(testDoc("First sentence here. Second sentence follows. Third one closes the paragraph."))
	if err != nil {
		t.Fatal(err)
	}
	if len(passages) == 0 {
		t.Fatal("expected at least one passage")
	}

	for i, p := range passages {
		if p.ID == "" {
			t.Error("passage has empty ID")
		}
		if p.DocChecksum != "85f2c8e6b1a44d07" {
			t.Errorf("passage %d has checksum %q", i, p.DocChecksum)
		}
		if p.Seq != i {
			t.Errorf("passage %d has seq %d", i, p.Seq)
		}
		if p.End <= p.Start {
			t.Errorf("passage %d has span %d-%d", i, p.Start, p.End)
		}
	}
}

func TestChunkTenPageScenario(t *testing.T) {
	c, err := NewPassageChunker(1000, 100)
	if err != nil {
		t.Fatal(err)
	}

	text := tenPageText()
	passages, err := c.Chunk(testDoc(text))
	if err != nil {
		t.Fatal(err)
	}
	if len(passages) < 30 {
		t.Fatalf("expected a few passages per page, got %d", len(passages))
	}

	for i, p := range passages {
		if len(p.Text) > 1000 {
			t.Errorf("passage %d has %d chars, budget is 1000", i, len(p.Text))
		}
		if p.Text != text[p.Start:p.End] {
			t.Errorf("passage %d text does not match its offsets", i)
		}
	}

	for i := 0; i < len(passages)-1; i++ {
		cur, next := passages[i], passages[i+1]
		if shared := cur.End - next.Start; shared < 100 {
			t.Errorf("passages %d and %d share %d chars, want >= 100", i, i+1, shared)
		}
		if next.End <= cur.End {
			t.Errorf("passage %d does not advance past passage %d", i+1, i)
		}
	}
}

func TestChunkPrefersSentenceBoundaries(t *testing.T) {
	c, err := NewPassageChunker(120, 20)
	if err != nil {
		t.Fatal(err)
	}

	var b strings.Builder
	for i := 0; i < 20; i++ {
		fmt.Fprintf(&b, "Sentence number %d ends cleanly. ", i)
	}

	passages, err := c.Chunk(testDoc(b.String()))
	if err != nil {
		t.Fatal(err)
	}
	if len(passages) < 2 {
		t.Fatal("expected multiple passages")
	}

	for i, p := range passages[:len(passages)-1] {
		trimmed := strings.TrimRight(p.Text, " \n")
		if !strings.HasSuffix(trimmed, ".") {
			t.Errorf("passage %d does not end at a sentence: %q", i, p.Text)
		}
	}
}

func TestChunkDeterministic(t *testing.T) {
	c, err := NewPassageChunker(1000, 100)
	if err != nil {
		t.Fatal(err)
	}

	doc := testDoc(tenPageText())
	first, err := c.Chunk(doc)
	if err != nil {
		t.Fatal(err)
	}
	second, err := c.Chunk(doc)
	if err != nil {
		t.Fatal(err)
	}

	if len(first) != len(second) {
		t.Fatalf("runs disagree on count: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].ID != second[i].ID || first[i].Start != second[i].Start || first[i].End != second[i].End {
			t.Errorf("passage %d differs between runs", i)
		}
	}
}

func TestChunkPageAttribution(t *testing.T) {
	c, err := NewPassageChunker(5000, 0)
	if err != nil {
		t.Fatal(err)
	}

	text := "\n--- Page 1 ---\nIntro text on the first page.\n\n--- Page 2 ---\nBody text on the second page."
	passages, err := c.Chunk(testDoc(text))
	if err != nil {
		t.Fatal(err)
	}
	if len(passages) != 1 {
		t.Fatalf("expected 1 passage, got %d", len(passages))
	}
	if passages[0].Page != 1 {
		t.Errorf("passage starting at offset 0 should carry page 1, got %d", passages[0].Page)
	}

	small, err := NewPassageChunker(40, 5)
	if err != nil {
		t.Fatal(err)
	}
	passages, err = small.Chunk(testDoc(text))
	if err != nil {
		t.Fatal(err)
	}
	if passages[0].Page != 1 {
		t.Errorf("first passage should carry page 1, got %d", passages[0].Page)
	}
	sawPageTwo := false
	for _, p := range passages {
		if p.Page == 2 {
			sawPageTwo = true
		}
	}
	if !sawPageTwo {
		t.Error("no passage attributed to page 2")
	}
}

func TestChunkMultibyteText(t *testing.T) {
	c, err := NewPassageChunker(200, 40)
	if err != nil {
		t.Fatal(err)
	}

	// Cyrillic text is two bytes per letter, so overlap back-steps land
	// mid-rune unless the start is re-aligned.
	text := strings.Repeat("Документооборот и сравнение версий требуют точных границ. ", 20)
	passages, err := c.Chunk(testDoc(text))
	if err != nil {
		t.Fatal(err)
	}
	if len(passages) < 2 {
		t.Fatal("expected multiple passages")
	}

	for i, p := range passages {
		if !utf8.ValidString(p.Text) {
			t.Errorf("passage %d carries invalid UTF-8: %q", i, p.Text[:min(len(p.Text), 20)])
		}
		if p.Text != text[p.Start:p.End] {
			t.Errorf("passage %d text does not match its offsets", i)
		}
	}

	for i := 0; i < len(passages)-1; i++ {
		if passages[i+1].End <= passages[i].End {
			t.Errorf("passage %d does not advance past passage %d", i+1, i)
		}
	}
}

func TestChunkEmptyText(t *testing.T) {
	c, err := NewPassageChunker(1000, 100)
	if err != nil {
		t.Fatal(err)
	}

	for _, text := range []string{"", "   \n\t  "} {
		if _, err := c.Chunk(testDoc(text)); !errors.Is(err, domain.ErrInvalidDocument) {
			t.Errorf("text %q: expected ErrInvalidDocument, got %v", text, err)
		}
	}
}

func TestChunkShortText(t *testing.T) {
	c, err := NewPassageChunker(1000, 100)
	if err != nil {
		t.Fatal(err)
	}

	passages, err := c.Chunk(testDoc("Just one short paragraph."))
	if err != nil {
		t.Fatal(err)
	}
	if len(passages) != 1 {
		t.Fatalf("expected 1 passage, got %d", len(passages))
	}
	if passages[0].Text != "Just one short paragraph." {
		t.Errorf("passage text = %q", passages[0].Text)
	}
}

func TestNewPassageChunkerRejectsBadParams(t *testing.T) {
	if _, err := NewPassageChunker(0, 0); err == nil {
		t.Error("expected error for zero max")
	}
	if _, err := NewPassageChunker(100, 100); err == nil {
		t.Error("expected error when overlap equals max")
	}
	if _, err := NewPassageChunker(100, -1); err == nil {
		t.Error("expected error for negative overlap")
	}
}

func TestPassageIDUniqueness(t *testing.T) {
	c, err := NewPassageChunker(300, 60)
	if err != nil {
		t.Fatal(err)
	}

	passages, err := c.Chunk(testDoc(tenPageText()))
	if err != nil {
		t.Fatal(err)
	}

	ids := make(map[string]bool)
	for _, p := range passages {
		if ids[p.ID] {
			t.Errorf("duplicate passage ID: %s", p.ID)
		}
		ids[p.ID] = true
	}
}
