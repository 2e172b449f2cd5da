package chunker

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"docport/internal/domain"
)

// PassageChunker splits extracted document text into overlapping passages.
// Cuts prefer paragraph breaks, then sentence ends, then word breaks before
// falling back to a hard cut at the character budget. Passage text is always
// an exact slice of the source, so offsets map back verbatim.
type PassageChunker struct {
	maxChars int
	overlap  int
}

func NewPassageChunker(maxChars, overlap int) (*PassageChunker, error) {
	if maxChars <= 0 {
		return nil, fmt.Errorf("max chunk size must be positive, got %d", maxChars)
	}
	if overlap < 0 || overlap >= maxChars {
		return nil, fmt.Errorf("overlap %d must be in [0, %d)", overlap, maxChars)
	}
	return &PassageChunker{maxChars: maxChars, overlap: overlap}, nil
}

var pageMarker = regexp.MustCompile(`--- Page (\d+) ---`)

func (c *PassageChunker) Chunk(doc domain.Document) ([]domain.Passage, error) {
	text := doc.Text
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("chunk %q: %w: no extractable text", doc.Name, domain.ErrInvalidDocument)
	}

	marks := pageMarks(text)

	var passages []domain.Passage
	start := 0
	seq := 0

	for start < len(text) {
		end := start + c.maxChars
		if end >= len(text) {
			end = len(text)
		} else {
			end = c.cut(text, start, end)
		}

		slice := text[start:end]
		if strings.TrimSpace(slice) != "" {
			passages = append(passages, domain.Passage{
				ID:          passageID(doc.Checksum, seq, start, end),
				DocChecksum: doc.Checksum,
				Seq:         seq,
				Page:        pageAt(marks, start),
				Start:       start,
				End:         end,
				Text:        slice,
			})
			seq++
		}

		if end == len(text) {
			break
		}
		// The back-step can land inside a multibyte rune; advance to the
		// next rune start so passage text stays valid UTF-8.
		start = end - c.overlap
		for start < end && !utf8.RuneStart(text[start]) {
			start++
		}
	}

	return passages, nil
}

// cut picks the best boundary in (start+overlap, hardEnd]. Anything at or
// below start+overlap would stall the walk, so those boundaries are ignored.
func (c *PassageChunker) cut(text string, start, hardEnd int) int {
	floor := start + c.overlap + 1

	if idx := strings.LastIndex(text[floor:hardEnd], "\n\n"); idx >= 0 {
		return floor + idx + 2
	}

	for i := hardEnd - 1; i >= floor; i-- {
		ch := text[i]
		if ch != '.' && ch != '!' && ch != '?' {
			continue
		}
		if i+1 == hardEnd || isSpace(text[i+1]) {
			return i + 1
		}
	}

	for i := hardEnd - 1; i >= floor; i-- {
		if isSpace(text[i]) {
			return i + 1
		}
	}

	for hardEnd > floor && !utf8.RuneStart(text[hardEnd]) {
		hardEnd--
	}
	return hardEnd
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}

type pageMark struct {
	pos  int
	page int
}

func pageMarks(text string) []pageMark {
	matches := pageMarker.FindAllStringSubmatchIndex(text, -1)
	marks := make([]pageMark, 0, len(matches))
	for _, m := range matches {
		n, err := strconv.Atoi(text[m[2]:m[3]])
		if err != nil {
			continue
		}
		marks = append(marks, pageMark{pos: m[0], page: n})
	}
	return marks
}

func pageAt(marks []pageMark, offset int) int {
	if len(marks) == 0 {
		return 0
	}
	// Text ahead of the first marker belongs to that marker's page.
	page := marks[0].page
	for _, m := range marks {
		if m.pos > offset {
			break
		}
		page = m.page
	}
	return page
}

func passageID(docChecksum string, seq, start, end int) string {
	data := fmt.Sprintf("%s:%d:%d-%d", docChecksum, seq, start, end)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:8])
}
