package domain

import "time"

// Workflow names an isolated index lane inside a session.
type Workflow string

const (
	WorkflowSingle   Workflow = "single"
	WorkflowMulti    Workflow = "multi"
	WorkflowCompare  Workflow = "compare"
	WorkflowAnalysis Workflow = "analysis"
)

type Document struct {
	Checksum string    `json:"checksum"`
	Name     string    `json:"name"`
	Path     string    `json:"path,omitempty"`
	Pages    int       `json:"pages"`
	Text     string    `json:"-"`
	AddedAt  time.Time `json:"added_at"`
}

type Passage struct {
	ID          string `json:"id"`
	DocChecksum string `json:"doc_checksum"`
	Seq         int    `json:"seq"`
	Page        int    `json:"page,omitempty"`
	Start       int    `json:"start"`
	End         int    `json:"end"`
	Text        string `json:"text"`
}

type ScoredPassage struct {
	Passage Passage
	Score   float64
}

type Turn struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

type Citation struct {
	Ref     int     `json:"ref"`
	Passage Passage `json:"passage"`
	Score   float64 `json:"score"`
}

type Answer struct {
	Text      string     `json:"text"`
	Citations []Citation `json:"citations,omitempty"`
}

type DiffKind string

const (
	DiffUnchanged DiffKind = "unchanged"
	DiffModified  DiffKind = "modified"
	DiffAdded     DiffKind = "added"
	DiffRemoved   DiffKind = "removed"
)

// Diff pairs a passage from the reference document with its counterpart
// in the candidate. Old is nil for added passages, New for removed ones.
type Diff struct {
	Kind       DiffKind `json:"kind"`
	Old        *Passage `json:"old,omitempty"`
	New        *Passage `json:"new,omitempty"`
	Similarity float64  `json:"similarity,omitempty"`
}

type ComparisonResult struct {
	Diffs     []Diff `json:"diffs"`
	Unchanged int    `json:"unchanged"`
	Modified  int    `json:"modified"`
	Added     int    `json:"added"`
	Removed   int    `json:"removed"`
}

// Insights is the metadata a generator extracts from a document.
type Insights struct {
	Summary          []string `json:"summary"`
	Title            string   `json:"title"`
	Author           []string `json:"author"`
	DateCreated      string   `json:"date_created"`
	LastModifiedDate string   `json:"last_modified_date"`
	Publisher        string   `json:"publisher"`
	Language         string   `json:"language"`
	PageCount        int      `json:"page_count"`
	SentimentTone    string   `json:"sentiment_tone"`
}

type Session struct {
	ID        string    `json:"id"`
	Dir       string    `json:"dir"`
	CreatedAt time.Time `json:"created_at"`
}
