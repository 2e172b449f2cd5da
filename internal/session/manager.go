// Package session scopes documents and index artifacts to isolated
// workspaces. Each session owns a directory under the workspace root and at
// most one persisted index per workflow; the bbolt catalog records which
// documents belong where. Sessions never share mutable state.
package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"docport/config"
	"docport/internal/adapter/chunker"
	"docport/internal/domain"
	"docport/internal/index"
	"docport/internal/logger"
	"docport/internal/port"
)

type Manager struct {
	catalog   *Catalog
	workspace string
	chunkCfg  config.ChunkConfig
	chunker   port.Chunker
	embedder  port.Embedder

	// Serializes index builds within this process; cross-process writers
	// are fenced by a file lock per index directory.
	mu sync.Mutex
}

func NewManager(catalog *Catalog, workspace string, chunkCfg config.ChunkConfig, embedder port.Embedder) (*Manager, error) {
	ch, err := chunker.NewPassageChunker(chunkCfg.MaxChunkChars, chunkCfg.OverlapChars)
	if err != nil {
		return nil, fmt.Errorf("session manager: %w", err)
	}
	if err := config.EnsureWorkspace(workspace); err != nil {
		return nil, fmt.Errorf("session manager: prepare workspace %s: %v: %w", workspace, err, domain.ErrIO)
	}
	return &Manager{
		catalog:   catalog,
		workspace: workspace,
		chunkCfg:  chunkCfg,
		chunker:   ch,
		embedder:  embedder,
	}, nil
}

// Create allocates a session with its own directory.
func (m *Manager) Create() (domain.Session, error) {
	s := domain.Session{
		ID:        newSessionID(),
		CreatedAt: time.Now().UTC(),
	}
	s.Dir = filepath.Join(config.SessionsDir(m.workspace), s.ID)

	if err := os.MkdirAll(s.Dir, 0755); err != nil {
		return domain.Session{}, fmt.Errorf("create session dir: %v: %w", err, domain.ErrIO)
	}
	if err := m.catalog.PutSession(s); err != nil {
		return domain.Session{}, fmt.Errorf("record session: %w", err)
	}

	logger.Info("session %s created", s.ID)
	return s, nil
}

func (m *Manager) Get(id string) (domain.Session, error) {
	return m.catalog.GetSession(id)
}

// List returns all sessions, newest first.
func (m *Manager) List() ([]domain.Session, error) {
	return m.catalog.ListSessions()
}

// AddDocument records an extracted document in the session's catalog.
func (m *Manager) AddDocument(sessionID string, doc domain.Document) error {
	if _, err := m.catalog.GetSession(sessionID); err != nil {
		return err
	}
	if strings.TrimSpace(doc.Text) == "" {
		return &domain.Error{
			Op:       "add document",
			Session:  sessionID,
			Checksum: doc.Checksum,
			Err:      fmt.Errorf("%w: no extracted text", domain.ErrInvalidDocument),
		}
	}
	return m.catalog.PutDocument(sessionID, doc)
}

// Document returns one of the session's documents with its extracted text.
func (m *Manager) Document(sessionID, checksum string) (domain.Document, error) {
	return m.catalog.GetDocument(sessionID, checksum)
}

// Documents returns the session's documents with extracted text.
func (m *Manager) Documents(sessionID string) ([]domain.Document, error) {
	return m.catalog.ListDocuments(sessionID)
}

// GetOrCreateIndex returns the session's index for the workflow, reusing the
// persisted artifact pair when its fingerprint still matches the candidate
// documents, the chunking parameters and the embedding capability. Any
// mismatch, or a corrupt pair, triggers a rebuild: chunk, embed, build,
// atomic save. The bool reports whether the persisted index was reused.
func (m *Manager) GetOrCreateIndex(ctx context.Context, sessionID string, workflow domain.Workflow, docs []domain.Document) (*index.Index, bool, error) {
	fail := func(err error) (*index.Index, bool, error) {
		return nil, false, &domain.Error{Op: "get or create index", Session: sessionID, Workflow: workflow, Err: err}
	}

	if workflow != domain.WorkflowSingle && workflow != domain.WorkflowMulti {
		return fail(fmt.Errorf("workflow %q does not own an index", workflow))
	}
	if len(docs) == 0 {
		return fail(fmt.Errorf("%w: no documents given", domain.ErrInvalidDocument))
	}
	if workflow == domain.WorkflowSingle && len(docs) != 1 {
		return fail(fmt.Errorf("single-document workflow got %d documents", len(docs)))
	}

	sess, err := m.catalog.GetSession(sessionID)
	if err != nil {
		return fail(err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	dir := m.indexDir(sess, workflow)
	if err := os.MkdirAll(filepath.Dir(dir), 0755); err != nil {
		return fail(fmt.Errorf("prepare index dir: %v: %w", err, domain.ErrIO))
	}

	fl := flock.New(dir + ".lock")
	if err := fl.Lock(); err != nil {
		return fail(fmt.Errorf("lock index dir: %v: %w", err, domain.ErrIO))
	}
	defer fl.Unlock()

	sums := checksums(docs)

	existing, err := index.Load(dir)
	switch {
	case err == nil:
		if index.ShouldReuse(existing.Meta, sums, m.chunkCfg.MaxChunkChars, m.chunkCfg.OverlapChars, m.embedder.ModelName()) {
			logger.Info("session %s: reusing %s index (%d passages)", sessionID, workflow, existing.Meta.Count)
			return existing, true, nil
		}
		logger.Info("session %s: %s index fingerprint stale, rebuilding", sessionID, workflow)
	case errors.Is(err, domain.ErrIndexNotFound):
		// First ingestion for this workflow.
	default:
		logger.Warn("session %s: %s index unreadable, rebuilding: %v", sessionID, workflow, err)
	}

	ix, err := m.build(ctx, docs)
	if err != nil {
		return fail(err)
	}
	ix.Meta.Fingerprint = index.Fingerprint(sums, m.chunkCfg.MaxChunkChars, m.chunkCfg.OverlapChars, m.embedder.ModelName())

	if err := index.Save(ix, dir); err != nil {
		return fail(err)
	}
	logger.Info("session %s: built %s index with %d passages from %d documents",
		sessionID, workflow, ix.Meta.Count, len(docs))
	return ix, false, nil
}

// build runs the ingestion pipeline: chunk every document, embed all
// passages, assemble the index. Nothing is persisted here, so a failure
// leaves no partial artifacts.
func (m *Manager) build(ctx context.Context, docs []domain.Document) (*index.Index, error) {
	var passages []domain.Passage
	for i := range docs {
		ps, err := m.chunker.Chunk(docs[i])
		if err != nil {
			return nil, err
		}
		passages = append(passages, ps...)
	}
	if len(passages) == 0 {
		return nil, fmt.Errorf("%w: documents produced no passages", domain.ErrInvalidDocument)
	}

	texts := make([]string, len(passages))
	for i, p := range passages {
		texts[i] = p.Text
	}

	vectors, err := m.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, err
	}

	ix, err := index.Build(passages, vectors, m.embedder.ModelName())
	if err != nil {
		return nil, err
	}
	for i := range ix.Meta.Documents {
		for _, d := range docs {
			if d.Checksum == ix.Meta.Documents[i].Checksum {
				ix.Meta.Documents[i].Name = d.Name
				ix.Meta.Documents[i].Pages = d.Pages
			}
		}
	}
	return ix, nil
}

// Destroy releases the session: catalog rows and every artifact under its
// directory, persisted indexes included.
func (m *Manager) Destroy(sessionID string) error {
	sess, err := m.catalog.GetSession(sessionID)
	if err != nil {
		return err
	}
	if err := m.catalog.DeleteSession(sessionID); err != nil {
		return fmt.Errorf("drop session %s from catalog: %w", sessionID, err)
	}
	if sess.Dir != "" {
		if err := os.RemoveAll(sess.Dir); err != nil {
			return &domain.Error{Op: "destroy session", Session: sessionID, Err: fmt.Errorf("%v: %w", err, domain.ErrIO)}
		}
	}
	logger.Info("session %s destroyed", sessionID)
	return nil
}

// CleanOld destroys all but the newest keep sessions and reports how many
// were removed.
func (m *Manager) CleanOld(keep int) (int, error) {
	if keep < 1 {
		keep = 1
	}
	sessions, err := m.catalog.ListSessions()
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, s := range sessions[min(keep, len(sessions)):] {
		if err := m.Destroy(s.ID); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}

func (m *Manager) indexDir(sess domain.Session, workflow domain.Workflow) string {
	return filepath.Join(sess.Dir, "index", string(workflow))
}

func checksums(docs []domain.Document) []string {
	sums := make([]string, len(docs))
	for i, d := range docs {
		sums[i] = d.Checksum
	}
	return sums
}

// newSessionID mints ids like session_20250114_153045_9f8a2c41.
func newSessionID() string {
	hex := strings.ReplaceAll(uuid.NewString(), "-", "")
	return fmt.Sprintf("session_%s_%s", time.Now().UTC().Format("20060102_150405"), hex[:8])
}
