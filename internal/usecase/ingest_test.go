package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"docport/config"
	"docport/internal/adapter/embedding"
	"docport/internal/domain"
	"docport/internal/session"
)

// fileExtractor reads plaintext files directly, standing in for the
// pdftotext-backed extractor.
type fileExtractor struct{}

func (fileExtractor) Extract(_ context.Context, path string) (domain.Document, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return domain.Document{}, err
	}
	if strings.TrimSpace(string(raw)) == "" {
		return domain.Document{}, domain.ErrInvalidDocument
	}
	sum := sha256.Sum256(raw)
	return domain.Document{
		Checksum: hex.EncodeToString(sum[:]),
		Name:     filepath.Base(path),
		Pages:    1,
		Text:     string(raw),
	}, nil
}

func newIngestFixture(t *testing.T) (*IngestUseCase, *session.Manager) {
	t.Helper()
	workspace := t.TempDir()
	catalog, err := session.OpenCatalog(config.CatalogPath(workspace))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { catalog.Close() })

	mgr, err := session.NewManager(catalog, workspace, config.ChunkConfig{MaxChunkChars: 200, OverlapChars: 40}, embedding.NewMockEmbedder(16))
	if err != nil {
		t.Fatal(err)
	}
	return NewIngestUseCase(fileExtractor{}, mgr), mgr
}

func writeSource(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestIngestBuildsIndexAndRecordsDocuments(t *testing.T) {
	u, mgr := newIngestFixture(t)
	sess, err := mgr.Create()
	if err != nil {
		t.Fatal(err)
	}

	src := t.TempDir()
	paths := []string{
		writeSource(t, src, "a.txt", strings.Repeat("First document sentence. ", 30)),
		writeSource(t, src, "b.txt", strings.Repeat("Second document sentence. ", 30)),
	}

	var seen []string
	result, err := u.Ingest(context.Background(), sess.ID, domain.WorkflowMulti, paths, func(done, total int, name string) {
		seen = append(seen, name)
	})
	if err != nil {
		t.Fatal(err)
	}

	if result.Reused {
		t.Error("first ingestion reported reuse")
	}
	if result.Index.Meta.Count == 0 {
		t.Fatal("ingestion produced an empty index")
	}
	if len(result.Documents) != 2 || len(seen) != 2 {
		t.Errorf("documents = %d, progress calls = %d", len(result.Documents), len(seen))
	}

	stored, err := mgr.Documents(sess.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(stored) != 2 {
		t.Errorf("catalog holds %d documents, want 2", len(stored))
	}

	again, err := u.Ingest(context.Background(), sess.ID, domain.WorkflowMulti, paths, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !again.Reused {
		t.Error("unchanged files were re-ingested from scratch")
	}
}

func TestIngestIntoExistingSessionExtendsIndex(t *testing.T) {
	u, mgr := newIngestFixture(t)
	sess, err := mgr.Create()
	if err != nil {
		t.Fatal(err)
	}

	src := t.TempDir()
	first := writeSource(t, src, "a.txt", strings.Repeat("First document sentence. ", 30))
	second := writeSource(t, src, "b.txt", strings.Repeat("Second document sentence. ", 30))

	if _, err := u.Ingest(context.Background(), sess.ID, domain.WorkflowMulti, []string{first}, nil); err != nil {
		t.Fatal(err)
	}

	result, err := u.Ingest(context.Background(), sess.ID, domain.WorkflowMulti, []string{second}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if result.Reused {
		t.Error("index with a new document reported reuse")
	}
	if len(result.Index.Meta.Documents) != 2 {
		t.Fatalf("index covers %d documents, want both session documents", len(result.Index.Meta.Documents))
	}

	// Asking right after matches the persisted index, so nothing re-embeds.
	docs, err := mgr.Documents(sess.ID)
	if err != nil {
		t.Fatal(err)
	}
	_, reused, err := mgr.GetOrCreateIndex(context.Background(), sess.ID, domain.WorkflowMulti, docs)
	if err != nil {
		t.Fatal(err)
	}
	if !reused {
		t.Error("full document set rebuilt the index just written by ingest")
	}
}

func TestIngestAbortsOnBadFile(t *testing.T) {
	u, mgr := newIngestFixture(t)
	sess, err := mgr.Create()
	if err != nil {
		t.Fatal(err)
	}

	src := t.TempDir()
	paths := []string{
		writeSource(t, src, "ok.txt", "Some usable content here."),
		writeSource(t, src, "empty.txt", "   "),
	}

	_, err = u.Ingest(context.Background(), sess.ID, domain.WorkflowMulti, paths, nil)
	if !errors.Is(err, domain.ErrInvalidDocument) {
		t.Fatalf("err = %v, want ErrInvalidDocument", err)
	}

	var de *domain.Error
	if !errors.As(err, &de) {
		t.Fatalf("err = %T, want *domain.Error with correlation fields", err)
	}
	if de.Session != sess.ID {
		t.Errorf("error session = %q", de.Session)
	}

	// No index was persisted for the aborted ingestion.
	if _, err := os.Stat(filepath.Join(sess.Dir, "index", "multi")); !os.IsNotExist(err) {
		t.Errorf("partial index persisted: %v", err)
	}
}
