package cli

import (
	"fmt"
	"time"

	"docport/config"
	"docport/internal/adapter/chunker"
	"docport/internal/adapter/embedding"
	"docport/internal/adapter/generation"
	"docport/internal/port"
	"docport/internal/session"
)

// newEmbedder builds the configured embedding gateway. The "mock" provider
// runs the full pipeline offline with deterministic vectors.
func newEmbedder() (port.Embedder, error) {
	e := cfg.Embedding
	if e.Provider == "mock" {
		dim := e.Dimension
		if dim <= 0 {
			dim = 64
		}
		return embedding.NewMockEmbedder(dim), nil
	}
	return embedding.NewOpenAIEmbedder(embedding.Settings{
		Provider:          e.Provider,
		Model:             e.Model,
		BaseURL:           e.BaseURL,
		APIKeyEnv:         e.APIKeyEnv,
		Dimension:         e.Dimension,
		BatchSize:         e.BatchSize,
		Workers:           e.Workers,
		RequestsPerSecond: e.RequestsPerSecond,
		Timeout:           time.Duration(e.TimeoutSeconds) * time.Second,
	})
}

func newGenerator() (port.Generator, error) {
	g := cfg.Generation
	if g.Provider == "mock" {
		return generation.NewMockGenerator("I don't know."), nil
	}
	return generation.NewOpenAIGenerator(generation.Settings{
		Provider:    g.Provider,
		Model:       g.Model,
		BaseURL:     g.BaseURL,
		APIKeyEnv:   g.APIKeyEnv,
		Temperature: g.Temperature,
		MaxTokens:   g.MaxTokens,
		Timeout:     time.Duration(g.TimeoutSeconds) * time.Second,
	})
}

func newChunker() (port.Chunker, error) {
	return chunker.NewPassageChunker(cfg.Chunk.MaxChunkChars, cfg.Chunk.OverlapChars)
}

// workspaceDeps bundles what most commands need: the session manager, the
// catalog it runs on, and the embedding gateway it shares.
type workspaceDeps struct {
	manager  *session.Manager
	catalog  *session.Catalog
	embedder port.Embedder
}

func (d *workspaceDeps) Close() { d.catalog.Close() }

func openWorkspace() (*workspaceDeps, error) {
	ws := cfg.Session.WorkspaceDir
	if err := config.EnsureWorkspace(ws); err != nil {
		return nil, fmt.Errorf("prepare workspace %s: %w", ws, err)
	}

	catalog, err := session.OpenCatalog(config.CatalogPath(ws))
	if err != nil {
		return nil, err
	}

	emb, err := newEmbedder()
	if err != nil {
		catalog.Close()
		return nil, err
	}

	mgr, err := session.NewManager(catalog, ws, cfg.Chunk, emb)
	if err != nil {
		catalog.Close()
		return nil, err
	}
	return &workspaceDeps{manager: mgr, catalog: catalog, embedder: emb}, nil
}
