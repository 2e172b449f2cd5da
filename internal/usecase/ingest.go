package usecase

import (
	"context"
	"fmt"

	"docport/internal/domain"
	"docport/internal/index"
	"docport/internal/port"
	"docport/internal/session"
)

// IngestUseCase runs the ingestion pipeline for a session: extract each
// file, record the documents in the session catalog, then build or reuse
// the workflow's index. Ingestion-time failures abort before anything is
// persisted to the index artifacts.
type IngestUseCase struct {
	extractor port.Extractor
	sessions  *session.Manager
}

func NewIngestUseCase(extractor port.Extractor, sessions *session.Manager) *IngestUseCase {
	return &IngestUseCase{extractor: extractor, sessions: sessions}
}

// IngestResult reports what one ingestion produced.
type IngestResult struct {
	SessionID string
	Workflow  domain.Workflow
	Documents []domain.Document
	Index     *index.Index
	Reused    bool
}

// Ingest extracts the given files into the session and returns the ready
// index. Under the multi workflow the index covers the session's whole
// document set, so repeated ingests accumulate. The progress callback, when
// non-nil, fires after each extracted file; embedding progress stays inside
// the gateway.
func (u *IngestUseCase) Ingest(ctx context.Context, sessionID string, workflow domain.Workflow, paths []string, progress func(done, total int, name string)) (*IngestResult, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("ingest: no files given")
	}

	docs := make([]domain.Document, 0, len(paths))
	for i, path := range paths {
		doc, err := u.extractor.Extract(ctx, path)
		if err != nil {
			return nil, &domain.Error{Op: "ingest", Session: sessionID, Workflow: workflow, Err: err}
		}
		if err := u.sessions.AddDocument(sessionID, doc); err != nil {
			return nil, err
		}
		docs = append(docs, doc)
		if progress != nil {
			progress(i+1, len(paths), doc.Name)
		}
	}

	// The multi index spans every document the session holds, not just this
	// run's files, so adding to an existing session extends the index the
	// next question will be answered from.
	indexDocs := docs
	if workflow == domain.WorkflowMulti {
		all, err := u.sessions.Documents(sessionID)
		if err != nil {
			return nil, err
		}
		indexDocs = all
	}

	ix, reused, err := u.sessions.GetOrCreateIndex(ctx, sessionID, workflow, indexDocs)
	if err != nil {
		return nil, err
	}

	return &IngestResult{
		SessionID: sessionID,
		Workflow:  workflow,
		Documents: docs,
		Index:     ix,
		Reused:    reused,
	}, nil
}
