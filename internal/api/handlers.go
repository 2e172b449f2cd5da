package api

import (
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"

	"github.com/labstack/echo/v4"

	"docport/internal/domain"
)

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok", "service": "document-portal"})
}

func (s *Server) createSession(c echo.Context) error {
	sess, err := s.sessions.Create()
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, map[string]any{
		"session_id": sess.ID,
		"created_at": sess.CreatedAt,
	})
}

func (s *Server) destroySession(c echo.Context) error {
	if err := s.sessions.Destroy(c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// uploadDocument accepts one multipart file, stores it under the session
// directory, extracts its text and records the document in the catalog.
func (s *Server) uploadDocument(c echo.Context) error {
	sessionID := c.Param("id")
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return err
	}

	fh, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "multipart field 'file' is required")
	}

	src, err := fh.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "cannot read upload: "+err.Error())
	}
	defer src.Close()

	uploads := filepath.Join(sess.Dir, "uploads")
	if err := os.MkdirAll(uploads, 0755); err != nil {
		return err
	}
	stored := filepath.Join(uploads, filepath.Base(fh.Filename))
	dst, err := os.Create(stored)
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return err
	}
	if err := dst.Close(); err != nil {
		return err
	}

	doc, err := s.extractor.Extract(c.Request().Context(), stored)
	if err != nil {
		return &domain.Error{Op: "upload document", Session: sessionID, Err: err}
	}
	if err := s.sessions.AddDocument(sessionID, doc); err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, map[string]any{
		"checksum": doc.Checksum,
		"name":     doc.Name,
		"pages":    doc.Pages,
	})
}

type indexRequest struct {
	Workflow string `json:"workflow"`
}

func (s *Server) buildIndex(c echo.Context) error {
	sessionID := c.Param("id")

	var req indexRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	workflow, docs, err := s.workflowDocuments(sessionID, req.Workflow)
	if err != nil {
		return err
	}

	ix, reused, err := s.sessions.GetOrCreateIndex(c.Request().Context(), sessionID, workflow, docs)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]any{
		"workflow":    string(workflow),
		"passages":    ix.Meta.Count,
		"documents":   len(ix.Meta.Documents),
		"reused":      reused,
		"fingerprint": ix.Meta.Fingerprint,
	})
}

type askRequest struct {
	Question string        `json:"question"`
	Workflow string        `json:"workflow"`
	History  []domain.Turn `json:"history"`
}

func (s *Server) ask(c echo.Context) error {
	sessionID := c.Param("id")

	var req askRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Question == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "question is required")
	}

	workflow, docs, err := s.workflowDocuments(sessionID, req.Workflow)
	if err != nil {
		return err
	}

	ix, _, err := s.sessions.GetOrCreateIndex(c.Request().Context(), sessionID, workflow, docs)
	if err != nil {
		return err
	}

	answer, err := s.query.Answer(c.Request().Context(), ix, req.Question, req.History)
	if err != nil {
		return &domain.Error{Op: "ask", Session: sessionID, Workflow: workflow, Err: err}
	}

	return c.JSON(http.StatusOK, map[string]any{
		"answer":    answer.Text,
		"citations": answer.Citations,
	})
}

type compareRequest struct {
	Reference string `json:"reference"`
	Candidate string `json:"candidate"`
	Summarize bool   `json:"summarize"`
}

// compareVersions diffs two of the session's documents. Without explicit
// checksums the session must hold exactly two documents; the earlier upload
// is the reference.
func (s *Server) compareVersions(c echo.Context) error {
	sessionID := c.Param("id")

	var req compareRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	var reference, candidate domain.Document
	if req.Reference != "" && req.Candidate != "" {
		var err error
		if reference, err = s.sessions.Document(sessionID, req.Reference); err != nil {
			return &domain.Error{Op: "compare", Session: sessionID, Checksum: req.Reference, Err: err}
		}
		if candidate, err = s.sessions.Document(sessionID, req.Candidate); err != nil {
			return &domain.Error{Op: "compare", Session: sessionID, Checksum: req.Candidate, Err: err}
		}
	} else {
		docs, err := s.sessions.Documents(sessionID)
		if err != nil {
			return err
		}
		if len(docs) != 2 {
			return echo.NewHTTPError(http.StatusBadRequest,
				"session must hold exactly two documents, or name reference and candidate checksums")
		}
		sort.Slice(docs, func(i, j int) bool { return docs[i].AddedAt.Before(docs[j].AddedAt) })
		reference, candidate = docs[0], docs[1]
	}

	result, err := s.comparer.Compare(reference, candidate)
	if err != nil {
		return &domain.Error{Op: "compare", Session: sessionID, Workflow: domain.WorkflowCompare, Err: err}
	}

	payload := map[string]any{
		"reference": reference.Checksum,
		"candidate": candidate.Checksum,
		"unchanged": result.Unchanged,
		"modified":  result.Modified,
		"added":     result.Added,
		"removed":   result.Removed,
		"diffs":     result.Diffs,
	}

	if req.Summarize {
		summary, err := s.comparer.Summarize(c.Request().Context(), result)
		if err != nil {
			return &domain.Error{Op: "compare summary", Session: sessionID, Workflow: domain.WorkflowCompare, Err: err}
		}
		payload["summary"] = summary
	}

	return c.JSON(http.StatusOK, payload)
}

type analyzeRequest struct {
	Checksum string `json:"checksum"`
}

// analyze extracts document metadata. Without a checksum the most recently
// uploaded document is analyzed.
func (s *Server) analyze(c echo.Context) error {
	sessionID := c.Param("id")

	var req analyzeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	var doc domain.Document
	if req.Checksum != "" {
		var err error
		if doc, err = s.sessions.Document(sessionID, req.Checksum); err != nil {
			return &domain.Error{Op: "analyze", Session: sessionID, Checksum: req.Checksum, Err: err}
		}
	} else {
		docs, err := s.sessions.Documents(sessionID)
		if err != nil {
			return err
		}
		if len(docs) == 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "session holds no documents")
		}
		sort.Slice(docs, func(i, j int) bool { return docs[i].AddedAt.Before(docs[j].AddedAt) })
		doc = docs[len(docs)-1]
	}

	insights, err := s.analyzer.Analyze(c.Request().Context(), doc)
	if err != nil {
		return &domain.Error{Op: "analyze", Session: sessionID, Workflow: domain.WorkflowAnalysis, Checksum: doc.Checksum, Err: err}
	}

	return c.JSON(http.StatusOK, insights)
}

// workflowDocuments resolves the workflow name and picks its document set
// from the session catalog: all documents for multi, the latest upload for
// single.
func (s *Server) workflowDocuments(sessionID, name string) (domain.Workflow, []domain.Document, error) {
	docs, err := s.sessions.Documents(sessionID)
	if err != nil {
		return "", nil, err
	}
	if _, err := s.sessions.Get(sessionID); err != nil {
		return "", nil, err
	}
	if len(docs) == 0 {
		return "", nil, echo.NewHTTPError(http.StatusBadRequest, "session holds no documents, upload first")
	}

	workflow := domain.Workflow(name)
	if name == "" {
		if len(docs) == 1 {
			workflow = domain.WorkflowSingle
		} else {
			workflow = domain.WorkflowMulti
		}
	}

	switch workflow {
	case domain.WorkflowSingle:
		sort.Slice(docs, func(i, j int) bool { return docs[i].AddedAt.Before(docs[j].AddedAt) })
		return workflow, docs[len(docs)-1:], nil
	case domain.WorkflowMulti:
		return workflow, docs, nil
	default:
		return "", nil, echo.NewHTTPError(http.StatusBadRequest, "workflow must be 'single' or 'multi'")
	}
}
