// Package extract turns stored files into Documents: text with page markers,
// a raw-content checksum, and a page count. PDF text comes from the
// pdftotext tool behind a CommandRunner, so tests can substitute output.
package extract

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"docport/internal/domain"
	"docport/internal/port"
)

type Extractor struct {
	runner port.CommandRunner
}

func New() *Extractor {
	return &Extractor{runner: execRunner{}}
}

// NewWithRunner substitutes the external command execution, for tests.
func NewWithRunner(r port.CommandRunner) *Extractor {
	return &Extractor{runner: r}
}

func (e *Extractor) Extract(ctx context.Context, path string) (domain.Document, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return domain.Document{}, fmt.Errorf("read %s: %v: %w", path, err, domain.ErrIO)
	}

	sum := sha256.Sum256(raw)
	doc := domain.Document{
		Checksum: hex.EncodeToString(sum[:]),
		Name:     filepath.Base(path),
		Path:     path,
		AddedAt:  time.Now().UTC(),
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		text, pages, err := e.extractPDF(ctx, path)
		if err != nil {
			return domain.Document{}, err
		}
		doc.Text = text
		doc.Pages = pages
	case ".txt", ".md", ".markdown":
		doc.Text = string(raw)
	default:
		return domain.Document{}, fmt.Errorf("extract %s: unsupported format: %w", doc.Name, domain.ErrInvalidDocument)
	}

	if strings.TrimSpace(doc.Text) == "" {
		return domain.Document{}, fmt.Errorf("extract %s: empty document: %w", doc.Name, domain.ErrInvalidDocument)
	}

	return doc, nil
}

// extractPDF shells out to pdftotext and rewrites its form-feed page breaks
// into explicit page markers the chunker can attribute passages to.
func (e *Extractor) extractPDF(ctx context.Context, path string) (string, int, error) {
	out, err := e.runner.Run(ctx, "pdftotext", "-layout", "-enc", "UTF-8", path, "-")
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return "", 0, fmt.Errorf("pdftotext %s: %w", filepath.Base(path), domain.ErrTimeout)
		}
		return "", 0, fmt.Errorf("pdftotext %s: %v: %w", filepath.Base(path), err, domain.ErrInvalidDocument)
	}

	pages := strings.Split(string(out), "\f")
	for len(pages) > 0 && strings.TrimSpace(pages[len(pages)-1]) == "" {
		pages = pages[:len(pages)-1]
	}

	var b strings.Builder
	for i, page := range pages {
		fmt.Fprintf(&b, "\n--- Page %d ---\n%s", i+1, page)
	}

	return b.String(), len(pages), nil
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return nil, fmt.Errorf("%s: %s: %w", name, msg, err)
		}
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	return stdout.Bytes(), nil
}
