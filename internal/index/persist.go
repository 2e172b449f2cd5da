package index

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"docport/internal/domain"
	"docport/internal/logger"
)

const (
	metaFile   = "meta.json"
	vectorFile = "vectors.f32"
)

type sidecar struct {
	Meta     Meta             `json:"meta"`
	Passages []domain.Passage `json:"passages"`
}

// Save persists the artifact pair under dir. Both files are written into a
// temporary sibling directory first and renamed into place, so a crash
// mid-write never leaves a torn pair visible to Load. Transient I/O failures
// are retried once.
func Save(ix *Index, dir string) error {
	err := saveOnce(ix, dir)
	if err != nil && errors.Is(err, domain.ErrIO) {
		logger.Warn("index save to %s failed, retrying once: %v", dir, err)
		err = saveOnce(ix, dir)
	}
	return err
}

func saveOnce(ix *Index, dir string) error {
	if len(ix.Passages) != ix.Meta.Count {
		return fmt.Errorf("save index: meta count %d disagrees with %d passages", ix.Meta.Count, len(ix.Passages))
	}
	if len(ix.Vectors) != ix.Meta.Count*ix.Meta.Dim {
		return fmt.Errorf("save index: vector block has %d floats, expected %d", len(ix.Vectors), ix.Meta.Count*ix.Meta.Dim)
	}

	parent := filepath.Dir(dir)
	if err := os.MkdirAll(parent, 0755); err != nil {
		return fmt.Errorf("create %s: %v: %w", parent, err, domain.ErrIO)
	}

	tmp, err := os.MkdirTemp(parent, filepath.Base(dir)+".tmp-")
	if err != nil {
		return fmt.Errorf("create temp dir: %v: %w", err, domain.ErrIO)
	}
	defer os.RemoveAll(tmp)

	side := sidecar{Meta: ix.Meta, Passages: ix.Passages}
	mb, err := json.MarshalIndent(side, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal sidecar: %w", err)
	}
	if err := os.WriteFile(filepath.Join(tmp, metaFile), mb, 0644); err != nil {
		return fmt.Errorf("write sidecar: %v: %w", err, domain.ErrIO)
	}

	vf, err := os.Create(filepath.Join(tmp, vectorFile))
	if err != nil {
		return fmt.Errorf("create vector file: %v: %w", err, domain.ErrIO)
	}
	if err := binary.Write(vf, binary.LittleEndian, ix.Vectors); err != nil {
		vf.Close()
		return fmt.Errorf("write vectors: %v: %w", err, domain.ErrIO)
	}
	if err := vf.Close(); err != nil {
		return fmt.Errorf("close vector file: %v: %w", err, domain.ErrIO)
	}

	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("drop previous index at %s: %v: %w", dir, err, domain.ErrIO)
	}
	if err := os.Rename(tmp, dir); err != nil {
		return fmt.Errorf("publish index at %s: %v: %w", dir, err, domain.ErrIO)
	}
	return nil
}

// Load reads the artifact pair from dir. A missing index surfaces as
// ErrIndexNotFound; a pair whose halves disagree surfaces as
// ErrCorruptIndex. Transient I/O failures are retried once.
func Load(dir string) (*Index, error) {
	ix, err := loadOnce(dir)
	if err != nil && errors.Is(err, domain.ErrIO) {
		logger.Warn("index load from %s failed, retrying once: %v", dir, err)
		ix, err = loadOnce(dir)
	}
	return ix, err
}

func loadOnce(dir string) (*Index, error) {
	mb, err := os.ReadFile(filepath.Join(dir, metaFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("index at %s: %w", dir, domain.ErrIndexNotFound)
		}
		return nil, fmt.Errorf("read sidecar: %v: %w", err, domain.ErrIO)
	}

	var side sidecar
	if err := json.Unmarshal(mb, &side); err != nil {
		return nil, fmt.Errorf("sidecar at %s is not valid JSON: %v: %w", dir, err, domain.ErrCorruptIndex)
	}
	if side.Meta.Count != len(side.Passages) {
		return nil, fmt.Errorf("sidecar at %s counts %d passages but lists %d: %w",
			dir, side.Meta.Count, len(side.Passages), domain.ErrCorruptIndex)
	}
	if side.Meta.Count > 0 && side.Meta.Dim <= 0 {
		return nil, fmt.Errorf("sidecar at %s has invalid dimension %d: %w", dir, side.Meta.Dim, domain.ErrCorruptIndex)
	}

	vectors, err := loadVectors(filepath.Join(dir, vectorFile), side.Meta.Count, side.Meta.Dim)
	if err != nil {
		return nil, err
	}

	return &Index{Meta: side.Meta, Passages: side.Passages, Vectors: vectors}, nil
}

func loadVectors(path string, count, dim int) ([]float32, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Sidecar present without its vector half is a torn pair.
			return nil, fmt.Errorf("vector file missing at %s: %w", path, domain.ErrCorruptIndex)
		}
		return nil, fmt.Errorf("open vector file: %v: %w", err, domain.ErrIO)
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat vector file: %v: %w", err, domain.ErrIO)
	}
	expected := int64(count) * int64(dim) * 4
	if st.Size() != expected {
		return nil, fmt.Errorf("vector file is %d bytes, sidecar expects %d (count=%d dim=%d): %w",
			st.Size(), expected, count, dim, domain.ErrCorruptIndex)
	}

	out := make([]float32, count*dim)
	if expected == 0 {
		return out, nil
	}
	if err := binary.Read(f, binary.LittleEndian, out); err != nil {
		return nil, fmt.Errorf("read vectors: %v: %w", err, domain.ErrIO)
	}
	return out, nil
}
