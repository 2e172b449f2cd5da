package index

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
)

// Fingerprint hashes everything that determines index content: the set of
// source documents, the chunking parameters and the embedding capability.
// It is a pure function so reuse decisions stay testable without I/O.
func Fingerprint(docChecksums []string, maxChunkChars, overlapChars int, embedderVersion string) string {
	sorted := append([]string(nil), docChecksums...)
	sort.Strings(sorted)

	relevant := struct {
		Documents       []string `json:"documents"`
		MaxChunkChars   int      `json:"max_chunk_chars"`
		OverlapChars    int      `json:"overlap_chars"`
		EmbedderVersion string   `json:"embedder_version"`
	}{
		Documents:       sorted,
		MaxChunkChars:   maxChunkChars,
		OverlapChars:    overlapChars,
		EmbedderVersion: embedderVersion,
	}

	data, _ := json.Marshal(relevant)
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:8])
}

// ShouldReuse reports whether an existing index, described by its sidecar
// meta, still matches the candidate documents and settings. Only an exact
// fingerprint match allows reuse.
func ShouldReuse(meta Meta, docChecksums []string, maxChunkChars, overlapChars int, embedderVersion string) bool {
	if meta.Fingerprint == "" {
		return false
	}
	return meta.Fingerprint == Fingerprint(docChecksums, maxChunkChars, overlapChars, embedderVersion)
}
