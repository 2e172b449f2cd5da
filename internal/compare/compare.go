// Package compare aligns two chunked document versions and classifies each
// passage as unchanged, modified, added or removed. Alignment is longest
// common subsequence over normalized passage text; leftover passages on both
// sides are then paired as modifications when their token similarity clears
// a configurable threshold.
package compare

import (
	"strings"

	"docport/internal/domain"
)

// DefaultModifiedThreshold is the token-Jaccard similarity above which an
// unmatched old/new passage pair counts as one modification rather than a
// removal plus an addition.
const DefaultModifiedThreshold = 0.5

type Differ struct {
	threshold float64
}

func NewDiffer(threshold float64) *Differ {
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultModifiedThreshold
	}
	return &Differ{threshold: threshold}
}

// Diff classifies the passages of the candidate version against the
// reference. Output order follows document position: within each unaligned
// region, modified and removed passages come in reference order, then
// additions in candidate order. Deterministic for identical inputs.
func (d *Differ) Diff(reference, candidate []domain.Passage) domain.ComparisonResult {
	normRef := normalizeAll(reference)
	normCand := normalizeAll(candidate)

	matched := lcsPairs(normRef, normCand)

	var result domain.ComparisonResult
	ri, ci := 0, 0
	for _, m := range append(matched, pair{len(reference), len(candidate)}) {
		d.classifyGap(&result, reference[ri:m.a], candidate[ci:m.b], normRef[ri:m.a], normCand[ci:m.b])
		if m.a < len(reference) {
			result.Diffs = append(result.Diffs, domain.Diff{
				Kind:       domain.DiffUnchanged,
				Old:        &reference[m.a],
				New:        &candidate[m.b],
				Similarity: 1,
			})
			result.Unchanged++
		}
		ri, ci = m.a+1, m.b+1
	}

	return result
}

// classifyGap pairs the passages of one unaligned region. Each reference
// passage takes the most similar unused candidate passage whose similarity
// strictly exceeds the threshold; ties go to the earliest candidate.
func (d *Differ) classifyGap(result *domain.ComparisonResult, ref, cand []domain.Passage, normRef, normCand []string) {
	taken := make([]bool, len(cand))
	partner := make([]int, len(ref))

	for i := range ref {
		partner[i] = -1
		best := d.threshold
		for j := range cand {
			if taken[j] {
				continue
			}
			if sim := jaccardSimilarity(tokenize(normRef[i]), tokenize(normCand[j])); sim > best {
				best = sim
				partner[i] = j
			}
		}
		if partner[i] >= 0 {
			taken[partner[i]] = true
		}
	}

	for i := range ref {
		if j := partner[i]; j >= 0 {
			result.Diffs = append(result.Diffs, domain.Diff{
				Kind:       domain.DiffModified,
				Old:        &ref[i],
				New:        &cand[j],
				Similarity: jaccardSimilarity(tokenize(normRef[i]), tokenize(normCand[j])),
			})
			result.Modified++
		} else {
			result.Diffs = append(result.Diffs, domain.Diff{Kind: domain.DiffRemoved, Old: &ref[i]})
			result.Removed++
		}
	}
	for j := range cand {
		if !taken[j] {
			result.Diffs = append(result.Diffs, domain.Diff{Kind: domain.DiffAdded, New: &cand[j]})
			result.Added++
		}
	}
}

type pair struct{ a, b int }

// lcsPairs returns the index pairs of a longest common subsequence of the
// two normalized passage lists, in ascending order on both sides.
func lcsPairs(a, b []string) []pair {
	n, m := len(a), len(b)
	dp := make([][]int, n+1)
	for i := range dp {
		dp[i] = make([]int, m+1)
	}
	for i := n - 1; i >= 0; i-- {
		for j := m - 1; j >= 0; j-- {
			if a[i] == b[j] {
				dp[i][j] = dp[i+1][j+1] + 1
			} else if dp[i+1][j] >= dp[i][j+1] {
				dp[i][j] = dp[i+1][j]
			} else {
				dp[i][j] = dp[i][j+1]
			}
		}
	}

	var pairs []pair
	for i, j := 0, 0; i < n && j < m; {
		switch {
		case a[i] == b[j]:
			pairs = append(pairs, pair{i, j})
			i++
			j++
		case dp[i+1][j] >= dp[i][j+1]:
			i++
		default:
			j++
		}
	}
	return pairs
}

func normalizeAll(passages []domain.Passage) []string {
	out := make([]string, len(passages))
	for i, p := range passages {
		out[i] = normalize(p.Text)
	}
	return out
}

// normalize collapses whitespace and case so formatting-only differences do
// not register as changes.
func normalize(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}

func tokenize(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return !('a' <= r && r <= 'z' || '0' <= r && r <= '9')
	})
}

// jaccardSimilarity computes the Jaccard similarity between two token sets.
func jaccardSimilarity(a, b []string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}
	if len(a) == 0 || len(b) == 0 {
		return 0.0
	}

	setA := make(map[string]struct{}, len(a))
	for _, t := range a {
		setA[t] = struct{}{}
	}

	setB := make(map[string]struct{}, len(b))
	for _, t := range b {
		setB[t] = struct{}{}
	}

	intersection := 0
	for t := range setA {
		if _, exists := setB[t]; exists {
			intersection++
		}
	}

	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0.0
	}
	return float64(intersection) / float64(union)
}
