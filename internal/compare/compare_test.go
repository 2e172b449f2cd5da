package compare

import (
	"reflect"
	"testing"

	"docport/internal/domain"
)

func passages(texts ...string) []domain.Passage {
	out := make([]domain.Passage, len(texts))
	for i, t := range texts {
		out[i] = domain.Passage{
			ID:          "p" + string(rune('a'+i)),
			DocChecksum: "doc",
			Seq:         i,
			Text:        t,
		}
	}
	return out
}

func TestDiffIdenticalDocuments(t *testing.T) {
	d := NewDiffer(0.5)
	ps := passages(
		"The quarterly revenue grew by twelve percent.",
		"Operating costs stayed flat across all regions.",
		"The board approved the expansion plan.",
	)

	result := d.Diff(ps, ps)

	if result.Added != 0 || result.Removed != 0 || result.Modified != 0 {
		t.Fatalf("self-compare reported changes: +%d -%d ~%d", result.Added, result.Removed, result.Modified)
	}
	if result.Unchanged != len(ps) {
		t.Errorf("unchanged = %d, want %d", result.Unchanged, len(ps))
	}
	for i, diff := range result.Diffs {
		if diff.Kind != domain.DiffUnchanged {
			t.Errorf("diff %d kind = %s", i, diff.Kind)
		}
	}
}

func TestDiffSingleModifiedPassage(t *testing.T) {
	d := NewDiffer(0.5)
	old := passages(
		"The quarterly revenue grew by twelve percent.",
		"Operating costs stayed flat across all regions.",
		"The board approved the expansion plan.",
	)
	new := passages(
		"The quarterly revenue grew by twelve percent.",
		"Operating costs stayed flat across most regions.",
		"The board approved the expansion plan.",
	)

	result := d.Diff(old, new)

	if result.Modified != 1 || result.Added != 0 || result.Removed != 0 {
		t.Fatalf("got +%d -%d ~%d, want exactly one modification", result.Added, result.Removed, result.Modified)
	}
	for _, diff := range result.Diffs {
		if diff.Kind != domain.DiffModified {
			continue
		}
		if diff.Old.Seq != 1 || diff.New.Seq != 1 {
			t.Errorf("modified pair seq %d/%d, want 1/1", diff.Old.Seq, diff.New.Seq)
		}
		if diff.Similarity <= 0.5 || diff.Similarity >= 1 {
			t.Errorf("similarity = %g, want inside (0.5, 1)", diff.Similarity)
		}
	}
}

func TestDiffAddedAndRemoved(t *testing.T) {
	d := NewDiffer(0.5)
	old := passages(
		"Introduction to the report.",
		"Section about manufacturing output.",
		"Closing remarks and signatures.",
	)
	new := passages(
		"Introduction to the report.",
		"Entirely different topic on currency hedging strategies nobody mentioned before.",
		"Closing remarks and signatures.",
	)

	result := d.Diff(old, new)

	if result.Removed != 1 || result.Added != 1 || result.Modified != 0 {
		t.Fatalf("got +%d -%d ~%d, want one added and one removed", result.Added, result.Removed, result.Modified)
	}
}

func TestDiffReplacementBelowThresholdSplits(t *testing.T) {
	// At a strict threshold the same rewrite is a removal plus an addition.
	old := passages("Operating costs stayed flat across all regions.")
	new := passages("Operating costs stayed flat across most regions.")

	loose := NewDiffer(0.5).Diff(old, new)
	if loose.Modified != 1 {
		t.Errorf("loose threshold: modified = %d, want 1", loose.Modified)
	}

	strict := NewDiffer(0.95).Diff(old, new)
	if strict.Modified != 0 || strict.Removed != 1 || strict.Added != 1 {
		t.Errorf("strict threshold: got +%d -%d ~%d", strict.Added, strict.Removed, strict.Modified)
	}
}

func TestDiffThresholdBoundaryIsExclusive(t *testing.T) {
	// Jaccard("alpha beta gamma", "alpha beta delta") is exactly 2/4 = 0.5.
	// Similarity must strictly exceed the threshold to count as modified.
	old := passages("alpha beta gamma")
	new := passages("alpha beta delta")

	result := NewDiffer(0.5).Diff(old, new)
	if result.Modified != 0 || result.Removed != 1 || result.Added != 1 {
		t.Errorf("similarity equal to threshold paired as modified: +%d -%d ~%d",
			result.Added, result.Removed, result.Modified)
	}
}

func TestDiffWhitespaceAndCaseInsensitive(t *testing.T) {
	d := NewDiffer(0.5)
	old := passages("The Board approved   the plan.")
	new := passages("the board approved the plan.")

	result := d.Diff(old, new)
	if result.Unchanged != 1 || len(result.Diffs) != 1 {
		t.Fatalf("formatting-only change classified as %+v", result)
	}
}

func TestDiffOrderAndDeterminism(t *testing.T) {
	d := NewDiffer(0.5)
	old := passages(
		"Alpha section stays.",
		"Beta section will be dropped entirely from the document.",
		"Gamma section stays.",
	)
	new := passages(
		"Alpha section stays.",
		"Gamma section stays.",
		"Delta section is brand new material about shipping routes.",
	)

	first := d.Diff(old, new)
	second := d.Diff(old, new)
	if !reflect.DeepEqual(first, second) {
		t.Fatal("repeated diff of identical inputs differs")
	}

	kinds := make([]domain.DiffKind, len(first.Diffs))
	for i, diff := range first.Diffs {
		kinds[i] = diff.Kind
	}
	want := []domain.DiffKind{domain.DiffUnchanged, domain.DiffRemoved, domain.DiffUnchanged, domain.DiffAdded}
	if !reflect.DeepEqual(kinds, want) {
		t.Errorf("diff order = %v, want %v", kinds, want)
	}
}

func TestJaccardSimilarity(t *testing.T) {
	cases := []struct {
		a, b string
		want float64
	}{
		{"one two three", "one two three", 1},
		{"one two", "three four", 0},
		{"", "", 1},
		{"one", "", 0},
	}
	for _, tc := range cases {
		got := jaccardSimilarity(tokenize(normalize(tc.a)), tokenize(normalize(tc.b)))
		if got != tc.want {
			t.Errorf("jaccard(%q, %q) = %g, want %g", tc.a, tc.b, got, tc.want)
		}
	}
}
