/*
 * classmerge - a JVM class-merging grading harness transformer
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package similarity

import "testing"

// TestNormalizedSimilarityScoringGuarantees is spec §4.2: nontrivial edits
// (<=2 character changes on short identifiers) must score above 0.90,
// unrelated pairs below 0.50.
func TestNormalizedSimilarityScoringGuarantees(t *testing.T) {
	tests := []struct {
		a, b     string
		wantHigh bool // true: must be > 0.90; false: must be < 0.50
	}{
		{"synchronized", "synchronised", true}, // one substitution on a 12-char identifier
		{"accumulator", "acumulator", true},    // one deletion on an 11-char identifier
		{"roll", "zyxwv", false},
		{"accumulator", "zzzzzzzzzzz", false},
	}
	for _, tt := range tests {
		got := NormalizedSimilarity(tt.a, tt.b)
		if tt.wantHigh && got <= 0.90 {
			t.Errorf("NormalizedSimilarity(%q,%q) = %v, want > 0.90", tt.a, tt.b, got)
		}
		if !tt.wantHigh && got >= 0.50 {
			t.Errorf("NormalizedSimilarity(%q,%q) = %v, want < 0.50", tt.a, tt.b, got)
		}
	}
}

func TestNormalizedSimilarityIdentical(t *testing.T) {
	if NormalizedSimilarity("foo", "foo") != 1 {
		t.Error("identical strings should score exactly 1")
	}
	if NormalizedSimilarity("", "") != 1 {
		t.Error("two empty strings should score 1")
	}
}

// TestThreshold is spec §8 property 5: below-threshold pairs get no
// binding; at-or-above-threshold strictly-best pairs do.
func TestThreshold(t *testing.T) {
	rows := []string{"acumulator"} // one deletion from "accumulator", scores ~0.909
	cols := []Item{{Name: "accumulator"}}

	below := Match(rows, cols, 0.95)
	if _, ok := below["acumulator"]; ok {
		t.Error("below-threshold pair should produce no binding")
	}

	above := Match(rows, cols, 0.80)
	b, ok := above["acumulator"]
	if !ok || b.Column != "accumulator" {
		t.Errorf("above-threshold pair should bind acumulator -> accumulator, got %+v", above)
	}
}

// TestCollisionResolutionKeepsHigherSimilarity is spec §3 invariant 3 / §8
// property 4: when two rows would map to the same column, only the
// strictly-higher-similarity row keeps the binding; the loser gets none
// (falls back to identity at the caller).
func TestCollisionResolutionKeepsHigherSimilarity(t *testing.T) {
	rows := []string{"count", "countx"} // "count" is an exact match, "countx" a near-match
	cols := []Item{{Name: "count"}}

	result := Match(rows, cols, 0.50)
	if _, ok := result["count"]; !ok {
		t.Fatal("exact-match row should win the collision")
	}
	if _, ok := result["countx"]; ok {
		t.Error("losing row should have no binding after collision resolution")
	}
}

// TestAliasScoreIsMaxOverNameAndAliases is spec §4.2: "the score for that
// column is the maximum over the item and its aliases".
func TestAliasScoreIsMaxOverNameAndAliases(t *testing.T) {
	item := Item{Name: "count", Aliases: []string{"tally", "accumulator"}}
	scoreAgainstTally := item.Score("tally")
	if scoreAgainstTally != 1 {
		t.Errorf("Score against an exact alias match should be 1, got %v", scoreAgainstTally)
	}
}

// TestMatchIsDeterministic is spec §5: equal inputs must produce an equal
// result across repeated calls.
func TestMatchIsDeterministic(t *testing.T) {
	rows := []string{"foo", "foox", "bar"}
	cols := []Item{{Name: "foo"}, {Name: "bar"}}

	first := Match(rows, cols, 0.5)
	for i := 0; i < 10; i++ {
		again := Match(rows, cols, 0.5)
		if len(again) != len(first) {
			t.Fatalf("non-deterministic result size across runs: %d vs %d", len(again), len(first))
		}
		for row, b := range first {
			if again[row] != b {
				t.Errorf("non-deterministic binding for %q: %+v vs %+v", row, b, again[row])
			}
		}
	}
}
