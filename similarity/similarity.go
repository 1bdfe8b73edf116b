/*
 * classmerge - a JVM class-merging grading harness transformer
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

// Package similarity implements the fuzzy identifier mapper (spec §4.2): a
// best-match function between two sets of named items, with duplicate-
// collision resolution and deterministic tie-breaking.
//
// No corpus repo carries a normalized, symmetric [0,1] edit-distance metric
// with the exact scoring guarantees spec §4.2 requires (≤2-edit pairs on
// short identifiers score above 0.90, unrelated pairs below 0.50); the
// closest candidate, github.com/sahilm/fuzzy, is a subsequence-ranking
// fuzzy-find library (ranks by subsequence match quality for autocomplete-
// style UIs) and does not produce a normalized symmetric distance at all, so
// it cannot satisfy invariant 3 or the threshold tests in spec §8. This
// package is therefore a from-scratch, stdlib-only Levenshtein
// implementation -- see DESIGN.md for the full justification.
package similarity

import "sort"

// Item is a column candidate: a name plus an optional alias set. The score
// for a column is the maximum over Name and every alias (spec §4.2: "the
// score for that column is the maximum over the item and its aliases").
type Item struct {
	Name    string
	Aliases []string
}

// Score returns the normalized similarity in [0,1] between s and the best of
// item's name/aliases.
func (it Item) Score(s string) float64 {
	best := NormalizedSimilarity(s, it.Name)
	for _, a := range it.Aliases {
		if v := NormalizedSimilarity(s, a); v > best {
			best = v
		}
	}
	return best
}

// NormalizedSimilarity is 1 - levenshtein(a,b)/max(len(a),len(b)), a
// symmetric metric in [0,1] where 1 means identical and 0 means maximally
// different given the longer string's length. Two empty strings are
// identical (score 1).
func NormalizedSimilarity(a, b string) float64 {
	if a == b {
		return 1
	}
	ra, rb := []rune(a), []rune(b)
	maxLen := len(ra)
	if len(rb) > maxLen {
		maxLen = len(rb)
	}
	if maxLen == 0 {
		return 1
	}
	dist := levenshtein(ra, rb)
	return 1 - float64(dist)/float64(maxLen)
}

func levenshtein(a, b []rune) int {
	la, lb := len(a), len(b)
	prev := make([]int, lb+1)
	curr := make([]int, lb+1)
	for j := 0; j <= lb; j++ {
		prev[j] = j
	}
	for i := 1; i <= la; i++ {
		curr[0] = i
		for j := 1; j <= lb; j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			del := prev[j] + 1
			ins := curr[j-1] + 1
			sub := prev[j-1] + cost
			m := del
			if ins < m {
				m = ins
			}
			if sub < m {
				m = sub
			}
			curr[j] = m
		}
		prev, curr = curr, prev
	}
	return prev[lb]
}

// Binding is one resolved row->column mapping.
type Binding struct {
	Row        string
	Column     string
	Similarity float64
}

// Match computes the best-match function from rows to columns per spec
// §4.2: for each row, the highest-scoring column at or above threshold; then
// collisions (two rows choosing the same column) are resolved by keeping
// only the strictly-higher-similarity row, the loser falling back to no
// match. Row and column iteration order is irrelevant to the result --
// ties are broken by row name, making the result stable across runs with
// equal inputs (spec §5 "Determinism").
func Match(rows []string, columns []Item, threshold float64) map[string]Binding {
	candidates := map[string]Binding{}
	for _, row := range rows {
		bestCol := ""
		bestScore := -1.0
		for _, col := range columns {
			s := col.Score(row)
			if s < threshold {
				continue
			}
			if s > bestScore || (s == bestScore && col.Name < bestCol) {
				bestScore = s
				bestCol = col.Name
			}
		}
		if bestCol != "" {
			candidates[row] = Binding{Row: row, Column: bestCol, Similarity: bestScore}
		}
	}

	byColumn := map[string][]Binding{}
	for _, b := range candidates {
		byColumn[b.Column] = append(byColumn[b.Column], b)
	}

	result := map[string]Binding{}
	for col, bs := range byColumn {
		sort.Slice(bs, func(i, j int) bool {
			if bs[i].Similarity != bs[j].Similarity {
				return bs[i].Similarity > bs[j].Similarity
			}
			return bs[i].Row < bs[j].Row
		})
		winner := bs[0]
		result[winner.Row] = winner
		_ = col
	}
	return result
}
