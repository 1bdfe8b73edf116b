/*
 * classmerge - a JVM class-merging grading harness transformer
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package context

import "github.com/bits-and-blooms/bloom/v3"

// submissionFilter is a fast negative pre-filter over the enumerated
// submission-name universe (discovery's JSON source-set enumeration, spec
// §6): isSubmissionClass is consulted on every field/method reference the
// method transformer visits (spec §4.8), so a cheap false-negative-free
// reject before the authoritative map lookup matters on large classes.
type submissionFilter struct {
	filter *bloom.BloomFilter
	known  map[string]bool // authoritative set; the bloom filter only short-circuits misses
}

func newSubmissionFilter(names []string) *submissionFilter {
	f := bloom.NewWithEstimates(uint(len(names)+1), 0.01)
	known := make(map[string]bool, len(names))
	for _, n := range names {
		f.AddString(n)
		known[n] = true
	}
	return &submissionFilter{filter: f, known: known}
}

func (sf *submissionFilter) contains(internalName string) bool {
	if !sf.filter.TestString(internalName) {
		return false
	}
	return sf.known[internalName]
}

func (sf *submissionFilter) add(internalName string) {
	sf.filter.AddString(internalName)
	sf.known[internalName] = true
}
