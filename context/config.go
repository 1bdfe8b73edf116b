/*
 * classmerge - a JVM class-merging grading harness transformer
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package context

import "github.com/tudalgo/classmerge/header"

// ReferenceSpec is one configured reference class: its internal name plus
// any aliases the similarity mapper should also score against (spec §4.2
// "a column item may carry an alias set").
type ReferenceSpec struct {
	InternalName string
	Aliases      []string
}

// MethodReplacement redirects every call to Target onto Replacement (spec
// §4.6, §6 "methodReplacements"). Replacement must be static; if Target is
// virtual, Replacement carries one extra leading parameter for the receiver.
type MethodReplacement struct {
	Target      header.MethodHeader
	Replacement header.MethodHeader
	Invoke      func(args []interface{}) (interface{}, error)
}

// Configuration is the recognized option set of spec §6. Built with
// NewConfiguration and functional options, mirroring the teacher's
// constructor-plus-options idiom rather than a flag/CLI layer -- the
// command/configuration layer is an external collaborator (spec §1).
type Configuration struct {
	ProjectPrefix       string
	References          []ReferenceSpec
	SimilarityThreshold float64
	MethodReplacements  []MethodReplacement

	// EnableThreadSleepFastForward and EnableHashCodeDeterminizer opt into
	// the two stdlib trampolines SPEC_FULL.md §C describes; both default to
	// off so ordinary runs see unmodified stdlib semantics.
	EnableThreadSleepFastForward bool
	EnableHashCodeDeterminizer   bool
}

// Option mutates a Configuration under construction.
type Option func(*Configuration)

// NewConfiguration builds a Configuration with spec §6's documented default
// (similarityThreshold = 0.90) and applies opts in order.
func NewConfiguration(opts ...Option) *Configuration {
	c := &Configuration{SimilarityThreshold: 0.90}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func WithProjectPrefix(prefix string) Option {
	return func(c *Configuration) { c.ProjectPrefix = prefix }
}

func WithReferenceClasses(refs ...ReferenceSpec) Option {
	return func(c *Configuration) { c.References = append(c.References, refs...) }
}

func WithSimilarityThreshold(threshold float64) Option {
	return func(c *Configuration) { c.SimilarityThreshold = threshold }
}

func WithMethodReplacements(repls ...MethodReplacement) Option {
	return func(c *Configuration) { c.MethodReplacements = append(c.MethodReplacements, repls...) }
}

func WithThreadSleepFastForward() Option {
	return func(c *Configuration) { c.EnableThreadSleepFastForward = true }
}

func WithHashCodeDeterminizer() Option {
	return func(c *Configuration) { c.EnableHashCodeDeterminizer = true }
}
