/*
 * classmerge - a JVM class-merging grading harness transformer
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

// Package metrics is the observability surface the teacher's trace calls
// only ever hint at ("loaded reference class", "transformation context
// ready") without quantifying: counters for classes transformed, fuzzy
// bindings made/rejected, and signature mismatches trapped (spec §7
// SignatureMismatch), exported via github.com/prometheus/client_golang the
// same way SPEC_FULL.md §B grounds it -- the library appears only as an
// indirect, transitive dependency in the retrieved corpus (no repo wires it
// into a concrete collector), so this package follows the library's own
// documented promauto idiom directly rather than a corpus-observed pattern.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry bundles every counter this package exposes. A caller normally
// uses the package-level Default, constructed once with prometheus'
// DefaultRegisterer; NewRegistry exists for tests and for embedding into a
// host process with its own prometheus.Registry.
type Registry struct {
	ClassesTransformed  prometheus.Counter
	ClassesFailed       prometheus.Counter
	BindingsMade        prometheus.Counter
	BindingsRejected    prometheus.Counter
	SignatureMismatches prometheus.Counter
	MethodsInlined      *prometheus.CounterVec // labeled "log"/"substitute"/"delegate"/"student"
}

// NewRegistry registers every counter against reg and returns the bundle.
// Passing a fresh prometheus.NewRegistry() keeps concurrent test runs from
// colliding on the global DefaultRegisterer's metric names.
func NewRegistry(reg prometheus.Registerer) *Registry {
	factory := promauto.With(reg)
	return &Registry{
		ClassesTransformed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "classmerge",
			Name:      "classes_transformed_total",
			Help:      "Number of submission classes successfully merged with their bound reference (or emitted as-is when unbound).",
		}),
		ClassesFailed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "classmerge",
			Name:      "classes_failed_total",
			Help:      "Number of submission classes whose transformation aborted with a fatal error (ConfigError or UnresolvedType).",
		}),
		BindingsMade: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "classmerge",
			Name:      "fuzzy_bindings_made_total",
			Help:      "Number of submission members bound to a reference member by the similarity mapper (spec §4.2).",
		}),
		BindingsRejected: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "classmerge",
			Name:      "fuzzy_bindings_rejected_total",
			Help:      "Number of submission members that fell back to identity because no candidate cleared the similarity threshold, or lost a collision (spec §3 invariant 3).",
		}),
		SignatureMismatches: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "classmerge",
			Name:      "signature_mismatches_trapped_total",
			Help:      "Number of methods emitted as an IncompatibleHeaderException throw because the declared and computed signatures disagreed beyond name-translation (spec §7 SignatureMismatch).",
		}),
		MethodsInlined: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "classmerge",
			Name:      "dispatch_branch_selected_total",
			Help:      "Dispatch-prologue branch selected at runtime, by branch name: log, substitute, delegate, student.",
		}, []string{"branch"}),
	}
}

// Default is the package-level registry wired to prometheus' global
// DefaultRegisterer, the shape most callers reach for (a single process
// exposing /metrics once via promhttp.Handler()).
var Default = NewRegistry(prometheus.DefaultRegisterer)

// ObserveTransform records the outcome of one ClassTransformer.Transform
// call: a success/failure count plus the signature-mismatch tally the
// transformer surfaced via its exported MismatchCount field.
func (r *Registry) ObserveTransform(mismatchCount int, err error) {
	if err != nil {
		r.ClassesFailed.Inc()
		return
	}
	r.ClassesTransformed.Inc()
	if mismatchCount > 0 {
		r.SignatureMismatches.Add(float64(mismatchCount))
	}
}

// ObserveBindings tallies one similarity.Match sweep's outcome: made counts
// every row that received a binding, rejected counts every row that did not
// (below threshold or lost a collision).
func (r *Registry) ObserveBindings(made, rejected int) {
	r.BindingsMade.Add(float64(made))
	r.BindingsRejected.Add(float64(rejected))
}
