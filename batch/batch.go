/*
 * classmerge - a JVM class-merging grading harness transformer
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

// Package batch is the concurrent driver spec §5 allows ("multiple classes
// may be transformed concurrently if and only if the transformation
// context's caches are thread-safe maps"): one goroutine per submission
// class-file, fanning in to a shared context.TransformationContext, driven
// by golang.org/x/sync/errgroup the way SPEC_FULL.md §A grounds it (the
// library is an indirect transitive dependency in the retrieved corpus --
// no repo wires a concrete errgroup.Group -- so this package follows the
// library's own documented idiom: errgroup.WithContext plus g.Go per unit
// of work, g.Wait to fan in).
package batch

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	cmclassfile "github.com/tudalgo/classmerge/classfile"
	cmcontext "github.com/tudalgo/classmerge/context"
	"github.com/tudalgo/classmerge/internal/obslog"
	"github.com/tudalgo/classmerge/metrics"
	"github.com/tudalgo/classmerge/transform"
)

// Result is one class's transformation outcome.
type Result struct {
	InternalName  string
	ClassBytes    []byte
	MismatchCount int
	Err           error
}

// Sink receives each class's emitted bytes as soon as its goroutine
// finishes transforming it, decoupling output (writing to a directory,
// streaming to a jar, handing back to a test harness in memory) from the
// transformation itself. Sink implementations must be safe for concurrent
// use from multiple goroutines -- TransformAll calls it from every worker.
type Sink interface {
	Put(internalName string, classBytes []byte) error
}

// TransformAll transforms every class in names concurrently against tc,
// one goroutine per class (spec §5's "multiple classes... concurrently"),
// stopping at the first error the way errgroup.Group's first non-nil error
// cancels the shared ctx and aborts any goroutine that still checks it.
// Every class that was transformed -- successfully or not -- has its outcome
// in the Result slice; a class whose goroutine saw the cancellation before
// starting keeps a zero Result. A non-nil returned error means at least one
// class failed.
//
// reg is optional; pass nil to skip metrics entirely, or metrics.Default to
// observe via the package-level registry.
func TransformAll(ctx context.Context, tc *cmcontext.TransformationContext, names []string, sink Sink, reg *metrics.Registry) ([]Result, error) {
	g, gctx := errgroup.WithContext(ctx)

	results := make([]Result, len(names))
	var mu sync.Mutex // guards results; each goroutine writes a disjoint index, but race detectors want an explicit happens-before

	for i, name := range names {
		i, name := i, name
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}

			res := transformOne(tc, name, reg)

			mu.Lock()
			results[i] = res
			mu.Unlock()

			if res.Err != nil {
				obslog.L().Errorw("class transformation failed", "class", name, "err", res.Err)
				return res.Err
			}
			if sink != nil {
				if err := sink.Put(res.InternalName, res.ClassBytes); err != nil {
					return fmt.Errorf("batch: writing %s: %w", name, err)
				}
			}
			return nil
		})
	}

	err := g.Wait()
	return results, err
}

func transformOne(tc *cmcontext.TransformationContext, name string, reg *metrics.Registry) Result {
	info, err := tc.GetSubmissionClassInfo(name)
	if err != nil {
		if reg != nil {
			reg.ObserveTransform(0, err)
		}
		return Result{InternalName: name, Err: err}
	}
	if info == nil {
		err := fmt.Errorf("batch: %s is not a submission class under the configured project prefix", name)
		if reg != nil {
			reg.ObserveTransform(0, err)
		}
		return Result{InternalName: name, Err: err}
	}

	ct := transform.NewClassTransformer(tc, info)
	merged, err := ct.Transform()
	if reg != nil {
		reg.ObserveTransform(ct.MismatchCount, err)
	}
	if err != nil {
		return Result{InternalName: name, MismatchCount: ct.MismatchCount, Err: err}
	}

	out, err := cmclassfile.Write(merged)
	if err != nil {
		return Result{InternalName: name, MismatchCount: ct.MismatchCount, Err: fmt.Errorf("batch: emitting %s: %w", name, err)}
	}

	return Result{InternalName: name, ClassBytes: out, MismatchCount: ct.MismatchCount}
}
