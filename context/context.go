/*
 * classmerge - a JVM class-merging grading harness transformer
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

// Package context holds the process-wide transformation registry (spec
// §4.6, C6): configured reference classes, per-class analyses, and the
// method-call replacement table, threaded through the class and method
// transformers. Each cache is its own sync.RWMutex-guarded map, mirroring
// the teacher's classloader.ClassesLock pattern rather than a generic
// sync.Map, so each concern's lock can be taken independently.
package context

import (
	"strings"
	"sync"

	"github.com/tudalgo/classmerge/classfile"
	"github.com/tudalgo/classmerge/header"
	"github.com/tudalgo/classmerge/internal/obslog"
	"github.com/tudalgo/classmerge/refclass"
	"github.com/tudalgo/classmerge/similarity"
	"github.com/tudalgo/classmerge/submission"
)

// ClassSource supplies submission class-file bytes by internal name, the
// one piece of I/O TransformationContext cannot do itself -- it has no
// opinion on filesystem layout (spec §1, discovery/filesystem layout are
// external collaborators).
type ClassSource interface {
	ReadSubmissionClass(internalName string) (*classfile.ClassFile, error)
}

// TransformationContext is C6: the registry C7/C8 consult on every class
// and member they visit.
type TransformationContext struct {
	config *Configuration
	source ClassSource
	loader refclass.Loader

	refMu      sync.RWMutex
	references map[string]*refclass.ReferenceClass

	submissionMu sync.RWMutex
	submissions  map[string]*submission.SubmissionClassInfo

	bindingMu sync.RWMutex
	bindings  map[string]string // submission internal name -> bound reference internal name

	replMu           sync.RWMutex
	methodReplacements map[header.Key]MethodReplacement

	submissionNames *submissionFilter
}

// New constructs a TransformationContext, loading every configured
// reference class up front (spec §4.4) and pre-computing the class-level
// fuzzy binding between enumerated submission names and reference names
// (spec §4.6: "computed once at the registry level").
func New(config *Configuration, source ClassSource, loader refclass.Loader, enumeratedSubmissionNames []string) (*TransformationContext, error) {
	tc := &TransformationContext{
		config:             config,
		source:             source,
		loader:             loader,
		references:         map[string]*refclass.ReferenceClass{},
		submissions:        map[string]*submission.SubmissionClassInfo{},
		bindings:           map[string]string{},
		methodReplacements: map[header.Key]MethodReplacement{},
		submissionNames:    newSubmissionFilter(enumeratedSubmissionNames),
	}

	for _, spec := range config.References {
		cf, err := loader.Load(spec.InternalName)
		if err != nil {
			return nil, configErrf("loading reference class %s: %v", spec.InternalName, err)
		}
		tc.references[spec.InternalName] = refclass.FromClassFile(cf)
	}

	allReplacements := append(append([]MethodReplacement{}, config.MethodReplacements...), stdlibMethodReplacements(config)...)
	for _, repl := range allReplacements {
		if repl.Replacement.Access&classfile.AccStatic == 0 {
			return nil, configErrf("method replacement target %s.%s%s must be static",
				repl.Target.Owner, repl.Target.Name, repl.Target.Descriptor)
		}
		key := repl.Target.Key()
		if _, exists := tc.methodReplacements[key]; exists {
			return nil, configErrf("duplicate method replacement registered for %s.%s%s",
				repl.Target.Owner, repl.Target.Name, repl.Target.Descriptor)
		}
		tc.methodReplacements[key] = repl
	}

	if err := tc.bindClasses(enumeratedSubmissionNames); err != nil {
		return nil, err
	}

	obslog.L().Infow("transformation context ready",
		"references", len(tc.references), "submissions", len(enumeratedSubmissionNames))
	return tc, nil
}

// bindClasses computes the class-level fuzzy binding once (spec §4.6): each
// enumerated submission name is bound to at most one reference name, using
// the full alias-aware Item set and the configured threshold, with
// collision resolution via similarity.Match (spec §3 invariant 3).
func (tc *TransformationContext) bindClasses(submissionNames []string) error {
	var columns []similarity.Item
	for _, spec := range tc.config.References {
		columns = append(columns, similarity.Item{Name: spec.InternalName, Aliases: spec.Aliases})
	}
	matches := similarity.Match(submissionNames, columns, tc.config.SimilarityThreshold)

	tc.bindingMu.Lock()
	defer tc.bindingMu.Unlock()
	for _, name := range submissionNames {
		if m, ok := matches[name]; ok {
			tc.bindings[name] = m.Column
		}
	}
	return nil
}

// BindForced pins a submission class to an explicit reference name,
// bypassing the fuzzy mapper (spec §4.3 "a pinned mapping bypasses the
// similarity mapper entirely"). A collision with any other submission
// already bound to the same reference, pinned or fuzzily bound, is a fatal
// ConfigError.
func (tc *TransformationContext) BindForced(submissionName, referenceName string) error {
	tc.bindingMu.Lock()
	defer tc.bindingMu.Unlock()
	for existingSubmission, existingRef := range tc.bindings {
		if existingRef == referenceName && existingSubmission != submissionName {
			return configErrf("forced mapping collision: both %s and %s pin to reference %s", submissionName, existingSubmission, referenceName)
		}
	}
	tc.bindings[submissionName] = referenceName
	return nil
}

// GetSolutionClassName returns the computed reference name bound to
// studentName, or "" if none is bound.
func (tc *TransformationContext) GetSolutionClassName(studentName string) string {
	tc.bindingMu.RLock()
	defer tc.bindingMu.RUnlock()
	return tc.bindings[studentName]
}

// GetReferenceClass returns the parsed reference node for name, or nil.
func (tc *TransformationContext) GetReferenceClass(name string) *refclass.ReferenceClass {
	tc.refMu.RLock()
	defer tc.refMu.RUnlock()
	return tc.references[name]
}

// IsSubmissionClass reports whether internalName falls within the
// configured project prefix, using the bloom pre-filter before falling
// back to the authoritative enumerated set (spec §4.6).
func (tc *TransformationContext) IsSubmissionClass(internalName string) bool {
	if tc.config.ProjectPrefix != "" && !strings.HasPrefix(internalName, tc.config.ProjectPrefix) {
		return false
	}
	return tc.submissionNames.contains(internalName)
}

// GetSubmissionClassInfo returns the cached analysis for name, lazily
// constructing (Scan + Resolve) it on first access for any name within the
// configured project prefix (spec §4.6, §4.5, §9 "scan is non-recursive;
// resolve drives recursion against already-scanned neighbors").
func (tc *TransformationContext) GetSubmissionClassInfo(name string) (*submission.SubmissionClassInfo, error) {
	tc.submissionMu.RLock()
	if info, ok := tc.submissions[name]; ok {
		tc.submissionMu.RUnlock()
		return info, nil
	}
	tc.submissionMu.RUnlock()

	if !tc.IsSubmissionClass(name) {
		return nil, nil
	}

	cf, err := tc.source.ReadSubmissionClass(name)
	if err != nil {
		return nil, err
	}

	info, err := submission.Scan(cf)
	if err != nil {
		return nil, err
	}

	// Publish before Resolve so a cyclic supertype walk that re-enters this
	// class sees the scanned-but-not-yet-resolved entry instead of
	// recursing forever (spec §9's scan/resolve split).
	tc.submissionMu.Lock()
	if existing, ok := tc.submissions[name]; ok {
		tc.submissionMu.Unlock()
		return existing, nil
	}
	tc.submissions[name] = info
	tc.submissionMu.Unlock()

	resolveErr := info.Resolve(submission.ResolveInput{
		Reference:           tc.GetReferenceClass(tc.GetSolutionClassName(name)),
		SimilarityThreshold: tc.config.SimilarityThreshold,
		Supertypes:          tc,
	})
	if resolveErr != nil {
		return nil, resolveErr
	}
	return info, nil
}

// SubmissionInfo implements submission.SupertypeResolver.
func (tc *TransformationContext) SubmissionInfo(internalName string) (*submission.SubmissionClassInfo, error) {
	return tc.GetSubmissionClassInfo(internalName)
}

// ExternalHeader implements submission.SupertypeResolver: a best-effort
// header for a supertype outside the submission universe. The core
// transformer has no live JVM classpath to consult, so any name outside the
// configured reference set is treated as resolvable-but-opaque (it is a
// platform or library class whose members are never merged); only a name
// that looks like a submission class but cannot be read is unresolved.
func (tc *TransformationContext) ExternalHeader(internalName string) (header.ClassHeader, bool) {
	if ref := tc.GetReferenceClass(internalName); ref != nil {
		sig, _ := classfile.SignatureOf(ref.File.Attributes, &ref.File.CP)
		return header.ClassHeader{
			Access: ref.File.AccessFlags, Name: ref.File.ThisClass, Signature: sig,
			SuperName: ref.File.SuperClass, Interfaces: append([]string{}, ref.File.Interfaces...),
		}, true
	}
	return header.ClassHeader{Name: internalName}, true
}

// MethodHasReplacement reports whether h has a registered static trampoline
// (spec §4.6).
func (tc *TransformationContext) MethodHasReplacement(h header.MethodHeader) bool {
	tc.replMu.RLock()
	defer tc.replMu.RUnlock()
	_, ok := tc.methodReplacements[h.Key()]
	return ok
}

// GetMethodReplacement returns the registered replacement for h.
func (tc *TransformationContext) GetMethodReplacement(h header.MethodHeader) (MethodReplacement, bool) {
	tc.replMu.RLock()
	defer tc.replMu.RUnlock()
	r, ok := tc.methodReplacements[h.Key()]
	return r, ok
}

// Configuration returns the context's immutable configuration.
func (tc *TransformationContext) Configuration() *Configuration { return tc.config }
