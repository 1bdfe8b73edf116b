/*
 * classmerge - a JVM class-merging grading harness transformer
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

// Package submission analyzes one student class-file (spec §4.5, §3): a
// two-phase scan-then-resolve pass producing a SubmissionClassInfo whose
// field/method maps translate every original header to its computed
// (reference-aligned, or identity) counterpart.
package submission

import (
	"fmt"
	"sort"

	"github.com/tudalgo/classmerge/classfile"
	"github.com/tudalgo/classmerge/forcedsig"
	"github.com/tudalgo/classmerge/header"
	"github.com/tudalgo/classmerge/refclass"
	"github.com/tudalgo/classmerge/similarity"
)

// FieldBinding pairs an original field header with its computed target.
type FieldBinding struct{ Original, Computed header.FieldHeader }

// MethodBinding pairs an original method header with its computed target.
type MethodBinding struct{ Original, Computed header.MethodHeader }

// SubmissionClassInfo is the per-student-class analysis (spec §3). After
// Resolve runs once, the object is read-only -- callers must not mutate its
// maps directly ("Lifecycle... After resolveMembers, the object is
// read-only").
type SubmissionClassInfo struct {
	File *classfile.ClassFile

	OriginalHeader header.ClassHeader
	ComputedHeader header.ClassHeader

	Fields                 map[header.Key]FieldBinding
	Methods                map[header.Key]MethodBinding
	SuperClassConstructors map[header.Key]MethodBinding

	resolved bool
}

// UnresolvedTypeError is spec §7's fatal-for-the-class error kind: a
// supertype needed for analysis could not be located.
type UnresolvedTypeError struct {
	ClassName      string
	SupertypeName  string
}

func (e *UnresolvedTypeError) Error() string {
	return fmt.Sprintf("submission: class %s: supertype %s could not be resolved", e.ClassName, e.SupertypeName)
}

// Scan is phase 1 (spec §4.5): record the original header, and add every
// declared field and method to the maps with an identity computed target,
// which Resolve overwrites where a binding applies. Synthetic lambda helpers
// and <clinit> keep that identity target and never participate in fuzzy
// matching.
func Scan(cf *classfile.ClassFile) (*SubmissionClassInfo, error) {
	sig, err := classfile.SignatureOf(cf.Attributes, &cf.CP)
	if err != nil {
		return nil, err
	}
	oh := header.ClassHeader{
		Access: cf.AccessFlags, Name: cf.ThisClass, Signature: sig,
		SuperName: cf.SuperClass, Interfaces: append([]string{}, cf.Interfaces...),
	}
	info := &SubmissionClassInfo{
		File:                   cf,
		OriginalHeader:         oh,
		ComputedHeader:         oh, // identity until Resolve rebinds it
		Fields:                 map[header.Key]FieldBinding{},
		Methods:                map[header.Key]MethodBinding{},
		SuperClassConstructors: map[header.Key]MethodBinding{},
	}

	for _, f := range cf.Fields {
		fsig, err := classfile.SignatureOf(f.Attributes, &cf.CP)
		if err != nil {
			return nil, err
		}
		fh := header.FieldHeader{Owner: cf.ThisClass, Access: f.AccessFlags, Name: f.Name, Descriptor: f.Descriptor, Signature: fsig}
		info.Fields[fh.Key()] = FieldBinding{Original: fh, Computed: fh}
	}

	for _, m := range cf.Methods {
		msig, err := classfile.SignatureOf(m.Attributes, &cf.CP)
		if err != nil {
			return nil, err
		}
		mh := header.MethodHeader{
			Owner: cf.ThisClass, Access: m.AccessFlags, Name: m.Name, Descriptor: m.Descriptor,
			Signature: msig, Exceptions: append([]string{}, m.Exceptions...),
		}
		computed := mh // identity; lambda helpers are never fuzzy-matched (spec §4.5)
		info.Methods[mh.Key()] = MethodBinding{Original: mh, Computed: computed}
	}

	return info, nil
}

// ForcedMapping is one pinned (identifier[, descriptor]) override collected
// from a class/field/method's forced-signature annotation (spec §4.3).
type ForcedMapping struct {
	forcedsig.Forced
}

// ResolveInput bundles everything Resolve needs beyond the scanned info:
// the bound reference (nil if none), pinned mappings by original key, the
// fuzzy threshold, and a resolver for walking the supertype chain.
type ResolveInput struct {
	Reference           *refclass.ReferenceClass
	ForcedFields        map[string]ForcedMapping // keyed by original field name
	ForcedMethods       map[header.Key]ForcedMapping
	SimilarityThreshold float64
	Supertypes          SupertypeResolver
}

// SupertypeResolver lets Resolve walk a submission's supertype chain without
// importing the context package (which in turn depends on submission),
// avoiding an import cycle. IsSubmission reports whether name is within the
// configured project prefix; SubmissionInfo returns that class's (already
// resolved) analysis; ExternalHeader returns a best-effort header for a
// supertype outside the submission universe (e.g. a JDK class), or
// ok=false if it cannot be located at all -- the latter is what promotes to
// UnresolvedTypeError.
type SupertypeResolver interface {
	IsSubmission(internalName string) bool
	SubmissionInfo(internalName string) (*SubmissionClassInfo, error)
	ExternalHeader(internalName string) (header.ClassHeader, bool)
}

// Resolve is phase 2 (spec §4.5, run strictly once per instance): bind
// fields/methods via pinned mapping, then similarity against the reference's
// declared members, then identity fallback; then merge in supertype members.
func (info *SubmissionClassInfo) Resolve(in ResolveInput) error {
	if info.resolved {
		return fmt.Errorf("submission: Resolve called twice for %s", info.OriginalHeader.Name)
	}

	if in.Reference != nil {
		rh := in.Reference.File
		rsig, _ := classfile.SignatureOf(rh.Attributes, &rh.CP)
		info.ComputedHeader = header.ClassHeader{
			Access: rh.AccessFlags, Name: rh.ThisClass, Signature: rsig,
			SuperName: rh.SuperClass, Interfaces: append([]string{}, rh.Interfaces...),
		}
	}

	if err := info.resolveFields(in); err != nil {
		return err
	}
	if err := info.resolveMethods(in); err != nil {
		return err
	}
	if err := info.mergeSupertypes(in); err != nil {
		return err
	}

	info.resolved = true
	return nil
}

func (info *SubmissionClassInfo) resolveFields(in ResolveInput) error {
	var rowNames []string
	for _, b := range info.Fields {
		rowNames = append(rowNames, b.Original.Name)
	}

	var columns []similarity.Item
	if in.Reference != nil {
		for _, n := range in.Reference.FieldNames() {
			columns = append(columns, similarity.Item{Name: n})
		}
	}
	matches := similarity.Match(rowNames, columns, in.SimilarityThreshold)

	for k, b := range info.Fields {
		computed := b.Original
		if forced, ok := in.ForcedFields[b.Original.Name]; ok {
			computed.Name = forced.Identifier
		} else if m, ok := matches[b.Original.Name]; ok && in.Reference != nil {
			if rf, ok := in.Reference.Field(m.Column); ok {
				computed = header.FieldHeader{Owner: in.Reference.File.ThisClass, Access: rf.AccessFlags, Name: rf.Name, Descriptor: rf.Descriptor}
			}
		}
		info.Fields[k] = FieldBinding{Original: b.Original, Computed: computed}
	}
	return nil
}

func (info *SubmissionClassInfo) resolveMethods(in ResolveInput) error {
	var rowNames []string
	for _, b := range info.Methods {
		if b.Original.Name == "<clinit>" || isLambdaHelperName(b.Original) {
			continue // never fuzzy-matched; always identity
		}
		rowNames = append(rowNames, b.Original.Name)
	}

	var columns []similarity.Item
	if in.Reference != nil {
		seen := map[string]bool{}
		for _, mk := range in.Reference.MethodKeys() {
			if !seen[mk.Name] {
				columns = append(columns, similarity.Item{Name: mk.Name})
				seen[mk.Name] = true
			}
		}
	}
	matches := similarity.Match(rowNames, columns, in.SimilarityThreshold)

	// Candidate rows are walked in a fixed (name, descriptor) order, not Go's
	// randomized map order, so the overload-claim arbitration below picks the
	// same winner on every run (spec §5).
	var keys []header.Key
	for k, b := range info.Methods {
		if b.Original.Name == "<clinit>" || isLambdaHelperName(b.Original) {
			continue // identity already set by Scan
		}
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Name != keys[j].Name {
			return keys[i].Name < keys[j].Name
		}
		return keys[i].Descriptor < keys[j].Descriptor
	})

	// claimedBy enforces spec §3 invariant 3 / §8 property 4: the computed
	// map's inverse must be injective, so a reference method may be claimed
	// by at most one submission method. Pinned (forced) mappings claim first,
	// with an unbeatable diff of -1, so a fuzzy match can never displace one;
	// among competing fuzzy matches for the same reference overload, the
	// closer arity match keeps the claim and the loser falls back to identity.
	type claim struct {
		key  header.Key
		diff int
	}
	claimedBy := map[header.Key]claim{}

	for _, k := range keys {
		b := info.Methods[k]
		if forced, ok := in.ForcedMethods[k]; ok {
			computed := b.Original
			computed.Name = forced.Identifier
			if d := forced.EffectiveDescriptor(); d != "" {
				computed.Descriptor = d
			}
			info.Methods[k] = MethodBinding{Original: b.Original, Computed: computed}
			claimedBy[computed.Key()] = claim{key: k, diff: -1}
			continue
		}
		info.Methods[k] = MethodBinding{Original: b.Original, Computed: b.Original}
	}

	for _, k := range keys {
		if _, ok := in.ForcedMethods[k]; ok {
			continue // resolved above
		}
		b := info.Methods[k]
		m, ok := matches[b.Original.Name]
		if !ok || in.Reference == nil {
			continue // identity already set above
		}
		rm, diff, ok := findReferenceMethodByName(in.Reference, m.Column, b.Original.Descriptor)
		if b.Original.IsConstructor() {
			rm, ok = in.Reference.Method("<init>", b.Original.Descriptor)
			diff = 0
		}
		if !ok {
			continue
		}
		computed := header.MethodHeader{
			Owner: in.Reference.File.ThisClass, Access: rm.AccessFlags, Name: rm.Name,
			Descriptor: rm.Descriptor, Exceptions: append([]string{}, rm.Exceptions...),
		}
		target := computed.Key()

		if existing, claimed := claimedBy[target]; claimed {
			if diff >= existing.diff {
				continue // existing claimant is at least as good a match; this one stays identity
			}
			prev := info.Methods[existing.key]
			info.Methods[existing.key] = MethodBinding{Original: prev.Original, Computed: prev.Original}
		}
		claimedBy[target] = claim{key: k, diff: diff}
		info.Methods[k] = MethodBinding{Original: b.Original, Computed: computed}
	}

	return nil
}

func isLambdaHelperName(h header.MethodHeader) bool {
	return h.Access&classfile.AccSynthetic != 0 && len(h.Name) > len(classfile.LambdaHelperPrefix) &&
		h.Name[:len(classfile.LambdaHelperPrefix)] == classfile.LambdaHelperPrefix
}

// findReferenceMethodByName picks, among the reference's overloads sharing
// name, the one whose descriptor best matches origDesc's parameter count,
// since similarity.Match only binds on name. The returned diff (arity
// distance from origDesc) lets the caller arbitrate when two distinct
// submission overloads would otherwise claim the same reference overload
// (spec §3 invariant 3). resolveMethods binds constructors by exact
// descriptor equality instead; this helper's choice is used for ordinary
// methods only.
func findReferenceMethodByName(ref *refclass.ReferenceClass, name, origDesc string) (*classfile.MethodInfo, int, bool) {
	origParams, _ := classfile.ParamDescriptors(origDesc)
	var best *classfile.MethodInfo
	bestDiff := -1
	for _, mk := range ref.MethodKeys() {
		if mk.Name != name {
			continue
		}
		m, _ := ref.Method(mk.Name, mk.Descriptor)
		params, _ := classfile.ParamDescriptors(mk.Descriptor)
		diff := abs(len(params) - len(origParams))
		if bestDiff == -1 || diff < bestDiff {
			bestDiff = diff
			best = m
		}
	}
	return best, bestDiff, best != nil
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
