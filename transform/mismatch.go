/*
 * classmerge - a JVM class-merging grading harness transformer
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package transform

import (
	"github.com/tudalgo/classmerge/classfile"
	"github.com/tudalgo/classmerge/context"
	"github.com/tudalgo/classmerge/submission"
)

// fieldMismatch reports whether a bound field's declared shape disagrees
// with its computed target beyond what name translation bridges: either
// static-ness flipped, or the (translated) descriptor differs (spec §4.7.2
// "declared and computed disagree in static-ness, or... descriptor"). Such a
// field is emitted twice: once under the computed name/type, once under a
// "$submission" suffix holding the student's own declaration.
func fieldMismatch(tc *context.TransformationContext, b submission.FieldBinding) bool {
	if b.Original.Name == b.Computed.Name && b.Original.Owner == b.Computed.Owner {
		return false // identity binding, nothing to reconcile
	}
	if (b.Original.Access&classfile.AccStatic == 0) != (b.Computed.Access&classfile.AccStatic == 0) {
		return true
	}
	return tc.ToComputedDescriptor(b.Original.Descriptor) != b.Computed.Descriptor
}

// methodMismatch is fieldMismatch's method-side counterpart (spec §4.7.3):
// static-ness flip, or the translated descriptor disagrees with the bound
// reference method's. Constructors are compared by descriptor only, since a
// constructor's "static-ness" is meaningless.
func methodMismatch(tc *context.TransformationContext, b submission.MethodBinding) bool {
	if b.Original.Name == b.Computed.Name && b.Original.Owner == b.Computed.Owner &&
		b.Original.Descriptor == b.Computed.Descriptor {
		return false
	}
	if !b.Original.IsConstructor() &&
		(b.Original.Access&classfile.AccStatic == 0) != (b.Computed.Access&classfile.AccStatic == 0) {
		return true
	}
	return tc.ToComputedDescriptor(b.Original.Descriptor) != b.Computed.Descriptor
}

// submissionSuffix is the name decoration a mismatched member keeps its
// original declaration reachable under (spec §4.7.2/§4.7.3 "kept callable,
// under a `$submission` suffix, for anything -- reflection, the grading
// harness itself -- that still needs the student's own declared shape").
const submissionSuffix = "$submission"
