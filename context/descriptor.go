/*
 * classmerge - a JVM class-merging grading harness transformer
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package context

import "github.com/tudalgo/classmerge/classfile"

// ToComputedInternalName translates a submission-class internal name to its
// computed (reference-aligned) counterpart, preserving array dimensions
// (spec §4.6, §4.8 "array-typed owners propagate the dimension prefix").
// Non-submission names pass through unchanged.
func (tc *TransformationContext) ToComputedInternalName(internalName string) string {
	dims := 0
	for dims < len(internalName) && internalName[dims] == '[' {
		dims++
	}
	if dims > 0 {
		// Array-typed operands (anewarray/checkcast/instanceof on an array
		// type, or a field-array-type Class-entry name) carry their element
		// type in field-descriptor form ("Lfoo/Bar;" or a primitive char),
		// not as a bare internal name -- delegate to the descriptor
		// translator, which already knows how to peel that shape apart
		// (spec §4.8 "array-typed owners propagate the dimension prefix").
		return tc.translateFieldDescriptor(internalName)
	}
	base := internalName
	if tc.IsSubmissionClass(base) {
		if computed := tc.GetSolutionClassName(base); computed != "" {
			base = computed
		}
	}
	return base
}

// ToComputedDescriptor translates a field or method descriptor, replacing
// any submission-class reference with its computed counterpart. Primitive
// sorts and array dimension prefixes pass through unchanged (spec §4.6).
func (tc *TransformationContext) ToComputedDescriptor(descriptor string) string {
	if len(descriptor) > 0 && descriptor[0] == '(' {
		params, ret := classfile.ParamDescriptors(descriptor)
		out := make([]string, len(params))
		for i, p := range params {
			out[i] = tc.translateFieldDescriptor(p)
		}
		return classfile.BuildMethodDescriptor(out, tc.translateFieldDescriptor(ret))
	}
	return tc.translateFieldDescriptor(descriptor)
}

func (tc *TransformationContext) translateFieldDescriptor(desc string) string {
	dims, elem := classfile.ArrayDimensions(desc)
	prefix := desc[:dims]
	internal := classfile.ObjectInternalName(elem)
	if internal == "" {
		return prefix + elem // primitive or void, unchanged
	}
	if tc.IsSubmissionClass(internal) {
		if computed := tc.GetSolutionClassName(internal); computed != "" {
			internal = computed
		}
	}
	return prefix + classfile.ObjectDescriptor(internal)
}
