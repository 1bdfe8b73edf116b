/*
 * classmerge - a JVM class-merging grading harness transformer
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package submission

import (
	"github.com/tudalgo/classmerge/classfile"
	"github.com/tudalgo/classmerge/header"
)

// mergeSupertypes walks info's supertype chain up to (but not including)
// java/lang/Object, collecting inherited fields/methods that are not
// shadowed by a member already declared directly on info (spec §4.5:
// supertype members are merged in under putIfAbsent semantics, excluding
// private members, which are never inherited). Only the direct superclass's
// constructors are collected, separately, into SuperClassConstructors for
// the method transformer's chain-matching pass (spec §4.8). Mirrors jvm/initializerBlock.go's
// superclass-walk, which stops at java/lang/Object the same way.
func (info *SubmissionClassInfo) mergeSupertypes(in ResolveInput) error {
	if in.Supertypes == nil {
		return nil
	}

	super := info.OriginalHeader.SuperName
	for super != "" && super != "java/lang/Object" {
		if in.Supertypes.IsSubmission(super) {
			superInfo, err := in.Supertypes.SubmissionInfo(super)
			if err != nil {
				return &UnresolvedTypeError{ClassName: info.OriginalHeader.Name, SupertypeName: super}
			}
			info.absorb(superInfo.Fields, superInfo.Methods)
			super = superInfo.OriginalHeader.SuperName
			continue
		}

		sh, ok := in.Supertypes.ExternalHeader(super)
		if !ok {
			return &UnresolvedTypeError{ClassName: info.OriginalHeader.Name, SupertypeName: super}
		}
		// external (non-submission) supertypes contribute no member bindings
		// of their own -- their members are resolved against the live JVM
		// classpath at run time, not against this transformation's maps.
		super = sh.SuperName
	}
	return nil
}

// absorb adds every non-private field/method from a supertype's already
// resolved maps that is not shadowed by a member info already declares
// directly. Shadowing is checked on (name[, descriptor]) identity, not the
// map key, since info.Fields/Methods key on the declaring owner and an
// inherited member's owner (the supertype) never equals info's own owner --
// a bare Key lookup would never find the shadowing declaration (putIfAbsent
// semantics, spec §4.5).
func (info *SubmissionClassInfo) absorb(fields map[header.Key]FieldBinding, methods map[header.Key]MethodBinding) {
	for _, fb := range fields {
		if fb.Original.Access&classfile.AccPrivate != 0 {
			continue
		}
		if info.hasOwnField(fb.Original.Name) {
			continue
		}
		info.Fields[fb.Original.Key()] = fb
	}
	for _, mb := range methods {
		if mb.Original.Access&classfile.AccPrivate != 0 {
			continue
		}
		if mb.Original.IsConstructor() {
			// only the direct superclass's own constructors are chain targets
			if mb.Original.Owner == info.OriginalHeader.SuperName {
				info.SuperClassConstructors[mb.Original.Key()] = mb
			}
			continue
		}
		if info.hasOwnMethod(mb.Original.Name, mb.Original.Descriptor) {
			continue
		}
		info.Methods[mb.Original.Key()] = mb
	}
}

func (info *SubmissionClassInfo) hasOwnField(name string) bool {
	for _, fb := range info.Fields {
		if fb.Original.Owner == info.OriginalHeader.Name && fb.Original.Name == name {
			return true
		}
	}
	return false
}

func (info *SubmissionClassInfo) hasOwnMethod(name, descriptor string) bool {
	for _, mb := range info.Methods {
		if mb.Original.Owner == info.OriginalHeader.Name && mb.Original.Name == name && mb.Original.Descriptor == descriptor {
			return true
		}
	}
	return false
}
