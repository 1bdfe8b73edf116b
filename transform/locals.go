/*
 * classmerge - a JVM class-merging grading harness transformer
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package transform

import "github.com/tudalgo/classmerge/classfile"

// slotPlan is the local-variable layout of one merged method (spec §4.8
// "Local-slot accounting"): the method's own declared parameters (plus
// `this`), followed immediately by the prologue's synthesized locals in a
// fixed order. Category-2 sorts (long, double) occupy two slots; everything
// else one.
type slotPlan struct {
	owner      string
	isStatic   bool
	paramDescs []string

	thisSlot int // -1 if static
	paramSlots []int
	argSlotsEnd int // first free slot after this+params

	csSlot      int // control-surface handle
	hdrSlot     int // method-header object
	functorSlot int // substitute functor (non-constructor path)
	ctorInvSlot int // ConstructorInvocation record (constructor path only)
	argsArrSlot int // unpacked constructor args array (constructor path only)

	maxLocals int
}

// newSlotPlan lays out slots for a method with the given owner, static-ness,
// parameter descriptors, and whether it is a constructor (which gets the
// ConstructorInvocation/args-array slots instead of the plain functor slot
// alone -- spec §4.8 lists both orders as valid depending on M's kind).
func newSlotPlan(owner string, isStatic bool, paramDescs []string, isConstructor bool) *slotPlan {
	p := &slotPlan{owner: owner, isStatic: isStatic, paramDescs: paramDescs}
	slot := 0
	if !isStatic {
		p.thisSlot = slot
		slot++
	} else {
		p.thisSlot = -1
	}
	for _, d := range paramDescs {
		p.paramSlots = append(p.paramSlots, slot)
		slot += classfile.SlotWidth(classfile.DescriptorSort(d))
	}
	p.argSlotsEnd = slot

	p.csSlot = slot
	slot++
	p.hdrSlot = slot
	slot++
	p.functorSlot = slot
	slot++
	if isConstructor {
		p.ctorInvSlot = slot
		slot++
		p.argsArrSlot = slot
		slot++
	}
	p.maxLocals = slot
	return p
}

// verificationTypeOf builds the StackMapTable verification_type_info entry
// for descriptor d (spec §4.8 "Stack-map frames... translated with the same
// name-substitution so verifier slot types agree"); reference/array sorts
// take their class from d itself, so d is expected already translated to
// computed names.
func verificationTypeOf(d string) classfile.VerificationType {
	s := classfile.DescriptorSort(d)
	switch s {
	case classfile.SortLong:
		return classfile.VerificationType{Tag: classfile.VTLong}
	case classfile.SortDouble:
		return classfile.VerificationType{Tag: classfile.VTDouble}
	case classfile.SortFloat:
		return classfile.VerificationType{Tag: classfile.VTFloat}
	case classfile.SortObject:
		return classfile.VerificationType{Tag: classfile.VTObject, ObjectClass: classfile.ObjectInternalName(d)}
	case classfile.SortArray:
		return classfile.VerificationType{Tag: classfile.VTObject, ObjectClass: d}
	default:
		return classfile.VerificationType{Tag: classfile.VTInteger}
	}
}

// baseLocals returns the verification-type list for `this` (if any) plus
// every declared parameter, in slot order -- the portion of the locals list
// that never changes across the prologue's branch targets.
func (p *slotPlan) baseLocals() []classfile.VerificationType {
	var out []classfile.VerificationType
	if p.thisSlot >= 0 {
		out = append(out, classfile.VerificationType{Tag: classfile.VTObject, ObjectClass: p.owner})
	}
	for _, d := range p.paramDescs {
		out = append(out, verificationTypeOf(d))
	}
	return out
}

// localsWith appends the prologue-synthesized locals that are live at a
// given branch target to baseLocals(). extra is built by the caller from
// csSlot/hdrSlot/functorSlot/ctorInvSlot/argsArrSlot in declaration order,
// since which of those are live depends on how far into the prologue the
// target label sits (spec §4.8 "append frames after each new local is
// introduced").
func (p *slotPlan) localsWith(extra ...classfile.VerificationType) []classfile.VerificationType {
	return append(p.baseLocals(), extra...)
}

func objectVT(internalName string) classfile.VerificationType {
	return classfile.VerificationType{Tag: classfile.VTObject, ObjectClass: internalName}
}
