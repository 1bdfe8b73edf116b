/*
 * classmerge - a JVM class-merging grading harness transformer
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package transform

import (
	"github.com/tudalgo/classmerge/classfile"
	"github.com/tudalgo/classmerge/context"
	"github.com/tudalgo/classmerge/header"
	"github.com/tudalgo/classmerge/submission"
)

// retargeter rewrites one method body's field/method/type references so they
// point at computed names instead of original submission names (spec §4.8
// "Body rewriting"). A retargeter is built once per submission class under
// transform and reused across every method and the static initializer.
type retargeter struct {
	tc *context.TransformationContext

	// selfOriginal/selfComputed are the class currently being transformed,
	// used to detect self-references (a method calling a sibling method on
	// `this`) and to pick the owner a "$submission"-suffixed sibling lives
	// under (always the merged class itself, never the reference).
	selfOriginal string
	selfComputed string
	self         *submission.SubmissionClassInfo
}

func newRetargeter(tc *context.TransformationContext, self *submission.SubmissionClassInfo) *retargeter {
	return &retargeter{
		tc:           tc,
		selfOriginal: self.OriginalHeader.Name,
		selfComputed: self.ComputedHeader.Name,
		self:         self,
	}
}

// Rewrite retargets every instruction of insns into a new slice, leaving
// insns itself untouched (the originals, a Clone()'d CodeAttribute's Instructions, are never
// mutated in case the same reference body is replayed into more than one
// merged class).
func (r *retargeter) Rewrite(insns []classfile.Instruction) []classfile.Instruction {
	out := make([]classfile.Instruction, len(insns))
	for i, insn := range insns {
		out[i] = r.rewriteOne(insn)
	}
	return out
}

func (r *retargeter) rewriteOne(insn classfile.Instruction) classfile.Instruction {
	switch v := insn.(type) {
	case classfile.FieldInstruction:
		return r.rewriteField(v)
	case classfile.MethodInstruction:
		return r.rewriteMethod(v)
	case classfile.TypeInstruction:
		return classfile.TypeInstruction{Opcode: v.Opcode, Type: r.tc.ToComputedInternalName(v.Type)}
	case classfile.LdcInstruction:
		if v.IsClass {
			return classfile.LdcInstruction{Value: v.Value, IsClass: true, ClassRef: r.tc.ToComputedInternalName(v.ClassRef)}
		}
		return v
	case classfile.FrameInstruction:
		return r.rewriteFrame(v)
	default:
		return insn
	}
}

func (r *retargeter) rewriteFrame(f classfile.FrameInstruction) classfile.FrameInstruction {
	return classfile.FrameInstruction{
		Kind:   f.Kind,
		Locals: r.rewriteVerificationTypes(f.Locals),
		Stack:  r.rewriteVerificationTypes(f.Stack),
		Chop:   f.Chop,
	}
}

func (r *retargeter) rewriteVerificationTypes(in []classfile.VerificationType) []classfile.VerificationType {
	if in == nil {
		return nil
	}
	out := make([]classfile.VerificationType, len(in))
	for i, vt := range in {
		if vt.Tag == classfile.VTObject {
			vt.ObjectClass = r.tc.ToComputedInternalName(vt.ObjectClass)
		}
		out[i] = vt
	}
	return out
}

func (r *retargeter) rewriteField(v classfile.FieldInstruction) classfile.Instruction {
	binding, ok := r.lookupField(v.Owner, v.Name)
	if !ok {
		return classfile.FieldInstruction{
			Opcode: v.Opcode, Owner: r.tc.ToComputedInternalName(v.Owner),
			Name: v.Name, Descriptor: r.tc.ToComputedDescriptor(v.Descriptor),
		}
	}

	if v.Owner == r.selfOriginal && fieldMismatch(r.tc, binding) {
		// Self-reference to a field whose shape the class transformer had to
		// fork: the student body keeps calling its own declared field, now
		// living under the suffixed name in the merged class (spec §4.8 "a
		// field reference... retargeted to the $submission-suffixed field
		// instead, when the computed field's static-ness or descriptor
		// disagrees with the original").
		return classfile.FieldInstruction{
			Opcode: v.Opcode, Owner: r.selfComputed,
			Name: binding.Original.Name + submissionSuffix,
			Descriptor: r.tc.ToComputedDescriptor(binding.Original.Descriptor),
		}
	}
	return classfile.FieldInstruction{
		Opcode: v.Opcode, Owner: r.tc.ToComputedInternalName(binding.Computed.Owner),
		Name: binding.Computed.Name, Descriptor: binding.Computed.Descriptor,
	}
}

func (r *retargeter) rewriteMethod(v classfile.MethodInstruction) classfile.Instruction {
	orig := header.MethodHeader{Owner: v.Owner, Name: v.Name, Descriptor: v.Descriptor}
	if repl, ok := r.tc.GetMethodReplacement(orig); ok {
		// Stack shape is preserved: a virtual/interface/special call already
		// pushed the receiver ahead of its arguments, in exactly the slot a
		// static trampoline's leading receiver parameter expects (spec §4.6
		// "method-call replacement... one extra leading parameter receiving
		// the receiver when the target is virtual"). A call that was already
		// static has no receiver to carry across, and its replacement target
		// is required to be static with a matching (no extra leading
		// parameter) signature -- context.New rejects non-static targets at
		// configuration time.
		return classfile.MethodInstruction{
			Opcode: classfile.OpInvokeStatic, Owner: repl.Replacement.Owner,
			Name: repl.Replacement.Name, Descriptor: repl.Replacement.Descriptor,
		}
	}

	binding, ok := r.lookupMethod(v.Owner, v.Name, v.Descriptor)
	if !ok {
		return classfile.MethodInstruction{
			Opcode: v.Opcode, Owner: r.tc.ToComputedInternalName(v.Owner),
			Name: v.Name, Descriptor: r.tc.ToComputedDescriptor(v.Descriptor), IsInterface: v.IsInterface,
		}
	}

	if v.Owner == r.selfOriginal && methodMismatch(r.tc, binding) {
		return classfile.MethodInstruction{
			Opcode: v.Opcode, Owner: r.selfComputed,
			Name: binding.Original.Name + submissionSuffix,
			Descriptor: r.tc.ToComputedDescriptor(binding.Original.Descriptor), IsInterface: v.IsInterface,
		}
	}
	return classfile.MethodInstruction{
		Opcode: v.Opcode, Owner: r.tc.ToComputedInternalName(binding.Computed.Owner),
		Name: binding.Computed.Name, Descriptor: binding.Computed.Descriptor, IsInterface: v.IsInterface,
	}
}

func (r *retargeter) lookupField(owner, name string) (submission.FieldBinding, bool) {
	info := r.infoFor(owner)
	if info == nil {
		return submission.FieldBinding{}, false
	}
	b, ok := info.Fields[header.Key{Owner: owner, Name: name}]
	return b, ok
}

func (r *retargeter) lookupMethod(owner, name, descriptor string) (submission.MethodBinding, bool) {
	info := r.infoFor(owner)
	if info == nil {
		return submission.MethodBinding{}, false
	}
	b, ok := info.Methods[header.Key{Owner: owner, Name: name, Descriptor: descriptor}]
	return b, ok
}

func (r *retargeter) infoFor(owner string) *submission.SubmissionClassInfo {
	if owner == r.selfOriginal {
		return r.self
	}
	if !r.tc.IsSubmissionClass(owner) {
		return nil
	}
	info, err := r.tc.GetSubmissionClassInfo(owner)
	if err != nil || info == nil {
		return nil
	}
	return info
}
