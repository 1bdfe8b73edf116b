/*
 * classmerge - a JVM class-merging grading harness transformer
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package transform

import "github.com/tudalgo/classmerge/classfile"

// prologueBuilder accumulates the instructions of a synthesized dispatch
// prologue. It implements header.Emitter so header.BuildClassHeader/
// BuildFieldHeader/BuildMethodHeader can push header literals directly into
// the method under construction (spec §4.1 "buildHeader(emitter)").
type prologueBuilder struct {
	insns     []classfile.Instruction
	maxLocals int
}

func newPrologueBuilder(maxLocals int) *prologueBuilder {
	return &prologueBuilder{maxLocals: maxLocals}
}

func (b *prologueBuilder) Emit(insns ...classfile.Instruction) {
	b.insns = append(b.insns, insns...)
}

func (b *prologueBuilder) label(l *classfile.Label) {
	b.Emit(classfile.LabelInstruction{Label: l})
}

func (b *prologueBuilder) jump(opcode byte, target *classfile.Label) {
	b.Emit(classfile.JumpInstruction{Opcode: opcode, Target: target})
}

// frame emits a full-frame StackMapTable directive at the builder's current
// position (spec §4.8 "Stack maps": append/chop/full frames at branch
// targets; a full frame immediately before the student-body label). The
// writer always encodes FrameInstruction as a full_frame entry regardless of
// Kind (classfile/writer.go's writeStackMapTable), so every frame this
// package emits carries the complete live-locals list rather than a
// delta -- Kind is kept for readability at the call site, not because the
// encoder branches on it.
func (b *prologueBuilder) frame(kind classfile.FrameKind, locals []classfile.VerificationType) {
	b.Emit(classfile.FrameInstruction{Kind: kind, Locals: locals})
}

func (b *prologueBuilder) load(slot int, s classfile.Sort) {
	b.Emit(classfile.VarInstruction{Opcode: classfile.LoadOpcodeFor(s), Slot: slot})
}

func (b *prologueBuilder) store(slot int, s classfile.Sort) {
	b.Emit(classfile.VarInstruction{Opcode: classfile.StoreOpcodeFor(s), Slot: slot})
}

func (b *prologueBuilder) aload(slot int) { b.load(slot, classfile.SortObject) }

func (b *prologueBuilder) astore(slot int) { b.store(slot, classfile.SortObject) }

func (b *prologueBuilder) invokeStatic(owner, name, desc string) {
	b.Emit(classfile.MethodInstruction{Opcode: classfile.OpInvokeStatic, Owner: owner, Name: name, Descriptor: desc})
}

func (b *prologueBuilder) invokeVirtual(owner, name, desc string) {
	b.Emit(classfile.MethodInstruction{Opcode: classfile.OpInvokeVirtual, Owner: owner, Name: name, Descriptor: desc})
}

func (b *prologueBuilder) invokeInterface(owner, name, desc string) {
	b.Emit(classfile.MethodInstruction{Opcode: classfile.OpInvokeInterface, Owner: owner, Name: name, Descriptor: desc, IsInterface: true})
}

func (b *prologueBuilder) invokeSpecial(owner, name, desc string) {
	b.Emit(classfile.MethodInstruction{Opcode: classfile.OpInvokeSpecial, Owner: owner, Name: name, Descriptor: desc})
}

func (b *prologueBuilder) newObject(internalName string) {
	b.Emit(classfile.TypeInstruction{Opcode: classfile.OpNew, Type: internalName})
	b.Emit(classfile.RawInstruction{Opcode: classfile.OpDup})
}

func (b *prologueBuilder) pop() { b.Emit(classfile.RawInstruction{Opcode: classfile.OpPop}) }

func (b *prologueBuilder) dup() { b.Emit(classfile.RawInstruction{Opcode: classfile.OpDup}) }

func (b *prologueBuilder) aconstNull() { b.Emit(classfile.RawInstruction{Opcode: classfile.OpAconstNull}) }

func (b *prologueBuilder) athrow() { b.Emit(classfile.RawInstruction{Opcode: classfile.OpAThrow}) }

func (b *prologueBuilder) goTo(target *classfile.Label) { b.jump(classfile.OpGoto, target) }

func (b *prologueBuilder) ifEq(target *classfile.Label) { b.jump(classfile.OpIfEq, target) }

func (b *prologueBuilder) ifNe(target *classfile.Label) { b.jump(classfile.OpIfNe, target) }
