/*
 * classmerge - a JVM class-merging grading harness transformer
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package header

import "github.com/tudalgo/classmerge/classfile"

// Emitter is the narrow slice of a method body under construction that the
// Build* functions below need: appending instructions. transform's
// prologueBuilder implements it.
type Emitter interface {
	Emit(insns ...classfile.Instruction)
}

// BuildClassHeader, BuildFieldHeader and BuildMethodHeader replicate a
// header record as a NEW / DUP / literals / INVOKESPECIAL <init> sequence at
// the emitter's current position, the same shape the teacher's
// instantiateClass uses to build a live object (spec §4.1); they return
// nothing. Fields of reference type that are absent are emitted as the null
// literal (aconst_null); array-typed fields are emitted as fresh arrays
// populated with string literals, mirroring DefaultLiteral's null-for-
// reference-type rule from jvm/instantiate.go.

// BuildClassHeader emits: new ClassHeader; dup; push access, name,
// signature-or-null, superName-or-null, interfaces-array; invokespecial
// <init>(ILjava/lang/String;Ljava/lang/String;Ljava/lang/String;[Ljava/lang/String;)V.
func BuildClassHeader(e Emitter, h ClassHeader) {
	e.Emit(classfile.TypeInstruction{Opcode: classfile.OpNew, Type: ClassHeaderType})
	e.Emit(classfile.RawInstruction{Opcode: classfile.OpDup})
	emitIntLiteral(e, h.Access)
	emitStringLiteral(e, h.Name)
	emitStringOrNull(e, h.Signature)
	emitStringOrNull(e, h.SuperName)
	emitStringArray(e, h.Interfaces)
	e.Emit(classfile.MethodInstruction{
		Opcode: classfile.OpInvokeSpecial, Owner: ClassHeaderType, Name: "<init>",
		Descriptor: "(ILjava/lang/String;Ljava/lang/String;Ljava/lang/String;[Ljava/lang/String;)V",
	})
}

// BuildFieldHeader emits: new FieldHeader; dup; push owner, access, name,
// descriptor, signature-or-null; invokespecial <init>.
func BuildFieldHeader(e Emitter, h FieldHeader) {
	e.Emit(classfile.TypeInstruction{Opcode: classfile.OpNew, Type: FieldHeaderType})
	e.Emit(classfile.RawInstruction{Opcode: classfile.OpDup})
	emitStringLiteral(e, h.Owner)
	emitIntLiteral(e, h.Access)
	emitStringLiteral(e, h.Name)
	emitStringLiteral(e, h.Descriptor)
	emitStringOrNull(e, h.Signature)
	e.Emit(classfile.MethodInstruction{
		Opcode: classfile.OpInvokeSpecial, Owner: FieldHeaderType, Name: "<init>",
		Descriptor: "(Ljava/lang/String;ILjava/lang/String;Ljava/lang/String;Ljava/lang/String;)V",
	})
}

// BuildMethodHeader emits: new MethodHeader; dup; push owner, access, name,
// descriptor, signature-or-null, exceptions-array; invokespecial <init>. This
// is the literal `M` object step §4.8's prologue reifies at local slot
// "method-header object".
func BuildMethodHeader(e Emitter, h MethodHeader) {
	e.Emit(classfile.TypeInstruction{Opcode: classfile.OpNew, Type: MethodHeaderType})
	e.Emit(classfile.RawInstruction{Opcode: classfile.OpDup})
	emitStringLiteral(e, h.Owner)
	emitIntLiteral(e, h.Access)
	emitStringLiteral(e, h.Name)
	emitStringLiteral(e, h.Descriptor)
	emitStringOrNull(e, h.Signature)
	emitStringArray(e, h.Exceptions)
	e.Emit(classfile.MethodInstruction{
		Opcode: classfile.OpInvokeSpecial, Owner: MethodHeaderType, Name: "<init>",
		Descriptor: "(Ljava/lang/String;ILjava/lang/String;Ljava/lang/String;Ljava/lang/String;[Ljava/lang/String;)V",
	})
}

func emitIntLiteral(e Emitter, v int) {
	e.Emit(classfile.LdcInstruction{Value: int32(v)})
}

func emitStringLiteral(e Emitter, s string) {
	e.Emit(classfile.LdcInstruction{Value: s})
}

func emitStringOrNull(e Emitter, s string) {
	if s == "" {
		e.Emit(classfile.RawInstruction{Opcode: classfile.OpAconstNull})
		return
	}
	emitStringLiteral(e, s)
}

// emitStringArray emits: push length; anewarray String; for each element,
// dup, push index, push literal, aastore. This is the "fresh array populated
// with string literals" rule spec §4.1 requires for interfaces[]/exceptions[].
func emitStringArray(e Emitter, items []string) {
	emitIntLiteral(e, len(items))
	e.Emit(classfile.TypeInstruction{Opcode: classfile.OpANewArray, Type: "java/lang/String"})
	for i, s := range items {
		e.Emit(classfile.RawInstruction{Opcode: classfile.OpDup})
		emitIntLiteral(e, i)
		emitStringLiteral(e, s)
		e.Emit(classfile.RawInstruction{Opcode: 0x53}) // aastore
	}
}

// DefaultLiteral picks the zero/null literal for a descriptor's sort, the
// same switch the teacher's initializeField/instantiateClass uses to seed
// instance fields (jvm/instantiate.go), reused here to satisfy the "fields
// of reference type that are absent are emitted as the null literal" rule.
func DefaultLiteral(sort classfile.Sort) interface{} {
	switch sort {
	case classfile.SortObject, classfile.SortArray:
		return nil
	case classfile.SortLong:
		return int64(0)
	case classfile.SortFloat:
		return float32(0)
	case classfile.SortDouble:
		return float64(0)
	default: // boolean, byte, char, short, int
		return int32(0)
	}
}
