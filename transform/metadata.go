/*
 * classmerge - a JVM class-merging grading harness transformer
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package transform

import (
	"github.com/tudalgo/classmerge/classfile"
	"github.com/tudalgo/classmerge/header"
)

// Injected java.util collection types the metadata accessors build against
// (spec §4.7 point 5). This repo never implements these -- they ship with
// any JRE -- the same way this package's abi.go ControlSurface/Invocation names
// reach into a library this repo doesn't define.
const (
	hashSetType = "java/util/HashSet"
	hashMapType = "java/util/HashMap"
	setType     = "java/util/Set"
	mapType     = "java/util/Map"
)

// accessor* are the names of the four (five, for enums) static methods spec
// §4.7 point 5 says are "always injected" onto the merged class.
const (
	accessorClassHeader   = "classmergeClassHeader"
	accessorFieldHeaders  = "classmergeFieldHeaders"
	accessorMethodHeaders = "classmergeMethodHeaders"
	accessorStaticInits   = "classmergeStaticInitialValues"
	accessorEnumConstants = "classmergeEnumConstants"
)

// buildClassHeaderAccessor emits: public static ClassHeader classmergeClassHeader().
func buildClassHeaderAccessor(h header.ClassHeader) *classfile.MethodInfo {
	b := newPrologueBuilder(0)
	header.BuildClassHeader(b, h)
	b.Emit(classfile.RawInstruction{Opcode: classfile.OpAReturn})
	return &classfile.MethodInfo{
		AccessFlags: classfile.AccPublic | classfile.AccStatic,
		Name:        accessorClassHeader,
		Descriptor:  "()L" + header.ClassHeaderType + ";",
		Code:        &classfile.CodeAttribute{MaxStack: 8, MaxLocals: 0, Instructions: b.insns},
	}
}

// buildFieldHeaderSetAccessor / buildMethodHeaderSetAccessor emit: public
// static Set classmergeFieldHeaders()/classmergeMethodHeaders(), each
// building a fresh HashSet and add()-ing one reified header literal per
// original, non-synthetic declared member (spec §4.7 point 5).
func buildFieldHeaderSetAccessor(fields []header.FieldHeader) *classfile.MethodInfo {
	b := newPrologueBuilder(0)
	b.newObject(hashSetType)
	b.invokeSpecial(hashSetType, "<init>", "()V")
	for _, fh := range fields {
		b.dup()
		header.BuildFieldHeader(b, fh)
		b.invokeInterface("java/util/Collection", "add", "(Ljava/lang/Object;)Z")
		b.pop()
	}
	b.Emit(classfile.RawInstruction{Opcode: classfile.OpAReturn})
	return &classfile.MethodInfo{
		AccessFlags: classfile.AccPublic | classfile.AccStatic,
		Name:        accessorFieldHeaders,
		Descriptor:  "()L" + setType + ";",
		Code:        &classfile.CodeAttribute{MaxStack: 8, MaxLocals: 0, Instructions: b.insns},
	}
}

func buildMethodHeaderSetAccessor(methods []header.MethodHeader) *classfile.MethodInfo {
	b := newPrologueBuilder(0)
	b.newObject(hashSetType)
	b.invokeSpecial(hashSetType, "<init>", "()V")
	for _, mh := range methods {
		b.dup()
		header.BuildMethodHeader(b, mh)
		b.invokeInterface("java/util/Collection", "add", "(Ljava/lang/Object;)Z")
		b.pop()
	}
	b.Emit(classfile.RawInstruction{Opcode: classfile.OpAReturn})
	return &classfile.MethodInfo{
		AccessFlags: classfile.AccPublic | classfile.AccStatic,
		Name:        accessorMethodHeaders,
		Descriptor:  "()L" + setType + ";",
		Code:        &classfile.CodeAttribute{MaxStack: 8, MaxLocals: 0, Instructions: b.insns},
	}
}

// staticInitEntry is one field whose declared value was a compile-time
// ConstantValue (spec SPEC_FULL.md §C "Constant-value field initializers").
// Non-constant static initializers (anything computed in <clinit> rather
// than encoded as a ConstantValue attribute) have no literal this package
// could capture without running the student's code, so they are absent from
// the side-table -- a scope line recorded in DESIGN.md, not silently.
type staticInitEntry struct {
	Name  string
	Sort  classfile.Sort
	Value interface{}
}

// buildStaticInitAccessor emits: public static Map classmergeStaticInitialValues(),
// building a HashMap literal from entries (spec §4.7 point 5 "a fourth
// accessor returns a map from field name to captured initial value").
func buildStaticInitAccessor(entries []staticInitEntry) *classfile.MethodInfo {
	b := newPrologueBuilder(0)
	b.newObject(hashMapType)
	b.invokeSpecial(hashMapType, "<init>", "()V")
	for _, e := range entries {
		b.dup()
		b.Emit(classfile.LdcInstruction{Value: e.Name})
		emitLiteral(b, e.Sort, e.Value)
		emitBox(b, e.Sort)
		b.invokeInterface(mapType, "put", "(Ljava/lang/Object;Ljava/lang/Object;)Ljava/lang/Object;")
		b.pop()
	}
	b.Emit(classfile.RawInstruction{Opcode: classfile.OpAReturn})
	return &classfile.MethodInfo{
		AccessFlags: classfile.AccPublic | classfile.AccStatic,
		Name:        accessorStaticInits,
		Descriptor:  "()L" + mapType + ";",
		Code:        &classfile.CodeAttribute{MaxStack: 8, MaxLocals: 0, Instructions: b.insns},
	}
}

// emitLiteral pushes a field's captured ConstantValue. String values besides
// boxing also flow straight through LdcInstruction (the JVM's own constant
// pool already distinguishes CONSTANT_String from CONSTANT_Integer etc.).
func emitLiteral(b *prologueBuilder, s classfile.Sort, v interface{}) {
	b.Emit(classfile.LdcInstruction{Value: v})
	_ = s
}

// enumConstantEntry is one captured (name, ordinal, boxed-args) triple from
// a submission enum's <clinit> (spec §4.7 "Enum specialization").
type enumConstantEntry struct {
	Name       string
	Ordinal    int
	ArgDescs   []string
	ArgValues  []classfile.Instruction // one self-contained push sequence per arg, in declaration order
}

// buildEnumConstantsAccessor emits: public static List classmergeEnumConstants(),
// an ArrayList of Object[]{name, ordinal, args} triples, one per original
// enum constant (spec §4.7 "an ordered list of the original enum constants").
func buildEnumConstantsAccessor(entries []enumConstantEntry) *classfile.MethodInfo {
	b := newPrologueBuilder(0)
	b.newObject("java/util/ArrayList")
	b.invokeSpecial("java/util/ArrayList", "<init>", "()V")
	for _, e := range entries {
		b.dup()
		// triple = new Object[]{ name, Integer.valueOf(ordinal), argsArray }
		b.Emit(classfile.LdcInstruction{Value: int32(3)})
		b.Emit(classfile.TypeInstruction{Opcode: classfile.OpANewArray, Type: "java/lang/Object"})
		b.dup()
		b.Emit(classfile.LdcInstruction{Value: int32(0)})
		b.Emit(classfile.LdcInstruction{Value: e.Name})
		b.Emit(classfile.RawInstruction{Opcode: 0x53}) // aastore
		b.dup()
		b.Emit(classfile.LdcInstruction{Value: int32(1)})
		b.Emit(classfile.LdcInstruction{Value: int32(e.Ordinal)})
		emitBox(b, classfile.SortInt)
		b.Emit(classfile.RawInstruction{Opcode: 0x53})
		b.dup()
		b.Emit(classfile.LdcInstruction{Value: int32(2)})
		emitArgsArray(b, e.ArgDescs, e.ArgValues)
		b.Emit(classfile.RawInstruction{Opcode: 0x53})
		b.invokeInterface("java/util/Collection", "add", "(Ljava/lang/Object;)Z")
		b.pop()
	}
	b.Emit(classfile.RawInstruction{Opcode: classfile.OpAReturn})
	return &classfile.MethodInfo{
		AccessFlags: classfile.AccPublic | classfile.AccStatic,
		Name:        accessorEnumConstants,
		Descriptor:  "()Ljava/util/List;",
		Code:        &classfile.CodeAttribute{MaxStack: 8, MaxLocals: 0, Instructions: b.insns},
	}
}

// emitArgsArray builds an Object[] boxing each captured enum-constructor
// argument in order.
func emitArgsArray(b *prologueBuilder, descs []string, pushers []classfile.Instruction) {
	b.Emit(classfile.LdcInstruction{Value: int32(len(descs))})
	b.Emit(classfile.TypeInstruction{Opcode: classfile.OpANewArray, Type: "java/lang/Object"})
	for i, d := range descs {
		b.dup()
		b.Emit(classfile.LdcInstruction{Value: int32(i)})
		if i < len(pushers) {
			b.Emit(pushers[i])
		}
		emitBox(b, classfile.DescriptorSort(d))
		b.Emit(classfile.RawInstruction{Opcode: 0x53})
	}
}
