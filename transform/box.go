/*
 * classmerge - a JVM class-merging grading harness transformer
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package transform

import "github.com/tudalgo/classmerge/classfile"

// wrapperType names the boxed wrapper class for each primitive sort (JVM
// spec's boxing conversion), used whenever the prologue hands a primitive
// value to code expecting Ljava/lang/Object; (spec §4.8 step 4 "boxed
// parameters in declaration order") or reads one back out (step 5 "unbox or
// cast the result to the method's return sort").
func wrapperType(s classfile.Sort) string {
	switch s {
	case classfile.SortBoolean:
		return "java/lang/Boolean"
	case classfile.SortByte:
		return "java/lang/Byte"
	case classfile.SortChar:
		return "java/lang/Character"
	case classfile.SortShort:
		return "java/lang/Short"
	case classfile.SortInt:
		return "java/lang/Integer"
	case classfile.SortLong:
		return "java/lang/Long"
	case classfile.SortFloat:
		return "java/lang/Float"
	case classfile.SortDouble:
		return "java/lang/Double"
	default:
		return ""
	}
}

// primitiveDescriptor is the single-character descriptor wrapperType's
// valueOf/xxxValue methods box/unbox against.
func primitiveDescriptor(s classfile.Sort) string {
	switch s {
	case classfile.SortBoolean:
		return "Z"
	case classfile.SortByte:
		return "B"
	case classfile.SortChar:
		return "C"
	case classfile.SortShort:
		return "S"
	case classfile.SortInt:
		return "I"
	case classfile.SortLong:
		return "J"
	case classfile.SortFloat:
		return "F"
	case classfile.SortDouble:
		return "D"
	default:
		return ""
	}
}

// unboxMethodName is the no-arg accessor every numeric/boolean/char wrapper
// exposes to recover its primitive value (java.lang.Number's xxxValue()
// family, plus Boolean.booleanValue()/Character.charValue()).
func unboxMethodName(s classfile.Sort) string {
	switch s {
	case classfile.SortBoolean:
		return "booleanValue"
	case classfile.SortByte:
		return "byteValue"
	case classfile.SortChar:
		return "charValue"
	case classfile.SortShort:
		return "shortValue"
	case classfile.SortInt:
		return "intValue"
	case classfile.SortLong:
		return "longValue"
	case classfile.SortFloat:
		return "floatValue"
	case classfile.SortDouble:
		return "doubleValue"
	default:
		return ""
	}
}

// emitBox assumes a value of sort s is on top of the stack and emits the
// wrapper's static valueOf(...) call, leaving the boxed Ljava/lang/Object;
// in its place. Object/array sorts need no boxing.
func emitBox(b *prologueBuilder, s classfile.Sort) {
	if s == classfile.SortObject || s == classfile.SortArray || s == classfile.SortVoid {
		return
	}
	w := wrapperType(s)
	b.Emit(classfile.MethodInstruction{
		Opcode: classfile.OpInvokeStatic, Owner: w, Name: "valueOf",
		Descriptor: "(" + primitiveDescriptor(s) + ")L" + w + ";",
	})
}

// returnCastTarget picks the checkcast target emitUnbox needs for an object
// or array descriptor: the bare internal name for objects, the descriptor
// itself for arrays. Primitive/void descriptors have no cast target.
func returnCastTarget(desc string) string {
	switch classfile.DescriptorSort(desc) {
	case classfile.SortObject:
		return classfile.ObjectInternalName(desc)
	case classfile.SortArray:
		return desc
	default:
		return ""
	}
}

// emitUnbox assumes a boxed Ljava/lang/Object; for sort s is on top of the
// stack (already checkcast to the wrapper type by the caller when the
// static type isn't already known to be that wrapper) and emits the
// instance xxxValue() call, leaving the primitive on the stack. Object
// sorts instead get a checkcast to the declared type; array sorts likewise.
func emitUnbox(b *prologueBuilder, s classfile.Sort, targetType string) {
	switch s {
	case classfile.SortVoid:
		b.Emit(classfile.RawInstruction{Opcode: classfile.OpPop})
	case classfile.SortObject:
		if targetType != "" && targetType != "java/lang/Object" {
			b.Emit(classfile.TypeInstruction{Opcode: classfile.OpCheckCast, Type: targetType})
		}
	case classfile.SortArray:
		if targetType != "" {
			b.Emit(classfile.TypeInstruction{Opcode: classfile.OpCheckCast, Type: targetType})
		}
	default:
		w := wrapperType(s)
		b.Emit(classfile.TypeInstruction{Opcode: classfile.OpCheckCast, Type: w})
		b.Emit(classfile.MethodInstruction{
			Opcode: classfile.OpInvokeVirtual, Owner: w, Name: unboxMethodName(s),
			Descriptor: "()" + primitiveDescriptor(s),
		})
	}
}
