/*
 * classmerge - a JVM class-merging grading harness transformer
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package classfile

import (
	"encoding/binary"
)

// decodedOp is an intermediate, offset-tagged instruction produced by the
// first decoding pass, before branch/exception/line/localvar/frame offsets
// have been resolved into *Label pointers.
type decodedOp struct {
	offset int
	insn   Instruction
	// jumpTarget holds the absolute byte offset a JumpInstruction targets;
	// Target is filled in during the label-resolution pass below.
	jumpTarget int
	isJump     bool
}

// parseCode decodes a Code attribute body (JVM spec §4.7.3) into a
// CodeAttribute with a fully linked instruction stream.
func parseCode(content []byte, cp *ConstantPool) (*CodeAttribute, error) {
	r := &reader{b: content}
	maxStack, err := r.u2()
	if err != nil {
		return nil, err
	}
	maxLocals, err := r.u2()
	if err != nil {
		return nil, err
	}
	codeLen, err := r.u4()
	if err != nil {
		return nil, err
	}
	codeBytes, err := r.bytes(int(codeLen))
	if err != nil {
		return nil, err
	}

	ops, err := decodeBytecode(codeBytes, cp)
	if err != nil {
		return nil, err
	}

	excTableLen, err := r.u2()
	if err != nil {
		return nil, err
	}
	type rawExc struct{ start, end, handler, catchType int }
	var rawExcs []rawExc
	interesting := map[int]bool{}
	for i := 0; i < excTableLen; i++ {
		start, err := r.u2()
		if err != nil {
			return nil, err
		}
		end, err := r.u2()
		if err != nil {
			return nil, err
		}
		handler, err := r.u2()
		if err != nil {
			return nil, err
		}
		catchType, err := r.u2()
		if err != nil {
			return nil, err
		}
		rawExcs = append(rawExcs, rawExc{start, end, handler, catchType})
		interesting[start] = true
		interesting[end] = true
		interesting[handler] = true
	}

	for _, op := range ops {
		if op.isJump {
			interesting[op.jumpTarget] = true
		}
	}

	attrCount, err := r.u2()
	if err != nil {
		return nil, err
	}
	var lineRows []struct{ pc, line int }
	var lvRows []struct {
		start, length, nameIdx, descIdx, slot int
	}
	var other []Attribute
	for i := 0; i < attrCount; i++ {
		name, body, err := parseRawAttribute(r, cp)
		if err != nil {
			return nil, err
		}
		switch name {
		case "LineNumberTable":
			cr := &reader{b: body}
			n, err := cr.u2()
			if err != nil {
				return nil, err
			}
			for j := 0; j < n; j++ {
				pc, err := cr.u2()
				if err != nil {
					return nil, err
				}
				line, err := cr.u2()
				if err != nil {
					return nil, err
				}
				lineRows = append(lineRows, struct{ pc, line int }{pc, line})
				interesting[pc] = true
			}
		case "LocalVariableTable":
			cr := &reader{b: body}
			n, err := cr.u2()
			if err != nil {
				return nil, err
			}
			for j := 0; j < n; j++ {
				start, err := cr.u2()
				if err != nil {
					return nil, err
				}
				length, err := cr.u2()
				if err != nil {
					return nil, err
				}
				nameIdx, err := cr.u2()
				if err != nil {
					return nil, err
				}
				descIdx, err := cr.u2()
				if err != nil {
					return nil, err
				}
				slot, err := cr.u2()
				if err != nil {
					return nil, err
				}
				lvRows = append(lvRows, struct{ start, length, nameIdx, descIdx, slot int }{start, length, nameIdx, descIdx, slot})
				interesting[start] = true
				interesting[start+length] = true
			}
		default:
			// StackMapTable and anything else this package doesn't need to
			// rewrite structurally (it is regenerated from FrameInstruction
			// directives by the writer whenever the method transformer
			// injects a prologue; reference bodies replayed unmodified keep
			// their original table here).
			other = append(other, Attribute{Name: name, Content: body})
		}
	}

	// Build labels for every interesting offset, in one deterministic pass.
	labels := map[int]*Label{}
	labelAt := func(off int) *Label {
		if l, ok := labels[off]; ok {
			return l
		}
		l := &Label{}
		labels[off] = l
		return l
	}

	code := &CodeAttribute{MaxStack: maxStack, MaxLocals: maxLocals, OtherAttributes: other}
	for off := range interesting {
		labelAt(off)
	}
	for _, op := range ops {
		if l, ok := labels[op.offset]; ok {
			code.Instructions = append(code.Instructions, LabelInstruction{Label: l})
		}
		if op.isJump {
			ji := op.insn.(JumpInstruction)
			ji.Target = labelAt(op.jumpTarget)
			code.Instructions = append(code.Instructions, ji)
			continue
		}
		code.Instructions = append(code.Instructions, op.insn)
	}
	// a label at the very end of the code array (one-past-the-last byte) is
	// valid (used by exception-table "end" and local-variable "end") but
	// never visited by the offset loop above, since no instruction starts
	// there.
	if l, ok := labels[len(codeBytes)]; ok {
		code.Instructions = append(code.Instructions, LabelInstruction{Label: l})
	}

	for _, e := range rawExcs {
		catchType := ""
		if e.catchType != 0 {
			catchType, err = cp.ClassName(e.catchType)
			if err != nil {
				return nil, err
			}
		}
		code.ExceptionTable = append(code.ExceptionTable, ExceptionTableEntry{
			StartPC: labelAt(e.start), EndPC: labelAt(e.end), HandlerPC: labelAt(e.handler), CatchType: catchType,
		})
	}
	for _, l := range lineRows {
		code.LineNumberTable = append(code.LineNumberTable, LineNumberEntry{Start: labelAt(l.pc), Line: l.line})
	}
	for _, lv := range lvRows {
		name, err := cp.Utf8(lv.nameIdx)
		if err != nil {
			return nil, err
		}
		desc, err := cp.Utf8(lv.descIdx)
		if err != nil {
			return nil, err
		}
		code.LocalVariableTable = append(code.LocalVariableTable, LocalVariableEntry{
			Start: labelAt(lv.start), End: labelAt(lv.start + lv.length), Name: name, Descriptor: desc, Slot: lv.slot,
		})
	}

	return code, nil
}

// decodeBytecode walks raw bytecode once, producing decodedOp entries with
// instruction boundaries resolved and CP-index-bearing opcodes resolved
// against cp into their final Instruction form. Opcodes this package has no
// structural interest in (arithmetic, stack shuffling) are preserved as
// RawInstruction with their operand bytes intact; switches, wide, goto_w and
// jsr_w are rejected with an error (see fixedOperandLength).
func decodeBytecode(code []byte, cp *ConstantPool) ([]decodedOp, error) {
	var ops []decodedOp
	i := 0
	for i < len(code) {
		start := i
		op := code[i]
		i++
		switch op {
		case OpGetStatic, OpPutStatic, OpGetField, OpPutField:
			idx := be16(code, i)
			i += 2
			entry, err := cp.At(idx)
			if err != nil {
				return nil, err
			}
			fr, ok := entry.(CPFieldref)
			if !ok {
				return nil, cfef("field instruction at offset %d does not reference a Fieldref", start)
			}
			owner, err := cp.ClassName(fr.ClassIndex)
			if err != nil {
				return nil, err
			}
			name, desc, err := cp.NameAndType(fr.NameAndTypeIndex)
			if err != nil {
				return nil, err
			}
			ops = append(ops, decodedOp{offset: start, insn: FieldInstruction{Opcode: op, Owner: owner, Name: name, Descriptor: desc}})
		case OpInvokeVirtual, OpInvokeSpecial, OpInvokeStatic, OpInvokeInterface:
			idx := be16(code, i)
			i += 2
			isIface := op == OpInvokeInterface
			if isIface {
				i += 2 // count, 0
			}
			owner, name, desc, err := resolveMethodref(cp, idx, isIface)
			if err != nil {
				return nil, err
			}
			ops = append(ops, decodedOp{offset: start, insn: MethodInstruction{Opcode: op, Owner: owner, Name: name, Descriptor: desc, IsInterface: isIface}})
		case OpInvokeDynamic:
			idx := be16(code, i)
			i += 2
			i += 2 // two zero bytes
			entry, err := cp.At(idx)
			if err != nil {
				return nil, err
			}
			id, ok := entry.(CPInvokeDynamic)
			if !ok {
				return nil, cfef("invokedynamic at offset %d does not reference an InvokeDynamic entry", start)
			}
			name, desc, err := cp.NameAndType(id.NameAndTypeIndex)
			if err != nil {
				return nil, err
			}
			ops = append(ops, decodedOp{offset: start, insn: InvokeDynamicInstruction{BootstrapIndex: id.BootstrapMethodAttrIndex, Name: name, Descriptor: desc}})
		case OpNew, OpANewArray, OpCheckCast, OpInstanceOf:
			idx := be16(code, i)
			i += 2
			entry, err := cp.At(idx)
			if err != nil {
				return nil, err
			}
			c, ok := entry.(CPClass)
			if !ok {
				return nil, cfef("type instruction at offset %d does not reference a Class entry", start)
			}
			typeName, err := cp.Utf8(c.NameIndex)
			if err != nil {
				return nil, err
			}
			ops = append(ops, decodedOp{offset: start, insn: TypeInstruction{Opcode: op, Type: typeName}})
		case OpLdc, OpLdcW, OpLdc2W:
			var idx int
			if op == OpLdc {
				idx = int(code[i])
				i++
			} else {
				idx = be16(code, i)
				i += 2
			}
			entry, err := cp.At(idx)
			if err != nil {
				return nil, err
			}
			ldc, err := ldcFromEntry(cp, entry)
			if err != nil {
				return nil, err
			}
			ops = append(ops, decodedOp{offset: start, insn: ldc})
		case OpILoad, OpLLoad, OpFLoad, OpDLoad, OpALoad,
			OpIStore, OpLStore, OpFStore, OpDStore, OpAStore:
			slot := int(code[i])
			i++
			ops = append(ops, decodedOp{offset: start, insn: VarInstruction{Opcode: op, Slot: slot}})
		case OpGoto, OpIfEq, OpIfNe, 0x9b, 0x9c, 0x9d, 0x9e, 0x9f, 0xa0, 0xa1, 0xa2, 0xa3, 0xa4, 0xa5, 0xa6, 0xa8, 0xc6, 0xc7: // goto, if*, if_icmp*/if_acmp*, jsr, ifnull/ifnonnull
			delta := int(int16(be16(code, i)))
			i += 2
			ops = append(ops, decodedOp{offset: start, insn: JumpInstruction{Opcode: op}, isJump: true, jumpTarget: start + delta})
		case OpBipush:
			v := int8(code[i])
			i++
			ops = append(ops, decodedOp{offset: start, insn: RawInstruction{Opcode: op, Operand: []byte{byte(v)}}})
		case OpSipush:
			b, err := sliceN(code, i, 2)
			if err != nil {
				return nil, err
			}
			i += 2
			ops = append(ops, decodedOp{offset: start, insn: RawInstruction{Opcode: op, Operand: b}})
		default:
			n, variable := fixedOperandLength(op)
			if variable {
				return nil, cfef("opcode 0x%x not supported by this transformer's parser (tableswitch/lookupswitch/wide/goto_w/jsr_w)", op)
			}
			b, err := sliceN(code, i, n)
			if err != nil {
				return nil, err
			}
			i += n
			ops = append(ops, decodedOp{offset: start, insn: RawInstruction{Opcode: op, Operand: b}})
		}
	}
	return ops, nil
}

func sliceN(b []byte, off, n int) ([]byte, error) {
	if off+n > len(b) {
		return nil, cfe("instruction operand runs past end of code array")
	}
	return b[off : off+n], nil
}

func be16(b []byte, off int) int {
	return int(binary.BigEndian.Uint16(b[off:]))
}

// fixedOperandLength returns the number of operand bytes that follow opcodes
// this package treats opaquely. This is not the complete JVM opcode table --
// it covers the instructions realistic student/reference method bodies
// contain. tableswitch/lookupswitch/wide (variable length) and goto_w/jsr_w
// (4-byte branch offsets) are reported as unsupported rather than silently
// mis-parsed (see the caller).
func fixedOperandLength(op byte) (n int, variable bool) {
	switch {
	case op == 0xab || op == 0xaa || op == 0xc4 || op == 0xc8 || op == 0xc9: // tableswitch, lookupswitch, wide, goto_w, jsr_w
		return 0, true
	case op == 0xc5: // multianewarray
		return 3, false
	case op == 0x84: // iinc
		return 2, false
	case op == 0xbc || op == 0xa9: // newarray, ret
		return 1, false
	default:
		return 0, false // the overwhelming majority: no operand at all
	}
}

func resolveMethodref(cp *ConstantPool, idx int, isInterface bool) (owner, name, desc string, err error) {
	entry, err := cp.At(idx)
	if err != nil {
		return "", "", "", err
	}
	var classIdx, ntIdx int
	switch r := entry.(type) {
	case CPMethodref:
		classIdx, ntIdx = r.ClassIndex, r.NameAndTypeIndex
	case CPInterfaceMethodref:
		classIdx, ntIdx = r.ClassIndex, r.NameAndTypeIndex
	default:
		return "", "", "", cfef("CP index %d is not a method reference", idx)
	}
	owner, err = cp.ClassName(classIdx)
	if err != nil {
		return "", "", "", err
	}
	name, desc, err = cp.NameAndType(ntIdx)
	return owner, name, desc, err
}

// ldcFromEntry builds an LdcInstruction from whichever loadable CP entry
// opcode ldc/ldc_w/ldc2_w referenced (JVM spec §6.5.ldc).
func ldcFromEntry(cp *ConstantPool, entry CPEntry) (LdcInstruction, error) {
	switch e := entry.(type) {
	case CPInteger:
		return LdcInstruction{Value: e.Value}, nil
	case CPFloat:
		return LdcInstruction{Value: e.Value}, nil
	case CPLong:
		return LdcInstruction{Value: e.Value}, nil
	case CPDouble:
		return LdcInstruction{Value: e.Value}, nil
	case CPString:
		s, err := cp.Utf8(e.StringIndex)
		if err != nil {
			return LdcInstruction{}, err
		}
		return LdcInstruction{Value: s}, nil
	case CPClass:
		name, err := cp.Utf8(e.NameIndex)
		if err != nil {
			return LdcInstruction{}, err
		}
		return LdcInstruction{IsClass: true, ClassRef: name}, nil
	default:
		return LdcInstruction{}, cfe("ldc operand is not a loadable constant")
	}
}
