/*
 * classmerge - a JVM class-merging grading harness transformer
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package transform

import (
	"sort"

	"github.com/tudalgo/classmerge/classfile"
	"github.com/tudalgo/classmerge/context"
	"github.com/tudalgo/classmerge/header"
	"github.com/tudalgo/classmerge/refclass"
	"github.com/tudalgo/classmerge/submission"
)

// methodTransformer is C8: it turns one student method declaration (plus its
// binding and an optional reference counterpart) into the merged method the
// emitted class actually ships (spec §4.8, "the heart of the system").
type methodTransformer struct {
	tc       *context.TransformationContext
	self     *submission.SubmissionClassInfo
	ref      *refclass.ReferenceClass // nil if self is unbound
	retarget *retargeter
}

func newMethodTransformer(tc *context.TransformationContext, self *submission.SubmissionClassInfo, ref *refclass.ReferenceClass) *methodTransformer {
	return &methodTransformer{tc: tc, self: self, ref: ref, retarget: newRetargeter(tc, self)}
}

// MergedMethod is what Transform hands back to the class transformer: the
// method installed under the computed signature, plus -- only when the
// declared and computed shapes disagreed -- a second, prologue-free method
// carrying the student's own body under a "$submission" suffix (spec §4.7.3).
type MergedMethod struct {
	Computed     *classfile.MethodInfo
	Passthrough  *classfile.MethodInfo
	Mismatched   bool
}

// Transform builds the merged method for one declared, non-lambda,
// non-clinit student method.
func (mt *methodTransformer) Transform(student *classfile.MethodInfo, binding submission.MethodBinding) (*MergedMethod, error) {
	if methodMismatch(mt.tc, binding) {
		trap, err := mt.buildMismatchTrap(binding)
		if err != nil {
			return nil, err
		}
		passthrough := &classfile.MethodInfo{
			AccessFlags: student.AccessFlags,
			Name:        binding.Original.Name + submissionSuffix,
			Descriptor:  mt.tc.ToComputedDescriptor(binding.Original.Descriptor),
			Exceptions:  student.Exceptions,
		}
		if student.Code != nil {
			passthrough.Code = mt.retargetedCode(student.Code)
		}
		return &MergedMethod{Computed: trap, Passthrough: passthrough, Mismatched: true}, nil
	}

	var refMethod *classfile.MethodInfo
	if mt.ref != nil {
		refMethod, _ = mt.ref.Method(binding.Computed.Name, binding.Computed.Descriptor)
	}

	merged, err := mt.buildPrologue(binding.Computed, student.Code, refMethod)
	if err != nil {
		return nil, err
	}
	return &MergedMethod{
		Computed: &classfile.MethodInfo{
			AccessFlags: student.AccessFlags,
			Name:        binding.Computed.Name,
			Descriptor:  binding.Computed.Descriptor,
			Exceptions:  student.Exceptions,
			Code:        merged,
		},
	}, nil
}

// TransformMissing builds a merged method for a reference method no
// submission class ever declared (spec §4.7 point 4 "Reference method
// bodies emitted this way are wrapped with the same dispatch prologue as
// submission-declared methods"). With no submission body to fall back to,
// the student-body branch runs the reference body too -- there is nothing
// else it could run, and useSubmissionImpl toggling a method the submission
// never touched is a no-op by construction (see DESIGN.md).
func (mt *methodTransformer) TransformMissing(refMethod *classfile.MethodInfo) (*classfile.MethodInfo, error) {
	h := header.MethodHeader{
		Owner: mt.self.ComputedHeader.Name, Access: refMethod.AccessFlags,
		Name: refMethod.Name, Descriptor: refMethod.Descriptor, Exceptions: refMethod.Exceptions,
	}
	merged, err := mt.buildPrologue(h, nil, refMethod)
	if err != nil {
		return nil, err
	}
	return &classfile.MethodInfo{
		AccessFlags: refMethod.AccessFlags, Name: refMethod.Name,
		Descriptor: refMethod.Descriptor, Exceptions: refMethod.Exceptions, Code: merged,
	}, nil
}

func (mt *methodTransformer) retargetedCode(src *classfile.CodeAttribute) *classfile.CodeAttribute {
	out := src.Clone()
	out.Instructions = mt.retarget.Rewrite(out.Instructions)
	return out
}

// buildMismatchTrap is spec §4.8 step 1: the computed-signature slot always
// exists (so the bound reference's contract is satisfied), but its body is
// nothing but "construct and throw IncompatibleHeaderException(declared,
// computed)". No locals beyond the method's own parameters are needed.
func (mt *methodTransformer) buildMismatchTrap(binding submission.MethodBinding) (*classfile.MethodInfo, error) {
	params, _ := classfile.ParamDescriptors(binding.Computed.Descriptor)
	plan := newSlotPlan(mt.self.ComputedHeader.Name, binding.Computed.Access&classfile.AccStatic != 0, params, false)
	b := newPrologueBuilder(0)
	b.newObject(IncompatibleHeaderExceptionType)
	header.BuildMethodHeader(b, binding.Original)
	header.BuildMethodHeader(b, binding.Computed)
	b.invokeSpecial(IncompatibleHeaderExceptionType, "<init>", descIncompatibleHeaderInit)
	b.athrow()
	return &classfile.MethodInfo{
		AccessFlags: binding.Computed.Access,
		Name:        binding.Computed.Name,
		Descriptor:  binding.Computed.Descriptor,
		Code: &classfile.CodeAttribute{
			MaxStack:     6,
			MaxLocals:    plan.argSlotsEnd,
			Instructions: b.insns,
		},
	}, nil
}

// buildPrologue emits the full spec §4.8 dispatch prologue: control-surface
// acquisition, header reification, the log branch, the substitute branch
// (constructor chain-matching or plain functor dispatch), the delegate
// branch (reference-body inlining, present only when refMethod != nil), and
// finally the student body (present when studentBody != nil). At least one
// of studentBody/refMethod must be non-nil.
func (mt *methodTransformer) buildPrologue(computed header.MethodHeader, studentBody *classfile.CodeAttribute, refMethod *classfile.MethodInfo) (*classfile.CodeAttribute, error) {
	params, ret := classfile.ParamDescriptors(computed.Descriptor)
	isStatic := computed.Access&classfile.AccStatic != 0
	isCtor := computed.IsConstructor()
	plan := newSlotPlan(mt.self.ComputedHeader.Name, isStatic, params, isCtor)

	b := newPrologueBuilder(plan.maxLocals)

	subLbl := &classfile.Label{Name: "substitute"}
	delegLbl := &classfile.Label{Name: "delegate"}
	studentLbl := &classfile.Label{Name: "student"}

	b.aconstNull()
	b.astore(plan.csSlot)
	header.BuildMethodHeader(b, computed)
	b.astore(plan.hdrSlot)

	baseFrame := plan.localsWith(objectVT(ControlSurfaceType), objectVT(header.MethodHeaderType))

	// log branch
	logFalse := &classfile.Label{Name: "logFalse"}
	b.aload(plan.hdrSlot)
	b.invokeStatic(ControlSurfaceType, "logInvocation", descLogInvocation)
	b.ifEq(logFalse)
	b.aload(plan.hdrSlot)
	mt.emitBuildInvocation(b, plan, computed, isStatic, isCtor)
	b.invokeStatic(ControlSurfaceType, "addInvocation", descAddInvocation)
	b.label(logFalse)
	b.frame(classfile.FrameFull, baseFrame)

	// substitute branch
	afterSub := studentLbl
	if refMethod != nil {
		afterSub = delegLbl
	}
	b.aload(plan.hdrSlot)
	b.invokeStatic(ControlSurfaceType, "useSubstitution", descUseSubstitution)
	b.ifEq(afterSub)

	if isCtor {
		if err := mt.emitConstructorSubstitution(b, plan, computed); err != nil {
			return nil, err
		}
	} else {
		b.aload(plan.hdrSlot)
		b.invokeStatic(ControlSurfaceType, "getSubstitution", descGetSubstitution)
		b.astore(plan.functorSlot)
		b.aload(plan.functorSlot)
		mt.emitBuildInvocation(b, plan, computed, isStatic, isCtor)
		b.invokeInterface(FunctorType, "execute", descFunctorExecute)
		retSort := classfile.DescriptorSort(ret)
		emitUnbox(b, retSort, returnCastTarget(ret))
		b.Emit(classfile.RawInstruction{Opcode: classfile.ReturnOpcodeFor(retSort)})
	}

	carry := &codeCarry{}

	if refMethod != nil {
		b.label(delegLbl)
		b.frame(classfile.FrameFull, baseFrame)
		b.aload(plan.hdrSlot)
		b.invokeStatic(ControlSurfaceType, "useSubmissionImpl", descUseSubmissionImpl)
		b.ifNe(studentLbl)
		refCode := refMethod.Code.Clone()
		b.insns = append(b.insns, mt.retarget.Rewrite(refCode.Instructions)...)
		carry.append(refCode)
	}

	b.label(studentLbl)
	b.frame(classfile.FrameFull, baseFrame)
	if studentBody != nil {
		retargeted := mt.retargetedCode(studentBody)
		b.insns = append(b.insns, retargeted.Instructions...)
		carry.append(retargeted)
	} else if refMethod != nil {
		// TransformMissing's case: no submission body exists at all, so
		// the "student body" branch has nothing of its own to run; it
		// runs the same reference body a second time instead of leaving
		// a verifier-illegal empty fallthrough (see DESIGN.md).
		refCode := refMethod.Code.Clone()
		b.insns = append(b.insns, mt.retarget.Rewrite(refCode.Instructions)...)
		carry.append(refCode)
	}

	return &classfile.CodeAttribute{
		MaxStack:           estimateMaxStack(plan, studentBody, refMethod),
		MaxLocals:          plan.maxLocals,
		Instructions:       b.insns,
		ExceptionTable:     carry.exceptions,
		LocalVariableTable: carry.locals,
		LineNumberTable:    carry.lines,
	}, nil
}

// codeCarry accumulates the exception/local-variable/line-number tables of
// every inlined body (reference and/or student) into the one merged
// method's tables. Labels are compared by pointer identity throughout this
// package, so splicing several bodies' tables together needs no offset
// arithmetic -- each entry still points at the same Label it always did.
type codeCarry struct {
	exceptions []classfile.ExceptionTableEntry
	locals     []classfile.LocalVariableEntry
	lines      []classfile.LineNumberEntry
}

func (c *codeCarry) append(code *classfile.CodeAttribute) {
	c.exceptions = append(c.exceptions, code.ExceptionTable...)
	c.locals = append(c.locals, code.LocalVariableTable...)
	c.lines = append(c.lines, code.LineNumberTable...)
}

func estimateMaxStack(plan *slotPlan, studentBody *classfile.CodeAttribute, refMethod *classfile.MethodInfo) int {
	best := 8 // prologue's own deepest sequence (header/invocation construction)
	if studentBody != nil && studentBody.MaxStack > best {
		best = studentBody.MaxStack
	}
	if refMethod != nil && refMethod.Code != nil && refMethod.Code.MaxStack > best {
		best = refMethod.Code.MaxStack
	}
	return best
}

// emitBuildInvocation pushes a freshly constructed Invocation on top of
// whatever is already on the stack (spec §4.8 step 4/5 "build a fresh
// Invocation object"): NEW/DUP, the header, the receiver (or null), boxed
// parameters in declaration order.
func (mt *methodTransformer) emitBuildInvocation(b *prologueBuilder, plan *slotPlan, computed header.MethodHeader, isStatic, isCtor bool) {
	b.newObject(InvocationType)
	b.aload(plan.hdrSlot)
	if isStatic || isCtor {
		b.aconstNull()
	} else {
		b.aload(0)
	}
	b.invokeSpecial(InvocationType, "<init>", descInvocationInit)
	for i, d := range plan.paramDescs {
		s := classfile.DescriptorSort(d)
		b.dup()
		b.load(plan.paramSlots[i], s)
		emitBox(b, s)
		b.invokeVirtual(InvocationType, "addParameter", descAddParameter)
	}
}

// emitConstructorSubstitution is spec §4.8 step 5's constructor path:
// obtain a ConstructorInvocation, chain-match it against the direct
// superclass's constructors and this class's own constructors by exact
// (owner, descriptor) equality, invoke the matched <init>, then run the
// substitute's execute() once more for post-construction effects.
func (mt *methodTransformer) emitConstructorSubstitution(b *prologueBuilder, plan *slotPlan, computed header.MethodHeader) error {
	candidates := mt.constructorCandidates()

	b.aload(plan.hdrSlot)
	b.invokeStatic(ControlSurfaceType, "getSubstitution", descGetSubstitution)
	b.astore(plan.functorSlot)
	b.aload(plan.functorSlot)
	mt.emitBuildInvocation(b, plan, computed, computed.Access&classfile.AccStatic != 0, true)
	b.invokeInterface(FunctorType, "buildConstructor", descBuildConstructor)
	b.astore(plan.ctorInvSlot)
	b.aload(plan.ctorInvSlot)
	b.invokeVirtual(ConstructorInvocationType, "args", descConstructorInvArgs)
	b.astore(plan.argsArrSlot)

	chainFrame := plan.localsWith(
		objectVT(ControlSurfaceType), objectVT(header.MethodHeaderType),
		objectVT(FunctorType), objectVT(ConstructorInvocationType), objectVT("[Ljava/lang/Object;"),
	)

	postChainLbl := &classfile.Label{Name: "ctorChainDone"}

	for _, cand := range candidates {
		nextLbl := &classfile.Label{Name: "ctorCandidate"}

		b.aload(plan.ctorInvSlot)
		b.invokeVirtual(ConstructorInvocationType, "owner", descConstructorInvOwner)
		b.Emit(classfile.LdcInstruction{Value: cand.Owner})
		b.invokeVirtual("java/lang/Object", "equals", "(Ljava/lang/Object;)Z")
		b.ifEq(nextLbl)

		b.aload(plan.ctorInvSlot)
		b.invokeVirtual(ConstructorInvocationType, "descriptor", descConstructorInvDesc)
		b.Emit(classfile.LdcInstruction{Value: cand.Descriptor})
		b.invokeVirtual("java/lang/Object", "equals", "(Ljava/lang/Object;)Z")
		b.ifEq(nextLbl)

		b.aload(0)
		params, _ := classfile.ParamDescriptors(cand.Descriptor)
		for i, p := range params {
			s := classfile.DescriptorSort(p)
			b.aload(plan.argsArrSlot)
			b.Emit(classfile.LdcInstruction{Value: int32(i)})
			b.Emit(classfile.RawInstruction{Opcode: 0x32}) // aaload
			emitUnbox(b, s, returnCastTarget(p))
		}
		b.invokeSpecial(cand.Owner, "<init>", cand.Descriptor)
		b.goTo(postChainLbl)

		b.label(nextLbl)
		b.frame(classfile.FrameFull, chainFrame)
	}

	b.newObject(NoMatchingConstructorType)
	b.invokeSpecial(NoMatchingConstructorType, "<init>", descNoMatchingCtorInit)
	b.athrow()

	b.label(postChainLbl)
	b.frame(classfile.FrameFull, chainFrame)
	b.aload(plan.functorSlot)
	mt.emitBuildInvocation(b, plan, computed, false, true)
	b.invokeInterface(FunctorType, "execute", descFunctorExecute)
	b.pop()
	b.Emit(classfile.RawInstruction{Opcode: classfile.OpReturn})
	return nil
}

// constructorCandidates gathers the direct superclass's constructors
// (already isolated by submission.mergeSupertypes into
// SuperClassConstructors) followed by this class's own, sorted by
// (owner, descriptor) for deterministic bytecode output across runs (spec
// §8 "deterministic output").
func (mt *methodTransformer) constructorCandidates() []header.MethodHeader {
	var out []header.MethodHeader
	for _, b := range mt.self.SuperClassConstructors {
		out = append(out, b.Computed)
	}
	for _, b := range mt.self.Methods {
		if b.Computed.IsConstructor() {
			out = append(out, b.Computed)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Owner != out[j].Owner {
			return out[i].Owner < out[j].Owner
		}
		return out[i].Descriptor < out[j].Descriptor
	})
	return out
}
