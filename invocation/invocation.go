/*
 * classmerge - a JVM class-merging grading harness transformer
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

// Package invocation models the captured call context (spec §4.10, §3) a
// dispatch prologue builds and hands to the runtime control surface: the
// receiver (if any), a stack-trace snapshot, and boxed parameters in
// declaration order.
package invocation

import (
	"fmt"
	"reflect"
	"runtime"

	"github.com/tudalgo/classmerge/header"
)

// Frame is one stack-trace entry, analogous to a java.lang.StackTraceElement
// (declaring class, method, file, line).
type Frame struct {
	DeclaringClass string
	MethodName     string
	File           string
	Line           int
}

// Invocation is {declaringClass, methodHeader, stackTrace[1..], receiver?,
// parameters[]} (spec §4.10). StackTrace has its leading (self) frame
// already stripped at construction time, per spec: "Equality ignores the
// stack trace's leading (self) frame, which is stripped on construction."
type Invocation struct {
	DeclaringClass string
	Header         header.MethodHeader
	StackTrace     []Frame
	Receiver       interface{} // nil for static methods and constructors
	Parameters     []interface{}
}

// New captures a fresh Invocation for h, called from the top of an emitted
// method's dispatch prologue (spec §4.8 step 4 "build an Invocation object").
// receiver is nil for static methods. The stack trace is captured here, at
// construction, and its own frame is dropped immediately so every caller
// sees stackTrace[0] as the actual caller of h, never this constructor
// itself (spec §8 property 6: "each invocation's stackTrace[0] is the
// caller of H").
func New(h header.MethodHeader, receiver interface{}) *Invocation {
	return &Invocation{
		DeclaringClass: h.Owner,
		Header:         h,
		StackTrace:     captureStack(),
		Receiver:       receiver,
	}
}

// captureStack snapshots the Go call stack above New. The skip of 3 passed
// to runtime.Callers drops runtime.Callers itself, captureStack and New, so
// frame 0 is New's caller -- the merged method's prologue -- matching the
// self-frame-stripped contract above.
func captureStack() []Frame {
	pcs := make([]uintptr, 64)
	n := runtime.Callers(3, pcs)
	frames := runtime.CallersFrames(pcs[:n])
	var out []Frame
	for {
		f, more := frames.Next()
		out = append(out, Frame{
			DeclaringClass: f.Function,
			MethodName:     f.Function,
			File:           f.File,
			Line:           f.Line,
		})
		if !more {
			break
		}
	}
	return out
}

// AddParameter appends a boxed value in call order (spec §4.10 "Parameters
// are accumulated in call order via addParameter(boxedValue); primitive
// types are boxed at the call-site"). Boxing itself -- int32 -> the wrapper
// the test-side JVM expects -- happens at the bytecode emission call site
// (transform package); this method only appends whatever boxed
// representation it is given.
func (inv *Invocation) AddParameter(boxed interface{}) {
	inv.Parameters = append(inv.Parameters, boxed)
}

// Equal compares two invocations ignoring StackTrace (spec §4.10).
func (inv *Invocation) Equal(other *Invocation) bool {
	if inv == nil || other == nil {
		return inv == other
	}
	if inv.DeclaringClass != other.DeclaringClass || !inv.Header.Equal(other.Header) {
		return false
	}
	if !reflect.DeepEqual(inv.Receiver, other.Receiver) {
		return false
	}
	return reflect.DeepEqual(inv.Parameters, other.Parameters)
}

// ConstructorInvocation is the shape a constructor substitute returns (spec
// §4.8 step 5, §8 property 9): which constructor to chain to and its
// already-boxed arguments.
type ConstructorInvocation struct {
	Owner      string
	Descriptor string
	Args       []interface{}
}

// Dispatcher is the reflective-call surface callOriginal needs; transform's
// runtime support wires a concrete implementation backed by the host JVM's
// reflection API (out of scope here -- this package only defines the
// contract and the re-entrancy/teardown bookkeeping around it).
type Dispatcher interface {
	InvokeComputed(h header.MethodHeader, receiver interface{}, args []interface{}) (interface{}, error)
}

// CallOriginal invokes the computed method through d, temporarily disabling
// h's own substitution (to avoid re-entering the substitute that is
// presumably calling CallOriginal) and setting delegation per delegate,
// restoring both on exit regardless of outcome (spec §4.10 "callOriginal
// (delegate: bool, params…) ... with a guaranteed restore-on-exit").
//
// disable/enableSubstitution and setDelegation are injected rather than
// imported directly from control to avoid an import cycle (control depends
// on this package for its Substitute functor signature).
func CallOriginal(
	d Dispatcher,
	h header.MethodHeader,
	receiver interface{},
	delegate bool,
	params []interface{},
	disableSubstitution, restoreSubstitution func(header.MethodHeader),
	setDelegationDisabled func(header.MethodHeader, bool),
	wasDelegationDisabled func(header.MethodHeader) bool,
) (result interface{}, err error) {
	disableSubstitution(h)
	prevDisabled := wasDelegationDisabled(h)
	setDelegationDisabled(h, !delegate)
	defer func() {
		restoreSubstitution(h)
		setDelegationDisabled(h, prevDisabled)
	}()
	return d.InvokeComputed(h, receiver, params)
}

func (inv *Invocation) String() string {
	return fmt.Sprintf("Invocation{%s.%s%s, params=%v}", inv.DeclaringClass, inv.Header.Name, inv.Header.Descriptor, inv.Parameters)
}
