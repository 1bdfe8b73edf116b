/*
 * classmerge - a JVM class-merging grading harness transformer
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

// Package jnibridge is the stable-ABI registration table spec §6 describes
// as "Stable names the emitted prologue calls by name": a map from the
// dispatch prologue's static-call targets (owner/name/descriptor, exactly
// as transform/abi.go reifies them into bytecode) to the control package's
// Go implementation. A host that executes the merged class-file natively
// in-process -- the teacher is itself a Go-written JVM, and this repo's own
// control surface is plain Go state, not a separate JVM-side library --
// resolves an INVOKESTATIC to one of these owners by consulting this table
// instead of loading an actual ControlSurface class, the same native-method
// trampoline arrangement the teacher's gfunction registration table
// (owner.name+descriptor -> Go func) provides for java.lang/java.util
// intrinsics it never interprets as bytecode either.
package jnibridge

import (
	"github.com/tudalgo/classmerge/control"
	"github.com/tudalgo/classmerge/header"
	"github.com/tudalgo/classmerge/invocation"
	"github.com/tudalgo/classmerge/transform"
)

// Trampoline is one ABI entry: the Go function a host invokes in place of
// an actual bytecode call to owner.name+descriptor.
type Trampoline struct {
	Owner, Name, Descriptor string
	Invoke                  func(args ...interface{}) (interface{}, error)
}

// key mirrors context/stdlib_replacements.go's "<owner>.<name><descriptor>"
// string keying, the same registration-table idiom used throughout this
// repo for owner/name/descriptor-addressed Go functions.
func key(owner, name, descriptor string) string { return owner + "." + name + descriptor }

// Table is the full stable ABI (spec §4.9's "three internal accessors...
// are the only operations invoked by emitted bytecode"), keyed the same way
// context.stdlibTrampolines is.
var Table = map[string]Trampoline{}

func register(owner, name, descriptor string, fn func(args ...interface{}) (interface{}, error)) {
	Table[key(owner, name, descriptor)] = Trampoline{Owner: owner, Name: name, Descriptor: descriptor, Invoke: fn}
}

func init() {
	register(transform.ControlSurfaceType, "logInvocation", "(L"+header.MethodHeaderType+";)Z",
		func(args ...interface{}) (interface{}, error) {
			return control.LogInvocation(args[0].(header.MethodHeader)), nil
		})
	register(transform.ControlSurfaceType, "addInvocation", "(L"+header.MethodHeaderType+";L"+transform.InvocationType+";)V",
		func(args ...interface{}) (interface{}, error) {
			control.AddInvocation(args[0].(header.MethodHeader), args[1].(*invocation.Invocation))
			return nil, nil
		})
	register(transform.ControlSurfaceType, "useSubstitution", "(L"+header.MethodHeaderType+";)Z",
		func(args ...interface{}) (interface{}, error) {
			return control.UseSubstitution(args[0].(header.MethodHeader)), nil
		})
	register(transform.ControlSurfaceType, "getSubstitution", "(L"+header.MethodHeaderType+";)L"+transform.FunctorType+";",
		func(args ...interface{}) (interface{}, error) {
			return control.GetSubstitution(args[0].(header.MethodHeader)), nil
		})
	register(transform.ControlSurfaceType, "useSubmissionImpl", "(L"+header.MethodHeaderType+";)Z",
		func(args ...interface{}) (interface{}, error) {
			return control.UseSubmissionImpl(args[0].(header.MethodHeader)), nil
		})
}

// Resolve looks up the trampoline for a static call the dispatch prologue
// emits against owner.name+descriptor, or ok=false if owner is not part of
// this repo's own ABI (e.g. a genuine reference/submission class method,
// which a real class loader resolves instead).
func Resolve(owner, name, descriptor string) (Trampoline, bool) {
	t, ok := Table[key(owner, name, descriptor)]
	return t, ok
}
