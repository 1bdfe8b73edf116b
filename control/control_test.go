/*
 * classmerge - a JVM class-merging grading harness transformer
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package control

import (
	"testing"

	"github.com/tudalgo/classmerge/header"
	"github.com/tudalgo/classmerge/invocation"
)

func fooHeader() header.MethodHeader {
	return header.MethodHeader{Owner: "submission/Foo", Name: "foo", Descriptor: "(I)I"}
}

// TestLoggingLaw is spec §8 property 6: enabling logging then invoking the
// merged method k times with argument tuples a1..ak makes GetInvocations
// return exactly those invocations in order.
func TestLoggingLaw(t *testing.T) {
	ResetAll()
	defer ResetAll()

	h := fooHeader()
	if GetInvocations(h) != nil {
		t.Fatal("unmonitored header should return nil")
	}

	EnableLogging(h)
	if !LogInvocation(h) {
		t.Fatal("logInvocation should be true once enabled")
	}

	for _, arg := range []int{41, 42} {
		inv := invocation.New(h, nil)
		inv.AddParameter(arg)
		AddInvocation(h, inv)
	}

	got := GetInvocations(h)
	if len(got) != 2 {
		t.Fatalf("GetInvocations returned %d invocations, want 2", len(got))
	}
	if got[0].Parameters[0] != 41 || got[1].Parameters[0] != 42 {
		t.Errorf("invocations out of order: %v", got)
	}

	DisableLogging(h)
	if GetInvocations(h) != nil {
		t.Error("GetInvocations after DisableLogging should return nil")
	}
}

// TestGetInvocationsSnapshotIsImmutable ensures a caller mutating the
// returned slice cannot corrupt the registry's own backing array.
func TestGetInvocationsSnapshotIsImmutable(t *testing.T) {
	ResetAll()
	defer ResetAll()

	h := fooHeader()
	EnableLogging(h)
	AddInvocation(h, invocation.New(h, nil))

	snap := GetInvocations(h)
	snap[0] = nil

	again := GetInvocations(h)
	if again[0] == nil {
		t.Error("mutating a returned snapshot corrupted the registry's state")
	}
}

// TestSubstitutionPreemptsDelegation is spec §8 property 7: with a
// substitute installed, useSubmissionImpl must never even be consulted by
// the real prologue (we can't exercise emitted bytecode here), but the
// control surface itself must report substitution regardless of the
// delegation-disabled state.
func TestSubstitutionPreemptsDelegation(t *testing.T) {
	ResetAll()
	defer ResetAll()

	h := fooHeader()
	EnableSubstitution(h, func(inv *invocation.Invocation) (interface{}, error) { return 4, nil })
	DisableDelegation(h) // delegation state is irrelevant once substituted

	if !UseSubstitution(h) {
		t.Fatal("UseSubstitution should be true once a substitute is installed")
	}
	fn := GetSubstitution(h)
	if fn == nil {
		t.Fatal("GetSubstitution returned nil despite EnableSubstitution")
	}
	result, err := fn(invocation.New(h, nil))
	if err != nil || result != 4 {
		t.Errorf("substitute returned (%v, %v), want (4, nil)", result, err)
	}
}

// TestDefaultDelegation is spec §8 property 8: with no control-surface
// mutations, useSubmissionImpl is false (delegate to reference) by default.
func TestDefaultDelegation(t *testing.T) {
	ResetAll()
	defer ResetAll()

	h := fooHeader()
	if UseSubmissionImpl(h) {
		t.Error("useSubmissionImpl should default to false (delegate to reference)")
	}

	DisableDelegation(h)
	if !UseSubmissionImpl(h) {
		t.Error("useSubmissionImpl should be true after DisableDelegation")
	}

	EnableDelegation(h)
	if UseSubmissionImpl(h) {
		t.Error("useSubmissionImpl should be false again after EnableDelegation")
	}
}

func TestResetAllClearsEveryRegistry(t *testing.T) {
	h := fooHeader()
	EnableLogging(h)
	AddInvocation(h, invocation.New(h, nil))
	EnableSubstitution(h, func(inv *invocation.Invocation) (interface{}, error) { return nil, nil })
	DisableDelegation(h)

	ResetAll()

	if GetInvocations(h) != nil {
		t.Error("ResetAll should clear logging")
	}
	if UseSubstitution(h) {
		t.Error("ResetAll should clear substitutions")
	}
	if UseSubmissionImpl(h) {
		t.Error("ResetAll should clear the delegation exclusion set")
	}
}
