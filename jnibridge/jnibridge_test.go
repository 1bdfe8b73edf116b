/*
 * classmerge - a JVM class-merging grading harness transformer
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package jnibridge

import (
	"testing"

	"github.com/tudalgo/classmerge/control"
	"github.com/tudalgo/classmerge/header"
	"github.com/tudalgo/classmerge/invocation"
	"github.com/tudalgo/classmerge/transform"
)

func TestResolveFindsEveryControlSurfaceMethod(t *testing.T) {
	names := []string{"logInvocation", "addInvocation", "useSubstitution", "getSubstitution", "useSubmissionImpl"}
	for _, name := range names {
		found := false
		for _, tr := range Table {
			if tr.Owner == transform.ControlSurfaceType && tr.Name == name {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("no registered trampoline for %s.%s", transform.ControlSurfaceType, name)
		}
	}
}

func TestResolveUnknownOwnerIsNotFound(t *testing.T) {
	if _, ok := Resolve("submission/Foo", "bar", "()V"); ok {
		t.Error("Resolve should not find a trampoline for a non-ABI owner")
	}
}

func TestLogInvocationTrampolineDelegatesToControl(t *testing.T) {
	control.ResetAll()
	defer control.ResetAll()

	h := header.MethodHeader{Owner: "submission/Foo", Name: "foo", Descriptor: "(I)I"}
	tr, ok := Resolve(transform.ControlSurfaceType, "logInvocation", "(L"+header.MethodHeaderType+";)Z")
	if !ok {
		t.Fatal("logInvocation trampoline not found")
	}

	before, err := tr.Invoke(h)
	if err != nil || before != false {
		t.Fatalf("logInvocation before EnableLogging = (%v,%v), want (false,nil)", before, err)
	}

	control.EnableLogging(h)
	after, err := tr.Invoke(h)
	if err != nil || after != true {
		t.Fatalf("logInvocation after EnableLogging = (%v,%v), want (true,nil)", after, err)
	}
}

func TestAddInvocationTrampolineAppendsToControl(t *testing.T) {
	control.ResetAll()
	defer control.ResetAll()

	h := header.MethodHeader{Owner: "submission/Foo", Name: "foo", Descriptor: "(I)I"}
	control.EnableLogging(h)

	addTr, _ := Resolve(transform.ControlSurfaceType, "addInvocation", "(L"+header.MethodHeaderType+";L"+transform.InvocationType+";)V")
	inv := invocation.New(h, nil)
	if _, err := addTr.Invoke(h, inv); err != nil {
		t.Fatalf("addInvocation trampoline failed: %v", err)
	}

	got := control.GetInvocations(h)
	if len(got) != 1 || got[0] != inv {
		t.Errorf("GetInvocations after addInvocation trampoline = %v, want [%v]", got, inv)
	}
}
