/*
 * classmerge - a JVM class-merging grading harness transformer
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package submission

import (
	"testing"

	"github.com/tudalgo/classmerge/classfile"
	"github.com/tudalgo/classmerge/header"
	"github.com/tudalgo/classmerge/refclass"
)

func referenceWithOneOverload() *refclass.ReferenceClass {
	cf := &classfile.ClassFile{
		ThisClass: "ref/Demo",
		Methods: []*classfile.MethodInfo{
			{AccessFlags: classfile.AccPublic, Name: "foo", Descriptor: "(I)I"},
		},
	}
	return refclass.FromClassFile(cf)
}

// TestResolveMethodsOverloadClaimIsInjective is spec §3 invariant 3 / §8
// property 4: two distinct submission overloads sharing a name must never
// both resolve to the same reference method. The reference here declares a
// single foo(I)I; the submission declares foo(I)I (an exact arity match) and
// foo(JJ)I (arity 2, a worse match) -- only the closer overload may claim
// the reference method, the other must fall back to identity.
func TestResolveMethodsOverloadClaimIsInjective(t *testing.T) {
	cf := &classfile.ClassFile{
		ThisClass: "sub/Demo",
		Methods: []*classfile.MethodInfo{
			{AccessFlags: classfile.AccPublic, Name: "foo", Descriptor: "(I)I"},
			{AccessFlags: classfile.AccPublic, Name: "foo", Descriptor: "(JJ)I"},
		},
	}
	info, err := Scan(cf)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}

	ref := referenceWithOneOverload()
	in := ResolveInput{Reference: ref, SimilarityThreshold: 0.8}
	if err := info.Resolve(in); err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	exact := info.Methods[header.Key{Owner: "sub/Demo", Name: "foo", Descriptor: "(I)I"}]
	worse := info.Methods[header.Key{Owner: "sub/Demo", Name: "foo", Descriptor: "(JJ)I"}]

	if exact.Computed.Owner != "ref/Demo" || exact.Computed.Descriptor != "(I)I" {
		t.Errorf("exact-arity overload should claim the reference method, got %+v", exact.Computed)
	}
	if worse.Computed != worse.Original {
		t.Errorf("losing overload should fall back to identity, got %+v want %+v", worse.Computed, worse.Original)
	}
	if exact.Computed.Key() == worse.Computed.Key() {
		t.Error("two distinct submission overloads must not resolve to the same reference method")
	}
}

// TestResolveMethodsTiedOverloadsAreDeterministic checks that when two
// submission overloads are equally far from the single reference overload,
// the winner is picked the same way on every run (spec §5 Determinism) --
// sorted (name, descriptor) order breaks the tie, so the lexicographically
// first descriptor always wins.
func TestResolveMethodsTiedOverloadsAreDeterministic(t *testing.T) {
	cf := &classfile.ClassFile{
		ThisClass: "sub/Demo",
		Methods: []*classfile.MethodInfo{
			{AccessFlags: classfile.AccPublic, Name: "foo", Descriptor: "(JJ)I"}, // arity 2, diff 1 from ref's arity 1
			{AccessFlags: classfile.AccPublic, Name: "foo", Descriptor: "()I"},   // arity 0, diff 1 from ref's arity 1
		},
	}

	var winner header.Key
	for i := 0; i < 5; i++ {
		info, err := Scan(cf)
		if err != nil {
			t.Fatalf("Scan: %v", err)
		}
		ref := referenceWithOneOverload()
		if err := info.Resolve(ResolveInput{Reference: ref, SimilarityThreshold: 0.8}); err != nil {
			t.Fatalf("Resolve: %v", err)
		}

		a := info.Methods[header.Key{Owner: "sub/Demo", Name: "foo", Descriptor: "(JJ)I"}]
		b := info.Methods[header.Key{Owner: "sub/Demo", Name: "foo", Descriptor: "()I"}]

		var claimant header.Key
		switch {
		case a.Computed.Owner == "ref/Demo":
			claimant = a.Original.Key()
		case b.Computed.Owner == "ref/Demo":
			claimant = b.Original.Key()
		default:
			t.Fatal("neither overload claimed the reference method")
		}
		if i == 0 {
			winner = claimant
		} else if claimant != winner {
			t.Fatalf("run %d: claimant changed from %+v to %+v", i, winner, claimant)
		}
	}
}
