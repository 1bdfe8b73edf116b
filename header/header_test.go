/*
 * classmerge - a JVM class-merging grading harness transformer
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package header

import "testing"

// Raw JVM access-flag bit values (JVM spec §4.1 table 4.1-A), used here only
// to exercise the equality contract with differing access -- header
// deliberately has no dependency on classfile's own Acc* constants.
const (
	accPublic = 0x0001
	accStatic = 0x0008
	accFinal  = 0x0010
)

// TestEqualityContract is spec §4.1: ClassHeader/FieldHeader equal by name
// only; MethodHeader equal by (name, descriptor); access and owner are
// deliberately excluded from identity since a member may migrate owners
// mid-transformation.
func TestEqualityContract(t *testing.T) {
	a := ClassHeader{Name: "submission/Foo", Access: accPublic, SuperName: "java/lang/Object"}
	b := ClassHeader{Name: "submission/Foo", Access: accFinal, Interfaces: []string{"submission/Bar"}}
	if !a.Equal(b) {
		t.Error("ClassHeaders with equal names but different access/interfaces should be equal")
	}
	if a.Equal(ClassHeader{Name: "submission/Baz"}) {
		t.Error("ClassHeaders with different names should not be equal")
	}

	f1 := FieldHeader{Owner: "submission/Foo", Name: "count", Descriptor: "I"}
	f2 := FieldHeader{Owner: "reference/Foo", Name: "count", Descriptor: "J"}
	if !f1.Equal(f2) {
		t.Error("FieldHeaders with equal names but different owner/descriptor should be equal")
	}

	m1 := MethodHeader{Owner: "submission/Foo", Name: "foo", Descriptor: "(I)I"}
	m2 := MethodHeader{Owner: "reference/Foo", Name: "foo", Descriptor: "(I)I", Access: accStatic}
	if !m1.Equal(m2) {
		t.Error("MethodHeaders with equal (name, descriptor) should be equal despite owner/access differing")
	}
	m3 := MethodHeader{Owner: "submission/Foo", Name: "foo", Descriptor: "(J)I"}
	if m1.Equal(m3) {
		t.Error("MethodHeaders with different descriptors should not be equal")
	}
}

func TestKeyUsableAsMapKey(t *testing.T) {
	m := map[Key]bool{}
	h := MethodHeader{Owner: "submission/Foo", Name: "foo", Descriptor: "(I)I", Exceptions: []string{"java/lang/Exception"}}
	m[h.Key()] = true
	if !m[Key{Owner: "submission/Foo", Name: "foo", Descriptor: "(I)I"}] {
		t.Error("Key should be usable as a comparable map key independent of the non-comparable Exceptions slice")
	}
}
