/*
 * classmerge - a JVM class-merging grading harness transformer
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package classfile

import "testing"

// These are the tests in this file (in order of appearance):
//
// ---- modified UTF-8 ----
// ASCII and embedded-null round trip		TestModifiedUTF8RoundTrip
//
// ---- descriptor helpers ----
// sort classification					TestDescriptorSort
// array dimension stripping			TestArrayDimensions
// method descriptor split/build		TestParamDescriptorsRoundTrip
//
// ---- constant pool ----
// find-or-add idempotency				TestConstantPoolFindOrAdd
// long/double dummy slot				TestConstantPoolLongOccupiesTwoSlots
//
// ---- end-to-end ----
// build a class with the writer,
// parse it back, and compare			TestWriteThenParseRoundTrip

func TestModifiedUTF8RoundTrip(t *testing.T) {
	cases := []string{"", "hello", "with\x00null", "über cool"}
	for _, s := range cases {
		enc := encodeModifiedUTF8(s)
		got := decodeModifiedUTF8(enc)
		if got != s {
			t.Errorf("round trip of %q produced %q", s, got)
		}
	}
}

func TestDescriptorSort(t *testing.T) {
	tests := map[string]Sort{
		"I":               SortInt,
		"J":               SortLong,
		"Z":               SortBoolean,
		"Ljava/lang/Foo;": SortObject,
		"[I":              SortArray,
		"":                SortVoid,
	}
	for desc, want := range tests {
		if got := DescriptorSort(desc); got != want {
			t.Errorf("DescriptorSort(%q) = %v, want %v", desc, got, want)
		}
	}
}

func TestArrayDimensions(t *testing.T) {
	dims, elem := ArrayDimensions("[[Lfoo/Bar;")
	if dims != 2 || elem != "Lfoo/Bar;" {
		t.Errorf("got (%d, %q), want (2, \"Lfoo/Bar;\")", dims, elem)
	}
	dims, elem = ArrayDimensions("I")
	if dims != 0 || elem != "I" {
		t.Errorf("got (%d, %q), want (0, \"I\")", dims, elem)
	}
}

func TestParamDescriptorsRoundTrip(t *testing.T) {
	desc := "(ILjava/lang/String;[J)Z"
	params, ret := ParamDescriptors(desc)
	want := []string{"I", "Ljava/lang/String;", "[J"}
	if len(params) != len(want) {
		t.Fatalf("got %d params, want %d", len(params), len(want))
	}
	for i := range want {
		if params[i] != want[i] {
			t.Errorf("param %d = %q, want %q", i, params[i], want[i])
		}
	}
	if ret != "Z" {
		t.Errorf("ret = %q, want %q", ret, "Z")
	}
	if rebuilt := BuildMethodDescriptor(params, ret); rebuilt != desc {
		t.Errorf("BuildMethodDescriptor = %q, want %q", rebuilt, desc)
	}
}

func TestConstantPoolFindOrAdd(t *testing.T) {
	cp := NewConstantPool()
	first := cp.Utf8Index("foo/Bar")
	second := cp.Utf8Index("foo/Bar")
	if first != second {
		t.Errorf("Utf8Index not idempotent: %d != %d", first, second)
	}
	classFirst := cp.ClassIndex("foo/Bar")
	classSecond := cp.ClassIndex("foo/Bar")
	if classFirst != classSecond {
		t.Errorf("ClassIndex not idempotent: %d != %d", classFirst, classSecond)
	}
}

func TestConstantPoolLongOccupiesTwoSlots(t *testing.T) {
	cp := NewConstantPool()
	idx := cp.Add(CPLong{Value: 42})
	next := cp.Add(CPUtf8{Value: "after"})
	if next != idx+2 {
		t.Errorf("entry after a Long landed at %d, want %d (dummy slot skipped)", next, idx+2)
	}
	if _, err := cp.At(idx + 1); err == nil {
		t.Errorf("the dummy slot after a Long should be unusable")
	}
}

func TestWriteThenParseRoundTrip(t *testing.T) {
	cf := &ClassFile{
		MinorVersion: 0,
		MajorVersion: 61,
		CP:           *NewConstantPool(),
		AccessFlags:  AccPublic | AccSuper,
		ThisClass:    "com/example/Greeter",
		SuperClass:   "java/lang/Object",
	}
	cf.CP.ClassIndex(cf.ThisClass)
	cf.CP.ClassIndex(cf.SuperClass)

	cf.Fields = append(cf.Fields, &FieldInfo{
		AccessFlags: AccPrivate,
		Name:        "greeting",
		Descriptor:  "Ljava/lang/String;",
	})

	label := &Label{Name: "entry"}
	code := &CodeAttribute{
		MaxStack:  1,
		MaxLocals: 1,
		Instructions: []Instruction{
			LabelInstruction{Label: label},
			VarInstruction{Opcode: OpALoad, Slot: 0},
			RawInstruction{Opcode: OpReturn},
		},
		LineNumberTable: []LineNumberEntry{{Start: label, Line: 10}},
	}
	cf.Methods = append(cf.Methods, &MethodInfo{
		AccessFlags: AccPublic,
		Name:        "<init>",
		Descriptor:  "()V",
		Code:        code,
	})

	out, err := Write(cf)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}

	parsed, err := Parse(out)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if parsed.ThisClass != cf.ThisClass {
		t.Errorf("ThisClass = %q, want %q", parsed.ThisClass, cf.ThisClass)
	}
	if parsed.SuperClass != cf.SuperClass {
		t.Errorf("SuperClass = %q, want %q", parsed.SuperClass, cf.SuperClass)
	}
	if len(parsed.Fields) != 1 || parsed.Fields[0].Name != "greeting" {
		t.Fatalf("fields did not round trip: %+v", parsed.Fields)
	}
	if len(parsed.Methods) != 1 || parsed.Methods[0].Name != "<init>" {
		t.Fatalf("methods did not round trip: %+v", parsed.Methods)
	}
	m := parsed.Methods[0]
	if m.Code == nil {
		t.Fatalf("parsed method lost its Code attribute")
	}
	if len(m.Code.LineNumberTable) != 1 || m.Code.LineNumberTable[0].Line != 10 {
		t.Errorf("line number table did not round trip: %+v", m.Code.LineNumberTable)
	}
}
