/*
 * classmerge - a JVM class-merging grading harness transformer
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

// Package classfile models the JVM class-file format (JVM spec SE17 §4) at the
// level of detail the class-merging transformer needs: constant pool entries,
// field/method declarations, and method bodies as a replayable instruction
// sequence. It knows nothing about fuzzy matching, reference binding, or
// dispatch prologues -- those live in header, similarity, refclass,
// submission, and transform. classfile only parses bytes in and writes bytes
// out.
package classfile

// Version ≥ 52 (Java 8) is the floor this transformer supports, per spec §6.
const MinMajorVersion = 52

// Access flag bits (JVM spec §4.1, §4.5, §4.6).
const (
	AccPublic       = 0x0001
	AccPrivate      = 0x0002
	AccProtected    = 0x0004
	AccStatic       = 0x0008
	AccFinal        = 0x0010
	AccSuper        = 0x0020
	AccSynchronized = 0x0020
	AccVolatile     = 0x0040
	AccBridge       = 0x0040
	AccTransient    = 0x0080
	AccVarargs      = 0x0080
	AccNative       = 0x0100
	AccInterface    = 0x0200
	AccAbstract     = 0x0400
	AccStrict       = 0x0800
	AccSynthetic    = 0x1000
	AccAnnotation   = 0x2000
	AccEnum         = 0x4000
	AccModule       = 0x8000
)

// ClassFile is the fully parsed representation of one .class file. Unlike the
// teacher's ParsedClass (classloader.go), which is shaped for loading a class
// into a running JVM, ClassFile is shaped for round-tripping: every auxiliary
// structure that Parse reads, Write can re-emit (method bodies are laid out
// afresh, so the bytes need not be identical to the input).
type ClassFile struct {
	MinorVersion int
	MajorVersion int

	CP ConstantPool

	AccessFlags int
	ThisClass   string // internal name, e.g. "com/example/Foo"
	SuperClass  string // "" only for java/lang/Object
	Interfaces  []string

	Fields  []*FieldInfo
	Methods []*MethodInfo

	Attributes []Attribute // class-level attributes (SourceFile, InnerClasses, BootstrapMethods, ...)

	Bootstraps []BootstrapMethod
}

// IsInterface, IsEnum, IsAnnotation, IsSynthetic mirror the teacher's
// per-class boolean flags (classloader.go ParsedClass.classIs*), computed on
// demand instead of cached, since AccessFlags is the single source of truth
// here.
func (c *ClassFile) IsInterface() bool { return c.AccessFlags&AccInterface != 0 }
func (c *ClassFile) IsEnum() bool      { return c.AccessFlags&AccEnum != 0 }
func (c *ClassFile) IsAnnotation() bool {
	return c.AccessFlags&AccAnnotation != 0
}
func (c *ClassFile) IsSynthetic() bool { return c.AccessFlags&AccSynthetic != 0 }

// FieldInfo is one declared field.
type FieldInfo struct {
	AccessFlags int
	Name        string
	Descriptor  string
	Attributes  []Attribute

	// ConstValue holds the decoded ConstantValue attribute, if any -- see
	// SPEC_FULL.md §C "Constant-value field initializers", completing the
	// TODO left in the teacher's jvm/instantiate.go.
	ConstValue interface{} // nil, int32, int64, float32, float64, or string
}

func (f *FieldInfo) IsStatic() bool { return f.AccessFlags&AccStatic != 0 }

// MethodInfo is one declared method, including <init> and <clinit>.
type MethodInfo struct {
	AccessFlags int
	Name        string
	Descriptor  string
	Attributes  []Attribute
	Exceptions  []string // internal names, from the Exceptions attribute

	Code *CodeAttribute // nil for abstract/native methods
}

func (m *MethodInfo) IsStatic() bool      { return m.AccessFlags&AccStatic != 0 }
func (m *MethodInfo) IsConstructor() bool { return m.Name == "<init>" }
func (m *MethodInfo) IsClinit() bool      { return m.Name == "<clinit>" }
func (m *MethodInfo) IsAbstract() bool    { return m.AccessFlags&AccAbstract != 0 }
func (m *MethodInfo) IsNative() bool      { return m.AccessFlags&AccNative != 0 }

// LambdaHelperPrefix is the bytecode-naming convention `javac` uses for
// synthetic lambda bodies (spec §4.4, §4.5: "synthetic lambda helpers").
const LambdaHelperPrefix = "lambda$"

func (m *MethodInfo) IsLambdaHelper() bool {
	return m.AccessFlags&AccSynthetic != 0 && len(m.Name) > len(LambdaHelperPrefix) &&
		m.Name[:len(LambdaHelperPrefix)] == LambdaHelperPrefix
}

// BootstrapMethod is one entry of the BootstrapMethods attribute (used by
// invokedynamic call sites, e.g. lambda metafactory bootstraps).
type BootstrapMethod struct {
	MethodHandleRef int
	Arguments       []int // CP indexes of loadable arguments
}
