/*
 * classmerge - a JVM class-merging grading harness transformer
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

// Package header models the three header kinds (class, field, method) the
// rest of this repo keys its name/descriptor translation logic on, plus the
// bytecode-reification step ("buildHeader") the method transformer uses to
// hand a live header object to the runtime control surface. Equality here is
// intentionally loose -- identity is purely by name (or name+descriptor for
// methods), never by access or owner, because the same logical member can
// migrate across owners mid-transformation (spec §4.1).
package header

// ABI internal names the emitted prologue constructs instances of. These are
// the stable contract with the test-side runtime support library (spec §6
// "Test-side ABI"); this repo never defines their bodies, only reifies calls
// against them, the same way the teacher's gfunction package calls into
// java/lang classes it never implements itself.
const (
	ClassHeaderType  = "org/classmerge/runtime/ClassHeader"
	FieldHeaderType  = "org/classmerge/runtime/FieldHeader"
	MethodHeaderType = "org/classmerge/runtime/MethodHeader"
)

// ClassHeader is {access, name, signature?, superName?, interfaces[]}.
// Identity = name (spec §4.1).
type ClassHeader struct {
	Access     int
	Name       string
	Signature  string // "" if absent
	SuperName  string // "" for java/lang/Object
	Interfaces []string
}

func (h ClassHeader) Equal(o ClassHeader) bool { return h.Name == o.Name }

// FieldHeader is {owner, access, name, descriptor, signature?}.
// Identity = name, scoped by the owning map (spec §4.1).
type FieldHeader struct {
	Owner      string
	Access     int
	Name       string
	Descriptor string
	Signature  string
}

func (h FieldHeader) Equal(o FieldHeader) bool { return h.Name == o.Name }

// MethodHeader is {owner, access, name, descriptor, signature?, exceptions[]}.
// Identity = (name, descriptor) (spec §4.1).
type MethodHeader struct {
	Owner      string
	Access     int
	Name       string
	Descriptor string
	Signature  string
	Exceptions []string
}

func (h MethodHeader) Equal(o MethodHeader) bool {
	return h.Name == o.Name && h.Descriptor == o.Descriptor
}

// IsConstructor, IsClinit mirror classfile.MethodInfo's helpers; kept here
// too since transform often holds a MethodHeader without the MethodInfo it
// came from.
func (h MethodHeader) IsConstructor() bool { return h.Name == "<init>" }
func (h MethodHeader) IsClinit() bool      { return h.Name == "<clinit>" }

// Key is a comparable form of MethodHeader/FieldHeader/ClassHeader suitable
// for use as a map key where the header itself carries a slice field
// (Interfaces, Exceptions) and so is not comparable. The runtime control
// surface (control package) keys all three of its registries this way (spec
// §4.9 "every operation keys on MethodHeader.owner + MethodHeader.(name,
// descriptor)").
type Key struct {
	Owner      string
	Name       string
	Descriptor string
}

func (h MethodHeader) Key() Key {
	return Key{Owner: h.Owner, Name: h.Name, Descriptor: h.Descriptor}
}

func (h FieldHeader) Key() Key {
	return Key{Owner: h.Owner, Name: h.Name}
}
