/*
 * classmerge - a JVM class-merging grading harness transformer
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

// Package forcedsig parses the forced-signature annotation (spec §4.3) that
// lets a student pin a fuzzy-mapping decision instead of leaving it to
// similarity.Match. The annotation's raw bytes come from a class/field/
// method's RuntimeVisibleAnnotations attribute (classfile.Attribute),
// already separated out by classfile -- this package only interprets the
// element-value pairs of the one annotation type it recognizes.
package forcedsig

import (
	"encoding/binary"

	"github.com/tudalgo/classmerge/classfile"
)

// AnnotationType is the field descriptor (as an annotation's type_index
// Utf8 entry spells it) of the recognized forced-signature annotation.
const AnnotationType = "Lorg/classmerge/runtime/ForcedSignature;"

// Forced is one parsed annotation instance (spec §4.3): identifier is
// required; descriptor is used verbatim if present, otherwise synthesized
// from ReturnType/ParameterTypes ("If both are present, the literal
// descriptor wins"). For types and fields only Identifier is consulted.
type Forced struct {
	Identifier     string
	Descriptor     string // "" if not explicitly given
	ReturnType     string // descriptor form, "" if absent
	ParameterTypes []string
}

// EffectiveDescriptor returns Descriptor if set, else one built from
// ParameterTypes/ReturnType, else "".
func (f Forced) EffectiveDescriptor() string {
	if f.Descriptor != "" {
		return f.Descriptor
	}
	if f.ReturnType == "" && len(f.ParameterTypes) == 0 {
		return ""
	}
	return classfile.BuildMethodDescriptor(f.ParameterTypes, f.ReturnType)
}

// Parse scans a RuntimeVisibleAnnotations attribute body (JVM spec §4.7.16)
// for the first ForcedSignature annotation and returns it, or ok=false if
// none is present. A class/field/method carries at most one -- a second one
// attached to the same element is a student authoring mistake this package
// leaves for the caller to reject (collisions are detected at the binding
// level, across elements, not within one attribute).
func Parse(attrs []classfile.Attribute, cp *classfile.ConstantPool) (Forced, bool, error) {
	for _, a := range attrs {
		if a.Name != "RuntimeVisibleAnnotations" {
			continue
		}
		return parseAnnotations(a.Content, cp)
	}
	return Forced{}, false, nil
}

func parseAnnotations(body []byte, cp *classfile.ConstantPool) (Forced, bool, error) {
	pos := 0
	u2 := func() (int, error) {
		if pos+2 > len(body) {
			return 0, classfile.Errorf("truncated RuntimeVisibleAnnotations")
		}
		v := int(binary.BigEndian.Uint16(body[pos:]))
		pos += 2
		return v, nil
	}
	numAnn, err := u2()
	if err != nil {
		return Forced{}, false, err
	}
	for i := 0; i < numAnn; i++ {
		typeIdx, err := u2()
		if err != nil {
			return Forced{}, false, err
		}
		typeName, err := cp.Utf8(typeIdx)
		if err != nil {
			return Forced{}, false, err
		}
		numPairs, err := u2()
		if err != nil {
			return Forced{}, false, err
		}
		f := Forced{}
		matched := typeName == AnnotationType
		for j := 0; j < numPairs; j++ {
			nameIdx, err := u2()
			if err != nil {
				return Forced{}, false, err
			}
			elemName, err := cp.Utf8(nameIdx)
			if err != nil {
				return Forced{}, false, err
			}
			val, consumed, err := parseElementValue(body[pos:], cp)
			if err != nil {
				return Forced{}, false, err
			}
			pos += consumed
			if !matched {
				continue
			}
			switch elemName {
			case "identifier":
				f.Identifier, _ = val.(string)
			case "descriptor":
				f.Descriptor, _ = val.(string)
			case "returnType":
				f.ReturnType, _ = val.(string)
			case "parameterTypes":
				if arr, ok := val.([]string); ok {
					f.ParameterTypes = arr
				}
			}
		}
		if matched {
			return f, true, nil
		}
	}
	return Forced{}, false, nil
}

// parseElementValue decodes one element_value structure (JVM spec §4.7.16.1)
// enough to recover the handful of tags the forced-signature annotation
// uses: strings (for identifier/descriptor) and class literals / arrays (for
// returnType/parameterTypes, encoded as Class element values since the
// annotation's attributes are `Class` typed, not `String`, to carry real
// descriptors without re-deriving them from a source-level type name).
func parseElementValue(b []byte, cp *classfile.ConstantPool) (interface{}, int, error) {
	if len(b) < 1 {
		return nil, 0, classfile.Errorf("truncated element_value")
	}
	tag := b[0]
	switch tag {
	case 's': // String
		idx := int(binary.BigEndian.Uint16(b[1:3]))
		s, err := cp.Utf8(idx)
		return s, 3, err
	case 'c': // Class
		idx := int(binary.BigEndian.Uint16(b[1:3]))
		s, err := cp.Utf8(idx)
		return s, 3, err
	case '[': // array
		count := int(binary.BigEndian.Uint16(b[1:3]))
		pos := 3
		var out []string
		for i := 0; i < count; i++ {
			v, n, err := parseElementValue(b[pos:], cp)
			if err != nil {
				return nil, 0, err
			}
			pos += n
			if s, ok := v.(string); ok {
				out = append(out, s)
			}
		}
		return out, pos, nil
	default:
		// any other tag (int/bool/enum/annotation/...) this annotation
		// never uses; skip the minimal fixed-width const_value_index form.
		return nil, 3, nil
	}
}
