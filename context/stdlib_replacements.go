/*
 * classmerge - a JVM class-merging grading harness transformer
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package context

import (
	"crypto/md5"
	"encoding/binary"
	"reflect"

	"github.com/tudalgo/classmerge/classfile"
	"github.com/tudalgo/classmerge/header"
)

// stdlibTrampoline is one entry in the registration table, keyed the same
// way the teacher's gfunction package keys MethodSignatures --
// "<owner>.<name><descriptor>" -- except here the value is a static
// trampoline function rather than a virtual-machine intrinsic (spec §4.6:
// "redirect calls to specific methods, even in the standard library, to
// static trampolines").
type stdlibTrampoline struct {
	ParamSlots int
	Invoke     func(args []interface{}) (interface{}, error)
}

var stdlibTrampolines = map[string]stdlibTrampoline{
	"java/lang/Thread.sleep(J)V": {
		ParamSlots: 1,
		Invoke:     threadSleepFastForward,
	},
	"java/lang/Object.hashCode()I": {
		ParamSlots: 0,
		Invoke:     objectHashCodeDeterminizer,
	},
}

// threadSleepFastForward replaces Thread.sleep with a no-op, adapted from
// gfunction/javaLangThread.go's threadSleep (which performs the real
// time.Sleep). De-flakes timing-sensitive student code under test; opt-in
// via Configuration.EnableThreadSleepFastForward since it changes observable
// timing behavior.
func threadSleepFastForward(args []interface{}) (interface{}, error) {
	return nil, nil
}

// objectHashCodeDeterminizer replaces Object.hashCode with an MD5-derived
// hash of the receiver's identity, adapted from gfunction/javaUtilHashMap.go's
// hashMapHash. Useful for making hash-order-sensitive test assertions
// reproducible across runs; opt-in via Configuration.EnableHashCodeDeterminizer.
func objectHashCodeDeterminizer(args []interface{}) (interface{}, error) {
	if len(args) == 0 {
		return int32(0), nil
	}
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(objectIdentity(args[0])))
	sum := md5.Sum(buf)
	return int32(binary.BigEndian.Uint32(sum[:4])), nil
}

// objectIdentity extracts a stable identity value for the Go-side simulation
// of the determinizer used by this package's tests; the emitted JVM
// trampoline computes the analogous hash over the receiver's identity at
// the bytecode level and never runs this function.
func objectIdentity(v interface{}) uintptr {
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Ptr {
		return rv.Pointer()
	}
	return 0
}

// stdlibMethodReplacements builds the configured MethodReplacement set from
// the opt-in flags, to be folded into config.MethodReplacements before New
// registers them.
func stdlibMethodReplacements(config *Configuration) []MethodReplacement {
	var out []MethodReplacement
	if config.EnableThreadSleepFastForward {
		out = append(out, stdlibReplacement("java/lang/Thread", "sleep", "(J)V", ""))
	}
	if config.EnableHashCodeDeterminizer {
		out = append(out, stdlibReplacement("java/lang/Object", "hashCode", "()I", "Ljava/lang/Object;"))
	}
	return out
}

// stdlibReplacement builds one registration. receiver is the receiver's
// descriptor when the target is virtual ("" when it is static); it becomes
// the replacement's extra leading parameter.
func stdlibReplacement(owner, name, descriptor, receiver string) MethodReplacement {
	key := owner + "." + name + descriptor
	t := stdlibTrampolines[key]
	target := header.MethodHeader{Owner: owner, Name: name, Descriptor: descriptor}
	replacement := header.MethodHeader{
		Owner: owner, Name: name + "$replacement", Descriptor: "(" + receiver + descriptor[1:],
		Access: classfile.AccStatic | classfile.AccPublic,
	}
	return MethodReplacement{Target: target, Replacement: replacement, Invoke: t.Invoke}
}
