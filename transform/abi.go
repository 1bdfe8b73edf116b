/*
 * classmerge - a JVM class-merging grading harness transformer
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

// Package transform is C7/C8: the class transformer and method transformer
// that actually merge a submission class with its bound reference. Every
// other package in this repo (header, similarity, forcedsig, refclass,
// submission, context, control, invocation) is a collaborator this package
// drives; transform is where their outputs become emitted bytecode.
package transform

import "github.com/tudalgo/classmerge/header"

// Stable ABI internal names the dispatch prologue constructs instances of or
// calls static methods on (spec §6 "Test-side ABI"). This repo never defines
// these types' bodies -- the test-side runtime support library does, the
// same arrangement as the teacher's gfunction package calling into
// java/lang classes it never implements, or header's ClassHeaderType/
// FieldHeaderType/MethodHeaderType constants for the header records
// themselves.
const (
	ControlSurfaceType            = "org/classmerge/runtime/ControlSurface"
	InvocationType                = "org/classmerge/runtime/Invocation"
	ConstructorInvocationType     = "org/classmerge/runtime/ConstructorInvocation"
	FunctorType                   = "org/classmerge/runtime/Functor"
	IncompatibleHeaderExceptionType = "org/classmerge/runtime/IncompatibleHeaderException"
	NoMatchingConstructorType     = "org/classmerge/runtime/NoMatchingConstructorException"
)

// Control-surface static methods the prologue calls (spec §4.9 "the only
// operations invoked by emitted bytecode"). Each takes a live MethodHeader
// object (reified by header.BuildMethodHeader) and is otherwise a pure
// function of the control package's process-global registries.
const (
	descLogInvocation     = "(L" + header.MethodHeaderType + ";)Z"
	descAddInvocation      = "(L" + header.MethodHeaderType + ";L" + InvocationType + ";)V"
	descUseSubstitution    = "(L" + header.MethodHeaderType + ";)Z"
	descGetSubstitution    = "(L" + header.MethodHeaderType + ";)L" + FunctorType + ";"
	descUseSubmissionImpl  = "(L" + header.MethodHeaderType + ";)Z"
)

// Invocation/Functor/ConstructorInvocation instance methods.
const (
	descInvocationInit     = "(L" + header.MethodHeaderType + ";Ljava/lang/Object;)V"
	descAddParameter        = "(Ljava/lang/Object;)V"
	descFunctorExecute      = "(L" + InvocationType + ";)Ljava/lang/Object;"
	descConstructorInvOwner = "()Ljava/lang/String;"
	descConstructorInvDesc  = "()Ljava/lang/String;"
	descConstructorInvArgs  = "()[Ljava/lang/Object;"

	// descBuildConstructor is a second Functor method this repo's ABI adds
	// beyond plain execute() (spec §4.8 step 5 only names "the substitute"
	// without splitting its two call shapes apart): a constructor substitute
	// must hand back which super/this constructor to chain to *before* that
	// chain runs, then separately supply post-construction effects via
	// execute() *after* -- two distinct moments needing two distinct return
	// values (ConstructorInvocation vs. whatever execute() would return for
	// an ordinary method). See DESIGN.md's Open Question resolution.
	descBuildConstructor = "(L" + InvocationType + ";)L" + ConstructorInvocationType + ";"
)

// Exception constructors carrying both headers (spec §7 SignatureMismatch)
// or nothing (spec §7 NoMatchingConstructor).
const (
	descIncompatibleHeaderInit = "(L" + header.MethodHeaderType + ";L" + header.MethodHeaderType + ";)V"
	descNoMatchingCtorInit     = "()V"
)
