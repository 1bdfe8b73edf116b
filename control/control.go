/*
 * classmerge - a JVM class-merging grading harness transformer
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

// Package control is the runtime control surface (spec §4.9, §3): three
// process-global registries the injected dispatch prologue consults at the
// top of every merged method. It is intentionally a singleton (spec §9
// "Process-global state... a reimplementation should expose it as a
// singleton with explicit teardown in test fixtures"), protected the same
// way the teacher guards its own class table -- one sync.RWMutex per map,
// mirroring classloader.ClassesLock rather than reaching for sync.Map, so
// the locking discipline here reads the same way it does throughout this
// repo.
package control

import (
	"sync"

	"github.com/tudalgo/classmerge/header"
	"github.com/tudalgo/classmerge/invocation"
)

// Substitute is the functor a test installs to replace a method's behavior
// (spec §4.9 "Substitution: enable(header, functor)").
type Substitute func(inv *invocation.Invocation) (interface{}, error)

var (
	logMu      sync.RWMutex
	logEnabled = map[header.Key]bool{}
	invocations = map[header.Key][]*invocation.Invocation{}

	subMu         sync.RWMutex
	substitutions = map[header.Key]Substitute{}

	delegMu            sync.RWMutex
	delegationDisabled = map[header.Key]bool{}
)

// EnableLogging installs an empty invocation list for header (spec §4.9).
func EnableLogging(h header.MethodHeader) {
	logMu.Lock()
	defer logMu.Unlock()
	k := h.Key()
	logEnabled[k] = true
	invocations[k] = nil
}

// DisableLogging discards the list for header.
func DisableLogging(h header.MethodHeader) {
	logMu.Lock()
	defer logMu.Unlock()
	k := h.Key()
	delete(logEnabled, k)
	delete(invocations, k)
}

// ResetLogging clears all logging state.
func ResetLogging() {
	logMu.Lock()
	defer logMu.Unlock()
	logEnabled = map[header.Key]bool{}
	invocations = map[header.Key][]*invocation.Invocation{}
}

// GetInvocations returns an immutable snapshot, or nil if header is
// unmonitored (spec §4.9). The snapshot is copied under the lock so a reader
// never observes a partially published append (spec §5).
func GetInvocations(h header.MethodHeader) []*invocation.Invocation {
	logMu.RLock()
	defer logMu.RUnlock()
	k := h.Key()
	if !logEnabled[k] {
		return nil
	}
	out := make([]*invocation.Invocation, len(invocations[k]))
	copy(out, invocations[k])
	return out
}

// logInvocation is the internal ABI accessor emitted bytecode calls (spec
// §4.9 "the only operations invoked by emitted bytecode"): true iff header
// is currently monitored.
func logInvocation(h header.MethodHeader) bool {
	logMu.RLock()
	defer logMu.RUnlock()
	return logEnabled[h.Key()]
}

// LogInvocation is logInvocation exported for the jnibridge shim.
func LogInvocation(h header.MethodHeader) bool { return logInvocation(h) }

// AddInvocation appends inv to header's log (spec §4.8 step 4). Callers must
// have already confirmed LogInvocation(h); append-only, so concurrent
// readers of GetInvocations never see a torn list.
func AddInvocation(h header.MethodHeader, inv *invocation.Invocation) {
	logMu.Lock()
	defer logMu.Unlock()
	k := h.Key()
	invocations[k] = append(invocations[k], inv)
}

// EnableSubstitution installs fn as header's substitute functor.
func EnableSubstitution(h header.MethodHeader, fn Substitute) {
	subMu.Lock()
	defer subMu.Unlock()
	substitutions[h.Key()] = fn
}

// DisableSubstitution removes header's substitute.
func DisableSubstitution(h header.MethodHeader) {
	subMu.Lock()
	defer subMu.Unlock()
	delete(substitutions, h.Key())
}

// ResetSubstitutions clears all installed substitutes.
func ResetSubstitutions() {
	subMu.Lock()
	defer subMu.Unlock()
	substitutions = map[header.Key]Substitute{}
}

// useSubstitution is the internal ABI accessor: true iff header has a
// substitute installed.
func useSubstitution(h header.MethodHeader) bool {
	subMu.RLock()
	defer subMu.RUnlock()
	_, ok := substitutions[h.Key()]
	return ok
}

// UseSubstitution is useSubstitution exported for the jnibridge shim.
func UseSubstitution(h header.MethodHeader) bool { return useSubstitution(h) }

// GetSubstitution returns header's installed functor, or nil.
func GetSubstitution(h header.MethodHeader) Substitute {
	subMu.RLock()
	defer subMu.RUnlock()
	return substitutions[h.Key()]
}

// DisableDelegation puts header in the exclusion set: its merged method will
// run the student body instead of the reference body (spec §4.9).
func DisableDelegation(h header.MethodHeader) {
	delegMu.Lock()
	defer delegMu.Unlock()
	delegationDisabled[h.Key()] = true
}

// EnableDelegation removes header from the exclusion set, restoring the
// default of delegating to the reference body when one exists.
func EnableDelegation(h header.MethodHeader) {
	delegMu.Lock()
	defer delegMu.Unlock()
	delete(delegationDisabled, h.Key())
}

// ResetDelegation empties the exclusion set.
func ResetDelegation() {
	delegMu.Lock()
	defer delegMu.Unlock()
	delegationDisabled = map[header.Key]bool{}
}

// useSubmissionImpl is the internal ABI accessor: true iff header is in the
// exclusion set, i.e. the submission body should run instead of the
// reference body (spec §4.9: "returns true iff the header is in the
// exclusion set"). Delegation is enabled by default, so an un-mutated header
// returns false here -- the merged method falls through to the reference
// body.
func useSubmissionImpl(h header.MethodHeader) bool {
	delegMu.RLock()
	defer delegMu.RUnlock()
	return delegationDisabled[h.Key()]
}

// UseSubmissionImpl is useSubmissionImpl exported for the jnibridge shim.
func UseSubmissionImpl(h header.MethodHeader) bool { return useSubmissionImpl(h) }

// ResetAll clears every registry; tests call this between cases instead of
// tearing down and rebuilding a control surface instance, since this package
// has no per-instance state to tear down (spec §9 "explicit teardown in test
// fixtures").
func ResetAll() {
	ResetLogging()
	ResetSubstitutions()
	ResetDelegation()
}
