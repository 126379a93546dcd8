// Package engine drives one analysis: it builds the registry of a
// compilation, detects mapping cycles, then runs every rule against every
// declaration in parallel.
//
// The registry and the cycle report are complete before the first rule
// runs and are never written afterwards, so rule invocations share them
// without locking. Each invocation owns the findings it returns; the engine
// merges them in declaration order and sorts the result, which makes the
// output independent of scheduling.
package engine
