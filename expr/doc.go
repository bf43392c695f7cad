// Package expr evaluates the expression strings found in dialog definitions:
// set-property expressions, if conditions and rule guards. The default
// implementation uses Go's text/template syntax rendered against the memory
// snapshot, with plain property paths resolved directly through memory.
package expr
