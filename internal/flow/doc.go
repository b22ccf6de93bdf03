// Package flow is the in-memory model of an authentication flow graph:
// flows, the tagged union of states, transitions with symbolic targets,
// boundary mappings for subflows, and the flow registry.
//
// The model is mutated only during construction, which is single-threaded.
// Once handed to an executor a Flow is read-only; the Registry is safe for
// concurrent use.
package flow
