// Package types defines the tab tree entities (TabNode, WindowTree,
// StateStore), the normalized host events the tracker consumes, the
// Persister contract, and the standard errors for tabtree.
//
// A WindowTree is an arena: nodes are addressed by TabID and every
// parent/child relation is stored as an id, never as a pointer. Mutation
// algorithms live in internal/tree; this package only holds data, the
// read-only traversal, and invariant checks.
package types
