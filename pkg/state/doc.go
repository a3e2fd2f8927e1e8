// Package state defines persistence contracts for provider snapshots.
//
// A Store[T] only loads and saves a single snapshot for a single Ref. The
// Persister[T] adds ETag checks, validation and UpdatedAt stamping on top of
// any Store. The relax package uses a Store[map[string]any] to restore a
// provider's store on creation and to save it after every sync.
//
// Deterministic keys:
//
//	Ref.Identifier() returns "domain/name". Neither part may contain '/'.
package state
