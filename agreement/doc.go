// Package agreement implements the agreement domain model and the service
// that external callers use to read, fill and sign agreements.
//
// An agreement is identified by an opaque "project/name" path and owns four
// independently versioned documents in the content repository:
//
//	documents/<path>/README.md        immutable human-readable body
//	documents/<path>/inputs.json      fillable fields with per-field owners
//	documents/<path>/permissions.json viewer/editor/reviewer identity lists
//	documents/<path>/events.json      per-party lifecycle record
//
// A per-party access index lives at index/<identity>.json and lists the
// agreement paths the party may touch. Absence of authorization and absence
// of the agreement are indistinguishable to callers: both surface NotFound.
//
// The per-party lifecycle is Unreceived -> Received -> Viewed -> Signed,
// with an orthogonal terminal Voided state that is representable but never
// triggered here. A signature may only be recorded once receive and view
// events exist, and never twice.
//
// All mutations go through the document store's compare-and-swap contract;
// conflicting writers are resolved by re-reading and re-applying the
// semantic change, bounded by a fixed retry budget.
package agreement
