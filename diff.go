package jsonapi

import (
	"fmt"
)

// OperationKind tells how a relationship operation reconciles server state.
type OperationKind string

const (
	// OpAdd links additional resources on a to-many relationship.
	OpAdd OperationKind = "add"
	// OpRemove unlinks resources from a to-many relationship.
	OpRemove OperationKind = "remove"
	// OpReplace replaces a to-one relationship's linkage.
	OpReplace OperationKind = "replace"
)

// RelationshipOperation is a single pending relationship mutation of a
// resource, to be executed against the relationship's own endpoint.
type RelationshipOperation struct {
	Kind         OperationKind
	Relationship Attribute
	Resources    []*Resource
}

// DiffRelationships computes the operations needed to reconcile a locally
// modified resource's relationships with the server, relative to the last
// synced state.
//
// Operations follow the schema's attribute declaration order. A to-one
// relationship with a persisted linked resource yields a replace; a to-many
// relationship yields an add carrying the pending additions and a remove
// carrying the pending removals, each skipped when empty, add before remove.
//
// Every resource referenced by an operation must be persisted: only saved
// resources can be related. Pending to-many entries without an id are a
// programmer error and panic.
func DiffRelationships(res *Resource) []RelationshipOperation {
	var ops []RelationshipOperation
	for _, attr := range res.Schema().relationships() {
		switch attr.Kind {
		case ToOne:
			linked := res.ToOne(attr.Name)
			if linked == nil || !linked.IsPersisted() {
				continue
			}
			ops = append(ops, RelationshipOperation{
				Kind:         OpReplace,
				Relationship: attr,
				Resources:    []*Resource{linked},
			})
		case ToMany:
			col := res.ToMany(attr.Name)
			if added := col.PendingAdditions(); 0 < len(added) {
				mustBePersisted(res, attr, added)
				ops = append(ops, RelationshipOperation{
					Kind:         OpAdd,
					Relationship: attr,
					Resources:    added,
				})
			}
			if removed := col.PendingRemovals(); 0 < len(removed) {
				mustBePersisted(res, attr, removed)
				ops = append(ops, RelationshipOperation{
					Kind:         OpRemove,
					Relationship: attr,
					Resources:    removed,
				})
			}
		}
	}
	return ops
}

func mustBePersisted(res *Resource, attr Attribute, related []*Resource) {
	for _, r := range related {
		if !r.IsPersisted() {
			panic(fmt.Sprintf("jsonapi: %s relationship %q references an unsaved %s resource; save it first",
				res.TypeName(), attr.Name, r.TypeName()))
		}
	}
}
