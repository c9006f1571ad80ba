package jsonapi

import (
	"fmt"
)

// Resource is a typed, identified domain object mirroring a server-side record.
//
// A Resource is identified by its (type, id) pair; the id stays empty until
// the server assigns one on create, and is immutable once assigned. Attribute
// values are tracked together with a dirty marker set so that updates can be
// persisted partially. Relationship values reference other Resource instances
// without owning them: resources are shared across a deserialization pass.
//
// Resources are not safe for concurrent mutation; one in-flight operation may
// work with a resource instance at a time.
type Resource struct {
	schema Schema
	id     string
	attrs  map[string]any
	dirty  map[string]struct{}
	loaded bool
}

// NewResource returns an empty, unloaded resource of the given schema.
// To-many relationship attributes start out as empty linked collections.
func NewResource(schema Schema) *Resource {
	r := &Resource{
		schema: schema,
		attrs:  make(map[string]any),
		dirty:  make(map[string]struct{}),
	}
	for _, attr := range schema.Attributes {
		if attr.Kind == ToMany {
			r.attrs[attr.Name] = &LinkedCollection{}
		}
	}
	return r
}

// placeholderResource represents linkage pointing outside the current
// response: it carries only (type, id) and can be populated later via
// Client.Ensure.
func placeholderResource(schema Schema, id string) *Resource {
	r := NewResource(schema)
	r.id = id
	return r
}

// TypeName returns the wire type name of the resource.
func (r *Resource) TypeName() string { return r.schema.Type }

// Schema returns the declaration the resource was instantiated with.
func (r *Resource) Schema() Schema { return r.schema }

// ID returns the server-assigned identifier, or an empty string when the
// resource has not been created on the server yet.
func (r *Resource) ID() string { return r.id }

// IsPersisted tells whether the server assigned an id to this resource.
func (r *Resource) IsPersisted() bool { return r.id != "" }

// IsLoaded tells whether the resource's attributes were populated from at
// least one successful fetch or save response.
func (r *Resource) IsLoaded() bool { return r.loaded }

// setID assigns the server supplied identifier. The id is immutable once set.
func (r *Resource) setID(id string) {
	if r.id != "" && r.id != id {
		panic(fmt.Sprintf("jsonapi: %s resource id is immutable (%q -> %q)", r.TypeName(), r.id, id))
	}
	r.id = id
}

// Get returns the current value of a plain attribute.
func (r *Resource) Get(name string) any {
	r.mustHaveAttribute(name, Plain)
	return r.attrs[name]
}

// Set assigns a plain attribute value and marks the attribute dirty.
func (r *Resource) Set(name string, value any) {
	r.mustHaveAttribute(name, Plain)
	r.attrs[name] = value
	r.dirty[name] = struct{}{}
}

// ToOne returns the currently linked resource of a to-one relationship,
// or nil when nothing is linked.
func (r *Resource) ToOne(name string) *Resource {
	r.mustHaveAttribute(name, ToOne)
	linked, _ := r.attrs[name].(*Resource)
	return linked
}

// SetToOne links a resource (or nil to unlink) on a to-one relationship.
func (r *Resource) SetToOne(name string, related *Resource) {
	r.mustHaveAttribute(name, ToOne)
	if related == nil {
		r.attrs[name] = (*Resource)(nil)
		return
	}
	r.attrs[name] = related
}

// ToMany returns the linked collection of a to-many relationship.
// The returned collection is live: Append/Remove record pending mutations
// that the next Save of this resource synchronizes.
func (r *Resource) ToMany(name string) *LinkedCollection {
	r.mustHaveAttribute(name, ToMany)
	col, ok := r.attrs[name].(*LinkedCollection)
	if !ok || col == nil {
		col = &LinkedCollection{}
		r.attrs[name] = col
	}
	return col
}

// IsDirty tells whether the attribute was modified since the last successful sync.
func (r *Resource) IsDirty(name string) bool {
	_, ok := r.dirty[name]
	return ok
}

func (r *Resource) isDirtyOrUnsaved(name string) bool {
	return !r.IsPersisted() || r.IsDirty(name)
}

func (r *Resource) clearDirty() {
	for name := range r.dirty {
		delete(r.dirty, name)
	}
}

// mustHaveAttribute guards against undeclared attribute access, which is a
// programmer error rather than a recoverable condition.
func (r *Resource) mustHaveAttribute(name string, kind AttributeKind) {
	attr, ok := r.schema.lookup(name)
	if !ok {
		panic(fmt.Sprintf("jsonapi: %s has no declared attribute %q", r.TypeName(), name))
	}
	if attr.Kind != kind {
		panic(fmt.Sprintf("jsonapi: %s attribute %q is %s, not %s", r.TypeName(), name, attr.Kind, kind))
	}
}

func (r *Resource) String() string {
	id := r.id
	if id == "" {
		id = "<new>"
	}
	return fmt.Sprintf("%s(%s)", r.TypeName(), id)
}

// sameIdentity tells whether two resources refer to the same server-side record.
// Unpersisted resources only match themselves.
func sameIdentity(a, b *Resource) bool {
	if a == b {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	return a.IsPersisted() && b.IsPersisted() &&
		a.TypeName() == b.TypeName() && a.ID() == b.ID()
}

// LinkedCollection is the value of a to-many relationship: the ordered
// sequence of currently linked resources, plus the transient sets of
// resources added and removed locally since the last successful sync of
// the relationship.
type LinkedCollection struct {
	resources []*Resource
	added     []*Resource
	removed   []*Resource
}

// Resources returns the currently linked resources in order.
func (c *LinkedCollection) Resources() []*Resource {
	return append([]*Resource(nil), c.resources...)
}

// Len returns the number of currently linked resources.
func (c *LinkedCollection) Len() int { return len(c.resources) }

// Contains tells whether a resource with the same identity is linked.
func (c *LinkedCollection) Contains(res *Resource) bool {
	return containsIdentity(c.resources, res)
}

// Append links a resource and records the addition as pending.
// Appending a resource whose removal is pending cancels the removal
// instead of recording a new addition.
func (c *LinkedCollection) Append(res *Resource) {
	if containsIdentity(c.resources, res) {
		return
	}
	c.resources = append(c.resources, res)
	if containsIdentity(c.removed, res) {
		c.removed = withoutIdentity(c.removed, res)
		return
	}
	c.added = append(c.added, res)
}

// Remove unlinks a resource and records the removal as pending.
// Removing a resource whose addition is pending cancels the addition
// instead of recording a removal.
func (c *LinkedCollection) Remove(res *Resource) {
	if !containsIdentity(c.resources, res) {
		return
	}
	c.resources = withoutIdentity(c.resources, res)
	if containsIdentity(c.added, res) {
		c.added = withoutIdentity(c.added, res)
		return
	}
	c.removed = append(c.removed, res)
}

// PendingAdditions returns the resources appended since the last successful
// sync of this relationship.
func (c *LinkedCollection) PendingAdditions() []*Resource {
	return append([]*Resource(nil), c.added...)
}

// PendingRemovals returns the resources removed since the last successful
// sync of this relationship.
func (c *LinkedCollection) PendingRemovals() []*Resource {
	return append([]*Resource(nil), c.removed...)
}

// setLinked replaces the linked sequence from a server response while keeping
// the pending mutation sets: those are cleared only after the corresponding
// relationship operation succeeded.
func (c *LinkedCollection) setLinked(resources []*Resource) {
	c.resources = resources
}

func (c *LinkedCollection) clearAdded()   { c.added = nil }
func (c *LinkedCollection) clearRemoved() { c.removed = nil }

func containsIdentity(rs []*Resource, res *Resource) bool {
	for _, r := range rs {
		if sameIdentity(r, res) {
			return true
		}
	}
	return false
}

func withoutIdentity(rs []*Resource, res *Resource) []*Resource {
	out := make([]*Resource, 0, len(rs))
	for _, r := range rs {
		if sameIdentity(r, res) {
			continue
		}
		out = append(out, r)
	}
	return out
}
