package jsonapi

import (
	"fmt"
)

// Query is an immutable description of a fetch: the resource type, an
// optional id set, filters, relationship includes, sorting and pagination
// parameters. A Query carries no behavior of its own; the Router collaborator
// turns it into a URL.
//
// The With* methods return modified copies, the receiver is never changed.
type Query struct {
	// ResourceType is the wire type name the query targets.
	ResourceType string
	// IDs narrows the query to the given resource identifiers.
	IDs []string
	// Filters narrow the result set server side.
	Filters []Filter
	// Includes names relationships whose resources the server should sideload.
	Includes []string
	// SortFields order the result set; a "-" prefix means descending.
	SortFields []string
	// PageParams carry pagination parameters, for example number and size.
	PageParams map[string]string
}

// Filter is a single server-side filter criterion.
type Filter struct {
	Field string
	Value string
}

// NewQuery describes a fetch of a resource type, optionally narrowed to
// the given ids.
func NewQuery(resourceType string, ids ...string) Query {
	return Query{ResourceType: resourceType, IDs: ids}
}

// QueryForResource describes the single-resource lookup of an already
// identified resource. The resource must be persisted.
func QueryForResource(res *Resource) Query {
	if !res.IsPersisted() {
		panic(fmt.Sprintf("jsonapi: query for unpersisted %s resource", res.TypeName()))
	}
	return NewQuery(res.TypeName(), res.ID())
}

// WithIDs returns a copy of the query narrowed to the given ids.
func (q Query) WithIDs(ids ...string) Query {
	q.IDs = append([]string(nil), ids...)
	return q
}

// WithFilter returns a copy of the query with an additional filter criterion.
func (q Query) WithFilter(field, value string) Query {
	q.Filters = append(append([]Filter(nil), q.Filters...), Filter{Field: field, Value: value})
	return q
}

// WithIncludes returns a copy of the query with additional relationship includes.
func (q Query) WithIncludes(relationships ...string) Query {
	q.Includes = append(append([]string(nil), q.Includes...), relationships...)
	return q
}

// WithSort returns a copy of the query with additional sort fields.
func (q Query) WithSort(fields ...string) Query {
	q.SortFields = append(append([]string(nil), q.SortFields...), fields...)
	return q
}

// WithPageParam returns a copy of the query with an additional pagination parameter.
func (q Query) WithPageParam(name, value string) Query {
	params := make(map[string]string, len(q.PageParams)+1)
	for k, v := range q.PageParams {
		params[k] = v
	}
	params[name] = value
	q.PageParams = params
	return q
}
