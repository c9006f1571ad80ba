// Package jsonapi implements a client-side synchronization engine for
// JSON:API style resource graphs.
//
// Application code declares queries against registered resource types,
// receives deserialized resource objects whose relationship linkage is
// resolved into shared object references, mutates attributes and
// relationships locally, and persists the mutations back as a minimal
// ordered sequence of HTTP operations.
//
// The HTTP transport, the URL routing and the byte-level codec are
// pluggable strategies; default implementations live in the httptransport
// and routing sub-packages.
package jsonapi

import (
	"context"
)

// Transport is the capability the Client uses to talk to the remote API.
//
// A transport must complete exactly once per Send call: either with a
// Response describing what the server answered (any status code, including
// error statuses), or with a non-nil error for connectivity level failures
// (connection refused, timeout, context cancellation). Transport errors are
// surfaced to the caller unchanged; the Client never re-wraps them, as the
// transport cannot know the API's error document shape and the Client
// cannot know the transport's failure modes.
//
// Retry policy, if any, belongs to the Transport implementation.
type Transport interface {
	Send(ctx context.Context, method string, url string, payload []byte) (Response, error)
}

// Response is what a Transport answers with when the server replied at all.
type Response struct {
	StatusCode int
	Body       []byte
}

// Router is the capability that maps queries and resources to request URLs.
// Implementations must be deterministic for a given base URL configuration.
type Router interface {
	// URLForQuery returns the URL that retrieves the resources the Query describes.
	URLForQuery(q Query) (string, error)
	// URLForResourceType returns the collection URL of a resource type.
	URLForResourceType(typeName string) (string, error)
	// URLForRelationship returns the relationship endpoint URL of a resource,
	// optionally narrowed to the given related ids.
	URLForRelationship(relationshipName string, of *Resource, ids ...string) (string, error)
}

func statusOK(code int) bool {
	return 200 <= code && code <= 299
}
