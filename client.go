package jsonapi

import (
	"context"
	"net/http"

	"go.llib.dev/frameless/pkg/jsonkit"
	"go.llib.dev/frameless/pkg/logger"
	"go.llib.dev/frameless/pkg/logging"
	"go.llib.dev/frameless/port/codec"
)

// Client is the façade of the synchronization engine. It owns the pluggable
// collaborators and the type/transformer registries, and implements the
// public fetch/save/delete operations.
//
// Collaborators are set once at construction time. TraceEnabled may be
// reconfigured at any time and is observed by subsequently issued requests.
// Registration of types and transformers belongs to initialization; there is
// no synchronization guarantee for registering concurrently with in-flight
// requests.
type Client struct {
	// Transport [required] performs the HTTP requests.
	Transport Transport
	// Router [required] maps queries and resources to request URLs.
	Router Router
	// Codec [optional] converts between bytes and the wire document shape.
	//
	// default: jsonkit.Codec
	Codec codec.Codec
	// TraceEnabled turns on debug logging of every issued request.
	TraceEnabled bool

	types        typeRegistry
	transformers transformerRegistry
}

// RegisterType makes a resource type known to the engine. Must be called
// before any operation that references the type.
func (c *Client) RegisterType(schema Schema) error {
	return c.types.register(schema)
}

// RegisterTransformer makes an attribute value transformer available under
// its name. Must be called before any operation on a type referencing it.
func (c *Client) RegisterTransformer(t Transformer) {
	c.transformers.register(t)
}

// Serializer returns the serializer view of this client's configuration.
func (c *Client) Serializer() *Serializer {
	return &Serializer{
		types:        &c.types,
		transformers: &c.transformers,
		codec:        c.getCodec(),
	}
}

func (c *Client) getCodec() codec.Codec {
	if c.Codec != nil {
		return c.Codec
	}
	return jsonkit.Codec{}
}

// Find fetches the collection of resources a query describes.
func (c *Client) Find(ctx context.Context, q Query) (*Collection, error) {
	reqURL, err := c.Router.URLForQuery(q)
	if err != nil {
		return nil, err
	}
	body, err := c.request(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	resources, pagination, err := c.Serializer().DeserializeResponse(body, nil)
	if err != nil {
		return nil, err
	}
	return &Collection{Resources: resources, Pagination: pagination}, nil
}

// FindOne fetches a single resource. It fails with ErrNotFound when the
// query matched nothing, and with ErrTypeMismatch when the first matched
// resource is not of the requested type.
func (c *Client) FindOne(ctx context.Context, q Query) (*Resource, error) {
	col, err := c.Find(ctx, q)
	if err != nil {
		return nil, err
	}
	if col.IsEmpty() {
		return nil, ErrNotFound.F("%s %v", q.ResourceType, q.IDs)
	}
	res := col.First()
	if res.TypeName() != q.ResourceType {
		return nil, ErrTypeMismatch.F("requested %s, got %s", q.ResourceType, res.TypeName())
	}
	return res, nil
}

// Ensure populates an unloaded resource in place and returns the same
// instance. A loaded resource is returned as-is without any request. The
// optional query modifiers let the caller extend the generated single
// resource query, for example with includes.
func (c *Client) Ensure(ctx context.Context, res *Resource, modifiers ...func(Query) Query) (*Resource, error) {
	if res.IsLoaded() {
		return res, nil
	}
	q := QueryForResource(res)
	for _, modify := range modifiers {
		q = modify(q)
	}
	reqURL, err := c.Router.URLForQuery(q)
	if err != nil {
		return nil, err
	}
	body, err := c.request(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	resources, _, err := c.Serializer().DeserializeResponse(body, []*Resource{res})
	if err != nil {
		return nil, err
	}
	if len(resources) == 0 {
		return nil, ErrNotFound.F("%s %v", q.ResourceType, q.IDs)
	}
	return res, nil
}

// Save persists local mutations of a resource.
//
// An unpersisted resource is created with a full payload (no id, all
// attributes, relationship linkage included); the response is deserialized
// onto the same instance, which assigns the server supplied id. No
// relationship sync follows a create, the payload already embedded the
// linkage.
//
// A persisted resource is updated with a dirty-attributes payload, the
// response is deserialized onto the same instance, and the pending
// relationship operations are then executed strictly one after another.
// The first failing operation aborts the sequence and becomes the save's
// failure, even though the attribute update already succeeded: the resource
// is left attribute-synced but relationship-partially-synced, and the caller
// must inspect the resource's pending sets to learn what landed.
func (c *Client) Save(ctx context.Context, res *Resource) error {
	if !res.IsPersisted() {
		return c.create(ctx, res)
	}
	if err := c.update(ctx, res); err != nil {
		return err
	}
	return c.syncRelationships(ctx, res)
}

var createOptions = SerializeOptions{
	IncludeID:           false,
	DirtyAttributesOnly: false,
	IncludeToOne:        true,
	IncludeToMany:       true,
}

var updateOptions = SerializeOptions{
	IncludeID:           true,
	DirtyAttributesOnly: true,
	IncludeToOne:        false,
	IncludeToMany:       false,
}

func (c *Client) create(ctx context.Context, res *Resource) error {
	ser := c.Serializer()
	doc, err := ser.SerializeResource(res, createOptions)
	if err != nil {
		return err
	}
	payload, err := c.getCodec().Marshal(doc)
	if err != nil {
		return err
	}
	reqURL, err := c.Router.URLForResourceType(res.TypeName())
	if err != nil {
		return err
	}
	body, err := c.request(ctx, http.MethodPost, reqURL, payload)
	if err != nil {
		return err
	}
	if _, _, err := ser.DeserializeResponse(body, []*Resource{res}); err != nil {
		return err
	}
	// the POST payload embedded the to-many linkage, so it is synced now
	for _, attr := range res.Schema().relationships() {
		if attr.Kind != ToMany {
			continue
		}
		col := res.ToMany(attr.Name)
		col.clearAdded()
		col.clearRemoved()
	}
	return nil
}

func (c *Client) update(ctx context.Context, res *Resource) error {
	ser := c.Serializer()
	doc, err := ser.SerializeResource(res, updateOptions)
	if err != nil {
		return err
	}
	payload, err := c.getCodec().Marshal(doc)
	if err != nil {
		return err
	}
	reqURL, err := c.Router.URLForQuery(QueryForResource(res))
	if err != nil {
		return err
	}
	body, err := c.request(ctx, http.MethodPut, reqURL, payload)
	if err != nil {
		return err
	}
	_, _, err = ser.DeserializeResponse(body, []*Resource{res})
	return err
}

// syncRelationships executes the pending relationship operations in order.
// Operation N+1 is not issued before operation N completed, and the first
// failure aborts the remainder. Each relationship operation is a request of
// its own; coalescing them into one document-level PATCH would be a protocol
// extension this engine deliberately does not assume.
func (c *Client) syncRelationships(ctx context.Context, res *Resource) error {
	ser := c.Serializer()
	for _, op := range DiffRelationships(res) {
		reqURL, err := c.Router.URLForRelationship(op.Relationship.serializedName(), res)
		if err != nil {
			return err
		}
		var (
			method string
			doc    map[string]any
		)
		switch op.Kind {
		case OpAdd:
			method, doc = http.MethodPost, ser.SerializeLinkage(op.Resources)
		case OpRemove:
			method, doc = http.MethodDelete, ser.SerializeLinkage(op.Resources)
		case OpReplace:
			method, doc = http.MethodPut, ser.SerializeToOneLinkage(op.Resources[0])
		}
		payload, err := c.getCodec().Marshal(doc)
		if err != nil {
			return err
		}
		if _, err := c.request(ctx, method, reqURL, payload); err != nil {
			return err
		}
		switch op.Kind {
		case OpAdd:
			res.ToMany(op.Relationship.Name).clearAdded()
		case OpRemove:
			res.ToMany(op.Relationship.Name).clearRemoved()
		}
	}
	return nil
}

// Delete removes the resource's server-side record. Local state is left to
// the caller.
func (c *Client) Delete(ctx context.Context, res *Resource) error {
	reqURL, err := c.Router.URLForQuery(QueryForResource(res))
	if err != nil {
		return err
	}
	_, err = c.request(ctx, http.MethodDelete, reqURL, nil)
	return err
}

// request issues one transport request and unifies its failure modes:
// transport level errors pass through unchanged, non-2xx responses are
// parsed into the error taxonomy using the response status.
func (c *Client) request(ctx context.Context, method, reqURL string, payload []byte) ([]byte, error) {
	c.trace(ctx, "jsonapi: request", logging.Field("method", method), logging.Field("url", reqURL))
	resp, err := c.Transport.Send(ctx, method, reqURL, payload)
	if err != nil {
		c.trace(ctx, "jsonapi: transport failure",
			logging.Field("method", method), logging.Field("url", reqURL), logging.ErrField(err))
		return nil, err
	}
	c.trace(ctx, "jsonapi: response",
		logging.Field("method", method), logging.Field("url", reqURL),
		logging.Field("status_code", resp.StatusCode))
	if !statusOK(resp.StatusCode) {
		return nil, c.Serializer().DeserializeErrorPayload(resp.Body, resp.StatusCode)
	}
	return resp.Body, nil
}

func (c *Client) trace(ctx context.Context, msg string, details ...logging.Detail) {
	if !c.TraceEnabled {
		return
	}
	logger.Debug(ctx, msg, details...)
}
