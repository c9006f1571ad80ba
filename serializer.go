package jsonapi

import (
	"encoding/json"

	"go.llib.dev/frameless/port/codec"
)

// SerializeOptions control which parts of a resource end up in the payload.
type SerializeOptions struct {
	// IncludeID emits the resource id. Disabled for creates, where the
	// server assigns the id.
	IncludeID bool
	// DirtyAttributesOnly restricts the attributes mapping to locally
	// modified attributes, supporting partial updates.
	DirtyAttributesOnly bool
	// IncludeToOne emits to-one relationships as linkage.
	IncludeToOne bool
	// IncludeToMany emits to-many relationships as linkage.
	IncludeToMany bool
}

// Serializer converts between the wire document format and resource object
// graphs. It is constructed by the Client from its registries and codec;
// a Serializer itself is stateless, the identity map of a deserialization
// pass lives only for that single call.
type Serializer struct {
	types        *typeRegistry
	transformers *transformerRegistry
	codec        codec.Codec
}

// identity is the (type, id) pair resources are deduplicated by within a
// single deserialization pass.
type identity struct {
	Type string
	ID   string
}

// identityArena resolves repeated (type, id) references to one shared
// instance. It is created fresh per DeserializeResponse call and never
// outlives it, so independent fetches cannot observe each other's instances.
type identityArena struct {
	byIdentity map[identity]*Resource
	// unclaimed mapping targets without an id yet; matched by type against
	// the first record of that type, which covers refreshing a resource in
	// place from a create response.
	unidentified []*Resource
}

func newIdentityArena(mappingTargets []*Resource) *identityArena {
	arena := &identityArena{byIdentity: make(map[identity]*Resource)}
	for _, target := range mappingTargets {
		if target == nil {
			continue
		}
		if target.IsPersisted() {
			arena.byIdentity[identity{Type: target.TypeName(), ID: target.ID()}] = target
		} else {
			arena.unidentified = append(arena.unidentified, target)
		}
	}
	return arena
}

func (a *identityArena) resolve(typeName, id string) (*Resource, bool) {
	res, ok := a.byIdentity[identity{Type: typeName, ID: id}]
	return res, ok
}

// claim binds an id-less mapping target of the given type to a record id.
func (a *identityArena) claim(typeName, id string) (*Resource, bool) {
	for i, target := range a.unidentified {
		if target.TypeName() != typeName {
			continue
		}
		a.unidentified = append(a.unidentified[:i], a.unidentified[i+1:]...)
		target.setID(id)
		a.byIdentity[identity{Type: typeName, ID: id}] = target
		return target, true
	}
	return nil, false
}

func (a *identityArena) put(res *Resource) {
	a.byIdentity[identity{Type: res.TypeName(), ID: res.ID()}] = res
}

// rawDocument is the top level wire shape. Data may be a single record or an
// array of records; Included carries sideloaded records that participate in
// linkage resolution but not in the returned result sequence.
type rawDocument struct {
	Data     json.RawMessage    `json:"data,omitempty"`
	Included []rawRecord        `json:"included,omitempty"`
	Errors   []rawErrorObject   `json:"errors,omitempty"`
	Links    map[string]rawLink `json:"links,omitempty"`
	Meta     map[string]any     `json:"meta,omitempty"`
}

type rawRecord struct {
	Type          string                     `json:"type"`
	ID            string                     `json:"id"`
	Attributes    map[string]any             `json:"attributes"`
	Relationships map[string]rawRelationship `json:"relationships"`
}

type rawRelationship struct {
	Data json.RawMessage `json:"data"`
}

type rawLinkage struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// rawLink accepts both the string and the {href} object form of a link.
type rawLink struct {
	URL string
}

func (l *rawLink) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		l.URL = s
		return nil
	}
	var obj struct {
		Href string `json:"href"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	l.URL = obj.Href
	return nil
}

type rawErrorObject struct {
	Status string            `json:"status"`
	Code   string            `json:"code"`
	Title  string            `json:"title"`
	Detail string            `json:"detail"`
	Source map[string]string `json:"source"`
}

// DeserializeResponse parses a response body into resource objects.
//
// Each record is resolved against the mapping targets and the per-call
// identity map before a new instance is created through the registered
// factory, so two references to the same (type, id) within one response
// share a single instance. Linkage pointing outside the response becomes an
// unloaded placeholder resource that can be populated later via Client.Ensure.
//
// The returned resources correspond to the document's data records in order;
// sideloaded records resolve linkage but are not part of the result.
func (s *Serializer) DeserializeResponse(body []byte, mappingTargets []*Resource) ([]*Resource, *Pagination, error) {
	var doc rawDocument
	if err := s.codec.Unmarshal(body, &doc); err != nil {
		return nil, nil, ErrValidation.Wrap(err)
	}

	records, err := normalizeData(doc.Data)
	if err != nil {
		return nil, nil, err
	}

	arena := newIdentityArena(mappingTargets)

	// first pass: instantiate every record so linkage within the response
	// resolves regardless of record order
	resources := make([]*Resource, 0, len(records))
	all := make([]*Resource, 0, len(records)+len(doc.Included))
	for _, record := range records {
		res, err := s.resolveRecord(arena, record)
		if err != nil {
			return nil, nil, err
		}
		resources = append(resources, res)
		all = append(all, res)
	}
	for _, record := range doc.Included {
		res, err := s.resolveRecord(arena, record)
		if err != nil {
			return nil, nil, err
		}
		all = append(all, res)
	}

	// second pass: populate attributes and resolve relationship linkage
	for i, record := range records {
		if err := s.populate(arena, all[i], record); err != nil {
			return nil, nil, err
		}
	}
	for i, record := range doc.Included {
		if err := s.populate(arena, all[len(records)+i], record); err != nil {
			return nil, nil, err
		}
	}

	return resources, paginationFromLinks(doc.Links), nil
}

func paginationFromLinks(links map[string]rawLink) *Pagination {
	if len(links) == 0 {
		return nil
	}
	p := &Pagination{
		Next: links["next"].URL,
		Prev: links["prev"].URL,
	}
	if p.Next == "" && p.Prev == "" {
		return nil
	}
	return p
}

func (s *Serializer) resolveRecord(arena *identityArena, record rawRecord) (*Resource, error) {
	if record.Type == "" {
		return nil, ErrValidation.F("resource record without a type")
	}
	if record.ID == "" {
		return nil, ErrValidation.F("%s resource record without an id", record.Type)
	}
	if res, ok := arena.resolve(record.Type, record.ID); ok {
		return res, nil
	}
	if res, ok := arena.claim(record.Type, record.ID); ok {
		return res, nil
	}
	res, err := s.types.instantiate(record.Type)
	if err != nil {
		return nil, err
	}
	res.setID(record.ID)
	arena.put(res)
	return res, nil
}

func (s *Serializer) populate(arena *identityArena, res *Resource, record rawRecord) error {
	for _, attr := range res.Schema().Attributes {
		switch attr.Kind {
		case Plain:
			value, ok := record.Attributes[attr.serializedName()]
			if !ok {
				continue
			}
			value, err := s.transformIn(attr, value)
			if err != nil {
				return err
			}
			res.attrs[attr.Name] = value
		case ToOne:
			rel, ok := record.Relationships[attr.serializedName()]
			if !ok {
				continue
			}
			linked, err := s.resolveToOneLinkage(arena, rel.Data)
			if err != nil {
				return err
			}
			res.attrs[attr.Name] = linked
		case ToMany:
			rel, ok := record.Relationships[attr.serializedName()]
			if !ok {
				continue
			}
			linked, err := s.resolveToManyLinkage(arena, rel.Data)
			if err != nil {
				return err
			}
			res.ToMany(attr.Name).setLinked(linked)
		}
	}
	res.loaded = true
	res.clearDirty()
	return nil
}

func (s *Serializer) resolveToOneLinkage(arena *identityArena, data json.RawMessage) (*Resource, error) {
	if isJSONNull(data) {
		return nil, nil
	}
	var linkage rawLinkage
	if err := json.Unmarshal(data, &linkage); err != nil {
		return nil, ErrValidation.Wrap(err)
	}
	return s.resolveLinkage(arena, linkage)
}

func (s *Serializer) resolveToManyLinkage(arena *identityArena, data json.RawMessage) ([]*Resource, error) {
	if isJSONNull(data) {
		return nil, nil
	}
	var linkages []rawLinkage
	if err := json.Unmarshal(data, &linkages); err != nil {
		return nil, ErrValidation.Wrap(err)
	}
	linked := make([]*Resource, 0, len(linkages))
	for _, linkage := range linkages {
		res, err := s.resolveLinkage(arena, linkage)
		if err != nil {
			return nil, err
		}
		linked = append(linked, res)
	}
	return linked, nil
}

// resolveLinkage turns a (type, id) reference into a shared instance: an
// already resolved resource when the target is part of the response, an
// unloaded placeholder otherwise.
func (s *Serializer) resolveLinkage(arena *identityArena, linkage rawLinkage) (*Resource, error) {
	if linkage.Type == "" || linkage.ID == "" {
		return nil, ErrValidation.F("relationship linkage without type or id")
	}
	if res, ok := arena.resolve(linkage.Type, linkage.ID); ok {
		return res, nil
	}
	schema, ok := s.types.lookup(linkage.Type)
	if !ok {
		return nil, ErrUnknownType.F("%s", linkage.Type)
	}
	res := placeholderResource(schema, linkage.ID)
	arena.put(res)
	return res, nil
}

// SerializeResource turns a resource into its wire-format document mapping.
// Relationships are emitted as (type, id) linkage, never as embedded
// resources.
func (s *Serializer) SerializeResource(res *Resource, opts SerializeOptions) (map[string]any, error) {
	record := map[string]any{"type": res.TypeName()}
	if opts.IncludeID && res.IsPersisted() {
		record["id"] = res.ID()
	}

	attributes := map[string]any{}
	relationships := map[string]any{}

	for _, attr := range res.Schema().Attributes {
		switch attr.Kind {
		case Plain:
			if opts.DirtyAttributesOnly && !res.isDirtyOrUnsaved(attr.Name) {
				continue
			}
			value, ok := res.attrs[attr.Name]
			if !ok {
				continue
			}
			value, err := s.transformOut(attr, value)
			if err != nil {
				return nil, err
			}
			attributes[attr.serializedName()] = value
		case ToOne:
			if !opts.IncludeToOne {
				continue
			}
			value, ok := res.attrs[attr.Name]
			if !ok {
				continue
			}
			linked, _ := value.(*Resource)
			if linked == nil {
				relationships[attr.serializedName()] = map[string]any{"data": nil}
				continue
			}
			mustBePersisted(res, attr, []*Resource{linked})
			relationships[attr.serializedName()] = map[string]any{"data": linkageOf(linked)}
		case ToMany:
			if !opts.IncludeToMany {
				continue
			}
			members := res.ToMany(attr.Name).Resources()
			mustBePersisted(res, attr, members)
			relationships[attr.serializedName()] = map[string]any{"data": linkagesOf(members)}
		}
	}

	if 0 < len(attributes) {
		record["attributes"] = attributes
	}
	if 0 < len(relationships) {
		record["relationships"] = relationships
	}
	return map[string]any{"data": record}, nil
}

// SerializeLinkage produces the payload of a to-many relationship operation.
func (s *Serializer) SerializeLinkage(resources []*Resource) map[string]any {
	return map[string]any{"data": linkagesOf(resources)}
}

// SerializeToOneLinkage produces the payload of a to-one replace operation.
func (s *Serializer) SerializeToOneLinkage(res *Resource) map[string]any {
	if res == nil {
		return map[string]any{"data": nil}
	}
	return map[string]any{"data": linkageOf(res)}
}

// DeserializeErrorPayload maps a server error document into an *APIError
// carrying the HTTP status and whatever error objects could be parsed. A body
// that is not a parseable error document still yields an *APIError with the
// status alone, so a failed request never surfaces as a nil error.
func (s *Serializer) DeserializeErrorPayload(body []byte, httpStatus int) error {
	apiErr := &APIError{StatusCode: httpStatus}
	var doc rawDocument
	if err := s.codec.Unmarshal(body, &doc); err == nil {
		for _, eo := range doc.Errors {
			apiErr.Errors = append(apiErr.Errors, ErrorObject(eo))
		}
	}
	return apiErr
}

func (s *Serializer) transformIn(attr Attribute, value any) (any, error) {
	if attr.Transform == "" {
		return value, nil
	}
	t, ok := s.transformers.lookup(attr.Transform)
	if !ok {
		panic(fmtTransformerMissing(attr))
	}
	return t.Deserialize(value)
}

func (s *Serializer) transformOut(attr Attribute, value any) (any, error) {
	if attr.Transform == "" {
		return value, nil
	}
	t, ok := s.transformers.lookup(attr.Transform)
	if !ok {
		panic(fmtTransformerMissing(attr))
	}
	return t.Serialize(value)
}

func normalizeData(data json.RawMessage) ([]rawRecord, error) {
	if isJSONNull(data) {
		return nil, nil
	}
	switch firstJSONToken(data) {
	case '[':
		var records []rawRecord
		if err := json.Unmarshal(data, &records); err != nil {
			return nil, ErrValidation.Wrap(err)
		}
		return records, nil
	case '{':
		var record rawRecord
		if err := json.Unmarshal(data, &record); err != nil {
			return nil, ErrValidation.Wrap(err)
		}
		return []rawRecord{record}, nil
	default:
		return nil, ErrValidation.F("unexpected document data shape: %s", string(data))
	}
}

func isJSONNull(data json.RawMessage) bool {
	return len(data) == 0 || string(data) == "null"
}

func firstJSONToken(data json.RawMessage) byte {
	for _, b := range data {
		switch b {
		case ' ', '\t', '\n', '\r':
			continue
		default:
			return b
		}
	}
	return 0
}

func linkageOf(res *Resource) map[string]any {
	return map[string]any{"type": res.TypeName(), "id": res.ID()}
}

func linkagesOf(resources []*Resource) []any {
	linkages := make([]any, 0, len(resources))
	for _, res := range resources {
		linkages = append(linkages, linkageOf(res))
	}
	return linkages
}
