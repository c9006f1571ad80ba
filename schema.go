package jsonapi

import (
	"fmt"

	"go.llib.dev/frameless/pkg/zerokit"
)

// AttributeKind tells how an attribute of a resource type is interpreted.
type AttributeKind int

const (
	// Plain is a scalar attribute carried in the record's attributes mapping.
	Plain AttributeKind = iota
	// ToOne is a single-resource reference carried as relationship linkage.
	ToOne
	// ToMany is an ordered multi-resource reference carried as relationship linkage.
	ToMany
)

func (k AttributeKind) String() string {
	switch k {
	case Plain:
		return "plain"
	case ToOne:
		return "to-one"
	case ToMany:
		return "to-many"
	default:
		return fmt.Sprintf("AttributeKind(%d)", int(k))
	}
}

// Attribute declares a single attribute of a resource type.
type Attribute struct {
	// Name is the attribute name application code uses on the Resource.
	Name string
	// Kind tells whether the attribute holds a scalar value or relationship linkage.
	//
	// default: Plain
	Kind AttributeKind
	// SerializedName is the field name used on the wire.
	//
	// default: Name
	SerializedName string
	// Transform names a registered Transformer applied on the value
	// during serialization and deserialization. Only meaningful for Plain attributes.
	//
	// default: no transformation
	Transform string
}

func (a Attribute) serializedName() string {
	return zerokit.Coalesce(a.SerializedName, a.Name)
}

// Factory produces an empty resource instance of a registered type.
type Factory func() *Resource

// Schema declares a resource type: its wire type name and its attributes.
// Relationship attributes are declared as data rather than discovered by
// runtime type inspection; the relationship differ and the serializer both
// consume this declaration, in declaration order.
//
// A Schema is registered once on a Client during initialization and must not
// be modified afterwards.
type Schema struct {
	// Type is the wire type name of the resource.
	Type string
	// Attributes declare the resource's attributes. Order matters:
	// relationship-sync operations follow declaration order.
	Attributes []Attribute
	// Factory produces an empty instance during deserialization.
	//
	// default: NewResource(schema)
	Factory Factory
}

// Validate reports whether the schema declaration is usable.
func (s Schema) Validate() error {
	if s.Type == "" {
		return ErrValidation.F("schema without a type name")
	}
	seen := make(map[string]struct{}, len(s.Attributes))
	for _, attr := range s.Attributes {
		if attr.Name == "" {
			return ErrValidation.F("%s: attribute without a name", s.Type)
		}
		if _, ok := seen[attr.Name]; ok {
			return ErrValidation.F("%s: duplicate attribute: %s", s.Type, attr.Name)
		}
		seen[attr.Name] = struct{}{}
	}
	return nil
}

func (s Schema) lookup(name string) (Attribute, bool) {
	for _, attr := range s.Attributes {
		if attr.Name == name {
			return attr, true
		}
	}
	return Attribute{}, false
}

// relationships yields the relationship attributes in declaration order.
func (s Schema) relationships() []Attribute {
	var rels []Attribute
	for _, attr := range s.Attributes {
		if attr.Kind == ToOne || attr.Kind == ToMany {
			rels = append(rels, attr)
		}
	}
	return rels
}

// typeRegistry maps wire type names to their registered schema.
// It is owned by a Client instance; there is no package level global.
// Registration is expected during initialization only, concurrent
// registration against in-flight requests is not synchronized.
type typeRegistry struct {
	types map[string]Schema
}

func (r *typeRegistry) register(schema Schema) error {
	if err := schema.Validate(); err != nil {
		return err
	}
	if r.types == nil {
		r.types = make(map[string]Schema)
	}
	r.types[schema.Type] = schema
	return nil
}

func (r *typeRegistry) lookup(typeName string) (Schema, bool) {
	schema, ok := r.types[typeName]
	return schema, ok
}

// instantiate produces an empty resource of the given type through the
// registered factory.
func (r *typeRegistry) instantiate(typeName string) (*Resource, error) {
	schema, ok := r.lookup(typeName)
	if !ok {
		return nil, ErrUnknownType.F("%s", typeName)
	}
	if schema.Factory != nil {
		return schema.Factory(), nil
	}
	return NewResource(schema), nil
}
