package jsonapi

import (
	"fmt"
	"time"

	"go.llib.dev/frameless/pkg/zerokit"
)

// Transformer converts attribute values between their wire representation
// and the value application code works with. Transformers are referenced by
// name from the Attribute declaration.
type Transformer interface {
	// Name is the identifier Attribute.Transform refers to.
	Name() string
	// Serialize turns an application value into its wire representation.
	Serialize(value any) (any, error)
	// Deserialize turns a wire value into its application representation.
	Deserialize(value any) (any, error)
}

// transformerRegistry is owned by a Client instance and passed to the
// serializer at construction. Registration is init-time only, like the
// type registry.
type transformerRegistry struct {
	byName map[string]Transformer
}

func (r *transformerRegistry) register(t Transformer) {
	if r.byName == nil {
		r.byName = make(map[string]Transformer)
	}
	r.byName[t.Name()] = t
}

func (r *transformerRegistry) lookup(name string) (Transformer, bool) {
	t, ok := r.byName[name]
	return t, ok
}

// DateTransformer converts between formatted time strings on the wire and
// time.Time values on the resource.
type DateTransformer struct {
	// Format is the time layout used on the wire.
	//
	// default: time.RFC3339
	Format string
}

func (DateTransformer) Name() string { return "date" }

func (t DateTransformer) format() string {
	return zerokit.Coalesce(t.Format, time.RFC3339)
}

func (t DateTransformer) Serialize(value any) (any, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case time.Time:
		return v.Format(t.format()), nil
	case *time.Time:
		if v == nil {
			return nil, nil
		}
		return v.Format(t.format()), nil
	default:
		return nil, ErrValidation.F("date transformer: unsupported value type %T", value)
	}
}

func (t DateTransformer) Deserialize(value any) (any, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case string:
		parsed, err := time.Parse(t.format(), v)
		if err != nil {
			return nil, ErrValidation.F("date transformer: %v", err)
		}
		return parsed, nil
	default:
		return nil, ErrValidation.F("date transformer: expected string, got %T", value)
	}
}

var _ Transformer = DateTransformer{}

func fmtTransformerMissing(attr Attribute) string {
	return fmt.Sprintf("jsonapi: attribute %q references unregistered transformer %q", attr.Name, attr.Transform)
}
