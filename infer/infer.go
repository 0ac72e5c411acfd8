package infer

import (
	"github.com/siegeai/jsonkit/jsonschema"
	"github.com/siegeai/jsonkit/merge"
	"github.com/valyala/fastjson"
)

// Engine infers schemas from single JSON values. An Engine holds no state
// between calls and is safe for concurrent use.
type Engine struct {
	detectFormats bool
}

type Option func(*Engine)

// WithFormats annotates strings that look like UUIDs, dates or timestamps.
func WithFormats(enabled bool) Option {
	return func(e *Engine) {
		e.detectFormats = enabled
	}
}

func New(opts ...Option) *Engine {
	e := &Engine{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// DetectsFormats reports whether string formats are annotated.
func (e *Engine) DetectsFormats() bool {
	return e.detectFormats
}

var defaultEngine = New()

// Infer returns the schema of one parsed document.
func Infer(v *fastjson.Value) (*jsonschema.Schema, error) {
	return defaultEngine.FastJson(v)
}

// InferBytes parses and infers one JSON document.
func InferBytes(b []byte) (*jsonschema.Schema, error) {
	return defaultEngine.Bytes(b)
}

// InferValue infers an already decoded in-memory value.
func InferValue(v any) (*jsonschema.Schema, error) {
	return defaultEngine.Value(v)
}

// InferAll infers every document and merges the results.
func InferAll(vs ...*fastjson.Value) (*jsonschema.Schema, error) {
	return defaultEngine.All(vs)
}

// All infers every document and merges the results.
func (e *Engine) All(vs []*fastjson.Value) (*jsonschema.Schema, error) {
	var acc merge.Accumulator
	for _, v := range vs {
		s, err := e.FastJson(v)
		if err != nil {
			return nil, err
		}
		acc.Add(s)
	}
	return acc.Schema()
}

func newObjectSchema(props jsonschema.Properties) *jsonschema.Schema {
	return jsonschema.NewObjectSchema(props)
}

// newArraySchema unifies the element shapes with the same rule used to merge
// whole documents.
func newArraySchema(elems []*jsonschema.Schema) *jsonschema.Schema {
	var item *jsonschema.Schema
	for _, e := range elems {
		item = merge.Schema(item, e)
	}
	return jsonschema.NewArraySchema(item)
}

func newStringSchema(e *Engine, s string) *jsonschema.Schema {
	if e.detectFormats {
		return jsonschema.NewStringSchema(detectFormat(s))
	}
	return jsonschema.NewStringSchema("")
}

func newNumberSchema(integer bool) *jsonschema.Schema {
	if integer {
		return jsonschema.NewScalarSchema(jsonschema.TypeInteger)
	}
	return jsonschema.NewScalarSchema(jsonschema.TypeNumber)
}

func newBooleanSchema() *jsonschema.Schema {
	return jsonschema.NewScalarSchema(jsonschema.TypeBoolean)
}

func newNullSchema() *jsonschema.Schema {
	return jsonschema.NewScalarSchema(jsonschema.TypeNull)
}
