package infer

import (
	"bytes"

	"github.com/siegeai/jsonkit/jsonschema"
	"github.com/siegeai/jsonkit/merge"
	"github.com/valyala/fastjson"
)

func (e *Engine) Bytes(b []byte) (*jsonschema.Schema, error) {
	var p fastjson.Parser
	v, err := p.ParseBytes(b)
	if err != nil {
		return nil, &jsonschema.MalformedDocumentError{Err: err}
	}
	return e.FastJson(v)
}

func (e *Engine) FastJson(v *fastjson.Value) (*jsonschema.Schema, error) {
	return e.parseFastJsonValue(v)
}

func (e *Engine) parseFastJsonValue(v *fastjson.Value) (*jsonschema.Schema, error) {
	switch v.Type() {
	case fastjson.TypeObject:
		o, err := v.Object()
		if err != nil {
			return nil, err
		}
		return e.parseFastJsonObject(o)
	case fastjson.TypeArray:
		a, err := v.Array()
		if err != nil {
			return nil, err
		}
		return e.parseFastJsonArray(a)
	case fastjson.TypeString:
		return newStringSchema(e, string(v.GetStringBytes())), nil
	case fastjson.TypeNumber:
		return newNumberSchema(isIntegerLiteral(v.MarshalTo(nil))), nil
	case fastjson.TypeTrue, fastjson.TypeFalse:
		return newBooleanSchema(), nil
	case fastjson.TypeNull:
		return newNullSchema(), nil
	}

	panic("should be unreachable")
}

func (e *Engine) parseFastJsonObject(o *fastjson.Object) (*jsonschema.Schema, error) {
	ps := make(jsonschema.Properties, o.Len())

	var visitErr error
	o.Visit(func(key []byte, v *fastjson.Value) {
		if visitErr != nil {
			return
		}
		child, childErr := e.parseFastJsonValue(v)
		if childErr != nil {
			visitErr = childErr
			return
		}

		// duplicate keys keep every observation
		k := string(key)
		ps[k] = merge.Schema(ps[k], child)
	})

	if visitErr != nil {
		return nil, visitErr
	}

	return newObjectSchema(ps), nil
}

func (e *Engine) parseFastJsonArray(vs []*fastjson.Value) (*jsonschema.Schema, error) {
	es := make([]*jsonschema.Schema, len(vs))
	for i, v := range vs {
		s, err := e.parseFastJsonValue(v)
		if err != nil {
			return nil, err
		}
		es[i] = s
	}
	return newArraySchema(es), nil
}

// isIntegerLiteral reports whether a JSON number literal has neither a
// fraction nor an exponent. fastjson also accepts NaN and Inf, which are not
// integers either.
func isIntegerLiteral(lit []byte) bool {
	lit = bytes.TrimPrefix(lit, []byte("-"))
	if len(lit) == 0 {
		return false
	}
	for _, c := range lit {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
