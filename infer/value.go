package infer

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/siegeai/jsonkit/jsonschema"
)

// Value infers a document that was already decoded into Go values, as
// produced by a JSON decoder into an any: nil, bool, json.Number, float64,
// string, []any and map[string]any. Sized integers and float32 are accepted
// too. Any other Go type is reported as an UnsupportedShapeError.
func (e *Engine) Value(v any) (*jsonschema.Schema, error) {
	return e.parseValue(v, "#")
}

func (e *Engine) parseValue(v any, loc string) (*jsonschema.Schema, error) {
	switch val := v.(type) {
	case nil:
		return newNullSchema(), nil
	case bool:
		return newBooleanSchema(), nil
	case json.Number:
		return newNumberSchema(isIntegerLiteral([]byte(val.String()))), nil
	case float64:
		return newNumberSchema(isIntegral(val)), nil
	case float32:
		return newNumberSchema(isIntegral(float64(val))), nil
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return newNumberSchema(true), nil
	case string:
		return newStringSchema(e, val), nil
	case []any:
		es := make([]*jsonschema.Schema, len(val))
		for i, elem := range val {
			s, err := e.parseValue(elem, loc+"/items")
			if err != nil {
				return nil, err
			}
			es[i] = s
		}
		return newArraySchema(es), nil
	case map[string]any:
		ps := make(jsonschema.Properties, len(val))
		for k, elem := range val {
			s, err := e.parseValue(elem, loc+"/properties/"+jsonschema.PointerToken(k))
			if err != nil {
				return nil, err
			}
			ps[k] = s
		}
		return newObjectSchema(ps), nil
	}

	return nil, &jsonschema.UnsupportedShapeError{
		Location: loc,
		Reason:   fmt.Sprintf("value of Go type %T is not JSON", v),
	}
}

// isIntegral classifies decoded floats. The literal is gone by now, so a
// float64 holding a whole number counts as an integer.
func isIntegral(f float64) bool {
	return !math.IsInf(f, 0) && !math.IsNaN(f) && math.Trunc(f) == f
}
