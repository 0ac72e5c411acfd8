package merge

import "github.com/siegeai/jsonkit/jsonschema"

// Distinct drops schemas structurally identical to one seen earlier. Merging a
// schema with itself is a no-op, so merging the result of Distinct is the same
// as merging the input, only cheaper.
func Distinct(ss ...*jsonschema.Schema) []*jsonschema.Schema {
	seen := make(map[string][]*jsonschema.Schema, len(ss))
	res := make([]*jsonschema.Schema, 0, len(ss))
	for _, s := range ss {
		if s == nil {
			continue
		}
		fp := jsonschema.Fingerprint(s)
		dup := false
		for _, t := range seen[fp] {
			if jsonschema.Equal(s, t) {
				dup = true
				break
			}
		}
		if dup {
			continue
		}
		seen[fp] = append(seen[fp], s)
		res = append(res, s)
	}
	return res
}

// Accumulator folds a stream of schemas one at a time. The zero value is ready
// to use. An Accumulator is not safe for concurrent use.
type Accumulator struct {
	schema *jsonschema.Schema
	n      int
}

func (a *Accumulator) Add(s *jsonschema.Schema) {
	if s == nil {
		return
	}
	a.schema = Schema(a.schema, s)
	a.n += 1
}

// Len is the number of schemas added so far.
func (a *Accumulator) Len() int {
	return a.n
}

func (a *Accumulator) Schema() (*jsonschema.Schema, error) {
	if a.n == 0 {
		return nil, jsonschema.ErrEmptyInput
	}
	return a.schema, nil
}
