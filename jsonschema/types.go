package jsonschema

import "strings"

// Type is a single primitive kind tag.
type Type uint8

const (
	TypeNull Type = 1 << iota
	TypeBoolean
	TypeInteger
	TypeNumber
	TypeString
	TypeArray
	TypeObject
)

// allTypes is the canonical tag order used for every serialized type list.
var allTypes = [...]Type{
	TypeNull,
	TypeBoolean,
	TypeInteger,
	TypeNumber,
	TypeString,
	TypeArray,
	TypeObject,
}

func (t Type) String() string {
	switch t {
	case TypeNull:
		return "null"
	case TypeBoolean:
		return "boolean"
	case TypeInteger:
		return "integer"
	case TypeNumber:
		return "number"
	case TypeString:
		return "string"
	case TypeArray:
		return "array"
	case TypeObject:
		return "object"
	}
	return "unknown"
}

// ParseType maps a JSON Schema type name onto its tag.
func ParseType(s string) (Type, bool) {
	for _, t := range allTypes {
		if t.String() == s {
			return t, true
		}
	}
	return 0, false
}

// TypeSet is a set of Type tags. The zero value is the empty set, which only
// ever appears on an unknown node.
type TypeSet uint8

func NewTypeSet(ts ...Type) TypeSet {
	var s TypeSet
	for _, t := range ts {
		s |= TypeSet(t)
	}
	return s
}

func (s TypeSet) Has(t Type) bool {
	return s&TypeSet(t) != 0
}

func (s TypeSet) With(t Type) TypeSet {
	return s | TypeSet(t)
}

func (s TypeSet) Without(t Type) TypeSet {
	return s &^ TypeSet(t)
}

func (s TypeSet) Union(o TypeSet) TypeSet {
	return s | o
}

func (s TypeSet) IsEmpty() bool {
	return s == 0
}

// Contains reports whether every tag of o is also in s.
func (s TypeSet) Contains(o TypeSet) bool {
	return s&o == o
}

func (s TypeSet) Len() int {
	n := 0
	for _, t := range allTypes {
		if s.Has(t) {
			n += 1
		}
	}
	return n
}

// Types lists the tags of s in canonical order.
func (s TypeSet) Types() []Type {
	res := make([]Type, 0, len(allTypes))
	for _, t := range allTypes {
		if s.Has(t) {
			res = append(res, t)
		}
	}
	return res
}

func (s TypeSet) Names() []string {
	ts := s.Types()
	res := make([]string, len(ts))
	for i, t := range ts {
		res[i] = t.String()
	}
	return res
}

func (s TypeSet) String() string {
	return "[" + strings.Join(s.Names(), " ") + "]"
}
