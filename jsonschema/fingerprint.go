package jsonschema

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// Fingerprint hashes the canonical JSON form of s. Structurally equal schemas
// always share a fingerprint.
func Fingerprint(s *Schema) string {
	bs, err := s.MarshalJSON()
	if err != nil {
		panic(err)
	}
	return fmt.Sprintf("%016x", xxhash.Sum64(bs))
}
