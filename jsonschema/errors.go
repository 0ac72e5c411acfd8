package jsonschema

import (
	"errors"
	"fmt"
	"strings"
)

var ErrEmptyInput = errors.New("no schemas to merge")

// MalformedDocumentError reports a document that could not be parsed as JSON.
// Line is 1-based for line-delimited sources and 0 otherwise.
type MalformedDocumentError struct {
	Source string
	Line   int
	Err    error
}

func (e *MalformedDocumentError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("malformed document %s:%d: %v", e.Source, e.Line, e.Err)
	}
	if e.Source != "" {
		return fmt.Sprintf("malformed document %s: %v", e.Source, e.Err)
	}
	return fmt.Sprintf("malformed document: %v", e.Err)
}

func (e *MalformedDocumentError) Unwrap() error {
	return e.Err
}

// UnsupportedShapeError reports a schema construct outside the vocabulary of
// type, properties, required and items.
type UnsupportedShapeError struct {
	Location string
	Keyword  string
	Reason   string
}

func (e *UnsupportedShapeError) Error() string {
	loc := e.Location
	if loc == "" {
		loc = "#"
	}
	if e.Keyword == "" {
		return fmt.Sprintf("unsupported schema shape at %s: %s", loc, e.Reason)
	}
	return fmt.Sprintf("unsupported schema shape at %s: %q %s", loc, e.Keyword, e.Reason)
}

var pointerEscaper = strings.NewReplacer("~", "~0", "/", "~1")

// PointerToken escapes a property name for use as one JSON pointer segment.
func PointerToken(s string) string {
	return pointerEscaper.Replace(s)
}
