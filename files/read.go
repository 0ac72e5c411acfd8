package files

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"

	"github.com/siegeai/jsonkit/jsonschema"
	"github.com/spf13/afero"
	"github.com/valyala/fastjson"
)

var ErrUnsupportedExtension = errors.New("unsupported file extension")

type Kind uint8

const (
	KindJSON Kind = iota + 1
	KindJSONL
)

func (k Kind) String() string {
	switch k {
	case KindJSON:
		return "json"
	case KindJSONL:
		return "jsonl"
	}
	return "unknown"
}

// Extensions lists every extension KindOf accepts.
var Extensions = []string{".json", ".json.gz", ".jsonl", ".jsonl.gz"}

// KindOf classifies a path by extension. gzipped reports a trailing .gz.
func KindOf(path string) (kind Kind, gzipped bool, err error) {
	name := strings.ToLower(filepath.Base(path))
	if strings.HasSuffix(name, ".gz") {
		gzipped = true
		name = strings.TrimSuffix(name, ".gz")
	}
	switch filepath.Ext(name) {
	case ".json":
		return KindJSON, gzipped, nil
	case ".jsonl":
		return KindJSONL, gzipped, nil
	}
	return 0, false, fmt.Errorf("%w: %s", ErrUnsupportedExtension, path)
}

type ReadOptions struct {
	// UnpackArrays yields each element of a top level JSON array as its own
	// document.
	UnpackArrays bool
}

// maxLine bounds a single JSONL record.
const maxLine = 64 << 20

// Each calls fn with every top level document in the file at path. The value
// passed to fn is only valid until fn returns.
func Each(fs afero.Fs, path string, opts ReadOptions, fn func(*fastjson.Value) error) error {
	kind, gzipped, err := KindOf(path)
	if err != nil {
		return err
	}

	f, err := fs.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	var r io.Reader = f
	if gzipped {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return fmt.Errorf("could not open %s: %w", path, err)
		}
		defer gz.Close()
		r = gz
	}

	return Decode(r, path, kind, opts, fn)
}

// Decode is Each over an already opened stream. name only labels errors.
func Decode(r io.Reader, name string, kind Kind, opts ReadOptions, fn func(*fastjson.Value) error) error {
	switch kind {
	case KindJSON:
		return decodeJSON(r, name, opts, fn)
	case KindJSONL:
		return decodeJSONL(r, name, fn)
	}
	return fmt.Errorf("%w: %s", ErrUnsupportedExtension, name)
}

func decodeJSON(r io.Reader, name string, opts ReadOptions, fn func(*fastjson.Value) error) error {
	bs, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("could not read %s: %w", name, err)
	}

	var p fastjson.Parser
	v, err := p.ParseBytes(bs)
	if err != nil {
		return &jsonschema.MalformedDocumentError{Source: name, Err: err}
	}

	if opts.UnpackArrays && v.Type() == fastjson.TypeArray {
		vs, _ := v.Array()
		for _, e := range vs {
			if err := fn(e); err != nil {
				return err
			}
		}
		return nil
	}
	return fn(v)
}

func decodeJSONL(r io.Reader, name string, fn func(*fastjson.Value) error) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLine)

	var p fastjson.Parser
	line := 0
	for sc.Scan() {
		line += 1
		bs := bytes.TrimSpace(sc.Bytes())
		if len(bs) == 0 {
			continue
		}
		v, err := p.ParseBytes(bs)
		if err != nil {
			return &jsonschema.MalformedDocumentError{Source: name, Line: line, Err: err}
		}
		if err := fn(v); err != nil {
			return err
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("could not read %s: %w", name, err)
	}
	return nil
}

// ReplaceExtension swaps the longest matching extension in olds for ext. ok
// is false, and path unchanged, when no extension in olds matches.
func ReplaceExtension(path string, olds []string, ext string) (res string, ok bool) {
	sorted := append([]string(nil), olds...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return len(sorted[i]) > len(sorted[j])
	})

	dir, name := filepath.Split(path)
	for _, old := range sorted {
		if strings.HasSuffix(name, old) {
			return dir + strings.TrimSuffix(name, old) + ext, true
		}
	}
	return path, false
}
