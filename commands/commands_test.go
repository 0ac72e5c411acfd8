package commands

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/siegeai/jsonkit/dot"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFs(t *testing.T, files map[string]string) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	for path, content := range files {
		require.NoError(t, afero.WriteFile(fs, path, []byte(content), 0o644))
	}
	return fs
}

func run(fs afero.Fs, args ...string) (stdout, stderr string, err error) {
	var out, errb bytes.Buffer
	cmd := NewRootCommand(fs, &out, &errb)
	cmd.SetArgs(args)
	err = cmd.ExecuteContext(context.Background())
	return out.String(), errb.String(), err
}

var documents = map[string]string{
	"/data/a.json":  `{"id": 1, "user": {"name": "ada"}, "tags": ["x"]}`,
	"/data/b.jsonl": "{\"id\": 2.5, \"user\": {\"name\": \"bob\", \"age\": 3}}\n{\"id\": 3}\n",
}

func TestJSONKeys(t *testing.T) {
	fs := newFs(t, documents)

	out, _, err := run(fs, "json-keys", "/data")
	require.NoError(t, err)
	assert.Equal(t, "id\ntags[]\nuser\nuser.age\nuser.name\n", out)

	out, _, err = run(fs, "json-keys", "/data", "-o", "/keys.txt")
	require.NoError(t, err)
	assert.Empty(t, out)
	bs, err := afero.ReadFile(fs, "/keys.txt")
	require.NoError(t, err)
	assert.Equal(t, "id\ntags[]\nuser\nuser.age\nuser.name\n", string(bs))
}

func TestJSONKeysPattern(t *testing.T) {
	fs := newFs(t, documents)
	out, _, err := run(fs, "json-keys", "/data", "--pattern", "*.jsonl")
	require.NoError(t, err)
	assert.Equal(t, "id\nuser\nuser.age\nuser.name\n", out)
}

func TestJSONToJSONSchema(t *testing.T) {
	fs := newFs(t, documents)

	out, stderr, err := run(fs, "json-to-json-schema", "/data")
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"type": ["object"],
		"properties": {
			"id": {"type": ["integer", "number"]},
			"tags": {"type": ["array"], "items": {"type": ["string"]}},
			"user": {
				"type": ["object"],
				"properties": {"age": {"type": ["integer"]}, "name": {"type": ["string"]}},
				"required": ["name"]
			}
		},
		"required": ["id"]
	}`, out)
	assert.Contains(t, out, "\n    \"properties\"")
	assert.Contains(t, stderr, "inferred schema")

	out, _, err = run(fs, "json-to-json-schema", "/data/a.json", "--format", "yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "type:")
	assert.Contains(t, out, "properties:")

	out, _, err = run(fs, "json-to-json-schema", "/data/a.json", "--format", "openapi", "--indent", "2")
	require.NoError(t, err)
	assert.Contains(t, out, `"type": "object"`)

	_, _, err = run(fs, "json-to-json-schema", "/data", "--format", "xml")
	assert.ErrorContains(t, err, `unknown format "xml"`)
}

func TestCollapseNumbers(t *testing.T) {
	fs := newFs(t, map[string]string{
		"/ids.jsonl":    "{\"id\": 1}\n{\"id\": 1.5}\n",
		"/jsonkit.yaml": "collapse_numbers: true\n",
	})
	want := `{
		"type": ["object"],
		"properties": {"id": {"type": ["number"]}},
		"required": ["id"]
	}`

	out, _, err := run(fs, "json-to-json-schema", "/ids.jsonl")
	require.NoError(t, err)
	assert.Contains(t, out, `"integer"`)

	out, _, err = run(fs, "json-to-json-schema", "/ids.jsonl", "--collapse-numbers")
	require.NoError(t, err)
	assert.JSONEq(t, want, out)

	out, _, err = run(fs, "json-to-json-schema", "/ids.jsonl", "--config", "/jsonkit.yaml")
	require.NoError(t, err)
	assert.JSONEq(t, want, out)
}

func TestContinueOnError(t *testing.T) {
	fs := newFs(t, map[string]string{
		"/in/good.json": `{"a": 1}`,
		"/in/bad.json":  `{"a": `,
	})

	_, _, err := run(fs, "json-keys", "/in")
	assert.ErrorContains(t, err, "malformed document")

	out, stderr, err := run(fs, "json-keys", "/in", "--continue-on-error")
	require.NoError(t, err)
	assert.Equal(t, "a\n", out)
	assert.Contains(t, stderr, "skipping file")
}

func TestJSONToDot(t *testing.T) {
	fs := newFs(t, map[string]string{"/a.json": `{"a": {"b": 1}}`})

	out, _, err := run(fs, "json-to-dot", "/a.json", "--rankdir", "TB", "--indent", "2")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "digraph G {\n  rankdir=\"TB\";\n"), out)
	assert.Contains(t, out, `"." -> "a";`)
	assert.Contains(t, out, `"a" -> "a.b";`)
}

func TestJSONSchemaToDot(t *testing.T) {
	fs := newFs(t, map[string]string{
		"/schemas/one.json": `{"type": "object", "properties": {"a": {"type": "integer"}}}`,
		"/schemas/two.json": `{"type": "object", "properties": {"b": {"type": "array", "items": {"type": "object", "properties": {"c": true}}}}}`,
	})

	out, _, err := run(fs, "jsonschema-to-dot", "/schemas")
	require.NoError(t, err)
	assert.Contains(t, out, `"." -> "a";`)
	assert.Contains(t, out, `"b[]" -> "b[].c";`)

	require.NoError(t, afero.WriteFile(fs, "/schemas/three.json", []byte(`{"oneOf": []}`), 0o644))
	_, _, err = run(fs, "jsonschema-to-dot", "/schemas")
	assert.ErrorContains(t, err, "/schemas/three.json")
	assert.ErrorContains(t, err, "oneOf")
}

func TestJSONToJSONL(t *testing.T) {
	fs := newFs(t, map[string]string{
		"/in/a.json":  `{"b": 1, "a": {"d": 2, "c": 1.50}}`,
		"/in/b.jsonl": "{\"a\": [3, 2]}\n\n{\"a\": null, \"z\": true}\n",
		"/in/c.txt":   "ignored",
	})

	out, _, err := run(fs, "json-to-jsonl", "/in")
	require.NoError(t, err)
	assert.Equal(t, `{"a":{"c":1.50,"d":2},"b":1}
{"a":[3,2]}
{"a":null,"z":true}
`, out)

	out, _, err = run(fs, "json-to-jsonl", "/in", "--key", "a")
	require.NoError(t, err)
	assert.Equal(t, "{\"c\":1.50,\"d\":2}\n[3,2]\nnull\n", out)

	_, _, err = run(fs, "json-to-jsonl", "/in", "-k", "z")
	assert.ErrorContains(t, err, `/in/a.json: document 1 has no key "z"`)
}

func TestJSONToGo(t *testing.T) {
	fs := newFs(t, map[string]string{"/a.json": `{"user_id": 1, "tags": ["x"]}`})

	out, _, err := run(fs, "json-to-go", "/a.json", "--package", "api", "--name", "event")
	require.NoError(t, err)
	assert.Contains(t, out, "package api")
	assert.Contains(t, out, "type Event struct")
	assert.Contains(t, out, "UserId")
}

func fakeDot(t *testing.T) string {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("no sh available")
	}
	path := filepath.Join(t.TempDir(), "dot")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\necho \"$@\"\ncat >/dev/null\n"), 0o755))
	return path
}

func TestJSONToImage(t *testing.T) {
	fs := newFs(t, map[string]string{"/a.json": `{"a": 1}`})
	t.Setenv("JSONKIT_DOT_BINARY", fakeDot(t))

	_, _, err := run(fs, "json-to-image", "/a.json", "-o", "/out.svg", "--dpi", "96")
	require.NoError(t, err)
	bs, err := afero.ReadFile(fs, "/out.svg")
	require.NoError(t, err)
	assert.Equal(t, "-Tsvg -Gdpi=96\n", string(bs))

	_, _, err = run(fs, "json-to-image", "/a.json", "-o", "/out.pdf")
	assert.ErrorIs(t, err, dot.ErrUnsupportedFormat)

	_, _, err = run(fs, "json-to-image", "/a.json")
	assert.ErrorContains(t, err, "output-file")
}

func TestPcapToJSONSchemaSkipsBadCaptures(t *testing.T) {
	fs := newFs(t, map[string]string{"/caps/broken.pcap": "not a capture"})

	_, _, err := run(fs, "pcap-to-json-schema", "/caps")
	assert.ErrorContains(t, err, "/caps/broken.pcap")

	out, stderr, err := run(fs, "pcap-to-json-schema", "/caps", "--continue-on-error")
	require.NoError(t, err)
	assert.Equal(t, "{}\n", out)
	assert.Contains(t, stderr, "skipping file")

	out, _, err = run(fs, "pcap-to-json-schema", "/caps", "--continue-on-error", "--format", "openapi", "--title", "shop")
	require.NoError(t, err)
	assert.Contains(t, out, `"title": "shop"`)
}

func TestCache(t *testing.T) {
	fs := newFs(t, documents)
	db := filepath.Join(t.TempDir(), "schemas.db")

	first, _, err := run(fs, "json-to-json-schema", "/data", "--cache", db)
	require.NoError(t, err)
	_, err = os.Stat(db)
	require.NoError(t, err)

	second, _, err := run(fs, "json-to-json-schema", "/data", "--cache", db)
	require.NoError(t, err)
	assert.JSONEq(t, first, second)
}

func TestLogging(t *testing.T) {
	fs := newFs(t, documents)

	_, stderr, err := run(fs, "json-keys", "/data", "--log-format", "json")
	require.NoError(t, err)
	assert.Contains(t, stderr, `"msg":"inferred schema"`)
	assert.Contains(t, stderr, `"level":"info"`)

	_, stderr, err = run(fs, "json-keys", "/data", "--log-level", "warn")
	require.NoError(t, err)
	assert.Empty(t, stderr)

	_, _, err = run(fs, "json-keys", "/data", "--log-level", "chatty")
	assert.ErrorContains(t, err, "log.level")
}

func TestMissingInput(t *testing.T) {
	fs := newFs(t, nil)
	_, _, err := run(fs, "json-keys", "/nowhere")
	assert.Error(t, err)

	_, _, err = run(fs, "json-keys")
	assert.Error(t, err)
}
