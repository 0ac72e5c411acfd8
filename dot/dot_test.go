package dot

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/siegeai/jsonkit/infer"
	"github.com/siegeai/jsonkit/keypath"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormat(t *testing.T) {
	s, err := infer.InferBytes([]byte(`{"x": {"y": 1}, "tags": ["a"]}`))
	require.NoError(t, err)

	got := Format(keypath.ToGraph(s, keypath.Options{}), Options{Indent: 2})
	want := `digraph G {
  rankdir="LR";
  node [shape="box", style="rounded"];

  "tags[]";
  "x";
  "x.y" [label="y"];

  "x" -> "x.y";
}
`
	assert.Equal(t, want, got)
}

func TestFormatOptions(t *testing.T) {
	g := keypath.Graph{
		Nodes: []keypath.Node{{ID: ".", Label: "."}, {ID: `we"ird`, Label: `we"ird`}},
		Edges: []keypath.Edge{{From: ".", To: `we"ird`}},
	}
	got := Format(g, Options{Indent: 1, RankDir: "TB", NodeShape: "ellipse", Concentrate: true})
	want := `digraph G {
 rankdir="TB";
 node [shape="ellipse", style="rounded"];
 concentrate=true;

 ".";
 "we\"ird";

 "." -> "we\"ird";
}
`
	assert.Equal(t, want, got)
}

func TestFormatEmpty(t *testing.T) {
	assert.Equal(t, "digraph G {\n    rankdir=\"LR\";\n    node [shape=\"box\", style=\"rounded\"];\n}\n", Format(keypath.Graph{}, Options{}))
}

func TestFormatFromPath(t *testing.T) {
	f, err := FormatFromPath("out/graph.PNG")
	require.NoError(t, err)
	assert.Equal(t, "png", f)

	f, err = FormatFromPath("graph.svg")
	require.NoError(t, err)
	assert.Equal(t, "svg", f)

	_, err = FormatFromPath("graph.pdf")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func fakeBinary(t *testing.T, script string) string {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("no shell available")
	}
	path := filepath.Join(t.TempDir(), "fakedot")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0o755))
	return path
}

func TestRender(t *testing.T) {
	bin := fakeBinary(t, "echo \"$@\"\ncat\n")

	out, err := Render(context.Background(), "digraph G {}", "svg", RenderOptions{Binary: bin, DPI: 72})
	require.NoError(t, err)
	assert.Equal(t, "-Tsvg -Gdpi=72\ndigraph G {}", string(out))
}

func TestRenderFailure(t *testing.T) {
	bin := fakeBinary(t, "echo 'syntax error in line 1' >&2\nexit 3\n")

	_, err := Render(context.Background(), "digraph {", "png", RenderOptions{Binary: bin})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "syntax error in line 1")
}

func TestRenderUnsupportedFormat(t *testing.T) {
	_, err := Render(context.Background(), "digraph G {}", "pdf", RenderOptions{Binary: "/does/not/exist"})
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}
