package dot

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

var ErrUnsupportedFormat = errors.New("unsupported image format")

// ImageFormats lists what Render accepts.
var ImageFormats = []string{"png", "svg"}

type RenderOptions struct {
	// Binary is the Graphviz executable, "dot" when empty.
	Binary string
	DPI    int
}

func DefaultRenderOptions() RenderOptions {
	return RenderOptions{Binary: "dot", DPI: 300}
}

// FormatFromPath picks the image format from the extension of path.
func FormatFromPath(path string) (string, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	if err := checkFormat(ext); err != nil {
		return "", fmt.Errorf("%w: %s", err, path)
	}
	return ext, nil
}

func checkFormat(format string) error {
	for _, f := range ImageFormats {
		if f == format {
			return nil
		}
	}
	return fmt.Errorf("%w %q", ErrUnsupportedFormat, format)
}

// Render runs Graphviz over dot text and returns the image. The format is
// checked before anything is run.
func Render(ctx context.Context, dot string, format string, opts RenderOptions) ([]byte, error) {
	if err := checkFormat(format); err != nil {
		return nil, err
	}

	def := DefaultRenderOptions()
	if opts.Binary == "" {
		opts.Binary = def.Binary
	}
	if opts.DPI <= 0 {
		opts.DPI = def.DPI
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, opts.Binary, "-T"+format, "-Gdpi="+strconv.Itoa(opts.DPI))
	cmd.Stdin = strings.NewReader(dot)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return nil, fmt.Errorf("could not run %s: %w", opts.Binary, err)
		}
		return nil, fmt.Errorf("could not run %s: %w: %s", opts.Binary, err, msg)
	}
	return stdout.Bytes(), nil
}
