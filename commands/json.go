package commands

import (
	"bytes"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/goccy/go-json"
	"github.com/siegeai/jsonkit/dot"
	"github.com/siegeai/jsonkit/files"
	"github.com/siegeai/jsonkit/gogen"
	"github.com/siegeai/jsonkit/jsonschema"
	"github.com/siegeai/jsonkit/keypath"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/valyala/fastjson"
)

const defaultIndent = 4

var schemaFormats = []string{"json", "yaml", "openapi"}

func outputFlag(cmd *cobra.Command, out *string, required bool) {
	cmd.Flags().StringVarP(out, "output-file", "o", "", "Path to output file (default stdout)")
	if required {
		if err := cmd.MarkFlagRequired("output-file"); err != nil {
			panic(err)
		}
	}
}

func dotFlags(fs *pflag.FlagSet) {
	def := dot.DefaultOptions()
	fs.Int("indent", def.Indent, "Indentation of the DOT text")
	fs.String("rankdir", def.RankDir, "Graph direction (LR, TB, RL, BT)")
	fs.String("node-shape", def.NodeShape, "Graphviz node shape")
	fs.Bool("concentrate", def.Concentrate, "Merge parallel edges")
	bind(fs, "indent", "dot.indent")
	bind(fs, "rankdir", "dot.rankdir")
	bind(fs, "node-shape", "dot.node_shape")
	bind(fs, "concentrate", "dot.concentrate")
}

func imageFlags(fs *pflag.FlagSet) {
	dotFlags(fs)
	fs.Int("dpi", dot.DefaultRenderOptions().DPI, "Image resolution")
	bind(fs, "dpi", "dot.dpi")
}

func graphOf(s *jsonschema.Schema) keypath.Graph {
	return keypath.ToGraph(s, keypath.Options{Root: "."})
}

func (a *app) jsonKeysCommand() *cobra.Command {
	var in inputFlags
	var output string

	cmd := &cobra.Command{
		Use:   "json-keys INPUT...",
		Short: "JSON[L] -> key paths, one per line",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.inferSchema(cmd.Context(), args, in)
			if err != nil {
				return err
			}
			return a.writeOutput(output, func(w io.Writer) error {
				for _, k := range keypath.Project(s) {
					if _, err := fmt.Fprintln(w, k); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
	in.register(cmd.Flags())
	outputFlag(cmd, &output, false)
	return cmd
}

func (a *app) jsonToJSONSchemaCommand() *cobra.Command {
	var in inputFlags
	var output, format string
	var indent int

	cmd := &cobra.Command{
		Use:   "json-to-json-schema INPUT...",
		Short: "JSON[L] -> JSON Schema",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(schemaFormats, format) {
				return fmt.Errorf("unknown format %q, expected one of %s", format, strings.Join(schemaFormats, ", "))
			}
			s, err := a.inferSchema(cmd.Context(), args, in)
			if err != nil {
				return err
			}
			return a.writeOutput(output, func(w io.Writer) error {
				return writeSchema(w, s, format, indent)
			})
		},
	}
	in.register(cmd.Flags())
	outputFlag(cmd, &output, false)
	cmd.Flags().StringVarP(&format, "format", "f", "json", "Output format ("+strings.Join(schemaFormats, ", ")+")")
	cmd.Flags().IntVar(&indent, "indent", defaultIndent, "Indentation level")
	return cmd
}

func writeSchema(w io.Writer, s *jsonschema.Schema, format string, indent int) error {
	switch format {
	case "yaml":
		return jsonschema.EncodeYAML(w, s, indent)
	case "openapi":
		return writeJSON(w, jsonschema.ToOpenAPI(s), indent)
	}
	return jsonschema.Encode(w, s, indent)
}

func writeJSON(w io.Writer, v any, indent int) error {
	bs, err := json.MarshalIndent(v, "", strings.Repeat(" ", indent))
	if err != nil {
		return err
	}
	_, err = w.Write(append(bs, '\n'))
	return err
}

func (a *app) jsonToDotCommand() *cobra.Command {
	var in inputFlags
	var output string

	cmd := &cobra.Command{
		Use:   "json-to-dot INPUT...",
		Short: "JSON[L] -> DOT graph of the key paths",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.inferSchema(cmd.Context(), args, in)
			if err != nil {
				return err
			}
			return a.writeOutput(output, func(w io.Writer) error {
				_, err := io.WriteString(w, dot.Format(graphOf(s), a.cfg.DotOptions()))
				return err
			})
		},
	}
	in.register(cmd.Flags())
	outputFlag(cmd, &output, false)
	dotFlags(cmd.Flags())
	return cmd
}

func (a *app) jsonToImageCommand() *cobra.Command {
	var in inputFlags
	var output string

	cmd := &cobra.Command{
		Use:   "json-to-image INPUT...",
		Short: "JSON[L] -> PNG or SVG drawing of the key paths",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := dot.FormatFromPath(output)
			if err != nil {
				return err
			}
			s, err := a.inferSchema(cmd.Context(), args, in)
			if err != nil {
				return err
			}
			return a.renderImage(cmd, s, format, output)
		},
	}
	in.register(cmd.Flags())
	outputFlag(cmd, &output, true)
	imageFlags(cmd.Flags())
	return cmd
}

func (a *app) renderImage(cmd *cobra.Command, s *jsonschema.Schema, format, output string) error {
	text := dot.Format(graphOf(s), a.cfg.DotOptions())
	img, err := dot.Render(cmd.Context(), text, format, a.cfg.RenderOptions())
	if err != nil {
		return err
	}
	return a.writeOutput(output, func(w io.Writer) error {
		_, err := w.Write(img)
		return err
	})
}

func (a *app) jsonToJSONLCommand() *cobra.Command {
	var in inputFlags
	var output, key string

	cmd := &cobra.Command{
		Use:   "json-to-jsonl INPUT...",
		Short: "JSON[L] -> JSONL with sorted keys",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(in.patterns) == 0 {
				in.patterns = []string{".json", ".jsonl"}
			}
			paths, err := files.Find(a.fs, args, in.patterns, true)
			if err != nil {
				return err
			}

			return a.writeOutput(output, func(w io.Writer) error {
				docs := 0
				for _, path := range paths {
					n := 0
					err := files.Each(a.fs, path, a.cfg.ReadOptions(), func(v *fastjson.Value) error {
						n += 1
						if key != "" {
							if v.Type() != fastjson.TypeObject || !v.Exists(key) {
								return fmt.Errorf("document %d has no key %q", n, key)
							}
							v = v.Get(key)
						}
						line, err := sortedJSON(v)
						if err != nil {
							return err
						}
						_, err = w.Write(append(line, '\n'))
						return err
					})
					if err != nil {
						return fmt.Errorf("%s: %w", path, err)
					}
					docs += n
				}
				a.log.WithField("documents", docs).Debug("wrote jsonl")
				return nil
			})
		},
	}
	in.register(cmd.Flags())
	outputFlag(cmd, &output, false)
	cmd.Flags().StringVarP(&key, "key", "k", "", "Emit only this key of every document")
	return cmd
}

// sortedJSON re-encodes v compactly with object keys sorted. Number literals
// are kept as written.
func sortedJSON(v *fastjson.Value) ([]byte, error) {
	dec := json.NewDecoder(bytes.NewReader(v.MarshalTo(nil)))
	dec.UseNumber()
	var x any
	if err := dec.Decode(&x); err != nil {
		return nil, err
	}
	return json.Marshal(x)
}

func (a *app) jsonToGoCommand() *cobra.Command {
	var in inputFlags
	var output string
	var opts gogen.Options

	cmd := &cobra.Command{
		Use:   "json-to-go INPUT...",
		Short: "JSON[L] -> Go type declarations",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.inferSchema(cmd.Context(), args, in)
			if err != nil {
				return err
			}
			src, err := gogen.Generate(s, opts)
			if err != nil {
				return err
			}
			return a.writeOutput(output, func(w io.Writer) error {
				_, err := w.Write(src)
				return err
			})
		},
	}
	def := gogen.DefaultOptions()
	in.register(cmd.Flags())
	outputFlag(cmd, &output, false)
	cmd.Flags().StringVar(&opts.Package, "package", def.Package, "Package name of the generated file")
	cmd.Flags().StringVar(&opts.RootName, "name", def.RootName, "Name of the root type")
	return cmd
}
