package commands

import (
	"io"

	"github.com/siegeai/jsonkit/dot"
	"github.com/spf13/cobra"
)

func (a *app) jsonSchemaToDotCommand() *cobra.Command {
	var in inputFlags
	var output string

	cmd := &cobra.Command{
		Use:   "jsonschema-to-dot SCHEMA...",
		Short: "JSON Schema -> DOT graph of the key paths",
		Long: `Merge one or more JSON Schema files and draw their key paths as a DOT graph.
Only type, properties, required, items, format, anyOf and nullable are
understood; other shape keywords are rejected.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.readSchemas(args, in)
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

func (a *app) jsonSchemaToImageCommand() *cobra.Command {
	var in inputFlags
	var output string

	cmd := &cobra.Command{
		Use:   "jsonschema-to-image SCHEMA...",
		Short: "JSON Schema -> PNG or SVG drawing of the key paths",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := dot.FormatFromPath(output)
			if err != nil {
				return err
			}
			s, err := a.readSchemas(args, in)
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
