package commands

import (
	"fmt"
	"io"

	"github.com/siegeai/jsonkit/capture"
	"github.com/siegeai/jsonkit/files"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func (a *app) pcapToJSONSchemaCommand() *cobra.Command {
	var in inputFlags
	var output, format, title, version string
	var indent int

	cmd := &cobra.Command{
		Use:   "pcap-to-json-schema CAPTURE...",
		Short: "pcap[ng] -> request and response schemas per HTTP endpoint",
		Long: `Reassemble the HTTP/1.x traffic in one or more packet captures and infer a
request and a response schema for every endpoint. Numeric and UUID path
segments are folded into {argN} templates. Bodies that are not JSON are
skipped, as are responses with a 5xx status.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "json" && format != "openapi" {
				return fmt.Errorf("unknown format %q, expected json or openapi", format)
			}
			paths, err := files.Find(a.fs, args, in.patterns, true)
			if err != nil {
				return err
			}

			es := capture.NewEndpoints(a.cfg.Engine(), a.log)
			exchanges := 0
			for _, path := range paths {
				err := capture.ReadFile(a.fs, path, a.log, func(x capture.Exchange) {
					exchanges += 1
					es.Add(x)
				})
				if err != nil {
					if !a.cfg.ContinueOnError {
						return err
					}
					a.log.WithError(err).WithField("path", path).Warn("skipping file")
				}
			}
			a.log.WithFields(logrus.Fields{
				"captures":  len(paths),
				"exchanges": exchanges,
				"endpoints": len(es.List()),
			}).Info("read captures")

			return a.writeOutput(output, func(w io.Writer) error {
				if format == "openapi" {
					return writeJSON(w, es.OpenAPI(title, version), indent)
				}
				return writeJSON(w, es.Docs(), indent)
			})
		},
	}
	in.register(cmd.Flags())
	outputFlag(cmd, &output, false)
	cmd.Flags().StringVarP(&format, "format", "f", "json", "Output format (json, openapi)")
	cmd.Flags().IntVar(&indent, "indent", defaultIndent, "Indentation level")
	cmd.Flags().StringVar(&title, "title", "captured api", "OpenAPI info.title")
	cmd.Flags().StringVar(&version, "api-version", "0.0.0", "OpenAPI info.version")
	return cmd
}
