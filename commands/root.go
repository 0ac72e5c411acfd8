package commands

import (
	"context"
	"io"
	"os"

	"github.com/siegeai/jsonkit/config"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// app is the state shared by every command of one invocation.
type app struct {
	fs     afero.Fs
	stdout io.Writer
	stderr io.Writer

	v          *viper.Viper
	configFile string
	cfg        config.Config
	log        *logrus.Logger
}

// configKey annotates a flag with the config key it overrides.
const configKey = "jsonkit_config_key"

// bind marks the flag name of fs as an override of key. Only the flags of the
// command being run are bound, so commands may share a flag name.
func bind(fs *pflag.FlagSet, name, key string) {
	if err := fs.SetAnnotation(name, configKey, []string{key}); err != nil {
		panic(err)
	}
}

func Execute(ctx context.Context) error {
	return NewRootCommand(afero.NewOsFs(), os.Stdout, os.Stderr).ExecuteContext(ctx)
}

// NewRootCommand builds the command tree over fs. Results go to stdout unless
// a command is given an output file; logs go to stderr.
func NewRootCommand(fs afero.Fs, stdout, stderr io.Writer) *cobra.Command {
	a := &app{fs: fs, stdout: stdout, stderr: stderr, v: config.New()}
	a.v.SetFs(fs)

	root := &cobra.Command{
		Use:   "jsonkit",
		Short: "Infer and merge the schemas of JSON documents",
		Long: `jsonkit infers a JSON Schema from a set of JSON or JSONL documents,
merges schemas, lists their key paths, and renders them as DOT graphs, images
or Go types.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	pf := root.PersistentFlags()
	pf.StringVar(&a.configFile, "config", "", "Configuration file path (yaml, json or toml)")
	pf.String("log-level", "info", "Logging level (debug, info, warn, error)")
	pf.String("log-format", "text", "Log format (text, json)")
	pf.Int("workers", 0, "Files inferred in parallel (0 = GOMAXPROCS)")
	pf.Bool("continue-on-error", false, "Log and skip files that cannot be read")
	pf.Bool("unpack-arrays", false, "Treat each element of a top level array as a document")
	pf.Bool("detect-formats", false, "Annotate uuid and date-time strings with a format")
	pf.Bool("collapse-numbers", false, "Report integer and number together as number")
	pf.String("cache", "", "SQLite file caching per file schemas")
	bind(pf, "log-level", "log.level")
	bind(pf, "log-format", "log.format")
	bind(pf, "workers", "workers")
	bind(pf, "continue-on-error", "continue_on_error")
	bind(pf, "unpack-arrays", "unpack_arrays")
	bind(pf, "detect-formats", "detect_formats")
	bind(pf, "collapse-numbers", "collapse_numbers")
	bind(pf, "cache", "cache")

	root.AddCommand(
		a.jsonKeysCommand(),
		a.jsonToJSONSchemaCommand(),
		a.jsonToDotCommand(),
		a.jsonToImageCommand(),
		a.jsonToJSONLCommand(),
		a.jsonToGoCommand(),
		a.jsonSchemaToDotCommand(),
		a.jsonSchemaToImageCommand(),
		a.pcapToJSONSchemaCommand(),
		a.serveCommand(),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	var bindErr error
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if keys := f.Annotations[configKey]; len(keys) == 1 && bindErr == nil {
			bindErr = a.v.BindPFlag(keys[0], f)
		}
	})
	if bindErr != nil {
		return bindErr
	}

	cfg, err := config.Load(a.v, a.configFile)
	if err != nil {
		return err
	}
	log, err := setupLogging(cfg.Log.Level, cfg.Log.Format, a.stderr)
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.log = log
	return nil
}

func setupLogging(level, format string, w io.Writer) (*logrus.Logger, error) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, err
	}

	log := logrus.New()
	log.SetOutput(w)
	log.SetLevel(lvl)
	if format == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return log, nil
}
