package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/siegeai/jsonkit/batch"
	"github.com/siegeai/jsonkit/dot"
	"github.com/siegeai/jsonkit/files"
	"github.com/siegeai/jsonkit/infer"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

const EnvPrefix = "JSONKIT"

type Config struct {
	Log             Log    `mapstructure:"log"`
	Workers         int    `mapstructure:"workers"`
	ContinueOnError bool   `mapstructure:"continue_on_error"`
	UnpackArrays    bool   `mapstructure:"unpack_arrays"`
	DetectFormats   bool   `mapstructure:"detect_formats"`
	CollapseNumbers bool   `mapstructure:"collapse_numbers"`
	Cache           string `mapstructure:"cache"`
	Dot             Dot    `mapstructure:"dot"`
	Server          Server `mapstructure:"server"`
}

type Log struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type Dot struct {
	Binary      string `mapstructure:"binary"`
	DPI         int    `mapstructure:"dpi"`
	Indent      int    `mapstructure:"indent"`
	RankDir     string `mapstructure:"rankdir"`
	NodeShape   string `mapstructure:"node_shape"`
	Concentrate bool   `mapstructure:"concentrate"`
}

type Server struct {
	Addr string `mapstructure:"addr"`
}

// SetDefaults registers every key so environment overrides are seen by
// Unmarshal even when no config file mentions them.
func SetDefaults(v *viper.Viper) {
	dotOpts := dot.DefaultOptions()
	renderOpts := dot.DefaultRenderOptions()

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("workers", 0)
	v.SetDefault("continue_on_error", false)
	v.SetDefault("unpack_arrays", false)
	v.SetDefault("detect_formats", false)
	v.SetDefault("collapse_numbers", false)
	v.SetDefault("cache", "")
	v.SetDefault("dot.binary", renderOpts.Binary)
	v.SetDefault("dot.dpi", renderOpts.DPI)
	v.SetDefault("dot.indent", dotOpts.Indent)
	v.SetDefault("dot.rankdir", dotOpts.RankDir)
	v.SetDefault("dot.node_shape", dotOpts.NodeShape)
	v.SetDefault("dot.concentrate", dotOpts.Concentrate)
	v.SetDefault("server.addr", ":8080")
}

// New returns a viper instance with defaults and JSONKIT_* environment
// lookups, so JSONKIT_DOT_DPI overrides dot.dpi.
func New() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads the optional config file and decodes the merged settings.
func Load(v *viper.Viper, file string) (Config, error) {
	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c Config) Validate() error {
	var errs []error
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		errs = append(errs, fmt.Errorf("log.format: must be text or json, got %q", c.Log.Format))
	}
	if c.Workers < 0 {
		errs = append(errs, fmt.Errorf("workers: must not be negative, got %d", c.Workers))
	}
	if c.Dot.DPI <= 0 {
		errs = append(errs, fmt.Errorf("dot.dpi: must be positive, got %d", c.Dot.DPI))
	}
	if c.Dot.Indent < 0 {
		errs = append(errs, fmt.Errorf("dot.indent: must not be negative, got %d", c.Dot.Indent))
	}
	return errors.Join(errs...)
}

func (c Config) Engine() *infer.Engine {
	return infer.New(infer.WithFormats(c.DetectFormats))
}

func (c Config) ReadOptions() files.ReadOptions {
	return files.ReadOptions{UnpackArrays: c.UnpackArrays}
}

// BatchOptions leaves Cache and Logger for the caller to fill in.
func (c Config) BatchOptions() batch.Options {
	return batch.Options{
		Workers:         c.Workers,
		ContinueOnError: c.ContinueOnError,
		Read:            c.ReadOptions(),
		Engine:          c.Engine(),
	}
}

func (c Config) DotOptions() dot.Options {
	return dot.Options{
		Indent:      c.Dot.Indent,
		RankDir:     c.Dot.RankDir,
		NodeShape:   c.Dot.NodeShape,
		Concentrate: c.Dot.Concentrate,
	}
}

func (c Config) RenderOptions() dot.RenderOptions {
	return dot.RenderOptions{Binary: c.Dot.Binary, DPI: c.Dot.DPI}
}
