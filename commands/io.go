package commands

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/siegeai/jsonkit/batch"
	"github.com/siegeai/jsonkit/cache"
	"github.com/siegeai/jsonkit/files"
	"github.com/siegeai/jsonkit/jsonschema"
	"github.com/siegeai/jsonkit/merge"
	"github.com/siegeai/jsonkit/schemadoc"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/spf13/pflag"
)

// inputFlags are the flags of every command reading files.
type inputFlags struct {
	patterns []string
}

func (f *inputFlags) register(fs *pflag.FlagSet) {
	fs.StringSliceVarP(&f.patterns, "pattern", "p", nil, "Only read files whose name matches (repeatable)")
}

// inferSchema infers the merged schema of every document under roots.
func (a *app) inferSchema(ctx context.Context, roots []string, in inputFlags) (*jsonschema.Schema, error) {
	paths, err := files.Find(a.fs, roots, in.patterns, true)
	if err != nil {
		return nil, err
	}

	opts := a.cfg.BatchOptions()
	opts.Logger = a.log
	if a.cfg.Cache != "" {
		c, err := cache.Open(ctx, a.cfg.Cache)
		if err != nil {
			return nil, err
		}
		defer c.Close()
		opts.Cache = c
	}

	start := time.Now()
	res, err := batch.Run(ctx, a.fs, paths, opts)
	if err != nil {
		return nil, err
	}
	a.log.WithFields(logrus.Fields{
		"files":     res.Files,
		"documents": res.Documents,
		"distinct":  res.Distinct,
		"skipped":   len(res.Skipped),
		"duration":  time.Since(start),
	}).Info("inferred schema")

	return a.present(res.Schema), nil
}

// readSchemas parses and merges the schema documents under roots.
func (a *app) readSchemas(roots []string, in inputFlags) (*jsonschema.Schema, error) {
	paths, err := files.Find(a.fs, roots, in.patterns, true)
	if err != nil {
		return nil, err
	}

	var acc merge.Accumulator
	for _, path := range paths {
		bs, err := afero.ReadFile(a.fs, path)
		if err != nil {
			return nil, err
		}
		s, err := schemadoc.Parse(bs)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		acc.Add(s)
	}

	s, err := acc.Schema()
	if err != nil {
		return nil, err
	}
	a.log.WithField("files", len(paths)).Debug("read schemas")
	return a.present(s), nil
}

func (a *app) present(s *jsonschema.Schema) *jsonschema.Schema {
	if a.cfg.CollapseNumbers {
		return jsonschema.CollapseNumbers(s)
	}
	return s
}

// writeOutput hands fn the output file at path, or stdout when path is empty.
func (a *app) writeOutput(path string, fn func(w io.Writer) error) error {
	if path == "" {
		return fn(a.stdout)
	}

	f, err := a.fs.Create(path)
	if err != nil {
		return err
	}
	if err := fn(f); err != nil {
		f.Close()
		return fmt.Errorf("could not write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	a.log.WithField("path", path).Info("wrote output")
	return nil
}
