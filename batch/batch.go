package batch

import (
	"context"
	"fmt"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/siegeai/jsonkit/cache"
	"github.com/siegeai/jsonkit/files"
	"github.com/siegeai/jsonkit/infer"
	"github.com/siegeai/jsonkit/jsonschema"
	"github.com/siegeai/jsonkit/merge"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/valyala/fastjson"
	"golang.org/x/sync/errgroup"
)

// Cache is the subset of *cache.Cache used while inferring files.
type Cache interface {
	Get(ctx context.Context, k cache.Key) (cache.Entry, bool, error)
	Put(ctx context.Context, k cache.Key, e cache.Entry) error
}

type Options struct {
	// Workers bounds the files inferred at once. Zero means GOMAXPROCS.
	Workers         int
	ContinueOnError bool
	Read            files.ReadOptions
	Engine          *infer.Engine
	Cache           Cache
	Logger          logrus.FieldLogger
}

type Result struct {
	Schema *jsonschema.Schema
	// Files is the number of files that contributed at least one document.
	Files int
	// Documents counts the documents of every contributing file, cached or
	// not.
	Documents int
	// Distinct is the number of structurally different per-file schemas.
	Distinct int
	Skipped  []string
}

// Run infers one schema per file in parallel and merges them. Without
// ContinueOnError the first failing file cancels the rest and its error is
// returned. Files without documents contribute nothing; when nothing at all
// was inferred Run returns jsonschema.ErrEmptyInput.
func Run(ctx context.Context, fs afero.Fs, paths []string, opts Options) (*Result, error) {
	if len(paths) == 0 {
		return nil, jsonschema.ErrEmptyInput
	}

	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	engine := opts.Engine
	if engine == nil {
		engine = infer.New()
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	options := optionsKey(opts.Read, engine)
	start := time.Now()
	schemas := make([]*jsonschema.Schema, len(paths))
	skipped := make([]bool, len(paths))
	var documents atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			w := worker{fs: fs, engine: engine, opts: opts, options: options, log: log.WithField("path", path)}
			s, n, err := w.inferFile(gctx, path)
			if err != nil {
				if opts.ContinueOnError && gctx.Err() == nil {
					log.WithError(err).WithField("path", path).Warn("skipping file")
					skipped[i] = true
					return nil
				}
				return err
			}
			schemas[i] = s
			documents.Add(int64(n))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	res := &Result{Documents: int(documents.Load())}
	var present []*jsonschema.Schema
	for i, s := range schemas {
		if skipped[i] {
			res.Skipped = append(res.Skipped, paths[i])
		}
		if s != nil {
			present = append(present, s)
		}
	}
	res.Files = len(present)

	distinct := merge.Distinct(present...)
	res.Distinct = len(distinct)

	s, err := merge.Schemas(distinct...)
	if err != nil {
		return nil, err
	}
	res.Schema = s

	log.WithFields(logrus.Fields{
		"files":     res.Files,
		"skipped":   len(res.Skipped),
		"distinct":  res.Distinct,
		"documents": res.Documents,
		"duration":  time.Since(start),
	}).Info("merged schemas")
	return res, nil
}

// optionsKey names the settings a cached file schema was inferred under.
func optionsKey(read files.ReadOptions, engine *infer.Engine) string {
	return fmt.Sprintf("unpack_arrays=%t detect_formats=%t", read.UnpackArrays, engine.DetectsFormats())
}

type worker struct {
	fs      afero.Fs
	engine  *infer.Engine
	opts    Options
	options string
	log     logrus.FieldLogger
}

// inferFile folds every document of one file. A nil schema with no error
// means the file held no documents.
func (w *worker) inferFile(ctx context.Context, path string) (*jsonschema.Schema, int, error) {
	info, err := w.fs.Stat(path)
	if err != nil {
		return nil, 0, err
	}
	key := cache.Key{Path: path, Size: info.Size(), ModTime: info.ModTime(), Options: w.options}

	if w.opts.Cache != nil {
		e, ok, err := w.opts.Cache.Get(ctx, key)
		if err != nil {
			w.log.WithError(err).Warn("could not read cache")
		} else if ok {
			w.log.Debug("cache hit")
			return e.Schema, e.Documents, nil
		}
	}

	start := time.Now()
	var acc merge.Accumulator
	err = files.Each(w.fs, path, w.opts.Read, func(v *fastjson.Value) error {
		s, err := w.engine.FastJson(v)
		if err != nil {
			return err
		}
		acc.Add(s)
		return nil
	})
	if err != nil {
		return nil, 0, err
	}

	w.log.WithFields(logrus.Fields{
		"size":      humanize.Bytes(uint64(info.Size())),
		"documents": acc.Len(),
		"duration":  time.Since(start),
	}).Debug("inferred file")

	if acc.Len() == 0 {
		return nil, 0, nil
	}
	s, err := acc.Schema()
	if err != nil {
		return nil, 0, err
	}

	if w.opts.Cache != nil {
		if err := w.opts.Cache.Put(ctx, key, cache.Entry{Schema: s, Documents: acc.Len()}); err != nil {
			w.log.WithError(err).Warn("could not write cache")
		}
	}
	return s, acc.Len(), nil
}
