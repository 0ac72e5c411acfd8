package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/siegeai/jsonkit/dot"
	"github.com/siegeai/jsonkit/files"
	"github.com/siegeai/jsonkit/infer"
	"github.com/sirupsen/logrus"
)

type Options struct {
	Engine *infer.Engine
	Read   files.ReadOptions
	Dot    dot.Options
	Logger logrus.FieldLogger

	// Registry receives the server metrics. A fresh registry is used when nil.
	Registry     *prometheus.Registry
	// MaxBodyBytes bounds request bodies, 32MB when zero.
	MaxBodyBytes int64
}

type Server struct {
	router   *mux.Router
	engine   *infer.Engine
	read     files.ReadOptions
	dot      dot.Options
	log      logrus.FieldLogger
	metrics  *metrics
	registry *prometheus.Registry
	maxBody  int64
}

func New(opts Options) *Server {
	if opts.Engine == nil {
		opts.Engine = infer.New()
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	if opts.Registry == nil {
		opts.Registry = prometheus.NewRegistry()
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 32 << 20
	}

	s := &Server{
		router:   mux.NewRouter(),
		engine:   opts.Engine,
		read:     opts.Read,
		dot:      opts.Dot,
		log:      opts.Logger,
		metrics:  newMetrics(opts.Registry),
		registry: opts.Registry,
		maxBody:  opts.MaxBodyBytes,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is done, then drains open
// requests for up to five seconds.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	hs := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.log.WithField("addr", addr).Info("listening")
		errc <- hs.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := hs.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
