package server

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/siegeai/jsonkit/dot"
	"github.com/siegeai/jsonkit/files"
	"github.com/siegeai/jsonkit/jsonschema"
	"github.com/siegeai/jsonkit/keypath"
	"github.com/siegeai/jsonkit/merge"
	"github.com/siegeai/jsonkit/schemadoc"
	"github.com/sirupsen/logrus"
	"github.com/urfave/negroni"
	"github.com/valyala/fastjson"
)

const requestIDHeader = "X-Request-Id"

func (s *Server) setupRoutes() {
	s.router.HandleFunc("/v1/schema", s.handleSchema()).Methods("POST")
	s.router.HandleFunc("/v1/merge", s.handleMerge()).Methods("POST")
	s.router.HandleFunc("/v1/keys", s.handleKeys()).Methods("POST")
	s.router.HandleFunc("/v1/dot", s.handleDot()).Methods("POST")
	s.router.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})).Methods("GET")
	s.router.Use(s.logMiddleware)
}

func (s *Server) logMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
			r.Header.Set(requestIDHeader, id)
		}
		w.Header().Set(requestIDHeader, id)

		ww := negroni.NewResponseWriter(w)
		next.ServeHTTP(ww, r)

		route := "unknown"
		if cur := mux.CurrentRoute(r); cur != nil {
			if tpl, err := cur.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		elapsed := time.Since(start)
		s.metrics.requests.WithLabelValues(route, strconv.Itoa(ww.Status())).Inc()
		s.metrics.duration.WithLabelValues(route).Observe(elapsed.Seconds())

		s.log.WithFields(logrus.Fields{
			"request_id": id,
			"method":     r.Method,
			"uri":        r.RequestURI,
			"status":     ww.Status(),
			"size":       ww.Size(),
			"duration":   elapsed,
		}).Info(http.StatusText(ww.Status()))
	})
}

func (s *Server) handleSchema() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sch, err := s.inferBody(w, r)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		s.writeSchema(w, r, sch)
	}
}

func (s *Server) handleMerge() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sch, err := s.mergeBody(w, r)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		s.writeSchema(w, r, sch)
	}
}

func (s *Server) handleKeys() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sch, err := s.inferBody(w, r)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		s.writeJSON(w, r, http.StatusOK, keypath.Project(sch))
	}
}

func (s *Server) handleDot() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sch, err := s.inferBody(w, r)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		g := keypath.ToGraph(sch, keypath.Options{Root: "."})
		w.Header().Set("Content-Type", "text/vnd.graphviz; charset=utf-8")
		if _, err := io.WriteString(w, dot.Format(g, s.dot)); err != nil {
			s.log.WithError(err).WithField("request_id", r.Header.Get(requestIDHeader)).Warn("could not write response")
		}
	}
}

// requestError is a problem with the request itself rather than its documents.
type requestError struct {
	msg string
}

func (e *requestError) Error() string {
	return e.msg
}

func isJSONL(r *http.Request) bool {
	if f := r.URL.Query().Get("format"); f != "" {
		return f == "jsonl"
	}
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return false
	}
	return mt == "application/x-ndjson" || mt == "application/jsonl"
}

// inferBody infers and merges every document in the request body.
func (s *Server) inferBody(w http.ResponseWriter, r *http.Request) (*jsonschema.Schema, error) {
	kind := files.KindJSON
	if isJSONL(r) {
		kind = files.KindJSONL
	}

	opts := s.read
	if v := r.URL.Query().Get("unpack"); v != "" {
		unpack, err := strconv.ParseBool(v)
		if err != nil {
			return nil, &requestError{msg: fmt.Sprintf("invalid unpack parameter %q", v)}
		}
		opts.UnpackArrays = unpack
	}

	body := http.MaxBytesReader(w, r.Body, s.maxBody)
	var acc merge.Accumulator
	err := files.Decode(body, "request body", kind, opts, func(v *fastjson.Value) error {
		sch, err := s.engine.FastJson(v)
		if err != nil {
			return err
		}
		acc.Add(sch)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.metrics.documents.Add(float64(acc.Len()))
	return acc.Schema()
}

// mergeBody merges a JSON array of schema documents.
func (s *Server) mergeBody(w http.ResponseWriter, r *http.Request) (*jsonschema.Schema, error) {
	bs, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxBody))
	if err != nil {
		return nil, err
	}

	var p fastjson.Parser
	v, err := p.ParseBytes(bs)
	if err != nil {
		return nil, &jsonschema.MalformedDocumentError{Source: "request body", Err: err}
	}
	arr, err := v.Array()
	if err != nil {
		return nil, &requestError{msg: "body must be a JSON array of schemas"}
	}

	docs := make([][]byte, 0, len(arr))
	for _, el := range arr {
		docs = append(docs, el.MarshalTo(nil))
	}
	return schemadoc.ParseAll(docs...)
}

func statusFor(err error) int {
	var (
		malformed   *jsonschema.MalformedDocumentError
		unsupported *jsonschema.UnsupportedShapeError
		request     *requestError
		tooLarge    *http.MaxBytesError
	)
	switch {
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.As(err, &malformed), errors.As(err, &unsupported), errors.As(err, &request):
		return http.StatusBadRequest
	case errors.Is(err, jsonschema.ErrEmptyInput):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.log.WithError(err).WithField("request_id", r.Header.Get(requestIDHeader)).Error("request failed")
	}
	s.writeJSON(w, r, status, map[string]string{"error": err.Error()})
}

func (s *Server) writeSchema(w http.ResponseWriter, r *http.Request, sch *jsonschema.Schema) {
	w.Header().Set("Content-Type", "application/schema+json")
	if err := jsonschema.Encode(w, sch, 2); err != nil {
		s.log.WithError(err).WithField("request_id", r.Header.Get(requestIDHeader)).Warn("could not write response")
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.WithError(err).WithField("request_id", r.Header.Get(requestIDHeader)).Warn("could not write response")
	}
}
