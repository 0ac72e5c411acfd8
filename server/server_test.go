package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*Server, *test.Hook) {
	t.Helper()
	log, hook := test.NewNullLogger()
	return New(Options{Logger: log, Registry: prometheus.NewRegistry()}), hook
}

func do(s *Server, method, target, contentType, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func TestSchemaJSON(t *testing.T) {
	s, _ := newTestServer(t)
	rec := do(s, "POST", "/v1/schema", "application/json", `{"id": 1, "tags": []}`)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/schema+json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{
		"type": ["object"],
		"properties": {"id": {"type": ["integer"]}, "tags": {"type": ["array"], "items": {}}},
		"required": ["id", "tags"]
	}`, rec.Body.String())
	assert.Equal(t, 1.0, testutil.ToFloat64(s.metrics.documents))
}

func TestSchemaJSONL(t *testing.T) {
	body := "{\"a\": 1}\n\n{\"a\": \"x\", \"b\": true}\n"
	want := `{
		"type": ["object"],
		"properties": {"a": {"type": ["integer", "string"]}, "b": {"type": ["boolean"]}},
		"required": ["a"]
	}`

	s, _ := newTestServer(t)
	rec := do(s, "POST", "/v1/schema", "application/x-ndjson", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, want, rec.Body.String())

	rec = do(s, "POST", "/v1/schema?format=jsonl", "", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, want, rec.Body.String())

	assert.Equal(t, 4.0, testutil.ToFloat64(s.metrics.documents))
}

func TestSchemaUnpack(t *testing.T) {
	s, _ := newTestServer(t)
	rec := do(s, "POST", "/v1/schema?unpack=true", "application/json", `[{"a": 1}, {"b": 2}]`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{
		"type": ["object"],
		"properties": {"a": {"type": ["integer"]}, "b": {"type": ["integer"]}},
		"required": []
	}`, rec.Body.String())

	rec = do(s, "POST", "/v1/schema?unpack=maybe", "application/json", `[]`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSchemaErrors(t *testing.T) {
	s, _ := newTestServer(t)

	rec := do(s, "POST", "/v1/schema", "application/json", `{"a": `)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "malformed document")

	rec = do(s, "POST", "/v1/schema?unpack=1", "application/json", `[]`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "no schemas to merge")

	rec = do(s, "GET", "/v1/schema", "", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestSchemaBodyTooLarge(t *testing.T) {
	log, _ := test.NewNullLogger()
	s := New(Options{Logger: log, MaxBodyBytes: 8})
	rec := do(s, "POST", "/v1/schema", "application/json", `{"name": "much too long"}`)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestMerge(t *testing.T) {
	s, _ := newTestServer(t)
	rec := do(s, "POST", "/v1/merge", "application/json", `[
		{"type": "object", "properties": {"a": {"type": "integer"}}, "required": ["a"]},
		{"type": ["object", "null"], "properties": {"a": {"type": "number"}, "b": true}, "required": ["a", "b"]}
	]`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{
		"type": ["null", "object"],
		"properties": {"a": {"type": ["integer", "number"]}, "b": {}},
		"required": ["a"]
	}`, rec.Body.String())
}

func TestMergeErrors(t *testing.T) {
	s, _ := newTestServer(t)

	cases := map[string]string{
		`[]`:                                  "no schemas to merge",
		`{"type": "object"}`:                  "JSON array",
		`[{"oneOf": [{"type": "string"}]}]`:   "oneOf",
		`[{"type": "string"}, {"$ref": "#"}]`: "schema 1",
		`[`:                                   "malformed document",
	}
	for body, msg := range cases {
		rec := do(s, "POST", "/v1/merge", "application/json", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
		assert.Contains(t, rec.Body.String(), msg, body)
	}
}

func TestKeys(t *testing.T) {
	s, _ := newTestServer(t)
	rec := do(s, "POST", "/v1/keys", "application/json", `{"b": [{"c": 1}], "a": 1}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `["a", "b[]", "b[].c"]`, rec.Body.String())
}

func TestDot(t *testing.T) {
	s, _ := newTestServer(t)
	rec := do(s, "POST", "/v1/dot", "application/json", `{"a": {"b": 1}}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "text/vnd.graphviz; charset=utf-8", rec.Header().Get("Content-Type"))

	out := rec.Body.String()
	assert.True(t, strings.HasPrefix(out, "digraph G {\n"), out)
	assert.Contains(t, out, `"." -> "a";`)
	assert.Contains(t, out, `"a" -> "a.b";`)
}

type brokenWriter struct {
	*httptest.ResponseRecorder
}

func (w brokenWriter) Write([]byte) (int, error) {
	return 0, errors.New("connection reset")
}

func TestDotWriteFailureIsLogged(t *testing.T) {
	s, hook := newTestServer(t)
	req := httptest.NewRequest("POST", "/v1/dot", strings.NewReader(`{"a": 1}`))
	s.ServeHTTP(brokenWriter{httptest.NewRecorder()}, req)

	var warned bool
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.WarnLevel && e.Message == "could not write response" {
			warned = true
			assert.EqualError(t, e.Data[logrus.ErrorKey].(error), "connection reset")
		}
	}
	assert.True(t, warned)
}

func TestRequestIDAndLogging(t *testing.T) {
	s, hook := newTestServer(t)

	rec := do(s, "POST", "/v1/keys", "application/json", `{}`)
	id := rec.Header().Get(requestIDHeader)
	assert.Len(t, id, 36)

	req := httptest.NewRequest("POST", "/v1/keys", strings.NewReader(`{}`))
	req.Header.Set(requestIDHeader, "abc")
	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	assert.Equal(t, "abc", rec.Header().Get(requestIDHeader))

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.InfoLevel, entry.Level)
	assert.Equal(t, "abc", entry.Data["request_id"])
	assert.Equal(t, http.StatusOK, entry.Data["status"])
	assert.Equal(t, "/v1/keys", entry.Data["uri"])
}

func TestMetrics(t *testing.T) {
	s, _ := newTestServer(t)
	do(s, "POST", "/v1/keys", "application/json", `{}`)
	do(s, "POST", "/v1/keys", "application/json", `{`)

	assert.Equal(t, 1.0, testutil.ToFloat64(s.metrics.requests.WithLabelValues("/v1/keys", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(s.metrics.requests.WithLabelValues("/v1/keys", "400")))

	rec := do(s, "GET", "/metrics", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `jsonkit_http_requests_total{code="200",route="/v1/keys"} 1`)
	assert.Contains(t, string(body), "jsonkit_documents_inferred_total 1")
}

func TestListenAndServeStopsOnCancel(t *testing.T) {
	s, _ := newTestServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, s.ListenAndServe(ctx, "127.0.0.1:0"))
}
