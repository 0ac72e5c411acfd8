package capture

import (
	"sort"
	"strconv"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/siegeai/jsonkit/infer"
	"github.com/siegeai/jsonkit/jsonschema"
	"github.com/siegeai/jsonkit/merge"
	"github.com/sirupsen/logrus"
)

// Endpoint collects the body schemas seen for one method and path template.
type Endpoint struct {
	Method    string
	Template  string
	Params    []PathParam
	Request   *jsonschema.Schema
	Responses map[int]*jsonschema.Schema
	Calls     int
}

func (e *Endpoint) Key() string {
	return e.Method + " " + e.Template
}

// Endpoints folds exchanges into per endpoint schemas. Bodies that are not
// JSON are logged and left out. It is not safe for concurrent use.
type Endpoints struct {
	engine *infer.Engine
	log    logrus.FieldLogger
	byKey  map[string]*Endpoint
}

func NewEndpoints(engine *infer.Engine, log logrus.FieldLogger) *Endpoints {
	if engine == nil {
		engine = infer.New()
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Endpoints{engine: engine, log: log, byKey: make(map[string]*Endpoint)}
}

func (es *Endpoints) Add(x Exchange) {
	// server errors say nothing about the shape of the api
	if 500 <= x.Status && x.Status < 600 {
		return
	}

	key := x.Method + " " + x.Endpoint
	e, ok := es.byKey[key]
	if !ok {
		e = &Endpoint{
			Method:    x.Method,
			Template:  x.Endpoint,
			Params:    x.Params,
			Responses: make(map[int]*jsonschema.Schema),
		}
		es.byKey[key] = e
	}
	e.Calls += 1

	log := es.log.WithFields(logrus.Fields{"method": x.Method, "path": x.Path, "status": x.Status})
	if len(x.RequestBody) > 0 && x.Status != 400 {
		if s, err := es.engine.Bytes(x.RequestBody); err != nil {
			log.WithError(err).Debug("skipping request body")
		} else {
			e.Request = merge.Schema(e.Request, s)
		}
	}
	if len(x.ResponseBody) > 0 {
		if s, err := es.engine.Bytes(x.ResponseBody); err != nil {
			log.WithError(err).Debug("skipping response body")
		} else {
			e.Responses[x.Status] = merge.Schema(e.Responses[x.Status], s)
		}
	}
}

// List returns the endpoints sorted by key.
func (es *Endpoints) List() []*Endpoint {
	res := make([]*Endpoint, 0, len(es.byKey))
	for _, e := range es.byKey {
		res = append(res, e)
	}
	sort.Slice(res, func(i, j int) bool {
		return res[i].Key() < res[j].Key()
	})
	return res
}

type endpointDoc struct {
	Request   *jsonschema.Schema            `json:"request,omitempty"`
	Responses map[string]*jsonschema.Schema `json:"responses,omitempty"`
}

// Docs maps every endpoint key onto its request and response schemas.
func (es *Endpoints) Docs() map[string]any {
	res := make(map[string]any, len(es.byKey))
	for key, e := range es.byKey {
		d := endpointDoc{Request: e.Request}
		if len(e.Responses) > 0 {
			d.Responses = make(map[string]*jsonschema.Schema, len(e.Responses))
			for status, s := range e.Responses {
				d.Responses[strconv.Itoa(status)] = s
			}
		}
		res[key] = d
	}
	return res
}

// OpenAPI describes the endpoints as an OpenAPI document.
func (es *Endpoints) OpenAPI(title, version string) *openapi3.T {
	doc := &openapi3.T{
		OpenAPI: "3.0.0",
		Info:    &openapi3.Info{Title: title, Version: version},
		Paths:   openapi3.Paths{},
	}

	for _, e := range es.List() {
		item, ok := doc.Paths[e.Template]
		if !ok {
			item = &openapi3.PathItem{}
			doc.Paths[e.Template] = item
		}
		item.SetOperation(e.Method, e.operation())
	}
	return doc
}

func (e *Endpoint) operation() *openapi3.Operation {
	op := openapi3.NewOperation()
	for _, p := range e.Params {
		op.AddParameter(&openapi3.Parameter{
			Name:     p.Name,
			In:       openapi3.ParameterInPath,
			Required: true,
			Schema:   &openapi3.SchemaRef{Value: &openapi3.Schema{Type: p.Type, Format: p.Format}},
		})
	}

	if e.Request != nil {
		rb := openapi3.NewRequestBody().WithJSONSchema(jsonschema.ToOpenAPI(e.Request))
		op.RequestBody = &openapi3.RequestBodyRef{Value: rb}
	}

	op.Responses = openapi3.Responses{}
	for status, s := range e.Responses {
		rs := openapi3.NewResponse().WithDescription("").WithJSONSchema(jsonschema.ToOpenAPI(s))
		op.Responses[strconv.Itoa(status)] = &openapi3.ResponseRef{Value: rs}
	}
	if len(op.Responses) == 0 {
		op.Responses["default"] = &openapi3.ResponseRef{Value: openapi3.NewResponse().WithDescription("")}
	}
	return op
}
