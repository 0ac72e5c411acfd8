package capture

import (
	"bufio"
	"bytes"
	"io"
	"net/http"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/reassembly"
	"github.com/sirupsen/logrus"
)

// Exchange is one HTTP request and the response it got.
type Exchange struct {
	Method string
	Path   string
	// Endpoint is Path with numeric and UUID segments replaced by {argN}.
	Endpoint     string
	Params       []PathParam
	Status       int
	RequestBody  []byte
	ResponseBody []byte
}

type httpAssembler struct {
	pool      *reassembly.StreamPool
	assembler *reassembly.Assembler
}

func newAssembler(emit func(Exchange), log logrus.FieldLogger) *httpAssembler {
	p := reassembly.NewStreamPool(&streamFactory{emit: emit, log: log})
	a := reassembly.NewAssembler(p)
	return &httpAssembler{pool: p, assembler: a}
}

type assemblyContext struct {
	CaptureInfo gopacket.CaptureInfo
}

func (c *assemblyContext) GetCaptureInfo() gopacket.CaptureInfo {
	return c.CaptureInfo
}

func (a *httpAssembler) assemble(p gopacket.Packet) {
	tcp, ok := p.Layer(layers.LayerTypeTCP).(*layers.TCP)
	if !ok || p.NetworkLayer() == nil {
		return
	}

	c := assemblyContext{CaptureInfo: p.Metadata().CaptureInfo}
	a.assembler.AssembleWithContext(p.NetworkLayer().NetworkFlow(), tcp, &c)
}

// flush completes every connection still open at the end of a capture.
func (a *httpAssembler) flush() int {
	return a.assembler.FlushAll()
}

type streamFactory struct {
	emit func(Exchange)
	log  logrus.FieldLogger
}

func (f *streamFactory) New(netFlow, tcpFlow gopacket.Flow, tcp *layers.TCP, ac reassembly.AssemblerContext) reassembly.Stream {
	return &stream{
		factory: f,
		log:     f.log.WithField("flow", netFlow.String()+" "+tcpFlow.String()),
	}
}

// stream buffers both directions of one connection and parses them once the
// connection is complete. Requests and responses pair up in order, which
// covers keep-alive connections.
type stream struct {
	factory *streamFactory
	log     logrus.FieldLogger
	client  bytes.Buffer
	server  bytes.Buffer
	done    bool
}

func (s *stream) Accept(tcp *layers.TCP, ci gopacket.CaptureInfo, dir reassembly.TCPFlowDirection, nextSeq reassembly.Sequence, start *bool, ac reassembly.AssemblerContext) bool {
	// captures often begin mid connection, so take data without a SYN
	*start = true
	return true
}

func (s *stream) ReassembledSG(sg reassembly.ScatterGather, ac reassembly.AssemblerContext) {
	dir, _, _, skip := sg.Info()
	if skip != 0 {
		s.log.WithField("bytes", skip).Debug("lost data in stream")
	}

	l, _ := sg.Lengths()
	if l == 0 {
		return
	}

	payload := sg.Fetch(l)
	if dir == reassembly.TCPDirClientToServer {
		s.client.Write(payload)
	} else {
		s.server.Write(payload)
	}
}

func (s *stream) ReassemblyComplete(ac reassembly.AssemblerContext) bool {
	s.finish()
	return true
}

func (s *stream) finish() {
	if s.done {
		return
	}
	s.done = true

	reqs := bufio.NewReader(&s.client)
	ress := bufio.NewReader(&s.server)
	for {
		req, err := http.ReadRequest(reqs)
		if err == io.EOF {
			return
		} else if err != nil {
			s.log.WithError(err).Debug("could not parse request")
			return
		}
		reqBody, err := readAllEncoded(req.Header.Get("Content-Encoding"), req.Body)
		if err != nil {
			s.log.WithError(err).Debug("could not read request body")
		}

		res, err := http.ReadResponse(ress, req)
		if err != nil {
			s.log.WithError(err).WithField("path", req.URL.Path).Debug("could not parse response")
			return
		}
		resBody, err := readAllEncoded(res.Header.Get("Content-Encoding"), res.Body)
		if err != nil {
			s.log.WithError(err).Debug("could not read response body")
		}

		endpoint, params := Template(req.URL.Path)
		s.factory.emit(Exchange{
			Method:       req.Method,
			Path:         req.URL.Path,
			Endpoint:     endpoint,
			Params:       params,
			Status:       res.StatusCode,
			RequestBody:  reqBody,
			ResponseBody: resBody,
		})
	}
}
