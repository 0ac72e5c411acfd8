package capture

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

// pcapng files open with a section header block, whose type reads the same
// in either byte order
var ngMagic = []byte{0x0a, 0x0d, 0x0d, 0x0a}

type packetDataSource interface {
	gopacket.PacketDataSource
	LinkType() layers.LinkType
}

func newPacketSource(r io.Reader) (*gopacket.PacketSource, error) {
	br := bufio.NewReader(r)
	magic, err := br.Peek(len(ngMagic))
	if err != nil {
		return nil, fmt.Errorf("could not read capture header: %w", err)
	}

	var src packetDataSource
	if bytes.Equal(magic, ngMagic) {
		src, err = pcapgo.NewNgReader(br, pcapgo.DefaultNgReaderOptions)
	} else {
		src, err = pcapgo.NewReader(br)
	}
	if err != nil {
		return nil, fmt.Errorf("could not open capture: %w", err)
	}

	return gopacket.NewPacketSource(src, src.LinkType()), nil
}

// Read reassembles the TCP streams of a pcap or pcapng capture and calls fn
// with every HTTP exchange found, in the order connections complete.
func Read(r io.Reader, log logrus.FieldLogger, fn func(Exchange)) error {
	if log == nil {
		log = logrus.StandardLogger()
	}

	source, err := newPacketSource(r)
	if err != nil {
		return err
	}

	assembler := newAssembler(fn, log)
	packets := 0
	for {
		p, err := source.NextPacket()
		if errors.Is(err, io.EOF) {
			break
		} else if err != nil {
			return fmt.Errorf("could not read packet %d: %w", packets+1, err)
		}
		packets += 1
		assembler.assemble(p)
	}

	closed := assembler.flush()
	log.WithFields(logrus.Fields{"packets": packets, "flushed": closed}).Debug("read capture")
	return nil
}

func ReadFile(fs afero.Fs, path string, log logrus.FieldLogger, fn func(Exchange)) error {
	f, err := fs.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := Read(f, log, fn); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}
