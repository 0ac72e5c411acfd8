package capture

import (
	"compress/gzip"
	"compress/zlib"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
)

func newEncodedReader(enc string, r io.ReadCloser) (io.ReadCloser, error) {
	switch enc {
	case "", "identity":
		return r, nil
	case "gzip", "x-gzip":
		return gzip.NewReader(r)
	case "deflate":
		return zlib.NewReader(r)
	case "compress", "br":
		return nil, fmt.Errorf("unsupported encoding %q", enc)
	default:
		logrus.WithField("enc", enc).Warn("unknown encoding")
		return r, nil
	}
}

func readAllEncoded(enc string, r io.ReadCloser) ([]byte, error) {
	d, err := newEncodedReader(enc, r)
	if err == io.EOF {
		return nil, nil
	} else if err != nil {
		return nil, err
	}

	bs, err := io.ReadAll(d)
	if err != nil {
		return nil, err
	}

	if err := d.Close(); err != nil {
		logrus.WithError(err).Warn("could not close reader")
	}

	return bs, nil
}
