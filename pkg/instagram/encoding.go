package instagram

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
)

// errBadEncoding marks a body whose content encoding could not be decoded.
var errBadEncoding = errors.New("undecodable response body")

// decodeBody wraps r with a decoder for the given Content-Encoding.
// Setting Accept-Encoding explicitly disables the transport's transparent
// gzip handling, so every advertised encoding is handled here.
func decodeBody(encoding string, r io.Reader) (io.ReadCloser, error) {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "", "identity":
		return io.NopCloser(r), nil
	case "gzip", "x-gzip":
		zr, err := gzip.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("%w: gzip: %v", errBadEncoding, err)
		}
		return zr, nil
	case "deflate":
		return newDeflateReader(r)
	case "br":
		return io.NopCloser(brotli.NewReader(r)), nil
	default:
		return nil, fmt.Errorf("%w: unsupported content encoding %q", errBadEncoding, encoding)
	}
}

// newDeflateReader accepts both zlib-wrapped and raw deflate streams;
// servers disagree on what "deflate" means.
func newDeflateReader(r io.Reader) (io.ReadCloser, error) {
	br := bufio.NewReader(r)
	header, _ := br.Peek(2)
	if isZlibHeader(header) {
		zr, err := zlib.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("%w: zlib: %v", errBadEncoding, err)
		}
		return zr, nil
	}
	return flate.NewReader(br), nil
}

func isZlibHeader(h []byte) bool {
	if len(h) < 2 {
		return false
	}
	cmf, flg := h[0], h[1]
	return cmf&0x0f == 8 && (uint16(cmf)<<8|uint16(flg))%31 == 0
}

// trackingReader remembers the first non-EOF error from the underlying reader.
type trackingReader struct {
	r   io.Reader
	err error
}

func (t *trackingReader) Read(p []byte) (int, error) {
	n, err := t.r.Read(p)
	if err != nil && err != io.EOF && t.err == nil {
		t.err = err
	}
	return n, err
}
