package httpx

import (
	"bufio"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
)

// AcceptEncoding is the Accept-Encoding value sent on every API request.
// Setting it by hand turns off net/http's own gzip handling, so responses
// must go through DecodeBody.
const AcceptEncoding = "gzip, deflate"

// DefaultMaxBodyBytes caps decoded response bodies.
const DefaultMaxBodyBytes int64 = 10 << 20 // 10 MiB

// DecodeBody returns a reader over resp.Body with any gzip or deflate
// Content-Encoding removed. Closing the returned reader closes resp.Body.
func DecodeBody(resp *http.Response) (io.ReadCloser, error) {
	encoding := strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding")))

	switch encoding {
	case "", "identity":
		return resp.Body, nil
	case "gzip", "x-gzip":
		zr, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to open gzip body: %w", err)
		}
		return &decodedBody{Reader: zr, decoder: zr, body: resp.Body}, nil
	case "deflate":
		return openDeflate(resp.Body)
	default:
		return nil, fmt.Errorf("unsupported content encoding %q", encoding)
	}
}

// ReadBody reads the whole decoded body, up to DefaultMaxBodyBytes, and
// closes resp.Body.
func ReadBody(resp *http.Response) ([]byte, error) {
	body, err := DecodeBody(resp)
	if err != nil {
		_ = resp.Body.Close()
		return nil, err
	}
	defer body.Close()

	data, err := io.ReadAll(io.LimitReader(body, DefaultMaxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if int64(len(data)) > DefaultMaxBodyBytes {
		return nil, fmt.Errorf("response body exceeds limit of %d bytes", DefaultMaxBodyBytes)
	}
	return data, nil
}

// openDeflate handles both zlib-wrapped deflate (RFC 1950, what the header
// means) and raw deflate streams, which some servers send instead.
func openDeflate(body io.ReadCloser) (io.ReadCloser, error) {
	br := bufio.NewReader(body)
	header, err := br.Peek(2)
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to read deflate header: %w", err)
	}

	if isZlibHeader(header) {
		zr, err := zlib.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("failed to open zlib body: %w", err)
		}
		return &decodedBody{Reader: zr, decoder: zr, body: body}, nil
	}

	fr := flate.NewReader(br)
	return &decodedBody{Reader: fr, decoder: fr, body: body}, nil
}

func isZlibHeader(b []byte) bool {
	if len(b) < 2 {
		return false
	}
	cmf, flg := b[0], b[1]
	return cmf&0x0f == 8 && (uint16(cmf)<<8|uint16(flg))%31 == 0
}

type decodedBody struct {
	io.Reader
	decoder io.Closer
	body    io.Closer
}

func (d *decodedBody) Close() error {
	derr := d.decoder.Close()
	if err := d.body.Close(); err != nil {
		return err
	}
	return derr
}
