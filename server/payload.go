package server

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

var (
	// ErrUnsupportedEncoding is returned for content encodings other than gzip, zstd and identity.
	ErrUnsupportedEncoding = errors.New("unsupported content encoding")

	// ErrBodyTooLarge is returned when a payload exceeds the configured limit.
	ErrBodyTooLarge = errors.New("request body too large")
)

// ReadPayload reads a possibly compressed batch from r. encoding is an HTTP
// Content-Encoding value; limit bounds the decompressed size.
func ReadPayload(r io.Reader, encoding string, limit int64) ([]byte, error) {
	var src io.Reader
	switch enc := strings.ToLower(strings.TrimSpace(encoding)); enc {
	case "", "identity":
		src = r
	case "gzip":
		zr, err := gzip.NewReader(r)
		if err != nil {
			return nil, err
		}
		defer zr.Close()
		src = zr
	case "zstd":
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, err
		}
		defer zr.Close()
		src = zr
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedEncoding, enc)
	}

	body, err := io.ReadAll(io.LimitReader(src, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(body)) > limit {
		return nil, fmt.Errorf("%w: limit %d bytes", ErrBodyTooLarge, limit)
	}
	return body, nil
}
