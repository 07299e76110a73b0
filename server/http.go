package server

import (
	"errors"
	"fmt"
	"net/http"

	sdkproto "github.com/tarmac-project/protobuf-go/sdk"
	"go.uber.org/zap"

	"github.com/tarmac-project/remotelog/wire"
)

// HTTPHandler returns an ingest handler accepting POSTed batches. Content-Type
// selects protobuf or JSON; Content-Encoding may be gzip or zstd.
func (s *Server) HTTPHandler() http.Handler {
	return http.HandlerFunc(s.serveHTTP)
}

func (s *Server) serveHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	body, err := s.readBody(w, r)
	if err != nil {
		switch {
		case errors.Is(err, ErrUnsupportedEncoding):
			s.reply(w, http.StatusUnsupportedMediaType, &sdkproto.Status{Code: wire.StatusBadInput, Status: err.Error()})
		case errors.Is(err, ErrBodyTooLarge):
			s.reply(w, http.StatusRequestEntityTooLarge, &sdkproto.Status{Code: wire.StatusBadInput, Status: err.Error()})
		default:
			s.reply(w, http.StatusBadRequest, &sdkproto.Status{Code: wire.StatusBadInput, Status: err.Error()})
		}
		return
	}

	format := wire.FormatFromContentType(r.Header.Get("Content-Type"))
	b, err := wire.DecodeBatch(body, format)
	if err != nil {
		s.logger.Warn("Rejected undecodable log batch", zap.Error(err), zap.String("remote_addr", r.RemoteAddr))
		s.reply(w, http.StatusBadRequest, &sdkproto.Status{Code: wire.StatusBadInput, Status: err.Error()})
		return
	}

	s.reply(w, http.StatusOK, wire.NewResult(s.logBatch(b)))
}

func (s *Server) readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	raw := http.MaxBytesReader(w, r.Body, s.maxBody)
	defer raw.Close()

	body, err := ReadPayload(raw, r.Header.Get("Content-Encoding"), s.maxBody)
	if err != nil {
		return nil, s.bodyError(err)
	}
	return body, nil
}

func (s *Server) bodyError(err error) error {
	if errors.Is(err, ErrUnsupportedEncoding) || errors.Is(err, ErrBodyTooLarge) {
		return err
	}
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return fmt.Errorf("%w: limit %d bytes", ErrBodyTooLarge, maxErr.Limit)
	}
	return fmt.Errorf("failed to read request body: %w", err)
}

func (s *Server) reply(w http.ResponseWriter, code int, status *sdkproto.Status) {
	payload, err := wire.EncodeStatus(status)
	if err != nil {
		s.logger.Error("Failed to encode ingest response", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/x-protobuf")
	w.WriteHeader(code)
	_, _ = w.Write(payload)
}
