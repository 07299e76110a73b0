package wire

import (
	"errors"
	"testing"

	"google.golang.org/protobuf/proto"

	sdkproto "github.com/tarmac-project/protobuf-go/sdk"
	remotelog "github.com/tarmac-project/remotelog"
)

func TestNewResult(t *testing.T) {
	t.Parallel()

	if got := NewResult(""); !proto.Equal(got, &sdkproto.Status{Code: StatusOK, Status: "OK"}) {
		t.Fatalf("unexpected ack status: %v", got)
	}
	if got := NewResult("bad record"); !proto.Equal(got, &sdkproto.Status{Code: StatusPartial, Status: "bad record"}) {
		t.Fatalf("unexpected partial status: %v", got)
	}
}

func TestDecodeResult(t *testing.T) {
	t.Parallel()

	encode := func(s *sdkproto.Status) []byte {
		b, err := EncodeStatus(s)
		if err != nil {
			t.Fatalf("EncodeStatus returned error: %v", err)
		}
		return b
	}

	tt := []struct {
		name    string
		payload []byte
		wantMsg string
		wantErr error
	}{
		{name: "ok", payload: encode(NewResult(""))},
		{name: "partial", payload: encode(NewResult("record 3 failed")), wantMsg: "record 3 failed"},
		{name: "partial without message", payload: encode(&sdkproto.Status{Code: StatusPartial}), wantMsg: "remote logging failed"},
		{name: "bad input", payload: encode(&sdkproto.Status{Code: StatusBadInput, Status: "garbage"}), wantErr: remotelog.ErrHostError},
		{name: "server error", payload: encode(&sdkproto.Status{Code: StatusError}), wantErr: remotelog.ErrHostError},
		{name: "unknown code", payload: encode(&sdkproto.Status{Code: 302}), wantErr: remotelog.ErrHostResponseInvalid},
		{name: "empty payload", payload: nil, wantErr: remotelog.ErrHostResponseInvalid},
		{name: "garbage payload", payload: []byte{0xff, 0xff}, wantErr: ErrUnmarshalResult},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			msg, err := DecodeResult(tc.payload)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("unexpected error: want %v got %v", tc.wantErr, err)
			}
			if msg != tc.wantMsg {
				t.Fatalf("message mismatch: want %q got %q", tc.wantMsg, msg)
			}
		})
	}
}
