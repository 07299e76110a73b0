package wire

import (
	"errors"
	"fmt"

	"google.golang.org/protobuf/proto"

	sdkproto "github.com/tarmac-project/protobuf-go/sdk"
	remotelog "github.com/tarmac-project/remotelog"
)

// Status codes understood by DecodeResult, shared with the Tarmac host capabilities.
const (
	StatusOK       = int32(200)
	StatusPartial  = int32(206)
	StatusBadInput = int32(400)
	StatusMissing  = int32(404)
	StatusError    = int32(500)
)

var (
	// ErrMarshalResult wraps failures while encoding a result.
	ErrMarshalResult = errors.New("failed to marshal result")

	// ErrUnmarshalResult wraps failures while decoding a result.
	ErrUnmarshalResult = errors.New("failed to unmarshal result")
)

// NewResult builds the status a sink answers with. An empty message acknowledges
// the batch; a non-empty one reports that the batch was processed but a record failed.
func NewResult(message string) *sdkproto.Status {
	if message == "" {
		return &sdkproto.Status{Code: StatusOK, Status: "OK"}
	}
	return &sdkproto.Status{Code: StatusPartial, Status: message}
}

// EncodeResult serializes the result for message.
func EncodeResult(message string) ([]byte, error) {
	return EncodeStatus(NewResult(message))
}

// EncodeStatus serializes an arbitrary status, used by sinks to reject input.
func EncodeStatus(status *sdkproto.Status) ([]byte, error) {
	b, err := proto.Marshal(status)
	if err != nil {
		return nil, errors.Join(ErrMarshalResult, err)
	}
	return b, nil
}

// DecodeResult parses a sink response. It returns the sink's application-level
// error message (empty when acknowledged) or an error when the response reports
// a failed call or cannot be understood.
func DecodeResult(payload []byte) (string, error) {
	var status sdkproto.Status
	if err := proto.Unmarshal(payload, &status); err != nil {
		return "", errors.Join(remotelog.ErrHostResponseInvalid, ErrUnmarshalResult, err)
	}

	code := status.GetCode()
	switch code {
	case StatusOK:
		return "", nil
	case StatusPartial:
		if msg := status.GetStatus(); msg != "" {
			return msg, nil
		}
		return "remote logging failed", nil
	case StatusBadInput, StatusMissing, StatusError:
		detail := fmt.Sprintf("host status %d", code)
		if msg := status.GetStatus(); msg != "" {
			detail = fmt.Sprintf("%s: %s", detail, msg)
		}
		return "", errors.Join(remotelog.ErrHostError, errors.New(detail))
	default:
		return "", errors.Join(
			remotelog.ErrHostResponseInvalid,
			fmt.Errorf("unexpected host status code %d", code),
		)
	}
}
