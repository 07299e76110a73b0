package wire

import (
	"errors"
	"fmt"

	"go.opentelemetry.io/collector/pdata/pcommon"
	"go.opentelemetry.io/collector/pdata/plog"

	remotelog "github.com/tarmac-project/remotelog"
)

const (
	// ScopeName is the instrumentation scope attached to every encoded batch.
	ScopeName = "remotelog"

	// AttrBatchID is the resource attribute carrying the batch identifier.
	AttrBatchID = "remotelog.batch.id"

	// AttrCategory is the log record attribute carrying the record category.
	AttrCategory = "remotelog.category"

	// AttrExceptionType and AttrExceptionMessage describe a record's cause.
	AttrExceptionType    = "exception.type"
	AttrExceptionMessage = "exception.message"
)

// Format selects the batch encoding.
type Format int

const (
	// FormatProto encodes batches as OTLP protobuf.
	FormatProto Format = iota
	// FormatJSON encodes batches as OTLP JSON.
	FormatJSON
)

// ContentType returns the HTTP media type for the format.
func (f Format) ContentType() string {
	if f == FormatJSON {
		return "application/json"
	}
	return "application/x-protobuf"
}

// FormatFromContentType maps an HTTP media type to a Format. Unknown types fall back to protobuf.
func FormatFromContentType(contentType string) Format {
	switch contentType {
	case "application/json", "application/json; charset=utf-8":
		return FormatJSON
	default:
		return FormatProto
	}
}

var (
	// ErrMarshalBatch wraps failures while encoding a batch.
	ErrMarshalBatch = errors.New("failed to marshal log batch")

	// ErrUnmarshalBatch wraps failures while decoding a batch.
	ErrUnmarshalBatch = errors.New("failed to unmarshal log batch")
)

// Batch is an ordered group of records delivered in one call.
type Batch struct {
	// ID identifies the batch in sink logs. It may be empty.
	ID string

	// Records are delivered in slice order.
	Records []remotelog.Record
}

// RemoteError is a decoded record cause. Only the type name and message survive the trip.
type RemoteError struct {
	Type    string
	Message string
}

func (e *RemoteError) Error() string { return e.Message }

// ToLogs converts a batch into pdata logs with one record per entry, in order.
func ToLogs(b Batch) plog.Logs {
	logs := plog.NewLogs()
	rl := logs.ResourceLogs().AppendEmpty()
	if b.ID != "" {
		rl.Resource().Attributes().PutStr(AttrBatchID, b.ID)
	}

	sl := rl.ScopeLogs().AppendEmpty()
	sl.Scope().SetName(ScopeName)

	records := sl.LogRecords()
	records.EnsureCapacity(len(b.Records))
	for _, r := range b.Records {
		lr := records.AppendEmpty()
		if !r.Time.IsZero() {
			lr.SetTimestamp(pcommon.NewTimestampFromTime(r.Time))
		}
		lr.SetSeverityNumber(severityNumber(r.Level))
		lr.SetSeverityText(r.Level.String())
		lr.Body().SetStr(r.Message)
		lr.Attributes().PutStr(AttrCategory, r.Name())

		if r.Cause != nil {
			lr.Attributes().PutStr(AttrExceptionType, causeType(r.Cause))
			lr.Attributes().PutStr(AttrExceptionMessage, r.Cause.Error())
		}
	}

	return logs
}

// FromLogs converts pdata logs back into a batch, walking resources, scopes
// and records in order.
func FromLogs(logs plog.Logs) Batch {
	var b Batch

	rls := logs.ResourceLogs()
	for i := 0; i < rls.Len(); i++ {
		rl := rls.At(i)
		if v, ok := rl.Resource().Attributes().Get(AttrBatchID); ok && b.ID == "" {
			b.ID = v.AsString()
		}

		sls := rl.ScopeLogs()
		for j := 0; j < sls.Len(); j++ {
			sl := sls.At(j)
			lrs := sl.LogRecords()
			for k := 0; k < lrs.Len(); k++ {
				b.Records = append(b.Records, fromLogRecord(lrs.At(k), sl.Scope().Name()))
			}
		}
	}

	return b
}

// EncodeBatch serializes a batch in the requested format.
func EncodeBatch(b Batch, format Format) ([]byte, error) {
	logs := ToLogs(b)

	var (
		out []byte
		err error
	)
	switch format {
	case FormatJSON:
		m := &plog.JSONMarshaler{}
		out, err = m.MarshalLogs(logs)
	default:
		m := &plog.ProtoMarshaler{}
		out, err = m.MarshalLogs(logs)
	}
	if err != nil {
		return nil, errors.Join(ErrMarshalBatch, err)
	}

	return out, nil
}

// DecodeBatch parses a batch encoded by EncodeBatch or any OTLP logs payload.
func DecodeBatch(payload []byte, format Format) (Batch, error) {
	var (
		logs plog.Logs
		err  error
	)
	switch format {
	case FormatJSON:
		u := &plog.JSONUnmarshaler{}
		logs, err = u.UnmarshalLogs(payload)
	default:
		u := &plog.ProtoUnmarshaler{}
		logs, err = u.UnmarshalLogs(payload)
	}
	if err != nil {
		return Batch{}, errors.Join(ErrUnmarshalBatch, err)
	}

	return FromLogs(logs), nil
}

func fromLogRecord(lr plog.LogRecord, scope string) remotelog.Record {
	r := remotelog.Record{
		Level:    levelOf(lr),
		Category: scope,
		Message:  lr.Body().AsString(),
	}

	switch {
	case lr.Timestamp() != 0:
		r.Time = lr.Timestamp().AsTime()
	case lr.ObservedTimestamp() != 0:
		r.Time = lr.ObservedTimestamp().AsTime()
	}

	attrs := lr.Attributes()
	if v, ok := attrs.Get(AttrCategory); ok {
		r.Category = v.AsString()
	}

	if msg, ok := attrs.Get(AttrExceptionMessage); ok {
		cause := &RemoteError{Message: msg.AsString()}
		if typ, ok := attrs.Get(AttrExceptionType); ok {
			cause.Type = typ.AsString()
		}
		r.Cause = cause
	}

	return r
}

func causeType(err error) string {
	var re *RemoteError
	if errors.As(err, &re) && re.Type != "" {
		return re.Type
	}
	return fmt.Sprintf("%T", err)
}

func severityNumber(l remotelog.Level) plog.SeverityNumber {
	switch l {
	case remotelog.LevelTrace:
		return plog.SeverityNumberTrace
	case remotelog.LevelDebug:
		return plog.SeverityNumberDebug
	case remotelog.LevelInfo:
		return plog.SeverityNumberInfo
	case remotelog.LevelWarn:
		return plog.SeverityNumberWarn
	default:
		return plog.SeverityNumberError
	}
}

// levelOf maps a severity number range onto a Level, falling back to the
// severity text when the number is unspecified.
func levelOf(lr plog.LogRecord) remotelog.Level {
	n := lr.SeverityNumber()
	switch {
	case n == plog.SeverityNumberUnspecified:
		if l, err := remotelog.ParseLevel(lr.SeverityText()); err == nil {
			return l
		}
		return remotelog.LevelInfo
	case n < plog.SeverityNumberDebug:
		return remotelog.LevelTrace
	case n < plog.SeverityNumberInfo:
		return remotelog.LevelDebug
	case n < plog.SeverityNumberWarn:
		return remotelog.LevelInfo
	case n < plog.SeverityNumberError:
		return remotelog.LevelWarn
	default:
		return remotelog.LevelError
	}
}
