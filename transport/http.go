package transport

import (
	"errors"
	"fmt"
	"net/url"

	wapc "github.com/wapc/wapc-guest-tinygo"

	proto "github.com/tarmac-project/protobuf-go/sdk/http"
	remotelog "github.com/tarmac-project/remotelog"
	"github.com/tarmac-project/remotelog/wire"
)

const (
	httpCapabilityName = "httpclient"
	fnHTTPCall         = "call"

	hostStatusOK       = int32(200)
	hostStatusPartial  = int32(206)
	hostStatusBadInput = int32(400)
	hostStatusMissing  = int32(404)
	hostStatusError    = int32(500)
)

// ErrHTTPStatus indicates the collector answered with a non-2xx HTTP status.
var ErrHTTPStatus = errors.New("collector returned an unexpected HTTP status")

// HTTPConfig configures the HTTP transport and its host integration.
//
// SDKConfig supplies the namespace used when making waPC host calls. If the
// Namespace is empty, it defaults to remotelog.DefaultNamespace during NewHTTP.
// InsecureSkipVerify controls TLS verification behavior on the host side when
// supported by the runtime. HostCall allows tests to inject a custom host
// function; when nil, the transport uses wapc.HostCall.
type HTTPConfig struct {
	// SDKConfig provides the runtime namespace for host calls.
	SDKConfig remotelog.RuntimeConfig
	// URL is the collector endpoint batches are POSTed to.
	URL string
	// Format selects the batch encoding; protobuf by default.
	Format wire.Format
	// Headers are added to every request, e.g. authorization.
	Headers map[string]string
	// InsecureSkipVerify disables TLS verification when supported.
	InsecureSkipVerify bool
	// HostCall overrides the waPC host function used for requests.
	HostCall HostCall
}

// HTTP posts batches to a collector through the host httpclient capability.
type HTTP struct {
	// cfg holds transport configuration with defaults applied.
	cfg HTTPConfig
	// hostCall performs the waPC invocation; tests may override it.
	hostCall HostCall
}

// Ensure HTTP always satisfies the Transport interface at compile time.
var _ Transport = (*HTTP)(nil)

// NewHTTP creates an HTTP transport with the provided configuration.
func NewHTTP(config HTTPConfig) (*HTTP, error) {
	u, err := url.Parse(config.URL)
	if err != nil || u == nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, ErrInvalidURL
	}

	runtime, err := config.SDKConfig.Normalize()
	if err != nil {
		return nil, err
	}
	config.SDKConfig = runtime

	t := &HTTP{cfg: config, hostCall: wapc.HostCall}
	if config.HostCall != nil {
		t.hostCall = config.HostCall
	}

	return t, nil
}

// Send encodes b and POSTs it to the configured URL.
func (t *HTTP) Send(b wire.Batch) (string, error) {
	body, err := wire.EncodeBatch(b, t.cfg.Format)
	if err != nil {
		return "", errors.Join(ErrMarshalRequest, err)
	}

	headers := map[string]*proto.Header{
		"Content-Type": {Values: []string{t.cfg.Format.ContentType()}},
	}
	for k, v := range t.cfg.Headers {
		headers[k] = &proto.Header{Values: []string{v}}
	}

	req := &proto.HTTPClient{
		Method:   "POST",
		Url:      t.cfg.URL,
		Insecure: t.cfg.InsecureSkipVerify,
		Body:     body,
		Headers:  headers,
	}

	return t.doHTTPCall(req)
}

// doHTTPCall marshals the protobuf request, performs the host call, and
// interprets the collector's answer.
func (t *HTTP) doHTTPCall(req *proto.HTTPClient) (string, error) {
	b, err := req.MarshalVT()
	if err != nil {
		return "", errors.Join(ErrMarshalRequest, err)
	}

	resp, err := t.hostCall(t.cfg.SDKConfig.Namespace, httpCapabilityName, fnHTTPCall, b)
	if err != nil {
		return "", errors.Join(remotelog.ErrHostCall, err)
	}

	var r proto.HTTPClientResponse
	if unmarshalErr := r.UnmarshalVT(resp); unmarshalErr != nil {
		return "", errors.Join(ErrUnmarshalResponse, unmarshalErr)
	}

	status := r.GetStatus()
	if status == nil {
		return "", remotelog.ErrHostResponseInvalid
	}

	statusCode := status.GetCode()
	switch statusCode {
	case hostStatusOK, hostStatusPartial:
		// success path continues
	case hostStatusBadInput, hostStatusMissing, hostStatusError:
		detail := fmt.Sprintf("host status %d", statusCode)
		if msg := status.GetStatus(); msg != "" {
			detail = fmt.Sprintf("%s: %s", detail, msg)
		}
		return "", errors.Join(remotelog.ErrHostError, errors.New(detail))
	default:
		return "", errors.Join(
			remotelog.ErrHostResponseInvalid,
			fmt.Errorf("unexpected host status code %d", statusCode),
		)
	}

	httpCode := int(r.GetCode())
	if httpCode < 200 || httpCode > 299 {
		return "", fmt.Errorf("%w: %d", ErrHTTPStatus, httpCode)
	}

	// Collectors that do not speak the result protocol acknowledge with an empty body.
	if len(r.GetBody()) == 0 {
		return "", nil
	}

	return wire.DecodeResult(r.GetBody())
}
