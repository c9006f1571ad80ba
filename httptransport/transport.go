// Package httptransport provides the default jsonapi.Transport over net/http.
package httptransport

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"time"

	"go.llib.dev/frameless/pkg/httpkit"
	"go.llib.dev/frameless/pkg/httpkit/mediatype"
	"go.llib.dev/frameless/pkg/iokit"
	"go.llib.dev/frameless/pkg/resilience"
	"go.llib.dev/frameless/pkg/zerokit"

	"go.llib.dev/jsonapi"
)

// MediaTypeJSONAPI is the registered JSON:API media type.
const MediaTypeJSONAPI mediatype.MediaType = "application/vnd.api+json"

// DefaultBodyReadLimit is the maximum number of response body bytes accepted
// from the server unless Transport.BodyReadLimit overrides it.
var DefaultBodyReadLimit int = 16 * iokit.Megabyte

// DefaultHTTPClient retries temporary failures with exponential backoff.
// Retrying here rather than in the engine keeps retry policy a transport
// concern, replaceable along with the rest of the transport.
var DefaultHTTPClient = http.Client{
	Transport: httpkit.RetryRoundTripper{
		RetryStrategy: resilience.ExponentialBackoff{
			Delay:   time.Second,
			Timeout: time.Minute,
		},
	},
	Timeout: 25 * time.Second,
}

// Transport performs the engine's requests over net/http.
//
// HTTP level responses of any status code complete with a jsonapi.Response;
// only connectivity failures (connection errors, timeouts, context
// cancellation) surface as errors, which the engine passes through to the
// caller unchanged.
type Transport struct {
	// HTTPClient [optional] is used to make the http requests.
	//
	// default: DefaultHTTPClient
	HTTPClient *http.Client
	// MediaType [optional] is used for the Content-Type and Accept headers.
	//
	// default: MediaTypeJSONAPI
	MediaType mediatype.MediaType
	// BodyReadLimit [optional] is the read limit in bytes of how much
	// response body is accepted from the server.
	//
	// default: DefaultBodyReadLimit
	BodyReadLimit int
}

var _ jsonapi.Transport = Transport{}

// Send issues a single HTTP request and completes exactly once.
func (t Transport) Send(ctx context.Context, method string, url string, payload []byte) (jsonapi.Response, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return jsonapi.Response{}, err
	}
	mimeType := t.getMediaType()
	if payload != nil {
		req.Header.Set("Content-Type", mimeType)
	}
	req.Header.Set("Accept", mimeType)

	resp, err := t.httpClient().Do(req)
	if err != nil {
		return jsonapi.Response{}, err
	}
	defer resp.Body.Close()

	data, err := iokit.ReadAllWithLimit(resp.Body, t.getBodyReadLimit())
	if err != nil {
		return jsonapi.Response{}, err
	}
	return jsonapi.Response{StatusCode: resp.StatusCode, Body: data}, nil
}

func (t Transport) httpClient() *http.Client {
	return zerokit.Coalesce(t.HTTPClient, &DefaultHTTPClient)
}

func (t Transport) getMediaType() mediatype.MediaType {
	return zerokit.Coalesce(t.MediaType, MediaTypeJSONAPI)
}

func (t Transport) getBodyReadLimit() int {
	return zerokit.Coalesce(t.BodyReadLimit, DefaultBodyReadLimit)
}
