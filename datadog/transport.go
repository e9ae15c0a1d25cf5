// Copyright 2026 Palantir Technologies, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package datadog

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	DefaultAPIHost = "app.datadoghq.com"
	SeriesPath     = "/api/v1/series"

	ConnectTimeout = 5 * time.Second
	SocketTimeout  = 30 * time.Second
)

// Transport creates requests that deliver one JSON document each.
type Transport interface {
	Prepare(ctx context.Context) (Request, error)
}

// Request is a single delivery. Callers write the document to Body and then
// call Send exactly once. Send releases the resources held by the request
// whether or not delivery succeeds.
type Request interface {
	Body() io.Writer
	Send() error
}

// HTTPStatusError is returned when the series API answers with a non-2xx
// status.
type HTTPStatusError struct {
	StatusCode int
	Status     string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("datadog: unexpected response status: %s", e.Status)
}

var bufferPool = sync.Pool{
	New: func() interface{} {
		return new(bytes.Buffer)
	},
}

// HTTPTransport posts documents to the Datadog series API.
type HTTPTransport struct {
	client    *http.Client
	seriesURL string
	redacted  string
}

var _ Transport = &HTTPTransport{}

// NewHTTPTransport creates a transport for the series API on apiHost. The API
// key, and the application key if not empty, are sent as query parameters.
//
// The apiHost may be a bare host name, like "app.datadoghq.com", or a full
// URL. Full URLs are used as given, except that an empty path is replaced by
// SeriesPath.
//
// Connections time out after ConnectTimeout and responses must start within
// SocketTimeout. Each request, including the upload and reading the response,
// is also limited to ConnectTimeout + SocketTimeout in total.
func NewHTTPTransport(apiHost, apiKey, applicationKey string) (*HTTPTransport, error) {
	if apiKey == "" {
		return nil, errors.New("datadog: an API key is required")
	}
	if apiHost == "" {
		apiHost = DefaultAPIHost
	}

	u, err := seriesURL(apiHost)
	if err != nil {
		return nil, err
	}
	redacted := u.String()

	q := u.Query()
	q.Set("api_key", apiKey)
	if applicationKey != "" {
		q.Set("application_key", applicationKey)
	}
	u.RawQuery = q.Encode()

	return &HTTPTransport{
		client:    newHTTPClient(),
		seriesURL: u.String(),
		redacted:  redacted,
	}, nil
}

func seriesURL(apiHost string) (*url.URL, error) {
	if !strings.Contains(apiHost, "://") {
		return &url.URL{Scheme: "https", Host: apiHost, Path: SeriesPath}, nil
	}

	u, err := url.Parse(apiHost)
	if err != nil {
		return nil, errors.Wrap(err, "datadog: invalid API host")
	}
	if u.Path == "" || u.Path == "/" {
		u.Path = SeriesPath
	}
	return u, nil
}

// newHTTPClient returns a client with a total request limit of
// ConnectTimeout + SocketTimeout
func newHTTPClient() *http.Client {
	dialer := &net.Dialer{
		Timeout:   ConnectTimeout,
		KeepAlive: 30 * time.Second,
	}

	base := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		TLSHandshakeTimeout:   ConnectTimeout,
		ResponseHeaderTimeout: SocketTimeout,
		MaxIdleConns:          4,
		IdleConnTimeout:       90 * time.Second,
	}

	return &http.Client{
		Transport: otelhttp.NewTransport(base, otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return "datadog " + r.Method + " " + r.URL.Path
		})),
		Timeout: ConnectTimeout + SocketTimeout,
	}
}

// URL returns the series endpoint with credentials removed.
func (t *HTTPTransport) URL() string {
	return t.redacted
}

func (t *HTTPTransport) Prepare(ctx context.Context) (Request, error) {
	buf := bufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	return &httpRequest{ctx: ctx, t: t, body: buf}, nil
}

type httpRequest struct {
	ctx  context.Context
	t    *HTTPTransport
	body *bytes.Buffer
}

func (r *httpRequest) Body() io.Writer {
	return r.body
}

func (r *httpRequest) Send() error {
	if r.body == nil {
		return errors.New("datadog: request already sent")
	}
	defer r.release()

	req, err := http.NewRequestWithContext(r.ctx, http.MethodPost, r.t.seriesURL, bytes.NewReader(r.body.Bytes()))
	if err != nil {
		return errors.Wrap(err, "datadog: failed to create request")
	}
	req.Header.Set("Content-Type", "application/json")

	trace.SpanFromContext(r.ctx).SetAttributes(attribute.Int("datadog.payload.bytes", r.body.Len()))

	res, err := r.t.client.Do(req)
	if err != nil {
		// url.Error includes the full URL, which contains the API key
		var uerr *url.Error
		if errors.As(err, &uerr) {
			err = uerr.Err
		}
		return errors.Wrapf(err, "datadog: POST %s failed", r.t.redacted)
	}
	defer func() {
		_ = res.Body.Close()
	}()

	if _, err := io.Copy(io.Discard, res.Body); err != nil {
		return errors.Wrap(err, "datadog: failed to read response")
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return &HTTPStatusError{StatusCode: res.StatusCode, Status: res.Status}
	}
	return nil
}

func (r *httpRequest) release() {
	r.body.Reset()
	bufferPool.Put(r.body)
	r.body = nil
}

// WriterTransport writes each document to an io.Writer, followed by a
// newline. It is useful for debugging and tests.
type WriterTransport struct {
	mu sync.Mutex
	w  io.Writer
}

var _ Transport = &WriterTransport{}

func NewWriterTransport(w io.Writer) *WriterTransport {
	return &WriterTransport{w: w}
}

func (t *WriterTransport) Prepare(ctx context.Context) (Request, error) {
	buf := bufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	return &writerRequest{t: t, body: buf}, nil
}

type writerRequest struct {
	t    *WriterTransport
	body *bytes.Buffer
}

func (r *writerRequest) Body() io.Writer {
	return r.body
}

func (r *writerRequest) Send() error {
	if r.body == nil {
		return errors.New("datadog: request already sent")
	}
	defer func() {
		r.body.Reset()
		bufferPool.Put(r.body)
		r.body = nil
	}()

	r.body.WriteByte('\n')

	r.t.mu.Lock()
	defer r.t.mu.Unlock()

	_, err := r.t.w.Write(r.body.Bytes())
	return errors.Wrap(err, "datadog: failed to write document")
}
