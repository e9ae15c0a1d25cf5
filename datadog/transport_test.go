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
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type receivedRequest struct {
	Method      string
	Path        string
	APIKey      string
	AppKey      string
	ContentType string
	Body        string
}

func newTestServer(t *testing.T, status int) (*httptest.Server, func() []receivedRequest) {
	var mu sync.Mutex
	var received []receivedRequest

	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)

		mu.Lock()
		received = append(received, receivedRequest{
			Method:      r.Method,
			Path:        r.URL.Path,
			APIKey:      r.URL.Query().Get("api_key"),
			AppKey:      r.URL.Query().Get("application_key"),
			ContentType: r.Header.Get("Content-Type"),
			Body:        string(body),
		})
		mu.Unlock()

		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}))
	t.Cleanup(s.Close)

	return s, func() []receivedRequest {
		mu.Lock()
		defer mu.Unlock()
		return append([]receivedRequest(nil), received...)
	}
}

func TestNewHTTPTransport(t *testing.T) {
	tests := map[string]struct {
		APIHost  string
		Expected string
	}{
		"default":     {APIHost: "", Expected: "https://app.datadoghq.com/api/v1/series"},
		"bareHost":    {APIHost: "api.datadoghq.eu", Expected: "https://api.datadoghq.eu/api/v1/series"},
		"fullURL":     {APIHost: "http://localhost:8080", Expected: "http://localhost:8080/api/v1/series"},
		"fullURLPath": {APIHost: "http://localhost:8080/custom", Expected: "http://localhost:8080/custom"},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			tr, err := NewHTTPTransport(test.APIHost, "secret", "appsecret")
			require.NoError(t, err)

			assert.Equal(t, test.Expected, tr.URL())
			assert.NotContains(t, tr.URL(), "secret")
		})
	}

	t.Run("timeouts", func(t *testing.T) {
		tr, err := NewHTTPTransport(DefaultAPIHost, "secret", "")
		require.NoError(t, err)

		assert.Equal(t, ConnectTimeout+SocketTimeout, tr.client.Timeout)
	})

	t.Run("missingAPIKey", func(t *testing.T) {
		_, err := NewHTTPTransport(DefaultAPIHost, "", "")
		assert.Error(t, err)
	})

	t.Run("invalidURL", func(t *testing.T) {
		_, err := NewHTTPTransport("http://[::1", "secret", "")
		assert.Error(t, err)
	})
}

func TestHTTPTransport(t *testing.T) {
	send := func(t *testing.T, tr Transport, body string) error {
		req, err := tr.Prepare(context.Background())
		require.NoError(t, err)
		_, err = io.WriteString(req.Body(), body)
		require.NoError(t, err)
		return req.Send()
	}

	t.Run("post", func(t *testing.T) {
		s, received := newTestServer(t, http.StatusAccepted)
		tr, err := NewHTTPTransport(s.URL, "secret", "appsecret")
		require.NoError(t, err)

		require.NoError(t, send(t, tr, `{"series":[]}`))

		assert.Equal(t, []receivedRequest{{
			Method:      http.MethodPost,
			Path:        SeriesPath,
			APIKey:      "secret",
			AppKey:      "appsecret",
			ContentType: "application/json",
			Body:        `{"series":[]}`,
		}}, received())
	})

	t.Run("noApplicationKey", func(t *testing.T) {
		s, received := newTestServer(t, http.StatusOK)
		tr, err := NewHTTPTransport(s.URL, "secret", "")
		require.NoError(t, err)

		require.NoError(t, send(t, tr, `{"series":[]}`))

		require.Len(t, received(), 1)
		assert.Empty(t, received()[0].AppKey)
	})

	t.Run("errorStatus", func(t *testing.T) {
		s, _ := newTestServer(t, http.StatusForbidden)
		tr, err := NewHTTPTransport(s.URL, "secret", "")
		require.NoError(t, err)

		err = send(t, tr, `{"series":[]}`)
		require.Error(t, err)

		statusErr, ok := err.(*HTTPStatusError)
		require.True(t, ok, "expected *HTTPStatusError, got %T", err)
		assert.Equal(t, http.StatusForbidden, statusErr.StatusCode)
	})

	t.Run("connectionErrorHidesKey", func(t *testing.T) {
		s := httptest.NewServer(http.NotFoundHandler())
		s.Close()

		tr, err := NewHTTPTransport(s.URL, "secret", "appsecret")
		require.NoError(t, err)

		err = send(t, tr, `{"series":[]}`)
		require.Error(t, err)
		assert.NotContains(t, err.Error(), "secret")
		assert.Contains(t, err.Error(), SeriesPath)
	})

	t.Run("sendTwice", func(t *testing.T) {
		s, received := newTestServer(t, http.StatusOK)
		tr, err := NewHTTPTransport(s.URL, "secret", "")
		require.NoError(t, err)

		req, err := tr.Prepare(context.Background())
		require.NoError(t, err)
		require.NoError(t, req.Send())
		assert.Error(t, req.Send())
		assert.Len(t, received(), 1)
	})

	t.Run("client", func(t *testing.T) {
		s, received := newTestServer(t, http.StatusOK)
		tr, err := NewHTTPTransport(s.URL, "secret", "")
		require.NoError(t, err)

		c := NewClient(tr)
		require.NoError(t, c.Begin())
		require.NoError(t, c.AddCounter("requests[route:index]", 5, 1000198, "hostname", []string{"env:prod"}))
		require.NoError(t, c.End())
		require.NoError(t, c.Send(context.Background()))

		require.Len(t, received(), 1)
		assert.JSONEq(t, `{"series":[
			{"metric":"requests","points":[[1000198,5]],"type":"counter","host":"hostname","tags":["route:index","env:prod"]}
		]}`, received()[0].Body)
	})
}

func TestWriterTransport(t *testing.T) {
	var out bytes.Buffer
	tr := NewWriterTransport(&out)

	for _, doc := range []string{`{"series":[1]}`, `{"series":[2]}`} {
		req, err := tr.Prepare(context.Background())
		require.NoError(t, err)
		_, err = io.WriteString(req.Body(), doc)
		require.NoError(t, err)
		require.NoError(t, req.Send())
		assert.Error(t, req.Send())
	}

	assert.Equal(t, []string{`{"series":[1]}`, `{"series":[2]}`, ""}, strings.Split(out.String(), "\n"))
}
