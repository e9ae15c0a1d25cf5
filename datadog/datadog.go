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

// Package datadog reports go-metrics registries to Datadog.
//
// A Reporter expands each metric in a registry snapshot into one or more
// Datadog series and hands them to a Sink. The default sink, Client, builds a
// single JSON document per report and posts it to the series API:
//
//	{"series": [{"metric": "...", "points": [[ts, value]], "type": "gauge", "host": "...", "tags": [...]}, ...]}
//
// StatsdSink sends the same series to a DogStatsD agent instead.
//
// Metric names may add metric-specific tags using a special format:
//
//	metricName[tag1,tag2:value2,...]
//
// A "host:<value>" tag sets the host of the series. Global tags for all
// metrics can be set in the configuration.
package datadog

import (
	"bytes"
	"context"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"

	"github.com/palantir/go-metrics-datadog/series"
)

// Client accumulates series into one JSON document and sends it with a
// Transport. A Client holds a single document buffer that is reused by every
// call to Begin, so it must not be used by more than one report at a time.
type Client struct {
	transport Transport

	// out holds the ended document; stream holds the open one
	out    bytes.Buffer
	stream *jsoniter.Stream
	open   bool
	n      int
}

var _ Sink = &Client{}

// NewClient returns a Client that sends documents with t.
func NewClient(t Transport) *Client {
	c := &Client{transport: t}
	c.stream = jsoniter.NewStream(jsoniter.ConfigDefault, nil, 4096)
	return c
}

// Begin discards any buffered content and opens a new document. It is safe to
// call Begin again without ending or sending the previous document.
func (c *Client) Begin() error {
	c.out.Reset()
	c.stream.Reset(nil)
	c.stream.Error = nil
	c.n = 0

	c.stream.WriteObjectStart()
	c.stream.WriteObjectField("series")
	c.stream.WriteArrayStart()
	if err := c.stream.Error; err != nil {
		return errors.Wrap(err, "datadog: failed to create document")
	}

	c.open = true
	return nil
}

// AddGauge appends a gauge series to the open document.
func (c *Client) AddGauge(name string, value series.Value, timestamp int64, host string, tags []string) error {
	return c.add(series.NewGauge(name, value, timestamp, host, tags))
}

// AddCounter appends a counter series to the open document.
func (c *Client) AddCounter(name string, count int64, timestamp int64, host string, tags []string) error {
	return c.add(series.NewCounter(name, count, timestamp, host, tags))
}

func (c *Client) add(s series.Series) error {
	if !c.open {
		return errors.Errorf("datadog: cannot add %s: no open document", s.Metric)
	}

	// a series that fails to encode is removed so the document stays valid
	mark := len(c.stream.Buffer())
	if c.n > 0 {
		c.stream.WriteMore()
	}
	s.WriteJSON(c.stream)

	if err := c.stream.Error; err != nil {
		c.stream.SetBuffer(c.stream.Buffer()[:mark])
		c.stream.Error = nil
		return errors.Wrapf(err, "datadog: failed to write series %s", s.Metric)
	}

	c.n++
	return nil
}

// End closes the open document. It must be called before Send.
func (c *Client) End() error {
	if !c.open {
		return errors.New("datadog: cannot end document: no open document")
	}
	c.open = false

	c.stream.WriteArrayEnd()
	c.stream.WriteObjectEnd()
	if err := c.stream.Error; err != nil {
		return errors.Wrap(err, "datadog: failed to end document")
	}
	_, _ = c.out.Write(c.stream.Buffer())
	return nil
}

// Send posts the finished document. The response body is discarded.
func (c *Client) Send(ctx context.Context) error {
	if c.open {
		return errors.New("datadog: cannot send document: document is not ended")
	}
	if c.out.Len() == 0 {
		return errors.New("datadog: cannot send document: no document")
	}

	req, err := c.transport.Prepare(ctx)
	if err != nil {
		return errors.Wrap(err, "datadog: failed to prepare request")
	}
	if _, err := req.Body().Write(c.out.Bytes()); err != nil {
		return errors.Wrap(err, "datadog: failed to write request body")
	}
	return req.Send()
}

// Len returns the number of series in the current document.
func (c *Client) Len() int {
	return c.n
}

// Bytes returns the ended document. The slice is only valid until the next
// call to Begin.
func (c *Client) Bytes() []byte {
	return c.out.Bytes()
}
