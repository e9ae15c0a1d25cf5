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
	"context"
	"strings"

	"github.com/DataDog/datadog-go/v5/statsd"
	"github.com/pkg/errors"

	"github.com/palantir/go-metrics-datadog/series"
)

const (
	DefaultStatsdAddress = "127.0.0.1:8125"
)

// StatsdClient is the subset of the DogStatsD client used by StatsdSink.
type StatsdClient interface {
	Gauge(name string, value float64, tags []string, rate float64) error
	Count(name string, value int64, tags []string, rate float64) error
	Flush() error
}

var _ StatsdClient = &statsd.Client{}

// StatsdSink sends series to a DogStatsD agent. The agent assigns its own
// timestamps, so series timestamps are ignored, and the series host is sent as
// a "host:<name>" tag.
//
// DogStatsD sums the counts it receives during a flush interval, while
// go-metrics counts are cumulative. StatsdSink remembers the last count sent
// for each series and sends the difference, so the first report of a series
// sends its full count.
type StatsdSink struct {
	client StatsdClient
	open   bool
	counts map[string]int64
}

var _ Sink = &StatsdSink{}

func NewStatsdSink(client StatsdClient) *StatsdSink {
	return &StatsdSink{client: client, counts: make(map[string]int64)}
}

// NewStatsdClient creates a DogStatsD client for address, or for
// DefaultStatsdAddress if address is empty.
func NewStatsdClient(address string) (*statsd.Client, error) {
	if address == "" {
		address = DefaultStatsdAddress
	}
	client, err := statsd.New(address)
	if err != nil {
		return nil, errors.Wrap(err, "datadog: failed to create client")
	}
	return client, nil
}

func (s *StatsdSink) Begin() error {
	s.open = true
	return nil
}

func (s *StatsdSink) AddGauge(name string, value series.Value, timestamp int64, host string, tags []string) error {
	return s.send(series.NewGauge(name, value, timestamp, host, tags))
}

func (s *StatsdSink) AddCounter(name string, count int64, timestamp int64, host string, tags []string) error {
	return s.send(series.NewCounter(name, count, timestamp, host, tags))
}

func (s *StatsdSink) send(m series.Series) error {
	if !s.open {
		return errors.Errorf("datadog: cannot add %s: no open report", m.Metric)
	}

	tags := m.Tags
	if m.Host != "" {
		tags = append(tags, series.HostTagKey+":"+m.Host)
	}

	var err error
	switch m.Kind {
	case series.Counter:
		key := countKey(m.Metric, tags)
		count := m.Value.Int64()
		if err = s.client.Count(m.Metric, count-s.counts[key], tags, 1); err == nil {
			s.counts[key] = count
		}
	default:
		err = s.client.Gauge(m.Metric, m.Value.Float64(), tags, 1)
	}
	return errors.Wrapf(err, "datadog: failed to send %s %s", m.Kind, m.Metric)
}

func (s *StatsdSink) End() error {
	if !s.open {
		return errors.New("datadog: cannot end report: no open report")
	}
	s.open = false
	return nil
}

// Send flushes metrics buffered by the client.
func (s *StatsdSink) Send(ctx context.Context) error {
	return errors.Wrap(s.client.Flush(), "datadog: failed to flush client")
}

func countKey(name string, tags []string) string {
	return name + "[" + strings.Join(tags, ",") + "]"
}
