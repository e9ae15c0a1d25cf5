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
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rcrowley/go-metrics"

	"github.com/palantir/go-metrics-datadog/series"
)

type call struct {
	Method    string
	Name      string
	Value     series.Value
	Timestamp int64
	Host      string
	Tags      []string
}

// recordingSink records calls in order
type recordingSink struct {
	mu    sync.Mutex
	calls []call

	failBegin bool
	failEnd   bool
	failSend  bool
	failNames map[string]bool
}

func (s *recordingSink) record(c call) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, c)
}

func (s *recordingSink) Begin() error {
	s.record(call{Method: "Begin"})
	if s.failBegin {
		return errors.New("begin failed")
	}
	return nil
}

func (s *recordingSink) AddGauge(name string, value series.Value, timestamp int64, host string, tags []string) error {
	if s.failNames[name] {
		return errors.Errorf("failed to write %s", name)
	}
	s.record(call{Method: "AddGauge", Name: name, Value: value, Timestamp: timestamp, Host: host, Tags: tags})
	return nil
}

func (s *recordingSink) AddCounter(name string, count int64, timestamp int64, host string, tags []string) error {
	if s.failNames[name] {
		return errors.Errorf("failed to write %s", name)
	}
	s.record(call{Method: "AddCounter", Name: name, Value: series.Int(count), Timestamp: timestamp, Host: host, Tags: tags})
	return nil
}

func (s *recordingSink) End() error {
	s.record(call{Method: "End"})
	if s.failEnd {
		return errors.New("end failed")
	}
	return nil
}

func (s *recordingSink) Send(ctx context.Context) error {
	s.record(call{Method: "Send"})
	if s.failSend {
		return errors.New("send failed")
	}
	return nil
}

func (s *recordingSink) Calls() []call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]call(nil), s.calls...)
}

func (s *recordingSink) Methods() []string {
	var methods []string
	for _, c := range s.Calls() {
		methods = append(methods, c.Method)
	}
	return methods
}

func (s *recordingSink) Sends() int {
	n := 0
	for _, c := range s.Calls() {
		if c.Method == "Send" {
			n++
		}
	}
	return n
}

// valueGauge is a gauge with an arbitrary value
type valueGauge struct {
	value interface{}
}

func (g valueGauge) Value() interface{} {
	return g.value
}

// panicGauge panics when read
type panicGauge struct{}

func (panicGauge) Value() interface{} {
	panic("cannot read gauge")
}

type stubHistogram struct {
	count       int64
	max, min    int64
	mean        float64
	stddev      float64
	percentiles []float64
}

func (h *stubHistogram) Clear()                          {}
func (h *stubHistogram) Count() int64                    { return h.count }
func (h *stubHistogram) Max() int64                      { return h.max }
func (h *stubHistogram) Mean() float64                   { return h.mean }
func (h *stubHistogram) Min() int64                      { return h.min }
func (h *stubHistogram) Percentile(float64) float64      { return 0 }
func (h *stubHistogram) Percentiles([]float64) []float64 { return h.percentiles }
func (h *stubHistogram) Sample() metrics.Sample          { return metrics.NilSample{} }
func (h *stubHistogram) Snapshot() metrics.Histogram     { return h }
func (h *stubHistogram) StdDev() float64                 { return h.stddev }
func (h *stubHistogram) Sum() int64                      { return 0 }
func (h *stubHistogram) Update(int64)                    {}
func (h *stubHistogram) Variance() float64               { return 0 }

type stubMeter struct {
	count                       int64
	rate1, rate5, rate15, rateM float64
}

func (m *stubMeter) Count() int64            { return m.count }
func (m *stubMeter) Mark(int64)              {}
func (m *stubMeter) Rate1() float64          { return m.rate1 }
func (m *stubMeter) Rate5() float64          { return m.rate5 }
func (m *stubMeter) Rate15() float64         { return m.rate15 }
func (m *stubMeter) RateMean() float64       { return m.rateM }
func (m *stubMeter) Snapshot() metrics.Meter { return m }
func (m *stubMeter) Stop()                   {}

type stubTimer struct {
	stubHistogram
	stubMeter
}

func (t *stubTimer) Count() int64            { return t.stubMeter.count }
func (t *stubTimer) Snapshot() metrics.Timer { return t }
func (t *stubTimer) Stop()                   {}
func (t *stubTimer) Time(f func())           { f() }
func (t *stubTimer) Update(time.Duration)    {}
func (t *stubTimer) UpdateSince(time.Time)   {}

func newStubHistogram() *stubHistogram {
	return &stubHistogram{
		count:       1,
		max:         2,
		mean:        3.0,
		min:         4,
		stddev:      5.0,
		percentiles: []float64{6.0, 7.0, 8.0, 9.0, 10.0, 11.0},
	}
}

func newStubMeter() *stubMeter {
	return &stubMeter{count: 1, rate1: 2.0, rate5: 3.0, rate15: 4.0, rateM: 5.0}
}

func newStubTimer() *stubTimer {
	ms := func(n int64) int64 { return int64(time.Duration(n) * time.Millisecond) }
	fms := func(n float64) float64 { return n * float64(time.Millisecond) }
	return &stubTimer{
		stubHistogram: stubHistogram{
			count:       1,
			max:         ms(100),
			mean:        fms(200),
			min:         ms(300),
			stddev:      fms(400),
			percentiles: []float64{fms(500), fms(600), fms(700), fms(800), fms(900), fms(1000)},
		},
		stubMeter: *newStubMeter(),
	}
}
