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
	"sort"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pkg/errors"
	"github.com/rcrowley/go-metrics"
	"github.com/rs/zerolog"

	"github.com/palantir/go-metrics-datadog/pkg/errfmt"
	"github.com/palantir/go-metrics-datadog/series"
)

const (
	DefaultRateUnit     = time.Second
	DefaultDurationUnit = time.Millisecond
)

var percentiles = []float64{0.5, 0.75, 0.95, 0.98, 0.99, 0.999}

// Sink receives the series of one report. A report calls Begin, then any
// number of AddGauge and AddCounter, then End and Send.
type Sink interface {
	Begin() error
	AddGauge(name string, value series.Value, timestamp int64, host string, tags []string) error
	AddCounter(name string, count int64, timestamp int64, host string, tags []string) error
	End() error
	Send(ctx context.Context) error
}

// Filter decides if a metric is reported.
type Filter func(name string, metric interface{}) bool

// Snapshot holds the metrics of one report, by kind. Gauges may be a
// metrics.Gauge, a metrics.GaugeFloat64, or any value with a
// "Value() interface{}" method; gauges with non-numeric values are skipped.
type Snapshot struct {
	Gauges     map[string]interface{}
	Counters   map[string]metrics.Counter
	Histograms map[string]metrics.Histogram
	Meters     map[string]metrics.Meter
	Timers     map[string]metrics.Timer
}

type valuer interface {
	Value() interface{}
}

// SnapshotRegistry sorts the metrics in r by kind. Metrics of unsupported
// types, like health checks, are ignored.
func SnapshotRegistry(r metrics.Registry) Snapshot {
	s := Snapshot{
		Gauges:     make(map[string]interface{}),
		Counters:   make(map[string]metrics.Counter),
		Histograms: make(map[string]metrics.Histogram),
		Meters:     make(map[string]metrics.Meter),
		Timers:     make(map[string]metrics.Timer),
	}

	r.Each(func(name string, metric interface{}) {
		switch m := metric.(type) {
		case metrics.Counter:
			s.Counters[name] = m
		case metrics.Gauge, metrics.GaugeFloat64, valuer:
			s.Gauges[name] = m
		case metrics.Histogram:
			s.Histograms[name] = m
		case metrics.Meter:
			s.Meters[name] = m
		case metrics.Timer:
			s.Timers[name] = m
		}
	})
	return s
}

// Outcome describes what happened during one report. Reports never fail from
// the caller's point of view; Outcome exists for logging and tests.
type Outcome struct {
	Timestamp int64
	Series    int
	Sent      bool
	Failures  []Failure
	Err       error
}

// Failure records a metric whose series could not all be written.
type Failure struct {
	Kind   string
	Metric string
	Err    error
}

// Reporter expands go-metrics metrics into Datadog series.
//
// Each report writes, in order, the gauges, counters, histograms, meters, and
// timers of a snapshot. Histograms report a count and distribution
// statistics, meters report a count and rates, and timers report distribution
// statistics converted to the duration unit followed by the meter series.
//
// A Reporter must not run more than one report at a time.
type Reporter struct {
	sink     Sink
	registry metrics.Registry

	host       string
	tags       []string
	expansions ExpansionSet
	rateUnit   time.Duration
	durUnit    time.Duration
	formatter  NameFormatter
	filter     Filter
	clock      clockwork.Clock
	logger     zerolog.Logger
}

type Option func(*Reporter)

// WithRegistry sets the registry used by ReportOnce and Start. The default is
// metrics.DefaultRegistry.
func WithRegistry(r metrics.Registry) Option {
	return func(rep *Reporter) { rep.registry = r }
}

// WithHost sets the host of every series that does not set a host with an
// inline tag.
func WithHost(host string) Option {
	return func(r *Reporter) { r.host = host }
}

// WithTags sets tags added to every series after any inline tags.
func WithTags(tags ...string) Option {
	return func(r *Reporter) { r.tags = append([]string(nil), tags...) }
}

// WithExpansions sets the enabled expansions. Series for disabled expansions
// are still reported, but without a suffix on the name.
func WithExpansions(es ...Expansion) Option {
	return func(r *Reporter) { r.expansions = NewExpansionSet(es...) }
}

// WithRateUnit sets the unit of meter rates. The default is events per second.
func WithRateUnit(unit time.Duration) Option {
	return func(r *Reporter) {
		if unit > 0 {
			r.rateUnit = unit
		}
	}
}

// WithDurationUnit sets the unit of timer durations. The default is
// milliseconds.
func WithDurationUnit(unit time.Duration) Option {
	return func(r *Reporter) {
		if unit > 0 {
			r.durUnit = unit
		}
	}
}

func WithNameFormatter(f NameFormatter) Option {
	return func(r *Reporter) {
		if f != nil {
			r.formatter = f
		}
	}
}

// WithFilter sets a filter that excludes metrics before expansion.
func WithFilter(f Filter) Option {
	return func(r *Reporter) { r.filter = f }
}

// WithClock sets the clock used for report timestamps and scheduling.
func WithClock(c clockwork.Clock) Option {
	return func(r *Reporter) {
		if c != nil {
			r.clock = c
		}
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(r *Reporter) { r.logger = logger }
}

// NewReporter creates a Reporter that writes series to sink.
func NewReporter(sink Sink, opts ...Option) *Reporter {
	r := &Reporter{
		sink:       sink,
		registry:   metrics.DefaultRegistry,
		expansions: NewExpansionSet(AllExpansions...),
		rateUnit:   DefaultRateUnit,
		durUnit:    DefaultDurationUnit,
		formatter:  DefaultNameFormatter,
		clock:      clockwork.NewRealClock(),
		logger:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Start reports the registry every interval until ctx is done. It blocks and
// reports are never concurrent.
func (r *Reporter) Start(ctx context.Context, interval time.Duration) {
	t := r.clock.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-t.Chan():
			r.ReportOnce(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// ReportOnce reports the current state of the registry.
func (r *Reporter) ReportOnce(ctx context.Context) Outcome {
	return r.Report(ctx, SnapshotRegistry(r.registry))
}

// Report writes the series for every metric in s to the sink and sends them.
// All errors are logged. If the document cannot be opened or closed, or if
// the report panics, nothing is sent.
func (r *Reporter) Report(ctx context.Context, s Snapshot) (out Outcome) {
	out.Timestamp = r.clock.Now().Unix()

	defer func() {
		if v := recover(); v != nil {
			out.Sent = false
			out.Err = errors.Errorf("datadog: panic while reporting: %v", v)
			r.logger.Error().Str("error", errfmt.Print(out.Err)).Msg("Error processing metrics")
		}
	}()

	if err := r.sink.Begin(); err != nil {
		out.Err = err
		r.logger.Error().Str("error", errfmt.Print(err)).Msg("Error processing metrics")
		return out
	}

	c := &cycle{r: r, ts: out.Timestamp, out: &out}

	for _, name := range sortedKeys(s.Gauges) {
		if g := s.Gauges[name]; r.include(name, g) {
			c.check("gauge", name, c.gauge(name, g))
		}
	}
	for _, name := range sortedKeys(s.Counters) {
		if m := s.Counters[name]; r.include(name, m) {
			c.check("counter", name, c.counter(name, m))
		}
	}
	for _, name := range sortedKeys(s.Histograms) {
		if m := s.Histograms[name]; r.include(name, m) {
			c.check("histogram", name, c.histogram(name, m))
		}
	}
	for _, name := range sortedKeys(s.Meters) {
		if m := s.Meters[name]; r.include(name, m) {
			c.check("meter", name, c.metered(name, m.Snapshot()))
		}
	}
	for _, name := range sortedKeys(s.Timers) {
		if m := s.Timers[name]; r.include(name, m) {
			ts := m.Snapshot()
			c.check("timer", name, c.timer(name, ts))
			c.check("meter", name, c.metered(name, ts))
		}
	}

	if err := r.sink.End(); err != nil {
		out.Err = err
		r.logger.Error().Str("error", errfmt.Print(err)).Msg("Error processing metrics")
		return out
	}

	r.logger.Info().Int("series", out.Series).Int("failures", len(out.Failures)).Msg("Sending metrics to datadog")
	if err := r.sink.Send(ctx); err != nil {
		out.Err = err
		r.logger.Error().Str("error", errfmt.Print(err)).Msg("Error sending metrics")
		return out
	}

	out.Sent = true
	return out
}

func (r *Reporter) include(name string, metric interface{}) bool {
	return r.filter == nil || r.filter(name, metric)
}

func (r *Reporter) expand(e Expansion, name string) string {
	if r.expansions.Contains(e) {
		return r.formatter(name, string(e))
	}
	return r.formatter(name)
}

func (r *Reporter) convertDuration(ns float64) float64 {
	return ns / float64(r.durUnit)
}

func (r *Reporter) convertRate(perSecond float64) float64 {
	return perSecond * r.rateUnit.Seconds()
}

// cycle writes the series of a single report
type cycle struct {
	r   *Reporter
	ts  int64
	out *Outcome
}

func (c *cycle) check(kind, name string, err error) {
	if err == nil {
		return
	}
	c.out.Failures = append(c.out.Failures, Failure{Kind: kind, Metric: name, Err: err})
	c.r.logger.Error().Str("error", errfmt.Print(err)).Str("metric", name).Msgf("Error writing %s", kind)
}

func (c *cycle) writer() *seriesWriter {
	return &seriesWriter{c: c}
}

func (c *cycle) gauge(name string, g interface{}) error {
	v, ok := gaugeValue(g)
	if !ok {
		return nil
	}
	w := c.writer()
	w.gauge(c.r.formatter(name), v)
	return w.err
}

func (c *cycle) counter(name string, m metrics.Counter) error {
	w := c.writer()
	w.counter(c.r.formatter(name), m.Count())
	return w.err
}

func (c *cycle) histogram(name string, m metrics.Histogram) error {
	hs := m.Snapshot()
	ps := hs.Percentiles(percentiles)

	w := c.writer()
	w.counter(c.r.expand(ExpansionCount, name), hs.Count())
	w.gauge(c.r.expand(ExpansionMax, name), series.Int(hs.Max()))
	w.gauge(c.r.expand(ExpansionMean, name), series.Float(hs.Mean()))
	w.gauge(c.r.expand(ExpansionMin, name), series.Int(hs.Min()))
	w.gauge(c.r.expand(ExpansionStdDev, name), series.Float(hs.StdDev()))
	w.gauge(c.r.expand(ExpansionP50, name), series.Float(ps[0]))
	w.gauge(c.r.expand(ExpansionP75, name), series.Float(ps[1]))
	w.gauge(c.r.expand(ExpansionP95, name), series.Float(ps[2]))
	w.gauge(c.r.expand(ExpansionP98, name), series.Float(ps[3]))
	w.gauge(c.r.expand(ExpansionP99, name), series.Float(ps[4]))
	w.gauge(c.r.expand(ExpansionP999, name), series.Float(ps[5]))
	return w.err
}

func (c *cycle) timer(name string, m metrics.Timer) error {
	ps := m.Percentiles(percentiles)
	d := c.r.convertDuration

	w := c.writer()
	w.gauge(c.r.expand(ExpansionMax, name), series.Float(d(float64(m.Max()))))
	w.gauge(c.r.expand(ExpansionMean, name), series.Float(d(m.Mean())))
	w.gauge(c.r.expand(ExpansionMin, name), series.Float(d(float64(m.Min()))))
	w.gauge(c.r.expand(ExpansionStdDev, name), series.Float(d(m.StdDev())))
	w.gauge(c.r.expand(ExpansionP50, name), series.Float(d(ps[0])))
	w.gauge(c.r.expand(ExpansionP75, name), series.Float(d(ps[1])))
	w.gauge(c.r.expand(ExpansionP95, name), series.Float(d(ps[2])))
	w.gauge(c.r.expand(ExpansionP98, name), series.Float(d(ps[3])))
	w.gauge(c.r.expand(ExpansionP99, name), series.Float(d(ps[4])))
	w.gauge(c.r.expand(ExpansionP999, name), series.Float(d(ps[5])))
	return w.err
}

// metered is implemented by meter and timer snapshots
type metered interface {
	Count() int64
	Rate1() float64
	Rate5() float64
	Rate15() float64
	RateMean() float64
}

func (c *cycle) metered(name string, m metered) error {
	rate := c.r.convertRate

	w := c.writer()
	w.counter(c.r.expand(ExpansionCount, name), m.Count())
	w.gauge(c.r.expand(ExpansionRate1Minute, name), series.Float(rate(m.Rate1())))
	w.gauge(c.r.expand(ExpansionRate5Minute, name), series.Float(rate(m.Rate5())))
	w.gauge(c.r.expand(ExpansionRate15Minute, name), series.Float(rate(m.Rate15())))
	w.gauge(c.r.expand(ExpansionRateMean, name), series.Float(rate(m.RateMean())))
	return w.err
}

// seriesWriter stops writing after the first error
type seriesWriter struct {
	c   *cycle
	err error
}

func (w *seriesWriter) gauge(name string, v series.Value) {
	if w.err != nil {
		return
	}
	r := w.c.r
	if w.err = r.sink.AddGauge(name, v, w.c.ts, r.host, r.tags); w.err == nil {
		w.c.out.Series++
	}
}

func (w *seriesWriter) counter(name string, count int64) {
	if w.err != nil {
		return
	}
	r := w.c.r
	if w.err = r.sink.AddCounter(name, count, w.c.ts, r.host, r.tags); w.err == nil {
		w.c.out.Series++
	}
}

func gaugeValue(g interface{}) (series.Value, bool) {
	switch m := g.(type) {
	case metrics.Gauge:
		return series.Int(m.Value()), true
	case metrics.GaugeFloat64:
		return series.Float(m.Value()), true
	case valuer:
		return numericValue(m.Value())
	}
	return numericValue(g)
}

func numericValue(v interface{}) (series.Value, bool) {
	switch n := v.(type) {
	case int:
		return series.Int(int64(n)), true
	case int8:
		return series.Int(int64(n)), true
	case int16:
		return series.Int(int64(n)), true
	case int32:
		return series.Int(int64(n)), true
	case int64:
		return series.Int(n), true
	case uint:
		return uintValue(uint64(n)), true
	case uint8:
		return series.Int(int64(n)), true
	case uint16:
		return series.Int(int64(n)), true
	case uint32:
		return series.Int(int64(n)), true
	case uint64:
		return uintValue(n), true
	case float32:
		return series.Float(float64(n)), true
	case float64:
		return series.Float(n), true
	}
	return series.Value{}, false
}

func uintValue(n uint64) series.Value {
	if n > 1<<63-1 {
		return series.Float(float64(n))
	}
	return series.Int(int64(n))
}

func sortedKeys[M ~map[string]V, V any](m M) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
