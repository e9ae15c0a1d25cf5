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

// Package hostmetrics registers gauges for host memory and CPU usage in a
// go-metrics registry, so they are reported with the rest of an application's
// metrics.
//
// CPU usage is reported per CPU using inline tags, for example
// "host.cpu.percent[cpu:0]".
package hostmetrics

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pkg/errors"
	"github.com/rcrowley/go-metrics"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/palantir/go-metrics-datadog/appmetrics"
	"github.com/palantir/go-metrics-datadog/pkg/errfmt"
)

const (
	DefaultInterval = 10 * time.Second
)

// Metrics are the gauges updated by a Collector.
type Metrics struct {
	MemoryTotal       metrics.GaugeFloat64                    `metric:"host.memory.total"`
	MemoryFree        metrics.GaugeFloat64                    `metric:"host.memory.free"`
	MemoryUsed        metrics.GaugeFloat64                    `metric:"host.memory.used"`
	MemoryUsedPercent metrics.GaugeFloat64                    `metric:"host.memory.used_percent"`
	CPUPercent        appmetrics.Tagged[metrics.GaugeFloat64] `metric:"host.cpu.percent"`
}

// CPU returns the usage gauge of the CPU with the given index.
func (m *Metrics) CPU(n int) metrics.GaugeFloat64 {
	return m.CPUPercent.Tag("cpu:" + strconv.Itoa(n))
}

// Collector samples host statistics into gauges.
type Collector struct {
	clock  clockwork.Clock
	logger zerolog.Logger

	virtualMemory func() (*mem.VirtualMemoryStat, error)
	cpuPercent    func() ([]float64, error)

	mu      sync.Mutex
	metrics *Metrics
}

type Option func(*Collector)

func WithClock(c clockwork.Clock) Option {
	return func(col *Collector) { col.clock = c }
}

func WithLogger(logger zerolog.Logger) Option {
	return func(c *Collector) { c.logger = logger }
}

// Register creates a Collector and registers its memory gauges in r. CPU
// gauges are registered by the first call to Update.
func Register(r metrics.Registry, opts ...Option) (*Collector, error) {
	c := &Collector{
		clock:         clockwork.NewRealClock(),
		logger:        zerolog.Nop(),
		virtualMemory: mem.VirtualMemory,
		cpuPercent: func() ([]float64, error) {
			return cpu.Percent(0, true)
		},
		metrics: appmetrics.New[Metrics](),
	}
	for _, opt := range opts {
		opt(c)
	}

	if err := appmetrics.Register(r, c.metrics); err != nil {
		return nil, errors.Wrap(err, "hostmetrics: failed to register metrics")
	}
	return c, nil
}

// Metrics returns the gauges updated by the collector.
func (c *Collector) Metrics() *Metrics {
	return c.metrics
}

// Update samples memory and CPU usage once. If either statistic is not
// available, the other is still updated and the first error is returned.
func (c *Collector) Update() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	m := c.metrics
	var firstErr error

	if vm, err := c.virtualMemory(); err != nil {
		firstErr = errors.Wrap(err, "hostmetrics: failed to read memory usage")
	} else if vm != nil {
		m.MemoryTotal.Update(float64(vm.Total))
		m.MemoryFree.Update(float64(vm.Free))
		m.MemoryUsed.Update(float64(vm.Used))
		m.MemoryUsedPercent.Update(vm.UsedPercent)
	}

	pct, err := c.cpuPercent()
	if err != nil {
		if firstErr == nil {
			firstErr = errors.Wrap(err, "hostmetrics: failed to read CPU usage")
		}
		return firstErr
	}
	for i, p := range pct {
		m.CPU(i).Update(p)
	}
	return firstErr
}

// Start updates the gauges every interval until ctx is done. It blocks.
func (c *Collector) Start(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultInterval
	}

	t := c.clock.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-t.Chan():
			if err := c.Update(); err != nil {
				c.logger.Error().Str("error", errfmt.Print(err)).Msg("Error collecting host metrics")
			}
		case <-ctx.Done():
			return
		}
	}
}
