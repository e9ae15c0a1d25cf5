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

// Package appmetrics creates and registers metrics structs.
//
// A metrics struct groups the metrics of one part of an application. Each
// field has a supported go-metrics interface type and a "metric" tag with the
// metric's name in a registry:
//
//	type Metrics struct {
//		Errors   metrics.Counter         `metric:"errors"`
//		Latency  metrics.Timer           `metric:"latency" metric-sample:"uniform,512"`
//		Requests Tagged[metrics.Counter] `metric:"requests"`
//		Workers  FunctionalGauge         `metric:"workers"`
//	}
//
// New creates the metrics for every tagged field and Register adds them to a
// registry. Tagged fields produce names with inline tags, like
// "requests[route:index,status:200]", which the datadog reporter turns into
// Datadog tags.
//
// Supported field types are metrics.Counter, metrics.Gauge,
// metrics.GaugeFloat64, metrics.Histogram, metrics.Meter, metrics.Timer,
// Tagged versions of those types, FunctionalGauge, and FunctionalGaugeFloat64.
package appmetrics
