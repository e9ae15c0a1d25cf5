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

package appmetrics

import (
	"reflect"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/rcrowley/go-metrics"
)

const (
	MetricTag       = "metric"
	MetricSampleTag = "metric-sample"
)

const (
	DefaultReservoirSize = 1028
	DefaultExpDecayAlpha = 0.015
)

var (
	counterType      = reflect.TypeOf((*metrics.Counter)(nil)).Elem()
	gaugeType        = reflect.TypeOf((*metrics.Gauge)(nil)).Elem()
	gaugeFloat64Type = reflect.TypeOf((*metrics.GaugeFloat64)(nil)).Elem()
	histogramType    = reflect.TypeOf((*metrics.Histogram)(nil)).Elem()
	meterType        = reflect.TypeOf((*metrics.Meter)(nil)).Elem()
	timerType        = reflect.TypeOf((*metrics.Timer)(nil)).Elem()

	functionalGaugeType        = reflect.TypeOf((*FunctionalGauge)(nil)).Elem()
	functionalGaugeFloat64Type = reflect.TypeOf((*FunctionalGaugeFloat64)(nil)).Elem()
)

// New creates a metrics struct of type M with every metric field set. It
// panics if M is not a struct or if a field is not valid, since this is a
// programming error.
func New[M any]() *M {
	var m M

	typ := reflect.TypeOf(m)
	if typ == nil || typ.Kind() != reflect.Struct {
		panic("appmetrics.New: type is not a struct")
	}

	fields, err := metricFields(typ)
	if err != nil {
		panic("appmetrics.New: " + err.Error())
	}

	v := reflect.ValueOf(&m).Elem()
	for _, f := range fields {
		if err := createField(v, f); err != nil {
			panic("appmetrics.New: field " + f.Name + ": " + err.Error())
		}
	}
	return &m
}

// Register adds the metrics in m to r. Tagged metrics are added to r the first
// time each combination of tags is used. Register returns an error if a
// metric with the same name already exists in r.
func Register[M any](r metrics.Registry, m *M) error {
	v := reflect.ValueOf(m).Elem()
	if v.Kind() != reflect.Struct {
		panic("appmetrics.Register: type is not a struct pointer")
	}

	fields, err := metricFields(v.Type())
	if err != nil {
		panic("appmetrics.Register: " + err.Error())
	}

	for _, f := range fields {
		value := v.FieldByIndex(f.Index).Interface()
		if t, ok := value.(registerer); ok {
			t.register(r)
			continue
		}

		name := f.Tag.Get(MetricTag)
		if err := r.Register(name, value); err != nil {
			return errors.Wrapf(err, "appmetrics: failed to register %s", name)
		}
	}
	return nil
}

// Unregister removes the metrics in m from r, including every tagged
// variant created since m was registered.
func Unregister[M any](r metrics.Registry, m *M) {
	v := reflect.ValueOf(m).Elem()
	if v.Kind() != reflect.Struct {
		panic("appmetrics.Unregister: type is not a struct pointer")
	}

	fields, err := metricFields(v.Type())
	if err != nil {
		panic("appmetrics.Unregister: " + err.Error())
	}

	for _, f := range fields {
		value := v.FieldByIndex(f.Index).Interface()
		if t, ok := value.(registerer); ok {
			t.unregister(r)
			continue
		}
		r.Unregister(f.Tag.Get(MetricTag))
	}
}

func metricFields(typ reflect.Type) ([]reflect.StructField, error) {
	var fields []reflect.StructField
	for _, f := range reflect.VisibleFields(typ) {
		name := f.Tag.Get(MetricTag)
		if name == "" {
			continue
		}
		if !isMetricType(f.Type) {
			return nil, errors.Errorf("field %s: metric tag appears on non-metric type %s", f.Name, f.Type)
		}
		fields = append(fields, f)
	}
	return fields, nil
}

func isMetricType(typ reflect.Type) bool {
	switch typ {
	case counterType, gaugeType, gaugeFloat64Type, histogramType, meterType, timerType:
		return true
	case functionalGaugeType, functionalGaugeFloat64Type:
		return true
	}
	if ok, elem := isTagged(typ); ok {
		return isTaggableType(elem)
	}
	return false
}

func createField(v reflect.Value, f reflect.StructField) error {
	name := f.Tag.Get(MetricTag)

	var value any
	switch f.Type {
	case functionalGaugeType:
		fn, err := gaugeFunction[int64](v, f.Name)
		if err != nil {
			return err
		}
		value = metrics.NewFunctionalGauge(fn)

	case functionalGaugeFloat64Type:
		fn, err := gaugeFunction[float64](v, f.Name)
		if err != nil {
			return err
		}
		value = metrics.NewFunctionalGaugeFloat64(fn)

	default:
		if ok, elem := isTagged(f.Type); ok {
			newMetric, err := metricConstructor(elem, f.Tag.Get(MetricSampleTag))
			if err != nil {
				return err
			}
			value = newTagged(name, elem, newMetric)
			break
		}

		newMetric, err := metricConstructor(f.Type, f.Tag.Get(MetricSampleTag))
		if err != nil {
			return err
		}
		value = newMetric()
	}

	v.FieldByIndex(f.Index).Set(reflect.ValueOf(value))
	return nil
}

// metricConstructor returns a function that creates new metrics of type typ.
// The sample applies to histograms and timers.
func metricConstructor(typ reflect.Type, sample string) (func() any, error) {
	newSample := func() metrics.Sample {
		return metrics.NewExpDecaySample(DefaultReservoirSize, DefaultExpDecayAlpha)
	}
	if sample != "" {
		if typ != histogramType && typ != timerType {
			return nil, errors.Errorf("%s tag is only valid for histograms and timers", MetricSampleTag)
		}
		fn, err := parseSample(sample)
		if err != nil {
			return nil, err
		}
		newSample = fn
	}

	switch typ {
	case counterType:
		return func() any { return metrics.NewCounter() }, nil
	case gaugeType:
		return func() any { return metrics.NewGauge() }, nil
	case gaugeFloat64Type:
		return func() any { return metrics.NewGaugeFloat64() }, nil
	case histogramType:
		return func() any { return metrics.NewHistogram(newSample()) }, nil
	case meterType:
		return func() any { return metrics.NewMeter() }, nil
	case timerType:
		if sample == "" {
			return func() any { return metrics.NewTimer() }, nil
		}
		return func() any { return metrics.NewCustomTimer(metrics.NewHistogram(newSample()), metrics.NewMeter()) }, nil
	}
	return nil, errors.Errorf("unsupported metric type %s", typ)
}

// parseSample parses sample specifications like "uniform,512" or
// "expdecay,1028,0.015". Parameters are optional.
func parseSample(s string) (func() metrics.Sample, error) {
	parts := strings.Split(strings.ToLower(strings.ReplaceAll(s, " ", "")), ",")
	switch parts[0] {
	case "uniform":
		size := DefaultReservoirSize
		switch len(parts) {
		case 1:
		case 2:
			n, err := strconv.Atoi(parts[1])
			if err != nil || n <= 0 {
				return nil, errors.Errorf("invalid uniform sample: reservoir: %q", parts[1])
			}
			size = n
		default:
			return nil, errors.Errorf("invalid uniform sample: %q", s)
		}
		return func() metrics.Sample { return metrics.NewUniformSample(size) }, nil

	case "expdecay":
		size, alpha := DefaultReservoirSize, DefaultExpDecayAlpha
		switch len(parts) {
		case 1:
		case 3:
			n, err := strconv.Atoi(parts[1])
			if err != nil || n <= 0 {
				return nil, errors.Errorf("invalid expdecay sample: reservoir: %q", parts[1])
			}
			a, err := strconv.ParseFloat(parts[2], 64)
			if err != nil || a <= 0 {
				return nil, errors.Errorf("invalid expdecay sample: alpha: %q", parts[2])
			}
			size, alpha = n, a
		default:
			return nil, errors.Errorf("invalid expdecay sample: %q", s)
		}
		return func() metrics.Sample { return metrics.NewExpDecaySample(size, alpha) }, nil
	}
	return nil, errors.Errorf("invalid sample type: %q", s)
}
