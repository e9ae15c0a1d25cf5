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

	"github.com/pkg/errors"
	"github.com/rcrowley/go-metrics"
)

const (
	GaugeFunctionPrefix = "Compute"
)

// FunctionalGauge is a metrics.Gauge that computes its value by calling a
// function. The function is a method or a function-typed field of the
// metrics struct named "Compute" followed by the field name, returning an
// int64.
//
// A FunctionalGauge cannot be used as a Tagged metric.
type FunctionalGauge interface {
	Snapshot() metrics.Gauge
	Value() int64
}

// FunctionalGaugeFloat64 is a FunctionalGauge for a float64 value.
type FunctionalGaugeFloat64 interface {
	Snapshot() metrics.GaugeFloat64
	Value() float64
}

func gaugeFunction[N int64 | float64](v reflect.Value, fieldName string) (func() N, error) {
	name := GaugeFunctionPrefix + fieldName
	isField := false

	fn := v.Addr().MethodByName(name)
	if !fn.IsValid() {
		fn = v.FieldByName(name)
		if !fn.IsValid() {
			return nil, errors.Errorf("%s: method or field does not exist", name)
		}
		if fn.Kind() != reflect.Func {
			return nil, errors.Errorf("%s: field must be a function", name)
		}
		isField = true
	}

	typ := fn.Type()
	if typ.NumIn() != 0 {
		return nil, errors.Errorf("%s: function must take no parameters", name)
	}
	if typ.NumOut() != 1 || typ.Out(0) != reflect.TypeOf(N(0)) {
		return nil, errors.Errorf("%s: function must return a single %T", name, N(0))
	}

	if isField {
		// fields are read on each call since they are usually set after New
		return func() N {
			if fn.IsNil() {
				return 0
			}
			return fn.Call(nil)[0].Interface().(N)
		}, nil
	}
	return fn.Interface().(func() N), nil
}
