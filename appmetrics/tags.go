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
	"sort"
	"strings"
	"sync"

	"github.com/rcrowley/go-metrics"
)

var (
	strSliceType = reflect.TypeOf([]string(nil))
)

// Tagged is a metric with dynamic tags. The type M must be one of the
// go-metrics interface types. Tags are plain values or key-value pairs where
// the key and value are separated by a colon.
//
// It is helpful to wrap Tagged metrics in methods that take the tag values
// with the correct types:
//
//	type M struct {
//		Responses Tagged[metrics.Counter] `metric:"responses"`
//	}
//
//	func (m *M) ResponsesByStatus(route string, status int) metrics.Counter {
//		return m.Responses.Tag("route:"+route, "status:"+strconv.Itoa(status))
//	}
//
// The tags are sorted, joined by commas, and added to the base name in square
// brackets, for example "responses[route:index,status:200]". Each unique set
// of tags is a separate metric in the registry, so avoid tags that can take
// many values, like IDs.
type Tagged[M any] interface {
	// Tag returns the metric for the given tags, creating and registering it
	// if needed. Tag trims whitespace from each tag and ignores empty tags.
	Tag(tags ...string) M
}

// registerer is implemented by metrics that manage their own registration
type registerer interface {
	register(r metrics.Registry)
	unregister(r metrics.Registry)
}

type taggedMetric[M any] struct {
	name      string
	newMetric func() any

	mu    sync.Mutex
	r     metrics.Registry
	names map[string]struct{}
}

func (m *taggedMetric[M]) Tag(tags ...string) M {
	name := TaggedName(m.name, tags...)

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.r == nil {
		return m.newMetric().(M)
	}
	m.names[name] = struct{}{}
	return m.r.GetOrRegister(name, m.newMetric).(M)
}

func (m *taggedMetric[M]) register(r metrics.Registry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.r = r
}

func (m *taggedMetric[M]) unregister(r metrics.Registry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for name := range m.names {
		r.Unregister(name)
	}
	m.names = make(map[string]struct{})
	m.r = nil
}

func newTagged(name string, elem reflect.Type, newMetric func() any) any {
	names := make(map[string]struct{})
	switch elem {
	case counterType:
		return &taggedMetric[metrics.Counter]{name: name, newMetric: newMetric, names: names}
	case gaugeType:
		return &taggedMetric[metrics.Gauge]{name: name, newMetric: newMetric, names: names}
	case gaugeFloat64Type:
		return &taggedMetric[metrics.GaugeFloat64]{name: name, newMetric: newMetric, names: names}
	case histogramType:
		return &taggedMetric[metrics.Histogram]{name: name, newMetric: newMetric, names: names}
	case meterType:
		return &taggedMetric[metrics.Meter]{name: name, newMetric: newMetric, names: names}
	case timerType:
		return &taggedMetric[metrics.Timer]{name: name, newMetric: newMetric, names: names}
	}
	panic("appmetrics: unsupported tagged type " + elem.String())
}

// TaggedName returns the registry name of the metric with the given base name
// and tags. Tags are trimmed, empty tags are dropped, and the rest are sorted
// so the same set of tags always names the same metric.
func TaggedName(base string, tags ...string) string {
	tags = cleanAndSortTags(tags)
	if len(tags) == 0 {
		return base
	}

	var name strings.Builder
	name.WriteString(base)
	name.WriteString("[")
	for i, t := range tags {
		if i > 0 {
			name.WriteString(",")
		}
		name.WriteString(t)
	}
	name.WriteString("]")
	return name.String()
}

// isTagged determines if typ is a Tagged instantiation and returns the
// parameter type. The reflect package does not expose type parameters, so
// this checks for the Tag method instead.
func isTagged(typ reflect.Type) (bool, reflect.Type) {
	if typ.Kind() != reflect.Interface {
		return false, nil
	}

	m, ok := typ.MethodByName("Tag")
	if !ok || typ.NumMethod() != 1 {
		return false, nil
	}

	mt := m.Type
	if !mt.IsVariadic() || mt.NumIn() != 1 || mt.In(0) != strSliceType {
		return false, nil
	}
	if mt.NumOut() != 1 {
		return false, nil
	}
	return true, mt.Out(0)
}

func isTaggableType(typ reflect.Type) bool {
	switch typ {
	case counterType, gaugeType, gaugeFloat64Type, histogramType, meterType, timerType:
		return true
	}
	return false
}

func cleanAndSortTags(tags []string) []string {
	clean := make([]string, 0, len(tags))
	for _, t := range tags {
		if t = strings.TrimSpace(t); t != "" {
			clean = append(clean, t)
		}
	}
	sort.Strings(clean)
	return clean
}
