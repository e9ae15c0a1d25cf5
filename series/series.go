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

// Package series defines the Datadog series record and its JSON encoding.
//
// A series is one named, timestamped data point of a given kind, plus an
// optional host and a list of tags. Series are usually created from go-metrics
// registry names, which may carry inline tags:
//
//	requests.count[route:message,status:200]
//
// See Parse for the exact rules.
package series

import (
	"strconv"

	jsoniter "github.com/json-iterator/go"
)

// Kind is the Datadog metric type of a series.
type Kind int

const (
	Gauge Kind = iota
	Counter
)

func (k Kind) String() string {
	switch k {
	case Gauge:
		return "gauge"
	case Counter:
		return "counter"
	}
	return "Kind(" + strconv.Itoa(int(k)) + ")"
}

// Value is a point value. It keeps integer values integral on the wire.
type Value struct {
	i       int64
	f       float64
	isFloat bool
}

// Int returns an integral Value.
func Int(v int64) Value {
	return Value{i: v}
}

// Float returns a floating point Value.
func Float(v float64) Value {
	return Value{f: v, isFloat: true}
}

// IsFloat reports whether the value was created with Float.
func (v Value) IsFloat() bool {
	return v.isFloat
}

// Float64 returns the value as a float64.
func (v Value) Float64() float64 {
	if v.isFloat {
		return v.f
	}
	return float64(v.i)
}

// Int64 returns the value as an int64, truncating floating point values.
func (v Value) Int64() int64 {
	if v.isFloat {
		return int64(v.f)
	}
	return v.i
}

func (v Value) String() string {
	if v.isFloat {
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	}
	return strconv.FormatInt(v.i, 10)
}

// Series is a single Datadog series with one point.
type Series struct {
	Metric    string
	Kind      Kind
	Timestamp int64
	Value     Value
	Host      string
	Tags      []string
}

// New creates a series from a raw registry name. Inline tags from the name come
// first, followed by the sanitized extra tags. An inline host tag overrides
// host. An empty host is omitted from the encoded series.
func New(kind Kind, rawName string, value Value, timestamp int64, host string, extraTags []string) Series {
	name, host, tags := Parse(rawName, host)
	for _, t := range extraTags {
		if t = SanitizeTag(t); t != "" {
			tags = append(tags, t)
		}
	}
	return Series{
		Metric:    name,
		Kind:      kind,
		Timestamp: timestamp,
		Value:     value,
		Host:      host,
		Tags:      tags,
	}
}

// NewGauge is New for a gauge series.
func NewGauge(rawName string, value Value, timestamp int64, host string, extraTags []string) Series {
	return New(Gauge, rawName, value, timestamp, host, extraTags)
}

// NewCounter is New for a counter series with an integral count.
func NewCounter(rawName string, count int64, timestamp int64, host string, extraTags []string) Series {
	return New(Counter, rawName, Int(count), timestamp, host, extraTags)
}

// WriteJSON writes the series as a JSON object:
//
//	{"metric":"name","points":[[ts,value]],"type":"gauge","host":"h","tags":["a:b"]}
//
// The host field is omitted when empty. Encoding failures, such as NaN values,
// are reported through stream.Error.
func (s *Series) WriteJSON(stream *jsoniter.Stream) {
	stream.WriteObjectStart()

	stream.WriteObjectField("metric")
	stream.WriteString(s.Metric)
	stream.WriteMore()

	stream.WriteObjectField("points")
	stream.WriteArrayStart()
	stream.WriteArrayStart()
	stream.WriteInt64(s.Timestamp)
	stream.WriteMore()
	if s.Value.isFloat {
		stream.WriteFloat64(s.Value.f)
	} else {
		stream.WriteInt64(s.Value.i)
	}
	stream.WriteArrayEnd()
	stream.WriteArrayEnd()
	stream.WriteMore()

	stream.WriteObjectField("type")
	stream.WriteString(s.Kind.String())
	stream.WriteMore()

	if s.Host != "" {
		stream.WriteObjectField("host")
		stream.WriteString(s.Host)
		stream.WriteMore()
	}

	stream.WriteObjectField("tags")
	stream.WriteArrayStart()
	for i, t := range s.Tags {
		if i > 0 {
			stream.WriteMore()
		}
		stream.WriteString(t)
	}
	stream.WriteArrayEnd()

	stream.WriteObjectEnd()
}

// MarshalJSON implements json.Marshaler using WriteJSON.
func (s Series) MarshalJSON() ([]byte, error) {
	stream := jsoniter.ConfigDefault.BorrowStream(nil)
	defer jsoniter.ConfigDefault.ReturnStream(stream)

	s.WriteJSON(stream)
	if stream.Error != nil {
		return nil, stream.Error
	}
	return append([]byte(nil), stream.Buffer()...), nil
}
