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
	"strings"

	"github.com/pkg/errors"
)

// Expansion identifies one statistic reported for a histogram, meter, or
// timer. The expansion's string value is the suffix added to the metric name.
type Expansion string

const (
	ExpansionCount        Expansion = "count"
	ExpansionRateMean     Expansion = "meanRate"
	ExpansionRate1Minute  Expansion = "1MinuteRate"
	ExpansionRate5Minute  Expansion = "5MinuteRate"
	ExpansionRate15Minute Expansion = "15MinuteRate"
	ExpansionMin          Expansion = "min"
	ExpansionMean         Expansion = "mean"
	ExpansionMax          Expansion = "max"
	ExpansionStdDev       Expansion = "stddev"
	ExpansionP50          Expansion = "p50"
	ExpansionP75          Expansion = "p75"
	ExpansionP95          Expansion = "p95"
	ExpansionP98          Expansion = "p98"
	ExpansionP99          Expansion = "p99"
	ExpansionP999         Expansion = "p999"
)

// AllExpansions lists every expansion.
var AllExpansions = []Expansion{
	ExpansionCount,
	ExpansionRateMean,
	ExpansionRate1Minute,
	ExpansionRate5Minute,
	ExpansionRate15Minute,
	ExpansionMin,
	ExpansionMean,
	ExpansionMax,
	ExpansionStdDev,
	ExpansionP50,
	ExpansionP75,
	ExpansionP95,
	ExpansionP98,
	ExpansionP99,
	ExpansionP999,
}

// expansionAliases maps other accepted names to expansions
var expansionAliases = map[string]Expansion{
	"median": ExpansionP50,
}

// ParseExpansion returns the expansion with the given suffix. Matching is case
// insensitive. "median" is accepted as an alias of p50.
func ParseExpansion(s string) (Expansion, error) {
	s = strings.TrimSpace(s)
	if e, ok := expansionAliases[strings.ToLower(s)]; ok {
		return e, nil
	}
	for _, e := range AllExpansions {
		if strings.EqualFold(string(e), s) {
			return e, nil
		}
	}
	return "", errors.Errorf("datadog: unknown expansion %q", s)
}

// ExpansionSet is a set of enabled expansions.
type ExpansionSet map[Expansion]struct{}

// NewExpansionSet returns a set containing es.
func NewExpansionSet(es ...Expansion) ExpansionSet {
	set := make(ExpansionSet, len(es))
	for _, e := range es {
		set[e] = struct{}{}
	}
	return set
}

func (s ExpansionSet) Contains(e Expansion) bool {
	_, ok := s[e]
	return ok
}

// NameFormatter builds the name of a series from a registry name and an
// optional list of path elements, usually a single expansion suffix.
type NameFormatter func(name string, path ...string) string

// DefaultNameFormatter joins the name and path with dots. If the name carries
// inline tags, the path is inserted before the tags so they still apply:
//
//	DefaultNameFormatter("requests[route:api]", "count") == "requests.count[route:api]"
func DefaultNameFormatter(name string, path ...string) string {
	base, tags := name, ""
	if i := strings.IndexByte(name, '['); i >= 0 {
		base, tags = name[:i], name[i:]
	}

	var b strings.Builder
	b.WriteString(base)
	for _, p := range path {
		b.WriteByte('.')
		b.WriteString(p)
	}
	b.WriteString(tags)
	return b.String()
}
