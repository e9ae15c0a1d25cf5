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

package series

import (
	"regexp"
	"strings"
)

// HostTagKey is the inline tag key that sets the series host instead of adding
// a tag.
const HostTagKey = "host"

var (
	tagPattern = regexp.MustCompile(`([\w.]+)\[([\w\W]+)\]`)

	invalidNameChars = regexp.MustCompile(`[^a-zA-Z0-9.]`)
	invalidTagChars  = regexp.MustCompile(`[^a-zA-Z0-9:.\-_]`)
)

// Parse splits a registry name of the form
//
//	name[tag1:value1,tag2:value2,...]
//
// into a sanitized metric name, the series host, and the inline tags in the
// order they appear. A "host:<value>" tag replaces defaultHost and is not
// returned as a tag. Names without a tag block are sanitized as a whole and
// produce no tags. Tokens that are empty after sanitizing, like the middle of
// "a,,b", are dropped rather than reported as empty tags.
func Parse(raw, defaultHost string) (name string, host string, tags []string) {
	host = defaultHost

	m := tagPattern.FindStringSubmatch(raw)
	if m == nil {
		return SanitizeName(raw), host, nil
	}

	name = SanitizeName(raw[:strings.IndexByte(raw, '[')])
	for _, t := range strings.Split(m[2], ",") {
		t = SanitizeTag(t)
		if t == "" {
			continue
		}

		// tokens without a colon are kept as plain tags
		kv := strings.SplitN(t, ":", 2)
		if kv[0] == HostTagKey && len(kv) == 2 && kv[1] != "" {
			host = kv[1]
			continue
		}
		tags = append(tags, t)
	}
	return name, host, tags
}

// SanitizeName replaces every character outside [A-Za-z0-9.] with an
// underscore.
func SanitizeName(name string) string {
	return invalidNameChars.ReplaceAllString(name, "_")
}

// SanitizeTag removes every character outside [A-Za-z0-9:.-_].
func SanitizeTag(tag string) string {
	return invalidTagChars.ReplaceAllString(tag, "")
}
