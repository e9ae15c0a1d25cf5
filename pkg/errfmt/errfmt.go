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

// Package errfmt formats errors for logs.
package errfmt

import (
	"fmt"
	"runtime"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

type causer interface {
	Cause() error
}

type unwrapper interface {
	Unwrap() error
}

type pkgStackTracer interface {
	StackTrace() errors.StackTrace
}

type runtimeStackTracer interface {
	StackTrace() []runtime.Frame
}

// Print returns the error message followed by the deepest stack trace found in
// the chain of causes, if any. Each frame is printed as the function name on
// one line and the tab-indented file and line on the next.
func Print(err error) string {
	if err == nil {
		return ""
	}

	var deepest interface{}
	for curr := err; curr != nil; {
		switch curr.(type) {
		case pkgStackTracer, runtimeStackTracer:
			deepest = curr
		}

		switch c := curr.(type) {
		case causer:
			curr = c.Cause()
		case unwrapper:
			curr = c.Unwrap()
		default:
			curr = nil
		}
	}

	switch st := deepest.(type) {
	case pkgStackTracer:
		return fmt.Sprintf("%s%+v", err.Error(), st.StackTrace())
	case runtimeStackTracer:
		var b strings.Builder
		b.WriteString(err.Error())
		for _, f := range st.StackTrace() {
			b.WriteString("\n")
			b.WriteString(f.Function)
			b.WriteString("\n\t")
			b.WriteString(f.File)
			b.WriteString(":")
			b.WriteString(strconv.Itoa(f.Line))
		}
		return b.String()
	}
	return err.Error()
}
