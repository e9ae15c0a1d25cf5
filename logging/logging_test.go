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

package logging

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigureLogger(t *testing.T) {
	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		logger, err := ConfigureLogger(&buf, Config{})
		require.NoError(t, err)

		logger.Info().Str("key", "value").Msg("hello")
		assert.Contains(t, buf.String(), `"key":"value"`)
		assert.Contains(t, buf.String(), `"message":"hello"`)
		assert.Contains(t, buf.String(), `"time":`)
	})

	t.Run("text", func(t *testing.T) {
		var buf bytes.Buffer
		logger, err := ConfigureLogger(&buf, Config{Text: true})
		require.NoError(t, err)

		logger.Info().Msg("hello")
		assert.Contains(t, buf.String(), "hello")
		assert.NotContains(t, buf.String(), `"message"`)
	})

	t.Run("level", func(t *testing.T) {
		var buf bytes.Buffer
		logger, err := ConfigureLogger(&buf, Config{Level: "warn"})
		require.NoError(t, err)

		logger.Info().Msg("dropped")
		logger.Warn().Msg("kept")
		assert.NotContains(t, buf.String(), "dropped")
		assert.Contains(t, buf.String(), "kept")
	})

	t.Run("invalidLevel", func(t *testing.T) {
		_, err := ConfigureLogger(&bytes.Buffer{}, Config{Level: "loud"})
		assert.Error(t, err)
	})
}
