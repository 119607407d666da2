/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package logger

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	config := &Config{
		Level:  "debug",
		Debug:  true,
		Output: "stdout",
	}

	log, err := New(config)
	require.NoError(t, err)
	assert.Equal(t, zerolog.DebugLevel, log.GetLevel())
}

func TestNew_InvalidLevel(t *testing.T) {
	_, err := New(&Config{Level: "loud"})
	require.Error(t, err)
}

func TestNew_InvalidOutput(t *testing.T) {
	_, err := New(&Config{Output: "syslog"})
	require.ErrorIs(t, err, errInvalidOutput)
}

func TestSetDebug(t *testing.T) {
	log, err := New(&Config{Level: "warn"})
	require.NoError(t, err)

	log.SetDebug(true)
	assert.Equal(t, zerolog.DebugLevel, log.GetLevel())

	log.SetDebug(false)
	assert.Equal(t, zerolog.InfoLevel, log.GetLevel())
}

func TestWithComponent(t *testing.T) {
	var buf bytes.Buffer

	log := NewWriterLogger(&buf, zerolog.InfoLevel).WithComponent("collector")
	log.Info().Msg("hello")

	assert.Contains(t, buf.String(), `"component":"collector"`)
	assert.Contains(t, buf.String(), `"message":"hello"`)
}

func TestTraceGatedByLevel(t *testing.T) {
	var buf bytes.Buffer

	log := NewWriterLogger(&buf, zerolog.DebugLevel)
	log.Trace().Msg("hidden")
	assert.Empty(t, buf.String())

	log.SetLevel(zerolog.TraceLevel)
	log.Trace().Msg("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestNewTestLogger(t *testing.T) {
	log := NewTestLogger()
	require.NotNil(t, log)
	assert.Equal(t, zerolog.Disabled, log.GetLevel())
}

func TestDefaultConfig(t *testing.T) {
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("DEBUG", "yes")

	cfg := DefaultConfig()
	assert.Equal(t, "error", cfg.Level)
	assert.True(t, cfg.Debug)
	assert.Equal(t, "stdout", cfg.Output)
}
