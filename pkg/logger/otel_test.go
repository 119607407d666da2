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
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	otellog "go.opentelemetry.io/otel/log"
	sdklog "go.opentelemetry.io/otel/sdk/log"

	"github.com/carverauto/chromesync/pkg/models"
)

type exportedRecord struct {
	scope    string
	body     string
	severity otellog.Severity
	attrs    map[string]string
}

type recordingExporter struct {
	mu      sync.Mutex
	records []exportedRecord
}

func (e *recordingExporter) Export(_ context.Context, records []sdklog.Record) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	for i := range records {
		r := &records[i]
		rec := exportedRecord{
			scope:    r.InstrumentationScope().Name,
			body:     r.Body().AsString(),
			severity: r.Severity(),
			attrs:    make(map[string]string),
		}

		r.WalkAttributes(func(kv otellog.KeyValue) bool {
			rec.attrs[kv.Key] = kv.Value.AsString()
			return true
		})

		e.records = append(e.records, rec)
	}

	return nil
}

func (*recordingExporter) Shutdown(context.Context) error   { return nil }
func (*recordingExporter) ForceFlush(context.Context) error { return nil }

func TestDefaultOTelConfig(t *testing.T) {
	t.Setenv("OTEL_LOGS_ENABLED", "true")
	t.Setenv("OTEL_EXPORTER_OTLP_LOGS_ENDPOINT", "otel-collector:4317")
	t.Setenv("OTEL_EXPORTER_OTLP_LOGS_HEADERS", "authorization=Bearer abc, x-tenant = schools")
	t.Setenv("OTEL_EXPORTER_OTLP_LOGS_TIMEOUT", "2s")
	t.Setenv("OTEL_EXPORTER_OTLP_LOGS_INSECURE", "1")
	t.Setenv("OTEL_SERVICE_NAME", "")

	config := DefaultOTelConfig()

	assert.True(t, config.Enabled)
	assert.Equal(t, "otel-collector:4317", config.Endpoint)
	assert.Equal(t, map[string]string{"authorization": "Bearer abc", "x-tenant": "schools"}, config.Headers)
	assert.Equal(t, models.Duration(2*time.Second), config.BatchTimeout)
	assert.True(t, config.Insecure)
	assert.Equal(t, "chromesync", config.ServiceName)
}

func TestDefaultOTelConfig_DisabledByDefault(t *testing.T) {
	t.Setenv("OTEL_LOGS_ENABLED", "")
	t.Setenv("OTEL_EXPORTER_OTLP_LOGS_TIMEOUT", "")

	config := DefaultOTelConfig()

	assert.False(t, config.Enabled)
	assert.Equal(t, models.Duration(5*time.Second), config.BatchTimeout)
	assert.False(t, DefaultConfig().OTel.Enabled)
}

func TestNewOTelWriter_Disabled(t *testing.T) {
	writer, err := NewOTelWriter(context.Background(), OTelConfig{})
	require.ErrorIs(t, err, ErrOTelLoggingDisabled)
	assert.Nil(t, writer)
}

func TestNewOTelWriter_NoEndpoint(t *testing.T) {
	writer, err := NewOTelWriter(context.Background(), OTelConfig{Enabled: true})
	require.ErrorIs(t, err, ErrOTelEndpointRequired)
	assert.Nil(t, writer)
}

func TestNew_OTelEnabledWithoutEndpoint(t *testing.T) {
	_, err := New(&Config{OTel: OTelConfig{Enabled: true}})
	require.ErrorIs(t, err, ErrOTelEndpointRequired)
}

func TestOTelWriter_EmitsComponentScopedRecords(t *testing.T) {
	exporter := &recordingExporter{}

	writer, err := newOTelWriter(context.Background(), OTelConfig{Enabled: true, Endpoint: "unused:4317"},
		sdklog.NewSimpleProcessor(exporter))
	require.NoError(t, err)

	t.Cleanup(func() { _ = writer.Shutdown(context.Background()) })

	log := NewWriterLogger(writer, zerolog.InfoLevel).WithComponent("executor")
	log.Warn().Str("url", "https://example.test/devices").Int("attempt", 2).Bool("final", false).Msg("Retryable response")
	log.Debug().Msg("below level")

	exporter.mu.Lock()
	defer exporter.mu.Unlock()

	require.Len(t, exporter.records, 1)

	rec := exporter.records[0]
	assert.Equal(t, "executor", rec.scope)
	assert.Equal(t, "Retryable response", rec.body)
	assert.Equal(t, otellog.SeverityWarn, rec.severity)
	assert.Equal(t, "https://example.test/devices", rec.attrs["url"])
	assert.Equal(t, "2", rec.attrs["attempt"])
	assert.Equal(t, "false", rec.attrs["final"])
	assert.NotContains(t, rec.attrs, "component")
	assert.NotContains(t, rec.attrs, "message")
	assert.NotContains(t, rec.attrs, "level")
}

func TestOTelWriter_IgnoresNonJSON(t *testing.T) {
	exporter := &recordingExporter{}

	writer, err := newOTelWriter(context.Background(), OTelConfig{}, sdklog.NewSimpleProcessor(exporter))
	require.NoError(t, err)

	n, err := writer.Write([]byte("not json\n"))
	require.NoError(t, err)
	assert.Equal(t, len("not json\n"), n)
	assert.Empty(t, exporter.records)
}

func TestFormatAttributeValue(t *testing.T) {
	assert.Equal(t, "null", formatAttributeValue(nil))
	assert.Equal(t, "true", formatAttributeValue(true))
	assert.Equal(t, "310", formatAttributeValue(float64(310)))
	assert.Equal(t, "0.25", formatAttributeValue(0.25))
	assert.Equal(t, `{"a":1}`, formatAttributeValue(map[string]interface{}{"a": float64(1)}))

	long := formatAttributeValue(strings.Repeat("x", maxAttributeValueLength+10))
	assert.Len(t, long, maxAttributeValueLength)
	assert.True(t, strings.HasSuffix(long, "..."))
}

func TestMapZerologLevelToOTel(t *testing.T) {
	assert.Equal(t, otellog.SeverityTrace, mapZerologLevelToOTel("trace"))
	assert.Equal(t, otellog.SeverityError, mapZerologLevelToOTel("ERROR"))
	assert.Equal(t, otellog.SeverityFatal, mapZerologLevelToOTel("panic"))
	assert.Equal(t, otellog.SeverityInfo, mapZerologLevelToOTel("unknown"))
}

func TestInitTracing_DisabledLeavesNoopProvider(t *testing.T) {
	require.NoError(t, InitTracing(context.Background(), OTelConfig{}))
	require.NoError(t, ShutdownOTel())
}

func TestInitTracing_RequiresEndpoint(t *testing.T) {
	require.ErrorIs(t, InitTracing(context.Background(), OTelConfig{Enabled: true}), ErrOTelEndpointRequired)
}
