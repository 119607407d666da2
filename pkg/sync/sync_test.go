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

package sync

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/mock/gomock"

	"github.com/carverauto/chromesync/pkg/db"
	"github.com/carverauto/chromesync/pkg/directory"
	"github.com/carverauto/chromesync/pkg/inventory"
	"github.com/carverauto/chromesync/pkg/logger"
)

var (
	errTokenDenied = errors.New("oauth2: unauthorized_client")
	errStageFailed = errors.New("COPY failed")
)

type recordingMetrics struct {
	NoOpMetrics

	successes int
	failures  []string
	devices   int
	rows      int
}

func (m *recordingMetrics) RecordRunSuccess(devices, rows int, _ time.Duration) {
	m.successes++
	m.devices = devices
	m.rows = rows
}

func (m *recordingMetrics) RecordRunFailure(stage string, _ time.Duration) {
	m.failures = append(m.failures, stage)
}

func strPtr(s string) *string { return &s }

func newTestSyncer(t *testing.T, tokens directory.TokenProvider, collector DeviceCollector, loader RowLoader, opts ...Option) *Syncer {
	t.Helper()

	s, err := New(tokens, collector, loader, logger.NewTestLogger(), opts...)
	require.NoError(t, err)

	s.newRunID = func() string { return "run-1" }

	return s
}

func TestRun_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	ctx := context.Background()

	devices := []directory.Device{
		{DeviceID: strPtr("a1"), SerialNumber: "SN1", Status: "ACTIVE", LastSync: "2024-03-05T22:10:11.000Z"},
		{DeviceID: strPtr("b2"), MacAddress: "", Model: "Chromebook 11"},
	}

	tokens := directory.NewMockTokenProvider(ctrl)
	collector := NewMockDeviceCollector(ctrl)
	loader := NewMockRowLoader(ctrl)
	metrics := &recordingMetrics{}

	gomock.InOrder(
		tokens.EXPECT().GetAccessToken(gomock.Any()).Return("ya29.token", nil),
		collector.EXPECT().FetchAll(gomock.Any(), "ya29.token").Return(devices, nil),
		loader.EXPECT().UpsertAll(gomock.Any(), inventory.NormalizeAll(devices)).Return(nil),
	)

	s := newTestSyncer(t, tokens, collector, loader, WithMetrics(metrics))

	result, err := s.Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, "run-1", result.RunID)
	assert.Equal(t, 2, result.Devices)
	assert.Equal(t, 2, result.Rows)
	assert.False(t, result.DryRun)
	assert.GreaterOrEqual(t, result.Duration, time.Duration(0))

	assert.Equal(t, 1, metrics.successes)
	assert.Empty(t, metrics.failures)
	assert.Equal(t, 2, metrics.rows)
}

func TestRun_AuthenticationFailureStopsRun(t *testing.T) {
	ctrl := gomock.NewController(t)

	tokens := directory.NewMockTokenProvider(ctrl)
	tokens.EXPECT().GetAccessToken(gomock.Any()).Return("", errTokenDenied)

	metrics := &recordingMetrics{}
	s := newTestSyncer(t, tokens, NewMockDeviceCollector(ctrl), NewMockRowLoader(ctrl), WithMetrics(metrics))

	result, err := s.Run(context.Background())
	require.ErrorIs(t, err, errTokenDenied)
	assert.Nil(t, result)
	assert.True(t, strings.HasPrefix(err.Error(), StageAuthenticate+": "))
	assert.Equal(t, []string{StageAuthenticate}, metrics.failures)
}

func TestRun_CollectionFailureSkipsLoad(t *testing.T) {
	ctrl := gomock.NewController(t)

	exhausted := &directory.RetryExhaustedError{
		URL:      "https://admin.googleapis.com/admin/directory/v1/customer/my_customer/devices/chromeos",
		Attempts: 5,
		Last:     directory.ErrServerError,
	}

	tokens := directory.NewMockTokenProvider(ctrl)
	tokens.EXPECT().GetAccessToken(gomock.Any()).Return("tok", nil)

	collector := NewMockDeviceCollector(ctrl)
	collector.EXPECT().FetchAll(gomock.Any(), "tok").Return(nil, fmt.Errorf("page 2: %w", exhausted))

	metrics := &recordingMetrics{}
	s := newTestSyncer(t, tokens, collector, NewMockRowLoader(ctrl), WithMetrics(metrics))

	_, err := s.Run(context.Background())
	require.ErrorIs(t, err, directory.ErrRetryExhausted)

	var retryErr *directory.RetryExhaustedError
	require.ErrorAs(t, err, &retryErr)
	assert.Equal(t, 5, retryErr.Attempts)
	assert.Equal(t, []string{StageCollect}, metrics.failures)
}

func TestRun_LoadFailurePropagatesStorageError(t *testing.T) {
	ctrl := gomock.NewController(t)

	tokens := directory.NewMockTokenProvider(ctrl)
	tokens.EXPECT().GetAccessToken(gomock.Any()).Return("tok", nil)

	collector := NewMockDeviceCollector(ctrl)
	collector.EXPECT().FetchAll(gomock.Any(), "tok").Return([]directory.Device{{DeviceID: strPtr("a")}}, nil)

	loader := NewMockRowLoader(ctrl)
	loader.EXPECT().UpsertAll(gomock.Any(), gomock.Len(1)).
		Return(&db.StorageError{Step: db.StepBulkInsert, Err: errStageFailed})

	metrics := &recordingMetrics{}
	s := newTestSyncer(t, tokens, collector, loader, WithMetrics(metrics))

	_, err := s.Run(context.Background())
	require.ErrorIs(t, err, db.ErrStorage)
	require.ErrorIs(t, err, errStageFailed)

	var storageErr *db.StorageError
	require.ErrorAs(t, err, &storageErr)
	assert.Equal(t, db.StepBulkInsert, storageErr.Step)
	assert.Equal(t, []string{StageLoad}, metrics.failures)
	assert.Zero(t, metrics.successes)
}

func TestRun_DryRunSkipsLoader(t *testing.T) {
	ctrl := gomock.NewController(t)

	tokens := directory.NewMockTokenProvider(ctrl)
	tokens.EXPECT().GetAccessToken(gomock.Any()).Return("tok", nil)

	collector := NewMockDeviceCollector(ctrl)
	collector.EXPECT().FetchAll(gomock.Any(), "tok").Return([]directory.Device{{DeviceID: strPtr("a")}}, nil)

	s := newTestSyncer(t, tokens, collector, nil, WithDryRun(true))

	result, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, result.DryRun)
	assert.Equal(t, 1, result.Rows)
}

func TestNew_RequiresDependencies(t *testing.T) {
	ctrl := gomock.NewController(t)
	log := logger.NewTestLogger()

	tokens := directory.NewMockTokenProvider(ctrl)
	collector := NewMockDeviceCollector(ctrl)

	_, err := New(tokens, collector, nil, log)
	require.ErrorIs(t, err, errNilDependency)

	_, err = New(nil, collector, NewMockRowLoader(ctrl), log)
	require.ErrorIs(t, err, errNilDependency)

	_, err = New(tokens, nil, NewMockRowLoader(ctrl), log)
	require.ErrorIs(t, err, errNilDependency)
}

// pagedDirectory serves 300 devices with cursor X, then 10 devices without a cursor.
func pagedDirectory(t *testing.T) (*httptest.Server, *atomic.Int32) {
	t.Helper()

	requests := &atomic.Int32{}

	page := func(prefix string, n int, next string) string {
		items := make([]string, n)
		for i := range items {
			items[i] = fmt.Sprintf(`{"deviceId":"%s-%d","serialNumber":"SN%d","lastSync":"2024-03-05T22:10:11.000Z"}`, prefix, i, i)
		}

		body := `{"chromeosdevices":[` + strings.Join(items, ",") + `]`
		if next != "" {
			body += `,"nextPageToken":"` + next + `"`
		}

		return body + "}"
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)

		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")

		switch r.URL.Query().Get("pageToken") {
		case "":
			_, _ = w.Write([]byte(page("p1", 300, "X")))
		case "X":
			_, _ = w.Write([]byte(page("p2", 10, "")))
		default:
			w.WriteHeader(http.StatusBadRequest)
		}
	}))

	t.Cleanup(srv.Close)

	return srv, requests
}

func TestRun_TwoPagesStageAllRowsAndFinalizeOnce(t *testing.T) {
	ctrl := gomock.NewController(t)
	log := logger.NewTestLogger()

	srv, requests := pagedDirectory(t)

	executor := directory.NewExecutor(srv.Client(), directory.ExecutorConfig{}, log)
	collector := directory.NewCollector(executor, directory.CollectorConfig{Endpoint: srv.URL}, log, nil)

	tokens := directory.NewMockTokenProvider(ctrl)
	tokens.EXPECT().GetAccessToken(gomock.Any()).Return("tok", nil)

	var staged []inventory.Row

	loader := NewMockRowLoader(ctrl)
	loader.EXPECT().UpsertAll(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, rows []inventory.Row) error {
			staged = rows
			return nil
		}).
		Times(1)

	s := newTestSyncer(t, tokens, collector, loader)

	result, err := s.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int32(2), requests.Load())
	assert.Equal(t, 310, result.Rows)
	require.Len(t, staged, 310)
	assert.Equal(t, "p1-0", *staged[0].DeviceID)
	assert.Equal(t, "p2-9", *staged[309].DeviceID)
	assert.Equal(t, time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), *staged[309].LastSyncDate)
}

func TestRun_WrongTypedLastSyncStillLoadsEveryRow(t *testing.T) {
	ctrl := gomock.NewController(t)
	log := logger.NewTestLogger()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"chromeosdevices":[` +
			`{"deviceId":"a","serialNumber":"SN-a","lastSync":12345},` +
			`{"deviceId":"b","serialNumber":"SN-b","lastSync":"2024-03-05T22:10:11Z"}]}`))
	}))
	t.Cleanup(srv.Close)

	executor := directory.NewExecutor(srv.Client(), directory.ExecutorConfig{}, log)
	collector := directory.NewCollector(executor, directory.CollectorConfig{Endpoint: srv.URL}, log, nil)

	tokens := directory.NewMockTokenProvider(ctrl)
	tokens.EXPECT().GetAccessToken(gomock.Any()).Return("tok", nil)

	var staged []inventory.Row

	loader := NewMockRowLoader(ctrl)
	loader.EXPECT().UpsertAll(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, rows []inventory.Row) error {
			staged = rows
			return nil
		})

	result, err := newTestSyncer(t, tokens, collector, loader).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, result.Rows)
	require.Len(t, staged, 2)
	assert.Equal(t, "SN-a", *staged[0].SerialNumber)
	assert.Nil(t, staged[0].LastSyncDate)
	require.NotNil(t, staged[1].LastSyncDate)
	assert.Equal(t, time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), *staged[1].LastSyncDate)
}

func newRecordingTracer(t *testing.T) (*tracetest.SpanRecorder, trace.Tracer) {
	t.Helper()

	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	return recorder, provider.Tracer("test")
}

func spanAttrs(span sdktrace.ReadOnlySpan) map[attribute.Key]attribute.Value {
	attrs := make(map[attribute.Key]attribute.Value)
	for _, kv := range span.Attributes() {
		attrs[kv.Key] = kv.Value
	}

	return attrs
}

func TestRun_RecordsRunSpanAndPropagatesIt(t *testing.T) {
	ctrl := gomock.NewController(t)
	recorder, tracer := newRecordingTracer(t)

	tokens := directory.NewMockTokenProvider(ctrl)
	collector := NewMockDeviceCollector(ctrl)
	loader := NewMockRowLoader(ctrl)

	inRunSpan := func(ctx context.Context) {
		assert.True(t, trace.SpanContextFromContext(ctx).IsValid())
	}

	tokens.EXPECT().GetAccessToken(gomock.Any()).DoAndReturn(func(ctx context.Context) (string, error) {
		inRunSpan(ctx)
		return "tok", nil
	})
	collector.EXPECT().FetchAll(gomock.Any(), "tok").
		Return([]directory.Device{{DeviceID: strPtr("a")}, {DeviceID: strPtr("b")}}, nil)
	loader.EXPECT().UpsertAll(gomock.Any(), gomock.Any()).DoAndReturn(func(ctx context.Context, _ []inventory.Row) error {
		inRunSpan(ctx)
		return nil
	})

	s := newTestSyncer(t, tokens, collector, loader, WithTracer(tracer))

	_, err := s.Run(context.Background())
	require.NoError(t, err)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "chromesync.run", spans[0].Name())
	assert.Equal(t, codes.Unset, spans[0].Status().Code)

	attrs := spanAttrs(spans[0])
	assert.Equal(t, "run-1", attrs["run_id"].AsString())
	assert.Equal(t, int64(2), attrs["devices"].AsInt64())
	assert.Equal(t, int64(2), attrs["rows"].AsInt64())
}

func TestRun_FailureMarksRunSpan(t *testing.T) {
	ctrl := gomock.NewController(t)
	recorder, tracer := newRecordingTracer(t)

	tokens := directory.NewMockTokenProvider(ctrl)
	tokens.EXPECT().GetAccessToken(gomock.Any()).Return("", errTokenDenied)

	s := newTestSyncer(t, tokens, NewMockDeviceCollector(ctrl), NewMockRowLoader(ctrl), WithTracer(tracer))

	_, err := s.Run(context.Background())
	require.ErrorIs(t, err, errTokenDenied)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Equal(t, StageAuthenticate, spans[0].Status().Description)
	assert.Equal(t, StageAuthenticate, spanAttrs(spans[0])["stage"].AsString())
	require.NotEmpty(t, spans[0].Events())
}
