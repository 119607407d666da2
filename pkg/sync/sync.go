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

// Package sync runs one full ChromeOS inventory synchronization: it obtains
// an access token, collects every device page, normalizes the records, and
// loads them into the inventory store.
package sync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/carverauto/chromesync/pkg/directory"
	"github.com/carverauto/chromesync/pkg/inventory"
	"github.com/carverauto/chromesync/pkg/logger"
)

// Stages reported on run failure.
const (
	StageAuthenticate = "authenticate"
	StageCollect      = "collect"
	StageLoad         = "load"
)

const tracerName = "github.com/carverauto/chromesync/pkg/sync"

var errNilDependency = errors.New("sync: nil dependency")

// Result summarizes a successful run.
type Result struct {
	RunID    string
	Devices  int
	Rows     int
	DryRun   bool
	Duration time.Duration
}

// Syncer sequences authentication, collection, normalization and loading.
// A failure in any stage aborts the rest; the whole run is the unit of retry.
type Syncer struct {
	tokens    directory.TokenProvider
	collector DeviceCollector
	loader    RowLoader
	logger    logger.Logger
	metrics   Metrics
	tracer    trace.Tracer
	dryRun    bool
	now       func() time.Time
	newRunID  func() string
}

// Option customizes a Syncer.
type Option func(*Syncer)

// WithMetrics records run observations on m.
func WithMetrics(m Metrics) Option {
	return func(s *Syncer) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithTracer records the run span on tracer instead of the global
// provider's tracer.
func WithTracer(tracer trace.Tracer) Option {
	return func(s *Syncer) {
		if tracer != nil {
			s.tracer = tracer
		}
	}
}

// WithDryRun collects and normalizes without loading.
func WithDryRun(dryRun bool) Option {
	return func(s *Syncer) {
		s.dryRun = dryRun
	}
}

// New creates a Syncer. loader may be nil only for dry runs.
func New(
	tokens directory.TokenProvider,
	collector DeviceCollector,
	loader RowLoader,
	log logger.Logger,
	opts ...Option,
) (*Syncer, error) {
	s := &Syncer{
		tokens:    tokens,
		collector: collector,
		loader:    loader,
		logger:    log,
		metrics:   NoOpMetrics{},
		tracer:    otel.Tracer(tracerName),
		now:       time.Now,
		newRunID:  uuid.NewString,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.tokens == nil || s.collector == nil || s.logger == nil {
		return nil, errNilDependency
	}

	if s.loader == nil && !s.dryRun {
		return nil, fmt.Errorf("%w: loader", errNilDependency)
	}

	return s, nil
}

// Run performs one synchronization. On failure nothing is persisted and the
// returned error wraps the failing stage's error unchanged.
func (s *Syncer) Run(ctx context.Context) (*Result, error) {
	start := s.now()
	runID := s.newRunID()

	ctx, span := s.tracer.Start(ctx, "chromesync.run", trace.WithAttributes(
		attribute.String("run_id", runID),
		attribute.Bool("dry_run", s.dryRun),
	))
	defer span.End()

	fields := map[string]interface{}{"run_id": runID}
	if sc := span.SpanContext(); sc.IsValid() {
		fields["trace_id"] = sc.TraceID().String()
	}

	log := s.logger.WithFields(fields)

	log.Info().Bool("dry_run", s.dryRun).Msg("Starting ChromeOS inventory sync")

	fail := func(stage string, err error) (*Result, error) {
		elapsed := s.now().Sub(start)
		s.metrics.RecordRunFailure(stage, elapsed)

		span.RecordError(err)
		span.SetStatus(codes.Error, stage)
		span.SetAttributes(attribute.String("stage", stage))

		log.Error().
			Err(err).
			Str("stage", stage).
			Dur("duration", elapsed).
			Msg("ChromeOS inventory sync failed")

		return nil, fmt.Errorf("%s: %w", stage, err)
	}

	token, err := s.tokens.GetAccessToken(ctx)
	if err != nil {
		return fail(StageAuthenticate, err)
	}

	devices, err := s.collector.FetchAll(ctx, token)
	if err != nil {
		return fail(StageCollect, err)
	}

	rows := inventory.NormalizeAll(devices)

	if s.dryRun {
		log.Info().Int("rows", len(rows)).Msg("Dry run, skipping load")
	} else if err := s.loader.UpsertAll(ctx, rows); err != nil {
		return fail(StageLoad, err)
	}

	result := &Result{
		RunID:    runID,
		Devices:  len(devices),
		Rows:     len(rows),
		DryRun:   s.dryRun,
		Duration: s.now().Sub(start),
	}

	s.metrics.RecordRunSuccess(result.Devices, result.Rows, result.Duration)

	span.SetAttributes(
		attribute.Int("devices", result.Devices),
		attribute.Int("rows", result.Rows),
	)

	log.Info().
		Int("total_devices", result.Devices).
		Int("rows", result.Rows).
		Dur("duration", result.Duration).
		Msg("ChromeOS inventory sync completed")

	return result, nil
}
