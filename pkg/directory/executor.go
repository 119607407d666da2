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

package directory

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/carverauto/chromesync/pkg/logger"
)

const (
	DefaultMaxAttempts     = 5
	DefaultRequestTimeout  = 60 * time.Second
	DefaultBaseBackoff     = time.Second
	DefaultRateLimitMarker = "rateLimitExceeded"

	tracerName = "github.com/carverauto/chromesync/pkg/directory"
)

// ExecutorConfig bounds the retry behavior of an Executor. Zero values fall
// back to the package defaults.
type ExecutorConfig struct {
	MaxAttempts     int
	RequestTimeout  time.Duration
	BaseBackoff     time.Duration
	RateLimitMarker string
	// RequestsPerSecond paces individual attempts. Zero disables pacing.
	RequestsPerSecond float64
}

type outcome int

const (
	outcomeSuccess outcome = iota
	outcomeRetry
	outcomeTerminal
)

// Executor issues GET requests with bounded retries and exponential backoff.
//
// 2xx responses are returned immediately. 429, 5xx, 403 responses whose body
// carries the rate limit marker, and transport failures are retried. Every
// other status is terminal and returned to the caller as a Response rather
// than an error. When the attempt budget is spent on retryable outcomes Get
// fails with a *RetryExhaustedError.
type Executor struct {
	client  HTTPClient
	config  ExecutorConfig
	limiter *rate.Limiter
	logger  logger.Logger
	metrics Metrics
	tracer  trace.Tracer
	sleep   func(ctx context.Context, d time.Duration) error
	jitter  func() float64
}

// ExecutorOption customizes an Executor.
type ExecutorOption func(*Executor)

// WithMetrics records attempts and retries on m.
func WithMetrics(m Metrics) ExecutorOption {
	return func(e *Executor) {
		if m != nil {
			e.metrics = m
		}
	}
}

// WithTracer records one client span per attempt on tracer instead of the
// global provider's tracer.
func WithTracer(tracer trace.Tracer) ExecutorOption {
	return func(e *Executor) {
		if tracer != nil {
			e.tracer = tracer
		}
	}
}

// WithSleeper replaces the backoff sleep.
func WithSleeper(sleep func(ctx context.Context, d time.Duration) error) ExecutorOption {
	return func(e *Executor) {
		e.sleep = sleep
	}
}

// WithJitter replaces the jitter source. fn must return values in [0,1).
func WithJitter(fn func() float64) ExecutorOption {
	return func(e *Executor) {
		e.jitter = fn
	}
}

// NewExecutor creates an Executor around client.
func NewExecutor(client HTTPClient, config ExecutorConfig, log logger.Logger, opts ...ExecutorOption) *Executor {
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = DefaultMaxAttempts
	}

	if config.RequestTimeout <= 0 {
		config.RequestTimeout = DefaultRequestTimeout
	}

	if config.BaseBackoff <= 0 {
		config.BaseBackoff = DefaultBaseBackoff
	}

	if config.RateLimitMarker == "" {
		config.RateLimitMarker = DefaultRateLimitMarker
	}

	e := &Executor{
		client:  client,
		config:  config,
		logger:  log,
		metrics: noopMetrics{},
		tracer:  otel.Tracer(tracerName),
		sleep:   sleepContext,
		jitter:  rand.Float64,
	}

	if config.RequestsPerSecond > 0 {
		e.limiter = rate.NewLimiter(rate.Limit(config.RequestsPerSecond), 1)
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Get performs the request described in the type documentation.
func (e *Executor) Get(ctx context.Context, url string, header http.Header) (*Response, error) {
	backoff := e.config.BaseBackoff

	var lastErr error

	for attempt := 1; ; attempt++ {
		if e.limiter != nil {
			if err := e.limiter.Wait(ctx); err != nil {
				return nil, fmt.Errorf("GET %s: %w", url, err)
			}
		}

		resp, err := e.do(ctx, url, header, attempt)

		switch {
		case err != nil:
			if ctx.Err() != nil {
				return nil, fmt.Errorf("GET %s: %w", url, ctx.Err())
			}

			e.logger.Warn().
				Err(err).
				Str("url", url).
				Int("attempt", attempt).
				Msg("Network error")

			e.metrics.RecordAPIRetry("transport")

			lastErr = err
		default:
			result, reason := e.classify(resp)

			switch result {
			case outcomeSuccess:
				return resp, nil
			case outcomeTerminal:
				e.logger.Error().
					Str("url", url).
					Int("status_code", resp.StatusCode).
					Int("attempt", attempt).
					Msg("Non-retryable response")

				return resp, nil
			case outcomeRetry:
				e.logger.Warn().
					Str("url", url).
					Int("status_code", resp.StatusCode).
					Int("attempt", attempt).
					Msg("Retryable response")

				e.metrics.RecordAPIRetry(reason.Error())

				lastErr = fmt.Errorf("%w: status %d", reason, resp.StatusCode)
			}
		}

		if attempt >= e.config.MaxAttempts {
			return nil, &RetryExhaustedError{URL: url, Attempts: attempt, Last: lastErr}
		}

		delay := backoff + time.Duration(e.jitter()*float64(e.config.BaseBackoff))

		e.logger.Info().
			Str("url", url).
			Int("attempt", attempt).
			Int("max_attempts", e.config.MaxAttempts).
			Dur("backoff", delay).
			Msg("Sleeping before retry")

		if err := e.sleep(ctx, delay); err != nil {
			return nil, fmt.Errorf("GET %s: %w", url, err)
		}

		backoff *= 2
	}
}

// do performs one traced attempt.
func (e *Executor) do(ctx context.Context, url string, header http.Header, attempt int) (*Response, error) {
	ctx, span := e.tracer.Start(ctx, "directory.attempt",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", http.MethodGet),
			attribute.String("url.full", url),
			attribute.Int("attempt", attempt),
		),
	)
	defer span.End()

	resp, err := e.roundTrip(ctx, url, header)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		return nil, err
	}

	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	if !resp.Success() {
		span.SetStatus(codes.Error, http.StatusText(resp.StatusCode))
	}

	return resp, nil
}

// roundTrip is bounded by the per-attempt timeout and reads the body before
// the attempt context is released.
func (e *Executor) roundTrip(ctx context.Context, url string, header http.Header) (*Response, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, e.config.RequestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	for key, values := range header {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}

	start := time.Now()

	httpResp, err := e.client.Do(req)
	if err != nil {
		e.metrics.RecordAPIAttempt(0, time.Since(start))
		return nil, fmt.Errorf("%w: %w", ErrTransport, err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)

	e.metrics.RecordAPIAttempt(httpResp.StatusCode, time.Since(start))

	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response body: %w", ErrTransport, err)
	}

	return &Response{
		StatusCode: httpResp.StatusCode,
		Header:     httpResp.Header,
		Body:       body,
	}, nil
}

func (e *Executor) classify(resp *Response) (outcome, error) {
	code := resp.StatusCode

	switch {
	case resp.Success():
		return outcomeSuccess, nil
	case code == http.StatusTooManyRequests:
		return outcomeRetry, ErrRateLimited
	case code == http.StatusForbidden:
		if bytes.Contains(resp.Body, []byte(e.config.RateLimitMarker)) {
			return outcomeRetry, ErrRateLimited
		}

		return outcomeTerminal, ErrClientRejected
	case code >= http.StatusBadRequest && code < http.StatusInternalServerError:
		return outcomeTerminal, ErrClientRejected
	case code >= http.StatusInternalServerError && code < 600:
		return outcomeRetry, ErrServerError
	default:
		return outcomeTerminal, ErrUnexpectedStatus
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// IsRetryExhausted reports whether err came from an Executor running out of attempts.
func IsRetryExhausted(err error) bool {
	var target *RetryExhaustedError

	return errors.As(err, &target)
}
