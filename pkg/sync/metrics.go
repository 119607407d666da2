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
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/carverauto/chromesync/pkg/directory"
)

const metricsNamespace = "chromesync"

// Metrics collects request, paging and run observations for one process.
type Metrics interface {
	directory.Metrics

	RecordRunSuccess(devices, rows int, duration time.Duration)
	RecordRunFailure(stage string, duration time.Duration)
}

// NoOpMetrics discards every observation.
type NoOpMetrics struct{}

func (NoOpMetrics) RecordAPIAttempt(int, time.Duration)      {}
func (NoOpMetrics) RecordAPIRetry(string)                    {}
func (NoOpMetrics) RecordPage(int)                           {}
func (NoOpMetrics) RecordRunSuccess(int, int, time.Duration) {}
func (NoOpMetrics) RecordRunFailure(string, time.Duration)   {}

// PrometheusMetrics records observations on a private registry so a single
// run can be exported as a node-exporter textfile.
type PrometheusMetrics struct {
	registry *prometheus.Registry

	apiAttempts   *prometheus.CounterVec
	apiLatency    prometheus.Histogram
	apiRetries    *prometheus.CounterVec
	pages         prometheus.Counter
	devices       prometheus.Gauge
	rows          prometheus.Gauge
	runs          *prometheus.CounterVec
	runDuration   prometheus.Gauge
	lastSuccessTS prometheus.Gauge
}

// NewPrometheusMetrics registers the chromesync collectors on a new registry.
func NewPrometheusMetrics() *PrometheusMetrics {
	m := &PrometheusMetrics{
		registry: prometheus.NewRegistry(),
		apiAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "api_attempts_total",
			Help:      "Directory API request attempts by status code (0 for transport errors)",
		}, []string{"code"}),
		apiLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "api_attempt_duration_seconds",
			Help:      "Directory API attempt latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		apiRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "api_retries_total",
			Help:      "Directory API attempts that were retried, by reason",
		}, []string{"reason"}),
		pages: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "pages_total",
			Help:      "Device list pages fetched",
		}),
		devices: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "devices",
			Help:      "Devices collected by the last successful run",
		}),
		rows: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "staged_rows",
			Help:      "Rows staged by the last successful run",
		}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "runs_total",
			Help:      "Sync runs by result and failing stage",
		}, []string{"result", "stage"}),
		runDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "last_run_duration_seconds",
			Help:      "Duration of the last run in seconds",
		}),
		lastSuccessTS: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful run",
		}),
	}

	m.registry.MustRegister(
		m.apiAttempts,
		m.apiLatency,
		m.apiRetries,
		m.pages,
		m.devices,
		m.rows,
		m.runs,
		m.runDuration,
		m.lastSuccessTS,
	)

	return m
}

// Registry exposes the underlying registry.
func (m *PrometheusMetrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *PrometheusMetrics) RecordAPIAttempt(statusCode int, duration time.Duration) {
	m.apiAttempts.WithLabelValues(strconv.Itoa(statusCode)).Inc()
	m.apiLatency.Observe(duration.Seconds())
}

func (m *PrometheusMetrics) RecordAPIRetry(reason string) {
	m.apiRetries.WithLabelValues(reason).Inc()
}

func (m *PrometheusMetrics) RecordPage(int) {
	m.pages.Inc()
}

func (m *PrometheusMetrics) RecordRunSuccess(devices, rows int, duration time.Duration) {
	m.runs.WithLabelValues("success", "none").Inc()
	m.devices.Set(float64(devices))
	m.rows.Set(float64(rows))
	m.runDuration.Set(duration.Seconds())
	m.lastSuccessTS.SetToCurrentTime()
}

func (m *PrometheusMetrics) RecordRunFailure(stage string, duration time.Duration) {
	m.runs.WithLabelValues("failure", stage).Inc()
	m.runDuration.Set(duration.Seconds())
}

// WriteTextfile writes the registry in text exposition format to path,
// replacing it atomically.
func (m *PrometheusMetrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}
