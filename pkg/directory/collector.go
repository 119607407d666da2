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
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/goccy/go-json"

	"github.com/carverauto/chromesync/pkg/logger"
)

const (
	DefaultEndpoint = "https://admin.googleapis.com/admin/directory/v1"
	DefaultCustomer = "my_customer"
	DefaultPageSize = 300
)

// CollectorConfig describes the device list query.
type CollectorConfig struct {
	Endpoint string
	Customer string
	PageSize int
	// TracePages emits a trace event with the first device of every page.
	TracePages bool
	UserAgent  string
}

// Collector walks every page of the ChromeOS device list through a Requester.
type Collector struct {
	requester Requester
	config    CollectorConfig
	logger    logger.Logger
	metrics   Metrics
}

// NewCollector creates a Collector. metrics may be nil.
func NewCollector(requester Requester, config CollectorConfig, log logger.Logger, metrics Metrics) *Collector {
	if config.Endpoint == "" {
		config.Endpoint = DefaultEndpoint
	}

	if config.Customer == "" {
		config.Customer = DefaultCustomer
	}

	if config.PageSize <= 0 {
		config.PageSize = DefaultPageSize
	}

	if metrics == nil {
		metrics = noopMetrics{}
	}

	return &Collector{
		requester: requester,
		config:    config,
		logger:    log,
		metrics:   metrics,
	}
}

// FetchAll returns every device across all pages in server order. Pages are
// requested one at a time, each carrying the cursor from the previous page,
// until a page arrives without a nextPageToken. Any failure discards the
// devices gathered so far.
func (c *Collector) FetchAll(ctx context.Context, accessToken string) ([]Device, error) {
	if accessToken == "" {
		return nil, errEmptyAccessToken
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+accessToken)
	header.Set("Accept", "application/json")

	if c.config.UserAgent != "" {
		header.Set("User-Agent", c.config.UserAgent)
	}

	c.logger.Info().
		Str("customer", c.config.Customer).
		Int("page_size", c.config.PageSize).
		Msg("Fetching list of ChromeOS devices")

	var (
		devices []Device
		cursor  string
	)

	for page := 1; ; page++ {
		pageURL, err := c.pageURL(cursor)
		if err != nil {
			return nil, err
		}

		result, err := c.fetchPage(ctx, pageURL, header)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", page, err)
		}

		if c.config.TracePages && len(result.Devices) > 0 {
			first := result.Devices[0]

			event := c.logger.Trace().
				Int("page", page).
				Str("serial_number", first.SerialNumber)

			if first.DeviceID != nil {
				event = event.Str("device_id", *first.DeviceID)
			}

			event.Msg("First device on page")
		}

		devices = append(devices, result.Devices...)
		c.metrics.RecordPage(len(result.Devices))

		c.logger.Info().
			Int("page", page).
			Int("page_devices", len(result.Devices)).
			Int("total_devices", len(devices)).
			Msg("Fetched device page")

		if result.NextPageToken == "" {
			break
		}

		cursor = result.NextPageToken
	}

	c.logger.Info().
		Int("total_devices", len(devices)).
		Msg("Total devices retrieved")

	return devices, nil
}

func (c *Collector) fetchPage(ctx context.Context, pageURL string, header http.Header) (*PageResult, error) {
	resp, err := c.requester.Get(ctx, pageURL, header)
	if err != nil {
		return nil, err
	}

	if !resp.Success() {
		return nil, newStatusError(pageURL, resp)
	}

	var result PageResult

	if err := json.Unmarshal(resp.Body, &result); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedPage, err)
	}

	return &result, nil
}

func (c *Collector) pageURL(cursor string) (string, error) {
	base, err := url.JoinPath(c.config.Endpoint, "customer", c.config.Customer, "devices", "chromeos")
	if err != nil {
		return "", fmt.Errorf("invalid directory endpoint %q: %w", c.config.Endpoint, err)
	}

	query := url.Values{}
	query.Set("projection", "FULL")
	query.Set("maxResults", strconv.Itoa(c.config.PageSize))

	if cursor != "" {
		query.Set("pageToken", cursor)
	}

	return base + "?" + query.Encode(), nil
}
