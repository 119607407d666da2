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
	"net/http"
	"time"
)

//go:generate mockgen -destination=mock_directory.go -package=directory github.com/carverauto/chromesync/pkg/directory HTTPClient,TokenProvider,Requester

// HTTPClient defines the interface for making HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// TokenProvider defines the interface for obtaining access tokens.
type TokenProvider interface {
	GetAccessToken(ctx context.Context) (string, error)
}

// Requester issues a single logical GET, retrying internally as it sees fit.
type Requester interface {
	Get(ctx context.Context, url string, header http.Header) (*Response, error)
}

// Metrics receives request and paging observations.
type Metrics interface {
	RecordAPIAttempt(statusCode int, duration time.Duration)
	RecordAPIRetry(reason string)
	RecordPage(deviceCount int)
}

type noopMetrics struct{}

func (noopMetrics) RecordAPIAttempt(int, time.Duration) {}
func (noopMetrics) RecordAPIRetry(string)               {}
func (noopMetrics) RecordPage(int)                      {}
