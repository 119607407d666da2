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
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrConfigurationMissing = errors.New("required configuration missing")
	ErrTransport            = errors.New("transport error")
	ErrRateLimited          = errors.New("rate limited")
	ErrServerError          = errors.New("server error")
	ErrClientRejected       = errors.New("client request rejected")
	ErrUnexpectedStatus     = errors.New("unexpected status code")
	ErrRetryExhausted       = errors.New("retries exhausted")
	ErrMalformedPage        = errors.New("malformed device page")
	errEmptyAccessToken     = errors.New("empty access token")
	errUnsupportedKey       = errors.New("unsupported private key type")
)

const maxErrorBodyLen = 512

// RetryExhaustedError is returned when every attempt of a request ended in a
// retryable outcome.
type RetryExhaustedError struct {
	URL      string
	Attempts int
	Last     error
}

func (e *RetryExhaustedError) Error() string {
	return fmt.Sprintf("failed after %d attempts: %s: %v", e.Attempts, e.URL, e.Last)
}

func (e *RetryExhaustedError) Unwrap() []error {
	return []error{ErrRetryExhausted, e.Last}
}

// StatusError describes a terminal non-2xx response.
type StatusError struct {
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: status %d: %s", e.URL, e.StatusCode, e.Body)
}

func (e *StatusError) Unwrap() error {
	if e.StatusCode >= http.StatusBadRequest && e.StatusCode < http.StatusInternalServerError {
		return ErrClientRejected
	}

	return ErrUnexpectedStatus
}

func newStatusError(url string, resp *Response) *StatusError {
	body := string(resp.Body)
	if len(body) > maxErrorBodyLen {
		body = body[:maxErrorBodyLen] + "..."
	}

	return &StatusError{URL: url, StatusCode: resp.StatusCode, Body: body}
}
