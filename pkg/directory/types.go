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

// Package directory talks to the Google Admin SDK Directory API to enumerate
// managed ChromeOS devices.
package directory

import (
	"bytes"
	"net/http"

	"github.com/goccy/go-json"
)

// Device is a ChromeOS device as returned by the Directory API. Only the fields
// chromesync persists are decoded. Absent, null, or non-string fields keep
// their zero value.
type Device struct {
	DeviceID     *string `json:"deviceId,omitempty"`
	SerialNumber string  `json:"serialNumber,omitempty"`
	MacAddress   string  `json:"macAddress,omitempty"`
	Model        string  `json:"model,omitempty"`
	Status       string  `json:"status,omitempty"`
	LastSync     string  `json:"lastSync,omitempty"`
	OrgUnitPath  string  `json:"orgUnitPath,omitempty"`
}

// UnmarshalJSON decodes the persisted fields one at a time so a single field
// of an unexpected type is dropped instead of failing the whole page.
func (d *Device) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage

	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	*d = Device{}

	if id, ok := stringField(fields, "deviceId"); ok {
		d.DeviceID = &id
	}

	d.SerialNumber, _ = stringField(fields, "serialNumber")
	d.MacAddress, _ = stringField(fields, "macAddress")
	d.Model, _ = stringField(fields, "model")
	d.Status, _ = stringField(fields, "status")
	d.LastSync, _ = stringField(fields, "lastSync")
	d.OrgUnitPath, _ = stringField(fields, "orgUnitPath")

	return nil
}

//nolint:gochecknoglobals // JSON null literal
var jsonNull = []byte("null")

func stringField(fields map[string]json.RawMessage, key string) (string, bool) {
	raw, ok := fields[key]
	if !ok || bytes.Equal(bytes.TrimSpace(raw), jsonNull) {
		return "", false
	}

	var s string

	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}

	return s, true
}

// PageResult is one page of the chromeosdevices list call. An empty
// NextPageToken is the only end-of-collection signal.
type PageResult struct {
	Devices       []Device `json:"chromeosdevices"`
	NextPageToken string   `json:"nextPageToken,omitempty"`
}

// Response is a fully read HTTP response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Success reports whether the status code is in the 2xx range.
func (r *Response) Success() bool {
	return r.StatusCode >= http.StatusOK && r.StatusCode < http.StatusMultipleChoices
}
