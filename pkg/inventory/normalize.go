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

// Package inventory maps raw directory devices to the fixed row shape stored
// in the chromebook inventory.
package inventory

import (
	"time"

	"github.com/carverauto/chromesync/pkg/directory"
)

// Row is one normalized device. Nil pointers are stored as NULL.
type Row struct {
	DeviceID     *string
	SerialNumber *string
	MacAddress   *string
	Model        *string
	Status       *string
	LastSyncDate *time.Time
	OrgUnit      *string
}

//nolint:gochecknoglobals // accepted ISO-8601 layouts, most specific first
var lastSyncLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04Z07:00",
	"2006-01-02 15:04Z07:00",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
	"20060102",
}

// Normalize maps one device to a Row. It never fails: a missing device id is
// carried as nil for the store to reject, empty optional strings become nil,
// and an unparseable lastSync leaves LastSyncDate nil.
func Normalize(d *directory.Device) Row {
	row := Row{
		SerialNumber: optional(d.SerialNumber),
		MacAddress:   optional(d.MacAddress),
		Model:        optional(d.Model),
		Status:       optional(d.Status),
		OrgUnit:      optional(d.OrgUnitPath),
	}

	if d.DeviceID != nil {
		id := *d.DeviceID
		row.DeviceID = &id
	}

	if date, ok := ParseLastSync(d.LastSync); ok {
		row.LastSyncDate = &date
	}

	return row
}

// NormalizeAll maps devices one-to-one, preserving order.
func NormalizeAll(devices []directory.Device) []Row {
	rows := make([]Row, len(devices))

	for i := range devices {
		rows[i] = Normalize(&devices[i])
	}

	return rows
}

// ParseLastSync parses an ISO-8601 timestamp ("Z" or numeric offset, or none;
// "T" or space separator; minutes or seconds precision)
// and returns its calendar date in the timestamp's own offset, at midnight UTC.
func ParseLastSync(raw string) (time.Time, bool) {
	if raw == "" {
		return time.Time{}, false
	}

	for _, layout := range lastSyncLayouts {
		t, err := time.Parse(layout, raw)
		if err != nil {
			continue
		}

		year, month, day := t.Date()

		return time.Date(year, month, day, 0, 0, 0, 0, time.UTC), true
	}

	return time.Time{}, false
}

func optional(s string) *string {
	if s == "" {
		return nil
	}

	return &s
}
