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

package inventory

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/chromesync/pkg/directory"
)

func strPtr(s string) *string { return &s }

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func fullDevice() directory.Device {
	return directory.Device{
		DeviceID:     strPtr("dev-1"),
		SerialNumber: "5CD1234XYZ",
		MacAddress:   "a0b1c2d3e4f5",
		Model:        "HP Chromebook 14 G7",
		Status:       "ACTIVE",
		LastSync:     "2024-03-05T22:10:11.123Z",
		OrgUnitPath:  "/Students/2024",
	}
}

func TestNormalize_FullRecord(t *testing.T) {
	d := fullDevice()

	row := Normalize(&d)

	require.NotNil(t, row.DeviceID)
	assert.Equal(t, "dev-1", *row.DeviceID)
	assert.Equal(t, "5CD1234XYZ", *row.SerialNumber)
	assert.Equal(t, "a0b1c2d3e4f5", *row.MacAddress)
	assert.Equal(t, "HP Chromebook 14 G7", *row.Model)
	assert.Equal(t, "ACTIVE", *row.Status)
	require.NotNil(t, row.LastSyncDate)
	assert.Equal(t, date(2024, time.March, 5), *row.LastSyncDate)
	assert.Equal(t, "/Students/2024", *row.OrgUnit)
}

func TestNormalize_EmptyOptionalFieldsBecomeNil(t *testing.T) {
	d := directory.Device{DeviceID: strPtr("dev-2")}

	row := Normalize(&d)

	assert.Equal(t, "dev-2", *row.DeviceID)
	assert.Nil(t, row.SerialNumber)
	assert.Nil(t, row.MacAddress)
	assert.Nil(t, row.Model)
	assert.Nil(t, row.Status)
	assert.Nil(t, row.LastSyncDate)
	assert.Nil(t, row.OrgUnit)
}

func TestNormalize_MissingDeviceIDStillEmitsRow(t *testing.T) {
	d := fullDevice()
	d.DeviceID = nil

	row := Normalize(&d)

	assert.Nil(t, row.DeviceID)
	assert.Equal(t, "5CD1234XYZ", *row.SerialNumber)
}

func TestNormalize_MalformedLastSyncOnlyAffectsDate(t *testing.T) {
	for _, raw := range []string{"", "yesterday", "2024-13-45T00:00:00Z", "2024/03/05", "1709676611"} {
		d := fullDevice()
		d.LastSync = raw

		row := Normalize(&d)

		assert.Nil(t, row.LastSyncDate, "lastSync %q", raw)
		assert.Equal(t, "dev-1", *row.DeviceID)
		assert.Equal(t, "a0b1c2d3e4f5", *row.MacAddress)
		assert.Equal(t, "/Students/2024", *row.OrgUnit)
	}
}

func TestNormalize_DoesNotAliasDevice(t *testing.T) {
	d := fullDevice()

	row := Normalize(&d)
	*d.DeviceID = "changed"

	assert.Equal(t, "dev-1", *row.DeviceID)
}

func TestParseLastSync(t *testing.T) {
	tests := []struct {
		raw  string
		want time.Time
	}{
		{raw: "2024-03-05T22:10:11Z", want: date(2024, time.March, 5)},
		{raw: "2024-03-05T22:10:11.123456Z", want: date(2024, time.March, 5)},
		{raw: "2024-03-05T23:30:00-05:00", want: date(2024, time.March, 5)},
		{raw: "2024-03-06T01:30:00+02:00", want: date(2024, time.March, 6)},
		{raw: "2024-03-05T22:10:11", want: date(2024, time.March, 5)},
		{raw: "2024-03-05T22:10", want: date(2024, time.March, 5)},
		{raw: "2024-03-05", want: date(2024, time.March, 5)},
		{raw: "2024-01-15 10:30:00", want: date(2024, time.January, 15)},
		{raw: "2024-01-15 10:30:00.5+01:00", want: date(2024, time.January, 15)},
		{raw: "2024-01-15T10:30Z", want: date(2024, time.January, 15)},
		{raw: "2024-01-15 10:30-08:00", want: date(2024, time.January, 15)},
		{raw: "2024-01-15 10:30", want: date(2024, time.January, 15)},
		{raw: "20240115", want: date(2024, time.January, 15)},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, ok := ParseLastSync(tt.raw)
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeAll_PreservesOrderAndCount(t *testing.T) {
	devices := []directory.Device{
		{DeviceID: strPtr("b")},
		{DeviceID: strPtr("a")},
		{DeviceID: strPtr("b")},
	}

	rows := NormalizeAll(devices)

	require.Len(t, rows, 3)
	assert.Equal(t, "b", *rows[0].DeviceID)
	assert.Equal(t, "a", *rows[1].DeviceID)
	assert.Equal(t, "b", *rows[2].DeviceID)
}

func TestNormalizeAll_Empty(t *testing.T) {
	assert.Empty(t, NormalizeAll(nil))
}
