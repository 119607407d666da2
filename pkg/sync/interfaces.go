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

	"github.com/carverauto/chromesync/pkg/directory"
	"github.com/carverauto/chromesync/pkg/inventory"
)

//go:generate mockgen -destination=mock_sync.go -package=sync github.com/carverauto/chromesync/pkg/sync DeviceCollector,RowLoader,ConstantProvider

// DeviceCollector returns the complete device inventory for one access token.
type DeviceCollector interface {
	FetchAll(ctx context.Context, accessToken string) ([]directory.Device, error)
}

// RowLoader persists one run's rows atomically.
type RowLoader interface {
	UpsertAll(ctx context.Context, rows []inventory.Row) error
}

// ConstantProvider looks up named configuration values.
type ConstantProvider interface {
	GetConstant(ctx context.Context, name string) (string, error)
}
