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
	"errors"
	"fmt"

	"github.com/carverauto/chromesync/pkg/db"
)

// ResolveIdentities fills empty admin and service account emails in creds
// from the constants store. Configured values win. A service account email
// that is missing from the store is left empty, since JSON keys carry their
// own client_email.
func ResolveIdentities(ctx context.Context, creds *CredentialsConfig, keys ConstantsConfig, constants ConstantProvider) error {
	if creds.AdminEmail == "" {
		if constants == nil {
			return fmt.Errorf("%w: credentials.admin_email", ErrConfigurationMissing)
		}

		admin, err := constants.GetConstant(ctx, keys.AdminEmailKey)
		if err != nil {
			return fmt.Errorf("resolve admin email: %w", err)
		}

		creds.AdminEmail = admin
	}

	if creds.ServiceAccountEmail == "" && constants != nil {
		account, err := constants.GetConstant(ctx, keys.ServiceAccountEmailKey)
		if err != nil && !errors.Is(err, db.ErrConstantNotFound) {
			return fmt.Errorf("resolve service account email: %w", err)
		}

		creds.ServiceAccountEmail = account
	}

	return nil
}
