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

package db

import (
	"errors"
	"fmt"
)

var (
	ErrStorage               = errors.New("storage error")
	ErrFailedOpenDB          = errors.New("failed to open database")
	ErrDatabaseNotConfigured = errors.New("database is not configured")
	ErrConstantNotFound      = errors.New("constant not found")
	ErrStagedRowMismatch     = errors.New("staged row count does not match input")
	ErrInvalidIdentifier     = errors.New("invalid SQL identifier")
	ErrInvalidBulkMode       = errors.New("invalid bulk mode")
)

// Loader steps reported in StorageError.
const (
	StepBegin         = "begin"
	StepCreateStaging = "create_staging"
	StepBulkInsert    = "bulk_insert"
	StepFinalize      = "finalize"
	StepCommit        = "commit"
)

// StorageError reports which step of a load failed. The session has been
// rolled back by the time it is returned.
type StorageError struct {
	Step string
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Step, e.Err)
}

func (e *StorageError) Unwrap() []error {
	return []error{ErrStorage, e.Err}
}
