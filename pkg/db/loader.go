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
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/carverauto/chromesync/pkg/inventory"
	"github.com/carverauto/chromesync/pkg/logger"
)

// Bulk insert modes for the staging table.
const (
	BulkModeCopy  = "copy"
	BulkModeBatch = "batch"
)

const (
	DefaultStagingTable      = "chromebook_staging"
	DefaultFinalizeProcedure = "rpa.sp_upsert_chromebooks"
	DefaultBatchSize         = 1000
)

//nolint:gochecknoglobals // column order of the staging table
var stagingColumns = []string{
	"device_id",
	"serial_number",
	"mac_address",
	"model",
	"status",
	"last_sync",
	"org_unit",
}

var identifierPart = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// TxBeginner opens the session a load runs in. *pgxpool.Pool satisfies it.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// LoaderConfig names the staging table and finalize procedure used by Loader.
type LoaderConfig struct {
	StagingTable      string `json:"staging_table"`
	FinalizeProcedure string `json:"finalize_procedure"`
	BulkMode          string `json:"bulk_mode"`
	BatchSize         int    `json:"batch_size"`
}

// Loader stages normalized rows in a session-scoped temporary table and hands
// them to a stored procedure that merges them into the inventory.
type Loader struct {
	db        TxBeginner
	staging   pgx.Identifier
	procedure pgx.Identifier
	bulkMode  string
	batchSize int
	logger    logger.Logger

	createSQL   string
	insertSQL   string
	finalizeSQL string
}

// NewLoader validates cfg and prepares the statements used by UpsertAll.
func NewLoader(db TxBeginner, cfg LoaderConfig, log logger.Logger) (*Loader, error) {
	if cfg.StagingTable == "" {
		cfg.StagingTable = DefaultStagingTable
	}

	if cfg.FinalizeProcedure == "" {
		cfg.FinalizeProcedure = DefaultFinalizeProcedure
	}

	if cfg.BulkMode == "" {
		cfg.BulkMode = BulkModeCopy
	}

	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}

	if cfg.BulkMode != BulkModeCopy && cfg.BulkMode != BulkModeBatch {
		return nil, fmt.Errorf("%w: %q", ErrInvalidBulkMode, cfg.BulkMode)
	}

	// temporary tables live in pg_temp and cannot be schema qualified
	staging, err := parseIdentifier(cfg.StagingTable, 1)
	if err != nil {
		return nil, err
	}

	procedure, err := parseIdentifier(cfg.FinalizeProcedure, 2)
	if err != nil {
		return nil, err
	}

	table := staging.Sanitize()

	placeholders := make([]string, len(stagingColumns))
	for i := range stagingColumns {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}

	return &Loader{
		db:        db,
		staging:   staging,
		procedure: procedure,
		bulkMode:  cfg.BulkMode,
		batchSize: cfg.BatchSize,
		logger:    log,
		createSQL: `CREATE TEMP TABLE ` + table + ` (
			device_id     TEXT NOT NULL,
			serial_number TEXT NULL,
			mac_address   TEXT NULL,
			model         TEXT NULL,
			status        TEXT NULL,
			last_sync     DATE NULL,
			org_unit      TEXT NULL
		) ON COMMIT DROP`,
		insertSQL: `INSERT INTO ` + table + ` (` + strings.Join(stagingColumns, ", ") + `)
			VALUES (` + strings.Join(placeholders, ", ") + `)`,
		finalizeSQL: `CALL ` + procedure.Sanitize() + `()`,
	}, nil
}

// UpsertAll stages rows and runs the finalize procedure exactly once inside a
// single transaction. Any failure rolls the session back, discarding the
// staging table, and is returned as a *StorageError. An empty slice still
// runs the full protocol.
func (l *Loader) UpsertAll(ctx context.Context, rows []inventory.Row) error {
	start := time.Now()

	tx, err := l.db.Begin(ctx)
	if err != nil {
		return &StorageError{Step: StepBegin, Err: err}
	}

	defer func() {
		// no-op after a successful commit
		rbErr := tx.Rollback(context.WithoutCancel(ctx))
		if rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			l.logger.Warn().Err(rbErr).Msg("Failed to roll back staging transaction")
		}
	}()

	if _, err = tx.Exec(ctx, l.createSQL); err != nil {
		return &StorageError{Step: StepCreateStaging, Err: err}
	}

	staged, err := l.stage(ctx, tx, rows)
	if err != nil {
		return &StorageError{Step: StepBulkInsert, Err: err}
	}

	if staged != int64(len(rows)) {
		return &StorageError{
			Step: StepBulkInsert,
			Err:  fmt.Errorf("%w: staged %d of %d", ErrStagedRowMismatch, staged, len(rows)),
		}
	}

	l.logger.Debug().
		Int("rows", len(rows)).
		Str("bulk_mode", l.bulkMode).
		Str("staging_table", l.staging.Sanitize()).
		Msg("Staged device rows")

	if _, err = tx.Exec(ctx, l.finalizeSQL); err != nil {
		return &StorageError{Step: StepFinalize, Err: err}
	}

	if err = tx.Commit(ctx); err != nil {
		return &StorageError{Step: StepCommit, Err: err}
	}

	l.logger.Info().
		Int("rows", len(rows)).
		Str("procedure", l.procedure.Sanitize()).
		Dur("duration", time.Since(start)).
		Msg("Device rows finalized")

	return nil
}

func (l *Loader) stage(ctx context.Context, tx pgx.Tx, rows []inventory.Row) (int64, error) {
	if l.bulkMode == BulkModeBatch {
		return l.stageBatches(ctx, tx, rows)
	}

	return tx.CopyFrom(ctx, l.staging, stagingColumns, pgx.CopyFromSlice(len(rows), func(i int) ([]any, error) {
		return stagingValues(&rows[i]), nil
	}))
}

func (l *Loader) stageBatches(ctx context.Context, tx pgx.Tx, rows []inventory.Row) (int64, error) {
	var total int64

	for offset := 0; offset < len(rows); offset += l.batchSize {
		end := min(offset+l.batchSize, len(rows))

		batch := &pgx.Batch{}
		for i := offset; i < end; i++ {
			batch.Queue(l.insertSQL, stagingValues(&rows[i])...)
		}

		affected, err := sendBatchExecAll(ctx, batch, tx.SendBatch, "staging")
		total += affected

		if err != nil {
			return total, fmt.Errorf("rows %d-%d: %w", offset, end-1, err)
		}
	}

	return total, nil
}

func stagingValues(row *inventory.Row) []any {
	return []any{
		row.DeviceID,
		row.SerialNumber,
		row.MacAddress,
		row.Model,
		row.Status,
		row.LastSyncDate,
		row.OrgUnit,
	}
}

func parseIdentifier(name string, maxParts int) (pgx.Identifier, error) {
	parts := strings.Split(name, ".")
	if len(parts) > maxParts {
		return nil, fmt.Errorf("%w: %q", ErrInvalidIdentifier, name)
	}

	for _, part := range parts {
		if !identifierPart.MatchString(part) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidIdentifier, name)
		}
	}

	return pgx.Identifier(parts), nil
}
