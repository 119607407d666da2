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

	"github.com/jackc/pgx/v5"
)

const DefaultConstantsTable = "rpa.constants"

// Querier runs single-row lookups. *pgxpool.Pool satisfies it.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// ConstantStore reads named configuration values kept alongside the inventory.
type ConstantStore struct {
	db    Querier
	query string
}

func NewConstantStore(db Querier, table string) (*ConstantStore, error) {
	if table == "" {
		table = DefaultConstantsTable
	}

	ident, err := parseIdentifier(table, 2)
	if err != nil {
		return nil, err
	}

	return &ConstantStore{
		db:    db,
		query: `SELECT value FROM ` + ident.Sanitize() + ` WHERE name = $1`,
	}, nil
}

// GetConstant returns the value stored under name. A missing row or a NULL
// value yields ErrConstantNotFound.
func (s *ConstantStore) GetConstant(ctx context.Context, name string) (string, error) {
	var value *string

	if err := s.db.QueryRow(ctx, s.query, name).Scan(&value); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", fmt.Errorf("%w: %s", ErrConstantNotFound, name)
		}

		return "", fmt.Errorf("failed to read constant %s: %w", name, err)
	}

	if value == nil {
		return "", fmt.Errorf("%w: %s", ErrConstantNotFound, name)
	}

	return *value, nil
}
