/*
 * Copyright 2025 tidegate.
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

package database

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

// MigrationManager creates tables for registered models at startup.
type MigrationManager struct {
	db     *bun.DB
	logger Logger
}

func NewMigrationManager(db *bun.DB, logger Logger) *MigrationManager {
	return &MigrationManager{db: db, logger: logger}
}

// CreateTables creates the table for every registered model in priority
// order. All tables are created inside one unit of work, so a failure
// leaves the schema untouched.
func (mm *MigrationManager) CreateTables(ctx context.Context) error {
	if mm.db == nil {
		return ErrNotInitialized
	}
	return mm.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		for _, model := range RegisteredModels() {
			_, err := tx.NewCreateTable().
				Model(model.Instance()).
				IfNotExists().
				Exec(ctx)
			if err != nil {
				return fmt.Errorf("failed to create table for model %q: %w", model.Name(), err)
			}
			if mm.logger != nil {
				mm.logger.Debug("Ensured table for model", "model", model.Name())
			}
		}
		return nil
	})
}

// DropTables drops every registered model's table in reverse priority
// order. Intended for tests and local resets.
func (mm *MigrationManager) DropTables(ctx context.Context) error {
	if mm.db == nil {
		return ErrNotInitialized
	}
	models := RegisteredModels()
	for i := len(models) - 1; i >= 0; i-- {
		_, err := mm.db.NewDropTable().
			Model(models[i].Instance()).
			IfExists().
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to drop table for model %q: %w", models[i].Name(), err)
		}
	}
	return nil
}
