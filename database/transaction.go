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

	"github.com/uptrace/bun"
)

// TxFunc is the operation executed inside a unit of work. Queries made
// through Resolve with the supplied context join the unit's transaction.
type TxFunc func(ctx context.Context) error

// RunInTransaction executes fn inside a single transaction on the root
// client.
//
// If ctx already carries an active transaction, fn runs directly inside it:
// nested units of work flatten into the one outer transaction and exactly
// one BEGIN reaches the engine for the whole call tree. Otherwise a new
// transaction is opened; it commits when fn returns nil and rolls back when
// fn returns an error or panics. fn's error is returned to the caller
// unwrapped.
func RunInTransaction(ctx context.Context, fn TxFunc) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if InTransaction(ctx) {
		return fn(ctx)
	}
	db := GetDB()
	if db == nil {
		return ErrNotInitialized
	}
	return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return fn(WithTx(ctx, tx))
	})
}
