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

type txCtxKey struct{}

// WithTx returns a derived context carrying tx as the active transaction
// handle. Everything executing under the returned context, including work
// resumed after blocking calls, observes tx; the parent context is left
// untouched, so an inner WithTx shadows an outer one only for its own
// subtree.
func WithTx(ctx context.Context, tx bun.Tx) context.Context {
	return context.WithValue(ctx, txCtxKey{}, tx)
}

// TxFromContext reports the innermost transaction handle installed on ctx.
func TxFromContext(ctx context.Context) (bun.Tx, bool) {
	tx, ok := ctx.Value(txCtxKey{}).(bun.Tx)
	return tx, ok
}

// InTransaction reports whether ctx carries an active transaction handle.
func InTransaction(ctx context.Context) bool {
	_, ok := TxFromContext(ctx)
	return ok
}

// Resolve returns the handle queries should be issued through: the active
// transaction from ctx if one is installed, otherwise the root client.
// Returns nil when no transaction is active and the root client has not
// been initialized; callers turn that into ErrNotInitialized.
func Resolve(ctx context.Context) bun.IDB {
	if tx, ok := TxFromContext(ctx); ok {
		return tx
	}
	if db := GetDB(); db != nil {
		return db
	}
	return nil
}
