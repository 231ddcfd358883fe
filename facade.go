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

package ambient

import (
	"context"
	"database/sql"

	"github.com/tidegate/ambient/database"
	"github.com/uptrace/bun"
)

// Client returns the handle ad-hoc queries should target right now: the
// active transaction on ctx, or the root client when no unit of work is
// active. It panics when called before database.Init — querying before
// initialization is a programming error, not a recoverable condition.
func Client(ctx context.Context) bun.IDB {
	idb := database.Resolve(ctx)
	if idb == nil {
		panic(database.ErrNotInitialized)
	}
	return idb
}

// NewSelect starts a SELECT against the currently resolved handle.
func NewSelect(ctx context.Context) *bun.SelectQuery {
	return Client(ctx).NewSelect()
}

// NewInsert starts an INSERT against the currently resolved handle.
func NewInsert(ctx context.Context) *bun.InsertQuery {
	return Client(ctx).NewInsert()
}

// NewUpdate starts an UPDATE against the currently resolved handle.
func NewUpdate(ctx context.Context) *bun.UpdateQuery {
	return Client(ctx).NewUpdate()
}

// NewDelete starts a DELETE against the currently resolved handle.
func NewDelete(ctx context.Context) *bun.DeleteQuery {
	return Client(ctx).NewDelete()
}

// NewRaw builds a raw query against the currently resolved handle.
func NewRaw(ctx context.Context, query string, args ...interface{}) *bun.RawQuery {
	return Client(ctx).NewRaw(query, args...)
}

// Exec runs a statement against the currently resolved handle.
func Exec(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	return Client(ctx).ExecContext(ctx, query, args...)
}
