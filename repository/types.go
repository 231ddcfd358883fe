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

package repository

import (
	"context"

	"github.com/tidegate/ambient/types"
	"github.com/uptrace/bun"
)

// CrudRepository defines basic CRUD operations for a generic entity type.
// Every operation resolves its handle from ctx at call time: inside a unit
// of work it targets the active transaction, otherwise the root client.
type CrudRepository[T any] interface {
	FindUnique(ctx context.Context, id any) (*T, error)

	FindMany(ctx context.Context, filter *types.QueryFilter) ([]*T, error)

	GetAll(ctx context.Context) ([]*T, error)

	Query(ctx context.Context, query string, args ...interface{}) ([]*T, error)

	Create(ctx context.Context, entity ...*T) error

	Upsert(ctx context.Context, fields []string, duplicateKeys []string, entity ...*T) error

	Update(ctx context.Context, entity *T) error

	Delete(ctx context.Context, id any) error
}

// PageQueryRepository defines pagination functionality for listing entities.
type PageQueryRepository[T any] interface {
	Page(ctx context.Context, page *types.PageRequest) (*types.Pagination[T], error)
}

// Repository combines CRUD and pagination and exposes Bun query builders
// bound to the handle resolved from ctx for advanced use cases.
type Repository[T any] interface {
	CrudRepository[T]
	PageQueryRepository[T]
	EntityName() string
	NewSelect(ctx context.Context) *bun.SelectQuery
	NewInsert(ctx context.Context) *bun.InsertQuery
	NewUpdate(ctx context.Context) *bun.UpdateQuery
	NewDelete(ctx context.Context) *bun.DeleteQuery
}
