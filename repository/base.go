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
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/tidegate/ambient/database"
	"github.com/tidegate/ambient/types"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/feature"
)

// ErrUnknownModel indicates the repository's entity name does not match any
// registered model. This is a configuration error: register the model or
// construct the repository with NewRepositoryFor and an explicit name.
var ErrUnknownModel = errors.New("repository: unknown model")

type baseRepositoryImpl[T any] struct {
	name string
}

// NewRepository returns a stateless repository whose entity name is
// inferred from T's type name (a trailing "Model" suffix is stripped and
// the first rune lower-cased). The repository holds no handle; each call
// resolves the active transaction or the root client from ctx.
func NewRepository[T any]() Repository[T] {
	return &baseRepositoryImpl[T]{name: inferEntityName[T]()}
}

// NewRepositoryFor binds a repository to an explicit entity name, which
// always takes precedence over inference.
func NewRepositoryFor[T any](name string) Repository[T] {
	return &baseRepositoryImpl[T]{name: name}
}

func inferEntityName[T any]() string {
	return database.EntityNameOf(reflect.TypeOf((*T)(nil)).Elem())
}

func (r *baseRepositoryImpl[T]) EntityName() string { return r.name }

// resolve validates the entity name against the model registry and returns
// the handle for the current call.
func (r *baseRepositoryImpl[T]) resolve(ctx context.Context) (bun.IDB, error) {
	if _, ok := database.LookupModel(r.name); !ok {
		return nil, fmt.Errorf("%w: %q — set the entity name explicitly", ErrUnknownModel, r.name)
	}
	idb := database.Resolve(ctx)
	if idb == nil {
		return nil, database.ErrNotInitialized
	}
	return idb, nil
}

func (r *baseRepositoryImpl[T]) mustResolve(ctx context.Context) bun.IDB {
	idb, err := r.resolve(ctx)
	if err != nil {
		panic(err)
	}
	return idb
}

func (r *baseRepositoryImpl[T]) NewSelect(ctx context.Context) *bun.SelectQuery {
	return r.mustResolve(ctx).NewSelect()
}

func (r *baseRepositoryImpl[T]) NewInsert(ctx context.Context) *bun.InsertQuery {
	return r.mustResolve(ctx).NewInsert()
}

func (r *baseRepositoryImpl[T]) NewUpdate(ctx context.Context) *bun.UpdateQuery {
	return r.mustResolve(ctx).NewUpdate()
}

func (r *baseRepositoryImpl[T]) NewDelete(ctx context.Context) *bun.DeleteQuery {
	return r.mustResolve(ctx).NewDelete()
}

func (r *baseRepositoryImpl[T]) FindUnique(ctx context.Context, id any) (*T, error) {
	idb, err := r.resolve(ctx)
	if err != nil {
		return nil, err
	}
	var entity T
	if err := idb.NewSelect().Model(&entity).Where("id = ?", id).Scan(ctx); err != nil {
		return nil, err
	}
	return &entity, nil
}

func (r *baseRepositoryImpl[T]) GetAll(ctx context.Context) ([]*T, error) {
	idb, err := r.resolve(ctx)
	if err != nil {
		return nil, err
	}
	var entities []*T
	err = idb.NewSelect().Model(&entities).Scan(ctx)
	return entities, err
}

func (r *baseRepositoryImpl[T]) FindMany(ctx context.Context, filter *types.QueryFilter) ([]*T, error) {
	idb, err := r.resolve(ctx)
	if err != nil {
		return nil, err
	}
	var entities []*T
	query := idb.NewSelect().Model(&entities)
	if filter != nil {
		query = query.Where(filter.Schema, filter.Args...)
	}
	if err := query.Scan(ctx); err != nil {
		return nil, err
	}
	return entities, nil
}

func (r *baseRepositoryImpl[T]) Query(ctx context.Context, query string, args ...interface{}) ([]*T, error) {
	idb, err := r.resolve(ctx)
	if err != nil {
		return nil, err
	}
	var entities []*T
	err = idb.NewSelect().Model(&entities).Where(query, args...).Scan(ctx)
	return entities, err
}

func (r *baseRepositoryImpl[T]) Page(ctx context.Context, pageRequest *types.PageRequest) (*types.Pagination[T], error) {
	idb, err := r.resolve(ctx)
	if err != nil {
		return nil, err
	}
	var entities []*T
	query := idb.NewSelect().Model(&entities)
	if pageRequest.GetFilter() != nil {
		query = query.Where(pageRequest.GetFilter().Schema, pageRequest.GetFilter().Args...)
	}
	pagination := types.NewDefaultPagination[T](pageRequest.GetPage(), pageRequest.GetPageSize())
	total, err := query.Count(ctx)
	if err != nil || total == 0 {
		return pagination, err
	}
	err = query.
		Offset(pageRequest.GetOffset()).
		Limit(pageRequest.GetPageSize()).
		Order(pageRequest.GetOrders()...).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	pagination.Total = total
	pagination.Items = entities
	return pagination, nil
}

func (r *baseRepositoryImpl[T]) Create(ctx context.Context, entity ...*T) error {
	idb, err := r.resolve(ctx)
	if err != nil {
		return err
	}
	entities := valsToSlice(entity...)
	_, err = idb.NewInsert().Model(&entities).Exec(ctx)
	return err
}

func (r *baseRepositoryImpl[T]) Update(ctx context.Context, entity *T) error {
	idb, err := r.resolve(ctx)
	if err != nil {
		return err
	}
	_, err = idb.NewUpdate().Model(entity).WherePK().Exec(ctx)
	return err
}

func (r *baseRepositoryImpl[T]) Delete(ctx context.Context, id any) error {
	idb, err := r.resolve(ctx)
	if err != nil {
		return err
	}
	var entity T
	_, err = idb.NewDelete().Model(&entity).Where("id = ?", id).Exec(ctx)
	return err
}

func (r *baseRepositoryImpl[T]) Upsert(ctx context.Context, fields []string, duplicateKeys []string, entity ...*T) error {
	if len(fields) == 0 {
		return fmt.Errorf("fields cannot be empty")
	}
	idb, err := r.resolve(ctx)
	if err != nil {
		return err
	}

	entities := valsToSlice(entity...)
	features := idb.Dialect().Features()

	switch {
	case features.Has(feature.InsertOnConflict):
		return r.upsertOnConflict(ctx, idb, fields, duplicateKeys, entities)
	case features.Has(feature.InsertOnDuplicateKey):
		return r.upsertOnDuplicateKey(ctx, idb, fields, entities)
	default:
		return r.upsertFallback(ctx, idb, entities)
	}
}

func (r *baseRepositoryImpl[T]) upsertOnConflict(ctx context.Context, idb bun.IDB, fields []string, duplicateKeys []string, entities []*T) error {
	if len(duplicateKeys) == 0 {
		duplicateKeys = []string{"id"}
	}
	var setClauses []string
	for _, field := range fields {
		setClauses = append(setClauses, fmt.Sprintf("%s = EXCLUDED.%s", bun.Ident(field), bun.Ident(field)))
	}
	_, err := idb.NewInsert().
		Model(&entities).
		On("CONFLICT (" + strings.Join(duplicateKeys, ",") + ") DO UPDATE").
		Set(strings.Join(setClauses, ", ")).
		Exec(ctx)
	return err
}

func (r *baseRepositoryImpl[T]) upsertOnDuplicateKey(ctx context.Context, idb bun.IDB, fields []string, entities []*T) error {
	var setClauses []string
	for _, field := range fields {
		setClauses = append(setClauses, fmt.Sprintf("%s = VALUES(%s)", bun.Ident(field), bun.Ident(field)))
	}
	_, err := idb.NewInsert().
		Model(&entities).
		On("DUPLICATE KEY UPDATE " + strings.Join(setClauses, ", ")).
		Exec(ctx)
	return err
}

// upsertFallback inserts one by one and converts duplicate-key failures
// into updates.
func (r *baseRepositoryImpl[T]) upsertFallback(ctx context.Context, idb bun.IDB, entities []*T) error {
	for _, entity := range entities {
		_, err := idb.NewInsert().Model(entity).Exec(ctx)
		if err == nil {
			continue
		}
		if is, class := database.IsSQLError(err); !is || class != database.DuplicateKeyErr {
			return err
		}
		if _, updateErr := idb.NewUpdate().Model(entity).WherePK().Exec(ctx); updateErr != nil {
			return fmt.Errorf("upsert failed for entity: insert error: %v, update error: %v", err, updateErr)
		}
	}
	return nil
}

func valsToSlice[T any](entity ...*T) []*T {
	entities := make([]*T, len(entity))
	copy(entities, entity)
	return entities
}
