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

	"github.com/tidegate/ambient/repository"
	"github.com/tidegate/ambient/types"
	"github.com/uptrace/bun"
)

// Service is a thin entity-scoped facade over the transaction-aware
// repository. There is no explicit-transaction method family: wrap calls
// in Run (or a Transactional function) and every method joins the active
// unit of work through its context.
type Service[T any] interface {
	// Get returns a single entity by its identifier.
	Get(ctx context.Context, id any) (*T, error)

	// All returns all entities.
	All(ctx context.Context) ([]*T, error)

	// List returns entities that match the provided filter.
	List(ctx context.Context, filter *types.QueryFilter) ([]*T, error)

	// Query executes a raw WHERE clause and maps the results to entities.
	Query(ctx context.Context, query string, args ...interface{}) ([]*T, error)

	// Page returns a paginated list of entities.
	Page(ctx context.Context, page *types.PageRequest) (*types.Pagination[T], error)

	// Save inserts one or more new entities.
	Save(ctx context.Context, model ...*T) error

	// SaveOrUpdate upserts entities based on fields and duplicate keys.
	SaveOrUpdate(ctx context.Context, fields []string, duplicateKeys []string, model ...*T) error

	// Update modifies an existing entity.
	Update(ctx context.Context, model *T) error

	// Delete removes an entity by its identifier.
	Delete(ctx context.Context, id any) error

	// SelectBuilder returns a Bun select builder on the resolved handle.
	SelectBuilder(ctx context.Context) *bun.SelectQuery

	// InsertBuilder returns a Bun insert builder on the resolved handle.
	InsertBuilder(ctx context.Context) *bun.InsertQuery

	// UpdateBuilder returns a Bun update builder on the resolved handle.
	UpdateBuilder(ctx context.Context) *bun.UpdateQuery

	// DeleteBuilder returns a Bun delete builder on the resolved handle.
	DeleteBuilder(ctx context.Context) *bun.DeleteQuery
}

type baseServiceImpl[T any] struct {
	repo repository.Repository[T]
}

// NewService returns a Service backed by a repository with an inferred
// entity name.
func NewService[T any]() Service[T] {
	return &baseServiceImpl[T]{repo: repository.NewRepository[T]()}
}

// NewServiceFor returns a Service bound to an explicit entity name.
func NewServiceFor[T any](name string) Service[T] {
	return &baseServiceImpl[T]{repo: repository.NewRepositoryFor[T](name)}
}

func (s *baseServiceImpl[T]) Get(ctx context.Context, id any) (*T, error) {
	return s.repo.FindUnique(ctx, id)
}

func (s *baseServiceImpl[T]) All(ctx context.Context) ([]*T, error) {
	return s.repo.GetAll(ctx)
}

func (s *baseServiceImpl[T]) List(ctx context.Context, filter *types.QueryFilter) ([]*T, error) {
	return s.repo.FindMany(ctx, filter)
}

func (s *baseServiceImpl[T]) Query(ctx context.Context, query string, args ...interface{}) ([]*T, error) {
	return s.repo.Query(ctx, query, args...)
}

func (s *baseServiceImpl[T]) Page(ctx context.Context, page *types.PageRequest) (*types.Pagination[T], error) {
	return s.repo.Page(ctx, page)
}

func (s *baseServiceImpl[T]) Save(ctx context.Context, model ...*T) error {
	return s.repo.Create(ctx, model...)
}

func (s *baseServiceImpl[T]) SaveOrUpdate(ctx context.Context, fields []string, duplicateKeys []string, model ...*T) error {
	return s.repo.Upsert(ctx, fields, duplicateKeys, model...)
}

func (s *baseServiceImpl[T]) Update(ctx context.Context, model *T) error {
	return s.repo.Update(ctx, model)
}

func (s *baseServiceImpl[T]) Delete(ctx context.Context, id any) error {
	return s.repo.Delete(ctx, id)
}

func (s *baseServiceImpl[T]) SelectBuilder(ctx context.Context) *bun.SelectQuery {
	return s.repo.NewSelect(ctx)
}

func (s *baseServiceImpl[T]) InsertBuilder(ctx context.Context) *bun.InsertQuery {
	return s.repo.NewInsert(ctx)
}

func (s *baseServiceImpl[T]) UpdateBuilder(ctx context.Context) *bun.UpdateQuery {
	return s.repo.NewUpdate(ctx)
}

func (s *baseServiceImpl[T]) DeleteBuilder(ctx context.Context) *bun.DeleteQuery {
	return s.repo.NewDelete(ctx)
}
