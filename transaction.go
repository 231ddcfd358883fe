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

	"github.com/tidegate/ambient/database"
)

// Run executes fn as one unit of work: all queries made through the
// repository, service, or facade with fn's context share one transaction,
// committed when fn returns nil and rolled back when it returns an error
// or panics. A Run call made while a unit of work is already active on ctx
// joins it instead of opening a second transaction, so nesting collapses
// into the outermost unit. Errors from fn come back unwrapped.
func Run(ctx context.Context, fn func(ctx context.Context) error) error {
	return database.RunInTransaction(ctx, fn)
}

// RunValue is Run for operations that produce a value. On error the zero
// value is returned together with fn's error, untouched.
func RunValue[T any](ctx context.Context, fn func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := database.RunInTransaction(ctx, func(ctx context.Context) error {
		v, err := fn(ctx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}

// TransactionalFunc marks a function as a unit-of-work boundary: the
// returned function behaves exactly like calling Run around the original.
// Use it to declare transactional methods once instead of wrapping every
// call site.
func TransactionalFunc(fn func(ctx context.Context) error) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		return Run(ctx, fn)
	}
}

// Transactional is TransactionalFunc for value-returning operations.
func Transactional[T any](fn func(ctx context.Context) (T, error)) func(ctx context.Context) (T, error) {
	return func(ctx context.Context) (T, error) {
		return RunValue(ctx, fn)
	}
}

// InTransaction reports whether ctx currently carries an active unit of
// work.
func InTransaction(ctx context.Context) bool {
	return database.InTransaction(ctx)
}
