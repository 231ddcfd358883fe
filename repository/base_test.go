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
	"os"
	"testing"

	"github.com/tidegate/ambient/database"
	"github.com/tidegate/ambient/types"
	"github.com/uptrace/bun"
)

type Book struct {
	bun.BaseModel `bun:"table:books,alias:b"`

	ID     int64  `bun:"id,pk,autoincrement" json:"id"`
	Title  string `bun:"title,notnull" json:"title"`
	Author string `bun:"author" json:"author"`
}

type WidgetModel struct {
	bun.BaseModel `bun:"table:widgets,alias:w"`

	ID   int64  `bun:"id,pk,autoincrement" json:"id"`
	Kind string `bun:"kind,notnull" json:"kind"`
}

// Gadget is deliberately never registered.
type Gadget struct {
	bun.BaseModel `bun:"table:gadgets,alias:g"`

	ID int64 `bun:"id,pk,autoincrement" json:"id"`
}

func TestMain(m *testing.M) {
	database.RegisterModel((*Book)(nil), 1)
	database.RegisterModel((*WidgetModel)(nil), 2)
	database.RegisterNamedModel("tome", (*Book)(nil), 3)

	cfg := &database.Config{
		Connection: database.ConnectionConfig{
			Type:         "sqlite",
			DSN:          "file:repository_pkg_test?mode=memory&cache=shared",
			MaxIdleConns: 4,
			MaxOpenConns: 4,
		},
		Options: database.Options{
			EagerConnect: true,
			AutoMigrate:  true,
		},
	}
	if _, err := database.Init(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "init database error: %v\n", err)
		os.Exit(1)
	}

	code := m.Run()
	_ = database.Close()
	os.Exit(code)
}

func clearBooks(t *testing.T) {
	t.Helper()
	_, err := database.GetDB().NewDelete().Model((*Book)(nil)).Where("1 = 1").Exec(context.Background())
	if err != nil {
		t.Fatalf("clear books: %v", err)
	}
}

func TestEntityNameInference(t *testing.T) {
	if got := NewRepository[Book]().EntityName(); got != "book" {
		t.Errorf("inferred entity name for Book = %q, want %q", got, "book")
	}
	// The conventional Model suffix is stripped before lower-casing.
	if got := NewRepository[WidgetModel]().EntityName(); got != "widget" {
		t.Errorf("inferred entity name for WidgetModel = %q, want %q", got, "widget")
	}
}

func TestExplicitNameTakesPrecedence(t *testing.T) {
	clearBooks(t)
	defer clearBooks(t)

	repo := NewRepositoryFor[Book]("tome")
	if repo.EntityName() != "tome" {
		t.Fatalf("explicit entity name should win, got %q", repo.EntityName())
	}
	if err := repo.Create(context.Background(), &Book{Title: "Beowulf"}); err != nil {
		t.Fatalf("create through explicitly named repository: %v", err)
	}
}

func TestUnknownModelConfigurationError(t *testing.T) {
	repo := NewRepository[Gadget]()
	ctx := context.Background()

	if _, err := repo.FindUnique(ctx, 1); !errors.Is(err, ErrUnknownModel) {
		t.Errorf("FindUnique: expected ErrUnknownModel, got: %v", err)
	}
	if err := repo.Create(ctx, &Gadget{}); !errors.Is(err, ErrUnknownModel) {
		t.Errorf("Create: expected ErrUnknownModel, got: %v", err)
	}
	if _, err := repo.FindMany(ctx, nil); !errors.Is(err, ErrUnknownModel) {
		t.Errorf("FindMany: expected ErrUnknownModel, got: %v", err)
	}
}

func TestCrudRoundTrip(t *testing.T) {
	clearBooks(t)
	defer clearBooks(t)

	ctx := context.Background()
	repo := NewRepository[Book]()

	book := &Book{Title: "Dune", Author: "Herbert"}
	if err := repo.Create(ctx, book); err != nil {
		t.Fatalf("create: %v", err)
	}
	if book.ID == 0 {
		t.Fatal("create should backfill the generated identifier")
	}

	got, err := repo.FindUnique(ctx, book.ID)
	if err != nil {
		t.Fatalf("find unique: %v", err)
	}
	if got.Title != "Dune" {
		t.Errorf("found title = %q, want %q", got.Title, "Dune")
	}

	got.Author = "F. Herbert"
	if err := repo.Update(ctx, got); err != nil {
		t.Fatalf("update: %v", err)
	}

	matches, err := repo.FindMany(ctx, types.NewQueryFilter("author = ?", "F. Herbert"))
	if err != nil {
		t.Fatalf("find many: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("find many matched %d rows, want 1", len(matches))
	}

	if err := repo.Delete(ctx, book.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	all, err := repo.GetAll(ctx)
	if err != nil {
		t.Fatalf("get all: %v", err)
	}
	if len(all) != 0 {
		t.Errorf("expected empty table after delete, got %d rows", len(all))
	}
}

func TestPage(t *testing.T) {
	clearBooks(t)
	defer clearBooks(t)

	ctx := context.Background()
	repo := NewRepository[Book]()
	for i := 0; i < 25; i++ {
		if err := repo.Create(ctx, &Book{Title: fmt.Sprintf("vol-%02d", i)}); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	page, err := repo.Page(ctx, types.NewPageRequest(2, 10, nil, []string{"title ASC"}))
	if err != nil {
		t.Fatalf("page: %v", err)
	}
	if page.Total != 25 {
		t.Errorf("total = %d, want 25", page.Total)
	}
	if len(page.Items) != 10 {
		t.Fatalf("page size = %d, want 10", len(page.Items))
	}
	if page.Items[0].Title != "vol-10" {
		t.Errorf("first item on page 2 = %q, want %q", page.Items[0].Title, "vol-10")
	}
}

func TestUpsert(t *testing.T) {
	clearBooks(t)
	defer clearBooks(t)

	ctx := context.Background()
	repo := NewRepository[Book]()

	book := &Book{Title: "Solaris", Author: "Lem"}
	if err := repo.Create(ctx, book); err != nil {
		t.Fatalf("create: %v", err)
	}

	book.Author = "S. Lem"
	if err := repo.Upsert(ctx, []string{"author"}, []string{"id"}, book); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	all, err := repo.GetAll(ctx)
	if err != nil {
		t.Fatalf("get all: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("upsert should not add a second row, got %d", len(all))
	}
	if all[0].Author != "S. Lem" {
		t.Errorf("author = %q, want %q", all[0].Author, "S. Lem")
	}
}

func TestRepositoryJoinsAmbientTransaction(t *testing.T) {
	clearBooks(t)
	defer clearBooks(t)

	repo := NewRepository[Book]()
	mockErr := errors.New("mock error")

	err := database.RunInTransaction(context.Background(), func(ctx context.Context) error {
		if err := repo.Create(ctx, &Book{Title: "Phantom"}); err != nil {
			return err
		}
		// Visible inside the unit of work through the same ambient handle.
		inside, err := repo.FindMany(ctx, types.NewQueryFilter("title = ?", "Phantom"))
		if err != nil {
			return err
		}
		if len(inside) != 1 {
			t.Error("uncommitted row should be visible inside the unit of work")
		}
		return mockErr
	})
	if !errors.Is(err, mockErr) {
		t.Fatalf("expected the operation's error back, got: %v", err)
	}

	after, err := repo.FindMany(context.Background(), types.NewQueryFilter("title = ?", "Phantom"))
	if err != nil {
		t.Fatalf("find many: %v", err)
	}
	if len(after) != 0 {
		t.Error("rolled back row should not be visible afterwards")
	}
}
