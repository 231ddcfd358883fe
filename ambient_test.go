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
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/tidegate/ambient/database"
	"github.com/tidegate/ambient/types"
	"github.com/uptrace/bun"
)

type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID   int64  `bun:"id,pk,autoincrement" json:"id"`
	Name string `bun:"name,notnull,unique" json:"name"`
}

type Post struct {
	bun.BaseModel `bun:"table:posts,alias:p"`

	ID       int64            `bun:"id,pk,autoincrement" json:"id"`
	Title    string           `bun:"title,notnull" json:"title"`
	AuthorID int64            `bun:"author_id,notnull" json:"author_id"`
	Meta     types.JsonObject `bun:"meta,type:text" json:"meta"`
}

var txHook *database.TxEventHook

func TestMain(m *testing.M) {
	database.RegisterModel((*User)(nil), 1)
	database.RegisterModel((*Post)(nil), 2)

	cfg := &database.Config{
		Connection: database.ConnectionConfig{
			Type:         "sqlite",
			DSN:          "file:ambient_pkg_test?mode=memory&cache=shared",
			MaxIdleConns: 4,
			MaxOpenConns: 4,
		},
		Options: database.Options{
			EagerConnect: true,
			AutoMigrate:  true,
		},
	}
	db, err := database.Init(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init database error: %v\n", err)
		os.Exit(1)
	}

	txHook = database.NewTxEventHook()
	db.AddQueryHook(txHook)

	code := m.Run()
	_ = database.Close()
	os.Exit(code)
}

func clearData(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	db := database.GetDB()
	if _, err := db.NewDelete().Model((*Post)(nil)).Where("1 = 1").Exec(ctx); err != nil {
		t.Fatalf("clear posts: %v", err)
	}
	if _, err := db.NewDelete().Model((*User)(nil)).Where("1 = 1").Exec(ctx); err != nil {
		t.Fatalf("clear users: %v", err)
	}
}

func countRows(t *testing.T, model interface{}) int {
	t.Helper()
	count, err := database.GetDB().NewSelect().Model(model).Count(context.Background())
	if err != nil {
		t.Fatalf("count rows: %v", err)
	}
	return count
}

func TestRunRollsBackAllWrites(t *testing.T) {
	clearData(t)
	defer clearData(t)

	users := NewService[User]()
	posts := NewService[Post]()
	mockErr := errors.New("mock error")

	err := Run(context.Background(), func(ctx context.Context) error {
		author := &User{Name: "alice"}
		if err := users.Save(ctx, author); err != nil {
			return err
		}
		if err := posts.Save(ctx, &Post{Title: "hello", AuthorID: author.ID}); err != nil {
			return err
		}
		return mockErr
	})
	if !errors.Is(err, mockErr) {
		t.Fatalf("the operation's error should come back unchanged, got: %v", err)
	}
	if n := countRows(t, (*User)(nil)); n != 0 {
		t.Errorf("expected no users after rollback, got %d", n)
	}
	if n := countRows(t, (*Post)(nil)); n != 0 {
		t.Errorf("expected no posts after rollback, got %d", n)
	}
}

func TestRunValueCommitsAllWrites(t *testing.T) {
	clearData(t)
	defer clearData(t)

	users := NewService[User]()
	posts := NewService[Post]()

	author, err := RunValue(context.Background(), func(ctx context.Context) (*User, error) {
		u := &User{Name: "bob"}
		if err := users.Save(ctx, u); err != nil {
			return nil, err
		}
		post := &Post{Title: "world", AuthorID: u.ID, Meta: types.JsonObject{"lang": "en"}}
		if err := posts.Save(ctx, post); err != nil {
			return nil, err
		}
		return u, nil
	})
	if err != nil {
		t.Fatalf("unit of work should commit: %v", err)
	}
	if author == nil || author.ID == 0 {
		t.Fatal("committed entity should carry its generated identifier")
	}
	if n := countRows(t, (*User)(nil)); n != 1 {
		t.Fatalf("expected exactly one user, got %d", n)
	}
	got, err := posts.List(context.Background(), types.NewQueryFilter("author_id = ?", author.ID))
	if err != nil {
		t.Fatalf("list posts: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected exactly one post referencing the author, got %d", len(got))
	}
	if got[0].Meta["lang"] != "en" {
		t.Errorf("post metadata should round-trip, got %v", got[0].Meta)
	}
}

func TestDirectSaveOutsideUnitOfWork(t *testing.T) {
	clearData(t)
	defer clearData(t)

	users := NewService[User]()
	ctx := context.Background()

	u := &User{Name: "carol"}
	if err := users.Save(ctx, u); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := users.Get(ctx, u.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Name != "carol" {
		t.Errorf("name = %q, want %q", got.Name, "carol")
	}
}

func TestFacadeAndServiceShareTheHandle(t *testing.T) {
	clearData(t)
	defer clearData(t)

	users := NewService[User]()
	mockErr := errors.New("mock error")

	err := Run(context.Background(), func(ctx context.Context) error {
		if !InTransaction(ctx) {
			t.Error("unit of work should be active inside Run")
		}
		if err := users.Save(ctx, &User{Name: "dave"}); err != nil {
			return err
		}
		// The facade resolves the same transaction and sees the write.
		count, err := NewSelect(ctx).Model((*User)(nil)).Where("name = ?", "dave").Count(ctx)
		if err != nil {
			return err
		}
		if count != 1 {
			t.Errorf("facade should see the uncommitted write, got %d rows", count)
		}
		return mockErr
	})
	if !errors.Is(err, mockErr) {
		t.Fatalf("expected the mock error back, got: %v", err)
	}
	if n := countRows(t, (*User)(nil)); n != 0 {
		t.Errorf("facade writes share the transaction's fate, got %d rows", n)
	}
}

func TestTransactionalJoinsCallerUnitOfWork(t *testing.T) {
	clearData(t)
	defer clearData(t)
	txHook.Reset()

	users := NewService[User]()
	registerPair := TransactionalFunc(func(ctx context.Context) error {
		if err := users.Save(ctx, &User{Name: "erin"}); err != nil {
			return err
		}
		return users.Save(ctx, &User{Name: "frank"})
	})

	err := Run(context.Background(), func(ctx context.Context) error {
		if err := users.Save(ctx, &User{Name: "grace"}); err != nil {
			return err
		}
		return registerPair(ctx)
	})
	if err != nil {
		t.Fatalf("unit of work should commit: %v", err)
	}
	if got := txHook.Begins(); got != 1 {
		t.Errorf("the wrapped function should join the caller's transaction, got %d BEGINs", got)
	}
	if n := countRows(t, (*User)(nil)); n != 3 {
		t.Errorf("expected 3 users, got %d", n)
	}
}

func TestTransactionalStandaloneOpensItsOwnUnitOfWork(t *testing.T) {
	clearData(t)
	defer clearData(t)

	users := NewService[User]()
	mockErr := errors.New("mock error")
	lookup := Transactional(func(ctx context.Context) (*User, error) {
		if err := users.Save(ctx, &User{Name: "heidi"}); err != nil {
			return nil, err
		}
		return nil, mockErr
	})

	got, err := lookup(context.Background())
	if !errors.Is(err, mockErr) {
		t.Fatalf("error identity should survive the wrapper, got: %v", err)
	}
	if got != nil {
		t.Error("failed operation should return the zero value")
	}
	if n := countRows(t, (*User)(nil)); n != 0 {
		t.Errorf("standalone wrapped call should roll back on error, got %d rows", n)
	}
}
