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
	"os"
	"testing"

	"github.com/uptrace/bun"
)

type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID   int64  `bun:"id,pk,autoincrement" json:"id"`
	Name string `bun:"name,notnull,unique" json:"name"`
}

type Post struct {
	bun.BaseModel `bun:"table:posts,alias:p"`

	ID       int64  `bun:"id,pk,autoincrement" json:"id"`
	Title    string `bun:"title,notnull" json:"title"`
	AuthorID int64  `bun:"author_id,notnull" json:"author_id"`
}

var txHook *TxEventHook

func testConfig() *Config {
	return &Config{
		Connection: ConnectionConfig{
			Type:         "sqlite",
			DSN:          "file:database_pkg_test?mode=memory&cache=shared",
			MaxIdleConns: 4,
			MaxOpenConns: 4,
		},
		Options: Options{
			EagerConnect:                 true,
			EnableDurabilityOptimization: true,
			AutoMigrate:                  true,
		},
	}
}

func TestMain(m *testing.M) {
	RegisterModel((*User)(nil), 1)
	RegisterModel((*Post)(nil), 2)

	db, err := Init(testConfig())
	if err != nil {
		fmt.Fprintf(os.Stderr, "init database error: %v\n", err)
		os.Exit(1)
	}

	txHook = NewTxEventHook()
	db.AddQueryHook(txHook)

	code := m.Run()
	_ = Close()
	os.Exit(code)
}

func clearData(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	db := GetDB()
	if _, err := db.NewDelete().Model((*Post)(nil)).Where("1 = 1").Exec(ctx); err != nil {
		t.Fatalf("clear posts: %v", err)
	}
	if _, err := db.NewDelete().Model((*User)(nil)).Where("1 = 1").Exec(ctx); err != nil {
		t.Fatalf("clear users: %v", err)
	}
}

func countUsers(t *testing.T, name string) int {
	t.Helper()
	count, err := GetDB().NewSelect().Model((*User)(nil)).Where("name = ?", name).Count(context.Background())
	if err != nil {
		t.Fatalf("count users: %v", err)
	}
	return count
}

func assertUserExists(t *testing.T, name string) {
	t.Helper()
	if countUsers(t, name) == 0 {
		t.Errorf("user %v should exist", name)
	}
}

func assertUserNotExists(t *testing.T, name string) {
	t.Helper()
	if countUsers(t, name) > 0 {
		t.Errorf("user %v should not exist", name)
	}
}
