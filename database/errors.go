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
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
)

// ErrNotInitialized is returned when a query or transaction is requested
// before Init has established the root client. This is a caller-side
// precondition violation, never retried internally.
var ErrNotInitialized = errors.New("database: root client not initialized")

type SQLError int

const (
	UnknownErr SQLError = iota
	NoTableErr
	ExistTableErr
	DuplicateKeyErr
	NotNullViolationErr
	ForeignKeyViolationErr
)

// IsSQLError classifies driver errors into the classes the upsert fallback
// and table creation paths care about. MySQL errors carry numeric codes;
// Postgres and SQLite are matched on SQLSTATE text.
func IsSQLError(err error) (is bool, sqlErr SQLError) {
	if err == nil {
		return false, UnknownErr
	}
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		switch mysqlErr.Number {
		case 1062:
			return true, DuplicateKeyErr
		case 1048:
			return true, NotNullViolationErr
		case 1216, 1217:
			return true, ForeignKeyViolationErr
		case 1050:
			return true, ExistTableErr
		case 1146:
			return true, NoTableErr
		default:
			return true, UnknownErr
		}
	}
	s := strings.ToLower(err.Error())
	switch {
	case strings.Contains(s, "sqlstate 42p01"),
		strings.Contains(s, "undefined table"),
		strings.Contains(s, "no such table"):
		return true, NoTableErr
	case strings.Contains(s, "already exists") && strings.Contains(s, "table"):
		return true, ExistTableErr
	case strings.Contains(s, "duplicate key value"),
		strings.Contains(s, "unique constraint failed"),
		strings.Contains(s, "sqlstate 23505"):
		return true, DuplicateKeyErr
	case strings.Contains(s, "not-null constraint"),
		strings.Contains(s, "not null constraint failed"),
		strings.Contains(s, "sqlstate 23502"):
		return true, NotNullViolationErr
	case strings.Contains(s, "foreign key constraint failed"),
		strings.Contains(s, "sqlstate 23503"):
		return true, ForeignKeyViolationErr
	}
	return false, UnknownErr
}
