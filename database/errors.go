/*
 * Copyright 2025 tomoncle.
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
	"database/sql"
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
)

// SQLError classifies driver errors independently of the dialect.
type SQLError int

const (
	UnknownErr SQLError = iota
	NoRowsErr
	NoIndexErr
	NoColumnErr
	ExistIndexErr
	ExistColumnErr
	NoTableErr
	ExistTableErr
	DuplicateKeyErr
	NotNullViolationErr
	ForeignKeyViolationErr
	CheckConstraintViolationErr
	DataTruncatedErr
	InvalidTypeCastErr
)

var sqlErrorNames = map[SQLError]string{
	UnknownErr:                  "unknown",
	NoRowsErr:                   "no_rows",
	NoIndexErr:                  "no_index",
	NoColumnErr:                 "no_column",
	ExistIndexErr:               "exist_index",
	ExistColumnErr:              "exist_column",
	NoTableErr:                  "no_table",
	ExistTableErr:               "exist_table",
	DuplicateKeyErr:             "duplicate_key",
	NotNullViolationErr:         "not_null_violation",
	ForeignKeyViolationErr:      "foreign_key_violation",
	CheckConstraintViolationErr: "check_violation",
	DataTruncatedErr:            "data_truncated",
	InvalidTypeCastErr:          "invalid_type_cast",
}

func (e SQLError) String() string {
	if s, ok := sqlErrorNames[e]; ok {
		return s
	}
	return sqlErrorNames[UnknownErr]
}

// Postgres SQLSTATE codes.
var pgCodes = map[pq.ErrorCode]SQLError{
	"42703": NoColumnErr,
	"42704": NoIndexErr,
	"42P01": NoTableErr,
	"42P07": ExistTableErr,
	"42701": ExistColumnErr,
	"23505": DuplicateKeyErr,
	"23502": NotNullViolationErr,
	"23503": ForeignKeyViolationErr,
	"23514": CheckConstraintViolationErr,
	"22001": DataTruncatedErr,
	"42804": InvalidTypeCastErr,
}

// MySQL server error numbers.
var mysqlCodes = map[uint16]SQLError{
	1091: NoIndexErr,
	1054: NoColumnErr,
	1061: ExistIndexErr,
	1060: ExistColumnErr,
	1062: DuplicateKeyErr,
	1048: NotNullViolationErr,
	1216: ForeignKeyViolationErr,
	1217: ForeignKeyViolationErr,
	1451: ForeignKeyViolationErr,
	1452: ForeignKeyViolationErr,
	3819: CheckConstraintViolationErr,
	1265: DataTruncatedErr,
}

// messageRule matches lower-cased driver messages, used for sqlite and for
// wrapped errors that lost their driver type. A rule matches when every
// fragment of any one alternative is present.
type messageRule struct {
	kind         SQLError
	alternatives [][]string
}

// Order matters: index rules precede table rules.
var messageRules = []messageRule{
	{NoColumnErr, [][]string{{"sqlstate 42703"}, {"undefined column"}, {"no such column"}}},
	{NoIndexErr, [][]string{{"sqlstate 42704"}, {"no such index"}, {"does not exist", "index"}}},
	{NoTableErr, [][]string{{"sqlstate 42p01"}, {"undefined table"}, {"no such table"}}},
	{ExistIndexErr, [][]string{{"already exists", "index"}}},
	{ExistTableErr, [][]string{{"already exists", "table"}, {"already exists", "relation"}}},
	{DuplicateKeyErr, [][]string{{"duplicate key value"}, {"unique constraint failed"}, {"sqlstate 23505"}}},
	{NotNullViolationErr, [][]string{{"not-null constraint"}, {"not null constraint failed"}, {"sqlstate 23502"}}},
	{ForeignKeyViolationErr, [][]string{{"foreign key violation"}, {"foreign key constraint failed"}, {"sqlstate 23503"}}},
	{CheckConstraintViolationErr, [][]string{{"check constraint"}, {"sqlstate 23514"}}},
	{DataTruncatedErr, [][]string{{"string data right truncation"}, {"data truncated"}, {"sqlstate 22001"}}},
	{InvalidTypeCastErr, [][]string{{"datatype mismatch"}, {"sqlstate 42804"}}},
}

func (r messageRule) matches(msg string) bool {
	for _, alt := range r.alternatives {
		all := true
		for _, frag := range alt {
			if !strings.Contains(msg, frag) {
				all = false
				break
			}
		}
		if all {
			return true
		}
	}
	return false
}

// IsSqlError reports whether err is a recognised database error and its kind.
// Any *mysql.MySQLError counts as recognised, even with an unmapped number.
func IsSqlError(err error) (is bool, sqlErr SQLError) {
	if err == nil {
		return false, UnknownErr
	}
	if errors.Is(err, sql.ErrNoRows) {
		return true, NoRowsErr
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return true, pgCodes[pqErr.Code]
	}
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return true, mysqlCodes[mysqlErr.Number]
	}
	msg := strings.ToLower(err.Error())
	for _, rule := range messageRules {
		if rule.matches(msg) {
			return true, rule.kind
		}
	}
	return false, UnknownErr
}

// IsDuplicateKey reports a unique constraint violation.
func IsDuplicateKey(err error) bool {
	ok, kind := IsSqlError(err)
	return ok && kind == DuplicateKeyErr
}

// IsForeignKeyViolation reports a foreign key constraint violation.
func IsForeignKeyViolation(err error) bool {
	ok, kind := IsSqlError(err)
	return ok && kind == ForeignKeyViolationErr
}

// IsConstraintViolation reports an error caused by conflicting data rather
// than by the query or the connection.
func IsConstraintViolation(err error) bool {
	ok, kind := IsSqlError(err)
	if !ok {
		return false
	}
	switch kind {
	case DuplicateKeyErr, ForeignKeyViolationErr, NotNullViolationErr, CheckConstraintViolationErr:
		return true
	}
	return false
}
