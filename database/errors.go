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
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

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
	AuthErr
	NoDatabaseErr
	ExistDatabaseErr
)

var sqlStateErrors = map[string]SQLError{
	"28P01": AuthErr,
	"28000": AuthErr,
	"3D000": NoDatabaseErr,
	"42P04": ExistDatabaseErr,
	"42P01": NoTableErr,
	"42P07": ExistTableErr,
	"42703": NoColumnErr,
	"42704": NoIndexErr,
	"23505": DuplicateKeyErr,
	"23502": NotNullViolationErr,
	"23503": ForeignKeyViolationErr,
	"23514": CheckConstraintViolationErr,
	"22001": DataTruncatedErr,
	"42804": InvalidTypeCastErr,
}

var mysqlErrors = map[uint16]SQLError{
	1045: AuthErr,
	1007: ExistDatabaseErr,
	1008: NoDatabaseErr,
	1049: NoDatabaseErr,
	1146: NoTableErr,
	1050: ExistTableErr,
	1091: NoIndexErr,
	1054: NoColumnErr,
	1061: ExistIndexErr,
	1060: ExistColumnErr,
	1062: DuplicateKeyErr,
	1048: NotNullViolationErr,
	1216: ForeignKeyViolationErr,
	1217: ForeignKeyViolationErr,
	3819: CheckConstraintViolationErr,
	1265: DataTruncatedErr,
}

// ClassifySQLError maps a driver error from lib/pq, pgx or go-sql-driver/mysql
// to an SQLError. Unknown drivers fall back to message matching.
func ClassifySQLError(err error) (is bool, sqlErr SQLError) {
	if err == nil {
		return false, UnknownErr
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		if code, ok := sqlStateErrors[string(pqErr.Code)]; ok {
			return true, code
		}
		return true, UnknownErr
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if code, ok := sqlStateErrors[pgErr.Code]; ok {
			return true, code
		}
		return true, UnknownErr
	}
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		if code, ok := mysqlErrors[mysqlErr.Number]; ok {
			return true, code
		}
		return true, UnknownErr
	}

	s := strings.ToLower(err.Error())
	switch {
	case strings.Contains(s, "password authentication failed") ||
		strings.Contains(s, "access denied for user"):
		return true, AuthErr
	case strings.Contains(s, "database") && strings.Contains(s, "does not exist") ||
		strings.Contains(s, "unknown database"):
		return true, NoDatabaseErr
	case strings.Contains(s, "database") && strings.Contains(s, "already exists"):
		return true, ExistDatabaseErr
	case strings.Contains(s, "no such table") || strings.Contains(s, "undefined table"):
		return true, NoTableErr
	case strings.Contains(s, "unique constraint failed") || strings.Contains(s, "duplicate key value"):
		return true, DuplicateKeyErr
	case strings.Contains(s, "not null constraint failed") || strings.Contains(s, "not-null constraint"):
		return true, NotNullViolationErr
	case strings.Contains(s, "no such column") || strings.Contains(s, "undefined column"):
		return true, NoColumnErr
	}
	return false, UnknownErr
}

// ConnectionErrorKind distinguishes why the connection could not be used.
type ConnectionErrorKind int

const (
	AuthenticationFailed ConnectionErrorKind = iota + 1
	Unreachable
	ForbiddenOperation
)

func (k ConnectionErrorKind) String() string {
	switch k {
	case AuthenticationFailed:
		return "authentication failed"
	case Unreachable:
		return "unreachable"
	case ForbiddenOperation:
		return "forbidden operation"
	default:
		return "unknown"
	}
}

var (
	ErrAuthenticationFailed = errors.New("database authentication failed")
	ErrUnreachable          = errors.New("database unreachable")
	ErrForbiddenOperation   = errors.New("operation forbidden")
	ErrMissingTable         = errors.New("required table does not exist")
	ErrSchemaSyncEnabled    = errors.New("FATAL: schema synchronization is enabled on the application connection")
)

// ConnectionError describes a failed connection or a forbidden operation on
// the sealed handle. It never carries the password: the cause's message is
// redacted when the error is built.
type ConnectionError struct {
	Kind      ConnectionErrorKind
	Operation string
	Host      string
	Port      int
	Database  string
	User      string
	Err       error
	cause     string
}

func newConnectionError(kind ConnectionErrorKind, target targetInfo, err error, secret string) *ConnectionError {
	ce := &ConnectionError{
		Kind:     kind,
		Host:     target.host,
		Port:     target.port,
		Database: target.database,
		User:     target.user,
		Err:      err,
	}
	if err != nil {
		ce.cause = redact(err.Error(), secret)
	}
	return ce
}

func forbiddenSchemaMutation() *ConnectionError {
	return &ConnectionError{Kind: ForbiddenOperation, Operation: "schema mutation"}
}

func (e *ConnectionError) Error() string {
	if e.Kind == ForbiddenOperation {
		return fmt.Sprintf("%s is forbidden: schema changes must go through versioned migrations (taskapi migrate)", e.Operation)
	}
	msg := fmt.Sprintf("database %s: host=%s port=%d database=%q user=%q", e.Kind, e.Host, e.Port, e.Database, e.User)
	if e.cause != "" {
		msg += ": " + e.cause
	}
	return msg
}

func (e *ConnectionError) Unwrap() error { return e.Err }

func (e *ConnectionError) Is(target error) bool {
	switch target {
	case ErrAuthenticationFailed:
		return e.Kind == AuthenticationFailed
	case ErrUnreachable:
		return e.Kind == Unreachable
	case ErrForbiddenOperation:
		return e.Kind == ForbiddenOperation
	}
	return false
}

// SchemaError reports a required table missing from the catalog.
type SchemaError struct {
	Table    string
	Schema   string
	Database string
}

func (e *SchemaError) Error() string {
	if e.Schema != "" {
		return fmt.Sprintf("required table %q does not exist in schema %q of database %q", e.Table, e.Schema, e.Database)
	}
	return fmt.Sprintf("required table %q does not exist in database %q", e.Table, e.Database)
}

func (e *SchemaError) Is(target error) bool { return target == ErrMissingTable }

type targetInfo struct {
	host     string
	port     int
	database string
	user     string
}

func redact(msg, secret string) string {
	if secret == "" {
		return msg
	}
	return strings.ReplaceAll(msg, secret, "******")
}
