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

// Package migrations holds the versioned schema. It is the only code path
// that runs DDL against the application database.
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"sync"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/uptrace/bun/driver/sqliteshim"

	"github.com/tomoncle/taskapi/config"
	"github.com/tomoncle/taskapi/guard"
	"github.com/tomoncle/taskapi/utils"
)

//go:embed sql/*.sql
var files embed.FS

const dir = "sql"

// goose keeps its base FS, dialect and logger in package globals.
var gooseMu sync.Mutex

func gooseDialect(dialect string) (string, error) {
	switch dialect {
	case config.DialectPostgres:
		return "postgres", nil
	case config.DialectMySQL:
		return "mysql", nil
	case config.DialectSQLite:
		return "sqlite3", nil
	}
	return "", fmt.Errorf("migrations: unsupported dialect %q", dialect)
}

func with(dialect string, fn func() error) error {
	name, err := gooseDialect(dialect)
	if err != nil {
		return err
	}
	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(files)
	goose.SetLogger(utils.NewLogger("MIGRATE"))
	if err := goose.SetDialect(name); err != nil {
		return fmt.Errorf("migrations: set dialect: %w", err)
	}
	return fn()
}

// Open opens a dedicated pool for running migrations: pgx for postgres,
// go-sql-driver for mysql, the bun shim for sqlite. The guard runs first.
func Open(cfg *config.Config) (*sql.DB, error) {
	if err := guard.Check(cfg); err != nil {
		return nil, err
	}
	d := cfg.Database
	var (
		db  *sql.DB
		err error
	)
	switch d.Dialect {
	case config.DialectPostgres:
		db, err = sql.Open("pgx", d.PostgresURL(cfg.Pool.AcquireTimeout))
	case config.DialectMySQL:
		db, err = sql.Open("mysql", d.MySQLDSN(cfg.Pool.AcquireTimeout))
	case config.DialectSQLite:
		db, err = sql.Open(sqliteshim.ShimName, d.SQLitePath())
	default:
		return nil, fmt.Errorf("migrations: unsupported dialect %q", d.Dialect)
	}
	if err != nil {
		return nil, fmt.Errorf("migrations: open %s: %w", d.Dialect, err)
	}
	db.SetMaxOpenConns(1)
	return db, nil
}

// Up applies every pending migration.
func Up(ctx context.Context, db *sql.DB, dialect string) error {
	return with(dialect, func() error {
		if err := goose.UpContext(ctx, db, dir); err != nil {
			return fmt.Errorf("migrations: up: %w", err)
		}
		return nil
	})
}

// Down rolls back the most recent migration.
func Down(ctx context.Context, db *sql.DB, dialect string) error {
	return with(dialect, func() error {
		if err := goose.DownContext(ctx, db, dir); err != nil {
			return fmt.Errorf("migrations: down: %w", err)
		}
		return nil
	})
}

// Status logs the applied state of every migration.
func Status(ctx context.Context, db *sql.DB, dialect string) error {
	return with(dialect, func() error {
		if err := goose.StatusContext(ctx, db, dir); err != nil {
			return fmt.Errorf("migrations: status: %w", err)
		}
		return nil
	})
}

// Version returns the current schema version, 0 when nothing is applied.
func Version(ctx context.Context, db *sql.DB, dialect string) (int64, error) {
	var v int64
	err := with(dialect, func() error {
		var err error
		v, err = goose.GetDBVersionContext(ctx, db)
		if err != nil {
			return fmt.Errorf("migrations: version: %w", err)
		}
		return nil
	})
	return v, err
}
