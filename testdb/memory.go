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

package testdb

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/uptrace/bun/driver/sqliteshim"

	"github.com/tomoncle/taskapi/config"
	"github.com/tomoncle/taskapi/database"
	"github.com/tomoncle/taskapi/migrations"
)

// MemoryConfig is a test-mode config for a private in-memory SQLite database.
func MemoryConfig(name string) *config.Config {
	name = strings.NewReplacer("/", "_", " ", "_", "#", "_").Replace(name)
	return &config.Config{
		Mode: config.ModeTest,
		Database: config.DatabaseConfig{
			Dialect: config.DialectSQLite,
			User:    "test",
			Name:    fmt.Sprintf("file:%s_test?mode=memory&cache=shared", name),
		},
		Pool: config.PoolConfig{MaxOpenConns: 1},
	}
}

// NewMemoryManager opens a migrated in-memory SQLite database and wraps it in
// a Manager. Everything is released when tb finishes.
func NewMemoryManager(tb testing.TB) *database.Manager {
	tb.Helper()
	cfg := MemoryConfig(tb.Name())

	sqlDB, err := sql.Open(sqliteshim.ShimName, cfg.Database.SQLitePath())
	if err != nil {
		tb.Fatalf("open sqlite: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	tb.Cleanup(func() { _ = sqlDB.Close() })

	if err := migrations.Up(context.Background(), sqlDB, cfg.Database.Dialect); err != nil {
		tb.Fatalf("migrate sqlite: %v", err)
	}
	m, err := database.NewManagerWithDB(sqlDB, cfg, database.WithQueryLogWriter(io.Discard))
	if err != nil {
		tb.Fatalf("new manager: %v", err)
	}
	return m
}
