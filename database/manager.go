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
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"reflect"
	"sync"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/mysqldialect"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"github.com/uptrace/bun/extra/bundebug"
	"github.com/uptrace/bun/schema"

	"github.com/tomoncle/taskapi/config"
	"github.com/tomoncle/taskapi/guard"
)

const defaultAcquireTimeout = 30 * time.Second

// Manager owns the process's single connection pool and its sealed Handle.
type Manager struct {
	cfg       *config.Config
	db        *bun.DB
	handle    *Handle
	logger    Logger
	registry  ModelRegistry
	queryLog  io.Writer
	closeOnce sync.Once
	closeErr  error
}

type Option func(*Manager)

func WithLogger(l Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithRegistry replaces the default model registry used by
// VerifyRegisteredSchema.
func WithRegistry(r ModelRegistry) Option {
	return func(m *Manager) {
		if r != nil {
			m.registry = r
		}
	}
}

// WithQueryLogWriter sets where the query hooks print. Defaults to stdout.
func WithQueryLogWriter(w io.Writer) Option {
	return func(m *Manager) {
		if w != nil {
			m.queryLog = w
		}
	}
}

func newManager(cfg *config.Config, opts []Option) *Manager {
	m := &Manager{
		cfg:      cfg,
		logger:   NewDefaultLogger(),
		registry: defaultRegistry,
		queryLog: os.Stdout,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// NewManager checks the test-database guard and only then opens the pool.
// sql.Open does not dial; use TestConnection to prove connectivity.
func NewManager(cfg *config.Config, opts ...Option) (*Manager, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database: nil config")
	}
	if err := guard.Check(cfg); err != nil {
		return nil, err
	}

	m := newManager(cfg, opts)
	sqlDB, dialect, err := openPool(cfg)
	if err != nil {
		return nil, err
	}
	configurePool(sqlDB, cfg.Pool)
	m.init(sqlDB, dialect)
	return m, nil
}

// NewManagerWithDB wraps an already opened pool. The guard still runs and
// pool bounds are left untouched.
func NewManagerWithDB(sqlDB *sql.DB, cfg *config.Config, opts ...Option) (*Manager, error) {
	if sqlDB == nil || cfg == nil {
		return nil, fmt.Errorf("database: nil pool or config")
	}
	if err := guard.Check(cfg); err != nil {
		return nil, err
	}
	dialect, err := dialectFor(cfg.Database.Dialect)
	if err != nil {
		return nil, err
	}
	m := newManager(cfg, opts)
	m.init(sqlDB, dialect)
	return m, nil
}

func (m *Manager) init(sqlDB *sql.DB, dialect schema.Dialect) {
	m.db = bun.NewDB(sqlDB, dialect)
	if m.cfg.Database.EnableQueryLog {
		m.db.AddQueryHook(bundebug.NewQueryHook(
			bundebug.WithVerbose(true),
			bundebug.WithWriter(m.queryLog),
			bundebug.FromEnv("BUNDEBUG"),
		))
	} else {
		m.db.AddQueryHook(NewQueryHook(m.queryLog, false))
	}
	if m.cfg.Database.SlowQueryTime > 0 {
		m.db.AddQueryHook(NewSlowQueryHook(m.cfg.Database.SlowQueryTime, m.logger))
	}
	if models := modelInstances(m.registry); len(models) > 0 {
		m.db.RegisterModel(models...)
	}
	m.handle = newHandle(m.db)
}

func openPool(cfg *config.Config) (*sql.DB, schema.Dialect, error) {
	d := cfg.Database
	connectTimeout := cfg.Pool.AcquireTimeout
	var (
		sqlDB   *sql.DB
		dialect schema.Dialect
		err     error
	)
	switch d.Dialect {
	case config.DialectPostgres:
		sqlDB, err = sql.Open("postgres", d.PostgresURL(connectTimeout))
		dialect = pgdialect.New()
	case config.DialectMySQL:
		sqlDB, err = sql.Open("mysql", d.MySQLDSN(connectTimeout))
		dialect = mysqldialect.New()
	case config.DialectSQLite:
		sqlDB, err = sql.Open(sqliteshim.ShimName, d.SQLitePath())
		dialect = sqlitedialect.New()
	default:
		return nil, nil, fmt.Errorf("database: unsupported dialect %q", d.Dialect)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("database: open %s pool: %s", d.Dialect, redact(err.Error(), d.Password))
	}
	return sqlDB, dialect, nil
}

func dialectFor(name string) (schema.Dialect, error) {
	switch name {
	case config.DialectPostgres:
		return pgdialect.New(), nil
	case config.DialectMySQL:
		return mysqldialect.New(), nil
	case config.DialectSQLite:
		return sqlitedialect.New(), nil
	}
	return nil, fmt.Errorf("database: unsupported dialect %q", name)
}

func configurePool(sqlDB *sql.DB, p config.PoolConfig) {
	sqlDB.SetMaxOpenConns(p.MaxOpenConns)
	sqlDB.SetMaxIdleConns(p.MaxIdleConns)
	sqlDB.SetConnMaxIdleTime(p.ConnMaxIdleTime)
	sqlDB.SetConnMaxLifetime(p.ConnMaxLifetime)
}

func (m *Manager) acquireTimeout() time.Duration {
	if m.cfg.Pool.AcquireTimeout > 0 {
		return m.cfg.Pool.AcquireTimeout
	}
	return defaultAcquireTimeout
}

func (m *Manager) target() targetInfo {
	d := m.cfg.Database
	return targetInfo{host: d.Host, port: d.Port, database: d.Name, user: d.User}
}

// TestConnection pings the server once. There is no retry: an
// authentication failure or an unreachable server is returned as a
// *ConnectionError.
func (m *Manager) TestConnection(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, m.acquireTimeout())
	defer cancel()

	if err := m.db.PingContext(ctx); err != nil {
		kind := Unreachable
		if _, code := ClassifySQLError(err); code == AuthErr {
			kind = AuthenticationFailed
		}
		cerr := newConnectionError(kind, m.target(), err, m.cfg.Database.Password)
		m.logger.Error("Unable to connect to the database", "error", cerr.Error(),
			"host", m.cfg.Database.Host, "port", m.cfg.Database.Port,
			"database", m.cfg.Database.Name, "user", m.cfg.Database.User)
		return cerr
	}
	m.logger.Info("Database connection established successfully.",
		"dialect", m.cfg.Database.Dialect, "host", m.cfg.Database.Host, "database", m.cfg.Database.Name)
	return nil
}

// VerifySchema checks the catalog for table. A missing table is a
// *SchemaError; a failed catalog query is returned wrapped.
func (m *Manager) VerifySchema(ctx context.Context, table string) error {
	q := m.db.NewSelect().ColumnExpr("COUNT(*)")
	d := m.cfg.Database
	switch d.Dialect {
	case config.DialectSQLite:
		q = q.TableExpr("sqlite_master").Where("type = 'table'").Where("name = ?", table)
	case config.DialectMySQL:
		q = q.TableExpr("information_schema.tables").Where("table_schema = DATABASE()").Where("table_name = ?", table)
	default:
		schemaName := d.Schema
		if schemaName == "" {
			schemaName = "public"
		}
		q = q.TableExpr("information_schema.tables").Where("table_schema = ?", schemaName).Where("table_name = ?", table)
	}

	var n int
	if err := q.Scan(ctx, &n); err != nil {
		return fmt.Errorf("database: verify table %q: %s", table, redact(err.Error(), d.Password))
	}
	if n == 0 {
		serr := &SchemaError{Table: table, Database: d.Name}
		if d.Dialect == config.DialectPostgres {
			serr.Schema = d.Schema
		}
		m.logger.Error("Required table is missing; run migrations first", "table", table, "database", d.Name)
		return serr
	}
	m.logger.Debug("Table verified", "table", table)
	return nil
}

// VerifyRegisteredSchema runs VerifySchema for every registered model in
// priority order and stops at the first failure.
func (m *Manager) VerifyRegisteredSchema(ctx context.Context) error {
	for _, model := range m.registry.Models() {
		if err := m.VerifySchema(ctx, m.tableName(model.Instance())); err != nil {
			return err
		}
	}
	return nil
}

func (m *Manager) tableName(instance interface{}) string {
	typ := reflect.TypeOf(instance)
	for typ.Kind() == reflect.Ptr {
		typ = typ.Elem()
	}
	return m.db.Table(typ).Name
}

// VerifySealed asks the handle to synchronize the schema and fails unless
// the request is refused.
func (m *Manager) VerifySealed(ctx context.Context) error {
	if err := sealed(m.handle.SyncSchema(ctx)); err != nil {
		m.logger.Error("Schema synchronization is not disabled", "database", m.cfg.Database.Name)
		return err
	}
	return nil
}

func sealed(syncErr error) error {
	if errors.Is(syncErr, ErrForbiddenOperation) {
		return nil
	}
	if syncErr != nil {
		return fmt.Errorf("%w: %v", ErrSchemaSyncEnabled, syncErr)
	}
	return ErrSchemaSyncEnabled
}

// Handle returns the sealed connection.
func (m *Manager) Handle() *Handle {
	return m.handle
}

func (m *Manager) HealthCheck(ctx context.Context) *HealthStatus {
	start := time.Now()
	status := &HealthStatus{CheckedAt: start}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err := m.db.PingContext(ctx)
	status.ResponseTime = time.Since(start)
	stats := m.db.Stats()
	status.OpenConns = stats.OpenConnections
	status.InUse = stats.InUse
	status.Idle = stats.Idle
	status.MaxOpenConns = stats.MaxOpenConnections
	if err != nil {
		status.LastError = redact(err.Error(), m.cfg.Database.Password)
		return status
	}
	status.Healthy = true
	return status
}

func (m *Manager) Stats() *DBStats {
	return newDBStats(m.db.Stats())
}

// Close releases the pool. Subsequent calls return the first result.
func (m *Manager) Close() error {
	m.closeOnce.Do(func() {
		m.closeErr = m.db.Close()
		if m.closeErr != nil {
			m.logger.Error("Failed to close database connection", "error", m.closeErr)
			return
		}
		m.logger.Info("Database connection closed")
	})
	return m.closeErr
}
