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

// Package testdb manages throwaway databases for automated tests. The
// lifecycle manager drops, creates and migrates the configured test database
// through its own administrative connection; it refuses to run outside test
// mode or against a name the guard rejects.
package testdb

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/tomoncle/taskapi/config"
	"github.com/tomoncle/taskapi/database"
	"github.com/tomoncle/taskapi/guard"
	"github.com/tomoncle/taskapi/utils"
)

// AdminDatabase is the system database the admin connection attaches to.
const AdminDatabase = "postgres"

var ErrNotTestMode = errors.New("test database lifecycle requires run mode \"test\"")

// AdminConn is the part of *pgx.Conn the lifecycle uses.
type AdminConn interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Close(ctx context.Context) error
}

type ConnectFunc func(ctx context.Context, connString string) (AdminConn, error)

func pgxConnect(ctx context.Context, connString string) (AdminConn, error) {
	conn, err := pgx.Connect(ctx, connString)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// Lifecycle drops, creates and migrates the test database named by its config.
type Lifecycle struct {
	cfg      *config.Config
	connect  ConnectFunc
	migrator Migrator
	logger   *utils.Logger
}

type Option func(*Lifecycle)

// WithConnect replaces how the admin connection is opened.
func WithConnect(fn ConnectFunc) Option {
	return func(l *Lifecycle) { l.connect = fn }
}

func WithMigrator(m Migrator) Option {
	return func(l *Lifecycle) { l.migrator = m }
}

// New refuses to build a lifecycle unless cfg is in test mode, targets
// postgres and names a database the guard accepts.
func New(cfg *config.Config, opts ...Option) (*Lifecycle, error) {
	if cfg == nil {
		return nil, errors.New("testdb: nil config")
	}
	if !cfg.Mode.IsTest() {
		return nil, fmt.Errorf("testdb: %w (got %q)", ErrNotTestMode, cfg.Mode)
	}
	if err := guard.Check(cfg); err != nil {
		return nil, err
	}
	if cfg.Database.Dialect != config.DialectPostgres {
		return nil, fmt.Errorf("testdb: unsupported dialect %q, only postgres databases can be created", cfg.Database.Dialect)
	}
	l := &Lifecycle{
		cfg:      cfg,
		connect:  pgxConnect,
		migrator: NewCommandMigrator(DefaultMigrateCommand(), nil),
		logger:   utils.NewLogger("TESTDB"),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Name is the configured test database.
func (l *Lifecycle) Name() string { return l.cfg.Database.Name }

func (l *Lifecycle) withAdmin(ctx context.Context, fn func(conn AdminConn) error) error {
	admin := l.cfg.WithName(AdminDatabase).Database
	conn, err := l.connect(ctx, admin.PostgresURL(l.cfg.Pool.AcquireTimeout))
	if err != nil {
		return fmt.Errorf("testdb: connect to %s on %s: %s", AdminDatabase, admin.Address(), l.redact(err))
	}
	defer func() { _ = conn.Close(context.Background()) }()
	return fn(conn)
}

// DropTestDatabase terminates sessions on name and drops it. A database that
// does not exist is not an error.
func (l *Lifecycle) DropTestDatabase(ctx context.Context, name string) error {
	if err := guard.ValidateTestDatabase(name, l.cfg.Mode); err != nil {
		return err
	}
	return l.withAdmin(ctx, func(conn AdminConn) error {
		if _, err := conn.Exec(ctx,
			`SELECT pg_terminate_backend(pid) FROM pg_stat_activity WHERE datname = $1 AND pid <> pg_backend_pid()`,
			name); err != nil {
			return fmt.Errorf("testdb: terminate sessions on %q: %s", name, l.redact(err))
		}
		_, err := conn.Exec(ctx, "DROP DATABASE IF EXISTS "+pgx.Identifier{name}.Sanitize())
		if err != nil {
			if _, code := database.ClassifySQLError(err); code != database.NoDatabaseErr {
				return fmt.Errorf("testdb: drop %q: %s", name, l.redact(err))
			}
		}
		l.logger.WithField("database", name).Info("Test database dropped")
		return nil
	})
}

// CreateTestDatabase creates name. A database that already exists is not an
// error.
func (l *Lifecycle) CreateTestDatabase(ctx context.Context, name string) error {
	if err := guard.ValidateTestDatabase(name, l.cfg.Mode); err != nil {
		return err
	}
	return l.withAdmin(ctx, func(conn AdminConn) error {
		_, err := conn.Exec(ctx, "CREATE DATABASE "+pgx.Identifier{name}.Sanitize())
		if err != nil {
			if _, code := database.ClassifySQLError(err); code == database.ExistDatabaseErr {
				l.logger.WithField("database", name).Info("Test database already exists")
				return nil
			}
			return fmt.Errorf("testdb: create %q: %s", name, l.redact(err))
		}
		l.logger.WithField("database", name).Info("Test database created")
		return nil
	})
}

// RunMigrations applies the versioned migrations to the test database.
func (l *Lifecycle) RunMigrations(ctx context.Context) error {
	if err := guard.Check(l.cfg); err != nil {
		return err
	}
	l.logger.WithField("database", l.Name()).Info("Running migrations on test database")
	if err := l.migrator.Migrate(ctx, l.cfg); err != nil {
		return fmt.Errorf("testdb: migrate %q: %w", l.Name(), err)
	}
	l.logger.Info("Migrations completed successfully")
	return nil
}

// SetupTestDatabase drops, creates and migrates the test database, in that
// order. The first failing step aborts the rest.
func (l *Lifecycle) SetupTestDatabase(ctx context.Context) error {
	name := l.Name()
	l.logger.WithField("database", name).Info("Setting up test database")
	if err := l.DropTestDatabase(ctx, name); err != nil {
		return err
	}
	if err := l.CreateTestDatabase(ctx, name); err != nil {
		return err
	}
	return l.RunMigrations(ctx)
}

// TeardownTestDatabase closes conn, if any, and drops the test database.
func (l *Lifecycle) TeardownTestDatabase(ctx context.Context, conn io.Closer) error {
	if conn != nil {
		if err := conn.Close(); err != nil {
			return fmt.Errorf("testdb: close connection: %w", err)
		}
	}
	return l.DropTestDatabase(ctx, l.Name())
}

func (l *Lifecycle) redact(err error) string {
	msg := err.Error()
	if p := l.cfg.Database.Password; p != "" {
		msg = strings.ReplaceAll(msg, p, "******")
	}
	return msg
}
