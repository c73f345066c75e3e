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

package config

import (
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
)

// RunMode is the process run mode read from APP_ENV (or NODE_ENV).
type RunMode string

const (
	ModeTest        RunMode = "test"
	ModeProduction  RunMode = "production"
	ModeDevelopment RunMode = "development"
)

// ParseRunMode normalizes a raw run mode. Anything that is not "test" or
// "production" is development.
func ParseRunMode(s string) RunMode {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "test":
		return ModeTest
	case "production":
		return ModeProduction
	default:
		return ModeDevelopment
	}
}

func (m RunMode) IsTest() bool       { return m == ModeTest }
func (m RunMode) IsProduction() bool { return m == ModeProduction }

const (
	DialectPostgres = "postgres"
	DialectMySQL    = "mysql"
	DialectSQLite   = "sqlite"
)

// DatabaseConfig identifies the one database this process talks to.
type DatabaseConfig struct {
	Dialect        string        `koanf:"dialect" yaml:"dialect"`
	Host           string        `koanf:"host" yaml:"host"`
	Port           int           `koanf:"port" yaml:"port"`
	User           string        `koanf:"user" yaml:"user"`
	Password       string        `koanf:"password" yaml:"password,omitempty"`
	Name           string        `koanf:"name" yaml:"name"`
	SSLMode        string        `koanf:"sslmode" yaml:"sslmode"`
	Schema         string        `koanf:"schema" yaml:"schema"`
	EnableQueryLog bool          `koanf:"enable_query_log" yaml:"enable_query_log"`
	SlowQueryTime  time.Duration `koanf:"slow_query_time" yaml:"slow_query_time"`
}

// PoolConfig bounds the driver-managed connection pool.
type PoolConfig struct {
	MaxOpenConns    int           `koanf:"max_open_conns" yaml:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns" yaml:"max_idle_conns"`
	ConnMaxIdleTime time.Duration `koanf:"conn_max_idle_time" yaml:"conn_max_idle_time"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime" yaml:"conn_max_lifetime"`
	AcquireTimeout  time.Duration `koanf:"acquire_timeout" yaml:"acquire_timeout"`
}

type HTTPConfig struct {
	Addr string `koanf:"addr" yaml:"addr"`
}

// Config is the fully resolved process configuration.
type Config struct {
	Mode     RunMode        `koanf:"-" yaml:"mode"`
	Database DatabaseConfig `koanf:"db" yaml:"db"`
	Pool     PoolConfig     `koanf:"pool" yaml:"pool"`
	HTTP     HTTPConfig     `koanf:"http" yaml:"http"`
}

// WithName returns a copy of the config pointing at another database on the
// same server.
func (c *Config) WithName(name string) *Config {
	cp := *c
	cp.Database.Name = name
	return &cp
}

// Redacted returns a copy safe to print or log.
func (c *Config) Redacted() *Config {
	cp := *c
	if cp.Database.Password != "" {
		cp.Database.Password = "******"
	}
	return &cp
}

// Address is host:port of the database server.
func (d DatabaseConfig) Address() string {
	return net.JoinHostPort(d.Host, strconv.Itoa(d.Port))
}

// PostgresURL builds a postgres:// connection URL.
func (d DatabaseConfig) PostgresURL(connectTimeout time.Duration) string {
	u := url.URL{
		Scheme: "postgres",
		Host:   d.Address(),
		Path:   "/" + d.Name,
	}
	if d.Password != "" {
		u.User = url.UserPassword(d.User, d.Password)
	} else {
		u.User = url.User(d.User)
	}
	q := url.Values{}
	sslMode := d.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	q.Set("sslmode", sslMode)
	if secs := int(connectTimeout.Seconds()); secs > 0 {
		q.Set("connect_timeout", strconv.Itoa(secs))
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// MySQLDSN builds a go-sql-driver/mysql DSN.
func (d DatabaseConfig) MySQLDSN(connectTimeout time.Duration) string {
	cfg := mysql.NewConfig()
	cfg.User = d.User
	cfg.Passwd = d.Password
	cfg.Net = "tcp"
	cfg.Addr = d.Address()
	cfg.DBName = d.Name
	cfg.ParseTime = true
	cfg.Timeout = connectTimeout
	cfg.Params = map[string]string{"charset": "utf8mb4"}
	return cfg.FormatDSN()
}

// SQLitePath maps the database name to a file, keeping in-memory names as-is.
func (d DatabaseConfig) SQLitePath() string {
	if strings.HasPrefix(d.Name, ":memory:") || strings.HasPrefix(d.Name, "file:") || strings.HasSuffix(d.Name, ".db") {
		return d.Name
	}
	return d.Name + ".db"
}
