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
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/dotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	DefaultHost = "localhost"
	DefaultPort = 5432

	// ConfigFileEnv names an optional YAML file loaded beneath the environment.
	ConfigFileEnv = "TASKAPI_CONFIG"

	// DotEnvFileEnv overrides the dotenv file path, ".env" by default.
	DotEnvFileEnv = "DOTENV_CONFIG_PATH"
)

var poolKeys = map[string]bool{
	"max_open_conns":     true,
	"max_idle_conns":     true,
	"conn_max_idle_time": true,
	"conn_max_lifetime":  true,
	"acquire_timeout":    true,
}

func defaults() map[string]interface{} {
	return map[string]interface{}{
		"db.dialect":              DialectPostgres,
		"db.host":                 DefaultHost,
		"db.port":                 DefaultPort,
		"db.sslmode":              "disable",
		"db.schema":               "public",
		"db.enable_query_log":     false,
		"db.slow_query_time":      "2s",
		"pool.max_open_conns":     5,
		"pool.max_idle_conns":     0,
		"pool.conn_max_idle_time": "10s",
		"pool.conn_max_lifetime":  "1h",
		"pool.acquire_timeout":    "30s",
		"http.addr":               ":3000",
	}
}

// RunModeFromEnv reads APP_ENV, falling back to NODE_ENV.
func RunModeFromEnv() RunMode {
	return runMode(nil)
}

// runMode prefers the process environment over dotenv values, variable by
// variable, then applies the APP_ENV to NODE_ENV fallback.
func runMode(dotenvVars map[string]string) RunMode {
	if v := lookup("APP_ENV", dotenvVars); v != "" {
		return ParseRunMode(v)
	}
	return ParseRunMode(lookup("NODE_ENV", dotenvVars))
}

func lookup(name string, dotenvVars map[string]string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return dotenvVars[name]
}

// dbEnvKey maps DB_NAME to db.name and DB_MAX_OPEN_CONNS to
// pool.max_open_conns. Blank values are skipped.
func dbEnvKey(key, value string) (string, interface{}) {
	if strings.TrimSpace(value) == "" {
		return "", nil
	}
	key = strings.ToLower(strings.TrimPrefix(key, "DB_"))
	if poolKeys[key] {
		return "pool." + key, value
	}
	return "db." + key, value
}

func httpEnvKey(key, value string) (string, interface{}) {
	if strings.TrimSpace(value) == "" {
		return "", nil
	}
	return "http." + strings.ToLower(strings.TrimPrefix(key, "HTTP_")), value
}

// loadDotEnv reads KEY=VALUE pairs from path. A missing file yields no
// values.
func loadDotEnv(path string) (map[string]string, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, nil
	}
	d := koanf.New(".")
	if err := d.Load(file.Provider(path), dotenv.Parser()); err != nil {
		return nil, err
	}
	vars := make(map[string]string, len(d.Keys()))
	for _, key := range d.Keys() {
		vars[key] = d.String(key)
	}
	return vars, nil
}

// Resolve loads the configuration from defaults, the optional file named by
// TASKAPI_CONFIG, the dotenv file and the environment, in increasing
// precedence.
func Resolve() (*Config, error) {
	return ResolveFile(os.Getenv(ConfigFileEnv))
}

// ResolveFile is Resolve with an explicit config file path. An empty path
// skips the file layer.
func ResolveFile(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, &ConfigError{Key: ConfigFileEnv, Value: path, Reason: "cannot be read", Err: err}
		}
	}

	dotenvPath := os.Getenv(DotEnvFileEnv)
	if dotenvPath == "" {
		dotenvPath = ".env"
	}
	dotenvVars, err := loadDotEnv(dotenvPath)
	if err != nil {
		return nil, &ConfigError{Key: DotEnvFileEnv, Value: dotenvPath, Reason: "cannot be parsed", Err: err}
	}
	if len(dotenvVars) > 0 {
		mapped := map[string]interface{}{}
		for key, value := range dotenvVars {
			var (
				mappedKey   string
				mappedValue interface{}
			)
			switch {
			case strings.HasPrefix(key, "DB_"):
				mappedKey, mappedValue = dbEnvKey(key, value)
			case strings.HasPrefix(key, "HTTP_"):
				mappedKey, mappedValue = httpEnvKey(key, value)
			}
			if mappedKey != "" {
				mapped[mappedKey] = mappedValue
			}
		}
		if err := k.Load(confmap.Provider(mapped, "."), nil); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", dotenvPath, err)
		}
	}

	if err := k.Load(env.ProviderWithValue("DB_", ".", dbEnvKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}
	if err := k.Load(env.ProviderWithValue("HTTP_", ".", httpEnvKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}
	if port := lookup("PORT", dotenvVars); port != "" && lookup("HTTP_ADDR", dotenvVars) == "" {
		if err := k.Set("http.addr", ":"+port); err != nil {
			return nil, err
		}
	}

	if raw := k.String("db.port"); raw != "" {
		if p, err := strconv.Atoi(raw); err != nil || p <= 0 || p > 65535 {
			return nil, &ConfigError{Key: "DB_PORT", Value: raw, Reason: "must be a TCP port number"}
		}
	}

	cfg := &Config{Mode: runMode(dotenvVars)}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, &ConfigError{Key: "DB_*", Reason: "cannot be decoded", Err: err}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks required settings. DB_NAME and DB_USER are never
// defaulted, whatever the run mode.
func (c *Config) Validate() error {
	d := &c.Database
	d.Name = strings.TrimSpace(d.Name)
	d.User = strings.TrimSpace(d.User)

	switch strings.ToLower(d.Dialect) {
	case "postgres", "postgresql", "pg":
		d.Dialect = DialectPostgres
	case "mysql":
		d.Dialect = DialectMySQL
	case "sqlite", "sqlite3":
		d.Dialect = DialectSQLite
	default:
		return &ConfigError{Key: "DB_DIALECT", Value: d.Dialect, Reason: "unsupported dialect (postgres, mysql, sqlite)"}
	}

	if d.Name == "" {
		return missing("DB_NAME")
	}
	if d.User == "" {
		return missing("DB_USER")
	}
	if d.Host == "" {
		d.Host = DefaultHost
	}
	if c.Pool.MaxOpenConns < 0 {
		return &ConfigError{Key: "DB_MAX_OPEN_CONNS", Value: strconv.Itoa(c.Pool.MaxOpenConns), Reason: "must not be negative"}
	}
	if c.Pool.MaxIdleConns < 0 {
		return &ConfigError{Key: "DB_MAX_IDLE_CONNS", Value: strconv.Itoa(c.Pool.MaxIdleConns), Reason: "must not be negative"}
	}
	if c.Pool.AcquireTimeout <= 0 {
		c.Pool.AcquireTimeout = 30 * time.Second
	}
	return nil
}
