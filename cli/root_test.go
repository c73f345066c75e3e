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

package cli

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomoncle/taskapi/config"
	"github.com/tomoncle/taskapi/database"
	"github.com/tomoncle/taskapi/guard"
	"github.com/tomoncle/taskapi/utils"
)

func setTestEnv(t *testing.T, name string) {
	t.Helper()
	for _, k := range []string{"APP_ENV", "NODE_ENV", "DB_HOST", "DB_PORT", "DB_PASSWORD", "DB_ENABLE_QUERY_LOG", "HTTP_ADDR", "PORT", "FILE_LOG_ENABLED", "CONSOLE_LOG_ENABLED"} {
		t.Setenv(k, "")
	}
	t.Setenv(config.ConfigFileEnv, "")
	t.Setenv("APP_ENV", "test")
	t.Setenv("DB_DIALECT", "sqlite")
	t.Setenv("DB_USER", "tester")
	t.Setenv("DB_NAME", name)
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestConfigCommand_MasksPassword(t *testing.T) {
	setTestEnv(t, filepath.Join(t.TempDir(), "app_test.db"))
	t.Setenv("DB_PASSWORD", "hunter2")

	out, err := run(t, "config")
	require.NoError(t, err)
	assert.Contains(t, out, "******")
	assert.NotContains(t, out, "hunter2")
	assert.Contains(t, out, "dialect: sqlite")
}

func TestRoot_MissingDatabaseName(t *testing.T) {
	setTestEnv(t, "")

	_, err := run(t, "config")
	var cfgErr *config.ConfigError
	require.True(t, errors.As(err, &cfgErr), "got %v", err)
	assert.Equal(t, "DB_NAME", cfgErr.Key)
}

func TestRoot_GuardRejectsNonTestDatabase(t *testing.T) {
	setTestEnv(t, "production_db")

	_, err := run(t, "check")
	require.ErrorIs(t, err, guard.ErrNonTestDatabase)
	assert.Equal(t, "guard", errorFields(err)["kind"])
}

func TestCheck_RequiresMigratedSchema(t *testing.T) {
	setTestEnv(t, filepath.Join(t.TempDir(), "check_test.db"))

	out, err := run(t, "check")
	require.ErrorIs(t, err, database.ErrMissingTable)
	assert.Contains(t, out, "connection: ok")
	assert.Contains(t, out, "schema: FAILED")

	_, err = run(t, "migrate", "up")
	require.NoError(t, err)

	out, err = run(t, "check")
	require.NoError(t, err)
	assert.Contains(t, out, "schema sync: disabled")
	assert.Contains(t, out, "schema: ok")
	assert.Contains(t, out, "pool: max_open=5 ")
}

func TestMigrate_VersionAndDown(t *testing.T) {
	setTestEnv(t, filepath.Join(t.TempDir(), "version_test.db"))

	_, err := run(t, "migrate", "up")
	require.NoError(t, err)
	out, err := run(t, "migrate", "version")
	require.NoError(t, err)
	assert.Equal(t, "1", strings.TrimSpace(out))

	_, err = run(t, "migrate", "down")
	require.NoError(t, err)
	out, err = run(t, "migrate", "version")
	require.NoError(t, err)
	assert.Equal(t, "0", strings.TrimSpace(out))
}

func TestErrorFields_SchemaError(t *testing.T) {
	err := &database.SchemaError{Table: "tasks", Database: "x_test"}
	fields := errorFields(err)
	assert.Equal(t, "schema", fields["kind"])
	assert.Equal(t, "tasks", fields["table"])
}

func TestLogOptionsFor_FileLoggingDefaults(t *testing.T) {
	t.Setenv("FILE_LOG_ENABLED", "")
	t.Setenv("CONSOLE_LOG_ENABLED", "")
	base := utils.LogOptions{Level: "info", ConsoleEnabled: true}

	dev := logOptionsFor(config.ModeDevelopment, "", base)
	assert.True(t, dev.FileEnabled)
	assert.True(t, dev.ConsoleEnabled)

	prod := logOptionsFor(config.ModeProduction, "warn", base)
	assert.True(t, prod.FileEnabled)
	assert.False(t, prod.ConsoleEnabled)
	assert.Equal(t, "warn", prod.Level)

	test := logOptionsFor(config.ModeTest, "", base)
	assert.False(t, test.FileEnabled)
}

func TestLogOptionsFor_ExplicitFileLogSetting(t *testing.T) {
	t.Setenv("FILE_LOG_ENABLED", "false")
	opts := logOptionsFor(config.ModeProduction, "", utils.LogOptions{})
	assert.False(t, opts.FileEnabled)

	t.Setenv("FILE_LOG_ENABLED", "true")
	opts = logOptionsFor(config.ModeTest, "", utils.LogOptions{FileEnabled: true})
	assert.True(t, opts.FileEnabled)
}
