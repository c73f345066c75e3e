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
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/tomoncle/taskapi/config"
	"github.com/tomoncle/taskapi/utils"
)

const MigrateCommandEnv = "MIGRATE_COMMAND"

// Migrator applies the schema to the database cfg points at.
type Migrator interface {
	Migrate(ctx context.Context, cfg *config.Config) error
}

type MigratorFunc func(ctx context.Context, cfg *config.Config) error

func (f MigratorFunc) Migrate(ctx context.Context, cfg *config.Config) error { return f(ctx, cfg) }

// DefaultMigrateCommand reads MIGRATE_COMMAND, falling back to the CLI's
// migrate subcommand addressed by import path.
func DefaultMigrateCommand() []string {
	return strings.Fields(utils.EnvDefaultString(MigrateCommandEnv, "go run github.com/tomoncle/taskapi/cmd/taskapi migrate up"))
}

// CommandMigrator runs an external migration command from Dir. It succeeds
// iff the command exits with status zero. Output goes to Output, or to the
// MIGRATE logger when Output is nil.
type CommandMigrator struct {
	Command []string
	Dir     string
	Output  io.Writer
}

// NewCommandMigrator runs command from the enclosing module root, so the same
// command works from any package directory.
func NewCommandMigrator(command []string, output io.Writer) *CommandMigrator {
	return &CommandMigrator{Command: command, Dir: utils.WorkingModuleRoot(), Output: output}
}

// MigrationEnv is the environment override handed to the subprocess.
// Unset host and port fall back to the subprocess's defaults.
func MigrationEnv(cfg *config.Config) map[string]string {
	env := map[string]string{
		"APP_ENV":     string(config.ModeTest),
		"NODE_ENV":    string(config.ModeTest),
		"DB_DIALECT":  cfg.Database.Dialect,
		"DB_NAME":     cfg.Database.Name,
		"DB_USER":     cfg.Database.User,
		"DB_PASSWORD": cfg.Database.Password,
		"DB_HOST":     cfg.Database.Host,
	}
	if cfg.Database.Port > 0 {
		env["DB_PORT"] = strconv.Itoa(cfg.Database.Port)
	}
	return env
}

func (m *CommandMigrator) Migrate(ctx context.Context, cfg *config.Config) error {
	if len(m.Command) == 0 {
		return errors.New("empty migration command")
	}
	cmd := exec.CommandContext(ctx, m.Command[0], m.Command[1:]...)
	cmd.Dir = m.Dir

	env := os.Environ()
	for k, v := range MigrationEnv(cfg) {
		env = append(env, k+"="+v)
	}
	cmd.Env = env

	var tail bytes.Buffer
	var out io.Writer
	if m.Output != nil {
		out = io.MultiWriter(m.Output, &tail)
	} else {
		w := utils.NewLogger("MIGRATE").Writer()
		defer func() { _ = w.Close() }()
		out = io.MultiWriter(w, &tail)
	}
	cmd.Stdout = out
	cmd.Stderr = out

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return fmt.Errorf("%q exited with status %d: %s", strings.Join(m.Command, " "), exitErr.ExitCode(), lastLine(tail.String()))
		}
		return fmt.Errorf("run %q: %w", strings.Join(m.Command, " "), err)
	}
	return nil
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}
