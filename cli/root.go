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

// Package cli provides the taskapi command-line interface.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/tomoncle/taskapi/config"
	"github.com/tomoncle/taskapi/database"
	"github.com/tomoncle/taskapi/guard"
	"github.com/tomoncle/taskapi/utils"
)

// Version is set at build time.
var Version = "0.1.0"

type configKey struct{}

// NewRootCmd builds the command tree. Every subcommand except help and
// completion resolves the config and passes the guard before it runs.
func NewRootCmd() *cobra.Command {
	var (
		cfgFile  string
		logLevel string
	)
	rootCmd := &cobra.Command{
		Use:   "taskapi",
		Short: "Task REST API with a guarded database connection",
		Long: `taskapi serves a small REST API for task records.

The database is configured from DB_* environment variables (and optionally a
YAML file). In test mode (APP_ENV=test) it refuses any database whose name
does not contain "test". Schema changes only happen through "taskapi migrate".`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}
			cfg, err := config.ResolveFile(cfgFile)
			if err != nil {
				return err
			}
			if err := guard.Check(cfg); err != nil {
				return err
			}
			configureLogging(cfg, logLevel)
			cmd.SetContext(context.WithValue(cmd.Context(), configKey{}, cfg))
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", os.Getenv(config.ConfigFileEnv), "YAML config file (env "+config.ConfigFileEnv+")")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override LOG_LEVEL (trace|debug|info|warn|error)")

	rootCmd.AddCommand(newServeCommand())
	rootCmd.AddCommand(newMigrateCommand())
	rootCmd.AddCommand(newCheckCommand())
	rootCmd.AddCommand(newConfigCommand())
	return rootCmd
}

// configureLogging keeps the console quiet in production unless
// CONSOLE_LOG_ENABLED is set explicitly. error.log and combined.log are
// written outside test mode unless FILE_LOG_ENABLED says otherwise.
func configureLogging(cfg *config.Config, level string) {
	utils.ConfigureLogging(logOptionsFor(cfg.Mode, level, utils.CurrentLogOptions()))
}

func logOptionsFor(mode config.RunMode, level string, opts utils.LogOptions) utils.LogOptions {
	if level != "" {
		opts.Level = level
	}
	if mode.IsProduction() && os.Getenv("CONSOLE_LOG_ENABLED") == "" {
		opts.ConsoleEnabled = false
	}
	if os.Getenv("FILE_LOG_ENABLED") == "" {
		opts.FileEnabled = !mode.IsTest()
	}
	return opts
}

func configFrom(cmd *cobra.Command) *config.Config {
	cfg, _ := cmd.Context().Value(configKey{}).(*config.Config)
	return cfg
}

// Execute runs the CLI until it finishes or receives SIGINT/SIGTERM and
// returns the process exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		reportError(err)
		return 1
	}
	return 0
}

// reportError logs err with the fields that identify its kind. None of the
// error types carry the password.
func reportError(err error) {
	entry := utils.NewLogger("APP").WithFields(errorFields(err))
	entry.Error(err.Error())
	// Console logging may be off in production; stderr always gets the reason.
	if !utils.CurrentLogOptions().ConsoleEnabled {
		fmt.Fprintln(os.Stderr, "taskapi:", err)
	}
}

func errorFields(err error) logrus.Fields {
	var (
		cfgErr    *config.ConfigError
		guardErr  *guard.GuardError
		connErr   *database.ConnectionError
		schemaErr *database.SchemaError
	)
	switch {
	case errors.As(err, &cfgErr):
		return logrus.Fields{"kind": "config", "key": cfgErr.Key}
	case errors.As(err, &guardErr):
		return logrus.Fields{"kind": "guard", "database": guardErr.Database, "mode": guardErr.Mode}
	case errors.As(err, &connErr):
		return logrus.Fields{"kind": "connection", "reason": connErr.Kind.String(),
			"host": connErr.Host, "port": connErr.Port, "database": connErr.Database, "user": connErr.User}
	case errors.As(err, &schemaErr):
		return logrus.Fields{"kind": "schema", "table": schemaErr.Table, "database": schemaErr.Database}
	}
	return logrus.Fields{}
}
