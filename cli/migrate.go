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
	"context"
	"database/sql"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tomoncle/taskapi/config"
	"github.com/tomoncle/taskapi/migrations"
)

func newMigrateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or inspect versioned schema migrations",
		Long:  `The only supported way to change the database schema.`,
	}
	cmd.AddCommand(
		migrateSubcommand("up", "Apply all pending migrations", migrations.Up),
		migrateSubcommand("down", "Roll back the latest migration", migrations.Down),
		migrateSubcommand("status", "Show applied and pending migrations", migrations.Status),
		&cobra.Command{
			Use:   "version",
			Short: "Print the current schema version",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withMigrationDB(cmd, func(ctx context.Context, db *sql.DB, cfg *config.Config) error {
					v, err := migrations.Version(ctx, db, cfg.Database.Dialect)
					if err != nil {
						return err
					}
					_, err = fmt.Fprintln(cmd.OutOrStdout(), v)
					return err
				})
			},
		},
	)
	return cmd
}

func migrateSubcommand(use, short string, run func(context.Context, *sql.DB, string) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrationDB(cmd, func(ctx context.Context, db *sql.DB, cfg *config.Config) error {
				return run(ctx, db, cfg.Database.Dialect)
			})
		},
	}
}

func withMigrationDB(cmd *cobra.Command, fn func(context.Context, *sql.DB, *config.Config) error) error {
	cfg := configFrom(cmd)
	db, err := migrations.Open(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()
	return fn(cmd.Context(), db, cfg)
}
