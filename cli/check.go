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
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tomoncle/taskapi/database"
	_ "github.com/tomoncle/taskapi/model"
)

func newCheckCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Check database connectivity and that the schema is migrated",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := configFrom(cmd)
			out := cmd.OutOrStdout()

			m, err := database.NewManager(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = m.Close() }()

			if err := m.TestConnection(cmd.Context()); err != nil {
				fmt.Fprintln(out, "connection: FAILED")
				return err
			}
			fmt.Fprintln(out, "connection: ok")
			if err := m.VerifySealed(cmd.Context()); err != nil {
				fmt.Fprintln(out, "schema sync: ENABLED")
				return err
			}
			fmt.Fprintln(out, "schema sync: disabled")
			if err := m.VerifyRegisteredSchema(cmd.Context()); err != nil {
				fmt.Fprintln(out, "schema: FAILED")
				return err
			}
			fmt.Fprintln(out, "schema: ok")

			stats := m.Stats()
			fmt.Fprintf(out, "pool: max_open=%d open=%d in_use=%d idle=%d wait_count=%d\n",
				stats.MaxOpenConns, stats.OpenConns, stats.InUse, stats.Idle, stats.WaitCount)
			return nil
		},
	}
}
