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
	"github.com/spf13/cobra"

	"github.com/tomoncle/taskapi/api"
	"github.com/tomoncle/taskapi/database"
	"github.com/tomoncle/taskapi/repository"
	"github.com/tomoncle/taskapi/service"
	"github.com/tomoncle/taskapi/utils"
)

func newServeCommand() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the task API",
		Long: `Connects to the database, verifies the tasks table exists and serves the
REST API until SIGINT or SIGTERM. Any configuration, guard, connection or
schema failure stops the process before it accepts traffic.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := configFrom(cmd)
			if addr != "" {
				cfg.HTTP.Addr = addr
			}
			ctx := cmd.Context()

			m, err := database.Open(ctx, cfg)
			if err != nil {
				return err
			}
			defer func() { _ = m.Close() }()

			svc := service.NewTaskService(repository.NewTaskRepository(m.Handle()))
			handler := api.NewRouter(api.NewHandlers(svc, m))

			logger := utils.NewLogger("APP")
			logger.WithField("addr", cfg.HTTP.Addr).WithField("mode", cfg.Mode).Info("HTTP server listening")
			err = api.Serve(ctx, cfg.HTTP.Addr, handler)
			logger.Info("HTTP server stopped")
			return err
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides HTTP_ADDR/PORT)")
	return cmd
}
