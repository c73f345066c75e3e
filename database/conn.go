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

	"github.com/tomoncle/taskapi/config"
)

// Open runs the startup sequence used by every long-lived entry point:
// guard, pool, connectivity check, sealed-handle check, schema check. The returned manager is
// ready to serve; on any failure the pool is released and the error is
// returned unwrapped so callers can match it with errors.Is.
func Open(ctx context.Context, cfg *config.Config, opts ...Option) (*Manager, error) {
	m, err := NewManager(cfg, opts...)
	if err != nil {
		return nil, err
	}
	if err := m.TestConnection(ctx); err != nil {
		_ = m.Close()
		return nil, err
	}
	if err := m.VerifySealed(ctx); err != nil {
		_ = m.Close()
		return nil, err
	}
	if err := m.VerifyRegisteredSchema(ctx); err != nil {
		_ = m.Close()
		return nil, err
	}
	return m, nil
}
