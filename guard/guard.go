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

// Package guard keeps a test run from ever touching a database that does not
// name itself as a test database.
package guard

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tomoncle/taskapi/config"
)

// ErrNonTestDatabase matches every *GuardError.
var ErrNonTestDatabase = errors.New("refusing to operate on non-test database")

// GuardError carries the rejected database name.
type GuardError struct {
	Database string
	Mode     config.RunMode
}

func (e *GuardError) Error() string {
	return fmt.Sprintf("FATAL: %s: run mode %q requires a database name containing \"test\", got %q",
		ErrNonTestDatabase.Error(), e.Mode, e.Database)
}

func (e *GuardError) Is(target error) bool { return target == ErrNonTestDatabase }

// IsTestDatabaseName reports whether name contains "test" in any case and
// any position.
func IsTestDatabaseName(name string) bool {
	return strings.Contains(strings.ToLower(name), "test")
}

// ValidateTestDatabase rejects name when mode is test and name is empty or
// does not contain "test". Other run modes are never rejected here.
func ValidateTestDatabase(name string, mode config.RunMode) error {
	if !mode.IsTest() {
		return nil
	}
	if name == "" || !IsTestDatabaseName(name) {
		return &GuardError{Database: name, Mode: mode}
	}
	return nil
}

// Check runs ValidateTestDatabase against a resolved configuration.
func Check(cfg *config.Config) error {
	if cfg == nil {
		return errors.New("guard: nil configuration")
	}
	return ValidateTestDatabase(cfg.Database.Name, cfg.Mode)
}
