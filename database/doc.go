// Package database owns the process's single connection pool. It opens the
// pool only after the test-database guard has passed, verifies connectivity
// and schema presence, and hands out a sealed Handle that can run DML and
// transactions but has no way to change the schema.
package database
