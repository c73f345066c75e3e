// Package repository provides the data access layer: a generic Bun
// repository that runs only on the sealed database handle, and the task DAO
// built on it.
package repository
