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

package repository

import (
	"context"
	"errors"

	"github.com/tomoncle/taskapi/database"
	"github.com/tomoncle/taskapi/types"
)

// ErrNotFound is returned when no row matches the requested id.
var ErrNotFound = errors.New("record not found")

// DB is what repositories run against: the sealed database.Handle, or any
// other DML-only querier that can open transactions.
type DB interface {
	database.Querier
	RunInTx(ctx context.Context, fn func(ctx context.Context, q database.Querier) error) error
}

// CrudRepository defines basic CRUD operations for a generic entity type.
type CrudRepository[T any] interface {
	GetOne(ctx context.Context, id any) (*T, error)

	GetAll(ctx context.Context, orders ...string) ([]*T, error)

	List(ctx context.Context, filter *types.QueryFilter, orders ...string) ([]*T, error)

	Create(ctx context.Context, entity ...*T) error

	Update(ctx context.Context, entity *T) error

	// Delete reports whether a row was removed.
	Delete(ctx context.Context, id any) (bool, error)
}

// TransactionRepository runs the same operations on a transaction's Querier.
type TransactionRepository[T any] interface {
	GetOneWithTx(ctx context.Context, q database.Querier, id any) (*T, error)
	CreateWithTx(ctx context.Context, q database.Querier, entity ...*T) error
	UpdateWithTx(ctx context.Context, q database.Querier, entity *T) error
	DeleteWithTx(ctx context.Context, q database.Querier, id any) (bool, error)
	RunInTx(ctx context.Context, fn func(ctx context.Context, q database.Querier) error) error
}

// PageQueryRepository defines pagination functionality for listing entities.
type PageQueryRepository[T any] interface {
	Page(ctx context.Context, page *types.PageRequest) (*types.Pagination[T], error)
}

// Repository combines CRUD, pagination and transactional operations.
type Repository[T any] interface {
	CrudRepository[T]
	PageQueryRepository[T]
	TransactionRepository[T]
}
