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

	"github.com/uptrace/bun"
)

// Querier is the DML-only surface shared by the sealed Handle and the
// transactions it runs. Its builders are wrappers that never return the
// underlying *bun.DB, bun.Tx or bun query types.
type Querier interface {
	NewSelect() *SelectQuery
	NewInsert() *InsertQuery
	NewUpdate() *UpdateQuery
	NewDelete() *DeleteQuery
}

// Handle is the sealed connection handed to the data access layer. The
// underlying *bun.DB is unexported and never returned.
type Handle struct {
	db *bun.DB
}

var _ Querier = (*Handle)(nil)

func newHandle(db *bun.DB) *Handle {
	return &Handle{db: db}
}

func (h *Handle) NewSelect() *SelectQuery { return &SelectQuery{q: h.db.NewSelect()} }
func (h *Handle) NewInsert() *InsertQuery { return &InsertQuery{q: h.db.NewInsert()} }
func (h *Handle) NewUpdate() *UpdateQuery { return &UpdateQuery{q: h.db.NewUpdate()} }
func (h *Handle) NewDelete() *DeleteQuery { return &DeleteQuery{q: h.db.NewDelete()} }

// RunInTx runs fn in a transaction. fn sees only a Querier, so the
// transaction can't reach DDL either. The transaction commits when fn
// returns nil and rolls back otherwise.
func (h *Handle) RunInTx(ctx context.Context, fn func(ctx context.Context, q Querier) error) error {
	return h.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return fn(ctx, txQuerier{tx: tx})
	})
}

// SyncSchema is the schema mutation entry point. It always fails: the schema
// is owned by versioned migrations.
func (h *Handle) SyncSchema(context.Context) error {
	return forbiddenSchemaMutation()
}

type txQuerier struct {
	tx bun.Tx
}

func (q txQuerier) NewSelect() *SelectQuery { return &SelectQuery{q: q.tx.NewSelect()} }
func (q txQuerier) NewInsert() *InsertQuery { return &InsertQuery{q: q.tx.NewInsert()} }
func (q txQuerier) NewUpdate() *UpdateQuery { return &UpdateQuery{q: q.tx.NewUpdate()} }
func (q txQuerier) NewDelete() *DeleteQuery { return &DeleteQuery{q: q.tx.NewDelete()} }
