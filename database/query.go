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
	"database/sql"

	"github.com/uptrace/bun"
)

// SelectQuery wraps a bun SELECT builder. It runs the query but never hands
// out the connection behind it.
type SelectQuery struct {
	q *bun.SelectQuery
}

func (s *SelectQuery) Model(model interface{}) *SelectQuery {
	s.q.Model(model)
	return s
}

func (s *SelectQuery) Column(columns ...string) *SelectQuery {
	s.q.Column(columns...)
	return s
}

func (s *SelectQuery) Where(query string, args ...interface{}) *SelectQuery {
	s.q.Where(query, args...)
	return s
}

func (s *SelectQuery) WhereOr(query string, args ...interface{}) *SelectQuery {
	s.q.WhereOr(query, args...)
	return s
}

func (s *SelectQuery) Order(orders ...string) *SelectQuery {
	s.q.Order(orders...)
	return s
}

func (s *SelectQuery) Limit(n int) *SelectQuery {
	s.q.Limit(n)
	return s
}

func (s *SelectQuery) Offset(n int) *SelectQuery {
	s.q.Offset(n)
	return s
}

func (s *SelectQuery) Scan(ctx context.Context, dest ...interface{}) error {
	return s.q.Scan(ctx, dest...)
}

func (s *SelectQuery) Count(ctx context.Context) (int, error) {
	return s.q.Count(ctx)
}

func (s *SelectQuery) Exists(ctx context.Context) (bool, error) {
	return s.q.Exists(ctx)
}

// InsertQuery wraps a bun INSERT builder.
type InsertQuery struct {
	q *bun.InsertQuery
}

func (s *InsertQuery) Model(model interface{}) *InsertQuery {
	s.q.Model(model)
	return s
}

func (s *InsertQuery) Column(columns ...string) *InsertQuery {
	s.q.Column(columns...)
	return s
}

func (s *InsertQuery) Exec(ctx context.Context) (sql.Result, error) {
	return s.q.Exec(ctx)
}

// UpdateQuery wraps a bun UPDATE builder.
type UpdateQuery struct {
	q *bun.UpdateQuery
}

func (s *UpdateQuery) Model(model interface{}) *UpdateQuery {
	s.q.Model(model)
	return s
}

func (s *UpdateQuery) Table(tables ...string) *UpdateQuery {
	s.q.Table(tables...)
	return s
}

func (s *UpdateQuery) Column(columns ...string) *UpdateQuery {
	s.q.Column(columns...)
	return s
}

func (s *UpdateQuery) Set(query string, args ...interface{}) *UpdateQuery {
	s.q.Set(query, args...)
	return s
}

func (s *UpdateQuery) WherePK(cols ...string) *UpdateQuery {
	s.q.WherePK(cols...)
	return s
}

func (s *UpdateQuery) Where(query string, args ...interface{}) *UpdateQuery {
	s.q.Where(query, args...)
	return s
}

func (s *UpdateQuery) Exec(ctx context.Context) (sql.Result, error) {
	return s.q.Exec(ctx)
}

// DeleteQuery wraps a bun DELETE builder.
type DeleteQuery struct {
	q *bun.DeleteQuery
}

func (s *DeleteQuery) Model(model interface{}) *DeleteQuery {
	s.q.Model(model)
	return s
}

func (s *DeleteQuery) WherePK(cols ...string) *DeleteQuery {
	s.q.WherePK(cols...)
	return s
}

func (s *DeleteQuery) Where(query string, args ...interface{}) *DeleteQuery {
	s.q.Where(query, args...)
	return s
}

func (s *DeleteQuery) Exec(ctx context.Context) (sql.Result, error) {
	return s.q.Exec(ctx)
}
