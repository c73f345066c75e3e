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

// Package model holds the bun entities and their value types.
package model

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/tomoncle/taskapi/database"
	"github.com/tomoncle/taskapi/types"
)

const TaskTable = "tasks"

func init() {
	database.RegisterModel(database.NewModelAdapter((*Task)(nil), 10))
}

// Task is a unit of work tracked by the API.
type Task struct {
	bun.BaseModel `bun:"table:tasks,alias:t"`

	ID          uuid.UUID        `bun:"id,pk,type:varchar(36)" json:"id"`
	Title       string           `bun:"title,notnull" json:"title"`
	Description string           `bun:"description" json:"description"`
	Status      TaskStatus       `bun:"status,notnull" json:"status"`
	Metadata    types.JsonObject `bun:"metadata" json:"metadata,omitempty"`
	CreatedAt   time.Time        `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt   time.Time        `bun:"updated_at,notnull" json:"updated_at"`
}

var _ bun.BeforeAppendModelHook = (*Task)(nil)

// BeforeAppendModel fills the id, default status and timestamps on insert and
// bumps UpdatedAt on update.
func (t *Task) BeforeAppendModel(_ context.Context, query bun.Query) error {
	now := time.Now().UTC()
	switch query.Operation() {
	case "INSERT":
		if t.ID == uuid.Nil {
			t.ID = uuid.New()
		}
		if t.Status == "" {
			t.Status = StatusPending
		}
		if t.CreatedAt.IsZero() {
			t.CreatedAt = now
		}
		t.UpdatedAt = now
	case "UPDATE":
		t.UpdatedAt = now
	}
	return nil
}

// TaskInput is the body of a create request.
type TaskInput struct {
	Title       string           `json:"title"`
	Description string           `json:"description"`
	Status      TaskStatus       `json:"status"`
	Metadata    types.JsonObject `json:"metadata"`
}

// TaskPatch is a partial update. Nil fields are left unchanged.
type TaskPatch struct {
	Title       *string          `json:"title,omitempty"`
	Description *string          `json:"description,omitempty"`
	Status      *TaskStatus      `json:"status,omitempty"`
	Metadata    types.JsonObject `json:"metadata,omitempty"`
}

// IsEmpty reports whether the patch changes nothing.
func (p TaskPatch) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.Status == nil && p.Metadata == nil
}

// Apply copies the set fields onto t.
func (p TaskPatch) Apply(t *Task) {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
	if p.Metadata != nil {
		t.Metadata = p.Metadata
	}
}
