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

	"github.com/google/uuid"

	"github.com/tomoncle/taskapi/database"
	"github.com/tomoncle/taskapi/model"
	"github.com/tomoncle/taskapi/types"
)

var taskOrder = []string{"created_at ASC", "id ASC"}

// TaskRepository is the task DAO. Storage is authoritative; nothing is cached.
type TaskRepository struct {
	base Repository[model.Task]
}

func NewTaskRepository(db DB) *TaskRepository {
	return &TaskRepository{base: NewRepository[model.Task](db)}
}

// RetrieveAll returns every task, oldest first.
func (r *TaskRepository) RetrieveAll(ctx context.Context) ([]*model.Task, error) {
	return r.base.GetAll(ctx, taskOrder...)
}

// RetrieveByStatus returns the tasks in status, oldest first.
func (r *TaskRepository) RetrieveByStatus(ctx context.Context, status model.TaskStatus) ([]*model.Task, error) {
	return r.base.List(ctx, statusFilter(status), taskOrder...)
}

// Page returns one page of tasks, oldest first. An empty status matches
// every task.
func (r *TaskRepository) Page(ctx context.Context, status model.TaskStatus, page, pageSize int) (*types.Pagination[model.Task], error) {
	return r.base.Page(ctx, types.NewPageRequest(page, pageSize, statusFilter(status), taskOrder))
}

func statusFilter(status model.TaskStatus) *types.QueryFilter {
	if status == "" {
		return nil
	}
	return types.NewQueryFilter("status = ?", string(status))
}

// RetrieveByID returns ErrNotFound when no task has id.
func (r *TaskRepository) RetrieveByID(ctx context.Context, id uuid.UUID) (*model.Task, error) {
	return r.base.GetOne(ctx, id)
}

// Create inserts task, filling its id, status and timestamps.
func (r *TaskRepository) Create(ctx context.Context, task *model.Task) error {
	return r.base.Create(ctx, task)
}

// Update applies patch to the stored task in one transaction and returns the
// updated row.
func (r *TaskRepository) Update(ctx context.Context, id uuid.UUID, patch model.TaskPatch) (*model.Task, error) {
	var updated *model.Task
	err := r.base.RunInTx(ctx, func(ctx context.Context, q database.Querier) error {
		task, err := r.base.GetOneWithTx(ctx, q, id)
		if err != nil {
			return err
		}
		patch.Apply(task)
		if err := r.base.UpdateWithTx(ctx, q, task); err != nil {
			return err
		}
		updated = task
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete reports whether a task was removed.
func (r *TaskRepository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	return r.base.Delete(ctx, id)
}
