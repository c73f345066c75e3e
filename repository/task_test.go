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
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomoncle/taskapi/database"
	"github.com/tomoncle/taskapi/model"
	"github.com/tomoncle/taskapi/testdb"
	"github.com/tomoncle/taskapi/types"
)

func newTaskRepository(t *testing.T) *TaskRepository {
	return NewTaskRepository(testdb.NewMemoryManager(t).Handle())
}

func TestTaskRepository_CreateAndRetrieve(t *testing.T) {
	repo := newTaskRepository(t)
	ctx := context.Background()

	task := &model.Task{Title: "Buy milk", Metadata: types.JsonObject{"aisle": "dairy"}}
	require.NoError(t, repo.Create(ctx, task))
	assert.NotEqual(t, uuid.Nil, task.ID)
	assert.Equal(t, model.StatusPending, task.Status)

	got, err := repo.RetrieveByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, "Buy milk", got.Title)
	assert.Equal(t, model.StatusPending, got.Status)
	assert.Equal(t, "dairy", got.Metadata["aisle"])

	all, err := repo.RetrieveAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, task.ID, all[0].ID)
}

func TestTaskRepository_RetrieveByIDNotFound(t *testing.T) {
	repo := newTaskRepository(t)
	_, err := repo.RetrieveByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTaskRepository_Update(t *testing.T) {
	repo := newTaskRepository(t)
	ctx := context.Background()

	task := &model.Task{Title: "Write report", Description: "quarterly"}
	require.NoError(t, repo.Create(ctx, task))

	title := "Write annual report"
	status := model.StatusInProgress
	updated, err := repo.Update(ctx, task.ID, model.TaskPatch{Title: &title, Status: &status})
	require.NoError(t, err)
	assert.Equal(t, title, updated.Title)
	assert.Equal(t, "quarterly", updated.Description)
	assert.Equal(t, model.StatusInProgress, updated.Status)

	got, err := repo.RetrieveByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, title, got.Title)
	assert.Equal(t, model.StatusInProgress, got.Status)

	_, err = repo.Update(ctx, uuid.New(), model.TaskPatch{Title: &title})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTaskRepository_Delete(t *testing.T) {
	repo := newTaskRepository(t)
	ctx := context.Background()

	task := &model.Task{Title: "Throw away"}
	require.NoError(t, repo.Create(ctx, task))

	deleted, err := repo.Delete(ctx, task.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = repo.Delete(ctx, task.ID)
	require.NoError(t, err)
	assert.False(t, deleted)

	_, err = repo.RetrieveByID(ctx, task.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTaskRepository_Page(t *testing.T) {
	repo := newTaskRepository(t)
	ctx := context.Background()

	empty, err := repo.Page(ctx, "", 1, 2)
	require.NoError(t, err)
	assert.Equal(t, 0, empty.Total)
	assert.Empty(t, empty.Items)

	for _, title := range []string{"a", "b", "c"} {
		require.NoError(t, repo.Create(ctx, &model.Task{Title: title}))
	}

	first, err := repo.Page(ctx, "", 1, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, first.Total)
	assert.Len(t, first.Items, 2)
	assert.Equal(t, 2, first.Pages())
	assert.Equal(t, 2, first.TotalPages)

	second, err := repo.Page(ctx, "", 2, 2)
	require.NoError(t, err)
	assert.Len(t, second.Items, 1)
}

func TestTaskRepository_FilterByStatus(t *testing.T) {
	repo := newTaskRepository(t)
	ctx := context.Background()

	for _, task := range []*model.Task{
		{Title: "a"},
		{Title: "b", Status: model.StatusDone},
		{Title: "c", Status: model.StatusDone},
	} {
		require.NoError(t, repo.Create(ctx, task))
	}

	done, err := repo.RetrieveByStatus(ctx, model.StatusDone)
	require.NoError(t, err)
	require.Len(t, done, 2)
	assert.Equal(t, "b", done[0].Title)
	assert.Equal(t, "c", done[1].Title)

	pending, err := repo.RetrieveByStatus(ctx, model.StatusInProgress)
	require.NoError(t, err)
	assert.Empty(t, pending)

	page, err := repo.Page(ctx, model.StatusDone, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)
	assert.Equal(t, 2, page.TotalPages)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "b", page.Items[0].Title)
}

func TestRepository_TransactionRollsBack(t *testing.T) {
	m := testdb.NewMemoryManager(t)
	repo := NewRepository[model.Task](m.Handle())
	ctx := context.Background()

	sentinel := errors.New("abort")
	task := &model.Task{Title: "never stored"}
	err := repo.RunInTx(ctx, func(ctx context.Context, q database.Querier) error {
		if err := repo.CreateWithTx(ctx, q, task); err != nil {
			return err
		}
		return sentinel
	})
	assert.ErrorIs(t, err, sentinel)

	_, err = repo.GetOne(ctx, task.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	list, err := repo.List(ctx, types.NewQueryFilter("title = ?", "never stored"))
	require.NoError(t, err)
	assert.Empty(t, list)
}
