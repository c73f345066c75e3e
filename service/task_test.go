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

package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomoncle/taskapi/model"
	"github.com/tomoncle/taskapi/repository"
	"github.com/tomoncle/taskapi/testdb"
	"github.com/tomoncle/taskapi/types"
)

type fakeStore struct {
	calls     int
	created   []*model.Task
	err       error
	deleted   bool
	status    model.TaskStatus
	lastPatch model.TaskPatch
}

func (f *fakeStore) RetrieveAll(context.Context) ([]*model.Task, error) {
	f.calls++
	return f.created, f.err
}

func (f *fakeStore) RetrieveByStatus(_ context.Context, status model.TaskStatus) ([]*model.Task, error) {
	f.calls++
	f.status = status
	return nil, f.err
}

func (f *fakeStore) Page(_ context.Context, status model.TaskStatus, page, pageSize int) (*types.Pagination[model.Task], error) {
	f.calls++
	f.status = status
	return types.NewDefaultPagination[model.Task](page, pageSize), f.err
}

func (f *fakeStore) RetrieveByID(context.Context, uuid.UUID) (*model.Task, error) {
	f.calls++
	return nil, repository.ErrNotFound
}

func (f *fakeStore) Create(_ context.Context, task *model.Task) error {
	f.calls++
	if f.err != nil {
		return f.err
	}
	task.ID = uuid.New()
	f.created = append(f.created, task)
	return nil
}

func (f *fakeStore) Update(_ context.Context, _ uuid.UUID, patch model.TaskPatch) (*model.Task, error) {
	f.calls++
	f.lastPatch = patch
	return nil, repository.ErrNotFound
}

func (f *fakeStore) Delete(context.Context, uuid.UUID) (bool, error) {
	f.calls++
	return f.deleted, f.err
}

func TestCreateTask_RejectsBlankTitleBeforeStorage(t *testing.T) {
	for _, title := range []string{"", "   ", "\t\n", strings.Repeat("x", MaxTitleLength+1)} {
		store := &fakeStore{}
		_, err := NewTaskService(store).CreateTask(context.Background(), model.TaskInput{Title: title})
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidInput)
		var verr *ValidationError
		require.True(t, errors.As(err, &verr))
		assert.Equal(t, "title", verr.Field)
		assert.Zero(t, store.calls, "storage must not be called for title %q", title)
	}
}

func TestCreateTask_RejectsUnknownStatus(t *testing.T) {
	store := &fakeStore{}
	_, err := NewTaskService(store).CreateTask(context.Background(), model.TaskInput{Title: "x", Status: "archived"})
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Contains(t, err.Error(), "pending, in_progress, done")
	assert.Zero(t, store.calls)
}

func TestCreateTask_TrimsAndDefaults(t *testing.T) {
	store := &fakeStore{}
	task, err := NewTaskService(store).CreateTask(context.Background(), model.TaskInput{Title: "  Buy milk  "})
	require.NoError(t, err)
	assert.Equal(t, "Buy milk", task.Title)
	assert.Equal(t, model.StatusPending, task.Status)
	assert.NotEqual(t, uuid.Nil, task.ID)
	assert.Equal(t, 1, store.calls)
}

func TestCreateTask_WrapsStorageError(t *testing.T) {
	boom := errors.New("boom")
	_, err := NewTaskService(&fakeStore{err: boom}).CreateTask(context.Background(), model.TaskInput{Title: "x"})
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrInvalidInput)
}

func TestNotFoundAndInvalidID(t *testing.T) {
	store := &fakeStore{}
	svc := NewTaskService(store)
	ctx := context.Background()
	title := "x"

	_, err := svc.GetTask(ctx, "not-a-uuid")
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Zero(t, store.calls)

	_, err = svc.GetTask(ctx, uuid.NewString())
	assert.ErrorIs(t, err, ErrTaskNotFound)

	_, err = svc.UpdateTask(ctx, uuid.NewString(), model.TaskPatch{Title: &title})
	assert.ErrorIs(t, err, ErrTaskNotFound)

	assert.ErrorIs(t, svc.DeleteTask(ctx, uuid.NewString()), ErrTaskNotFound)
}

func TestUpdateTask_Validation(t *testing.T) {
	store := &fakeStore{}
	svc := NewTaskService(store)
	ctx := context.Background()
	id := uuid.NewString()

	_, err := svc.UpdateTask(ctx, id, model.TaskPatch{})
	assert.ErrorIs(t, err, ErrInvalidInput)

	blank := "  "
	_, err = svc.UpdateTask(ctx, id, model.TaskPatch{Title: &blank})
	assert.ErrorIs(t, err, ErrInvalidInput)

	bad := model.TaskStatus("later")
	_, err = svc.UpdateTask(ctx, id, model.TaskPatch{Status: &bad})
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Zero(t, store.calls)
}

func TestUpdateTask_TrimsDescription(t *testing.T) {
	store := &fakeStore{}
	description := "  two litres \n"
	_, err := NewTaskService(store).UpdateTask(context.Background(), uuid.NewString(), model.TaskPatch{Description: &description})
	assert.ErrorIs(t, err, ErrTaskNotFound)
	require.NotNil(t, store.lastPatch.Description)
	assert.Equal(t, "two litres", *store.lastPatch.Description)
}

func TestListTasks_StatusFilter(t *testing.T) {
	ctx := context.Background()

	store := &fakeStore{}
	_, err := NewTaskService(store).ListTasks(ctx, "In-Progress")
	require.NoError(t, err)
	assert.Equal(t, model.StatusInProgress, store.status)

	store = &fakeStore{}
	_, err = NewTaskService(store).ListTasksPage(ctx, "done", 1, 10)
	require.NoError(t, err)
	assert.Equal(t, model.StatusDone, store.status)

	store = &fakeStore{}
	_, err = NewTaskService(store).ListTasks(ctx, "archived")
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = NewTaskService(store).ListTasksPage(ctx, "archived", 1, 10)
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Zero(t, store.calls)
}

func TestTaskService_WithSQLite(t *testing.T) {
	svc := NewTaskService(repository.NewTaskRepository(testdb.NewMemoryManager(t).Handle()))
	ctx := context.Background()

	task, err := svc.CreateTask(ctx, model.TaskInput{Title: "Buy milk"})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, task.ID)

	status := model.TaskStatus("in-progress")
	updated, err := svc.UpdateTask(ctx, task.ID.String(), model.TaskPatch{Status: &status})
	require.NoError(t, err)
	assert.Equal(t, model.StatusInProgress, updated.Status)

	tasks, err := svc.ListTasks(ctx, "")
	require.NoError(t, err)
	assert.Len(t, tasks, 1)

	tasks, err = svc.ListTasks(ctx, "pending")
	require.NoError(t, err)
	assert.Empty(t, tasks)

	require.NoError(t, svc.DeleteTask(ctx, task.ID.String()))
	_, err = svc.GetTask(ctx, task.ID.String())
	assert.ErrorIs(t, err, ErrTaskNotFound)
}
