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

// Package service holds the task business rules: input validation and
// not-found semantics on top of the task DAO.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/tomoncle/taskapi/model"
	"github.com/tomoncle/taskapi/repository"
	"github.com/tomoncle/taskapi/types"
	"github.com/tomoncle/taskapi/utils"
)

const MaxTitleLength = 255

// TaskStore is the subset of the DAO the service needs.
type TaskStore interface {
	RetrieveAll(ctx context.Context) ([]*model.Task, error)
	RetrieveByStatus(ctx context.Context, status model.TaskStatus) ([]*model.Task, error)
	Page(ctx context.Context, status model.TaskStatus, page, pageSize int) (*types.Pagination[model.Task], error)
	RetrieveByID(ctx context.Context, id uuid.UUID) (*model.Task, error)
	Create(ctx context.Context, task *model.Task) error
	Update(ctx context.Context, id uuid.UUID, patch model.TaskPatch) (*model.Task, error)
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
}

var _ TaskStore = (*repository.TaskRepository)(nil)

type TaskService struct {
	store  TaskStore
	logger *utils.Logger
}

func NewTaskService(store TaskStore) *TaskService {
	return &TaskService{store: store, logger: utils.NewLogger("SERVICE")}
}

// ListTasks returns every task, or only those in status when it is set.
func (s *TaskService) ListTasks(ctx context.Context, status string) ([]*model.Task, error) {
	filter, err := statusFilter(status)
	if err != nil {
		return nil, err
	}
	var tasks []*model.Task
	if filter == "" {
		tasks, err = s.store.RetrieveAll(ctx)
	} else {
		tasks, err = s.store.RetrieveByStatus(ctx, filter)
	}
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

func (s *TaskService) ListTasksPage(ctx context.Context, status string, page, pageSize int) (*types.Pagination[model.Task], error) {
	filter, err := statusFilter(status)
	if err != nil {
		return nil, err
	}
	p, err := s.store.Page(ctx, filter, page, pageSize)
	if err != nil {
		return nil, fmt.Errorf("list tasks page %d: %w", page, err)
	}
	return p, nil
}

func (s *TaskService) GetTask(ctx context.Context, id string) (*model.Task, error) {
	uid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	task, err := s.store.RetrieveByID(ctx, uid)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrTaskNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get task %s: %w", uid, err)
	}
	return task, nil
}

// CreateTask validates in and stores a new task. An empty or whitespace
// title never reaches storage.
func (s *TaskService) CreateTask(ctx context.Context, in model.TaskInput) (*model.Task, error) {
	title, err := validateTitle(in.Title)
	if err != nil {
		return nil, err
	}
	status := model.StatusPending
	if in.Status != "" {
		if status, err = validateStatus(in.Status); err != nil {
			return nil, err
		}
	}

	task := &model.Task{
		Title:       title,
		Description: strings.TrimSpace(in.Description),
		Status:      status,
		Metadata:    in.Metadata,
	}
	if err := s.store.Create(ctx, task); err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}
	s.logger.WithField("id", task.ID).Info("Task created")
	return task, nil
}

// UpdateTask applies a partial update. Unknown ids yield ErrTaskNotFound.
func (s *TaskService) UpdateTask(ctx context.Context, id string, patch model.TaskPatch) (*model.Task, error) {
	uid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	if patch.IsEmpty() {
		return nil, invalid("body", "at least one field must be provided")
	}
	if patch.Title != nil {
		title, err := validateTitle(*patch.Title)
		if err != nil {
			return nil, err
		}
		patch.Title = &title
	}
	if patch.Description != nil {
		description := strings.TrimSpace(*patch.Description)
		patch.Description = &description
	}
	if patch.Status != nil {
		status, err := validateStatus(*patch.Status)
		if err != nil {
			return nil, err
		}
		patch.Status = &status
	}

	task, err := s.store.Update(ctx, uid, patch)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrTaskNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update task %s: %w", uid, err)
	}
	return task, nil
}

func (s *TaskService) DeleteTask(ctx context.Context, id string) error {
	uid, err := parseID(id)
	if err != nil {
		return err
	}
	deleted, err := s.store.Delete(ctx, uid)
	if err != nil {
		return fmt.Errorf("delete task %s: %w", uid, err)
	}
	if !deleted {
		return ErrTaskNotFound
	}
	s.logger.WithField("id", uid).Info("Task deleted")
	return nil
}

func parseID(id string) (uuid.UUID, error) {
	uid, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return uuid.Nil, invalid("id", "%q is not a valid task id", id)
	}
	return uid, nil
}

func validateTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", invalid("title", "title is required")
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return "", invalid("title", "title must be at most %d characters", MaxTitleLength)
	}
	return title, nil
}

func statusFilter(status string) (model.TaskStatus, error) {
	if strings.TrimSpace(status) == "" {
		return "", nil
	}
	return validateStatus(model.TaskStatus(status))
}

func validateStatus(s model.TaskStatus) (model.TaskStatus, error) {
	status := model.ParseTaskStatus(string(s))
	if !status.IsValid() {
		return "", invalid("status", "status must be one of %s",
			strings.Join(types.EnumNames(model.TaskStatuses()...), ", "))
	}
	return status, nil
}
