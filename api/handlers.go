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

// Package api exposes the task service over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/tomoncle/taskapi/database"
	"github.com/tomoncle/taskapi/model"
	"github.com/tomoncle/taskapi/service"
	"github.com/tomoncle/taskapi/types"
	"github.com/tomoncle/taskapi/utils"
)

// TaskService is what the handlers call; *service.TaskService implements it.
type TaskService interface {
	ListTasks(ctx context.Context, status string) ([]*model.Task, error)
	ListTasksPage(ctx context.Context, status string, page, pageSize int) (*types.Pagination[model.Task], error)
	GetTask(ctx context.Context, id string) (*model.Task, error)
	CreateTask(ctx context.Context, in model.TaskInput) (*model.Task, error)
	UpdateTask(ctx context.Context, id string, patch model.TaskPatch) (*model.Task, error)
	DeleteTask(ctx context.Context, id string) error
}

var _ TaskService = (*service.TaskService)(nil)

// HealthChecker reports database liveness for /healthz.
type HealthChecker interface {
	HealthCheck(ctx context.Context) *database.HealthStatus
}

type healthBody struct {
	Healthy bool `json:"healthy"`
}

type errorBody struct {
	Error     string `json:"error"`
	Field     string `json:"field,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// Handlers serves the task routes.
type Handlers struct {
	svc    TaskService
	health HealthChecker
	logger *utils.Logger
}

func NewHandlers(svc TaskService, health HealthChecker) *Handlers {
	return &Handlers{svc: svc, health: health, logger: utils.NewLogger("HTTP")}
}

func (h *Handlers) ListTasks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("page") == "" && q.Get("page_size") == "" {
		tasks, err := h.svc.ListTasks(r.Context(), q.Get("status"))
		if err != nil {
			h.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, tasks)
		return
	}

	page, err := intParam(q.Get("page"), 1)
	if err != nil {
		h.fail(w, r, &service.ValidationError{Field: "page", Message: "page must be an integer"})
		return
	}
	pageSize, err := intParam(q.Get("page_size"), types.DefaultPageSize)
	if err != nil {
		h.fail(w, r, &service.ValidationError{Field: "page_size", Message: "page_size must be an integer"})
		return
	}
	p, err := h.svc.ListTasksPage(r.Context(), q.Get("status"), page, pageSize)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handlers) GetTask(w http.ResponseWriter, r *http.Request) {
	task, err := h.svc.GetTask(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (h *Handlers) CreateTask(w http.ResponseWriter, r *http.Request) {
	var in model.TaskInput
	if err := decode(r, &in); err != nil {
		h.fail(w, r, err)
		return
	}
	task, err := h.svc.CreateTask(r.Context(), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/tasks/"+task.ID.String())
	writeJSON(w, http.StatusCreated, task)
}

func (h *Handlers) UpdateTask(w http.ResponseWriter, r *http.Request) {
	var patch model.TaskPatch
	if err := decode(r, &patch); err != nil {
		h.fail(w, r, err)
		return
	}
	task, err := h.svc.UpdateTask(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (h *Handlers) DeleteTask(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteTask(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Healthz answers with liveness only. Failure details stay in the server log.
func (h *Handlers) Healthz(w http.ResponseWriter, r *http.Request) {
	if h.health == nil {
		writeJSON(w, http.StatusOK, healthBody{Healthy: true})
		return
	}
	status := h.health.HealthCheck(r.Context())
	if !status.Healthy {
		h.logger.WithField("request_id", middleware.GetReqID(r.Context())).
			WithField("response_time", status.ResponseTime).
			WithField("open_conns", status.OpenConns).
			Warnf("Health check failed: %s", status.LastError)
		writeJSON(w, http.StatusServiceUnavailable, healthBody{Healthy: false})
		return
	}
	writeJSON(w, http.StatusOK, healthBody{Healthy: true})
}

// fail maps service errors onto status codes. Anything unexpected is logged
// and answered with a generic 500.
func (h *Handlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	reqID := middleware.GetReqID(r.Context())
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: verr.Message, Field: verr.Field, RequestID: reqID})
	case errors.Is(err, service.ErrTaskNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: "task not found", RequestID: reqID})
	default:
		h.logger.WithField("request_id", reqID).WithError(err).Errorf("%s %s failed", r.Method, r.URL.Path)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal server error", RequestID: reqID})
	}
}

func decode(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return &service.ValidationError{Field: "body", Message: "request body must be a JSON object"}
	}
	return nil
}

func intParam(s string, def int) (int, error) {
	if s == "" {
		return def, nil
	}
	return strconv.Atoi(s)
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
