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

package model

import (
	"strings"

	"github.com/tomoncle/taskapi/types"
)

// TaskStatus is the lifecycle state of a Task.
type TaskStatus string

const (
	StatusPending    TaskStatus = "pending"
	StatusInProgress TaskStatus = "in_progress"
	StatusDone       TaskStatus = "done"
)

var _ types.BaseEnum = StatusPending

var taskStatuses = []TaskStatus{StatusPending, StatusInProgress, StatusDone}

var taskStatusDesc = map[TaskStatus]string{
	StatusPending:    "not started",
	StatusInProgress: "being worked on",
	StatusDone:       "finished",
}

// TaskStatuses returns every valid status in lifecycle order.
func TaskStatuses() []TaskStatus {
	out := make([]TaskStatus, len(taskStatuses))
	copy(out, taskStatuses)
	return out
}

// ParseTaskStatus is case-insensitive and accepts "in-progress".
func ParseTaskStatus(s string) TaskStatus {
	s = strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_")
	return TaskStatus(s)
}

func (s TaskStatus) IsValid() bool {
	_, ok := taskStatusDesc[s]
	return ok
}

func (s TaskStatus) Number() int {
	for i, v := range taskStatuses {
		if v == s {
			return i
		}
	}
	return types.IllegalValue
}

func (s TaskStatus) String() string { return string(s) }

func (s TaskStatus) Name() string {
	if !s.IsValid() {
		return types.IllegalName
	}
	return string(s)
}

func (s TaskStatus) Desc() string {
	if d, ok := taskStatusDesc[s]; ok {
		return d
	}
	return types.IllegalDesc
}
