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

package utils

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"
)

var errorLevels = []logrus.Level{logrus.PanicLevel, logrus.FatalLevel, logrus.ErrorLevel}

// dailyFileWriter appends to <dir>/<yyyy-mm-dd>/<name>.log and switches file
// when the date changes.
type dailyFileWriter struct {
	baseDir string
	name    string
	mu      sync.Mutex
	curDate string
	file    *os.File
}

func (w *dailyFileWriter) ensureOpen(date string) error {
	if w.file != nil && w.curDate == date {
		return nil
	}
	if w.file != nil {
		_ = w.file.Close()
		w.file = nil
	}
	dir := filepath.Join(w.baseDir, date)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(filepath.Join(dir, w.name+".log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	w.file = f
	w.curDate = date
	return nil
}

func (w *dailyFileWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.ensureOpen(nowDate()); err != nil {
		return 0, err
	}
	return w.file.Write(p)
}

var (
	fileWritersMu sync.Mutex
	fileWriters   = map[string]io.Writer{}
)

// sharedFileWriter hands every logger the same writer per path so that
// concurrent loggers do not interleave partial lines.
func sharedFileWriter(dir, name string) io.Writer {
	key := filepath.Join(dir, name)
	fileWritersMu.Lock()
	defer fileWritersMu.Unlock()
	if w, ok := fileWriters[key]; ok {
		return w
	}
	w := &dailyFileWriter{baseDir: dir, name: name}
	fileWriters[key] = w
	return w
}

// AddFileHook writes every entry to combined.log and error-or-worse entries
// to error.log, both as JSON.
func AddFileHook(l *logrus.Logger, name, dir string) error {
	if dir == "" {
		dir = "logs"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create log dir %s: %w", dir, err)
	}
	formatter := &logrus.JSONFormatter{
		TimestampFormat: defaultTimestampFormat,
		FieldMap:        logrus.FieldMap{logrus.FieldKeyMsg: "message"},
	}
	l.AddHook(&writerHook{
		writer:    sharedFileWriter(dir, "combined"),
		formatter: &namedFormatter{name: name, next: formatter},
		levels:    logrus.AllLevels,
	})
	l.AddHook(&writerHook{
		writer:    sharedFileWriter(dir, "error"),
		formatter: &namedFormatter{name: name, next: formatter},
		levels:    errorLevels,
	})
	return nil
}

type namedFormatter struct {
	name string
	next logrus.Formatter
}

func (f *namedFormatter) Format(e *logrus.Entry) ([]byte, error) {
	dup := *e
	dup.Data = make(logrus.Fields, len(e.Data)+1)
	for k, v := range e.Data {
		dup.Data[k] = v
	}
	dup.Data["logger"] = f.name
	return f.next.Format(&dup)
}
