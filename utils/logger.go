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
	"bytes"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
)

type Logger = logrus.Logger

const defaultTimestampFormat = "2006-01-02 15:04:05.000"

// LogOptions controls how every logger created by NewLogger writes entries.
type LogOptions struct {
	Level          string
	ConsoleEnabled bool
	ConsoleFormat  string // text or json
	FileEnabled    bool
	FileDir        string
}

var (
	logOptionsMu     sync.RWMutex
	logOptions       = defaultLogOptions()
	loggerRegistryMu sync.RWMutex
	loggerRegistry   = map[string]*logrus.Logger{}
	consoleOut       io.Writer = os.Stdout
)

func defaultLogOptions() LogOptions {
	return LogOptions{
		Level:          EnvDefaultString("LOG_LEVEL", "info"),
		ConsoleEnabled: EnvDefaultBool("CONSOLE_LOG_ENABLED", true),
		ConsoleFormat:  EnvDefaultString("CONSOLE_LOG_FORMAT", "text"),
		FileEnabled:    EnvDefaultBool("FILE_LOG_ENABLED", false),
		FileDir:        EnvDefaultString("LOG_DIR", "logs"),
	}
}

// ConfigureLogging replaces the global options and re-applies them to every
// registered logger.
func ConfigureLogging(opts LogOptions) {
	logOptionsMu.Lock()
	logOptions = opts
	logOptionsMu.Unlock()

	loggerRegistryMu.RLock()
	defer loggerRegistryMu.RUnlock()
	for name, l := range loggerRegistry {
		applyOptions(name, l, opts)
	}
}

// CurrentLogOptions returns a copy of the active options.
func CurrentLogOptions() LogOptions {
	logOptionsMu.RLock()
	defer logOptionsMu.RUnlock()
	return logOptions
}

// NewLogger returns the named logger, creating and registering it on first use.
func NewLogger(name string) *logrus.Logger {
	loggerRegistryMu.Lock()
	defer loggerRegistryMu.Unlock()
	if l, ok := loggerRegistry[name]; ok {
		return l
	}
	l := logrus.New()
	applyOptions(name, l, CurrentLogOptions())
	loggerRegistry[name] = l
	return l
}

func applyOptions(name string, l *logrus.Logger, opts LogOptions) {
	l.SetOutput(io.Discard)
	l.SetLevel(ParseLogLevel(opts.Level))
	l.ReplaceHooks(make(logrus.LevelHooks))

	var formatter logrus.Formatter
	if strings.EqualFold(opts.ConsoleFormat, "json") {
		formatter = &logrus.JSONFormatter{
			TimestampFormat: defaultTimestampFormat,
			FieldMap:        logrus.FieldMap{logrus.FieldKeyMsg: "message"},
		}
	} else {
		formatter = &LineFormatter{LoggerName: name, Color: true}
	}
	l.SetFormatter(formatter)

	if opts.ConsoleEnabled {
		l.AddHook(&writerHook{writer: consoleOut, formatter: formatter, levels: logrus.AllLevels})
	}
	if opts.FileEnabled {
		if err := AddFileHook(l, name, opts.FileDir); err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "logger %s: file log disabled: %v\n", name, err)
		}
	}
}

// SetLoggerLevel changes the level of one registered logger.
func SetLoggerLevel(name string, lvlStr string) bool {
	loggerRegistryMu.RLock()
	l, ok := loggerRegistry[name]
	loggerRegistryMu.RUnlock()
	if !ok {
		return false
	}
	l.SetLevel(ParseLogLevel(lvlStr))
	return true
}

func ParseLogLevel(s string) logrus.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return logrus.TraceLevel
	case "debug":
		return logrus.DebugLevel
	case "info", "":
		return logrus.InfoLevel
	case "warn", "warning":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	case "fatal":
		return logrus.FatalLevel
	case "panic":
		return logrus.PanicLevel
	default:
		return logrus.InfoLevel
	}
}

type writerHook struct {
	writer    io.Writer
	formatter logrus.Formatter
	levels    []logrus.Level
	mu        sync.Mutex
}

func (h *writerHook) Levels() []logrus.Level { return h.levels }

func (h *writerHook) Fire(e *logrus.Entry) error {
	b, err := h.formatter.Format(e)
	if err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	_, err = h.writer.Write(b)
	return err
}

// LineFormatter renders "timestamp LEVEL pid --- [name] : message key=value".
type LineFormatter struct {
	LoggerName      string
	TimestampFormat string
	Color           bool
}

func (f *LineFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	tsFormat := f.TimestampFormat
	if tsFormat == "" {
		tsFormat = defaultTimestampFormat
	}
	lvl := fmt.Sprintf("%5s", strings.ToUpper(entry.Level.String()))
	name := fmt.Sprintf("[%s]", f.LoggerName)
	if f.Color {
		lvl = levelColor(entry.Level).Sprint(lvl)
		name = color.New(color.FgCyan).Sprint(name)
	}

	var b bytes.Buffer
	fmt.Fprintf(&b, "%s %s %-6d --- %s : %s", entry.Time.Format(tsFormat), lvl, os.Getpid(), name, entry.Message)

	keys := make([]string, 0, len(entry.Data))
	for k := range entry.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, entry.Data[k])
	}
	b.WriteByte('\n')
	return b.Bytes(), nil
}

func levelColor(level logrus.Level) *color.Color {
	switch level {
	case logrus.TraceLevel, logrus.DebugLevel:
		return color.New(color.FgHiBlack)
	case logrus.InfoLevel:
		return color.New(color.FgGreen)
	case logrus.WarnLevel:
		return color.New(color.FgYellow)
	default:
		return color.New(color.FgRed)
	}
}

func nowDate() string { return time.Now().Format("2006-01-02") }
