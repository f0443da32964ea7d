/*
   Copyright 2025 The flowlog Authors.

   Licensed under the Apache License, Version 2.0 (the "License");
   you may not use this file except in compliance with the License.
   You may obtain a copy of the License at

       http://www.apache.org/licenses/LICENSE-2.0

   Unless required by applicable law or agreed to in writing, software
   distributed under the License is distributed on an "AS IS" BASIS,
   WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
   See the License for the specific language governing permissions and
   limitations under the License.
*/

// Package diag is the writer's own internal diagnostics logger: the
// channel the consumer uses to report a destination write failure, a
// dropped batch, or a queue saturated under backpressure. It is
// deliberately small and has nothing to do with the log lines the writer
// is asked to persist.
package diag

import (
	"io"
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// DefaultEncoderConfig returns the zap EncoderConfig used by the default
// console logger: short keys, RFC3339 nano timestamps, lowercase levels.
func DefaultEncoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "",
		MessageKey:     "msg",
		StacktraceKey:  "",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.RFC3339NanoTimeEncoder,
		EncodeDuration: zapcore.SecondsDurationEncoder,
	}
}

// Logger is the narrow surface the rest of the runtime depends on. It is
// satisfied by *zap.SugaredLogger.
type Logger interface {
	Debugw(msg string, kv ...any)
	Infow(msg string, kv ...any)
	Warnw(msg string, kv ...any)
	Errorw(msg string, kv ...any)
	Sync() error
}

var (
	once    sync.Once
	fallback *zap.SugaredLogger
)

// Default returns the process-wide fallback diagnostics logger: a console
// encoder writing to stderr at warn level and above. It is used whenever a
// writer is constructed without an explicit Logger option.
func Default() Logger {
	once.Do(func() {
		fallback = New(os.Stderr, zapcore.WarnLevel)
	})
	return fallback
}

// New builds a diagnostics logger writing console-encoded entries to w at
// minLevel and above.
func New(w io.Writer, minLevel zapcore.Level) *zap.SugaredLogger {
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(DefaultEncoderConfig()),
		zapcore.AddSync(w),
		minLevel,
	)
	return zap.New(core).Sugar()
}

// Nop returns a Logger that discards everything, for tests that don't
// want diagnostics noise.
func Nop() Logger {
	return zap.NewNop().Sugar()
}
