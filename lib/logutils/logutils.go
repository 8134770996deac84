/*
 * pgmcp
 * Copyright (C) 2025  Gravitational, Inc.
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU Affero General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU Affero General Public License for more details.
 *
 * You should have received a copy of the GNU Affero General Public License
 * along with this program.  If not, see <http://www.gnu.org/licenses/>.
 */

// Package logutils configures the process wide structured logger.
//
// Log records are emitted as JSON on standard error. Standard output is
// never written to, it belongs to the MCP transport.
package logutils

import (
	"io"
	"log/slog"
	"os"
	"sync"
)

var (
	level  = new(slog.LevelVar)
	output = newSharedWriter(os.Stderr)
)

func init() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(output, &slog.HandlerOptions{
		Level: level,
	})))
}

// Config holds the settings of the process wide logger.
type Config struct {
	// Output receives the log records. Defaults to standard error.
	Output io.Writer
	// Debug lowers the level so debug records are emitted.
	Debug bool
}

// Init adjusts the process wide logger installed at package load time and
// returns it. Loggers derived earlier with NewPackageLogger pick up the new
// settings as well.
func Init(cfg Config) *slog.Logger {
	if cfg.Output != nil {
		output.set(cfg.Output)
	}
	if cfg.Debug {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(slog.LevelInfo)
	}
	return slog.Default()
}

// NewPackageLogger returns a logger that attaches the given attributes to
// every record it emits.
func NewPackageLogger(args ...any) *slog.Logger {
	return slog.With(args...)
}

// sharedWriter synchronizes writes so handlers on multiple goroutines do
// not interleave records.
type sharedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func newSharedWriter(w io.Writer) *sharedWriter {
	return &sharedWriter{w: w}
}

func (s *sharedWriter) set(w io.Writer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.w = w
}

func (s *sharedWriter) Write(p []byte) (n int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}
