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

package logutils

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInitLevels(t *testing.T) {
	ctx := context.Background()

	var buf bytes.Buffer
	logger := Init(Config{Output: &buf})
	logger.InfoContext(ctx, "visible")
	logger.DebugContext(ctx, "hidden")

	require.Contains(t, buf.String(), `"msg":"visible"`)
	require.NotContains(t, buf.String(), "hidden")

	buf.Reset()
	logger = Init(Config{Output: &buf, Debug: true})
	logger.DebugContext(ctx, "now visible")
	require.Contains(t, buf.String(), `"msg":"now visible"`)
}

func TestInitEmitsJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := Init(Config{Output: &buf})
	logger.InfoContext(context.Background(), "a record", "table", "users")

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	require.Equal(t, "INFO", record["level"])
	require.Equal(t, "a record", record["msg"])
	require.Equal(t, "users", record["table"])
}

func TestNewPackageLogger(t *testing.T) {
	var buf bytes.Buffer

	// The derived logger must honor settings applied after derivation.
	logger := NewPackageLogger("component", "test")
	Init(Config{Output: &buf})
	logger.InfoContext(context.Background(), "tagged")

	require.Contains(t, buf.String(), `"component":"test"`)
	require.Contains(t, buf.String(), `"msg":"tagged"`)
}
