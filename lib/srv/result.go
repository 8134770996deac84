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

package srv

import (
	"encoding/json"
	"fmt"

	"github.com/gravitational/trace"
	"github.com/mark3labs/mcp-go/mcp"
)

const (
	statusSuccess = "success"
	statusError   = "error"
)

// tableEntry describes a single table of the access policy in the
// list_tables result.
type tableEntry struct {
	Name              string   `json:"name"`
	AllowedOperations []string `json:"allowed_operations"`
	AllowedColumns    []string `json:"allowed_columns"`
}

// listTablesResult is the envelope returned by list_tables.
type listTablesResult struct {
	Status string       `json:"status"`
	Tables []tableEntry `json:"tables"`
}

// recordResult is the envelope of tools that return a single record.
type recordResult struct {
	Status  string         `json:"status"`
	Message string         `json:"message"`
	Record  map[string]any `json:"record"`
}

// recordsResult is the envelope of tools that return a result set.
type recordsResult struct {
	Status  string           `json:"status"`
	Count   int              `json:"count"`
	Records []map[string]any `json:"records"`
}

// messageResult is the envelope of tools that return a plain outcome.
type messageResult struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// schemaResult is the envelope returned by get_table_schema.
type schemaResult struct {
	Status      string           `json:"status"`
	TableName   string           `json:"table_name"`
	Columns     []map[string]any `json:"columns"`
	PrimaryKeys []string         `json:"primary_keys"`
}

// formatResult marshals an envelope into the text content of a successful
// tool result.
func formatResult(envelope any) (*mcp.CallToolResult, error) {
	out, err := json.Marshal(envelope)
	if err != nil {
		return nil, trace.Wrap(err)
	}
	return mcp.NewToolResultText(string(out)), nil
}

// errorResult builds an error envelope carrying the given message. Tool
// failures stay inside the result payload instead of surfacing as
// protocol errors so the client can read them like any other result.
func errorResult(message string) (*mcp.CallToolResult, error) {
	out, err := json.Marshal(messageResult{Status: statusError, Message: message})
	if err != nil {
		return nil, trace.Wrap(err)
	}
	return mcp.NewToolResultError(string(out)), nil
}

// errorResultf is errorResult with a format string.
func errorResultf(format string, args ...any) (*mcp.CallToolResult, error) {
	return errorResult(fmt.Sprintf(format, args...))
}
