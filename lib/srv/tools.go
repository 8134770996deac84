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
	"context"
	"fmt"
	"maps"
	"math"
	"slices"

	"github.com/gravitational/trace"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/gravitational/pgmcp/lib/db"
	"github.com/gravitational/pgmcp/lib/defaults"
	"github.com/gravitational/pgmcp/lib/policy"
)

const (
	listTablesToolName     = "list_tables"
	createRecordToolName   = "create_record"
	readRecordsToolName    = "read_records"
	updateRecordToolName   = "update_record"
	deleteRecordToolName   = "delete_record"
	executeQueryToolName   = "execute_query"
	getTableSchemaToolName = "get_table_schema"
)

var listTablesTool = mcp.NewTool(
	listTablesToolName,
	mcp.WithDescription("List all tables accessible through this server together with the operations and columns the access policy allows on each."),
)

var createRecordTool = mcp.NewTool(
	createRecordToolName,
	mcp.WithDescription("Create a new record in the specified table and return the created record."),
	mcp.WithString("table_name",
		mcp.Required(),
		mcp.Description("Name of the table to insert the record into"),
	),
	mcp.WithObject("data",
		mcp.Required(),
		mcp.Description("Column names mapped to the values of the new record"),
	),
)

var readRecordsTool = mcp.NewTool(
	readRecordsToolName,
	mcp.WithDescription("Read records from the specified table with optional equality filters and pagination."),
	mcp.WithString("table_name",
		mcp.Required(),
		mcp.Description("Name of the table to read records from"),
	),
	mcp.WithObject("filters",
		mcp.Description("Column names mapped to the values returned records must match"),
	),
	mcp.WithNumber("limit",
		mcp.DefaultNumber(defaults.ReadLimit),
		mcp.Description("Maximum number of records to return"),
	),
	mcp.WithNumber("offset",
		mcp.DefaultNumber(0),
		mcp.Description("Number of records to skip from the start of the result"),
	),
)

var updateRecordTool = mcp.NewTool(
	updateRecordToolName,
	mcp.WithDescription("Update the record with the given identifier in the specified table and return the updated record."),
	mcp.WithString("table_name",
		mcp.Required(),
		mcp.Description("Name of the table holding the record"),
	),
	mcp.WithString("record_id",
		mcp.Required(),
		mcp.Description("Value identifying the record to update, matched against the identifier column"),
	),
	mcp.WithObject("data",
		mcp.Required(),
		mcp.Description("Column names mapped to the new values"),
	),
	mcp.WithString("id_column",
		mcp.Description("Name of the identifier column, \"id\" unless set"),
	),
)

var deleteRecordTool = mcp.NewTool(
	deleteRecordToolName,
	mcp.WithDescription("Delete the record with the given identifier from the specified table."),
	mcp.WithString("table_name",
		mcp.Required(),
		mcp.Description("Name of the table holding the record"),
	),
	mcp.WithString("record_id",
		mcp.Required(),
		mcp.Description("Value identifying the record to delete, matched against the identifier column"),
	),
	mcp.WithString("id_column",
		mcp.Description("Name of the identifier column, \"id\" unless set"),
	),
)

var executeQueryTool = mcp.NewTool(
	executeQueryToolName,
	mcp.WithDescription("Execute an arbitrary SQL statement with optional positional parameters. The statement is not checked against the access policy."),
	mcp.WithString("query",
		mcp.Required(),
		mcp.Description("SQL statement to execute, use $1, $2, ... for parameters"),
	),
	mcp.WithArray("params",
		mcp.Description("Values bound to the statement parameters in order"),
	),
)

var getTableSchemaTool = mcp.NewTool(
	getTableSchemaToolName,
	mcp.WithDescription("Describe the columns and primary keys of the specified table."),
	mcp.WithString("table_name",
		mcp.Required(),
		mcp.Description("Name of the table to describe"),
	),
)

// listTables reports every table of the access policy together with its
// allowed operations and columns. It does not touch the database.
func (s *Server) listTables(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tables := s.cfg.Policy.Tables()
	entries := make([]tableEntry, 0, len(tables))
	for _, table := range tables {
		operations := make([]string, 0, len(table.AllowedOperations))
		for _, operation := range table.AllowedOperations {
			operations = append(operations, string(operation))
		}
		entries = append(entries, tableEntry{
			Name:              table.Name,
			AllowedOperations: operations,
			AllowedColumns:    table.AllowedColumns,
		})
	}
	return formatResult(listTablesResult{Status: statusSuccess, Tables: entries})
}

func (s *Server) createRecord(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tableName, err := request.RequireString("table_name")
	if err != nil {
		return errorResult(err.Error())
	}
	data, err := objectArgument(request, "data")
	if err != nil {
		return errorResult(err.Error())
	}
	if !s.cfg.Policy.Authorize(tableName, policy.OperationCreate, columnsOf(data)) {
		return errorResultf("Access denied for creating record in table '%s' with the specified columns", tableName)
	}

	stmt, args, err := db.BuildInsert(tableName, data)
	if err != nil {
		return errorResult(err.Error())
	}
	result, err := s.query(ctx, stmt, args)
	if err != nil {
		return errorResult(err.Error())
	}
	if len(result.records) == 0 {
		return errorResultf("insert into table '%s' returned no rows", tableName)
	}
	return formatResult(recordResult{
		Status:  statusSuccess,
		Message: fmt.Sprintf("Record created in table '%s'", tableName),
		Record:  result.records[0],
	})
}

func (s *Server) readRecords(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tableName, err := request.RequireString("table_name")
	if err != nil {
		return errorResult(err.Error())
	}
	if !s.cfg.Policy.Authorize(tableName, policy.OperationRead, nil) {
		return errorResultf("Access denied for reading from table '%s'", tableName)
	}
	filters, err := objectArgumentOptional(request, "filters")
	if err != nil {
		return errorResult(err.Error())
	}
	for _, column := range slices.Sorted(maps.Keys(filters)) {
		if !s.cfg.Policy.Authorize(tableName, policy.OperationRead, []string{column}) {
			return errorResultf("Access denied for reading column '%s' from table '%s'", column, tableName)
		}
	}
	limit, err := intArgument(request, "limit", defaults.ReadLimit)
	if err != nil {
		return errorResult(err.Error())
	}
	offset, err := intArgument(request, "offset", 0)
	if err != nil {
		return errorResult(err.Error())
	}

	stmt, args, err := db.BuildSelect(tableName, filters, limit, offset)
	if err != nil {
		return errorResult(err.Error())
	}
	result, err := s.query(ctx, stmt, args)
	if err != nil {
		return errorResult(err.Error())
	}
	return formatResult(recordsResult{
		Status:  statusSuccess,
		Count:   len(result.records),
		Records: result.records,
	})
}

func (s *Server) updateRecord(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tableName, err := request.RequireString("table_name")
	if err != nil {
		return errorResult(err.Error())
	}
	recordID, err := anyArgument(request, "record_id")
	if err != nil {
		return errorResult(err.Error())
	}
	data, err := objectArgument(request, "data")
	if err != nil {
		return errorResult(err.Error())
	}
	idColumn := request.GetString("id_column", defaults.IDColumn)

	if !s.cfg.Policy.Authorize(tableName, policy.OperationUpdate, append(columnsOf(data), idColumn)) {
		return errorResultf("Access denied for updating record in table '%s' with the specified columns", tableName)
	}

	stmt, args, err := db.BuildUpdate(tableName, data, idColumn, recordID)
	if err != nil {
		return errorResult(err.Error())
	}
	result, err := s.query(ctx, stmt, args)
	if err != nil {
		return errorResult(err.Error())
	}
	if len(result.records) == 0 {
		return errorResultf("Record with %s=%v not found in table '%s'", idColumn, recordID, tableName)
	}
	return formatResult(recordResult{
		Status:  statusSuccess,
		Message: fmt.Sprintf("Record updated in table '%s'", tableName),
		Record:  result.records[0],
	})
}

func (s *Server) deleteRecord(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tableName, err := request.RequireString("table_name")
	if err != nil {
		return errorResult(err.Error())
	}
	recordID, err := anyArgument(request, "record_id")
	if err != nil {
		return errorResult(err.Error())
	}
	idColumn := request.GetString("id_column", defaults.IDColumn)

	if !s.cfg.Policy.Authorize(tableName, policy.OperationDelete, []string{idColumn}) {
		return errorResultf("Access denied for deleting from table '%s'", tableName)
	}

	stmt, args, err := db.BuildDelete(tableName, idColumn, recordID)
	if err != nil {
		return errorResult(err.Error())
	}
	result, err := s.query(ctx, stmt, args)
	if err != nil {
		return errorResult(err.Error())
	}
	if len(result.records) == 0 {
		return errorResultf("Record with %s=%v not found in table '%s'", idColumn, recordID, tableName)
	}
	return formatResult(messageResult{
		Status:  statusSuccess,
		Message: fmt.Sprintf("Record with %s=%v deleted from table '%s'", idColumn, recordID, tableName),
	})
}

// executeQuery runs an arbitrary statement. It deliberately skips the
// access policy, the privileges of the database user are the only limit.
func (s *Server) executeQuery(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil {
		return errorResult(err.Error())
	}
	params, err := arrayArgument(request, "params")
	if err != nil {
		return errorResult(err.Error())
	}

	result, err := s.query(ctx, query, params)
	if err != nil {
		return errorResult(err.Error())
	}
	// Statements that produce no result columns report the affected row
	// count instead of an empty record list.
	if result.columns == 0 {
		return formatResult(messageResult{
			Status:  statusSuccess,
			Message: fmt.Sprintf("Query executed successfully. %d rows affected.", result.tag.RowsAffected()),
		})
	}
	return formatResult(recordsResult{
		Status:  statusSuccess,
		Count:   len(result.records),
		Records: result.records,
	})
}

func (s *Server) getTableSchema(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tableName, err := request.RequireString("table_name")
	if err != nil {
		return errorResult(err.Error())
	}
	if !s.cfg.Policy.Authorize(tableName, policy.OperationRead, nil) {
		return errorResultf("Access denied for reading schema of table '%s'", tableName)
	}

	conn, err := s.cfg.Connector.Connect(ctx)
	if err != nil {
		return errorResult(err.Error())
	}
	defer func() {
		if err := conn.Close(ctx); err != nil {
			s.cfg.Log.DebugContext(ctx, "Failed to close database connection", "error", err)
		}
	}()

	columns, err := db.TableColumns(ctx, conn, tableName)
	if err != nil {
		return errorResult(err.Error())
	}
	primaryKeys, err := db.TablePrimaryKeys(ctx, conn, tableName)
	if err != nil {
		return errorResult(err.Error())
	}
	return formatResult(schemaResult{
		Status:      statusSuccess,
		TableName:   tableName,
		Columns:     columns,
		PrimaryKeys: primaryKeys,
	})
}

// queryOutcome carries everything a handler needs from a single statement
// execution.
type queryOutcome struct {
	records []map[string]any
	columns int
	tag     pgconn.CommandTag
}

// query runs a single statement on a fresh connection and drains its
// result. The connection is closed before returning.
func (s *Server) query(ctx context.Context, stmt string, args []any) (*queryOutcome, error) {
	conn, err := s.cfg.Connector.Connect(ctx)
	if err != nil {
		return nil, trace.Wrap(err)
	}
	defer func() {
		if err := conn.Close(ctx); err != nil {
			s.cfg.Log.DebugContext(ctx, "Failed to close database connection", "error", err)
		}
	}()

	rows, err := conn.Query(ctx, stmt, args...)
	if err != nil {
		return nil, trace.Wrap(err)
	}
	outcome := &queryOutcome{columns: len(rows.FieldDescriptions())}
	outcome.records, err = db.CollectRecords(rows)
	if err != nil {
		return nil, trace.Wrap(err)
	}
	outcome.tag = rows.CommandTag()
	return outcome, nil
}

// objectArgument returns the named argument as an object.
func objectArgument(request mcp.CallToolRequest, name string) (map[string]any, error) {
	raw, ok := request.GetArguments()[name]
	if !ok || raw == nil {
		return nil, trace.BadParameter("required argument %q not found", name)
	}
	object, ok := raw.(map[string]any)
	if !ok {
		return nil, trace.BadParameter("argument %q must be an object", name)
	}
	return object, nil
}

// objectArgumentOptional is objectArgument for arguments that may be left
// out. A missing argument yields an empty object.
func objectArgumentOptional(request mcp.CallToolRequest, name string) (map[string]any, error) {
	if raw, ok := request.GetArguments()[name]; !ok || raw == nil {
		return map[string]any{}, nil
	}
	return objectArgument(request, name)
}

// anyArgument returns the named argument with its decoded JSON type
// preserved.
func anyArgument(request mcp.CallToolRequest, name string) (any, error) {
	raw, ok := request.GetArguments()[name]
	if !ok || raw == nil {
		return nil, trace.BadParameter("required argument %q not found", name)
	}
	return raw, nil
}

// arrayArgument returns the named argument as an array. A missing
// argument yields nil.
func arrayArgument(request mcp.CallToolRequest, name string) ([]any, error) {
	raw, ok := request.GetArguments()[name]
	if !ok || raw == nil {
		return nil, nil
	}
	array, ok := raw.([]any)
	if !ok {
		return nil, trace.BadParameter("argument %q must be an array", name)
	}
	return array, nil
}

// intArgument returns the named argument as an integer, tolerating the
// float64 values JSON decoding produces. Fractional values are rejected
// rather than truncated.
func intArgument(request mcp.CallToolRequest, name string, fallback int) (int, error) {
	raw, ok := request.GetArguments()[name]
	if !ok || raw == nil {
		return fallback, nil
	}
	switch value := raw.(type) {
	case int:
		return value, nil
	case int64:
		return int(value), nil
	case float64:
		if value != math.Trunc(value) {
			return 0, trace.BadParameter("argument %q must be an integer", name)
		}
		return int(value), nil
	default:
		return 0, trace.BadParameter("argument %q must be an integer", name)
	}
}

// columnsOf lists the column names of a record payload in sorted order.
func columnsOf(data map[string]any) []string {
	return slices.Sorted(maps.Keys(data))
}
