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

package db

import (
	"fmt"
	"maps"
	"regexp"
	"slices"
	"strings"

	"github.com/gravitational/trace"
)

// maxIdentifierLength is PostgreSQL's NAMEDATALEN-1.
const maxIdentifierLength = 63

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_$]*$`)

// ValidateIdentifier checks that name can be safely spliced into a
// statement as a table or column identifier: plain PostgreSQL identifier
// syntax, at most 63 bytes. Quoted identifiers are not supported.
func ValidateIdentifier(name string) error {
	if name == "" {
		return trace.BadParameter("empty identifier")
	}
	if len(name) > maxIdentifierLength {
		return trace.BadParameter("identifier %q is longer than %v bytes", name, maxIdentifierLength)
	}
	if !identifierPattern.MatchString(name) {
		return trace.BadParameter("invalid identifier %q", name)
	}
	return nil
}

// BuildInsert builds an INSERT statement returning the complete created
// row. Columns are listed in sorted order with one positional placeholder
// each.
func BuildInsert(table string, data map[string]any) (string, []any, error) {
	if err := ValidateIdentifier(table); err != nil {
		return "", nil, trace.Wrap(err)
	}
	if len(data) == 0 {
		return "", nil, trace.BadParameter("no columns to insert")
	}
	columns := slices.Sorted(maps.Keys(data))
	placeholders := make([]string, 0, len(columns))
	args := make([]any, 0, len(columns))
	for i, column := range columns {
		if err := ValidateIdentifier(column); err != nil {
			return "", nil, trace.Wrap(err)
		}
		placeholders = append(placeholders, fmt.Sprintf("$%d", i+1))
		args = append(args, data[column])
	}
	stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING *",
		table, strings.Join(columns, ", "), strings.Join(placeholders, ", "))
	return stmt, args, nil
}

// BuildSelect builds a SELECT statement over the table with equality
// filters joined by AND. Limit and offset are spliced as integer literals
// and must not be negative.
func BuildSelect(table string, filters map[string]any, limit, offset int) (string, []any, error) {
	if err := ValidateIdentifier(table); err != nil {
		return "", nil, trace.Wrap(err)
	}
	if limit < 0 {
		return "", nil, trace.BadParameter("limit must not be negative")
	}
	if offset < 0 {
		return "", nil, trace.BadParameter("offset must not be negative")
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "SELECT * FROM %s", table)
	args := make([]any, 0, len(filters))
	if len(filters) > 0 {
		conditions := make([]string, 0, len(filters))
		for _, column := range slices.Sorted(maps.Keys(filters)) {
			if err := ValidateIdentifier(column); err != nil {
				return "", nil, trace.Wrap(err)
			}
			conditions = append(conditions, fmt.Sprintf("%s = $%d", column, len(args)+1))
			args = append(args, filters[column])
		}
		fmt.Fprintf(&sb, " WHERE %s", strings.Join(conditions, " AND "))
	}
	fmt.Fprintf(&sb, " LIMIT %d OFFSET %d", limit, offset)
	return sb.String(), args, nil
}

// BuildUpdate builds an UPDATE statement matching a single record by its
// identifier column and returning the complete updated row.
func BuildUpdate(table string, data map[string]any, idColumn string, recordID any) (string, []any, error) {
	if err := ValidateIdentifier(table); err != nil {
		return "", nil, trace.Wrap(err)
	}
	if err := ValidateIdentifier(idColumn); err != nil {
		return "", nil, trace.Wrap(err)
	}
	if len(data) == 0 {
		return "", nil, trace.BadParameter("no columns to update")
	}
	columns := slices.Sorted(maps.Keys(data))
	assignments := make([]string, 0, len(columns))
	args := make([]any, 0, len(columns)+1)
	for i, column := range columns {
		if err := ValidateIdentifier(column); err != nil {
			return "", nil, trace.Wrap(err)
		}
		assignments = append(assignments, fmt.Sprintf("%s = $%d", column, i+1))
		args = append(args, data[column])
	}
	args = append(args, recordID)
	stmt := fmt.Sprintf("UPDATE %s SET %s WHERE %s = $%d RETURNING *",
		table, strings.Join(assignments, ", "), idColumn, len(args))
	return stmt, args, nil
}

// BuildDelete builds a DELETE statement matching a single record by its
// identifier column. Only the identifier of the removed record is
// returned.
func BuildDelete(table, idColumn string, recordID any) (string, []any, error) {
	if err := ValidateIdentifier(table); err != nil {
		return "", nil, trace.Wrap(err)
	}
	if err := ValidateIdentifier(idColumn); err != nil {
		return "", nil, trace.Wrap(err)
	}
	stmt := fmt.Sprintf("DELETE FROM %s WHERE %s = $1 RETURNING %s", table, idColumn, idColumn)
	return stmt, []any{recordID}, nil
}
