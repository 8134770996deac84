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
	"context"
	"fmt"

	"github.com/gravitational/trace"
)

// Statements used by the table schema tool. Column listings come from
// information_schema, primary keys from the pg_index catalog. The table
// name is always bound, never spliced.
const (
	columnsQuery = "SELECT column_name, data_type, is_nullable, column_default " +
		"FROM information_schema.columns " +
		"WHERE table_name = $1 " +
		"ORDER BY ordinal_position"

	primaryKeysQuery = "SELECT a.attname AS column_name " +
		"FROM pg_index i " +
		"JOIN pg_attribute a ON a.attrelid = i.indrelid AND a.attnum = ANY(i.indkey) " +
		"WHERE i.indrelid = $1::regclass AND i.indisprimary"
)

// TableColumns returns one record per table column carrying its name, data
// type, nullability and default value, in ordinal position order.
func TableColumns(ctx context.Context, conn Conn, table string) ([]map[string]any, error) {
	rows, err := conn.Query(ctx, columnsQuery, table)
	if err != nil {
		return nil, trace.Wrap(err)
	}
	records, err := CollectRecords(rows)
	return records, trace.Wrap(err)
}

// TablePrimaryKeys returns the names of the table's primary key columns.
func TablePrimaryKeys(ctx context.Context, conn Conn, table string) ([]string, error) {
	rows, err := conn.Query(ctx, primaryKeysQuery, table)
	if err != nil {
		return nil, trace.Wrap(err)
	}
	records, err := CollectRecords(rows)
	if err != nil {
		return nil, trace.Wrap(err)
	}
	keys := make([]string, 0, len(records))
	for _, record := range records {
		keys = append(keys, fmt.Sprintf("%v", record["column_name"]))
	}
	return keys, nil
}
