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
	"github.com/gravitational/trace"
	"github.com/jackc/pgx/v5"
)

// CollectRecords drains rows into one map per row keyed by column name.
// The returned slice is never nil so that empty result sets marshal to
// JSON as [] rather than null. Byte slice values become strings, otherwise
// they would marshal as base64. Statement execution errors surface here
// through rows.Err, with the driver message preserved.
func CollectRecords(rows pgx.Rows) ([]map[string]any, error) {
	defer rows.Close()

	columns := rows.FieldDescriptions()
	records := []map[string]any{}
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, trace.Wrap(err)
		}
		record := make(map[string]any, len(values))
		for i, value := range values {
			if raw, ok := value.([]byte); ok {
				value = string(raw)
			}
			record[columns[i].Name] = value
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, trace.Wrap(err)
	}
	return records, nil
}
