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
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidateIdentifier(t *testing.T) {
	for name, tc := range map[string]struct {
		identifier string
		assertErr  require.ErrorAssertionFunc
	}{
		"plain name": {
			identifier: "users",
			assertErr:  require.NoError,
		},
		"leading underscore": {
			identifier: "_tmp",
			assertErr:  require.NoError,
		},
		"digits and dollar": {
			identifier: "col1$",
			assertErr:  require.NoError,
		},
		"max length": {
			identifier: strings.Repeat("a", 63),
			assertErr:  require.NoError,
		},
		"empty": {
			identifier: "",
			assertErr:  require.Error,
		},
		"too long": {
			identifier: strings.Repeat("a", 64),
			assertErr:  require.Error,
		},
		"leading digit": {
			identifier: "1users",
			assertErr:  require.Error,
		},
		"embedded space": {
			identifier: "user names",
			assertErr:  require.Error,
		},
		"hyphen": {
			identifier: "user-names",
			assertErr:  require.Error,
		},
		"quoted": {
			identifier: `"users"`,
			assertErr:  require.Error,
		},
		"statement injection": {
			identifier: "users; DROP TABLE users",
			assertErr:  require.Error,
		},
		"non ascii": {
			identifier: "usuários",
			assertErr:  require.Error,
		},
	} {
		t.Run(name, func(t *testing.T) {
			tc.assertErr(t, ValidateIdentifier(tc.identifier))
		})
	}
}

func TestBuildInsert(t *testing.T) {
	for name, tc := range map[string]struct {
		table        string
		data         map[string]any
		expectedStmt string
		expectedArgs []any
		assertErr    require.ErrorAssertionFunc
	}{
		"single column": {
			table:        "users",
			data:         map[string]any{"email": "alice@example.com"},
			expectedStmt: "INSERT INTO users (email) VALUES ($1) RETURNING *",
			expectedArgs: []any{"alice@example.com"},
			assertErr:    require.NoError,
		},
		"columns are sorted": {
			table:        "users",
			data:         map[string]any{"username": "alice", "age": 30, "email": "alice@example.com"},
			expectedStmt: "INSERT INTO users (age, email, username) VALUES ($1, $2, $3) RETURNING *",
			expectedArgs: []any{30, "alice@example.com", "alice"},
			assertErr:    require.NoError,
		},
		"empty data": {
			table:     "users",
			data:      map[string]any{},
			assertErr: require.Error,
		},
		"invalid table": {
			table:     "users; DROP TABLE users",
			data:      map[string]any{"email": "x"},
			assertErr: require.Error,
		},
		"invalid column": {
			table:     "users",
			data:      map[string]any{"email, password": "x"},
			assertErr: require.Error,
		},
	} {
		t.Run(name, func(t *testing.T) {
			stmt, args, err := BuildInsert(tc.table, tc.data)
			tc.assertErr(t, err)
			if err != nil {
				return
			}
			require.Equal(t, tc.expectedStmt, stmt)
			require.Equal(t, tc.expectedArgs, args)
		})
	}
}

func TestBuildSelect(t *testing.T) {
	for name, tc := range map[string]struct {
		table         string
		filters       map[string]any
		limit, offset int
		expectedStmt  string
		expectedArgs  []any
		assertErr     require.ErrorAssertionFunc
	}{
		"no filters": {
			table:        "users",
			limit:        100,
			expectedStmt: "SELECT * FROM users LIMIT 100 OFFSET 0",
			expectedArgs: []any{},
			assertErr:    require.NoError,
		},
		"filters are sorted and joined by AND": {
			table:        "users",
			filters:      map[string]any{"username": "alice", "active": true},
			limit:        10,
			offset:       5,
			expectedStmt: "SELECT * FROM users WHERE active = $1 AND username = $2 LIMIT 10 OFFSET 5",
			expectedArgs: []any{true, "alice"},
			assertErr:    require.NoError,
		},
		"empty filters add no WHERE clause": {
			table:        "users",
			filters:      map[string]any{},
			limit:        100,
			expectedStmt: "SELECT * FROM users LIMIT 100 OFFSET 0",
			expectedArgs: []any{},
			assertErr:    require.NoError,
		},
		"negative limit": {
			table:     "users",
			limit:     -1,
			assertErr: require.Error,
		},
		"negative offset": {
			table:     "users",
			limit:     100,
			offset:    -5,
			assertErr: require.Error,
		},
		"invalid filter column": {
			table:     "users",
			filters:   map[string]any{"username = '' OR 1=1 --": "x"},
			limit:     100,
			assertErr: require.Error,
		},
	} {
		t.Run(name, func(t *testing.T) {
			stmt, args, err := BuildSelect(tc.table, tc.filters, tc.limit, tc.offset)
			tc.assertErr(t, err)
			if err != nil {
				return
			}
			require.Equal(t, tc.expectedStmt, stmt)
			require.Equal(t, tc.expectedArgs, args)
		})
	}
}

func TestBuildUpdate(t *testing.T) {
	for name, tc := range map[string]struct {
		table        string
		data         map[string]any
		idColumn     string
		recordID     any
		expectedStmt string
		expectedArgs []any
		assertErr    require.ErrorAssertionFunc
	}{
		"assignments are sorted, identifier is bound last": {
			table:        "users",
			data:         map[string]any{"username": "bob", "email": "bob@example.com"},
			idColumn:     "id",
			recordID:     7,
			expectedStmt: "UPDATE users SET email = $1, username = $2 WHERE id = $3 RETURNING *",
			expectedArgs: []any{"bob@example.com", "bob", 7},
			assertErr:    require.NoError,
		},
		"custom identifier column": {
			table:        "users",
			data:         map[string]any{"email": "bob@example.com"},
			idColumn:     "user_id",
			recordID:     "abc",
			expectedStmt: "UPDATE users SET email = $1 WHERE user_id = $2 RETURNING *",
			expectedArgs: []any{"bob@example.com", "abc"},
			assertErr:    require.NoError,
		},
		"empty data": {
			table:     "users",
			data:      map[string]any{},
			idColumn:  "id",
			assertErr: require.Error,
		},
		"invalid identifier column": {
			table:     "users",
			data:      map[string]any{"email": "x"},
			idColumn:  "id = id OR 1=1",
			assertErr: require.Error,
		},
	} {
		t.Run(name, func(t *testing.T) {
			stmt, args, err := BuildUpdate(tc.table, tc.data, tc.idColumn, tc.recordID)
			tc.assertErr(t, err)
			if err != nil {
				return
			}
			require.Equal(t, tc.expectedStmt, stmt)
			require.Equal(t, tc.expectedArgs, args)
		})
	}
}

func TestBuildDelete(t *testing.T) {
	stmt, args, err := BuildDelete("users", "id", 7)
	require.NoError(t, err)
	require.Equal(t, "DELETE FROM users WHERE id = $1 RETURNING id", stmt)
	require.Equal(t, []any{7}, args)

	stmt, args, err = BuildDelete("orders", "order_id", "o-1")
	require.NoError(t, err)
	require.Equal(t, "DELETE FROM orders WHERE order_id = $1 RETURNING order_id", stmt)
	require.Equal(t, []any{"o-1"}, args)

	_, _, err = BuildDelete("orders", "order_id; --", 1)
	require.Error(t, err)

	_, _, err = BuildDelete("orders数", "order_id", 1)
	require.Error(t, err)
}
