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

// Package policy implements the table access policy enforced by the
// database tools.
//
// A policy is a list of table entries loaded once from the configuration
// file. Each entry names a table, the operations allowed on it and,
// optionally, the exact set of columns tools may reference. Authorization
// is a pure in-memory check and never reaches the database.
package policy

import (
	"slices"

	"github.com/gravitational/trace"
)

// Operation is a CRUD operation gated by the access policy.
type Operation string

const (
	// OperationCreate inserts new records.
	OperationCreate Operation = "create"
	// OperationRead selects existing records.
	OperationRead Operation = "read"
	// OperationUpdate modifies existing records.
	OperationUpdate Operation = "update"
	// OperationDelete removes existing records.
	OperationDelete Operation = "delete"
)

// Operations returns every operation a table policy can allow, in
// canonical order.
func Operations() []Operation {
	return []Operation{OperationCreate, OperationRead, OperationUpdate, OperationDelete}
}

// TablePolicy describes what tools may do with a single table.
type TablePolicy struct {
	// Name is the table name.
	Name string
	// AllowedOperations lists the operations allowed on the table. A nil
	// slice allows all operations, a declared empty list allows none.
	AllowedOperations []Operation
	// AllowedColumns restricts the columns tools may reference. A nil
	// slice leaves columns unrestricted. A declared list, even an empty
	// one, allows exactly the named columns.
	AllowedColumns []string
}

// operations returns the effective operation set of the table.
func (t TablePolicy) operations() []Operation {
	if t.AllowedOperations == nil {
		return Operations()
	}
	return t.AllowedOperations
}

// AccessPolicy is an immutable set of table policies shared by all tool
// handlers.
type AccessPolicy struct {
	tables []TablePolicy
	byName map[string]int
}

// NewAccessPolicy validates the table policies and builds the access
// policy over them.
func NewAccessPolicy(tables []TablePolicy) (*AccessPolicy, error) {
	p := &AccessPolicy{
		tables: slices.Clone(tables),
		byName: make(map[string]int, len(tables)),
	}
	for i, table := range p.tables {
		if table.Name == "" {
			return nil, trace.BadParameter("table policy #%v is missing a name", i+1)
		}
		if _, ok := p.byName[table.Name]; ok {
			return nil, trace.BadParameter("table %q is declared more than once", table.Name)
		}
		for _, op := range table.AllowedOperations {
			if !slices.Contains(Operations(), op) {
				return nil, trace.BadParameter("table %q allows unknown operation %q", table.Name, op)
			}
		}
		p.byName[table.Name] = i
	}
	return p, nil
}

// Authorize reports whether the operation is allowed on the table with the
// given columns. Columns are consulted only when the table declares an
// allowed column set; pass nil for operations that do not reference
// specific columns.
func (p *AccessPolicy) Authorize(table string, op Operation, columns []string) bool {
	tablePolicy, ok := p.Lookup(table)
	if !ok {
		return false
	}
	if !slices.Contains(tablePolicy.operations(), op) {
		return false
	}
	if len(columns) > 0 && tablePolicy.AllowedColumns != nil {
		for _, column := range columns {
			if !slices.Contains(tablePolicy.AllowedColumns, column) {
				return false
			}
		}
	}
	return true
}

// Lookup returns the policy declared for the table.
func (p *AccessPolicy) Lookup(table string) (TablePolicy, bool) {
	i, ok := p.byName[table]
	if !ok {
		return TablePolicy{}, false
	}
	return p.tables[i], true
}

// Tables returns the table policies in declaration order with defaults
// expanded: the operation list is never nil and the column list is empty
// rather than nil when the table is unrestricted.
func (p *AccessPolicy) Tables() []TablePolicy {
	out := make([]TablePolicy, 0, len(p.tables))
	for _, table := range p.tables {
		expanded := TablePolicy{
			Name:              table.Name,
			AllowedOperations: table.operations(),
			AllowedColumns:    table.AllowedColumns,
		}
		if expanded.AllowedColumns == nil {
			expanded.AllowedColumns = []string{}
		}
		out = append(out, expanded)
	}
	return out
}
