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

// Package pgmcp defines constants shared across the pgmcp tool and libraries.
package pgmcp

const (
	// ComponentKey is the log field under which the emitting component is
	// recorded.
	ComponentKey = "component"

	// ComponentCLI is the pgmcp command line tool.
	ComponentCLI = "cli"

	// ComponentServer is the MCP server exposing the database tools.
	ComponentServer = "server"

	// ComponentDB is the database access layer.
	ComponentDB = "db"

	// ComponentDiag is the diagnostics HTTP service.
	ComponentDiag = "diag"
)

// MetricNamespace defines the namespace all Prometheus metrics of this
// project are exported under.
const MetricNamespace = "pgmcp"

const (
	// DebugEnvVar enables verbose logging when set to a true value.
	DebugEnvVar = "PGMCP_DEBUG"

	// DBPasswordEnvVar overrides the database password from the
	// configuration file so the file can be kept free of secrets.
	DBPasswordEnvVar = "PGMCP_DB_PASSWORD"
)
