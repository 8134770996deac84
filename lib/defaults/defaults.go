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

// Package defaults contains default constants set in various parts of
// the pgmcp codebase.
package defaults

import "time"

const (
	// ConfigFilePath is the default path of the pgmcp configuration file.
	ConfigFilePath = "/etc/pgmcp.yaml"

	// PostgresPort is the default PostgreSQL server port.
	PostgresPort = 5432

	// PostgresHost is the default PostgreSQL server host.
	PostgresHost = "localhost"

	// PostgresUser is the default database user.
	PostgresUser = "postgres"
)

const (
	// ReadLimit is the default maximum number of records returned by a
	// single read.
	ReadLimit = 100

	// IDColumn is the default name of the identifier column used when
	// updating and deleting records.
	IDColumn = "id"
)

const (
	// DatabaseConnectTimeout is how long to wait for a database connection
	// to be established before giving up.
	DatabaseConnectTimeout = time.Minute

	// DiagnosticsShutdownTimeout is how long the diagnostics service is
	// given to finish in-flight requests on shutdown.
	DiagnosticsShutdownTimeout = 5 * time.Second

	// DiagnosticsReadHeaderTimeout limits how long the diagnostics service
	// waits for request headers.
	DiagnosticsReadHeaderTimeout = 10 * time.Second
)
