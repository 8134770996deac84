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

// Package db provides PostgreSQL access for the MCP database tools: a
// per-call connector, statement builders for the gated CRUD operations and
// helpers shaping pgx rows into JSON friendly records.
package db

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/gravitational/trace"
	"github.com/jackc/pgx/v5"
)

// ConnConfig holds the PostgreSQL connection parameters shared by every
// tool call.
type ConnConfig struct {
	// Host is the database server host.
	Host string
	// Port is the database server port.
	Port int
	// Database is the name of the database to connect to.
	Database string
	// User is the database user.
	User string
	// Password is the database password.
	Password string
	// SSLMode is passed to the driver when set.
	SSLMode string
	// ConnectTimeout bounds connection establishment.
	ConnectTimeout time.Duration
}

const (
	// applicationNameParamName defines the application name parameter name.
	//
	// https://www.postgresql.org/docs/17/libpq-connect.html#LIBPQ-CONNECT-APPLICATION-NAME
	applicationNameParamName = "application_name"
	// applicationNameParamValue defines the application name parameter value.
	applicationNameParamValue = "pgmcp"
)

// Conn is the subset of *pgx.Conn the tool handlers use. Every statement,
// including the ones that only report affected rows, runs through Query.
type Conn interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Close(ctx context.Context) error
}

// Connector opens database connections. Tool handlers open a fresh
// connection per call and close it before returning, there is no pooling.
type Connector interface {
	Connect(ctx context.Context) (Conn, error)
}

// NewConnector returns a Connector establishing pgx connections with the
// given parameters.
func NewConnector(config ConnConfig) Connector {
	return &pgxConnector{config: config}
}

type pgxConnector struct {
	config ConnConfig
}

func (c *pgxConnector) Connect(ctx context.Context) (Conn, error) {
	pgxConfig, err := buildConfig(c.config)
	if err != nil {
		return nil, trace.Wrap(err)
	}
	conn, err := pgx.ConnectConfig(ctx, pgxConfig)
	if err != nil {
		return nil, trace.Wrap(err)
	}
	return conn, nil
}

func buildConfig(config ConnConfig) (*pgx.ConnConfig, error) {
	connString := fmt.Sprintf("postgres://%s", net.JoinHostPort(config.Host, strconv.Itoa(config.Port)))
	if config.SSLMode != "" {
		connString = fmt.Sprintf("%s?sslmode=%s", connString, url.QueryEscape(config.SSLMode))
	}
	pgxConfig, err := pgx.ParseConfig(connString)
	if err != nil {
		return nil, trace.Wrap(err)
	}
	pgxConfig.User = config.User
	pgxConfig.Password = config.Password
	pgxConfig.Database = config.Database
	pgxConfig.ConnectTimeout = config.ConnectTimeout
	pgxConfig.RuntimeParams = map[string]string{
		applicationNameParamName: applicationNameParamValue,
	}
	return pgxConfig, nil
}
