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

// Package config reads and validates the pgmcp YAML configuration file.
package config

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/gravitational/trace"
	"gopkg.in/yaml.v3"

	"github.com/gravitational/pgmcp"
	"github.com/gravitational/pgmcp/lib/db"
	"github.com/gravitational/pgmcp/lib/defaults"
	"github.com/gravitational/pgmcp/lib/policy"
)

// FileConfig is the root of the pgmcp configuration file.
type FileConfig struct {
	// Database holds the connection parameters of the served database.
	Database Database `yaml:"database"`
	// Tables lists the tables the database tools may touch and what they
	// may do with them. Tables not listed here are denied entirely.
	Tables []Table `yaml:"tables,omitempty"`
}

// Database holds PostgreSQL connection parameters.
type Database struct {
	// Host is the database server host. Defaults to localhost.
	Host string `yaml:"host,omitempty"`
	// Port is the database server port. Defaults to 5432.
	Port int `yaml:"port,omitempty"`
	// DBName is the name of the database to connect to.
	DBName string `yaml:"dbname"`
	// User is the database user. Defaults to postgres.
	User string `yaml:"user,omitempty"`
	// Password is the database password. The PGMCP_DB_PASSWORD environment
	// variable takes precedence over this field.
	Password string `yaml:"password,omitempty"`
	// SSLMode is passed through to the driver when set, for example
	// "disable" or "verify-full".
	SSLMode string `yaml:"sslmode,omitempty"`
	// ConnectTimeout bounds how long to wait when establishing a
	// connection. Defaults to one minute.
	ConnectTimeout time.Duration `yaml:"connect_timeout,omitempty"`
}

// Table declares the access policy of a single table. Omitting
// allowed_operations allows all operations, omitting allowed_columns leaves
// columns unrestricted.
type Table struct {
	// Name is the table name.
	Name string `yaml:"name"`
	// AllowedOperations lists the allowed operations out of create, read,
	// update and delete.
	AllowedOperations []string `yaml:"allowed_operations,omitempty"`
	// AllowedColumns lists the exact columns tools may reference.
	AllowedColumns []string `yaml:"allowed_columns,omitempty"`
}

// ReadConfigFromFile reads and parses a YAML config from a file.
func ReadConfigFromFile(filePath string) (*FileConfig, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, trace.Wrap(err, fmt.Sprintf("failed to open file: %v", filePath))
	}
	defer f.Close()
	return ReadConfig(f)
}

// ReadConfig parses a YAML config file from a Reader. Unknown keys are
// rejected.
func ReadConfig(reader io.Reader) (*FileConfig, error) {
	var config FileConfig

	decoder := yaml.NewDecoder(reader)
	decoder.KnownFields(true)
	if err := decoder.Decode(&config); err != nil {
		return nil, trace.BadParameter("failed parsing config file: %s", strings.Replace(err.Error(), "\n", "", -1))
	}

	return &config, nil
}

// CheckAndSetDefaults checks the configuration and fills in defaults.
func (c *FileConfig) CheckAndSetDefaults() error {
	if c.Database.DBName == "" {
		return trace.BadParameter("missing database.dbname")
	}
	if c.Database.Host == "" {
		c.Database.Host = defaults.PostgresHost
	}
	if c.Database.Port == 0 {
		c.Database.Port = defaults.PostgresPort
	}
	if c.Database.Port < 1 || c.Database.Port > 65535 {
		return trace.BadParameter("database.port %v is out of range", c.Database.Port)
	}
	if c.Database.User == "" {
		c.Database.User = defaults.PostgresUser
	}
	if password := os.Getenv(pgmcp.DBPasswordEnvVar); password != "" {
		c.Database.Password = password
	}
	if c.Database.ConnectTimeout == 0 {
		c.Database.ConnectTimeout = defaults.DatabaseConnectTimeout
	}
	if c.Database.ConnectTimeout < 0 {
		return trace.BadParameter("database.connect_timeout must be positive")
	}
	return nil
}

// AccessPolicy builds the table access policy declared by the
// configuration.
func (c *FileConfig) AccessPolicy() (*policy.AccessPolicy, error) {
	tables := make([]policy.TablePolicy, 0, len(c.Tables))
	for _, table := range c.Tables {
		var operations []policy.Operation
		if table.AllowedOperations != nil {
			operations = make([]policy.Operation, 0, len(table.AllowedOperations))
			for _, op := range table.AllowedOperations {
				operations = append(operations, policy.Operation(op))
			}
		}
		tables = append(tables, policy.TablePolicy{
			Name:              table.Name,
			AllowedOperations: operations,
			AllowedColumns:    table.AllowedColumns,
		})
	}
	accessPolicy, err := policy.NewAccessPolicy(tables)
	return accessPolicy, trace.Wrap(err)
}

// ConnConfig returns the database connection parameters declared by the
// configuration.
func (c *FileConfig) ConnConfig() db.ConnConfig {
	return db.ConnConfig{
		Host:           c.Database.Host,
		Port:           c.Database.Port,
		Database:       c.Database.DBName,
		User:           c.Database.User,
		Password:       c.Database.Password,
		SSLMode:        c.Database.SSLMode,
		ConnectTimeout: c.Database.ConnectTimeout,
	}
}

// sampleFileConfig is the config file written by "pgmcp configure".
const sampleFileConfig = `# pgmcp configuration file.
# Move this file to ` + defaults.ConfigFilePath + ` or point pgmcp at it with
# "pgmcp start -c <path>".
database:
  host: "localhost"
  port: 5432
  dbname: "mydb"
  user: "postgres"
  # The password can also be supplied via the PGMCP_DB_PASSWORD environment
  # variable, which takes precedence over this field.
  password: ""
# Tables the MCP tools may touch. A table not listed here is denied
# entirely. Omit allowed_operations to allow create, read, update and
# delete. Omit allowed_columns to leave columns unrestricted.
tables:
  - name: "users"
    allowed_operations: ["read", "update"]
    allowed_columns: ["id", "username", "email"]
  - name: "events"
`

// SampleFileConfig returns a commented sample configuration file.
func SampleFileConfig() string {
	return sampleFileConfig
}
