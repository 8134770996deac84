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
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBuildConfig(t *testing.T) {
	pgxConfig, err := buildConfig(ConnConfig{
		Host:           "db.example.com",
		Port:           5433,
		Database:       "app",
		User:           "svc",
		Password:       "hunter2",
		ConnectTimeout: 10 * time.Second,
	})
	require.NoError(t, err)

	require.Equal(t, "db.example.com", pgxConfig.Host)
	require.Equal(t, uint16(5433), pgxConfig.Port)
	require.Equal(t, "app", pgxConfig.Database)
	require.Equal(t, "svc", pgxConfig.User)
	require.Equal(t, "hunter2", pgxConfig.Password)
	require.Equal(t, 10*time.Second, pgxConfig.ConnectTimeout)
	require.Equal(t, map[string]string{applicationNameParamName: applicationNameParamValue}, pgxConfig.RuntimeParams)
}

func TestBuildConfigSSLModeDisable(t *testing.T) {
	pgxConfig, err := buildConfig(ConnConfig{
		Host:     "localhost",
		Port:     5432,
		Database: "app",
		User:     "postgres",
		SSLMode:  "disable",
	})
	require.NoError(t, err)
	require.Nil(t, pgxConfig.TLSConfig)
}
