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

package srv

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestServerConfigCheckAndSetDefaults(t *testing.T) {
	t.Run("missing policy", func(t *testing.T) {
		cfg := ServerConfig{Connector: &fakeConnector{}}
		require.ErrorContains(t, cfg.CheckAndSetDefaults(), "missing Policy")
	})

	t.Run("missing connector", func(t *testing.T) {
		cfg := ServerConfig{Policy: emptyPolicy(t)}
		require.ErrorContains(t, cfg.CheckAndSetDefaults(), "missing Connector")
	})

	t.Run("defaults", func(t *testing.T) {
		cfg := ServerConfig{
			Policy:    emptyPolicy(t),
			Connector: &fakeConnector{},
		}
		require.NoError(t, cfg.CheckAndSetDefaults())
		require.NotNil(t, cfg.Log)
		require.NotNil(t, cfg.Clock)
	})
}

func TestNewServerRegistersMetricsOnce(t *testing.T) {
	// Building a second server must not fail on duplicate collectors.
	for range 2 {
		server := newTestServer(t, testPolicy(t), &fakeConnector{})
		require.NotEmpty(t, server.sessionID)
	}
}

func TestListenStdio(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	server := newTestServer(t, testPolicy(t), &fakeConnector{conn: &fakeConn{t: t}})

	clientConn, serverConn := net.Pipe()
	t.Cleanup(func() {
		clientConn.Close()
		serverConn.Close()
	})
	require.NoError(t, clientConn.SetDeadline(time.Now().Add(10*time.Second)))

	serveDone := make(chan error, 1)
	go func() {
		serveDone <- server.ListenStdio(ctx, serverConn, serverConn)
	}()

	client := bufio.NewReader(clientConn)
	send := func(line string) {
		t.Helper()
		_, err := fmt.Fprintln(clientConn, line)
		require.NoError(t, err)
	}
	receive := func() string {
		t.Helper()
		line, err := client.ReadString('\n')
		require.NoError(t, err)
		return line
	}

	send(`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2025-03-26","capabilities":{},"clientInfo":{"name":"test-client","version":"1.0.0"}}}`)
	initResponse := receive()
	require.Contains(t, initResponse, `"serverInfo"`)
	require.Contains(t, initResponse, `"pgmcp"`)

	send(`{"jsonrpc":"2.0","method":"notifications/initialized"}`)

	send(`{"jsonrpc":"2.0","id":2,"method":"tools/list"}`)
	toolsList := receive()
	for _, tool := range []string{
		listTablesToolName,
		createRecordToolName,
		readRecordsToolName,
		updateRecordToolName,
		deleteRecordToolName,
		executeQueryToolName,
		getTableSchemaToolName,
	} {
		require.Contains(t, toolsList, fmt.Sprintf("%q", tool))
	}

	send(`{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"list_tables"}}`)
	var response struct {
		Result struct {
			IsError bool `json:"isError"`
			Content []struct {
				Type string `json:"type"`
				Text string `json:"text"`
			} `json:"content"`
		} `json:"result"`
	}
	require.NoError(t, json.Unmarshal([]byte(receive()), &response))
	require.False(t, response.Result.IsError)
	require.Len(t, response.Result.Content, 1)
	require.Contains(t, response.Result.Content[0].Text, `"status":"success"`)
	require.Contains(t, response.Result.Content[0].Text, `"users"`)

	// Closing the client side of the pipe ends the session cleanly.
	require.NoError(t, clientConn.Close())
	select {
	case err := <-serveDone:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for the server to shut down")
	}
}
