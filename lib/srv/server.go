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

// Package srv implements the MCP server that exposes policy gated
// database tools over stdio.
package srv

import (
	"context"
	"io"
	"log"
	"log/slog"

	"github.com/google/uuid"
	"github.com/gravitational/trace"
	"github.com/jonboulle/clockwork"
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/gravitational/pgmcp"
	"github.com/gravitational/pgmcp/lib/db"
	"github.com/gravitational/pgmcp/lib/policy"
)

// serverName identifies this implementation to MCP clients.
const serverName = "pgmcp"

// serverInstructions is advertised to MCP clients during initialize.
const serverInstructions = `This server exposes policy gated tools for a single PostgreSQL database.
Call list_tables first to learn which tables are reachable and which operations and columns each of them allows.
Use create_record, read_records, update_record and delete_record for routine work, every call is checked against the access policy.
execute_query runs arbitrary SQL without any policy checks, reach for it only when no other tool fits.
Every tool replies with a JSON envelope whose status field is either "success" or "error".`

// ServerConfig is the configuration of the database tools server.
type ServerConfig struct {
	// Policy is the table access policy enforced on the record tools.
	Policy *policy.AccessPolicy
	// Connector opens the database connection used by a single tool call.
	Connector db.Connector
	// Log emits the server logs. Defaults to the server component logger.
	Log *slog.Logger
	// Clock measures tool call durations. Defaults to the real clock.
	Clock clockwork.Clock
}

// CheckAndSetDefaults validates the config and fills in the defaults.
func (c *ServerConfig) CheckAndSetDefaults() error {
	if c.Policy == nil {
		return trace.BadParameter("missing Policy")
	}
	if c.Connector == nil {
		return trace.BadParameter("missing Connector")
	}
	if c.Log == nil {
		c.Log = slog.With(pgmcp.ComponentKey, pgmcp.ComponentServer)
	}
	if c.Clock == nil {
		c.Clock = clockwork.NewRealClock()
	}
	return nil
}

// Server serves the database tools over the MCP protocol.
type Server struct {
	cfg       ServerConfig
	sessionID string
}

// NewServer creates a Server from the given config and registers the
// server metrics.
func NewServer(cfg ServerConfig) (*Server, error) {
	if err := cfg.CheckAndSetDefaults(); err != nil {
		return nil, trace.Wrap(err)
	}
	if err := RegisterCollectors(); err != nil {
		return nil, trace.Wrap(err)
	}
	server := &Server{
		cfg:       cfg,
		sessionID: uuid.NewString(),
	}
	server.cfg.Log = cfg.Log.With("session_id", server.sessionID)
	return server, nil
}

// NewMCPServer builds the underlying MCP server with all tools
// registered.
func (s *Server) NewMCPServer() *mcpserver.MCPServer {
	server := mcpserver.NewMCPServer(
		serverName,
		pgmcp.Version,
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithRecovery(),
		mcpserver.WithInstructions(serverInstructions),
	)
	s.RegisterTools(server)
	return server
}

// RegisterTools adds the database tools to the given MCP server.
func (s *Server) RegisterTools(server *mcpserver.MCPServer) {
	server.AddTool(listTablesTool, s.recordCall(listTablesToolName, s.listTables))
	server.AddTool(createRecordTool, s.recordCall(createRecordToolName, s.createRecord))
	server.AddTool(readRecordsTool, s.recordCall(readRecordsToolName, s.readRecords))
	server.AddTool(updateRecordTool, s.recordCall(updateRecordToolName, s.updateRecord))
	server.AddTool(deleteRecordTool, s.recordCall(deleteRecordToolName, s.deleteRecord))
	server.AddTool(executeQueryTool, s.recordCall(executeQueryToolName, s.executeQuery))
	server.AddTool(getTableSchemaTool, s.recordCall(getTableSchemaToolName, s.getTableSchema))
}

// ListenStdio serves the MCP server on the given streams until the
// context is closed or the input reaches EOF.
func (s *Server) ListenStdio(ctx context.Context, in io.Reader, out io.Writer) error {
	stdioServer := mcpserver.NewStdioServer(s.NewMCPServer())
	// Protocol level errors are already reported to the client. Drop the
	// unstructured duplicates so stderr stays line delimited JSON.
	stdioServer.SetErrorLogger(log.New(io.Discard, "", log.LstdFlags))
	s.cfg.Log.InfoContext(ctx, "Serving database tools over stdio")
	return trace.Wrap(stdioServer.Listen(ctx, in, out))
}

// toolHandler is the signature shared by all tool handlers.
type toolHandler = mcpserver.ToolHandlerFunc

// recordCall wraps a tool handler with request logging and metrics.
func (s *Server) recordCall(tool string, handler toolHandler) toolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		logger := s.cfg.Log.With("tool", tool)
		if table := request.GetString("table_name", ""); table != "" {
			logger = logger.With("table", table)
		}
		logger.DebugContext(ctx, "Handling tool request")
		start := s.cfg.Clock.Now()
		result, err := handler(ctx, request)

		status := statusSuccess
		if err != nil || (result != nil && result.IsError) {
			status = statusError
		}
		elapsed := s.cfg.Clock.Since(start)
		toolRequests.WithLabelValues(tool, status).Inc()
		toolRequestDuration.WithLabelValues(tool).Observe(elapsed.Seconds())
		logger.InfoContext(ctx, "Completed tool request",
			"status", status,
			"duration", elapsed,
		)
		return result, err
	}
}
