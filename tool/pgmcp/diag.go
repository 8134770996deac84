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

package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gravitational/trace"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gravitational/pgmcp"
	"github.com/gravitational/pgmcp/lib/defaults"
	"github.com/gravitational/pgmcp/lib/logutils"
)

var diagLog = logutils.NewPackageLogger(pgmcp.ComponentKey, pgmcp.ComponentDiag)

// diagnosticsHandler serves the diagnostics endpoints.
func diagnosticsHandler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "OK")
	})
	return mux
}

// serveDiagnostics serves /metrics and /healthz at the given address until
// the context is cancelled, then shuts the listener down gracefully.
func serveDiagnostics(ctx context.Context, addr string) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           diagnosticsHandler(),
		ReadHeaderTimeout: defaults.DiagnosticsReadHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()
	diagLog.InfoContext(ctx, "Diagnostics service started", "listen_addr", addr)

	select {
	case err := <-errCh:
		return trace.Wrap(err)
	case <-ctx.Done():
	}

	diagLog.InfoContext(ctx, "Shutting down diagnostics service")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), defaults.DiagnosticsShutdownTimeout)
	defer cancel()
	return trace.Wrap(server.Shutdown(shutdownCtx))
}
