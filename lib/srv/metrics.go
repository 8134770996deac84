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
	"github.com/gravitational/trace"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/gravitational/pgmcp"
)

var (
	// toolRequests counts handled tool requests by tool name and outcome.
	toolRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: pgmcp.MetricNamespace,
			Name:      "tool_requests_total",
			Help:      "Number of MCP tool requests handled, partitioned by tool and status.",
		},
		[]string{"tool", "status"},
	)

	// toolRequestDuration observes how long tool requests take.
	toolRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: pgmcp.MetricNamespace,
			Name:      "tool_request_duration_seconds",
			Help:      "Latency of MCP tool requests, partitioned by tool.",
		},
		[]string{"tool"},
	)
)

// RegisterCollectors registers the server metrics with the default
// Prometheus registry. Collectors that are already registered are left in
// place so multiple servers can share a process.
func RegisterCollectors() error {
	for _, collector := range []prometheus.Collector{toolRequests, toolRequestDuration} {
		if err := prometheus.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return trace.Wrap(err)
		}
	}
	return nil
}
