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
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/alecthomas/kingpin/v2"
	"github.com/gravitational/trace"
	"golang.org/x/sync/errgroup"

	"github.com/gravitational/pgmcp"
	"github.com/gravitational/pgmcp/lib/config"
	"github.com/gravitational/pgmcp/lib/db"
	"github.com/gravitational/pgmcp/lib/defaults"
	"github.com/gravitational/pgmcp/lib/logutils"
	"github.com/gravitational/pgmcp/lib/srv"
)

const appHelp = `pgmcp MCP server

pgmcp exposes a single PostgreSQL database to MCP clients over stdio. The
tools cover record CRUD, schema inspection and raw SQL execution, gated by
the per-table access policy declared in the configuration file.

Logs are written to stderr as JSON. Stdout carries the MCP transport and is
never logged to.`

var plog = logutils.NewPackageLogger(pgmcp.ComponentKey, pgmcp.ComponentCLI)

func main() {
	if err := Run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(1)
	}
}

// cliConfig holds application configuration derived from the CLI flags.
type cliConfig struct {
	// ConfigPath is the path of the pgmcp configuration file.
	ConfigPath string
	// Debug enables verbose logging.
	Debug bool
	// DiagAddr is the optional listen address of the diagnostics service.
	DiagAddr string
	// Output is the optional destination path of the generated sample
	// configuration.
	Output string
}

func Run(args []string) error {
	var ccfg cliConfig
	ctx := context.Background()
	ctx, _ = signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)

	app := kingpin.New("pgmcp", appHelp).Interspersed(false)
	app.Flag("debug", "Verbose logging to stderr.").
		Short('d').Envar(pgmcp.DebugEnvVar).BoolVar(&ccfg.Debug)
	app.HelpFlag.Short('h')

	versionCmd := app.Command("version", "Print the version of your pgmcp binary.")

	startCmd := app.Command("start", "Start the MCP server on stdin and stdout.")
	startCmd.Flag("config", "Path to the pgmcp configuration file.").
		Short('c').Default(defaults.ConfigFilePath).StringVar(&ccfg.ConfigPath)
	startCmd.Flag("diag-addr", "Also serve /healthz and /metrics at this address.").
		StringVar(&ccfg.DiagAddr)

	configureCmd := app.Command("configure", "Print a sample configuration file.")
	configureCmd.Flag("output", "Write the sample to this path instead of stdout. Refuses to overwrite.").
		Short('o').StringVar(&ccfg.Output)

	command, err := app.Parse(args)
	if err != nil {
		app.Usage(args)
		return trace.Wrap(err)
	}
	// Logging must be configured as early as possible so all messages are
	// formatted correctly, and must keep off stdout, which carries the MCP
	// transport.
	logutils.Init(logutils.Config{Debug: ccfg.Debug})

	switch command {
	case startCmd.FullCommand():
		err = onStart(ctx, &ccfg)
	case configureCmd.FullCommand():
		err = onConfigure(ctx, &ccfg)
	case versionCmd.FullCommand():
		fmt.Println(versionString())
	default:
		// This should only happen when there's a missing switch case above.
		err = trace.Errorf("command %q not configured", command)
	}

	return err
}

// onStart serves MCP over stdio until stdin is closed or a termination
// signal arrives.
func onStart(ctx context.Context, ccfg *cliConfig) error {
	cfg, err := config.ReadConfigFromFile(ccfg.ConfigPath)
	if err != nil {
		return trace.Wrap(err)
	}
	if err := cfg.CheckAndSetDefaults(); err != nil {
		return trace.Wrap(err)
	}
	accessPolicy, err := cfg.AccessPolicy()
	if err != nil {
		return trace.Wrap(err)
	}
	server, err := srv.NewServer(srv.ServerConfig{
		Policy:    accessPolicy,
		Connector: db.NewConnector(cfg.ConnConfig()),
	})
	if err != nil {
		return trace.Wrap(err)
	}
	plog.InfoContext(ctx, "Starting pgmcp",
		"version", pgmcp.Version,
		"config", ccfg.ConfigPath,
		"tables", len(cfg.Tables))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		// The session is over once the client closes stdin. Cancelling
		// here also stops the diagnostics service.
		defer cancel()
		return trace.Wrap(server.ListenStdio(groupCtx, os.Stdin, os.Stdout))
	})
	if ccfg.DiagAddr != "" {
		group.Go(func() error {
			return trace.Wrap(serveDiagnostics(groupCtx, ccfg.DiagAddr))
		})
	}

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return trace.Wrap(err)
	}
	plog.InfoContext(ctx, "Server exiting")
	return nil
}

// onConfigure prints a sample configuration file, or writes it to the path
// given with --output.
func onConfigure(ctx context.Context, ccfg *cliConfig) error {
	sample := config.SampleFileConfig()
	if ccfg.Output == "" {
		fmt.Print(sample)
		return nil
	}
	// O_EXCL so an existing configuration is never clobbered.
	f, err := os.OpenFile(ccfg.Output, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return trace.ConvertSystemError(err)
	}
	defer f.Close()
	if _, err := f.WriteString(sample); err != nil {
		return trace.ConvertSystemError(err)
	}
	plog.InfoContext(ctx, "Wrote sample configuration", "path", ccfg.Output)
	return nil
}

func versionString() string {
	return fmt.Sprintf("pgmcp v%v %v", pgmcp.Version, runtime.Version())
}
