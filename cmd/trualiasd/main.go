/*
Maddy Mail Server - Composable all-in-one email server.
Copyright 2021, Steve Blinch <dev@blinch.ca>, Max Mazurov <fox.cpp@disroot.org>, Maddy Mail Server contributors

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

// Command trualiasd is the embedding CLI around the core resolve
// engine: it loads a configuration file, exposes it over the
// Postfix tcp_table(5) protocol (and, optionally, a milter front-end
// and a Prometheus /metrics endpoint), and hot-reloads it on change.
// Exit codes follow spec.md 6: 0 on clean shutdown, 2 on an
// unrecoverable configuration error at startup, 3 on a listener bind
// failure.
package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"trualias/internal/applog"
	"trualias/internal/configstore"
	"trualias/internal/hook"
	"trualias/internal/matchtable"
	"trualias/internal/milterfront"
	"trualias/internal/reload"
	"trualias/internal/resolver"
	"trualias/internal/stats"
	"trualias/internal/tcptable"
	"trualias/internal/vrfygate"
)

const (
	exitOK          = 0
	exitConfigError = 2
	exitBindFailure = 3
)

func main() {
	app := &cli.App{
		Name:  "trualiasd",
		Usage: "verify and resolve mail aliases against a trualias configuration",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "config",
				Aliases:  []string{"c"},
				Required: true,
				Usage:    "path to the trualias configuration file",
			},
			&cli.BoolFlag{
				Name:    "test",
				Aliases: []string{"t"},
				Usage:   "compile the configuration and exit, reporting any diagnostics",
			},
			&cli.StringFlag{
				Name:  "explain",
				Usage: "with -t, show which accounts a query verifies against before disambiguation",
			},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		if code, ok := err.(cli.ExitCoder); ok {
			os.Exit(code.ExitCode())
		}
		os.Exit(exitConfigError)
	}
}

func run(c *cli.Context) error {
	path := c.String("config")
	source, err := os.ReadFile(path)
	if err != nil {
		return cli.Exit(fmt.Errorf("reading configuration: %w", err), exitConfigError)
	}

	store, storeErr := configstore.New(string(source))
	if storeErr != nil {
		return cli.Exit(storeErr, exitConfigError)
	}

	opts := store.Current().Options
	if err := applog.Init(opts.LogLevel); err != nil {
		return cli.Exit(fmt.Errorf("invalid LOGGING level %q: %w", opts.LogLevel, err), exitConfigError)
	}
	defer applog.Sync()

	if c.Bool("test") {
		applog.Info("configuration compiled cleanly", zap.String("path", path))
		if query := c.String("explain"); query != "" {
			mode := resolver.Account
			if opts.VirtualForm() {
				mode = resolver.Virtual
			}
			accounts := resolver.WinningAccountsDebug(store.Current(), mode, query)
			if len(accounts) == 0 {
				fmt.Printf("%s: no account verifies this query\n", query)
			} else {
				fmt.Printf("%s: verifies against %s\n", query, strings.Join(accounts, ", "))
			}
		}
		return nil
	}

	reg := prometheus.NewRegistry()
	collector := stats.New(reg)

	mode := resolver.Account
	if opts.VirtualForm() {
		mode = resolver.Virtual
	}

	var processor hook.Hook
	if opts.Processor != "" {
		processor = hook.Lookup(opts.Processor)
		if processor == nil {
			return cli.Exit(fmt.Errorf("unknown PROCESSOR %q", opts.Processor), exitConfigError)
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)

	tcpAddr := net.JoinHostPort(opts.Host, strconv.Itoa(opts.Port))
	tcpLn, err := net.Listen("tcp", tcpAddr)
	if err != nil {
		return cli.Exit(fmt.Errorf("binding tcp-table listener on %s: %w", tcpAddr, err), exitBindFailure)
	}
	tcpSrv := &tcptable.Server{Store: store, Mode: mode, Hook: processor, Stats: collector, Listener: tcpLn}
	g.Go(func() error { return tcpSrv.Serve(gctx) })

	if opts.LocalHost != "" {
		var gate *vrfygate.Gate
		if opts.SMTPHost != "" {
			gate = &vrfygate.Gate{Host: opts.SMTPHost, Port: opts.SMTPPort, LocalHost: opts.LocalHost}
		}
		localDomains, err := matchtable.Compile(opts.LocalDomains)
		if err != nil {
			return cli.Exit(fmt.Errorf("compiling LOCAL DOMAINS: %w", err), exitConfigError)
		}
		front := &milterfront.Front{Store: store, LocalDomains: localDomains, Gate: gate, Hook: processor}
		g.Go(func() error { return milterfront.ListenAndServe("tcp", opts.LocalHost, front) })
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	metricsSrv := &http.Server{Addr: net.JoinHostPort(opts.Host, "9119"), Handler: mux}
	g.Go(func() error {
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	watcher := &reload.Watcher{Path: path, Store: store}
	g.Go(func() error { return watcher.Run(gctx) })

	g.Go(func() error {
		<-gctx.Done()
		tcpLn.Close()
		metricsSrv.Close()
		return nil
	})

	applog.Info("trualiasd serving", zap.String("tcp_table", tcpAddr))
	if err := g.Wait(); err != nil && ctx.Err() == nil {
		return cli.Exit(err, exitBindFailure)
	}
	applog.Info("trualiasd exiting")
	return nil
}
