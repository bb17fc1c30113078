/*
 * MIT License
 *
 * Copyright (c) 2020 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/nabbar/reactor-httpd/certload"
	"github.com/nabbar/reactor-httpd/config"
	"github.com/nabbar/reactor-httpd/logging"
	"github.com/nabbar/reactor-httpd/server"
)

var vpr = viper.New()

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reactor-httpd",
		Short: "A single-threaded, readiness-polled HTTP/1.1 server with optional TLS.",
		RunE:  runServe,
	}

	flags := cmd.PersistentFlags()
	flags.String("listen.addr", "0.0.0.0", "address to listen on")
	flags.Int("listen.port", 8080, "port to listen on")
	flags.Int("max_connections", 4096, "maximum concurrent accepted connections (0 = unbounded)")
	flags.Int("buffer_size", 64*1024, "per-connection read/write buffer size in bytes")
	flags.Duration("idle_timeout", 60*time.Second, "close a connection after this long with no activity (0 = disabled)")
	flags.Bool("tls.enable", false, "terminate TLS in front of every accepted connection")
	flags.String("tls.cert_file", "", "PEM certificate file (required if tls.enable)")
	flags.String("tls.key_file", "", "PEM private key file (required if tls.enable)")
	flags.StringSlice("tls.client_ca_files", nil, "PEM client CA files for mutual TLS")
	flags.String("tls.client_auth", "", "none|request|require_any|verify_if_given|require_and_verify (default: verify_if_given if client_ca_files set, else none)")
	flags.String("tls.min_version", "1.2", "minimum TLS version: 1.0|1.1|1.2|1.3")
	flags.String("log.level", "info", "verbose|debug|info|warn|error")
	flags.Bool("log.json", false, "emit structured JSON log lines instead of plain text")

	for _, name := range []string{
		"listen.addr", "listen.port", "max_connections", "buffer_size", "idle_timeout",
		"tls.enable", "tls.cert_file", "tls.key_file", "tls.client_ca_files", "tls.client_auth", "tls.min_version",
		"log.level", "log.json",
	} {
		_ = vpr.BindPFlag(name, flags.Lookup(name))
	}
	vpr.SetEnvPrefix("REACTOR_HTTPD")
	vpr.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	vpr.AutomaticEnv()

	return cmd
}

func runServe(*cobra.Command, []string) error {
	cfg, err := config.Load(vpr)
	if err != nil {
		return err
	}

	log := newLogger(cfg.Log)

	tlsCfg, err := certload.Build(cfg.TLS)
	if err != nil {
		return err
	}

	reg := server.NewRegistry()
	reg.Handle("/healthz", healthHandler)

	srv := server.New(reg, log)
	srv.SetStats(server.NewStats(prometheusRegisterer()))
	srv.SetLimits(cfg.MaxConnections, cfg.BufferSize, cfg.IdleTimeout)
	if tlsCfg != nil {
		srv.ConfigureSSL(tlsCfg)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		log.Info("shutting down", nil)
		srv.Stop()
	}()

	err = srv.ListenAndServe(cfg.Listen.Addr, cfg.Listen.Port)
	_ = srv.Close()
	return err
}

func newLogger(cfg config.Log) logging.Logger {
	lvl := logging.LevelInfo
	switch cfg.Level {
	case "verbose":
		lvl = logging.LevelVerbose
	case "debug":
		lvl = logging.LevelDebug
	case "warn":
		lvl = logging.LevelWarn
	case "error":
		lvl = logging.LevelError
	}
	if cfg.JSON {
		hl := hclog.LevelFromString(cfg.Level)
		if cfg.Level == "verbose" {
			hl = hclog.Trace
		}
		return logging.NewHCLog(hclog.New(&hclog.LoggerOptions{
			Output:     os.Stderr,
			Level:      hl,
			JSONFormat: true,
		}))
	}
	return logging.NewStandard(os.Stderr, lvl)
}
