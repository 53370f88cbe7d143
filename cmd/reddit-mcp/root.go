package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	graw "github.com/jamesprial/reddit-mcp-server"
	"github.com/jamesprial/reddit-mcp-server/internal/tools"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

type options struct {
	configPath string
	verbose    bool
	trace      bool
	metrics    bool
}

// app holds what every subcommand needs, plus a shutdown hook for the tracer.
type app struct {
	client   *graw.Client
	logger   *slog.Logger
	shutdown func(context.Context) error
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "reddit-mcp",
		Short: "Reddit tools for MCP clients",
		Long: `Serve Reddit's API as MCP tools over stdio.

Credentials are read from REDDIT_* environment variables or a config file:
  REDDIT_CLIENT_ID, REDDIT_CLIENT_SECRET, REDDIT_USER_AGENT (required)
  REDDIT_USERNAME and REDDIT_PASSWORD, or REDDIT_REFRESH_TOKEN`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "Path to a config file (yaml, json or toml)")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log at debug level")
	root.PersistentFlags().BoolVar(&opts.trace, "trace", false, "Write trace spans to stderr")
	root.PersistentFlags().BoolVar(&opts.metrics, "metrics", false, "Write rate limiter and auth metrics to stderr")

	root.AddCommand(newServeCmd(opts), newStatusCmd(opts))
	return root
}

// setup loads the configuration and builds the client. Logs and spans go to the
// command's error stream; stdout is reserved for the MCP stream or command output.
func setup(cmd *cobra.Command, opts *options) (*app, error) {
	level := slog.LevelInfo
	if opts.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

	cfg, err := graw.LoadConfig(opts.configPath)
	if err != nil {
		return nil, err
	}
	cfg.Logger = logger

	var shutdowns []func(context.Context) error
	rt := &app{logger: logger, shutdown: func(ctx context.Context) error {
		var errs []error
		for _, fn := range shutdowns {
			errs = append(errs, fn(ctx))
		}
		return errors.Join(errs...)
	}}
	if opts.trace {
		exp, err := stdouttrace.New(stdouttrace.WithWriter(cmd.ErrOrStderr()))
		if err != nil {
			return nil, fmt.Errorf("failed to create trace exporter: %w", err)
		}
		tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exp))
		cfg.TracerProvider = tp
		shutdowns = append(shutdowns, tp.Shutdown)
	}
	if opts.metrics {
		exp, err := stdoutmetric.New(stdoutmetric.WithWriter(cmd.ErrOrStderr()))
		if err != nil {
			return nil, errors.Join(fmt.Errorf("failed to create metrics exporter: %w", err), rt.shutdown(context.Background()))
		}
		// Shutdown flushes a final collection.
		mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exp)))
		cfg.MeterProvider = mp
		shutdowns = append(shutdowns, mp.Shutdown)
	}

	rt.client, err = graw.NewClient(cfg)
	if err != nil {
		return nil, errors.Join(err, rt.shutdown(context.Background()))
	}
	return rt, nil
}

func newServeCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the Reddit tools over stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) (err error) {
			rt, err := setup(cmd, opts)
			if err != nil {
				return err
			}
			defer func() { err = errors.Join(err, rt.shutdown(context.Background())) }()

			server := tools.NewServer(rt.client, version, rt.logger)
			return server.Run(cmd.Context(), &mcp.StdioTransport{})
		},
	}
}

// statusReport is printed by the status command.
type statusReport struct {
	Username string      `json:"username"`
	Status   graw.Status `json:"status"`
	Revoked  bool        `json:"revoked,omitempty"`
}

func newStatusCmd(opts *options) *cobra.Command {
	var revoke bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Authenticate, print the account and rate limit status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) (err error) {
			rt, err := setup(cmd, opts)
			if err != nil {
				return err
			}
			defer func() { err = errors.Join(err, rt.shutdown(context.Background())) }()

			ctx := cmd.Context()
			me, err := rt.client.Me(ctx)
			if err != nil {
				return err
			}

			report := statusReport{Username: me.Name, Status: rt.client.Status()}
			if revoke {
				if err := rt.client.RevokeToken(ctx); err != nil {
					return err
				}
				report.Revoked = true
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		},
	}
	cmd.Flags().BoolVar(&revoke, "revoke", false, "Revoke the access token after the check")
	return cmd
}
