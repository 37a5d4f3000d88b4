package cli

import (
	"context"
	"time"

	"github.com/m-mizutani/claimpilot/pkg/server"
	"github.com/m-mizutani/claimpilot/pkg/service/mcp"
	"github.com/m-mizutani/claimpilot/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

func serveCommand() *cli.Command {
	var (
		cfg            config
		addr           string
		origins        []string
		requestTimeout time.Duration
		enableMCP      bool
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "addr",
			Aliases:     []string{"a"},
			Usage:       "Listen address",
			Value:       "127.0.0.1:8000",
			Sources:     cli.EnvVars("CLAIMPILOT_ADDR"),
			Destination: &addr,
		},
		&cli.StringSliceFlag{
			Name:        "allowed-origin",
			Usage:       "CORS allowed origin, repeatable",
			Sources:     cli.EnvVars("CLAIMPILOT_ALLOWED_ORIGINS"),
			Destination: &origins,
		},
		&cli.DurationFlag{
			Name:        "request-timeout",
			Usage:       "HTTP request timeout",
			Value:       2 * time.Minute,
			Sources:     cli.EnvVars("CLAIMPILOT_REQUEST_TIMEOUT"),
			Destination: &requestTimeout,
		},
		&cli.BoolFlag{
			Name:        "mcp",
			Usage:       "Also serve the MCP tools over streamable HTTP at /mcp",
			Sources:     cli.EnvVars("CLAIMPILOT_MCP_HTTP"),
			Destination: &enableMCP,
		},
	}
	flags = append(flags, allFlags(&cfg)...)

	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP API server",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx, a, err := start(ctx, &cfg)
			if err != nil {
				return err
			}
			defer a.close()

			opts := []server.Option{
				server.WithRequestTimeout(requestTimeout),
			}
			if len(origins) > 0 {
				opts = append(opts, server.WithAllowedOrigins(origins...))
			}
			if enableMCP {
				opts = append(opts, server.WithMCPHandler(mcp.NewServer(a.orch, a.claims).HTTPHandler()))
			}

			logging.From(ctx).Info("starting server", "addr", addr, "mcp", enableMCP)
			return server.New(a.orch, a.claims, a.estimator, opts...).Run(ctx, addr)
		},
	}
}
