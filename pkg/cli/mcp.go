package cli

import (
	"context"

	"github.com/m-mizutani/claimpilot/pkg/service/mcp"
	"github.com/urfave/cli/v3"
)

func mcpCommand() *cli.Command {
	var cfg config

	return &cli.Command{
		Name:  "mcp",
		Usage: "Serve the agents as MCP tools over stdio",
		Flags: allFlags(&cfg),
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx, a, err := start(ctx, &cfg)
			if err != nil {
				return err
			}
			defer a.close()

			return mcp.NewServer(a.orch, a.claims).Run(ctx)
		},
	}
}
