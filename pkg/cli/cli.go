package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

type Error struct {
	Code    int
	Message string
}

func Run(ctx context.Context, argv []string) *Error {
	cmd := &cli.Command{
		Name:  "claimpilot",
		Usage: "Multi-agent insurance claim assistant",
		Commands: []*cli.Command{
			serveCommand(),
			chatCommand(),
			processCommand(),
			listCommand(),
			showCommand(),
			statusCommand(),
			analyzeCommand(),
			emailCommand(),
			historyCommand(),
			mcpCommand(),
		},
	}

	if err := cmd.Run(ctx, argv); err != nil {
		return &Error{
			Code:    1,
			Message: err.Error(),
		}
	}

	return nil
}

// start sets up logging and the agent stack for a command
func start(ctx context.Context, cfg *config) (context.Context, *app, error) {
	ctx, err := cfg.setupLogger(ctx)
	if err != nil {
		return ctx, nil, err
	}

	a, err := cfg.newApp(ctx)
	if err != nil {
		return ctx, nil, err
	}
	return ctx, a, nil
}

func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return goerr.Wrap(err, "failed to marshal output")
	}
	fmt.Fprintf(w, "%s\n", string(data))
	return nil
}
