package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/m-mizutani/claimpilot/pkg/model"
	"github.com/m-mizutani/claimpilot/pkg/usecase/history"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func historyCommand() *cli.Command {
	var (
		cfg       config
		historyID string
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "history-id",
			Aliases:     []string{"i"},
			Usage:       "ID of an archived transcript",
			Destination: &historyID,
			Required:    true,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)
	flags = append(flags, storageFlags(&cfg)...)

	return &cli.Command{
		Name:  "history",
		Usage: "Show an archived chat transcript",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx, err := cfg.setupLogger(ctx)
			if err != nil {
				return err
			}

			store, err := cfg.newStore(ctx)
			if err != nil {
				return err
			}
			if store == nil {
				return goerr.New("bucket or storage-dir is required")
			}

			h, err := history.Load(ctx, store, model.HistoryID(historyID))
			if err != nil {
				return goerr.Wrap(err, "failed to load transcript")
			}

			w := c.Root().Writer
			fmt.Fprintf(w, "Transcript %s (%s)\n", h.ID, h.CreatedAt.Format("2006-01-02 15:04:05"))
			if len(h.ClaimIDs) > 0 {
				ids := make([]string, len(h.ClaimIDs))
				for i, id := range h.ClaimIDs {
					ids[i] = string(id)
				}
				fmt.Fprintf(w, "Claims: %s\n", strings.Join(ids, ", "))
			}
			fmt.Fprintln(w)
			printTurns(w, h.Turns)
			return nil
		},
	}
}
