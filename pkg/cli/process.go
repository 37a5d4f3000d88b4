package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/briandowns/spinner"
	"github.com/m-mizutani/claimpilot/pkg/model"
	"github.com/m-mizutani/claimpilot/pkg/usecase/orchestrator"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func processCommand() *cli.Command {
	var (
		cfg     config
		file    string
		text    string
		full    bool
		jsonOut bool
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "file",
			Aliases:     []string{"f"},
			Usage:       "Claim document (.txt or .pdf)",
			Destination: &file,
		},
		&cli.StringFlag{
			Name:        "text",
			Aliases:     []string{"t"},
			Usage:       "Claim description as plain text",
			Destination: &text,
		},
		&cli.BoolFlag{
			Name:        "full",
			Usage:       "Run the full workflow: intake, estimate, providers, draft and compliance",
			Destination: &full,
		},
		&cli.BoolFlag{
			Name:        "json",
			Usage:       "Print the full result as JSON",
			Destination: &jsonOut,
		},
	}
	flags = append(flags, allFlags(&cfg)...)

	return &cli.Command{
		Name:  "process",
		Usage: "Create a claim from a document",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			doc, err := readDocument(file, text)
			if err != nil {
				return err
			}

			ctx, a, err := start(ctx, &cfg)
			if err != nil {
				return err
			}
			defer a.close()

			spin := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
			spin.Suffix = " processing claim..."
			spin.Start()

			if !full {
				claim, err := a.claims.Process(ctx, doc)
				spin.Stop()
				if err != nil {
					return goerr.Wrap(err, "failed to process claim")
				}
				return printJSON(c.Root().Writer, claim)
			}

			res := a.orch.ProcessFullClaim(ctx, &orchestrator.Message{
				Text:       "Process full claim workflow",
				Attachment: doc,
			})
			spin.Stop()

			if jsonOut {
				if err := printJSON(c.Root().Writer, res); err != nil {
					return err
				}
			} else {
				fmt.Fprintf(c.Root().Writer, "%s\n", res.Message)
			}
			if !res.Success {
				return goerr.New("full claim workflow failed", goerr.V("error", res.Error))
			}
			return nil
		},
	}
}

func readDocument(file, text string) (*model.Document, error) {
	switch {
	case file != "" && text != "":
		return nil, goerr.New("file and text are exclusive")
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to read claim document", goerr.V("file", file))
		}
		return &model.Document{Name: filepath.Base(file), Data: data}, nil
	case text != "":
		return model.NewTextDocument(text), nil
	default:
		return nil, goerr.New("either file or text must be provided")
	}
}
