package cli

import (
	"context"
	"fmt"

	"github.com/m-mizutani/claimpilot/pkg/interfaces"
	"github.com/m-mizutani/claimpilot/pkg/model"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func claimIDFlag(id *string) cli.Flag {
	return &cli.StringFlag{
		Name:        "claim-id",
		Aliases:     []string{"id"},
		Usage:       "Claim ID such as C-2025-1A2B3C4D",
		Sources:     cli.EnvVars("CLAIMPILOT_CLAIM_ID"),
		Destination: id,
		Required:    true,
	}
}

func listCommand() *cli.Command {
	var (
		cfg    config
		status string
		limit  int64
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "status",
			Aliases:     []string{"s"},
			Usage:       "Filter by status (Open, Processing, Closed, Pending Info)",
			Destination: &status,
		},
		&cli.IntFlag{
			Name:        "limit",
			Usage:       "Maximum number of claims to list",
			Value:       100,
			Sources:     cli.EnvVars("CLAIMPILOT_LIST_LIMIT"),
			Destination: &limit,
		},
	}
	flags = append(flags, allFlags(&cfg)...)

	return &cli.Command{
		Name:  "list",
		Usage: "List claims, newest first",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			opts := interfaces.ListOptions{Limit: int(limit)}
			if status != "" {
				s, err := model.ParseClaimStatus(status)
				if err != nil {
					return err
				}
				opts.Status = s
			}

			ctx, a, err := start(ctx, &cfg)
			if err != nil {
				return err
			}
			defer a.close()

			claims, err := a.claims.List(ctx, opts)
			if err != nil {
				return goerr.Wrap(err, "failed to list claims")
			}

			if len(claims) == 0 {
				fmt.Fprintf(c.Root().Writer, "No claims found\n")
				return nil
			}

			for _, claim := range claims {
				fmt.Fprintf(c.Root().Writer, "%s\t%s\t%s\t%s\t%s\n",
					claim.ID,
					claim.Status,
					claim.IncidentType,
					claim.EstimatedDamage,
					claim.CreatedAt.Format("2006-01-02 15:04:05"),
				)
			}
			return nil
		},
	}
}

func showCommand() *cli.Command {
	var (
		cfg     config
		claimID string
	)

	flags := append([]cli.Flag{claimIDFlag(&claimID)}, allFlags(&cfg)...)

	return &cli.Command{
		Name:  "show",
		Usage: "Show a claim",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx, a, err := start(ctx, &cfg)
			if err != nil {
				return err
			}
			defer a.close()

			claim, err := a.claims.Get(ctx, model.ClaimID(claimID))
			if err != nil {
				return goerr.Wrap(err, "failed to show claim")
			}
			return printJSON(c.Root().Writer, claim)
		},
	}
}

func statusCommand() *cli.Command {
	var (
		cfg     config
		claimID string
		status  string
	)

	flags := []cli.Flag{
		claimIDFlag(&claimID),
		&cli.StringFlag{
			Name:        "status",
			Aliases:     []string{"s"},
			Usage:       "New status (Open, Processing, Closed, Pending Info)",
			Destination: &status,
			Required:    true,
		},
	}
	flags = append(flags, allFlags(&cfg)...)

	return &cli.Command{
		Name:  "status",
		Usage: "Update the status of a claim",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			s, err := model.ParseClaimStatus(status)
			if err != nil {
				return err
			}

			ctx, a, err := start(ctx, &cfg)
			if err != nil {
				return err
			}
			defer a.close()

			claim, err := a.claims.UpdateStatus(ctx, model.ClaimID(claimID), s)
			if err != nil {
				return goerr.Wrap(err, "failed to update claim status")
			}

			fmt.Fprintf(c.Root().Writer, "%s: %s\n", claim.ID, claim.Status)
			return nil
		},
	}
}

func analyzeCommand() *cli.Command {
	var (
		cfg     config
		claimID string
	)

	flags := append([]cli.Flag{claimIDFlag(&claimID)}, allFlags(&cfg)...)

	return &cli.Command{
		Name:  "analyze",
		Usage: "Assess severity, recommended actions and missing information of a claim",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx, a, err := start(ctx, &cfg)
			if err != nil {
				return err
			}
			defer a.close()

			analysis, err := a.orch.Analyze(ctx, model.ClaimID(claimID))
			if err != nil {
				return goerr.Wrap(err, "failed to analyze claim")
			}
			return printJSON(c.Root().Writer, analysis)
		},
	}
}

func emailCommand() *cli.Command {
	var (
		cfg     config
		claimID string
	)

	flags := append([]cli.Flag{claimIDFlag(&claimID)}, allFlags(&cfg)...)

	return &cli.Command{
		Name:  "email",
		Usage: "Draft the email that submits a claim to the insurer",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx, a, err := start(ctx, &cfg)
			if err != nil {
				return err
			}
			defer a.close()

			email, err := a.orch.Email(ctx, model.ClaimID(claimID))
			if err != nil {
				return goerr.Wrap(err, "failed to draft claim email")
			}
			return printJSON(c.Root().Writer, email)
		},
	}
}
