package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/m-mizutani/goerr/v2"
	"github.com/mattn/go-isatty"
	"github.com/urfave/cli/v3"

	"github.com/dealbrain-lab/dealbrain/pkg/cli/config"
	"github.com/dealbrain-lab/dealbrain/pkg/domain/types"
	"github.com/dealbrain-lab/dealbrain/pkg/usecase"
	"github.com/dealbrain-lab/dealbrain/pkg/utils/logging"
)

func cmdStatus() *cli.Command {
	var appCfg config.App
	var repoCfg config.Repository
	var llmCfg config.LLM

	var flags []cli.Flag
	flags = append(flags, appCfg.Flags()...)
	flags = append(flags, repoCfg.Flags()...)
	flags = append(flags, llmCfg.Flags()...)

	return &cli.Command{
		Name:  "status",
		Usage: "Show provider availability and corpus counts",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			repo, err := repoCfg.Configure(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to initialize repository")
			}
			defer func() {
				if err := repo.Close(); err != nil {
					logging.Default().Error("failed to close repository", "error", err.Error())
				}
			}()

			gateway, err := llmCfg.Configure(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to configure LLM provider")
			}

			uc := usecase.New(repo, gateway, usecase.WithConfig(appCfg.UseCaseConfig()))

			status := gateway.Status(ctx)
			availability := "unavailable"
			if status.Available {
				availability = "available"
			}
			fmt.Printf("provider: %s (%s) %s\n", status.Provider, status.Model, availability)
			if status.Detail != "" {
				fmt.Printf("  %s\n", status.Detail)
			}

			_, totalSources, err := uc.Source.List(ctx, 1, 0)
			if err != nil {
				return err
			}
			deals, err := repo.Deal().List(ctx)
			if err != nil {
				return err
			}
			prospects, err := repo.Prospect().List(ctx, "")
			if err != nil {
				return err
			}
			people, err := repo.Person().List(ctx)
			if err != nil {
				return err
			}
			due, err := uc.Outreach.Due(ctx)
			if err != nil {
				return err
			}
			overdue, err := uc.Outreach.Overdue(ctx)
			if err != nil {
				return err
			}

			activeDeals := 0
			for _, deal := range deals {
				if deal.Status == types.DealStatusActive {
					activeDeals++
				}
			}

			t := table.NewWriter()
			t.SetOutputMirror(os.Stdout)
			if isatty.IsTerminal(os.Stdout.Fd()) {
				t.SetStyle(table.StyleRounded)
			} else {
				t.SetStyle(table.StyleDefault)
			}
			t.AppendHeader(table.Row{"", "Count"})
			t.AppendRows([]table.Row{
				{"Sources", totalSources},
				{"Deals", fmt.Sprintf("%d (%d active)", len(deals), activeDeals)},
				{"Prospects", len(prospects)},
				{"People", len(people)},
				{"Followups due", len(due)},
				{"Followups overdue", len(overdue)},
			})
			t.Render()
			return nil
		},
	}
}
