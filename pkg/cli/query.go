package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/dealbrain-lab/dealbrain/pkg/cli/config"
	"github.com/dealbrain-lab/dealbrain/pkg/domain/model"
	"github.com/dealbrain-lab/dealbrain/pkg/domain/types"
	"github.com/dealbrain-lab/dealbrain/pkg/usecase"
	"github.com/dealbrain-lab/dealbrain/pkg/utils/logging"
)

func cmdQuery() *cli.Command {
	var stream bool
	var appCfg config.App
	var repoCfg config.Repository
	var llmCfg config.LLM

	flags := []cli.Flag{
		&cli.BoolFlag{
			Name:        "stream",
			Usage:       "Print response tokens as they arrive",
			Value:       true,
			Destination: &stream,
		},
	}
	flags = append(flags, appCfg.Flags()...)
	flags = append(flags, repoCfg.Flags()...)
	flags = append(flags, llmCfg.Flags()...)

	return &cli.Command{
		Name:      "query",
		Aliases:   []string{"q"},
		Usage:     "Ask a question over the corpus",
		ArgsUsage: "QUESTION",
		Flags:     flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			question := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
			if question == "" {
				return goerr.Wrap(types.ErrInvalidInput, "a question is required")
			}

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

			if stream {
				return streamQuery(ctx, uc, question)
			}

			resp, err := uc.Query.Ask(ctx, question)
			if err != nil {
				return err
			}
			fmt.Println(resp.Response)
			printQueryFooter(resp.Intent, sourceLabels(resp.Sources), resp.FollowUps)
			return nil
		},
	}
}

func streamQuery(ctx context.Context, uc *usecase.UseCases, question string) error {
	var intent types.QueryIntent
	var sources []string
	var followUps []string

	for event := range uc.Query.Stream(ctx, question) {
		switch event.Type {
		case "meta":
			intent = event.Intent
			for _, src := range event.Sources {
				sources = append(sources, src.Label)
			}
			followUps = event.FollowUps
		case "token":
			fmt.Print(event.Content)
		case "done":
			fmt.Println()
		case "error":
			fmt.Fprintln(os.Stderr)
			return goerr.New(event.Message)
		}
	}

	printQueryFooter(intent, sources, followUps)
	return nil
}

func sourceLabels(sources []model.ContextSource) []string {
	labels := make([]string, 0, len(sources))
	for _, src := range sources {
		labels = append(labels, src.Label)
	}
	return labels
}

func printQueryFooter(intent types.QueryIntent, sources, followUps []string) {
	fmt.Println()
	fmt.Printf("intent: %s\n", intent)
	if len(sources) > 0 {
		fmt.Printf("sources: %s\n", strings.Join(sources, ", "))
	}
	for _, q := range followUps {
		fmt.Printf("  follow up: %s\n", q)
	}
}
