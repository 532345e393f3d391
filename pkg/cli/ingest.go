package cli

import (
	"context"
	"fmt"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/dealbrain-lab/dealbrain/pkg/cli/config"
	"github.com/dealbrain-lab/dealbrain/pkg/domain/types"
	"github.com/dealbrain-lab/dealbrain/pkg/usecase"
	"github.com/dealbrain-lab/dealbrain/pkg/utils/logging"
)

func cmdIngest() *cli.Command {
	var appCfg config.App
	var repoCfg config.Repository
	var llmCfg config.LLM

	var flags []cli.Flag
	flags = append(flags, appCfg.Flags()...)
	flags = append(flags, repoCfg.Flags()...)
	flags = append(flags, llmCfg.Flags()...)

	return &cli.Command{
		Name:      "ingest",
		Usage:     "Ingest transcript files and process them immediately",
		ArgsUsage: "FILE [FILE...]",
		Flags:     flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			paths := c.Args().Slice()
			if len(paths) == 0 {
				return goerr.Wrap(types.ErrInvalidInput, "at least one file path is required")
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

			for _, path := range paths {
				source, created, err := uc.Source.IngestFile(ctx, path)
				if err != nil {
					return goerr.Wrap(err, "failed to ingest file", goerr.V("path", path))
				}
				if !created {
					fmt.Printf("skipped %s (already ingested as %s)\n", path, source.ID)
					continue
				}
				fmt.Printf("ingested %s as %s\n", path, source.ID)
			}
			return nil
		},
	}
}
