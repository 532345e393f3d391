package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/dealbrain-lab/dealbrain/pkg/cli/config"
	"github.com/dealbrain-lab/dealbrain/pkg/usecase"
	"github.com/dealbrain-lab/dealbrain/pkg/utils/logging"
)

func cmdExport() *cli.Command {
	var output string
	var repoCfg config.Repository

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "output",
			Aliases:     []string{"o"},
			Usage:       "Output file path (defaults to pipeline-YYYY-MM-DD.xlsx)",
			Destination: &output,
		},
	}
	flags = append(flags, repoCfg.Flags()...)

	return &cli.Command{
		Name:  "export",
		Usage: "Export the pipeline as an XLSX workbook",
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

			if output == "" {
				output = fmt.Sprintf("pipeline-%s.xlsx", time.Now().Format("2006-01-02"))
			}

			f, err := os.Create(output)
			if err != nil {
				return goerr.Wrap(err, "failed to create output file", goerr.V("path", output))
			}
			defer func() {
				if err := f.Close(); err != nil {
					logging.Default().Error("failed to close output file", "error", err.Error())
				}
			}()

			export := usecase.NewExportUseCase(repo)
			if err := export.PipelineReport(ctx, f); err != nil {
				return err
			}

			fmt.Printf("wrote %s\n", output)
			return nil
		},
	}
}
