package config_test

import (
	"context"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/urfave/cli/v3"

	"github.com/dealbrain-lab/dealbrain/pkg/cli/config"
)

func parseDefaults(t *testing.T, flags []cli.Flag) {
	t.Helper()
	cmd := &cli.Command{
		Name:  "test",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			return nil
		},
	}
	gt.NoError(t, cmd.Run(context.Background(), []string{"test"}))
}

func TestAppDefaults(t *testing.T) {
	var cfg config.App
	parseDefaults(t, cfg.Flags())

	gt.Value(t, cfg.WatchDir()).Equal("./transcripts")
	gt.Value(t, cfg.WatchSettle()).Equal(2 * time.Second)

	uc := cfg.UseCaseConfig()
	gt.Value(t, uc.Tier1Threshold).Equal(70.0)
	gt.Value(t, uc.Tier2Threshold).Equal(40.0)
}

func TestAppCloudSyncSettleFloor(t *testing.T) {
	var cfg config.App
	cmd := &cli.Command{
		Name:  "test",
		Flags: cfg.Flags(),
		Action: func(ctx context.Context, c *cli.Command) error {
			return nil
		},
	}
	gt.NoError(t, cmd.Run(context.Background(), []string{"test", "--watch-cloud-sync"}))
	gt.Value(t, cfg.WatchSettle()).Equal(5 * time.Second)
}

func TestLLMDefaults(t *testing.T) {
	var cfg config.LLM

	model := ""
	ollamaURL := ""
	for _, flag := range cfg.Flags() {
		sf, ok := flag.(*cli.StringFlag)
		if !ok {
			continue
		}
		switch sf.Name {
		case "ollama-model":
			model = sf.Value
		case "ollama-url":
			ollamaURL = sf.Value
		}
	}
	gt.Value(t, model).Equal("llama3.1:8b")
	gt.Value(t, ollamaURL).Equal("http://localhost:11434")
}
