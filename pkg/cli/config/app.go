package config

import (
	"time"

	"github.com/urfave/cli/v3"

	"github.com/dealbrain-lab/dealbrain/pkg/usecase"
)

// App holds CLI flags for application-level tuning
type App struct {
	tier1Threshold float64
	tier2Threshold float64
	uploadDir      string
	cadenceFile    string

	watchDir    string
	watchSettle time.Duration
	cloudSync   bool
}

// Flags returns CLI flags for application configuration
func (a *App) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.FloatFlag{
			Name:        "tier1-threshold",
			Usage:       "Prospect score boundary for Tier 1",
			Value:       70,
			Sources:     cli.EnvVars("DEALBRAIN_TIER1_THRESHOLD"),
			Destination: &a.tier1Threshold,
		},
		&cli.FloatFlag{
			Name:        "tier2-threshold",
			Usage:       "Prospect score boundary for Tier 2",
			Value:       40,
			Sources:     cli.EnvVars("DEALBRAIN_TIER2_THRESHOLD"),
			Destination: &a.tier2Threshold,
		},
		&cli.StringFlag{
			Name:        "upload-dir",
			Usage:       "Directory where uploaded transcripts are stored",
			Value:       "uploads",
			Sources:     cli.EnvVars("DEALBRAIN_UPLOAD_DIR"),
			Destination: &a.uploadDir,
		},
		&cli.StringFlag{
			Name:        "cadence-file",
			Usage:       "TOML file with custom outreach cadence templates",
			Sources:     cli.EnvVars("DEALBRAIN_CADENCE_FILE"),
			Destination: &a.cadenceFile,
		},
		&cli.StringFlag{
			Name:        "watch-dir",
			Usage:       "Directory to watch for new transcript files (set empty to disable watching)",
			Value:       "./transcripts",
			Sources:     cli.EnvVars("DEALBRAIN_WATCH_DIR"),
			Destination: &a.watchDir,
		},
		&cli.DurationFlag{
			Name:        "watch-settle",
			Usage:       "How long a watched file must stay unchanged before ingestion",
			Value:       2 * time.Second,
			Sources:     cli.EnvVars("DEALBRAIN_WATCH_SETTLE"),
			Destination: &a.watchSettle,
		},
		&cli.BoolFlag{
			Name:        "watch-cloud-sync",
			Usage:       "Watched directory is cloud-synced; use a longer settle period",
			Sources:     cli.EnvVars("DEALBRAIN_WATCH_CLOUD_SYNC"),
			Destination: &a.cloudSync,
		},
	}
}

// UseCaseConfig converts the flags into the use case configuration
func (a *App) UseCaseConfig() usecase.Config {
	return usecase.Config{
		Tier1Threshold: a.tier1Threshold,
		Tier2Threshold: a.tier2Threshold,
		UploadDir:      a.uploadDir,
		CadenceFile:    a.cadenceFile,
	}
}

// WatchDir returns the watched directory, empty when watching is disabled
func (a *App) WatchDir() string {
	return a.watchDir
}

// WatchSettle returns the quiet period for watched files. Cloud-synced
// folders get a 5 second floor since sync clients write in bursts.
func (a *App) WatchSettle() time.Duration {
	if a.cloudSync && a.watchSettle < 5*time.Second {
		return 5 * time.Second
	}
	return a.watchSettle
}
