package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofrs/flock"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/dealbrain-lab/dealbrain/pkg/cli/config"
	httpctrl "github.com/dealbrain-lab/dealbrain/pkg/controller/http"
	"github.com/dealbrain-lab/dealbrain/pkg/service/scheduler"
	"github.com/dealbrain-lab/dealbrain/pkg/service/watcher"
	"github.com/dealbrain-lab/dealbrain/pkg/usecase"
	"github.com/dealbrain-lab/dealbrain/pkg/utils/logging"
)

func cmdServe() *cli.Command {
	var addr string
	var appCfg config.App
	var repoCfg config.Repository
	var llmCfg config.LLM

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "addr",
			Usage:       "HTTP server address",
			Value:       ":3001",
			Sources:     cli.EnvVars("DEALBRAIN_ADDR"),
			Destination: &addr,
		},
	}
	flags = append(flags, appCfg.Flags()...)
	flags = append(flags, repoCfg.Flags()...)
	flags = append(flags, llmCfg.Flags()...)

	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"s"},
		Usage:   "Start the HTTP server, file watcher and learning scheduler",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			// Single-process guard. A second instance against the same
			// database would race the watcher and the scheduler.
			lock := flock.New(repoCfg.DBPath() + ".lock")
			locked, err := lock.TryLock()
			if err != nil {
				return goerr.Wrap(err, "failed to acquire process lock")
			}
			if !locked {
				return goerr.New("another instance is already running",
					goerr.V("lock", lock.Path()))
			}
			defer func() {
				if err := lock.Unlock(); err != nil {
					logging.Default().Warn("failed to release process lock", "error", err)
				}
			}()

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

			sched := scheduler.New(repo, uc.Learning)
			uc.SetLearningTrigger(sched)
			sched.Start(ctx)
			defer sched.Stop()

			var watch *watcher.Watcher
			if dir := appCfg.WatchDir(); dir != "" {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					return goerr.Wrap(err, "failed to create watch directory", goerr.V("dir", dir))
				}
				watch = watcher.New(dir, func(ctx context.Context, path string) error {
					source, created, err := uc.Source.IngestFile(ctx, path)
					if err != nil {
						return err
					}
					if created {
						logging.From(ctx).Info("Ingested watched file",
							"path", path, "source_id", source.ID)
					}
					return nil
				}, watcher.WithQuietPeriod(appCfg.WatchSettle()))

				if err := watch.Start(ctx); err != nil {
					return goerr.Wrap(err, "failed to start file watcher", goerr.V("dir", dir))
				}
				defer watch.Stop()
				logging.Default().Info("Watching for transcripts",
					"dir", dir, "settle", appCfg.WatchSettle())
			}

			handler := httpctrl.New(uc, httpctrl.WithScheduler(sched))
			server := &http.Server{
				Addr:              addr,
				Handler:           handler,
				ReadHeaderTimeout: 30 * time.Second,
			}

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

			errCh := make(chan error, 1)
			go func() {
				logging.Default().Info("Starting HTTP server", "addr", addr)
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					errCh <- goerr.Wrap(err, "failed to start server")
				}
			}()

			select {
			case err := <-errCh:
				return err
			case sig := <-sigCh:
				logging.Default().Info("Received shutdown signal", "signal", sig)

				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()

				if err := server.Shutdown(shutdownCtx); err != nil {
					return goerr.Wrap(err, "failed to shutdown server gracefully")
				}

				logging.Default().Info("Server shutdown completed")
				return nil
			}
		},
	}
}
