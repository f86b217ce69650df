/*
Copyright © 2025 Valentyn Solomko <valentyn.solomko@gmail.com>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/valpere/vietsub/internal"
	"github.com/valpere/vietsub/internal/logging"
	"github.com/valpere/vietsub/internal/queue"
	"github.com/valpere/vietsub/internal/worker"
)

var (
	workerRequeue    bool
	workerJobTimeout time.Duration
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Serve translation jobs from the RabbitMQ job queue",
	Long: `Consume jobs published by "vietsub enqueue" and translate them, running up
to --jobs files at once. The worker runs until interrupted. A job cut short
by shutdown writes no output and is rejected; with --requeue it goes back to
the queue for the next worker.

Example:
  vietsub worker --jobs 4 --provider google --credentials key.json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		client, err := buildClient()
		if err != nil {
			return err
		}
		db, err := openStore()
		if err != nil {
			return err
		}
		if db != nil {
			defer db.Close()
		}
		pipe := buildPipeline(client, db)

		sessions, err := openSessions(ctx, db)
		if err != nil {
			return err
		}
		defer sessions.Close()

		q, err := queue.NewRabbitMQQueue(cfg.Queue.URL, cfg.Queue.Name, cfg.Workers, logger)
		if err != nil {
			return err
		}
		defer q.Close()

		logger.Info("worker started",
			"queue", cfg.Queue.Name,
			"workers", cfg.Workers,
			"provider", client.Name(),
			"model", client.Model())

		pool := &worker.Pool{
			Queue:      q,
			Workers:    cfg.Workers,
			Requeue:    workerRequeue,
			JobTimeout: workerJobTimeout,
			Logger:     logger,
			Handler: func(ctx context.Context, job internal.Job) error {
				jlog := logging.ForJob(logger, job.ID)
				sess, err := applySession(ctx, sessions, &job)
				if err != nil {
					jlog.Warn("failed to load session", "user", job.UserID, "error", err)
				}
				res, err := pipe.RunJob(ctx, job)
				if err != nil {
					return err
				}
				jlog.Info("job finished",
					"input", job.InputPath,
					"output", res.OutputPath,
					"summary", res.Summary())

				if sess != nil {
					sess.Instruction, sess.Preset = job.Instruction, job.Preset
					sess.LastInput, sess.LastOutput = job.InputPath, res.OutputPath
					sess.Jobs++
					if err := sessions.Save(ctx, sess); err != nil {
						jlog.Warn("failed to save session", "user", job.UserID, "error", err)
					}
				}
				return nil
			},
		}
		stats := pool.Run(ctx)

		logger.Info("worker stopped", "processed", stats.Processed, "failed", stats.Failed)
		fmt.Printf("Processed %d jobs (%d failed)\n", stats.Processed, stats.Failed)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(workerCmd)

	f := workerCmd.Flags()
	f.Int("jobs", 2, "Jobs translated concurrently (also the RabbitMQ prefetch)")
	f.String("queue-url", "", "RabbitMQ URL")
	f.String("queue-name", "", "RabbitMQ queue name")
	f.Int("batch-size", 40, "Maximum cues per batch")
	f.Int("max-retries", 3, "Retries per batch after the first attempt")
	f.Bool("structured", false, "Ask the model for a JSON reply")
	f.Bool("protect-tags", false, "Replace inline tags with [PHn] markers while translating")
	f.Bool("validate", false, "Flag translated cues that are not detected as Vietnamese")
	f.BoolVar(&workerRequeue, "requeue", false, "Return failed jobs to the queue instead of dropping them")
	f.DurationVar(&workerJobTimeout, "job-timeout", 0, "Upper bound on one job (0 for none)")
}
