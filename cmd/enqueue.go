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
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/valpere/vietsub/internal"
	"github.com/valpere/vietsub/internal/prompt"
	"github.com/valpere/vietsub/internal/queue"
)

var enqueueCmd = &cobra.Command{
	Use:   "enqueue <file.srt> [file.srt ...]",
	Short: "Submit translation jobs to the RabbitMQ job queue",
	Long: `Publish one job per file to the durable job queue. The jobs are picked up
by "vietsub worker" processes, which may run on other hosts sharing the same
filesystem. Input paths are made absolute before publishing.

Example:
  vietsub enqueue season1/*.srt --preset series --queue-url amqp://user:pass@mq:5672/`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if presetName != "" {
			if _, ok := prompt.Preset(presetName); !ok {
				return fmt.Errorf("unknown preset %q (available: %v)", presetName, prompt.PresetNames())
			}
		}

		q, err := queue.NewRabbitMQQueue(cfg.Queue.URL, cfg.Queue.Name, 1, logger)
		if err != nil {
			return err
		}
		defer q.Close()

		var failed int
		for _, in := range args {
			abs, err := filepath.Abs(in)
			if err != nil {
				return fmt.Errorf("resolve %s: %w", in, err)
			}
			if _, err := os.Stat(abs); err != nil {
				logger.Error("skipping input", "input", in, "error", err)
				failed++
				continue
			}
			job := internal.Job{
				ID:          uuid.NewString(),
				UserID:      userID,
				InputPath:   abs,
				Instruction: instruction,
				Preset:      presetName,
				Submitted:   time.Now(),
			}
			if err := q.Enqueue(cmd.Context(), job); err != nil {
				logger.Error("failed to enqueue job", "input", in, "error", err)
				failed++
				continue
			}
			fmt.Printf("%s  %s\n", shortID(job.ID), abs)
		}

		if pending, err := q.Pending(); err == nil {
			fmt.Printf("%d jobs waiting in %s\n", pending, cfg.Queue.Name)
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d files were not queued", failed, len(args))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(enqueueCmd)

	f := enqueueCmd.Flags()
	f.StringVar(&instruction, "instruction", "", "Extra translation instruction for these jobs")
	f.StringVar(&presetName, "preset", "", "Instruction preset")
	f.StringVar(&userID, "user", "", "User the jobs belong to; workers apply the user's saved instruction and preset")
	f.String("queue-url", "", "RabbitMQ URL")
	f.String("queue-name", "", "RabbitMQ queue name")
}
