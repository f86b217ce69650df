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
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/valpere/vietsub/internal"
	"github.com/valpere/vietsub/internal/pipeline"
	"github.com/valpere/vietsub/internal/prompt"
	"github.com/valpere/vietsub/internal/queue"
	"github.com/valpere/vietsub/internal/session"
	"github.com/valpere/vietsub/internal/store"
	"github.com/valpere/vietsub/internal/worker"
)

var (
	inputFiles  []string
	outputFile  string
	instruction string
	presetName  string
	userID      string
)

var translateCmd = &cobra.Command{
	Use:   "translate [file.srt ...]",
	Short: "Translate SRT subtitle files into Vietnamese",
	Long: `Translate one or more SRT files into Vietnamese.

Each file is split into batches of up to --batch-size cues, breaking at scene
changes (gaps longer than --scene-gap). Batches are translated one after
another with the previous batch's last cues as context. A batch that still
fails after retries keeps its original text; the job always writes a
complete file next to the input (movie.en.srt -> movie.en.vi.srt).

Several files run concurrently (--jobs). Files that already read as
Vietnamese are copied unchanged without any service call.

Presets: ` + fmt.Sprint(prompt.PresetNames()) + `

Examples:
  vietsub translate movie.en.srt
  vietsub translate -i movie.srt -o out/movie.vi.srt --preset movie
  vietsub translate *.srt --jobs 4 --provider openrouter --model openai/gpt-4o-mini`,
	RunE: func(cmd *cobra.Command, args []string) error {
		inputs := append(append([]string{}, inputFiles...), args...)
		if len(inputs) == 0 {
			return errors.New("no input files given")
		}
		if outputFile != "" && len(inputs) > 1 {
			return errors.New("--output can only be used with a single input file")
		}
		if outputFile != "" && outputFile == inputs[0] {
			return errors.New("input file and output file cannot be the same")
		}
		if presetName != "" {
			if _, ok := prompt.Preset(presetName); !ok {
				return fmt.Errorf("unknown preset %q (available: %v)", presetName, prompt.PresetNames())
			}
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
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

		sess, sessions, err := loadSession(ctx, db)
		if err != nil {
			return err
		}
		if sessions != nil {
			defer sessions.Close()
		}
		pipe := buildPipeline(client, db)

		jobs := make([]internal.Job, len(inputs))
		for i, in := range inputs {
			jobs[i] = internal.Job{
				ID:          uuid.NewString(),
				UserID:      userID,
				InputPath:   in,
				Instruction: instruction,
				Preset:      presetName,
				Submitted:   time.Now(),
			}
		}
		if outputFile != "" {
			jobs[0].OutputPath = outputFile
		}

		results, failures := runJobs(ctx, pipe, jobs)

		if sess != nil {
			sess.Instruction, sess.Preset = instruction, presetName
			sess.LastInput = inputs[len(inputs)-1]
			if r, ok := results[jobs[len(jobs)-1].ID]; ok {
				sess.LastOutput = r.OutputPath
			}
			sess.Jobs += len(results)
			sess.State = session.StateIdle
			if err := sessions.Save(ctx, sess); err != nil {
				logger.Warn("failed to save session", "user", userID, "error", err)
			}
		}

		printResults(jobs, results, failures)
		if len(failures) > 0 {
			return fmt.Errorf("%d of %d jobs failed", len(failures), len(jobs))
		}
		return nil
	},
}

// runJobs pushes jobs through an in-memory queue served by a worker pool.
func runJobs(ctx context.Context, pipe *pipeline.Pipeline, jobs []internal.Job) (map[string]*pipeline.Result, map[string]error) {
	q := queue.NewMemoryQueue(len(jobs))
	for _, job := range jobs {
		if err := q.Enqueue(ctx, job); err != nil {
			logger.Error("failed to queue job", "input", job.InputPath, "error", err)
		}
	}
	q.Close()

	var mu sync.Mutex
	results := make(map[string]*pipeline.Result, len(jobs))
	failures := make(map[string]error)

	pool := &worker.Pool{
		Queue:   q,
		Workers: min(cfg.Workers, len(jobs)),
		Logger:  logger,
		Handler: func(ctx context.Context, job internal.Job) error {
			res, err := pipe.RunJob(ctx, job)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failures[job.ID] = err
				return err
			}
			results[job.ID] = res
			return nil
		},
	}
	pool.Run(ctx)
	return results, failures
}

func printResults(jobs []internal.Job, results map[string]*pipeline.Result, failures map[string]error) {
	headers := []string{"Input", "Output", "Status", "Cues", "Batches", "Failed", "Cached", "In tokens", "Out tokens", "Cost USD"}
	aligns := []columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight, alignRight, alignRight}

	var rows [][]string
	var totalIn, totalOut int
	var totalCost float64
	for _, job := range jobs {
		if err, ok := failures[job.ID]; ok {
			rows = append(rows, []string{job.InputPath, "-", "failed: " + err.Error(), "", "", "", "", "", "", ""})
			continue
		}
		r, ok := results[job.ID]
		if !ok {
			rows = append(rows, []string{job.InputPath, "-", "not run", "", "", "", "", "", "", ""})
			continue
		}
		status := "translated"
		if r.Skipped {
			status = "already vietnamese"
		}
		rows = append(rows, []string{
			job.InputPath,
			r.OutputPath,
			status,
			strconv.Itoa(len(r.Cues)),
			strconv.Itoa(r.Batches),
			strconv.Itoa(len(r.Failures)),
			strconv.Itoa(r.CachedBatches),
			strconv.Itoa(r.Report.InputTokens),
			strconv.Itoa(r.Report.OutputTokens),
			formatCost(r.Report.CostUSD, r.Report.Priced),
		})
		totalIn += r.Report.InputTokens
		totalOut += r.Report.OutputTokens
		totalCost += r.Report.CostUSD
	}
	if len(jobs) > 1 {
		rows = append(rows, []string{"total", "", "", "", "", "", "", strconv.Itoa(totalIn), strconv.Itoa(totalOut), fmt.Sprintf("%.4f", totalCost)})
	}
	fmt.Println(renderTable(headers, rows, aligns))
}

func formatCost(cost float64, priced bool) string {
	if !priced {
		return "n/a"
	}
	return fmt.Sprintf("%.4f", cost)
}

// loadSession fills instruction and preset from the user's session when the
// flags leave them empty. It returns nils when no user is given.
func loadSession(ctx context.Context, db *store.Store) (*session.Session, session.Store, error) {
	if userID == "" {
		return nil, nil, nil
	}
	sessions, err := openSessions(ctx, db)
	if err != nil {
		return nil, nil, err
	}
	sess, err := sessions.Get(ctx, userID)
	if err != nil {
		sessions.Close()
		return nil, nil, err
	}
	if instruction == "" && presetName == "" {
		instruction, presetName = sess.Instruction, sess.Preset
	}
	sess.State = session.StateTranslating
	if err := sessions.Save(ctx, sess); err != nil {
		logger.Warn("failed to save session", "user", userID, "error", err)
	}
	return sess, sessions, nil
}

func init() {
	rootCmd.AddCommand(translateCmd)

	f := translateCmd.Flags()
	f.StringSliceVarP(&inputFiles, "input", "i", nil, "Input SRT file(s); positional arguments are accepted too")
	f.StringVarP(&outputFile, "output", "o", "", "Output file (single input only; default <name>.vi.<ext>)")
	f.StringVar(&instruction, "instruction", "", "Translation guidance sent with every batch")
	f.StringVarP(&presetName, "preset", "p", "", "Instruction preset: normal, movie, anime, conversation, adult")
	f.StringVarP(&userID, "user", "u", "", "Remember instruction and preset for this user id")

	f.Int("jobs", 2, "Files translated concurrently")
	f.Int("batch-size", 40, "Maximum cues per batch")
	f.Duration("scene-gap", 2*time.Second, "Gap between cues that starts a new batch")
	f.Int("max-retries", 3, "Retries per batch after the first attempt")
	f.Duration("call-timeout", 10*time.Minute, "Timeout of one service call")
	f.Bool("structured", false, "Ask the model for a JSON reply")
	f.Bool("protect-tags", false, "Replace inline tags with [PHn] markers while translating")
	f.Bool("validate", false, "Flag translated cues that are not detected as Vietnamese")
}
