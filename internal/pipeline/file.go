package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/valpere/vietsub/internal"
	"github.com/valpere/vietsub/internal/srt"
)

// History records job outcomes.
type History interface {
	SaveJob(ctx context.Context, rec internal.JobRecord) error
}

// RunFile translates the subtitle file at in and writes the result to out,
// which defaults to the input name with a .vi marker before the extension.
func (p *Pipeline) RunFile(ctx context.Context, in, out, instruction string) (*Result, error) {
	return p.RunJob(ctx, internal.Job{
		InputPath:   in,
		OutputPath:  out,
		Instruction: instruction,
	})
}

// RunJob runs job against the filesystem. Every returned error is a
// *FatalError; the output file is always complete when err is nil.
func (p *Pipeline) RunJob(ctx context.Context, job internal.Job) (*Result, error) {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.OutputPath == "" {
		job.OutputPath = srt.OutputPath(job.InputPath, TargetLanguage)
	}
	start := time.Now()

	res, err := p.runJob(ctx, job)
	p.record(ctx, job, res, err, time.Since(start))
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (p *Pipeline) runJob(ctx context.Context, job internal.Job) (*Result, error) {
	data, err := os.ReadFile(job.InputPath)
	if err != nil {
		return nil, &FatalError{Op: "read", Path: job.InputPath, Err: err}
	}

	res, err := p.Run(ctx, Input{
		JobID:       job.ID,
		Content:     string(data),
		Instruction: job.Instruction,
		Preset:      job.Preset,
	})
	if err != nil {
		return nil, &FatalError{Op: "parse", Path: job.InputPath, Err: err}
	}
	// An interrupted job leaves no partial output behind.
	if err := ctx.Err(); err != nil {
		return nil, &FatalError{Op: "translate", Path: job.InputPath, Err: err}
	}

	if dir := filepath.Dir(job.OutputPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, &FatalError{Op: "write", Path: job.OutputPath, Err: err}
		}
	}
	if err := os.WriteFile(job.OutputPath, []byte(res.Content), 0o644); err != nil {
		return nil, &FatalError{Op: "write", Path: job.OutputPath, Err: err}
	}
	res.OutputPath = job.OutputPath
	return res, nil
}

func (p *Pipeline) record(ctx context.Context, job internal.Job, res *Result, runErr error, elapsed time.Duration) {
	if p.history == nil {
		return
	}
	rec := internal.JobRecord{
		ID:         job.ID,
		UserID:     job.UserID,
		InputPath:  job.InputPath,
		OutputPath: job.OutputPath,
		Provider:   p.client.Name(),
		Model:      p.client.Model(),
		Duration:   elapsed,
		CreatedAt:  time.Now(),
	}
	switch {
	case runErr != nil:
		rec.Status = internal.StatusFailed
		rec.Error = runErr.Error()
	case res.Skipped:
		rec.Status = internal.StatusSkipped
		rec.Cues = len(res.Cues)
	default:
		rec.Status = internal.StatusDone
		rec.Cues = len(res.Cues)
		rec.Batches = res.Batches
		rec.FailedBatches = len(res.Failures)
		rec.CachedBatches = res.CachedBatches
		rec.InputTokens = res.Report.InputTokens
		rec.OutputTokens = res.Report.OutputTokens
		rec.CostUSD = res.Report.CostUSD
	}
	if err := p.history.SaveJob(ctx, rec); err != nil {
		p.logger.Warn("failed to record job", "job_id", job.ID, "error", err)
	}
}

// IsFatal reports whether err aborted a job.
func IsFatal(err error) bool {
	var fe *FatalError
	return errors.As(err, &fe)
}

// Summary is a one-line description of res.
func (r *Result) Summary() string {
	if r.Skipped {
		return fmt.Sprintf("%d cues already in Vietnamese, copied unchanged", len(r.Cues))
	}
	s := fmt.Sprintf("%d cues in %d batches", len(r.Cues), r.Batches)
	if n := len(r.Failures); n > 0 {
		s += fmt.Sprintf(", %d failed", n)
	}
	if r.CachedBatches > 0 {
		s += fmt.Sprintf(", %d from memory", r.CachedBatches)
	}
	return s + "; " + r.Report.String()
}
