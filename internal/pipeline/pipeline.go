// Package pipeline runs one subtitle translation job: parse, language check,
// batch planning, then compose, translate and reconcile each batch in order.
//
// Batches run strictly one after another because every prompt carries the
// tail of the previous batch. A failed batch is emitted untranslated and the
// job continues; only unreadable input or unwritable output abort a job.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sort"
	"strings"
	"time"

	"github.com/valpere/vietsub/internal/batcher"
	"github.com/valpere/vietsub/internal/detector"
	"github.com/valpere/vietsub/internal/logging"
	"github.com/valpere/vietsub/internal/prompt"
	"github.com/valpere/vietsub/internal/reconcile"
	"github.com/valpere/vietsub/internal/retry"
	"github.com/valpere/vietsub/internal/srt"
	"github.com/valpere/vietsub/internal/translator"
	"github.com/valpere/vietsub/internal/usage"
	"github.com/valpere/vietsub/internal/validator"
)

// TargetLanguage is the ISO 639-1 code of the output language.
const TargetLanguage = "vi"

// Translator sends one composed request. *translator.Client implements it.
type Translator interface {
	Name() string
	Model() string
	Translate(ctx context.Context, req translator.Request, acct *usage.Account) (*translator.Completion, error)
}

// Memory caches whole-batch translations.
type Memory interface {
	LookupBatch(ctx context.Context, model, instruction string, sources []string) ([]string, bool, error)
	RememberBatch(ctx context.Context, model, instruction string, sources, translations []string) error
}

// Glossary provides fixed term translations.
type Glossary interface {
	GetGlossaryTerms(ctx context.Context, sourceLang, targetLang string) (map[string]string, error)
}

// Options tunes a Pipeline. Zero values select the defaults.
type Options struct {
	Batch  batcher.Options
	Detect detector.Options
	// Structured asks for a JSON reply; marker parsing remains the fallback.
	Structured    bool
	ProtectMarkup bool
	// DelayMin and DelayMax bound the jittered pause between batches.
	DelayMin time.Duration
	DelayMax time.Duration
	Rates    usage.RateTable
}

// DefaultDelayMin and DefaultDelayMax bound the pause between batches.
const (
	DefaultDelayMin = time.Second
	DefaultDelayMax = 1500 * time.Millisecond
)

// Progress is reported after every batch.
type Progress struct {
	Batch   int
	Batches int
	Cues    int
	Cached  bool
	Failed  bool
}

// Pipeline translates subtitle jobs. It holds no per-job state, so one
// Pipeline may run many jobs concurrently.
type Pipeline struct {
	client    Translator
	opts      Options
	logger    *slog.Logger
	memory    Memory
	glossary  Glossary
	history   History
	validator *validator.Validator
	langID    *detector.Detector
	sleep     func(ctx context.Context, d time.Duration) error
	onBatch   func(Progress)
}

// Option customizes a Pipeline.
type Option func(*Pipeline)

func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithMemory enables the batch translation memory.
func WithMemory(m Memory) Option {
	return func(p *Pipeline) { p.memory = m }
}

// WithGlossary injects user glossary terms into prompts.
func WithGlossary(g Glossary) Option {
	return func(p *Pipeline) { p.glossary = g }
}

// WithHistory records finished file jobs.
func WithHistory(h History) Option {
	return func(p *Pipeline) { p.history = h }
}

// WithValidator counts cues still not in Vietnamese after translation.
func WithValidator(v *validator.Validator) Option {
	return func(p *Pipeline) { p.validator = v }
}

// WithLanguageID identifies the source language to pick an instruction
// suggestion and glossary entries.
func WithLanguageID(d *detector.Detector) Option {
	return func(p *Pipeline) { p.langID = d }
}

// WithSleeper replaces the pause between batches.
func WithSleeper(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(p *Pipeline) {
		if fn != nil {
			p.sleep = fn
		}
	}
}

// WithProgress registers a callback run after each batch.
func WithProgress(fn func(Progress)) Option {
	return func(p *Pipeline) { p.onBatch = fn }
}

func New(client Translator, opts Options, options ...Option) *Pipeline {
	if opts.DelayMin <= 0 && opts.DelayMax <= 0 {
		opts.DelayMin, opts.DelayMax = DefaultDelayMin, DefaultDelayMax
	}
	if opts.DelayMax < opts.DelayMin {
		opts.DelayMax = opts.DelayMin
	}
	if opts.Rates == nil {
		opts.Rates = usage.DefaultRates()
	}
	p := &Pipeline{
		client: client,
		opts:   opts,
		logger: slog.Default(),
		sleep:  retry.SleepContext,
	}
	for _, opt := range options {
		opt(p)
	}
	return p
}

// Input is the content of one job.
type Input struct {
	JobID       string
	Content     string
	Instruction string
	Preset      string
}

// Result is the outcome of a job.
type Result struct {
	JobID string

	// Cues has exactly one entry per parsed input cue, in input order.
	Cues    []srt.Cue
	Content string

	// OutputPath is set when the result was written by RunJob.
	OutputPath string

	// Skipped is true when the input already read as Vietnamese.
	Skipped  bool
	Analysis detector.Analysis
	Issues   []*srt.ParseError

	SourceLanguage string
	Instruction    string
	Provider       string
	Model          string

	Batches       int
	CachedBatches int
	Failures      []*BatchFailure

	// Fallbacks counts cues that kept their source text inside batches
	// that were otherwise translated.
	Fallbacks int

	// Untranslated lists cue positions the validator still sees as
	// non-Vietnamese.
	Untranslated []int

	Usage    usage.Account
	Report   usage.Report
	Duration time.Duration
}

// Run translates in.Content. The only error it returns is ErrEmptyInput;
// every other failure is absorbed and reported in the Result.
func (p *Pipeline) Run(ctx context.Context, in Input) (*Result, error) {
	start := time.Now()
	logger := p.logger
	if in.JobID != "" {
		logger = logging.ForJob(logger, in.JobID)
	}

	cues, issues := srt.Parse(in.Content)
	for _, issue := range issues {
		logger.Warn("subtitle block issue", "block", issue.Block, "reason", issue.Reason, "dropped", issue.Dropped)
	}
	if len(cues) == 0 {
		return nil, ErrEmptyInput
	}

	res := &Result{
		JobID:    in.JobID,
		Issues:   issues,
		Provider: p.client.Name(),
		Model:    p.client.Model(),
	}

	res.Analysis = detector.Analyze(cues, p.opts.Detect)
	if res.Analysis.IsTarget {
		logger.Info("input is already Vietnamese, skipping translation",
			"cues", len(cues),
			"char_density", res.Analysis.CharDensity,
			"word_density", res.Analysis.WordDensity,
		)
		res.Skipped = true
		res.Cues = cues
		res.Content = in.Content
		res.SourceLanguage = TargetLanguage
		res.Report = p.opts.Rates.NewReport(res.Model, res.Usage)
		res.Duration = time.Since(start)
		return res, nil
	}

	res.SourceLanguage = p.sourceLanguage(cues)
	res.Instruction = prompt.ResolveInstruction(in.Instruction, in.Preset, res.SourceLanguage)
	glossary := p.loadGlossary(ctx, logger, res.SourceLanguage)

	batches := batcher.Plan(cues, p.opts.Batch)
	res.Batches = len(batches)
	logger.Info("translating",
		"cues", len(cues),
		"batches", len(batches),
		"source_language", res.SourceLanguage,
		"provider", res.Provider,
		"model", res.Model,
	)

	promptOpts := prompt.Options{
		Instruction:   res.Instruction,
		Glossary:      glossary,
		Structured:    p.opts.Structured,
		ProtectMarkup: p.opts.ProtectMarkup,
	}

	out := make([]srt.Cue, 0, len(cues))
	for i, b := range batches {
		texts, called, failed, cached := p.translateBatch(ctx, logger, b, len(batches), promptOpts, res)
		for j, c := range b.Cues {
			out = append(out, c.WithText(texts[j]))
		}

		if p.onBatch != nil {
			p.onBatch(Progress{Batch: i + 1, Batches: len(batches), Cues: len(b.Cues), Cached: cached, Failed: failed})
		}

		if called && i < len(batches)-1 {
			if err := p.sleep(ctx, p.jitter()); err != nil {
				logger.Debug("inter-batch delay interrupted", "error", err)
			}
		}
	}

	if len(out) != len(cues) {
		logger.Error("translated cue count differs from source",
			"source", len(cues), "translated", len(out))
	}

	if p.validator != nil {
		res.Untranslated = p.validate(logger, cues, out)
	}

	res.Cues = out
	res.Content = srt.Format(out) + "\n"
	res.Report = p.opts.Rates.NewReport(res.Model, res.Usage)
	res.Duration = time.Since(start)

	logger.Info("translation finished",
		"cues", len(out),
		"batches", res.Batches,
		"failed_batches", len(res.Failures),
		"cached_batches", res.CachedBatches,
		"input_tokens", res.Report.InputTokens,
		"output_tokens", res.Report.OutputTokens,
		"cost_usd", res.Report.CostUSD,
		"duration", res.Duration.Round(time.Millisecond),
	)
	return res, nil
}

// translateBatch returns one text per cue of b. called reports whether a
// generation call was made.
func (p *Pipeline) translateBatch(ctx context.Context, logger *slog.Logger, b batcher.Batch, total int, opts prompt.Options, res *Result) (texts []string, called, failed, cached bool) {
	sources := b.Texts()
	req := prompt.Compose(b, opts)
	memoryKey := memoryInstruction(req)
	blog := logger.With("batch", b.Index+1, "of", total, "cues", len(b.Cues))

	if p.memory != nil {
		hit, ok, err := p.memory.LookupBatch(ctx, res.Model, memoryKey, sources)
		if err != nil {
			blog.Warn("translation memory lookup failed", "error", err)
		}
		if ok {
			blog.Info("batch served from translation memory")
			res.CachedBatches++
			return hit, false, false, true
		}
	}

	comp, err := p.client.Translate(ctx, translator.Request{
		System:     req.System,
		Prompt:     req.Prompt,
		Segments:   req.Segments,
		Structured: req.Structured,
	}, &res.Usage)
	if err != nil {
		failure := &BatchFailure{Index: b.Index, Offset: b.Offset, Size: len(b.Cues), Err: err}
		res.Failures = append(res.Failures, failure)
		blog.Error("batch failed, keeping source text", "error", err)
		return sources, true, true, false
	}

	outcome := reconcile.Reconcile(comp.Text, req.Segments)
	if !outcome.Aligned() {
		blog.Warn("reply entry count differs from batch size",
			"fragments", outcome.Fragments,
			"missing", outcome.Missing,
			"extra", outcome.Extra,
		)
	}
	if outcome.Empty > 0 {
		blog.Warn("reply had empty entries, keeping source text", "empty", outcome.Empty)
	}
	res.Fallbacks += outcome.Fallbacks()

	texts = outcome.Texts
	if req.Markup != nil && req.Markup.Len() > 0 {
		if missing := req.Markup.Missing(texts); len(missing) > 0 {
			blog.Warn("reply dropped markup markers", "markers", len(missing))
		}
		for j := range texts {
			texts[j] = req.Markup.Restore(texts[j])
		}
	}

	blog.Info("batch translated",
		"input_tokens", comp.InputTokens,
		"output_tokens", comp.OutputTokens,
		"structured", outcome.Structured,
		"latency", comp.Latency.Round(time.Millisecond),
	)

	if p.memory != nil && outcome.Aligned() && outcome.Empty == 0 {
		if err := p.memory.RememberBatch(ctx, res.Model, memoryKey, sources, texts); err != nil {
			blog.Warn("translation memory store failed", "error", err)
		}
	}
	return texts, true, false, false
}

func (p *Pipeline) jitter() time.Duration {
	span := p.opts.DelayMax - p.opts.DelayMin
	if span <= 0 {
		return p.opts.DelayMin
	}
	return p.opts.DelayMin + time.Duration(rand.Int63n(int64(span)+1))
}

// sourceLanguage guesses the ISO code of the input from a sample of cues.
func (p *Pipeline) sourceLanguage(cues []srt.Cue) string {
	if p.langID == nil {
		return ""
	}
	idx := detector.SampleIndices(len(cues), 20)
	parts := make([]string, 0, len(idx))
	for _, i := range idx {
		parts = append(parts, cues[i].Text)
	}
	iso, ok := p.langID.DetectISO(strings.Join(parts, "\n"))
	if !ok {
		return ""
	}
	return strings.ToLower(iso)
}

func (p *Pipeline) loadGlossary(ctx context.Context, logger *slog.Logger, sourceLang string) []prompt.GlossaryEntry {
	if p.glossary == nil {
		return nil
	}
	terms, err := p.glossary.GetGlossaryTerms(ctx, sourceLang, TargetLanguage)
	if err != nil {
		logger.Warn("glossary lookup failed", "error", err)
		return nil
	}
	entries := make([]prompt.GlossaryEntry, 0, len(terms))
	for src, tgt := range terms {
		entries = append(entries, prompt.GlossaryEntry{Source: src, Target: tgt})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Source < entries[j].Source })
	return entries
}

func (p *Pipeline) validate(logger *slog.Logger, source, out []srt.Cue) []int {
	var candidates []int
	texts := make([]string, 0, len(out))
	for i := range out {
		if out[i].Text == source[i].Text {
			continue
		}
		candidates = append(candidates, i)
		texts = append(texts, out[i].Text)
	}
	var flagged []int
	for _, k := range p.validator.Untranslated(texts, TargetLanguage) {
		flagged = append(flagged, candidates[k])
	}
	if len(flagged) > 0 {
		logger.Warn("translated cues not detected as Vietnamese", "count", len(flagged), "first", flagged[0]+1)
	}
	return flagged
}

// memoryInstruction is the part of a request, besides the sources, that
// changes the translation and therefore keys the memory.
func memoryInstruction(req prompt.Request) string {
	var sb strings.Builder
	sb.WriteString(req.Instruction)
	for _, g := range req.Glossary {
		fmt.Fprintf(&sb, "\n%s=%s", g.Source, g.Target)
	}
	if req.Markup != nil {
		sb.WriteString("\n#markup")
	}
	return sb.String()
}
