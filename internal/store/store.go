package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"
	_ "modernc.org/sqlite"

	"github.com/valpere/vietsub/internal"
)

type Store struct {
	db *sql.DB
}

// New opens (creating if needed) the SQLite database at dbPath. The parent
// directory is created for file paths.
func New(dbPath string) (*Store, error) {
	if dbPath != ":memory:" {
		if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite serialises writers; one connection avoids SQLITE_BUSY between
	// concurrent jobs.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}

	return s, nil
}

func (s *Store) migrate() error {
	schema := `
	-- batch_memory caches the aligned translations of a whole batch
	CREATE TABLE IF NOT EXISTS batch_memory (
		id TEXT PRIMARY KEY,
		batch_key TEXT NOT NULL UNIQUE,
		model TEXT NOT NULL,
		instruction TEXT NOT NULL,
		source_text TEXT NOT NULL,
		translations TEXT NOT NULL,
		cue_count INTEGER NOT NULL,
		usage_count INTEGER DEFAULT 0,
		last_used TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	-- jobs records the outcome of every translation job
	CREATE TABLE IF NOT EXISTS jobs (
		id TEXT PRIMARY KEY,
		user_id TEXT,
		input_path TEXT NOT NULL,
		output_path TEXT,
		provider TEXT,
		model TEXT,
		status TEXT NOT NULL,
		cues INTEGER DEFAULT 0,
		batches INTEGER DEFAULT 0,
		failed_batches INTEGER DEFAULT 0,
		cached_batches INTEGER DEFAULT 0,
		input_tokens INTEGER DEFAULT 0,
		output_tokens INTEGER DEFAULT 0,
		cost_usd REAL DEFAULT 0,
		error TEXT,
		duration_ms INTEGER DEFAULT 0,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	-- glossary stores user-defined terminology for consistent translation of specific terms
	CREATE TABLE IF NOT EXISTS glossary (
		id TEXT PRIMARY KEY,
		source_lang TEXT NOT NULL,
		target_lang TEXT NOT NULL,
		source_term TEXT NOT NULL,
		target_term TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(source_lang, target_lang, source_term)
	);

	-- sessions keeps the remembered state of each user between runs
	CREATE TABLE IF NOT EXISTS sessions (
		user_id TEXT PRIMARY KEY,
		data TEXT NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_jobs_created ON jobs(created_at);
	CREATE INDEX IF NOT EXISTS idx_glossary_lookup ON glossary(source_lang, target_lang);
	`

	_, err := s.db.Exec(schema)
	return err
}

func (s *Store) Close() error {
	return s.db.Close()
}

// --- batch memory ---

// BatchKey identifies a batch by model, instruction and normalized source texts.
func BatchKey(model, instruction string, sources []string) string {
	h := sha256.New()
	h.Write([]byte(strings.ToLower(strings.TrimSpace(model))))
	h.Write([]byte{0})
	h.Write([]byte(normalizeText(instruction)))
	for _, src := range sources {
		h.Write([]byte{0x1e})
		h.Write([]byte(normalizeText(src)))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// LookupBatch returns the cached translations for a batch. A cached entry
// whose length no longer matches the batch is ignored.
func (s *Store) LookupBatch(ctx context.Context, model, instruction string, sources []string) ([]string, bool, error) {
	key := BatchKey(model, instruction, sources)

	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT translations FROM batch_memory WHERE batch_key = ?`, key).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var texts []string
	if err := json.Unmarshal([]byte(raw), &texts); err != nil || len(texts) != len(sources) {
		return nil, false, nil
	}

	_, err = s.db.ExecContext(ctx,
		`UPDATE batch_memory SET usage_count = usage_count + 1, last_used = ? WHERE batch_key = ?`,
		time.Now(), key)
	return texts, true, err
}

// RememberBatch stores the translations of a batch.
func (s *Store) RememberBatch(ctx context.Context, model, instruction string, sources, translations []string) error {
	if len(sources) != len(translations) {
		return fmt.Errorf("batch has %d sources but %d translations", len(sources), len(translations))
	}
	raw, err := json.Marshal(translations)
	if err != nil {
		return err
	}
	now := time.Now()
	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO batch_memory (id, batch_key, model, instruction, source_text, translations, cue_count, usage_count, last_used, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, 0, ?, ?)`,
		uuid.NewString(), BatchKey(model, instruction, sources), model, instruction,
		normalizeText(strings.Join(sources, "\n")), string(raw), len(sources), now, now)
	return err
}

// MemoryEntry is a row from the batch_memory table.
type MemoryEntry struct {
	ID          string
	Model       string
	Instruction string
	SourceText  string
	CueCount    int
	UsageCount  int
	LastUsed    time.Time
}

// CacheStats summarises batch memory usage.
type CacheStats struct {
	TotalEntries int
	TotalCues    int
	TotalUsage   int
}

// ListMemory returns batch memory entries ordered by most recently used.
func (s *Store) ListMemory(ctx context.Context) ([]MemoryEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, model, instruction, source_text, cue_count, usage_count, last_used FROM batch_memory ORDER BY last_used DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []MemoryEntry
	for rows.Next() {
		var e MemoryEntry
		if err := rows.Scan(&e.ID, &e.Model, &e.Instruction, &e.SourceText, &e.CueCount, &e.UsageCount, &e.LastUsed); err != nil {
			return nil, err
		}
		results = append(results, e)
	}

	return results, rows.Err()
}

// Stats returns summary statistics for the batch memory.
func (s *Store) Stats(ctx context.Context) (*CacheStats, error) {
	stats := &CacheStats{}
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(cue_count), 0), COALESCE(SUM(usage_count), 0) FROM batch_memory`).Scan(
		&stats.TotalEntries,
		&stats.TotalCues,
		&stats.TotalUsage,
	)
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// DeleteMemory permanently removes a batch memory entry by ID.
func (s *Store) DeleteMemory(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM batch_memory WHERE id = ?`, id)
	return err
}

// ClearMemory removes all batch memory entries.
func (s *Store) ClearMemory(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM batch_memory`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// --- job history ---

// SaveJob inserts or replaces a job record.
func (s *Store) SaveJob(ctx context.Context, rec internal.JobRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO jobs (id, user_id, input_path, output_path, provider, model, status, cues, batches, failed_batches, cached_batches, input_tokens, output_tokens, cost_usd, error, duration_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.UserID, rec.InputPath, rec.OutputPath, rec.Provider, rec.Model, rec.Status,
		rec.Cues, rec.Batches, rec.FailedBatches, rec.CachedBatches, rec.InputTokens, rec.OutputTokens,
		rec.CostUSD, rec.Error, rec.Duration.Milliseconds(), rec.CreatedAt)
	return err
}

// ListJobs returns the most recent jobs first. limit <= 0 returns all.
func (s *Store) ListJobs(ctx context.Context, limit int) ([]internal.JobRecord, error) {
	query := `SELECT id, COALESCE(user_id, ''), input_path, COALESCE(output_path, ''), COALESCE(provider, ''), COALESCE(model, ''), status,
		cues, batches, failed_batches, cached_batches, input_tokens, output_tokens, cost_usd, COALESCE(error, ''), duration_ms, created_at
		FROM jobs ORDER BY created_at DESC`
	var args []interface{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.JobRecord
	for rows.Next() {
		var (
			rec internal.JobRecord
			ms  int64
		)
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.InputPath, &rec.OutputPath, &rec.Provider, &rec.Model, &rec.Status,
			&rec.Cues, &rec.Batches, &rec.FailedBatches, &rec.CachedBatches, &rec.InputTokens, &rec.OutputTokens,
			&rec.CostUSD, &rec.Error, &ms, &rec.CreatedAt); err != nil {
			return nil, err
		}
		rec.Duration = time.Duration(ms) * time.Millisecond
		out = append(out, rec)
	}
	return out, rows.Err()
}

// --- glossary ---

// GlossaryEntry represents a row in the glossary table.
type GlossaryEntry struct {
	ID         string
	SourceLang string
	TargetLang string
	SourceTerm string
	TargetTerm string
	CreatedAt  time.Time
}

// AddGlossaryTerm inserts or replaces a glossary entry.
func (s *Store) AddGlossaryTerm(ctx context.Context, sourceLang, targetLang, sourceTerm, targetTerm string) error {
	sourceTerm, targetTerm = strings.TrimSpace(sourceTerm), strings.TrimSpace(targetTerm)
	if sourceTerm == "" || targetTerm == "" {
		return fmt.Errorf("glossary terms must not be empty")
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO glossary (id, source_lang, target_lang, source_term, target_term)
		 VALUES (?, ?, ?, ?, ?)`,
		uuid.NewString(), sourceLang, targetLang, sourceTerm, targetTerm)
	return err
}

// GetGlossaryTerms returns the glossary for a language pair as a
// source-term → target-term map. An empty sourceLang matches every source
// language.
func (s *Store) GetGlossaryTerms(ctx context.Context, sourceLang, targetLang string) (map[string]string, error) {
	query := `SELECT source_term, target_term FROM glossary WHERE target_lang = ?`
	args := []interface{}{targetLang}
	if sourceLang != "" {
		query += ` AND source_lang IN (?, '')`
		args = append(args, sourceLang)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	terms := make(map[string]string)
	for rows.Next() {
		var src, tgt string
		if err := rows.Scan(&src, &tgt); err != nil {
			return nil, err
		}
		terms[src] = tgt
	}
	return terms, rows.Err()
}

// ListGlossaryTerms returns all glossary entries, optionally filtered by language
// pair (pass empty strings to return everything).
func (s *Store) ListGlossaryTerms(ctx context.Context, sourceLang, targetLang string) ([]GlossaryEntry, error) {
	query := `SELECT id, source_lang, target_lang, source_term, target_term, created_at FROM glossary`
	var args []interface{}

	switch {
	case sourceLang != "" && targetLang != "":
		query += ` WHERE source_lang = ? AND target_lang = ?`
		args = append(args, sourceLang, targetLang)
	case sourceLang != "":
		query += ` WHERE source_lang = ?`
		args = append(args, sourceLang)
	case targetLang != "":
		query += ` WHERE target_lang = ?`
		args = append(args, targetLang)
	}
	query += ` ORDER BY source_lang, target_lang, source_term`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []GlossaryEntry
	for rows.Next() {
		var e GlossaryEntry
		if err := rows.Scan(&e.ID, &e.SourceLang, &e.TargetLang, &e.SourceTerm, &e.TargetTerm, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// DeleteGlossaryTerm removes a glossary entry by ID.
func (s *Store) DeleteGlossaryTerm(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM glossary WHERE id = ?`, id)
	return err
}

// normalizeText trims whitespace and applies Unicode NFC normalization
// for consistent cache key comparison.
func normalizeText(text string) string {
	return norm.NFC.String(strings.TrimSpace(text))
}
