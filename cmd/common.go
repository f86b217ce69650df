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

	"github.com/valpere/vietsub/internal"
	"github.com/valpere/vietsub/internal/detector"
	"github.com/valpere/vietsub/internal/pipeline"
	"github.com/valpere/vietsub/internal/session"
	"github.com/valpere/vietsub/internal/store"
	"github.com/valpere/vietsub/internal/translator"
	"github.com/valpere/vietsub/internal/validator"
)

// buildClient constructs the translation client from the loaded config.
func buildClient() (*translator.Client, error) {
	gen, err := translator.New(cfg.Service())
	if err != nil {
		return nil, fmt.Errorf("provider %s: %w", cfg.Provider, err)
	}
	return translator.NewClient(gen,
		translator.WithRetryPolicy(cfg.RetryPolicy()),
		translator.WithCallTimeout(cfg.CallTimeout),
		translator.WithLogger(logger),
	), nil
}

// openStore opens the SQLite database. It returns nil when db is empty.
func openStore() (*store.Store, error) {
	if cfg.DB == "" {
		return nil, nil
	}
	db, err := store.New(cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

// buildPipeline wires the pipeline with every optional collaborator the
// config enables. db may be nil.
func buildPipeline(client *translator.Client, db *store.Store, extra ...pipeline.Option) *pipeline.Pipeline {
	langID := detector.New()
	opts := []pipeline.Option{
		pipeline.WithLogger(logger),
		pipeline.WithLanguageID(langID),
	}
	if db != nil {
		opts = append(opts, pipeline.WithGlossary(db), pipeline.WithHistory(db))
		if !cfg.NoCache {
			opts = append(opts, pipeline.WithMemory(db))
		}
	}
	if cfg.ValidateOutput {
		opts = append(opts, pipeline.WithValidator(validator.NewWithDetector(langID)))
	}
	opts = append(opts, extra...)

	return pipeline.New(client, pipeline.Options{
		Batch:         cfg.BatchOptions(),
		Detect:        cfg.DetectOptions(),
		Structured:    cfg.Prompt.Structured,
		ProtectMarkup: cfg.Prompt.ProtectTags,
		DelayMin:      cfg.Delay.Min,
		DelayMax:      cfg.Delay.Max,
		Rates:         cfg.RateTable(),
	}, opts...)
}

// openSessions returns the configured session store. The sqlite backend
// shares db when it is open.
func openSessions(ctx context.Context, db *store.Store) (session.Store, error) {
	switch cfg.Session.Backend {
	case "redis":
		return session.NewRedisStore(ctx, session.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			TTL:      cfg.Session.TTL,
		})
	case "sqlite":
		if db != nil {
			return db.Sessions(cfg.Session.TTL), nil
		}
		ss, err := store.OpenSessionStore(cfg.DB, cfg.Session.TTL)
		if err != nil {
			return nil, fmt.Errorf("failed to open session store: %w", err)
		}
		return ss, nil
	}
	return session.NewMemoryStore(cfg.Session.TTL), nil
}

// applySession fills the job's instruction and preset from the user's
// session when the job names a user but leaves both empty.
func applySession(ctx context.Context, sessions session.Store, job *internal.Job) (*session.Session, error) {
	if sessions == nil || job.UserID == "" {
		return nil, nil
	}
	sess, err := sessions.Get(ctx, job.UserID)
	if err != nil {
		return nil, err
	}
	if job.Instruction == "" && job.Preset == "" {
		job.Instruction, job.Preset = sess.Instruction, sess.Preset
	}
	return sess, nil
}
