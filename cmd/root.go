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
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/valpere/vietsub/internal/config"
	"github.com/valpere/vietsub/internal/logging"
)

var version = "0.1.0"

var (
	configFile string
	v          *viper.Viper
	cfg        *config.Config
	logger     *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "vietsub",
	Short: "Translate SRT subtitles into Vietnamese",
	Long: `A CLI application that translates SRT subtitle files into Vietnamese
with a text generation service, batch by batch, keeping cue count, order,
timing and inline tags intact.

Supported providers: openai, openrouter, ollama, google

Settings come from flags, VIETSUB_* environment variables and an optional
vietsub.yaml (current directory or ~/.config/vietsub).

Use "vietsub translate --help" for translation options.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		v = config.NewViper(configFile)
		if err := bindFlags(v, cmd.Flags()); err != nil {
			return err
		}
		if err := config.ReadFile(v); err != nil {
			return err
		}
		loaded, err := config.Load(v)
		if err != nil {
			return err
		}
		cfg = loaded

		logger, err = logging.New(logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})
		if err != nil {
			return err
		}
		slog.SetDefault(logger)
		if used := v.ConfigFileUsed(); used != "" {
			logger.Debug("loaded config file", "path", used)
		}
		return nil
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configFile, "config", "", "Config file (default ./vietsub.yaml or ~/.config/vietsub/vietsub.yaml)")
	pf.String("provider", "openai", "Translation provider: openai, openrouter, ollama, google")
	pf.String("model", "gpt-3.5-turbo", "Model identifier")
	pf.String("api-key", "", "API key for openai/openrouter/google")
	pf.String("base-url", "", "Override the provider base URL")
	pf.String("credentials", "", "Path to Google Cloud credentials")
	pf.String("db", "./data/vietsub.db", "Database path for translation memory, glossary and job history")
	pf.Bool("no-cache", false, "Disable the batch translation memory")
	pf.String("log-level", "info", "Log level: debug, info, warn, error")
	pf.String("log-format", "auto", "Log format: auto, text, json")
}

// configKeys maps flag names to config keys. Flags not listed are plain
// command options.
var configKeys = map[string]string{
	"provider":     "provider",
	"model":        "model",
	"api-key":      "api_key",
	"base-url":     "base_url",
	"credentials":  "credentials",
	"db":           "db",
	"no-cache":     "no_cache",
	"log-level":    "log.level",
	"log-format":   "log.format",
	"batch-size":   "batch.max_size",
	"scene-gap":    "batch.scene_gap",
	"max-retries":  "retry.max_retries",
	"call-timeout": "call_timeout",
	"structured":   "prompt.structured",
	"protect-tags": "prompt.protect_tags",
	"validate":     "validate",
	"jobs":         "workers",
	"queue-url":    "queue.url",
	"queue-name":   "queue.name",
}

func bindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	var err error
	fs.VisitAll(func(f *pflag.Flag) {
		key, ok := configKeys[f.Name]
		if !ok || err != nil {
			return
		}
		if bindErr := v.BindPFlag(key, f); bindErr != nil {
			err = fmt.Errorf("bind flag --%s: %w", f.Name, bindErr)
		}
	})
	return err
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
