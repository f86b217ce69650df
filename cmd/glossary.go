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
	"sort"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"

	"github.com/valpere/vietsub/internal/store"
)

var glossaryCmd = &cobra.Command{
	Use:   "glossary",
	Short: "Manage the terminology glossary",
	Long: `Add, list, import and delete terminology glossary entries.

Entries whose source term occurs in a batch are sent with the prompt as fixed
translations, which keeps names and recurring terms consistent across a
file. Entries with an empty source language apply to every input language.`,
}

var (
	glossaryListSource string
	glossaryListTarget string
)

var glossaryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all glossary entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(ctx context.Context, db *store.Store) error {
			entries, err := db.ListGlossaryTerms(ctx, glossaryListSource, glossaryListTarget)
			if err != nil {
				return fmt.Errorf("failed to list glossary: %w", err)
			}
			if len(entries) == 0 {
				fmt.Println("Glossary is empty.")
				return nil
			}

			headers := []string{"ID", "Source lang", "Target lang", "Source term", "Target term"}
			rows := make([][]string, 0, len(entries))
			for _, e := range entries {
				src := e.SourceLang
				if src == "" {
					src = "*"
				}
				rows = append(rows, []string{e.ID, src, e.TargetLang, e.SourceTerm, e.TargetTerm})
			}
			fmt.Println(renderTable(headers, rows, nil))
			return nil
		})
	},
}

var glossaryAddSource string

var glossaryAddCmd = &cobra.Command{
	Use:   "add <source-term> <target-term>",
	Short: "Add or update a glossary entry",
	Long: `Add a glossary entry mapping a source term to its Vietnamese translation.

Example:
  vietsub glossary add "Hogwarts" "Hogwarts" --source en
  vietsub glossary add "senpai" "tiền bối" --source ja`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(ctx context.Context, db *store.Store) error {
			if err := db.AddGlossaryTerm(ctx, glossaryAddSource, "vi", args[0], args[1]); err != nil {
				return fmt.Errorf("failed to add glossary entry: %w", err)
			}
			fmt.Printf("Added: [%s→vi] %q → %q\n", langOrAny(glossaryAddSource), args[0], args[1])
			return nil
		})
	},
}

// glossaryFile is the YAML import format:
//
//	source: en
//	terms:
//	  Hogwarts: Hogwarts
//	  Muggle: Người thường
type glossaryFile struct {
	Source string            `yaml:"source"`
	Terms  map[string]string `yaml:"terms"`
}

func parseGlossaryFile(data []byte) (*glossaryFile, error) {
	var gf glossaryFile
	if err := yaml.Unmarshal(data, &gf); err != nil {
		return nil, fmt.Errorf("parse glossary file: %w", err)
	}
	if len(gf.Terms) == 0 {
		return nil, errors.New("glossary file has no terms")
	}
	gf.Source = strings.ToLower(strings.TrimSpace(gf.Source))
	return &gf, nil
}

var glossaryImportCmd = &cobra.Command{
	Use:   "import <file.yaml>",
	Short: "Import glossary entries from a YAML file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", args[0], err)
		}
		gf, err := parseGlossaryFile(data)
		if err != nil {
			return err
		}

		terms := make([]string, 0, len(gf.Terms))
		for term := range gf.Terms {
			terms = append(terms, term)
		}
		sort.Strings(terms)

		return withStore(func(ctx context.Context, db *store.Store) error {
			for _, term := range terms {
				if err := db.AddGlossaryTerm(ctx, gf.Source, "vi", term, gf.Terms[term]); err != nil {
					return fmt.Errorf("failed to import %q: %w", term, err)
				}
			}
			fmt.Printf("Imported %d entries [%s→vi]\n", len(terms), langOrAny(gf.Source))
			return nil
		})
	},
}

var glossaryDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a glossary entry by ID",
	Long: `Delete a glossary entry by its ID (shown in "vietsub glossary list").`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(ctx context.Context, db *store.Store) error {
			if err := db.DeleteGlossaryTerm(ctx, args[0]); err != nil {
				return fmt.Errorf("failed to delete glossary entry: %w", err)
			}
			fmt.Printf("Deleted glossary entry: %s\n", args[0])
			return nil
		})
	},
}

func langOrAny(lang string) string {
	if lang == "" {
		return "*"
	}
	return lang
}

func init() {
	rootCmd.AddCommand(glossaryCmd)

	glossaryListCmd.Flags().StringVarP(&glossaryListSource, "source", "s", "", "Filter by source language code (e.g. en)")
	glossaryListCmd.Flags().StringVarP(&glossaryListTarget, "target", "t", "", "Filter by target language code")
	glossaryAddCmd.Flags().StringVarP(&glossaryAddSource, "source", "s", "", "Source language code (empty applies to every language)")

	glossaryCmd.AddCommand(glossaryListCmd)
	glossaryCmd.AddCommand(glossaryAddCmd)
	glossaryCmd.AddCommand(glossaryImportCmd)
	glossaryCmd.AddCommand(glossaryDeleteCmd)
}
