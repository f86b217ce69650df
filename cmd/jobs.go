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
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/valpere/vietsub/internal/store"
)

var jobsLimit int

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Show recent translation jobs",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(ctx context.Context, db *store.Store) error {
			recs, err := db.ListJobs(ctx, jobsLimit)
			if err != nil {
				return fmt.Errorf("failed to list jobs: %w", err)
			}
			if len(recs) == 0 {
				fmt.Println("No jobs recorded.")
				return nil
			}

			headers := []string{"ID", "When", "Input", "Status", "Model", "Cues", "Batches", "Failed", "Cost USD", "Took"}
			aligns := []columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight}
			rows := make([][]string, 0, len(recs))
			for _, r := range recs {
				status := r.Status
				if r.Error != "" {
					status += ": " + truncate(r.Error, 40)
				}
				rows = append(rows, []string{
					shortID(r.ID),
					r.CreatedAt.Local().Format("2006-01-02 15:04"),
					truncate(r.InputPath, 40),
					status,
					r.Provider + "/" + r.Model,
					strconv.Itoa(r.Cues),
					strconv.Itoa(r.Batches),
					strconv.Itoa(r.FailedBatches),
					fmt.Sprintf("%.4f", r.CostUSD),
					r.Duration.Round(time.Millisecond).String(),
				})
			}
			fmt.Println(renderTable(headers, rows, aligns))
			return nil
		})
	},
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func init() {
	rootCmd.AddCommand(jobsCmd)
	jobsCmd.Flags().IntVarP(&jobsLimit, "limit", "n", 20, "Number of jobs to show (0 for all)")
}
