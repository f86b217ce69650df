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
	"strconv"

	"github.com/spf13/cobra"

	"github.com/valpere/vietsub/internal/detector"
	"github.com/valpere/vietsub/internal/srt"
)

var checkCmd = &cobra.Command{
	Use:   "check <file.srt> [file.srt ...]",
	Short: "Report whether subtitle files already read as Vietnamese",
	Long: `Parse each file, sample up to detect.sample_size evenly spaced cues and
print the Vietnamese diacritic and function-word densities used to skip
translation, plus the language lingua detects for the sample. No service is
called.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		det := detector.New()
		opts := cfg.DetectOptions()

		headers := []string{"File", "Cues", "Dropped", "Sampled", "Char density", "Word density", "Detected", "Vietnamese"}
		aligns := []columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight, alignLeft, alignLeft}
		var rows [][]string
		for _, path := range args {
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", path, err)
			}
			cues, issues := srt.Parse(string(data))
			dropped := 0
			for _, issue := range issues {
				if issue.Dropped {
					dropped++
				}
			}

			a := detector.Analyze(cues, opts)
			lang := "-"
			if len(cues) > 0 {
				var sample string
				for _, i := range detector.SampleIndices(len(cues), 20) {
					sample += cues[i].Text + "\n"
				}
				if iso, ok := det.DetectISO(sample); ok {
					lang = iso
				}
			}
			rows = append(rows, []string{
				path,
				strconv.Itoa(len(cues)),
				strconv.Itoa(dropped),
				strconv.Itoa(a.Sampled),
				fmt.Sprintf("%.2f%%", a.CharDensity*100),
				fmt.Sprintf("%.2f%%", a.WordDensity*100),
				lang,
				strconv.FormatBool(a.IsTarget),
			})
		}
		fmt.Println(renderTable(headers, rows, aligns))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
}
