package cmd

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/fedscope/fedscope/taskset"
)

var (
	composeFromPaths []string
	composeOutPath   string
)

var composeCmd = &cobra.Command{
	Use:   "compose",
	Short: "Merge multiple task-set files into one",
	Long:  "Load multiple task-set YAML files and concatenate their task lists. Output is written to stdout unless --out is given.",
	Run: func(cmd *cobra.Command, args []string) {
		if len(composeFromPaths) == 0 {
			logrus.Fatalf("at least one --from flag is required")
		}

		var sets []*taskset.TaskSet
		for _, path := range composeFromPaths {
			set, err := taskset.Load(path)
			if err != nil {
				logrus.Fatalf("Failed to load task set %s: %v", path, err)
			}
			sets = append(sets, set)
		}

		merged, err := taskset.Merge(sets)
		if err != nil {
			logrus.Fatalf("Compose failed: %v", err)
		}

		out := io.Writer(os.Stdout)
		if composeOutPath != "" {
			f, err := os.Create(composeOutPath)
			if err != nil {
				logrus.Fatalf("Failed to create output file %s: %v", composeOutPath, err)
			}
			defer func() { _ = f.Close() }()
			out = f
		}
		if err := merged.Write(out); err != nil {
			logrus.Fatalf("Failed to write merged task set: %v", err)
		}
	},
}

func init() {
	composeCmd.Flags().StringArrayVar(&composeFromPaths, "from", nil, "Path to task-set YAML file (can be repeated)")
	composeCmd.Flags().StringVar(&composeOutPath, "out", "", "Output file (default: stdout)")
	_ = composeCmd.MarkFlagRequired("from")

	rootCmd.AddCommand(composeCmd)
}
