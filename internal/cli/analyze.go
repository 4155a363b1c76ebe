package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/menta2k/pixuli/internal/logger"
	"github.com/menta2k/pixuli/internal/utils"
	"github.com/menta2k/pixuli/pkg/types"
)

var (
	analyzeOut       string
	analyzeRecursive bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <image|url|dir>...",
	Short: "Analyze images and print JSON results",
	Long: `Analyzes each input and prints one JSON result per input, in order.
Directories are expanded to the images they contain. An input that cannot
be read or decoded yields a result with success=false; the rest still run.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVarP(&analyzeOut, "out", "o", "", "write JSON to file instead of stdout")
	analyzeCmd.Flags().BoolVarP(&analyzeRecursive, "recursive", "r", false, "descend into subdirectories")
	analyzeCmd.Flags().BoolVar(&noColors, "no-colors", false, "skip color sampling")
	analyzeCmd.Flags().BoolVar(&noObjects, "no-objects", false, "skip placeholder objects")
	analyzeCmd.Flags().StringVar(&quantization, "quantization", "", "color bucketing: exact|quantize16")
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	p, err := newPixuli(cfg)
	if err != nil {
		return err
	}
	defer p.Close()

	sources, err := expandInputs(args, analyzeRecursive)
	if err != nil {
		return err
	}

	results := make([]types.AnalysisResult, len(sources))
	for i, src := range sources {
		data, err := p.ReadSource(src)
		if err != nil {
			logger.WithError(err).WithField("source", src).Warn("failed to read input")
			results[i] = types.FailedAnalysis(err)
			continue
		}
		r, err := p.Analyze(cmd.Context(), data)
		if err != nil {
			logger.WithError(err).WithField("source", src).Warn("analysis failed")
			results[i] = types.FailedAnalysis(err)
			continue
		}
		results[i] = *r
	}

	return writeJSON(analyzeOut, results)
}

// expandInputs replaces directories with their image files. URLs and
// files pass through unchanged.
func expandInputs(args []string, recursive bool) ([]string, error) {
	var out []string
	for _, a := range args {
		if !utils.DirExists(a) {
			out = append(out, a)
			continue
		}
		files, err := utils.ListImageFiles(a, recursive)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", a, err)
		}
		out = append(out, files...)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no images found")
	}
	return out, nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal results: %w", err)
	}
	if path == "" {
		_, err = fmt.Println(string(data))
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}
