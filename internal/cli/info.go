package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/menta2k/pixuli/internal/logger"
	"github.com/menta2k/pixuli/pkg/types"
)

var (
	infoOut       string
	infoRecursive bool
)

type infoEntry struct {
	Source string `json:"source"`
	*types.ImageInfo
	Error string `json:"error,omitempty"`
}

var infoCmd = &cobra.Command{
	Use:   "info <image|url|dir>...",
	Short: "Print dimensions and pixel layout without decoding pixels",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runInfo,
}

var describeCmd = &cobra.Command{
	Use:   "describe <image|url>",
	Short: "Ask the configured vision model to describe an image",
	Long: `Sends the image with a plain question to the local-llm or remote-api
backend and prints the answer. Use it to check that a model can see images
before running analyze.`,
	Args: cobra.ExactArgs(1),
	RunE: runDescribe,
}

func init() {
	infoCmd.Flags().StringVarP(&infoOut, "out", "o", "", "write JSON to file instead of stdout")
	infoCmd.Flags().BoolVarP(&infoRecursive, "recursive", "r", false, "descend into subdirectories")
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(describeCmd)
}

func runInfo(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	p, err := newPixuli(cfg)
	if err != nil {
		return err
	}
	defer p.Close()

	sources, err := expandInputs(args, infoRecursive)
	if err != nil {
		return err
	}

	entries := make([]infoEntry, len(sources))
	for i, src := range sources {
		entries[i].Source = src
		data, err := p.ReadSource(src)
		if err == nil {
			entries[i].ImageInfo, err = p.Info(data)
		}
		if err != nil {
			logger.WithError(err).WithField("source", src).Warn("failed to read image info")
			entries[i].Error = err.Error()
		}
	}
	return writeJSON(infoOut, entries)
}

func runDescribe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	p, err := newPixuli(cfg)
	if err != nil {
		return err
	}
	defer p.Close()

	data, err := p.ReadSource(args[0])
	if err != nil {
		return err
	}
	text, err := p.Describe(cmd.Context(), data)
	if err != nil {
		return err
	}
	fmt.Printf("%s: %s\n", p.ModelUsed(), text)
	return nil
}
