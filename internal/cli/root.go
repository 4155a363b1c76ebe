// Package cli implements the pixuli command line.
package cli

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/menta2k/pixuli"
	"github.com/menta2k/pixuli/internal/config"
	"github.com/menta2k/pixuli/internal/logger"
	"github.com/menta2k/pixuli/internal/utils"
	"github.com/menta2k/pixuli/pkg/backend"
)

var (
	configPath string
	logLevel   string
	logFormat  string

	backendKind  string
	modelPath    string
	labelsPath   string
	endpoint     string
	provider     string
	modelName    string
	useGPU       bool
	noColors     bool
	noObjects    bool
	quantization string
)

var rootCmd = &cobra.Command{
	Use:   "pixuli",
	Short: "Heuristic image analysis and format conversion",
	Long: `pixuli classifies images from their geometry and dominant colors,
optionally running a model backend on top, and converts images between
JPEG, PNG, WebP, GIF, BMP and TIFF with aspect-aware resizing.`,
	Version:       pixuli.GetVersion(),
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (json or yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug|info|warn|error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format: text|json")

	rootCmd.PersistentFlags().StringVar(&backendKind, "backend", "", fmt.Sprintf("analysis backend %v", backend.Kinds()))
	rootCmd.PersistentFlags().StringVar(&modelPath, "model-path", "", "model file for tensor and onnx backends")
	rootCmd.PersistentFlags().StringVar(&labelsPath, "labels", "", "label file (default: <model>_labels.txt)")
	rootCmd.PersistentFlags().StringVar(&endpoint, "endpoint", "", "local model server URL")
	rootCmd.PersistentFlags().StringVar(&provider, "provider", "", "local model server type: ollama|llamacpp")
	rootCmd.PersistentFlags().StringVar(&modelName, "model", "", "model name for generative backends")
	rootCmd.PersistentFlags().BoolVar(&useGPU, "gpu", false, "prefer accelerated execution providers")

	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"pixuli %s (%s/%s, %s)\n",
		pixuli.GetVersion(), runtime.GOOS, runtime.GOARCH, runtime.Version(),
	))
}

// loadConfig resolves file, environment and flag settings, in that order.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.Default()

	path := configPath
	if path == "" && utils.FileExists(config.GetConfigPath()) {
		path = config.GetConfigPath()
	}
	if path != "" {
		loaded, err := config.LoadFromFile(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	cfg.ApplyEnv()

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.Log.Level = logLevel
	}
	if flags.Changed("log-format") {
		cfg.Log.Format = logFormat
	}
	if flags.Changed("backend") {
		cfg.Backend.Kind = backendKind
	}
	if flags.Changed("model-path") {
		cfg.Backend.ModelPath = modelPath
	}
	if flags.Changed("labels") {
		cfg.Backend.LabelsPath = labelsPath
	}
	if flags.Changed("endpoint") {
		cfg.Backend.Endpoint = endpoint
	}
	if flags.Changed("provider") {
		cfg.Backend.Provider = provider
	}
	if flags.Changed("model") {
		cfg.Backend.ModelName = modelName
	}
	if flags.Changed("gpu") {
		cfg.Backend.UseGPU = useGPU
	}
	if flags.Lookup("no-colors") != nil && flags.Changed("no-colors") {
		cfg.Analysis.AnalyzeColors = !noColors
	}
	if flags.Lookup("no-objects") != nil && flags.Changed("no-objects") {
		cfg.Analysis.DetectObjects = !noObjects
	}
	if flags.Lookup("quantization") != nil && flags.Changed("quantization") {
		cfg.Analysis.Quantization = quantization
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	logger.Configure(cfg.Log.Level, cfg.Log.Format)
	return cfg, nil
}

// newPixuli builds the facade from resolved configuration.
func newPixuli(cfg *config.Config) (*pixuli.Pixuli, error) {
	return pixuli.New(pixuli.Config{
		Analysis: cfg.AnalyzerOptions(),
		Backend:  cfg.BackendConfig(),
	})
}
