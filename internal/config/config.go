package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/menta2k/pixuli/pkg/analyzer"
	"github.com/menta2k/pixuli/pkg/backend"
	"github.com/menta2k/pixuli/pkg/resize"
	"github.com/menta2k/pixuli/pkg/types"
	"github.com/menta2k/pixuli/pkg/vision"
)

// Config holds the application configuration
type Config struct {
	Analysis   AnalysisConfig   `json:"analysis" yaml:"analysis"`
	Backend    BackendConfig    `json:"backend" yaml:"backend"`
	Conversion ConversionConfig `json:"conversion" yaml:"conversion"`
	Server     ServerConfig     `json:"server" yaml:"server"`
	Log        LogConfig        `json:"log" yaml:"log"`
}

// AnalysisConfig holds the heuristic pipeline settings
type AnalysisConfig struct {
	AnalyzeColors bool   `json:"analyze_colors" yaml:"analyze_colors"`
	DetectObjects bool   `json:"detect_objects" yaml:"detect_objects"`
	TopColors     int    `json:"top_colors" yaml:"top_colors"`
	GridSize      int    `json:"grid_size" yaml:"grid_size"`
	Quantization  string `json:"quantization" yaml:"quantization"`
}

// BackendConfig selects the model backend
type BackendConfig struct {
	Kind                string   `json:"kind" yaml:"kind"`
	ModelPath           string   `json:"model_path,omitempty" yaml:"model_path,omitempty"`
	LabelsPath          string   `json:"labels_path,omitempty" yaml:"labels_path,omitempty"`
	UseGPU              bool     `json:"use_gpu" yaml:"use_gpu"`
	ConfidenceThreshold float64  `json:"confidence_threshold" yaml:"confidence_threshold"`
	InputSize           int      `json:"input_size" yaml:"input_size"`
	Endpoint            string   `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
	Provider            string   `json:"provider" yaml:"provider"`
	APIKey              string   `json:"api_key,omitempty" yaml:"api_key,omitempty"`
	ModelName           string   `json:"model_name,omitempty" yaml:"model_name,omitempty"`
	DefaultLabels       []string `json:"default_labels,omitempty" yaml:"default_labels,omitempty"`
}

// ConversionConfig holds defaults for format conversion
type ConversionConfig struct {
	DefaultFormat        string `json:"default_format" yaml:"default_format"`
	DefaultQuality       int    `json:"default_quality" yaml:"default_quality"`
	Lossless             bool   `json:"lossless" yaml:"lossless"`
	PreserveTransparency bool   `json:"preserve_transparency" yaml:"preserve_transparency"`
	// MaxDimension caps the longest side when no explicit resize is given; 0 disables it
	MaxDimension         int    `json:"max_dimension" yaml:"max_dimension"`
}

// ServerConfig holds the HTTP listener settings
type ServerConfig struct {
	Addr         string `json:"addr" yaml:"addr"`
	MaxBodyBytes int64  `json:"max_body_bytes" yaml:"max_body_bytes"`
}

// LogConfig holds logging settings
type LogConfig struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"`
}

// Default returns a configuration with default values
func Default() *Config {
	b := backend.DefaultConfig()
	s := vision.DefaultSampleOptions()
	return &Config{
		Analysis: AnalysisConfig{
			AnalyzeColors: true,
			DetectObjects: true,
			TopColors:     s.TopK,
			GridSize:      s.GridSize,
			Quantization:  "exact",
		},
		Backend: BackendConfig{
			Kind:                string(b.Kind),
			ConfidenceThreshold: b.ConfidenceThreshold,
			InputSize:           b.InputSize,
			Provider:            b.Provider,
		},
		Conversion: ConversionConfig{
			DefaultFormat:        string(types.FormatWebP),
			DefaultQuality:       85,
			PreserveTransparency: true,
		},
		Server: ServerConfig{
			Addr:         ":8080",
			MaxBodyBytes: 32 << 20,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// LoadFromFile loads configuration from a JSON or YAML file. Values absent
// from the file keep their defaults.
func LoadFromFile(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Default()
	if isYAML(filename) {
		err = yaml.Unmarshal(data, config)
	} else {
		err = json.Unmarshal(data, config)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration as JSON or YAML, chosen by extension
func (c *Config) SaveToFile(filename string) error {
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	var data []byte
	var err error
	if isYAML(filename) {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

func isYAML(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return ext == ".yaml" || ext == ".yml"
}

// ApplyEnv overrides secrets and log level from the environment
func (c *Config) ApplyEnv() {
	if key := os.Getenv("PIXULI_API_KEY"); key != "" {
		c.Backend.APIKey = key
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		c.Log.Level = level
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Analysis.TopColors < 3 || c.Analysis.TopColors > 5 {
		return fmt.Errorf("analysis.top_colors must be between 3 and 5")
	}

	if c.Analysis.GridSize < 1 {
		return fmt.Errorf("analysis.grid_size must be positive")
	}

	switch strings.ToLower(c.Analysis.Quantization) {
	case "", "exact", "quantize16":
	default:
		return fmt.Errorf("analysis.quantization must be exact or quantize16")
	}

	kind, ok := backend.ParseKind(c.Backend.Kind)
	if !ok {
		return fmt.Errorf("backend.kind %q is not one of %v", c.Backend.Kind, backend.Kinds())
	}

	if (kind == backend.KindONNX || kind == backend.KindTensorFlow || kind == backend.KindTensorFlowLite) && c.Backend.ModelPath == "" {
		return fmt.Errorf("backend.model_path is required for %s", kind)
	}

	if c.Backend.ConfidenceThreshold < 0 || c.Backend.ConfidenceThreshold > 1 {
		return fmt.Errorf("backend.confidence_threshold must be between 0 and 1")
	}

	if _, ok := types.ParseFormat(c.Conversion.DefaultFormat); !ok {
		return fmt.Errorf("conversion.default_format %q is not supported", c.Conversion.DefaultFormat)
	}

	if c.Conversion.DefaultQuality < 1 || c.Conversion.DefaultQuality > 100 {
		return fmt.Errorf("conversion.default_quality must be between 1 and 100")
	}

	if c.Conversion.MaxDimension < 0 || c.Conversion.MaxDimension > resize.MaxDimension {
		return fmt.Errorf("conversion.max_dimension must be between 0 and %d", resize.MaxDimension)
	}

	if c.Server.MaxBodyBytes < 1 {
		return fmt.Errorf("server.max_body_bytes must be positive")
	}

	return nil
}

// AnalyzerOptions converts the analysis section for the analyzer
func (c *Config) AnalyzerOptions() analyzer.Options {
	return analyzer.Options{
		AnalyzeColors: c.Analysis.AnalyzeColors,
		DetectObjects: c.Analysis.DetectObjects,
		Sample: vision.SampleOptions{
			GridSize:     c.Analysis.GridSize,
			TopK:         c.Analysis.TopColors,
			Quantization: vision.ParseQuantization(strings.ToLower(c.Analysis.Quantization)),
		},
	}
}

// ConversionRequest builds a request from the conversion defaults
func (c *Config) ConversionRequest() types.ConversionRequest {
	format, _ := types.ParseFormat(c.Conversion.DefaultFormat)
	return types.ConversionRequest{
		TargetFormat:         format,
		Quality:              c.Conversion.DefaultQuality,
		Lossless:             c.Conversion.Lossless,
		PreserveTransparency: c.Conversion.PreserveTransparency,
		MaxDimension:         c.Conversion.MaxDimension,
	}
}

// BackendConfig converts the backend section for backend.New
func (c *Config) BackendConfig() backend.Config {
	kind, _ := backend.ParseKind(c.Backend.Kind)
	return backend.Config{
		Kind:                kind,
		ModelPath:           c.Backend.ModelPath,
		LabelsPath:          c.Backend.LabelsPath,
		UseGPU:              c.Backend.UseGPU,
		ConfidenceThreshold: c.Backend.ConfidenceThreshold,
		InputSize:           c.Backend.InputSize,
		Endpoint:            c.Backend.Endpoint,
		Provider:            c.Backend.Provider,
		APIKey:              c.Backend.APIKey,
		ModelName:           c.Backend.ModelName,
		DefaultLabels:       c.Backend.DefaultLabels,
	}
}

// GetConfigPath returns the default configuration file path
func GetConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./config.yaml"
	}
	return filepath.Join(home, ".config", "pixuli", "config.yaml")
}
