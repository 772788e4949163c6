// Package config loads pipeline and tool settings from an optional YAML file
// with environment overrides.
//
// A file only needs the keys it changes; everything else keeps its default:
//
//	width: 300
//	height: 150
//	border:
//	  mode: constant
//	  color: "#0000FF"
//	threshold: otsu
//	policy:
//	  min_area: 30
//	  max_area: 2000
//
// Environment variables win over the file:
//
//	PLATE_MCP_LOG_LEVEL   log level ("debug", "info", ...)
//	PLATE_MCP_THRESHOLD   "adaptive" or "otsu"
//	PLATE_MCP_OUTPUT_DIR  directory for saved plates
//	PLATE_MCP_WORKERS     batch worker count
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ironsheep/plate-tools-mcp/internal/classify"
	"github.com/ironsheep/plate-tools-mcp/internal/contour"
	"github.com/ironsheep/plate-tools-mcp/internal/geometry"
	"github.com/ironsheep/plate-tools-mcp/internal/imaging"
	"github.com/ironsheep/plate-tools-mcp/internal/pipeline"
	"github.com/ironsheep/plate-tools-mcp/internal/store"
)

// Environment variable names.
const (
	EnvConfig    = "PLATE_MCP_CONFIG"
	EnvLogLevel  = "PLATE_MCP_LOG_LEVEL"
	EnvThreshold = "PLATE_MCP_THRESHOLD"
	EnvOutputDir = "PLATE_MCP_OUTPUT_DIR"
	EnvWorkers   = "PLATE_MCP_WORKERS"
)

// Border selects how rectified pixels outside the source are filled.
type Border struct {
	// Mode is "constant" or "reflect".
	Mode string `yaml:"mode"`
	// Color is the constant fill as "#RRGGBB" or "#RRGGBBAA".
	Color string `yaml:"color"`
}

// Config is the file and environment view of the settings.
type Config struct {
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
	Border Border `yaml:"border"`

	Threshold string  `yaml:"threshold"`
	Polarity  string  `yaml:"polarity"`
	Blur      bool    `yaml:"blur"`
	BlockSize int     `yaml:"block_size"`
	C         float64 `yaml:"c"`

	StructuringRadius int    `yaml:"structuring_radius"`
	Retrieval         string `yaml:"retrieval"`

	Policy      classify.Policy `yaml:"policy"`
	ScalePolicy bool            `yaml:"scale_policy"`

	OutputDir string `yaml:"output_dir"`
	Workers   int    `yaml:"workers"`
	LogLevel  string `yaml:"log_level"`
}

// Default mirrors pipeline.DefaultOptions.
func Default() Config {
	opts := pipeline.DefaultOptions()
	return Config{
		Width:             opts.TargetWidth,
		Height:            opts.TargetHeight,
		Border:            Border{Mode: "constant", Color: "#000000"},
		Threshold:         opts.ThresholdMode.String(),
		Polarity:          opts.Polarity.String(),
		Blur:              opts.Blur,
		BlockSize:         opts.BlockSize,
		C:                 opts.C,
		StructuringRadius: opts.StructuringRadius,
		Retrieval:         opts.Retrieval.String(),
		Policy:            opts.Policy,
		OutputDir:         store.DefaultDir,
		LogLevel:          "info",
	}
}

// Load reads path over the defaults and then applies the environment. An
// empty path skips the file; a missing file is an error.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}
	if err := cfg.ApplyEnv(os.Getenv); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadFromEnv loads the file named by PLATE_MCP_CONFIG, if any. A variable
// pointing at a missing file is ignored so a stale setting does not keep the
// server from starting.
func LoadFromEnv() (Config, error) {
	path := os.Getenv(EnvConfig)
	if path != "" {
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			path = ""
		}
	}
	return Load(path)
}

// ApplyEnv overrides fields from the environment; getenv is usually os.Getenv.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	if v := getenv(EnvLogLevel); v != "" {
		c.LogLevel = v
	}
	if v := getenv(EnvThreshold); v != "" {
		c.Threshold = v
	}
	if v := getenv(EnvOutputDir); v != "" {
		c.OutputDir = v
	}
	if v := getenv(EnvWorkers); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvWorkers, v, err)
		}
		c.Workers = n
	}
	return nil
}

// Debug reports whether the log level asks for debug output.
func (c Config) Debug() bool {
	return strings.EqualFold(c.LogLevel, "debug")
}

// PipelineOptions converts and validates the settings.
func (c Config) PipelineOptions() (pipeline.Options, error) {
	opts := pipeline.DefaultOptions()
	opts.TargetWidth = c.Width
	opts.TargetHeight = c.Height
	opts.Blur = c.Blur
	opts.BlockSize = c.BlockSize
	opts.C = c.C
	opts.StructuringRadius = c.StructuringRadius
	opts.Policy = c.Policy
	opts.ScalePolicy = c.ScalePolicy

	border, err := ParseBorder(c.Border)
	if err != nil {
		return opts, err
	}
	opts.Border = border

	if opts.ThresholdMode, err = imaging.ParseThresholdMode(c.Threshold); err != nil {
		return opts, err
	}
	if opts.Polarity, err = imaging.ParsePolarity(c.Polarity); err != nil {
		return opts, err
	}
	if opts.Retrieval, err = contour.ParseRetrievalMode(c.Retrieval); err != nil {
		return opts, err
	}

	if err := opts.Validate(); err != nil {
		return opts, fmt.Errorf("invalid configuration: %w", err)
	}
	return opts, nil
}

// ParseBorder converts a Border into a geometry.BorderPolicy. An empty mode
// means constant and an empty color means black.
func ParseBorder(b Border) (geometry.BorderPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(b.Mode)) {
	case "reflect":
		return geometry.ReflectBorder(), nil
	case "constant", "":
		hex := b.Color
		if hex == "" {
			hex = "#000000"
		}
		c, err := imaging.ParseHexColor(hex)
		if err != nil {
			return geometry.BorderPolicy{}, fmt.Errorf("invalid border color: %w", err)
		}
		return geometry.ConstantBorder(c), nil
	default:
		return geometry.BorderPolicy{}, fmt.Errorf("unknown border mode: %s", b.Mode)
	}
}
