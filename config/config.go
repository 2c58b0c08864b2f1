// config/config.go
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/hannajonsd/await-analysis/knowledge"
	"github.com/hannajonsd/await-analysis/parser"
)

// FileNames are the project config files searched for, in order
var FileNames = []string{".await-analysis.yml", ".await-analysis.yaml", ".await-analysis.json", ".await-analysis.toml"}

// Config represents the configuration for await-analysis
type Config struct {
	Version string `yaml:"version" toml:"version" json:"version"`

	// Options handed to the call-site rule
	Rule knowledge.Options `yaml:"rule" toml:"rule" json:"rule"`

	Files    FilesConfig    `yaml:"files" toml:"files" json:"files"`
	Output   OutputConfig   `yaml:"output" toml:"output" json:"output"`
	Analysis AnalysisConfig `yaml:"analysis" toml:"analysis" json:"analysis"`
}

type FilesConfig struct {
	Extensions       []string `yaml:"extensions" toml:"extensions" json:"extensions"`
	Exclude          []string `yaml:"exclude" toml:"exclude" json:"exclude"`
	RespectGitignore bool     `yaml:"respect_gitignore" toml:"respect_gitignore" json:"respect_gitignore"`
}

type OutputConfig struct {
	// console, json or sarif
	Format     string `yaml:"format" toml:"format" json:"format"`
	Colors     bool   `yaml:"colors" toml:"colors" json:"colors"`
	Verbose    bool   `yaml:"verbose" toml:"verbose" json:"verbose"`
	OutputFile string `yaml:"output_file,omitempty" toml:"output_file,omitempty" json:"output_file,omitempty"`
}

type AnalysisConfig struct {
	MaxWorkers int `yaml:"max_workers" toml:"max_workers" json:"max_workers"`

	// Reuse per-file results across runs
	Cache    bool   `yaml:"cache" toml:"cache" json:"cache"`
	CacheDir string `yaml:"cache_dir,omitempty" toml:"cache_dir,omitempty" json:"cache_dir,omitempty"`
}

func DefaultConfig() *Config {
	return &Config{
		Version: "1.0",
		Files: FilesConfig{
			Extensions:       append([]string(nil), parser.SupportedExtensions...),
			Exclude:          []string{"*.min.js"},
			RespectGitignore: true,
		},
		Output: OutputConfig{
			Format: "console",
			Colors: true,
		},
		Analysis: AnalysisConfig{
			MaxWorkers: 4,
		},
	}
}

// LoadConfig loads configuration from file or returns the default. With an
// empty path the project files in FileNames are searched upward from the
// working directory.
func LoadConfig(configPath string) (*Config, error) {
	if configPath == "" {
		wd, err := os.Getwd()
		if err != nil {
			return DefaultConfig(), nil
		}
		found, err := FindConfig(wd)
		if err != nil {
			return nil, err
		}
		if found == "" {
			return DefaultConfig(), nil
		}
		configPath = found
	}

	return loadFromFile(configPath)
}

// FindConfig returns the nearest project config file at or above startDir
func FindConfig(startDir string) (string, error) {
	dir := startDir
	for {
		for _, name := range FileNames {
			candidate := filepath.Join(dir, name)
			if _, err := os.Stat(candidate); err == nil {
				return candidate, nil
			} else if !errors.Is(err, os.ErrNotExist) {
				return "", fmt.Errorf("failed to stat %s: %w", candidate, err)
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil
		}
		dir = parent
	}
}

func loadFromFile(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	cfg := DefaultConfig()

	switch strings.ToLower(filepath.Ext(configPath)) {
	case ".toml":
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return nil, fmt.Errorf("failed to parse TOML config %s: %w", configPath, err)
		}
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse JSON config %s: %w", configPath, err)
		}
	case ".yml", ".yaml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", configPath, err)
		}
	default:
		return nil, fmt.Errorf("unsupported config file type: %s", configPath)
	}

	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	defaults := DefaultConfig()
	if len(c.Files.Extensions) == 0 {
		c.Files.Extensions = defaults.Files.Extensions
	}
	if c.Output.Format == "" {
		c.Output.Format = defaults.Output.Format
	}
	if c.Analysis.MaxWorkers <= 0 {
		c.Analysis.MaxWorkers = defaults.Analysis.MaxWorkers
	}
}

// RuleOptions returns the host options list the rule reads; the rule
// configuration is its first element.
func (c *Config) RuleOptions() []*knowledge.Options {
	return []*knowledge.Options{&c.Rule}
}

// GenerateConfig writes a sample configuration to configPath, as JSON when
// the path ends in .json and as YAML otherwise
func GenerateConfig(configPath string) error {
	cfg := DefaultConfig()
	cfg.Rule = knowledge.Options{
		NamedStaticMembers: knowledge.StaticMembers{{Object: "console", Member: "warn"}},
		SyncFunctions:      knowledge.Names{"structuredClone"},
		SyncMethods:        knowledge.Names{"getBoundingClientRect"},
	}

	var data []byte
	if strings.EqualFold(filepath.Ext(configPath), ".json") {
		encoded, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode config: %w", err)
		}
		data = append(encoded, '\n')
	} else {
		encoded, err := yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("failed to encode config: %w", err)
		}
		header := "# await-analysis configuration\n# rule entries are added to the built-in tables of synchronous calls\n"
		data = append([]byte(header), encoded...)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file %s: %w", configPath, err)
	}
	return nil
}
