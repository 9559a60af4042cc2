package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// Config holds all tool configuration
type Config struct {
	General GeneralConfig `toml:"general"`
	Tools   ToolsConfig   `toml:"tools"`
}

// GeneralConfig holds general settings
type GeneralConfig struct {
	MaxParallelJobs int    `toml:"max_parallel_jobs"`
	DatabasePath    string `toml:"database_path"`
	FailurePolicy   string `toml:"failure_policy"`
}

// ToolsConfig names the external commands invoked per package
type ToolsConfig struct {
	InstallCmd []string `toml:"install_cmd"`
	BuildCmd   []string `toml:"build_cmd"`
}

// Default returns a Config with sensible defaults
func Default() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		General: GeneralConfig{
			MaxParallelJobs: 4,
			DatabasePath:    filepath.Join(home, ".monoforge", "history.db"),
			FailurePolicy:   "fail-branch",
		},
		Tools: ToolsConfig{
			InstallCmd: []string{"pkg-resolver", "install"},
			BuildCmd:   []string{"pkg-resolver", "build"},
		},
	}
}

// Load reads configuration from a TOML file, falling back to defaults
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	cfg.General.DatabasePath = ExpandPath(cfg.General.DatabasePath)
	return cfg, nil
}

// ExpandPath expands ~ to the user's home directory
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[2:])
	}
	return path
}

// DefaultConfigPath returns the default config file location
func DefaultConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "monoforge", "config.toml")
}
