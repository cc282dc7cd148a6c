package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the default strategy file name.
const DefaultConfigFile = ".scraperapi"

// ErrConfigNotFound is returned when the strategy file does not exist.
var ErrConfigNotFound = errors.New("configuration file not found")

// LoadConfigFile loads bank strategies from a YAML file.
// If the file does not exist, it returns ErrConfigNotFound.
func LoadConfigFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided config path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var cf File
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, err
	}

	if cf.Banks == nil {
		cf.Banks = make(map[string]Strategy)
	}

	return &cf, nil
}

// FindConfigFile searches for the strategy file in the following order:
// 1. configPath, if specified
// 2. .scraperapi in the current directory
// 3. strategies.yaml in the XDG config directory
// 4. .scraperapi in the user's home directory
//
// Returns the path of the first file found, or empty string.
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		return ""
	}

	candidates := make([]string, 0, 3)
	if cwd, err := os.Getwd(); err == nil {
		candidates = append(candidates, filepath.Join(cwd, DefaultConfigFile))
	}
	candidates = append(candidates, filepath.Join(XDGConfigDir(), "strategies.yaml"))
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, DefaultConfigFile))
	}

	for _, candidate := range candidates {
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}

	return ""
}

// LoadStrategies resolves the strategy file for cfg and merges it over the
// built-in banks. An explicitly named file that does not exist is an error;
// a missing implicit file is not.
func LoadStrategies(cfg *Config) error {
	explicit := cfg.StrategiesFile != ""
	path := FindConfigFile(cfg.StrategiesFile)

	if path == "" {
		if explicit {
			return ErrConfigNotFound
		}
		cfg.Strategies = DefaultFile()
		return nil
	}

	file, err := LoadConfigFile(path)
	if err != nil {
		return err
	}

	merged := DefaultFile().Merge(file)
	for name := range file.Banks {
		s, _ := merged.Strategy(name)
		if err := s.Validate(); err != nil {
			return fmt.Errorf("bank %q: %w", name, err)
		}
	}

	cfg.Strategies = merged
	return nil
}
