package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	logger "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/depdoctor/depdoctor/domain"
)

const (
	defaultModel          = "gpt-4o"
	defaultRegistryURL    = "https://registry.npmjs.org"
	defaultRequestTimeout = 30 * time.Second
)

// Config is the top-level configuration for depdoctor. Required credentials
// come from the environment; the optional YAML file tunes the rest.
type Config struct {
	// Credentials, environment only.
	OpenAIKey   string `yaml:"-"`
	GitHubToken string `yaml:"-"`

	// Tunables, overridable via the config file.
	Model              string        `yaml:"model"`
	RegistryURL        string        `yaml:"registry_url"`
	RequestTimeout     time.Duration `yaml:"request_timeout"`
	AllowPartialUpdate bool          `yaml:"allow_partial_update"`
}

// envVarPattern matches ${VAR_NAME} placeholders.
var envVarPattern = regexp.MustCompile(`\$\{([^}]+)}`)

// Load builds the configuration from the environment plus an optional YAML
// file. An empty path triggers auto-discovery; a missing file is not an
// error, defaults apply. A missing completion-service credential is fatal.
func Load(path string) (*Config, error) {
	cfg := &Config{
		Model:          defaultModel,
		RegistryURL:    defaultRegistryURL,
		RequestTimeout: defaultRequestTimeout,
	}

	if path == "" {
		if found, err := FindConfigFile(); err == nil {
			path = found
		}
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, &domain.ConfigError{Reason: fmt.Sprintf("failed to read config file %q", path), Err: err}
			}
		} else {
			if unmarshalErr := yaml.Unmarshal(data, cfg); unmarshalErr != nil {
				return nil, &domain.ConfigError{Reason: fmt.Sprintf("failed to parse config file %q", path), Err: unmarshalErr}
			}
			logger.Debugf("Loaded config file %q", path)
		}
	}

	cfg.OpenAIKey = resolveToken(os.Getenv("OPENAI_API_KEY"))
	cfg.GitHubToken = resolveToken(os.Getenv("GITHUB_TOKEN"))

	if validateErr := validate(cfg); validateErr != nil {
		return nil, validateErr
	}

	return cfg, nil
}

// FindConfigFile searches for a configuration file in standard locations.
// Returns the path to the first file found or an error if none is found.
func FindConfigFile() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = ""
	}

	locations := []string{"."}
	if homeDir != "" {
		locations = append(locations, homeDir, filepath.Join(homeDir, ".config"))
	}

	patterns := []string{
		".depdoctor.yaml",
		".depdoctor.yml",
		"depdoctor.yaml",
		"depdoctor.yml",
	}

	for _, loc := range locations {
		for _, pat := range patterns {
			p := filepath.Join(loc, pat)
			if _, statErr := os.Stat(p); statErr == nil {
				return p, nil
			}
		}
	}

	return "", errors.New("config file not found in default locations")
}

// resolveToken expands environment variable references (${VAR}) and, if the
// resulting string is a path to an existing file, reads the token from the file.
func resolveToken(raw string) string {
	if raw == "" {
		return raw
	}

	resolved := envVarPattern.ReplaceAllStringFunc(raw, func(match string) string {
		varName := envVarPattern.FindStringSubmatch(match)[1]
		if val := os.Getenv(varName); val != "" {
			return val
		}
		logger.Warnf("Environment variable %q is not set", varName)
		return ""
	})

	if info, statErr := os.Stat(resolved); statErr == nil && !info.IsDir() {
		data, readErr := os.ReadFile(resolved)
		if readErr != nil {
			logger.Warnf("Failed to read token file %q: %v", resolved, readErr)
			return resolved
		}
		logger.Debugf("Read token from file %q", resolved)
		return strings.TrimSpace(string(data))
	}

	return resolved
}

// validate checks for required configuration values.
func validate(cfg *Config) error {
	if cfg.OpenAIKey == "" {
		return &domain.ConfigError{
			Reason: "OPENAI_API_KEY environment variable is required for the completion service",
		}
	}
	if cfg.GitHubToken == "" {
		logger.Debug("GITHUB_TOKEN not set; changelog retrieval will be unauthenticated")
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultRequestTimeout
	}
	return nil
}
