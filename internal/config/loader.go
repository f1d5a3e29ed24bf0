package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultConfigFile is the config file name looked up in the current directory.
	DefaultConfigFile = ".spider.yaml"

	// XDGConfigFile is the config file name inside XDGConfigDir.
	XDGConfigFile = "config.yaml"

	// DefaultEnvFile is the dotenv file loaded before reading the environment.
	DefaultEnvFile = ".env"
)

// Environment variables that override the config file.
const (
	EnvDBType      = "SPIDER_DB_TYPE"
	EnvDBUser      = "SPIDER_DB_USER"
	EnvDBPassword  = "SPIDER_DB_PASSWORD"
	EnvDBHost      = "SPIDER_DB_HOST"
	EnvDBName      = "SPIDER_DB_NAME"
	EnvProxy       = "SPIDER_PROXY"
	EnvConcurrency = "SPIDER_CONCURRENCY"
)

// ErrConfigNotFound is returned when the configuration file does not exist.
var ErrConfigNotFound = errors.New("configuration file not found")

// Infrastructure is the `infrastructure:` section of the config file.
type Infrastructure struct {
	// ConcurrencyLimit bounds the number of in-flight fetches.
	ConcurrencyLimit int `yaml:"concurrency_limit,omitempty"`

	// ProxyHost is used by `crawl --use-proxy`.
	ProxyHost string `yaml:"proxy_host,omitempty"`

	// Timeout is the per-request timeout, e.g. "30s".
	Timeout time.Duration `yaml:"timeout,omitempty"`

	// UserAgent overrides the default User-Agent header.
	UserAgent string `yaml:"user_agent,omitempty"`
}

// File represents the structure of the spider configuration file.
type File struct {
	Database       Database       `yaml:"database,omitempty"`
	Infrastructure Infrastructure `yaml:"infrastructure,omitempty"`
}

// DefaultConfigPath returns the path used when credentials are persisted and
// no config file exists yet.
func DefaultConfigPath() string {
	return filepath.Join(XDGConfigDir(), XDGConfigFile)
}

// LoadFile loads a configuration file.
// If the file does not exist, it returns ErrConfigNotFound.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided config path is intentional
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &f, nil
}

// SaveFile writes f to path as YAML. The file may hold a database password,
// so it is created with mode 0600 and its directory with mode 0700.
func SaveFile(path string, f *File) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data, err := yaml.Marshal(f)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// FindConfigFile searches for the configuration file in the following order:
//  1. configPath, if specified
//  2. .spider.yaml in the current directory
//  3. config.yaml in XDGConfigDir
//
// Returns the path to the configuration file if found, or empty string if not found.
func FindConfigFile(configPath string) string {
	cwd, err := os.Getwd()
	if err != nil {
		cwd = ""
	}
	return findConfigFile(configPath, cwd, XDGConfigDir())
}

func findConfigFile(configPath, cwd, configDir string) string {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		return ""
	}

	candidates := []string{}
	if cwd != "" {
		candidates = append(candidates, filepath.Join(cwd, DefaultConfigFile))
	}
	if configDir != "" {
		candidates = append(candidates, filepath.Join(configDir, XDGConfigFile))
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// LoadDotEnv loads environment variables from a dotenv file without
// overriding variables that are already set. A missing file is not an error.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides the configuration with the SPIDER_* environment
// variables. lookup is normally os.LookupEnv.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	c.mergeDatabase(Database{
		Type:     getEnv(lookup, EnvDBType),
		Username: getEnv(lookup, EnvDBUser),
		Password: getEnv(lookup, EnvDBPassword),
		Host:     getEnv(lookup, EnvDBHost),
		Name:     getEnv(lookup, EnvDBName),
	})

	if proxy := getEnv(lookup, EnvProxy); proxy != "" {
		c.ProxyHost = proxy
	}

	if raw := getEnv(lookup, EnvConcurrency); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("%s=%q: %w", EnvConcurrency, raw, ErrInvalidConcurrency)
		}
		c.Concurrency = n
	}
	return nil
}

func getEnv(lookup func(string) (string, bool), key string) string {
	if v, ok := lookup(key); ok {
		return v
	}
	return ""
}
