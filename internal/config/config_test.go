package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// TestNewConfig verifies that NewConfig returns a Config with all expected default values.
// Tests fail if defaults change unexpectedly.
func TestNewConfig(t *testing.T) {
	t.Parallel()

	cfg := NewConfig()

	t.Run("default Depth is 1", func(t *testing.T) {
		t.Parallel()
		if cfg.Depth != 1 {
			t.Errorf("expected Depth to be 1, got %d", cfg.Depth)
		}
	})

	t.Run("default Concurrency is 5", func(t *testing.T) {
		t.Parallel()
		if cfg.Concurrency != 5 {
			t.Errorf("expected Concurrency to be 5, got %d", cfg.Concurrency)
		}
	})

	t.Run("default Timeout is 30 seconds", func(t *testing.T) {
		t.Parallel()
		if cfg.Timeout != 30*time.Second {
			t.Errorf("expected Timeout to be 30s, got %v", cfg.Timeout)
		}
	})

	t.Run("cache, overwrite and log time are on", func(t *testing.T) {
		t.Parallel()
		if !cfg.UseCache || !cfg.Overwrite || !cfg.LogTime {
			t.Errorf("expected UseCache, Overwrite and LogTime to be true, got %v %v %v", cfg.UseCache, cfg.Overwrite, cfg.LogTime)
		}
	})

	t.Run("default database is sqlite", func(t *testing.T) {
		t.Parallel()
		if cfg.Database.Type != "sqlite" {
			t.Errorf("expected Database.Type to be 'sqlite', got '%s'", cfg.Database.Type)
		}
	})

	t.Run("default DataDir is the XDG data dir", func(t *testing.T) {
		t.Parallel()
		if cfg.DataDir != XDGDataDir() {
			t.Errorf("expected DataDir to be %q, got %q", XDGDataDir(), cfg.DataDir)
		}
		if cfg.FilesDir() != filepath.Join(XDGDataDir(), "files") {
			t.Errorf("unexpected FilesDir %q", cfg.FilesDir())
		}
	})
}

// TestConfigValidate tests the Validate method with various configurations.
// Each test case is designed to test one specific validation rule.
func TestConfigValidate(t *testing.T) {
	t.Parallel()

	// validConfig returns a minimal valid configuration.
	validConfig := func() *Config {
		cfg := NewConfig()
		cfg.Seed = "https://example.com"
		return cfg
	}

	tests := []struct {
		name   string
		modify func(*Config)
		want   error
	}{
		{name: "valid config returns nil", modify: func(*Config) {}},
		{name: "depth 0 is valid", modify: func(c *Config) { c.Depth = 0 }},
		{name: "empty seed", modify: func(c *Config) { c.Seed = "  " }, want: ErrNoSeed},
		{name: "negative depth", modify: func(c *Config) { c.Depth = -1 }, want: ErrInvalidDepth},
		{name: "zero concurrency", modify: func(c *Config) { c.Concurrency = 0 }, want: ErrInvalidConcurrency},
		{name: "zero timeout", modify: func(c *Config) { c.Timeout = 0 }, want: ErrInvalidTimeout},
		{name: "negative body size", modify: func(c *Config) { c.MaxBodySize = -1 }, want: ErrInvalidMaxBodySize},
		{name: "socks5 proxy is valid", modify: func(c *Config) { c.Proxy = "socks5://127.0.0.1:9050" }},
		{name: "proxy without scheme", modify: func(c *Config) { c.Proxy = "127.0.0.1:8080" }, want: ErrInvalidProxy},
		{name: "ftp proxy", modify: func(c *Config) { c.Proxy = "ftp://proxy:21" }, want: ErrInvalidProxy},
		{name: "use-proxy without host", modify: func(c *Config) { c.UseProxy = true }, want: ErrInvalidProxy},
		{
			name: "use-proxy with host is valid",
			modify: func(c *Config) {
				c.UseProxy = true
				c.ProxyHost = "http://proxy:3128"
			},
		},
		{
			name: "proxy host is ignored without use-proxy",
			modify: func(c *Config) {
				c.ProxyHost = "not a url"
			},
		},
		{
			name: "tor with proxy",
			modify: func(c *Config) {
				c.Tor = true
				c.Proxy = "http://proxy:3128"
			},
			want: ErrConflictingProxy,
		},
		{name: "tor alone is valid", modify: func(c *Config) { c.Tor = true }},
		{
			name: "postgresql without credentials",
			modify: func(c *Config) {
				c.Database = Database{Type: "postgresql", Host: "localhost"}
			},
			want: ErrMissingCredentials,
		},
		{
			name: "mysql with credentials is valid",
			modify: func(c *Config) {
				c.Database = Database{Type: "mysql", Username: "root", Host: "localhost", Name: "spider"}
			},
		},
		{
			name: "redis without host",
			modify: func(c *Config) {
				c.Database = Database{Type: "redis"}
			},
			want: ErrMissingCredentials,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := validConfig()
			tt.modify(cfg)

			err := cfg.Validate()
			if tt.want == nil {
				if err != nil {
					t.Errorf("expected no error, got %v", err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

// TestConfigProxyURL tests which proxy is selected.
func TestConfigProxyURL(t *testing.T) {
	t.Parallel()

	cfg := NewConfig()
	cfg.ProxyHost = "http://file-proxy:3128"

	if got := cfg.ProxyURL(); got != "" {
		t.Errorf("expected no proxy without --use-proxy, got %q", got)
	}

	cfg.UseProxy = true
	if got := cfg.ProxyURL(); got != "http://file-proxy:3128" {
		t.Errorf("expected file proxy, got %q", got)
	}

	cfg.Proxy = "socks5://flag-proxy:1080"
	if got := cfg.ProxyURL(); got != "socks5://flag-proxy:1080" {
		t.Errorf("expected explicit proxy to win, got %q", got)
	}
}

// TestConfigApplyFile tests that file values override defaults and that
// unset file values keep them.
func TestConfigApplyFile(t *testing.T) {
	t.Parallel()

	cfg := NewConfig()
	cfg.ApplyFile(&File{
		Database: Database{Type: "postgresql", Username: "spider", Host: "db:5432"},
		Infrastructure: Infrastructure{
			ConcurrencyLimit: 8,
			ProxyHost:        "http://proxy:3128",
		},
	})

	if cfg.Database.Type != "postgresql" || cfg.Database.Username != "spider" || cfg.Database.Host != "db:5432" {
		t.Errorf("unexpected database %+v", cfg.Database)
	}
	if cfg.Concurrency != 8 {
		t.Errorf("expected Concurrency 8, got %d", cfg.Concurrency)
	}
	if cfg.ProxyHost != "http://proxy:3128" {
		t.Errorf("expected ProxyHost from file, got %q", cfg.ProxyHost)
	}
	if cfg.Timeout != DefaultTimeout {
		t.Errorf("expected default timeout to survive, got %v", cfg.Timeout)
	}

	cfg.ApplyFile(nil)
	if cfg.Concurrency != 8 {
		t.Errorf("nil file must not change config")
	}
}

// TestConfigApplyEnv tests the SPIDER_* environment overrides.
func TestConfigApplyEnv(t *testing.T) {
	t.Parallel()

	t.Run("env overrides file values", func(t *testing.T) {
		t.Parallel()

		env := map[string]string{
			EnvDBType:      "mysql",
			EnvDBUser:      "root",
			EnvDBPassword:  "toor",
			EnvDBHost:      "localhost:3306",
			EnvDBName:      "spider",
			EnvProxy:       "socks5://127.0.0.1:9050",
			EnvConcurrency: "12",
		}
		lookup := func(key string) (string, bool) {
			v, ok := env[key]
			return v, ok
		}

		cfg := NewConfig()
		cfg.ApplyFile(&File{Database: Database{Type: "postgresql", Username: "file-user"}})
		if err := cfg.ApplyEnv(lookup); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		want := Database{Type: "mysql", Username: "root", Password: "toor", Host: "localhost:3306", Name: "spider"}
		if cfg.Database != want {
			t.Errorf("expected %+v, got %+v", want, cfg.Database)
		}
		if cfg.ProxyHost != "socks5://127.0.0.1:9050" {
			t.Errorf("unexpected ProxyHost %q", cfg.ProxyHost)
		}
		if cfg.Concurrency != 12 {
			t.Errorf("expected Concurrency 12, got %d", cfg.Concurrency)
		}
	})

	t.Run("invalid concurrency", func(t *testing.T) {
		t.Parallel()

		lookup := func(key string) (string, bool) {
			if key == EnvConcurrency {
				return "many", true
			}
			return "", false
		}

		err := NewConfig().ApplyEnv(lookup)
		if !errors.Is(err, ErrInvalidConcurrency) {
			t.Errorf("expected ErrInvalidConcurrency, got %v", err)
		}
	})

	t.Run("empty environment changes nothing", func(t *testing.T) {
		t.Parallel()

		cfg := NewConfig()
		if err := cfg.ApplyEnv(func(string) (string, bool) { return "", false }); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.Database.Type != DefaultDBType || cfg.Concurrency != DefaultConcurrency {
			t.Errorf("defaults changed: %+v", cfg)
		}
	})
}

// TestLoadFile tests loading the YAML configuration file.
func TestLoadFile(t *testing.T) {
	t.Parallel()

	t.Run("valid file", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "config.yaml")
		content := `database:
  type: postgresql
  username: spider
  password: secret
  host: localhost:5432
  name: pages
infrastructure:
  concurrency_limit: 3
  proxy_host: http://proxy:3128
  timeout: 45s
`
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			t.Fatal(err)
		}

		f, err := LoadFile(path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if f.Database.Name != "pages" || f.Database.Password != "secret" {
			t.Errorf("unexpected database section %+v", f.Database)
		}
		if f.Infrastructure.ConcurrencyLimit != 3 {
			t.Errorf("expected concurrency_limit 3, got %d", f.Infrastructure.ConcurrencyLimit)
		}
		if f.Infrastructure.Timeout != 45*time.Second {
			t.Errorf("expected timeout 45s, got %v", f.Infrastructure.Timeout)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()

		_, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
		if !errors.Is(err, ErrConfigNotFound) {
			t.Errorf("expected ErrConfigNotFound, got %v", err)
		}
	})

	t.Run("invalid yaml", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "bad.yaml")
		if err := os.WriteFile(path, []byte("database: [unclosed"), 0o600); err != nil {
			t.Fatal(err)
		}
		if _, err := LoadFile(path); err == nil {
			t.Error("expected parse error")
		}
	})
}

// TestSaveFile tests that credentials round-trip and the file is private.
func TestSaveFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	in := &File{
		Database:       Database{Type: "redis", Host: "localhost:6379", Password: "pw", Name: "0"},
		Infrastructure: Infrastructure{Timeout: 10 * time.Second},
	}
	if err := SaveFile(path, in); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("expected mode 0600, got %o", perm)
	}

	data, err := os.ReadFile(path) //nolint:gosec // test file
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "timeout: 10s") {
		t.Errorf("expected human readable timeout, got:\n%s", data)
	}

	out, err := LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if out.Database != in.Database || out.Infrastructure != in.Infrastructure {
		t.Errorf("round trip mismatch: %+v != %+v", out, in)
	}
}

// TestFindConfigFile tests the config file search order.
func TestFindConfigFile(t *testing.T) {
	t.Parallel()

	t.Run("explicit path wins", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "custom.yaml")
		if err := os.WriteFile(path, []byte("{}"), 0o600); err != nil {
			t.Fatal(err)
		}
		if got := findConfigFile(path, "", ""); got != path {
			t.Errorf("expected %q, got %q", path, got)
		}
	})

	t.Run("missing explicit path returns empty", func(t *testing.T) {
		t.Parallel()

		if got := findConfigFile(filepath.Join(t.TempDir(), "nope.yaml"), "", ""); got != "" {
			t.Errorf("expected empty string, got %q", got)
		}
	})

	t.Run("current directory before config dir", func(t *testing.T) {
		t.Parallel()

		cwd := t.TempDir()
		configDir := t.TempDir()
		local := filepath.Join(cwd, DefaultConfigFile)
		global := filepath.Join(configDir, XDGConfigFile)
		for _, p := range []string{local, global} {
			if err := os.WriteFile(p, []byte("{}"), 0o600); err != nil {
				t.Fatal(err)
			}
		}

		if got := findConfigFile("", cwd, configDir); got != local {
			t.Errorf("expected %q, got %q", local, got)
		}
		if err := os.Remove(local); err != nil {
			t.Fatal(err)
		}
		if got := findConfigFile("", cwd, configDir); got != global {
			t.Errorf("expected %q, got %q", global, got)
		}
	})

	t.Run("nothing found", func(t *testing.T) {
		t.Parallel()

		if got := findConfigFile("", t.TempDir(), t.TempDir()); got != "" {
			t.Errorf("expected empty string, got %q", got)
		}
	})
}

// TestLoadDotEnv tests that a missing .env file is ignored.
func TestLoadDotEnv(t *testing.T) {
	t.Parallel()

	if err := LoadDotEnv(filepath.Join(t.TempDir(), ".env")); err != nil {
		t.Errorf("expected missing .env to be ignored, got %v", err)
	}
}

// TestXDGDirs verifies the XDG helpers end with the application name.
func TestXDGDirs(t *testing.T) {
	t.Parallel()

	for _, dir := range []string{XDGDataDir(), XDGConfigDir()} {
		if filepath.Base(dir) != AppName {
			t.Errorf("expected %q to end with %q", dir, AppName)
		}
	}
	if filepath.Base(DefaultConfigPath()) != XDGConfigFile {
		t.Errorf("unexpected DefaultConfigPath %q", DefaultConfigPath())
	}
}
