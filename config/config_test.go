package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type testClient struct {
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`
}

type testConfig struct {
	ServiceConfig `mapstructure:",squash"`
	Client        testClient `mapstructure:"client"`
}

func TestServiceConfigApplyDefaults(t *testing.T) {
	t.Run("empty environment defaults to development", func(t *testing.T) {
		cfg := ServiceConfig{Name: "svc"}
		cfg.ApplyDefaults()
		if cfg.Environment != "development" {
			t.Errorf("expected 'development', got %q", cfg.Environment)
		}
		if cfg.Logging.ServiceName != "svc" {
			t.Errorf("expected logging service name 'svc', got %q", cfg.Logging.ServiceName)
		}
	})

	t.Run("debug raises log level", func(t *testing.T) {
		cfg := ServiceConfig{Name: "svc", Debug: true}
		cfg.ApplyDefaults()
		if cfg.Logging.Level != "debug" {
			t.Errorf("expected debug level, got %q", cfg.Logging.Level)
		}
	})
}

func TestServiceConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     ServiceConfig
		wantErr bool
		errMsg  string
	}{
		{"valid development", ServiceConfig{Name: "svc", Environment: "development"}, false, ""},
		{"valid production", ServiceConfig{Name: "svc", Environment: "production"}, false, ""},
		{"missing name", ServiceConfig{Environment: "production"}, true, "config.name is required"},
		{"invalid environment", ServiceConfig{Name: "svc", Environment: "invalid"}, true, "config.environment must be one of"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tc.cfg.Logging.ApplyDefaults()
			err := tc.cfg.Validate()
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				if !strings.Contains(err.Error(), tc.errMsg) {
					t.Errorf("expected error containing %q, got %q", tc.errMsg, err.Error())
				}
			} else if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestLoadConfigWithYAML(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yml")

	yamlContent := `
name: inferstream
environment: staging
client:
  base_url: http://localhost:5143
  api_key: secret
`
	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	var cfg testConfig
	if err := LoadConfig("inferstream-test", &cfg, WithConfigFile(configPath)); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Name != "inferstream" {
		t.Errorf("expected name 'inferstream', got %q", cfg.Name)
	}
	if cfg.Environment != "staging" {
		t.Errorf("expected environment 'staging', got %q", cfg.Environment)
	}
	if cfg.Client.BaseURL != "http://localhost:5143" {
		t.Errorf("expected base url, got %q", cfg.Client.BaseURL)
	}
}

func TestLoadConfigEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yml")
	if err := os.WriteFile(configPath, []byte("client:\n  base_url: http://file\n"), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	t.Setenv("INFERSTREAM_ENVTEST_CLIENT_BASE_URL", "http://env")

	var cfg testConfig
	if err := LoadConfig("inferstream-envtest", &cfg, WithConfigFile(configPath)); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Client.BaseURL != "http://env" {
		t.Errorf("expected env override, got %q", cfg.Client.BaseURL)
	}
}

func TestLoadConfigWithEnvPrefix(t *testing.T) {
	t.Setenv("CUSTOM_CLIENT_API_KEY", "from-custom")
	t.Setenv("INFERSTREAM_PREFIXTEST_CLIENT_API_KEY", "from-default")

	var cfg testConfig
	err := LoadConfig("inferstream-prefixtest", &cfg,
		WithFileSystem(&mockFS{files: map[string]bool{}}), WithEnvPrefix("CUSTOM_"))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Client.APIKey != "from-custom" {
		t.Errorf("expected custom prefix to win, got %q", cfg.Client.APIKey)
	}
}

func TestLoadConfigMissingExplicitFile(t *testing.T) {
	var cfg testConfig
	err := LoadConfig("nonexistent-service", &cfg, WithConfigFile("/nonexistent/path.yml"))
	if err == nil {
		t.Fatal("expected error for missing explicit config file")
	}
}

func TestLoadConfigNothingFound(t *testing.T) {
	var cfg testConfig
	err := LoadConfig("nothing-here", &cfg, WithFileSystem(&mockFS{files: map[string]bool{}}))
	if err != nil {
		t.Fatalf("expected success with no files, got %v", err)
	}
}

func TestResolverWithMockFS(t *testing.T) {
	fs := &mockFS{files: map[string]bool{
		"./config.yml":                       true,
		"/home/me/.config/my-svc/config.yml": true,
	}}
	resolver := &Resolver{FileSystem: fs}
	files := resolver.ResolveFiles("my-svc", LoaderConfig{})
	if files.ConfigFile != "./config.yml" {
		t.Errorf("expected ./config.yml to win, got %q", files.ConfigFile)
	}

	delete(fs.files, "./config.yml")
	files = resolver.ResolveFiles("my-svc", LoaderConfig{})
	if files.ConfigFile != "/home/me/.config/my-svc/config.yml" {
		t.Errorf("expected user config dir fallback, got %q", files.ConfigFile)
	}
}

type mockFS struct {
	files map[string]bool
}

func (m *mockFS) Exists(path string) bool { return m.files[path] }
func (m *mockFS) LoadEnv(path string) error { return nil }
func (m *mockFS) UserConfigDir() (string, error) { return "/home/me/.config", nil }

func TestEnvPrefix(t *testing.T) {
	if got := envPrefix("infer-cli"); got != "INFER_CLI_" {
		t.Errorf("envPrefix = %q, want INFER_CLI_", got)
	}
	if got := envPrefix(""); got != "" {
		t.Errorf("envPrefix(\"\") = %q, want empty", got)
	}
}

func TestGenerateEnvKeyVariants(t *testing.T) {
	got := generateEnvKeyVariants("CLIENT_BASE_URL")
	want := map[string]bool{"client_base_url": true, "client.base.url": true, "client.base_url": true}
	for _, v := range got {
		delete(want, v)
	}
	if len(want) != 0 {
		t.Errorf("missing variants %v in %v", want, got)
	}
}
