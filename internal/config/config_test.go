package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"oap/internal/config"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"OAP_API_TOKEN", "OAP_MYSQL_DSN", "OAP_SMTP_PASSWORD", "OAP_NTFY_TOPIC"} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	clearEnv(t)
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved != filepath.Join(tempHome, ".config", "oap", "config.toml") {
		t.Fatalf("unexpected resolved path: %q", resolved)
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantData := filepath.Join(tempHome, ".local", "share", "oap")
	if cfg.Paths.DataDir != wantData {
		t.Fatalf("unexpected data dir: got %q want %q", cfg.Paths.DataDir, wantData)
	}
	if cfg.Store.Driver != config.DriverSQLite {
		t.Fatalf("unexpected driver: %q", cfg.Store.Driver)
	}
	if cfg.Store.SQLitePath != filepath.Join(wantData, "oap.db") {
		t.Fatalf("unexpected sqlite path: %q", cfg.Store.SQLitePath)
	}
	if cfg.Server.Bind != "127.0.0.1:8085" {
		t.Fatalf("unexpected bind: %q", cfg.Server.Bind)
	}
	if cfg.Server.APIToken != "" {
		t.Fatalf("expected empty api token, got %q", cfg.Server.APIToken)
	}
	if cfg.Notifications.Transport != config.TransportNone {
		t.Fatalf("expected notifications disabled, got %q", cfg.Notifications.Transport)
	}
	if cfg.LockPath() != filepath.Join(wantData, "oapd.lock") {
		t.Fatalf("unexpected lock path: %q", cfg.LockPath())
	}
	if cfg.LogPath() != filepath.Join(wantData, "logs", "oap.log") {
		t.Fatalf("unexpected log path: %q", cfg.LogPath())
	}
	if cfg.RequestTimeout().Seconds() != 15 {
		t.Fatalf("unexpected request timeout: %s", cfg.RequestTimeout())
	}
}

func TestLoadProjectFileFallback(t *testing.T) {
	clearEnv(t)
	t.Setenv("HOME", t.TempDir())
	project := t.TempDir()
	t.Chdir(project)
	if err := os.WriteFile(filepath.Join(project, "oap.toml"), []byte("[server]\nbind = \"0.0.0.0:9000\"\n"), 0o644); err != nil {
		t.Fatalf("write project config: %v", err)
	}

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected project config to be found")
	}
	if filepath.Base(resolved) != "oap.toml" {
		t.Fatalf("unexpected resolved path: %q", resolved)
	}
	if cfg.Server.Bind != "0.0.0.0:9000" {
		t.Fatalf("expected bind from project file, got %q", cfg.Server.Bind)
	}
}

func TestLoadCustomPath(t *testing.T) {
	clearEnv(t)
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "oap.toml")

	type payload struct {
		Store struct {
			Driver   string `toml:"driver"`
			MySQLDSN string `toml:"mysql_dsn"`
		} `toml:"store"`
		Notifications struct {
			Transport string `toml:"transport"`
			NtfyTopic string `toml:"ntfy_topic"`
		} `toml:"notifications"`
		Logging struct {
			Format string `toml:"format"`
		} `toml:"logging"`
	}
	custom := payload{}
	custom.Store.Driver = "MySQL"
	custom.Store.MySQLDSN = "oap:pw@tcp(db:3306)/oap"
	custom.Notifications.Transport = "ntfy"
	custom.Notifications.NtfyTopic = "https://ntfy.example/oap"
	custom.Logging.Format = "JSON"
	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected exists to be true")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, configPath)
	}
	if cfg.Store.Driver != config.DriverMySQL {
		t.Fatalf("expected driver to be normalized to mysql, got %q", cfg.Store.Driver)
	}
	if cfg.Store.MySQLDSN != "oap:pw@tcp(db:3306)/oap" {
		t.Fatalf("unexpected dsn: %q", cfg.Store.MySQLDSN)
	}
	if cfg.Notifications.Transport != config.TransportNtfy {
		t.Fatalf("unexpected transport: %q", cfg.Notifications.Transport)
	}
	if cfg.Logging.Format != "json" {
		t.Fatalf("expected lowercased log format, got %q", cfg.Logging.Format)
	}
}

func TestEnvFallbacksFillMissingSecrets(t *testing.T) {
	clearEnv(t)
	t.Setenv("OAP_API_TOKEN", " token-from-env ")
	t.Setenv("OAP_MYSQL_DSN", "env:dsn@tcp(db)/oap")
	t.Setenv("OAP_SMTP_PASSWORD", "hunter2")
	configPath := filepath.Join(t.TempDir(), "oap.toml")
	contents := strings.Join([]string{
		"[store]",
		`driver = "mysql"`,
		"[notifications]",
		`transport = "email"`,
		`smtp_host = "mail.example"`,
		`from_address = "oap@example.com"`,
	}, "\n")
	if err := os.WriteFile(configPath, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Server.APIToken != "token-from-env" {
		t.Fatalf("expected api token from env, got %q", cfg.Server.APIToken)
	}
	if cfg.Store.MySQLDSN != "env:dsn@tcp(db)/oap" {
		t.Fatalf("expected dsn from env, got %q", cfg.Store.MySQLDSN)
	}
	if cfg.Notifications.SMTPPassword != "hunter2" {
		t.Fatalf("expected smtp password from env, got %q", cfg.Notifications.SMTPPassword)
	}
}

func TestFileValuesWinOverEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("OAP_API_TOKEN", "from-env")
	configPath := filepath.Join(t.TempDir(), "oap.toml")
	if err := os.WriteFile(configPath, []byte("[server]\napi_token = \"from-file\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Server.APIToken != "from-file" {
		t.Fatalf("expected file token to win, got %q", cfg.Server.APIToken)
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "sample.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(contents), "[store]") {
		t.Fatalf("sample config missing store section: %s", contents)
	}

	var cfg config.Config
	if err := toml.Unmarshal(contents, &cfg); err != nil {
		t.Fatalf("unmarshal sample: %v", err)
	}
	if !strings.Contains(cfg.Paths.DataDir, "oap") {
		t.Fatalf("expected data dir to contain oap, got %q", cfg.Paths.DataDir)
	}
	if cfg.Store.Driver != config.DriverSQLite {
		t.Fatalf("expected sample driver sqlite, got %q", cfg.Store.Driver)
	}
}

func TestEnsureDirectories(t *testing.T) {
	root := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(root, "data")
	cfg.Paths.LogDir = filepath.Join(root, "data", "logs")
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	for _, dir := range []string{cfg.Paths.DataDir, cfg.Paths.LogDir} {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			t.Fatalf("expected directory %q: %v", dir, err)
		}
	}
}

func TestValidateDetectsInvalidValues(t *testing.T) {
	valid := func() config.Config {
		cfg := config.Default()
		cfg.Store.SQLitePath = "/tmp/oap.db"
		return cfg
	}

	cfg := valid()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected defaults to validate: %v", err)
	}

	cases := map[string]func(*config.Config){
		"bad bind":             func(c *config.Config) { c.Server.Bind = "localhost" },
		"zero request timeout": func(c *config.Config) { c.Server.RequestTimeout = 0 },
		"unknown driver":       func(c *config.Config) { c.Store.Driver = "postgres" },
		"mysql without dsn":    func(c *config.Config) { c.Store.Driver = config.DriverMySQL },
		"ntfy without topic":   func(c *config.Config) { c.Notifications.Transport = config.TransportNtfy },
		"email without host":   func(c *config.Config) { c.Notifications.Transport = config.TransportEmail },
		"email without sender": func(c *config.Config) {
			c.Notifications.Transport = config.TransportEmail
			c.Notifications.SMTPHost = "mail.example"
		},
		"unknown transport": func(c *config.Config) { c.Notifications.Transport = "pager" },
		"unknown log level": func(c *config.Config) { c.Logging.Level = "trace" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := valid()
			mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}

	cfg = valid()
	cfg.Store.Driver = config.DriverMemory
	cfg.Store.SQLitePath = ""
	if err := cfg.Validate(); err != nil {
		t.Fatalf("memory driver should not need a sqlite path: %v", err)
	}
}
