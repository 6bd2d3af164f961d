package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Store drivers.
const (
	DriverSQLite = "sqlite"
	DriverMySQL  = "mysql"
	DriverMemory = "memory"
)

// Notification transports.
const (
	TransportNone  = "none"
	TransportEmail = "email"
	TransportNtfy  = "ntfy"
)

// Paths contains on-disk locations.
type Paths struct {
	DataDir string `toml:"data_dir"`
	LogDir  string `toml:"log_dir"`
}

// Server contains HTTP API settings.
type Server struct {
	Bind           string `toml:"bind"`
	APIToken       string `toml:"api_token"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Store selects and configures the record store backend.
type Store struct {
	Driver       string `toml:"driver"`
	SQLitePath   string `toml:"sqlite_path"`
	MySQLDSN     string `toml:"mysql_dsn"`
	MaxOpenConns int    `toml:"max_open_conns"`
}

// Notifications contains stage notification delivery settings.
type Notifications struct {
	Transport      string `toml:"transport"`
	RequestTimeout int    `toml:"request_timeout"`
	NtfyTopic      string `toml:"ntfy_topic"`
	SMTPHost       string `toml:"smtp_host"`
	SMTPPort       int    `toml:"smtp_port"`
	SMTPUsername   string `toml:"smtp_username"`
	SMTPPassword   string `toml:"smtp_password"`
	FromAddress    string `toml:"from_address"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for OAP.
//
// Configuration sections by subsystem:
//   - Paths: data and log directories
//   - Server: HTTP API bind address, bearer token, request deadline
//   - Store: record store backend (sqlite, mysql, memory)
//   - Notifications: email or ntfy delivery of stage changes
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Server        Server        `toml:"server"`
	Store         Store         `toml:"store"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath is ~/.config/oap/config.toml, made absolute.
func DefaultConfigPath() (string, error) {
	return ExpandPath("~/.config/oap/config.toml")
}

// Load reads the config at path, or searches the default locations when path
// is empty. It returns the parsed config, the file it chose and whether that
// file existed. A missing file yields the defaults. Env fallbacks, path
// expansion and validation are applied before returning.
func Load(path string) (*Config, string, bool, error) {
	chosen, found, err := locate(path)
	if err != nil {
		return nil, "", false, err
	}
	cfg := Default()
	if found {
		raw, err := os.ReadFile(chosen)
		if err != nil {
			return nil, "", false, fmt.Errorf("read config %s: %w", chosen, err)
		}
		if err := toml.Unmarshal(raw, &cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config %s: %w", chosen, err)
		}
	}
	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}
	return &cfg, chosen, found, nil
}

// locate picks the config file. An explicit path is used as given even when
// absent. Otherwise the per-user file wins over ./oap.toml, and the per-user
// path is reported when neither exists.
func locate(explicit string) (string, bool, error) {
	if explicit != "" {
		abs, err := ExpandPath(explicit)
		if err != nil {
			return "", false, err
		}
		found, err := isFile(abs)
		return abs, found, err
	}
	userPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	projectPath, err := filepath.Abs("oap.toml")
	if err != nil {
		return "", false, err
	}
	for _, candidate := range []string{userPath, projectPath} {
		if found, _ := isFile(candidate); found {
			return candidate, true, nil
		}
	}
	return userPath, false, nil
}

func isFile(path string) (bool, error) {
	info, err := os.Stat(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("stat config: %w", err)
	}
	return !info.IsDir(), nil
}

// EnsureDirectories creates the data and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// LockPath is the single-instance lock held by the serve command.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, "oapd.lock")
}

// LogPath is the daemon log file.
func (c *Config) LogPath() string {
	return filepath.Join(c.Paths.LogDir, "oap.log")
}

// RequestTimeout bounds each API request, including its store calls.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Server.RequestTimeout) * time.Second
}

// NotificationTimeout bounds a single notification delivery.
func (c *Config) NotificationTimeout() time.Duration {
	return time.Duration(c.Notifications.RequestTimeout) * time.Second
}

// ExpandPath resolves a leading ~ against the home directory and returns a
// cleaned absolute path. An empty value stays empty.
func ExpandPath(value string) (string, error) {
	if value == "" {
		return "", nil
	}
	if value == "~" || strings.HasPrefix(value, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		value = filepath.Join(home, strings.TrimPrefix(value, "~"))
	}
	abs, err := filepath.Abs(value)
	if err != nil {
		return "", fmt.Errorf("resolve %q: %w", value, err)
	}
	return abs, nil
}

// CreateSample writes the commented sample config to path, creating parent
// directories.
func CreateSample(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
