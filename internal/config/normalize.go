package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeServer()
	if err := c.normalizeStore(); err != nil {
		return err
	}
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = ExpandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = ExpandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeServer() {
	c.Server.Bind = strings.TrimSpace(c.Server.Bind)
	if c.Server.Bind == "" {
		c.Server.Bind = defaultBind
	}
	c.Server.APIToken = strings.TrimSpace(c.Server.APIToken)
	if c.Server.APIToken == "" {
		if value, ok := os.LookupEnv("OAP_API_TOKEN"); ok {
			c.Server.APIToken = strings.TrimSpace(value)
		}
	}
	if c.Server.RequestTimeout == 0 {
		c.Server.RequestTimeout = defaultRequestTimeout
	}
}

func (c *Config) normalizeStore() error {
	c.Store.Driver = strings.ToLower(strings.TrimSpace(c.Store.Driver))
	switch c.Store.Driver {
	case "":
		c.Store.Driver = defaultStoreDriver
	case "sqlite3":
		c.Store.Driver = DriverSQLite
	case "inmem", "mem":
		c.Store.Driver = DriverMemory
	}

	var err error
	if strings.TrimSpace(c.Store.SQLitePath) == "" {
		c.Store.SQLitePath = filepath.Join(c.Paths.DataDir, defaultSQLiteFile)
	}
	if c.Store.SQLitePath, err = ExpandPath(c.Store.SQLitePath); err != nil {
		return fmt.Errorf("store.sqlite_path: %w", err)
	}

	c.Store.MySQLDSN = strings.TrimSpace(c.Store.MySQLDSN)
	if c.Store.MySQLDSN == "" {
		if value, ok := os.LookupEnv("OAP_MYSQL_DSN"); ok {
			c.Store.MySQLDSN = strings.TrimSpace(value)
		}
	}
	if c.Store.MaxOpenConns == 0 {
		c.Store.MaxOpenConns = defaultMySQLMaxOpenConns
	}
	return nil
}

func (c *Config) normalizeNotifications() {
	c.Notifications.Transport = strings.ToLower(strings.TrimSpace(c.Notifications.Transport))
	if c.Notifications.Transport == "" {
		c.Notifications.Transport = defaultNotifyTransport
	}
	if c.Notifications.RequestTimeout == 0 {
		c.Notifications.RequestTimeout = defaultNotifyRequestTimeout
	}
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.NtfyTopic == "" {
		if value, ok := os.LookupEnv("OAP_NTFY_TOPIC"); ok {
			c.Notifications.NtfyTopic = strings.TrimSpace(value)
		}
	}
	c.Notifications.SMTPHost = strings.TrimSpace(c.Notifications.SMTPHost)
	if c.Notifications.SMTPPort == 0 {
		c.Notifications.SMTPPort = defaultSMTPPort
	}
	c.Notifications.SMTPUsername = strings.TrimSpace(c.Notifications.SMTPUsername)
	if c.Notifications.SMTPPassword == "" {
		if value, ok := os.LookupEnv("OAP_SMTP_PASSWORD"); ok {
			c.Notifications.SMTPPassword = value
		}
	}
	c.Notifications.FromAddress = strings.TrimSpace(c.Notifications.FromAddress)
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
