package config

import (
	"errors"
	"fmt"
	"net"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateStore(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateServer() error {
	if _, _, err := net.SplitHostPort(c.Server.Bind); err != nil {
		return fmt.Errorf("server.bind %q must be host:port: %w", c.Server.Bind, err)
	}
	if c.Server.RequestTimeout <= 0 {
		return errors.New("server.request_timeout must be positive (seconds)")
	}
	return nil
}

func (c *Config) validateStore() error {
	switch c.Store.Driver {
	case DriverSQLite:
		if strings.TrimSpace(c.Store.SQLitePath) == "" {
			return errors.New("store.sqlite_path must be set when store.driver is sqlite")
		}
	case DriverMySQL:
		if c.Store.MySQLDSN == "" {
			return errors.New("store.mysql_dsn must be set when store.driver is mysql (or export OAP_MYSQL_DSN)")
		}
		if c.Store.MaxOpenConns < 0 {
			return errors.New("store.max_open_conns must not be negative")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("store.driver: unsupported value %q (expected sqlite, mysql, or memory)", c.Store.Driver)
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if c.Notifications.RequestTimeout <= 0 {
		return errors.New("notifications.request_timeout must be positive (seconds)")
	}
	switch c.Notifications.Transport {
	case TransportNone:
	case TransportNtfy:
		if c.Notifications.NtfyTopic == "" {
			return errors.New("notifications.ntfy_topic must be set when notifications.transport is ntfy")
		}
	case TransportEmail:
		if c.Notifications.SMTPHost == "" {
			return errors.New("notifications.smtp_host must be set when notifications.transport is email")
		}
		if c.Notifications.SMTPPort <= 0 || c.Notifications.SMTPPort > 65535 {
			return errors.New("notifications.smtp_port must be between 1 and 65535")
		}
		if c.Notifications.FromAddress == "" {
			return errors.New("notifications.from_address must be set when notifications.transport is email")
		}
	default:
		return fmt.Errorf("notifications.transport: unsupported value %q (expected none, email, or ntfy)", c.Notifications.Transport)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
