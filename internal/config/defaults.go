package config

const (
	defaultDataDir              = "~/.local/share/oap"
	defaultLogDir               = "~/.local/share/oap/logs"
	defaultBind                 = "127.0.0.1:8085"
	defaultRequestTimeout       = 15
	defaultStoreDriver          = DriverSQLite
	defaultSQLiteFile           = "oap.db"
	defaultMySQLMaxOpenConns    = 10
	defaultNotifyTransport      = TransportNone
	defaultNotifyRequestTimeout = 10
	defaultSMTPPort             = 25
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		Server: Server{
			Bind:           defaultBind,
			RequestTimeout: defaultRequestTimeout,
		},
		Store: Store{
			Driver:       defaultStoreDriver,
			MaxOpenConns: defaultMySQLMaxOpenConns,
		},
		Notifications: Notifications{
			Transport:      defaultNotifyTransport,
			RequestTimeout: defaultNotifyRequestTimeout,
			SMTPPort:       defaultSMTPPort,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
