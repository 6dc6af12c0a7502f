package main

import "time"

const (
	defaultBindHost       = "127.0.0.1"
	defaultUDPPort        = 9999
	defaultAPIPort        = 8420
	defaultQueryTimeout   = 30 * time.Second
	defaultLogRetention   = 30 // days, 0 = disabled
	defaultPollInterval   = 200 * time.Millisecond
	defaultBackupInterval = 6 * time.Hour
	defaultBackupKeepLast = 24
)

// appConfig is internal runtime configuration.
// It is package-private to keep defaults and shape local to the CLI entrypoint.
type appConfig struct {
	UDPPort         int           `mapstructure:"udp-port"`
	UDPAddr         string        `mapstructure:"udp-addr"`
	MaxDatagramSize int           `mapstructure:"max-datagram-size"`
	APIEnabled      bool          `mapstructure:"api-enabled"`
	APIPort         int           `mapstructure:"api-port"`
	APIAddr         string        `mapstructure:"api-addr"`
	DBPath          string        `mapstructure:"db-path"`
	QueryTimeout    time.Duration `mapstructure:"query-timeout"`
	JournalPath     string        `mapstructure:"journal-path"`
	LogRetention    int           `mapstructure:"log-retention"`
	BackupEnabled   bool          `mapstructure:"backup-enabled"`
	BackupDir       string        `mapstructure:"backup-dir"`
	BackupInterval  time.Duration `mapstructure:"backup-interval"`
	BackupKeepLast  int           `mapstructure:"backup-keep-last"`
	TailFiles       []string      `mapstructure:"tail-files"`
	PollInterval    time.Duration `mapstructure:"poll-interval"`
	ConfigPath      string        `mapstructure:"-"` // not from config file
}
