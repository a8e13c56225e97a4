package config

import (
	"os"
	"os/user"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/mosaicnetworks/scenegraph/src/common"
	"github.com/sirupsen/logrus"
	prefixed "github.com/x-cray/logrus-prefixed-formatter"
)

// Default filenames.
const (
	// DefaultBadgerFile is the default name of the folder containing the Badger
	// database
	DefaultBadgerFile = "badger_db"

	// DefaultConfigFile is the base name of the configuration file read from
	// the data directory.
	DefaultConfigFile = "scenegraph"
)

// Default configuration values.
const (
	DefaultLogLevel          = "debug"
	DefaultServiceAddr       = "127.0.0.1:8000"
	DefaultRendezvousTimeout = 1000 * time.Millisecond
	DefaultMaxWorkers        = 16
	DefaultPortCapacity      = 64
	DefaultInboxCapacity     = 256
	DefaultCodec             = "cbor"
	DefaultStore             = false
	DefaultBootstrap         = false
)

// Config contains all the configuration properties of a scenegraph engine.
type Config struct {
	// DataDir is the top-level directory containing the configuration file and
	// the database.
	DataDir string `mapstructure:"datadir"`

	// LogLevel determines the chattiness of the log output.
	LogLevel string `mapstructure:"log"`

	// LogFile, if set, is a file that receives a copy of the log output.
	LogFile string `mapstructure:"log-file"`

	// RendezvousTimeout bounds how long a thread blocks waiting for the owner
	// of a node to publish a field value or a method result. A zero value
	// waits forever.
	RendezvousTimeout time.Duration `mapstructure:"rendezvous-timeout"`

	// MaxWorkers is the maximum number of task threads running at the same
	// time.
	MaxWorkers int `mapstructure:"max-workers"`

	// PortCapacity is the number of events a message port holds before it
	// starts dropping them.
	PortCapacity int `mapstructure:"port-capacity"`

	// InboxCapacity is the size of each thread's message inbox.
	InboxCapacity int `mapstructure:"inbox-capacity"`

	// Codec selects the encoding of payloads in the shared buffers: "cbor" or
	// "json".
	Codec string `mapstructure:"codec"`

	// Store activates persistent storage of the scene.
	Store bool `mapstructure:"store"`

	// DatabaseDir is the directory containing database files.
	DatabaseDir string `mapstructure:"db"`

	// Bootstrap loads the scene from the existing database. Forces Store.
	Bootstrap bool `mapstructure:"bootstrap"`

	// NoService disables the HTTP inspector.
	NoService bool `mapstructure:"no-service"`

	// ServiceAddr is the address:port of the HTTP inspector.
	ServiceAddr string `mapstructure:"service-listen"`

	logger *logrus.Logger
}

// NewDefaultConfig returns a config object with default values.
func NewDefaultConfig() *Config {
	config := &Config{
		DataDir:           DefaultDataDir(),
		LogLevel:          DefaultLogLevel,
		RendezvousTimeout: DefaultRendezvousTimeout,
		MaxWorkers:        DefaultMaxWorkers,
		PortCapacity:      DefaultPortCapacity,
		InboxCapacity:     DefaultInboxCapacity,
		Codec:             DefaultCodec,
		Store:             DefaultStore,
		DatabaseDir:       DefaultDatabaseDir(),
		Bootstrap:         DefaultBootstrap,
		ServiceAddr:       DefaultServiceAddr,
	}

	return config
}

// NewTestConfig returns a config object with default values and a special
// logger for debugging tests. The HTTP inspector is disabled.
func NewTestConfig(t testing.TB, level logrus.Level) *Config {
	config := NewDefaultConfig()
	config.NoService = true
	config.RendezvousTimeout = 2 * time.Second
	config.logger = common.NewTestLogger(t)
	config.logger.Level = level
	return config
}

// SetDataDir sets the top-level directory, and updates the database
// directory if it is currently set to the default value. If the database
// directory is not currently the default, it means the user has explicitely set
// it to something else, so avoid changing it again here.
func (c *Config) SetDataDir(dataDir string) {
	c.DataDir = dataDir
	if c.DatabaseDir == DefaultDatabaseDir() {
		c.DatabaseDir = filepath.Join(dataDir, DefaultBadgerFile)
	}
}

// SetLogger replaces the logger returned by Logger. The CLI uses it to attach
// hooks.
func (c *Config) SetLogger(l *logrus.Logger) {
	c.logger = l
}

// Logger returns a formatted logrus Entry, with prefix set to "scenegraph".
func (c *Config) Logger() *logrus.Entry {
	if c.logger == nil {
		c.logger = logrus.New()
		c.logger.Level = LogLevel(c.LogLevel)
		c.logger.Formatter = new(prefixed.TextFormatter)
	}
	return c.logger.WithField("prefix", "scenegraph")
}

// DefaultDatabaseDir returns the default path for the badger database files.
func DefaultDatabaseDir() string {
	return filepath.Join(DefaultDataDir(), DefaultBadgerFile)
}

// DefaultDataDir return the default directory name for the top-level config
// based on the underlying OS, attempting to respect conventions.
func DefaultDataDir() string {
	// Try to place the data folder in the user's home dir
	home := HomeDir()
	if home != "" {
		if runtime.GOOS == "darwin" {
			return filepath.Join(home, ".Scenegraph")
		} else if runtime.GOOS == "windows" {
			return filepath.Join(home, "AppData", "Roaming", "Scenegraph")
		} else {
			return filepath.Join(home, ".scenegraph")
		}
	}
	// As we cannot guess a stable location, return empty and handle later
	return ""
}

// HomeDir returns the user's home directory.
func HomeDir() string {
	if home := os.Getenv("HOME"); home != "" {
		return home
	}
	if usr, err := user.Current(); err == nil {
		return usr.HomeDir
	}
	return ""
}

// LogLevel parses a string into a Logrus log level.
func LogLevel(l string) logrus.Level {
	switch l {
	case "debug":
		return logrus.DebugLevel
	case "info":
		return logrus.InfoLevel
	case "warn":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	case "fatal":
		return logrus.FatalLevel
	case "panic":
		return logrus.PanicLevel
	default:
		return logrus.DebugLevel
	}
}
