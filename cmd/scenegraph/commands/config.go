package commands

import (
	"time"

	"github.com/mosaicnetworks/scenegraph/src/config"
	"github.com/rifflock/lfshook"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	prefixed "github.com/x-cray/logrus-prefixed-formatter"
)

//CLIConfig contains configuration for the Run and Dump commands
type CLIConfig struct {
	Scenegraph   config.Config `mapstructure:",squash"`
	TickInterval time.Duration `mapstructure:"tick-interval"`
	Format       string        `mapstructure:"format"`
	Demo         bool          `mapstructure:"demo"`
}

//NewDefaultCLIConfig creates a CLIConfig with default values
func NewDefaultCLIConfig() *CLIConfig {
	return &CLIConfig{
		Scenegraph:   *config.NewDefaultConfig(),
		TickInterval: 500 * time.Millisecond,
		Format:       "json",
		Demo:         true,
	}
}

// addEngineFlags adds the flags shared by the commands that build an engine
func addEngineFlags(cmd *cobra.Command) {
	cmd.Flags().String("datadir", _config.Scenegraph.DataDir, "Top-level directory for configuration and data")
	cmd.Flags().String("log", _config.Scenegraph.LogLevel, "debug, info, warn, error, fatal, panic")
	cmd.Flags().String("log-file", _config.Scenegraph.LogFile, "Also write the log to this file")

	// Threads
	cmd.Flags().Duration("rendezvous-timeout", _config.Scenegraph.RendezvousTimeout, "Max time to wait for the owner of a node")
	cmd.Flags().Int("max-workers", _config.Scenegraph.MaxWorkers, "Max number of task threads")
	cmd.Flags().Int("port-capacity", _config.Scenegraph.PortCapacity, "Number of events a message port holds")
	cmd.Flags().Int("inbox-capacity", _config.Scenegraph.InboxCapacity, "Size of the thread inboxes")
	cmd.Flags().String("codec", _config.Scenegraph.Codec, "Payload encoding: cbor or json")

	// Store
	cmd.Flags().Bool("store", _config.Scenegraph.Store, "Use badgerDB instead of in-mem DB")
	cmd.Flags().String("db", _config.Scenegraph.DatabaseDir, "Dabatabase directory")
	cmd.Flags().Bool("bootstrap", _config.Scenegraph.Bootstrap, "Load the scene from database")

	cmd.Flags().Bool("demo", _config.Demo, "Populate an empty scene with the demo nodes")
}

func loadConfig(cmd *cobra.Command, args []string) error {
	err := bindFlagsLoadViper(cmd)
	if err != nil {
		return err
	}

	// If --datadir was explicitely set, but not --db, this will update the
	// default database dir to be inside the new datadir
	_config.Scenegraph.SetDataDir(_config.Scenegraph.DataDir)

	if _config.Scenegraph.LogFile != "" {
		_config.Scenegraph.SetLogger(newFileLogger(
			_config.Scenegraph.LogLevel,
			_config.Scenegraph.LogFile,
		))
	}

	logFields := logrus.Fields{
		"scenegraph.DataDir":           _config.Scenegraph.DataDir,
		"scenegraph.LogLevel":          _config.Scenegraph.LogLevel,
		"scenegraph.RendezvousTimeout": _config.Scenegraph.RendezvousTimeout,
		"scenegraph.MaxWorkers":        _config.Scenegraph.MaxWorkers,
		"scenegraph.PortCapacity":      _config.Scenegraph.PortCapacity,
		"scenegraph.InboxCapacity":     _config.Scenegraph.InboxCapacity,
		"scenegraph.Codec":             _config.Scenegraph.Codec,
		"scenegraph.Store":             _config.Scenegraph.Store,
		"scenegraph.ServiceAddr":       _config.Scenegraph.ServiceAddr,
		"scenegraph.NoService":         _config.Scenegraph.NoService,
	}

	if _config.Scenegraph.Store || _config.Scenegraph.Bootstrap {
		logFields["scenegraph.DatabaseDir"] = _config.Scenegraph.DatabaseDir
		logFields["scenegraph.Bootstrap"] = _config.Scenegraph.Bootstrap
	}

	_config.Scenegraph.Logger().WithFields(logFields).Debug("Config")

	return nil
}

// Bind all flags and read the config into viper
func bindFlagsLoadViper(cmd *cobra.Command) error {
	// Register flags with viper. Include flags from this command and all other
	// persistent flags from the parent
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	// first unmarshal to read from CLI flags
	if err := viper.Unmarshal(_config); err != nil {
		return err
	}

	// look for config file in [datadir]/scenegraph.toml (.json, .yaml also work)
	viper.SetConfigName(config.DefaultConfigFile)
	viper.AddConfigPath(_config.Scenegraph.DataDir)

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		_config.Scenegraph.Logger().Debugf("Using config file: %s", viper.ConfigFileUsed())
	} else if _, ok := err.(viper.ConfigFileNotFoundError); ok {
		_config.Scenegraph.Logger().Debugf("No config file found in: %s", _config.Scenegraph.DataDir)
	} else {
		return err
	}

	// second unmarshal to read from config file
	return viper.Unmarshal(_config)
}

// newFileLogger returns a logger writing to the terminal, with a hook copying
// every entry to path as JSON lines.
func newFileLogger(level, path string) *logrus.Logger {
	logger := logrus.New()
	logger.Level = config.LogLevel(level)
	logger.Formatter = new(prefixed.TextFormatter)

	pathMap := lfshook.PathMap{}
	for _, l := range logrus.AllLevels {
		pathMap[l] = path
	}
	logger.Hooks.Add(lfshook.NewHook(pathMap, &logrus.JSONFormatter{}))

	return logger
}
