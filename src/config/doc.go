// Package config defines the configuration of a scenegraph engine.
//
// Regardless of how the engine is started, directly from Go code or as a
// standalone process from the command line, it uses the Config object defined
// in this package to store and forward configuration options. The data
// directory, defined by Config.DataDir, may contain:
//
//  scenegraph.toml // (optional) configuration file, also .yaml or .json.
//  badger_db // the database directory when the store is enabled.
package config
