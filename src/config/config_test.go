package config

import (
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestSetDataDir(t *testing.T) {
	c := NewDefaultConfig()
	c.SetDataDir("/tmp/sg")
	assert.Equal(t, filepath.Join("/tmp/sg", DefaultBadgerFile), c.DatabaseDir)

	c.DatabaseDir = "/var/db"
	c.SetDataDir("/tmp/other")
	assert.Equal(t, "/var/db", c.DatabaseDir)
}

func TestLogLevel(t *testing.T) {
	assert.Equal(t, logrus.WarnLevel, LogLevel("warn"))
	assert.Equal(t, logrus.DebugLevel, LogLevel("nonsense"))
}

func TestTestConfigLogger(t *testing.T) {
	c := NewTestConfig(t, logrus.InfoLevel)
	entry := c.Logger()
	assert.Equal(t, "scenegraph", entry.Data["prefix"])
	assert.Equal(t, logrus.InfoLevel, entry.Logger.Level)
	assert.True(t, c.NoService)
}
