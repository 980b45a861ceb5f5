package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("addr: \":9000\"\ne131:\n  universe: 3\n"), 0644))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9000", c.Addr)
	assert.Equal(t, 3, c.E131.Universe)
	assert.Equal(t, "sim", c.Driver)
	assert.Equal(t, "duplicate", c.Model.ConflictPolicy)
	assert.Equal(t, 2, c.Pins["Pin2"])
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	c := Default()
	c.Driver = "spi"
	c.Pins = map[string]int{"Pin4": 17}
	require.NoError(t, Save(path, c))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "spi", got.Driver)
	assert.Equal(t, 17, got.Pins["Pin4"])
	assert.Equal(t, c.SPI, got.SPI)
}

func TestLoadMissing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
