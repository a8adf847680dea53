package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadBootstrap(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.yaml")
	require.NoError(t, os.WriteFile(good, []byte(`
server:
  http:
    addr: 127.0.0.1:0
data:
  database:
    driver: sqlite
    path: ":memory:"
`), 0o600))

	bc, err := loadBootstrap(good)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:0", bc.Server.Http.Addr)
	assert.Equal(t, "sqlite", bc.Data.Database.DBConfig().Driver)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("server:\n  http:\n    addr: :8000\n"), 0o600))
	_, err = loadBootstrap(bad)
	assert.Error(t, err)
}
