package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
	require.Equal(t, 10*time.Second, cfg.HeartbeatTimeout.Std())
	require.Equal(t, 20, cfg.PageSize)
}

func TestLoadOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
api_base: http://localhost:8080
heartbeat_timeout: 3s
reconnect_wait: 500ms
page_size: 50
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "http://localhost:8080", cfg.APIBase)
	require.Equal(t, 3*time.Second, cfg.HeartbeatTimeout.Std())
	require.Equal(t, 500*time.Millisecond, cfg.ReconnectWait.Std())
	require.Equal(t, 50, cfg.PageSize)

	// untouched keys keep their defaults
	require.Equal(t, Default().SocketURL, cfg.SocketURL)
	require.Equal(t, Default().Theme, cfg.Theme)
}

func TestLoadRejectsBadDuration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("heartbeat_timeout: soon\n"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
}

func TestResolveDataDirExpandsHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg := Default()
	cfg.DataDir = "~/.kuttalk"

	dir, err := cfg.ResolveDataDir()
	require.NoError(t, err)
	require.Equal(t, filepath.Join(home, ".kuttalk"), dir)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	require.True(t, info.IsDir())
}
