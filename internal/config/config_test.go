package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hbjs97/flakenv/internal/config"
	"github.com/hbjs97/flakenv/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_ValidTOML(t *testing.T) {
	content := `version = 1
shell = "fish"
cache_backend = "sqlite"
cache_dir = "/var/cache/flakenv"
state_dir = "/run/user/1000/flakenv"
build_timeout_seconds = 60
session_ttl_days = 3
watch = ["flake.nix", "flake.lock", "nix/**/*.nix"]
merge_path_vars = ["PATH"]
nix_args = ["--impure"]
keep_gcroots = false`

	path := testutil.TempConfigFile(t, content)
	cfg, err := config.Load(path)

	require.NoError(t, err)
	assert.Equal(t, "fish", cfg.Shell)
	assert.Equal(t, config.BackendSQLite, cfg.CacheBackend)
	assert.Equal(t, "/var/cache/flakenv", cfg.CacheDir)
	assert.Equal(t, "/run/user/1000/flakenv", cfg.StateDir)
	assert.Equal(t, time.Minute, cfg.BuildTimeout())
	assert.Equal(t, 3*24*time.Hour, cfg.SessionTTL())
	assert.Equal(t, []string{"flake.nix", "flake.lock", "nix/**/*.nix"}, cfg.Watch)
	assert.Equal(t, []string{"PATH"}, cfg.MergePathVars)
	assert.Equal(t, []string{"--impure"}, cfg.NixArgs)
	assert.False(t, cfg.IsKeepGCRoots())
	assert.Empty(t, cfg.GCRootDir())
	assert.Equal(t, "/var/cache/flakenv/profiles.db", cfg.ProfilesPath())
}

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", "/tmp/xdg-cache")
	t.Setenv("XDG_STATE_HOME", "/tmp/xdg-state")

	path := testutil.TempConfigFile(t, "version = 1\n")
	cfg, err := config.Load(path)

	require.NoError(t, err)
	assert.Equal(t, "zsh", cfg.Shell)
	assert.Equal(t, config.BackendFile, cfg.CacheBackend)
	assert.Equal(t, "/tmp/xdg-cache/flakenv", cfg.CacheDir)
	assert.Equal(t, "/tmp/xdg-state/flakenv", cfg.StateDir)
	assert.Equal(t, 300, cfg.BuildTimeoutSeconds)
	assert.Equal(t, 7, cfg.SessionTTLDays)
	assert.Equal(t, []string{"flake.nix", "flake.lock"}, cfg.Watch)
	assert.Equal(t, []string{"PATH", "XDG_DATA_DIRS"}, cfg.MergePathVars)
	assert.True(t, cfg.IsKeepGCRoots())
	assert.Equal(t, "/tmp/xdg-cache/flakenv/gcroots", cfg.GCRootDir())
	assert.Equal(t, "/tmp/xdg-cache/flakenv/profiles", cfg.ProfilesPath())
}

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
}

func TestLoadConfig_ExpandsHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	path := testutil.TempConfigFile(t, `cache_dir = "~/my-cache"`)
	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "my-cache"), cfg.CacheDir)
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := map[string]string{
		"syntax":           "version = [",
		"unknown backend":  `cache_backend = "redis"`,
		"unknown shell":    `shell = "powershell"`,
		"json shell":       `shell = "json"`,
		"negative timeout": `build_timeout_seconds = -1`,
		"negative ttl":     `session_ttl_days = -2`,
		"bad watch glob":   `watch = ["flake.[nix"]`,
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := config.Load(testutil.TempConfigFile(t, content))
			assert.ErrorIs(t, err, config.ErrConfig)
		})
	}
}

func TestSave_WritesValidTOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "config.toml")

	keep := false
	cfg := &config.Config{
		Version:             1,
		Shell:               "bash",
		CacheBackend:        config.BackendSQLite,
		CacheDir:            "/c",
		StateDir:            "/s",
		BuildTimeoutSeconds: 120,
		KeepGCRoots:         &keep,
	}

	require.NoError(t, config.Save(path, cfg))

	// 파일 권한 0600 확인
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
	require.NoError(t, config.ValidateFilePermissions(path))

	loaded, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "bash", loaded.Shell)
	assert.Equal(t, config.BackendSQLite, loaded.CacheBackend)
	assert.Equal(t, 120, loaded.BuildTimeoutSeconds)
	assert.False(t, loaded.IsKeepGCRoots())
}

func TestValidateFilePermissions_TooOpen(t *testing.T) {
	path := testutil.TempConfigFile(t, "version = 1\n")
	require.NoError(t, os.Chmod(path, 0644))
	assert.Error(t, config.ValidateFilePermissions(path))
}

func TestDefaultPath_FollowsXDG(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg-config")
	assert.Equal(t, "/tmp/xdg-config/flakenv/config.toml", config.DefaultPath())
}
