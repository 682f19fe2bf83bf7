package setup

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/hbjs97/flakenv/internal/config"
	"github.com/hbjs97/flakenv/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockFormRunner는 테스트용 FormRunner다.
type mockFormRunner struct {
	answers  Answers
	err      error
	confirm  bool
	defaults Answers
	asked    []string
}

func (m *mockFormRunner) RunSetupForm(defaults Answers) (Answers, error) {
	m.defaults = defaults
	return m.answers, m.err
}

func (m *mockFormRunner) RunConfirm(message string) (bool, error) {
	m.asked = append(m.asked, message)
	return m.confirm, nil
}

func newRunner(t *testing.T, cfgPath string, forms FormRunner) (*Runner, *bytes.Buffer) {
	t.Helper()
	fake := testutil.NewFakeCommander()
	fake.Register("nix --version", "nix (Nix) 2.24.9", nil)
	var out bytes.Buffer
	return &Runner{
		CfgPath:    cfgPath,
		Commander:  fake,
		FormRunner: forms,
		Out:        &out,
		HomeDir:    t.TempDir(),
		WorkDir:    t.TempDir(),
	}, &out
}

func TestRunner_FirstTime(t *testing.T) {
	t.Setenv("SHELL", "/bin/bash")
	t.Setenv("XDG_CACHE_HOME", t.TempDir())
	t.Setenv("XDG_STATE_HOME", t.TempDir())
	cfgPath := filepath.Join(t.TempDir(), "flakenv", "config.toml")
	forms := &mockFormRunner{answers: Answers{
		Shell:               "bash",
		CacheBackend:        config.BackendFile,
		BuildTimeoutSeconds: 120,
		InstallHook:         true,
	}}
	r, out := newRunner(t, cfgPath, forms)

	require.NoError(t, r.Run(context.Background()))

	assert.Equal(t, "bash", forms.defaults.Shell, "detected shell is the default")
	assert.Equal(t, 300, forms.defaults.BuildTimeoutSeconds)
	assert.Empty(t, forms.asked)

	cfg, err := config.Load(cfgPath)
	require.NoError(t, err)
	assert.Equal(t, "bash", cfg.Shell)
	assert.Equal(t, 120, cfg.BuildTimeoutSeconds)

	rc, err := os.ReadFile(filepath.Join(r.HomeDir, ".bashrc"))
	require.NoError(t, err)
	assert.Contains(t, string(rc), "flakenv shell integration")
	assert.Contains(t, out.String(), "환경 진단")
}

func TestRunner_ExistingConfigKeepsOtherFields(t *testing.T) {
	t.Setenv("SHELL", "")
	cfgPath := testutil.SetupTestConfig(t, config.BackendFile)
	before, err := config.Load(cfgPath)
	require.NoError(t, err)
	forms := &mockFormRunner{answers: Answers{Shell: "zsh", CacheBackend: config.BackendFile, BuildTimeoutSeconds: 45}}
	r, _ := newRunner(t, cfgPath, forms)

	require.NoError(t, r.Run(context.Background()))
	assert.Equal(t, "bash", forms.defaults.Shell, "existing config is the default")

	after, err := config.Load(cfgPath)
	require.NoError(t, err)
	assert.Equal(t, "zsh", after.Shell)
	assert.Equal(t, 45, after.BuildTimeoutSeconds)
	assert.Equal(t, before.CacheDir, after.CacheDir)
	assert.Equal(t, before.IsKeepGCRoots(), after.IsKeepGCRoots())

	_, err = os.Stat(filepath.Join(r.HomeDir, ".zshrc"))
	assert.True(t, os.IsNotExist(err), "hook not requested")
}

func TestRunner_BackendChangeDeclined(t *testing.T) {
	t.Setenv("SHELL", "")
	cfgPath := testutil.SetupTestConfig(t, config.BackendFile)
	original, err := os.ReadFile(cfgPath)
	require.NoError(t, err)
	forms := &mockFormRunner{
		answers: Answers{Shell: "bash", CacheBackend: config.BackendSQLite, BuildTimeoutSeconds: 30},
		confirm: false,
	}
	r, out := newRunner(t, cfgPath, forms)

	require.NoError(t, r.Run(context.Background()))
	assert.Len(t, forms.asked, 1)
	assert.Contains(t, out.String(), "취소")

	current, err := os.ReadFile(cfgPath)
	require.NoError(t, err)
	assert.Equal(t, string(original), string(current))
}

func TestRunner_FormError(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.toml")
	r, _ := newRunner(t, cfgPath, &mockFormRunner{err: errors.New("user aborted")})

	err := r.Run(context.Background())
	assert.Error(t, err)
	_, statErr := os.Stat(cfgPath)
	assert.True(t, os.IsNotExist(statErr))
}

func TestRunner_InvalidConfig(t *testing.T) {
	cfgPath := testutil.TempConfigFile(t, `cache_backend = "redis"`)
	r, _ := newRunner(t, cfgPath, &mockFormRunner{})

	assert.ErrorIs(t, r.Run(context.Background()), config.ErrConfig)
}
