// Package config는 flakenv 설정 파일(config.toml)을 읽고 쓴다.
// 설정 파일이 없어도 기본값으로 동작해야 한다. hook은 설정 없이 설치될 수 있다.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/bmatcuk/doublestar/v4"
	"github.com/hbjs97/flakenv/internal/fsutil"
	"github.com/hbjs97/flakenv/internal/shell"
)

// ErrConfig는 설정 파일을 해석할 수 없거나 값이 올바르지 않음을 나타낸다.
var ErrConfig = errors.New("설정 오류")

const (
	// BackendFile은 키마다 JSON 파일을 두는 캐시 백엔드다.
	BackendFile = "file"
	// BackendSQLite는 단일 SQLite 파일 캐시 백엔드다.
	BackendSQLite = "sqlite"
)

// Config는 flakenv 설정 파일의 최상위 구조체다.
type Config struct {
	Version             int      `toml:"version"`
	Shell               string   `toml:"shell"`
	CacheBackend        string   `toml:"cache_backend"`
	CacheDir            string   `toml:"cache_dir"`
	StateDir            string   `toml:"state_dir"`
	BuildTimeoutSeconds int      `toml:"build_timeout_seconds"`
	SessionTTLDays      int      `toml:"session_ttl_days"`
	Watch               []string `toml:"watch"`
	MergePathVars       []string `toml:"merge_path_vars"`
	NixArgs             []string `toml:"nix_args"`
	KeepGCRoots         *bool    `toml:"keep_gcroots"`
}

// DefaultPath는 기본 설정 파일 경로다. XDG_CONFIG_HOME을 따른다.
func DefaultPath() string {
	return filepath.Join(xdgDir("XDG_CONFIG_HOME", ".config"), "flakenv", "config.toml")
}

// Default는 설정 파일이 없을 때 쓰이는 설정이다.
func Default() *Config {
	cfg := &Config{Version: 1}
	cfg.applyDefaults()
	return cfg
}

// Load는 config.toml을 파싱하여 Config를 반환한다. 파일이 없으면 Default.
func Load(path string) (*Config, error) {
	var cfg Config
	_, err := toml.DecodeFile(path, &cfg)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w: %v", ErrConfig, err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save는 cfg를 path에 TOML로 저장한다 (0600 권한).
func Save(path string, cfg *Config) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("config.Save: %w", err)
	}
	if err := fsutil.WriteFileAtomic(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("config.Save: %w", err)
	}
	return nil
}

// IsKeepGCRoots는 keep_gcroots 설정값을 반환한다.
func (c *Config) IsKeepGCRoots() bool {
	if c.KeepGCRoots == nil {
		return true
	}
	return *c.KeepGCRoots
}

// BuildTimeout은 빌드 제한 시간이다.
func (c *Config) BuildTimeout() time.Duration {
	return time.Duration(c.BuildTimeoutSeconds) * time.Second
}

// SessionTTL은 갱신되지 않은 세션 기록을 정리하기까지의 기간이다.
func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLDays) * 24 * time.Hour
}

// ProfilesPath는 캐시 백엔드 저장 위치다. file이면 디렉토리, sqlite면 DB 파일.
func (c *Config) ProfilesPath() string {
	if c.CacheBackend == BackendSQLite {
		return filepath.Join(c.CacheDir, "profiles.db")
	}
	return filepath.Join(c.CacheDir, "profiles")
}

// GCRootDir는 GC 루트 디렉토리다. keep_gcroots가 꺼져 있으면 빈 문자열.
func (c *Config) GCRootDir() string {
	if !c.IsKeepGCRoots() {
		return ""
	}
	return filepath.Join(c.CacheDir, "gcroots")
}

// ValidateFilePermissions는 파일 권한이 0600보다 넓으면 에러를 반환한다.
func ValidateFilePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("config.ValidateFilePermissions: %w", err)
	}
	perm := info.Mode().Perm()
	if perm&0077 != 0 {
		return fmt.Errorf("config.ValidateFilePermissions: %s 권한이 %o (0600 필요)", path, perm)
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Version == 0 {
		c.Version = 1
	}
	if c.Shell == "" {
		c.Shell = "zsh"
	}
	if c.CacheBackend == "" {
		c.CacheBackend = BackendFile
	}
	if c.CacheDir == "" {
		c.CacheDir = filepath.Join(xdgDir("XDG_CACHE_HOME", ".cache"), "flakenv")
	}
	if c.StateDir == "" {
		c.StateDir = filepath.Join(xdgDir("XDG_STATE_HOME", filepath.Join(".local", "state")), "flakenv")
	}
	c.CacheDir = expandHome(c.CacheDir)
	c.StateDir = expandHome(c.StateDir)
	if c.BuildTimeoutSeconds == 0 {
		c.BuildTimeoutSeconds = 300
	}
	if c.SessionTTLDays == 0 {
		c.SessionTTLDays = 7
	}
	if c.Watch == nil {
		c.Watch = []string{"flake.nix", "flake.lock"}
	}
	if c.MergePathVars == nil {
		c.MergePathVars = []string{"PATH", "XDG_DATA_DIRS"}
	}
	if c.KeepGCRoots == nil {
		t := true
		c.KeepGCRoots = &t
	}
}

func (c *Config) validate() error {
	if _, err := shell.ForShell(c.Shell); err != nil || c.Shell == "json" {
		return fmt.Errorf("config.Load: %w: shell %q (zsh, bash, fish 중 하나)", ErrConfig, c.Shell)
	}
	if c.CacheBackend != BackendFile && c.CacheBackend != BackendSQLite {
		return fmt.Errorf("config.Load: %w: cache_backend %q (file 또는 sqlite)", ErrConfig, c.CacheBackend)
	}
	if c.BuildTimeoutSeconds < 0 {
		return fmt.Errorf("config.Load: %w: build_timeout_seconds는 음수일 수 없습니다", ErrConfig)
	}
	if c.SessionTTLDays < 0 {
		return fmt.Errorf("config.Load: %w: session_ttl_days는 음수일 수 없습니다", ErrConfig)
	}
	for _, p := range c.Watch {
		if !doublestar.ValidatePattern(p) {
			return fmt.Errorf("config.Load: %w: watch 패턴 %q", ErrConfig, p)
		}
	}
	return nil
}

func xdgDir(env, fallback string) string {
	if dir := os.Getenv(env); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return fallback
	}
	return filepath.Join(home, fallback)
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
