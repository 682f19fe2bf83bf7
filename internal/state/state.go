// Package state는 셸 세션별로 마지막으로 적용한 환경과 그 출처를 기록한다.
// 기록이 없거나 손상되었으면 "적용된 환경 없음"으로 취급한다.
package state

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/hbjs97/flakenv/internal/flakekey"
	"github.com/hbjs97/flakenv/internal/fsutil"
	"github.com/hbjs97/flakenv/internal/snapshot"
	"go.uber.org/zap"
	"lukechampine.com/blake3"
)

// FormatVersion은 세션 기록 파일의 형식 버전이다.
const FormatVersion = 1

// Context는 스냅샷이 어느 flake에서 왔는지 나타낸다.
type Context struct {
	Dir string       `json:"dir,omitempty"`
	Ref string       `json:"ref"`
	Key flakekey.Key `json:"key"`
}

// SessionState는 한 세션에 마지막으로 적용된 환경이다.
// Restore는 환경이 덮어쓴 변수들의 로드 이전 사용자 값이다. 로드 이전에 없던 변수는 포함하지 않는다.
type SessionState struct {
	Format    int               `json:"format"`
	Context   Context           `json:"context"`
	Snapshot  snapshot.Snapshot `json:"snapshot"`
	Restore   snapshot.Snapshot `json:"restore"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// Store는 dir 아래에 세션마다 파일 하나를 두는 저장소다.
type Store struct {
	dir    string
	now    func() time.Time
	logger *zap.Logger
}

// Option은 Store 설정이다.
type Option func(*Store)

// WithLogger는 손상 기록 경고에 쓰일 로거를 지정한다.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithClock은 UpdatedAt과 Prune 기준 시각의 시계를 교체한다.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// NewStore는 dir을 루트로 하는 Store를 생성한다. 디렉토리는 첫 Save 때 만든다.
func NewStore(dir string, opts ...Option) *Store {
	s := &Store{dir: dir, now: time.Now, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Dir는 저장소 루트 디렉토리다.
func (s *Store) Dir() string {
	return s.dir
}

var safeID = regexp.MustCompile(`^[A-Za-z0-9._-]{1,64}$`)

func (s *Store) path(id string) (string, error) {
	if id == "" {
		return "", errors.New("빈 세션 ID")
	}
	name := id
	if !safeID.MatchString(id) || strings.Trim(id, ".") == "" {
		sum := blake3.Sum256([]byte(id))
		name = "h-" + hex.EncodeToString(sum[:16])
	}
	return filepath.Join(s.dir, name+".json"), nil
}

// Load는 세션 기록을 읽는다. 기록이 없으면 nil, nil.
// 해석할 수 없거나 형식이 다르면 경고를 남기고 nil, nil을 반환한다 (graceful).
func (s *Store) Load(id string) (*SessionState, error) {
	path, err := s.path(id)
	if err != nil {
		return nil, fmt.Errorf("state.Load: %w", err)
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("state.Load: %w", err)
	}

	var st SessionState
	if err := json.Unmarshal(data, &st); err != nil {
		s.logger.Warn("세션 기록이 손상되어 무시합니다", zap.String("session", id), zap.Error(err))
		return nil, nil
	}
	if st.Format != FormatVersion {
		s.logger.Warn("세션 기록 형식이 달라 무시합니다",
			zap.String("session", id), zap.Int("format", st.Format))
		return nil, nil
	}
	return &st, nil
}

// Save는 세션 기록을 원자적으로 교체한다 (0600 권한).
// Format과 UpdatedAt은 Store가 채운다.
func (s *Store) Save(id string, st SessionState) error {
	path, err := s.path(id)
	if err != nil {
		return fmt.Errorf("state.Save: %w", err)
	}
	st.Format = FormatVersion
	st.UpdatedAt = s.now().UTC()
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("state.Save: %w", err)
	}
	if err := fsutil.WriteFileAtomic(path, data, 0600); err != nil {
		return fmt.Errorf("state.Save: %w", err)
	}
	return nil
}

// Touch는 내용을 바꾸지 않고 기록의 수정 시각을 갱신하여 Prune 대상에서 빠지게 한다.
// 기록이 없으면 아무것도 하지 않는다.
func (s *Store) Touch(id string) error {
	path, err := s.path(id)
	if err != nil {
		return fmt.Errorf("state.Touch: %w", err)
	}
	now := s.now()
	if err := os.Chtimes(path, now, now); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("state.Touch: %w", err)
	}
	return nil
}

// Clear는 세션 기록을 제거한다. 기록이 없어도 에러가 아니다.
func (s *Store) Clear(id string) error {
	path, err := s.path(id)
	if err != nil {
		return fmt.Errorf("state.Clear: %w", err)
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("state.Clear: %w", err)
	}
	return nil
}

// Prune은 maxAge 동안 갱신되지 않은 세션 기록을 제거하고 제거한 개수를 반환한다.
// 손상된 기록도 수정 시각 기준으로 함께 정리된다.
func (s *Store) Prune(maxAge time.Duration) (int, error) {
	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("state.Prune: %w", err)
	}

	cutoff := s.now().Add(-maxAge)
	removed := 0
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, e.Name())); err != nil && !errors.Is(err, os.ErrNotExist) {
			return removed, fmt.Errorf("state.Prune: %w", err)
		}
		removed++
	}
	return removed, nil
}
