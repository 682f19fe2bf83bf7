// Package profile은 FlakeKey별로 빌드된 프로필(환경변수 집합)을 캐시하고
// 조회 시 Hit/Stale/Miss를 판정한다. 빌드는 절대 직접 실행하지 않는다.
package profile

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hbjs97/flakenv/internal/flakekey"
	"github.com/hbjs97/flakenv/internal/snapshot"
	"github.com/hbjs97/flakenv/internal/versiongate"
	"github.com/hbjs97/flakenv/internal/watch"
	"go.uber.org/zap"
)

// ErrCorrupt는 저장된 항목을 해석할 수 없음을 나타낸다. 조회에서는 Miss로 처리된다.
var ErrCorrupt = errors.New("corrupt profile entry")

// Kind는 조회 결과 종류다.
type Kind int

const (
	// Miss는 항목이 없거나 읽을 수 없는 상태다.
	Miss Kind = iota
	// Stale은 항목은 있지만 그대로 제공하면 안 되는 상태다.
	Stale
	// Hit은 항목을 그대로 제공해도 되는 상태다.
	Hit
)

func (k Kind) String() string {
	switch k {
	case Hit:
		return "hit"
	case Stale:
		return "stale"
	default:
		return "miss"
	}
}

// Status는 Lookup 결과다. Env는 Hit일 때만 의미가 있다.
type Status struct {
	Kind   Kind
	Env    snapshot.Snapshot
	Reason string
}

// Entry는 하나의 캐시 항목이다. 재빌드 시 교체되며 제자리에서 수정되지 않는다.
type Entry struct {
	Format    int               `json:"format"`
	Key       flakekey.Key      `json:"key"`
	Env       snapshot.Snapshot `json:"env"`
	Inputs    watch.Inputs      `json:"inputs"`
	Builder   string            `json:"builder,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// Cache는 Backend 위에서 캐시 판정 정책을 구현한다.
type Cache struct {
	backend Backend
	gate    versiongate.Gate
	now     func() time.Time
	logger  *zap.Logger
}

// Option은 Cache 설정이다.
type Option func(*Cache)

// WithGate는 VersionGate를 교체한다.
func WithGate(g versiongate.Gate) Option {
	return func(c *Cache) { c.gate = g }
}

// WithClock은 생성 시각에 쓰이는 시계를 교체한다.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// WithLogger는 손상 항목 등을 기록할 로거를 지정한다.
func WithLogger(l *zap.Logger) Option {
	return func(c *Cache) { c.logger = l }
}

// New는 backend를 쓰는 Cache를 생성한다.
func New(backend Backend, opts ...Option) *Cache {
	c := &Cache{
		backend: backend,
		gate:    versiongate.Default(),
		now:     time.Now,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Lookup은 key의 항목을 조회하여 판정한다.
// Miss: 항목 없음 또는 손상. Stale: 형식 비호환 또는 입력 변경. Hit: 그 외.
func (c *Cache) Lookup(key flakekey.Key, live watch.Inputs) Status {
	entry, err := c.Get(key)
	if errors.Is(err, ErrNotFound) {
		return Status{Kind: Miss, Reason: "항목 없음"}
	}
	if err != nil {
		c.logger.Warn("프로필 캐시 항목을 읽을 수 없어 재빌드합니다",
			zap.String("key", key.Short()), zap.Error(err))
		return Status{Kind: Miss, Reason: err.Error()}
	}

	if err := c.gate.Check(entry.Format); err != nil {
		return Status{Kind: Stale, Reason: err.Error()}
	}
	if changed := watch.Changed(entry.Inputs, live); len(changed) > 0 {
		return Status{Kind: Stale, Reason: "입력 변경: " + strings.Join(changed, ", ")}
	}
	return Status{Kind: Hit, Env: entry.Env, Reason: "캐시"}
}

// Get은 key의 항목을 해석하여 반환한다. 판정은 하지 않는다.
func (c *Cache) Get(key flakekey.Key) (*Entry, error) {
	if !key.Valid() {
		return nil, fmt.Errorf("profile.Get: %w: 잘못된 키", ErrCorrupt)
	}
	data, err := c.backend.Get(string(key))
	if err != nil {
		return nil, err
	}
	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("profile.Get: %w: %v", ErrCorrupt, err)
	}
	if entry.Key != key {
		return nil, fmt.Errorf("profile.Get: %w: 키 불일치", ErrCorrupt)
	}
	return &entry, nil
}

// Store는 key의 항목을 새 프로필로 교체한다. 같은 키의 마지막 빌드가 이긴다.
// builder는 프로필을 만든 빌더의 버전 문자열이다(진단용).
func (c *Cache) Store(key flakekey.Key, env snapshot.Snapshot, inputs watch.Inputs, builder string) error {
	if !key.Valid() {
		return fmt.Errorf("profile.Store: 잘못된 키 %q", key)
	}
	entry := Entry{
		Format:    c.gate.Running,
		Key:       key,
		Env:       env,
		Inputs:    inputs,
		Builder:   builder,
		CreatedAt: c.now().UTC(),
	}
	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return fmt.Errorf("profile.Store: %w", err)
	}
	if err := c.backend.Put(string(key), data); err != nil {
		return fmt.Errorf("profile.Store: %w", err)
	}
	return nil
}

// Remove는 key의 항목을 제거한다.
func (c *Cache) Remove(key flakekey.Key) error {
	if err := c.backend.Delete(string(key)); err != nil {
		return fmt.Errorf("profile.Remove: %w", err)
	}
	return nil
}

// Keys는 저장된 키 목록이다.
func (c *Cache) Keys() ([]flakekey.Key, error) {
	raw, err := c.backend.List()
	if err != nil {
		return nil, fmt.Errorf("profile.Keys: %w", err)
	}
	keys := make([]flakekey.Key, 0, len(raw))
	for _, k := range raw {
		keys = append(keys, flakekey.Key(k))
	}
	return keys, nil
}

// Clear는 모든 항목을 제거하고 제거한 개수를 반환한다.
func (c *Cache) Clear() (int, error) {
	keys, err := c.Keys()
	if err != nil {
		return 0, err
	}
	for i, k := range keys {
		if err := c.Remove(k); err != nil {
			return i, err
		}
	}
	return len(keys), nil
}

// Close는 backend를 닫는다.
func (c *Cache) Close() error {
	return c.backend.Close()
}

// Entries는 읽을 수 있는 모든 항목을 키 순서로 반환한다. 손상 항목은 건너뛴다.
func (c *Cache) Entries() ([]Entry, error) {
	keys, err := c.Keys()
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, 0, len(keys))
	for _, k := range keys {
		entry, err := c.Get(k)
		if err != nil {
			c.logger.Debug("항목 건너뜀", zap.String("key", string(k)), zap.Error(err))
			continue
		}
		entries = append(entries, *entry)
	}
	return entries, nil
}
