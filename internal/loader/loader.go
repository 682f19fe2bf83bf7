// Package loader는 세션 기록, 프로필 캐시, 빌더를 조합하여 현재 디렉토리의 flake 환경을
// 셸에 적용하기 위한 최소 전환 연산을 계산한다.
package loader

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/hbjs97/flakenv/internal/flakekey"
	"github.com/hbjs97/flakenv/internal/profile"
	"github.com/hbjs97/flakenv/internal/snapshot"
	"github.com/hbjs97/flakenv/internal/state"
	"github.com/hbjs97/flakenv/internal/transition"
	"github.com/hbjs97/flakenv/internal/watch"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// ErrBuildFailed는 환경 빌드가 실패, 시간 초과 또는 취소되었음을 나타낸다.
// 이때 세션 기록과 캐시는 변경되지 않는다.
var ErrBuildFailed = errors.New("build failed")

// DefaultTimeout은 Timeout이 0일 때 쓰이는 빌드 제한 시간이다.
const DefaultTimeout = 5 * time.Minute

// PathSeparator는 MergeVars 변수의 항목 구분자다.
const PathSeparator = ":"

// Builder는 flake 참조로부터 개발 환경을 계산한다. ctx가 끝나면 즉시 반환해야 한다.
type Builder interface {
	Build(ctx context.Context, ref flakekey.Reference) (snapshot.Snapshot, error)
}

// describer는 캐시 항목에 기록할 빌더 식별 문자열을 제공하는 선택적 인터페이스다.
type describer interface {
	Describe() string
}

// Loader는 Orchestrator다.
type Loader struct {
	States   *state.Store
	Profiles *profile.Cache
	Builder  Builder
	// Environ은 현재 프로세스 환경을 반환한다. nil이면 os.Environ을 쓴다.
	Environ func() map[string]string
	// MergeVars의 변수는 교체하지 않고 사용자 값 앞에 붙인다 (PATH 형태).
	MergeVars []string
	// Watch는 신선도 판정에 쓰이는 flake 디렉토리 기준 glob 목록이다.
	Watch   []string
	Timeout time.Duration
	Logger  *zap.Logger

	group singleflight.Group
}

// resolved는 참조 하나를 해석한 결과다.
type resolved struct {
	key    flakekey.Key
	dir    string
	env    snapshot.Snapshot
	status profile.Status
}

// Resolve는 sessionID 세션이 ref의 환경(nil이면 어떤 프로젝트도 아님)으로 전환하는 연산을 반환한다.
// 빌드 실패 시 ErrBuildFailed를 감싼 에러를 반환하며 연산은 없다.
// 새 세션 기록을 저장하지 못하면 에러를 반환하고 연산을 내보내지 않는다.
func (l *Loader) Resolve(ctx context.Context, sessionID string, ref *flakekey.Reference) ([]transition.Op, error) {
	prev, err := l.States.Load(sessionID)
	if err != nil {
		return nil, fmt.Errorf("loader.Resolve: %w", err)
	}
	if ref == nil {
		return l.leave(sessionID, prev)
	}

	r, err := l.resolve(ctx, *ref)
	if err != nil {
		return nil, fmt.Errorf("loader.Resolve: %w", err)
	}

	var prevSnap, prevRestore snapshot.Snapshot
	if prev != nil {
		prevSnap, prevRestore = prev.Snapshot, prev.Restore
	}
	c := l.compose(r.env, prevSnap, prevRestore)
	if prev != nil && prev.Context.Key == r.key && prevSnap.Equal(c.owned) {
		l.logger().Debug("환경 변경 없음", zap.String("key", r.key.Short()))
		if err := l.States.Touch(sessionID); err != nil {
			l.logger().Warn("세션 기록 시각 갱신 실패", zap.String("session", sessionID), zap.Error(err))
		}
		return nil, nil
	}

	ops := transition.Diff(&prevSnap, &c.target)

	next := state.SessionState{
		Context:  state.Context{Dir: r.dir, Ref: ref.String(), Key: r.key},
		Snapshot: c.owned,
		Restore:  c.restore,
	}
	if err := l.States.Save(sessionID, next); err != nil {
		return nil, fmt.Errorf("loader.Resolve: %w", err)
	}
	l.logger().Debug("환경 전환",
		zap.String("session", sessionID),
		zap.String("key", r.key.Short()),
		zap.String("cache", r.status.Kind.String()),
		zap.Int("ops", len(ops)))
	return ops, nil
}

// Leave는 세션이 프로젝트를 벗어날 때의 연산을 반환한다.
func (l *Loader) Leave(sessionID string) ([]transition.Op, error) {
	return l.Resolve(context.Background(), sessionID, nil)
}

// Peek은 세션 기록을 건드리지 않고 ref의 환경을 해석한다 (캐시 또는 빌드).
func (l *Loader) Peek(ctx context.Context, ref flakekey.Reference) (snapshot.Snapshot, error) {
	r, err := l.resolve(ctx, ref)
	if err != nil {
		return snapshot.Snapshot{}, fmt.Errorf("loader.Peek: %w", err)
	}
	return r.env, nil
}

// Inspect는 빌드 없이 ref의 키와 캐시 상태를 반환한다.
func (l *Loader) Inspect(ref flakekey.Reference) (flakekey.Key, profile.Status, error) {
	key, dir, forced, err := l.deriveKey(ref)
	if err != nil {
		return "", profile.Status{}, fmt.Errorf("loader.Inspect: %w", err)
	}
	if forced {
		return key, profile.Status{Kind: profile.Miss, Reason: flakekey.ErrMalformedLockfile.Error()}, nil
	}
	inputs, err := l.inputs(dir)
	if err != nil {
		return "", profile.Status{}, fmt.Errorf("loader.Inspect: %w", err)
	}
	return key, l.Profiles.Lookup(key, inputs), nil
}

func (l *Loader) leave(sessionID string, prev *state.SessionState) ([]transition.Op, error) {
	if prev == nil {
		return nil, nil
	}
	target := prev.Restore
	ops := transition.Diff(&prev.Snapshot, &target)
	if err := l.States.Clear(sessionID); err != nil {
		return nil, fmt.Errorf("loader.Resolve: %w", err)
	}
	l.logger().Debug("환경 해제", zap.String("session", sessionID), zap.Int("ops", len(ops)))
	return ops, nil
}

func (l *Loader) resolve(ctx context.Context, ref flakekey.Reference) (resolved, error) {
	key, dir, forced, err := l.deriveKey(ref)
	if err != nil {
		return resolved{}, err
	}
	inputs, err := l.inputs(dir)
	if err != nil {
		return resolved{}, err
	}

	status := profile.Status{Kind: profile.Miss, Reason: flakekey.ErrMalformedLockfile.Error()}
	if !forced {
		status = l.Profiles.Lookup(key, inputs)
	}
	if status.Kind == profile.Hit {
		return resolved{key: key, dir: dir, env: status.Env, status: status}, nil
	}

	l.logger().Debug("환경 빌드", zap.String("key", key.Short()),
		zap.String("cache", status.Kind.String()), zap.String("reason", status.Reason))
	env, err := l.build(ctx, ref, key, inputs, !forced)
	if err != nil {
		return resolved{}, err
	}
	return resolved{key: key, dir: dir, env: env, status: status}, nil
}

// deriveKey는 ref의 키를 계산한다. lock이 손상되었으면 forced가 true이고
// 이때의 키는 세션 문맥 식별에만 쓰이며 캐시에 쓰이지 않는다.
func (l *Loader) deriveKey(ref flakekey.Reference) (key flakekey.Key, dir string, forced bool, err error) {
	var lock []byte
	if d, ok := ref.Dir(); ok {
		dir = d
		lock, err = flakekey.ReadLock(dir)
		if err != nil {
			l.logger().Warn("flake.lock을 읽을 수 없어 캐시 없이 빌드합니다", zap.Error(err))
			forced = true
			lock = nil
		}
	}

	if !forced {
		key, err = flakekey.Derive(ref, lock)
		if err == nil {
			return key, dir, false, nil
		}
		if !errors.Is(err, flakekey.ErrMalformedLockfile) {
			return "", "", false, err
		}
		l.logger().Warn("flake.lock 형식이 올바르지 않아 캐시 없이 빌드합니다", zap.Error(err))
	}

	key, err = flakekey.Derive(ref, nil)
	if err != nil {
		return "", "", false, err
	}
	return key, dir, true, nil
}

func (l *Loader) inputs(dir string) (watch.Inputs, error) {
	if dir == "" {
		return nil, nil
	}
	patterns := l.Watch
	if len(patterns) == 0 {
		patterns = watch.DefaultPatterns
	}
	return watch.Collect(dir, patterns)
}

// build는 같은 키의 동시 빌드를 하나로 합친다. 대기 중인 호출자는 자기 ctx가 끝나면 먼저 반환한다.
func (l *Loader) build(ctx context.Context, ref flakekey.Reference, key flakekey.Key, inputs watch.Inputs, cache bool) (snapshot.Snapshot, error) {
	timeout := l.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	buildCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	groupKey := string(key)
	if !cache {
		groupKey = "uncached:" + groupKey
	}
	ch := l.group.DoChan(groupKey, func() (any, error) {
		env, err := l.Builder.Build(buildCtx, ref)
		if err != nil {
			return nil, err
		}
		if err := buildCtx.Err(); err != nil {
			return nil, err
		}
		return env, nil
	})

	select {
	case <-buildCtx.Done():
		return snapshot.Snapshot{}, fmt.Errorf("%w: %w", ErrBuildFailed, buildCtx.Err())
	case res := <-ch:
		if res.Err != nil {
			return snapshot.Snapshot{}, fmt.Errorf("%w: %w", ErrBuildFailed, res.Err)
		}
		env := res.Val.(snapshot.Snapshot)
		// 캐시는 성공을 반환하는 호출자만 쓴다. 공유된 빌드면 같은 내용을 다시 쓸 수 있다.
		if cache {
			l.store(key, env, inputs)
		}
		return env, nil
	}
}

func (l *Loader) store(key flakekey.Key, env snapshot.Snapshot, inputs watch.Inputs) {
	var builder string
	if d, ok := l.Builder.(describer); ok {
		builder = d.Describe()
	}
	if err := l.Profiles.Store(key, env, inputs, builder); err != nil {
		l.logger().Warn("프로필 캐시 저장 실패", zap.String("key", key.Short()), zap.Error(err))
	}
}

// composition은 새 환경을 셸에 적용할 형태로 만든 결과다.
type composition struct {
	// owned는 이 세션이 export하여 소유하는 변수들이다. 세션 기록에 저장된다.
	owned snapshot.Snapshot
	// target은 전환 목표다. owned에 더해 더 이상 정의되지 않는 변수의 사용자 값 복원이 포함된다.
	target snapshot.Snapshot
	// restore는 owned 중 로드 이전 사용자 값이 있던 변수들의 그 값이다.
	restore snapshot.Snapshot
}

// compose는 env를 prev 위에 적용한다. 변수의 사용자 값은 prev가 소유한 변수면 prevRestore에서,
// 아니면 현재 프로세스 환경에서 가져온다.
func (l *Loader) compose(env, prev, prevRestore snapshot.Snapshot) composition {
	live := l.environ()
	userValue := func(name string) (string, bool) {
		if prev.Has(name) {
			return prevRestore.Get(name)
		}
		v, ok := live[name]
		return v, ok
	}

	owned := make(map[string]string, env.Len())
	restore := make(map[string]string)
	for _, name := range env.Keys() {
		value, _ := env.Get(name)
		if user, ok := userValue(name); ok {
			restore[name] = user
			if l.merges(name) {
				value = snapshot.MergeDelimited(PathSeparator, value, user)
			}
		}
		owned[name] = value
	}

	target := make(map[string]string, len(owned))
	for k, v := range owned {
		target[k] = v
	}
	for _, name := range prev.Keys() {
		if env.Has(name) {
			continue
		}
		if user, ok := prevRestore.Get(name); ok {
			target[name] = user
		}
	}

	return composition{
		owned:   snapshot.New(owned),
		target:  snapshot.New(target),
		restore: snapshot.New(restore),
	}
}

func (l *Loader) merges(name string) bool {
	for _, v := range l.MergeVars {
		if v == name {
			return true
		}
	}
	return false
}

func (l *Loader) environ() map[string]string {
	if l.Environ != nil {
		return l.Environ()
	}
	return OSEnviron()
}

func (l *Loader) logger() *zap.Logger {
	if l.Logger == nil {
		return zap.NewNop()
	}
	return l.Logger
}

// OSEnviron은 현재 프로세스 환경을 맵으로 반환한다.
func OSEnviron() map[string]string {
	env := make(map[string]string)
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			env[k] = v
		}
	}
	return env
}
