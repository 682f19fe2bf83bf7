package nix

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/hbjs97/flakenv/internal/cmdexec"
	"github.com/hbjs97/flakenv/internal/flakekey"
	"github.com/hbjs97/flakenv/internal/snapshot"
	"go.uber.org/zap"
	"lukechampine.com/blake3"
)

// Builder는 nix print-dev-env로 flake의 개발 환경을 계산한다.
type Builder struct {
	Commander cmdexec.Commander
	// Args는 print-dev-env에 추가로 전달할 인자다.
	Args []string
	// GCRootDir가 비어 있지 않으면 빌드된 프로필과 flake 입력을 GC 루트로 고정한다.
	GCRootDir string
	Logger    *zap.Logger

	mu      sync.Mutex
	version string
}

// NewBuilder는 cmd를 쓰는 Builder를 생성한다.
func NewBuilder(cmd cmdexec.Commander) *Builder {
	return &Builder{Commander: cmd, Logger: zap.NewNop()}
}

func (b *Builder) logger() *zap.Logger {
	if b.Logger == nil {
		return zap.NewNop()
	}
	return b.Logger
}

// Build는 ref의 개발 환경에서 export되는 변수를 반환한다.
// 실패 시 nix의 stderr를 담은 에러를 반환한다.
func (b *Builder) Build(ctx context.Context, ref flakekey.Reference) (snapshot.Snapshot, error) {
	args := []string{"print-dev-env", "--json"}
	var tmpProfile string
	if b.GCRootDir != "" {
		if err := os.MkdirAll(b.GCRootDir, 0700); err != nil {
			return snapshot.Snapshot{}, fmt.Errorf("nix.Build: %w", err)
		}
		tmpProfile = filepath.Join(b.GCRootDir, fmt.Sprintf("tmp-profile-%s.%d", rootName(ref), os.Getpid()))
		args = append(args, "--profile", tmpProfile)
	}
	args = append(args, ref.Installable())
	args = append(args, b.Args...)

	b.logger().Debug("nix print-dev-env", zap.String("installable", ref.Installable()))
	out, err := b.Commander.Output(ctx, Binary, nixArgs(args...)...)
	if err != nil {
		if tmpProfile != "" {
			os.Remove(tmpProfile)
		}
		return snapshot.Snapshot{}, fmt.Errorf("nix.Build: %w", classify(err))
	}

	env, err := ParseDevEnv(out)
	if err != nil {
		return snapshot.Snapshot{}, fmt.Errorf("nix.Build: %w", err)
	}

	if tmpProfile != "" {
		b.pinProfile(ctx, ref, tmpProfile)
	}
	b.recordVersion(ctx)
	return env, nil
}

// Describe는 프로필을 만든 빌더의 식별 문자열이다. 버전을 모르면 "nix".
func (b *Builder) Describe() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.version == "" {
		return Binary
	}
	return b.version
}

func (b *Builder) recordVersion(ctx context.Context) {
	b.mu.Lock()
	known := b.version != ""
	b.mu.Unlock()
	if known {
		return
	}
	v, err := ToolVersion(ctx, b.Commander)
	if err != nil {
		return
	}
	b.mu.Lock()
	b.version = "nix " + v.String()
	b.mu.Unlock()
}

// ParseDevEnv는 `nix print-dev-env --json` 출력에서 export되는 문자열 변수만 골라낸다.
// 셸 전용 변수는 제외된다.
func ParseDevEnv(data []byte) (snapshot.Snapshot, error) {
	var doc struct {
		Variables map[string]struct {
			Type  string          `json:"type"`
			Value json.RawMessage `json:"value"`
		} `json:"variables"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return snapshot.Snapshot{}, fmt.Errorf("nix.ParseDevEnv: %w: %v", ErrUnexpectedOutput, err)
	}
	if doc.Variables == nil {
		return snapshot.Snapshot{}, fmt.Errorf("nix.ParseDevEnv: %w: variables 없음", ErrUnexpectedOutput)
	}

	vars := make(map[string]string, len(doc.Variables))
	for name, v := range doc.Variables {
		if v.Type != "exported" {
			continue
		}
		var value string
		if err := json.Unmarshal(v.Value, &value); err != nil {
			continue
		}
		vars[name] = value
	}
	return snapshot.New(vars).WithoutIgnored(), nil
}

// rootName은 ref별로 고정된 GC 루트 파일 이름의 일부다.
func rootName(ref flakekey.Reference) string {
	sum := blake3.Sum256([]byte(ref.Installable()))
	return hex.EncodeToString(sum[:8])
}

func sanitizeLinkName(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '/' || r == 0 {
			return '_'
		}
		return r
	}, s)
}
