package nix

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hbjs97/flakenv/internal/flakekey"
	"go.uber.org/zap"
)

// InputsDir는 GCRootDir 아래에서 flake 입력 루트가 놓이는 하위 디렉토리다.
const InputsDir = "inputs"

// ProfileLink는 ref의 프로필 GC 루트 경로다.
func ProfileLink(gcRootDir string, ref flakekey.Reference) string {
	return filepath.Join(gcRootDir, "flake-profile-"+rootName(ref))
}

// pinProfile은 임시 프로필을 고정 루트로 옮기고 flake 입력들도 루트로 고정한다.
// 실패는 경고로만 남긴다. 루트가 없어도 환경은 정상적으로 쓸 수 있다.
func (b *Builder) pinProfile(ctx context.Context, ref flakekey.Reference, tmpProfile string) {
	log := b.logger()
	defer os.Remove(tmpProfile)

	if err := b.addRoot(ctx, tmpProfile, ProfileLink(b.GCRootDir, ref)); err != nil {
		log.Warn("프로필 GC 루트 생성 실패", zap.Error(err))
		return
	}

	paths, err := b.inputPaths(ctx, ref)
	if err != nil {
		log.Warn("flake 입력 목록을 얻지 못해 입력 GC 루트를 건너뜁니다", zap.Error(err))
		return
	}
	inputsDir := filepath.Join(b.GCRootDir, InputsDir)
	if err := os.MkdirAll(inputsDir, 0700); err != nil {
		log.Warn("입력 GC 루트 디렉토리 생성 실패", zap.Error(err))
		return
	}
	for _, p := range paths {
		link := filepath.Join(inputsDir, sanitizeLinkName(filepath.Base(p)))
		if err := b.addRoot(ctx, p, link); err != nil {
			log.Warn("입력 GC 루트 생성 실패", zap.String("path", p), zap.Error(err))
		}
	}
}

func (b *Builder) addRoot(ctx context.Context, storePath, link string) error {
	out, err := b.Commander.Run(ctx, Binary, nixArgs("build", "--out-link", link, storePath)...)
	if err != nil {
		if msg := strings.TrimSpace(string(out)); msg != "" {
			return fmt.Errorf("nix.addRoot: %w: %s", classify(err), msg)
		}
		return fmt.Errorf("nix.addRoot: %w", classify(err))
	}
	return nil
}

func (b *Builder) inputPaths(ctx context.Context, ref flakekey.Reference) ([]string, error) {
	out, err := b.Commander.Output(ctx, Binary,
		nixArgs("flake", "archive", "--json", "--no-write-lock-file", flakeRef(ref))...)
	if err != nil {
		return nil, fmt.Errorf("nix.inputPaths: %w", classify(err))
	}
	return InputPaths(out)
}

// InputPaths는 `nix flake archive --json` 문서에서 flake와 모든 하위 입력의 store 경로를 추출한다.
// 결과는 정렬되고 중복이 제거된다.
func InputPaths(doc []byte) ([]string, error) {
	var root archiveNode
	if err := json.Unmarshal(doc, &root); err != nil {
		return nil, fmt.Errorf("nix.InputPaths: %w: %v", ErrUnexpectedOutput, err)
	}
	seen := make(map[string]bool)
	root.collect(seen)

	paths := make([]string, 0, len(seen))
	for p := range seen {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths, nil
}

type archiveNode struct {
	Path   string                 `json:"path"`
	Inputs map[string]archiveNode `json:"inputs"`
}

func (n archiveNode) collect(seen map[string]bool) {
	if n.Path != "" {
		seen[n.Path] = true
	}
	for _, in := range n.Inputs {
		in.collect(seen)
	}
}
