// Package git은 flake가 git 작업 트리 안에 있을 때 nix가 실제로 보게 될 파일을 확인한다.
// nix는 git 저장소 안의 flake를 평가할 때 추적되지 않는 파일을 무시한다.
package git

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hbjs97/flakenv/internal/cmdexec"
)

// ErrNotRepository는 디렉토리가 git 작업 트리 밖에 있음을 나타낸다.
var ErrNotRepository = errors.New("git 저장소 아님")

// Adapter는 git CLI를 Commander를 통해 실행한다.
type Adapter struct {
	cmd cmdexec.Commander
}

// NewAdapter는 새 Git Adapter를 생성한다.
func NewAdapter(cmd cmdexec.Commander) *Adapter {
	return &Adapter{cmd: cmd}
}

// TopLevel은 dir이 속한 작업 트리의 최상위 경로를 반환한다.
// git이 없으면 cmdexec.IsNotFound로 판별되는 에러, 저장소 밖이면 ErrNotRepository.
func (a *Adapter) TopLevel(ctx context.Context, dir string) (string, error) {
	out, err := a.cmd.Output(ctx, "git", "-C", dir, "rev-parse", "--show-toplevel")
	if err != nil {
		if cmdexec.IsNotFound(err) {
			return "", fmt.Errorf("git.TopLevel: %w", err)
		}
		return "", fmt.Errorf("git.TopLevel: %w: %v", ErrNotRepository, err)
	}
	return strings.TrimSpace(string(out)), nil
}

// Untracked는 dir 기준 상대 경로 files 중 인덱스에 없는 파일을 입력 순서대로 반환한다.
func (a *Adapter) Untracked(ctx context.Context, dir string, files ...string) ([]string, error) {
	if len(files) == 0 {
		return nil, nil
	}
	args := append([]string{"-C", dir, "ls-files", "--cached", "--"}, files...)
	out, err := a.cmd.Output(ctx, "git", args...)
	if err != nil {
		return nil, fmt.Errorf("git.Untracked: %w", err)
	}

	tracked := make(map[string]bool)
	for _, line := range strings.Split(string(out), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			tracked[line] = true
		}
	}
	var missing []string
	for _, f := range files {
		if !tracked[f] {
			missing = append(missing, f)
		}
	}
	return missing, nil
}
