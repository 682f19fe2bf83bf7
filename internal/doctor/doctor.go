// Package doctor는 flakenv가 동작하는 데 필요한 환경을 진단한다.
package doctor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hbjs97/flakenv/internal/cmdexec"
	"github.com/hbjs97/flakenv/internal/config"
	"github.com/hbjs97/flakenv/internal/flakekey"
	"github.com/hbjs97/flakenv/internal/git"
	"github.com/hbjs97/flakenv/internal/nix"
)

// Status는 진단 결과 상태다.
type Status string

const (
	// StatusOK는 정상 상태다.
	StatusOK Status = "OK"
	// StatusWarn는 경고 상태다.
	StatusWarn Status = "WARN"
	// StatusFail는 실패 상태다.
	StatusFail Status = "FAIL"
)

// DiagResult는 하나의 진단 결과다.
type DiagResult struct {
	Name    string
	Status  Status
	Message string
	Fix     string
}

// CheckNix는 nix가 설치되어 있고 최소 버전 이상인지 확인한다.
func CheckNix(ctx context.Context, cmd cmdexec.Commander) DiagResult {
	v, err := nix.CheckVersion(ctx, cmd)
	switch {
	case err == nil:
		return DiagResult{Name: "nix", Status: StatusOK, Message: "nix " + v.String()}
	case errors.Is(err, nix.ErrNixTooOld):
		return DiagResult{
			Name:    "nix",
			Status:  StatusFail,
			Message: fmt.Sprintf("nix %s (최소 %s 필요)", v, nix.RequiredVersion),
			Fix:     "nix 업그레이드: nix upgrade-nix",
		}
	default:
		return DiagResult{
			Name:    "nix",
			Status:  StatusFail,
			Message: "nix 없음",
			Fix:     "설치: https://nixos.org/download",
		}
	}
}

// CheckDir는 dir을 만들고 쓸 수 있는지 확인한다.
func CheckDir(name, dir string) DiagResult {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return DiagResult{
			Name:    name,
			Status:  StatusFail,
			Message: fmt.Sprintf("%s 생성 실패: %v", dir, err),
			Fix:     fmt.Sprintf("%s 경로의 권한을 확인하세요", dir),
		}
	}
	f, err := os.CreateTemp(dir, ".doctor-*")
	if err != nil {
		return DiagResult{
			Name:    name,
			Status:  StatusFail,
			Message: fmt.Sprintf("%s 쓰기 불가: %v", dir, err),
			Fix:     fmt.Sprintf("chmod u+w %s", dir),
		}
	}
	f.Close()
	os.Remove(f.Name())
	return DiagResult{Name: name, Status: StatusOK, Message: dir}
}

// CheckConfig는 설정 파일을 확인한다. 파일이 없으면 기본값을 쓰므로 경고다.
func CheckConfig(path string) DiagResult {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return DiagResult{
			Name:    "config",
			Status:  StatusWarn,
			Message: fmt.Sprintf("%s 없음, 기본값 사용", path),
			Fix:     "flakenv setup 실행",
		}
	}
	if _, err := config.Load(path); err != nil {
		return DiagResult{
			Name:    "config",
			Status:  StatusFail,
			Message: err.Error(),
			Fix:     fmt.Sprintf("%s 수정", path),
		}
	}
	if err := config.ValidateFilePermissions(path); err != nil {
		return DiagResult{
			Name:    "config",
			Status:  StatusWarn,
			Message: err.Error(),
			Fix:     fmt.Sprintf("chmod 600 %s", path),
		}
	}
	return DiagResult{Name: "config", Status: StatusOK, Message: path}
}

// CheckFlake는 dir에서 flake를 찾고 lock 파일로 키를 계산할 수 있는지 확인한다.
func CheckFlake(dir string) DiagResult {
	root, ok := flakekey.Discover(dir)
	if !ok {
		return DiagResult{
			Name:    "flake",
			Status:  StatusWarn,
			Message: "현재 디렉토리에 flake.nix 없음",
		}
	}
	lock, err := flakekey.ReadLock(root)
	if err != nil {
		return DiagResult{Name: "flake", Status: StatusFail, Message: err.Error()}
	}
	if lock == nil {
		return DiagResult{
			Name:    "flake",
			Status:  StatusWarn,
			Message: fmt.Sprintf("%s에 flake.lock 없음", root),
			Fix:     "nix flake lock 실행",
		}
	}
	key, err := flakekey.Derive(flakekey.LocalReference(root), lock)
	if err != nil {
		return DiagResult{
			Name:    "flake",
			Status:  StatusFail,
			Message: err.Error(),
			Fix:     fmt.Sprintf("nix flake lock %s 로 lock 파일 재생성", root),
		}
	}
	return DiagResult{
		Name:    "flake",
		Status:  StatusOK,
		Message: fmt.Sprintf("%s (%s)", filepath.Base(root), key.Short()),
	}
}

// CheckGitTracked는 flake가 git 작업 트리 안에 있을 때 flake.nix와 flake.lock이 추적되는지 확인한다.
// 추적되지 않는 파일은 nix 평가에서 보이지 않는다.
func CheckGitTracked(ctx context.Context, cmd cmdexec.Commander, workDir string) DiagResult {
	root, ok := flakekey.Discover(workDir)
	if !ok {
		return DiagResult{Name: "git", Status: StatusOK, Message: "flake 없음, 건너뜀"}
	}

	g := git.NewAdapter(cmd)
	if _, err := g.TopLevel(ctx, root); err != nil {
		if errors.Is(err, git.ErrNotRepository) {
			return DiagResult{Name: "git", Status: StatusOK, Message: "git 저장소 밖의 flake"}
		}
		return DiagResult{Name: "git", Status: StatusWarn, Message: fmt.Sprintf("git 확인 실패: %v", err)}
	}

	files := []string{"flake.nix"}
	if _, err := os.Stat(filepath.Join(root, flakekey.LockFileName)); err == nil {
		files = append(files, flakekey.LockFileName)
	}
	untracked, err := g.Untracked(ctx, root, files...)
	if err != nil {
		return DiagResult{Name: "git", Status: StatusWarn, Message: fmt.Sprintf("git 확인 실패: %v", err)}
	}
	if len(untracked) > 0 {
		return DiagResult{
			Name:    "git",
			Status:  StatusWarn,
			Message: "git이 추적하지 않아 nix가 보지 못하는 파일: " + strings.Join(untracked, ", "),
			Fix:     fmt.Sprintf("git -C %s add --intent-to-add %s", root, strings.Join(untracked, " ")),
		}
	}
	return DiagResult{Name: "git", Status: StatusOK, Message: strings.Join(files, ", ") + " 추적됨"}
}

// RunAll은 모든 진단을 실행한다.
func RunAll(ctx context.Context, cmd cmdexec.Commander, cfgPath string, cfg *config.Config, workDir string) []DiagResult {
	return []DiagResult{
		CheckNix(ctx, cmd),
		CheckConfig(cfgPath),
		CheckDir("cache_dir", cfg.CacheDir),
		CheckDir("state_dir", cfg.StateDir),
		CheckFlake(workDir),
		CheckGitTracked(ctx, cmd, workDir),
	}
}
