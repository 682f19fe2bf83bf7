package setup

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/hbjs97/flakenv/internal/cmdexec"
	"github.com/hbjs97/flakenv/internal/config"
	"github.com/hbjs97/flakenv/internal/doctor"
	"github.com/hbjs97/flakenv/internal/shell"
)

// Runner는 interactive setup의 진입점이다.
type Runner struct {
	CfgPath    string
	Commander  cmdexec.Commander
	FormRunner FormRunner
	Out        io.Writer
	HomeDir    string // 테스트용. 비어있으면 사용자 홈.
	WorkDir    string // doctor의 flake 검사 기준. 비어있으면 현재 디렉토리.
}

// Run은 setup 플로우를 실행한다. 기존 설정이 있으면 그 값을 기본값으로 보여준다.
func (r *Runner) Run(ctx context.Context) error {
	cfg, err := config.Load(r.CfgPath)
	if err != nil {
		return err
	}
	if _, statErr := os.Stat(r.CfgPath); statErr == nil {
		fmt.Fprintf(r.out(), "기존 설정을 수정합니다: %s\n", r.CfgPath)
	} else {
		fmt.Fprintln(r.out(), "flakenv 초기 설정을 시작합니다.")
	}

	defaults := Answers{
		Shell:               cfg.Shell,
		CacheBackend:        cfg.CacheBackend,
		BuildTimeoutSeconds: cfg.BuildTimeoutSeconds,
		InstallHook:         true,
	}
	if detected := DetectShell(); isSupported(detected) {
		defaults.Shell = detected
	}

	answers, err := r.FormRunner.RunSetupForm(defaults)
	if err != nil {
		return err
	}
	if !isSupported(answers.Shell) {
		return fmt.Errorf("setup.Run: %w: shell %q", config.ErrConfig, answers.Shell)
	}
	if answers.CacheBackend != cfg.CacheBackend {
		ok, err := r.FormRunner.RunConfirm("캐시 백엔드를 바꾸면 기존 캐시는 다시 빌드됩니다. 계속할까요?")
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(r.out(), "설정이 취소되었습니다.")
			return nil
		}
	}

	cfg.Shell = answers.Shell
	cfg.CacheBackend = answers.CacheBackend
	cfg.BuildTimeoutSeconds = answers.BuildTimeoutSeconds
	if err := config.Save(r.CfgPath, cfg); err != nil {
		return err
	}
	fmt.Fprintf(r.out(), "설정 파일이 저장되었습니다: %s\n", r.CfgPath)

	if answers.InstallHook {
		r.installHook(answers.Shell)
	}

	r.runDoctor(ctx, cfg)
	return nil
}

func (r *Runner) installHook(shellType string) {
	rcPath := ShellRCPath(shellType, r.homeDir())
	installed, err := InstallShellHook(shellType, rcPath)
	switch {
	case err != nil:
		fmt.Fprintf(r.out(), "경고: 셸 hook 설치 실패: %v\n", err)
	case installed:
		fmt.Fprintf(r.out(), "셸 hook이 설치되었습니다: %s\n", rcPath)
	default:
		fmt.Fprintf(r.out(), "셸 hook이 이미 설치되어 있습니다: %s\n", rcPath)
	}
}

// runDoctor는 설정 완료 후 환경 진단을 실행한다.
func (r *Runner) runDoctor(ctx context.Context, cfg *config.Config) {
	fmt.Fprintln(r.out(), "\n환경 진단 실행 중...")
	workDir := r.WorkDir
	if workDir == "" {
		workDir = "."
	}
	for _, res := range doctor.RunAll(ctx, r.Commander, r.CfgPath, cfg, workDir) {
		icon := "✓"
		if res.Status == doctor.StatusFail {
			icon = "✗"
		} else if res.Status == doctor.StatusWarn {
			icon = "!"
		}
		fmt.Fprintf(r.out(), "  [%s] %s: %s\n", icon, res.Name, res.Message)
		if res.Fix != "" {
			fmt.Fprintf(r.out(), "      Fix: %s\n", res.Fix)
		}
	}
}

func (r *Runner) out() io.Writer {
	if r.Out == nil {
		return os.Stdout
	}
	return r.Out
}

func (r *Runner) homeDir() string {
	if r.HomeDir != "" {
		return r.HomeDir
	}
	home, _ := os.UserHomeDir()
	return home
}

func isSupported(name string) bool {
	for _, s := range shell.Supported {
		if s == name {
			return true
		}
	}
	return false
}
