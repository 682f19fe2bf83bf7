package setup

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/huh"
	"github.com/hbjs97/flakenv/internal/config"
	"github.com/hbjs97/flakenv/internal/shell"
)

// HuhFormRunner는 charmbracelet/huh 기반의 FormRunner 구현이다.
type HuhFormRunner struct{}

var _ FormRunner = (*HuhFormRunner)(nil)

// RunSetupForm은 셸, 캐시 백엔드, 빌드 제한 시간을 묻는다.
func (h *HuhFormRunner) RunSetupForm(defaults Answers) (Answers, error) {
	answers := defaults
	timeout := strconv.Itoa(defaults.BuildTimeoutSeconds)

	shellOptions := make([]huh.Option[string], 0, len(shell.Supported))
	for _, name := range shell.Names() {
		shellOptions = append(shellOptions, huh.NewOption(name, name))
	}

	timeoutValidate := func(s string) error {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			return fmt.Errorf("양의 정수(초)를 입력하세요")
		}
		return nil
	}

	form := huh.NewForm(huh.NewGroup(
		huh.NewSelect[string]().
			Title("사용하는 셸").
			Options(shellOptions...).
			Value(&answers.Shell),
		huh.NewSelect[string]().
			Title("프로필 캐시 저장 방식").
			Options(
				huh.NewOption("파일 (키마다 JSON 파일)", config.BackendFile),
				huh.NewOption("SQLite (단일 DB 파일)", config.BackendSQLite),
			).
			Value(&answers.CacheBackend),
		huh.NewInput().
			Title("빌드 제한 시간(초)").
			Description("nix print-dev-env가 이 시간 안에 끝나지 않으면 빌드를 중단합니다").
			Value(&timeout).
			Validate(timeoutValidate),
		huh.NewConfirm().
			Title("셸 rc 파일에 hook을 설치할까요?").
			Value(&answers.InstallHook),
	))
	if err := form.Run(); err != nil {
		return Answers{}, fmt.Errorf("setup.RunSetupForm: %w", err)
	}

	n, err := strconv.Atoi(timeout)
	if err != nil {
		return Answers{}, fmt.Errorf("setup.RunSetupForm: %w", err)
	}
	answers.BuildTimeoutSeconds = n
	return answers, nil
}

// RunConfirm은 확인 프롬프트를 표시한다.
func (h *HuhFormRunner) RunConfirm(message string) (bool, error) {
	var confirm bool
	form := huh.NewForm(huh.NewGroup(
		huh.NewConfirm().Title(message).Value(&confirm),
	))
	if err := form.Run(); err != nil {
		return false, fmt.Errorf("setup.RunConfirm: %w", err)
	}
	return confirm, nil
}
