package setup

// Answers는 setup 폼에서 사용자가 고른 값이다.
type Answers struct {
	Shell               string
	CacheBackend        string
	BuildTimeoutSeconds int
	// InstallHook이 true면 셸 rc 파일에 hook을 설치한다.
	InstallHook bool
}

// FormRunner는 TUI 폼 실행을 추상화하는 interface다.
// 프로덕션에서는 huh 기반 구현, 테스트에서는 mock을 사용한다.
type FormRunner interface {
	// RunSetupForm은 설정 입력 폼을 실행한다. defaults는 기존 설정 또는 기본값이다.
	RunSetupForm(defaults Answers) (Answers, error)

	// RunConfirm은 확인 프롬프트를 표시한다.
	RunConfirm(message string) (bool, error)
}
