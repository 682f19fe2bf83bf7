package cli

import (
	"errors"
)

// ExitCode는 flakenv의 종료 코드다.
type ExitCode int

const (
	// ExitSuccess는 정상 종료다.
	ExitSuccess ExitCode = 0
	// ExitGeneral는 일반 에러다.
	ExitGeneral ExitCode = 1
	// ExitBuildFailed는 환경 빌드 실패다. 셸 구문은 출력되지 않는다.
	ExitBuildFailed ExitCode = 2
	// ExitConfigError는 설정 파일 오류다.
	ExitConfigError ExitCode = 3
	// ExitMissingDependency는 nix가 없거나 너무 오래된 경우다.
	ExitMissingDependency ExitCode = 4
)

// MapExitCode는 sentinel error를 기반으로 적절한 종료 코드를 반환한다.
// 빌드 실패의 원인이 nix 부재라면 ExitMissingDependency가 우선한다.
func MapExitCode(err error) ExitCode {
	if err == nil {
		return ExitSuccess
	}
	switch {
	case errors.Is(err, ErrNixNotFound), errors.Is(err, ErrNixTooOld):
		return ExitMissingDependency
	case errors.Is(err, ErrBuildFailed):
		return ExitBuildFailed
	case errors.Is(err, ErrConfig), errors.Is(err, ErrUnsupportedShell):
		return ExitConfigError
	default:
		return ExitGeneral
	}
}
