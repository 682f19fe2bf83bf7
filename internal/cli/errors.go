package cli

import (
	"errors"

	"github.com/hbjs97/flakenv/internal/config"
	"github.com/hbjs97/flakenv/internal/flakekey"
	"github.com/hbjs97/flakenv/internal/loader"
	"github.com/hbjs97/flakenv/internal/nix"
	"github.com/hbjs97/flakenv/internal/shell"
)

// 각 도메인 패키지의 sentinel error를 CLI 레이어에서 편의상 re-export한다.
var (
	// ErrBuildFailed는 개발 환경 빌드가 실패하거나 시간 초과된 경우의 sentinel error다.
	ErrBuildFailed = loader.ErrBuildFailed
	// ErrConfig는 설정 파일 오류를 나타내는 sentinel error다.
	ErrConfig = config.ErrConfig
	// ErrNixNotFound는 nix 실행 파일이 PATH에 없을 때의 sentinel error다.
	ErrNixNotFound = nix.ErrNixNotFound
	// ErrNixTooOld는 설치된 nix가 최소 버전보다 낮을 때의 sentinel error다.
	ErrNixTooOld = nix.ErrNixTooOld
	// ErrMalformedLockfile는 flake.lock을 해석할 수 없을 때의 sentinel error다.
	ErrMalformedLockfile = flakekey.ErrMalformedLockfile
	// ErrUnsupportedShell는 지원하지 않는 셸이 지정된 경우의 sentinel error다.
	ErrUnsupportedShell = shell.ErrUnsupportedShell
)

// ErrNoFlake는 작업 디렉토리에서 flake를 찾지 못했을 때의 sentinel error다.
var ErrNoFlake = errors.New("flake.nix를 찾을 수 없습니다")
