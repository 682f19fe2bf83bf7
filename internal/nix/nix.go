// Package nix는 nix CLI를 Commander를 통해 실행하여 flake의 개발 환경을 빌드한다.
package nix

import (
	"errors"
	"strings"

	"github.com/hbjs97/flakenv/internal/cmdexec"
	"github.com/hbjs97/flakenv/internal/flakekey"
)

var (
	// ErrNixNotFound는 nix 실행 파일을 찾을 수 없음을 나타낸다.
	ErrNixNotFound = errors.New("nix 실행 파일을 찾을 수 없습니다")
	// ErrNixTooOld는 설치된 nix가 RequiredVersion보다 오래되었음을 나타낸다.
	ErrNixTooOld = errors.New("nix 버전이 너무 낮습니다")
	// ErrUnexpectedOutput은 nix 출력 형식을 해석할 수 없음을 나타낸다.
	ErrUnexpectedOutput = errors.New("예상하지 못한 nix 출력")
)

// Binary는 실행할 nix 명령 이름이다.
const Binary = "nix"

// 사용자 nix.conf 설정과 무관하게 flake 명령을 쓸 수 있도록 모든 호출에 붙인다.
var experimental = []string{"--extra-experimental-features", "nix-command flakes"}

func nixArgs(args ...string) []string {
	out := make([]string, 0, len(experimental)+len(args))
	out = append(out, experimental...)
	return append(out, args...)
}

// flakeRef는 installable에서 출력 속성(#attr)을 뗀 flake 참조다.
func flakeRef(ref flakekey.Reference) string {
	s := ref.Installable()
	if i := strings.Index(s, "#"); i >= 0 {
		s = s[:i]
	}
	return s
}

func classify(err error) error {
	if cmdexec.IsNotFound(err) {
		return ErrNixNotFound
	}
	return err
}
