package nix

import (
	"context"
	"fmt"
	"regexp"
	"strconv"

	"github.com/hbjs97/flakenv/internal/cmdexec"
)

// Version은 major.minor.patch 버전이다.
type Version struct {
	Major, Minor, Patch int
}

// RequiredVersion은 print-dev-env --json과 flake archive --json을 지원하는 최소 버전이다.
var RequiredVersion = Version{Major: 2, Minor: 10, Patch: 0}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// Compare는 v가 o보다 작으면 -1, 같으면 0, 크면 1을 반환한다.
func (v Version) Compare(o Version) int {
	for _, d := range [...]int{v.Major - o.Major, v.Minor - o.Minor, v.Patch - o.Patch} {
		switch {
		case d < 0:
			return -1
		case d > 0:
			return 1
		}
	}
	return 0
}

var versionPattern = regexp.MustCompile(`([0-9]+)\.([0-9]+)(?:\.([0-9]+))?`)

// ParseVersion은 "nix (Nix) 2.24.9" 같은 텍스트에서 첫 번째 버전을 추출한다.
// patch가 없으면 0으로 본다.
func ParseVersion(text string) (Version, error) {
	m := versionPattern.FindStringSubmatch(text)
	if m == nil {
		return Version{}, fmt.Errorf("nix.ParseVersion: 버전을 찾을 수 없음: %q", text)
	}
	var v Version
	var err error
	if v.Major, err = strconv.Atoi(m[1]); err != nil {
		return Version{}, fmt.Errorf("nix.ParseVersion: %w", err)
	}
	if v.Minor, err = strconv.Atoi(m[2]); err != nil {
		return Version{}, fmt.Errorf("nix.ParseVersion: %w", err)
	}
	if m[3] != "" {
		if v.Patch, err = strconv.Atoi(m[3]); err != nil {
			return Version{}, fmt.Errorf("nix.ParseVersion: %w", err)
		}
	}
	return v, nil
}

// ToolVersion은 설치된 nix의 버전을 조회한다.
func ToolVersion(ctx context.Context, cmd cmdexec.Commander) (Version, error) {
	out, err := cmd.Output(ctx, Binary, "--version")
	if err != nil {
		return Version{}, fmt.Errorf("nix.ToolVersion: %w", classify(err))
	}
	v, err := ParseVersion(string(out))
	if err != nil {
		return Version{}, fmt.Errorf("nix.ToolVersion: %w", err)
	}
	return v, nil
}

// CheckVersion은 nix가 설치되어 있고 RequiredVersion 이상인지 확인한다.
func CheckVersion(ctx context.Context, cmd cmdexec.Commander) (Version, error) {
	v, err := ToolVersion(ctx, cmd)
	if err != nil {
		return Version{}, err
	}
	if v.Compare(RequiredVersion) < 0 {
		return v, fmt.Errorf("nix.CheckVersion: %w: %s < %s", ErrNixTooOld, v, RequiredVersion)
	}
	return v, nil
}
