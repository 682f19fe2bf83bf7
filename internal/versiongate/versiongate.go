// Package versiongate는 캐시된 프로필의 저장 형식이 현재 실행 중인 도구와
// 호환되는지 판정한다. 도구 릴리스 버전이 아니라 명시적 형식 버전과 호환표로 판단한다.
package versiongate

import (
	"errors"
	"fmt"
)

// FormatVersion은 현재 프로필 캐시 항목의 형식 버전이다. 형식이 바뀔 때만 올린다.
const FormatVersion = 2

// ErrIncompatibleCacheFormat은 게이트가 기록된 형식을 거부했음을 나타낸다.
// 사용자에게 반환되지 않고 Stale 사유로만 쓰인다.
var ErrIncompatibleCacheFormat = errors.New("incompatible cache format")

// Gate는 실행 중인 형식 버전과, 각 실행 형식이 읽을 수 있는 기록 형식의 표다.
type Gate struct {
	Running    int
	Compatible map[int][]int
}

// Default는 현재 빌드의 게이트다.
// 형식 1은 입력 해시가 없어 신선도 검사를 할 수 없으므로 읽지 않는다.
func Default() Gate {
	return Gate{
		Running: FormatVersion,
		Compatible: map[int][]int{
			2: {2},
		},
	}
}

// IsCompatible은 recorded 형식의 항목을 running 형식의 도구가 그대로 제공해도 되는지 반환한다.
// 표에 없는 조합은 모두 호환되지 않는다.
func (g Gate) IsCompatible(recorded, running int) bool {
	for _, v := range g.Compatible[running] {
		if v == recorded {
			return true
		}
	}
	return false
}

// Check는 recorded를 게이트의 실행 형식과 비교하고, 거부 시 사유 에러를 반환한다.
func (g Gate) Check(recorded int) error {
	if g.IsCompatible(recorded, g.Running) {
		return nil
	}
	return fmt.Errorf("%w: 기록=%d, 실행=%d", ErrIncompatibleCacheFormat, recorded, g.Running)
}

// IsCompatible은 Default 게이트로 판정한다.
func IsCompatible(recorded, running int) bool {
	return Default().IsCompatible(recorded, running)
}
