// Package transition은 두 Snapshot 사이의 export/unset 연산 순서를 계산한다.
package transition

import (
	"sort"

	"github.com/hbjs97/flakenv/internal/snapshot"
)

// Kind는 연산 종류다.
type Kind int

const (
	// KindUnset은 변수를 제거한다.
	KindUnset Kind = iota
	// KindExport는 변수를 설정한다.
	KindExport
)

func (k Kind) String() string {
	switch k {
	case KindExport:
		return "export"
	case KindUnset:
		return "unset"
	default:
		return "unknown"
	}
}

// Op는 하나의 전이 연산이다. Unset일 때 Value는 비어 있다.
type Op struct {
	Kind  Kind
	Name  string
	Value string
}

// Export는 export 연산을 생성한다.
func Export(name, value string) Op {
	return Op{Kind: KindExport, Name: name, Value: value}
}

// Unset은 unset 연산을 생성한다.
func Unset(name string) Op {
	return Op{Kind: KindUnset, Name: name}
}

// Diff는 previous에서 target으로 가기 위한 연산 목록을 계산한다.
// nil은 "관리 중인 환경 없음"이다. Unset이 모두 Export보다 먼저 오고,
// 각 그룹은 이름순이다. previous에 기록된 변수만 unset 대상이 된다.
func Diff(previous, target *snapshot.Snapshot) []Op {
	if previous != nil && target != nil && previous.Equal(*target) {
		return nil
	}
	if previous == nil && target == nil {
		return nil
	}

	var prev, next snapshot.Snapshot
	if previous != nil {
		prev = *previous
	}
	if target != nil {
		next = *target
	}

	var unsets, exports []Op
	for _, name := range prev.Keys() {
		if !next.Has(name) {
			unsets = append(unsets, Unset(name))
		}
	}
	for _, name := range next.Keys() {
		value, _ := next.Get(name)
		if old, ok := prev.Get(name); ok && old == value {
			continue
		}
		exports = append(exports, Export(name, value))
	}

	if len(unsets)+len(exports) == 0 {
		return nil
	}
	return append(unsets, exports...)
}

// Apply는 env에 ops를 순서대로 적용한 새 맵을 반환한다. env는 변경하지 않는다.
func Apply(env map[string]string, ops []Op) map[string]string {
	out := make(map[string]string, len(env))
	for k, v := range env {
		out[k] = v
	}
	for _, op := range ops {
		switch op.Kind {
		case KindExport:
			out[op.Name] = op.Value
		case KindUnset:
			delete(out, op.Name)
		}
	}
	return out
}

// Names는 ops가 건드리는 변수 이름을 정렬하여 반환한다.
func Names(ops []Op) []string {
	seen := make(map[string]bool, len(ops))
	names := make([]string, 0, len(ops))
	for _, op := range ops {
		if !seen[op.Name] {
			seen[op.Name] = true
			names = append(names, op.Name)
		}
	}
	sort.Strings(names)
	return names
}
