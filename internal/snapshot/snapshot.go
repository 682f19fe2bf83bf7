// Package snapshot은 한 시점에 적용된 환경변수 집합(EnvironmentSnapshot)을 다룬다.
package snapshot

import (
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"

	"lukechampine.com/blake3"
)

// Snapshot은 변수 이름에서 값으로의 불변 매핑이다.
// 생성 시 입력 맵을 복사하며, 이후 어떤 메서드도 내용을 바꾸지 않는다.
type Snapshot struct {
	vars map[string]string
	fp   string
}

// New는 vars를 복사하여 Snapshot을 생성한다.
func New(vars map[string]string) Snapshot {
	copied := make(map[string]string, len(vars))
	for k, v := range vars {
		copied[k] = v
	}
	return Snapshot{vars: copied, fp: fingerprint(copied)}
}

// Empty는 변수가 하나도 없는 Snapshot을 반환한다.
func Empty() Snapshot {
	return New(nil)
}

// Get은 name의 값을 반환한다.
func (s Snapshot) Get(name string) (string, bool) {
	v, ok := s.vars[name]
	return v, ok
}

// Has는 name이 포함되어 있는지 반환한다.
func (s Snapshot) Has(name string) bool {
	_, ok := s.vars[name]
	return ok
}

// Len은 변수 개수다.
func (s Snapshot) Len() int {
	return len(s.vars)
}

// Keys는 정렬된 변수 이름 목록이다.
func (s Snapshot) Keys() []string {
	keys := make([]string, 0, len(s.vars))
	for k := range s.vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Map은 내용의 복사본을 반환한다.
func (s Snapshot) Map() map[string]string {
	out := make(map[string]string, len(s.vars))
	for k, v := range s.vars {
		out[k] = v
	}
	return out
}

// Fingerprint는 내용에 대한 BLAKE3 해시(hex)다. 같은 내용이면 항상 같은 값이다.
func (s Snapshot) Fingerprint() string {
	if s.fp == "" {
		return fingerprint(s.vars)
	}
	return s.fp
}

// Equal은 두 Snapshot의 내용이 같은지 fingerprint로 비교한다.
func (s Snapshot) Equal(other Snapshot) bool {
	return s.Fingerprint() == other.Fingerprint()
}

// With는 overrides를 덮어쓴 새 Snapshot을 반환한다.
func (s Snapshot) With(overrides map[string]string) Snapshot {
	merged := s.Map()
	for k, v := range overrides {
		merged[k] = v
	}
	return New(merged)
}

// MarshalJSON은 {"NAME":"value"} 형태의 평평한 객체로 직렬화한다.
func (s Snapshot) MarshalJSON() ([]byte, error) {
	if s.vars == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(s.vars)
}

// UnmarshalJSON은 평평한 문자열 객체만 허용한다.
func (s *Snapshot) UnmarshalJSON(data []byte) error {
	var vars map[string]string
	if err := json.Unmarshal(data, &vars); err != nil {
		return fmt.Errorf("snapshot.UnmarshalJSON: %w", err)
	}
	*s = New(vars)
	return nil
}

func fingerprint(vars map[string]string) string {
	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	h := blake3.New(32, nil)
	var lenBuf [8]byte
	writeField := func(s string) {
		binary.BigEndian.PutUint64(lenBuf[:], uint64(len(s)))
		h.Write(lenBuf[:])
		h.Write([]byte(s))
	}
	for _, k := range keys {
		writeField(k)
		writeField(vars[k])
	}
	return hex.EncodeToString(h.Sum(nil))
}
