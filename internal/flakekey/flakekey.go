// Package flakekey는 flake 참조와 lock 파일 내용으로부터 결정적인 캐시 키를 유도한다.
package flakekey

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"

	"lukechampine.com/blake3"
)

// ErrMalformedLockfile은 lock 내용에서 안정적인 입력 식별자를 얻을 수 없을 때 반환된다.
// 호출자는 이를 강제 캐시 미스로 취급해야 한다.
var ErrMalformedLockfile = errors.New("malformed flake.lock")

// LockFileName은 flake lock 파일 이름이다.
const LockFileName = "flake.lock"

// Key는 FlakeKey다. 64자리 소문자 hex.
type Key string

var keyPattern = regexp.MustCompile(`^[0-9a-f]{64}$`)

// Valid는 키 형식이 올바른지 반환한다.
func (k Key) Valid() bool {
	return keyPattern.MatchString(string(k))
}

// Short는 출력용 축약 키다.
func (k Key) Short() string {
	if len(k) < 12 {
		return string(k)
	}
	return string(k[:12])
}

// Derive는 ref와 lock 내용으로 키를 계산한다. 순수 함수다.
// lock이 nil이면 lock 파일이 없는 flake로 보고 참조만으로 키를 만든다.
// 전체 lock을 정규화(키 정렬, 공백 제거)하여 해시하므로 입력이 하나라도 바뀌면 키가 바뀐다.
func Derive(ref Reference, lock []byte) (Key, error) {
	h := blake3.New(32, nil)
	h.Write([]byte("flakenv-key/v1\n"))
	h.Write([]byte(ref.canonical()))
	h.Write([]byte{0})

	if lock == nil {
		h.Write([]byte("unlocked"))
		return Key(hex.EncodeToString(h.Sum(nil))), nil
	}

	canonical, err := canonicalLock(lock)
	if err != nil {
		return "", err
	}
	h.Write([]byte("lock\n"))
	h.Write(canonical)
	return Key(hex.EncodeToString(h.Sum(nil))), nil
}

// ReadLock은 dir의 flake.lock을 읽는다. 파일이 없으면 nil, nil.
func ReadLock(dir string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(dir, LockFileName))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("flakekey.ReadLock: %w", err)
	}
	return data, nil
}

func canonicalLock(lock []byte) ([]byte, error) {
	dec := json.NewDecoder(bytes.NewReader(lock))
	dec.UseNumber()
	var doc map[string]any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("flakekey.Derive: %w: %v", ErrMalformedLockfile, err)
	}
	if dec.More() {
		return nil, fmt.Errorf("flakekey.Derive: %w: trailing data", ErrMalformedLockfile)
	}

	nodes, ok := doc["nodes"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("flakekey.Derive: %w: nodes 객체 없음", ErrMalformedLockfile)
	}
	root, ok := doc["root"].(string)
	if !ok || root == "" {
		return nil, fmt.Errorf("flakekey.Derive: %w: root 없음", ErrMalformedLockfile)
	}
	if _, ok := nodes[root].(map[string]any); !ok {
		return nil, fmt.Errorf("flakekey.Derive: %w: root 노드 %q 없음", ErrMalformedLockfile, root)
	}
	for name, n := range nodes {
		node, ok := n.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("flakekey.Derive: %w: 노드 %q가 객체가 아님", ErrMalformedLockfile, name)
		}
		if locked, exists := node["locked"]; exists {
			if _, ok := locked.(map[string]any); !ok {
				return nil, fmt.Errorf("flakekey.Derive: %w: 노드 %q의 locked가 객체가 아님", ErrMalformedLockfile, name)
			}
		}
	}

	var buf bytes.Buffer
	if err := writeCanonical(&buf, doc); err != nil {
		return nil, fmt.Errorf("flakekey.Derive: %w: %v", ErrMalformedLockfile, err)
	}
	return buf.Bytes(), nil
}

func writeCanonical(buf *bytes.Buffer, v any) error {
	switch val := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			kb, err := json.Marshal(k)
			if err != nil {
				return err
			}
			buf.Write(kb)
			buf.WriteByte(':')
			if err := writeCanonical(buf, val[k]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	case []any:
		buf.WriteByte('[')
		for i, item := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeCanonical(buf, item); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return err
		}
		buf.Write(b)
	}
	return nil
}
