// Package watch는 flake 디렉토리의 감시 대상 파일 내용을 해시하여
// 캐시된 프로필이 여전히 최신인지 판정할 근거를 만든다.
package watch

import (
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	"lukechampine.com/blake3"
)

// DefaultPatterns는 설정이 없을 때 감시하는 파일이다.
var DefaultPatterns = []string{"flake.nix", "flake.lock"}

// Inputs는 flake 디렉토리 기준 상대 경로에서 내용 해시로의 매핑이다.
type Inputs map[string]string

// Collect는 dir 아래에서 patterns(doublestar glob)에 맞는 일반 파일을 찾아 해시한다.
// 매칭되는 파일이 없는 패턴은 무시된다.
func Collect(dir string, patterns []string) (Inputs, error) {
	if len(patterns) == 0 {
		patterns = DefaultPatterns
	}
	fsys := os.DirFS(dir)
	inputs := make(Inputs)
	for _, pattern := range patterns {
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("watch.Collect: 잘못된 패턴 %q", pattern)
		}
		matches, err := doublestar.Glob(fsys, pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("watch.Collect: %w", err)
		}
		for _, rel := range matches {
			if _, done := inputs[rel]; done {
				continue
			}
			sum, err := hashFile(fsys, rel)
			if err != nil {
				return nil, fmt.Errorf("watch.Collect: %w", err)
			}
			inputs[filepath.ToSlash(rel)] = sum
		}
	}
	return inputs, nil
}

// Equal은 두 입력 집합이 같은지 반환한다.
func Equal(a, b Inputs) bool {
	return len(Changed(a, b)) == 0
}

// Changed는 recorded와 live가 다른 경로를 정렬하여 반환한다.
// 새로 생기거나 사라진 파일도 포함된다.
func Changed(recorded, live Inputs) []string {
	var changed []string
	for path, sum := range recorded {
		if live[path] != sum {
			changed = append(changed, path)
		}
	}
	for path := range live {
		if _, ok := recorded[path]; !ok {
			changed = append(changed, path)
		}
	}
	sort.Strings(changed)
	return changed
}

func hashFile(fsys fs.FS, name string) (string, error) {
	f, err := fsys.Open(name)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := blake3.New(32, nil)
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
