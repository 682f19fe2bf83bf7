package flakekey

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Reference는 프로젝트가 선언한 flake 소스(경로 또는 URI)와 선택적 고정 리비전이다.
type Reference struct {
	Source string
	Rev    string
}

// ParseReference는 "path", "path?rev=abc", "github:o/r#attr" 같은 문자열을 파싱한다.
// 상대 경로는 절대 경로로 정규화된다.
func ParseReference(s string) (Reference, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Reference{}, fmt.Errorf("flakekey.ParseReference: 빈 참조")
	}

	source, attr := s, ""
	if i := strings.Index(s, "#"); i >= 0 {
		source, attr = s[:i], s[i:]
	}

	var rev string
	if i := strings.Index(source, "?"); i >= 0 {
		var rest []string
		for _, kv := range strings.Split(source[i+1:], "&") {
			if strings.HasPrefix(kv, "rev=") {
				rev = strings.TrimPrefix(kv, "rev=")
				continue
			}
			if kv != "" {
				rest = append(rest, kv)
			}
		}
		source = source[:i]
		if len(rest) > 0 {
			source += "?" + strings.Join(rest, "&")
		}
	}

	if isLocalPath(source) {
		abs, err := filepath.Abs(source)
		if err != nil {
			return Reference{}, fmt.Errorf("flakekey.ParseReference: %w", err)
		}
		source = abs
	}

	return Reference{Source: source + attr, Rev: rev}, nil
}

// LocalReference는 flake 디렉토리를 가리키는 Reference를 만든다.
func LocalReference(dir string) Reference {
	abs, err := filepath.Abs(dir)
	if err != nil {
		abs = filepath.Clean(dir)
	}
	return Reference{Source: abs}
}

// String은 사람이 읽는 표현이다.
func (r Reference) String() string {
	if r.Rev == "" {
		return r.Source
	}
	return r.Installable()
}

// Installable은 nix 명령에 전달할 installable 문자열이다.
func (r Reference) Installable() string {
	if r.Rev == "" {
		return r.Source
	}
	source, attr := r.Source, ""
	if i := strings.Index(source, "#"); i >= 0 {
		source, attr = source[:i], source[i:]
	}
	if isLocalPath(source) {
		source = "git+file://" + source
	}
	sep := "?"
	if strings.Contains(source, "?") {
		sep = "&"
	}
	return source + sep + "rev=" + r.Rev + attr
}

// Dir는 로컬 경로 참조의 디렉토리를 반환한다. 원격 참조면 false.
func (r Reference) Dir() (string, bool) {
	source := r.Source
	if i := strings.Index(source, "#"); i >= 0 {
		source = source[:i]
	}
	source = strings.TrimPrefix(source, "path:")
	if !isLocalPath(source) {
		return "", false
	}
	return source, true
}

// canonical은 키 유도에 쓰이는 안정적인 표현이다.
func (r Reference) canonical() string {
	return "source=" + r.Source + "\nrev=" + r.Rev
}

// 레지스트리 이름("nixpkgs")과 구분하기 위해 접두사가 없으면 실제 존재 여부를 본다.
func isLocalPath(s string) bool {
	if strings.HasPrefix(s, "/") || strings.HasPrefix(s, ".") {
		return true
	}
	if s == "" || strings.Contains(s, ":") {
		return false
	}
	_, err := os.Stat(s)
	return err == nil
}

// Discover는 dir부터 상위로 올라가며 flake.nix가 있는 가장 가까운 디렉토리를 찾는다.
func Discover(dir string) (string, bool) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", false
	}
	for {
		info, err := os.Stat(filepath.Join(dir, "flake.nix"))
		if err == nil && info.Mode().IsRegular() {
			return dir, true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}
