package snapshot

import "strings"

var ignoredPrefixes = []string{"__fish", "BASH_FUNC_", "FLAKENV_"}

// 셸 자체가 관리하거나 빌드 샌드박스에만 의미가 있는 변수들.
var ignoredKeys = map[string]bool{
	"COMP_WORDBREAKS": true,
	"PS1":             true,
	"OLDPWD":          true,
	"PWD":             true,
	"SHELL":           true,
	"SHELLOPTS":       true,
	"SHLVL":           true,
	"_":               true,
	"HOME":            true,
	"TERM":            true,
	"TMP":             true,
	"TMPDIR":          true,
	"TEMP":            true,
	"TEMPDIR":         true,
	"NIX_BUILD_TOP":   true,
	"NIX_LOG_FD":      true,
}

// Ignored는 프로젝트 환경에서 export하면 안 되는 변수인지 판단한다.
func Ignored(name string) bool {
	for _, p := range ignoredPrefixes {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	return ignoredKeys[name]
}

// WithoutIgnored는 무시 대상 변수를 제외한 새 Snapshot을 반환한다.
func (s Snapshot) WithoutIgnored() Snapshot {
	kept := make(map[string]string, len(s.vars))
	for k, v := range s.vars {
		if !Ignored(k) {
			kept[k] = v
		}
	}
	return New(kept)
}

// MergeDelimited는 PATH 형태의 값을 합친다.
// newValue의 항목이 먼저 오고 oldValue의 항목이 뒤따르며, 중복과 빈 항목은 제거된다.
func MergeDelimited(sep, newValue, oldValue string) string {
	seen := make(map[string]bool)
	var parts []string
	for _, v := range []string{newValue, oldValue} {
		for _, p := range strings.Split(v, sep) {
			if p == "" || seen[p] {
				continue
			}
			seen[p] = true
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, sep)
}
