package cli

import (
	"regexp"
	"strings"
)

var tokenPrefixes = []string{"ghp_", "gho_", "github_pat_", "ghs_", "ghu_", "glpat-", "xoxb-", "xoxp-", "sk-", "AKIA"}

var tokenPattern = regexp.MustCompile(`(ghp_|gho_|github_pat_|ghs_|ghu_|glpat-|xoxb-|xoxp-|sk-|AKIA)\S+`)

// secretNameParts는 값 전체를 가려야 하는 변수 이름 조각이다.
var secretNameParts = []string{"TOKEN", "SECRET", "PASSWORD", "PASSWD", "CREDENTIAL", "API_KEY", "PRIVATE_KEY", "ACCESS_KEY"}

// MaskTokens는 알려진 토큰 패턴을 마스킹한다.
func MaskTokens(s string) string {
	return tokenPattern.ReplaceAllStringFunc(s, func(match string) string {
		for _, prefix := range tokenPrefixes {
			if strings.HasPrefix(match, prefix) {
				return prefix + "****"
			}
		}
		return match
	})
}

// MaskValue는 status 출력용으로 변수 값을 가린다.
// 이름이 비밀처럼 보이면 값 전체를, 아니면 값 안의 토큰만 가린다.
func MaskValue(name, value string) string {
	if value == "" {
		return value
	}
	upper := strings.ToUpper(name)
	for _, part := range secretNameParts {
		if strings.Contains(upper, part) {
			return "****"
		}
	}
	return MaskTokens(value)
}
