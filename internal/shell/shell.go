package shell

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/hbjs97/flakenv/internal/transition"
)

// ErrUnsupportedShell은 지원하지 않는 셸 이름이다.
var ErrUnsupportedShell = errors.New("지원하지 않는 셸")

// Supported는 hook과 export를 지원하는 셸 목록이다.
var Supported = []string{"zsh", "bash", "fish"}

// Renderer는 전환 연산을 특정 셸의 문장으로 변환한다.
type Renderer interface {
	Render(ops []transition.Op) string
}

// ForShell은 셸 이름에 맞는 Renderer를 반환한다. "json"은 JSON 내보내기다.
func ForShell(name string) (Renderer, error) {
	switch name {
	case "zsh", "bash", "sh":
		return Posix{}, nil
	case "fish":
		return Fish{}, nil
	case "json":
		return JSON{}, nil
	default:
		return nil, fmt.Errorf("shell.ForShell: %w: %q", ErrUnsupportedShell, name)
	}
}

// 셸 변수 이름으로 쓸 수 없는 이름은 어떤 Renderer도 출력하지 않는다.
var validName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Posix는 bash/zsh용 Renderer다.
type Posix struct{}

// Render는 연산마다 한 줄의 export 또는 unset 문장을 만든다.
func (Posix) Render(ops []transition.Op) string {
	var b strings.Builder
	for _, op := range ops {
		if !validName.MatchString(op.Name) {
			continue
		}
		switch op.Kind {
		case transition.KindExport:
			fmt.Fprintf(&b, "export %s=%s\n", op.Name, QuotePosix(op.Value))
		case transition.KindUnset:
			fmt.Fprintf(&b, "unset %s\n", op.Name)
		}
	}
	return b.String()
}

// QuotePosix는 s를 작은따옴표로 감싼다. 내부의 작은따옴표는 '\'' 로 바꾼다.
func QuotePosix(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// Fish는 fish용 Renderer다.
type Fish struct{}

// Render는 연산마다 한 줄의 set 문장을 만든다.
// PATH로 끝나는 변수는 fish의 목록 변수이므로 콜론으로 나누어 설정한다.
func (Fish) Render(ops []transition.Op) string {
	var b strings.Builder
	for _, op := range ops {
		if !validName.MatchString(op.Name) {
			continue
		}
		switch op.Kind {
		case transition.KindExport:
			if strings.HasSuffix(op.Name, "PATH") {
				fmt.Fprintf(&b, "set -gx %s (string split -- ':' %s)\n", op.Name, QuoteFish(op.Value))
			} else {
				fmt.Fprintf(&b, "set -gx %s %s\n", op.Name, QuoteFish(op.Value))
			}
		case transition.KindUnset:
			fmt.Fprintf(&b, "set -e %s\n", op.Name)
		}
	}
	return b.String()
}

// QuoteFish는 s를 fish 작은따옴표 문자열로 만든다. \ 와 ' 만 이스케이프된다.
func QuoteFish(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `'`, `\'`)
	return "'" + r.Replace(s) + "'"
}

// JSON은 {"NAME": "value", "GONE": null} 형태로 내보낸다.
type JSON struct{}

// Render는 키가 정렬된 JSON 객체 한 줄을 만든다. 연산이 없으면 "{}".
func (JSON) Render(ops []transition.Op) string {
	out := make(map[string]*string, len(ops))
	for _, op := range ops {
		switch op.Kind {
		case transition.KindExport:
			v := op.Value
			out[op.Name] = &v
		case transition.KindUnset:
			out[op.Name] = nil
		}
	}
	data, err := json.Marshal(out)
	if err != nil {
		return "{}\n"
	}
	return string(data) + "\n"
}

// Names는 지원 셸 이름을 정렬하여 반환한다.
func Names() []string {
	names := append([]string(nil), Supported...)
	sort.Strings(names)
	return names
}
