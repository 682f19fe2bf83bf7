package shell_test

import (
	"encoding/json"
	"testing"

	"github.com/hbjs97/flakenv/internal/shell"
	"github.com/hbjs97/flakenv/internal/transition"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPosix_Render(t *testing.T) {
	ops := []transition.Op{
		transition.Unset("OLD"),
		transition.Export("CC", "gcc"),
		transition.Export("MSG", "it's $HOME `x`"),
	}
	got := shell.Posix{}.Render(ops)
	assert.Equal(t, "unset OLD\nexport CC='gcc'\nexport MSG='it'\\''s $HOME `x`'\n", got)
}

func TestPosix_RenderEmpty(t *testing.T) {
	assert.Empty(t, shell.Posix{}.Render(nil))
}

func TestPosix_SkipsInvalidNames(t *testing.T) {
	ops := []transition.Op{
		transition.Export("$(touch x)", "1"),
		transition.Export("1BAD", "1"),
		transition.Export("GOOD_1", "1"),
	}
	assert.Equal(t, "export GOOD_1='1'\n", shell.Posix{}.Render(ops))
}

func TestQuotePosix(t *testing.T) {
	tests := map[string]string{
		"":            "''",
		"plain":       "'plain'",
		"a'b":         `'a'\''b'`,
		"line\ntwo":   "'line\ntwo'",
		`back\slash`: `'back\slash'`,
	}
	for in, want := range tests {
		assert.Equal(t, want, shell.QuotePosix(in), in)
	}
}

func TestFish_Render(t *testing.T) {
	ops := []transition.Op{
		transition.Unset("OLD"),
		transition.Export("MSG", `it's a \ test`),
		transition.Export("PATH", "/nix/store/a/bin:/usr/bin"),
	}
	got := shell.Fish{}.Render(ops)
	assert.Equal(t, "set -e OLD\n"+
		`set -gx MSG 'it\'s a \\ test'`+"\n"+
		"set -gx PATH (string split -- ':' '/nix/store/a/bin:/usr/bin')\n", got)
}

func TestJSON_Render(t *testing.T) {
	ops := []transition.Op{
		transition.Unset("GONE"),
		transition.Export("A", "1"),
		transition.Export("Q", `"quoted"`),
	}
	got := shell.JSON{}.Render(ops)

	var decoded map[string]*string
	require.NoError(t, json.Unmarshal([]byte(got), &decoded))
	require.Len(t, decoded, 3)
	assert.Nil(t, decoded["GONE"])
	assert.Equal(t, "1", *decoded["A"])
	assert.Equal(t, `"quoted"`, *decoded["Q"])
	assert.Equal(t, "{}\n", shell.JSON{}.Render(nil))
}

func TestForShell(t *testing.T) {
	for name, want := range map[string]shell.Renderer{
		"zsh":  shell.Posix{},
		"bash": shell.Posix{},
		"fish": shell.Fish{},
		"json": shell.JSON{},
	} {
		r, err := shell.ForShell(name)
		require.NoError(t, err, name)
		assert.IsType(t, want, r, name)
	}

	_, err := shell.ForShell("powershell")
	assert.ErrorIs(t, err, shell.ErrUnsupportedShell)
}

func TestHookSnippet_Zsh(t *testing.T) {
	snippet := shell.HookSnippet("zsh")
	assert.Contains(t, snippet, shell.Marker)
	assert.Contains(t, snippet, "precmd_functions")
	assert.Contains(t, snippet, "chpwd_functions")
	assert.Contains(t, snippet, "zshexit_functions")
	assert.Contains(t, snippet, "flakenv export --shell zsh")
	assert.Contains(t, snippet, "flakenv session-id")
}

func TestHookSnippet_Bash(t *testing.T) {
	snippet := shell.HookSnippet("bash")
	assert.Contains(t, snippet, shell.Marker)
	assert.Contains(t, snippet, "PROMPT_COMMAND")
	assert.Contains(t, snippet, "flakenv export --shell bash")
	assert.Contains(t, snippet, "flakenv session end")
}

func TestHookSnippet_BashChainsExistingExitTrap(t *testing.T) {
	snippet := shell.HookSnippet("bash")
	assert.Contains(t, snippet, `current="$(trap -p EXIT)"`)
	assert.Contains(t, snippet, `trap "_flakenv_exit; $3" EXIT`)
	assert.NotContains(t, snippet, "trap 'flakenv session end")
}

func TestHookSnippet_Fish(t *testing.T) {
	snippet := shell.HookSnippet("fish")
	assert.Contains(t, snippet, shell.Marker)
	assert.Contains(t, snippet, "--on-event fish_prompt")
	assert.Contains(t, snippet, "--on-event fish_exit")
	assert.Contains(t, snippet, "flakenv export --shell fish")
}

func TestHookSnippet_Unknown(t *testing.T) {
	assert.Empty(t, shell.HookSnippet("unknown"))
}

func TestNames(t *testing.T) {
	assert.Equal(t, []string{"bash", "fish", "zsh"}, shell.Names())
}
