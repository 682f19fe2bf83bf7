package shell

// Marker는 rc 파일에 설치된 hook을 식별하는 문자열이다.
const Marker = "flakenv shell integration"

// HookSnippet은 셸 hook 스니펫을 반환한다. 지원하지 않는 셸이면 빈 문자열.
// 세션 ID는 셸마다 한 번 만들어지며 export하지 않으므로 하위 셸은 자기 세션을 갖는다.
// bash에서는 사용자가 이미 등록한 EXIT trap 앞에 세션 정리를 덧붙인다.
func HookSnippet(shellType string) string {
	switch shellType {
	case "zsh":
		return `# ` + Marker + ` (zsh)
if [[ -z "${FLAKENV_SESSION:-}" ]]; then
  typeset -g FLAKENV_SESSION="$(flakenv session-id)"
fi
_flakenv_hook() {
  eval "$(flakenv export --shell zsh --session "$FLAKENV_SESSION")"
}
_flakenv_exit() {
  flakenv session end --session "$FLAKENV_SESSION" >/dev/null 2>&1
}
typeset -ag precmd_functions chpwd_functions zshexit_functions
if (( ! ${precmd_functions[(I)_flakenv_hook]} )); then
  precmd_functions=(_flakenv_hook $precmd_functions)
fi
if (( ! ${chpwd_functions[(I)_flakenv_hook]} )); then
  chpwd_functions=(_flakenv_hook $chpwd_functions)
fi
if (( ! ${zshexit_functions[(I)_flakenv_exit]} )); then
  zshexit_functions+=(_flakenv_exit)
fi
`
	case "bash":
		return `# ` + Marker + ` (bash)
if [[ -z "${FLAKENV_SESSION:-}" ]]; then
  FLAKENV_SESSION="$(flakenv session-id)"
fi
_flakenv_hook() {
  local previous_exit_status=$?
  eval "$(flakenv export --shell bash --session "$FLAKENV_SESSION")"
  return $previous_exit_status
}
if [[ ";${PROMPT_COMMAND:-};" != *";_flakenv_hook;"* ]]; then
  PROMPT_COMMAND="_flakenv_hook${PROMPT_COMMAND:+;$PROMPT_COMMAND}"
fi
_flakenv_exit() {
  flakenv session end --session "$FLAKENV_SESSION" >/dev/null 2>&1
}
_flakenv_install_exit_trap() {
  local current
  current="$(trap -p EXIT)"
  [[ "$current" == *_flakenv_exit* ]] && return
  if [[ -n "$current" ]]; then
    eval "set -- $current"
    trap "_flakenv_exit; $3" EXIT
  else
    trap _flakenv_exit EXIT
  fi
}
_flakenv_install_exit_trap
unset -f _flakenv_install_exit_trap
`
	case "fish":
		return `# ` + Marker + ` (fish)
if not set -q FLAKENV_SESSION
  set -g FLAKENV_SESSION (flakenv session-id)
end
function _flakenv_hook --on-event fish_prompt
  flakenv export --shell fish --session $FLAKENV_SESSION | source
end
function _flakenv_exit --on-event fish_exit
  flakenv session end --session $FLAKENV_SESSION >/dev/null 2>&1
end
`
	default:
		return ""
	}
}
