// Package shell renders environment transitions as shell statements and provides
// the hook snippets that call flakenv export before every prompt.
package shell
