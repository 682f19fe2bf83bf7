// Package testutil provides common test helpers for the flakenv project.
package testutil

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

// FlakeNix is a minimal flake.nix used by helpers that need a discoverable flake.
const FlakeNix = `{
  inputs.nixpkgs.url = "github:NixOS/nixpkgs/nixos-unstable";
  outputs = { self, nixpkgs }: {
    devShells.x86_64-linux.default = nixpkgs.legacyPackages.x86_64-linux.mkShell { };
  };
}
`

// FlakeLock returns a flake.lock document whose nixpkgs input is pinned to narHash.
func FlakeLock(narHash string) string {
	return fmt.Sprintf(`{
  "nodes": {
    "nixpkgs": {
      "locked": {
        "lastModified": 1700000000,
        "narHash": %q,
        "owner": "NixOS",
        "repo": "nixpkgs",
        "rev": "0123456789abcdef0123456789abcdef01234567",
        "type": "github"
      },
      "original": {
        "owner": "NixOS",
        "ref": "nixos-unstable",
        "repo": "nixpkgs",
        "type": "github"
      }
    },
    "root": {
      "inputs": {
        "nixpkgs": "nixpkgs"
      }
    }
  },
  "root": "root",
  "version": 7
}
`, narHash)
}

// TempFlakeDir creates a temporary directory holding flake.nix and, when lock is
// non-empty, flake.lock. Returns the directory path.
func TempFlakeDir(t *testing.T, lock string) string {
	t.Helper()

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "flake.nix"), []byte(FlakeNix), 0644); err != nil {
		t.Fatalf("TempFlakeDir: write flake.nix failed: %v", err)
	}
	if lock != "" {
		WriteFlakeLock(t, dir, lock)
	}
	return dir
}

// WriteFlakeLock (re)writes flake.lock inside dir.
func WriteFlakeLock(t *testing.T, dir, lock string) {
	t.Helper()

	if err := os.WriteFile(filepath.Join(dir, "flake.lock"), []byte(lock), 0644); err != nil {
		t.Fatalf("WriteFlakeLock: write failed: %v", err)
	}
}

// TempConfigFile creates a temporary config.toml with the given content
// and returns its path. The file is automatically cleaned up.
func TempConfigFile(t *testing.T, content string) string {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("TempConfigFile: write failed: %v", err)
	}

	return path
}

// DevEnvJSON renders a `nix print-dev-env --json` document exporting vars.
func DevEnvJSON(vars map[string]string) string {
	type variable struct {
		Type  string `json:"type"`
		Value string `json:"value"`
	}
	doc := struct {
		BashFunctions map[string]string   `json:"bashFunctions"`
		Variables     map[string]variable `json:"variables"`
	}{
		BashFunctions: map[string]string{},
		Variables:     make(map[string]variable, len(vars)),
	}
	for k, v := range vars {
		doc.Variables[k] = variable{Type: "exported", Value: v}
	}
	data, err := json.Marshal(doc)
	if err != nil {
		panic(err)
	}
	return string(data)
}

// SetupTestConfig writes a config.toml whose cache and state directories live
// under a fresh temp dir. Returns the config path.
func SetupTestConfig(t *testing.T, backend string) string {
	t.Helper()

	dir := t.TempDir()
	content := fmt.Sprintf(`version = 1
shell = "bash"
cache_backend = %q
cache_dir = %q
state_dir = %q
build_timeout_seconds = 30
keep_gcroots = false
`, backend, filepath.Join(dir, "cache"), filepath.Join(dir, "state"))

	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("SetupTestConfig: write failed: %v", err)
	}
	return path
}
