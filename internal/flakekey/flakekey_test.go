package flakekey_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hbjs97/flakenv/internal/flakekey"
	"github.com/hbjs97/flakenv/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDerive_Deterministic(t *testing.T) {
	ref := flakekey.Reference{Source: "/home/user/project"}
	lock := []byte(testutil.FlakeLock("sha256-AAA"))

	k1, err := flakekey.Derive(ref, lock)
	require.NoError(t, err)
	k2, err := flakekey.Derive(ref, lock)
	require.NoError(t, err)

	assert.Equal(t, k1, k2)
	assert.True(t, k1.Valid())
}

func TestDerive_InputHashChangeChangesKey(t *testing.T) {
	ref := flakekey.Reference{Source: "/home/user/project"}
	k1, err := flakekey.Derive(ref, []byte(testutil.FlakeLock("sha256-AAA")))
	require.NoError(t, err)
	k2, err := flakekey.Derive(ref, []byte(testutil.FlakeLock("sha256-AAB")))
	require.NoError(t, err)

	assert.NotEqual(t, k1, k2)
}

func TestDerive_ReferenceChangesKey(t *testing.T) {
	lock := []byte(testutil.FlakeLock("sha256-AAA"))
	k1, err := flakekey.Derive(flakekey.Reference{Source: "/a"}, lock)
	require.NoError(t, err)
	k2, err := flakekey.Derive(flakekey.Reference{Source: "/b"}, lock)
	require.NoError(t, err)
	k3, err := flakekey.Derive(flakekey.Reference{Source: "/a", Rev: "abc"}, lock)
	require.NoError(t, err)

	assert.NotEqual(t, k1, k2)
	assert.NotEqual(t, k1, k3)
}

func TestDerive_FormattingInsensitive(t *testing.T) {
	ref := flakekey.Reference{Source: "/p"}
	compact := `{"nodes":{"root":{"inputs":{}}},"root":"root","version":7}`
	pretty := "{\n  \"version\": 7,\n  \"root\": \"root\",\n  \"nodes\": {\n    \"root\": { \"inputs\": {} }\n  }\n}\n"

	k1, err := flakekey.Derive(ref, []byte(compact))
	require.NoError(t, err)
	k2, err := flakekey.Derive(ref, []byte(pretty))
	require.NoError(t, err)
	assert.Equal(t, k1, k2)
}

func TestDerive_UnlockedDiffersFromLocked(t *testing.T) {
	ref := flakekey.Reference{Source: "/p"}
	unlocked, err := flakekey.Derive(ref, nil)
	require.NoError(t, err)
	locked, err := flakekey.Derive(ref, []byte(testutil.FlakeLock("sha256-AAA")))
	require.NoError(t, err)

	assert.True(t, unlocked.Valid())
	assert.NotEqual(t, unlocked, locked)
}

func TestDerive_Malformed(t *testing.T) {
	ref := flakekey.Reference{Source: "/p"}
	cases := map[string]string{
		"not json":       "not json {{{",
		"empty":          "",
		"array":          `[1,2]`,
		"no nodes":       `{"root":"root","version":7}`,
		"no root":        `{"nodes":{"root":{}},"version":7}`,
		"missing root":   `{"nodes":{"other":{}},"root":"root"}`,
		"node not obj":   `{"nodes":{"root":{},"x":3},"root":"root"}`,
		"locked not obj": `{"nodes":{"root":{},"x":{"locked":"abc"}},"root":"root"}`,
		"trailing data":  `{"nodes":{"root":{}},"root":"root"} {}`,
	}
	for name, lock := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := flakekey.Derive(ref, []byte(lock))
			require.Error(t, err)
			assert.True(t, errors.Is(err, flakekey.ErrMalformedLockfile))
		})
	}
}

func TestReadLock(t *testing.T) {
	dir := testutil.TempFlakeDir(t, testutil.FlakeLock("sha256-AAA"))
	data, err := flakekey.ReadLock(dir)
	require.NoError(t, err)
	assert.Contains(t, string(data), "sha256-AAA")

	empty := t.TempDir()
	data, err = flakekey.ReadLock(empty)
	require.NoError(t, err)
	assert.Nil(t, data)
}

func TestParseReference(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		in   string
		want flakekey.Reference
	}{
		{dir, flakekey.Reference{Source: dir}},
		{dir + "?rev=abc123", flakekey.Reference{Source: dir, Rev: "abc123"}},
		{"github:NixOS/nixpkgs", flakekey.Reference{Source: "github:NixOS/nixpkgs"}},
		{"github:o/r?rev=deadbeef#devShells.x86_64-linux.default", flakekey.Reference{Source: "github:o/r#devShells.x86_64-linux.default", Rev: "deadbeef"}},
		{"git+https://example.com/r.git?ref=main&rev=abc", flakekey.Reference{Source: "git+https://example.com/r.git?ref=main", Rev: "abc"}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := flakekey.ParseReference(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseReference_RelativeBecomesAbsolute(t *testing.T) {
	got, err := flakekey.ParseReference(".")
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(got.Source))
}

func TestParseReference_Empty(t *testing.T) {
	_, err := flakekey.ParseReference("  ")
	assert.Error(t, err)
}

func TestInstallable(t *testing.T) {
	assert.Equal(t, "/p", flakekey.Reference{Source: "/p"}.Installable())
	assert.Equal(t, "git+file:///p?rev=abc", flakekey.Reference{Source: "/p", Rev: "abc"}.Installable())
	assert.Equal(t, "github:o/r?rev=abc#shell", flakekey.Reference{Source: "github:o/r#shell", Rev: "abc"}.Installable())
	assert.Equal(t, "git+https://h/r?ref=main&rev=abc", flakekey.Reference{Source: "git+https://h/r?ref=main", Rev: "abc"}.Installable())
}

func TestDir(t *testing.T) {
	dir, ok := flakekey.Reference{Source: "/p#shell"}.Dir()
	assert.True(t, ok)
	assert.Equal(t, "/p", dir)

	_, ok = flakekey.Reference{Source: "github:o/r"}.Dir()
	assert.False(t, ok)
}

func TestDiscover(t *testing.T) {
	root := testutil.TempFlakeDir(t, "")
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0755))

	found, ok := flakekey.Discover(nested)
	assert.True(t, ok)
	assert.Equal(t, root, found)

	found, ok = flakekey.Discover(root)
	assert.True(t, ok)
	assert.Equal(t, root, found)
}

func TestDiscover_NotFound(t *testing.T) {
	_, ok := flakekey.Discover(t.TempDir())
	assert.False(t, ok)
}

func TestKey_Short(t *testing.T) {
	k := flakekey.Key(strings.Repeat("ab", 32))
	assert.Equal(t, "abababababab", k.Short())
	assert.False(t, flakekey.Key("../etc/passwd").Valid())
}
