package testutil

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
)

func TestFakeCommander_ExactMatch(t *testing.T) {
	t.Parallel()

	fc := NewFakeCommander()
	fc.Register("nix --version", "nix (Nix) 2.24.9\n", nil)

	out, err := fc.Run(context.Background(), "nix", "--version")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(out) != "nix (Nix) 2.24.9\n" {
		t.Errorf("got %q, want %q", string(out), "nix (Nix) 2.24.9\n")
	}
}

func TestFakeCommander_PrefixMatch(t *testing.T) {
	t.Parallel()

	fc := NewFakeCommander()
	fc.Register("nix --extra-experimental-features", `{"variables":{}}`, nil)

	out, err := fc.Output(context.Background(), "nix", "--extra-experimental-features", "nix-command flakes", "print-dev-env", "--json", "/p")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(out) != `{"variables":{}}` {
		t.Errorf("unexpected output: %s", out)
	}
}

func TestFakeCommander_LongestPrefixWins(t *testing.T) {
	t.Parallel()

	fc := NewFakeCommander()
	fc.Register("nix", "short", nil)
	fc.Register("nix --version", "long", nil)

	out, _ := fc.Run(context.Background(), "nix", "--version", "--verbose")
	if string(out) != "long" {
		t.Errorf("got %q, want %q", string(out), "long")
	}
}

func TestFakeCommander_NoMatch(t *testing.T) {
	t.Parallel()

	fc := NewFakeCommander()

	_, err := fc.Run(context.Background(), "unknown", "command")
	if err == nil {
		t.Fatal("expected error for unregistered command")
	}
}

func TestFakeCommander_DefaultResponse(t *testing.T) {
	t.Parallel()

	fc := NewFakeCommander()
	fc.DefaultResponse = &Response{Output: []byte("default"), Err: nil}

	out, err := fc.Run(context.Background(), "any", "command")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(out) != "default" {
		t.Errorf("got %q, want %q", string(out), "default")
	}
}

func TestFakeCommander_RecordsCalls(t *testing.T) {
	t.Parallel()

	fc := NewFakeCommander()
	fc.DefaultResponse = &Response{Output: nil, Err: nil}

	fc.Run(context.Background(), "nix", "--version")
	fc.Output(context.Background(), "nix", "flake", "archive")

	if len(fc.Calls) != 2 {
		t.Fatalf("expected 2 calls, got %d", len(fc.Calls))
	}
	if !fc.Called("nix") {
		t.Error("expected nix to be called")
	}
	if fc.CallCount("nix flake") != 1 {
		t.Errorf("expected 1 nix flake call, got %d", fc.CallCount("nix flake"))
	}
}

func TestFakeCommander_ErrorResponse(t *testing.T) {
	t.Parallel()

	fc := NewFakeCommander()
	fc.Register("nix build", "error: failed\n", fmt.Errorf("exit status 1"))

	out, err := fc.Run(context.Background(), "nix", "build")
	if err == nil {
		t.Fatal("expected error")
	}
	if string(out) != "error: failed\n" {
		t.Errorf("got %q, want %q", string(out), "error: failed\n")
	}
}

func TestFakeCommander_CanceledContext(t *testing.T) {
	t.Parallel()

	fc := NewFakeCommander()
	fc.Register("nix", "ok", nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := fc.Output(ctx, "nix", "print-dev-env")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestFakeCommander_OnRun(t *testing.T) {
	t.Parallel()

	fc := NewFakeCommander()
	fc.Register("nix", "ok", nil)
	boom := errors.New("boom")
	fc.OnRun = func(_ context.Context, fullCmd string) error {
		if fullCmd == "nix fail" {
			return boom
		}
		return nil
	}

	if _, err := fc.Run(context.Background(), "nix", "fail"); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if out, err := fc.Run(context.Background(), "nix", "ok"); err != nil || string(out) != "ok" {
		t.Fatalf("unexpected result %q %v", out, err)
	}
}

func TestFakeCommander_ConcurrentUse(t *testing.T) {
	t.Parallel()

	fc := NewFakeCommander()
	fc.DefaultResponse = &Response{}

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fc.Output(context.Background(), "nix", "--version")
		}()
	}
	wg.Wait()

	if fc.CallCount("nix") != 16 {
		t.Fatalf("expected 16 calls, got %d", fc.CallCount("nix"))
	}
}
