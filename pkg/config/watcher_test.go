package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoaderWatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "p.yaml")
	write := func(name string) {
		t.Helper()
		content := "name: " + name + "\nfacts: [A]\ngoal: [A]\nactions:\n  - name: MakeA\n    effects: [A]\n"
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("failed to write problem: %v", err)
		}
	}
	write("first")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	names := make(chan string, 16)
	done := make(chan error, 1)
	loader := NewLoader(WithDebounce(20 * time.Millisecond))
	go func() {
		done <- loader.Watch(ctx, path, func(_ context.Context, lp *LoadedProblem) error {
			names <- lp.Problem.Name
			return nil
		})
	}()

	waitFor := func(want string) {
		t.Helper()
		deadline := time.After(5 * time.Second)
		for {
			select {
			case got := <-names:
				if got == want {
					return
				}
			case err := <-done:
				t.Fatalf("watch stopped early: %v", err)
			case <-deadline:
				t.Fatalf("timed out waiting for %s", want)
			}
		}
	}

	waitFor("first")
	write("second")
	waitFor("second")

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Expected nil error after cancel, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop after cancel")
	}
}

func TestLoaderWatchInitialFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "p.yaml")
	if err := os.WriteFile(path, []byte("name: p\nfacts: []\n"), 0o644); err != nil {
		t.Fatalf("failed to write problem: %v", err)
	}

	err := NewLoader().Watch(context.Background(), path, func(context.Context, *LoadedProblem) error {
		t.Error("onLoad must not be called for an invalid problem")
		return nil
	})
	if err == nil {
		t.Fatal("Expected error for invalid initial problem")
	}
}
