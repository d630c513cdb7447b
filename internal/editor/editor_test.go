package editor_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/NOAA-GFDL/fms-yaml-tools/internal/editor"
)

func script(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "editor.sh")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestEdit(t *testing.T) {
	e := &editor.Editor{Command: script(t, `printf 'title: edited\n' > "$1"`)}

	got, changed, err := e.Edit([]byte("title: original\n"), ".yaml")
	if err != nil {
		t.Fatal(err)
	}
	if !changed || string(got) != "title: edited\n" {
		t.Fatalf("unexpected result: %v %q", changed, got)
	}
}

func TestEditUnchanged(t *testing.T) {
	e := &editor.Editor{Command: script(t, "true")}

	got, changed, err := e.Edit([]byte("title: original\n"), ".yaml")
	if err != nil {
		t.Fatal(err)
	}
	if changed || string(got) != "title: original\n" {
		t.Fatalf("unexpected result: %v %q", changed, got)
	}
}

func TestEditFailure(t *testing.T) {
	e := &editor.Editor{Command: script(t, "exit 3")}
	if _, _, err := e.Edit([]byte("x"), ".yaml"); err == nil {
		t.Fatal("expected error")
	}
}

func TestDefault(t *testing.T) {
	t.Setenv("VISUAL", "")
	t.Setenv("EDITOR", "nano -w")
	if got := editor.Default().Command; got != "nano -w" {
		t.Fatalf("expected EDITOR to be used, got %q", got)
	}

	t.Setenv("VISUAL", "code --wait")
	if got := editor.Default().Command; got != "code --wait" {
		t.Fatalf("expected VISUAL to win, got %q", got)
	}

	t.Setenv("VISUAL", "")
	t.Setenv("EDITOR", "")
	if got := editor.Default().Command; got != "vi" {
		t.Fatalf("expected vi, got %q", got)
	}
}
