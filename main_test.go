package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tischda/macrokeys/internal/macro"
)

// execute runs the root command against a temp config pointing at store.
func execute(t *testing.T, store string, args ...string) (string, error) {
	t.Helper()

	dir := t.TempDir()
	cfg := filepath.Join(dir, "config.toml")
	contents := "[store]\npath = '" + store + "'\nwatch = false\n\n[log]\npath = '" + filepath.Join(dir, "test.log") + "'\n"
	if err := os.WriteFile(cfg, []byte(contents), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--config", cfg}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func seedStore(t *testing.T) (string, macro.Macro) {
	t.Helper()

	m := macro.New()
	m.Name = "Greet"
	m.Hotkey = "Ctrl+Shift+G"
	m.RepeatCount = 2
	ks := macro.NewStep(macro.KeyboardShortcut)
	ks.Keys = []string{"Ctrl", "A"}
	ks.DelayMs = 0
	tt := macro.NewStep(macro.TypeText)
	tt.Text = "hi"
	tt.DelayMs = 0
	m.Steps = []macro.Step{ks, tt}

	path := filepath.Join(t.TempDir(), "macros.json")
	if _, err := macro.NewStore(path, nil).Save([]macro.Macro{m}); err != nil {
		t.Fatalf("seed store: %v", err)
	}
	return path, m
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, filepath.Join(t.TempDir(), "m.json"), "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.HasPrefix(out, name+" "+version) {
		t.Fatalf("unexpected version output %q", out)
	}
}

func TestKeysCommand(t *testing.T) {
	out, err := execute(t, filepath.Join(t.TempDir(), "m.json"), "keys")
	if err != nil {
		t.Fatalf("keys: %v", err)
	}
	for _, want := range []string{"F12", "Return", "Escape"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in key list", want)
		}
	}
}

func TestListCommand(t *testing.T) {
	store, m := seedStore(t)
	out, err := execute(t, store, "list", "--steps")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	for _, want := range []string{m.ID, "Greet", "Ctrl+Shift+G", "Ctrl + A", `Type "hi"`} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestPlayDryRun(t *testing.T) {
	store, _ := seedStore(t)
	out, err := execute(t, store, "play", "--dry-run", "Greet")
	if err != nil {
		t.Fatalf("play: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	// Ctrl+A down/up plus two characters down/up, twice.
	if len(lines) != 16 {
		t.Fatalf("expected 16 events, got %d:\n%s", len(lines), out)
	}
	if lines[0] != "key Ctrl down" || lines[1] != "key A down [Ctrl]" {
		t.Fatalf("unexpected first events %q, %q", lines[0], lines[1])
	}
}

func TestPlayUnknownMacro(t *testing.T) {
	store, _ := seedStore(t)
	if _, err := execute(t, store, "play", "--dry-run", "nope"); err == nil {
		t.Fatalf("expected error for unknown macro")
	}
}

func TestImportExportCommands(t *testing.T) {
	store, m := seedStore(t)
	exported := filepath.Join(t.TempDir(), "out.json")

	if _, err := execute(t, store, "export", exported, "Greet"); err != nil {
		t.Fatalf("export: %v", err)
	}
	macros, err := macro.ReadFile(exported)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	if len(macros) != 1 || macros[0].ID != m.ID {
		t.Fatalf("unexpected export %+v", macros)
	}

	out, err := execute(t, store, "import", exported)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if !strings.Contains(out, "imported 1 macro(s)") {
		t.Fatalf("unexpected import output %q", out)
	}
	macros, err = macro.ReadFile(store)
	if err != nil {
		t.Fatalf("read store: %v", err)
	}
	if len(macros) != 2 || macros[1].ID == m.ID {
		t.Fatalf("expected appended macro with fresh id, got %+v", macros)
	}
}
