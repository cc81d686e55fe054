package githook

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newRepo(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, ".git", "hooks"), 0o755); err != nil {
		t.Fatalf("mkdir .git/hooks: %v", err)
	}
	return root
}

func writeHook(t *testing.T, root, content string) {
	t.Helper()
	if err := os.WriteFile(hookPath(root), []byte(content), 0o755); err != nil {
		t.Fatalf("write hook: %v", err)
	}
}

func TestInstall_FreshRepo(t *testing.T) {
	root := newRepo(t)
	if err := Install(root, false); err != nil {
		t.Fatalf("Install: %v", err)
	}
	state, err := Status(root)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if state != Installed {
		t.Errorf("state = %v, want Installed", state)
	}

	raw, err := os.ReadFile(hookPath(root))
	if err != nil {
		t.Fatalf("read hook: %v", err)
	}
	script := string(raw)
	if !strings.HasPrefix(script, "#!/bin/sh\n"+marker) {
		t.Errorf("marker must follow the shebang:\n%s", script)
	}
	if !strings.Contains(script, "medulla snapshot") {
		t.Error("hook should regenerate the snapshot")
	}

	info, err := os.Stat(hookPath(root))
	if err != nil {
		t.Fatalf("stat hook: %v", err)
	}
	if info.Mode().Perm()&0o100 == 0 {
		t.Errorf("hook is not executable: %v", info.Mode())
	}
}

func TestInstall_NotARepo(t *testing.T) {
	if err := Install(t.TempDir(), false); err == nil {
		t.Fatal("expected error outside a git repository")
	}
}

func TestInstall_Idempotent(t *testing.T) {
	root := newRepo(t)
	if err := Install(root, false); err != nil {
		t.Fatalf("first Install: %v", err)
	}
	if err := Install(root, false); err != nil {
		t.Fatalf("second Install: %v", err)
	}
}

func TestInstall_RefusesForeignHook(t *testing.T) {
	root := newRepo(t)
	writeHook(t, root, "#!/bin/sh\necho custom\n")

	if err := Install(root, false); err == nil {
		t.Fatal("expected refusal without force")
	}
	if err := Install(root, true); err != nil {
		t.Fatalf("forced Install: %v", err)
	}
	state, _ := Status(root)
	if state != Installed {
		t.Errorf("state after force = %v, want Installed", state)
	}
}

func TestUninstall(t *testing.T) {
	root := newRepo(t)
	if err := Install(root, false); err != nil {
		t.Fatalf("Install: %v", err)
	}
	if err := Uninstall(root); err != nil {
		t.Fatalf("Uninstall: %v", err)
	}
	state, _ := Status(root)
	if state != Absent {
		t.Errorf("state = %v, want Absent", state)
	}
	// Removing again is a no-op.
	if err := Uninstall(root); err != nil {
		t.Fatalf("second Uninstall: %v", err)
	}
}

func TestUninstall_LeavesForeignHook(t *testing.T) {
	root := newRepo(t)
	writeHook(t, root, "#!/bin/sh\necho custom\n")
	if err := Uninstall(root); err == nil {
		t.Fatal("expected refusal to remove a custom hook")
	}
	if _, err := os.Stat(hookPath(root)); err != nil {
		t.Errorf("custom hook should survive: %v", err)
	}
}

func TestStatus_States(t *testing.T) {
	root := newRepo(t)
	cases := []struct {
		state State
		want  string
	}{
		{Absent, "not installed"},
		{Installed, "installed"},
		{Foreign, "custom hook (not medulla)"},
	}
	for _, tc := range cases {
		if got := tc.state.String(); got != tc.want {
			t.Errorf("State(%d).String() = %q, want %q", tc.state, got, tc.want)
		}
	}

	state, err := Status(root)
	if err != nil || state != Absent {
		t.Errorf("empty repo: state = %v, err = %v", state, err)
	}
}
