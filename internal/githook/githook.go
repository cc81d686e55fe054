// Package githook installs the pre-commit hook that keeps the markdown
// snapshot in step with the document file.
package githook

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// marker identifies a hook as ours; it must stay on the second line of the
// script so Uninstall and Status can tell Medulla hooks from custom ones.
const marker = "# medulla pre-commit hook"

const hookScript = `#!/bin/sh
` + marker + `
# Regenerates the markdown snapshot when the Medulla document is committed.
# Bypass with: git commit --no-verify

if ! git diff --cached --name-only | grep -q '^\.medulla/loro\.db$'; then
    exit 0
fi

if ! medulla snapshot; then
    echo "medulla: snapshot generation failed; commit aborted" >&2
    echo "medulla: fix the error or bypass with git commit --no-verify" >&2
    exit 1
fi

git add .medulla/snapshot
exit 0
`

// State describes what currently occupies the pre-commit slot.
type State int

const (
	Absent State = iota
	Installed
	Foreign
)

func (s State) String() string {
	switch s {
	case Installed:
		return "installed"
	case Foreign:
		return "custom hook (not medulla)"
	default:
		return "not installed"
	}
}

func hookPath(root string) string {
	return filepath.Join(root, ".git", "hooks", "pre-commit")
}

// Status inspects the pre-commit hook of the repository at root.
func Status(root string) (State, error) {
	raw, err := os.ReadFile(hookPath(root))
	if os.IsNotExist(err) {
		return Absent, nil
	}
	if err != nil {
		return Absent, fmt.Errorf("reading hook: %w", err)
	}
	if strings.Contains(string(raw), marker) {
		return Installed, nil
	}
	return Foreign, nil
}

// Install writes the pre-commit hook. A foreign hook is only replaced when
// force is set.
func Install(root string, force bool) error {
	if _, err := os.Stat(filepath.Join(root, ".git")); err != nil {
		return fmt.Errorf("%s is not a git repository", root)
	}
	state, err := Status(root)
	if err != nil {
		return err
	}
	if state == Foreign && !force {
		return fmt.Errorf("a custom pre-commit hook exists; re-run with --force to replace it")
	}
	path := hookPath(root)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating hooks directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(hookScript), 0o755); err != nil {
		return fmt.Errorf("writing hook: %w", err)
	}
	return nil
}

// Uninstall removes the hook, but only when it carries our marker.
func Uninstall(root string) error {
	state, err := Status(root)
	if err != nil {
		return err
	}
	switch state {
	case Absent:
		return nil
	case Foreign:
		return fmt.Errorf("pre-commit hook was not installed by medulla; not removing it")
	}
	if err := os.Remove(hookPath(root)); err != nil {
		return fmt.Errorf("removing hook: %w", err)
	}
	return nil
}
