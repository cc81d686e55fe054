// Package store owns the canonical project knowledge: an automerge document
// persisted as a binary snapshot under the project's .medulla directory.
// Callers serialize access; the store itself is not goroutine-safe.
package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/automerge/automerge-go"

	"github.com/medullahq/medulla/internal/config"
	"github.com/medullahq/medulla/internal/merr"
)

const (
	// DirName is the dot-directory holding all medulla state.
	DirName = ".medulla"

	// CRDTFileName is the binary document snapshot. The name is a
	// compatibility contract with existing projects and other
	// implementations; do not rename.
	CRDTFileName = "loro.db"

	schemaVersion = 1
)

// Store is the handle to one project's CRDT document.
type Store struct {
	root string
	dir  string
	doc  *automerge.Doc
}

// DiscoverRoot walks up from start looking for a .medulla directory,
// returning the containing project root.
func DiscoverRoot(start string) (string, error) {
	dir, err := filepath.Abs(start)
	if err != nil {
		return "", fmt.Errorf("resolving start dir: %w", err)
	}
	for {
		if info, err := os.Stat(filepath.Join(dir, DirName)); err == nil && info.IsDir() {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", merr.ErrNotInitialized
		}
		dir = parent
	}
}

// Init creates the .medulla directory with an empty document, a schema
// descriptor, a default config and a gitignore for derived files. Fails if
// already initialized.
func Init(root string) (*Store, error) {
	dir := filepath.Join(root, DirName)
	if _, err := os.Stat(dir); err == nil {
		return nil, merr.ErrAlreadyInitialized
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating %s: %w", dir, err)
	}
	s := &Store{root: root, dir: dir, doc: automerge.New()}
	if err := s.doc.RootMap().Set("meta", map[string]any{"schema_version": schemaVersion}); err != nil {
		return nil, fmt.Errorf("writing meta: %w", err)
	}
	if _, err := s.doc.Commit("init"); err != nil {
		return nil, fmt.Errorf("committing init: %w", err)
	}
	if err := s.Save(); err != nil {
		return nil, err
	}
	if err := writeSchemaFile(dir); err != nil {
		return nil, err
	}
	if err := config.Default().Save(s.ConfigPath()); err != nil {
		return nil, err
	}
	gitignore := "cache.db\ncache.db-shm\ncache.db-wal\n*.log\n"
	if err := os.WriteFile(filepath.Join(dir, ".gitignore"), []byte(gitignore), 0o644); err != nil {
		return nil, fmt.Errorf("writing .gitignore: %w", err)
	}
	return s, nil
}

// Open loads the document for an initialized project.
func Open(root string) (*Store, error) {
	dir := filepath.Join(root, DirName)
	path := filepath.Join(dir, CRDTFileName)
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, merr.ErrNotInitialized
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	doc, err := automerge.Load(raw)
	if err != nil {
		return nil, fmt.Errorf("loading document: %w", err)
	}
	s := &Store{root: root, dir: dir, doc: doc}
	if err := s.reconcileSequences(); err != nil {
		return nil, err
	}
	return s, nil
}

// Save writes the document snapshot atomically: temp file in the same
// directory, then rename over the target.
func (s *Store) Save() error {
	raw := s.doc.Save()
	tmp, err := os.CreateTemp(s.dir, CRDTFileName+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing document: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("syncing document: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.CRDTPath()); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing %s: %w", CRDTFileName, err)
	}
	return nil
}

// VersionHash is the document's version frontier: the sorted commit heads
// joined with commas. It changes after every committed mutation and drives
// cache staleness checks.
func (s *Store) VersionHash() string {
	heads := s.doc.Heads()
	hs := make([]string, len(heads))
	for i, h := range heads {
		hs[i] = h.String()
	}
	sort.Strings(hs)
	return strings.Join(hs, ",")
}

// Bytes returns the binary snapshot of the current document state.
func (s *Store) Bytes() []byte { return s.doc.Save() }

// MergeBytes merges a peer document snapshot into this one, then reconciles
// per-type sequence numbers which may collide after a merge.
func (s *Store) MergeBytes(raw []byte) error {
	other, err := automerge.Load(raw)
	if err != nil {
		return fmt.Errorf("loading peer document: %w", err)
	}
	if _, err := s.doc.Merge(other); err != nil {
		return fmt.Errorf("merging documents: %w", err)
	}
	return s.reconcileSequences()
}

// Root returns the project root directory.
func (s *Store) Root() string { return s.root }

// Dir returns the .medulla directory path.
func (s *Store) Dir() string { return s.dir }

// CRDTPath returns the path of the binary document file.
func (s *Store) CRDTPath() string { return filepath.Join(s.dir, CRDTFileName) }

// CachePath returns the path of the derived sqlite cache.
func (s *Store) CachePath() string { return filepath.Join(s.dir, "cache.db") }

// SnapshotDir returns the markdown snapshot directory.
func (s *Store) SnapshotDir() string { return filepath.Join(s.dir, "snapshot") }

// ConfigPath returns the project config file path.
func (s *Store) ConfigPath() string { return filepath.Join(s.dir, "config.json") }

// FileSize reports the on-disk size of the document file, 0 when unsaved.
func (s *Store) FileSize() int64 {
	info, err := os.Stat(s.CRDTPath())
	if err != nil {
		return 0
	}
	return info.Size()
}

func (s *Store) commit(format string, args ...any) error {
	if _, err := s.doc.Commit(fmt.Sprintf(format, args...)); err != nil {
		return fmt.Errorf("committing change: %w", err)
	}
	return nil
}
