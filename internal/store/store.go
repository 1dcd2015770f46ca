// Package store persists a replica: one JSONL shard of log entries per replica under events/,
// the local device file, a derived sqlite index and the user config.
package store

import (
	"os"
	"path/filepath"
	"strings"
)

const localDirName = ".keykapp"

// EnvDir overrides workspace discovery.
const EnvDir = "KEYKAPP_DIR"

// Store is rooted at a workspace. Dir may be the workspace root or its .keykapp directory.
type Store struct {
	Dir string
}

// DiscoverDir walks up from start looking for a .keykapp directory.
func DiscoverDir(start string) (string, bool) {
	dir := start
	for {
		candidate := filepath.Join(dir, localDirName)
		if st, err := os.Stat(candidate); err == nil && st.IsDir() {
			return candidate, true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}

// DefaultDir is $KEYKAPP_DIR, else the discovered .keykapp directory, else ./.keykapp.
func DefaultDir() (string, error) {
	if v := strings.TrimSpace(os.Getenv(EnvDir)); v != "" {
		return v, nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	if found, ok := DiscoverDir(cwd); ok {
		return found, nil
	}
	return filepath.Join(cwd, localDirName), nil
}

func (s Store) workspaceRoot() string {
	dir := filepath.Clean(s.Dir)
	if filepath.Base(dir) == localDirName {
		return filepath.Dir(dir)
	}
	return dir
}

func (s Store) localDir() string {
	return filepath.Join(s.workspaceRoot(), localDirName)
}

// Root is the workspace directory shared between replicas.
func (s Store) Root() string { return s.workspaceRoot() }

func (s Store) Ensure() error {
	if err := os.MkdirAll(s.localDir(), 0o755); err != nil {
		return err
	}
	return os.MkdirAll(s.eventsDir(), 0o755)
}

// ExportPath is where the export action writes the sync root, e.g. ExportPath("json").
func (s Store) ExportPath(ext string) string {
	return filepath.Join(s.localDir(), "syncroot."+strings.TrimPrefix(ext, "."))
}
