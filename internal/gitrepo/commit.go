package gitrepo

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// CommitShards stages the workspace's events/ directory and commits it. Local-only files
// (.keykapp/index.sqlite, .keykapp/device.json) are never staged. It returns committed=false
// when there is nothing to commit or dir is not inside a git repo.
func CommitShards(ctx context.Context, workspaceDir string, message string) (committed bool, err error) {
	workspaceDir = filepath.Clean(workspaceDir)

	st, err := GetStatus(ctx, workspaceDir)
	if err != nil {
		return false, err
	}
	if !st.IsRepo {
		return false, nil
	}
	if st.Unmerged || st.InProgress {
		return false, errors.New("git repo has an in-progress merge/rebase; resolve first")
	}

	eventsRel, ok, err := eventsPath(workspaceDir, st.Root)
	if err != nil || !ok {
		return false, err
	}
	if _, err := git(ctx, st.Root, "add", "--", eventsRel); err != nil {
		return false, err
	}

	out, err := git(ctx, st.Root, "diff", "--cached", "--name-only")
	if err != nil {
		return false, err
	}
	if strings.TrimSpace(out) == "" {
		return false, nil
	}

	msg := strings.TrimSpace(message)
	if msg == "" {
		msg = StagedSummary(ctx, st.Root)
	}
	if _, err := git(ctx, st.Root, "commit", "-m", msg); err != nil {
		return false, err
	}
	return true, nil
}

// eventsPath is workspaceDir/events relative to the repo root.
func eventsPath(workspaceDir, repoRoot string) (string, bool, error) {
	// On macOS temp dirs may involve symlinks like /var -> /private/var, and git reports the
	// canonical root.
	if v, err := filepath.EvalSymlinks(workspaceDir); err == nil {
		workspaceDir = v
	}
	if v, err := filepath.EvalSymlinks(repoRoot); err == nil {
		repoRoot = v
	}
	if _, err := os.Stat(filepath.Join(workspaceDir, "events")); err != nil {
		return "", false, nil
	}
	rel, err := filepath.Rel(repoRoot, workspaceDir)
	if err != nil {
		return "", false, err
	}
	return filepath.Join(filepath.Clean(rel), "events"), true, nil
}

// StagedSummary describes the staged shard lines, e.g. "keykapp: 12 entries from 2 replicas".
func StagedSummary(ctx context.Context, repoRoot string) string {
	diff, err := git(ctx, repoRoot, "diff", "--cached", "--unified=0", "--no-color")
	if err != nil {
		return "keykapp: update shards"
	}
	entries, replicas := countAddedEntries(diff)
	if entries == 0 {
		return "keykapp: update shards"
	}
	return fmt.Sprintf("keykapp: %d %s from %d %s",
		entries, pluralWord(entries, "entry", "entries"),
		replicas, pluralWord(replicas, "replica", "replicas"))
}

// countAddedEntries counts added JSONL lines per shard file in a unified diff.
func countAddedEntries(diff string) (entries int, replicas int) {
	seen := map[string]bool{}
	file := ""
	for _, ln := range strings.Split(diff, "\n") {
		switch {
		case strings.HasPrefix(ln, "+++ "):
			file = strings.TrimPrefix(strings.TrimPrefix(ln, "+++ "), "b/")
		case strings.HasPrefix(ln, "+{"):
			base := filepath.Base(file)
			if !strings.HasPrefix(base, "events.") || !strings.HasSuffix(base, ".jsonl") {
				continue
			}
			entries++
			seen[base] = true
		}
	}
	return entries, len(seen)
}

func pluralWord(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
