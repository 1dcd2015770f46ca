// Package gitrepo syncs a workspace's shards through git: commit events/, pull --rebase, push.
// Shards are append-only and one per replica, so rebases of shard commits do not conflict
// unless a shard was edited by hand.
package gitrepo

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

type Status struct {
	IsRepo bool `json:"isRepo"`

	Root     string `json:"root,omitempty"`
	Branch   string `json:"branch,omitempty"`
	Upstream string `json:"upstream,omitempty"`
	Head     string `json:"head,omitempty"`

	Dirty bool `json:"dirty"`
	// DirtyTracked ignores untracked files (??). The sqlite index and device file are local-only
	// and usually untracked.
	DirtyTracked bool `json:"dirtyTracked"`
	Unmerged     bool `json:"unmerged"`

	InProgress     bool   `json:"inProgress"`
	InProgressKind string `json:"inProgressKind,omitempty"` // merge|rebase|cherry-pick|revert

	Ahead  int `json:"ahead,omitempty"`
	Behind int `json:"behind,omitempty"`
}

func GetStatus(ctx context.Context, dir string) (Status, error) {
	root, err := git(ctx, dir, "rev-parse", "--show-toplevel")
	if err != nil {
		// "not a git repository" is common; treat as non-repo rather than error.
		return Status{IsRepo: false}, nil
	}
	root = strings.TrimSpace(root)
	if root == "" {
		return Status{}, errors.New("git rev-parse returned empty root")
	}

	branch, _ := git(ctx, dir, "rev-parse", "--abbrev-ref", "HEAD")
	head, _ := git(ctx, dir, "rev-parse", "--short", "HEAD")
	upstream, _ := git(ctx, dir, "rev-parse", "--abbrev-ref", "--symbolic-full-name", "@{u}")

	porcelain, _ := git(ctx, dir, "status", "--porcelain=v1")
	dirty, unmerged := parsePorcelain(porcelain)
	porcelainTracked, _ := git(ctx, dir, "status", "--porcelain=v1", "--untracked-files=no")
	dirtyTracked, _ := parsePorcelain(porcelainTracked)

	inProgress, inProgressKind := detectInProgress(ctx, dir)

	st := Status{
		IsRepo:         true,
		Root:           root,
		Branch:         strings.TrimSpace(branch),
		Upstream:       strings.TrimSpace(upstream),
		Head:           strings.TrimSpace(head),
		Dirty:          dirty,
		DirtyTracked:   dirtyTracked,
		Unmerged:       unmerged,
		InProgress:     inProgress,
		InProgressKind: inProgressKind,
	}
	if st.Upstream != "" {
		if counts, err := git(ctx, dir, "rev-list", "--left-right", "--count", "HEAD...@{u}"); err == nil {
			if a, b, ok := parseAheadBehind(counts); ok {
				st.Ahead, st.Behind = a, b
			}
		}
	}
	return st, nil
}

func git(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return "", fmt.Errorf("git %s: %s", strings.Join(args, " "), msg)
	}
	return stdout.String(), nil
}

func parsePorcelain(out string) (dirty bool, unmerged bool) {
	for _, ln := range strings.Split(out, "\n") {
		ln = strings.TrimRight(ln, "\r")
		if len(ln) < 2 {
			continue
		}
		xy := ln[:2]
		if strings.TrimSpace(xy) == "" {
			continue
		}
		dirty = true
		if isUnmergedXY(xy) {
			unmerged = true
		}
	}
	return dirty, unmerged
}

func detectInProgress(ctx context.Context, dir string) (bool, string) {
	for _, c := range []struct{ ref, kind string }{
		{"MERGE_HEAD", "merge"},
		{"REBASE_HEAD", "rebase"},
		{"CHERRY_PICK_HEAD", "cherry-pick"},
		{"REVERT_HEAD", "revert"},
	} {
		cmd := exec.CommandContext(ctx, "git", "rev-parse", "--verify", "-q", c.ref)
		cmd.Dir = dir
		if cmd.Run() == nil {
			return true, c.kind
		}
	}
	return false, ""
}

func isUnmergedXY(xy string) bool {
	if len(xy) != 2 {
		return false
	}
	switch xy {
	case "DD", "AU", "UD", "UA", "DU", "AA", "UU":
		return true
	}
	return xy[0] == 'U' || xy[1] == 'U'
}

// parseAheadBehind reads `git rev-list --left-right --count HEAD...@{u}` ("<ahead>\t<behind>").
func parseAheadBehind(out string) (ahead int, behind int, ok bool) {
	fields := strings.Fields(strings.TrimSpace(out))
	if len(fields) != 2 {
		return 0, 0, false
	}
	a, err1 := strconv.Atoi(fields[0])
	b, err2 := strconv.Atoi(fields[1])
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}
	return a, b, true
}
