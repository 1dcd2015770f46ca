package gitrepo

import (
	"context"
	"strings"
)

func PullRebase(ctx context.Context, dir string) error {
	_, err := git(ctx, dir, "pull", "--rebase")
	return err
}

func Push(ctx context.Context, dir string) error {
	_, err := git(ctx, dir, "push")
	return err
}

func IsNonFastForwardPushErr(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, needle := range []string{
		"non-fast-forward",
		"fetch first",
		"rejected",
		"updates were rejected",
	} {
		if strings.Contains(msg, needle) {
			return true
		}
	}
	return false
}

type SyncResult struct {
	Committed bool   `json:"committed"`
	Pulled    bool   `json:"pulled"`
	Pushed    bool   `json:"pushed"`
	Status    Status `json:"status"`
}

// Sync commits local shards, then pulls and pushes when the branch has an upstream. A push
// rejected as non-fast-forward is retried once after another pull.
func Sync(ctx context.Context, workspaceDir string, message string, push bool) (SyncResult, error) {
	var res SyncResult
	committed, err := CommitShards(ctx, workspaceDir, message)
	if err != nil {
		return res, err
	}
	res.Committed = committed

	st, err := GetStatus(ctx, workspaceDir)
	if err != nil {
		return res, err
	}
	res.Status = st
	if !st.IsRepo || st.Upstream == "" {
		return res, nil
	}

	if err := PullRebase(ctx, st.Root); err != nil {
		return res, err
	}
	res.Pulled = true
	if push {
		err := Push(ctx, st.Root)
		if IsNonFastForwardPushErr(err) {
			if err = PullRebase(ctx, st.Root); err == nil {
				err = Push(ctx, st.Root)
			}
		}
		if err != nil {
			return res, err
		}
		res.Pushed = true
	}
	if st, err = GetStatus(ctx, workspaceDir); err == nil {
		res.Status = st
	}
	return res, nil
}
