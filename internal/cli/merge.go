package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"keykapp/internal/model"
	"keykapp/internal/store"

	"github.com/spf13/cobra"
)

// shardPaths expands a workspace directory into its shard files; files pass through.
func shardPaths(arg string) ([]string, error) {
	info, err := os.Stat(arg)
	if os.IsNotExist(err) {
		return nil, errNotFound("shard", arg)
	}
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{arg}, nil
	}
	return store.Store{Dir: arg}.Shards()
}

func newMergeCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "merge <shard.jsonl|workspace-dir>...",
		Short: "Merge entries from other replicas' shards into this workspace",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := openWorkspace(cmd, app, nil)
			if err != nil {
				return writeErr(cmd, err)
			}

			var fresh []model.Entry
			var sources []string
			for _, arg := range args {
				paths, err := shardPaths(arg)
				if err != nil {
					return writeErr(cmd, err)
				}
				for _, p := range paths {
					abs, _ := filepath.Abs(p)
					if filepath.Dir(abs) == filepath.Dir(ws.Store.ShardPath(ws.Device.ReplicaID)) {
						// Already part of this workspace's log.
						continue
					}
					got, err := ws.Store.ImportShard(cmd.Context(), p)
					if err != nil {
						return writeErr(cmd, fmt.Errorf("import %s: %w", p, err))
					}
					fresh = append(fresh, got...)
					sources = append(sources, p)
				}
			}

			applied, err := ws.Session.Merge(fresh)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeEnvelope(cmd, app, map[string]any{
				"sources": sources,
				"fresh":   len(fresh),
				"applied": applied,
			}, stateMeta(ws), "keykapp show", "keykapp reindex")
		},
	}
	return cmd
}
