package cli

import (
	"errors"
	"strings"

	"keykapp/internal/gitrepo"

	"github.com/spf13/cobra"
)

func newSyncCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Sync shards through git (commit events/, pull --rebase, push), then merge",
	}

	var message string
	var noPush bool
	run := &cobra.Command{
		Use:   "run",
		Short: "Commit local shards, pull and push, and merge what arrived",
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := openWorkspace(cmd, app, nil)
			if err != nil {
				return writeErr(cmd, err)
			}
			res, err := gitrepo.Sync(cmd.Context(), ws.Store.Root(), message, !noPush)
			if err != nil {
				return writeErr(cmd, err)
			}
			if !res.Status.IsRepo {
				return writeErr(cmd, errors.New("workspace is not in a git repo (run `keykapp sync setup`)"))
			}

			entries, err := ws.Store.ReadEntries()
			if err != nil {
				return writeErr(cmd, err)
			}
			applied, err := ws.Session.Merge(entries)
			if err != nil {
				return writeErr(cmd, err)
			}

			hints := []string{"keykapp show"}
			if res.Status.Upstream == "" {
				hints = append(hints, "keykapp sync setup --remote <url>")
			}
			return writeEnvelope(cmd, app, map[string]any{
				"committed": res.Committed,
				"pulled":    res.Pulled,
				"pushed":    res.Pushed,
				"applied":   applied,
				"git":       res.Status,
			}, stateMeta(ws), hints...)
		},
	}
	run.Flags().StringVarP(&message, "message", "m", "", "Commit message (default: a summary of the new entries)")
	run.Flags().BoolVar(&noPush, "no-push", false, "Pull but do not push")

	var remote string
	var remoteName string
	setup := &cobra.Command{
		Use:   "setup",
		Short: "Make the workspace a git repo and optionally set its remote",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := resolveDir(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			ws, err := openWorkspace(cmd, app, nil)
			if err != nil {
				return writeErr(cmd, err)
			}
			root := ws.Store.Root()
			st, err := gitrepo.GetStatus(cmd.Context(), root)
			if err != nil {
				return writeErr(cmd, err)
			}
			if !st.IsRepo {
				if err := gitrepo.Init(cmd.Context(), root); err != nil {
					return writeErr(cmd, err)
				}
			}
			if strings.TrimSpace(remote) != "" {
				if err := gitrepo.SetRemoteURL(cmd.Context(), root, remoteName, remote); err != nil {
					return writeErr(cmd, err)
				}
			}
			st, err = gitrepo.GetStatus(cmd.Context(), root)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{
				"data": map[string]any{"dir": dir, "git": st},
				"_hints": []string{
					"keykapp sync run",
					"git push -u " + remoteName + " HEAD",
				},
			})
		},
	}
	setup.Flags().StringVar(&remote, "remote", "", "Remote URL to add (or update)")
	setup.Flags().StringVar(&remoteName, "remote-name", "origin", "Remote name")

	status := &cobra.Command{
		Use:   "status",
		Short: "Show the git status of the workspace",
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := openWorkspace(cmd, app, nil)
			if err != nil {
				return writeErr(cmd, err)
			}
			st, err := gitrepo.GetStatus(cmd.Context(), ws.Store.Root())
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": st})
		},
	}

	cmd.AddCommand(run, setup, status)
	return cmd
}
