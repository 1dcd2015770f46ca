package cli

import (
	"keykapp/internal/store"

	"github.com/spf13/cobra"
)

func newReindexCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reindex",
		Short: "Rebuild the derived SQLite index from the JSONL log",
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := openWorkspace(cmd, app, nil)
			if err != nil {
				return writeErr(cmd, err)
			}
			st := indexState(ws)
			if err := ws.Store.Reindex(cmd.Context(), st); err != nil {
				return writeErr(cmd, err)
			}

			return writeOut(cmd, app, map[string]any{
				"data": map[string]any{
					"dir":     ws.Store.Root(),
					"index":   ws.Store.IndexPath(),
					"entries": len(st.Entries),
					"ngrams":  len(st.NGrams),
				},
				"meta": stateMeta(ws),
				"_hints": []string{
					"keykapp stats",
					"keykapp show --indexed",
				},
			})
		},
	}

	return cmd
}

func indexState(ws *workspace) store.IndexState {
	s := ws.Session
	return store.IndexState{
		Replica:  s.Replica(),
		Entries:  s.Log(),
		Document: s.Document().Snapshot(),
		NGrams:   s.Frequencies().Counts(),
	}
}
