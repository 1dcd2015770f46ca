package cli

import (
	"keykapp/internal/store"

	"github.com/spf13/cobra"
)

func newStatsCmd(app *App) *cobra.Command {
	var n int
	var limit int
	var refresh bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Action counts and the most frequent action sequences (from the SQLite index)",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := resolveDir(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			st := store.Store{Dir: dir}
			if refresh {
				ws, err := openWorkspace(cmd, app, nil)
				if err != nil {
					return writeErr(cmd, err)
				}
				if err := ws.Store.Reindex(cmd.Context(), indexState(ws)); err != nil {
					return writeErr(cmd, err)
				}
			}

			counts, err := st.ActionCounts(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			grams, err := st.TopNGrams(cmd.Context(), n, limit)
			if err != nil {
				return writeErr(cmd, err)
			}

			var total int64
			for _, c := range counts {
				total += c.Count
			}
			return writeOut(cmd, app, map[string]any{
				"data": map[string]any{
					"actions": counts,
					"ngrams":  grams,
				},
				"meta": map[string]any{
					"index":   st.IndexPath(),
					"entries": total,
					"n":       n,
				},
				"_hints": []string{
					"keykapp reindex",
					"keykapp stats --n 3",
				},
			})
		},
	}

	cmd.Flags().IntVar(&n, "n", 2, "Sequence length for the n-gram table (1-7)")
	cmd.Flags().IntVar(&limit, "limit", 20, "Show at most this many sequences")
	cmd.Flags().BoolVar(&refresh, "refresh", true, "Reindex before querying")
	return cmd
}
