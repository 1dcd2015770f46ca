package cli

import (
	"strings"

	"keykapp/internal/model"

	"github.com/spf13/cobra"
)

type logRow struct {
	ID       string          `json:"id"`
	Action   string          `json:"action"`
	Kind     model.EntryKind `json:"kind"`
	Ops      int             `json:"ops"`
	Target   string          `json:"target,omitempty"`
	IssuedAt string          `json:"issuedAt"`
}

func newLogCmd(app *App) *cobra.Command {
	var limit int
	var replica string
	var full bool

	cmd := &cobra.Command{
		Use:   "log",
		Short: "List log entries in causal order (most recent last)",
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := openWorkspace(cmd, app, nil)
			if err != nil {
				return writeErr(cmd, err)
			}
			entries := ws.Session.Log()
			if replica = strings.TrimSpace(replica); replica != "" {
				kept := entries[:0]
				for _, e := range entries {
					if e.ID.Replica == replica {
						kept = append(kept, e)
					}
				}
				entries = kept
			}
			total := len(entries)
			if limit > 0 && len(entries) > limit {
				entries = entries[len(entries)-limit:]
			}

			meta := stateMeta(ws)
			meta["matched"] = total
			if full {
				return writeEnvelope(cmd, app, entries, meta)
			}
			rows := make([]logRow, 0, len(entries))
			for _, e := range entries {
				r := logRow{
					ID:       e.ID.String(),
					Action:   e.Action,
					Kind:     e.Kind,
					Ops:      len(e.Ops),
					IssuedAt: e.IssuedAt.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
				}
				if !e.Target.IsZero() {
					r.Target = e.Target.String()
				}
				rows = append(rows, r)
			}
			return writeEnvelope(cmd, app, rows, meta, "keykapp log --full", "keykapp stats")
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 50, "Show at most this many entries (0 = all)")
	cmd.Flags().StringVar(&replica, "replica", "", "Only entries issued by this replica")
	cmd.Flags().BoolVar(&full, "full", false, "Print whole entries (ops and navigation)")
	return cmd
}
