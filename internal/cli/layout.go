package cli

import (
	"sort"
	"strings"

	"github.com/spf13/cobra"
)

type layoutRow struct {
	Action string   `json:"action"`
	Label  string   `json:"label"`
	Keys   []string `json:"keys"`
	Cost   int      `json:"cost"`
	Weight int64    `json:"weight"`
}

func newLayoutCmd(app *App) *cobra.Command {
	var action string
	var sortBy string

	cmd := &cobra.Command{
		Use:   "layout",
		Short: "List the key sequence assigned to every eligible action",
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := openWorkspace(cmd, app, nil)
			if err != nil {
				return writeErr(cmd, err)
			}
			s := ws.Session
			tree := s.Tree()

			var rows []layoutRow
			for _, l := range tree.Leaves() {
				if action != "" && l.Action != action {
					continue
				}
				keys, _ := tree.KeysOf(l.Action)
				label := l.Action
				if a, err := s.Registry().Lookup(l.Action); err == nil && a.ShortName != "" {
					label = a.ShortName
				}
				rows = append(rows, layoutRow{
					Action: l.Action,
					Label:  label,
					Keys:   keys,
					Cost:   l.Cost,
					Weight: l.Weight,
				})
			}
			if action != "" && len(rows) == 0 {
				return writeErr(cmd, errNotFound("eligible action", action))
			}

			switch strings.ToLower(strings.TrimSpace(sortBy)) {
			case "weight":
				sort.SliceStable(rows, func(i, j int) bool { return rows[i].Weight > rows[j].Weight })
			case "action":
				sort.SliceStable(rows, func(i, j int) bool { return rows[i].Action < rows[j].Action })
			}

			meta := stateMeta(ws)
			meta["treeCost"] = tree.Cost()
			if auto, ok := tree.AutoSelected(); ok {
				meta["auto"] = auto
			}
			return writeEnvelope(cmd, app, rows, meta, "keykapp press <key>...")
		},
	}

	cmd.Flags().StringVar(&action, "action", "", "Show only this action id")
	cmd.Flags().StringVar(&sortBy, "sort", "keys", "Row order (keys|weight|action)")
	return cmd
}
