package cli

import (
	"context"
	"os"
	"os/signal"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func newWatchCmd(app *App) *cobra.Command {
	var reindex bool
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Merge other replicas' shards as they change, printing one line per merge",
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := openWorkspace(cmd, app, nil)
			if err != nil {
				return writeErr(cmd, err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}

			changes, err := ws.Store.Watch(ctx, ws.Log, ws.Device.ReplicaID)
			if err != nil {
				return writeErr(cmd, err)
			}
			ws.Log.WithField("dir", ws.Store.Root()).Info("watching shards")

			for range changes {
				entries, err := ws.Store.ReadEntries()
				if err != nil {
					ws.Log.WithError(err).Warn("read log")
					continue
				}
				applied, err := ws.Session.Merge(entries)
				if err != nil {
					ws.Log.WithError(err).Warn("merge")
					continue
				}
				if applied == 0 {
					continue
				}
				if reindex {
					if err := ws.Store.Reindex(ctx, indexState(ws)); err != nil {
						ws.Log.WithError(err).Warn("reindex")
					}
				}
				ws.Log.WithFields(logrus.Fields{"applied": applied}).Debug("watch merge")
				if err := writeOut(cmd, app, map[string]any{
					"data": map[string]any{"applied": applied},
					"meta": stateMeta(ws),
				}); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&reindex, "reindex", true, "Refresh the SQLite index after each merge")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "Stop watching after this long (0 = until interrupted)")
	return cmd
}
