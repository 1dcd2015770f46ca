package cli

import (
	"os"

	"keykapp/internal/store"

	"github.com/spf13/cobra"
)

func newInitCmd(app *App) *cobra.Command {
	var writeConfig bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize local storage and this device's replica id",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := resolveDir(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			cfg, err := loadConfig(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			s := store.Store{Dir: dir}
			if err := s.Ensure(); err != nil {
				return writeErr(cmd, err)
			}
			dev, created, err := s.Device(cfg.ReplicaLabel)
			if err != nil {
				return writeErr(cmd, err)
			}

			configPath := ""
			if writeConfig {
				configPath = app.ConfigPath
				if configPath == "" {
					if configPath, err = store.ConfigPath(); err != nil {
						return writeErr(cmd, err)
					}
				}
				if _, err := os.Stat(configPath); os.IsNotExist(err) {
					if err := store.SaveConfig(cfg, configPath); err != nil {
						return writeErr(cmd, err)
					}
				}
			}

			return writeOut(cmd, app, map[string]any{
				"data": map[string]any{
					"dir":        s.Root(),
					"replicaId":  dev.ReplicaID,
					"deviceId":   dev.DeviceID,
					"created":    created,
					"shard":      s.ShardPath(dev.ReplicaID),
					"configPath": configPath,
				},
				"_hints": []string{
					"keykapp",
					"keykapp layout",
					"keykapp config show",
				},
			})
		},
	}

	cmd.Flags().BoolVar(&writeConfig, "config", false, "Also write a default config file when none exists")
	return cmd
}
