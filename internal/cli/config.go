package cli

import (
	"os"

	"keykapp/internal/store"

	"github.com/spf13/cobra"
)

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or initialize the user configuration",
	}

	configPath := func() (string, error) {
		if app.ConfigPath != "" {
			return app.ConfigPath, nil
		}
		return store.ConfigPath()
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration and key table",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := configPath()
			if err != nil {
				return writeErr(cmd, err)
			}
			cfg, err := loadConfig(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			keys, err := cfg.KeyTable()
			if err != nil {
				return writeErr(cmd, err)
			}
			_, statErr := os.Stat(path)
			return writeOut(cmd, app, map[string]any{
				"data": cfg,
				"meta": map[string]any{
					"path":   path,
					"exists": statErr == nil,
					"keys":   keys.All(),
				},
			})
		},
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default config file (config.toml unless --config names another)",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := configPath()
			if err != nil {
				return writeErr(cmd, err)
			}
			if _, err := os.Stat(path); err == nil && !force {
				return writeOut(cmd, app, map[string]any{
					"data":   map[string]any{"path": path, "written": false},
					"_hints": []string{"keykapp config init --force"},
				})
			}
			if err := store.SaveConfig(store.DefaultConfig(), path); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{
				"data":   map[string]any{"path": path, "written": true},
				"_hints": []string{"keykapp config show"},
			})
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")

	cmd.AddCommand(show, initCmd)
	return cmd
}
