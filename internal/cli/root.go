package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"keykapp/internal/format"
	"keykapp/internal/kapp"
	"keykapp/internal/logging"
	"keykapp/internal/model"
	"keykapp/internal/session"
	"keykapp/internal/store"
	"keykapp/internal/tui"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type App struct {
	Dir        string
	ConfigPath string
	LogLevel   string
	PrettyJSON bool
	Format     string
}

func NewRootCmd() *cobra.Command {
	app := &App{}

	cmd := &cobra.Command{
		Use:          "keykapp",
		Short:        "Keykapp: a keyswitch-driven structural editor (CLI + keypad TUI)",
		SilenceUsage: true,
		Example: strings.TrimSpace(`
  # Start the interactive keypad
  keykapp

  # Press keyswitches from a script
  keykapp press f j j

  # Run actions by id and print the document
  keykapp run /system/kapp/mode/insert /userland/kapp/text/new --text hi
  keykapp show --format sexp
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			// No subcommand => interactive keypad.
			if cmd.HasSubCommands() && len(args) == 0 {
				return runTUI(cmd, app)
			}
			return cmd.Help()
		},
	}

	cmd.PersistentFlags().StringVar(&app.Dir, "dir", envOr(store.EnvDir, ""), "Path to the .keykapp store dir (default: discovered from the working directory)")
	cmd.PersistentFlags().StringVar(&app.ConfigPath, "config", envOr("KEYKAPP_CONFIG", ""), "Path to config.toml / config.yaml (default: ~/.keykapp/config.toml)")
	cmd.PersistentFlags().StringVar(&app.LogLevel, "log-level", envOr(logging.EnvLevel, ""), "Log level (debug|info|warn|error); overrides the config")
	cmd.PersistentFlags().BoolVar(&app.PrettyJSON, "pretty", false, "Pretty-print output")
	cmd.PersistentFlags().StringVar(&app.Format, "format", envOr("KEYKAPP_FORMAT", "json"), "Output format (json|edn|sexp|md)")

	cmd.AddCommand(newInitCmd(app))
	cmd.AddCommand(newDocsCmd(app))
	cmd.AddCommand(newConfigCmd(app))
	cmd.AddCommand(newPressCmd(app))
	cmd.AddCommand(newRunCmd(app))
	cmd.AddCommand(newShowCmd(app))
	cmd.AddCommand(newLayoutCmd(app))
	cmd.AddCommand(newLogCmd(app))
	cmd.AddCommand(newExportCmd(app))
	cmd.AddCommand(newImportCmd(app))
	cmd.AddCommand(newMergeCmd(app))
	cmd.AddCommand(newReindexCmd(app))
	cmd.AddCommand(newStatsCmd(app))
	cmd.AddCommand(newWatchCmd(app))
	cmd.AddCommand(newSyncCmd(app))
	cmd.AddCommand(newPublishCmd(app))

	return cmd
}

// workspace is everything a command needs to drive one replica.
type workspace struct {
	Store   store.Store
	Config  *store.Config
	Device  store.DeviceFile
	Log     *logrus.Logger
	Session *session.Session
}

func resolveDir(app *App) (string, error) {
	if strings.TrimSpace(app.Dir) != "" {
		return app.Dir, nil
	}
	dir, err := store.DefaultDir()
	if err != nil {
		return "", err
	}
	app.Dir = dir
	return dir, nil
}

func loadConfig(app *App) (*store.Config, error) {
	if strings.TrimSpace(app.ConfigPath) != "" {
		return store.LoadConfigFile(app.ConfigPath)
	}
	return store.LoadConfig()
}

// openWorkspace loads config, device and the stored log, and opens a session whose entries are
// appended to this replica's shard as they are committed.
func openWorkspace(cmd *cobra.Command, app *App, extra func(*session.Options)) (*workspace, error) {
	dir, err := resolveDir(app)
	if err != nil {
		return nil, err
	}
	cfg, err := loadConfig(app)
	if err != nil {
		return nil, err
	}
	keys, err := cfg.KeyTable()
	if err != nil {
		return nil, err
	}
	level := cfg.LogLevel
	if strings.TrimSpace(app.LogLevel) != "" {
		level = app.LogLevel
	}
	log := logging.New(level, cmd.ErrOrStderr())

	st := store.Store{Dir: dir}
	if err := st.Ensure(); err != nil {
		return nil, err
	}
	dev, created, err := st.Device(cfg.ReplicaLabel)
	if err != nil {
		return nil, err
	}
	if created {
		log.WithFields(logrus.Fields{"replica": dev.ReplicaID, "dir": dir}).Info("new replica")
	}
	entries, err := st.ReadEntries()
	if err != nil {
		return nil, err
	}

	opts := session.Options{
		Replica: dev.ReplicaID,
		Keys:    keys,
		Weights: kapp.DefaultWeights().With(cfg.Weights),
		Logger:  log,
		Persist: func(e model.Entry) error {
			return st.Append(context.Background(), e)
		},
		Export: func(root session.SyncRoot) error {
			return writeSyncRoot(st, root)
		},
	}
	if extra != nil {
		extra(&opts)
	}
	s, err := session.Open(opts, entries)
	if err != nil {
		return nil, err
	}
	return &workspace{Store: st, Config: cfg, Device: dev, Log: log, Session: s}, nil
}

func runTUI(cmd *cobra.Command, app *App) error {
	ws, err := openWorkspace(cmd, app, func(o *session.Options) {
		o.Copy = tui.CopyToClipboard
	})
	if err != nil {
		return writeErr(cmd, err)
	}
	return tui.Run(cmd.Context(), tui.Options{
		Session: ws.Session,
		Store:   ws.Store,
		Log:     ws.Log,
	})
}

// stateMeta summarizes a session for the "meta" part of an output envelope.
func stateMeta(ws *workspace) map[string]any {
	snap := ws.Session.Snapshot()
	return map[string]any{
		"replica":   snap.Replica,
		"mode":      snap.Mode,
		"entries":   snap.Entries,
		"waiting":   snap.Waiting,
		"eligible":  len(snap.Eligible),
		"undoDepth": snap.Undo,
		"redoDepth": snap.Redo,
	}
}

func envOr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func writeOut(cmd *cobra.Command, app *App, v any) error {
	return format.Write(cmd.OutOrStdout(), v, app.Format, app.PrettyJSON)
}

// writeEnvelope writes a data/meta/_hints envelope. Document-only formats get the data alone.
func writeEnvelope(cmd *cobra.Command, app *App, data any, meta map[string]any, hints ...string) error {
	switch strings.ToLower(strings.TrimSpace(app.Format)) {
	case format.Sexp, "sx", format.Markdown, "markdown":
		return writeOut(cmd, app, data)
	}
	env := map[string]any{"data": data}
	if meta != nil {
		env["meta"] = meta
	}
	if len(hints) > 0 {
		env["_hints"] = hints
	}
	return writeOut(cmd, app, env)
}

func writeErr(cmd *cobra.Command, err error) error {
	fmt.Fprintln(cmd.ErrOrStderr(), err.Error())
	return err
}
