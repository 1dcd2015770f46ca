package cli

import (
	"fmt"
	"strings"

	"keykapp/internal/doc"
	"keykapp/internal/format"
	"keykapp/internal/store"
	"keykapp/internal/tui"

	"github.com/spf13/cobra"
)

func isDocumentFormat(f string) bool {
	switch strings.ToLower(strings.TrimSpace(f)) {
	case format.Sexp, "sx", format.Markdown, "markdown":
		return true
	}
	return false
}

func newShowCmd(app *App) *cobra.Command {
	var render bool
	var indexed bool
	var width int

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the document and navigation state",
		Long: strings.TrimSpace(`
Prints the replica's state. json/edn print the full snapshot (document, navigation, pending keys,
legends); sexp and md print the document alone. --render draws the markdown outline for a terminal.
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			var document doc.Sexp
			var data any
			var meta map[string]any

			if indexed {
				dir, err := resolveDir(app)
				if err != nil {
					return writeErr(cmd, err)
				}
				st := store.Store{Dir: dir}
				d, ok, err := st.IndexedSnapshot(cmd.Context())
				if err != nil {
					return writeErr(cmd, err)
				}
				if !ok {
					return writeErr(cmd, errNotFound("index snapshot", st.IndexPath()))
				}
				document, data = d, map[string]any{"document": d}
			} else {
				ws, err := openWorkspace(cmd, app, nil)
				if err != nil {
					return writeErr(cmd, err)
				}
				snap := ws.Session.Snapshot()
				document, data, meta = snap.Document, snap, stateMeta(ws)
			}

			if render {
				out := tui.RenderMarkdown(format.MarkdownOutline(document), width)
				_, err := fmt.Fprintln(cmd.OutOrStdout(), out)
				return err
			}
			if isDocumentFormat(app.Format) {
				return writeOut(cmd, app, document)
			}
			return writeEnvelope(cmd, app, data, meta, "keykapp layout", "keykapp export")
		},
	}

	cmd.Flags().BoolVar(&render, "render", false, "Render the document outline as styled terminal markdown")
	cmd.Flags().BoolVar(&indexed, "indexed", false, "Read the document from the SQLite index instead of replaying the log")
	cmd.Flags().IntVar(&width, "width", 80, "Wrap width for --render")
	return cmd
}
