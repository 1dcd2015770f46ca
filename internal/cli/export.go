package cli

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"keykapp/internal/format"
	"keykapp/internal/kapp"
	"keykapp/internal/session"
	"keykapp/internal/store"

	"github.com/spf13/cobra"
)

// writeSyncRoot is the export action's hook: the whole sync root as JSON in the store dir.
func writeSyncRoot(st store.Store, root session.SyncRoot) error {
	var buf bytes.Buffer
	if err := format.WriteJSON(&buf, root, true); err != nil {
		return err
	}
	return store.WriteFileAtomic(st.ExportPath(format.JSON), buf.Bytes())
}

func newExportCmd(app *App) *cobra.Command {
	var out string
	var documentOnly bool

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the sync root (document + log) or the document alone",
		Long: strings.TrimSpace(`
Without --out the export is printed. json/edn export the whole sync root unless --document is set;
sexp and md always export the document.
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := openWorkspace(cmd, app, nil)
			if err != nil {
				return writeErr(cmd, err)
			}
			root := ws.Session.SyncRoot()
			var v any = root
			if documentOnly || isDocumentFormat(app.Format) {
				v = root.Document
			}

			if out == "" {
				return writeOut(cmd, app, v)
			}
			var buf bytes.Buffer
			if err := format.Write(&buf, v, app.Format, app.PrettyJSON); err != nil {
				return writeErr(cmd, err)
			}
			if err := store.WriteFileAtomic(out, buf.Bytes()); err != nil {
				return writeErr(cmd, fmt.Errorf("export: %w", err))
			}
			// The file holds the export; stdout gets a JSON receipt.
			receipt := *app
			if isDocumentFormat(receipt.Format) {
				receipt.Format = format.JSON
			}
			return writeEnvelope(cmd, &receipt, map[string]any{
				"path":    out,
				"bytes":   buf.Len(),
				"entries": len(root.Log),
			}, nil, "keykapp import "+out)
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "Write to this file instead of stdout")
	cmd.Flags().BoolVar(&documentOnly, "document", false, "Export only the document tree")
	return cmd
}

func newImportCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <file.sexp|->",
		Short: "Graft an s-expression file into the document at the cursor",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			var src []byte
			var err error
			if path == "-" {
				var buf bytes.Buffer
				if _, err = buf.ReadFrom(cmd.InOrStdin()); err == nil {
					src = buf.Bytes()
				}
			} else {
				src, err = os.ReadFile(path)
			}
			if os.IsNotExist(err) {
				return writeErr(cmd, errNotFound("file", path))
			}
			if err != nil {
				return writeErr(cmd, err)
			}
			tree, err := format.ParseSexp(string(src))
			if err != nil {
				return writeErr(cmd, fmt.Errorf("%s: %w", path, err))
			}

			ws, err := openWorkspace(cmd, app, nil)
			if err != nil {
				return writeErr(cmd, err)
			}
			e, err := ws.Session.Import(tree)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeEnvelope(cmd, app, map[string]any{
				"entry":    e.ID.String(),
				"ops":      len(e.Ops),
				"imported": len(tree.Children),
			}, stateMeta(ws), "keykapp show", "keykapp run "+kapp.Undo)
		},
	}
	return cmd
}
