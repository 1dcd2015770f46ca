package cli

import (
	"keykapp/internal/publish"

	"github.com/spf13/cobra"
)

func newPublishCmd(app *App) *cobra.Command {
	var to string
	var title string
	var overwrite bool

	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Write the document as a readable bundle (markdown, sexp, edn, json) into a directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := openWorkspace(cmd, app, nil)
			if err != nil {
				return writeErr(cmd, err)
			}
			res, err := publish.Write(ws.Session.SyncRoot(), to, publish.WriteOptions{
				Overwrite: overwrite,
				Title:     title,
			})
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{
				"data": res,
				"meta": stateMeta(ws),
			})
		},
	}

	cmd.Flags().StringVar(&to, "to", "", "Output directory")
	cmd.Flags().StringVar(&title, "title", "", "Title for index.md (default: replica id)")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace existing files")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}
