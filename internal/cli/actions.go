package cli

import (
	"errors"
	"fmt"
	"strings"

	"keykapp/internal/kapp"
	"keykapp/internal/session"

	"github.com/spf13/cobra"
)

// pressResult is one step of a scripted press or run.
type pressResult struct {
	Input   string   `json:"input"`
	Action  string   `json:"action,omitempty"`
	Pending []string `json:"pending,omitempty"`
	Ignored bool     `json:"ignored,omitempty"`
	Entry   string   `json:"entry,omitempty"`
}

func toPressResult(input string, out session.Outcome) pressResult {
	r := pressResult{Input: input, Action: out.Action, Pending: out.Pending, Ignored: out.Ignored}
	if out.Entry != nil {
		r.Entry = out.Entry.ID.String()
	}
	return r
}

func newPressCmd(app *App) *cobra.Command {
	var back bool

	cmd := &cobra.Command{
		Use:   "press <key>...",
		Short: "Press keyswitches in order (as the keypad would)",
		Long: strings.TrimSpace(`
Each argument is one keyswitch id from the key table. A press that reaches a leaf executes its
action; a press that stops at an internal node leaves the path pending for the next key.
Pending paths are not persisted: a command that ends mid-path drops it.
`),
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := openWorkspace(cmd, app, nil)
			if err != nil {
				return writeErr(cmd, err)
			}
			var steps []pressResult
			var errs []error
			for _, key := range args {
				if back && key == "-" {
					ws.Session.Back()
					steps = append(steps, pressResult{Input: key, Pending: ws.Session.PendingKeys()})
					continue
				}
				out, err := ws.Session.OnKeyswitch(key)
				if errors.Is(err, session.ErrUnknownKeyswitch) {
					return writeErr(cmd, errNotFound("keyswitch", key))
				}
				if err != nil {
					errs = append(errs, fmt.Errorf("%s: %w", key, err))
				}
				steps = append(steps, toPressResult(key, out))
			}

			if err := writeEnvelope(cmd, app, steps, stateMeta(ws), "keykapp show", "keykapp layout"); err != nil {
				return err
			}
			if err := errors.Join(errs...); err != nil {
				return writeErr(cmd, err)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&back, "back", false, `Treat "-" as a back press (leave the last key of the pending path)`)
	return cmd
}

func newRunCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "run <action-id>...",
		Aliases: []string{"exec"},
		Short:   "Execute actions by id, bypassing the keyswitch tree",
		Example: strings.TrimSpace(`
  keykapp run /system/kapp/mode/insert /userland/kapp/text/new --text hello
  keykapp run /userland/kapp/zoom/out /userland/kapp/list/new
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, _ := cmd.Flags().GetString("text")
			ids := append([]string(nil), args...)
			ids = append(ids, textActions(text)...)
			if len(ids) == 0 {
				return writeErr(cmd, errors.New("nothing to run: pass action ids or --text"))
			}

			ws, err := openWorkspace(cmd, app, nil)
			if err != nil {
				return writeErr(cmd, err)
			}
			var steps []pressResult
			for _, id := range ids {
				out, err := ws.Session.Execute(id)
				if err != nil {
					_ = writeEnvelope(cmd, app, steps, stateMeta(ws))
					return writeErr(cmd, fmt.Errorf("%s: %w", id, err))
				}
				steps = append(steps, toPressResult(id, out))
			}
			return writeEnvelope(cmd, app, steps, stateMeta(ws), "keykapp show")
		},
	}

	cmd.Flags().String("text", "", "Append one character action per rune of this text (after any ids)")
	return cmd
}

// textActions maps text to character action ids. Characters without an action fail at run time.
func textActions(text string) []string {
	var ids []string
	for _, r := range text {
		ids = append(ids, kapp.CharID(int(r)))
	}
	return ids
}
