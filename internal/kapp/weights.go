package kapp

// ManualWeights is the static base weight per action. Actions not listed weigh 0.
type ManualWeights map[string]int64

// DefaultWeights favours structural and navigation actions before any usage is recorded.
func DefaultWeights() ManualWeights {
	w := ManualWeights{
		TextCopy: 40,
		Undo:     150,
		Redo:     150,
	}
	for _, id := range []string{ZoomIn, ZoomOut, FocusNext, FocusPrev, FocusFirst, FocusLast, Delete, MoveBack, MoveForth, ListNew} {
		w[id] = 200
	}
	return w
}

func (w ManualWeights) Of(id string) int64 { return w[id] }

// With returns a copy of w with overrides applied on top.
func (w ManualWeights) With(overrides map[string]int64) ManualWeights {
	out := make(ManualWeights, len(w)+len(overrides))
	for k, v := range w {
		out[k] = v
	}
	for k, v := range overrides {
		if v < 0 {
			v = 0
		}
		out[k] = v
	}
	return out
}
