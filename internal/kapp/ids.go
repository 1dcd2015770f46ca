package kapp

import "strconv"

const (
	UserlandPrefix = "/userland/kapp/"
	SystemPrefix   = "/system/kapp/"
	ASCIIPrefix    = UserlandPrefix + "literals/ascii/"
)

const (
	TextNew   = UserlandPrefix + "text/new"
	ListNew   = UserlandPrefix + "list/new"
	MoveBack  = UserlandPrefix + "sexp/move-back"
	MoveForth = UserlandPrefix + "sexp/move-forth"
	Delete    = UserlandPrefix + "sexp/delete"
	ZoomIn    = UserlandPrefix + "zoom/in"
	ZoomOut   = UserlandPrefix + "zoom/out"

	FocusNext  = UserlandPrefix + "focus/next"
	FocusPrev  = UserlandPrefix + "focus/prev"
	FocusFirst = UserlandPrefix + "focus/first"
	FocusLast  = UserlandPrefix + "focus/last"
	Upcase     = UserlandPrefix + "char/upcase"
	TextCopy   = UserlandPrefix + "text/copy"

	ModeInsert = SystemPrefix + "mode/insert"
	ModeMenu   = SystemPrefix + "mode/menu"
	Export     = SystemPrefix + "syncRoot/export"
	Undo       = SystemPrefix + "syncRoot/undo"
	Redo       = SystemPrefix + "syncRoot/redo"

	// Import is logged for documents grafted in from a file. It has no key binding.
	Import = SystemPrefix + "syncRoot/import"
)

// CharID is the action id that types the character with the given code point.
func CharID(code int) string { return ASCIIPrefix + strconv.Itoa(code) }
