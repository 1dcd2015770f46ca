// Package publish writes a readable bundle of a replica's document into a directory: a markdown
// outline, the document as s-expression and EDN, and the full sync root as JSON.
package publish

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"keykapp/internal/format"
	"keykapp/internal/session"
)

type WriteOptions struct {
	Overwrite bool
	// Title heads index.md. Defaults to the replica id.
	Title string
	Now   func() time.Time
}

type WriteResult struct {
	Written []string `json:"written"`
}

// Write writes index.md, document.sexp, document.edn and syncroot.json into toDir.
// Existing files are only replaced with Overwrite.
func Write(root session.SyncRoot, toDir string, opt WriteOptions) (WriteResult, error) {
	toDir = strings.TrimSpace(toDir)
	if toDir == "" {
		return WriteResult{}, errors.New("missing --to")
	}
	toDir = filepath.Clean(toDir)
	if err := os.MkdirAll(toDir, 0o755); err != nil {
		return WriteResult{}, err
	}

	files := []struct {
		name   string
		render func(*bytes.Buffer) error
	}{
		{"index.md", func(b *bytes.Buffer) error {
			b.WriteString(RenderIndexMarkdown(root, opt))
			return nil
		}},
		{"document.sexp", func(b *bytes.Buffer) error { return format.WriteSexp(b, root.Document, true) }},
		{"document.edn", func(b *bytes.Buffer) error { return format.WriteEDN(b, root.Document, true) }},
		{"syncroot.json", func(b *bytes.Buffer) error { return format.WriteJSON(b, root, true) }},
	}

	var res WriteResult
	for _, f := range files {
		var buf bytes.Buffer
		if err := f.render(&buf); err != nil {
			return res, fmt.Errorf("%s: %w", f.name, err)
		}
		p := filepath.Join(toDir, f.name)
		if err := writeFile(p, buf.Bytes(), opt.Overwrite); err != nil {
			return res, err
		}
		res.Written = append(res.Written, p)
	}
	return res, nil
}

// RenderIndexMarkdown is the outline page with a short provenance header.
func RenderIndexMarkdown(root session.SyncRoot, opt WriteOptions) string {
	title := strings.TrimSpace(opt.Title)
	if title == "" {
		title = root.Replica
	}
	now := time.Now
	if opt.Now != nil {
		now = opt.Now
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", title)
	fmt.Fprintf(&b, "_%d log entries · replica %s · %s_\n\n", len(root.Log), root.Replica, now().UTC().Format("2006-01-02 15:04 UTC"))
	b.WriteString(format.MarkdownOutline(root.Document))
	return b.String()
}

func writeFile(path string, b []byte, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return errors.New("file exists (use --overwrite): " + path)
		}
	}
	return os.WriteFile(path, b, 0o644)
}
