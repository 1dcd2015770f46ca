package store

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"keykapp/internal/model"
)

type EntryLine struct {
	Path  string
	Line  int
	Entry model.Entry
}

func (s Store) eventsDir() string {
	return filepath.Join(s.workspaceRoot(), "events")
}

// ShardPath is the append-only file holding one replica's entries.
func (s Store) ShardPath(replicaID string) string {
	replicaID = strings.TrimSpace(replicaID)
	if replicaID == "" {
		return filepath.Join(s.eventsDir(), "events.jsonl")
	}
	return filepath.Join(s.eventsDir(), fmt.Sprintf("events.%s.jsonl", replicaID))
}

// Append writes entries to the shard of their replica. Each replica only ever appends to its
// own shard, so shards from other devices can be copied in without conflicts.
func (s Store) Append(ctx context.Context, entries ...model.Entry) error {
	if len(entries) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(s.eventsDir(), 0o755); err != nil {
		return err
	}

	byShard := map[string][]model.Entry{}
	var shards []string
	for _, e := range entries {
		if e.ID.IsZero() {
			return errors.New("append: entry without id")
		}
		p := s.ShardPath(e.ID.Replica)
		if _, ok := byShard[p]; !ok {
			shards = append(shards, p)
		}
		byShard[p] = append(byShard[p], e)
	}
	sort.Strings(shards)

	for _, path := range shards {
		var buf bytes.Buffer
		for _, e := range byShard[path] {
			line, err := json.Marshal(e)
			if err != nil {
				return err
			}
			buf.Write(line)
			buf.WriteByte('\n')
		}
		f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return err
		}
		if _, err := f.Write(buf.Bytes()); err != nil {
			_ = f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
	}
	return nil
}

// Shards lists the shard files, sorted by name.
func (s Store) Shards() ([]string, error) {
	dir := s.eventsDir()
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []string{}, nil
		}
		return nil, err
	}
	var paths []string
	for _, ent := range entries {
		if ent.IsDir() {
			continue
		}
		name := ent.Name()
		if !isShardName(name) {
			continue
		}
		paths = append(paths, filepath.Join(dir, name))
	}
	sort.Strings(paths)
	if paths == nil {
		paths = []string{}
	}
	return paths, nil
}

// ReadEntryLines reads every shard, keeping file and line for error reporting.
func (s Store) ReadEntryLines() ([]EntryLine, error) {
	paths, err := s.Shards()
	if err != nil {
		return nil, err
	}
	var out []EntryLine
	for _, p := range paths {
		lines, err := ReadShard(p)
		if err != nil {
			return nil, err
		}
		out = append(out, lines...)
	}
	if out == nil {
		out = []EntryLine{}
	}
	return out, nil
}

// ReadEntries returns the merged log: every shard, deduplicated by id, in causal order.
func (s Store) ReadEntries() ([]model.Entry, error) {
	lines, err := s.ReadEntryLines()
	if err != nil {
		return nil, err
	}
	seen := map[model.OpID]bool{}
	out := make([]model.Entry, 0, len(lines))
	for _, l := range lines {
		if seen[l.Entry.ID] {
			continue
		}
		seen[l.Entry.ID] = true
		out = append(out, l.Entry)
	}
	model.SortEntries(out)
	return out, nil
}

// ReadShard parses one JSONL file. Blank lines are skipped; malformed lines fail with path:line.
func ReadShard(path string) ([]EntryLine, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []EntryLine{}, nil
		}
		return nil, err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)

	var out []EntryLine
	lineNo := 0
	for sc.Scan() {
		lineNo++
		b := bytes.TrimSpace(sc.Bytes())
		if len(b) == 0 {
			continue
		}
		var e model.Entry
		if err := json.Unmarshal(b, &e); err != nil {
			return nil, fmt.Errorf("%s:%d: %w", path, lineNo, err)
		}
		if e.ID.IsZero() {
			return nil, fmt.Errorf("%s:%d: entry without id", path, lineNo)
		}
		out = append(out, EntryLine{Path: path, Line: lineNo, Entry: e})
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if out == nil {
		out = []EntryLine{}
	}
	return out, nil
}

// ImportShard copies entries from a foreign shard file into the local log directory under
// their own replicas' shards, skipping ids that are already present. It returns the new entries.
func (s Store) ImportShard(ctx context.Context, path string) ([]model.Entry, error) {
	lines, err := ReadShard(path)
	if err != nil {
		return nil, err
	}
	have, err := s.ReadEntries()
	if err != nil {
		return nil, err
	}
	known := make(map[model.OpID]bool, len(have))
	for _, e := range have {
		known[e.ID] = true
	}
	var fresh []model.Entry
	for _, l := range lines {
		if known[l.Entry.ID] {
			continue
		}
		known[l.Entry.ID] = true
		fresh = append(fresh, l.Entry)
	}
	if err := s.Append(ctx, fresh...); err != nil {
		return nil, err
	}
	return fresh, nil
}
