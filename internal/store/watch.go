package store

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

const watchDebounce = 100 * time.Millisecond

// Watch signals on the returned channel when any shard in events/ is written, for example by a
// sync tool copying in another replica's shard. Bursts are coalesced and a signal carries no
// data: the receiver rereads the log and merges. Writes to ownReplica's shard are not
// signalled, since the caller already holds those entries. The channel is closed when ctx is
// done.
func (s Store) Watch(ctx context.Context, log *logrus.Logger, ownReplica string) (<-chan struct{}, error) {
	if err := s.Ensure(); err != nil {
		return nil, err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := w.Add(s.eventsDir()); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("watch %s: %w", s.eventsDir(), err)
	}
	own := ""
	if strings.TrimSpace(ownReplica) != "" {
		own = filepath.Base(s.ShardPath(ownReplica))
	}
	out := make(chan struct{}, 1)
	go watchLoop(ctx, w, out, own, log)
	return out, nil
}

func watchLoop(ctx context.Context, w *fsnotify.Watcher, out chan struct{}, own string, log *logrus.Logger) {
	var timer *time.Timer
	tick := make(chan struct{}, 1)
	fire := func() {
		select {
		case tick <- struct{}{}:
		default:
		}
	}
	defer func() {
		if timer != nil {
			timer.Stop()
		}
		_ = w.Close()
		close(out)
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-tick:
			select {
			case out <- struct{}{}:
			default:
			}
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			name := filepath.Base(ev.Name)
			if !isShardName(name) || name == own {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(watchDebounce, fire)
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			if log != nil {
				log.WithError(err).Warn("shard watcher")
			}
		}
	}
}

func isShardName(name string) bool {
	return strings.HasPrefix(name, "events") && strings.HasSuffix(name, ".jsonl")
}
