package events

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// StartFSWatcher watches the workspace root for file changes made outside the
// bridge (editors, the assistant itself) and publishes normalized Events to
// the hub. Directories are watched recursively on a best-effort basis: the
// tree is seeded at startup and watchers are added lazily for directories
// created later, which is not guaranteed to catch every nested create on all
// OSes. The .git directory is never watched.
func StartFSWatcher(root string, hub *Hub) (func(), error) {
	if hub == nil {
		return func() {}, nil
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	var mu sync.Mutex
	watched := map[string]struct{}{}

	addWatch := func(dir string) {
		mu.Lock()
		defer mu.Unlock()
		if _, ok := watched[dir]; ok {
			return
		}
		if err := w.Add(dir); err != nil {
			slog.Debug("fswatch: failed to add watcher", "dir", dir, "error", err)
			return
		}
		watched[dir] = struct{}{}
		slog.Debug("fswatch: watching dir", "dir", dir)
	}

	// Seed: walk the tree and watch every directory except .git.
	filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			addWatch(path)
		}
		return nil
	})

	// Debounce event bursts per (path, type).
	type key struct {
		path string
		typ  string
	}
	var debMu sync.Mutex
	debounced := map[key]time.Time{}
	const debounceWindow = 200 * time.Millisecond

	coalescer := time.NewTicker(100 * time.Millisecond)
	stop := make(chan struct{})

	go func() {
		defer coalescer.Stop()
		for {
			select {
			case <-coalescer.C:
				now := time.Now()
				var toSend []key
				debMu.Lock()
				for k, t := range debounced {
					if now.Sub(t) >= debounceWindow {
						toSend = append(toSend, k)
						delete(debounced, k)
					}
				}
				debMu.Unlock()
				for _, k := range toSend {
					hub.Publish(Event{
						Type:  k.typ,
						Path:  k.path,
						Actor: &Actor{Kind: "fswatch"},
					})
				}
			case <-stop:
				return
			}
		}
	}()

	relPath := func(abs string) string {
		rel, err := filepath.Rel(root, abs)
		if err != nil || rel == "." {
			return ""
		}
		if rel == ".git" || strings.HasPrefix(rel, ".git"+string(os.PathSeparator)) {
			return ""
		}
		return rel
	}

	go func() {
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if ev.Op&fsnotify.Create == fsnotify.Create {
					if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
						if rel := relPath(ev.Name); rel != "" {
							addWatch(ev.Name)
						}
						continue
					}
				}

				rel := relPath(ev.Name)
				if rel == "" || strings.HasPrefix(filepath.Base(rel), ".bridge-write-") {
					continue
				}

				evtType := ""
				switch {
				case ev.Op&fsnotify.Create == fsnotify.Create:
					evtType = "file.created"
				case ev.Op&fsnotify.Remove == fsnotify.Remove,
					ev.Op&fsnotify.Rename == fsnotify.Rename:
					evtType = "file.deleted"
				case ev.Op&fsnotify.Write == fsnotify.Write:
					evtType = "file.updated"
				default:
					continue
				}

				debMu.Lock()
				debounced[key{path: rel, typ: evtType}] = time.Now()
				debMu.Unlock()

			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				slog.Debug("fswatch: watcher error", "error", err)
			}
		}
	}()

	stopFn := func() {
		close(stop)
		_ = w.Close()
	}
	return stopFn, nil
}
