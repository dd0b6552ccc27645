package filesystem

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/quarry/internal/logger"
)

// ChangeType classifies a file system change.
type ChangeType string

// Change types.
const (
	ChangeCreated ChangeType = "created"
	ChangeUpdated ChangeType = "updated"
	ChangeDeleted ChangeType = "deleted"
)

// Change is one text file that appeared, changed or went away.
type Change struct {
	Type ChangeType
	Path string
}

// Watch reports changes to text files below the source root until ctx is
// cancelled. New subdirectories are watched as they appear. The returned
// channel is closed when watching stops.
func (s *Source) Watch(ctx context.Context) (<-chan Change, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := addTree(w, s.root); err != nil {
		w.Close()
		return nil, err
	}

	changes := make(chan Change)
	go func() {
		defer close(changes)
		defer w.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				logger.Warn("watch %s: %v", s.root, err)
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if ev.Has(fsnotify.Create) {
					if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() && !isHidden(filepath.Base(ev.Name)) {
						if err := addTree(w, ev.Name); err != nil {
							logger.Warn("watch %s: %v", ev.Name, err)
						}
						continue
					}
				}
				change, ok := handleEvent(ev)
				if !ok {
					continue
				}
				select {
				case changes <- change:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return changes, nil
}

// handleEvent maps an fsnotify event onto a Change. Directories, hidden
// files, non-text files and chmod-only events are ignored.
func handleEvent(ev fsnotify.Event) (Change, bool) {
	if isHidden(filepath.Base(ev.Name)) || !IsText(ev.Name) {
		return Change{}, false
	}
	switch {
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		return Change{Type: ChangeDeleted, Path: ev.Name}, true
	case ev.Has(fsnotify.Create):
		return Change{Type: ChangeCreated, Path: ev.Name}, true
	case ev.Has(fsnotify.Write):
		return Change{Type: ChangeUpdated, Path: ev.Name}, true
	default:
		return Change{}, false
	}
}

// addTree watches dir and every non-hidden directory below it.
func addTree(w *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return fmt.Errorf("watch %s: %w", dir, err)
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && isHidden(d.Name()) {
			return filepath.SkipDir
		}
		if err := w.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}
