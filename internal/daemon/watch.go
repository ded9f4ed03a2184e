package daemon

import (
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Delay between the last change event and the reload it triggers.
const watchDebounce = 250 * time.Millisecond

// Calls a function when one file changes.
//
// The parent directory is watched, not the file, so editors and atomic
// saves that replace the file by rename are still seen.
type watcher struct {
	fs       *fsnotify.Watcher
	file     string
	onChange func()

	mu    sync.Mutex
	timer *time.Timer
	wg    sync.WaitGroup
}

func newWatcher(path string, onChange func()) (*watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fs.Add(filepath.Dir(abs)); err != nil {
		fs.Close()
		return nil, err
	}

	w := &watcher{fs: fs, file: abs, onChange: onChange}
	w.wg.Add(1)
	go w.loop()

	slog.Debug("watching configuration file", "path", abs)
	return w, nil
}

func (w *watcher) loop() {
	defer w.wg.Done()
	for {
		select {
		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != w.file {
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename) {
				w.schedule()
			}
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			slog.Warn("configuration watch error", "error", err)
		}
	}
}

// Restarts the debounce timer.
func (w *watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(watchDebounce, w.onChange)
}

func (w *watcher) Close() error {
	err := w.fs.Close()
	w.wg.Wait()

	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()
	return err
}
