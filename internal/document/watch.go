package document

import (
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/youruser/mend/internal/logging"
)

var log = logging.Get()

// Watcher keeps a document in sync with a backing file. When the file is
// written by another program, the buffer is reloaded and the version bumped,
// so a rewrite snapshotted before the external write is detected as stale.
type Watcher struct {
	watcher *fsnotify.Watcher
	path    string
	done    chan struct{}
}

// Watch starts watching path. onReload runs after every external reload with
// the new snapshot; it is invoked from the watcher goroutine, so it must do
// its own locking before touching the document.
func Watch(path string, onReload func(text string)) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	// Watch the directory: editors that write via rename (vim, sed -i)
	// replace the inode, which drops a file-level watch.
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		fw.Close()
		return nil, err
	}

	w := &Watcher{watcher: fw, path: abs, done: make(chan struct{})}
	go w.run(onReload)
	return w, nil
}

func (w *Watcher) run(onReload func(text string)) {
	// Small debounce: editors often emit a write burst for one save.
	var pending *time.Timer
	fire := make(chan struct{}, 1)

	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Name != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if pending != nil {
				pending.Stop()
			}
			pending = time.AfterFunc(50*time.Millisecond, func() {
				select {
				case fire <- struct{}{}:
				default:
				}
			})
		case <-fire:
			data, err := os.ReadFile(w.path)
			if err != nil {
				log.Debug("watch: reload failed for %s: %v", w.path, err)
				continue
			}
			log.Info("watch: external change to %s (%d bytes)", w.path, len(data))
			onReload(string(data))
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Error("watch: %v", err)
		}
	}
}

// Close stops the watcher.
func (w *Watcher) Close() {
	close(w.done)
	w.watcher.Close()
}
