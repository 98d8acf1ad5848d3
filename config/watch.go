package config

import (
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/abyssdigger/lgrkit/errs"
	"github.com/abyssdigger/lgrkit/lgr"
	"github.com/abyssdigger/lgrkit/worker"
)

const DEFAULT_DEBOUNCE = 250 * time.Millisecond

// Watcher is a worker task re-applying the filter values of a config file to
// a registry each time the file changes. Editors tend to write a file in
// several steps, so a reload runs only after the file has been quiet for the
// debounce period. Reload results are logged into the registry; a file that
// fails to load leaves the current filters untouched.
//
//	w := worker.New(config.NewWatcher(path, reg, 0), worker.WithName("config"))
//	w.Start()
//	defer w.Close()
type Watcher struct {
	path     string
	reg      *lgr.Registry
	debounce time.Duration
	reloads  atomic.Uint64
	ready    chan struct{}
	once     sync.Once
}

// NewWatcher watches path ([DEFAULT_DEBOUNCE] is used for non-positive debounce).
func NewWatcher(path string, reg *lgr.Registry, debounce time.Duration) *Watcher {
	if debounce <= 0 {
		debounce = DEFAULT_DEBOUNCE
	}
	return &Watcher{path: path, reg: reg, debounce: debounce, ready: make(chan struct{})}
}

// Ready is closed once the first run has started watching the file.
func (w *Watcher) Ready() <-chan struct{} { return w.ready }

// Number of successful reloads
func (w *Watcher) Reloads() uint64 { return w.reloads.Load() }

// Run watches the directory of the file (so replaced files are noticed too)
// until the stop signal.
func (w *Watcher) Run(s *worker.Signal) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return errs.Resource(errs.IO_ACCESS, w.path, err)
	}
	defer fw.Close()
	if err := fw.Add(filepath.Dir(w.path)); err != nil {
		return errs.Resource(errs.IO_ACCESS, w.path, err)
	}
	w.reg.Debug("watching config `" + w.path + "`")
	w.once.Do(func() { close(w.ready) })

	file := filepath.Base(w.path)
	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()
	for {
		select {
		case <-s.Done():
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return errs.Runtime("config watcher events closed", nil)
			}
			if strings.EqualFold(filepath.Base(ev.Name), file) && ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				timer.Reset(w.debounce)
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return errs.Runtime("config watcher errors closed", nil)
			}
			w.reg.Warning("config watch error: " + err.Error())
			if strings.Contains(strings.ToLower(err.Error()), "overflow") {
				timer.Reset(w.debounce)
			}
		case <-timer.C:
			w.reload()
		}
	}
}

func (w *Watcher) reload() {
	cfg, err := Load(w.path)
	if err == nil {
		err = Apply(w.reg, cfg)
	}
	if err != nil {
		w.reg.Error("config reload failed: " + err.Error())
		return
	}
	w.reloads.Add(1)
	w.reg.Info("config reloaded: min_severity=" + cfg.MinSeverity)
}
