package config

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const (
	DefaultPollInterval = 60 * time.Second
	debounce            = 100 * time.Millisecond
)

// Watcher calls OnChange when the file at Path is written or replaced. It runs
// fsnotify plus a slow mtime poll, so a missed or failed notification is still picked up.
type Watcher struct {
	Path         string
	PollInterval time.Duration
	OnChange     func(path string)

	mu      sync.Mutex
	lastMod time.Time
}

func NewWatcher(path string, onChange func(path string)) *Watcher {
	w := &Watcher{Path: path, PollInterval: DefaultPollInterval, OnChange: onChange}
	w.lastMod = w.modTime()
	return w
}

// Watch starts both loops and returns immediately. They stop with ctx.
func Watch(ctx context.Context, path string, onChange func(path string)) *Watcher {
	w := NewWatcher(path, onChange)
	w.Start(ctx)
	return w
}

func (w *Watcher) Start(ctx context.Context) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		log.Printf("[CONFIG] fsnotify unavailable (%v), polling %s every %s", err, w.Path, w.PollInterval)
	} else if err := fw.Add(filepath.Dir(w.Path)); err != nil {
		// editors replace the file, so the directory is watched rather than the file
		log.Printf("[CONFIG] cannot watch %s (%v), polling every %s", filepath.Dir(w.Path), err, w.PollInterval)
		fw.Close()
	} else {
		go w.notifyLoop(ctx, fw)
	}

	go w.pollLoop(ctx)
}

func (w *Watcher) notifyLoop(ctx context.Context, fw *fsnotify.Watcher) {
	defer fw.Close()
	target := filepath.Clean(w.Path)
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-fw.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				time.Sleep(debounce)
				w.CheckNow()
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			log.Printf("[CONFIG] watcher error: %v", err)
		}
	}
}

func (w *Watcher) pollLoop(ctx context.Context) {
	interval := w.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.CheckNow()
		}
	}
}

// CheckNow fires OnChange if the file's mtime moved since the last check. It reports
// whether a reload happened.
func (w *Watcher) CheckNow() bool {
	mod := w.modTime()
	if mod.IsZero() {
		return false
	}

	w.mu.Lock()
	if !mod.After(w.lastMod) {
		w.mu.Unlock()
		return false
	}
	w.lastMod = mod
	w.mu.Unlock()

	log.Printf("[CONFIG] %s changed, reloading", w.Path)
	w.OnChange(w.Path)
	return true
}

func (w *Watcher) modTime() time.Time {
	fi, err := os.Stat(w.Path)
	if err != nil {
		return time.Time{}
	}
	return fi.ModTime()
}
