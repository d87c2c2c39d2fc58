package cache

import (
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

type dirWatcher struct {
	fsw  *fsnotify.Watcher
	done chan struct{}
	once sync.Once
}

// Watch invalidates cache entries as files under dir change on disk, so a
// long-lived cache does not have to wait for a Get to notice staleness.
func (c *MetadataCache) Watch(dir string) error {
	c.mu.Lock()
	w := c.watcher
	c.mu.Unlock()

	if w == nil {
		fsw, err := fsnotify.NewWatcher()
		if err != nil {
			return errors.WithMessage(err, "create watcher")
		}
		w = &dirWatcher{fsw: fsw, done: make(chan struct{})}
		c.mu.Lock()
		c.watcher = w
		c.mu.Unlock()
		go c.watchLoop(w)
	}
	return w.fsw.Add(dir)
}

// CloseWatcher stops invalidation-by-notification; the cache itself stays
// usable.
func (c *MetadataCache) CloseWatcher() error {
	c.mu.Lock()
	w := c.watcher
	c.watcher = nil
	c.mu.Unlock()
	if w == nil {
		return nil
	}
	w.once.Do(func() { close(w.done) })
	return w.fsw.Close()
}

func (c *MetadataCache) watchLoop(w *dirWatcher) {
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Remove|fsnotify.Rename|fsnotify.Create) == 0 {
				continue
			}
			c.mu.Lock()
			if entry, ok := c.entries[event.Name]; ok && entry.Valid {
				entry.Valid = false
				log.Debugf("metadata cache: invalidated %s (%s)", event.Name, event.Op)
			}
			c.mu.Unlock()
			// Directory-level churn (renames, removals) can strand entries
			// for children; sweep the prefix too.
			if event.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
				c.InvalidateDirectory(event.Name)
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			log.Debugf("metadata cache watcher: %s", err)
		}
	}
}
