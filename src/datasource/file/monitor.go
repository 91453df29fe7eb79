// monitor.go
package file

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// FileMonitor watches the data directory for fresh results exports.
type FileMonitor struct {
	watchDir string
	watcher  *fsnotify.Watcher
	lastFile string
	lastMod  time.Time
	mu       sync.Mutex
}

func NewFileMonitor(dir string) (*FileMonitor, error) {
	if err := ensureDir(dir); err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, err
	}

	return &FileMonitor{
		watchDir: dir,
		watcher:  watcher,
	}, nil
}

func (m *FileMonitor) Close() error {
	return m.watcher.Close()
}

// Watch invokes handler for every new write to a .csv or .xlsx file. The
// modtime check drops the duplicate events editors and network copies
// produce for a single delivery.
func (m *FileMonitor) Watch(handler func(string)) error {
	for {
		select {
		case event, ok := <-m.watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&fsnotify.Write == fsnotify.Write && isDataFile(event.Name) {
				info, err := os.Stat(event.Name)
				if err != nil {
					continue
				}

				if m.shouldProcess(event.Name, info.ModTime()) {
					go handler(event.Name)
				}
			}
		case err, ok := <-m.watcher.Errors:
			if !ok {
				return nil
			}
			return err
		}
	}
}

// shouldProcess dedupes repeated write events: the same file only fires
// again when its modtime advances, while a different file always fires.
func (m *FileMonitor) shouldProcess(name string, mod time.Time) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if name == m.lastFile && !mod.After(m.lastMod) {
		return false
	}
	m.lastFile = name
	m.lastMod = mod
	return true
}

func isDataFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv", ".xlsx":
		return true
	}
	return false
}
