// Package watcher re-runs analysis when JavaScript or TypeScript sources
// change.
package watcher

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/hannajonsd/await-analysis/analyzer"
	"github.com/hannajonsd/await-analysis/config"
)

// DefaultDelay is how long the watcher waits for changes to settle
const DefaultDelay = 300 * time.Millisecond

type FileWatcher struct {
	watcher     *fsnotify.Watcher
	config      *config.Config
	filter      *analyzer.Analyzer
	mu          sync.Mutex
	watchedDirs map[string]bool
	debouncer   *debouncer
	logger      *slog.Logger
	started     bool
	done        chan struct{}
}

type FileChangeEvent struct {
	Path      string
	Operation string
	Timestamp time.Time
}

// FileChangeHandler receives the sorted, distinct paths of one settled
// batch of changes
type FileChangeHandler func([]string) error

func NewFileWatcher(cfg *config.Config, logger *slog.Logger) (*FileWatcher, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	return &FileWatcher{
		watcher:     watcher,
		config:      cfg,
		filter:      analyzer.New(cfg, nil),
		watchedDirs: make(map[string]bool),
		debouncer:   newDebouncer(DefaultDelay, logger),
		logger:      logger,
		done:        make(chan struct{}),
	}, nil
}

// Watch adds every directory under paths and starts delivering changes to
// handler in the background
func (fw *FileWatcher) Watch(paths []string, handler FileChangeHandler) error {
	for _, path := range paths {
		if err := fw.addPath(path); err != nil {
			return fmt.Errorf("failed to watch path %s: %w", path, err)
		}
	}
	fw.started = true
	go fw.eventLoop(handler)
	return nil
}

func (fw *FileWatcher) addPath(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	// single files are watched through their directory
	if !info.IsDir() {
		return fw.addDir(filepath.Dir(path))
	}

	return filepath.WalkDir(path, func(walkPath string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if walkPath != path && fw.shouldSkipDir(walkPath) {
			return filepath.SkipDir
		}
		return fw.addDir(walkPath)
	})
}

func (fw *FileWatcher) addDir(dir string) error {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	if fw.watchedDirs[dir] {
		return nil
	}
	if err := fw.watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to add directory %s to watcher: %w", dir, err)
	}
	fw.watchedDirs[dir] = true
	fw.logger.Debug("watching directory", slog.String("dir", dir))
	return nil
}

func (fw *FileWatcher) eventLoop(handler FileChangeHandler) {
	defer close(fw.done)
	for {
		select {
		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			fw.handleEvent(event, handler)
		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			fw.logger.Warn("file watcher error", slog.Any("error", err))
		}
	}
}

func (fw *FileWatcher) handleEvent(event fsnotify.Event, handler FileChangeHandler) {
	if event.Op&fsnotify.Create == fsnotify.Create {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() && !fw.shouldSkipDir(event.Name) {
			if err := fw.addPath(event.Name); err != nil {
				fw.logger.Warn("failed to watch new directory", slog.String("dir", event.Name), slog.Any("error", err))
			}
			return
		}
	}
	if event.Op == fsnotify.Chmod {
		return
	}
	if !fw.isSourceFile(event.Name) {
		return
	}
	changeEvent := FileChangeEvent{
		Path:      event.Name,
		Operation: eventOpToString(event.Op),
		Timestamp: time.Now(),
	}
	fw.logger.Debug("source changed", slog.String("file", changeEvent.Path), slog.String("op", changeEvent.Operation))
	fw.debouncer.add(changeEvent, handler)
}

func (fw *FileWatcher) isSourceFile(path string) bool {
	filename := filepath.Base(path)
	if strings.HasPrefix(filename, ".") || strings.HasSuffix(filename, "~") {
		return false
	}
	return fw.filter.Accepts(path)
}

func (fw *FileWatcher) shouldSkipDir(path string) bool {
	if analyzer.SkipDir(filepath.Base(path)) {
		return true
	}
	for _, pattern := range fw.config.Files.Exclude {
		if matched, _ := filepath.Match(pattern, filepath.ToSlash(path)); matched {
			return true
		}
	}
	return false
}

func eventOpToString(op fsnotify.Op) string {
	switch {
	case op&fsnotify.Create == fsnotify.Create:
		return "CREATE"
	case op&fsnotify.Write == fsnotify.Write:
		return "WRITE"
	case op&fsnotify.Remove == fsnotify.Remove:
		return "REMOVE"
	case op&fsnotify.Rename == fsnotify.Rename:
		return "RENAME"
	case op&fsnotify.Chmod == fsnotify.Chmod:
		return "CHMOD"
	default:
		return "UNKNOWN"
	}
}

// Close stops the watcher and waits for the event loop to exit
func (fw *FileWatcher) Close() error {
	fw.debouncer.stop()
	err := fw.watcher.Close()
	if fw.started {
		<-fw.done
	}
	return err
}

func (fw *FileWatcher) GetWatchedPaths() []string {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	paths := make([]string, 0, len(fw.watchedDirs))
	for path := range fw.watchedDirs {
		paths = append(paths, path)
	}
	return paths
}
