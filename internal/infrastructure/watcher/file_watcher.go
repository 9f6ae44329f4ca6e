package watcher

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/pdfchat/pdfchat/internal/domain/events"
	"github.com/pdfchat/pdfchat/internal/infrastructure/log"
)

// WatchConfig 目录监听配置
type WatchConfig struct {
	// Dir 监听的根目录，子目录一并监听
	Dir string
	// DebounceDelay 同一文件连续变更合并为一次事件的等待时间
	DebounceDelay time.Duration
}

// pendingChange 防抖窗口内累积的变更
type pendingChange struct {
	timer   *time.Timer
	created bool
}

// FileWatcher PDF 目录监听器
// 启动时为已有 PDF 发布 created 事件，之后把 fsnotify 事件防抖后发布到事件总线
type FileWatcher struct {
	config  WatchConfig
	bus     events.Publisher
	watcher *fsnotify.Watcher
	logger  *slog.Logger

	pendingMu sync.Mutex
	pending   map[string]*pendingChange

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewFileWatcher 创建目录监听器
func NewFileWatcher(config WatchConfig, bus events.Publisher) (*FileWatcher, error) {
	info, err := os.Stat(config.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed to stat watch dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("watch path is not a directory: %s", config.Dir)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	return &FileWatcher{
		config:  config,
		bus:     bus,
		watcher: w,
		logger:  log.NewModuleLogger("watcher", "file_watcher"),
		pending: make(map[string]*pendingChange),
		stopCh:  make(chan struct{}),
	}, nil
}

// Start 扫描已有文件并启动监听循环
func (fw *FileWatcher) Start() error {
	fw.logger.Info("Starting file watcher",
		"dir", fw.config.Dir,
		"debounce", fw.config.DebounceDelay,
	)

	if err := fw.addDirRecursive(fw.config.Dir); err != nil {
		fw.watcher.Close()
		return err
	}
	count := fw.scanDir(fw.config.Dir)
	fw.logger.Info("Initial scan completed", "files", count)

	fw.wg.Add(1)
	go fw.watchLoop()
	return nil
}

// Stop 停止监听，未触发的防抖事件被丢弃
func (fw *FileWatcher) Stop() {
	fw.stopOnce.Do(func() {
		close(fw.stopCh)
		fw.watcher.Close()
		fw.wg.Wait()

		fw.pendingMu.Lock()
		for _, p := range fw.pending {
			p.timer.Stop()
		}
		fw.pending = make(map[string]*pendingChange)
		fw.pendingMu.Unlock()

		fw.logger.Info("File watcher stopped")
	})
}

// scanDir 为目录下已有的 PDF 发布 created 事件
func (fw *FileWatcher) scanDir(dir string) int {
	count := 0
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() || !isPDF(path) {
			return nil
		}
		fw.publish(events.DocumentFileCreated, path)
		count++
		return nil
	})
	return count
}

// addDirRecursive 递归添加目录监听
func (fw *FileWatcher) addDirRecursive(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if err := fw.watcher.Add(path); err != nil {
			if path == dir {
				return fmt.Errorf("failed to watch %s: %w", path, err)
			}
			fw.logger.Debug("Failed to add directory to watch",
				"path", path,
				"error", err,
			)
		}
		return nil
	})
}

func (fw *FileWatcher) watchLoop() {
	defer fw.wg.Done()

	for {
		select {
		case <-fw.stopCh:
			return

		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			fw.handleFsEvent(event)

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			fw.logger.Error("Watcher error", "error", err)
		}
	}
}

// handleFsEvent 处理单个 fsnotify 事件
func (fw *FileWatcher) handleFsEvent(event fsnotify.Event) {
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			// 新建子目录：加入监听并补扫其中已有的文件
			if err := fw.addDirRecursive(event.Name); err == nil {
				fw.scanDir(event.Name)
			}
			return
		}
	}
	if !isPDF(event.Name) {
		return
	}
	if event.Has(fsnotify.Chmod) && !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return
	}
	fw.schedule(event.Name, event.Has(fsnotify.Create))
}

// schedule 重置该文件的防抖定时器
func (fw *FileWatcher) schedule(path string, created bool) {
	fw.pendingMu.Lock()
	defer fw.pendingMu.Unlock()

	if p, ok := fw.pending[path]; ok {
		p.timer.Stop()
		p.created = p.created || created
		p.timer = time.AfterFunc(fw.config.DebounceDelay, func() { fw.flush(path) })
		return
	}
	fw.pending[path] = &pendingChange{
		created: created,
		timer:   time.AfterFunc(fw.config.DebounceDelay, func() { fw.flush(path) }),
	}
}

// flush 防抖结束后按文件当前状态发布事件
func (fw *FileWatcher) flush(path string) {
	fw.pendingMu.Lock()
	p, ok := fw.pending[path]
	delete(fw.pending, path)
	fw.pendingMu.Unlock()
	if !ok {
		return
	}

	select {
	case <-fw.stopCh:
		return
	default:
	}

	info, err := os.Stat(path)
	switch {
	case err != nil:
		fw.publish(events.DocumentFileDeleted, path)
	case !info.Mode().IsRegular():
		return
	case p.created:
		fw.publish(events.DocumentFileCreated, path)
	default:
		fw.publish(events.DocumentFileModified, path)
	}
}

func (fw *FileWatcher) publish(eventType events.EventType, path string) {
	event := &events.DocumentFileEvent{
		EventType: eventType,
		FilePath:  path,
		EventTime: time.Now(),
	}
	if info, err := os.Stat(path); err == nil {
		event.ModTime = info.ModTime()
		event.FileSize = info.Size()
	}
	fw.bus.Publish(event)

	fw.logger.Debug("Document file event emitted",
		"type", eventType,
		"path", path,
	)
}

// isPDF 按后缀判断，忽略隐藏文件与编辑器临时文件
func isPDF(path string) bool {
	name := filepath.Base(path)
	if strings.HasPrefix(name, ".") || strings.HasPrefix(name, "~$") {
		return false
	}
	return strings.EqualFold(filepath.Ext(name), ".pdf")
}
