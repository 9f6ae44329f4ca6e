package document

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/pdfchat/pdfchat/internal/domain/events"
	"github.com/pdfchat/pdfchat/internal/infrastructure/config"
	"github.com/pdfchat/pdfchat/internal/infrastructure/log"
	"github.com/pdfchat/pdfchat/internal/infrastructure/watcher"
)

// watchQueueSize 待处理文件事件缓冲
const watchQueueSize = 256

// WatchService 监听目录并把 PDF 变更串行送入索引
type WatchService struct {
	ingest   *IngestService
	debounce time.Duration
	logger   *slog.Logger

	// OnResult 每个文件处理完成后回调，可为空
	OnResult func(UploadResult)
}

// NewWatchService 创建目录监听服务
func NewWatchService(ingest *IngestService, cfg *config.WatchConfig) *WatchService {
	debounce := time.Duration(cfg.DebounceMillis) * time.Millisecond
	if debounce <= 0 {
		debounce = 2 * time.Second
	}
	return &WatchService{
		ingest:   ingest,
		debounce: debounce,
		logger:   log.NewModuleLogger("document", "watch"),
	}
}

// Run 索引目录中已有 PDF 后持续监听，直到 ctx 取消
// 所有索引操作在同一个 worker goroutine 中执行
func (s *WatchService) Run(ctx context.Context, dir string) error {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return err
	}

	bus := watcher.NewEventBus()
	defer bus.Close()

	queue := make(chan *events.DocumentFileEvent, watchQueueSize)
	unsubscribe := bus.SubscribeMultiple(
		[]events.EventType{events.DocumentFileCreated, events.DocumentFileModified, events.DocumentFileDeleted},
		events.HandlerFunc(func(event events.Event) error {
			fileEvent, ok := event.(*events.DocumentFileEvent)
			if !ok {
				return nil
			}
			select {
			case queue <- fileEvent:
			case <-ctx.Done():
			}
			return nil
		}),
	)
	defer unsubscribe()

	fw, err := watcher.NewFileWatcher(watcher.WatchConfig{Dir: abs, DebounceDelay: s.debounce}, bus)
	if err != nil {
		return err
	}
	if err := fw.Start(); err != nil {
		return err
	}
	defer fw.Stop()

	s.logger.Info("Watching directory", "dir", abs)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Watch stopped", "dir", abs)
			return nil
		case event := <-queue:
			s.handle(ctx, event)
		}
	}
}

func (s *WatchService) handle(ctx context.Context, event *events.DocumentFileEvent) {
	if event.EventType == events.DocumentFileDeleted {
		name := filepath.Base(event.FilePath)
		if err := s.ingest.Remove(ctx, name); err != nil {
			s.logger.Warn("Failed to remove document",
				"file", name,
				"error", err,
			)
		}
		return
	}

	result := s.ingest.IndexFile(ctx, event.FilePath)
	if s.OnResult != nil {
		s.OnResult(result)
	}
}
