package vector

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"sync"
	"time"

	"github.com/qdrant/go-client/qdrant"

	domainRAG "github.com/pdfchat/pdfchat/internal/domain/rag"
	"github.com/pdfchat/pdfchat/internal/infrastructure/config"
	"github.com/pdfchat/pdfchat/internal/infrastructure/log"
)

// readyTimeout 本地 Qdrant 启动等待时间
const readyTimeout = 10 * time.Second

// QdrantManager Qdrant 连接管理器
// external 模式直接连接；local 模式首次使用时启动本地二进制，存储放在数据目录下
type QdrantManager struct {
	cfg         *config.QdrantConfig
	storagePath string
	cmd         *exec.Cmd
	client      *qdrant.Client
	mu          sync.Mutex
	logger      *slog.Logger
}

// NewQdrantManager 创建 Qdrant 管理器
func NewQdrantManager(cfg *config.Config) *QdrantManager {
	return &QdrantManager{
		cfg:         &cfg.Qdrant,
		storagePath: cfg.QdrantStoragePath(),
		logger:      log.NewModuleLogger("vector", "qdrant_manager"),
	}
}

// Client 返回可用的客户端，必要时建立连接或启动本地进程
func (q *QdrantManager) Client(ctx context.Context) (*qdrant.Client, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.client != nil {
		return q.client, nil
	}

	if q.cfg.Mode == config.QdrantModeLocal {
		if err := q.startLocal(); err != nil {
			return nil, fmt.Errorf("%w: %v", domainRAG.ErrStore, err)
		}
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host: q.cfg.Host,
		Port: q.cfg.Port,
	})
	if err != nil {
		q.stopLocal()
		return nil, fmt.Errorf("%w: failed to connect to qdrant at %s:%d: %v", domainRAG.ErrStore, q.cfg.Host, q.cfg.Port, err)
	}

	if q.cmd != nil {
		if err := waitForReady(ctx, client, readyTimeout); err != nil {
			client.Close()
			q.stopLocal()
			return nil, fmt.Errorf("%w: qdrant failed to become ready: %v", domainRAG.ErrStore, err)
		}
	}

	q.client = client
	q.logger.Debug("Qdrant client connected",
		"mode", q.cfg.Mode,
		"host", q.cfg.Host,
		"port", q.cfg.Port,
	)
	return client, nil
}

// Ping 检查服务是否可用
func (q *QdrantManager) Ping(ctx context.Context) error {
	client, err := q.Client(ctx)
	if err != nil {
		return err
	}
	if _, err := client.ListCollections(ctx); err != nil {
		return fmt.Errorf("%w: %v", domainRAG.ErrStore, err)
	}
	return nil
}

// Stop 关闭连接并停止本地进程
func (q *QdrantManager) Stop() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.client != nil {
		_ = q.client.Close()
		q.client = nil
	}
	return q.stopLocal()
}

// startLocal 启动本地 Qdrant 进程
func (q *QdrantManager) startLocal() error {
	binaryPath, err := q.resolveBinary()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(q.storagePath, 0755); err != nil {
		return fmt.Errorf("failed to create qdrant storage directory: %w", err)
	}

	args := []string{
		"--storage-path", q.storagePath,
		"--grpc-port", strconv.Itoa(q.cfg.Port),
		"--http-port", strconv.Itoa(q.cfg.Port - 1),
	}
	q.cmd = exec.Command(binaryPath, args...)
	// 进程输出不写入终端，避免干扰交互界面
	q.cmd.Stdout = nil
	q.cmd.Stderr = nil

	if err := q.cmd.Start(); err != nil {
		q.cmd = nil
		return fmt.Errorf("failed to start qdrant: %w", err)
	}

	q.logger.Info("Local qdrant started",
		"binary", binaryPath,
		"storage_path", q.storagePath,
		"pid", q.cmd.Process.Pid,
	)
	return nil
}

// stopLocal 停止本地进程
func (q *QdrantManager) stopLocal() error {
	if q.cmd == nil || q.cmd.Process == nil {
		return nil
	}
	if err := q.cmd.Process.Kill(); err != nil {
		return fmt.Errorf("failed to kill qdrant process: %w", err)
	}
	_ = q.cmd.Wait()
	q.cmd = nil
	q.logger.Info("Local qdrant stopped")
	return nil
}

// resolveBinary 查找 Qdrant 二进制，优先使用配置路径
func (q *QdrantManager) resolveBinary() (string, error) {
	if q.cfg.BinaryPath != "" {
		if _, err := os.Stat(q.cfg.BinaryPath); err != nil {
			return "", fmt.Errorf("qdrant binary not found at %s", q.cfg.BinaryPath)
		}
		return q.cfg.BinaryPath, nil
	}
	path, err := exec.LookPath("qdrant")
	if err != nil {
		return "", fmt.Errorf("qdrant binary not found in PATH; set qdrant.binary_path or use qdrant.mode external")
	}
	return path, nil
}

// waitForReady 轮询直到 ListCollections 成功
func waitForReady(ctx context.Context, client *qdrant.Client, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		if _, err := client.ListCollections(ctx); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for qdrant to be ready")
		case <-ticker.C:
		}
	}
}
