package singleton

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"syscall"
	"time"
)

// HealthCheckTimeout 健康检查超时时间
const HealthCheckTimeout = 2 * time.Second

var (
	// ErrAlreadyRunning 地址上已有健康的 pdfchat serve 实例
	ErrAlreadyRunning = errors.New("another pdfchat server is already running")

	// ErrAddrBusy 地址被占用且不是健康的 pdfchat 实例
	ErrAddrBusy = errors.New("address in use by another process")
)

// CheckAndLock 监听 addr 作为单实例锁，成功时返回的 listener 直接交给 HTTP 服务器使用
// 地址被占用时通过 /health 判断是否为已运行的实例
func CheckAndLock(addr string) (net.Listener, error) {
	listener, err := net.Listen("tcp", addr)
	if err == nil {
		return listener, nil
	}

	if isAddrInUse(err) {
		if isInstanceRunning(addr) {
			return nil, fmt.Errorf("%w at %s", ErrAlreadyRunning, addr)
		}
		return nil, fmt.Errorf("%w: %s", ErrAddrBusy, addr)
	}
	return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
}

// isAddrInUse 检查错误是否是地址已在使用
func isAddrInUse(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, syscall.EADDRINUSE) {
		return true
	}
	// Windows: WSAEADDRINUSE (10048)
	var errno syscall.Errno
	if errors.As(err, &errno) && errno == 10048 {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "address already in use") ||
		strings.Contains(msg, "Only one usage of each socket address")
}

// healthURL 由监听地址得到本机健康检查地址，通配地址改用回环地址
func healthURL(addr string) string {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return ""
	}
	switch host {
	case "", "0.0.0.0", "::":
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, port) + "/health"
}

// isInstanceRunning 检查地址上是否有健康的实例
func isInstanceRunning(addr string) bool {
	url := healthURL(addr)
	if url == "" {
		return false
	}

	client := &http.Client{Timeout: HealthCheckTimeout}
	resp, err := client.Get(url)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}
