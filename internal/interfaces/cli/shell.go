package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/mattn/go-isatty"

	appChat "github.com/pdfchat/pdfchat/internal/application/chat"
	appDocument "github.com/pdfchat/pdfchat/internal/application/document"
	"github.com/pdfchat/pdfchat/internal/application/workspace"
	domainChat "github.com/pdfchat/pdfchat/internal/domain/chat"
	domainDocument "github.com/pdfchat/pdfchat/internal/domain/document"
	"github.com/pdfchat/pdfchat/internal/infrastructure/log"
	"github.com/pdfchat/pdfchat/internal/interfaces/tui"
)

const prompt = "pdfchat> "

// Backend 命令行使用的工作区能力，由 workspace.Manager 实现
type Backend interface {
	Upload(ctx context.Context, paths []string) []appDocument.UploadResult
	Documents(ctx context.Context) ([]*domainDocument.IndexedDocument, error)
	Stats(ctx context.Context) (*workspace.Stats, error)
	ClearAll(ctx context.Context) error
	CreateSession(ctx context.Context, name string) (*domainChat.Session, error)
	ListSessions(ctx context.Context, limit int) ([]domainChat.SessionSummary, error)
	LoadSession(ctx context.Context, id string) (*domainChat.Session, error)
	DeleteSession(ctx context.Context, id string) error
	ExportSession(ctx context.Context, id string, w io.Writer) error
	ImportSession(ctx context.Context, r io.Reader) (*domainChat.Session, error)
	AskStream(ctx context.Context, sessionID, question string, onDelta func(string)) (*appChat.Answer, error)
	Check(ctx context.Context) []workspace.CheckResult
}

// AppState 交互期间的状态
type AppState struct {
	CurrentSessionID string
	Uploaded         []string
}

// Options 一次性参数
type Options struct {
	Upload    []string
	Chat      bool
	SessionID string
}

// Shell 交互式命令行
type Shell struct {
	backend Backend
	in      *bufio.Scanner
	out     io.Writer
	state   AppState
	logger  *slog.Logger

	// UseTUI 为 true 时 chat 命令使用全屏界面
	UseTUI bool
	runTUI func(backend tui.ChatBackend, sessionID string, history []domainChat.Turn) error
}

// NewShell 创建命令行
func NewShell(backend Backend, in io.Reader, out io.Writer) *Shell {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &Shell{
		backend: backend,
		in:      scanner,
		out:     out,
		logger:  log.NewModuleLogger("cli", "shell"),
		runTUI:  tui.Run,
	}
}

// State 返回当前状态
func (s *Shell) State() AppState {
	return s.state
}

// IsTerminal 判断文件是否连接到终端
func IsTerminal(f *os.File) bool {
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// Start 先执行一次性参数，再进入对话或交互循环
func (s *Shell) Start(ctx context.Context, opts Options) error {
	if len(opts.Upload) > 0 {
		s.exec(ctx, func(ctx context.Context) error { return s.upload(ctx, opts.Upload) })
	}
	if opts.SessionID != "" {
		s.exec(ctx, func(ctx context.Context) error { return s.load(ctx, opts.SessionID) })
	}
	if opts.Chat {
		s.exec(ctx, s.chat)
		return nil
	}
	return s.Run(ctx)
}

// Run 交互循环，输入结束或 quit 时返回
func (s *Shell) Run(ctx context.Context) error {
	s.welcome()
	for {
		fmt.Fprint(s.out, "\n"+promptStyle.Render(prompt))
		line, ok := s.readLine()
		if !ok {
			fmt.Fprintln(s.out, warnStyle.Render("Goodbye!"))
			return s.in.Err()
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		cmd, args := strings.ToLower(fields[0]), fields[1:]
		if cmd == "quit" || cmd == "exit" || cmd == "q" {
			fmt.Fprintln(s.out, warnStyle.Render("Goodbye!"))
			return nil
		}
		s.exec(ctx, func(ctx context.Context) error { return s.dispatch(ctx, cmd, args) })
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

// exec 为每条命令建立可被 Ctrl+C 取消的上下文，错误渲染为一行后继续
func (s *Shell) exec(parent context.Context, fn func(ctx context.Context) error) {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := fn(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			fmt.Fprintln(s.out, warnStyle.Render("Interrupted."))
			return
		}
		s.logger.Debug("Command failed", "error", err)
		fmt.Fprintln(s.out, errorStyle.Render("Error: "+err.Error()))
	}
}

func (s *Shell) readLine() (string, bool) {
	if !s.in.Scan() {
		return "", false
	}
	return strings.TrimSpace(s.in.Text()), true
}

// confirm 读取 y/N 确认，默认否
func (s *Shell) confirm(question string) bool {
	fmt.Fprint(s.out, question+" [y/N]: ")
	answer, ok := s.readLine()
	if !ok {
		return false
	}
	answer = strings.ToLower(answer)
	return answer == "y" || answer == "yes"
}
