package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/pdfchat/pdfchat/internal/infrastructure/config"
	applog "github.com/pdfchat/pdfchat/internal/infrastructure/log"
	"github.com/pdfchat/pdfchat/internal/infrastructure/singleton"
	"github.com/pdfchat/pdfchat/internal/interfaces/cli"
	"github.com/pdfchat/pdfchat/internal/wire"
)

// stringList 可重复的字符串参数
type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }

func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

const usage = `Usage:
  pdfchat [flags] [file.pdf ...]   interactive shell, files are uploaded first
  pdfchat [flags] serve            HTTP + WebSocket + MCP-SSE server
  pdfchat [flags] mcp              MCP server over stdio
  pdfchat [flags] watch <dir>      index PDFs in dir and keep watching
  pdfchat [flags] config           print the effective configuration

Flags:
`

func main() {
	// .env 不存在时忽略
	_ = godotenv.Load()
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("pdfchat", flag.ContinueOnError)
	var (
		uploads    stringList
		chat       bool
		sessionID  string
		configPath string
		addr       string
	)
	fs.Var(&uploads, "upload", "PDF file to upload (repeatable)")
	fs.BoolVar(&chat, "chat", false, "Start a chat session immediately")
	fs.StringVar(&sessionID, "session", "", "Load a specific session ID")
	fs.StringVar(&configPath, "config", "", "Path to YAML config file (default <data_dir>/config.yaml)")
	fs.StringVar(&addr, "addr", "", "Listen address for serve (overrides server.addr)")
	fs.Usage = func() {
		fmt.Fprint(fs.Output(), usage)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "pdfchat:", err)
		return 1
	}
	if addr != "" {
		cfg.Server.Addr = addr
	}

	rest := fs.Args()
	command := ""
	if len(rest) > 0 {
		switch rest[0] {
		case "serve", "mcp", "watch", "config":
			command, rest = rest[0], rest[1:]
		}
	}

	if command == "serve" && os.Getenv("LOG_LEVEL") == "" && cfg.Log.Level == "warn" {
		cfg.Log.Level = "info"
	}
	applog.Init(&cfg.Log)
	defer applog.Close()

	switch command {
	case "config":
		return printConfig(cfg)
	case "serve":
		return serve(cfg)
	case "mcp":
		return withApp(cfg, func(ctx context.Context, app *wire.App) error {
			return app.RunMCP(ctx)
		})
	case "watch":
		if len(rest) != 1 {
			fmt.Fprintln(os.Stderr, "pdfchat: usage: pdfchat watch <dir>")
			return 2
		}
		dir := rest[0]
		return withApp(cfg, func(ctx context.Context, app *wire.App) error {
			fmt.Fprintf(os.Stderr, "Watching %s, press Ctrl+C to stop\n", dir)
			return app.Watch(ctx, dir)
		})
	}

	// 交互模式：额外的位置参数视为待上传文件
	opts := cli.Options{
		Upload:    append([]string(uploads), rest...),
		Chat:      chat,
		SessionID: sessionID,
	}
	return interactive(cfg, opts)
}

func printConfig(cfg *config.Config) int {
	data, err := cfg.YAML()
	if err != nil {
		fmt.Fprintln(os.Stderr, "pdfchat:", err)
		return 1
	}
	os.Stdout.Write(data)
	return 0
}

// withApp 组装服务并在 SIGINT/SIGTERM 前运行 fn
func withApp(cfg *config.Config, fn func(ctx context.Context, app *wire.App) error) int {
	app, cleanup, err := wire.InitializeApp(cfg)
	if err != nil {
		applog.GetLogger().Error("Failed to initialize application", "error", err)
		fmt.Fprintln(os.Stderr, "pdfchat:", err)
		return 1
	}
	defer cleanup()
	defer app.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := fn(ctx, app); err != nil && !errors.Is(err, context.Canceled) {
		applog.GetLogger().Error("Application stopped with error", "error", err)
		fmt.Fprintln(os.Stderr, "pdfchat:", err)
		return 1
	}
	return 0
}

func serve(cfg *config.Config) int {
	// 单例锁：端口已被健康实例占用时直接退出
	listener, err := singleton.CheckAndLock(cfg.Server.Addr)
	if errors.Is(err, singleton.ErrAlreadyRunning) {
		fmt.Fprintln(os.Stderr, "pdfchat:", err)
		return 0
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "pdfchat:", err)
		return 1
	}

	return withApp(cfg, func(ctx context.Context, app *wire.App) error {
		fmt.Fprintf(os.Stderr, "Serving on http://%s\n", listener.Addr())
		return app.Serve(ctx, listener)
	})
}

func interactive(cfg *config.Config, opts cli.Options) int {
	app, cleanup, err := wire.InitializeApp(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "pdfchat:", err)
		return 1
	}
	defer cleanup()
	defer app.Close()

	shell := cli.NewShell(app.Workspace, os.Stdin, os.Stdout)
	shell.UseTUI = cli.IsTerminal(os.Stdin) && cli.IsTerminal(os.Stdout)

	if err := shell.Start(context.Background(), opts); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintln(os.Stderr, "pdfchat:", err)
		return 1
	}
	return 0
}
