package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	domainChat "github.com/pdfchat/pdfchat/internal/domain/chat"
)

const (
	sessionListLimit = 20
	loadHistoryTurns = 10
	loadPreviewRunes = 200
)

var errUsage = errors.New("invalid usage")

type command struct {
	usage       string
	description string
}

var commands = []command{
	{"upload <pdf_files>", "Upload one or more PDF files"},
	{"chat", "Start interactive chat session"},
	{"sessions", "List all chat sessions"},
	{"load <session_id>", "Load a specific chat session"},
	{"new [name]", "Create a new chat session"},
	{"delete <session_id>", "Delete a chat session"},
	{"export <session_id> <file>", "Export a session as JSON"},
	{"import <file>", "Import a session from JSON"},
	{"documents", "List indexed documents"},
	{"stats", "Show document statistics"},
	{"check", "Check Ollama and the vector store"},
	{"clear", "Clear all documents and history"},
	{"help", "Show this help message"},
	{"quit", "Exit the application"},
}

func (s *Shell) dispatch(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "help":
		s.help()
		return nil
	case "upload":
		return s.upload(ctx, args)
	case "chat":
		return s.chat(ctx)
	case "sessions":
		return s.sessions(ctx)
	case "load":
		if len(args) != 1 {
			return fmt.Errorf("%w: load <session_id>", errUsage)
		}
		return s.load(ctx, args[0])
	case "new":
		return s.newSession(ctx, strings.Join(args, " "))
	case "delete":
		if len(args) != 1 {
			return fmt.Errorf("%w: delete <session_id>", errUsage)
		}
		return s.deleteSession(ctx, args[0])
	case "export":
		if len(args) != 2 {
			return fmt.Errorf("%w: export <session_id> <file>", errUsage)
		}
		return s.exportSession(ctx, args[0], args[1])
	case "import":
		if len(args) != 1 {
			return fmt.Errorf("%w: import <file>", errUsage)
		}
		return s.importSession(ctx, args[0])
	case "documents":
		return s.documents(ctx)
	case "stats":
		return s.stats(ctx)
	case "check":
		s.check(ctx)
		return nil
	case "clear":
		return s.clear(ctx)
	default:
		fmt.Fprintln(s.out, errorStyle.Render("Unknown command: "+cmd))
		fmt.Fprintln(s.out, "Type 'help' for available commands.")
		return nil
	}
}

func (s *Shell) welcome() {
	text := titleStyle.Render("Welcome to PDF Chat!") + "\n\n" +
		"Upload PDF documents, ask questions about them with a local Ollama model\n" +
		"and keep every conversation in a persistent history.\n\n" +
		"Type 'help' for available commands or 'quit' to exit."
	fmt.Fprintln(s.out, panelStyle.Render(text))
}

func (s *Shell) help() {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Available Commands:") + "\n\n")
	for _, c := range commands {
		b.WriteString(commandStyle.Render(fmt.Sprintf("%-28s", c.usage)) + c.description + "\n")
	}
	b.WriteString("\n" + titleStyle.Render("Examples:") + "\n")
	b.WriteString("  upload document1.pdf document2.pdf\n  chat\n  load 20241201_143022\n  stats")
	fmt.Fprintln(s.out, panelStyle.Render(b.String()))
}

func (s *Shell) upload(ctx context.Context, paths []string) error {
	if len(paths) == 0 {
		return errors.New("no PDF files specified")
	}

	results := s.backend.Upload(ctx, paths)
	for _, r := range results {
		switch {
		case r.Err != nil:
			fmt.Fprintln(s.out, errorStyle.Render(fmt.Sprintf("Failed to process %s: %v", r.FileName, r.Err)))
		case r.Skipped:
			fmt.Fprintln(s.out, mutedStyle.Render(fmt.Sprintf("Unchanged %s, skipped", r.FileName)))
		default:
			fmt.Fprintln(s.out, successStyle.Render(fmt.Sprintf("Processed %s (%d pages, %d chunks)", r.FileName, r.Pages, r.Chunks)))
			s.state.Uploaded = append(s.state.Uploaded, r.FileName)
		}
	}
	fmt.Fprintln(s.out, successStyle.Render("PDF upload completed!"))
	return nil
}

func (s *Shell) sessions(ctx context.Context) error {
	sessions, err := s.backend.ListSessions(ctx, sessionListLimit)
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		fmt.Fprintln(s.out, warnStyle.Render("No chat sessions found."))
		return nil
	}

	rows := make([][]string, 0, len(sessions))
	for _, sum := range sessions {
		rows = append(rows, []string{
			sum.ID,
			sum.Name,
			sum.CreatedAt.Local().Format("2006-01-02 15:04:05"),
			strconv.Itoa(sum.TurnCount),
		})
	}
	fmt.Fprintln(s.out, renderTable("Chat Sessions", []string{"Session ID", "Name", "Created", "Messages"}, rows))
	return nil
}

func (s *Shell) load(ctx context.Context, id string) error {
	session, err := s.backend.LoadSession(ctx, id)
	if err != nil {
		return err
	}
	s.state.CurrentSessionID = session.ID
	fmt.Fprintln(s.out, successStyle.Render("Loaded session: "+session.ID))

	if len(session.Turns) == 0 {
		fmt.Fprintln(s.out, warnStyle.Render("No messages in this session."))
		return nil
	}
	turns := session.Turns
	if len(turns) > loadHistoryTurns {
		turns = turns[len(turns)-loadHistoryTurns:]
	}
	fmt.Fprintln(s.out, "\n"+titleStyle.Render("Session History:"))
	for _, t := range turns {
		fmt.Fprintln(s.out, roleLabel(t.Role)+" "+truncate(t.Content, loadPreviewRunes))
	}
	return nil
}

func (s *Shell) newSession(ctx context.Context, name string) error {
	session, err := s.backend.CreateSession(ctx, name)
	if err != nil {
		return err
	}
	s.state.CurrentSessionID = session.ID
	fmt.Fprintln(s.out, successStyle.Render("Created session: "+session.ID))
	return nil
}

func (s *Shell) deleteSession(ctx context.Context, id string) error {
	if err := s.backend.DeleteSession(ctx, id); err != nil {
		return err
	}
	if s.state.CurrentSessionID == id {
		s.state.CurrentSessionID = ""
	}
	fmt.Fprintln(s.out, successStyle.Render("Deleted session: "+id))
	return nil
}

func (s *Shell) exportSession(ctx context.Context, id, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := s.backend.ExportSession(ctx, id, f); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	fmt.Fprintln(s.out, successStyle.Render(fmt.Sprintf("Exported session %s to %s", id, path)))
	return nil
}

func (s *Shell) importSession(ctx context.Context, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	session, err := s.backend.ImportSession(ctx, f)
	if err != nil {
		return err
	}
	fmt.Fprintln(s.out, successStyle.Render(fmt.Sprintf("Imported session %s (%d messages)", session.ID, len(session.Turns))))
	return nil
}

func (s *Shell) documents(ctx context.Context) error {
	docs, err := s.backend.Documents(ctx)
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		fmt.Fprintln(s.out, warnStyle.Render("No documents uploaded."))
		return nil
	}
	rows := make([][]string, 0, len(docs))
	for _, d := range docs {
		rows = append(rows, []string{
			d.FileName,
			strconv.Itoa(d.PageCount),
			strconv.Itoa(d.ChunkCount),
			d.IndexedAt.Local().Format("2006-01-02 15:04:05"),
		})
	}
	fmt.Fprintln(s.out, renderTable("Documents", []string{"File", "Pages", "Chunks", "Indexed"}, rows))
	return nil
}

func (s *Shell) stats(ctx context.Context) error {
	stats, err := s.backend.Stats(ctx)
	if err != nil {
		return err
	}
	rows := [][]string{
		{"Documents", strconv.Itoa(stats.Documents)},
		{"Total Document Chunks", strconv.Itoa(stats.Chunks)},
		{"Total Chat Sessions", strconv.Itoa(stats.Sessions)},
	}
	fmt.Fprintln(s.out, renderTable("System Statistics", []string{"Metric", "Value"}, rows))
	return nil
}

func (s *Shell) check(ctx context.Context) {
	for _, r := range s.backend.Check(ctx) {
		if r.OK {
			fmt.Fprintln(s.out, successStyle.Render("ok   ")+r.Name+mutedStyle.Render(" "+r.Detail))
		} else {
			fmt.Fprintln(s.out, errorStyle.Render("fail ")+r.Name+" "+errorStyle.Render(r.Detail))
		}
	}
}

func (s *Shell) clear(ctx context.Context) error {
	if !s.confirm("Are you sure you want to clear all data? This cannot be undone.") {
		fmt.Fprintln(s.out, mutedStyle.Render("Cancelled."))
		return nil
	}
	if err := s.backend.ClearAll(ctx); err != nil {
		return err
	}
	s.state = AppState{}
	fmt.Fprintln(s.out, successStyle.Render("All data cleared successfully."))
	return nil
}

func roleLabel(role domainChat.Role) string {
	if role == domainChat.RoleUser {
		return userStyle.Render("User:")
	}
	return botStyle.Render("Assistant:")
}

func truncate(text string, maxRunes int) string {
	runes := []rune(text)
	if len(runes) <= maxRunes {
		return text
	}
	return string(runes[:maxRunes]) + "..."
}
