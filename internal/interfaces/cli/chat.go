package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	domainChat "github.com/pdfchat/pdfchat/internal/domain/chat"
)

// chat 进入对话。已加载的会话继续使用，否则新建会话
func (s *Shell) chat(ctx context.Context) error {
	stats, err := s.backend.Stats(ctx)
	if err != nil {
		return err
	}
	if stats.Chunks == 0 {
		fmt.Fprintln(s.out, warnStyle.Render("No documents uploaded. Please upload PDFs first."))
		return nil
	}

	var session *domainChat.Session
	if s.state.CurrentSessionID != "" {
		session, err = s.backend.LoadSession(ctx, s.state.CurrentSessionID)
		if err != nil {
			return err
		}
		fmt.Fprintln(s.out, successStyle.Render("Continuing chat session: "+session.ID))
	} else {
		session, err = s.backend.CreateSession(ctx, "")
		if err != nil {
			return err
		}
		s.state.CurrentSessionID = session.ID
		fmt.Fprintln(s.out, successStyle.Render("Started new chat session: "+session.ID))
	}

	if s.UseTUI {
		return s.runTUI(s.backend, session.ID, session.Turns)
	}
	return s.chatLoop(ctx, session.ID)
}

// chatLoop 逐行读取问题并流式输出回答，输入 exit 返回主循环
func (s *Shell) chatLoop(ctx context.Context, sessionID string) error {
	fmt.Fprintln(s.out, mutedStyle.Render("Type 'exit' to end the chat session.")+"\n")
	for {
		fmt.Fprint(s.out, userStyle.Render("You: "))
		line, ok := s.readLine()
		if !ok {
			fmt.Fprintln(s.out)
			return nil
		}
		switch strings.ToLower(line) {
		case "exit", "quit", "q":
			return nil
		case "":
			continue
		}

		if err := s.turn(ctx, sessionID, line); err != nil {
			if errors.Is(err, context.Canceled) {
				fmt.Fprintln(s.out, "\n"+warnStyle.Render("Chat session interrupted."))
				return nil
			}
			fmt.Fprintln(s.out, "\n"+errorStyle.Render("Error: "+err.Error()))
		}
	}
}

// turn 单轮问答，ctx 在 Ctrl+C 时取消，未完成的一轮不写入历史
func (s *Shell) turn(ctx context.Context, sessionID, question string) error {
	fmt.Fprint(s.out, "\n"+botStyle.Render("Assistant:")+" ")
	answer, err := s.backend.AskStream(ctx, sessionID, question, func(delta string) {
		fmt.Fprint(s.out, delta)
	})
	if err != nil {
		return err
	}
	fmt.Fprintln(s.out)

	if len(answer.Citations) > 0 {
		fmt.Fprintln(s.out, "\n"+mutedStyle.Render("Sources:"))
		for i, c := range answer.Citations {
			fmt.Fprintf(s.out, "  %d. %s (Page %d)\n", i+1, c.FileName, c.Page)
		}
	}
	fmt.Fprintln(s.out)
	return nil
}
