package chat

import (
	"fmt"
	"strings"

	domainChat "github.com/pdfchat/pdfchat/internal/domain/chat"
	domainRAG "github.com/pdfchat/pdfchat/internal/domain/rag"
)

const (
	noDocumentsContext = "No relevant documents found."
	answerInstruction  = "Based on the following documents, please answer the user's question. " +
		"If the information is not available in the provided context, please say so clearly."
	// previewRunes 引用预览的最大字符数
	previewRunes = 200
)

// formatContext 把检索片段格式化为带来源标注的上下文
func formatContext(chunks []domainRAG.ScoredChunk) string {
	if len(chunks) == 0 {
		return noDocumentsContext
	}
	parts := make([]string, 0, len(chunks))
	for i, sc := range chunks {
		parts = append(parts, fmt.Sprintf("Document %d [Source: %s, Page %d]:\n%s\n",
			i+1, sc.Chunk.FileName, sc.Chunk.Page, sc.Chunk.Text))
	}
	return strings.Join(parts, "\n")
}

// buildUserPrompt 拼装最后一条用户消息
func buildUserPrompt(question string, chunks []domainRAG.ScoredChunk) string {
	var b strings.Builder
	b.WriteString(answerInstruction)
	b.WriteString("\n\nDocuments:\n")
	b.WriteString(formatContext(chunks))
	b.WriteString("\n\nQuestion: ")
	b.WriteString(question)
	b.WriteString("\n\nAnswer:")
	return b.String()
}

// buildMessages 系统提示 + 最近 historyTurns 条历史 + 本轮问题
func buildMessages(systemPrompt, question string, history []domainChat.Turn, historyTurns int, chunks []domainRAG.ScoredChunk) []domainRAG.Message {
	if historyTurns < 0 {
		historyTurns = 0
	}
	if len(history) > historyTurns {
		history = history[len(history)-historyTurns:]
	}

	messages := make([]domainRAG.Message, 0, len(history)+2)
	if systemPrompt != "" {
		messages = append(messages, domainRAG.Message{Role: domainRAG.MessageRoleSystem, Content: systemPrompt})
	}
	for _, turn := range history {
		role := domainRAG.MessageRoleUser
		if turn.Role == domainChat.RoleAssistant {
			role = domainRAG.MessageRoleAssistant
		}
		messages = append(messages, domainRAG.Message{Role: role, Content: turn.Content})
	}
	messages = append(messages, domainRAG.Message{
		Role:    domainRAG.MessageRoleUser,
		Content: buildUserPrompt(question, chunks),
	})
	return messages
}

// buildCitations 按 (文件, 页码) 去重，保持检索排名顺序
func buildCitations(chunks []domainRAG.ScoredChunk) []domainChat.Citation {
	type key struct {
		file string
		page int
	}
	seen := make(map[key]struct{}, len(chunks))
	citations := make([]domainChat.Citation, 0, len(chunks))
	for _, sc := range chunks {
		k := key{sc.Chunk.FileName, sc.Chunk.Page}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		citations = append(citations, domainChat.Citation{
			FileName: sc.Chunk.FileName,
			Page:     sc.Chunk.Page,
			Score:    sc.Score,
			Preview:  preview(sc.Chunk.Text),
		})
	}
	return citations
}

func preview(text string) string {
	runes := []rune(text)
	if len(runes) <= previewRunes {
		return text
	}
	return string(runes[:previewRunes]) + "..."
}
