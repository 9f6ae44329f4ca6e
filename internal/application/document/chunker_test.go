package document

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainDocument "github.com/pdfchat/pdfchat/internal/domain/document"
	"github.com/pdfchat/pdfchat/internal/infrastructure/config"
	"github.com/pdfchat/pdfchat/internal/infrastructure/tokenizer"
)

// reconstruct 去掉重叠前缀后拼接
func reconstruct(segments []Segment) string {
	var b strings.Builder
	for _, s := range segments {
		b.WriteString(strings.TrimPrefix(s.Text, s.Overlap))
	}
	return b.String()
}

func TestChunker_Characters(t *testing.T) {
	chunker, err := NewChunkerWithSplitter(tokenizer.RuneSplitter{}, 10, 3)
	require.NoError(t, err)

	text := "abcdefghijklmnopqrstuvwxyz"
	segments := chunker.Chunk(text)

	require.Len(t, segments, 4)
	assert.Equal(t, "abcdefghij", segments[0].Text)
	assert.Empty(t, segments[0].Overlap)
	assert.Equal(t, "hijklmnopq", segments[1].Text)
	assert.Equal(t, "hij", segments[1].Overlap)
	assert.Equal(t, "opqrstuvwx", segments[2].Text)
	assert.Equal(t, "vwxyz", segments[3].Text)
	assert.Equal(t, 5, segments[3].Units)

	assert.Equal(t, text, reconstruct(segments))
}

func TestChunker_ExactOverlap(t *testing.T) {
	chunker, err := NewChunkerWithSplitter(tokenizer.RuneSplitter{}, 8, 2)
	require.NoError(t, err)

	segments := chunker.Chunk("页面内容包含中文字符以及一些 ASCII text 用于测试分块")
	require.Greater(t, len(segments), 1)

	for i := 1; i < len(segments); i++ {
		prev := []rune(segments[i-1].Text)
		tail := string(prev[len(prev)-2:])
		assert.Equal(t, tail, segments[i].Overlap, "第 %d 块的重叠等于上一块末尾", i)
		assert.True(t, strings.HasPrefix(segments[i].Text, segments[i].Overlap))
	}
}

func TestChunker_ShortAndEmpty(t *testing.T) {
	chunker, err := NewChunkerWithSplitter(tokenizer.RuneSplitter{}, 100, 10)
	require.NoError(t, err)

	assert.Nil(t, chunker.Chunk(""))

	segments := chunker.Chunk("short")
	require.Len(t, segments, 1)
	assert.Equal(t, "short", segments[0].Text)
	assert.Empty(t, segments[0].Overlap)
}

func TestChunker_Tokens(t *testing.T) {
	chunker, err := NewChunker(&config.ChunkingConfig{Size: 20, Overlap: 5, Unit: config.ChunkUnitTokens})
	require.NoError(t, err)
	assert.Equal(t, "tokens", chunker.Unit())

	text := strings.Repeat("The quarterly report covers revenue, costs and outlook. ", 20)
	segments := chunker.Chunk(text)

	require.GreaterOrEqual(t, len(segments), 2)
	for _, s := range segments {
		assert.LessOrEqual(t, s.Units, 20)
	}
	assert.Equal(t, text, reconstruct(segments))
}

func TestNewChunker_InvalidParams(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		overlap int
	}{
		{"窗口为零", 0, 0},
		{"重叠为负", 10, -1},
		{"重叠等于窗口", 10, 10},
		{"重叠大于窗口", 10, 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewChunkerWithSplitter(tokenizer.RuneSplitter{}, tt.size, tt.overlap)
			assert.ErrorIs(t, err, domainDocument.ErrInvalidChunking)
		})
	}
}

func TestNewChunker_UnknownUnit(t *testing.T) {
	_, err := NewChunker(&config.ChunkingConfig{Size: 10, Overlap: 2, Unit: "words"})
	assert.Error(t, err)
}
