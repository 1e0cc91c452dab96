package parser

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkTextWindowOffsets(t *testing.T) {
	// 1000个字符，窗口500步进400，预期起点 0/400/800
	text := strings.Repeat("a", 400) + strings.Repeat("b", 400) + strings.Repeat("c", 200)
	require.Len(t, text, 1000)

	chunks, err := ChunkText(text, 500, 100)
	require.NoError(t, err)
	require.Len(t, chunks, 3)

	assert.Len(t, chunks[0], 500)
	assert.Len(t, chunks[1], 500)
	assert.Len(t, chunks[2], 200)

	assert.Equal(t, text[0:500], chunks[0])
	assert.Equal(t, text[400:900], chunks[1])
	assert.Equal(t, text[800:1000], chunks[2])
}

func TestChunkTextCoversWholeText(t *testing.T) {
	text := strings.Repeat("x", 1234)

	chunks, err := ChunkText(text, 300, 50)
	require.NoError(t, err)
	require.NotEmpty(t, chunks)

	// 第一个窗口从0开始，最后一个窗口到达文本末尾
	assert.Equal(t, text[:300], chunks[0])
	last := chunks[len(chunks)-1]
	assert.True(t, strings.HasSuffix(text, last))

	// 去掉重叠后拼接应还原全文
	var rebuilt strings.Builder
	rebuilt.WriteString(chunks[0])
	for _, c := range chunks[1:] {
		if len(c) > 50 {
			rebuilt.WriteString(c[50:])
		}
	}
	assert.Equal(t, text, rebuilt.String())
}

func TestChunkTextEmptyInput(t *testing.T) {
	chunks, err := ChunkText("", 500, 100)
	require.NoError(t, err)
	assert.Empty(t, chunks)

	chunks, err = ChunkText("   \n\t  ", 500, 100)
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestChunkTextTrimsWhitespace(t *testing.T) {
	chunks, err := ChunkText("  hello world  ", 500, 100)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "hello world", chunks[0])
}

func TestChunkTextShortTextSingleChunk(t *testing.T) {
	chunks, err := ChunkText("short", 500, 100)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "short", chunks[0])
}

func TestChunkTextRejectsInvalidConfig(t *testing.T) {
	_, err := ChunkText("some text", 0, 0)
	require.ErrorIs(t, err, ErrInvalidChunkConfig)

	_, err = ChunkText("some text", 100, 100)
	require.ErrorIs(t, err, ErrInvalidChunkConfig)

	_, err = ChunkText("some text", 100, 150)
	require.ErrorIs(t, err, ErrInvalidChunkConfig)

	_, err = ChunkText("some text", 100, -1)
	require.ErrorIs(t, err, ErrInvalidChunkConfig)
}

func TestChunkTextMultibyteSafe(t *testing.T) {
	text := strings.Repeat("简历内容测试", 100)

	chunks, err := ChunkText(text, 50, 10)
	require.NoError(t, err)
	for _, c := range chunks {
		assert.True(t, strings.ContainsRune("简历内容测试", []rune(c)[0]))
	}
}
