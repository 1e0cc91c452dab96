package parser

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidChunkConfig 分块参数非法，overlap必须小于size且size大于0
var ErrInvalidChunkConfig = errors.New("无效的分块配置")

// ValidateChunkConfig 校验分块参数
// overlap >= size 时窗口无法前进，必须在构造阶段拒绝
func ValidateChunkConfig(size, overlap int) error {
	if size <= 0 {
		return fmt.Errorf("%w: size必须大于0，当前size=%d", ErrInvalidChunkConfig, size)
	}
	if overlap < 0 || overlap >= size {
		return fmt.Errorf("%w: 必须满足 0 <= overlap < size，当前size=%d overlap=%d", ErrInvalidChunkConfig, size, overlap)
	}
	return nil
}

// ChunkText 把文本切成带重叠的定长窗口
// 先去除首尾空白，空文本返回空切片。窗口 [start, start+size) 按 size-overlap
// 步进推进，最后一个窗口可能短于size。按rune切分，避免截断多字节字符。
func ChunkText(text string, size, overlap int) ([]string, error) {
	if err := ValidateChunkConfig(size, overlap); err != nil {
		return nil, err
	}

	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return []string{}, nil
	}

	runes := []rune(trimmed)
	step := size - overlap
	chunks := make([]string, 0, (len(runes)+step-1)/step)

	for start := 0; start < len(runes); start += step {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
	}

	return chunks, nil
}
