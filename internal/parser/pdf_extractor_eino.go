package parser

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"resume-match-go/internal/logger"

	"github.com/cloudwego/eino-ext/components/document/parser/pdf"
	einoParser "github.com/cloudwego/eino/components/document/parser"
	"github.com/rs/zerolog"
)

// EinoPDFExtractor 使用Eino PDF Parser提取简历文本
type EinoPDFExtractor struct {
	parser *pdf.PDFParser
	logger zerolog.Logger
}

// NewEinoPDFExtractor 初始化PDF提取器
// ToPages为false，整个文档作为一段连续文本返回
func NewEinoPDFExtractor(ctx context.Context) (*EinoPDFExtractor, error) {
	p, err := pdf.NewPDFParser(ctx, &pdf.Config{
		ToPages: false,
	})
	if err != nil {
		return nil, fmt.Errorf("创建Eino PDF解析器失败: %w", err)
	}

	return &EinoPDFExtractor{
		parser: p,
		logger: logger.Logger.With().Str("component", "pdf_extractor").Logger(),
	}, nil
}

// ExtractText 从Reader提取纯文本
// 扫描件等不可解析的文档可能得到空文本，由调用方的分块器兜底
func (e *EinoPDFExtractor) ExtractText(ctx context.Context, reader io.Reader, uri string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	start := time.Now()
	docs, err := e.parser.Parse(ctx, reader,
		einoParser.WithURI(uri),
		einoParser.WithExtraMeta(map[string]interface{}{
			"source_uri":      uri,
			"extraction_time": start.Format(time.RFC3339),
		}),
	)
	if err != nil {
		return "", fmt.Errorf("解析PDF失败 (uri=%s): %w", uri, err)
	}

	var sb strings.Builder
	for i, doc := range docs {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(doc.Content)
	}

	e.logger.Debug().
		Str("uri", uri).
		Int("documents", len(docs)).
		Int("chars", sb.Len()).
		Dur("elapsed", time.Since(start)).
		Msg("PDF文本提取完成")

	return sb.String(), nil
}

// ExtractTextFromBytes 从字节数组提取纯文本
func (e *EinoPDFExtractor) ExtractTextFromBytes(ctx context.Context, data []byte, uri string) (string, error) {
	return e.ExtractText(ctx, bytes.NewReader(data), uri)
}
