package parser

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"resume-match-go/internal/config"
	"resume-match-go/internal/logger"

	"github.com/cloudwego/eino/components/embedding"
	"github.com/rs/zerolog"
)

// aliyunEmbeddingRequest 阿里云OpenAI兼容模式的embedding请求体
type aliyunEmbeddingRequest struct {
	Model          string   `json:"model"`
	Input          []string `json:"input"`
	Dimensions     int      `json:"dimensions,omitempty"`
	EncodingFormat string   `json:"encoding_format,omitempty"`
}

// aliyunEmbeddingResponse 阿里云OpenAI兼容模式的embedding响应体
type aliyunEmbeddingResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
		Index     int       `json:"index"`
		Object    string    `json:"object"`
	} `json:"data"`
	Model string `json:"model"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error,omitempty"`
}

// AliyunEmbedder 调用阿里云DashScope的OpenAI兼容embedding接口
// 实现 cloudwego/eino 的 embedding.Embedder 接口
type AliyunEmbedder struct {
	apiKey     string
	model      string
	dimensions int
	baseURL    string
	httpClient *http.Client
	logger     zerolog.Logger
}

var _ embedding.Embedder = (*AliyunEmbedder)(nil)

// NewAliyunEmbedder 创建阿里云embedding客户端
func NewAliyunEmbedder(apiKey string, cfg config.EmbeddingConfig) (*AliyunEmbedder, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("阿里云API Key不能为空")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("embedding模型名称不能为空")
	}

	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://dashscope.aliyuncs.com/compatible-mode/v1"
	}

	return &AliyunEmbedder{
		apiKey:     apiKey,
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger.Logger.With().Str("component", "aliyun_embedder").Logger(),
	}, nil
}

// GetDimensions 返回配置的向量维度
func (e *AliyunEmbedder) GetDimensions() int {
	return e.dimensions
}

// EmbedStrings 批量向量化文本
// 结果按输入顺序返回，数量或顺序对不上时视为提供方错误
func (e *AliyunEmbedder) EmbedStrings(ctx context.Context, texts []string, opts ...embedding.Option) ([][]float64, error) {
	if len(texts) == 0 {
		return [][]float64{}, nil
	}

	reqBody := aliyunEmbeddingRequest{
		Model:          e.model,
		Input:          texts,
		Dimensions:     e.dimensions,
		EncodingFormat: "float",
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("序列化embedding请求失败: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/embeddings", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("构建embedding请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.apiKey)

	start := time.Now()
	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedding请求失败: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("读取embedding响应失败: %w", err)
	}

	var result aliyunEmbeddingResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("解析embedding响应失败 (HTTP %d): %w", resp.StatusCode, err)
	}

	if resp.StatusCode != http.StatusOK || result.Error != nil {
		msg := string(body)
		if result.Error != nil {
			msg = fmt.Sprintf("%s (code=%s)", result.Error.Message, result.Error.Code)
		}
		return nil, fmt.Errorf("embedding服务返回错误 (HTTP %d): %s", resp.StatusCode, msg)
	}

	if len(result.Data) != len(texts) {
		return nil, fmt.Errorf("embedding结果数量不符: 请求%d条，返回%d条", len(texts), len(result.Data))
	}

	vectors := make([][]float64, len(texts))
	for _, d := range result.Data {
		if d.Index < 0 || d.Index >= len(texts) {
			return nil, fmt.Errorf("embedding结果index越界: %d", d.Index)
		}
		vectors[d.Index] = d.Embedding
	}
	for i, v := range vectors {
		if v == nil {
			return nil, fmt.Errorf("embedding结果缺少index=%d的向量", i)
		}
	}

	e.logger.Debug().
		Int("texts", len(texts)).
		Int("total_tokens", result.Usage.TotalTokens).
		Dur("elapsed", time.Since(start)).
		Msg("批量向量化完成")

	return vectors, nil
}

// EmbedText 单条文本向量化
// 空白文本直接返回一维零向量，不触发远程调用。该退化向量与真实向量
// 维度不同，余弦比较前必须做维度检查。
func (e *AliyunEmbedder) EmbedText(ctx context.Context, text string) ([]float64, error) {
	if strings.TrimSpace(text) == "" {
		return []float64{0}, nil
	}

	vectors, err := e.EmbedStrings(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}
