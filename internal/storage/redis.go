package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"resume-match-go/internal/config"
	"resume-match-go/internal/constants"
	applogger "resume-match-go/internal/logger"
	"resume-match-go/internal/types"

	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
)

// Redis 缓存层，承担简历去重快速路径和JD向量缓存
// 两者都只是优化，Redis不可用时上层逻辑退化为只走MySQL
type Redis struct {
	Client *redis.Client
	cfg    *config.RedisConfig
}

// NewRedis 创建Redis客户端并注册OpenTelemetry追踪钩子
func NewRedis(cfg *config.RedisConfig) (*Redis, error) {
	if cfg == nil {
		return nil, fmt.Errorf("Redis配置不能为空")
	}
	if cfg.Address == "" {
		return nil, fmt.Errorf("Redis地址不能为空")
	}

	opt := &redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
	}
	if cfg.DialTimeoutSeconds > 0 {
		opt.DialTimeout = time.Duration(cfg.DialTimeoutSeconds) * time.Second
	}
	if cfg.ReadTimeoutSeconds > 0 {
		opt.ReadTimeout = time.Duration(cfg.ReadTimeoutSeconds) * time.Second
	}
	if cfg.WriteTimeoutSeconds > 0 {
		opt.WriteTimeout = time.Duration(cfg.WriteTimeoutSeconds) * time.Second
	}

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("连接Redis失败 (%s): %w", cfg.Address, err)
	}

	if err := redisotel.InstrumentTracing(client); err != nil {
		applogger.Warn().Err(err).Msg("注册Redis追踪钩子失败")
	}

	return &Redis{Client: client, cfg: cfg}, nil
}

// Close 关闭Redis连接
func (r *Redis) Close() error {
	return r.Client.Close()
}

// dedupMember 去重集合成员，filename与candidateID拼接
func dedupMember(filename, candidateID string) string {
	return filename + "|" + candidateID
}

// IsResumeSeen 去重快速路径，命中说明同一租户已摄取过该文件
func (r *Redis) IsResumeSeen(ctx context.Context, userID, filename, candidateID string) (bool, error) {
	key := fmt.Sprintf(constants.KeyResumeDedupSet, userID)
	return r.Client.SIsMember(ctx, key, dedupMember(filename, candidateID)).Result()
}

// MarkResumeSeen 摄取成功后记录去重标记
func (r *Redis) MarkResumeSeen(ctx context.Context, userID, filename, candidateID string) error {
	key := fmt.Sprintf(constants.KeyResumeDedupSet, userID)
	return r.Client.SAdd(ctx, key, dedupMember(filename, candidateID)).Err()
}

// UnmarkResumeSeen 简历删除后移除去重标记，同一文件允许重新摄取
func (r *Redis) UnmarkResumeSeen(ctx context.Context, userID, filename, candidateID string) error {
	key := fmt.Sprintf(constants.KeyResumeDedupSet, userID)
	return r.Client.SRem(ctx, key, dedupMember(filename, candidateID)).Err()
}

// GetJDCategoryVectors 读取缓存的JD类别向量
// 缓存中的模型与当前模型不一致时视为未命中，防止模型升级后混用旧向量
func (r *Redis) GetJDCategoryVectors(ctx context.Context, cacheKey, model string) (map[string][]types.Chunk, bool, error) {
	key := fmt.Sprintf(constants.KeyJDCategoryVectors, cacheKey)
	vals, err := r.Client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, false, fmt.Errorf("读取JD向量缓存失败: %w", err)
	}
	if len(vals) == 0 {
		return nil, false, nil
	}
	if vals["model"] != model {
		return nil, false, nil
	}

	var categories map[string][]types.Chunk
	if err := json.Unmarshal([]byte(vals["data"]), &categories); err != nil {
		// 缓存损坏按未命中处理，重算后覆盖
		applogger.Warn().Err(err).Str("key", key).Msg("JD向量缓存损坏，忽略")
		return nil, false, nil
	}
	return categories, true, nil
}

// SetJDCategoryVectors 写入JD类别向量缓存
func (r *Redis) SetJDCategoryVectors(ctx context.Context, cacheKey, model string, categories map[string][]types.Chunk) error {
	data, err := json.Marshal(categories)
	if err != nil {
		return fmt.Errorf("序列化JD向量失败: %w", err)
	}

	key := fmt.Sprintf(constants.KeyJDCategoryVectors, cacheKey)
	pipe := r.Client.TxPipeline()
	pipe.HSet(ctx, key, "model", model, "data", string(data))
	pipe.Expire(ctx, key, constants.JDVectorCacheDuration)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("写入JD向量缓存失败: %w", err)
	}
	return nil
}
