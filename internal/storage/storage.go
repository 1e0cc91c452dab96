package storage

import (
	"context"
	"errors"
	"fmt"

	"resume-match-go/internal/config"
	"resume-match-go/internal/constants"
	applogger "resume-match-go/internal/logger"
)

// Storage 聚合全部存储后端
// MySQL是必需的系统记录，Redis/MinIO/RabbitMQ按配置按需初始化
type Storage struct {
	MySQL    *MySQL
	Redis    *Redis
	MinIO    *MinIO
	RabbitMQ *RabbitMQ
}

// NewStorage 按配置初始化存储后端
func NewStorage(ctx context.Context, cfg *config.Config) (*Storage, error) {
	if cfg == nil {
		return nil, fmt.Errorf("配置不能为空")
	}
	if cfg.MySQL == nil {
		return nil, fmt.Errorf("缺少MySQL配置，简历存储无法工作")
	}

	s := &Storage{}
	var initErrors []error

	mysqlClient, err := NewMySQL(cfg.MySQL)
	if err != nil {
		initErrors = append(initErrors, fmt.Errorf("初始化MySQL失败: %w", err))
	} else {
		s.MySQL = mysqlClient
	}

	if cfg.Redis != nil {
		redisClient, err := NewRedis(cfg.Redis)
		if err != nil {
			initErrors = append(initErrors, fmt.Errorf("初始化Redis失败: %w", err))
		} else {
			s.Redis = redisClient
		}
	}

	if cfg.MinIO != nil {
		minioClient, err := NewMinIO(ctx, cfg.MinIO)
		if err != nil {
			initErrors = append(initErrors, fmt.Errorf("初始化MinIO失败: %w", err))
		} else {
			s.MinIO = minioClient
		}
	}

	if cfg.RabbitMQ != nil {
		mq, err := NewRabbitMQ(cfg.RabbitMQ)
		if err != nil {
			initErrors = append(initErrors, fmt.Errorf("初始化RabbitMQ失败: %w", err))
		} else {
			s.RabbitMQ = mq
		}
	}

	if len(initErrors) > 0 {
		s.Close()
		return nil, errors.Join(initErrors...)
	}

	return s, nil
}

// InitRabbitMQTopology 声明摄取事件的exchange、队列与绑定
func (s *Storage) InitRabbitMQTopology() error {
	if s.RabbitMQ == nil {
		return nil
	}

	if err := s.RabbitMQ.EnsureExchange(constants.ResumeEventsExchange, "topic", true); err != nil {
		return err
	}
	if err := s.RabbitMQ.EnsureQueue(constants.ResumeIngestedQueue, true); err != nil {
		return err
	}
	return s.RabbitMQ.BindQueue(constants.ResumeIngestedQueue, constants.ResumeEventsExchange, constants.ResumeIngestedRoutingKey)
}

// Close 关闭全部已初始化的后端连接
func (s *Storage) Close() {
	if s.MySQL != nil {
		if err := s.MySQL.Close(); err != nil {
			applogger.Warn().Err(err).Msg("关闭MySQL连接失败")
		}
	}
	if s.Redis != nil {
		if err := s.Redis.Close(); err != nil {
			applogger.Warn().Err(err).Msg("关闭Redis连接失败")
		}
	}
	if s.RabbitMQ != nil {
		if err := s.RabbitMQ.Close(); err != nil {
			applogger.Warn().Err(err).Msg("关闭RabbitMQ连接失败")
		}
	}
}
