package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"resume-match-go/internal/api/handler"
	"resume-match-go/internal/api/router"
	"resume-match-go/internal/config"
	"resume-match-go/internal/logger"
	"resume-match-go/internal/outbox"
	"resume-match-go/internal/parser"
	"resume-match-go/internal/processor"
	"resume-match-go/internal/storage"

	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/hlog"
	hertzzerolog "github.com/hertz-contrib/logger/zerolog"
	"github.com/spf13/pflag"
)

func main() {
	configPath := pflag.StringP("config", "c", "", "配置文件路径")
	pflag.Parse()

	// 1. 加载配置文件
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("加载配置文件失败")
	}

	initLogger(cfg)

	// 2. 初始化存储管理器
	ctx := context.Background()
	storageManager, err := storage.NewStorage(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("初始化存储管理器失败")
	}
	defer storageManager.Close()

	if err := storageManager.InitRabbitMQTopology(); err != nil {
		logger.Fatal().Err(err).Msg("初始化RabbitMQ拓扑失败")
	}

	// 3. 初始化解析与匹配组件
	extractor, err := parser.NewEinoPDFExtractor(ctx)
	if err != nil {
		logger.Fatal().Err(err).Msg("初始化PDF提取器失败")
	}

	embedder, err := parser.NewAliyunEmbedder(cfg.Aliyun.APIKey, cfg.Aliyun.Embedding)
	if err != nil {
		logger.Fatal().Err(err).Msg("初始化embedding客户端失败")
	}

	ingestorOpts := []processor.IngestorOption{
		processor.WithResumeChunking(cfg.Chunking.ResumeChunkSize, cfg.Chunking.ResumeChunkOverlap),
	}
	if storageManager.Redis != nil {
		ingestorOpts = append(ingestorOpts, processor.WithDedupCache(storageManager.Redis))
	}
	if storageManager.MinIO != nil {
		ingestorOpts = append(ingestorOpts, processor.WithTextArchive(storageManager.MinIO))
	}
	ingestor, err := processor.NewIngestor(storageManager.MySQL, embedder, ingestorOpts...)
	if err != nil {
		logger.Fatal().Err(err).Msg("初始化简历摄取器失败")
	}

	jdOpts := []processor.JDEmbedderOption{
		processor.WithJDChunking(cfg.Chunking.JDChunkSize, cfg.Chunking.JDChunkOverlap),
	}
	if storageManager.Redis != nil {
		jdOpts = append(jdOpts, processor.WithJDVectorCache(storageManager.Redis))
	}
	jdEmbedder, err := processor.NewJDEmbedder(embedder, cfg.Aliyun.Embedding.Model, jdOpts...)
	if err != nil {
		logger.Fatal().Err(err).Msg("初始化JD向量化器失败")
	}

	matcher := processor.NewMatcher(storageManager.MySQL, jdEmbedder,
		processor.WithThreshold(*cfg.Match.Threshold),
		processor.WithMinScore(*cfg.Match.MinScore),
		processor.WithConcurrency(cfg.Match.Concurrency),
	)

	// 4. 启动outbox消息中继
	var relay *outbox.MessageRelay
	if storageManager.RabbitMQ != nil {
		relay = outbox.NewMessageRelay(storageManager.MySQL.DB(), storageManager.RabbitMQ)
		relay.Start()
		defer relay.Stop()
	} else {
		logger.Warn().Msg("未配置RabbitMQ，摄取事件只落库不投递")
	}

	// 5. 创建HTTP服务器并注册路由
	h := server.Default(
		server.WithHostPorts(cfg.Server.Address),
	)
	router.RegisterRoutes(h,
		handler.NewResumeHandler(ingestor, extractor),
		handler.NewMatchHandler(matcher, storageManager.MySQL),
	)

	go func() {
		if err := h.Run(); err != nil {
			logger.Fatal().Err(err).Msg("启动HTTP服务器失败")
		}
	}()
	logger.Info().Str("address", cfg.Server.Address).Msg("服务已启动")

	// 6. 等待终止信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("接收到终止信号，正在优雅退出...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := h.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("服务器关闭失败")
	}

	logger.Info().Msg("优雅退出完成")
}

// 初始化日志系统，并把hertz框架日志接入同一套zerolog输出
func initLogger(cfg *config.Config) {
	logger.Init(logger.Config{
		Level:        cfg.Logger.Level,
		Format:       cfg.Logger.Format,
		TimeFormat:   cfg.Logger.TimeFormat,
		ReportCaller: cfg.Logger.ReportCaller,
	})

	logger.Logger = logger.Logger.With().
		Str("app", "resume-match-go").
		Logger()

	hlog.SetLogger(hertzzerolog.From(logger.Logger))
}
