package storage

import (
	"context"
	"fmt"
	"time"

	"resume-match-go/internal/config"
	applogger "resume-match-go/internal/logger"
	"resume-match-go/internal/storage/models"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// MySQL 关系存储，简历文档与分块的系统记录
type MySQL struct {
	db  *gorm.DB
	cfg *config.MySQLConfig
}

// NewMySQL 创建MySQL客户端并自动迁移表结构
func NewMySQL(cfg *config.MySQLConfig) (*MySQL, error) {
	if cfg == nil {
		return nil, fmt.Errorf("MySQL配置不能为空")
	}

	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local&timeout=%ds&readTimeout=%ds&writeTimeout=%ds",
		cfg.Username, cfg.Password, cfg.Host, cfg.Port, cfg.Database,
		cfg.ConnectTimeoutSeconds, cfg.ReadTimeoutSeconds, cfg.WriteTimeoutSeconds)

	var logLevel gormlogger.LogLevel
	switch cfg.LogLevel {
	case 1:
		logLevel = gormlogger.Silent
	case 2:
		logLevel = gormlogger.Error
	case 3:
		logLevel = gormlogger.Warn
	default:
		logLevel = gormlogger.Info
	}

	gormConfig := &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   gormlogger.Default.LogMode(logLevel),
		PrepareStmt:                              true,
		// 唯一键冲突翻译为 gorm.ErrDuplicatedKey，上层据此区分重复上传
		TranslateError: true,
	}

	db, err := gorm.Open(mysql.Open(dsn), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("连接MySQL失败: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("获取底层 sql.DB 失败: %w", err)
	}
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetimeMinutes) * time.Minute)
	sqlDB.SetConnMaxIdleTime(time.Duration(cfg.ConnMaxIdleTimeMinutes) * time.Minute)

	if err := db.Use(NewGormTracingPlugin(cfg.Database)); err != nil {
		return nil, fmt.Errorf("注册追踪插件失败: %w", err)
	}

	m := &MySQL{db: db, cfg: cfg}
	if err := m.autoMigrateSchema(); err != nil {
		if sqlDB, derr := db.DB(); derr == nil {
			sqlDB.Close()
		}
		return nil, fmt.Errorf("自动迁移数据库结构失败: %w", err)
	}

	applogger.Info().Str("database", cfg.Database).Msg("成功连接MySQL并完成迁移")
	return m, nil
}

func (m *MySQL) autoMigrateSchema() error {
	return m.db.AutoMigrate(
		&models.ResumeDocument{},
		&models.ResumeChunk{},
		&models.Candidate{},
		&models.Job{},
		&models.OutboxMessage{},
	)
}

// DB 返回GORM数据库连接实例
func (m *MySQL) DB() *gorm.DB {
	return m.db
}

// Close 关闭数据库连接
func (m *MySQL) Close() error {
	sqlDB, err := m.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// ResumeExists 摄取前的存在性检查
// candidateID非空时按 (filename, candidate_id) 判重，否则退回租户范围
// 的 (filename, user_id)。唯一索引仍是权威约束，这里只为提前拒绝。
func (m *MySQL) ResumeExists(ctx context.Context, filename, candidateID, userID string) (bool, error) {
	q := m.db.WithContext(ctx).Model(&models.ResumeDocument{})
	if candidateID != "" {
		q = q.Where("filename = ? AND candidate_id = ?", filename, candidateID)
	} else {
		q = q.Where("filename = ? AND user_id = ?", filename, userID)
	}

	var count int64
	if err := q.Count(&count).Error; err != nil {
		return false, fmt.Errorf("查询简历是否存在失败: %w", err)
	}
	return count > 0, nil
}

// CreateResumeDocument 单事务写入文档、全部分块与发件箱事件
// 任一步失败整体回滚，不留下缺少分块的半成品文档
func (m *MySQL) CreateResumeDocument(ctx context.Context, doc *models.ResumeDocument, chunks []models.ResumeChunk, event *models.OutboxMessage) error {
	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(doc).Error; err != nil {
			return err
		}
		if len(chunks) > 0 {
			if err := tx.CreateInBatches(chunks, 100).Error; err != nil {
				return err
			}
		}
		if event != nil {
			if err := tx.Create(event).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// GetResumeDocument 按ID读取文档及按seq排序的分块
func (m *MySQL) GetResumeDocument(ctx context.Context, resumeID string) (*models.ResumeDocument, error) {
	var doc models.ResumeDocument
	err := m.db.WithContext(ctx).
		Preload("Chunks", func(db *gorm.DB) *gorm.DB {
			return db.Order("seq asc")
		}).
		First(&doc, "id = ?", resumeID).Error
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// ListResumeDocumentsByUser 读取租户名下全部简历及有序分块
func (m *MySQL) ListResumeDocumentsByUser(ctx context.Context, userID string) ([]models.ResumeDocument, error) {
	var docs []models.ResumeDocument
	err := m.db.WithContext(ctx).
		Preload("Chunks", func(db *gorm.DB) *gorm.DB {
			return db.Order("seq asc")
		}).
		Where("user_id = ?", userID).
		Order("uploaded_at asc").
		Find(&docs).Error
	if err != nil {
		return nil, fmt.Errorf("读取租户简历失败: %w", err)
	}
	return docs, nil
}

// DeleteResumesByCandidate 删除候选人名下全部简历，返回删除的文档数
// 没有可删的不算错误，幂等
func (m *MySQL) DeleteResumesByCandidate(ctx context.Context, candidateID string) (int64, error) {
	var deleted int64
	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ids []string
		if err := tx.Model(&models.ResumeDocument{}).
			Where("candidate_id = ?", candidateID).
			Pluck("id", &ids).Error; err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}

		// 迁移时禁用了外键，分块需要显式删除
		if err := tx.Where("resume_id IN ?", ids).Delete(&models.ResumeChunk{}).Error; err != nil {
			return err
		}
		res := tx.Where("id IN ?", ids).Delete(&models.ResumeDocument{})
		if res.Error != nil {
			return res.Error
		}
		deleted = res.RowsAffected
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("删除候选人简历失败: %w", err)
	}
	return deleted, nil
}

// ListResumeRefsByCandidate 候选人名下简历的标识列，不加载分块
func (m *MySQL) ListResumeRefsByCandidate(ctx context.Context, candidateID string) ([]models.ResumeDocument, error) {
	var docs []models.ResumeDocument
	err := m.db.WithContext(ctx).
		Select("id", "user_id", "filename", "candidate_id", "raw_text_object").
		Where("candidate_id = ?", candidateID).
		Find(&docs).Error
	if err != nil {
		return nil, fmt.Errorf("查询候选人简历标识失败: %w", err)
	}
	return docs, nil
}

// GetJob 按ID读取职位
func (m *MySQL) GetJob(ctx context.Context, jobID string) (*models.Job, error) {
	var job models.Job
	if err := m.db.WithContext(ctx).First(&job, "id = ?", jobID).Error; err != nil {
		return nil, err
	}
	return &job, nil
}
