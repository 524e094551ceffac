package repository

import (
	"fmt"

	"github.com/blues/liftoff/internal/config"
	"github.com/blues/liftoff/internal/model"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
)

// Models 需要迁移的全部表
func Models() []interface{} {
	return []interface{}{
		&model.RaiseModel{},
		&model.IgnitionRecordModel{},
		&model.RewardClaimModel{},
		&model.RefundRecordModel{},
		&model.InsuranceModel{},
		&model.RedeemRecordModel{},
		&model.InsuranceClaimModel{},
		&model.EventModel{},
	}
}

// Init 按配置连接数据库并迁移
func Init(cfg config.DatabaseConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)
	return Open(dsn)
}

// Open 连接 dsn 并自动迁移全部表
func Open(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogger.Silent), // 禁用 GORM 的默认日志输出
		NamingStrategy: &schema.NamingStrategy{
			SingularTable: true, // 禁用复数表名
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// 自动迁移
	if err := db.AutoMigrate(Models()...); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return db, nil
}
