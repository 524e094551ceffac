package task

import (
	"context"
	"time"

	"github.com/blues/liftoff/internal/config"
	"github.com/blues/liftoff/internal/engine"
	"github.com/blues/liftoff/internal/logger"
	"github.com/go-co-op/gocron/v2"
	"github.com/panjf2000/ants/v2"
)

// SparkJob 发射任务: 已满足条件的募资自动发射
type SparkJob struct {
	engine *engine.Engine
	config *config.Config
	pool   *ants.Pool
}

// NewSparkJob 创建发射任务
func NewSparkJob(eng *engine.Engine, cfg *config.Config, pool *ants.Pool) *SparkJob {
	return &SparkJob{
		engine: eng,
		config: cfg,
		pool:   pool,
	}
}

// GetName 获取任务名称
func (j *SparkJob) GetName() string {
	return "raise_spark_updater"
}

// GetSchedule 获取调度配置
func (j *SparkJob) GetSchedule() gocron.JobDefinition {
	return gocron.DurationJob(time.Duration(j.config.Task.Interval) * time.Second)
}

// Execute 执行任务
func (j *SparkJob) Execute() {
	logger.Info("Starting raise spark task")

	ids := j.engine.RaisesInState(engine.StateSparkReady)
	sparked, failed := fanOut(j.pool, "spark", ids, func(id uint64) error {
		return j.engine.Spark(context.Background(), id)
	})

	logger.Info("Raise spark task completed. Sparked %d raises, %d failed", sparked, failed)
}
