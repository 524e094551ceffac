package task

import (
	"context"
	"time"

	"github.com/blues/liftoff/internal/config"
	"github.com/blues/liftoff/internal/insurance"
	"github.com/blues/liftoff/internal/logger"
	"github.com/go-co-op/gocron/v2"
	"github.com/panjf2000/ants/v2"
)

// InsuranceJob 保险创建任务: 已发射未初始化的保险自动创建
type InsuranceJob struct {
	insurance *insurance.Insurance
	config    *config.Config
	pool      *ants.Pool
}

// NewInsuranceJob 创建保险创建任务
func NewInsuranceJob(ins *insurance.Insurance, cfg *config.Config, pool *ants.Pool) *InsuranceJob {
	return &InsuranceJob{
		insurance: ins,
		config:    cfg,
		pool:      pool,
	}
}

// GetName 获取任务名称
func (j *InsuranceJob) GetName() string {
	return "insurance_create_updater"
}

// GetSchedule 获取调度配置
func (j *InsuranceJob) GetSchedule() gocron.JobDefinition {
	return gocron.DurationJob(time.Duration(j.config.Task.Interval) * time.Second)
}

// Execute 执行任务
func (j *InsuranceJob) Execute() {
	logger.Info("Starting insurance create task")

	created, failed := fanOut(j.pool, "create insurance", j.insurance.Pending(), func(id uint64) error {
		return j.insurance.CreateInsurance(context.Background(), id)
	})

	logger.Info("Insurance create task completed. Created %d, %d failed", created, failed)
}

// InsuranceClaimJob 保险领取任务: 领取基础费用与到期周期的释放
type InsuranceClaimJob struct {
	insurance *insurance.Insurance
	config    *config.Config
	pool      *ants.Pool
}

// NewInsuranceClaimJob 创建保险领取任务
func NewInsuranceClaimJob(ins *insurance.Insurance, cfg *config.Config, pool *ants.Pool) *InsuranceClaimJob {
	return &InsuranceClaimJob{
		insurance: ins,
		config:    cfg,
		pool:      pool,
	}
}

// GetName 获取任务名称
func (j *InsuranceClaimJob) GetName() string {
	return "insurance_claim_updater"
}

// GetSchedule 获取调度配置
func (j *InsuranceClaimJob) GetSchedule() gocron.JobDefinition {
	return gocron.DurationJob(time.Duration(j.config.Task.Interval) * time.Second)
}

// Execute 执行任务, 基础费用与周期释放分两轮领取
func (j *InsuranceClaimJob) Execute() {
	logger.Info("Starting insurance claim task")

	claimed, failed := fanOut(j.pool, "insurance claim", j.insurance.Claimable(), func(id uint64) error {
		_, err := j.insurance.Claim(context.Background(), id)
		return err
	})

	logger.Info("Insurance claim task completed. Claimed %d, %d failed", claimed, failed)
}
