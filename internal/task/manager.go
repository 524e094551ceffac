package task

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/blues/liftoff/internal/config"
	"github.com/blues/liftoff/internal/logger"
	"github.com/blues/liftoff/internal/protocol"
	"github.com/go-co-op/gocron/v2"
	"github.com/panjf2000/ants/v2"
)

// Job 定时任务
type Job interface {
	GetName() string
	GetSchedule() gocron.JobDefinition
	Execute()
}

// Manager 任务管理器
type Manager struct {
	scheduler gocron.Scheduler
	pool      *ants.Pool
	protocol  *protocol.Protocol
	config    *config.Config
}

// NewManager 创建新的任务管理器
func NewManager(p *protocol.Protocol, cfg *config.Config) (*Manager, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}
	pool, err := ants.NewPool(cfg.Task.PoolSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool of %d workers: %w", cfg.Task.PoolSize, err)
	}

	return &Manager{
		scheduler: s,
		pool:      pool,
		protocol:  p,
		config:    cfg,
	}, nil
}

// Start 启动任务管理器
func Start(p *protocol.Protocol, cfg *config.Config) (*Manager, error) {
	manager, err := NewManager(p, cfg)
	if err != nil {
		return nil, err
	}

	// 注册所有任务
	if err := manager.RegisterJobs(); err != nil {
		manager.Stop()
		return nil, err
	}

	// 启动调度器
	manager.scheduler.Start()

	logger.Info("Task manager started successfully")
	return manager, nil
}

// Jobs 全部定时任务
func (m *Manager) Jobs() []Job {
	return []Job{
		NewSparkJob(m.protocol.Engine, m.config, m.pool),
		NewInsuranceJob(m.protocol.Insurance, m.config, m.pool),
		NewInsuranceClaimJob(m.protocol.Insurance, m.config, m.pool),
	}
}

// RegisterJobs 注册所有任务
func (m *Manager) RegisterJobs() error {
	for _, job := range m.Jobs() {
		_, err := m.scheduler.NewJob(
			job.GetSchedule(),
			gocron.NewTask(job.Execute),
			gocron.WithName(job.GetName()),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		)
		if err != nil {
			return fmt.Errorf("failed to register job %s: %w", job.GetName(), err)
		}
		logger.Info("Registered job %s", job.GetName())
	}
	return nil
}

// Stop 停止任务管理器
func (m *Manager) Stop() {
	if err := m.scheduler.Shutdown(); err != nil {
		logger.Error("Failed to shutdown scheduler: %v", err)
	}
	m.pool.Release()
	logger.Info("Task manager stopped")
}

// fanOut 在协程池中逐个处理 id, 等待全部完成后返回成功与失败数
func fanOut(pool *ants.Pool, name string, ids []uint64, fn func(id uint64) error) (int, int) {
	var (
		wg     sync.WaitGroup
		done   atomic.Int64
		failed atomic.Int64
	)
	run := func(id uint64) {
		defer wg.Done()
		if err := fn(id); err != nil {
			logger.Error("%s failed for raise %d: %v", name, id, err)
			failed.Add(1)
			return
		}
		done.Add(1)
	}

	for _, id := range ids {
		wg.Add(1)
		if pool == nil {
			run(id)
			continue
		}
		if err := pool.Submit(func() { run(id) }); err != nil {
			logger.Error("Failed to submit %s for raise %d: %v", name, id, err)
			wg.Done()
			failed.Add(1)
		}
	}
	wg.Wait()
	return int(done.Load()), int(failed.Load())
}
