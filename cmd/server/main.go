package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/blues/liftoff/internal/config"
	"github.com/blues/liftoff/internal/logger"
	"github.com/blues/liftoff/internal/observability"
	"github.com/blues/liftoff/internal/protocol"
	"github.com/blues/liftoff/internal/publisher"
	"github.com/blues/liftoff/internal/repository"
	"github.com/blues/liftoff/internal/router"
	"github.com/blues/liftoff/internal/stream"
	"github.com/blues/liftoff/internal/task"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"gorm.io/gorm"
)

func main() {
	// 加载配置
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// 初始化日志
	if err := logger.Init(cfg.Log); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	// 组装协议
	p, err := protocol.New(protocol.OptionsFromConfig(cfg))
	if err != nil {
		logger.Fatal("Failed to assemble protocol: %v", err)
	}

	// 指标
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics(reg)
	p.Events.Register(metrics)

	// 初始化数据库, 事件写入流水
	var db *gorm.DB
	if cfg.Database.Enabled {
		db, err = repository.Init(cfg.Database)
		if err != nil {
			logger.Fatal("Failed to initialize database: %v", err)
		}
		p.Events.Register(repository.NewJournal(db))
	}

	// 事件投递到消息队列
	var pub *publisher.Publisher
	if cfg.RabbitMQ.Enabled {
		pub, err = publisher.Dial(cfg.RabbitMQ)
		if err != nil {
			logger.Fatal("Failed to connect to RabbitMQ: %v", err)
		}
		p.Events.Register(pub)
	}

	// 事件推送
	var hub *stream.Hub
	if cfg.Stream.Enabled {
		hub = stream.NewHub(cfg.Stream.BufferSize)
		p.Events.Register(hub)
	}

	// 设置Gin模式
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// 初始化路由
	r := router.Setup(p, db, hub, metrics, reg)

	// 启动定时任务
	tasks, err := task.Start(p, cfg)
	if err != nil {
		logger.Fatal("Failed to start task manager: %v", err)
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: r,
	}
	go func() {
		logger.Info("Server starting on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server")

	tasks.Stop()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown: %v", err)
	}
	if hub != nil {
		hub.Close()
	}
	if pub != nil {
		if err := pub.Close(); err != nil {
			logger.Warn("Failed to close publisher: %v", err)
		}
	}
	logger.Info("Server exited")
}
