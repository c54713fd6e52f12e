package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"docflow/config"
	"docflow/internal/api/handler"
	"docflow/internal/api/router"
	"docflow/internal/channel"
	"docflow/internal/i18n"
	"docflow/internal/repository"
	"docflow/internal/service"
	"docflow/pkg/database"
	"docflow/pkg/eventbus"
	"docflow/pkg/jwt"
	applogger "docflow/pkg/logger"
	"docflow/pkg/push"
	"docflow/pkg/realtime"
	"docflow/pkg/redis"
	"docflow/pkg/tracing"
)

func main() {
	// 1. 加载配置
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	// 2. 初始化日志
	logger, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("应用启动中...",
		zap.Int("port", cfg.Server.Port),
		zap.String("log_level", cfg.Log.Level),
	)

	// 2.1 链路追踪
	shutdownTracing, err := tracing.Init(&cfg.Tracing)
	if err != nil {
		logger.Fatal("初始化链路追踪失败", zap.Error(err))
	}

	// 2.2 通知模板完整性检查
	if err := i18n.Validate(); err != nil {
		logger.Fatal("通知模板不完整", zap.Error(err))
	}

	// 3. 连接数据库
	db, err := database.NewDB(&cfg.Database, cfg.Log.Level, logger)
	if err != nil {
		logger.Fatal("数据库连接失败", zap.Error(err))
	}
	logger.Info("数据库连接成功")

	// 3.1 执行数据库迁移
	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("获取底层 sql.DB 失败", zap.Error(err))
	}
	if err := database.RunMigrations(sqlDB, logger); err != nil {
		logger.Fatal("数据库迁移失败", zap.Error(err))
	}

	// 4. 连接 Redis（可选：连接失败时降级运行，不中断启动）
	var rdb *redis.Client
	rdb, err = redis.NewClient(&cfg.Redis, logger)
	if err != nil {
		logger.Warn("Redis 连接失败，黑名单、限流、去重锁与跨实例推送将不可用", zap.Error(err))
		rdb = nil
	}

	// 5. 初始化 JWT 管理器
	jwtMgr := jwt.NewManager(&cfg.Auth)

	// 6. 实时通道：有 Redis 时经由发布订阅跨实例投递，否则仅投递本实例连接
	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()

	hub := realtime.NewHub(logger)
	var publisher realtime.Publisher
	if rdb != nil {
		sub := rdb.PSubscribe(hubCtx, realtime.ChannelPattern)
		go hub.Run(hubCtx, sub)
		publisher = realtime.NewRedisPublisher(rdb)
	} else {
		publisher = realtime.NewLocalPublisher(hub)
	}

	// 7. 推送网关（FCM）
	var gateway push.Gateway
	if cfg.Notification.Push.Enabled {
		gateway, err = push.NewFCMGateway(context.Background(), &cfg.Notification, logger)
		if err != nil {
			logger.Warn("推送网关初始化失败，推送通道将不可用", zap.Error(err))
			gateway = nil
		}
	}

	// 8. 依赖注入: Repository → Channel → Service → Handler
	repo := repository.NewRepository(db)

	var channels []channel.Channel
	if cfg.Notification.Realtime.Enabled {
		channels = append(channels, channel.NewRealtimeChannel(publisher, cfg.Notification.Realtime.Timeout, logger))
	}
	if gateway != nil {
		channels = append(channels, channel.NewPushChannel(
			gateway, repo.PushToken, cfg.Notification.Push.ImageURL, cfg.Notification.Push.Timeout, logger,
		))
	}
	registry := channel.NewRegistry(channels...)
	logger.Info("通知通道已就绪", zap.Strings("channels", registry.Names()))

	var events eventbus.Publisher
	if cfg.Kafka.Enabled {
		events = eventbus.NewKafkaPublisher(&cfg.Kafka, logger)
	} else {
		events = eventbus.NewNopPublisher()
	}

	notificationDeps := service.NotificationDeps{
		Channels:  registry,
		Gateway:   gateway,
		Window:    cfg.Notification.DedupWindow,
		BatchSize: cfg.Notification.BulkBatchSize,
		Language:  cfg.Notification.DefaultLanguage,
		ImageURL:  cfg.Notification.Push.ImageURL,
	}
	if rdb != nil {
		notificationDeps.Locker = rdb
	}

	svc := service.NewService(repo, notificationDeps, service.WorkflowDeps{
		Events:            events,
		DistributionTopic: cfg.Notification.Push.DistributionTopic,
	}, logger)
	h := handler.NewHandler(cfg, svc, hub, logger)

	// 9. 初始化路由
	engine := router.Setup(cfg, h, jwtMgr, rdb, logger)

	// 10. 启动 HTTP 服务器（优雅关闭）
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("HTTP 服务器已启动", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP 服务器异常", zap.Error(err))
		}
	}()

	// 11. 监听系统信号，优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("收到关闭信号，开始优雅关闭...", zap.String("signal", sig.String()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("服务器关闭异常", zap.Error(err))
	}

	// 停止实时推送
	stopHub()

	// 关闭事件流
	if err := events.Close(); err != nil {
		logger.Warn("关闭事件流失败", zap.Error(err))
	}

	// 关闭数据库连接
	closeDB, _ := db.DB()
	if closeDB != nil {
		closeDB.Close()
	}

	// 关闭 Redis 连接
	if rdb != nil {
		rdb.Close()
	}

	if err := shutdownTracing(ctx); err != nil {
		logger.Warn("关闭链路追踪失败", zap.Error(err))
	}

	logger.Info("服务器已关闭")
}
