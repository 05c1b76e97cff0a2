package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"actioncore/api/server"
	"actioncore/internal/action"
	"actioncore/internal/config"
	"actioncore/internal/database"
	"actioncore/internal/elasticsearch"
	"actioncore/internal/grpc"
	"actioncore/internal/i18n"
	"actioncore/internal/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	configFile = flag.String("config", "etc/config.yaml", "Path to configuration file")
	version    = "1.0.0"
)

func loadConfig() *config.Config {
	// 优先从配置文件加载，如果失败则从环境变量加载
	if _, err := os.Stat(*configFile); err != nil {
		fmt.Println("Config file not found, loading from environment variables...")
		return config.Load()
	}
	cfg, err := config.LoadFromFile(*configFile)
	if err != nil {
		fmt.Printf("Failed to load config from file: %v\n", err)
		fmt.Println("Falling back to environment variables...")
		return config.Load()
	}
	return cfg
}

func loadCatalog(cfg config.I18nConfig) (*i18n.Catalog, error) {
	if cfg.CatalogFile != "" {
		return i18n.LoadFile(cfg.CatalogFile)
	}
	return i18n.New(cfg.Language, nil)
}

func main() {
	flag.Parse()

	cfg := loadConfig()
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	// 初始化日志系统
	if err := logger.Init(cfg.Logger.Level, cfg.Logger.Output); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting action service",
		zap.String("version", version),
		zap.String("config_file", *configFile),
	)

	// 初始化数据库
	if err := database.InitDB(database.Config{
		Driver:   cfg.Database.Driver,
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		DBName:   cfg.Database.DBName,
		SSLMode:  cfg.Database.SSLMode,
		LogLevel: cfg.Database.LogLevel,
	}); err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}

	logger.Info("Database initialized",
		zap.String("driver", cfg.Database.Driver),
		zap.String("database", cfg.Database.DBName),
	)

	catalog, err := loadCatalog(cfg.I18n)
	if err != nil {
		logger.Fatal("Failed to load translations", zap.Error(err))
	}
	logger.Info("Translations loaded", zap.String("language", catalog.Language()))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 审计输出：Elasticsearch 和/或 JSONL 文件
	var sinks []action.Sink
	esClient, err := elasticsearch.NewClient(cfg.Elasticsearch)
	if err != nil {
		logger.Fatal("Failed to initialize Elasticsearch", zap.Error(err))
	}
	if esClient != nil {
		if err := esClient.CreateIndexTemplate(ctx); err != nil {
			logger.Warn("Failed to create index template", zap.Error(err))
		}
		sinks = append(sinks, action.NewESSink(esClient))
	} else {
		logger.Info("Elasticsearch is disabled")
	}
	if cfg.Logger.AuditDir != "" {
		fileSink, err := action.NewFileSink(cfg.Logger.AuditDir)
		if err != nil {
			logger.Fatal("Failed to initialize audit log", zap.Error(err))
		}
		sinks = append(sinks, fileSink)
	}

	db := database.GetDB()
	actions := action.NewService(
		database.NewActionRepository(db),
		database.NewEntityStore(db, catalog),
		catalog,
		cfg.Escalation,
		logger.Named("action"),
		sinks...,
	)

	gin.SetMode(gin.ReleaseMode)
	httpServer := server.NewServer(actions, esClient, cfg)
	grpcServer := grpc.New(logger.Named("grpc"))

	g, gctx := errgroup.WithContext(ctx)

	// 启动HTTP服务器
	httpAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.HTTPPort)
	g.Go(func() error {
		logger.Info("Starting HTTP server", zap.String("address", httpAddr))
		return httpServer.Run(httpAddr)
	})

	// 启动gRPC服务器
	grpcAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.GRPCPort)
	g.Go(func() error {
		return grpc.StartServer(grpcAddr, grpcServer, logger.Named("grpc"))
	})

	// 优雅关闭
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		grpcServer.GracefulStop()
		return httpServer.Shutdown(shutdownCtx)
	})

	logger.Info("Action service is running",
		zap.Int("http_port", cfg.Server.HTTPPort),
		zap.Int("grpc_port", cfg.Server.GRPCPort),
	)

	if err := g.Wait(); err != nil {
		logger.Error("Service stopped with error", zap.Error(err))
		return
	}
	logger.Info("Action service stopped")
}
