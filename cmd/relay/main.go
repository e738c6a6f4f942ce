package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"snapsync/internal/config"
	"snapsync/internal/relay"
)

func main() {
	// 命令行参数
	configPath := flag.String("config", "", "配置文件路径（YAML，可选）")
	address := flag.String("addr", "", "监听地址（覆盖配置文件）")
	proto := flag.String("proto", "", "监听协议 kcp/tcp（覆盖配置文件）")
	flag.Parse()

	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal("加载配置失败", zap.Error(err))
	}
	if *address != "" {
		cfg.Listen = *address
	}
	if *proto != "" {
		cfg.Proto = *proto
	}

	server := relay.NewServer(cfg, logger)

	// 启动服务器（在新的 goroutine 中）
	go func() {
		if err := server.Start(); err != nil {
			logger.Fatal("服务器启动失败", zap.Error(err))
		}
	}()

	logger.Info("快照中继运行中",
		zap.String("listen", cfg.Listen),
		zap.String("proto", cfg.Proto),
		zap.Float64("publishRate", cfg.Publish.Rate),
	)

	// 等待中断信号
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	server.Shutdown()
}
