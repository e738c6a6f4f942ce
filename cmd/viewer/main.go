package main

import (
	"context"
	"flag"

	"github.com/hajimehoshi/ebiten/v2"
	"go.uber.org/zap"

	"snapsync/internal/client"
	"snapsync/internal/config"
	"snapsync/internal/viewer"
	"snapsync/pkg/interp"
	"snapsync/pkg/protocol"
)

func main() {
	// 命令行参数
	configPath := flag.String("config", "", "配置文件路径（YAML，可选）")
	address := flag.String("addr", "127.0.0.1:9070", "中继地址")
	proto := flag.String("proto", "kcp", "协议 kcp/tcp")
	publish := flag.String("publish", "", "同时以该实体名发布一条演示运动轨迹（可选）")
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

	// 可选：起一条本地发布连接，演示端到端链路
	if *publish != "" {
		pubClient := client.NewClient(*address, *proto, logger.Named("pub"))
		if err := pubClient.Connect(protocol.RolePublisher, *publish); err != nil {
			logger.Fatal("发布方握手失败", zap.Error(err))
		}
		defer pubClient.Close()

		publisher := client.NewPublisher(pubClient, *publish, cfg.Publish.Rate, logger.Named("pub"))
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go publisher.Run(ctx)
	}

	// 订阅连接
	subClient := client.NewClient(*address, *proto, logger.Named("sub"))
	if err := subClient.Connect(protocol.RoleSubscriber, ""); err != nil {
		logger.Fatal("订阅方握手失败", zap.Error(err))
	}
	defer subClient.Close()

	entities := client.NewEntities(interp.Settings{
		BufferTime:        cfg.Interp.BufferTime,
		CatchupThreshold:  cfg.Interp.CatchupThreshold,
		CatchupMultiplier: cfg.Interp.CatchupMultiplier,
	})

	app := viewer.NewApp(subClient, entities)

	// 设置窗口选项
	ebiten.SetWindowSize(viewer.ScreenWidth, viewer.ScreenHeight)
	ebiten.SetWindowTitle("snapsync - 快照插值查看器")
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeDisabled)
	ebiten.SetTPS(viewer.FPS)

	if err := ebiten.RunGame(app); err != nil {
		logger.Fatal("查看器退出", zap.Error(err))
	}
}
