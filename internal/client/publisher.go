package client

import (
	"context"
	"math"
	"time"

	"go.uber.org/zap"

	"snapsync/pkg/protocol"
	"snapsync/pkg/transform"
)

// Publisher 演示发布方：按固定频率发布一条圆周运动的变换
type Publisher struct {
	client *Client
	entity string
	logger *zap.Logger

	interval time.Duration
	radius   float64
	speed    float64 // 角速度（弧度/秒）
}

// NewPublisher 创建演示发布方（client 需已按发布方角色完成握手）
func NewPublisher(client *Client, entity string, rate float64, logger *zap.Logger) *Publisher {
	if rate <= 0 {
		rate = 20
	}
	return &Publisher{
		client:   client,
		entity:   entity,
		logger:   logger,
		interval: time.Duration(float64(time.Second) / rate),
		radius:   120,
		speed:    1.2,
	}
}

// Run 发布循环，阻塞到 ctx 取消
func (p *Publisher) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.logger.Info("发布循环启动",
		zap.String("entity", p.entity),
		zap.Duration("interval", p.interval),
	)

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("发布循环停止", zap.String("entity", p.entity))
			return

		case <-ticker.C:
			now := p.client.Now()
			angle := now * p.speed

			snap := transform.Snapshot{
				Remote: now,
				Pos: transform.Vec3{
					X: math.Cos(angle) * p.radius,
					Y: math.Sin(angle) * p.radius,
				},
				Rot:   transform.AxisAngle(transform.Vec3{Z: 1}, angle),
				Scale: transform.One(),
			}

			if err := p.client.PublishState(
				protocol.StateFromSnapshot(p.entity, snap),
			); err != nil {
				p.logger.Warn("发布失败", zap.Error(err))
			}
		}
	}
}
