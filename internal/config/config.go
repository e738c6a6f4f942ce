package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// InterpConfig 插值引擎参数（秒）
type InterpConfig struct {
	BufferTime        float64 `yaml:"bufferTime"`
	CatchupThreshold  int     `yaml:"catchupThreshold"`
	CatchupMultiplier float64 `yaml:"catchupMultiplier"`
}

// PublishConfig 发布侧限速
type PublishConfig struct {
	Rate  float64 `yaml:"rate"`  // 每个发布方每秒允许的快照数
	Burst int     `yaml:"burst"` // 突发额度
}

// KCPConfig KCP 会话调参
// 快照流是小包高频流量，窗口和 MTU 跟文件传输的默认值完全不同
type KCPConfig struct {
	MTU    int `yaml:"mtu"`
	SndWnd int `yaml:"sndWnd"`
	RcvWnd int `yaml:"rcvWnd"`
}

// TransportConfig 传输层配置
type TransportConfig struct {
	KCP KCPConfig `yaml:"kcp"`
}

// AuthConfig 会话令牌配置
// 环境变量 SNAPSYNC_JWT_SECRET 设置时覆盖 Secret；两者都为空则用开发密钥
type AuthConfig struct {
	Secret     string        `yaml:"secret"`
	SessionTTL time.Duration `yaml:"sessionTTL"`
}

// Config 全局配置
type Config struct {
	Listen string `yaml:"listen"` // 中继监听地址
	Proto  string `yaml:"proto"`  // kcp 或 tcp

	Interp    InterpConfig    `yaml:"interp"`
	Publish   PublishConfig   `yaml:"publish"`
	Transport TransportConfig `yaml:"transport"`
	Auth      AuthConfig      `yaml:"auth"`
}

// Default 默认配置
func Default() Config {
	return Config{
		Listen: ":9070",
		Proto:  "kcp",
		Interp: InterpConfig{
			BufferTime:        0.1,
			CatchupThreshold:  4,
			CatchupMultiplier: 0.10,
		},
		Publish: PublishConfig{
			Rate:  60,
			Burst: 20,
		},
		Transport: TransportConfig{
			KCP: KCPConfig{
				MTU:    1200,
				SndWnd: 256,
				RcvWnd: 256,
			},
		},
		Auth: AuthConfig{
			SessionTTL: 30 * time.Minute,
		},
	}
}

// Load 读取并解析 YAML 配置文件，在默认值上覆盖
// path 为空时直接返回默认配置
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("读取配置失败: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("解析配置失败: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.Proto != "kcp" && c.Proto != "tcp" {
		return fmt.Errorf("不支持的协议: %s", c.Proto)
	}
	if c.Interp.BufferTime < 0 {
		return fmt.Errorf("bufferTime 不能为负: %v", c.Interp.BufferTime)
	}
	if c.Interp.CatchupThreshold < 0 {
		return fmt.Errorf("catchupThreshold 不能为负: %d", c.Interp.CatchupThreshold)
	}
	if c.Interp.CatchupMultiplier < 0 {
		return fmt.Errorf("catchupMultiplier 不能为负: %v", c.Interp.CatchupMultiplier)
	}
	if c.Publish.Rate <= 0 {
		return fmt.Errorf("publish.rate 必须为正: %v", c.Publish.Rate)
	}
	if c.Transport.KCP.MTU < 576 || c.Transport.KCP.MTU > 1500 {
		return fmt.Errorf("kcp.mtu 超出范围 [576, 1500]: %d", c.Transport.KCP.MTU)
	}
	if c.Transport.KCP.SndWnd <= 0 || c.Transport.KCP.RcvWnd <= 0 {
		return fmt.Errorf("kcp 窗口必须为正: snd=%d rcv=%d",
			c.Transport.KCP.SndWnd, c.Transport.KCP.RcvWnd)
	}
	if c.Auth.SessionTTL <= 0 {
		return fmt.Errorf("auth.sessionTTL 必须为正: %v", c.Auth.SessionTTL)
	}
	return nil
}
