package relay

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"snapsync/internal/config"
	"snapsync/pkg/protocol"
)

// Server 快照中继服务器
type Server struct {
	cfg    config.Config
	logger *zap.Logger

	listener Listener
	hub      *Hub
	tokens   *TokenIssuer

	// 控制
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	shutdown chan struct{}
}

// NewServer 创建中继服务器
func NewServer(cfg config.Config, logger *zap.Logger) *Server {
	ctx, cancel := context.WithCancel(context.Background())

	return &Server{
		cfg:      cfg,
		logger:   logger,
		tokens:   NewTokenIssuer(cfg.Auth),
		ctx:      ctx,
		cancel:   cancel,
		shutdown: make(chan struct{}),
	}
}

// Start 启动服务器，阻塞到 Shutdown 被调用
func (s *Server) Start() error {
	s.logger.Info("启动中继服务器",
		zap.String("addr", s.cfg.Listen),
		zap.String("proto", s.cfg.Proto),
	)

	listener, err := newListener(s.cfg)
	if err != nil {
		return fmt.Errorf("监听失败: %w", err)
	}
	s.listener = listener

	s.hub = NewHub(s.logger, s.cfg.Publish)

	// 启动中枢循环
	s.wg.Add(1)
	go s.hub.Run(s.ctx, &s.wg)

	// 启动连接接受循环
	s.wg.Add(1)
	go s.acceptLoop()

	// 等待关闭信号
	<-s.shutdown
	return nil
}

// Shutdown 优雅关闭服务器
func (s *Server) Shutdown() {
	s.logger.Info("正在关闭服务器...")

	s.cancel()

	if s.listener != nil {
		s.listener.Close()
	}

	close(s.shutdown)

	s.wg.Wait()

	s.logger.Info("服务器已关闭")
}

// acceptLoop 接受对端连接
func (s *Server) acceptLoop() {
	defer s.wg.Done()

	for {
		select {
		case <-s.ctx.Done():
			s.logger.Info("停止接受新连接")
			return
		default:
		}

		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.ctx.Done():
				return
			default:
				s.logger.Warn("接受连接失败", zap.Error(err))
				continue
			}
		}

		s.logger.Info("新连接", zap.String("remote", conn.RemoteAddr().String()))

		connection := NewConnection(conn, s)

		s.wg.Add(1)
		go connection.Handle(s.ctx, &s.wg)
	}
}

// now 服务器时钟（unix 秒）
func (s *Server) now() float64 {
	return float64(time.Now().UnixNano()) / 1e9
}

// handleHello 处理握手：注册到中枢并下发会话 Token
func (s *Server) handleHello(c *Connection, hello *HelloEvent) error {
	if err := s.hub.Register(c, hello.Role, hello.Entity); err != nil {
		data, mErr := protocol.MarshalPacket(protocol.NewErrorPacket(err.Error()))
		if mErr == nil {
			_ = c.Send(data)
		}
		return fmt.Errorf("注册失败: %w", err)
	}

	token, err := s.tokens.Issue(c.ID(), hello.Entity)
	if err != nil {
		return fmt.Errorf("签发令牌失败: %w", err)
	}

	data, err := protocol.MarshalPacket(
		protocol.NewWelcomePacket(token, hello.Entity, s.now()),
	)
	if err != nil {
		return fmt.Errorf("序列化应答失败: %w", err)
	}
	return c.Send(data)
}

// handleState 处理上行快照：核验令牌归属后交给中枢
func (s *Server) handleState(c *Connection, ev *StateEvent) {
	if err := s.tokens.VerifyFor(ev.Token, c.ID(), ev.State.Entity); err != nil {
		s.logger.Warn("快照令牌校验失败",
			zap.String("connID", c.ID()),
			zap.Error(err),
		)
		return
	}

	s.hub.Publish(c.ID(), s.now(), ev.State)
}

// handlePing 回应对端心跳
func (s *Server) handlePing(c *Connection, ping *PingEvent) {
	data, err := protocol.MarshalPacket(
		protocol.NewPongPacket(ping.ClientTime, s.now()),
	)
	if err != nil {
		return
	}
	_ = c.Send(data)
}

// removePeer 连接关闭时从中枢注销
func (s *Server) removePeer(c *Connection) {
	if s.hub == nil {
		return
	}
	select {
	case <-s.ctx.Done():
	default:
		s.hub.Unregister(c)
	}
}
