package relay

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"snapsync/pkg/protocol"
)

const (
	// 订阅方可能长时间只回心跳，读超时要盖过心跳周期
	readTimeout  = 20 * time.Second
	writeTimeout = 1 * time.Second
)

var ErrSendQueueFull = errors.New("发送队列满")

// Connection 表示一条对端连接
type Connection struct {
	conn   net.Conn
	server *Server
	connID string

	// 发送队列
	sendChan chan []byte
	closeCh  chan struct{}
	closed   bool
	closeMu  sync.Mutex

	lastRecvTime atomic.Value
	rtt          atomic.Int64 // 毫秒
}

// NewConnection 创建新连接
func NewConnection(conn net.Conn, server *Server) *Connection {
	c := &Connection{
		conn:     conn,
		server:   server,
		connID:   uuid.NewString(),
		sendChan: make(chan []byte, 256), // 发送队列缓冲区
		closeCh:  make(chan struct{}),
		closed:   false,
	}
	c.lastRecvTime.Store(time.Now())
	return c
}

// ID 连接标识
func (c *Connection) ID() string {
	return c.connID
}

// RTT 最近一次心跳测得的往返时延（毫秒）
func (c *Connection) RTT() int64 {
	return c.rtt.Load()
}

// Handle 处理连接
func (c *Connection) Handle(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()

	c.logger().Debug("连接处理开始")

	wg.Add(1)
	go c.startHeartbeat(ctx, wg)

	// 启动发送循环
	wg.Add(1)
	go c.sendLoop(ctx, wg)

	// 启动接收循环
	wg.Add(1)
	go c.receiveLoop(ctx, wg)

	// 等待上下文取消或连接关闭
	select {
	case <-ctx.Done():
	case <-c.closeCh:
	}

	c.Close()
}

// Close 关闭连接并从 hub 注销
func (c *Connection) Close() {
	c.closeWithNotify(true)
}

// CloseWithoutNotify 关闭连接但不触发注销逻辑
func (c *Connection) CloseWithoutNotify() {
	c.closeWithNotify(false)
}

func (c *Connection) closeWithNotify(notify bool) {
	c.closeMu.Lock()
	defer c.closeMu.Unlock()

	if c.closed {
		return
	}

	c.closed = true
	close(c.closeCh)

	if c.conn != nil {
		c.conn.Close()
	}

	close(c.sendChan)

	if notify {
		c.server.removePeer(c)
	}

	c.logger().Debug("连接已关闭")
}

// Send 发送数据（异步）
func (c *Connection) Send(data []byte) error {
	c.closeMu.Lock()
	defer c.closeMu.Unlock()

	if c.closed {
		return fmt.Errorf("连接已关闭")
	}

	select {
	case c.sendChan <- data:
		return nil
	default:
		return ErrSendQueueFull
	}
}

// sendLoop 发送循环
func (c *Connection) sendLoop(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()

	for {
		select {
		case <-ctx.Done():
			return

		case data, ok := <-c.sendChan:
			if !ok {
				// 通道已关闭
				return
			}

			_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := protocol.WriteFrame(c.conn, data); err != nil {
				c.logger().Debug("发送失败", zap.Error(err))
				c.Close()
				return
			}
		}
	}
}

// receiveLoop 接收循环
func (c *Connection) receiveLoop(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()

	for {
		select {
		case <-ctx.Done():
			return

		default:
			_ = c.conn.SetReadDeadline(time.Now().Add(readTimeout))
			data, err := protocol.ReadFrame(c.conn)
			if err != nil {
				if errors.Is(err, protocol.ErrEmptyPacket) {
					continue
				}
				if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
					c.logger().Debug("读取超时")
				} else {
					c.logger().Debug("读取失败", zap.Error(err))
				}
				c.Close()
				return
			}

			c.onMessageReceived()
			if err := c.handleMessage(data); err != nil {
				c.logger().Warn("处理消息失败", zap.Error(err))
			}
		}
	}
}

// handleMessage 处理接收到的消息
func (c *Connection) handleMessage(data []byte) error {
	event, err := DecodePacket(data)
	if err != nil {
		return fmt.Errorf("反序列化失败: %w", err)
	}

	switch event.Kind {
	case EventHello:
		return c.server.handleHello(c, event.Hello)

	case EventState:
		c.server.handleState(c, event.State)

	case EventPing:
		c.server.handlePing(c, event.Ping)

	case EventPong:
		c.handlePong(event.Pong)

	case EventBye:
		c.Close()

	default:
		return fmt.Errorf("未知事件类型")
	}

	return nil
}

// String 返回连接的字符串表示
func (c *Connection) String() string {
	return fmt.Sprintf("Connection{%s, %s}", c.connID, c.conn.RemoteAddr())
}

func (c *Connection) logger() *zap.Logger {
	return c.server.logger.With(zap.String("connID", c.connID))
}

const (
	heartbeatInterval = 5 * time.Second
	heartbeatTimeout  = 15 * time.Second
)

func (c *Connection) startHeartbeat(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()

	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.closeCh:
			return
		case <-ticker.C:
			lastRecv, _ := c.lastRecvTime.Load().(time.Time)
			if !lastRecv.IsZero() && time.Since(lastRecv) > heartbeatTimeout {
				c.logger().Info("心跳超时")
				c.Close()
				return
			}
			c.sendPing()
		}
	}
}

func (c *Connection) sendPing() {
	data, err := protocol.MarshalPacket(protocol.NewPingPacket(c.server.now()))
	if err != nil {
		return
	}
	_ = c.Send(data)
}

func (c *Connection) handlePong(pong *PongEvent) {
	if pong == nil || pong.ClientTime <= 0 {
		return
	}
	rtt := c.server.now() - pong.ClientTime
	c.rtt.Store(int64(rtt * 1000))
}

func (c *Connection) onMessageReceived() {
	c.lastRecvTime.Store(time.Now())
}
