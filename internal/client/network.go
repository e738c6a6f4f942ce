package client

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	kcp "github.com/xtaci/kcp-go/v5"
	"go.uber.org/zap"

	"snapsync/pkg/protocol"
)

// StateEnvelope 下行快照加中继改写的服务器时间
type StateEnvelope struct {
	State      protocol.State
	ServerTime float64
	// LocalTime 本地单调时钟在收包瞬间的读数（秒）
	LocalTime float64
}

// Client 网络客户端：连接中继，收发快照
type Client struct {
	serverAddr string
	proto      string
	logger     *zap.Logger

	conn      net.Conn
	connected bool

	// 握手结果
	token  string
	entity string

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// 消息队列
	stateChan   chan StateEnvelope
	welcomeChan chan *protocol.Packet
	errChan     chan error
	sendChan    chan []byte

	// 本地单调时钟原点
	epoch time.Time
}

// NewClient 创建网络客户端
func NewClient(serverAddr, proto string, logger *zap.Logger) *Client {
	ctx, cancel := context.WithCancel(context.Background())

	return &Client{
		serverAddr:  serverAddr,
		proto:       proto,
		logger:      logger,
		ctx:         ctx,
		cancel:      cancel,
		stateChan:   make(chan StateEnvelope, 256),
		welcomeChan: make(chan *protocol.Packet, 1),
		errChan:     make(chan error, 1),
		sendChan:    make(chan []byte, 256),
		epoch:       time.Now(),
	}
}

// Now 本地单调时钟（秒）
// 快照的本地到达时间戳和插值引擎的 localTime 都用它
func (c *Client) Now() float64 {
	return time.Since(c.epoch).Seconds()
}

// Connect 连接中继并完成握手
func (c *Client) Connect(role, entity string) error {
	c.logger.Info("连接中继",
		zap.String("addr", c.serverAddr),
		zap.String("proto", c.proto),
		zap.String("role", role),
	)

	conn, err := c.dial()
	if err != nil {
		return fmt.Errorf("连接中继失败: %w", err)
	}

	c.conn = conn
	c.connected = true

	c.wg.Add(1)
	go c.receiveLoop()

	c.wg.Add(1)
	go c.sendLoop()

	// 发送握手
	data, err := protocol.MarshalPacket(protocol.NewHelloPacket(role, entity))
	if err != nil {
		c.Close()
		return fmt.Errorf("序列化握手失败: %w", err)
	}
	if err := c.send(data); err != nil {
		c.Close()
		return fmt.Errorf("发送握手失败: %w", err)
	}

	// 等待握手应答
	select {
	case pkt := <-c.welcomeChan:
		c.token = pkt.Token
		c.entity = pkt.Entity
		c.logger.Info("握手完成", zap.String("entity", entity))
		return nil

	case err := <-c.errChan:
		c.Close()
		return err

	case <-time.After(10 * time.Second):
		c.Close()
		return errors.New("等待握手应答超时")
	}
}

func (c *Client) dial() (net.Conn, error) {
	switch c.proto {
	case "", "tcp":
		return net.DialTimeout("tcp", c.serverAddr, 5*time.Second)
	case "kcp":
		conn, err := kcp.DialWithOptions(c.serverAddr, nil, 0, 0)
		if err != nil {
			return nil, err
		}
		conn.SetStreamMode(true)
		return conn, nil
	default:
		return nil, fmt.Errorf("不支持的协议: %s", c.proto)
	}
}

// Close 关闭连接
func (c *Client) Close() {
	if !c.connected {
		return
	}

	c.connected = false
	c.cancel()

	if c.conn != nil {
		c.conn.Close()
	}

	c.wg.Wait()

	// 通道不关闭：发布方可能还握着 PublishState，让 GC 收走即可

	c.logger.Info("网络客户端已关闭")
}

// IsConnected 检查是否已连接
func (c *Client) IsConnected() bool {
	return c.connected
}

// ReceiveState 非阻塞取一条下行快照，队列空时 ok 为 false
func (c *Client) ReceiveState() (StateEnvelope, bool) {
	select {
	case env := <-c.stateChan:
		return env, true
	default:
		return StateEnvelope{}, false
	}
}

// PublishState 上行一条快照（携带握手拿到的 Token）
func (c *Client) PublishState(state protocol.State) error {
	data, err := protocol.MarshalPacket(protocol.NewStatePacket(c.token, state))
	if err != nil {
		return fmt.Errorf("序列化快照失败: %w", err)
	}
	return c.send(data)
}

func (c *Client) send(data []byte) error {
	select {
	case c.sendChan <- data:
		return nil
	default:
		return errors.New("发送队列满")
	}
}

// ========== 收发循环 ==========

func (c *Client) receiveLoop() {
	defer c.wg.Done()

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
			data, err := protocol.ReadFrame(c.conn)
			if err != nil {
				if errors.Is(err, protocol.ErrEmptyPacket) {
					continue
				}
				select {
				case <-c.ctx.Done():
				default:
					c.logger.Warn("读取失败", zap.Error(err))
					c.reportError(fmt.Errorf("连接中断: %w", err))
				}
				return
			}
			c.handlePacket(data)
		}
	}
}

func (c *Client) handlePacket(data []byte) {
	pkt, err := protocol.UnmarshalPacket(data)
	if err != nil {
		c.logger.Warn("解析下行包失败", zap.Error(err))
		return
	}

	switch pkt.Type {
	case protocol.PacketWelcome:
		select {
		case c.welcomeChan <- pkt:
		default:
		}

	case protocol.PacketState:
		env := StateEnvelope{
			State:      pkt.State,
			ServerTime: pkt.ServerTime,
			LocalTime:  c.Now(),
		}
		select {
		case c.stateChan <- env:
		default:
			// 消费方来不及取就丢最旧的一条，保持队列新鲜
			select {
			case <-c.stateChan:
			default:
			}
			select {
			case c.stateChan <- env:
			default:
			}
		}

	case protocol.PacketPing:
		// 回应中继心跳
		data, err := protocol.MarshalPacket(
			protocol.NewPongPacket(pkt.ClientTime, 0),
		)
		if err == nil {
			_ = c.send(data)
		}

	case protocol.PacketPong:
		// 暂不统计客户端侧 RTT

	case protocol.PacketError:
		c.reportError(fmt.Errorf("中继拒绝: %s", pkt.Detail))

	case protocol.PacketBye:
		c.reportError(errors.New("中继要求断开"))

	default:
		c.logger.Warn("未知下行包类型", zap.Int("type", pkt.Type))
	}
}

func (c *Client) reportError(err error) {
	select {
	case c.errChan <- err:
	default:
	}
}

func (c *Client) sendLoop() {
	defer c.wg.Done()

	for {
		select {
		case <-c.ctx.Done():
			return

		case data, ok := <-c.sendChan:
			if !ok {
				return
			}
			if err := protocol.WriteFrame(c.conn, data); err != nil {
				select {
				case <-c.ctx.Done():
				default:
					c.logger.Warn("发送失败", zap.Error(err))
				}
				return
			}
		}
	}
}
