package relay

import (
	"fmt"
	"net"

	kcp "github.com/xtaci/kcp-go/v5"

	"snapsync/internal/config"
)

// Listener 监听器：Accept 返回的连接已按快照流的时延特性调好参
type Listener interface {
	Accept() (net.Conn, error)
	Close() error
	Addr() net.Addr
}

// newListener 按配置创建监听器
// 快照流是小包高频、晚到即废的流量，两种传输都朝"宁可丢重传
// 预算也不排队"的方向调参
func newListener(cfg config.Config) (Listener, error) {
	switch cfg.Proto {
	case "tcp":
		ln, err := net.Listen("tcp", cfg.Listen)
		if err != nil {
			return nil, fmt.Errorf("tcp 监听失败: %w", err)
		}
		return &tcpListener{ln: ln}, nil

	case "kcp":
		ln, err := kcp.ListenWithOptions(cfg.Listen, nil, 0, 0)
		if err != nil {
			return nil, fmt.Errorf("kcp 监听失败: %w", err)
		}
		return &kcpListener{ln: ln, tuning: cfg.Transport.KCP}, nil

	default:
		return nil, fmt.Errorf("不支持的协议: %s", cfg.Proto)
	}
}

type tcpListener struct {
	ln net.Listener
}

func (l *tcpListener) Accept() (net.Conn, error) {
	conn, err := l.ln.Accept()
	if err != nil {
		return nil, err
	}
	if tc, ok := conn.(*net.TCPConn); ok {
		// 小包不等 Nagle 攒批
		tc.SetNoDelay(true)
		tc.SetKeepAlive(true)
	}
	return conn, nil
}

func (l *tcpListener) Close() error   { return l.ln.Close() }
func (l *tcpListener) Addr() net.Addr { return l.ln.Addr() }

type kcpListener struct {
	ln     *kcp.Listener
	tuning config.KCPConfig
}

func (l *kcpListener) Accept() (net.Conn, error) {
	sess, err := l.ln.AcceptKCP()
	if err != nil {
		return nil, err
	}

	// nodelay 快速模式：10ms 内部刷新，跨越 2 个包就快速重传，
	// 关拥塞窗口（限速在 hub 的 limiter 做，不靠传输层憋）
	sess.SetNoDelay(1, 10, 2, 1)
	sess.SetWindowSize(l.tuning.SndWnd, l.tuning.RcvWnd)
	sess.SetMtu(l.tuning.MTU)
	// 收到立刻回 ACK，压低对端的 RTO 估计
	sess.SetACKNoDelay(true)
	// 消息边界由长度前缀协议处理
	return sess, nil
}

func (l *kcpListener) Close() error   { return l.ln.Close() }
func (l *kcpListener) Addr() net.Addr { return l.ln.Addr() }
