package relay

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"snapsync/internal/config"
	"snapsync/pkg/protocol"
)

// fakeSession 测试用会话，把下发的数据收进通道
type fakeSession struct {
	id   string
	recv chan []byte
}

func newFakeSession(id string) *fakeSession {
	return &fakeSession{id: id, recv: make(chan []byte, 64)}
}

func (f *fakeSession) ID() string { return f.id }
func (f *fakeSession) Send(data []byte) error {
	select {
	case f.recv <- data:
		return nil
	default:
		return ErrSendQueueFull
	}
}
func (f *fakeSession) Close()              {}
func (f *fakeSession) CloseWithoutNotify() {}

func startHub(t *testing.T) (*Hub, func()) {
	t.Helper()
	h := NewHub(zap.NewNop(), config.PublishConfig{Rate: 1000, Burst: 100})
	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go h.Run(ctx, &wg)
	return h, func() {
		cancel()
		wg.Wait()
	}
}

func waitPacket(t *testing.T, s *fakeSession) *protocol.Packet {
	t.Helper()
	select {
	case data := <-s.recv:
		pkt, err := protocol.UnmarshalPacket(data)
		if err != nil {
			t.Fatalf("下发数据解析失败: %v", err)
		}
		return pkt
	case <-time.After(2 * time.Second):
		t.Fatal("等待下发超时")
		return nil
	}
}

func TestHubFanout(t *testing.T) {
	h, stop := startHub(t)
	defer stop()

	pub := newFakeSession("pub-1")
	sub := newFakeSession("sub-1")

	if err := h.Register(pub, protocol.RolePublisher, "e1"); err != nil {
		t.Fatalf("发布方注册失败: %v", err)
	}
	if err := h.Register(sub, protocol.RoleSubscriber, ""); err != nil {
		t.Fatalf("订阅方注册失败: %v", err)
	}

	h.Publish("pub-1", 100.5, protocol.State{Entity: "e1", RemoteTime: 7})

	pkt := waitPacket(t, sub)
	if pkt.Type != protocol.PacketState {
		t.Fatalf("包类型 = %d", pkt.Type)
	}
	if pkt.State.Entity != "e1" || pkt.State.RemoteTime != 7 {
		t.Errorf("快照内容不一致: %+v", pkt.State)
	}
	if pkt.ServerTime != 100.5 {
		t.Errorf("服务器时间戳未改写: %v", pkt.ServerTime)
	}
}

func TestHubRejectsOccupiedEntity(t *testing.T) {
	h, stop := startHub(t)
	defer stop()

	first := newFakeSession("pub-1")
	second := newFakeSession("pub-2")

	if err := h.Register(first, protocol.RolePublisher, "e1"); err != nil {
		t.Fatalf("首个发布方注册失败: %v", err)
	}
	if err := h.Register(second, protocol.RolePublisher, "e1"); err == nil {
		t.Fatal("同一实体的第二个发布方应被拒绝")
	}

	// 首个发布方注销后实体可被重新占用
	h.Unregister(first)
	deadline := time.Now().Add(2 * time.Second)
	for {
		if err := h.Register(second, protocol.RolePublisher, "e1"); err == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("注销后实体未释放")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestHubDropsMismatchedEntity(t *testing.T) {
	h, stop := startHub(t)
	defer stop()

	pub := newFakeSession("pub-1")
	sub := newFakeSession("sub-1")

	if err := h.Register(pub, protocol.RolePublisher, "e1"); err != nil {
		t.Fatal(err)
	}
	if err := h.Register(sub, protocol.RoleSubscriber, ""); err != nil {
		t.Fatal(err)
	}

	// 实体与注册不符的快照不得下发
	h.Publish("pub-1", 1, protocol.State{Entity: "e2", RemoteTime: 1})
	h.Publish("pub-1", 2, protocol.State{Entity: "e1", RemoteTime: 2})

	pkt := waitPacket(t, sub)
	if pkt.State.Entity != "e1" || pkt.State.RemoteTime != 2 {
		t.Errorf("收到了不该下发的快照: %+v", pkt.State)
	}
}

func TestHubRejectsUnknownRole(t *testing.T) {
	h, stop := startHub(t)
	defer stop()

	if err := h.Register(newFakeSession("x"), "spectator", ""); err == nil {
		t.Error("未知角色应被拒绝")
	}
}
