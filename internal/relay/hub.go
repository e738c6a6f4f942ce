package relay

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"snapsync/internal/config"
	"snapsync/pkg/protocol"
)

// Hub 实体订阅中枢：发布方按实体注册，订阅方收到全部实体的快照
// 所有状态都在 Run 循环里单线程维护，连接 goroutine 只通过通道进来
type Hub struct {
	logger  *zap.Logger
	publish config.PublishConfig

	registerCh   chan registerRequest
	unregisterCh chan Session
	stateCh      chan stateInbound
}

type registerRequest struct {
	session Session
	role    string
	entity  string
	respCh  chan error
}

type stateInbound struct {
	connID     string
	serverTime float64
	state      protocol.State
}

type publisherInfo struct {
	session Session
	entity  string
	limiter *rate.Limiter
}

// NewHub 创建订阅中枢
func NewHub(logger *zap.Logger, publish config.PublishConfig) *Hub {
	return &Hub{
		logger:       logger,
		publish:      publish,
		registerCh:   make(chan registerRequest),
		unregisterCh: make(chan Session, 256),
		stateCh:      make(chan stateInbound, 1024),
	}
}

// Register 注册一条会话，发布方抢占实体，实体被占用时返回错误
func (h *Hub) Register(session Session, role, entity string) error {
	respCh := make(chan error, 1)
	h.registerCh <- registerRequest{
		session: session,
		role:    role,
		entity:  entity,
		respCh:  respCh,
	}
	return <-respCh
}

// Unregister 注销一条会话
func (h *Hub) Unregister(session Session) {
	h.unregisterCh <- session
}

// Publish 投递一条上行快照（限速丢弃在循环内处理）
func (h *Hub) Publish(connID string, serverTime float64, state protocol.State) {
	select {
	case h.stateCh <- stateInbound{connID: connID, serverTime: serverTime, state: state}:
	default:
		// 中枢积压时丢最新的一条，准入规则本来就容忍缺包
	}
}

// Run 中枢循环
func (h *Hub) Run(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()

	// connID → 发布方信息；实体 → connID；connID → 订阅方会话
	publishers := make(map[string]*publisherInfo)
	entityOwner := make(map[string]string)
	subscribers := make(map[string]Session)

	h.logger.Info("中枢循环启动")

	for {
		select {
		case <-ctx.Done():
			h.logger.Info("中枢循环停止")
			return

		case req := <-h.registerCh:
			req.respCh <- h.register(publishers, entityOwner, subscribers, req)

		case session := <-h.unregisterCh:
			id := session.ID()
			if pub, ok := publishers[id]; ok {
				delete(entityOwner, pub.entity)
				delete(publishers, id)
				h.logger.Info("发布方离线",
					zap.String("connID", id),
					zap.String("entity", pub.entity),
				)
			}
			if _, ok := subscribers[id]; ok {
				delete(subscribers, id)
				h.logger.Info("订阅方离线", zap.String("connID", id))
			}

		case in := <-h.stateCh:
			h.fanout(publishers, subscribers, in)
		}
	}
}

func (h *Hub) register(
	publishers map[string]*publisherInfo,
	entityOwner map[string]string,
	subscribers map[string]Session,
	req registerRequest,
) error {
	id := req.session.ID()

	switch req.role {
	case protocol.RolePublisher:
		if req.entity == "" {
			return fmt.Errorf("发布方必须声明实体")
		}
		if owner, ok := entityOwner[req.entity]; ok && owner != id {
			return fmt.Errorf("实体已被占用: %s", req.entity)
		}
		publishers[id] = &publisherInfo{
			session: req.session,
			entity:  req.entity,
			limiter: rate.NewLimiter(rate.Limit(h.publish.Rate), h.publish.Burst),
		}
		entityOwner[req.entity] = id
		h.logger.Info("发布方注册",
			zap.String("connID", id),
			zap.String("entity", req.entity),
		)
		return nil

	case protocol.RoleSubscriber:
		subscribers[id] = req.session
		h.logger.Info("订阅方注册", zap.String("connID", id))
		return nil

	default:
		return fmt.Errorf("未知角色: %s", req.role)
	}
}

// fanout 把一条上行快照转发给全部订阅方
func (h *Hub) fanout(
	publishers map[string]*publisherInfo,
	subscribers map[string]Session,
	in stateInbound,
) {
	pub, ok := publishers[in.connID]
	if !ok {
		// 未注册或已注销的发布方，丢弃
		return
	}
	if in.state.Entity != pub.entity {
		h.logger.Warn("快照实体与注册不符",
			zap.String("connID", in.connID),
			zap.String("entity", in.state.Entity),
		)
		return
	}

	// 超速的快照静默丢弃，下游靠插值缓冲补齐
	if !pub.limiter.Allow() {
		return
	}

	pkt := protocol.NewStatePacket("", in.state)
	pkt.ServerTime = in.serverTime
	data, err := protocol.MarshalPacket(pkt)
	if err != nil {
		h.logger.Error("快照序列化失败", zap.Error(err))
		return
	}

	for id, sub := range subscribers {
		if err := sub.Send(data); err != nil {
			// 发不动的订阅方不在这里摘除，心跳会收走它
			h.logger.Debug("下发失败",
				zap.String("connID", id),
				zap.Error(err),
			)
		}
	}
}
